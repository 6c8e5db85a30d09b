package dashboard

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"staffeval/internal/domain/evaluation"
	"staffeval/internal/domain/goals"
)

const (
	KindQuarterly = "quarterly"
	KindAnnual    = "annual"
	KindFiscal    = "fiscal"

	minYear = 2000
	maxYear = 2200
)

// GoalLister is satisfied by goals.Service.
type GoalLister interface {
	List(ctx context.Context, tenantID string, filter goals.Filter) ([]goals.Goal, error)
}

type Service struct {
	store StoreAPI
	goals GoalLister
	now   func() time.Time
}

func NewService(store StoreAPI, goalLister GoalLister) *Service {
	return &Service{store: store, goals: goalLister, now: time.Now}
}

// CurrentPeriod is the month dashboards default to.
func (s *Service) CurrentPeriod() evaluation.Period {
	return evaluation.PeriodOf(s.now().UTC())
}

func (s *Service) Monthly(ctx context.Context, tenantID string, period evaluation.Period) (Monthly, error) {
	var (
		tc        TenantContext
		staff     []StaffRow
		results   []evaluation.Result
		submitted map[string]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		tc, err = s.store.TenantContext(gctx, tenantID)
		return err
	})
	g.Go(func() (err error) {
		staff, err = s.store.ActiveStaff(gctx, tenantID)
		return err
	})
	g.Go(func() (err error) {
		results, _, err = s.store.Results(gctx, tenantID, "", evaluation.MonthWindow(period))
		return err
	})
	g.Go(func() (err error) {
		submitted, err = s.store.SubmittedCounts(gctx, tenantID, period)
		return err
	})
	if err := g.Wait(); err != nil {
		return Monthly{}, fmt.Errorf("monthly dashboard: %w", err)
	}

	rows := MonthRows(tc, period, staff, results, submitted)
	return Monthly{
		Period:   period,
		Currency: tc.Currency,
		Staff:    rows,
		Summary:  SummarizeMonth(rows, tc.Currency),
	}, nil
}

func (s *Service) Quarterly(ctx context.Context, tenantID string, year, quarter int) (Rollup, error) {
	if err := checkYear(year); err != nil {
		return Rollup{}, err
	}
	window, err := evaluation.QuarterWindow(year, quarter)
	if err != nil {
		return Rollup{}, goals.ErrInvalidQuarter
	}
	var goalSummaries map[string]goals.Summary
	rollup, err := s.rollup(ctx, tenantID, KindQuarterly, func(TenantContext) (evaluation.Window, error) { return window, nil },
		func(gctx context.Context) error {
			list, err := s.goals.List(gctx, tenantID, goals.Filter{Year: year, Quarter: quarter})
			if err != nil {
				return err
			}
			goalSummaries = goals.SummarizeGoals(year, quarter, list)
			return nil
		})
	if err != nil {
		return Rollup{}, err
	}
	for i := range rollup.Staff {
		summary := summaryFor(goalSummaries, rollup.Staff[i].ID, year, quarter)
		rollup.Staff[i].Goals = &summary
	}
	return rollup, nil
}

func (s *Service) Annual(ctx context.Context, tenantID string, year int) (Rollup, error) {
	if err := checkYear(year); err != nil {
		return Rollup{}, err
	}
	return s.rollup(ctx, tenantID, KindAnnual, func(TenantContext) (evaluation.Window, error) {
		return evaluation.YearWindow(year), nil
	}, nil)
}

// Fiscal rolls up the fiscal year labelled year, which starts in the
// tenant's fiscal start month of that calendar year.
func (s *Service) Fiscal(ctx context.Context, tenantID string, year int) (Rollup, error) {
	if err := checkYear(year); err != nil {
		return Rollup{}, err
	}
	return s.rollup(ctx, tenantID, KindFiscal, func(tc TenantContext) (evaluation.Window, error) {
		return evaluation.FiscalYearWindow(year, tc.FiscalStartMonth)
	}, nil)
}

// CurrentFiscalYear returns the label of the fiscal year containing today.
func (s *Service) CurrentFiscalYear(ctx context.Context, tenantID string) (int, error) {
	tc, err := s.store.TenantContext(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	return evaluation.FiscalYearOf(s.CurrentPeriod(), tc.FiscalStartMonth), nil
}

func (s *Service) rollup(ctx context.Context, tenantID, kind string, windowFor func(TenantContext) (evaluation.Window, error), extra func(context.Context) error) (Rollup, error) {
	tc, err := s.store.TenantContext(ctx, tenantID)
	if err != nil {
		return Rollup{}, err
	}
	window, err := windowFor(tc)
	if err != nil {
		return Rollup{}, err
	}

	var (
		staff   []StaffRow
		results []evaluation.Result
		names   map[string]StaffRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		staff, err = s.store.ActiveStaff(gctx, tenantID)
		return err
	})
	g.Go(func() (err error) {
		results, names, err = s.store.Results(gctx, tenantID, "", window)
		return err
	})
	if extra != nil {
		g.Go(func() error { return extra(gctx) })
	}
	if err := g.Wait(); err != nil {
		return Rollup{}, fmt.Errorf("%s dashboard: %w", kind, err)
	}

	rows := RollupWindow(tc, staff, results, names)
	return Rollup{
		Kind:     kind,
		Window:   window,
		Currency: tc.Currency,
		Staff:    rows,
		Summary:  SummarizeWindow(rows, tc.Currency),
	}, nil
}

// Me builds the personal dashboard for the staff record linked to userID.
func (s *Service) Me(ctx context.Context, tenantID, userID string) (Personal, error) {
	row, err := s.store.StaffByUserID(ctx, tenantID, userID)
	if err != nil {
		return Personal{}, err
	}
	tc, err := s.store.TenantContext(ctx, tenantID)
	if err != nil {
		return Personal{}, err
	}

	current := s.CurrentPeriod()
	history := evaluation.Window{
		From:  evaluation.PeriodOf(current.Start().AddDate(0, -11, 0)),
		To:    current.Next(),
		Label: "last-12-months",
	}
	fiscal, err := evaluation.FiscalYearWindow(evaluation.FiscalYearOf(current, tc.FiscalStartMonth), tc.FiscalStartMonth)
	if err != nil {
		return Personal{}, err
	}

	var (
		historyResults []evaluation.Result
		fiscalResults  []evaluation.Result
		submitted      map[string]int
		quarterGoals   []goals.Goal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		historyResults, _, err = s.store.Results(gctx, tenantID, row.ID, history)
		return err
	})
	g.Go(func() (err error) {
		fiscalResults, _, err = s.store.Results(gctx, tenantID, row.ID, fiscal)
		return err
	})
	g.Go(func() (err error) {
		submitted, err = s.store.SubmittedCounts(gctx, tenantID, current)
		return err
	})
	g.Go(func() (err error) {
		quarterGoals, err = s.goals.List(gctx, tenantID, goals.Filter{StaffID: row.ID, Year: current.Year, Quarter: current.Quarter()})
		return err
	})
	if err := g.Wait(); err != nil {
		return Personal{}, fmt.Errorf("personal dashboard: %w", err)
	}

	var currentResults []evaluation.Result
	for _, r := range historyResults {
		if r.Period == current {
			currentResults = append(currentResults, r)
		}
	}
	month := MonthRows(tc, current, []StaffRow{row}, currentResults, submitted)
	fy := RollupWindow(tc, []StaffRow{row}, fiscalResults, nil)

	if historyResults == nil {
		historyResults = []evaluation.Result{}
	}
	if quarterGoals == nil {
		quarterGoals = []goals.Goal{}
	}
	return Personal{
		StaffRow:    row,
		Currency:    tc.Currency,
		Current:     month[0].Result,
		History:     historyResults,
		FiscalYear:  fy[0],
		FiscalLabel: fiscal.Label,
		Goals:       quarterGoals,
		GoalSummary: summaryFor(goals.SummarizeGoals(current.Year, current.Quarter(), quarterGoals), row.ID, current.Year, current.Quarter()),
	}, nil
}

func checkYear(year int) error {
	if year < minYear || year > maxYear {
		return ErrInvalidYear
	}
	return nil
}

func summaryFor(summaries map[string]goals.Summary, staffID string, year, quarter int) goals.Summary {
	if summary, ok := summaries[staffID]; ok {
		return summary
	}
	counts := make(map[string]int, len(goals.Statuses))
	for _, status := range goals.Statuses {
		counts[status] = 0
	}
	return goals.Summary{Year: year, Quarter: quarter, Counts: counts}
}
