package dashboard

import (
	"sort"

	"staffeval/internal/domain/evaluation"
	"staffeval/internal/platform/money"
)

func newMoney(amount float64, currency string) Money {
	amount = evaluation.Round2(amount)
	return Money{Amount: amount, Formatted: money.Format(amount, currency)}
}

// MonthRows pairs every staff member with their result for the month. Staff
// without a finalized result get a pending result carrying the number of
// submitted evaluations.
func MonthRows(tc TenantContext, period evaluation.Period, staff []StaffRow, results []evaluation.Result, submitted map[string]int) []StaffMonth {
	byStaff := make(map[string]evaluation.Result, len(results))
	for _, r := range results {
		byStaff[r.StaffID] = r
	}
	required := tc.RequiredEvaluators
	if required < 1 {
		required = evaluation.DefaultRequiredEvaluators
	}

	out := make([]StaffMonth, 0, len(staff))
	for _, row := range staff {
		if r, ok := byStaff[row.ID]; ok {
			out = append(out, StaffMonth{StaffRow: row, State: MonthFinalized, Result: r})
			continue
		}
		count := submitted[row.ID]
		state := MonthNotStarted
		if count > 0 {
			state = MonthPending
		}
		out = append(out, StaffMonth{StaffRow: row, State: state, Result: evaluation.Result{
			StaffID:        row.ID,
			Period:         period,
			Status:         evaluation.ResultStatusPending,
			EvaluatorCount: count,
			Required:       required,
			Currency:       tc.Currency,
		}})
	}
	return out
}

func SummarizeMonth(rows []StaffMonth, currency string) MonthlySummary {
	summary := MonthlySummary{RankCounts: map[string]int{}}
	var total, rewards float64
	for _, row := range rows {
		switch row.State {
		case MonthFinalized:
			summary.Evaluated++
			total += row.Result.Total
			rewards += row.Result.RewardAmount
			summary.RankCounts[row.Result.Rank]++
		case MonthPending:
			summary.Pending++
		default:
			summary.NotStarted++
		}
	}
	if summary.Evaluated > 0 {
		summary.MeanTotal = evaluation.Round2(total / float64(summary.Evaluated))
	}
	summary.Rewards = newMoney(rewards, currency)
	return summary
}

// RollupWindow computes per-staff means over the finalized results of a
// window. Staff who are no longer active still appear when they have
// results in the window.
func RollupWindow(tc TenantContext, staff []StaffRow, results []evaluation.Result, names map[string]StaffRow) []StaffWindow {
	type acc struct {
		months  int
		total   float64
		rewards float64
	}
	sums := map[string]*acc{}
	for _, r := range results {
		a, ok := sums[r.StaffID]
		if !ok {
			a = &acc{}
			sums[r.StaffID] = a
		}
		a.months++
		a.total += r.Total
		a.rewards += r.RewardAmount
	}

	seen := map[string]bool{}
	rows := append([]StaffRow(nil), staff...)
	for _, row := range staff {
		seen[row.ID] = true
	}
	var extra []StaffRow
	for id := range sums {
		if seen[id] {
			continue
		}
		row, ok := names[id]
		if !ok {
			row = StaffRow{ID: id}
		}
		extra = append(extra, row)
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].Name < extra[j].Name })
	rows = append(rows, extra...)

	out := make([]StaffWindow, 0, len(rows))
	for _, row := range rows {
		sw := StaffWindow{StaffRow: row, Rewards: newMoney(0, tc.Currency)}
		if a, ok := sums[row.ID]; ok {
			sw.MonthsEvaluated = a.months
			sw.MeanTotal = evaluation.Round2(a.total / float64(a.months))
			if rank, ok := evaluation.DetermineRank(tc.Thresholds, sw.MeanTotal); ok {
				sw.Rank = rank.Rank
			}
			sw.Rewards = newMoney(a.rewards, tc.Currency)
		}
		out = append(out, sw)
	}
	return out
}

func SummarizeWindow(rows []StaffWindow, currency string) WindowSummary {
	summary := WindowSummary{RankCounts: map[string]int{}}
	var total, rewards float64
	for _, row := range rows {
		if row.MonthsEvaluated == 0 {
			continue
		}
		summary.StaffEvaluated++
		total += row.MeanTotal
		rewards += row.Rewards.Amount
		summary.RankCounts[row.Rank]++
	}
	if summary.StaffEvaluated > 0 {
		summary.MeanTotal = evaluation.Round2(total / float64(summary.StaffEvaluated))
	}
	summary.Rewards = newMoney(rewards, currency)
	return summary
}
