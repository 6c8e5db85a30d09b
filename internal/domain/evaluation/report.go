package evaluation

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"staffeval/internal/platform/money"
)

var categoryTitles = map[string]string{
	CategoryPerformance: "Performance",
	CategoryBehavior:    "Behavior",
	CategoryGrowth:      "Growth",
}

// ResultReport renders the finalized result for a staff member and month as
// a PDF statement.
func (s *Service) ResultReport(ctx context.Context, tenantID, staffID string, period Period) ([]byte, error) {
	staff, err := s.store.StaffRef(ctx, tenantID, staffID)
	if err != nil {
		return nil, err
	}
	result, err := s.store.GetResult(ctx, tenantID, staffID, period)
	if err != nil {
		return nil, err
	}
	cfg, err := s.store.LoadConfig(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	evaluations, err := s.store.ListEvaluations(ctx, tenantID, Filter{StaffID: staffID, Period: &period, Status: StatusSubmitted})
	if err != nil {
		return nil, err
	}
	return renderResultPDF(staff, result, cfg.Categories, evaluations)
}

func renderResultPDF(staff StaffRef, result Result, categories []Category, evaluations []Evaluation) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Evaluation Statement")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Staff: %s", staff.Name))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s", result.Period.Start().Format("January 2006")))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Evaluators: %d of %d required", result.EvaluatorCount, result.Required))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(70, 8, "Category", "1", 0, "L", false, 0, "")
	pdf.CellFormat(30, 8, "Weight", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, "Score", "1", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	for _, category := range categories {
		name := category.Name
		if name == "" {
			name = categoryTitles[category.Code]
		}
		pdf.CellFormat(70, 8, name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 8, fmt.Sprintf("%.0f%%", category.Weight), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, fmt.Sprintf("%.2f", result.Categories[category.Code]), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Total: %.2f", result.Total))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Rank: %s", result.Rank))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Reward: %s", money.Format(result.RewardAmount, result.Currency)))
	pdf.Ln(10)

	comments := 0
	for _, evaluation := range evaluations {
		if evaluation.Comment == "" {
			continue
		}
		if comments == 0 {
			pdf.SetFont("Helvetica", "B", 12)
			pdf.Cell(0, 8, "Comments")
			pdf.Ln(8)
			pdf.SetFont("Helvetica", "", 11)
		}
		comments++
		pdf.MultiCell(0, 6, fmt.Sprintf("%s: %s", evaluation.EvaluatorName, evaluation.Comment), "", "L", false)
		pdf.Ln(2)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
