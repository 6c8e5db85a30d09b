package evaluation

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var testCategories = []Category{
	{Code: CategoryPerformance, Weight: 50},
	{Code: CategoryBehavior, Weight: 30},
	{Code: CategoryGrowth, Weight: 20},
}

var testCriteria = []Criterion{
	{ID: "p1", CategoryCode: CategoryPerformance, Title: "Delivery", MaxScore: 5, Active: true},
	{ID: "p2", CategoryCode: CategoryPerformance, Title: "Quality", MaxScore: 5, Active: true},
	{ID: "b1", CategoryCode: CategoryBehavior, Title: "Teamwork", MaxScore: 10, Active: true},
	{ID: "g1", CategoryCode: CategoryGrowth, Title: "Learning", MaxScore: 5, Active: true},
	{ID: "old", CategoryCode: CategoryPerformance, Title: "Retired", MaxScore: 5, Active: false},
}

var testThresholds = []RankThreshold{
	{Rank: "D", MinScore: 0, RewardAmount: 0},
	{Rank: "S", MinScore: 90, RewardAmount: 1000},
	{Rank: "B", MinScore: 70, RewardAmount: 300},
	{Rank: "A", MinScore: 80, RewardAmount: 600},
	{Rank: "C", MinScore: 60, RewardAmount: 100},
}

func TestEvaluate(t *testing.T) {
	scores := []Score{
		{CriterionID: "p1", Value: 5},
		{CriterionID: "p2", Value: 3},
		{CriterionID: "b1", Value: 7},
		{CriterionID: "g1", Value: 2},
		{CriterionID: "old", Value: 0},
	}

	got := Evaluate(testCategories, testCriteria, scores)
	want := Breakdown{
		Categories: map[string]float64{CategoryPerformance: 80, CategoryBehavior: 70, CategoryGrowth: 40},
		Total:      69,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("breakdown mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluateRoundsToTwoDecimals(t *testing.T) {
	criteria := []Criterion{{ID: "c", CategoryCode: CategoryPerformance, MaxScore: 3, Active: true}}
	got := Evaluate(testCategories, criteria, []Score{{CriterionID: "c", Value: 1}})
	if got.Categories[CategoryPerformance] != 33.33 {
		t.Fatalf("expected 33.33, got %v", got.Categories[CategoryPerformance])
	}
	if got.Total != 16.67 {
		t.Fatalf("expected 16.67, got %v", got.Total)
	}
}

func TestWeightedTotalZeroWeights(t *testing.T) {
	categories := []Category{{Code: CategoryPerformance}, {Code: CategoryBehavior}}
	if got := WeightedTotal(categories, map[string]float64{CategoryPerformance: 90}); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestAggregateAveragesCategoriesAcrossEvaluators(t *testing.T) {
	breakdowns := []Breakdown{
		{Categories: map[string]float64{CategoryPerformance: 80, CategoryBehavior: 70, CategoryGrowth: 40}, Total: 69},
		{Categories: map[string]float64{CategoryPerformance: 60, CategoryBehavior: 90, CategoryGrowth: 100}, Total: 77},
	}
	got := Aggregate(testCategories, breakdowns)
	want := Breakdown{
		Categories: map[string]float64{CategoryPerformance: 70, CategoryBehavior: 80, CategoryGrowth: 70},
		Total:      73,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("aggregate mismatch (-want +got):\n%s", diff)
	}
}

func TestDetermineRank(t *testing.T) {
	tests := []struct {
		total  float64
		rank   string
		reward float64
	}{
		{total: 100, rank: "S", reward: 1000},
		{total: 90, rank: "S", reward: 1000},
		{total: 89.99, rank: "A", reward: 600},
		{total: 73, rank: "B", reward: 300},
		{total: 60, rank: "C", reward: 100},
		{total: 0, rank: "D", reward: 0},
	}
	for _, tc := range tests {
		got, ok := DetermineRank(testThresholds, tc.total)
		if !ok {
			t.Fatalf("expected rank for %v", tc.total)
		}
		if got.Rank != tc.rank || got.RewardAmount != tc.reward {
			t.Fatalf("total %v: expected %s/%v, got %s/%v", tc.total, tc.rank, tc.reward, got.Rank, got.RewardAmount)
		}
	}

	if _, ok := DetermineRank([]RankThreshold{{Rank: "A", MinScore: 50}}, 10); ok {
		t.Fatal("expected no rank below the lowest threshold")
	}
}

func TestValidateScores(t *testing.T) {
	complete := []Score{
		{CriterionID: "p1", Value: 5},
		{CriterionID: "p2", Value: 0},
		{CriterionID: "b1", Value: 10},
		{CriterionID: "g1", Value: 2.5},
	}
	if err := ValidateScores(testCriteria, complete, true); err != nil {
		t.Fatalf("expected valid scores, got %v", err)
	}
	if err := ValidateScores(testCriteria, complete[:2], false); err != nil {
		t.Fatalf("expected partial draft to pass, got %v", err)
	}
	if err := ValidateScores(testCriteria, complete[:2], true); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected incomplete, got %v", err)
	}
	if err := ValidateScores(testCriteria, []Score{{CriterionID: "p1", Value: 6}}, false); !errors.Is(err, ErrScoreOutOfRange) {
		t.Fatalf("expected out of range, got %v", err)
	}
	if err := ValidateScores(testCriteria, []Score{{CriterionID: "p1", Value: -1}}, false); !errors.Is(err, ErrScoreOutOfRange) {
		t.Fatalf("expected out of range, got %v", err)
	}
	if err := ValidateScores(testCriteria, []Score{{CriterionID: "old", Value: 1}}, false); !errors.Is(err, ErrUnknownCriterion) {
		t.Fatalf("expected unknown criterion, got %v", err)
	}
	repeated := []Score{
		{CriterionID: "p1", Value: 5},
		{CriterionID: "p1", Value: 5},
		{CriterionID: "p1", Value: 5},
		{CriterionID: "p2", Value: 0},
		{CriterionID: "b1", Value: 10},
		{CriterionID: "g1", Value: 2.5},
	}
	if err := ValidateScores(testCriteria, repeated, true); !errors.Is(err, ErrDuplicateScore) {
		t.Fatalf("expected duplicate score, got %v", err)
	}
}

func TestValidateWeights(t *testing.T) {
	if err := ValidateWeights(testCategories); err != nil {
		t.Fatalf("expected valid weights, got %v", err)
	}
	bad := [][]Category{
		{{Code: CategoryPerformance, Weight: 50}, {Code: CategoryBehavior, Weight: 50}},
		{{Code: CategoryPerformance, Weight: 60}, {Code: CategoryBehavior, Weight: 30}, {Code: CategoryGrowth, Weight: 20}},
		{{Code: CategoryPerformance, Weight: 110}, {Code: CategoryBehavior, Weight: -10}, {Code: CategoryGrowth, Weight: 0}},
		{{Code: CategoryPerformance, Weight: 50}, {Code: CategoryPerformance, Weight: 30}, {Code: CategoryGrowth, Weight: 20}},
		{{Code: "attitude", Weight: 50}, {Code: CategoryBehavior, Weight: 30}, {Code: CategoryGrowth, Weight: 20}},
	}
	for i, categories := range bad {
		if err := ValidateWeights(categories); !errors.Is(err, ErrInvalidWeights) {
			t.Fatalf("case %d: expected invalid weights, got %v", i, err)
		}
	}
}

func TestValidateThresholds(t *testing.T) {
	if err := ValidateThresholds(testThresholds); err != nil {
		t.Fatalf("expected valid thresholds, got %v", err)
	}
	bad := [][]RankThreshold{
		nil,
		{{Rank: "A", MinScore: 50}},
		{{Rank: "A", MinScore: 0}, {Rank: "a", MinScore: 50}},
		{{Rank: "", MinScore: 0}},
		{{Rank: "A", MinScore: 0}, {Rank: "S", MinScore: 101}},
		{{Rank: "A", MinScore: 0, RewardAmount: -5}},
	}
	for i, thresholds := range bad {
		if err := ValidateThresholds(thresholds); !errors.Is(err, ErrInvalidThresholds) {
			t.Fatalf("case %d: expected invalid thresholds, got %v", i, err)
		}
	}
}

func TestFinalize(t *testing.T) {
	cfg := Config{
		Categories: testCategories,
		Thresholds: testThresholds,
		Settings:   Settings{RequiredEvaluators: 2, Currency: "EUR"},
	}
	period := Period{Year: 2025, Month: 3}
	first := Breakdown{Categories: map[string]float64{CategoryPerformance: 80, CategoryBehavior: 70, CategoryGrowth: 40}, Total: 69}
	second := Breakdown{Categories: map[string]float64{CategoryPerformance: 60, CategoryBehavior: 90, CategoryGrowth: 100}, Total: 77}

	pending := Finalize(cfg, "staff-1", period, []Breakdown{first})
	if pending.Status != ResultStatusPending || pending.EvaluatorCount != 1 || pending.Required != 2 {
		t.Fatalf("expected pending 1/2, got %+v", pending)
	}
	if pending.Rank != "" || pending.RewardAmount != 0 {
		t.Fatalf("pending result must not carry a rank, got %+v", pending)
	}

	final := Finalize(cfg, "staff-1", period, []Breakdown{first, second})
	if final.Status != ResultStatusFinalized {
		t.Fatalf("expected finalized, got %s", final.Status)
	}
	if final.Total != 73 || final.Rank != "B" || final.RewardAmount != 300 || final.Currency != "EUR" {
		t.Fatalf("unexpected final result %+v", final)
	}
}

func TestFinalizeDefaultsRequiredEvaluators(t *testing.T) {
	cfg := Config{Categories: testCategories, Thresholds: testThresholds}
	got := Finalize(cfg, "staff-1", Period{Year: 2025, Month: 1}, []Breakdown{{Categories: map[string]float64{CategoryPerformance: 100, CategoryBehavior: 100, CategoryGrowth: 100}, Total: 100}})
	if got.Status != ResultStatusFinalized || got.Required != DefaultRequiredEvaluators || got.Rank != "S" {
		t.Fatalf("unexpected result %+v", got)
	}
}
