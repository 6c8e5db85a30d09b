package evaluation

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// CategoryAverages returns, per category, the mean of score/maxScore*100 over
// the scored active criteria. Categories without scores average 0.
func CategoryAverages(criteria []Criterion, scores []Score) map[string]float64 {
	byID := make(map[string]Criterion, len(criteria))
	for _, c := range criteria {
		if c.Active {
			byID[c.ID] = c
		}
	}

	sums := map[string]float64{}
	counts := map[string]int{}
	for _, score := range scores {
		criterion, ok := byID[score.CriterionID]
		if !ok || criterion.MaxScore <= 0 {
			continue
		}
		sums[criterion.CategoryCode] += score.Value / float64(criterion.MaxScore) * 100
		counts[criterion.CategoryCode]++
	}

	out := make(map[string]float64, len(CategoryCodes))
	for _, code := range CategoryCodes {
		if counts[code] == 0 {
			out[code] = 0
			continue
		}
		out[code] = sums[code] / float64(counts[code])
	}
	return out
}

func WeightedTotal(categories []Category, averages map[string]float64) float64 {
	var weighted, weights float64
	for _, category := range categories {
		weighted += category.Weight * averages[category.Code]
		weights += category.Weight
	}
	if weights <= 0 {
		return 0
	}
	return weighted / weights
}

// Evaluate scores a single evaluator's submission.
func Evaluate(categories []Category, criteria []Criterion, scores []Score) Breakdown {
	averages := CategoryAverages(criteria, scores)
	total := WeightedTotal(categories, averages)
	return roundBreakdown(Breakdown{Categories: averages, Total: total})
}

// Aggregate combines evaluators' breakdowns: each category is the mean across
// evaluators, and the total is the weighted total of those means.
func Aggregate(categories []Category, breakdowns []Breakdown) Breakdown {
	if len(breakdowns) == 0 {
		return Breakdown{Categories: map[string]float64{}}
	}
	means := make(map[string]float64, len(CategoryCodes))
	for _, code := range CategoryCodes {
		var sum float64
		for _, b := range breakdowns {
			sum += b.Categories[code]
		}
		means[code] = sum / float64(len(breakdowns))
	}
	return roundBreakdown(Breakdown{Categories: means, Total: WeightedTotal(categories, means)})
}

// DetermineRank returns the threshold with the highest MinScore not above
// total.
func DetermineRank(thresholds []RankThreshold, total float64) (RankThreshold, bool) {
	sorted := sortedThresholds(thresholds)
	for _, threshold := range sorted {
		if total >= threshold.MinScore {
			return threshold, true
		}
	}
	return RankThreshold{}, false
}

// ValidateScores checks the values against the active criteria. Each
// criterion may be scored once. When complete is set, every active criterion
// must be scored.
func ValidateScores(criteria []Criterion, scores []Score, complete bool) error {
	byID := make(map[string]Criterion, len(criteria))
	for _, c := range criteria {
		if c.Active {
			byID[c.ID] = c
		}
	}
	seen := make(map[string]struct{}, len(scores))
	for _, score := range scores {
		criterion, ok := byID[score.CriterionID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownCriterion, score.CriterionID)
		}
		if _, dup := seen[score.CriterionID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateScore, criterion.Title)
		}
		if math.IsNaN(score.Value) || score.Value < 0 || score.Value > float64(criterion.MaxScore) {
			return fmt.Errorf("%w: %s must be between 0 and %d", ErrScoreOutOfRange, criterion.Title, criterion.MaxScore)
		}
		seen[score.CriterionID] = struct{}{}
	}
	if complete {
		for id := range byID {
			if _, ok := seen[id]; !ok {
				return ErrIncomplete
			}
		}
	}
	return nil
}

func ValidateWeights(categories []Category) error {
	if len(categories) != len(CategoryCodes) {
		return ErrInvalidWeights
	}
	var sum float64
	seen := map[string]struct{}{}
	for _, category := range categories {
		if !IsCategoryCode(category.Code) || category.Weight < 0 {
			return ErrInvalidWeights
		}
		if _, dup := seen[category.Code]; dup {
			return ErrInvalidWeights
		}
		seen[category.Code] = struct{}{}
		sum += category.Weight
	}
	if math.Abs(sum-100) > 0.001 {
		return ErrInvalidWeights
	}
	return nil
}

func ValidateThresholds(thresholds []RankThreshold) error {
	if len(thresholds) == 0 {
		return fmt.Errorf("%w: at least one rank is required", ErrInvalidThresholds)
	}
	seen := map[string]struct{}{}
	hasFloor := false
	for _, threshold := range thresholds {
		rank := strings.TrimSpace(threshold.Rank)
		if rank == "" {
			return fmt.Errorf("%w: rank label is required", ErrInvalidThresholds)
		}
		key := strings.ToUpper(rank)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate rank %s", ErrInvalidThresholds, rank)
		}
		seen[key] = struct{}{}
		if threshold.MinScore < 0 || threshold.MinScore > 100 {
			return fmt.Errorf("%w: %s minimum must be between 0 and 100", ErrInvalidThresholds, rank)
		}
		if threshold.RewardAmount < 0 {
			return fmt.Errorf("%w: %s reward must not be negative", ErrInvalidThresholds, rank)
		}
		if threshold.MinScore == 0 {
			hasFloor = true
		}
	}
	if !hasFloor {
		return fmt.Errorf("%w: one rank must start at 0", ErrInvalidThresholds)
	}
	return nil
}

// Finalize turns submitted breakdowns into a result. The result stays
// pending until at least Settings.RequiredEvaluators have submitted.
func Finalize(cfg Config, staffID string, period Period, breakdowns []Breakdown) Result {
	required := cfg.Settings.Required()
	result := Result{
		StaffID:        staffID,
		Period:         period,
		Status:         ResultStatusPending,
		EvaluatorCount: len(breakdowns),
		Required:       required,
		Currency:       cfg.Settings.Currency,
	}
	if len(breakdowns) < required {
		return result
	}

	aggregate := Aggregate(cfg.Categories, breakdowns)
	result.Status = ResultStatusFinalized
	result.Categories = aggregate.Categories
	result.Total = aggregate.Total
	if rank, ok := DetermineRank(cfg.Thresholds, aggregate.Total); ok {
		result.Rank = rank.Rank
		result.RewardAmount = rank.RewardAmount
	}
	return result
}

func sortedThresholds(thresholds []RankThreshold) []RankThreshold {
	sorted := make([]RankThreshold, len(thresholds))
	copy(sorted, thresholds)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinScore > sorted[j].MinScore
	})
	return sorted
}

func roundBreakdown(b Breakdown) Breakdown {
	for code, value := range b.Categories {
		b.Categories[code] = Round2(value)
	}
	b.Total = Round2(b.Total)
	return b
}

func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}
