package tenant

import "staffeval/internal/domain/evaluation"

const (
	DefaultFiscalStartMonth = 4
	DefaultCurrency         = "USD"
	MaxRequiredEvaluators   = 20
	MaxCriterionScore       = 100
)

var DefaultCategories = []evaluation.Category{
	{Code: evaluation.CategoryPerformance, Name: "Performance", Weight: 50},
	{Code: evaluation.CategoryBehavior, Name: "Behavior", Weight: 30},
	{Code: evaluation.CategoryGrowth, Name: "Growth", Weight: 20},
}

var DefaultCriteria = []evaluation.Criterion{
	{CategoryCode: evaluation.CategoryPerformance, Title: "Goal attainment", Description: "Delivers agreed objectives for the month.", MaxScore: evaluation.DefaultMaxScore, SortOrder: 1, Active: true},
	{CategoryCode: evaluation.CategoryPerformance, Title: "Quality of work", Description: "Output is accurate and needs little rework.", MaxScore: evaluation.DefaultMaxScore, SortOrder: 2, Active: true},
	{CategoryCode: evaluation.CategoryBehavior, Title: "Teamwork", Description: "Collaborates and supports colleagues.", MaxScore: evaluation.DefaultMaxScore, SortOrder: 1, Active: true},
	{CategoryCode: evaluation.CategoryBehavior, Title: "Reliability", Description: "Keeps commitments and communicates early.", MaxScore: evaluation.DefaultMaxScore, SortOrder: 2, Active: true},
	{CategoryCode: evaluation.CategoryGrowth, Title: "Learning", Description: "Builds new skills and applies feedback.", MaxScore: evaluation.DefaultMaxScore, SortOrder: 1, Active: true},
}

var DefaultThresholds = []evaluation.RankThreshold{
	{Rank: "S", MinScore: 90, RewardAmount: 500},
	{Rank: "A", MinScore: 80, RewardAmount: 300},
	{Rank: "B", MinScore: 70, RewardAmount: 150},
	{Rank: "C", MinScore: 60, RewardAmount: 50},
	{Rank: "D", MinScore: 0, RewardAmount: 0},
}
