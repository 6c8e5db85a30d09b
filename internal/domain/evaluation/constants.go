package evaluation

const (
	CategoryPerformance = "performance"
	CategoryBehavior    = "behavior"
	CategoryGrowth      = "growth"

	StatusDraft     = "draft"
	StatusSubmitted = "submitted"

	ResultStatusPending   = "pending"
	ResultStatusFinalized = "finalized"

	DefaultRequiredEvaluators = 1
	DefaultMaxScore           = 5
	MaxCommentLength          = 4000
)

// CategoryCodes lists the fixed category codes in display order.
var CategoryCodes = []string{CategoryPerformance, CategoryBehavior, CategoryGrowth}

func IsCategoryCode(code string) bool {
	for _, candidate := range CategoryCodes {
		if candidate == code {
			return true
		}
	}
	return false
}
