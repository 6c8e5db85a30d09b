package goals

const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusReturned  = "returned"
	StatusApproved  = "approved"
	StatusAchieved  = "achieved"
	StatusMissed    = "missed"

	ActionApprove = "approve"
	ActionReturn  = "return"
	ActionAchieve = "achieve"
	ActionMiss    = "miss"

	MaxGoalsPerQuarter = 5
	MaxTextLength      = 4000
)

var Statuses = []string{StatusDraft, StatusSubmitted, StatusReturned, StatusApproved, StatusAchieved, StatusMissed}

var ReviewActions = []string{ActionApprove, ActionReturn, ActionAchieve, ActionMiss}
