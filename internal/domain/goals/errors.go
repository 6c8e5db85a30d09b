package goals

import "errors"

var (
	ErrGoalNotFound    = errors.New("goal not found")
	ErrGoalLimit       = errors.New("goal limit reached for this quarter")
	ErrGoalLocked      = errors.New("goal cannot be edited in its current status")
	ErrInvalidGoal     = errors.New("invalid goal")
	ErrInvalidAction   = errors.New("invalid review action")
	ErrInvalidStatus   = errors.New("goal status does not allow this action")
	ErrNotOwner        = errors.New("goal belongs to another staff member")
	ErrCommentRequired = errors.New("a comment is required when returning a goal")
	ErrProgressRange   = errors.New("progress must be between 0 and 100")
	ErrInvalidQuarter  = errors.New("quarter must be between 1 and 4")
)
