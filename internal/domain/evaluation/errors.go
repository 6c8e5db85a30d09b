package evaluation

import "errors"

var (
	ErrEvaluationNotFound = errors.New("evaluation not found")
	ErrResultNotFound     = errors.New("evaluation result not found")
	ErrAlreadySubmitted   = errors.New("evaluation already submitted")
	ErrNotSubmitted       = errors.New("evaluation is not submitted")
	ErrIncomplete         = errors.New("every active criterion must be scored before submitting")
	ErrScoreOutOfRange    = errors.New("score out of range")
	ErrUnknownCriterion   = errors.New("unknown or inactive criterion")
	ErrDuplicateScore     = errors.New("criterion scored more than once")
	ErrSelfEvaluation     = errors.New("evaluators cannot evaluate their own staff record")
	ErrNotEvaluator       = errors.New("evaluation belongs to another evaluator")
	ErrStaffInactive      = errors.New("staff member is not active")
	ErrInvalidWeights     = errors.New("category weights must be non-negative and sum to 100")
	ErrInvalidThresholds  = errors.New("invalid rank thresholds")
	ErrInvalidPeriod      = errors.New("period must be formatted as YYYY-MM")
	ErrFuturePeriod       = errors.New("cannot evaluate a future period")
	ErrStaffNotFound      = errors.New("staff member not found")
	ErrCommentTooLong     = errors.New("comment is too long")
)
