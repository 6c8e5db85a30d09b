package notifications

const (
	TypeEvaluationSubmitted = "evaluation_submitted"
	TypeEvaluationReopened  = "evaluation_reopened"
	TypeResultFinalized     = "result_finalized"
	TypeGoalSubmitted       = "goal_submitted"
	TypeGoalReviewed        = "goal_reviewed"
	TypeFeedbackReceived    = "feedback_received"
	TypeEvaluationReminder  = "evaluation_reminder"

	DefaultListLimit = 50
	MaxListLimit     = 200
)
