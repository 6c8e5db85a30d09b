package auth

const (
	PermStaffRead           = "staff.read"
	PermStaffWrite          = "staff.write"
	PermEvaluationRead      = "evaluation.read"
	PermEvaluationSubmit    = "evaluation.submit"
	PermEvaluationConfigure = "evaluation.configure"
	PermGoalsRead           = "goals.read"
	PermGoalsWrite          = "goals.write"
	PermGoalsReview         = "goals.review"
	PermFeedbackRead        = "feedback.read"
	PermFeedbackWrite       = "feedback.write"
	PermDashboardRead       = "dashboard.read"
	PermSettingsWrite       = "settings.write"
	PermAuditRead           = "audit.read"
	PermSystemAdmin         = "admin.system"
)

var DefaultPermissions = []string{
	PermStaffRead,
	PermStaffWrite,
	PermEvaluationRead,
	PermEvaluationSubmit,
	PermEvaluationConfigure,
	PermGoalsRead,
	PermGoalsWrite,
	PermGoalsReview,
	PermFeedbackRead,
	PermFeedbackWrite,
	PermDashboardRead,
	PermSettingsWrite,
	PermAuditRead,
	PermSystemAdmin,
}

var RolePermissions = map[string][]string{
	RoleStaff: {
		PermStaffRead,
		PermEvaluationRead,
		PermGoalsRead,
		PermGoalsWrite,
		PermFeedbackRead,
		PermDashboardRead,
	},
	RoleAdmin: {
		PermStaffRead,
		PermStaffWrite,
		PermEvaluationRead,
		PermEvaluationSubmit,
		PermEvaluationConfigure,
		PermGoalsRead,
		PermGoalsWrite,
		PermGoalsReview,
		PermFeedbackRead,
		PermFeedbackWrite,
		PermDashboardRead,
		PermSettingsWrite,
		PermAuditRead,
	},
	RoleSystemAdmin: {
		PermSystemAdmin,
	},
}
