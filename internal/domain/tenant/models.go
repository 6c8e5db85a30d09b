package tenant

import "time"

type Tenant struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StaffCount int       `json:"staffCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Settings struct {
	RequiredEvaluators        int    `json:"requiredEvaluators"`
	FiscalStartMonth          int    `json:"fiscalStartMonth"`
	Currency                  string `json:"currency"`
	EmailNotificationsEnabled bool   `json:"emailNotificationsEnabled"`
	EmailFrom                 string `json:"emailFrom"`
}

type CriterionInput struct {
	CategoryCode string `json:"categoryCode"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	MaxScore     int    `json:"maxScore"`
	SortOrder    int    `json:"sortOrder"`
	Active       *bool  `json:"active"`
}

type ProvisionInput struct {
	Name             string `json:"name"`
	AdminEmail       string `json:"adminEmail"`
	AdminName        string `json:"adminName"`
	AdminPassword    string `json:"adminPassword"`
	Currency         string `json:"currency"`
	FiscalStartMonth int    `json:"fiscalStartMonth"`
}

type Provisioned struct {
	TenantID    string `json:"tenantId"`
	AdminUserID string `json:"adminUserId"`
}
