package tenant

import (
	"time"
)

// Plan is the subscription tier a tenant is billed on.
type Plan string

const (
	PlanTrial      Plan = "trial"
	PlanStandard   Plan = "standard"
	PlanEnterprise Plan = "enterprise"
)

func ValidPlan(p Plan) bool {
	return p == PlanTrial || p == PlanStandard || p == PlanEnterprise
}

// SubscriptionStatus tracks billing state independently of the plan.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

func ValidSubscriptionStatus(s SubscriptionStatus) bool {
	return s == SubscriptionActive || s == SubscriptionPastDue || s == SubscriptionCancelled
}

// Tenant maps to the shared.tenant table. The ID doubles as the Postgres
// schema suffix (tenant_<id>), so it is a lowercase slug rather than a
// UUID.
type Tenant struct {
	ID                 string             `db:"id" json:"id"`
	Name               string             `db:"name" json:"name"`
	Plan               Plan               `db:"plan" json:"plan"`
	SubscriptionStatus SubscriptionStatus `db:"subscription_status" json:"subscription_status"`
	ContactEmail       string             `db:"contact_email" json:"contact_email"`
	Active             bool               `db:"active" json:"active"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updated_at"`
}
