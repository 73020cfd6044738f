package domain

import "time"

// PlanName identifies a subscription plan. Empty means pay-per-lead.
type PlanName string

const (
	PlanStarter PlanName = "starter"
	PlanPro     PlanName = "pro"
	PlanElite   PlanName = "elite"
	PlanTrial   PlanName = "trial"
)

// BusinessClient is a subscribed business receiving leads.
// Soft-deleted clients are invisible to listings but may be restored.
type BusinessClient struct {
	ID               int64      `json:"id" db:"id"`
	BusinessName     string     `json:"business_name" db:"business_name"`
	Industry         string     `json:"industry" db:"industry"`
	Email            string     `json:"email" db:"email"`
	Phone            string     `json:"phone" db:"phone"`
	WhatsApp         string     `json:"whatsapp" db:"whatsapp"`
	SubscriptionPlan PlanName   `json:"subscription_plan" db:"subscription_plan"`
	NumberOfUsers    int        `json:"number_of_users" db:"number_of_users"`
	NextBillingDate  *time.Time `json:"next_billing_date" db:"next_billing_date"`
	IsDeleted        bool       `json:"is_deleted" db:"is_deleted"`
	DeletedAt        *time.Time `json:"deleted_at" db:"deleted_at"`
}

// PaymentStatus is the recorded state of a payment row.
type PaymentStatus string

const (
	PaymentDue     PaymentStatus = "due"
	PaymentPaid    PaymentStatus = "paid"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// Settled reports whether the status counts as money received.
func (s PaymentStatus) Settled() bool {
	return s == PaymentPaid || s == PaymentSuccess
}

// Payment records a payment status transition the system was told about.
type Payment struct {
	ID          int64         `json:"id" db:"id"`
	ClientID    int64         `json:"business_client_id" db:"business_client_id"`
	PlanName    PlanName      `json:"plan_name" db:"plan_name"`
	Amount      float64       `json:"amount" db:"amount"`
	PaymentDate time.Time     `json:"payment_date" db:"payment_date"`
	Status      PaymentStatus `json:"payment_status" db:"payment_status"`
}
