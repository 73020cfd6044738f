package domain

import "time"

// Method is the channel used to transmit a lead to a client.
type Method string

const (
	MethodEmail     Method = "email"
	MethodWhatsApp  Method = "whatsapp"
	MethodDashboard Method = "dashboard"
)

// DeliveredLead records one lead handed to one client over one channel.
// (QualifiedLeadID, ClientID, Method) is unique; the index is the single
// source of truth for delivery idempotency.
type DeliveredLead struct {
	ID              int64     `json:"id" db:"id"`
	QualifiedLeadID int64     `json:"qualified_lead_id" db:"qualified_lead_id"`
	ClientID        int64     `json:"business_client_id" db:"business_client_id"`
	DeliveredAt     time.Time `json:"delivered_at" db:"delivered_at"`
	Method          Method    `json:"delivery_method" db:"delivery_method"`
	Opened          bool      `json:"opened" db:"opened_status"`
}
