package model

import "time"

// GroupStatus represents the lifecycle state of a payment group.
type GroupStatus string

// Payment group statuses.
const (
	GroupStatusPending          GroupStatus = "pending"
	GroupStatusPendingSelection GroupStatus = "pending_selection"
	GroupStatusPaid             GroupStatus = "paid"
)

// PaymentGroup is a set of orders paid together with one combined transfer.
// Its ExactPaymentAmount carries the unique code for the whole group and is
// always compared before any individual order, because a combined amount can
// coincidentally equal an unrelated single order's amount.
type PaymentGroup struct {
	CreatedAt          time.Time
	PaidAt             *time.Time
	ID                 string
	PaymentMethod      string
	Status             GroupStatus
	OrderIDs           []string
	ExactPaymentAmount int64
}

// Payable reports whether the group is still a reconciliation candidate.
func (g *PaymentGroup) Payable() bool {
	return g.Status == GroupStatusPending || g.Status == GroupStatusPendingSelection
}
