package model

import "time"

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

// Order statuses.
const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusWaitingPayment OrderStatus = "waiting_payment"
	OrderStatusPaid           OrderStatus = "paid"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// PaymentStatus tracks the payment side of an order independently of its
// fulfillment status.
type PaymentStatus string

// Payment statuses.
const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

// PaymentMethodTransfer is stamped on orders and groups settled through the
// automated bank-transfer reconciler.
const PaymentMethodTransfer = "bank_transfer"

// Order is a purchase awaiting payment. The three amount fields encode the
// values a bank transfer may arrive as: ExactPaymentAmount carries the
// per-order unique code, GroupPaymentAmount the share quoted when the order
// was part of a combined payment offer, and FinalTotal the plain order total.
// A zero amount field means the value was never assigned and never matches.
type Order struct {
	CreatedAt          time.Time
	PaidAt             *time.Time
	PaymentGroupID     *string
	ID                 string
	PaymentMethod      string
	Status             OrderStatus
	PaymentStatus      PaymentStatus
	ExactPaymentAmount int64
	GroupPaymentAmount int64
	FinalTotal         int64
}

// Payable reports whether the order is still a reconciliation candidate.
func (o *Order) Payable() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusWaitingPayment
}

// AmountMatches reports whether any of the order's amount fields equals the
// given amount. Equality is bit-exact; unset (zero) fields never match.
func (o *Order) AmountMatches(amount int64) bool {
	if amount <= 0 {
		return false
	}
	return o.ExactPaymentAmount == amount ||
		o.GroupPaymentAmount == amount ||
		o.FinalTotal == amount
}
