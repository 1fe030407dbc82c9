package model

import "time"

// PaymentDetection represents a claimed incoming bank transfer awaiting
// reconciliation. Detections are created by an external ingestion process and
// live in the pending set until the reconciler consumes them; they are never
// mutated in place.
type PaymentDetection struct {
	CreatedAt  time.Time
	ID         string
	SenderName string
	Bank       string // Service provider or bank that reported the transfer
	RawText    string // Original notification text, kept verbatim for auditing
	Amount     int64  // Smallest currency unit
}

// VerifiedDetection is a detection that has been matched and consumed. It
// carries a copy of the original detection fields plus the match annotation.
type VerifiedDetection struct {
	VerifiedAt       time.Time
	CreatedAt        time.Time
	ID               string
	SenderName       string
	Bank             string
	RawText          string
	MatchedTargetID  string
	VerificationNote string
	Amount           int64
	Confidence       int
	MatchedGroup     bool // True when the matched target is a payment group
}
