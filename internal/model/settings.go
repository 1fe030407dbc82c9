package model

import "time"

// ModeFullAuto is the only automation mode this engine acts on. Any other
// mode means a human or a different automation path owns the decision.
const ModeFullAuto = "full-auto"

// DefaultAutoConfirmThreshold is the confidence floor applied when the
// operator has not configured one.
const DefaultAutoConfirmThreshold = 90

// ReconciliationSettings is the operator-controlled configuration singleton.
// The engine treats it as read-only.
type ReconciliationSettings struct {
	UpdatedAt            time.Time
	Mode                 string
	AutoConfirmThreshold int  // 0-100
	Enabled              bool // Kill switch
	TestMode             bool // Dry-run only, no financial side effects
	AuditNearMisses      bool // Record below-threshold matches in the audit log
}

// DefaultSettings returns the settings applied on first migration: automation
// off, full-auto mode, dry-run enabled. The operator has to opt in twice
// (enable + leave test mode) before the engine makes irrevocable decisions.
func DefaultSettings() ReconciliationSettings {
	return ReconciliationSettings{
		Mode:                 ModeFullAuto,
		Enabled:              false,
		TestMode:             true,
		AutoConfirmThreshold: DefaultAutoConfirmThreshold,
	}
}

// AllowsAutomation reports whether the configuration gate is open. The gate
// is a hard short-circuit: a nil receiver (settings missing) closes it.
func (s *ReconciliationSettings) AllowsAutomation() bool {
	if s == nil {
		return false
	}
	return s.Mode == ModeFullAuto && s.Enabled
}
