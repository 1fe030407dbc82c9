package model

// Match reasons. These strings end up in the audit trail, so they stay
// human-readable and stable.
const (
	ReasonGroupMatch = "Payment Group Match (Unique Code)"
	ReasonOrderMatch = "Exact amount match (Unique Code)"
)

// MatchResult is the matcher's decision for one detection: at most one target
// with a reason and confidence score. Exactly one of Group and Order is set,
// depending on IsGroup.
type MatchResult struct {
	Group      *PaymentGroup
	Order      *Order
	TargetID   string
	Reason     string
	Confidence int // 0-100
	IsGroup    bool
}

// OrderIDs returns the order ids affected by this match: the group's member
// list for group matches, a single-element list otherwise.
func (m *MatchResult) OrderIDs() []string {
	if m.IsGroup {
		if m.Group == nil {
			return nil
		}
		return m.Group.OrderIDs
	}
	return []string{m.TargetID}
}
