// Package matcher implements the pure match decision logic for the
// reconciliation engine: given one detection and a snapshot of candidates, it
// produces at most one best match.
package matcher

import (
	"github.com/Veraticus/the-funds-must-clear/internal/model"
)

// Match scans the candidates for the first one whose amount equals the
// detection's amount. Payment groups are always scanned before individual
// orders: a combined group payment can coincidentally equal an unrelated
// single order's amount, and the group interpretation takes precedence.
//
// Equality is bit-exact integer comparison with no tolerance. Amounts encode
// a per-order or per-group unique code, so an exact hit always carries
// confidence 100. Callers must pass candidates in a deterministic order (the
// storage layer orders by id) so that first-hit-wins is a documented
// tie-break.
func Match(detection *model.PaymentDetection, groups []model.PaymentGroup, orders []model.Order) *model.MatchResult {
	if detection == nil || detection.Amount <= 0 {
		return nil
	}

	for i := range groups {
		group := &groups[i]
		if !group.Payable() {
			continue
		}
		if group.ExactPaymentAmount == detection.Amount {
			return &model.MatchResult{
				TargetID:   group.ID,
				Confidence: 100,
				Reason:     model.ReasonGroupMatch,
				IsGroup:    true,
				Group:      group,
			}
		}
	}

	for i := range orders {
		order := &orders[i]
		if !order.Payable() {
			continue
		}
		if order.AmountMatches(detection.Amount) {
			return &model.MatchResult{
				TargetID:   order.ID,
				Confidence: 100,
				Reason:     model.ReasonOrderMatch,
				IsGroup:    false,
				Order:      order,
			}
		}
	}

	return nil
}
