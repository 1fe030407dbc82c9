package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/the-funds-must-clear/internal/common"
	"github.com/Veraticus/the-funds-must-clear/internal/model"
	"github.com/Veraticus/the-funds-must-clear/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitMatchOrder(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	db.MustSaveOrder(model.Order{ID: "O1", ExactPaymentAmount: 55_103})
	db.MustSaveDetection(model.PaymentDetection{
		ID:         "det-1",
		Amount:     55_103,
		SenderName: "Siti",
		Bank:       "BCA",
	})

	detection, err := db.Storage.GetPendingDetection(ctx, "det-1")
	require.NoError(t, err)
	order, err := db.Storage.GetOrder(ctx, "O1")
	require.NoError(t, err)

	paidAt := time.Date(2026, 8, 28, 10, 30, 0, 0, time.UTC)
	match := &model.MatchResult{
		Order:      order,
		TargetID:   "O1",
		Reason:     model.ReasonOrderMatch,
		Confidence: 100,
	}
	require.NoError(t, db.Storage.CommitMatch(ctx, detection, match, paidAt))

	// Detection moved from pending to verified.
	_, err = db.Storage.GetPendingDetection(ctx, "det-1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	verified, err := db.Storage.GetVerifiedDetection(ctx, "det-1")
	require.NoError(t, err)
	assert.Equal(t, "O1", verified.MatchedTargetID)
	assert.False(t, verified.MatchedGroup)
	assert.Equal(t, 100, verified.Confidence)
	assert.Equal(t, int64(55_103), verified.Amount)

	// Order settled.
	got, err := db.Storage.GetOrder(ctx, "O1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, got.Status)
	assert.Equal(t, model.PaymentStatusPaid, got.PaymentStatus)
	assert.Equal(t, model.PaymentMethodTransfer, got.PaymentMethod)
	require.NotNil(t, got.PaidAt)
	assert.True(t, got.PaidAt.Equal(paidAt))
}

func TestCommitMatchGroup(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	db.MustSaveGroup(model.PaymentGroup{
		ID:                 "G1",
		ExactPaymentAmount: 125_150,
		OrderIDs:           []string{"O1", "O2"},
	})
	db.MustSaveOrder(model.Order{ID: "O1", FinalTotal: 70_000})
	db.MustSaveOrder(model.Order{ID: "O2", FinalTotal: 55_000, Status: model.OrderStatusWaitingPayment})
	db.MustSaveDetection(model.PaymentDetection{ID: "det-g", Amount: 125_150})

	detection, err := db.Storage.GetPendingDetection(ctx, "det-g")
	require.NoError(t, err)
	group, err := db.Storage.GetGroup(ctx, "G1")
	require.NoError(t, err)

	match := &model.MatchResult{
		Group:      group,
		TargetID:   "G1",
		Reason:     model.ReasonGroupMatch,
		Confidence: 100,
		IsGroup:    true,
	}
	paidAt := time.Now().UTC()
	require.NoError(t, db.Storage.CommitMatch(ctx, detection, match, paidAt))

	gotGroup, err := db.Storage.GetGroup(ctx, "G1")
	require.NoError(t, err)
	assert.Equal(t, model.GroupStatusPaid, gotGroup.Status)
	assert.Equal(t, model.PaymentMethodTransfer, gotGroup.PaymentMethod)

	for _, id := range []string{"O1", "O2"} {
		gotOrder, err := db.Storage.GetOrder(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusPaid, gotOrder.Status)
		require.NotNil(t, gotOrder.PaymentGroupID)
		assert.Equal(t, "G1", *gotOrder.PaymentGroupID)
	}

	verified, err := db.Storage.GetVerifiedDetection(ctx, "det-g")
	require.NoError(t, err)
	assert.True(t, verified.MatchedGroup)
	assert.Contains(t, verified.VerificationNote, "G1")
	assert.Contains(t, verified.VerificationNote, model.ReasonGroupMatch)
}

func TestCommitMatchGroupSkipsUnpayableMembers(t *testing.T) {
	// A member order that is missing or already settled does not block the
	// group commit.
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	db.MustSaveGroup(model.PaymentGroup{
		ID:                 "G2",
		ExactPaymentAmount: 80_000,
		OrderIDs:           []string{"O1", "O-gone", "O-paid"},
	})
	db.MustSaveOrder(model.Order{ID: "O1", FinalTotal: 40_000})
	db.MustSaveOrder(model.Order{ID: "O-paid", FinalTotal: 40_000, Status: model.OrderStatusPaid})
	db.MustSaveDetection(model.PaymentDetection{ID: "det-skip", Amount: 80_000})

	detection, err := db.Storage.GetPendingDetection(ctx, "det-skip")
	require.NoError(t, err)
	group, err := db.Storage.GetGroup(ctx, "G2")
	require.NoError(t, err)

	match := &model.MatchResult{
		Group:      group,
		TargetID:   "G2",
		Reason:     model.ReasonGroupMatch,
		Confidence: 100,
		IsGroup:    true,
	}
	require.NoError(t, db.Storage.CommitMatch(ctx, detection, match, time.Now().UTC()))

	gotGroup, err := db.Storage.GetGroup(ctx, "G2")
	require.NoError(t, err)
	assert.Equal(t, model.GroupStatusPaid, gotGroup.Status)

	gotOrder, err := db.Storage.GetOrder(ctx, "O1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, gotOrder.Status)
}

func TestCommitMatchEmptyGroupStillSettles(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	db.MustSaveGroup(model.PaymentGroup{ID: "G3", ExactPaymentAmount: 20_000})
	db.MustSaveDetection(model.PaymentDetection{ID: "det-empty", Amount: 20_000})

	detection, err := db.Storage.GetPendingDetection(ctx, "det-empty")
	require.NoError(t, err)
	group, err := db.Storage.GetGroup(ctx, "G3")
	require.NoError(t, err)

	match := &model.MatchResult{
		Group:      group,
		TargetID:   "G3",
		Reason:     model.ReasonGroupMatch,
		Confidence: 100,
		IsGroup:    true,
	}
	require.NoError(t, db.Storage.CommitMatch(ctx, detection, match, time.Now().UTC()))

	gotGroup, err := db.Storage.GetGroup(ctx, "G3")
	require.NoError(t, err)
	assert.Equal(t, model.GroupStatusPaid, gotGroup.Status)
}

func TestCommitMatchAlreadyConsumed(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	db.MustSaveOrder(model.Order{ID: "O1", ExactPaymentAmount: 10_000})
	db.MustSaveDetection(model.PaymentDetection{ID: "det-dup", Amount: 10_000})

	detection, err := db.Storage.GetPendingDetection(ctx, "det-dup")
	require.NoError(t, err)
	order, err := db.Storage.GetOrder(ctx, "O1")
	require.NoError(t, err)

	match := &model.MatchResult{
		Order:      order,
		TargetID:   "O1",
		Reason:     model.ReasonOrderMatch,
		Confidence: 100,
	}
	require.NoError(t, db.Storage.CommitMatch(ctx, detection, match, time.Now().UTC()))

	// Second commit for the same detection hits the idempotency guard and
	// leaves no duplicate verified row behind.
	err = db.Storage.CommitMatch(ctx, detection, match, time.Now().UTC())
	assert.ErrorIs(t, err, common.ErrAlreadyConsumed)
}

func TestCommitMatchStateConflictRollsBack(t *testing.T) {
	// The matched order transitioned out of its payable state after the
	// candidate query. Nothing from the batch may survive: the detection must
	// stay pending and no verified row may exist.
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	db.MustSaveOrder(model.Order{ID: "O1", ExactPaymentAmount: 33_000, Status: model.OrderStatusCancelled})
	db.MustSaveDetection(model.PaymentDetection{ID: "det-conflict", Amount: 33_000})

	detection, err := db.Storage.GetPendingDetection(ctx, "det-conflict")
	require.NoError(t, err)
	order, err := db.Storage.GetOrder(ctx, "O1")
	require.NoError(t, err)

	match := &model.MatchResult{
		Order:      order,
		TargetID:   "O1",
		Reason:     model.ReasonOrderMatch,
		Confidence: 100,
	}
	err = db.Storage.CommitMatch(ctx, detection, match, time.Now().UTC())
	assert.ErrorIs(t, err, common.ErrStateConflict)

	_, err = db.Storage.GetPendingDetection(ctx, "det-conflict")
	assert.NoError(t, err, "detection must remain pending after rollback")

	_, err = db.Storage.GetVerifiedDetection(ctx, "det-conflict")
	assert.ErrorIs(t, err, common.ErrNotFound, "verified row must not survive rollback")

	gotOrder, err := db.Storage.GetOrder(ctx, "O1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, gotOrder.Status)
}

func TestCommitMatchGroupConflictRollsBackMembers(t *testing.T) {
	// A group whose status moved past payable fails the whole batch even
	// though member updates would have succeeded.
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	db.MustSaveGroup(model.PaymentGroup{
		ID:                 "G4",
		ExactPaymentAmount: 60_000,
		OrderIDs:           []string{"O1"},
		Status:             model.GroupStatusPaid,
	})
	db.MustSaveOrder(model.Order{ID: "O1", FinalTotal: 60_000})
	db.MustSaveDetection(model.PaymentDetection{ID: "det-gconflict", Amount: 60_000})

	detection, err := db.Storage.GetPendingDetection(ctx, "det-gconflict")
	require.NoError(t, err)
	group, err := db.Storage.GetGroup(ctx, "G4")
	require.NoError(t, err)

	match := &model.MatchResult{
		Group:      group,
		TargetID:   "G4",
		Reason:     model.ReasonGroupMatch,
		Confidence: 100,
		IsGroup:    true,
	}
	err = db.Storage.CommitMatch(ctx, detection, match, time.Now().UTC())
	assert.ErrorIs(t, err, common.ErrStateConflict)

	_, err = db.Storage.GetPendingDetection(ctx, "det-gconflict")
	assert.NoError(t, err)

	gotOrder, err := db.Storage.GetOrder(ctx, "O1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, gotOrder.Status)
	assert.Nil(t, gotOrder.PaidAt)
}

func TestCommitMatchValidation(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	detection := &model.PaymentDetection{ID: "det-v", Amount: 1_000, CreatedAt: time.Now().UTC()}

	tests := []struct {
		name      string
		detection *model.PaymentDetection
		match     *model.MatchResult
	}{
		{
			name:      "nil detection",
			detection: nil,
			match:     &model.MatchResult{TargetID: "O1"},
		},
		{
			name:      "nil match",
			detection: detection,
			match:     nil,
		},
		{
			name:      "match without target",
			detection: detection,
			match:     &model.MatchResult{},
		},
		{
			name:      "group match without group data",
			detection: detection,
			match:     &model.MatchResult{TargetID: "G1", IsGroup: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := db.Storage.CommitMatch(ctx, tt.detection, tt.match, time.Now().UTC())
			assert.Error(t, err)
		})
	}
}
