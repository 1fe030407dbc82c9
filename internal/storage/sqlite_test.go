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

func TestPendingDetectionRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	created := time.Date(2026, 8, 28, 9, 15, 0, 0, time.UTC)
	db.MustSaveDetection(model.PaymentDetection{
		ID:         "det-rt",
		Amount:     123_456,
		SenderName: "Agus",
		Bank:       "BRI",
		RawText:    "Transfer masuk Rp 1.234,56 dari AGUS",
		CreatedAt:  created,
	})

	got, err := db.Storage.GetPendingDetection(ctx, "det-rt")
	require.NoError(t, err)
	assert.Equal(t, int64(123_456), got.Amount)
	assert.Equal(t, "Agus", got.SenderName)
	assert.Equal(t, "BRI", got.Bank)
	assert.Equal(t, "Transfer masuk Rp 1.234,56 dari AGUS", got.RawText)
	assert.True(t, got.CreatedAt.Equal(created))

	_, err = db.Storage.GetPendingDetection(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSavePendingDetectionRejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	detection := model.PaymentDetection{ID: "det-dup", Amount: 5_000, CreatedAt: time.Now().UTC()}
	require.NoError(t, db.Storage.SavePendingDetection(ctx, &detection))

	err := db.Storage.SavePendingDetection(ctx, &detection)
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)
}

func TestListPendingDetectionsOrdering(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	base := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	db.MustSaveDetection(model.PaymentDetection{ID: "det-b", Amount: 2, CreatedAt: base.Add(time.Minute)})
	db.MustSaveDetection(model.PaymentDetection{ID: "det-a", Amount: 1, CreatedAt: base})
	db.MustSaveDetection(model.PaymentDetection{ID: "det-c", Amount: 3, CreatedAt: base.Add(time.Minute)})

	detections, err := db.Storage.ListPendingDetections(ctx)
	require.NoError(t, err)
	require.Len(t, detections, 3)

	// Oldest first; same-instant rows fall back to id order.
	assert.Equal(t, "det-a", detections[0].ID)
	assert.Equal(t, "det-b", detections[1].ID)
	assert.Equal(t, "det-c", detections[2].ID)
}

func TestGetCandidateOrdersFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	db.MustSaveOrder(model.Order{ID: "O3", FinalTotal: 30, Status: model.OrderStatusWaitingPayment})
	db.MustSaveOrder(model.Order{ID: "O1", FinalTotal: 10})
	db.MustSaveOrder(model.Order{ID: "O2", FinalTotal: 20, Status: model.OrderStatusPaid})
	db.MustSaveOrder(model.Order{ID: "O4", FinalTotal: 40, Status: model.OrderStatusCancelled})

	orders, err := db.Storage.GetCandidateOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "O1", orders[0].ID)
	assert.Equal(t, "O3", orders[1].ID)
}

func TestGetCandidateGroupsFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	db.MustSaveGroup(model.PaymentGroup{ID: "G2", ExactPaymentAmount: 20, Status: model.GroupStatusPendingSelection})
	db.MustSaveGroup(model.PaymentGroup{ID: "G1", ExactPaymentAmount: 10})
	db.MustSaveGroup(model.PaymentGroup{ID: "G3", ExactPaymentAmount: 30, Status: model.GroupStatusPaid})

	groups, err := db.Storage.GetCandidateGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "G1", groups[0].ID)
	assert.Equal(t, "G2", groups[1].ID)
}

func TestGroupOrderIDsRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	db.MustSaveGroup(model.PaymentGroup{
		ID:                 "G1",
		ExactPaymentAmount: 50_000,
		OrderIDs:           []string{"O1", "O2", "O3"},
	})

	got, err := db.Storage.GetGroup(ctx, "G1")
	require.NoError(t, err)
	assert.Equal(t, []string{"O1", "O2", "O3"}, got.OrderIDs)
}

func TestSettingsUpsert(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	// SetupTestDB seeds the enabled full-auto preset.
	settings, err := db.Storage.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ModeFullAuto, settings.Mode)
	assert.True(t, settings.Enabled)
	assert.False(t, settings.TestMode)
	assert.Equal(t, model.DefaultAutoConfirmThreshold, settings.AutoConfirmThreshold)

	settings.TestMode = true
	settings.AutoConfirmThreshold = 95
	settings.AuditNearMisses = true
	require.NoError(t, db.Storage.SaveSettings(ctx, settings))

	got, err := db.Storage.GetSettings(ctx)
	require.NoError(t, err)
	assert.True(t, got.TestMode)
	assert.Equal(t, 95, got.AutoConfirmThreshold)
	assert.True(t, got.AuditNearMisses)
}

func TestSaveSettingsRejectsBadThreshold(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	settings := model.DefaultSettings()
	settings.AutoConfirmThreshold = 101
	assert.Error(t, db.Storage.SaveSettings(ctx, &settings))

	settings.AutoConfirmThreshold = -1
	assert.Error(t, db.Storage.SaveSettings(ctx, &settings))
}

func TestAuditLogAppendAndList(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	groupID := "G1"
	entries := []model.AuditLogEntry{
		{
			Timestamp:      base,
			DetectionID:    "det-1",
			OrderIDs:       []string{"O1"},
			DetectedAmount: 10_000,
			Confidence:     100,
			MatchReason:    model.ReasonOrderMatch,
			Status:         model.AuditStatusSuccess,
			ExecutedBy:     model.ExecutedByReconciler,
		},
		{
			Timestamp:      base.Add(time.Minute),
			DetectionID:    "det-2",
			OrderIDs:       []string{"O2", "O3"},
			PaymentGroupID: &groupID,
			DetectedAmount: 20_000,
			Confidence:     100,
			MatchReason:    model.ReasonGroupMatch,
			Status:         model.AuditStatusDryRun,
			ExecutedBy:     model.ExecutedByReconciler,
		},
	}
	for i := range entries {
		require.NoError(t, db.Storage.AppendAuditEntry(ctx, &entries[i]))
		assert.NotEmpty(t, entries[i].ID, "append assigns an id")
	}

	got, err := db.Storage.ListAuditEntries(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Newest first.
	assert.Equal(t, "det-2", got[0].DetectionID)
	assert.Equal(t, []string{"O2", "O3"}, got[0].OrderIDs)
	require.NotNil(t, got[0].PaymentGroupID)
	assert.Equal(t, "G1", *got[0].PaymentGroupID)
	assert.Equal(t, "det-1", got[1].DetectionID)
	assert.Nil(t, got[1].PaymentGroupID)

	limited, err := db.Storage.ListAuditEntries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "det-2", limited[0].DetectionID)
}

func TestSaveDetectionValidation(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	tests := []struct {
		name      string
		detection *model.PaymentDetection
	}{
		{name: "nil detection", detection: nil},
		{name: "missing id", detection: &model.PaymentDetection{Amount: 100}},
		{name: "zero amount", detection: &model.PaymentDetection{ID: "det-z", Amount: 0}},
		{name: "negative amount", detection: &model.PaymentDetection{ID: "det-n", Amount: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, db.Storage.SavePendingDetection(ctx, tt.detection))
		})
	}
}
