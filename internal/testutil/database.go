// Package testutil provides test fixtures for the reconciliation engine:
// in-memory databases, seeded candidates, and settings presets.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/the-funds-must-clear/internal/model"
	"github.com/Veraticus/the-funds-must-clear/internal/service"
	"github.com/Veraticus/the-funds-must-clear/internal/storage"
)

// TestDB wraps an in-memory storage instance with seeding helpers.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
}

// SetupTestDB creates a migrated in-memory database with automation fully
// enabled (full-auto, not test mode, default threshold). Tests that need a
// closed gate override the settings afterward.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	settings := model.DefaultSettings()
	settings.Enabled = true
	settings.TestMode = false
	if err := store.SaveSettings(ctx, &settings); err != nil {
		t.Fatalf("failed to seed settings: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// MustSaveSettings overwrites the settings singleton or fails the test.
func (db *TestDB) MustSaveSettings(settings model.ReconciliationSettings) {
	db.t.Helper()
	if err := db.Storage.SaveSettings(context.Background(), &settings); err != nil {
		db.t.Fatalf("failed to save settings: %v", err)
	}
}

// MustSaveOrder seeds an order or fails the test.
func (db *TestDB) MustSaveOrder(order model.Order) {
	db.t.Helper()
	if order.Status == "" {
		order.Status = model.OrderStatusPending
	}
	if err := db.Storage.SaveOrder(context.Background(), &order); err != nil {
		db.t.Fatalf("failed to save order %s: %v", order.ID, err)
	}
}

// MustSaveGroup seeds a payment group or fails the test.
func (db *TestDB) MustSaveGroup(group model.PaymentGroup) {
	db.t.Helper()
	if group.Status == "" {
		group.Status = model.GroupStatusPending
	}
	if err := db.Storage.SaveGroup(context.Background(), &group); err != nil {
		db.t.Fatalf("failed to save group %s: %v", group.ID, err)
	}
}

// MustSaveDetection seeds a pending detection or fails the test.
func (db *TestDB) MustSaveDetection(detection model.PaymentDetection) {
	db.t.Helper()
	if detection.CreatedAt.IsZero() {
		detection.CreatedAt = time.Now().UTC()
	}
	if err := db.Storage.SavePendingDetection(context.Background(), &detection); err != nil {
		db.t.Fatalf("failed to save detection %s: %v", detection.ID, err)
	}
}
