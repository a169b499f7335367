// Package testutil provides test helpers shared across packages.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/catalog-steward/internal/model"
	"github.com/Veraticus/catalog-steward/internal/storage"
)

// TestDB is an in-memory audit store with helpers for seeding history.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
	clock   time.Time
}

// SetupTestDB creates a migrated in-memory database that is closed when the
// test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t).
//		WithApproved("PAPER TOWEL ROLL", "Sysco", "Food Purchases", "5000")
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		t:       t,
		clock:   time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
	}
}

// WithRecord appends a record, stamping it one second after the previous one
// so history order is deterministic.
func (db *TestDB) WithRecord(record model.AuditRecord) *TestDB {
	db.t.Helper()

	db.clock = db.clock.Add(time.Second)
	if record.Timestamp.IsZero() {
		record.Timestamp = db.clock
	}
	if err := db.Storage.Append(context.Background(), record); err != nil {
		db.t.Fatalf("failed to seed audit record %q: %v", record.Item, err)
	}
	return db
}

// WithApproved appends an APPROVED record for an item.
func (db *TestDB) WithApproved(item, vendor, category, ledgerCode string) *TestDB {
	db.t.Helper()
	return db.WithRecord(model.AuditRecord{
		Item:       item,
		Vendor:     vendor,
		Category:   category,
		LedgerCode: ledgerCode,
		Status:     model.StatusApproved,
	})
}
