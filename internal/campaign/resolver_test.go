package campaign

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return db, mock, func() { db.Close() }
}

func recipientRows(recipients ...*Recipient) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"recipient_id", "user_id", "group_id", "email", "first_name", "last_name",
		"custom_fields", "is_active", "created_at", "updated_at",
	})
	for _, r := range recipients {
		rows.AddRow(r.ID, r.UserID, r.GroupID, r.Email, r.FirstName, r.LastName,
			[]byte(`{}`), true, time.Now(), time.Now())
	}
	return rows
}

func TestResolveDeduplicates(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStore(db)
	campaignID := uuid.New()
	userID := uuid.New()

	// Two direct recipients; the group path contributes one new recipient.
	// The overlapping member is excluded by the NOT IN clause, so the mock
	// group result carries only the new one.
	direct1 := &Recipient{ID: uuid.New(), UserID: userID, Email: "a@example.com"}
	direct2 := &Recipient{ID: uuid.New(), UserID: userID, Email: "b@example.com"}
	groupOnly := &Recipient{ID: uuid.New(), UserID: userID, Email: "c@example.com"}

	mock.ExpectQuery(`JOIN campaign_recipients`).
		WithArgs(campaignID).
		WillReturnRows(recipientRows(direct1, direct2))
	mock.ExpectQuery(`JOIN campaign_groups`).
		WithArgs(campaignID).
		WillReturnRows(recipientRows(groupOnly))

	resolved, err := store.Resolve(context.Background(), campaignID)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(resolved) != 3 {
		t.Errorf("Resolve() returned %d recipients, want 3", len(resolved))
	}

	seen := make(map[uuid.UUID]bool)
	for _, r := range resolved {
		if seen[r.ID] {
			t.Errorf("recipient %s appears twice in resolved set", r.ID)
		}
		seen[r.ID] = true
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestResolveDropsGroupDuplicates(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStore(db)
	campaignID := uuid.New()
	userID := uuid.New()

	shared := &Recipient{ID: uuid.New(), UserID: userID, Email: "a@example.com"}

	// Defensive merge in Go: even if the store returned the same recipient
	// on both paths, the resolved set keeps one copy.
	mock.ExpectQuery(`JOIN campaign_recipients`).
		WithArgs(campaignID).
		WillReturnRows(recipientRows(shared))
	mock.ExpectQuery(`JOIN campaign_groups`).
		WithArgs(campaignID).
		WillReturnRows(recipientRows(shared))

	resolved, err := store.Resolve(context.Background(), campaignID)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(resolved) != 1 {
		t.Errorf("Resolve() returned %d recipients, want 1", len(resolved))
	}
}

func TestResolveEmptyIsValid(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStore(db)
	campaignID := uuid.New()

	mock.ExpectQuery(`JOIN campaign_recipients`).
		WithArgs(campaignID).
		WillReturnRows(recipientRows())
	mock.ExpectQuery(`JOIN campaign_groups`).
		WithArgs(campaignID).
		WillReturnRows(recipientRows())

	resolved, err := store.Resolve(context.Background(), campaignID)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(resolved) != 0 {
		t.Errorf("Resolve() returned %d recipients, want 0", len(resolved))
	}
}
