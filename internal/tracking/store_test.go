package tracking

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func TestCreateRecordStartsSending(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStore(db)
	campaignID := uuid.New()
	recipientID := uuid.New()

	mock.ExpectExec(`INSERT INTO email_tracking`).
		WithArgs(sqlmock.AnyArg(), campaignID, recipientID, StatusSending, "pixel-1",
			true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec, err := store.CreateRecord(context.Background(), campaignID, recipientID, "pixel-1")
	if err != nil {
		t.Fatalf("CreateRecord() error: %v", err)
	}
	if rec.EmailStatus != StatusSending {
		t.Errorf("EmailStatus = %q, want %q", rec.EmailStatus, StatusSending)
	}
	if rec.OpenCount != 0 || rec.ClickCount != 0 {
		t.Errorf("new record counters = %d/%d, want 0/0", rec.OpenCount, rec.ClickCount)
	}
}

func TestApplyOpenReportsMatch(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStore(db)

	mock.ExpectExec(`UPDATE email_tracking SET`).
		WithArgs("known-pixel").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE email_tracking SET`).
		WithArgs("unknown-pixel").
		WillReturnResult(sqlmock.NewResult(0, 0))

	matched, err := store.ApplyOpen(context.Background(), "known-pixel")
	if err != nil {
		t.Fatalf("ApplyOpen() error: %v", err)
	}
	if !matched {
		t.Error("ApplyOpen() = false for known pixel, want true")
	}

	matched, err = store.ApplyOpen(context.Background(), "unknown-pixel")
	if err != nil {
		t.Fatalf("ApplyOpen() error: %v", err)
	}
	if matched {
		t.Error("ApplyOpen() = true for unknown pixel, want false")
	}
}

func TestApplyReply(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStore(db)
	trackingID := uuid.New()

	// replied_at is guarded by COALESCE in the statement, so replaying the
	// signal is the same statement with no observable change.
	mock.ExpectExec(`replied_at = COALESCE\(replied_at, NOW\(\)\)`).
		WithArgs(StatusReplied, trackingID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`replied_at = COALESCE\(replied_at, NOW\(\)\)`).
		WithArgs(StatusReplied, trackingID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.ApplyReply(context.Background(), trackingID); err != nil {
		t.Fatalf("ApplyReply() error: %v", err)
	}
	if err := store.ApplyReply(context.Background(), trackingID); err != nil {
		t.Fatalf("ApplyReply() second call error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMarkSentAndFailed(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStore(db)
	trackingID := uuid.New()

	mock.ExpectExec(`sent_at = COALESCE\(sent_at, NOW\(\)\)`).
		WithArgs(StatusSent, trackingID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE email_tracking SET email_status`).
		WithArgs(StatusFailed, trackingID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.MarkSent(context.Background(), trackingID); err != nil {
		t.Fatalf("MarkSent() error: %v", err)
	}
	if err := store.MarkFailed(context.Background(), trackingID); err != nil {
		t.Fatalf("MarkFailed() error: %v", err)
	}
}
