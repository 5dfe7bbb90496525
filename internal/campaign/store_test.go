package campaign

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func TestDeleteGroupUngroupsRecipients(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStore(db)
	userID := uuid.New()
	groupID := uuid.New()

	// Recipients lose their group reference before the group is soft-deleted,
	// inside one transaction.
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE recipients SET group_id = NULL`).
		WithArgs(groupID, userID).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`UPDATE recipient_groups SET is_active = FALSE`).
		WithArgs(groupID, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := store.DeleteGroup(context.Background(), userID, groupID); err != nil {
		t.Fatalf("DeleteGroup() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDeleteRecipientDeactivatesCampaignLinks(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStore(db)
	userID := uuid.New()
	recipientID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE recipients SET is_active = FALSE`).
		WithArgs(recipientID, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE campaign_recipients SET is_active = FALSE`).
		WithArgs(recipientID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	if err := store.DeleteRecipient(context.Background(), userID, recipientID); err != nil {
		t.Fatalf("DeleteRecipient() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGetCampaignNotFound(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStore(db)
	userID := uuid.New()
	campaignID := uuid.New()

	mock.ExpectQuery(`FROM email_campaigns WHERE campaign_id`).
		WithArgs(campaignID, userID).
		WillReturnRows(sqlmock.NewRows([]string{"campaign_id"}))

	c, err := store.GetCampaign(context.Background(), userID, campaignID)
	if err != nil {
		t.Fatalf("GetCampaign() error: %v", err)
	}
	if c != nil {
		t.Errorf("GetCampaign() = %v, want nil for missing row", c)
	}
}

func TestCanSend(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{StatusDraft, true},
		{StatusScheduled, true},
		{StatusSending, false},
		{StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			c := &Campaign{Status: tt.status}
			if got := c.CanSend(); got != tt.want {
				t.Errorf("CanSend() with status %q = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestAttachRecipientsEmptyIsNoop(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStore(db)
	if err := store.AttachRecipients(context.Background(), uuid.New(), nil); err != nil {
		t.Fatalf("AttachRecipients() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected database activity: %v", err)
	}
}
