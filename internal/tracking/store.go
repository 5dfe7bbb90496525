package tracking

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Store provides database operations for tracking records. All signal
// merges are single SQL statements over current persisted state: signals
// arrive out of order relative to send completion, so nothing here assumes
// a prior status, and counters are incremented in SQL to survive
// concurrent hits on the same record.
type Store struct {
	db *sql.DB
}

// NewStore creates a new tracking store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateRecord inserts a tracking record in sending state
func (s *Store) CreateRecord(ctx context.Context, campaignID, recipientID uuid.UUID, pixelID string) (*Record, error) {
	rec := &Record{
		ID:          uuid.New(),
		CampaignID:  campaignID,
		RecipientID: recipientID,
		EmailStatus: StatusSending,
		PixelID:     pixelID,
		IsActive:    true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	query := `INSERT INTO email_tracking (tracking_id, campaign_id, recipient_id, email_status,
		tracking_pixel_id, open_count, click_count, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, 0, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query, rec.ID, rec.CampaignID, rec.RecipientID,
		rec.EmailStatus, rec.PixelID, rec.IsActive, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetRecordByPixel resolves a tracking record from its opaque pixel id
func (s *Store) GetRecordByPixel(ctx context.Context, pixelID string) (*Record, error) {
	query := `SELECT tracking_id, campaign_id, recipient_id, email_status, tracking_pixel_id,
		sent_at, delivered_at, opened_at, clicked_at, replied_at, bounced_at,
		open_count, click_count, is_active, created_at, updated_at
		FROM email_tracking WHERE tracking_pixel_id = $1 AND is_active = TRUE`

	return s.scanRecord(s.db.QueryRowContext(ctx, query, pixelID))
}

// GetRecord retrieves a tracking record by id
func (s *Store) GetRecord(ctx context.Context, trackingID uuid.UUID) (*Record, error) {
	query := `SELECT tracking_id, campaign_id, recipient_id, email_status, tracking_pixel_id,
		sent_at, delivered_at, opened_at, clicked_at, replied_at, bounced_at,
		open_count, click_count, is_active, created_at, updated_at
		FROM email_tracking WHERE tracking_id = $1 AND is_active = TRUE`

	return s.scanRecord(s.db.QueryRowContext(ctx, query, trackingID))
}

// GetRecordForRecipient retrieves the tracking record for one recipient of a campaign
func (s *Store) GetRecordForRecipient(ctx context.Context, campaignID, recipientID uuid.UUID) (*Record, error) {
	query := `SELECT tracking_id, campaign_id, recipient_id, email_status, tracking_pixel_id,
		sent_at, delivered_at, opened_at, clicked_at, replied_at, bounced_at,
		open_count, click_count, is_active, created_at, updated_at
		FROM email_tracking WHERE campaign_id = $1 AND recipient_id = $2 AND is_active = TRUE`

	return s.scanRecord(s.db.QueryRowContext(ctx, query, campaignID, recipientID))
}

func (s *Store) scanRecord(row *sql.Row) (*Record, error) {
	rec := &Record{}
	err := row.Scan(&rec.ID, &rec.CampaignID, &rec.RecipientID, &rec.EmailStatus, &rec.PixelID,
		&rec.SentAt, &rec.DeliveredAt, &rec.OpenedAt, &rec.ClickedAt, &rec.RepliedAt, &rec.BouncedAt,
		&rec.OpenCount, &rec.ClickCount, &rec.IsActive, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// MarkSent records a successful transport handoff
func (s *Store) MarkSent(ctx context.Context, trackingID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE email_tracking SET email_status = $1, sent_at = COALESCE(sent_at, NOW()), updated_at = NOW()
		 WHERE tracking_id = $2`,
		StatusSent, trackingID)
	return err
}

// MarkFailed records a per-recipient transport failure
func (s *Store) MarkFailed(ctx context.Context, trackingID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE email_tracking SET email_status = $1, updated_at = NOW() WHERE tracking_id = $2`,
		StatusFailed, trackingID)
	return err
}

// ApplyOpen merges an open signal into the record identified by pixel id.
// Any not-yet-engaged status upgrades to opened; opened_at is first-write-
// wins; the counter counts every probe hit, including redundant ones.
// Returns false when the pixel id resolves to nothing.
func (s *Store) ApplyOpen(ctx context.Context, pixelID string) (bool, error) {
	query := `UPDATE email_tracking SET
		email_status = CASE WHEN email_status IN ('sending', 'sent', 'pending', 'failed')
			THEN 'opened' ELSE email_status END,
		opened_at = COALESCE(opened_at, NOW()),
		open_count = open_count + 1,
		updated_at = NOW()
		WHERE tracking_pixel_id = $1 AND is_active = TRUE`

	res, err := s.db.ExecContext(ctx, query, pixelID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetLink retrieves a link-tracking record scoped to its parent tracking record
func (s *Store) GetLink(ctx context.Context, trackingID, linkID uuid.UUID) (*Link, error) {
	query := `SELECT url_tracking_id, tracking_id, original_url, tracking_url, click_count,
		first_clicked_at, last_clicked_at, created_at
		FROM url_tracking WHERE url_tracking_id = $1 AND tracking_id = $2`

	l := &Link{}
	err := s.db.QueryRowContext(ctx, query, linkID, trackingID).Scan(
		&l.ID, &l.TrackingID, &l.OriginalURL, &l.TrackingURL, &l.ClickCount,
		&l.FirstClickedAt, &l.LastClickedAt, &l.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// CreateLink persists a link-tracking record produced by the rewriter
func (s *Store) CreateLink(ctx context.Context, l *Link) error {
	l.CreatedAt = time.Now()

	query := `INSERT INTO url_tracking (url_tracking_id, tracking_id, original_url, tracking_url,
		click_count, created_at)
		VALUES ($1, $2, $3, $4, 0, $5)`

	_, err := s.db.ExecContext(ctx, query, l.ID, l.TrackingID, l.OriginalURL, l.TrackingURL, l.CreatedAt)
	return err
}

// ApplyClick merges a click signal: the link's counters and timestamps
// first, then the parent record. A click implies an open even when no open
// probe ever fired, so opened_at and the open counter are forced to
// reflect at least one open. Status moves to clicked unless the record
// already reached replied.
func (s *Store) ApplyClick(ctx context.Context, trackingID, linkID uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE url_tracking SET
			click_count = click_count + 1,
			first_clicked_at = COALESCE(first_clicked_at, NOW()),
			last_clicked_at = NOW()
		 WHERE url_tracking_id = $1`,
		linkID); err != nil {
		return err
	}

	query := `UPDATE email_tracking SET
		email_status = CASE WHEN email_status != 'replied' THEN 'clicked' ELSE email_status END,
		opened_at = COALESCE(opened_at, NOW()),
		open_count = CASE WHEN open_count = 0 THEN 1 ELSE open_count END,
		clicked_at = COALESCE(clicked_at, NOW()),
		click_count = click_count + 1,
		updated_at = NOW()
		WHERE tracking_id = $1`

	_, err := s.db.ExecContext(ctx, query, trackingID)
	return err
}

// ApplyReply marks a record replied. Idempotent: replaying the signal on an
// already-replied record changes nothing.
func (s *Store) ApplyReply(ctx context.Context, trackingID uuid.UUID) error {
	query := `UPDATE email_tracking SET
		email_status = $1,
		replied_at = COALESCE(replied_at, NOW()),
		updated_at = NOW()
		WHERE tracking_id = $2`

	_, err := s.db.ExecContext(ctx, query, StatusReplied, trackingID)
	return err
}

// GetRecordByRecipientEmail finds the tracking record for the recipient of
// a campaign with exactly the given address, for reply matching
func (s *Store) GetRecordByRecipientEmail(ctx context.Context, campaignID uuid.UUID, email string) (*Record, error) {
	query := `SELECT t.tracking_id, t.campaign_id, t.recipient_id, t.email_status, t.tracking_pixel_id,
		t.sent_at, t.delivered_at, t.opened_at, t.clicked_at, t.replied_at, t.bounced_at,
		t.open_count, t.click_count, t.is_active, t.created_at, t.updated_at
		FROM email_tracking t
		JOIN recipients r ON r.recipient_id = t.recipient_id
		WHERE t.campaign_id = $1 AND LOWER(r.email) = LOWER($2) AND t.is_active = TRUE`

	return s.scanRecord(s.db.QueryRowContext(ctx, query, campaignID, email))
}

// GetCampaignRecords lists tracking records for a campaign, for detail views
func (s *Store) GetCampaignRecords(ctx context.Context, campaignID uuid.UUID) ([]*Record, error) {
	query := `SELECT tracking_id, campaign_id, recipient_id, email_status, tracking_pixel_id,
		sent_at, delivered_at, opened_at, clicked_at, replied_at, bounced_at,
		open_count, click_count, is_active, created_at, updated_at
		FROM email_tracking WHERE campaign_id = $1 AND is_active = TRUE ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec := &Record{}
		err := rows.Scan(&rec.ID, &rec.CampaignID, &rec.RecipientID, &rec.EmailStatus, &rec.PixelID,
			&rec.SentAt, &rec.DeliveredAt, &rec.OpenedAt, &rec.ClickedAt, &rec.RepliedAt, &rec.BouncedAt,
			&rec.OpenCount, &rec.ClickCount, &rec.IsActive, &rec.CreatedAt, &rec.UpdatedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
