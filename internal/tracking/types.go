package tracking

import (
	"time"

	"github.com/google/uuid"
)

// Email status constants, ordered by precedence. A signal never moves a
// record backwards: engagement statuses override delivery statuses, and
// replied is terminal.
const (
	StatusPending = "pending"
	StatusSending = "sending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusOpened  = "opened"
	StatusClicked = "clicked"
	StatusReplied = "replied"
)

// FallbackRedirectURL is where unresolvable click links land. The visitor
// followed a dead tracking link; sending them somewhere neutral beats an
// error page.
const FallbackRedirectURL = "https://www.google.com"

// Record is the per-(campaign, recipient) engagement ledger
type Record struct {
	ID            uuid.UUID  `json:"tracking_id" db:"tracking_id"`
	CampaignID    uuid.UUID  `json:"campaign_id" db:"campaign_id"`
	RecipientID   uuid.UUID  `json:"recipient_id" db:"recipient_id"`
	EmailStatus   string     `json:"email_status" db:"email_status"`
	PixelID       string     `json:"tracking_pixel_id" db:"tracking_pixel_id"`
	SentAt        *time.Time `json:"sent_at" db:"sent_at"`
	DeliveredAt   *time.Time `json:"delivered_at" db:"delivered_at"`
	OpenedAt      *time.Time `json:"opened_at" db:"opened_at"`
	ClickedAt     *time.Time `json:"clicked_at" db:"clicked_at"`
	RepliedAt     *time.Time `json:"replied_at" db:"replied_at"`
	BouncedAt     *time.Time `json:"bounced_at" db:"bounced_at"`
	OpenCount     int        `json:"open_count" db:"open_count"`
	ClickCount    int        `json:"click_count" db:"click_count"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// Link maps one rewritten hyperlink back to its original destination,
// scoped to a single tracking record
type Link struct {
	ID             uuid.UUID  `json:"url_tracking_id" db:"url_tracking_id"`
	TrackingID     uuid.UUID  `json:"tracking_id" db:"tracking_id"`
	OriginalURL    string     `json:"original_url" db:"original_url"`
	TrackingURL    string     `json:"tracking_url" db:"tracking_url"`
	ClickCount     int        `json:"click_count" db:"click_count"`
	FirstClickedAt *time.Time `json:"first_clicked_at" db:"first_clicked_at"`
	LastClickedAt  *time.Time `json:"last_clicked_at" db:"last_clicked_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}
