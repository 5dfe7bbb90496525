package campaign

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Campaign status constants
const (
	StatusDraft     = "draft"
	StatusScheduled = "scheduled"
	StatusSending   = "sending"
	StatusCompleted = "completed"
)

// JSON helper type for JSONB fields
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(b, j)
}

// Group represents a named collection of recipients owned by one user
type Group struct {
	ID             uuid.UUID `json:"group_id" db:"group_id"`
	UserID         uuid.UUID `json:"user_id" db:"user_id"`
	Name           string    `json:"group_name" db:"group_name"`
	Description    string    `json:"description" db:"description"`
	RecipientCount int       `json:"recipient_count" db:"recipient_count"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Recipient represents an email recipient owned by one user
type Recipient struct {
	ID           uuid.UUID  `json:"recipient_id" db:"recipient_id"`
	UserID       uuid.UUID  `json:"user_id" db:"user_id"`
	GroupID      *uuid.UUID `json:"group_id" db:"group_id"`
	Email        string     `json:"email" db:"email"`
	FirstName    string     `json:"first_name" db:"first_name"`
	LastName     string     `json:"last_name" db:"last_name"`
	CustomFields JSON       `json:"custom_fields" db:"custom_fields"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// Template holds the message bodies attached to a campaign
type Template struct {
	ID          uuid.UUID `json:"template_id" db:"template_id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	Name        string    `json:"template_name" db:"template_name"`
	Subject     string    `json:"subject" db:"subject"`
	HTMLContent string    `json:"html_content" db:"html_content"`
	TextContent string    `json:"text_content" db:"text_content"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Campaign represents one outbound messaging effort
type Campaign struct {
	ID           uuid.UUID  `json:"campaign_id" db:"campaign_id"`
	UserID       uuid.UUID  `json:"user_id" db:"user_id"`
	Name         string     `json:"campaign_name" db:"campaign_name"`
	SubjectLine  string     `json:"subject_line" db:"subject_line"`
	FromName     string     `json:"from_name" db:"from_name"`
	FromEmail    string     `json:"from_email" db:"from_email"`
	ReplyToEmail string     `json:"reply_to_email" db:"reply_to_email"`
	Status       string     `json:"status" db:"status"`
	ScheduledAt  *time.Time `json:"scheduled_at" db:"scheduled_at"`
	SentAt       *time.Time `json:"sent_at" db:"sent_at"`
	TemplateID   *uuid.UUID `json:"template_id" db:"template_id"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// CanSend reports whether a send may start from the campaign's current status.
func (c *Campaign) CanSend() bool {
	return c.Status == StatusDraft || c.Status == StatusScheduled
}

// CampaignCounts carries per-campaign engagement totals for list views
type CampaignCounts struct {
	Recipients int `json:"recipient_count"`
	Sent       int `json:"sent_count"`
	Opened     int `json:"opened_count"`
	Clicked    int `json:"clicked_count"`
	Replied    int `json:"replied_count"`
}
