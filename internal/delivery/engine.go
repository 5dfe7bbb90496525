package delivery

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/sugils/Email-tracker-Backend/internal/campaign"
	"github.com/sugils/Email-tracker-Backend/internal/tracking"
)

// CampaignStore is the campaign-side persistence the engine depends on
type CampaignStore interface {
	GetCampaignByID(ctx context.Context, campaignID uuid.UUID) (*campaign.Campaign, error)
	GetCampaignTemplate(ctx context.Context, campaignID uuid.UUID) (*campaign.Template, error)
	Resolve(ctx context.Context, campaignID uuid.UUID) ([]*campaign.Recipient, error)
	CompleteCampaign(ctx context.Context, campaignID uuid.UUID) error
	TrySendLock(ctx context.Context, campaignID uuid.UUID) (bool, error)
	ReleaseSendLock(ctx context.Context, campaignID uuid.UUID) error
}

// TrackingStore is the tracking-side persistence the engine depends on
type TrackingStore interface {
	CreateRecord(ctx context.Context, campaignID, recipientID uuid.UUID, pixelID string) (*tracking.Record, error)
	MarkSent(ctx context.Context, trackingID uuid.UUID) error
	MarkFailed(ctx context.Context, trackingID uuid.UUID) error
}

// UserLookup resolves the owning account's email for test sends
type UserLookup interface {
	GetUserEmail(ctx context.Context, userID uuid.UUID) (string, error)
}

// TransportFactory opens a fresh transport session per send batch
type TransportFactory func() (Transport, error)

// Result aggregates the outcome of one send batch
type Result struct {
	SuccessCount int
	FailureCount int
}

// Engine orchestrates a campaign send: recipient resolution,
// personalization, content rewriting, tracking-record creation, transport
// handoff, and campaign finalization.
type Engine struct {
	campaigns CampaignStore
	trackings TrackingStore
	users     UserLookup
	rewriter  *Rewriter
	transport TransportFactory
	baseURL   string
}

// NewEngine creates a delivery engine
func NewEngine(campaigns CampaignStore, trackings TrackingStore, users UserLookup,
	rewriter *Rewriter, transport TransportFactory, baseURL string) *Engine {
	return &Engine{
		campaigns: campaigns,
		trackings: trackings,
		users:     users,
		rewriter:  rewriter,
		transport: transport,
		baseURL:   baseURL,
	}
}

// SendAsync launches a send off the request path. The caller gets an
// acknowledgment immediately; the batch runs on its own background context
// to completion and is not cancellable once started.
func (e *Engine) SendAsync(campaignID uuid.UUID, testMode bool) {
	go func() {
		if _, err := e.Send(context.Background(), campaignID, testMode); err != nil {
			log.Printf("[Delivery] campaign %s send failed: %v", campaignID, err)
		}
	}()
}

// Send runs a full campaign batch. A single recipient's transport failure
// never aborts the batch, and in non-test mode the campaign always reaches
// completed once the batch finishes, partial failures included.
func (e *Engine) Send(ctx context.Context, campaignID uuid.UUID, testMode bool) (*Result, error) {
	if !testMode {
		acquired, err := e.campaigns.TrySendLock(ctx, campaignID)
		if err != nil {
			return nil, fmt.Errorf("acquire send lock: %w", err)
		}
		if !acquired {
			return nil, fmt.Errorf("campaign %s send already in progress", campaignID)
		}
		defer e.campaigns.ReleaseSendLock(ctx, campaignID)
	}

	c, err := e.campaigns.GetCampaignByID(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load campaign: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("campaign %s not found", campaignID)
	}

	tmpl, err := e.campaigns.GetCampaignTemplate(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	if tmpl == nil {
		return nil, fmt.Errorf("campaign %s has no active template", campaignID)
	}

	recipients, err := e.resolveRecipients(ctx, c, testMode)
	if err != nil {
		return nil, err
	}

	t, err := e.transport()
	if err != nil {
		return nil, fmt.Errorf("create transport: %w", err)
	}
	if err := t.Open(); err != nil {
		return nil, fmt.Errorf("open transport: %w", err)
	}
	defer t.Close()

	result := &Result{}
	for _, r := range recipients {
		if err := e.sendOne(ctx, c, tmpl, r, testMode, t); err != nil {
			log.Printf("[Delivery] campaign %s recipient %s: %v", campaignID, r.Email, err)
			result.FailureCount++
			continue
		}
		result.SuccessCount++
	}

	if !testMode {
		if err := e.campaigns.CompleteCampaign(ctx, campaignID); err != nil {
			log.Printf("[Delivery] campaign %s completion update failed: %v", campaignID, err)
		}
	}

	log.Printf("[Delivery] campaign %s done: %d sent, %d failed (test=%v)",
		campaignID, result.SuccessCount, result.FailureCount, testMode)
	return result, nil
}

// resolveRecipients computes the batch's recipient set. Test mode bypasses
// resolution entirely and targets the owner's own address.
func (e *Engine) resolveRecipients(ctx context.Context, c *campaign.Campaign, testMode bool) ([]*campaign.Recipient, error) {
	if testMode {
		email, err := e.users.GetUserEmail(ctx, c.UserID)
		if err != nil {
			return nil, fmt.Errorf("resolve owner email: %w", err)
		}
		return []*campaign.Recipient{{ID: uuid.New(), UserID: c.UserID, Email: email}}, nil
	}
	return e.campaigns.Resolve(ctx, c.ID)
}

func (e *Engine) sendOne(ctx context.Context, c *campaign.Campaign, tmpl *campaign.Template,
	r *campaign.Recipient, testMode bool, t Transport) error {

	pixelID := uuid.New().String()

	// Record creation and the later status update are separate short
	// transactions; a crash between them leaves a recoverable sending row.
	var rec *tracking.Record
	if !testMode {
		var err error
		rec, err = e.trackings.CreateRecord(ctx, c.ID, r.ID, pixelID)
		if err != nil {
			return fmt.Errorf("create tracking record: %w", err)
		}
	}

	html := Personalize(tmpl.HTMLContent, r)
	text := Personalize(tmpl.TextContent, r)

	if !testMode {
		html = e.rewriter.Rewrite(ctx, html, rec.ID, pixelID, e.baseURL)
	}

	msg := &Message{
		FromName:  c.FromName,
		FromEmail: c.FromEmail,
		To:        r.Email,
		ReplyTo:   c.ReplyToEmail,
		Subject:   c.SubjectLine,
		HTMLBody:  html,
		TextBody:  text,
	}

	if err := t.Send(msg); err != nil {
		if rec != nil {
			if markErr := e.trackings.MarkFailed(ctx, rec.ID); markErr != nil {
				log.Printf("[Delivery] mark failed for %s: %v", rec.ID, markErr)
			}
		}
		return fmt.Errorf("transport: %w", err)
	}

	if rec != nil {
		if err := e.trackings.MarkSent(ctx, rec.ID); err != nil {
			log.Printf("[Delivery] mark sent for %s: %v", rec.ID, err)
		}
	}
	return nil
}

// Personalize substitutes profile placeholders with the recipient's fields.
// A missing field leaves its placeholder alone rather than erroring or
// blanking it.
func Personalize(content string, r *campaign.Recipient) string {
	if content == "" {
		return content
	}
	if r.FirstName != "" {
		content = strings.ReplaceAll(content, "{{first_name}}", r.FirstName)
	}
	if r.LastName != "" {
		content = strings.ReplaceAll(content, "{{last_name}}", r.LastName)
	}
	return content
}
