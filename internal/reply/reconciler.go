package reply

import (
	"bytes"
	"context"
	"log"
	"mime"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sugils/Email-tracker-Backend/internal/tracking"
)

// replyPrefix is matched case-insensitively at the start of a subject
const replyPrefix = "re: "

// CampaignSource supplies the completed campaigns replies can match
type CampaignSource interface {
	GetCompletedCampaignSubjects(ctx context.Context) (map[uuid.UUID]string, []uuid.UUID, error)
}

// TrackingSink receives reply signals for matched recipients
type TrackingSink interface {
	GetRecordByRecipientEmail(ctx context.Context, campaignID uuid.UUID, email string) (*tracking.Record, error)
	ApplyReply(ctx context.Context, trackingID uuid.UUID) error
}

// ReconcilerConfig holds reconciler settings
type ReconcilerConfig struct {
	Interval time.Duration // how often the mailbox is polled
	Window   time.Duration // trailing receive window searched per run
}

// DefaultReconcilerConfig returns default configuration
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		Interval: time.Minute,
		Window:   24 * time.Hour,
	}
}

// Reconciler polls the mailbox on a fixed interval and advances tracking
// records to replied when a message matches a completed campaign's subject
// and one of its recipients.
type Reconciler struct {
	dial      MailboxDialer
	campaigns CampaignSource
	trackings TrackingSink

	interval time.Duration
	window   time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	running bool
}

// NewReconciler creates a reply reconciler
func NewReconciler(dial MailboxDialer, campaigns CampaignSource, trackings TrackingSink, cfg ReconcilerConfig) *Reconciler {
	if cfg.Interval == 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Window == 0 {
		cfg.Window = 24 * time.Hour
	}
	return &Reconciler{
		dial:      dial,
		campaigns: campaigns,
		trackings: trackings,
		interval:  cfg.Interval,
		window:    cfg.Window,
	}
}

// Start begins the background polling goroutine
func (rc *Reconciler) Start() {
	rc.mu.Lock()
	if rc.running {
		rc.mu.Unlock()
		return
	}
	rc.running = true
	rc.ctx, rc.cancel = context.WithCancel(context.Background())
	rc.mu.Unlock()

	log.Printf("[ReplyCheck] Starting with interval=%s window=%s", rc.interval, rc.window)

	rc.wg.Add(1)
	go rc.loop()
}

// Stop gracefully stops the reconciler and waits for an in-flight run
func (rc *Reconciler) Stop() {
	rc.mu.Lock()
	if !rc.running {
		rc.mu.Unlock()
		return
	}
	rc.running = false
	rc.cancel()
	rc.mu.Unlock()

	log.Println("[ReplyCheck] Stopping...")
	rc.wg.Wait()
	log.Println("[ReplyCheck] Stopped")
}

// IsRunning returns whether the reconciler is currently running
func (rc *Reconciler) IsRunning() bool {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.running
}

func (rc *Reconciler) loop() {
	defer rc.wg.Done()

	ticker := time.NewTicker(rc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-rc.ctx.Done():
			return
		case <-ticker.C:
			if err := rc.CheckOnce(rc.ctx); err != nil {
				// A mailbox failure aborts this run; the next tick retries
				log.Printf("[ReplyCheck] run failed: %v", err)
			}
		}
	}
}

// CheckOnce performs one reconciliation run against the mailbox
func (rc *Reconciler) CheckOnce(ctx context.Context) error {
	subjects, order, err := rc.campaigns.GetCompletedCampaignSubjects(ctx)
	if err != nil {
		return err
	}
	if len(order) == 0 {
		return nil
	}

	mb, err := rc.dial()
	if err != nil {
		return err
	}
	defer mb.Close()

	ids, err := mb.Search(time.Now().Add(-rc.window))
	if err != nil {
		return err
	}

	for _, id := range ids {
		raw, err := mb.Fetch(id)
		if err != nil {
			log.Printf("[ReplyCheck] fetch %s failed: %v", id, err)
			continue
		}
		if err := rc.processMessage(ctx, raw, subjects, order); err != nil {
			log.Printf("[ReplyCheck] message %s skipped: %v", id, err)
		}
	}
	return nil
}

// processMessage applies the reply signal for one mailbox message if its
// subject and sender match a completed campaign's recipient. Non-matching
// messages are not errors; they are simply ignored.
func (rc *Reconciler) processMessage(ctx context.Context, raw []byte, subjects map[uuid.UUID]string, order []uuid.UUID) error {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return err
	}

	stripped, ok := StripReplyPrefix(decodeHeader(msg.Header.Get("Subject")))
	if !ok {
		return nil
	}

	campaignID, matched := matchSubject(stripped, subjects, order)
	if !matched {
		return nil
	}

	sender := ExtractAddress(msg.Header.Get("From"))
	if sender == "" {
		return nil
	}

	rec, err := rc.trackings.GetRecordByRecipientEmail(ctx, campaignID, sender)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}
	if rec.RepliedAt != nil {
		// Already reconciled; replaying the signal is a no-op anyway
		return nil
	}

	if err := rc.trackings.ApplyReply(ctx, rec.ID); err != nil {
		return err
	}
	log.Printf("[ReplyCheck] REPLY campaign=%s sender=%s", campaignID, sender)
	return nil
}

// matchSubject finds the first completed campaign whose subject equals the
// stripped reply subject, case-insensitively. Campaigns sharing a subject
// line are ambiguous; the newest completed one wins.
func matchSubject(subject string, subjects map[uuid.UUID]string, order []uuid.UUID) (uuid.UUID, bool) {
	needle := strings.ToLower(strings.TrimSpace(subject))
	for _, id := range order {
		if strings.ToLower(strings.TrimSpace(subjects[id])) == needle {
			return id, true
		}
	}
	return uuid.Nil, false
}

// StripReplyPrefix removes a leading "Re: " (any case) from a subject.
// The second return reports whether the prefix was present.
func StripReplyPrefix(subject string) (string, bool) {
	trimmed := strings.TrimSpace(subject)
	if len(trimmed) < len(replyPrefix) {
		return subject, false
	}
	if !strings.EqualFold(trimmed[:len(replyPrefix)], replyPrefix) {
		return subject, false
	}
	return strings.TrimSpace(trimmed[len(replyPrefix):]), true
}

// ExtractAddress pulls the bare address out of a "Display Name <addr>"
// header, falling back to the raw value when it does not parse.
func ExtractAddress(from string) string {
	if from == "" {
		return ""
	}
	if addr, err := mail.ParseAddress(from); err == nil {
		return addr.Address
	}
	return strings.TrimSpace(from)
}

func decodeHeader(v string) string {
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(v)
	if err != nil {
		return v
	}
	return decoded
}
