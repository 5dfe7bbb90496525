// Package feed turns new items from a configured content feed into draft
// campaigns ready for review and sending.
package feed

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"github.com/sugils/Email-tracker-Backend/internal/campaign"
)

// Store is the persistence the importer needs: template and campaign
// creation plus a dedup check on previously imported items
type Store interface {
	CreateTemplate(ctx context.Context, t *campaign.Template) error
	CreateCampaign(ctx context.Context, c *campaign.Campaign) error
	HasImportedItem(ctx context.Context, userID uuid.UUID, guid string) (bool, error)
	RecordImportedItem(ctx context.Context, userID uuid.UUID, guid string) error
}

// ImporterConfig holds feed importer settings
type ImporterConfig struct {
	FeedURL  string
	UserID   uuid.UUID // account that owns the generated drafts
	Interval time.Duration
	MaxItems int // newest items considered per poll
}

// Importer polls one feed and drafts a campaign per unseen item
type Importer struct {
	store  Store
	parser *gofeed.Parser
	cfg    ImporterConfig

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	running bool
}

// NewImporter creates a feed importer
func NewImporter(store Store, cfg ImporterConfig) *Importer {
	if cfg.Interval == 0 {
		cfg.Interval = time.Hour
	}
	if cfg.MaxItems == 0 {
		cfg.MaxItems = 5
	}
	parser := gofeed.NewParser()
	parser.Client = newFetchClient()
	return &Importer{
		store:  store,
		parser: parser,
		cfg:    cfg,
	}
}

// Start begins the background polling goroutine
func (im *Importer) Start() {
	im.mu.Lock()
	if im.running {
		im.mu.Unlock()
		return
	}
	im.running = true
	im.ctx, im.cancel = context.WithCancel(context.Background())
	im.mu.Unlock()

	log.Printf("[FeedImport] Starting with url=%s interval=%s", im.cfg.FeedURL, im.cfg.Interval)

	im.wg.Add(1)
	go im.loop()
}

// Stop gracefully stops the importer
func (im *Importer) Stop() {
	im.mu.Lock()
	if !im.running {
		im.mu.Unlock()
		return
	}
	im.running = false
	im.cancel()
	im.mu.Unlock()

	log.Println("[FeedImport] Stopping...")
	im.wg.Wait()
	log.Println("[FeedImport] Stopped")
}

// IsRunning returns whether the importer is currently running
func (im *Importer) IsRunning() bool {
	im.mu.RLock()
	defer im.mu.RUnlock()
	return im.running
}

func (im *Importer) loop() {
	defer im.wg.Done()

	ticker := time.NewTicker(im.cfg.Interval)
	defer ticker.Stop()

	if n, err := im.ImportOnce(im.ctx); err != nil {
		log.Printf("[FeedImport] initial poll failed: %v", err)
	} else if n > 0 {
		log.Printf("[FeedImport] drafted %d campaigns", n)
	}

	for {
		select {
		case <-im.ctx.Done():
			return
		case <-ticker.C:
			if n, err := im.ImportOnce(im.ctx); err != nil {
				log.Printf("[FeedImport] poll failed: %v", err)
			} else if n > 0 {
				log.Printf("[FeedImport] drafted %d campaigns", n)
			}
		}
	}
}

// ImportOnce polls the feed once and returns how many drafts were created.
// Per-item errors are logged and skipped.
func (im *Importer) ImportOnce(ctx context.Context) (int, error) {
	feed, err := im.parser.ParseURLWithContext(im.cfg.FeedURL, ctx)
	if err != nil {
		return 0, fmt.Errorf("parse feed: %w", err)
	}

	created := 0
	for i, item := range feed.Items {
		if i >= im.cfg.MaxItems {
			break
		}
		guid := item.GUID
		if guid == "" {
			guid = item.Link
		}
		if guid == "" {
			continue
		}

		seen, err := im.store.HasImportedItem(ctx, im.cfg.UserID, guid)
		if err != nil {
			log.Printf("[FeedImport] dedup check for %q failed: %v", guid, err)
			continue
		}
		if seen {
			continue
		}

		if err := im.draftCampaign(ctx, feed, item, guid); err != nil {
			log.Printf("[FeedImport] item %q skipped: %v", item.Title, err)
			continue
		}
		created++
	}
	return created, nil
}

func (im *Importer) draftCampaign(ctx context.Context, src *gofeed.Feed, item *gofeed.Item, guid string) error {
	body := item.Content
	if body == "" {
		body = item.Description
	}

	tmpl := &campaign.Template{
		UserID:      im.cfg.UserID,
		Name:        fmt.Sprintf("Feed: %s", item.Title),
		Subject:     item.Title,
		HTMLContent: renderItemHTML(src, item, body),
		TextContent: item.Description,
	}
	if err := im.store.CreateTemplate(ctx, tmpl); err != nil {
		return fmt.Errorf("create template: %w", err)
	}

	c := &campaign.Campaign{
		UserID:      im.cfg.UserID,
		Name:        fmt.Sprintf("Feed draft: %s", item.Title),
		SubjectLine: item.Title,
		Status:      campaign.StatusDraft,
		TemplateID:  &tmpl.ID,
	}
	if err := im.store.CreateCampaign(ctx, c); err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}

	return im.store.RecordImportedItem(ctx, im.cfg.UserID, guid)
}

func renderItemHTML(src *gofeed.Feed, item *gofeed.Item, body string) string {
	return fmt.Sprintf(`<html><body>
<h1>%s</h1>
%s
<p><a href="%s">Read more</a></p>
<p style="color:#888;font-size:12px;">From %s</p>
</body></html>`, item.Title, body, item.Link, src.Title)
}
