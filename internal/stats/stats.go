// Package stats computes dashboard aggregates over campaigns and tracking
// records, with a short-lived Redis cache in front of the heavier queries.
package stats

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CampaignStats carries one campaign's engagement totals and rates
type CampaignStats struct {
	CampaignID   uuid.UUID  `json:"campaign_id"`
	CampaignName string     `json:"campaign_name"`
	Status       string     `json:"status"`
	SentAt       *time.Time `json:"sent_at"`
	TotalSent    int        `json:"total_sent"`
	TotalOpened  int        `json:"total_opened"`
	TotalClicked int        `json:"total_clicked"`
	TotalReplied int        `json:"total_replied"`
	OpenRate     float64    `json:"open_rate"`
	ClickRate    float64    `json:"click_rate"`
	ReplyRate    float64    `json:"reply_rate"`
}

// Dashboard is the full stats payload for one user
type Dashboard struct {
	TotalCampaigns  int             `json:"total_campaigns"`
	TotalRecipients int             `json:"total_recipients"`
	TotalGroups     int             `json:"total_groups"`
	TotalTemplates  int             `json:"total_templates"`
	Campaigns       []CampaignStats `json:"campaigns"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

// Service computes dashboard stats, serving cached copies when fresh
type Service struct {
	db    *sql.DB
	cache *redis.Client
	ttl   time.Duration
}

// NewService creates a stats service. cache may be nil; stats then compute
// on every request.
func NewService(db *sql.DB, cache *redis.Client, ttl time.Duration) *Service {
	return &Service{db: db, cache: cache, ttl: ttl}
}

func cacheKey(userID uuid.UUID) string {
	return "dashboard:stats:" + userID.String()
}

// GetDashboard returns the user's dashboard, from cache when available
func (s *Service) GetDashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, cacheKey(userID)).Bytes(); err == nil {
			var d Dashboard
			if err := json.Unmarshal(raw, &d); err == nil {
				return &d, nil
			}
		}
	}

	d, err := s.compute(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(d); err == nil {
			if err := s.cache.Set(ctx, cacheKey(userID), raw, s.ttl).Err(); err != nil {
				log.Printf("[Stats] cache write failed for %s: %v", userID, err)
			}
		}
	}
	return d, nil
}

// Invalidate drops the cached dashboard for a user, for use after sends
func (s *Service) Invalidate(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cacheKey(userID)).Err(); err != nil {
		log.Printf("[Stats] cache invalidation failed for %s: %v", userID, err)
	}
}

func (s *Service) compute(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	d := &Dashboard{GeneratedAt: time.Now()}

	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM email_campaigns WHERE user_id = $1 AND is_active = TRUE),
		(SELECT COUNT(*) FROM recipients WHERE user_id = $1 AND is_active = TRUE),
		(SELECT COUNT(*) FROM recipient_groups WHERE user_id = $1 AND is_active = TRUE),
		(SELECT COUNT(*) FROM email_templates WHERE user_id = $1 AND is_active = TRUE)`,
		userID).Scan(&d.TotalCampaigns, &d.TotalRecipients, &d.TotalGroups, &d.TotalTemplates)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT c.campaign_id, c.campaign_name, c.status, c.sent_at,
		COUNT(t.tracking_id) FILTER (WHERE t.sent_at IS NOT NULL),
		COUNT(t.tracking_id) FILTER (WHERE t.opened_at IS NOT NULL),
		COUNT(t.tracking_id) FILTER (WHERE t.clicked_at IS NOT NULL),
		COUNT(t.tracking_id) FILTER (WHERE t.replied_at IS NOT NULL)
		FROM email_campaigns c
		LEFT JOIN email_tracking t ON t.campaign_id = c.campaign_id AND t.is_active = TRUE
		WHERE c.user_id = $1 AND c.is_active = TRUE
		GROUP BY c.campaign_id, c.campaign_name, c.status, c.sent_at
		ORDER BY c.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		cs := CampaignStats{}
		err := rows.Scan(&cs.CampaignID, &cs.CampaignName, &cs.Status, &cs.SentAt,
			&cs.TotalSent, &cs.TotalOpened, &cs.TotalClicked, &cs.TotalReplied)
		if err != nil {
			return nil, err
		}
		if cs.TotalSent > 0 {
			cs.OpenRate = round2(float64(cs.TotalOpened) / float64(cs.TotalSent) * 100)
			cs.ClickRate = round2(float64(cs.TotalClicked) / float64(cs.TotalSent) * 100)
			cs.ReplyRate = round2(float64(cs.TotalReplied) / float64(cs.TotalSent) * 100)
		}
		d.Campaigns = append(d.Campaigns, cs)
	}
	return d, rows.Err()
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
