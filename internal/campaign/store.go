package campaign

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Store provides database operations for campaign entities
type Store struct {
	db *sql.DB
}

// NewStore creates a new campaign store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for collaborators sharing the pool
func (s *Store) DB() *sql.DB {
	return s.db
}

// ---- Groups ----

// CreateGroup creates a new recipient group
func (s *Store) CreateGroup(ctx context.Context, g *Group) error {
	g.ID = uuid.New()
	g.IsActive = true
	g.CreatedAt = time.Now()
	g.UpdatedAt = time.Now()

	query := `INSERT INTO recipient_groups (group_id, user_id, group_name, description, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.db.ExecContext(ctx, query, g.ID, g.UserID, g.Name, g.Description,
		g.IsActive, g.CreatedAt, g.UpdatedAt)
	return err
}

// GetGroup retrieves an active group owned by the given user
func (s *Store) GetGroup(ctx context.Context, userID, groupID uuid.UUID) (*Group, error) {
	query := `SELECT group_id, user_id, group_name, description, is_active, created_at, updated_at
		FROM recipient_groups WHERE group_id = $1 AND user_id = $2 AND is_active = TRUE`

	g := &Group{}
	err := s.db.QueryRowContext(ctx, query, groupID, userID).Scan(
		&g.ID, &g.UserID, &g.Name, &g.Description, &g.IsActive, &g.CreatedAt, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return g, err
}

// GetGroupByName looks up an active group by name for uniqueness checks
func (s *Store) GetGroupByName(ctx context.Context, userID uuid.UUID, name string) (*Group, error) {
	query := `SELECT group_id, user_id, group_name, description, is_active, created_at, updated_at
		FROM recipient_groups WHERE user_id = $1 AND group_name = $2 AND is_active = TRUE`

	g := &Group{}
	err := s.db.QueryRowContext(ctx, query, userID, name).Scan(
		&g.ID, &g.UserID, &g.Name, &g.Description, &g.IsActive, &g.CreatedAt, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return g, err
}

// GetGroups retrieves all active groups for a user with member counts
func (s *Store) GetGroups(ctx context.Context, userID uuid.UUID) ([]*Group, error) {
	query := `SELECT g.group_id, g.user_id, g.group_name, g.description, g.is_active, g.created_at, g.updated_at,
		(SELECT COUNT(*) FROM recipients r WHERE r.group_id = g.group_id AND r.is_active = TRUE)
		FROM recipient_groups g WHERE g.user_id = $1 AND g.is_active = TRUE ORDER BY g.group_name`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*Group
	for rows.Next() {
		g := &Group{}
		err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.Description, &g.IsActive,
			&g.CreatedAt, &g.UpdatedAt, &g.RecipientCount)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// UpdateGroup updates a group's name and description
func (s *Store) UpdateGroup(ctx context.Context, g *Group) error {
	query := `UPDATE recipient_groups SET group_name = $1, description = $2, updated_at = NOW()
		WHERE group_id = $3 AND user_id = $4 AND is_active = TRUE`

	_, err := s.db.ExecContext(ctx, query, g.Name, g.Description, g.ID, g.UserID)
	return err
}

// DeleteGroup ungroups its recipients and soft-deletes the group.
// Recipients survive the delete; only their group reference is cleared.
func (s *Store) DeleteGroup(ctx context.Context, userID, groupID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE recipients SET group_id = NULL, updated_at = NOW() WHERE group_id = $1 AND user_id = $2`,
		groupID, userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE recipient_groups SET is_active = FALSE, updated_at = NOW() WHERE group_id = $1 AND user_id = $2`,
		groupID, userID); err != nil {
		return err
	}
	return tx.Commit()
}

// ---- Recipients ----

// CreateRecipient creates a new recipient
func (s *Store) CreateRecipient(ctx context.Context, r *Recipient) error {
	r.ID = uuid.New()
	r.IsActive = true
	r.CreatedAt = time.Now()
	r.UpdatedAt = time.Now()

	query := `INSERT INTO recipients (recipient_id, user_id, group_id, email, first_name, last_name,
		custom_fields, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.db.ExecContext(ctx, query, r.ID, r.UserID, r.GroupID, r.Email,
		r.FirstName, r.LastName, r.CustomFields, r.IsActive, r.CreatedAt, r.UpdatedAt)
	return err
}

// GetRecipient retrieves an active recipient owned by the given user
func (s *Store) GetRecipient(ctx context.Context, userID, recipientID uuid.UUID) (*Recipient, error) {
	query := `SELECT recipient_id, user_id, group_id, email, first_name, last_name, custom_fields,
		is_active, created_at, updated_at
		FROM recipients WHERE recipient_id = $1 AND user_id = $2 AND is_active = TRUE`

	r := &Recipient{}
	err := s.db.QueryRowContext(ctx, query, recipientID, userID).Scan(
		&r.ID, &r.UserID, &r.GroupID, &r.Email, &r.FirstName, &r.LastName,
		&r.CustomFields, &r.IsActive, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// GetRecipientByEmail looks up an active recipient by email for uniqueness checks
func (s *Store) GetRecipientByEmail(ctx context.Context, userID uuid.UUID, email string) (*Recipient, error) {
	query := `SELECT recipient_id, user_id, group_id, email, first_name, last_name, custom_fields,
		is_active, created_at, updated_at
		FROM recipients WHERE user_id = $1 AND email = $2 AND is_active = TRUE`

	r := &Recipient{}
	err := s.db.QueryRowContext(ctx, query, userID, email).Scan(
		&r.ID, &r.UserID, &r.GroupID, &r.Email, &r.FirstName, &r.LastName,
		&r.CustomFields, &r.IsActive, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// GetRecipients retrieves all active recipients for a user
func (s *Store) GetRecipients(ctx context.Context, userID uuid.UUID) ([]*Recipient, error) {
	query := `SELECT recipient_id, user_id, group_id, email, first_name, last_name, custom_fields,
		is_active, created_at, updated_at
		FROM recipients WHERE user_id = $1 AND is_active = TRUE ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipients []*Recipient
	for rows.Next() {
		r := &Recipient{}
		err := rows.Scan(&r.ID, &r.UserID, &r.GroupID, &r.Email, &r.FirstName, &r.LastName,
			&r.CustomFields, &r.IsActive, &r.CreatedAt, &r.UpdatedAt)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, r)
	}
	return recipients, rows.Err()
}

// UpdateRecipient updates a recipient's profile and group assignment
func (s *Store) UpdateRecipient(ctx context.Context, r *Recipient) error {
	query := `UPDATE recipients SET email = $1, first_name = $2, last_name = $3, group_id = $4,
		custom_fields = $5, updated_at = NOW()
		WHERE recipient_id = $6 AND user_id = $7 AND is_active = TRUE`

	_, err := s.db.ExecContext(ctx, query, r.Email, r.FirstName, r.LastName, r.GroupID,
		r.CustomFields, r.ID, r.UserID)
	return err
}

// DeleteRecipient soft-deletes a recipient and deactivates its campaign links
func (s *Store) DeleteRecipient(ctx context.Context, userID, recipientID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE recipients SET is_active = FALSE, updated_at = NOW() WHERE recipient_id = $1 AND user_id = $2`,
		recipientID, userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE campaign_recipients SET is_active = FALSE WHERE recipient_id = $1`,
		recipientID); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteRecipients soft-deletes a batch of recipients owned by the user
func (s *Store) DeleteRecipients(ctx context.Context, userID uuid.UUID, recipientIDs []uuid.UUID) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE recipients SET is_active = FALSE, updated_at = NOW()
		 WHERE user_id = $1 AND recipient_id = ANY($2)`,
		userID, pq.Array(recipientIDs))
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE campaign_recipients SET is_active = FALSE WHERE recipient_id = ANY($1)`,
		pq.Array(recipientIDs)); err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, tx.Commit()
}

// ---- Templates ----

// CreateTemplate creates a new email template
func (s *Store) CreateTemplate(ctx context.Context, t *Template) error {
	t.ID = uuid.New()
	t.IsActive = true
	t.CreatedAt = time.Now()
	t.UpdatedAt = time.Now()

	query := `INSERT INTO email_templates (template_id, user_id, template_name, subject, html_content,
		text_content, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.db.ExecContext(ctx, query, t.ID, t.UserID, t.Name, t.Subject,
		t.HTMLContent, t.TextContent, t.IsActive, t.CreatedAt, t.UpdatedAt)
	return err
}

// GetTemplate retrieves an active template owned by the given user
func (s *Store) GetTemplate(ctx context.Context, userID, templateID uuid.UUID) (*Template, error) {
	query := `SELECT template_id, user_id, template_name, subject, html_content, text_content,
		is_active, created_at, updated_at
		FROM email_templates WHERE template_id = $1 AND user_id = $2 AND is_active = TRUE`

	t := &Template{}
	err := s.db.QueryRowContext(ctx, query, templateID, userID).Scan(
		&t.ID, &t.UserID, &t.Name, &t.Subject, &t.HTMLContent, &t.TextContent,
		&t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// GetTemplates retrieves all active templates for a user
func (s *Store) GetTemplates(ctx context.Context, userID uuid.UUID) ([]*Template, error) {
	query := `SELECT template_id, user_id, template_name, subject, html_content, text_content,
		is_active, created_at, updated_at
		FROM email_templates WHERE user_id = $1 AND is_active = TRUE ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*Template
	for rows.Next() {
		t := &Template{}
		err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Subject, &t.HTMLContent, &t.TextContent,
			&t.IsActive, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// UpdateTemplate updates a template's content
func (s *Store) UpdateTemplate(ctx context.Context, t *Template) error {
	query := `UPDATE email_templates SET template_name = $1, subject = $2, html_content = $3,
		text_content = $4, updated_at = NOW()
		WHERE template_id = $5 AND user_id = $6 AND is_active = TRUE`

	_, err := s.db.ExecContext(ctx, query, t.Name, t.Subject, t.HTMLContent, t.TextContent, t.ID, t.UserID)
	return err
}

// DeleteTemplate soft-deletes a template
func (s *Store) DeleteTemplate(ctx context.Context, userID, templateID uuid.UUID) error {
	query := `UPDATE email_templates SET is_active = FALSE, updated_at = NOW()
		WHERE template_id = $1 AND user_id = $2`

	_, err := s.db.ExecContext(ctx, query, templateID, userID)
	return err
}

// GetCampaignTemplate retrieves the active template attached to a campaign
func (s *Store) GetCampaignTemplate(ctx context.Context, campaignID uuid.UUID) (*Template, error) {
	query := `SELECT t.template_id, t.user_id, t.template_name, t.subject, t.html_content, t.text_content,
		t.is_active, t.created_at, t.updated_at
		FROM email_templates t
		JOIN email_campaigns c ON c.template_id = t.template_id
		WHERE c.campaign_id = $1 AND t.is_active = TRUE`

	t := &Template{}
	err := s.db.QueryRowContext(ctx, query, campaignID).Scan(
		&t.ID, &t.UserID, &t.Name, &t.Subject, &t.HTMLContent, &t.TextContent,
		&t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// ---- Campaigns ----

// CreateCampaign creates a new campaign in draft status
func (s *Store) CreateCampaign(ctx context.Context, c *Campaign) error {
	c.ID = uuid.New()
	c.IsActive = true
	c.CreatedAt = time.Now()
	c.UpdatedAt = time.Now()
	if c.Status == "" {
		c.Status = StatusDraft
	}

	query := `INSERT INTO email_campaigns (campaign_id, user_id, campaign_name, subject_line, from_name,
		from_email, reply_to_email, status, scheduled_at, template_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := s.db.ExecContext(ctx, query, c.ID, c.UserID, c.Name, c.SubjectLine, c.FromName,
		c.FromEmail, c.ReplyToEmail, c.Status, c.ScheduledAt, c.TemplateID,
		c.IsActive, c.CreatedAt, c.UpdatedAt)
	return err
}

// GetCampaign retrieves an active campaign owned by the given user
func (s *Store) GetCampaign(ctx context.Context, userID, campaignID uuid.UUID) (*Campaign, error) {
	query := `SELECT campaign_id, user_id, campaign_name, subject_line, from_name, from_email,
		reply_to_email, status, scheduled_at, sent_at, template_id, is_active, created_at, updated_at
		FROM email_campaigns WHERE campaign_id = $1 AND user_id = $2 AND is_active = TRUE`

	c := &Campaign{}
	err := s.db.QueryRowContext(ctx, query, campaignID, userID).Scan(
		&c.ID, &c.UserID, &c.Name, &c.SubjectLine, &c.FromName, &c.FromEmail,
		&c.ReplyToEmail, &c.Status, &c.ScheduledAt, &c.SentAt, &c.TemplateID,
		&c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// GetCampaignByID retrieves a campaign without an ownership filter,
// for background work that runs outside a request scope
func (s *Store) GetCampaignByID(ctx context.Context, campaignID uuid.UUID) (*Campaign, error) {
	query := `SELECT campaign_id, user_id, campaign_name, subject_line, from_name, from_email,
		reply_to_email, status, scheduled_at, sent_at, template_id, is_active, created_at, updated_at
		FROM email_campaigns WHERE campaign_id = $1 AND is_active = TRUE`

	c := &Campaign{}
	err := s.db.QueryRowContext(ctx, query, campaignID).Scan(
		&c.ID, &c.UserID, &c.Name, &c.SubjectLine, &c.FromName, &c.FromEmail,
		&c.ReplyToEmail, &c.Status, &c.ScheduledAt, &c.SentAt, &c.TemplateID,
		&c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// GetCampaigns retrieves all active campaigns for a user
func (s *Store) GetCampaigns(ctx context.Context, userID uuid.UUID) ([]*Campaign, error) {
	query := `SELECT campaign_id, user_id, campaign_name, subject_line, from_name, from_email,
		reply_to_email, status, scheduled_at, sent_at, template_id, is_active, created_at, updated_at
		FROM email_campaigns WHERE user_id = $1 AND is_active = TRUE ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []*Campaign
	for rows.Next() {
		c := &Campaign{}
		err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.SubjectLine, &c.FromName, &c.FromEmail,
			&c.ReplyToEmail, &c.Status, &c.ScheduledAt, &c.SentAt, &c.TemplateID,
			&c.IsActive, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// GetCompletedCampaignSubjects returns subject lines of completed campaigns,
// newest first, for reply-subject matching
func (s *Store) GetCompletedCampaignSubjects(ctx context.Context) (map[uuid.UUID]string, []uuid.UUID, error) {
	query := `SELECT campaign_id, subject_line FROM email_campaigns
		WHERE status = $1 AND is_active = TRUE ORDER BY sent_at DESC NULLS LAST`

	rows, err := s.db.QueryContext(ctx, query, StatusCompleted)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	subjects := make(map[uuid.UUID]string)
	var order []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		var subject string
		if err := rows.Scan(&id, &subject); err != nil {
			return nil, nil, err
		}
		subjects[id] = subject
		order = append(order, id)
	}
	return subjects, order, rows.Err()
}

// UpdateCampaign updates campaign metadata
func (s *Store) UpdateCampaign(ctx context.Context, c *Campaign) error {
	query := `UPDATE email_campaigns SET campaign_name = $1, subject_line = $2, from_name = $3,
		from_email = $4, reply_to_email = $5, scheduled_at = $6, template_id = $7, updated_at = NOW()
		WHERE campaign_id = $8 AND user_id = $9 AND is_active = TRUE`

	_, err := s.db.ExecContext(ctx, query, c.Name, c.SubjectLine, c.FromName, c.FromEmail,
		c.ReplyToEmail, c.ScheduledAt, c.TemplateID, c.ID, c.UserID)
	return err
}

// UpdateCampaignStatus sets a campaign's lifecycle status
func (s *Store) UpdateCampaignStatus(ctx context.Context, campaignID uuid.UUID, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE email_campaigns SET status = $1, updated_at = NOW() WHERE campaign_id = $2`,
		status, campaignID)
	return err
}

// CompleteCampaign marks a campaign completed and stamps its send time
func (s *Store) CompleteCampaign(ctx context.Context, campaignID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE email_campaigns SET status = $1, sent_at = NOW(), updated_at = NOW() WHERE campaign_id = $2`,
		StatusCompleted, campaignID)
	return err
}

// DeleteCampaign soft-deletes a campaign
func (s *Store) DeleteCampaign(ctx context.Context, userID, campaignID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE email_campaigns SET is_active = FALSE, updated_at = NOW()
		 WHERE campaign_id = $1 AND user_id = $2`,
		campaignID, userID)
	return err
}

// ---- Campaign associations ----

// AttachRecipients links recipients to a campaign, ignoring duplicates
func (s *Store) AttachRecipients(ctx context.Context, campaignID uuid.UUID, recipientIDs []uuid.UUID) error {
	if len(recipientIDs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO campaign_recipients (campaign_id, recipient_id, is_active)
		 VALUES ($1, $2, TRUE)
		 ON CONFLICT (campaign_id, recipient_id) DO UPDATE SET is_active = TRUE`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rid := range recipientIDs {
		if _, err := stmt.ExecContext(ctx, campaignID, rid); err != nil {
			return fmt.Errorf("attach recipient %s: %w", rid, err)
		}
	}
	return tx.Commit()
}

// AttachGroups links groups to a campaign, ignoring duplicates
func (s *Store) AttachGroups(ctx context.Context, campaignID uuid.UUID, groupIDs []uuid.UUID) error {
	if len(groupIDs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO campaign_groups (campaign_id, group_id, is_active)
		 VALUES ($1, $2, TRUE)
		 ON CONFLICT (campaign_id, group_id) DO UPDATE SET is_active = TRUE`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, gid := range groupIDs {
		if _, err := stmt.ExecContext(ctx, campaignID, gid); err != nil {
			return fmt.Errorf("attach group %s: %w", gid, err)
		}
	}
	return tx.Commit()
}

// DetachGroup deactivates a campaign-group link without touching the group
func (s *Store) DetachGroup(ctx context.Context, campaignID, groupID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE campaign_groups SET is_active = FALSE WHERE campaign_id = $1 AND group_id = $2`,
		campaignID, groupID)
	return err
}

// GetCampaignGroups retrieves the active groups attached to a campaign
func (s *Store) GetCampaignGroups(ctx context.Context, campaignID uuid.UUID) ([]*Group, error) {
	query := `SELECT g.group_id, g.user_id, g.group_name, g.description, g.is_active, g.created_at, g.updated_at
		FROM recipient_groups g
		JOIN campaign_groups cg ON cg.group_id = g.group_id
		WHERE cg.campaign_id = $1 AND cg.is_active = TRUE AND g.is_active = TRUE
		ORDER BY g.group_name`

	rows, err := s.db.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*Group
	for rows.Next() {
		g := &Group{}
		err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.Description, &g.IsActive, &g.CreatedAt, &g.UpdatedAt)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// GetCampaignCounts returns aggregate engagement totals for a campaign
func (s *Store) GetCampaignCounts(ctx context.Context, campaignID uuid.UUID) (*CampaignCounts, error) {
	query := `SELECT COUNT(*),
		COUNT(*) FILTER (WHERE sent_at IS NOT NULL),
		COUNT(*) FILTER (WHERE opened_at IS NOT NULL),
		COUNT(*) FILTER (WHERE clicked_at IS NOT NULL),
		COUNT(*) FILTER (WHERE replied_at IS NOT NULL)
		FROM email_tracking WHERE campaign_id = $1 AND is_active = TRUE`

	counts := &CampaignCounts{}
	err := s.db.QueryRowContext(ctx, query, campaignID).Scan(
		&counts.Recipients, &counts.Sent, &counts.Opened, &counts.Clicked, &counts.Replied)
	return counts, err
}

// TrySendLock takes a non-blocking advisory lock for one campaign's send.
// Session scoped: the lock dies with the connection, so a crashed sender
// never wedges the campaign.
func (s *Store) TrySendLock(ctx context.Context, campaignID uuid.UUID) (bool, error) {
	var acquired bool
	err := s.db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)",
		sendLockID(campaignID)).Scan(&acquired)
	return acquired, err
}

// ReleaseSendLock releases the advisory lock taken by TrySendLock
func (s *Store) ReleaseSendLock(ctx context.Context, campaignID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", sendLockID(campaignID))
	return err
}

func sendLockID(campaignID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write([]byte("campaign-send:"))
	h.Write(campaignID[:])
	return int64(h.Sum64())
}

// HasImportedItem reports whether a feed item GUID was already imported for a user
func (s *Store) HasImportedItem(ctx context.Context, userID uuid.UUID, guid string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM feed_imports WHERE user_id = $1 AND item_guid = $2)`,
		userID, guid).Scan(&exists)
	return exists, err
}

// RecordImportedItem marks a feed item GUID as imported for a user
func (s *Store) RecordImportedItem(ctx context.Context, userID uuid.UUID, guid string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feed_imports (user_id, item_guid, imported_at)
		VALUES ($1, $2, NOW()) ON CONFLICT (user_id, item_guid) DO NOTHING`,
		userID, guid)
	return err
}
