package api

import (
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/sugils/Email-tracker-Backend/internal/campaign"
)

type campaignRequest struct {
	Name         string           `json:"campaign_name"`
	SubjectLine  string           `json:"subject_line"`
	FromName     string           `json:"from_name"`
	FromEmail    string           `json:"from_email"`
	ReplyToEmail string           `json:"reply_to_email"`
	TemplateID   *uuid.UUID       `json:"template_id"`
	Template     *templateRequest `json:"template"`
	RecipientIDs []uuid.UUID      `json:"recipient_ids"`
	GroupIDs     []uuid.UUID      `json:"group_ids"`
}

type campaignListItem struct {
	*campaign.Campaign
	Counts *campaign.CampaignCounts `json:"counts"`
}

// ListCampaigns returns the caller's campaigns with engagement counts
func (h *Handlers) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.Campaigns.GetCampaigns(r.Context(), userID(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list campaigns")
		return
	}

	items := make([]campaignListItem, 0, len(campaigns))
	for _, c := range campaigns {
		counts, err := h.Campaigns.GetCampaignCounts(r.Context(), c.ID)
		if err != nil {
			log.Printf("[API] counts for campaign %s failed: %v", c.ID, err)
			counts = &campaign.CampaignCounts{}
		}
		items = append(items, campaignListItem{Campaign: c, Counts: counts})
	}
	respondJSON(w, http.StatusOK, items)
}

// CreateCampaign creates a campaign, optionally with an inline template and
// initial recipient and group attachments
func (h *Handlers) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.SubjectLine == "" || req.FromName == "" ||
		req.FromEmail == "" || req.ReplyToEmail == "" {
		respondError(w, http.StatusBadRequest,
			"campaign_name, subject_line, from_name, from_email and reply_to_email are required")
		return
	}

	uid := userID(r)
	ctx := r.Context()

	templateID := req.TemplateID
	if req.Template != nil {
		name := req.Template.Name
		if name == "" {
			name = req.Name + " template"
		}
		t := &campaign.Template{
			UserID:      uid,
			Name:        name,
			Subject:     req.SubjectLine,
			HTMLContent: req.Template.HTMLContent,
			TextContent: req.Template.TextContent,
		}
		if err := h.Campaigns.CreateTemplate(ctx, t); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to create template")
			return
		}
		templateID = &t.ID
	}

	c := &campaign.Campaign{
		UserID:       uid,
		Name:         req.Name,
		SubjectLine:  req.SubjectLine,
		FromName:     req.FromName,
		FromEmail:    req.FromEmail,
		ReplyToEmail: req.ReplyToEmail,
		Status:       campaign.StatusDraft,
		TemplateID:   templateID,
	}
	if err := h.Campaigns.CreateCampaign(ctx, c); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create campaign")
		return
	}

	if len(req.RecipientIDs) > 0 {
		if err := h.Campaigns.AttachRecipients(ctx, c.ID, req.RecipientIDs); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to attach recipients")
			return
		}
	}
	if len(req.GroupIDs) > 0 {
		if err := h.Campaigns.AttachGroups(ctx, c.ID, req.GroupIDs); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to attach groups")
			return
		}
	}

	respondJSON(w, http.StatusCreated, c)
}

// GetCampaign returns a campaign with its template, groups, recipients and
// per-recipient tracking records
func (h *Handlers) GetCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, err := pathUUID(r, "campaignID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}

	ctx := r.Context()
	c, err := h.Campaigns.GetCampaign(ctx, userID(r), campaignID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get campaign")
		return
	}
	if c == nil {
		respondError(w, http.StatusNotFound, "campaign not found")
		return
	}

	tmpl, err := h.Campaigns.GetCampaignTemplate(ctx, c.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load template")
		return
	}
	groups, err := h.Campaigns.GetCampaignGroups(ctx, c.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load groups")
		return
	}
	recipients, err := h.Campaigns.Resolve(ctx, c.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load recipients")
		return
	}
	records, err := h.Trackings.GetCampaignRecords(ctx, c.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load tracking")
		return
	}
	counts, err := h.Campaigns.GetCampaignCounts(ctx, c.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load counts")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"campaign":   c,
		"template":   tmpl,
		"groups":     groups,
		"recipients": recipients,
		"tracking":   records,
		"counts":     counts,
	})
}

func (h *Handlers) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, err := pathUUID(r, "campaignID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}

	c, err := h.Campaigns.GetCampaign(r.Context(), userID(r), campaignID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get campaign")
		return
	}
	if c == nil {
		respondError(w, http.StatusNotFound, "campaign not found")
		return
	}

	var req campaignRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name != "" {
		c.Name = req.Name
	}
	if req.SubjectLine != "" {
		c.SubjectLine = req.SubjectLine
	}
	if req.FromName != "" {
		c.FromName = req.FromName
	}
	if req.FromEmail != "" {
		c.FromEmail = req.FromEmail
	}
	if req.ReplyToEmail != "" {
		c.ReplyToEmail = req.ReplyToEmail
	}
	if req.TemplateID != nil {
		c.TemplateID = req.TemplateID
	}

	if err := h.Campaigns.UpdateCampaign(r.Context(), c); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to update campaign")
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, err := pathUUID(r, "campaignID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}

	uid := userID(r)
	c, err := h.Campaigns.GetCampaign(r.Context(), uid, campaignID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get campaign")
		return
	}
	if c == nil {
		respondError(w, http.StatusNotFound, "campaign not found")
		return
	}

	if err := h.Campaigns.DeleteCampaign(r.Context(), uid, campaignID); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete campaign")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Campaign deleted successfully"})
}

type sendRequest struct {
	TestMode bool `json:"test_mode"`
}

// SendCampaign kicks off delivery in the background and returns immediately.
// Sends are only accepted from draft or scheduled status; test sends never
// change campaign status.
func (h *Handlers) SendCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, err := pathUUID(r, "campaignID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}

	uid := userID(r)
	c, err := h.Campaigns.GetCampaign(r.Context(), uid, campaignID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get campaign")
		return
	}
	if c == nil {
		respondError(w, http.StatusNotFound, "campaign not found")
		return
	}

	var req sendRequest
	decodeJSON(r, &req) // empty body means a normal send

	if !req.TestMode {
		if !c.CanSend() {
			respondError(w, http.StatusBadRequest,
				"campaign cannot be sent from status "+c.Status)
			return
		}
		if err := h.Campaigns.UpdateCampaignStatus(r.Context(), c.ID, campaign.StatusSending); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to start send")
			return
		}
	}

	h.Engine.SendAsync(c.ID, req.TestMode)
	if h.Stats != nil {
		h.Stats.Invalidate(r.Context(), uid)
	}

	msg := "Campaign sending in progress"
	if req.TestMode {
		msg = "Test email sending in progress"
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": msg})
}

type attachGroupsRequest struct {
	GroupIDs []uuid.UUID `json:"group_ids"`
}

func (h *Handlers) AttachCampaignGroups(w http.ResponseWriter, r *http.Request) {
	campaignID, err := pathUUID(r, "campaignID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}

	c, err := h.Campaigns.GetCampaign(r.Context(), userID(r), campaignID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get campaign")
		return
	}
	if c == nil {
		respondError(w, http.StatusNotFound, "campaign not found")
		return
	}

	var req attachGroupsRequest
	if err := decodeJSON(r, &req); err != nil || len(req.GroupIDs) == 0 {
		respondError(w, http.StatusBadRequest, "group_ids is required")
		return
	}

	if err := h.Campaigns.AttachGroups(r.Context(), c.ID, req.GroupIDs); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to attach groups")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Groups attached successfully"})
}

func (h *Handlers) DetachCampaignGroup(w http.ResponseWriter, r *http.Request) {
	campaignID, err := pathUUID(r, "campaignID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	groupID, err := pathUUID(r, "groupID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	c, err := h.Campaigns.GetCampaign(r.Context(), userID(r), campaignID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get campaign")
		return
	}
	if c == nil {
		respondError(w, http.StatusNotFound, "campaign not found")
		return
	}

	if err := h.Campaigns.DetachGroup(r.Context(), c.ID, groupID); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to detach group")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Group detached successfully"})
}
