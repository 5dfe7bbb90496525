package api

import (
	"net/http"

	"github.com/google/uuid"
)

// MarkRecipientReplied manually applies a reply signal for one recipient of
// a campaign. Covers replies the mailbox reconciler cannot see, like
// forwarded threads or out-of-band responses.
func (h *Handlers) MarkRecipientReplied(w http.ResponseWriter, r *http.Request) {
	campaignID, err := pathUUID(r, "campaignID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	recipientID, err := pathUUID(r, "recipientID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid recipient id")
		return
	}

	h.applyReply(w, r, campaignID, recipientID)
}

type markRepliedRequest struct {
	CampaignID  uuid.UUID `json:"campaign_id"`
	RecipientID uuid.UUID `json:"recipient_id"`
}

// MarkReplied is the body-addressed form of MarkRecipientReplied
func (h *Handlers) MarkReplied(w http.ResponseWriter, r *http.Request) {
	var req markRepliedRequest
	if err := decodeJSON(r, &req); err != nil ||
		req.CampaignID == uuid.Nil || req.RecipientID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "campaign_id and recipient_id are required")
		return
	}

	h.applyReply(w, r, req.CampaignID, req.RecipientID)
}

func (h *Handlers) applyReply(w http.ResponseWriter, r *http.Request, campaignID, recipientID uuid.UUID) {
	ctx := r.Context()
	uid := userID(r)

	c, err := h.Campaigns.GetCampaign(ctx, uid, campaignID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get campaign")
		return
	}
	if c == nil {
		respondError(w, http.StatusNotFound, "campaign not found")
		return
	}

	record, err := h.Trackings.GetRecordForRecipient(ctx, campaignID, recipientID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load tracking record")
		return
	}
	if record == nil {
		respondError(w, http.StatusNotFound, "tracking record not found")
		return
	}

	if err := h.Trackings.ApplyReply(ctx, record.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to mark replied")
		return
	}
	if h.Stats != nil {
		h.Stats.Invalidate(ctx, uid)
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Recipient marked as replied"})
}
