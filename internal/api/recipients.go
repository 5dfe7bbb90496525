package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/sugils/Email-tracker-Backend/internal/campaign"
)

type recipientRequest struct {
	Email        string        `json:"email"`
	FirstName    string        `json:"first_name"`
	LastName     string        `json:"last_name"`
	GroupID      *uuid.UUID    `json:"group_id"`
	CustomFields campaign.JSON `json:"custom_fields"`
}

// groupOwned reports whether the group exists and belongs to the user
func (h *Handlers) groupOwned(r *http.Request, uid, groupID uuid.UUID) (bool, error) {
	grp, err := h.Campaigns.GetGroup(r.Context(), uid, groupID)
	if err != nil {
		return false, err
	}
	return grp != nil, nil
}

// ListRecipients returns the caller's active recipients
func (h *Handlers) ListRecipients(w http.ResponseWriter, r *http.Request) {
	recipients, err := h.Campaigns.GetRecipients(r.Context(), userID(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list recipients")
		return
	}
	respondJSON(w, http.StatusOK, recipients)
}

// CreateRecipient adds one recipient. Duplicate active emails per user are
// rejected.
func (h *Handlers) CreateRecipient(w http.ResponseWriter, r *http.Request) {
	var req recipientRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Email) == "" {
		respondError(w, http.StatusBadRequest, "email is required")
		return
	}

	uid := userID(r)
	existing, err := h.Campaigns.GetRecipientByEmail(r.Context(), uid, req.Email)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create recipient")
		return
	}
	if existing != nil {
		respondError(w, http.StatusConflict, "recipient email already exists")
		return
	}

	if req.GroupID != nil {
		owned, err := h.groupOwned(r, uid, *req.GroupID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to create recipient")
			return
		}
		if !owned {
			respondError(w, http.StatusNotFound, "group not found")
			return
		}
	}

	rec := &campaign.Recipient{
		UserID:       uid,
		GroupID:      req.GroupID,
		Email:        strings.TrimSpace(req.Email),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		CustomFields: req.CustomFields,
	}
	if err := h.Campaigns.CreateRecipient(r.Context(), rec); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create recipient")
		return
	}
	respondJSON(w, http.StatusCreated, rec)
}

type bulkCreateRequest struct {
	Recipients []recipientRequest `json:"recipients"`
	GroupID    *uuid.UUID         `json:"group_id"`
}

type bulkCreateResponse struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// BulkCreateRecipients imports a batch of recipients. Duplicates and bad
// rows are skipped, not fatal.
func (h *Handlers) BulkCreateRecipients(w http.ResponseWriter, r *http.Request) {
	var req bulkCreateRequest
	if err := decodeJSON(r, &req); err != nil || len(req.Recipients) == 0 {
		respondError(w, http.StatusBadRequest, "recipients list is required")
		return
	}

	uid := userID(r)
	resp := bulkCreateResponse{}
	for _, row := range req.Recipients {
		email := strings.TrimSpace(row.Email)
		if email == "" {
			resp.Skipped++
			continue
		}

		existing, err := h.Campaigns.GetRecipientByEmail(r.Context(), uid, email)
		if err != nil {
			resp.Errors = append(resp.Errors, email+": "+err.Error())
			continue
		}
		if existing != nil {
			resp.Skipped++
			continue
		}

		groupID := row.GroupID
		if groupID == nil {
			groupID = req.GroupID
		}
		if groupID != nil {
			owned, err := h.groupOwned(r, uid, *groupID)
			if err != nil {
				resp.Errors = append(resp.Errors, email+": "+err.Error())
				continue
			}
			if !owned {
				resp.Errors = append(resp.Errors, email+": group not found")
				continue
			}
		}
		rec := &campaign.Recipient{
			UserID:       uid,
			GroupID:      groupID,
			Email:        email,
			FirstName:    row.FirstName,
			LastName:     row.LastName,
			CustomFields: row.CustomFields,
		}
		if err := h.Campaigns.CreateRecipient(r.Context(), rec); err != nil {
			resp.Errors = append(resp.Errors, email+": "+err.Error())
			continue
		}
		resp.Created++
	}
	respondJSON(w, http.StatusOK, resp)
}

type bulkDeleteRequest struct {
	RecipientIDs []uuid.UUID `json:"recipient_ids"`
}

// BulkDeleteRecipients deactivates a batch of recipients in one statement
func (h *Handlers) BulkDeleteRecipients(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := decodeJSON(r, &req); err != nil || len(req.RecipientIDs) == 0 {
		respondError(w, http.StatusBadRequest, "recipient_ids is required")
		return
	}

	deleted, err := h.Campaigns.DeleteRecipients(r.Context(), userID(r), req.RecipientIDs)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete recipients")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

func (h *Handlers) GetRecipient(w http.ResponseWriter, r *http.Request) {
	recipientID, err := pathUUID(r, "recipientID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid recipient id")
		return
	}

	rec, err := h.Campaigns.GetRecipient(r.Context(), userID(r), recipientID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get recipient")
		return
	}
	if rec == nil {
		respondError(w, http.StatusNotFound, "recipient not found")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (h *Handlers) UpdateRecipient(w http.ResponseWriter, r *http.Request) {
	recipientID, err := pathUUID(r, "recipientID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid recipient id")
		return
	}

	rec, err := h.Campaigns.GetRecipient(r.Context(), userID(r), recipientID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get recipient")
		return
	}
	if rec == nil {
		respondError(w, http.StatusNotFound, "recipient not found")
		return
	}

	var req recipientRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email != "" {
		rec.Email = strings.TrimSpace(req.Email)
	}
	if req.FirstName != "" {
		rec.FirstName = req.FirstName
	}
	if req.LastName != "" {
		rec.LastName = req.LastName
	}
	if req.GroupID != nil {
		owned, err := h.groupOwned(r, userID(r), *req.GroupID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to update recipient")
			return
		}
		if !owned {
			respondError(w, http.StatusNotFound, "group not found")
			return
		}
		rec.GroupID = req.GroupID
	}
	if req.CustomFields != nil {
		rec.CustomFields = req.CustomFields
	}

	if err := h.Campaigns.UpdateRecipient(r.Context(), rec); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to update recipient")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (h *Handlers) DeleteRecipient(w http.ResponseWriter, r *http.Request) {
	recipientID, err := pathUUID(r, "recipientID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid recipient id")
		return
	}

	uid := userID(r)
	rec, err := h.Campaigns.GetRecipient(r.Context(), uid, recipientID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get recipient")
		return
	}
	if rec == nil {
		respondError(w, http.StatusNotFound, "recipient not found")
		return
	}

	if err := h.Campaigns.DeleteRecipient(r.Context(), uid, recipientID); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete recipient")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Recipient deleted successfully"})
}
