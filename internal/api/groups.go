package api

import (
	"net/http"

	"github.com/sugils/Email-tracker-Backend/internal/campaign"
)

type groupRequest struct {
	Name        string `json:"group_name"`
	Description string `json:"description"`
}

// ListGroups returns the caller's active groups with member counts
func (h *Handlers) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Campaigns.GetGroups(r.Context(), userID(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list groups")
		return
	}
	respondJSON(w, http.StatusOK, groups)
}

// CreateGroup creates a group. Duplicate names per user are rejected.
func (h *Handlers) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := decodeJSON(r, &req); err != nil || req.Name == "" {
		respondError(w, http.StatusBadRequest, "group_name is required")
		return
	}

	uid := userID(r)
	existing, err := h.Campaigns.GetGroupByName(r.Context(), uid, req.Name)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create group")
		return
	}
	if existing != nil {
		respondError(w, http.StatusConflict, "group name already exists")
		return
	}

	g := &campaign.Group{UserID: uid, Name: req.Name, Description: req.Description}
	if err := h.Campaigns.CreateGroup(r.Context(), g); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create group")
		return
	}
	respondJSON(w, http.StatusCreated, g)
}

func (h *Handlers) GetGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathUUID(r, "groupID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	g, err := h.Campaigns.GetGroup(r.Context(), userID(r), groupID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get group")
		return
	}
	if g == nil {
		respondError(w, http.StatusNotFound, "group not found")
		return
	}
	respondJSON(w, http.StatusOK, g)
}

func (h *Handlers) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathUUID(r, "groupID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	g, err := h.Campaigns.GetGroup(r.Context(), userID(r), groupID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get group")
		return
	}
	if g == nil {
		respondError(w, http.StatusNotFound, "group not found")
		return
	}

	var req groupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name != "" {
		g.Name = req.Name
	}
	if req.Description != "" {
		g.Description = req.Description
	}

	if err := h.Campaigns.UpdateGroup(r.Context(), g); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to update group")
		return
	}
	respondJSON(w, http.StatusOK, g)
}

// DeleteGroup soft-deletes a group. Members stay active but lose their
// group assignment.
func (h *Handlers) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathUUID(r, "groupID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	uid := userID(r)
	g, err := h.Campaigns.GetGroup(r.Context(), uid, groupID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get group")
		return
	}
	if g == nil {
		respondError(w, http.StatusNotFound, "group not found")
		return
	}

	if err := h.Campaigns.DeleteGroup(r.Context(), uid, groupID); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete group")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Group deleted successfully"})
}
