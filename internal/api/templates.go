package api

import (
	"net/http"

	"github.com/osteele/liquid"

	"github.com/sugils/Email-tracker-Backend/internal/campaign"
)

type templateRequest struct {
	Name        string `json:"template_name"`
	Subject     string `json:"subject"`
	HTMLContent string `json:"html_content"`
	TextContent string `json:"text_content"`
}

func (h *Handlers) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.Campaigns.GetTemplates(r.Context(), userID(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list templates")
		return
	}
	respondJSON(w, http.StatusOK, templates)
}

func (h *Handlers) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := decodeJSON(r, &req); err != nil || req.Name == "" || req.HTMLContent == "" {
		respondError(w, http.StatusBadRequest, "template_name and html_content are required")
		return
	}

	t := &campaign.Template{
		UserID:      userID(r),
		Name:        req.Name,
		Subject:     req.Subject,
		HTMLContent: req.HTMLContent,
		TextContent: req.TextContent,
	}
	if err := h.Campaigns.CreateTemplate(r.Context(), t); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create template")
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

func (h *Handlers) GetTemplate(w http.ResponseWriter, r *http.Request) {
	templateID, err := pathUUID(r, "templateID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid template id")
		return
	}

	t, err := h.Campaigns.GetTemplate(r.Context(), userID(r), templateID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get template")
		return
	}
	if t == nil {
		respondError(w, http.StatusNotFound, "template not found")
		return
	}
	respondJSON(w, http.StatusOK, t)
}

func (h *Handlers) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	templateID, err := pathUUID(r, "templateID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid template id")
		return
	}

	t, err := h.Campaigns.GetTemplate(r.Context(), userID(r), templateID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get template")
		return
	}
	if t == nil {
		respondError(w, http.StatusNotFound, "template not found")
		return
	}

	var req templateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name != "" {
		t.Name = req.Name
	}
	if req.Subject != "" {
		t.Subject = req.Subject
	}
	if req.HTMLContent != "" {
		t.HTMLContent = req.HTMLContent
	}
	if req.TextContent != "" {
		t.TextContent = req.TextContent
	}

	if err := h.Campaigns.UpdateTemplate(r.Context(), t); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to update template")
		return
	}
	respondJSON(w, http.StatusOK, t)
}

func (h *Handlers) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	templateID, err := pathUUID(r, "templateID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid template id")
		return
	}

	uid := userID(r)
	t, err := h.Campaigns.GetTemplate(r.Context(), uid, templateID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get template")
		return
	}
	if t == nil {
		respondError(w, http.StatusNotFound, "template not found")
		return
	}

	if err := h.Campaigns.DeleteTemplate(r.Context(), uid, templateID); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete template")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Template deleted successfully"})
}

type previewRequest struct {
	HTMLContent string                 `json:"html_content"`
	Subject     string                 `json:"subject"`
	SampleData  map[string]interface{} `json:"sample_data"`
}

var liquidEngine = liquid.NewEngine()

// PreviewTemplate renders a template body with Liquid against sample
// recipient data so editors can see the personalized result before sending
func (h *Handlers) PreviewTemplate(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeJSON(r, &req); err != nil || req.HTMLContent == "" {
		respondError(w, http.StatusBadRequest, "html_content is required")
		return
	}

	bindings := map[string]interface{}{
		"first_name": "Jane",
		"last_name":  "Doe",
		"email":      "jane.doe@example.com",
	}
	for k, v := range req.SampleData {
		bindings[k] = v
	}

	html, err := liquidEngine.ParseAndRenderString(req.HTMLContent, bindings)
	if err != nil {
		respondError(w, http.StatusBadRequest, "template render failed: "+err.Error())
		return
	}

	subject := req.Subject
	if subject != "" {
		if rendered, err := liquidEngine.ParseAndRenderString(subject, bindings); err == nil {
			subject = rendered
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"html":    html,
		"subject": subject,
	})
}
