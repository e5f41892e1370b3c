package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Giopap1991/ai-agents/internal/agent"
	"github.com/Giopap1991/ai-agents/internal/apperr"
	"github.com/Giopap1991/ai-agents/internal/auth"
	"github.com/Giopap1991/ai-agents/internal/campaign"
	"github.com/Giopap1991/ai-agents/internal/csvparser"
	"github.com/Giopap1991/ai-agents/internal/presentation"
	"github.com/Giopap1991/ai-agents/internal/timeline"
)

const (
	maxJSONBody      = 1 << 20
	maxMultipartBody = 32 << 20
)

type PlanGenerator interface {
	GeneratePlan(ctx context.Context, userID, prompt string) (*agent.PlanResult, error)
}

type Orchestrator interface {
	Orchestrate(ctx context.Context, userID, prompt string) (*agent.Response, error)
}

type CampaignSender interface {
	Send(ctx context.Context, req campaign.Request) (*campaign.Result, error)
}

type PresentationCreator interface {
	Create(ctx context.Context, userID, topic string) (*presentation.Result, error)
}

type TaskLister interface {
	List(ctx context.Context, userID string) ([]timeline.Entry, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Plans         PlanGenerator
	Orchestrator  Orchestrator
	Campaigns     CampaignSender
	Presentations PresentationCreator
	Tasks         TaskLister
	DB            Pinger

	Auth auth.Resolver
	Log  *zap.Logger

	UploadDir       string
	UploadURLPrefix string
	CSVMaxRows      int
	AllowedOrigins  []string
}

// ------------------------------------------------
// Agent
// ------------------------------------------------

type promptRequest struct {
	Prompt string `json:"prompt"`
}

func (h *Handler) GeneratePlan(w http.ResponseWriter, r *http.Request) {
	user := mustUser(r)

	var req promptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := agent.ValidatePrompt(req.Prompt); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.Plans.GeneratePlan(r.Context(), user.ID, req.Prompt)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"plan":      res.Plan,
		"requestId": res.RequestID,
	})
}

func (h *Handler) Orchestrate(w http.ResponseWriter, r *http.Request) {
	user := mustUser(r)

	var req promptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := agent.ValidatePrompt(req.Prompt); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.Orchestrator.Orchestrate(r.Context(), user.ID, req.Prompt)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"type":    res.Kind,
		"result":  res.Result,
		"taskId":  res.TaskID,
	})
}

// ------------------------------------------------
// Campaigns
// ------------------------------------------------

type campaignRequest struct {
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
	Recipients []string `json:"recipients"`
}

// SendCampaign accepts JSON, or multipart form data with subject and body
// fields and a "recipients" CSV file.
func (h *Handler) SendCampaign(w http.ResponseWriter, r *http.Request) {
	user := mustUser(r)

	var (
		req campaignRequest
		err error
	)
	if isMultipart(r) {
		req, err = h.readCampaignForm(w, r)
	} else {
		err = decodeJSON(w, r, &req)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	creq := campaign.Request{
		UserID:     user.ID,
		Subject:    req.Subject,
		Body:       req.Body,
		Recipients: req.Recipients,
	}
	if err := campaign.Validate(creq); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.Campaigns.Send(r.Context(), creq)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"campaignId":      res.CampaignID,
		"totalRecipients": res.TotalRecipients,
		"failedCount":     res.FailedCount,
	})
}

func (h *Handler) readCampaignForm(w http.ResponseWriter, r *http.Request) (campaignRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)
	if err := r.ParseMultipartForm(maxMultipartBody); err != nil {
		return campaignRequest{}, apperr.Wrap(apperr.Validation, "Invalid form data", err)
	}

	req := campaignRequest{
		Subject: r.FormValue("subject"),
		Body:    r.FormValue("body"),
	}

	f, _, err := r.FormFile("recipients")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil
	}
	if err != nil {
		return req, apperr.Wrap(apperr.Validation, "Invalid recipients file", err)
	}
	defer f.Close()

	req.Recipients, err = csvparser.ParseRecipients(f, h.CSVMaxRows)
	if err != nil {
		return req, apperr.Wrap(apperr.Validation, "Invalid recipients file", err)
	}

	return req, nil
}

// ------------------------------------------------
// Presentations
// ------------------------------------------------

type presentationRequest struct {
	Topic string `json:"topic"`
}

func (h *Handler) CreatePresentation(w http.ResponseWriter, r *http.Request) {
	user := mustUser(r)

	var req presentationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := presentation.Validate(req.Topic); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.Presentations.Create(r.Context(), user.ID, req.Topic)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"presentationId": res.PresentationID,
		"pdfUrl":         res.PDFURL,
		"content":        res.Content,
	})
}

// ------------------------------------------------
// Tasks
// ------------------------------------------------

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user := mustUser(r)

	entries, err := h.Tasks.List(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tasks": entries})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		if err := h.DB.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// ------------------------------------------------
// Helpers
// ------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// writeError maps err to its status. Client errors carry only their short
// message; server errors add the diagnostic.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)
	if status < http.StatusInternalServerError {
		writeJSON(w, status, errorBody{Message: apperr.MessageOf(err)})
		return
	}

	h.Log.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.String("error_kind", apperr.KindOf(err).String()),
		zap.Error(err),
	)
	writeJSON(w, status, errorBody{Message: "Internal server error", Error: err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperr.Wrap(apperr.Validation, "Invalid request body", err)
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.EqualFold(mt, "multipart/form-data")
}
