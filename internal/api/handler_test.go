package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Giopap1991/ai-agents/internal/agent"
	"github.com/Giopap1991/ai-agents/internal/apperr"
	"github.com/Giopap1991/ai-agents/internal/auth"
	"github.com/Giopap1991/ai-agents/internal/campaign"
	"github.com/Giopap1991/ai-agents/internal/email"
	"github.com/Giopap1991/ai-agents/internal/models"
	"github.com/Giopap1991/ai-agents/internal/presentation"
	"github.com/Giopap1991/ai-agents/internal/timeline"
	"github.com/Giopap1991/ai-agents/internal/worker"
)

const testSecret = "test-secret"

// ------------------------------------------------
// Fakes
// ------------------------------------------------

type fakePlans struct {
	calls int
	err   error
}

func (f *fakePlans) GeneratePlan(_ context.Context, _, prompt string) (*agent.PlanResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &agent.PlanResult{Plan: "1. " + prompt, RequestID: "t-1"}, nil
}

type fakeOrchestrator struct{ calls int }

func (f *fakeOrchestrator) Orchestrate(_ context.Context, _, _ string) (*agent.Response, error) {
	f.calls++
	return &agent.Response{
		TaskID: "t-2",
		Kind:   models.KindGeneral,
		Result: agent.TaskResult{Kind: models.KindGeneral, Success: true, Plan: "do it"},
	}, nil
}

type fakeCampaigns struct {
	calls int
	got   campaign.Request
}

func (f *fakeCampaigns) Send(_ context.Context, req campaign.Request) (*campaign.Result, error) {
	f.calls++
	f.got = req
	return &campaign.Result{CampaignID: "c-1", TotalRecipients: len(req.Recipients)}, nil
}

type fakePresentations struct{ calls int }

func (f *fakePresentations) Create(_ context.Context, _, topic string) (*presentation.Result, error) {
	f.calls++
	return &presentation.Result{
		PresentationID: "p-1",
		PDFURL:         "/uploads/presentation-p-1.pdf",
		Content:        models.SlideDeck{Slides: []models.Slide{{Title: topic}}},
	}, nil
}

type fakeTasks struct {
	calls  int
	userID string
}

func (f *fakeTasks) List(_ context.Context, userID string) ([]timeline.Entry, error) {
	f.calls++
	f.userID = userID
	return []timeline.Entry{{ID: "t-1", Kind: models.KindGeneral, Status: "COMPLETED"}}, nil
}

type fakes struct {
	plans         *fakePlans
	orchestrator  *fakeOrchestrator
	campaigns     *fakeCampaigns
	presentations *fakePresentations
	tasks         *fakeTasks
}

func (f *fakes) total() int {
	return f.plans.calls + f.orchestrator.calls + f.campaigns.calls +
		f.presentations.calls + f.tasks.calls
}

func newTestHandler(t *testing.T) (*Handler, *fakes) {
	t.Helper()
	f := &fakes{
		plans:         &fakePlans{},
		orchestrator:  &fakeOrchestrator{},
		campaigns:     &fakeCampaigns{},
		presentations: &fakePresentations{},
		tasks:         &fakeTasks{},
	}
	h := &Handler{
		Plans:         f.plans,
		Orchestrator:  f.orchestrator,
		Campaigns:     f.campaigns,
		Presentations: f.presentations,
		Tasks:         f.tasks,
		Auth:          &auth.JWTResolver{Secret: []byte(testSecret), Cookie: "session-token"},
		Log:           zap.NewNop(),
		CSVMaxRows:    100,
	}
	return h, f
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := (&auth.JWTResolver{Secret: []byte(testSecret)}).Issue(userID, "", time.Hour)
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, h http.Handler, method, path, body, tok string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// ------------------------------------------------
// Guards
// ------------------------------------------------

func TestWrongMethodIs405BeforeAuth(t *testing.T) {
	h, f := newTestHandler(t)
	routes := h.Routes()

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/agent/master"},
		{http.MethodGet, "/api/agent/orchestrator"},
		{http.MethodGet, "/api/email/campaign"},
		{http.MethodPut, "/api/presentation/create"},
		{http.MethodPost, "/api/tasks/list"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := do(t, routes, tc.method, tc.path, `{}`, "")
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			assert.Equal(t, "Method not allowed", decode(t, rec)["message"])
		})
	}
	assert.Zero(t, f.total())
}

func TestMissingUserIs401(t *testing.T) {
	h, f := newTestHandler(t)
	routes := h.Routes()

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/agent/master"},
		{http.MethodPost, "/api/agent/orchestrator"},
		{http.MethodPost, "/api/email/campaign"},
		{http.MethodPost, "/api/presentation/create"},
		{http.MethodGet, "/api/tasks/list"},
	} {
		t.Run(tc.path, func(t *testing.T) {
			rec := do(t, routes, tc.method, tc.path, `{"prompt":"x"}`, "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, map[string]any{"message": "Unauthorized"}, decode(t, rec))
		})
	}
	assert.Zero(t, f.total())
}

func TestMissingInputIs400(t *testing.T) {
	h, f := newTestHandler(t)
	routes := h.Routes()
	tok := token(t, "u-1")

	tests := []struct {
		path, body, message string
	}{
		{"/api/agent/master", `{}`, "Prompt is required"},
		{"/api/agent/master", ``, "Prompt is required"},
		{"/api/agent/orchestrator", `{"prompt":"   "}`, "Prompt is required"},
		{"/api/email/campaign", `{"subject":"s","body":"b","recipients":[]}`, "Subject, body, and recipients are required"},
		{"/api/email/campaign", `{"subject":"","body":"b","recipients":["a@x.io"]}`, "Subject, body, and recipients are required"},
		{"/api/presentation/create", `{"topic":""}`, "Topic is required"},
		{"/api/presentation/create", `{"topic":`, "Invalid request body"},
	}
	for _, tc := range tests {
		t.Run(tc.path+" "+tc.body, func(t *testing.T) {
			rec := do(t, routes, http.MethodPost, tc.path, tc.body, tok)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, map[string]any{"message": tc.message}, decode(t, rec))
		})
	}
	assert.Zero(t, f.total())
}

// ------------------------------------------------
// Success shapes
// ------------------------------------------------

func TestGeneratePlan(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := do(t, h.Routes(), http.MethodPost, "/api/agent/master", `{"prompt":"launch"}`, token(t, "u-1"))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "1. launch", body["plan"])
	assert.Equal(t, "t-1", body["requestId"])
}

func TestOrchestrate(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := do(t, h.Routes(), http.MethodPost, "/api/agent/orchestrator", `{"prompt":"plan a trip"}`, token(t, "u-1"))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "GENERAL", body["type"])
	assert.Equal(t, "t-2", body["taskId"])
	result := body["result"].(map[string]any)
	assert.Equal(t, "do it", result["plan"])
}

func TestCreatePresentation(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := do(t, h.Routes(), http.MethodPost, "/api/presentation/create", `{"topic":"Go"}`, token(t, "u-1"))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "p-1", body["presentationId"])
	assert.Equal(t, "/uploads/presentation-p-1.pdf", body["pdfUrl"])
	assert.NotNil(t, body["content"])
}

func TestListTasksUsesCookieSession(t *testing.T) {
	h, f := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/list", nil)
	req.AddCookie(&http.Cookie{Name: "session-token", Value: token(t, "u-9")})
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-9", f.tasks.userID)
	assert.Len(t, decode(t, rec)["tasks"], 1)
}

func TestServerErrorEnvelope(t *testing.T) {
	h, f := newTestHandler(t)
	f.plans.err = apperr.Remote("plan generation failed", errors.New("upstream 503"))

	rec := do(t, h.Routes(), http.MethodPost, "/api/agent/master", `{"prompt":"x"}`, token(t, "u-1"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]any{
		"message": "Internal server error",
		"error":   "plan generation failed: upstream 503",
	}, decode(t, rec))
}

func TestCampaignFromCSV(t *testing.T) {
	h, f := newTestHandler(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("subject", "Hello"))
	require.NoError(t, mw.WriteField("body", "<p>Hi</p>"))
	fw, err := mw.CreateFormFile("recipients", "list.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("Name,Email\nAda,ada@example.com\nBob,bob@example.com\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/email/campaign", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token(t, "u-1"))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"ada@example.com", "bob@example.com"}, f.campaigns.got.Recipients)
	assert.Equal(t, "u-1", f.campaigns.got.UserID)
	assert.EqualValues(t, 2, decode(t, rec)["totalRecipients"])
}

func TestCampaignFromCSVWithoutEmailColumn(t *testing.T) {
	h, f := newTestHandler(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("subject", "Hello"))
	require.NoError(t, mw.WriteField("body", "<p>Hi</p>"))
	fw, err := mw.CreateFormFile("recipients", "list.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("Name\nAda\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/email/campaign", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token(t, "u-1"))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid recipients file", decode(t, rec)["message"])
	assert.Zero(t, f.campaigns.calls)
}

func TestHealthAndUploads(t *testing.T) {
	h, _ := newTestHandler(t)
	h.UploadDir = t.TempDir()
	h.UploadURLPrefix = "/uploads"
	require.NoError(t, os.WriteFile(filepath.Join(h.UploadDir, "presentation-p-1.pdf"), []byte("%PDF-1.4"), 0o644))
	routes := h.Routes()

	rec := do(t, routes, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, routes, http.MethodGet, "/uploads/presentation-p-1.pdf", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4", rec.Body.String())
}

// ------------------------------------------------
// End to end through the real campaign service
// ------------------------------------------------

type memCampaigns struct {
	mu         sync.Mutex
	campaign   *models.Campaign
	recipients map[string]*models.Recipient
}

func (m *memCampaigns) CreateCampaign(_ context.Context, c *models.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.campaign = &cp
	m.recipients = make(map[string]*models.Recipient)
	for _, r := range c.Recipients {
		r := r
		m.recipients[r.ID] = &r
	}
	return nil
}

func (m *memCampaigns) FinalizeCampaign(_ context.Context, _ string, status models.CampaignStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.campaign.Status = status
	m.campaign.SentAt = &at
	return nil
}

func (m *memCampaigns) MarkRecipientSent(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recipients[id].Status = models.RecipientSent
	m.recipients[id].SentAt = &at
	return nil
}

func (m *memCampaigns) MarkRecipientFailed(_ context.Context, id string, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recipients[id].Status = models.RecipientFailed
	m.recipients[id].ErrorMsg = &msg
	return nil
}

type scriptedDelivery struct{ reject map[string]bool }

func (d scriptedDelivery) Send(_ context.Context, msg email.Message) error {
	if d.reject[msg.To] {
		return errors.New("550 mailbox unavailable")
	}
	return nil
}

func newCampaignRoutes(t *testing.T, reject map[string]bool) (http.Handler, *memCampaigns) {
	t.Helper()
	h, _ := newTestHandler(t)
	store := &memCampaigns{}
	h.Campaigns = &campaign.Service{
		Store: store,
		Sender: &worker.BatchSender{
			Delivery:  scriptedDelivery{reject: reject},
			Store:     store,
			ChunkSize: worker.DefaultChunkSize,
			Log:       zap.NewNop(),
		},
		Log: zap.NewNop(),
	}
	return h.Routes(), store
}

func TestCampaignAllDelivered(t *testing.T) {
	routes, store := newCampaignRoutes(t, nil)

	rec := do(t, routes, http.MethodPost, "/api/email/campaign",
		`{"subject":"Hi","body":"<p>Hello</p>","recipients":["a@example.com","b@example.com"]}`,
		token(t, "u-1"))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, store.campaign.ID, body["campaignId"])
	assert.EqualValues(t, 2, body["totalRecipients"])
	assert.EqualValues(t, 0, body["failedCount"])

	assert.Equal(t, models.CampaignCompleted, store.campaign.Status)
	for _, r := range store.recipients {
		assert.Equal(t, models.RecipientSent, r.Status)
	}
}

func TestCampaignSingleRejectedRecipient(t *testing.T) {
	routes, store := newCampaignRoutes(t, map[string]bool{"bad@example.com": true})

	rec := do(t, routes, http.MethodPost, "/api/email/campaign",
		`{"subject":"Hi","body":"<p>Hello</p>","recipients":["bad@example.com"]}`,
		token(t, "u-1"))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 1, body["totalRecipients"])
	assert.EqualValues(t, 1, body["failedCount"])

	assert.Equal(t, models.CampaignFailed, store.campaign.Status)
	require.Len(t, store.recipients, 1)
	for _, r := range store.recipients {
		assert.Equal(t, models.RecipientFailed, r.Status)
		require.NotNil(t, r.ErrorMsg)
		assert.Contains(t, *r.ErrorMsg, "mailbox unavailable")
	}
}
