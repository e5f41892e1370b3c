package presentation

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Giopap1991/ai-agents/internal/apperr"
	"github.com/Giopap1991/ai-agents/internal/llm"
	"github.com/Giopap1991/ai-agents/internal/models"
)

const outline = `{"slides":[
  {"title":"Introduction","points":["Why Go","Who uses it"]},
  {"title":"Concurrency","points":["Goroutines","Channels"]},
  {"title":"Conclusion","points":["Try it"]}
]}`

type fakeLLM struct {
	text string
	err  error
}

func (f fakeLLM) Complete(context.Context, llm.Request) (string, error) { return f.text, f.err }

type memStore struct {
	mu sync.Mutex
	p  map[string]*models.Presentation
}

func newMemStore() *memStore { return &memStore{p: make(map[string]*models.Presentation)} }

func (m *memStore) CreatePresentation(_ context.Context, p *models.Presentation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.p[p.ID] = &cp
	return nil
}

func (m *memStore) CompletePresentation(_ context.Context, id string, content models.SlideDeck, pdfURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.p[id]
	p.Content = content
	p.PDFURL = &pdfURL
	p.Status = models.PresentationCompleted
	return nil
}

func (m *memStore) FailPresentation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.p[id].Status = models.PresentationFailed
	return nil
}

func (m *memStore) only(t *testing.T) *models.Presentation {
	t.Helper()
	require.Len(t, m.p, 1)
	for _, p := range m.p {
		return p
	}
	return nil
}

type fileRenderer struct {
	err  error
	html string
}

func (r *fileRenderer) RenderPDF(_ context.Context, html string, path string) error {
	if r.err != nil {
		return r.err
	}
	r.html = html
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte("%PDF-1.4"), 0o644)
}

func newService(t *testing.T, l llm.Client, store *memStore, r Renderer) *Service {
	return &Service{
		LLM:       l,
		Store:     store,
		Renderer:  r,
		UploadDir: t.TempDir(),
		URLPrefix: "/uploads/",
		Log:       zap.NewNop(),
	}
}

func TestCreate(t *testing.T) {
	store := newMemStore()
	r := &fileRenderer{}
	svc := newService(t, fakeLLM{text: outline}, store, r)

	res, err := svc.Create(context.Background(), "u-1", "Intro to Go")
	require.NoError(t, err)

	assert.Equal(t, "/uploads/presentation-"+res.PresentationID+".pdf", res.PDFURL)
	assert.Len(t, res.Content.Slides, 3)
	assert.FileExists(t, filepath.Join(svc.UploadDir, "presentation-"+res.PresentationID+".pdf"))
	assert.Contains(t, r.html, "Intro to Go")
	assert.Contains(t, r.html, "<li>Goroutines</li>")

	p := store.only(t)
	assert.Equal(t, models.PresentationCompleted, p.Status)
	require.NotNil(t, p.PDFURL)
	assert.Equal(t, res.PDFURL, *p.PDFURL)
	assert.Equal(t, "u-1", p.UserID)
}

func TestCreateRejectsEmptyTopic(t *testing.T) {
	store := newMemStore()
	svc := newService(t, fakeLLM{text: outline}, store, &fileRenderer{})

	_, err := svc.Create(context.Background(), "u-1", "   ")

	assert.True(t, apperr.Is(err, apperr.Validation))
	assert.Empty(t, store.p)
}

func TestCreateFailures(t *testing.T) {
	tests := []struct {
		name     string
		llm      fakeLLM
		renderer *fileRenderer
	}{
		{"model call fails", fakeLLM{err: errors.New("timeout")}, &fileRenderer{}},
		{"renderer fails", fakeLLM{text: outline}, &fileRenderer{err: errors.New("chrome crashed")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			svc := newService(t, tt.llm, store, tt.renderer)

			_, err := svc.Create(context.Background(), "u-1", "Topic")

			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.RemoteCallFailed))
			assert.Equal(t, models.PresentationFailed, store.only(t).Status)
		})
	}
}

func TestCreateMalformedOutline(t *testing.T) {
	for name, text := range map[string]string{
		"prose":     "Here are some slides!",
		"no slides": `{"slides":[]}`,
	} {
		t.Run(name, func(t *testing.T) {
			store := newMemStore()
			svc := newService(t, fakeLLM{text: text}, store, &fileRenderer{})

			_, err := svc.Create(context.Background(), "u-1", "Topic")

			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.ModelOutputMalformed))
			assert.False(t, apperr.Is(err, apperr.RemoteCallFailed))
			assert.ErrorIs(t, err, llm.ErrMalformedOutput)
			assert.Equal(t, http.StatusInternalServerError, apperr.Status(err))
			assert.Equal(t, models.PresentationFailed, store.only(t).Status)
		})
	}
}

func TestParseOutline(t *testing.T) {
	deck, err := ParseOutline(`{"slides":[{"title":"Only"}]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{}, deck.Slides[0].Points)

	_, err = ParseOutline(`{"slides":[]}`)
	assert.ErrorIs(t, err, llm.ErrMalformedOutput)

	_, err = ParseOutline(`{"slides":[{"title":"","points":["x"]}]}`)
	assert.ErrorIs(t, err, llm.ErrMalformedOutput)
}

func TestRenderHTMLEscapesModelText(t *testing.T) {
	html, err := RenderHTML("<script>alert(1)</script>", models.SlideDeck{Slides: []models.Slide{
		{Title: "A & B", Points: []string{"<b>bold</b>"}},
	}})
	require.NoError(t, err)

	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "A &amp; B")
	assert.Contains(t, html, "&lt;b&gt;bold&lt;/b&gt;")
	assert.Equal(t, 2, strings.Count(html, `<div class="slide">`))
}
