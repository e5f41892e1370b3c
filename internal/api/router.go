package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/Giopap1991/ai-agents/internal/auth"
)

// Routes builds the API router. Authentication runs per route, after
// method matching, so a wrong verb is answered with 405 before any
// session lookup.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	origins := h.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Message: "Not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Message: "Method not allowed"})
	})

	r.Get("/healthz", h.Health)

	authed := r.With(h.requireUser)
	authed.Post("/api/agent/master", h.GeneratePlan)
	authed.Post("/api/agent/orchestrator", h.Orchestrate)
	authed.Post("/api/email/campaign", h.SendCampaign)
	authed.Post("/api/presentation/create", h.CreatePresentation)
	authed.Get("/api/tasks/list", h.ListTasks)

	if h.UploadDir != "" {
		prefix := "/" + strings.Trim(h.UploadURLPrefix, "/")
		files := http.StripPrefix(prefix, http.FileServer(http.Dir(h.UploadDir)))
		r.Get(prefix+"/*", files.ServeHTTP)
	}

	return r
}

func (h *Handler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := h.Auth.Resolve(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Message: "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
	})
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		h.Log.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// mustUser returns the user placed on the context by requireUser.
func mustUser(r *http.Request) *auth.User {
	u, ok := auth.FromContext(r.Context())
	if !ok {
		panic("api: handler reached without an authenticated user")
	}
	return u
}
