// Package http serves the visitor site and its JSON API over HTTP.
package http

import (
	"context"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/lemon/internal/logging"
	"github.com/aretw0/lemon/internal/presentation/web"
	"github.com/aretw0/lemon/pkg/gate"
	"github.com/aretw0/lemon/pkg/session"
	"github.com/getkin/kin-openapi/routers"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const defaultMaxUpload = 4 << 20

// Page is the pre-rendered content of one surprise page.
type Page struct {
	Title   string
	Body    template.HTML
	Gallery bool
}

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	Manager  *session.Manager
	Gate     *gate.Gate
	Renderer *web.Renderer
	Pages    map[string]Page

	// Invite is the base64 secret invite. Empty disables /invite.
	Invite string
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// AssetsDir is served at /assets/ when set.
	AssetsDir string
	// CORSOrigin enables CORS for the API when set.
	CORSOrigin string
	// MaxUploadBytes bounds image uploads.
	MaxUploadBytes int64
	// SecureCookie marks the session cookie Secure.
	SecureCookie bool
	// CookieSecret signs session cookies when set.
	CookieSecret []byte
	Logger       *slog.Logger

	contract routers.Router
}

// NewHandler creates the HTTP handler for s. It panics if the embedded
// OpenAPI contract is invalid.
func NewHandler(s *Server) http.Handler {
	if s.Logger == nil {
		s.Logger = logging.NewNop()
	}
	if s.MaxUploadBytes <= 0 {
		s.MaxUploadBytes = defaultMaxUpload
	}
	contract, err := loadContract(context.Background())
	if err != nil {
		panic(err)
	}
	s.contract = contract

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.getHealth)
	r.Get("/openapi.yaml", s.getOpenAPI)
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics)
	}
	if s.AssetsDir != "" {
		r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.Dir(s.AssetsDir))))
	}

	r.Group(func(r chi.Router) {
		r.Use(s.withSession)

		r.Get("/", s.getLanding)
		r.Get(s.Gate.Hub(), s.getHub)
		r.Get("/pages/{key}", s.getPage)
		r.Get("/invite", s.getInvite)

		r.Route("/api", func(r chi.Router) {
			r.Use(s.enableCORS)
			r.Use(s.validateRequests)
			r.Post("/pages/{key}/visited", s.postVisited)
			r.Get("/visited", s.getVisited)
			r.Get("/images", s.getImages)
			r.Post("/images", s.postImage)
			r.Delete("/images/{index}", s.deleteImage)
			r.Get("/music", s.getMusic)
			r.Post("/music", s.postMusic)
			r.Get("/events", s.subscribeEvents)
			r.Post("/session/end", s.postEndSession)
		})
	})

	return r
}

func (s *Server) enableCORS(next http.Handler) http.Handler {
	if s.CORSOrigin == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.CORSOrigin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// getHealth handles GET /health.
func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "err", err)
	}
}

type errorResponse struct {
	Error    string `json:"error"`
	Message  string `json:"message,omitempty"`
	Redirect string `json:"redirect,omitempty"`
	Frontier *int   `json:"frontier,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
