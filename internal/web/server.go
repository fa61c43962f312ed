// Package web serves the CardSnap JSON API.
//
// Authenticated routes identify the caller by the X-User-ID header alone. The
// id is not a secret token: anyone who knows it acts as that user, so the API
// must only be exposed behind a trusted gateway or on a private network.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Bruhadev45/Cardsnap-AI/internal/assistant"
	"github.com/Bruhadev45/Cardsnap-AI/internal/capture"
	"github.com/Bruhadev45/Cardsnap-AI/internal/ratelimit"
	"github.com/Bruhadev45/Cardsnap-AI/internal/service"
	"github.com/Bruhadev45/Cardsnap-AI/internal/validation"
)

// UserHeader carries the caller's user id on every authenticated request. It
// is trusted as-is; see the package doc.
const UserHeader = "X-User-ID"

const maxJSONBody = 1 << 20 // 1 MB

type Server struct {
	users     *service.UserService
	contacts  *service.ContactService
	scans     *capture.Registry
	assistant *assistant.Assistant
	limiter   *ratelimit.KeyedRateLimiter
	validate  *validation.Validator
	router    chi.Router
	logger    *slog.Logger
	now       func() time.Time
}

func NewServer(
	users *service.UserService,
	contacts *service.ContactService,
	scans *capture.Registry,
	asst *assistant.Assistant,
	limiter *ratelimit.KeyedRateLimiter,
	logger *slog.Logger,
) *Server {
	s := &Server{
		users:     users,
		contacts:  contacts,
		scans:     scans,
		assistant: asst,
		limiter:   limiter,
		validate:  validation.New(),
		router:    chi.NewRouter(),
		logger:    logger,
		now:       time.Now,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler { return requestLogger(s.logger, next) })
	r.Use(securityHeaders)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.requireUser)

		r.Get("/me", s.handleGetMe)
		r.Put("/me", s.handleUpdateMe)

		r.Post("/scans", s.handleStartScan)
		r.Route("/scans/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetScan)
			r.Delete("/", s.handleEndScan)
			r.With(s.rateLimited).Post("/capture", s.handleCapture)
			r.Post("/back", s.handleChooseBack)
			r.With(s.rateLimited).Post("/skip", s.handleSkipBack)
			r.Post("/retake", s.handleRetake)
			r.Post("/cancel", s.handleCancel)
			r.Post("/confirm", s.handleConfirm)
		})

		r.Get("/contacts", s.handleListContacts)
		r.Delete("/contacts", s.handleClearContacts)
		r.Get("/contacts/companies", s.handleCompanies)
		r.Get("/contacts/export.csv", s.handleExportCSV)
		r.Get("/contacts/{id}", s.handleGetContact)
		r.Put("/contacts/{id}", s.handleUpdateContact)
		r.Delete("/contacts/{id}", s.handleDeleteContact)
		r.Get("/contacts/{id}/vcard", s.handleVCard)
		r.Get("/contacts/{id}/image/{side}", s.handleContactImage)
		r.Get("/storage", s.handleStorage)

		r.With(s.rateLimited).Post("/assistant", s.handleAssistant)
	})
}

type ctxKey struct{}

// requireUser resolves the X-User-ID header to a registered user.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(UserHeader)
		if id == "" {
			writeError(w, http.StatusUnauthorized, "missing "+UserHeader+" header")
			return
		}
		u, err := s.users.Get(r.Context(), id)
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "unknown user")
			return
		}
		if err != nil {
			s.logger.Error("resolve user failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to resolve user")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, u.ID)))
	})
}

func ownerID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

// rateLimited guards the endpoints that call a model.
func (s *Server) rateLimited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(ownerID(r)) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// securityHeaders sets browser hardening headers on every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// HTTPServer wraps s in an http.Server listening on addr. Write timeout
// leaves room for a full model fallback chain.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler may continue.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := s.validate.Validate(dst); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: verr.Fields})
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
