// Package api provides the HTTP server for pobal.
// Every coordinator operation is exposed under /v1; the caller is taken
// from the X-Pobal-Principal header, optionally backed by a signature.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/pobal-network/pobal/internal/app/coordinator"
	"github.com/pobal-network/pobal/internal/domain"
	"github.com/pobal-network/pobal/internal/health"
	"github.com/pobal-network/pobal/internal/infra/metrics"
	"github.com/pobal-network/pobal/internal/security"
)

// maxBodyBytes bounds request bodies; every request body here is a small JSON object.
const maxBodyBytes = 64 << 10

// Store is the read side of the backend plus the faucet.
type Store interface {
	ListEvents(after int64, kind domain.EventKind, limit int) ([]domain.Event, error)
	BalanceOf(p domain.Principal) (domain.Balance, error)
	PoolBalance() (domain.Balance, error)
	LedgerEntries(account domain.Principal, limit int) ([]domain.LedgerEntry, error)
	Mint(p domain.Principal, amount domain.Balance, memo string) error
}

// Server is the pobal HTTP API server.
type Server struct {
	engine *coordinator.Engine
	store  Store
	health *health.Checker
	hub    *Hub
	log    *logrus.Entry
	now    func() time.Time
	replay *security.ReplayGuard

	metricsEnabled    bool
	requireSignatures bool
	faucetEnabled     bool
}

// NewServer creates a new API server.
func NewServer(engine *coordinator.Engine, store Store, log *logrus.Entry) *Server {
	return &Server{
		engine: engine,
		store:  store,
		log:    log,
		now:    time.Now,
		replay: security.NewReplayGuard(security.DefaultReplayCapacity),
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// RequireSignatures rejects mutating requests without a valid signature.
func (s *Server) RequireSignatures() { s.requireSignatures = true }

// EnableFaucet allows POST /v1/faucet to mint test funds.
func (s *Server) EnableFaucet() { s.faucetEnabled = true }

// SetHealth attaches a health checker to /health.
func (s *Server) SetHealth(h *health.Checker) { s.health = h }

// SetHub attaches the live event hub to /v1/events/stream.
func (s *Server) SetHub(h *Hub) { s.hub = h }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/members/{principal}", s.handleMember)
		r.Get("/tasks/{name}", s.handleTask)
		r.Get("/proofs/{task}", s.handleProof)
		r.Get("/events", s.handleEvents)
		r.Get("/wallet/{principal}", s.handleWallet)
		if s.hub != nil {
			r.Get("/events/stream", s.hub.HandleStream)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Use(s.authenticate)

			r.Post("/members", s.handleRegister)
			r.Delete("/members/self", s.handleDeregister)
			r.Delete("/members", s.handleClearMembers)

			r.Post("/tasks", s.handleAddTask)
			r.Delete("/tasks/{name}", s.handleRemoveTask)
			r.Delete("/tasks", s.handleClearTasks)
			r.Post("/tasks/{name}/fund", s.handleFundTask)

			r.Put("/interval", s.handleSetInterval)
			r.Post("/era", s.handleStartEra)
			r.Post("/proof", s.handleSubmitProof)
			r.Post("/complete", s.handleCompleteTask)

			r.Post("/faucet", s.handleFaucet)
		})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// ─── Middleware ─────────────────────────────────────────────────────────────

type callerKey struct{}

// callerFrom returns the principal resolved by authenticate.
func callerFrom(ctx context.Context) domain.Principal {
	p, _ := ctx.Value(callerKey{}).(domain.Principal)
	return p
}

// authenticate resolves the caller. With signatures required, the body is
// read once so it can be verified, then restored for the handler, and each
// signed request is accepted at most once.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		var caller domain.Principal
		if s.requireSignatures {
			caller, err = s.replay.Verify(r, body, s.now())
		} else {
			caller, err = domain.ParsePrincipal(r.Header.Get(security.HeaderPrincipal))
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, caller)))
	})
}

// instrument records request counts, latency and a debug log line.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		metrics.APIRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		metrics.APILatency.WithLabelValues(route).Observe(elapsed.Seconds())
		s.log.WithFields(logrus.Fields{
			"method":  r.Method,
			"route":   route,
			"status":  status,
			"elapsed": elapsed,
		}).Debug("request")
	})
}

// corsMiddleware adds CORS headers for local dashboards.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Pobal-Principal, X-Pobal-Timestamp, X-Pobal-Signature")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ─── Responses ──────────────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    http.StatusText(status),
		},
	})
}

// writeDomainError maps err onto its HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, StatusFor(err), err.Error())
}

// StatusFor returns the HTTP status code for an operation error.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, security.ErrBadSignature):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotOwner),
		errors.Is(err, domain.ErrNotMember),
		errors.Is(err, domain.ErrNotActiveParticipant),
		errors.Is(err, domain.ErrFaucetDisabled):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrMemberNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyMember),
		errors.Is(err, domain.ErrTaskExists),
		errors.Is(err, domain.ErrEraNotReached),
		errors.Is(err, domain.ErrTaskIncomplete),
		errors.Is(err, domain.ErrTaskAlreadyComplete),
		errors.Is(err, domain.ErrNoMembers),
		errors.Is(err, domain.ErrNoTasks),
		errors.Is(err, coordinator.ErrAlreadyInitialized):
		return http.StatusConflict
	case errors.Is(err, domain.ErrBalanceOverflow),
		errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidPrincipal),
		errors.Is(err, domain.ErrInvalidTaskName),
		errors.Is(err, domain.ErrInvalidProof):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotInitialized):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// pathParam returns an unescaped URL parameter.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
