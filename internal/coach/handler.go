package coach

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/2beens/posecoach/internal/middleware"
	"github.com/2beens/posecoach/internal/pose"
	"github.com/2beens/posecoach/internal/protocol"
	"github.com/2beens/posecoach/internal/session"
	"github.com/2beens/posecoach/internal/telemetry/metrics"
	"github.com/2beens/posecoach/internal/telemetry/tracing"
	"github.com/2beens/posecoach/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=coach_test
type sessionStore interface {
	Protocols() []protocol.Protocol
	Create(ctx context.Context, protocolName string) (session.State, error)
	State(ctx context.Context, id string) (session.State, error)
	Delete(ctx context.Context, id string) error
	Submit(ctx context.Context, id string, detection pose.Detection) error
	Do(ctx context.Context, id string, cmd session.Command) (session.State, error)
	Overlay(ctx context.Context, id string) (Overlay, error)
}

type Handler struct {
	store sessionStore
}

func NewHandler(store sessionStore) *Handler {
	return &Handler{
		store: store,
	}
}

type protocolView struct {
	protocol.Protocol
	DurationSeconds int `json:"durationSeconds"`
}

type newSessionRequest struct {
	Protocol string `json:"protocol"`
}

// framesRequest is one detector result. Error is empty on success.
type framesRequest struct {
	Bodies []pose.Frame `json:"bodies"`
	Error  string       `json:"error"`
	At     *time.Time   `json:"at,omitempty"`
}

func (req framesRequest) detection() (pose.Detection, error) {
	var at time.Time
	if req.At != nil {
		at = *req.At
	}
	return pose.NewDetection(req.Bodies, req.Error, at)
}

// SetupRoutes registers the session API. Frame ingest is rate limited per
// session when rateLimiter is set.
func (h *Handler) SetupRoutes(
	router *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	metricsManager *metrics.Manager,
	framesAllowedPerMin int,
) {
	router.HandleFunc("/protocols", h.HandleProtocols).Methods("GET", "OPTIONS").Name("list-protocols")
	router.HandleFunc("/sessions", h.HandleCreate).Methods("POST", "OPTIONS").Name("new-session")
	router.HandleFunc("/sessions/{id}", h.HandleGet).Methods("GET", "OPTIONS").Name("get-session")
	router.HandleFunc("/sessions/{id}", h.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-session")
	router.HandleFunc("/sessions/{id}/frame", h.HandleOverlay).Methods("GET", "OPTIONS").Name("get-overlay")
	router.HandleFunc("/sessions/{id}/{command:start|toggle|skip|switch-side|reset}", h.HandleCommand).
		Methods("POST", "OPTIONS").Name("session-command")

	framesRouter := router.PathPrefix("/sessions/{id}/frames").Subrouter()
	framesRouter.HandleFunc("", h.HandleFrames).Methods("POST", "OPTIONS").Name("submit-frames")
	if rateLimiter != nil {
		framesRouter.Use(middleware.RateLimit(rateLimiter, "frames", framesAllowedPerMin, metricsManager))
	}
}

func (h *Handler) HandleProtocols(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.protocols.list")
	defer span.End()

	protocols := h.store.Protocols()
	views := make([]protocolView, 0, len(protocols))
	for _, p := range protocols {
		views = append(views, protocolView{
			Protocol:        p,
			DurationSeconds: p.DurationSeconds(),
		})
	}
	pkg.WriteJSON(w, map[string]any{
		"protocols": views,
		"total":     len(views),
	}, http.StatusOK)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.session.create")
	defer span.End()

	var req newSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("new session, unmarshal json params: %s", err)
		http.Error(w, "invalid session request", http.StatusBadRequest)
		return
	}
	if req.Protocol == "" {
		http.Error(w, "error, protocol empty", http.StatusBadRequest)
		return
	}

	state, err := h.store.Create(ctx, req.Protocol)
	if err != nil {
		writeError(w, "create session", err)
		return
	}

	pkg.WriteJSON(w, state, http.StatusCreated)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.session.get")
	defer span.End()

	id := mux.Vars(r)["id"]
	span.SetAttributes(attribute.String("session.id", id))

	state, err := h.store.State(ctx, id)
	if err != nil {
		writeError(w, "get session", err)
		return
	}

	pkg.WriteJSON(w, state, http.StatusOK)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.session.delete")
	defer span.End()

	id := mux.Vars(r)["id"]
	span.SetAttributes(attribute.String("session.id", id))

	if err := h.store.Delete(ctx, id); err != nil {
		writeError(w, "delete session", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleFrames(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	var req framesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Debugf("session [%s] frames, unmarshal json: %s", id, err)
		http.Error(w, "invalid frames request", http.StatusBadRequest)
		return
	}

	detection, err := req.detection()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.store.Submit(ctx, id, detection); err != nil {
		writeError(w, "submit frames", err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) HandleOverlay(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	overlay, err := h.store.Overlay(r.Context(), id)
	if err != nil {
		writeError(w, "get overlay", err)
		return
	}

	pkg.WriteJSON(w, overlay, http.StatusOK)
}

func (h *Handler) HandleCommand(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.session.command")
	defer span.End()

	vars := mux.Vars(r)
	id := vars["id"]
	span.SetAttributes(attribute.String("session.id", id))

	cmd, err := session.ParseCommand(vars["command"])
	if err != nil {
		http.Error(w, "unknown command", http.StatusBadRequest)
		return
	}

	state, err := h.store.Do(ctx, id, cmd)
	if err != nil {
		writeError(w, "session command", err)
		return
	}

	pkg.WriteJSON(w, state, http.StatusOK)
}

func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		http.Error(w, "session not found", http.StatusNotFound)
	case errors.Is(err, ErrNoOverlay):
		http.Error(w, "no recent frame", http.StatusNotFound)
	case errors.Is(err, protocol.ErrUnknownProtocol):
		http.Error(w, "unknown protocol", http.StatusBadRequest)
	case errors.Is(err, session.ErrUnknownCommand):
		http.Error(w, "unknown command", http.StatusBadRequest)
	case errors.Is(err, session.ErrRunnerClosed):
		http.Error(w, "session closed", http.StatusGone)
	default:
		log.Errorf("%s: %s", op, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
