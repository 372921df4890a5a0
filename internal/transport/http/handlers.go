package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"caritas/internal/presentation"
	"caritas/internal/transport/http/json"
	"caritas/internal/transport/http/shared"
	"caritas/internal/verifier"
	dErrors "caritas/pkg/domain-errors"
)

// Handler is the thin HTTP layer over the verifier service. It delegates
// to domain services without embedding business logic so transport
// concerns remain isolated.
type Handler struct {
	verifier *verifier.Service
	logger   *slog.Logger
}

// NewHandler creates the holder-facing HTTP handler.
func NewHandler(verifierSvc *verifier.Service, logger *slog.Logger) *Handler {
	return &Handler{verifier: verifierSvc, logger: logger}
}

type challengeResponse struct {
	Challenge string    `json:"challenge"`
	Domain    string    `json:"domain"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *Handler) handleCreateChallenge(w http.ResponseWriter, r *http.Request) {
	ch, err := h.verifier.NewChallenge(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	json.WriteJSON(w, http.StatusCreated, challengeResponse{
		Challenge: ch.Value,
		Domain:    h.verifier.Domain(),
		ExpiresAt: ch.ExpiresAt,
	})
}

type startSessionRequest struct {
	Challenge string `json:"challenge"`
}

type sessionResponse struct {
	SessionID string    `json:"sessionId"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expiresAt"`
	Reason    string    `json:"reason,omitempty"`
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.Decode(r, &req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	sess, err := h.verifier.StartSession(r.Context(), presentation.Presentation{}, req.Challenge)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	json.WriteJSON(w, http.StatusCreated, sessionResponse{
		SessionID: sess.ID,
		Status:    string(sess.Status),
		ExpiresAt: sess.ExpiresAt,
	})
}

func (h *Handler) handleSubmitPresentation(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var vp presentation.Presentation
	if err := json.Decode(r, &vp); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid presentation body"))
		return
	}

	result, err := h.verifier.SubmitPresentation(r.Context(), sessionID, vp)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handlePollSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := h.verifier.Poll(r.Context(), sessionID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	resp := sessionResponse{
		SessionID: sess.ID,
		Status:    string(sess.Status),
		ExpiresAt: sess.ExpiresAt,
	}
	if reason, ok := sess.CheckinData["reason"].(string); ok {
		resp.Reason = reason
	}
	json.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleConsumeSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := h.verifier.Consume(r.Context(), sessionID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, sess)
}
