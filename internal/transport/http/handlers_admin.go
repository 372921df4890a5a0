package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"caritas/internal/issuer"
	"caritas/internal/transport/http/json"
	"caritas/internal/transport/http/shared"
	dErrors "caritas/pkg/domain-errors"
	"caritas/pkg/validation"
)

// AdminHandler exposes issuance operations to back-office tooling. It is
// mounted only when an issuer identity and admin token are configured.
type AdminHandler struct {
	issuer *issuer.Service
}

// NewAdminHandler creates the operator-facing handler.
func NewAdminHandler(issuerSvc *issuer.Service) *AdminHandler {
	return &AdminHandler{issuer: issuerSvc}
}

type onboardRequest struct {
	UserID   string `json:"userId" validate:"required,notblank"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *AdminHandler) handleOnboardUser(w http.ResponseWriter, r *http.Request) {
	var req onboardRequest
	if err := json.Decode(r, &req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := validation.Validate(req); err != nil {
		shared.WriteError(w, err)
		return
	}

	ob, err := h.issuer.OnboardUser(r.Context(), req.UserID, req.Password)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	json.WriteJSON(w, http.StatusCreated, ob)
}

type issueRequest struct {
	SubjectDID     string         `json:"subjectDid" validate:"required,notblank"`
	CustodyID      string         `json:"custodyId,omitempty"`
	CredentialType string         `json:"credentialType" validate:"required,notblank"`
	Claims         map[string]any `json:"claims,omitempty"`
}

func (h *AdminHandler) handleIssueCredential(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := json.Decode(r, &req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := validation.Validate(req); err != nil {
		shared.WriteError(w, err)
		return
	}

	iss, err := h.issuer.IssueCredential(r.Context(), issuer.IssueRequest{
		SubjectDID:     req.SubjectDID,
		CustodyID:      req.CustodyID,
		CredentialType: req.CredentialType,
		Claims:         req.Claims,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	json.WriteJSON(w, http.StatusCreated, iss)
}

type revokeRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (h *AdminHandler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	vcID := chi.URLParam(r, "vcID")

	var req revokeRequest
	if r.ContentLength > 0 {
		if err := json.Decode(r, &req); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
	}

	tx, err := h.issuer.Revoke(r.Context(), vcID, req.Reason)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, tx)
}

func (h *AdminHandler) handleSuspend(w http.ResponseWriter, r *http.Request) {
	tx, err := h.issuer.Suspend(r.Context(), chi.URLParam(r, "vcID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, tx)
}

func (h *AdminHandler) handleActivate(w http.ResponseWriter, r *http.Request) {
	tx, err := h.issuer.Activate(r.Context(), chi.URLParam(r, "vcID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, tx)
}
