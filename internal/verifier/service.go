// Package verifier runs the challenge-response presentation protocol:
// challenge issuance, pollable sessions, and full verification of
// submitted presentations against issuer signatures and on-chain status.
package verifier

import (
	"context"
	"log/slog"
	"time"

	"caritas/internal/challenge"
	"caritas/internal/credential"
	"caritas/internal/did"
	"caritas/internal/ledger"
	"caritas/internal/platform/metrics"
	"caritas/internal/presentation"
	"caritas/internal/session"
	"caritas/internal/verifier/tracer"
	domainerrors "caritas/pkg/domain-errors"
	"caritas/pkg/platform/audit"
)

// Rejection reasons reported in results, metrics, and audit events.
const (
	ReasonHolderDID         = "holder_did_invalid"
	ReasonHolderSignature   = "holder_signature_invalid"
	ReasonChallenge         = "challenge_rejected"
	ReasonDomainMismatch    = "domain_mismatch"
	ReasonNoCredentials     = "no_credentials"
	ReasonIssuerDID         = "issuer_did_invalid"
	ReasonIssuerSignature   = "issuer_signature_invalid"
	ReasonCredentialExpired = "credential_expired"
	ReasonSubjectMismatch   = "subject_mismatch"
	ReasonStatusNotActive   = "status_not_active"
	ReasonStatusUnavailable = "status_unavailable"
)

// Result is the outcome of a presentation submission.
type Result struct {
	SessionID string `json:"sessionId"`
	Verified  bool   `json:"verified"`
	Reason    string `json:"reason,omitempty"`
}

// Service verifies presentations submitted against open sessions.
type Service struct {
	challenges *challenge.Service
	sessions   *session.Service
	sync       *ledger.Sync
	audit      audit.Publisher
	metrics    *metrics.Metrics
	tracer     tracer.Tracer
	logger     *slog.Logger
	domain     string
	now        func() time.Time
}

// Option configures the verifier service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics enables verification counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTracer sets the tracer. Defaults to a no-op tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires the verifier over its protocol services. The ledger
// sync is required: status checks are part of verification.
func NewService(domain string, challenges *challenge.Service, sessions *session.Service, sync *ledger.Sync, auditPub audit.Publisher, opts ...Option) (*Service, error) {
	if domain == "" {
		return nil, domainerrors.New(domainerrors.CodeValidation, "verification domain is required")
	}
	if challenges == nil || sessions == nil || sync == nil || auditPub == nil {
		return nil, domainerrors.New(domainerrors.CodeInternal, "challenge, session, ledger, and audit are required")
	}
	s := &Service{
		challenges: challenges,
		sessions:   sessions,
		sync:       sync,
		audit:      auditPub,
		tracer:     tracer.NewNoop(),
		logger:     slog.Default(),
		domain:     domain,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Domain returns the domain holders must bind into presentation proofs.
func (s *Service) Domain() string {
	return s.domain
}

// NewChallenge issues a single-use challenge for a holder to sign.
func (s *Service) NewChallenge(ctx context.Context) (challenge.Challenge, error) {
	ch, err := s.challenges.Create(ctx)
	if err != nil {
		return challenge.Challenge{}, err
	}
	if s.metrics != nil {
		s.metrics.ChallengesIssued.Inc()
	}
	return ch, nil
}

// StartSession opens a pollable session bound to the given challenge.
// The presentation may be zero-valued when the holder submits later.
func (s *Service) StartSession(ctx context.Context, vp presentation.Presentation, challengeValue string) (session.Session, error) {
	sess, err := s.sessions.Create(ctx, vp, challengeValue)
	if err != nil {
		return session.Session{}, err
	}
	if s.metrics != nil {
		s.metrics.ActiveSessions.Inc()
	}
	return sess, nil
}

// SubmitPresentation runs full verification of a signed presentation and
// transitions the session to verified or failed. A verification failure
// is reported in the Result, not as an error; errors are reserved for
// protocol violations such as an unknown or already-settled session.
func (s *Service) SubmitPresentation(ctx context.Context, sessionID string, vp presentation.Presentation) (Result, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanSubmit,
		tracer.String(tracer.AttrSessionID, sessionID),
		tracer.String(tracer.AttrHolderDID, vp.Holder),
	)

	sess, err := s.sessions.GetStatus(ctx, sessionID)
	if err != nil {
		span.End(err)
		return Result{}, err
	}
	if sess.Status == session.StatusExpired {
		span.End(session.ErrSessionExpired)
		return Result{}, session.ErrSessionExpired
	}
	if sess.Status != session.StatusPending {
		err := domainerrors.New(domainerrors.CodeConflict, "session already settled")
		span.End(err)
		return Result{}, err
	}

	if err := s.sessions.SetPresentation(ctx, sessionID, vp); err != nil {
		span.End(err)
		return Result{}, err
	}

	reason := s.verify(ctx, vp, span)
	if reason == "" {
		if err := s.sessions.UpdateStatus(ctx, sessionID, session.StatusVerified, nil); err != nil {
			span.End(err)
			return Result{}, err
		}
		if s.metrics != nil {
			s.metrics.PresentationsVerified.Inc()
		}
		s.emit(ctx, audit.Event{
			Action:   audit.ActionPresentationVerified,
			Subject:  vp.Holder,
			Resource: sessionID,
		})
		span.End(nil)
		return Result{SessionID: sessionID, Verified: true}, nil
	}

	if err := s.sessions.UpdateStatus(ctx, sessionID, session.StatusFailed, map[string]any{"reason": reason}); err != nil {
		span.End(err)
		return Result{}, err
	}
	if s.metrics != nil {
		s.metrics.PresentationsRejected.WithLabelValues(reason).Inc()
	}
	s.emit(ctx, audit.Event{
		Action:   audit.ActionPresentationFailed,
		Subject:  vp.Holder,
		Resource: sessionID,
		Detail:   map[string]string{"reason": reason},
	})
	s.logger.Info("presentation rejected", "session_id", sessionID, "holder", vp.Holder, "reason", reason)
	span.SetAttributes(tracer.String(tracer.AttrReason, reason))
	span.End(nil)
	return Result{SessionID: sessionID, Verified: false, Reason: reason}, nil
}

// verify runs every check and returns the first rejection reason, or
// empty on success. It never returns an error: verification fails closed.
func (s *Service) verify(ctx context.Context, vp presentation.Presentation, span tracer.Span) string {
	holder, err := did.Parse(vp.Holder)
	if err != nil {
		return ReasonHolderDID
	}

	if vp.Proof.Domain != s.domain {
		return ReasonDomainMismatch
	}

	if !presentation.VerifySignature(vp, holder.Address) {
		return ReasonHolderSignature
	}

	_, chSpan := s.tracer.Start(ctx, tracer.SpanChallenge)
	err = s.challenges.Verify(ctx, vp.Proof.Challenge)
	chSpan.End(err)
	if s.metrics != nil {
		outcome := "accepted"
		if err != nil {
			outcome = "rejected"
		}
		s.metrics.ChallengesConsumed.WithLabelValues(outcome).Inc()
	}
	if err != nil {
		return ReasonChallenge
	}

	if len(vp.VerifiableCredential) == 0 {
		return ReasonNoCredentials
	}

	span.SetAttributes(tracer.Int64(tracer.AttrVCCount, int64(len(vp.VerifiableCredential))))
	for _, vc := range vp.VerifiableCredential {
		if reason := s.verifyCredential(ctx, vc, vp.Holder); reason != "" {
			return reason
		}
	}
	return ""
}

func (s *Service) verifyCredential(ctx context.Context, vc credential.Credential, holderDID string) string {
	ctx, span := s.tracer.Start(ctx, tracer.SpanVerifyVC, tracer.String(tracer.AttrVCID, vc.ID))
	defer span.End(nil)

	issuer, err := did.Parse(vc.Issuer.ID)
	if err != nil || issuer.Type != did.TypeIssuer {
		return ReasonIssuerDID
	}
	if !credential.VerifySignature(vc, issuer.Address) {
		return ReasonIssuerSignature
	}
	if vc.Expired(s.now()) {
		return ReasonCredentialExpired
	}
	if vc.SubjectID() != holderDID {
		return ReasonSubjectMismatch
	}

	_, statusSpan := s.tracer.Start(ctx, tracer.SpanChainStatus)
	status, err := s.sync.VCStatus(ctx, vc.ID)
	statusSpan.End(err)
	if err != nil {
		s.logger.Error("credential status lookup failed", "vc_id", vc.ID, "error", err)
		return ReasonStatusUnavailable
	}
	if status != credential.StatusActive {
		return ReasonStatusNotActive
	}
	return ""
}

// Poll returns the session's current state without consuming it.
func (s *Service) Poll(ctx context.Context, sessionID string) (session.Session, error) {
	return s.sessions.GetStatus(ctx, sessionID)
}

// Consume performs the one-time consumption of a settled session.
func (s *Service) Consume(ctx context.Context, sessionID string) (session.Session, error) {
	sess, err := s.sessions.VerifyAndMarkUsed(ctx, sessionID)
	if err != nil {
		return session.Session{}, err
	}
	if s.metrics != nil {
		s.metrics.ActiveSessions.Dec()
	}
	return sess, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	event.Timestamp = s.now()
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.Error("audit emit failed", "action", event.Action, "error", err)
	}
}
