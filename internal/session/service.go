package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"caritas/internal/presentation"
	dErrors "caritas/pkg/domain-errors"
)

// Service is an explicitly constructed in-memory session store with an
// injected clock and TTL. It is owned by the composition root and handed to
// request handlers; there is no ambient global state. All state checks and
// mutations happen under one lock so the cleanup sweep can never delete a
// session mid-verification.
type Service struct {
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// Option configures the session service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger configures a logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService constructs a session service with the given TTL.
func NewService(ttl time.Duration, opts ...Option) (*Service, error) {
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeInternal, "session ttl must be positive")
	}
	svc := &Service{
		ttl:      ttl,
		now:      time.Now,
		logger:   slog.Default(),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Create allocates a pending session for the presentation round trip.
func (s *Service) Create(_ context.Context, vp presentation.Presentation, challenge string) (Session, error) {
	now := s.now()
	sess := &Session{
		ID:           uuid.NewString(),
		Presentation: vp,
		Challenge:    challenge,
		Status:       StatusPending,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return *sess, nil
}

// UpdateStatus records the verification outcome once the async signing round
// trip completes. Only pending sessions transition; an expired session
// reports ErrSessionExpired instead.
func (s *Service) UpdateStatus(_ context.Context, id string, status Status, checkinData map[string]any) error {
	if status != StatusVerified && status != StatusFailed {
		return dErrors.New(dErrors.CodeBadRequest, "status must be verified or failed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrInvalidSession
	}
	if s.expireLocked(sess) {
		return ErrSessionExpired
	}
	if sess.Status != StatusPending {
		return dErrors.New(dErrors.CodeConflict, "session already resolved")
	}

	sess.Status = status
	sess.CheckinData = checkinData
	if status == StatusVerified {
		at := s.now()
		sess.VerifiedAt = &at
	}
	return nil
}

// SetPresentation replaces the session's presentation with the signed one
// received from the wallet.
func (s *Service) SetPresentation(_ context.Context, id string, vp presentation.Presentation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrInvalidSession
	}
	if s.expireLocked(sess) {
		return ErrSessionExpired
	}
	sess.Presentation = vp
	return nil
}

// GetStatus is side-effect-free polling, except that a session past its TTL
// is lazily marked expired. The record is not deleted, so pollers observe the
// terminal state.
func (s *Service) GetStatus(_ context.Context, id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrInvalidSession
	}
	s.expireLocked(sess)
	return *sess, nil
}

// VerifyAndMarkUsed enforces one-time consumption. On success the used flag
// flips and the session contents are returned without deleting the record,
// supporting a short post-consumption polling grace window.
func (s *Service) VerifyAndMarkUsed(_ context.Context, id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrInvalidSession
	}
	if sess.Used {
		return Session{}, ErrSessionUsed
	}
	if s.now().After(sess.ExpiresAt) {
		delete(s.sessions, id)
		return Session{}, ErrSessionExpired
	}

	sess.Used = true
	return *sess, nil
}

// DeleteExpiredSessions removes sessions past their TTL; called by the sweep.
func (s *Service) DeleteExpiredSessions(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

// DeleteVerifiedBefore removes sessions that completed verification before
// cutoff, bounding memory without breaking in-flight polls.
func (s *Service) DeleteVerifiedBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, sess := range s.sessions {
		if sess.Status == StatusVerified && sess.VerifiedAt != nil && sess.VerifiedAt.Before(cutoff) {
			delete(s.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

// Len reports the number of live sessions, for the active-sessions gauge.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// expireLocked marks sess expired if past TTL. Caller holds s.mu.
func (s *Service) expireLocked(sess *Session) bool {
	if sess.Status == StatusExpired {
		return true
	}
	if s.now().After(sess.ExpiresAt) {
		sess.Status = StatusExpired
		return true
	}
	return false
}
