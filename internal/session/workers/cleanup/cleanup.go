// Package cleanup sweeps expired protocol state on a fixed interval: stale
// challenges, expired sessions, and verified sessions past the polling grace
// window.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// SessionStore exposes cleanup for presentation sessions.
type SessionStore interface {
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
	DeleteVerifiedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// ChallengeStore exposes cleanup for expired challenges.
type ChallengeStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// CleanupResult summarizes the deletions performed by a cleanup run.
type CleanupResult struct {
	DeletedChallenges       int
	DeletedExpiredSessions  int
	DeletedVerifiedSessions int
}

// CleanupService periodically removes expired protocol artifacts.
type CleanupService struct {
	sessionStore   SessionStore
	challengeStore ChallengeStore
	interval       time.Duration
	verifiedGrace  time.Duration
	logger         *slog.Logger
}

// CleanupOption configures CleanupService.
type CleanupOption func(*CleanupService)

// WithCleanupInterval overrides the sweep interval when greater than zero.
func WithCleanupInterval(interval time.Duration) CleanupOption {
	return func(s *CleanupService) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithVerifiedGrace overrides how long verified sessions survive after
// verification before the sweep reclaims them.
func WithVerifiedGrace(grace time.Duration) CleanupOption {
	return func(s *CleanupService) {
		if grace > 0 {
			s.verifiedGrace = grace
		}
	}
}

// WithCleanupLogger overrides the logger used for cleanup errors.
func WithCleanupLogger(logger *slog.Logger) CleanupOption {
	return func(s *CleanupService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a CleanupService with required stores and options applied.
func New(sessionStore SessionStore, challengeStore ChallengeStore, opts ...CleanupOption) (*CleanupService, error) {
	if sessionStore == nil || challengeStore == nil {
		return nil, fmt.Errorf("sessionStore and challengeStore are required")
	}
	svc := &CleanupService{
		sessionStore:   sessionStore,
		challengeStore: challengeStore,
		interval:       time.Minute,
		verifiedGrace:  30 * time.Second,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// Start runs cleanup periodically until ctx is cancelled.
func (s *CleanupService) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "session cleanup failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce performs a single sweep and returns a summary of deletions.
// Errors from individual stores are aggregated and returned together.
func (s *CleanupService) RunOnce(ctx context.Context) (CleanupResult, error) {
	now := time.Now()
	var res CleanupResult
	var errs []error

	deletedChallenges, err := s.challengeStore.DeleteExpired(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("delete expired challenges: %w", err))
	} else {
		res.DeletedChallenges = deletedChallenges
	}

	deletedExpired, err := s.sessionStore.DeleteExpiredSessions(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("delete expired sessions: %w", err))
	} else {
		res.DeletedExpiredSessions = deletedExpired
	}

	deletedVerified, err := s.sessionStore.DeleteVerifiedBefore(ctx, now.Add(-s.verifiedGrace))
	if err != nil {
		errs = append(errs, fmt.Errorf("delete verified sessions: %w", err))
	} else {
		res.DeletedVerifiedSessions = deletedVerified
	}

	if len(errs) > 0 {
		return res, errors.Join(errs...)
	}
	return res, nil
}
