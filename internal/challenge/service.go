package challenge

import (
	"context"
	"log/slog"
	"time"

	dErrors "caritas/pkg/domain-errors"
	"caritas/pkg/secrets"
)

// Service issues single-use challenges with a fixed TTL. The clock is
// injected so the expiry rules are testable without sleeping.
type Service struct {
	store  Store
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// Option configures the challenge service.
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

// NewService constructs a challenge service over the given store and TTL.
func NewService(store Store, ttl time.Duration, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "challenge store is required")
	}
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeInternal, "challenge ttl must be positive")
	}
	svc := &Service{
		store:  store,
		ttl:    ttl,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Create issues a fresh random challenge.
func (s *Service) Create(ctx context.Context) (Challenge, error) {
	value, err := secrets.Generate()
	if err != nil {
		return Challenge{}, err
	}
	now := s.now()
	ch := Challenge{
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Save(ctx, ch); err != nil {
		return Challenge{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not save challenge")
	}
	return ch, nil
}

// Verify consumes the challenge exactly once. See Store.Consume for the error
// contract.
func (s *Service) Verify(ctx context.Context, value string) error {
	return s.store.Consume(ctx, value, s.now())
}

// DeleteExpired removes expired challenges; called by the background sweep.
func (s *Service) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	return s.store.DeleteExpired(ctx, now)
}
