package challenge

import (
	"context"
	"time"
)

// Store persists challenges. Consume must be atomic with respect to
// concurrent consumers and the expiry sweep: the used/expired check and the
// state change happen under one critical section.
type Store interface {
	Save(ctx context.Context, ch Challenge) error

	// Consume marks the challenge used exactly once. It returns
	// ErrInvalidChallenge for an unknown value, ErrChallengeUsed for a
	// previously consumed one, and ErrChallengeExpired (evicting the entry)
	// past the TTL.
	Consume(ctx context.Context, value string, now time.Time) error

	// DeleteExpired removes challenges past their TTL and reports how many.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
