// Package challenge issues and consumes single-use anti-replay nonces for the
// presentation protocol. Each challenge succeeds verification at most once;
// a second attempt fails even inside the TTL window.
package challenge

import (
	"time"

	dErrors "caritas/pkg/domain-errors"
)

// Challenge is a single-use nonce with its lifecycle timestamps.
type Challenge struct {
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
}

// Consumption errors. Each state is distinct so callers can choose the right
// recovery (issue a fresh challenge).
var (
	ErrInvalidChallenge = dErrors.New(dErrors.CodeNotFound, "unknown challenge")
	ErrChallengeUsed    = dErrors.New(dErrors.CodeChallengeUsed, "challenge already used")
	ErrChallengeExpired = dErrors.New(dErrors.CodeChallengeExpired, "challenge expired")
)
