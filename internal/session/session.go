// Package session tracks the asynchronous presentation flow: a verifier opens
// a session, a mobile wallet signs the presentation out of band, a worker
// records the verification outcome, and the verifier polls then consumes the
// result exactly once.
package session

import (
	"time"

	"caritas/internal/presentation"
	dErrors "caritas/pkg/domain-errors"
)

// Status is the lifecycle state of a presentation session.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusFailed   Status = "failed"
	StatusExpired  Status = "expired"
)

// Session is one scan-and-sign round trip. Used flips on first consumption;
// the record survives past consumption for a short polling grace window.
type Session struct {
	ID           string                    `json:"session_id"`
	Presentation presentation.Presentation `json:"vp"`
	Challenge    string                    `json:"challenge"`
	Status       Status                    `json:"status"`
	Used         bool                      `json:"used"`
	CreatedAt    time.Time                 `json:"created_at"`
	ExpiresAt    time.Time                 `json:"expires_at"`
	VerifiedAt   *time.Time                `json:"verified_at,omitempty"`
	CheckinData  map[string]any            `json:"checkin_data,omitempty"`
}

// Consumption and lookup errors, one per recoverable state.
var (
	ErrInvalidSession = dErrors.New(dErrors.CodeNotFound, "unknown session")
	ErrSessionUsed    = dErrors.New(dErrors.CodeSessionUsed, "session already used")
	ErrSessionExpired = dErrors.New(dErrors.CodeSessionExpired, "session expired")
)
