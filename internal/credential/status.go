package credential

import (
	"time"

	dErrors "caritas/pkg/domain-errors"
)

// Status is the lifecycle state of a credential as mirrored on-chain.
type Status string

const (
	StatusNone      Status = "none" // never registered
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusRevoked   Status = "revoked"
)

// Transition records one issuer-authorized status change. Reason is only
// meaningful for revocations.
type Transition struct {
	From   Status
	To     Status
	At     time.Time
	Reason string
}

// ErrRevokedIsTerminal is returned for any transition out of revoked.
var ErrRevokedIsTerminal = dErrors.New(dErrors.CodeConflict, "credential is revoked; revocation is terminal")

// ValidateTransition enforces the lifecycle: active and suspended may be
// revoked, suspension is reversible via activation, revocation is terminal.
func ValidateTransition(from, to Status) error {
	if from == StatusRevoked {
		return ErrRevokedIsTerminal
	}
	switch {
	case from == StatusNone && to == StatusActive:
		return nil
	case from == StatusActive && (to == StatusSuspended || to == StatusRevoked):
		return nil
	case from == StatusSuspended && (to == StatusActive || to == StatusRevoked):
		return nil
	}
	return dErrors.New(dErrors.CodeConflict, "invalid status transition from "+string(from)+" to "+string(to))
}
