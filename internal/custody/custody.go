// Package custody persists encrypted wallet and credential vaults for holders
// who do not manage their own keys. One custody record per owner; the owner
// is either a user or an admin, never both.
package custody

import (
	"time"

	"caritas/internal/credential"
	"caritas/internal/vault"
	dErrors "caritas/pkg/domain-errors"
)

// Record is one owner's custody envelope. Vault holds the encrypted mnemonic;
// VC optionally carries the owner's current credential.
type Record struct {
	CustodyID string                 `json:"custody_id"`
	UserID    string                 `json:"user_id,omitempty"`
	AdminID   string                 `json:"admin_id,omitempty"`
	Vault     vault.Vault            `json:"vault"`
	VC        *credential.Credential `json:"vc,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// OwnerID returns whichever owner reference is set.
func (r Record) OwnerID() string {
	if r.UserID != "" {
		return r.UserID
	}
	return r.AdminID
}

var (
	ErrNotFound       = dErrors.New(dErrors.CodeNotFound, "custody record not found")
	ErrDuplicateOwner = dErrors.New(dErrors.CodeConflict, "owner already has a custody record")
)
