// Package ledger defines the on-chain registry contracts the service
// depends on and a Sync facade that submits state changes idempotently.
package ledger

import (
	"context"
	"errors"
	"math/big"

	"caritas/internal/credential"
)

// TxResult reports the outcome of a submitted ledger transaction.
// AlreadyApplied is set when the desired state was already on chain and
// no transaction was submitted; TxHash and BlockNumber are empty in that
// case, never fabricated.
type TxResult struct {
	TxHash         string `json:"txHash,omitempty"`
	BlockNumber    uint64 `json:"blockNumber,omitempty"`
	AlreadyApplied bool   `json:"alreadyApplied,omitempty"`
}

// ErrNotFound is returned by read operations when the ledger holds no
// record for the requested key.
var ErrNotFound = errors.New("ledger: record not found")

// DIDRegistry maps DIDs to controlling addresses and document hashes.
type DIDRegistry interface {
	Register(ctx context.Context, did, address, docHash string) (txHash string, block uint64, err error)
	DIDByAddress(ctx context.Context, address string) (string, error)
	AddressByDID(ctx context.Context, did string) (string, error)
	DocumentHashByDID(ctx context.Context, did string) (string, error)
}

// CredentialRegistry tracks credential hashes and their lifecycle status.
type CredentialRegistry interface {
	Register(ctx context.Context, vcID, vcHash string) (txHash string, block uint64, err error)
	SetStatus(ctx context.Context, vcID string, status credential.Status) (txHash string, block uint64, err error)
	Status(ctx context.Context, vcID string) (credential.Status, error)
}

// RoleControl grants and revokes per-event roles for holder addresses.
type RoleControl interface {
	Grant(ctx context.Context, eventID, address string) (txHash string, block uint64, err error)
	Revoke(ctx context.Context, eventID, address string) (txHash string, block uint64, err error)
	HasRole(ctx context.Context, eventID, address string) (bool, error)
}

// Token moves program benefit tokens between holder addresses.
type Token interface {
	Transfer(ctx context.Context, from, to string, amount *big.Int) (txHash string, block uint64, err error)
	BalanceOf(ctx context.Context, address string) (*big.Int, error)
}
