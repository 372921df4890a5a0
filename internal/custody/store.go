package custody

import (
	"context"

	"caritas/internal/credential"
)

// Store persists custody records. Implementations enforce at most one record
// per owner, so FindByOwner is a point query, not a scan.
type Store interface {
	Create(ctx context.Context, record Record) error
	FindByID(ctx context.Context, custodyID string) (Record, error)
	FindByOwner(ctx context.Context, ownerID string) (Record, error)
	UpdateVC(ctx context.Context, custodyID string, vc credential.Credential) error
}
