package custody

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"caritas/internal/credential"
	"caritas/internal/vault"
	dErrors "caritas/pkg/domain-errors"
)

// CreateRequest carries the inputs for a new custody record. Exactly one of
// UserID/AdminID must be set.
type CreateRequest struct {
	UserID  string
	AdminID string
	Vault   vault.Vault
	VC      *credential.Credential
}

// Service validates and persists custody records.
type Service struct {
	store  Store
	logger *slog.Logger
}

// Option configures the custody service.
type Option func(*Service)

// WithLogger configures a logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a custody service over the given store.
func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "custody store is required")
	}
	svc := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Create validates the vault envelope and owner exclusivity, assigns a
// custody id, and persists the record.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Record, error) {
	if !req.Vault.Complete() {
		return Record{}, dErrors.New(dErrors.CodeValidation, "vault must carry ciphertext, iv, salt, and authTag")
	}
	if (req.UserID == "") == (req.AdminID == "") {
		return Record{}, dErrors.New(dErrors.CodeValidation, "exactly one of user_id or admin_id must be set")
	}

	now := time.Now().UTC()
	record := Record{
		CustodyID: uuid.NewString(),
		UserID:    req.UserID,
		AdminID:   req.AdminID,
		Vault:     req.Vault,
		VC:        req.VC,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, record); err != nil {
		return Record{}, err
	}

	s.logger.InfoContext(ctx, "custody record created", "custody_id", record.CustodyID)
	return record, nil
}

// UpdateVC replaces the credential held for a custody record.
func (s *Service) UpdateVC(ctx context.Context, custodyID string, vc credential.Credential) error {
	return s.store.UpdateVC(ctx, custodyID, vc)
}

// Get retrieves a record by custody id.
func (s *Service) Get(ctx context.Context, custodyID string) (Record, error) {
	return s.store.FindByID(ctx, custodyID)
}

// GetByOwner retrieves the record owned by ownerID.
func (s *Service) GetByOwner(ctx context.Context, ownerID string) (Record, error) {
	return s.store.FindByOwner(ctx, ownerID)
}
