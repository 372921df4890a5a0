package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"caritas/internal/credential"
	"caritas/internal/platform/metrics"
	domainerrors "caritas/pkg/domain-errors"
)

// Sync submits identity and credential state changes to the configured
// registries. Writes are idempotent: the current chain state is read
// first and a no-op returns TxResult{AlreadyApplied: true} without
// submitting anything.
type Sync struct {
	dids    DIDRegistry
	vcs     CredentialRegistry
	roles   RoleControl
	token   Token
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// SyncOption configures a Sync facade.
type SyncOption func(*Sync)

// WithSyncLogger sets the logger used for transaction logging.
func WithSyncLogger(l *slog.Logger) SyncOption {
	return func(s *Sync) { s.logger = l }
}

// WithSyncMetrics enables per-operation transaction counters.
func WithSyncMetrics(m *metrics.Metrics) SyncOption {
	return func(s *Sync) { s.metrics = m }
}

// NewSync creates a Sync over the given contract clients. Any client may
// be nil; operations that need a missing client fail with an unavailable
// error rather than fabricating a result.
func NewSync(dids DIDRegistry, vcs CredentialRegistry, roles RoleControl, token Token, opts ...SyncOption) *Sync {
	s := &Sync{
		dids:   dids,
		vcs:    vcs,
		roles:  roles,
		token:  token,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sync) submitted(op, txHash string, block uint64) {
	if s.metrics != nil {
		s.metrics.LedgerTransactions.WithLabelValues(op).Inc()
	}
	s.logger.Info("ledger transaction mined", "operation", op, "tx_hash", txHash, "block", block)
}

func (s *Sync) failed(op string, err error) error {
	if s.metrics != nil {
		s.metrics.LedgerTransactionError.WithLabelValues(op).Inc()
	}
	s.logger.Error("ledger transaction failed", "operation", op, "error", err)
	return domainerrors.Wrap(err, domainerrors.CodeUnavailable, fmt.Sprintf("ledger %s failed", op))
}

func errLedgerRequired(op string) error {
	return domainerrors.New(domainerrors.CodeUnavailable, fmt.Sprintf("ledger required for %s", op))
}

// RegisterDID anchors a DID, its controlling address, and its document
// hash. Registering the same DID for the same address again is a no-op.
func (s *Sync) RegisterDID(ctx context.Context, did, address, docHash string) (TxResult, error) {
	if s.dids == nil {
		return TxResult{}, errLedgerRequired("did registration")
	}

	existing, err := s.dids.DIDByAddress(ctx, address)
	if err != nil && err != ErrNotFound {
		return TxResult{}, s.failed("register_did", err)
	}
	if existing == did {
		return TxResult{AlreadyApplied: true}, nil
	}
	if existing != "" {
		return TxResult{}, domainerrors.New(domainerrors.CodeConflict, "address already controls a different DID")
	}

	txHash, block, err := s.dids.Register(ctx, did, address, docHash)
	if err != nil {
		return TxResult{}, s.failed("register_did", err)
	}
	s.submitted("register_did", txHash, block)
	return TxResult{TxHash: txHash, BlockNumber: block}, nil
}

// DIDByAddress resolves the DID controlled by address, or ErrNotFound.
func (s *Sync) DIDByAddress(ctx context.Context, address string) (string, error) {
	if s.dids == nil {
		return "", errLedgerRequired("did lookup")
	}
	return s.dids.DIDByAddress(ctx, address)
}

// AddressByDID resolves the controlling address of a DID, or ErrNotFound.
func (s *Sync) AddressByDID(ctx context.Context, did string) (string, error) {
	if s.dids == nil {
		return "", errLedgerRequired("did lookup")
	}
	return s.dids.AddressByDID(ctx, did)
}

// DocumentHashByDID returns the anchored document hash for a DID.
func (s *Sync) DocumentHashByDID(ctx context.Context, did string) (string, error) {
	if s.dids == nil {
		return "", errLedgerRequired("did lookup")
	}
	return s.dids.DocumentHashByDID(ctx, did)
}

// RegisterVC anchors a credential hash and activates its status.
// Registering an already-known credential is a no-op.
func (s *Sync) RegisterVC(ctx context.Context, vcID, vcHash string) (TxResult, error) {
	if s.vcs == nil {
		return TxResult{}, errLedgerRequired("credential registration")
	}

	status, err := s.vcs.Status(ctx, vcID)
	if err != nil && err != ErrNotFound {
		return TxResult{}, s.failed("register_vc", err)
	}
	if err == nil && status != credential.StatusNone {
		return TxResult{AlreadyApplied: true}, nil
	}

	txHash, block, err := s.vcs.Register(ctx, vcID, vcHash)
	if err != nil {
		return TxResult{}, s.failed("register_vc", err)
	}
	s.submitted("register_vc", txHash, block)
	return TxResult{TxHash: txHash, BlockNumber: block}, nil
}

// RevokeVC permanently revokes a credential.
func (s *Sync) RevokeVC(ctx context.Context, vcID string) (TxResult, error) {
	return s.setVCStatus(ctx, "revoke_vc", vcID, credential.StatusRevoked)
}

// SuspendVC temporarily suspends an active credential.
func (s *Sync) SuspendVC(ctx context.Context, vcID string) (TxResult, error) {
	return s.setVCStatus(ctx, "suspend_vc", vcID, credential.StatusSuspended)
}

// ActivateVC reactivates a suspended credential.
func (s *Sync) ActivateVC(ctx context.Context, vcID string) (TxResult, error) {
	return s.setVCStatus(ctx, "activate_vc", vcID, credential.StatusActive)
}

func (s *Sync) setVCStatus(ctx context.Context, op, vcID string, to credential.Status) (TxResult, error) {
	if s.vcs == nil {
		return TxResult{}, errLedgerRequired("credential status change")
	}

	from, err := s.vcs.Status(ctx, vcID)
	if err == ErrNotFound {
		return TxResult{}, domainerrors.New(domainerrors.CodeNotFound, "credential not registered")
	}
	if err != nil {
		return TxResult{}, s.failed(op, err)
	}
	if from == to {
		return TxResult{AlreadyApplied: true}, nil
	}
	if err := credential.ValidateTransition(from, to); err != nil {
		return TxResult{}, domainerrors.Wrap(err, domainerrors.CodeInvariantViolation, "invalid status transition")
	}

	txHash, block, err := s.vcs.SetStatus(ctx, vcID, to)
	if err != nil {
		return TxResult{}, s.failed(op, err)
	}
	s.submitted(op, txHash, block)
	return TxResult{TxHash: txHash, BlockNumber: block}, nil
}

// VCStatus reads the current on-chain credential status.
func (s *Sync) VCStatus(ctx context.Context, vcID string) (credential.Status, error) {
	if s.vcs == nil {
		return credential.StatusNone, errLedgerRequired("credential status lookup")
	}
	return s.vcs.Status(ctx, vcID)
}

// GrantEventRole grants a holder address access to an event. Granting an
// already-held role is a no-op.
func (s *Sync) GrantEventRole(ctx context.Context, eventID, address string) (TxResult, error) {
	if s.roles == nil {
		return TxResult{}, errLedgerRequired("role grant")
	}

	has, err := s.roles.HasRole(ctx, eventID, address)
	if err != nil {
		return TxResult{}, s.failed("grant_role", err)
	}
	if has {
		return TxResult{AlreadyApplied: true}, nil
	}

	txHash, block, err := s.roles.Grant(ctx, eventID, address)
	if err != nil {
		return TxResult{}, s.failed("grant_role", err)
	}
	s.submitted("grant_role", txHash, block)
	return TxResult{TxHash: txHash, BlockNumber: block}, nil
}

// RevokeEventRole removes a holder's event role. Revoking a role the
// address does not hold is a no-op.
func (s *Sync) RevokeEventRole(ctx context.Context, eventID, address string) (TxResult, error) {
	if s.roles == nil {
		return TxResult{}, errLedgerRequired("role revocation")
	}

	has, err := s.roles.HasRole(ctx, eventID, address)
	if err != nil {
		return TxResult{}, s.failed("revoke_role", err)
	}
	if !has {
		return TxResult{AlreadyApplied: true}, nil
	}

	txHash, block, err := s.roles.Revoke(ctx, eventID, address)
	if err != nil {
		return TxResult{}, s.failed("revoke_role", err)
	}
	s.submitted("revoke_role", txHash, block)
	return TxResult{TxHash: txHash, BlockNumber: block}, nil
}

// TransferToken moves benefit tokens between addresses after validating
// the amount and the sender's balance.
func (s *Sync) TransferToken(ctx context.Context, from, to string, amount *big.Int) (TxResult, error) {
	if s.token == nil {
		return TxResult{}, errLedgerRequired("token transfer")
	}
	if amount == nil || amount.Sign() <= 0 {
		return TxResult{}, domainerrors.New(domainerrors.CodeValidation, "transfer amount must be positive")
	}

	balance, err := s.token.BalanceOf(ctx, from)
	if err != nil {
		return TxResult{}, s.failed("transfer_token", err)
	}
	if balance.Cmp(amount) < 0 {
		return TxResult{}, domainerrors.New(domainerrors.CodeValidation, "insufficient token balance")
	}

	txHash, block, err := s.token.Transfer(ctx, from, to, amount)
	if err != nil {
		return TxResult{}, s.failed("transfer_token", err)
	}
	s.submitted("transfer_token", txHash, block)
	return TxResult{TxHash: txHash, BlockNumber: block}, nil
}
