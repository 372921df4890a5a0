// Package issuer orchestrates beneficiary onboarding and credential
// issuance on top of the wallet, vault, custody, and ledger layers.
package issuer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"caritas/internal/credential"
	"caritas/internal/custody"
	"caritas/internal/did"
	"caritas/internal/ledger"
	"caritas/internal/platform/metrics"
	"caritas/internal/vault"
	"caritas/internal/wallet"
	domainerrors "caritas/pkg/domain-errors"
	"caritas/pkg/platform/audit"
)

// Config identifies the issuing authority.
type Config struct {
	IssuerDID        string // did:caritas:issuer:<address>
	IssuerPrivateKey string // 0x-prefixed hex
	ValidityDays     int    // 0 applies the credential default
}

// Service signs credentials and manages beneficiary identities.
type Service struct {
	custody *custody.Service
	sync    *ledger.Sync
	audit   audit.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger

	issuerDID          did.DID
	issuerKey          string
	verificationMethod string
	validityDays       int
}

// Option configures the issuer service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics enables issuance counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService validates the issuer identity and wires the dependencies.
// The ledger sync and audit publisher are required; on-chain anchoring is
// part of issuance, not an optional extra.
func NewService(cfg Config, custodySvc *custody.Service, sync *ledger.Sync, auditPub audit.Publisher, opts ...Option) (*Service, error) {
	issuerDID, err := did.Parse(cfg.IssuerDID)
	if err != nil {
		return nil, fmt.Errorf("issuer did: %w", err)
	}
	if issuerDID.Type != did.TypeIssuer {
		return nil, domainerrors.New(domainerrors.CodeValidation, "issuer DID must be of issuer type")
	}
	if cfg.IssuerPrivateKey == "" {
		return nil, domainerrors.New(domainerrors.CodeValidation, "issuer private key is required")
	}
	if custodySvc == nil || sync == nil || auditPub == nil {
		return nil, domainerrors.New(domainerrors.CodeInternal, "custody, ledger, and audit are required")
	}

	s := &Service{
		custody:            custodySvc,
		sync:               sync,
		audit:              auditPub,
		logger:             slog.Default(),
		issuerDID:          issuerDID,
		issuerKey:          cfg.IssuerPrivateKey,
		verificationMethod: issuerDID.String() + "#key-1",
		validityDays:       cfg.ValidityDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Onboarding is the result of creating a beneficiary identity. The
// mnemonic is returned exactly once, for recovery display; only its
// encrypted form is retained.
type Onboarding struct {
	DID       string          `json:"did"`
	Address   string          `json:"address"`
	Document  did.Document    `json:"document"`
	CustodyID string          `json:"custodyId"`
	Mnemonic  string          `json:"mnemonic"`
	Tx        ledger.TxResult `json:"tx"`
}

// OnboardUser creates a wallet for a new beneficiary, encrypts its
// mnemonic under the given password, stores the custody record, and
// anchors the DID document on chain.
func (s *Service) OnboardUser(ctx context.Context, userID, password string) (Onboarding, error) {
	if userID == "" {
		return Onboarding{}, domainerrors.New(domainerrors.CodeValidation, "user id is required")
	}
	if password == "" {
		return Onboarding{}, domainerrors.New(domainerrors.CodeValidation, "password is required")
	}

	mnemonic, err := wallet.GenerateMnemonic()
	if err != nil {
		return Onboarding{}, domainerrors.Wrap(err, domainerrors.CodeInternal, "could not generate wallet")
	}
	w, err := wallet.FromMnemonic(mnemonic, wallet.DefaultDerivationPath)
	if err != nil {
		return Onboarding{}, domainerrors.Wrap(err, domainerrors.CodeInternal, "could not derive wallet")
	}

	holderDID, err := did.New(did.TypeUser, w.Address)
	if err != nil {
		return Onboarding{}, domainerrors.Wrap(err, domainerrors.CodeInternal, "could not build DID")
	}
	doc := did.NewDocument(holderDID, w.PublicKey, "")
	docHash, err := did.HashDocument(doc)
	if err != nil {
		return Onboarding{}, err
	}

	sealed, err := vault.Encrypt(mnemonic, password)
	if err != nil {
		return Onboarding{}, domainerrors.Wrap(err, domainerrors.CodeInternal, "could not encrypt mnemonic")
	}

	record, err := s.custody.Create(ctx, custody.CreateRequest{UserID: userID, Vault: sealed})
	if err != nil {
		return Onboarding{}, err
	}

	tx, err := s.sync.RegisterDID(ctx, holderDID.String(), w.Address, docHash)
	if err != nil {
		return Onboarding{}, err
	}

	s.emit(ctx, audit.Event{
		Action:   audit.ActionCustodyCreated,
		Subject:  holderDID.String(),
		Resource: record.CustodyID,
	})
	s.emit(ctx, audit.Event{
		Action:   audit.ActionDIDRegistered,
		Subject:  holderDID.String(),
		Resource: record.CustodyID,
		Detail:   map[string]string{"doc_hash": docHash, "tx_hash": tx.TxHash},
	})
	s.logger.Info("beneficiary onboarded", "did", holderDID.String(), "custody_id", record.CustodyID)

	return Onboarding{
		DID:       holderDID.String(),
		Address:   w.Address,
		Document:  doc,
		CustodyID: record.CustodyID,
		Mnemonic:  mnemonic,
		Tx:        tx,
	}, nil
}

// IssueRequest carries the inputs for issuing one credential.
type IssueRequest struct {
	SubjectDID     string
	CustodyID      string
	CredentialType string
	Claims         map[string]any
}

// Issuance reports a signed credential and its anchoring transaction.
type Issuance struct {
	Credential credential.Credential `json:"credential"`
	Tx         ledger.TxResult       `json:"tx"`
}

// IssueCredential creates and signs a credential for the subject, anchors
// its status on chain, and stores it alongside the subject's custody
// record.
func (s *Service) IssueCredential(ctx context.Context, req IssueRequest) (Issuance, error) {
	subject, err := did.Parse(req.SubjectDID)
	if err != nil {
		return Issuance{}, domainerrors.Wrap(err, domainerrors.CodeValidation, "subject did")
	}
	if req.CredentialType == "" {
		return Issuance{}, domainerrors.New(domainerrors.CodeValidation, "credential type is required")
	}

	vcID := "urn:uuid:" + uuid.NewString()
	vc := credential.New(s.issuerDID.String(), subject.String(), req.CredentialType, req.Claims, vcID, s.validityDays)

	signed, err := credential.Sign(vc, s.issuerKey, s.verificationMethod)
	if err != nil {
		return Issuance{}, domainerrors.Wrap(err, domainerrors.CodeInternal, "could not sign credential")
	}

	vcHash, err := credential.Hash(signed)
	if err != nil {
		return Issuance{}, err
	}
	tx, err := s.sync.RegisterVC(ctx, signed.ID, vcHash)
	if err != nil {
		return Issuance{}, err
	}

	if req.CustodyID != "" {
		if err := s.custody.UpdateVC(ctx, req.CustodyID, signed); err != nil {
			return Issuance{}, err
		}
	}

	if s.metrics != nil {
		s.metrics.CredentialsIssued.Inc()
	}
	s.emit(ctx, audit.Event{
		Action:   audit.ActionCredentialIssued,
		Subject:  subject.String(),
		Resource: signed.ID,
		Detail:   map[string]string{"type": req.CredentialType, "tx_hash": tx.TxHash},
	})
	s.logger.Info("credential issued", "vc_id", signed.ID, "subject", subject.String(), "type", req.CredentialType)

	return Issuance{Credential: signed, Tx: tx}, nil
}

// Revoke permanently revokes a credential.
func (s *Service) Revoke(ctx context.Context, vcID, reason string) (ledger.TxResult, error) {
	tx, err := s.sync.RevokeVC(ctx, vcID)
	if err != nil {
		return ledger.TxResult{}, err
	}
	if s.metrics != nil {
		s.metrics.CredentialsRevoked.Inc()
	}
	s.emit(ctx, audit.Event{
		Action:   audit.ActionCredentialRevoked,
		Resource: vcID,
		Detail:   map[string]string{"reason": reason},
	})
	return tx, nil
}

// Suspend temporarily suspends an active credential.
func (s *Service) Suspend(ctx context.Context, vcID string) (ledger.TxResult, error) {
	tx, err := s.sync.SuspendVC(ctx, vcID)
	if err != nil {
		return ledger.TxResult{}, err
	}
	s.emit(ctx, audit.Event{Action: audit.ActionCredentialSuspended, Resource: vcID})
	return tx, nil
}

// Activate reactivates a suspended credential.
func (s *Service) Activate(ctx context.Context, vcID string) (ledger.TxResult, error) {
	tx, err := s.sync.ActivateVC(ctx, vcID)
	if err != nil {
		return ledger.TxResult{}, err
	}
	s.emit(ctx, audit.Event{Action: audit.ActionCredentialActivated, Resource: vcID})
	return tx, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	event.Timestamp = time.Now()
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.Error("audit emit failed", "action", event.Action, "error", err)
	}
}
