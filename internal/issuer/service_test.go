package issuer

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"caritas/internal/credential"
	"caritas/internal/custody"
	"caritas/internal/did"
	"caritas/internal/ledger"
	"caritas/internal/vault"
	"caritas/internal/wallet"
	domainerrors "caritas/pkg/domain-errors"
	"caritas/pkg/platform/audit"
)

const issuerMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// fakeRegistries backs the ledger sync with in-memory state.
type fakeRegistries struct {
	dids     map[string]string // address -> did
	docs     map[string]string // did -> doc hash
	statuses map[string]credential.Status
	txCount  int
}

func newFakeRegistries() *fakeRegistries {
	return &fakeRegistries{
		dids:     make(map[string]string),
		docs:     make(map[string]string),
		statuses: make(map[string]credential.Status),
	}
}

func (f *fakeRegistries) mine() (string, uint64) {
	f.txCount++
	return fmt.Sprintf("0xtx%04d", f.txCount), uint64(f.txCount)
}

func (f *fakeRegistries) Register(_ context.Context, didStr, address, docHash string) (string, uint64, error) {
	txHash, block := f.mine()
	f.dids[address] = didStr
	f.docs[didStr] = docHash
	return txHash, block, nil
}

func (f *fakeRegistries) DIDByAddress(_ context.Context, address string) (string, error) {
	d, ok := f.dids[address]
	if !ok {
		return "", ledger.ErrNotFound
	}
	return d, nil
}

func (f *fakeRegistries) AddressByDID(_ context.Context, didStr string) (string, error) {
	for addr, d := range f.dids {
		if d == didStr {
			return addr, nil
		}
	}
	return "", ledger.ErrNotFound
}

func (f *fakeRegistries) DocumentHashByDID(_ context.Context, didStr string) (string, error) {
	hash, ok := f.docs[didStr]
	if !ok {
		return "", ledger.ErrNotFound
	}
	return hash, nil
}

type fakeVCRegistry struct{ *fakeRegistries }

func (f fakeVCRegistry) Register(_ context.Context, vcID, _ string) (string, uint64, error) {
	txHash, block := f.mine()
	f.statuses[vcID] = credential.StatusActive
	return txHash, block, nil
}

func (f fakeVCRegistry) SetStatus(_ context.Context, vcID string, status credential.Status) (string, uint64, error) {
	txHash, block := f.mine()
	f.statuses[vcID] = status
	return txHash, block, nil
}

func (f fakeVCRegistry) Status(_ context.Context, vcID string) (credential.Status, error) {
	status, ok := f.statuses[vcID]
	if !ok {
		return credential.StatusNone, ledger.ErrNotFound
	}
	return status, nil
}

type IssuerSuite struct {
	suite.Suite

	registries *fakeRegistries
	auditSink  *audit.MemoryPublisher
	custodySvc *custody.Service
	svc        *Service

	issuerWallet *wallet.Wallet
}

func TestIssuerSuite(t *testing.T) {
	suite.Run(t, new(IssuerSuite))
}

func (s *IssuerSuite) SetupTest() {
	var err error
	s.issuerWallet, err = wallet.FromMnemonic(issuerMnemonic, wallet.DefaultDerivationPath)
	s.Require().NoError(err)

	issuerDID, err := did.New(did.TypeIssuer, s.issuerWallet.Address)
	s.Require().NoError(err)

	s.registries = newFakeRegistries()
	s.auditSink = audit.NewMemoryPublisher()

	s.custodySvc, err = custody.NewService(custody.NewInMemoryStore())
	s.Require().NoError(err)

	s.svc, err = NewService(Config{
		IssuerDID:        issuerDID.String(),
		IssuerPrivateKey: s.issuerWallet.PrivateKey,
	}, s.custodySvc, ledger.NewSync(s.registries, fakeVCRegistry{s.registries}, nil, nil), s.auditSink)
	s.Require().NoError(err)
}

func (s *IssuerSuite) actions() []audit.Action {
	events := s.auditSink.Events()
	actions := make([]audit.Action, len(events))
	for i, e := range events {
		actions[i] = e.Action
	}
	return actions
}

func (s *IssuerSuite) TestOnboardUserCreatesIdentity() {
	ob, err := s.svc.OnboardUser(context.Background(), "user-1", "s3cret")
	s.Require().NoError(err)

	parsed, err := did.Parse(ob.DID)
	s.Require().NoError(err)
	s.Equal(did.TypeUser, parsed.Type)
	s.Equal(ob.Address, parsed.Address)

	// mnemonic recovers the same wallet
	w, err := wallet.FromMnemonic(ob.Mnemonic, wallet.DefaultDerivationPath)
	s.Require().NoError(err)
	s.Equal(ob.Address, w.Address)

	// custody holds the encrypted mnemonic, recoverable only by password
	record, err := s.custodySvc.GetByOwner(context.Background(), "user-1")
	s.Require().NoError(err)
	plain, err := vault.Decrypt(record.Vault, "s3cret")
	s.Require().NoError(err)
	s.Equal(ob.Mnemonic, plain)
	_, err = vault.Decrypt(record.Vault, "wrong")
	s.Error(err)

	// DID anchored on chain with its document hash
	anchored, err := s.registries.DIDByAddress(context.Background(), ob.Address)
	s.Require().NoError(err)
	s.Equal(ob.DID, anchored)
	docHash, err := did.HashDocument(ob.Document)
	s.Require().NoError(err)
	s.Equal(docHash, s.registries.docs[ob.DID])

	s.NotEmpty(ob.Tx.TxHash)
	s.Equal([]audit.Action{audit.ActionCustodyCreated, audit.ActionDIDRegistered}, s.actions())
}

func (s *IssuerSuite) TestOnboardUserRequiresInputs() {
	_, err := s.svc.OnboardUser(context.Background(), "", "pw")
	s.True(domainerrors.HasCode(err, domainerrors.CodeValidation))

	_, err = s.svc.OnboardUser(context.Background(), "user-1", "")
	s.True(domainerrors.HasCode(err, domainerrors.CodeValidation))
}

func (s *IssuerSuite) TestIssueCredentialSignsAndAnchors() {
	ob, err := s.svc.OnboardUser(context.Background(), "user-1", "s3cret")
	s.Require().NoError(err)

	iss, err := s.svc.IssueCredential(context.Background(), IssueRequest{
		SubjectDID:     ob.DID,
		CustodyID:      ob.CustodyID,
		CredentialType: "BenefitEligibility",
		Claims:         map[string]any{"program": "food-assistance"},
	})
	s.Require().NoError(err)

	vc := iss.Credential
	s.Contains(vc.Type, credential.BaseType)
	s.Contains(vc.Type, "BenefitEligibility")
	s.Equal(ob.DID, vc.SubjectID())
	s.Equal("food-assistance", vc.CredentialSubject["program"])
	s.Require().NotNil(vc.Proof)

	s.True(credential.VerifySignature(vc, s.issuerWallet.Address))

	status, err := fakeVCRegistry{s.registries}.Status(context.Background(), vc.ID)
	s.Require().NoError(err)
	s.Equal(credential.StatusActive, status)

	record, err := s.custodySvc.Get(context.Background(), ob.CustodyID)
	s.Require().NoError(err)
	s.Require().NotNil(record.VC)
	s.Equal(vc.ID, record.VC.ID)

	s.Contains(s.actions(), audit.ActionCredentialIssued)
}

func (s *IssuerSuite) TestIssueCredentialRejectsBadSubject() {
	_, err := s.svc.IssueCredential(context.Background(), IssueRequest{
		SubjectDID:     "not-a-did",
		CredentialType: "BenefitEligibility",
	})
	s.True(domainerrors.HasCode(err, domainerrors.CodeValidation))
}

func (s *IssuerSuite) TestLifecycleTransitions() {
	ob, err := s.svc.OnboardUser(context.Background(), "user-1", "s3cret")
	s.Require().NoError(err)
	iss, err := s.svc.IssueCredential(context.Background(), IssueRequest{
		SubjectDID:     ob.DID,
		CredentialType: "BenefitEligibility",
	})
	s.Require().NoError(err)
	vcID := iss.Credential.ID

	_, err = s.svc.Suspend(context.Background(), vcID)
	s.Require().NoError(err)
	s.Equal(credential.StatusSuspended, s.registries.statuses[vcID])

	_, err = s.svc.Activate(context.Background(), vcID)
	s.Require().NoError(err)
	s.Equal(credential.StatusActive, s.registries.statuses[vcID])

	_, err = s.svc.Revoke(context.Background(), vcID, "fraud")
	s.Require().NoError(err)
	s.Equal(credential.StatusRevoked, s.registries.statuses[vcID])

	// revocation is terminal
	_, err = s.svc.Activate(context.Background(), vcID)
	s.Require().Error(err)

	s.Contains(s.actions(), audit.ActionCredentialRevoked)
}

func (s *IssuerSuite) TestNewServiceRejectsUserDID() {
	userDID, err := did.New(did.TypeUser, s.issuerWallet.Address)
	s.Require().NoError(err)

	_, err = NewService(Config{
		IssuerDID:        userDID.String(),
		IssuerPrivateKey: s.issuerWallet.PrivateKey,
	}, s.custodySvc, ledger.NewSync(nil, nil, nil, nil), s.auditSink)
	s.True(domainerrors.HasCode(err, domainerrors.CodeValidation))
}
