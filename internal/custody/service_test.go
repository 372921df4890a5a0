package custody

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"caritas/internal/credential"
	"caritas/internal/vault"
	dErrors "caritas/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	store *InMemoryStore
	svc   *Service
}

func (s *ServiceSuite) SetupTest() {
	s.store = NewInMemoryStore()
	svc, err := NewService(s.store)
	require.NoError(s.T(), err)
	s.svc = svc
}

func (s *ServiceSuite) vault() vault.Vault {
	v, err := vault.Encrypt("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about", "pw")
	require.NoError(s.T(), err)
	return v
}

func (s *ServiceSuite) TestCreateForUser() {
	record, err := s.svc.Create(context.Background(), CreateRequest{UserID: "user-1", Vault: s.vault()})
	require.NoError(s.T(), err)
	assert.NotEmpty(s.T(), record.CustodyID)
	assert.Equal(s.T(), "user-1", record.OwnerID())

	found, err := s.svc.Get(context.Background(), record.CustodyID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), record.CustodyID, found.CustodyID)

	byOwner, err := s.svc.GetByOwner(context.Background(), "user-1")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), record.CustodyID, byOwner.CustodyID)
}

func (s *ServiceSuite) TestCreateRejectsIncompleteVault() {
	v := s.vault()
	v.AuthTag = ""
	_, err := s.svc.Create(context.Background(), CreateRequest{UserID: "user-1", Vault: v})
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestCreateRejectsOwnerAmbiguity() {
	_, err := s.svc.Create(context.Background(), CreateRequest{Vault: s.vault()})
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.svc.Create(context.Background(), CreateRequest{UserID: "u", AdminID: "a", Vault: s.vault()})
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestCreateEnforcesOneRecordPerOwner() {
	_, err := s.svc.Create(context.Background(), CreateRequest{AdminID: "admin-1", Vault: s.vault()})
	require.NoError(s.T(), err)

	_, err = s.svc.Create(context.Background(), CreateRequest{AdminID: "admin-1", Vault: s.vault()})
	assert.ErrorIs(s.T(), err, ErrDuplicateOwner)
}

func (s *ServiceSuite) TestUpdateVC() {
	record, err := s.svc.Create(context.Background(), CreateRequest{UserID: "user-2", Vault: s.vault()})
	require.NoError(s.T(), err)

	vc := credential.New("did:caritas:issuer:0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"did:caritas:user:0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359", "KYCCredential", nil, "vc-9", 0)
	require.NoError(s.T(), s.svc.UpdateVC(context.Background(), record.CustodyID, vc))

	found, err := s.svc.Get(context.Background(), record.CustodyID)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), found.VC)
	assert.Equal(s.T(), "vc-9", found.VC.ID)

	assert.ErrorIs(s.T(), s.svc.UpdateVC(context.Background(), "missing", vc), ErrNotFound)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
