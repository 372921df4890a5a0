//go:build integration

package custody_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"caritas/internal/credential"
	"caritas/internal/custody"
	"caritas/internal/vault"
	"caritas/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *custody.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = custody.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "custody_records")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newRecord(userID string) custody.Record {
	v, err := vault.Encrypt("twelve word mnemonic goes here", "correct horse battery")
	s.Require().NoError(err)

	now := time.Now().UTC().Truncate(time.Microsecond)
	return custody.Record{
		CustodyID: uuid.NewString(),
		UserID:    userID,
		Vault:     v,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	record := s.newRecord("user-1")

	s.Require().NoError(s.store.Create(ctx, record))

	byID, err := s.store.FindByID(ctx, record.CustodyID)
	s.Require().NoError(err)
	s.Equal(record.CustodyID, byID.CustodyID)
	s.Equal("user-1", byID.UserID)
	s.Empty(byID.AdminID)
	s.Equal(record.Vault, byID.Vault)
	s.Nil(byID.VC)

	byOwner, err := s.store.FindByOwner(ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(record.CustodyID, byOwner.CustodyID)
}

func (s *PostgresStoreSuite) TestDuplicateOwnerRejected() {
	ctx := context.Background()

	s.Require().NoError(s.store.Create(ctx, s.newRecord("user-1")))

	err := s.store.Create(ctx, s.newRecord("user-1"))
	s.Require().ErrorIs(err, custody.ErrDuplicateOwner)
}

func (s *PostgresStoreSuite) TestAdminOwner() {
	ctx := context.Background()

	record := s.newRecord("")
	record.AdminID = "admin-1"
	s.Require().NoError(s.store.Create(ctx, record))

	byOwner, err := s.store.FindByOwner(ctx, "admin-1")
	s.Require().NoError(err)
	s.Equal(record.CustodyID, byOwner.CustodyID)
	s.Equal("admin-1", byOwner.AdminID)
	s.Empty(byOwner.UserID)
}

func (s *PostgresStoreSuite) TestUpdateVC() {
	ctx := context.Background()
	record := s.newRecord("user-1")
	s.Require().NoError(s.store.Create(ctx, record))

	vc := credential.New(
		"did:caritas:issuer:0x0000000000000000000000000000000000000001",
		"did:caritas:user:0x0000000000000000000000000000000000000002",
		"BenefitEligibility",
		map[string]any{"program": "food-assistance"},
		"urn:uuid:"+uuid.NewString(),
		0,
	)
	s.Require().NoError(s.store.UpdateVC(ctx, record.CustodyID, vc))

	got, err := s.store.FindByID(ctx, record.CustodyID)
	s.Require().NoError(err)
	s.Require().NotNil(got.VC)
	s.Equal(vc.ID, got.VC.ID)
	s.Equal(vc.CredentialSubject["program"], got.VC.CredentialSubject["program"])
}

func (s *PostgresStoreSuite) TestUpdateVCUnknownRecord() {
	err := s.store.UpdateVC(context.Background(), uuid.NewString(), credential.Credential{})
	s.Require().ErrorIs(err, custody.ErrNotFound)
}

func (s *PostgresStoreSuite) TestFindMissing() {
	_, err := s.store.FindByID(context.Background(), uuid.NewString())
	s.Require().ErrorIs(err, custody.ErrNotFound)

	_, err = s.store.FindByOwner(context.Background(), "nobody")
	s.Require().ErrorIs(err, custody.ErrNotFound)
}
