package credential

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caritas/internal/wallet"
)

const issuerMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func issuerWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	w, err := wallet.FromMnemonic(issuerMnemonic, "")
	require.NoError(t, err)
	return w
}

func otherKey(t *testing.T) *wallet.Key {
	t.Helper()
	k, err := wallet.DeriveKey(issuerMnemonic, "m/44'/60'/0'/0/7")
	require.NoError(t, err)
	return k
}

func sampleVC() Credential {
	return New(
		"did:caritas:issuer:0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"did:caritas:user:0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"KYCCredential",
		map[string]any{"kycLevel": "verified"},
		"vc-0001",
		0,
	)
}

func TestNewDefaults(t *testing.T) {
	vc := sampleVC()

	assert.Equal(t, []string{BaseType, "KYCCredential"}, vc.Type)
	assert.Nil(t, vc.Proof)
	assert.Equal(t, "did:caritas:user:0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359", vc.SubjectID())
	assert.Equal(t, "verified", vc.CredentialSubject["kycLevel"])

	issued, err := time.Parse(time.RFC3339, vc.IssuanceDate)
	require.NoError(t, err)
	expires, err := time.Parse(time.RFC3339, vc.ExpirationDate)
	require.NoError(t, err)
	assert.Equal(t, issued.AddDate(0, 0, DefaultValidityDays), expires)
	assert.False(t, vc.Expired(time.Now()))
}

func TestNewNegativeValidityIsExpiredImmediately(t *testing.T) {
	vc := New("did:caritas:issuer:0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"did:caritas:user:0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"KYCCredential", nil, "vc-expired", -1)

	assert.True(t, vc.Expired(time.Now()))
}

func TestSignAndVerify(t *testing.T) {
	w := issuerWallet(t)
	signed, err := Sign(sampleVC(), w.PrivateKey, "did:caritas:issuer:"+w.Address+"#key-1")
	require.NoError(t, err)

	require.NotNil(t, signed.Proof)
	assert.Equal(t, ProofType, signed.Proof.Type)
	assert.Equal(t, "assertionMethod", signed.Proof.ProofPurpose)
	assert.True(t, VerifySignature(signed, w.Address))
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	w := issuerWallet(t)
	signed, err := Sign(sampleVC(), w.PrivateKey, "vm")
	require.NoError(t, err)

	assert.False(t, VerifySignature(signed, otherKey(t).Address))
}

func TestVerifyRejectsTamperedContent(t *testing.T) {
	w := issuerWallet(t)
	signed, err := Sign(sampleVC(), w.PrivateKey, "vm")
	require.NoError(t, err)

	tampered := signed
	tampered.CredentialSubject = map[string]any{
		"id":       signed.SubjectID(),
		"kycLevel": "forged",
	}
	assert.False(t, VerifySignature(tampered, w.Address))

	tampered = signed
	tampered.ExpirationDate = time.Now().AddDate(10, 0, 0).Format(time.RFC3339)
	assert.False(t, VerifySignature(tampered, w.Address))
}

func TestVerifyRejectsMissingProof(t *testing.T) {
	assert.False(t, VerifySignature(sampleVC(), issuerWallet(t).Address))
}

func TestSignStripsExistingProof(t *testing.T) {
	w := issuerWallet(t)
	vc := sampleVC()
	vc.Proof = &Proof{Type: ProofType, ProofValue: "0xstale"}

	signed, err := Sign(vc, w.PrivateKey, "vm")
	require.NoError(t, err)
	assert.NotEqual(t, "0xstale", signed.Proof.ProofValue)
	assert.True(t, VerifySignature(signed, w.Address))
}

func TestValidateTransition(t *testing.T) {
	valid := []struct{ from, to Status }{
		{StatusNone, StatusActive},
		{StatusActive, StatusSuspended},
		{StatusSuspended, StatusActive},
		{StatusActive, StatusRevoked},
		{StatusSuspended, StatusRevoked},
	}
	for _, tc := range valid {
		assert.NoError(t, ValidateTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	assert.ErrorIs(t, ValidateTransition(StatusRevoked, StatusActive), ErrRevokedIsTerminal)
	assert.ErrorIs(t, ValidateTransition(StatusRevoked, StatusSuspended), ErrRevokedIsTerminal)
	assert.Error(t, ValidateTransition(StatusNone, StatusRevoked))
	assert.Error(t, ValidateTransition(StatusActive, StatusActive))
}
