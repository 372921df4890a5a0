package presentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caritas/internal/credential"
	"caritas/internal/wallet"
)

const holderMnemonic = "legal winner thank year wave sausage worth useful legal winner thank yellow"

func holderWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	w, err := wallet.FromMnemonic(holderMnemonic, "")
	require.NoError(t, err)
	return w
}

func sampleVP(holder string) Presentation {
	vc := credential.New("did:caritas:issuer:0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		holder, "KYCCredential", map[string]any{"kycLevel": "verified"}, "vc-1", 0)
	return New(holder, []credential.Credential{vc}, "nonce-123", "caritas.example.org")
}

func TestNewBindsChallengeAndDomain(t *testing.T) {
	vp := sampleVP("did:caritas:user:0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")

	assert.Equal(t, "nonce-123", vp.Proof.Challenge)
	assert.Equal(t, "caritas.example.org", vp.Proof.Domain)
	assert.Equal(t, "authentication", vp.Proof.ProofPurpose)
	assert.Empty(t, vp.Proof.JWS)
	assert.Len(t, vp.VerifiableCredential, 1)
}

func TestSignAndVerify(t *testing.T) {
	w := holderWallet(t)
	holderDID := "did:caritas:user:" + w.Address

	signed, err := Sign(sampleVP(holderDID), w.PrivateKey)
	require.NoError(t, err)
	assert.NotEmpty(t, signed.Proof.JWS)
	assert.True(t, VerifySignature(signed, w.Address))
}

func TestVerifyRejectsWrongHolder(t *testing.T) {
	w := holderWallet(t)
	other, err := wallet.DeriveKey(holderMnemonic, "m/44'/60'/0'/0/3")
	require.NoError(t, err)

	signed, err := Sign(sampleVP("did:caritas:user:"+w.Address), w.PrivateKey)
	require.NoError(t, err)
	assert.False(t, VerifySignature(signed, other.Address))
}

func TestVerifyRejectsTampering(t *testing.T) {
	w := holderWallet(t)
	signed, err := Sign(sampleVP("did:caritas:user:"+w.Address), w.PrivateKey)
	require.NoError(t, err)

	tampered := signed
	tampered.Proof.Challenge = "nonce-999"
	assert.False(t, VerifySignature(tampered, w.Address))

	tampered = signed
	tampered.Holder = "did:caritas:user:0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	assert.False(t, VerifySignature(tampered, w.Address))
}

func TestVerifyRejectsUnsigned(t *testing.T) {
	w := holderWallet(t)
	assert.False(t, VerifySignature(sampleVP("did:caritas:user:"+w.Address), w.Address))
}
