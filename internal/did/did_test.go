package did

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// EIP-55 checksummed test address.
const testAddress = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

func TestNewAndParseInverse(t *testing.T) {
	for _, typ := range []Type{TypeUser, TypeIssuer} {
		d, err := New(typ, testAddress)
		require.NoError(t, err)
		assert.Equal(t, "did:caritas:"+string(typ)+":"+testAddress, d.String())

		parsed, err := Parse(d.String())
		require.NoError(t, err)
		assert.Equal(t, typ, parsed.Type)
		assert.Equal(t, testAddress, parsed.Address)
	}
}

func TestNewNormalizesLowercaseAddress(t *testing.T) {
	d, err := New(TypeUser, strings.ToLower(testAddress))
	require.NoError(t, err)
	assert.Equal(t, testAddress, d.Address)
}

func TestNewRejectsUnknownType(t *testing.T) {
	_, err := New(Type("staff"), testAddress)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestParseErrorsPerRule(t *testing.T) {
	cases := []struct {
		name string
		did  string
		want error
	}{
		{"segment count", "did:caritas:user", ErrMalformedDID},
		{"not a did", "vc:caritas:user:" + testAddress, ErrMalformedDID},
		{"wrong method", "did:ethr:user:" + testAddress, ErrUnsupportedMethod},
		{"unknown type", "did:caritas:robot:" + testAddress, ErrUnknownType},
		{"bad address", "did:caritas:user:0x1234", ErrInvalidAddress},
		{"bad checksum", "did:caritas:user:0x5aAeb6053F3E94C9b9A09f33669435E7Ef1Beaed", ErrInvalidChecksum},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.did)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestNewDocumentCapabilities(t *testing.T) {
	user, err := New(TypeUser, testAddress)
	require.NoError(t, err)
	issuer, err := New(TypeIssuer, testAddress)
	require.NoError(t, err)

	userDoc := NewDocument(user, "0x04abcd", "")
	require.Len(t, userDoc.VerificationMethod, 1)
	assert.Equal(t, userDoc.ID, userDoc.Controller)
	assert.Equal(t, []string{user.String() + "#key-1"}, userDoc.Authentication)
	assert.Empty(t, userDoc.AssertionMethod)
	assert.Equal(t, testAddress, userDoc.VerificationMethod[0].BlockchainAccountID)

	issuerDoc := NewDocument(issuer, "0x04abcd", "")
	assert.Equal(t, []string{issuer.String() + "#key-1"}, issuerDoc.AssertionMethod)
	assert.Empty(t, issuerDoc.Authentication)
}

func TestHashDocumentStableAndSensitive(t *testing.T) {
	d, err := New(TypeUser, testAddress)
	require.NoError(t, err)
	doc := NewDocument(d, "0x04abcd", "")

	first, err := HashDocument(doc)
	require.NoError(t, err)
	second, err := HashDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(first, "0x"))
	assert.Len(t, first, 66)

	doc.VerificationMethod[0].PublicKeyHex = "0x04abce"
	changed, err := HashDocument(doc)
	require.NoError(t, err)
	assert.NotEqual(t, first, changed)
}
