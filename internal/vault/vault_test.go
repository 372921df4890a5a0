package vault

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	secret   = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	password = "correct horse battery staple"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	v, err := Encrypt(secret, password)
	require.NoError(t, err)
	require.True(t, v.Complete())

	plaintext, err := Decrypt(v, password)
	require.NoError(t, err)
	assert.Equal(t, secret, plaintext)
}

func TestEncryptRandomized(t *testing.T) {
	first, err := Encrypt(secret, password)
	require.NoError(t, err)
	second, err := Encrypt(secret, password)
	require.NoError(t, err)

	assert.NotEqual(t, first.IV, second.IV)
	assert.NotEqual(t, first.Salt, second.Salt)
	assert.NotEqual(t, first.Ciphertext, second.Ciphertext)

	for _, v := range []Vault{first, second} {
		plaintext, err := Decrypt(v, password)
		require.NoError(t, err)
		assert.Equal(t, secret, plaintext)
	}
}

func TestDecryptWrongPassword(t *testing.T) {
	v, err := Encrypt(secret, password)
	require.NoError(t, err)

	_, err = Decrypt(v, "wrong password")
	assert.ErrorIs(t, err, ErrInvalidPasswordOrCorruptVault)
}

func TestDecryptTamperedFields(t *testing.T) {
	v, err := Encrypt(secret, password)
	require.NoError(t, err)

	flip := func(encoded string) string {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		require.NoError(t, err)
		raw[0] ^= 0x01
		return base64.StdEncoding.EncodeToString(raw)
	}

	cases := map[string]Vault{
		"ciphertext": {Ciphertext: flip(v.Ciphertext), IV: v.IV, Salt: v.Salt, AuthTag: v.AuthTag},
		"iv":         {Ciphertext: v.Ciphertext, IV: flip(v.IV), Salt: v.Salt, AuthTag: v.AuthTag},
		"salt":       {Ciphertext: v.Ciphertext, IV: v.IV, Salt: flip(v.Salt), AuthTag: v.AuthTag},
		"authTag":    {Ciphertext: v.Ciphertext, IV: v.IV, Salt: v.Salt, AuthTag: flip(v.AuthTag)},
	}
	for field, tampered := range cases {
		_, err := Decrypt(tampered, password)
		assert.ErrorIs(t, err, ErrInvalidPasswordOrCorruptVault, "tampered %s", field)
	}
}

func TestDecryptMalformedEnvelope(t *testing.T) {
	v, err := Encrypt(secret, password)
	require.NoError(t, err)

	v.IV = "%%% not base64 %%%"
	_, err = Decrypt(v, password)
	assert.ErrorIs(t, err, ErrInvalidPasswordOrCorruptVault)
}

func TestVerifyPassword(t *testing.T) {
	v, err := Encrypt(secret, password)
	require.NoError(t, err)

	assert.True(t, VerifyPassword(v, password))
	assert.False(t, VerifyPassword(v, "nope"))
}
