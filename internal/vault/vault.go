// Package vault implements password-based authenticated encryption for secret
// strings at rest (mnemonics, serialized credentials). The wire format is a
// stable JSON envelope of independent base64 fields consumed by the custody
// store as an opaque blob.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/pbkdf2"

	dErrors "caritas/pkg/domain-errors"
)

const (
	saltSize   = 16
	nonceSize  = 12
	keySize    = 32
	iterations = 100_000
)

// ErrInvalidPasswordOrCorruptVault is the single undifferentiated decryption
// failure. Wrong password, tampered ciphertext, and corrupt fields are
// indistinguishable on purpose.
var ErrInvalidPasswordOrCorruptVault = dErrors.New(dErrors.CodeUnauthorized, "invalid password or corrupt vault")

// Vault is the authenticated-encryption envelope. All fields are base64.
type Vault struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	Salt       string `json:"salt"`
	AuthTag    string `json:"authTag"`
}

// Complete reports whether all four envelope fields are present.
func (v Vault) Complete() bool {
	return v.Ciphertext != "" && v.IV != "" && v.Salt != "" && v.AuthTag != ""
}

// Encrypt derives a key from password and a fresh salt via PBKDF2-SHA256,
// then seals plaintext with AES-256-GCM under a fresh nonce. Salt, nonce, and
// therefore ciphertext differ on every call.
func Encrypt(plaintext, password string) (Vault, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return Vault{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not generate salt")
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return Vault{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not generate iv")
	}

	key := pbkdf2.Key([]byte(password), salt, iterations, keySize, sha256.New)
	defer zero(key)

	aead, err := newAEAD(key)
	if err != nil {
		return Vault{}, err
	}

	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)
	// GCM appends the 16-byte tag; keep it as a separate envelope field.
	tagStart := len(sealed) - aead.Overhead()
	return Vault{
		Ciphertext: base64.StdEncoding.EncodeToString(sealed[:tagStart]),
		IV:         base64.StdEncoding.EncodeToString(nonce),
		Salt:       base64.StdEncoding.EncodeToString(salt),
		AuthTag:    base64.StdEncoding.EncodeToString(sealed[tagStart:]),
	}, nil
}

// Decrypt re-derives the key from the envelope salt and opens the ciphertext.
// Every failure mode collapses to ErrInvalidPasswordOrCorruptVault; no partial
// plaintext is ever returned.
func Decrypt(v Vault, password string) (string, error) {
	ciphertext, errC := base64.StdEncoding.DecodeString(v.Ciphertext)
	nonce, errN := base64.StdEncoding.DecodeString(v.IV)
	salt, errS := base64.StdEncoding.DecodeString(v.Salt)
	tag, errT := base64.StdEncoding.DecodeString(v.AuthTag)
	if errC != nil || errN != nil || errS != nil || errT != nil || len(nonce) != nonceSize {
		return "", ErrInvalidPasswordOrCorruptVault
	}

	key := pbkdf2.Key([]byte(password), salt, iterations, keySize, sha256.New)
	defer zero(key)

	aead, err := newAEAD(key)
	if err != nil {
		return "", ErrInvalidPasswordOrCorruptVault
	}

	plaintext, err := aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", ErrInvalidPasswordOrCorruptVault
	}
	return string(plaintext), nil
}

// VerifyPassword reports whether password opens the vault, swallowing the error.
func VerifyPassword(v Vault, password string) bool {
	_, err := Decrypt(v, password)
	return err == nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not init cipher")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not init gcm")
	}
	return aead, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
