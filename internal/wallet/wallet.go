// Package wallet derives deterministic secp256k1 key material from BIP39
// mnemonics and provides message signing bound to chain addresses. It is pure
// computation; nothing here touches storage or the network.
package wallet

import (
	"crypto/ecdsa"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"

	dErrors "caritas/pkg/domain-errors"
)

// DefaultDerivationPath is the BIP44 path used for primary wallet keys.
const DefaultDerivationPath = "m/44'/60'/0'/0/0"

// ErrInvalidMnemonic is returned when a mnemonic fails BIP39 checksum validation.
var ErrInvalidMnemonic = dErrors.New(dErrors.CodeValidation, "invalid mnemonic")

// Wallet holds a derived key pair with its source material. The private key
// must never be persisted in cleartext; callers vault-encrypt the mnemonic.
type Wallet struct {
	Mnemonic   string
	Seed       []byte
	PrivateKey string // 0x-prefixed hex, 32 bytes
	PublicKey  string // 0x-prefixed hex, uncompressed, 65 bytes
	Address    string // EIP-55 checksummed
}

// Key is a derived key pair without the mnemonic, for secondary paths.
type Key struct {
	PrivateKey string
	PublicKey  string
	Address    string
}

// GenerateMnemonic returns a fresh 12-word BIP39 phrase.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate entropy")
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate mnemonic")
	}
	return mnemonic, nil
}

// ValidateMnemonic reports whether the phrase passes BIP39 checksum validation.
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// FromMnemonic derives a wallet at the given BIP44 path. Identical inputs
// always yield an identical wallet. An empty path uses DefaultDerivationPath.
func FromMnemonic(mnemonic, path string) (*Wallet, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	if path == "" {
		path = DefaultDerivationPath
	}

	seed := bip39.NewSeed(mnemonic, "")
	priv, err := derivePrivateKey(seed, path)
	if err != nil {
		return nil, err
	}

	return &Wallet{
		Mnemonic:   mnemonic,
		Seed:       seed,
		PrivateKey: hexutilEncode(crypto.FromECDSA(priv)),
		PublicKey:  hexutilEncode(crypto.FromECDSAPub(&priv.PublicKey)),
		Address:    crypto.PubkeyToAddress(priv.PublicKey).Hex(),
	}, nil
}

// DeriveKey derives a key pair at an arbitrary path from the same mnemonic.
// Distinct paths yield distinct keys.
func DeriveKey(mnemonic, path string) (*Key, error) {
	w, err := FromMnemonic(mnemonic, path)
	if err != nil {
		return nil, err
	}
	return &Key{PrivateKey: w.PrivateKey, PublicKey: w.PublicKey, Address: w.Address}, nil
}

// Sign produces a 65-byte recoverable secp256k1 signature over keccak256 of
// the message, hex encoded with a 0x prefix.
func Sign(message, privateKeyHex string) (string, error) {
	priv, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeValidation, "invalid private key")
	}
	digest := crypto.Keccak256([]byte(message))
	sig, err := crypto.Sign(digest, priv)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not sign message")
	}
	return hexutilEncode(sig), nil
}

// Verify recovers the signer from the signature and compares addresses.
// Any malformed input yields false rather than an error.
func Verify(message, signature, address string) bool {
	recovered, err := RecoverAddress(message, signature)
	if err != nil {
		return false
	}
	return strings.EqualFold(recovered, address)
}

// RecoverAddress returns the EIP-55 address of the key that signed message.
func RecoverAddress(message, signature string) (string, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeValidation, "invalid signature encoding")
	}
	if len(sig) != crypto.SignatureLength {
		return "", dErrors.New(dErrors.CodeValidation, "invalid signature length")
	}
	digest := crypto.Keccak256([]byte(message))
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeValidation, "could not recover public key")
	}
	return crypto.PubkeyToAddress(*pub).Hex(), nil
}

// derivePrivateKey walks the BIP32 tree from the master key along path.
func derivePrivateKey(seed []byte, path string) (*ecdsa.PrivateKey, error) {
	indices, err := parseDerivationPath(path)
	if err != nil {
		return nil, err
	}

	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not derive master key")
	}
	for _, index := range indices {
		key, err = key.Derive(index)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not derive child key")
		}
	}

	btcPriv, err := key.ECPrivKey()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not extract private key")
	}
	return btcPriv.ToECDSA(), nil
}

// parseDerivationPath converts "m/44'/60'/0'/0/0" into child indices, with
// apostrophes marking hardened derivation.
func parseDerivationPath(path string) ([]uint32, error) {
	segments := strings.Split(path, "/")
	if len(segments) < 2 || segments[0] != "m" {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid derivation path")
	}

	indices := make([]uint32, 0, len(segments)-1)
	for _, segment := range segments[1:] {
		hardened := strings.HasSuffix(segment, "'")
		segment = strings.TrimSuffix(segment, "'")
		n, err := strconv.ParseUint(segment, 10, 32)
		if err != nil || n >= hdkeychain.HardenedKeyStart {
			return nil, dErrors.New(dErrors.CodeValidation, "invalid derivation path segment")
		}
		index := uint32(n)
		if hardened {
			index += hdkeychain.HardenedKeyStart
		}
		indices = append(indices, index)
	}
	return indices, nil
}

func hexutilEncode(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}
