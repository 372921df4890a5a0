// Package credential implements verifiable credentials: construction, issuer
// signing over the canonical serialization, and fail-closed signature
// verification. Expiry and on-chain status checks are composed by callers;
// VerifySignature answers only "did this issuer sign exactly this content".
package credential

import (
	"encoding/hex"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"caritas/internal/wallet"
	"caritas/pkg/canonicaljson"
	dErrors "caritas/pkg/domain-errors"
)

const (
	// BaseType is present in every credential's type array.
	BaseType = "VerifiableCredential"

	// ProofType is the proof suite attached by Sign.
	ProofType = "EcdsaSecp256k1Signature2019"

	// StatusRefType names the on-chain status registry in credentialStatus.
	StatusRefType = "CaritasCredentialRegistry"

	// DefaultValidityDays is applied when no validity is requested.
	DefaultValidityDays = 730
)

// Proof is the linked-data proof attached to a signed credential.
// ProofValue is a recoverable secp256k1 signature over the canonical
// serialization of the credential with proof removed.
type Proof struct {
	Type               string `json:"type"`
	Created            string `json:"created"`
	VerificationMethod string `json:"verificationMethod"`
	ProofPurpose       string `json:"proofPurpose"`
	ProofValue         string `json:"proofValue"`
}

// Issuer identifies the credential issuer by DID.
type Issuer struct {
	ID string `json:"id"`
}

// StatusRef points a verifier at the on-chain status registry entry.
type StatusRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Credential is the wire shape of a verifiable credential. Proof is nil until
// the credential is signed.
type Credential struct {
	ID                string         `json:"id"`
	Type              []string       `json:"type"`
	Issuer            Issuer         `json:"issuer"`
	IssuanceDate      string         `json:"issuanceDate"`
	ExpirationDate    string         `json:"expirationDate"`
	CredentialSubject map[string]any `json:"credentialSubject"`
	CredentialStatus  StatusRef      `json:"credentialStatus"`
	Proof             *Proof         `json:"proof,omitempty"`
}

// New builds an unsigned credential. validityDays of zero applies
// DefaultValidityDays; negative values produce an already-expired credential,
// which composed verification must reject.
func New(issuerDID, subjectDID, credType string, claims map[string]any, vcID string, validityDays int) Credential {
	if validityDays == 0 {
		validityDays = DefaultValidityDays
	}
	now := time.Now().UTC()

	subject := map[string]any{"id": subjectDID}
	for k, v := range claims {
		subject[k] = v
	}

	return Credential{
		ID:                vcID,
		Type:              []string{BaseType, credType},
		Issuer:            Issuer{ID: issuerDID},
		IssuanceDate:      now.Format(time.RFC3339),
		ExpirationDate:    now.AddDate(0, 0, validityDays).Format(time.RFC3339),
		CredentialSubject: subject,
		CredentialStatus:  StatusRef{ID: vcID, Type: StatusRefType},
	}
}

// SubjectID returns the credentialSubject id claim, or empty if absent.
func (c Credential) SubjectID() string {
	s, _ := c.CredentialSubject["id"].(string)
	return s
}

// Expired reports whether the credential's expirationDate has passed at now.
// A credential with an unparsable expiration is treated as expired.
func (c Credential) Expired(now time.Time) bool {
	exp, err := time.Parse(time.RFC3339, c.ExpirationDate)
	if err != nil {
		return true
	}
	return now.After(exp)
}

// Sign strips any existing proof, signs the canonical serialization with the
// issuer key, and attaches a fresh proof referencing verificationMethod.
func Sign(c Credential, issuerPrivateKey, verificationMethod string) (Credential, error) {
	c.Proof = nil
	canonical, err := canonicaljson.Marshal(c)
	if err != nil {
		return Credential{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not serialize credential")
	}

	sig, err := wallet.Sign(string(canonical), issuerPrivateKey)
	if err != nil {
		return Credential{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not sign credential")
	}

	c.Proof = &Proof{
		Type:               ProofType,
		Created:            time.Now().UTC().Format(time.RFC3339),
		VerificationMethod: verificationMethod,
		ProofPurpose:       "assertionMethod",
		ProofValue:         sig,
	}
	return c, nil
}

// VerifySignature reports whether the credential carries a valid proof from
// the key behind expectedIssuerAddress. It returns false, never an error, for
// a missing proof, a signer mismatch, or content altered after signing. It
// does not check expiry or on-chain status.
func VerifySignature(c Credential, expectedIssuerAddress string) bool {
	if c.Proof == nil || c.Proof.ProofValue == "" {
		return false
	}
	proofValue := c.Proof.ProofValue
	c.Proof = nil

	canonical, err := canonicaljson.Marshal(c)
	if err != nil {
		return false
	}
	return wallet.Verify(string(canonical), proofValue, expectedIssuerAddress)
}

// Hash computes the keccak256 fingerprint anchored on-chain, taken over the
// canonical serialization of the credential including its proof.
func Hash(c Credential) (string, error) {
	canonical, err := canonicaljson.Marshal(c)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not serialize credential")
	}
	return "0x" + hex.EncodeToString(crypto.Keccak256(canonical)), nil
}
