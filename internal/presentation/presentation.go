// Package presentation implements verifiable presentations: a holder-signed
// bundle of credentials bound to a verifier challenge. Signature verification
// here covers only the holder's proof; the verifier service composes the
// challenge, per-credential, and status checks on top.
package presentation

import (
	"time"

	"caritas/internal/credential"
	"caritas/internal/wallet"
	"caritas/pkg/canonicaljson"
	dErrors "caritas/pkg/domain-errors"
)

// ProofType is the proof suite attached by Sign.
const ProofType = "EcdsaSecp256k1Signature2019"

// Proof binds the presentation to a challenge and domain. JWS is empty until
// the holder signs; the signature covers the canonical serialization of the
// presentation with JWS removed.
type Proof struct {
	Type               string `json:"type"`
	Created            string `json:"created"`
	VerificationMethod string `json:"verificationMethod"`
	ProofPurpose       string `json:"proofPurpose"`
	Challenge          string `json:"challenge"`
	Domain             string `json:"domain"`
	JWS                string `json:"jws,omitempty"`
}

// Presentation is the wire shape of a verifiable presentation.
type Presentation struct {
	Holder               string                  `json:"holder"`
	VerifiableCredential []credential.Credential `json:"verifiableCredential"`
	Proof                Proof                   `json:"proof"`
}

// New builds an unsigned presentation over one or more credentials, bound to
// the verifier-issued challenge and the deployment's verification domain.
func New(holderDID string, vcs []credential.Credential, challenge, domain string) Presentation {
	return Presentation{
		Holder:               holderDID,
		VerifiableCredential: vcs,
		Proof: Proof{
			Type:               ProofType,
			Created:            time.Now().UTC().Format(time.RFC3339),
			VerificationMethod: holderDID + "#key-1",
			ProofPurpose:       "authentication",
			Challenge:          challenge,
			Domain:             domain,
		},
	}
}

// Sign strips any existing JWS, signs the canonical serialization with the
// holder key, and attaches the signature.
func Sign(p Presentation, holderPrivateKey string) (Presentation, error) {
	p.Proof.JWS = ""
	canonical, err := canonicaljson.Marshal(p)
	if err != nil {
		return Presentation{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not serialize presentation")
	}

	sig, err := wallet.Sign(string(canonical), holderPrivateKey)
	if err != nil {
		return Presentation{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not sign presentation")
	}
	p.Proof.JWS = sig
	return p, nil
}

// VerifySignature reports whether the presentation carries a valid holder
// signature from the key behind expectedHolderAddress. Fail-closed to false;
// it never errors for invalid input.
func VerifySignature(p Presentation, expectedHolderAddress string) bool {
	if p.Proof.JWS == "" {
		return false
	}
	jws := p.Proof.JWS
	p.Proof.JWS = ""

	canonical, err := canonicaljson.Marshal(p)
	if err != nil {
		return false
	}
	return wallet.Verify(string(canonical), jws, expectedHolderAddress)
}
