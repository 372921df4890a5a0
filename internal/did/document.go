package did

import (
	"encoding/hex"

	"github.com/ethereum/go-ethereum/crypto"

	"caritas/pkg/canonicaljson"
	dErrors "caritas/pkg/domain-errors"
)

// VerificationMethodType is the proof suite bound into every document.
const VerificationMethodType = "EcdsaSecp256k1VerificationKey2019"

// VerificationMethod binds a DID to one public key and one chain account.
type VerificationMethod struct {
	ID                  string `json:"id"`
	Type                string `json:"type"`
	Controller          string `json:"controller"`
	PublicKeyHex        string `json:"publicKeyHex"`
	BlockchainAccountID string `json:"blockchainAccountId"`
}

// Document is the DID document for this deployment. Exactly one verification
// method per document; user documents carry authentication, issuer documents
// carry assertionMethod.
type Document struct {
	ID                 string               `json:"id"`
	Type               string               `json:"type"`
	Controller         string               `json:"controller"`
	VerificationMethod []VerificationMethod `json:"verificationMethod"`
	Authentication     []string             `json:"authentication,omitempty"`
	AssertionMethod    []string             `json:"assertionMethod,omitempty"`
}

// NewDocument builds the document for a DID. An empty controller defaults to
// the DID itself (self-controlled).
func NewDocument(d DID, publicKeyHex, controller string) Document {
	if controller == "" {
		controller = d.String()
	}
	vmID := d.String() + "#key-1"
	doc := Document{
		ID:         d.String(),
		Type:       string(d.Type),
		Controller: controller,
		VerificationMethod: []VerificationMethod{{
			ID:                  vmID,
			Type:                VerificationMethodType,
			Controller:          d.String(),
			PublicKeyHex:        publicKeyHex,
			BlockchainAccountID: d.Address,
		}},
	}
	switch d.Type {
	case TypeIssuer:
		doc.AssertionMethod = []string{vmID}
	default:
		doc.Authentication = []string{vmID}
	}
	return doc
}

// HashDocument computes the keccak256 fingerprint anchored on-chain. The hash
// is taken over the canonical serialization, so it is stable under field
// reordering and changes whenever any field changes.
func HashDocument(doc Document) (string, error) {
	canonical, err := canonicaljson.Marshal(doc)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not serialize document")
	}
	return "0x" + hex.EncodeToString(crypto.Keccak256(canonical)), nil
}
