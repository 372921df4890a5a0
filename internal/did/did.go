// Package did constructs and parses the deployment's decentralized
// identifiers and their documents. One fixed shape is supported:
// did:caritas:<user|issuer>:<EIP-55 address>. The address embedding keeps DID
// construction idempotent and lets verifiers derive the chain account without
// a resolver round-trip.
package did

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	dErrors "caritas/pkg/domain-errors"
)

// Method is the DID method name for this deployment.
const Method = "caritas"

// Type classifies the entity a DID names.
type Type string

const (
	TypeUser   Type = "user"
	TypeIssuer Type = "issuer"
)

// Parse errors, one per violated rule.
var (
	ErrMalformedDID      = dErrors.New(dErrors.CodeValidation, "malformed DID: expected did:caritas:<type>:<address>")
	ErrUnsupportedMethod = dErrors.New(dErrors.CodeValidation, "unsupported DID method")
	ErrUnknownType       = dErrors.New(dErrors.CodeValidation, "unknown DID type: expected user or issuer")
	ErrInvalidAddress    = dErrors.New(dErrors.CodeValidation, "invalid DID address")
	ErrInvalidChecksum   = dErrors.New(dErrors.CodeValidation, "invalid DID address checksum")
)

// DID is a parsed identifier.
type DID struct {
	Method  string
	Type    Type
	Address string // EIP-55 checksummed
}

// String reassembles the canonical DID string.
func (d DID) String() string {
	return fmt.Sprintf("did:%s:%s:%s", d.Method, d.Type, d.Address)
}

// New builds a DID from an entity type and chain address. Construction is
// deterministic: the same inputs always yield the same DID.
func New(typ Type, address string) (DID, error) {
	if typ != TypeUser && typ != TypeIssuer {
		return DID{}, ErrUnknownType
	}
	checksummed, err := checksumAddress(address)
	if err != nil {
		return DID{}, err
	}
	return DID{Method: Method, Type: typ, Address: checksummed}, nil
}

// Parse splits and validates a DID string, failing with a distinct error per
// violated rule.
func Parse(s string) (DID, error) {
	segments := strings.Split(s, ":")
	if len(segments) != 4 || segments[0] != "did" {
		return DID{}, ErrMalformedDID
	}
	if segments[1] != Method {
		return DID{}, ErrUnsupportedMethod
	}
	typ := Type(segments[2])
	if typ != TypeUser && typ != TypeIssuer {
		return DID{}, ErrUnknownType
	}
	checksummed, err := checksumAddress(segments[3])
	if err != nil {
		return DID{}, err
	}
	return DID{Method: Method, Type: typ, Address: checksummed}, nil
}

// checksumAddress normalizes an address to EIP-55 form. All-lowercase and
// all-uppercase hex are accepted and normalized; mixed case must already be a
// valid checksum.
func checksumAddress(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", ErrInvalidAddress
	}
	checksummed := common.HexToAddress(address).Hex()

	body := strings.TrimPrefix(address, "0x")
	if body != strings.ToLower(body) && body != strings.ToUpper(body) && address != checksummed {
		return "", ErrInvalidChecksum
	}
	return checksummed, nil
}
