// Package evm implements the ledger contract interfaces against an
// EVM-compatible chain using go-ethereum.
package evm

import (
	"context"
	_ "embed"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"caritas/internal/credential"
	"caritas/internal/ledger"
)

//go:embed abi/did_registry.json
var didRegistryABIJSON string

//go:embed abi/credential_registry.json
var credentialRegistryABIJSON string

//go:embed abi/role_control.json
var roleControlABIJSON string

//go:embed abi/token.json
var tokenABIJSON string

// Config carries the chain connection and contract addresses.
type Config struct {
	RPCURL          string
	ChainID         int64
	PrivateKey      string // hex, with or without 0x prefix
	DIDRegistryAddr string
	VCRegistryAddr  string
	RoleControlAddr string
	TokenAddr       string
}

// Client holds bound contract instances over a single RPC connection.
// Transactions are serialized with a mutex so the shared transactor
// never races on nonces.
type Client struct {
	eth  *ethclient.Client
	auth *bind.TransactOpts

	didRegistry *bind.BoundContract
	vcRegistry  *bind.BoundContract
	roleControl *bind.BoundContract
	token       *bind.BoundContract

	mu sync.Mutex
}

// Dial connects to the RPC endpoint and binds all four contracts.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("parse operator key: %w", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(cfg.ChainID))
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("build transactor: %w", err)
	}

	c := &Client{eth: eth, auth: auth}

	for _, b := range []struct {
		abiJSON string
		addr    string
		target  **bind.BoundContract
		name    string
	}{
		{didRegistryABIJSON, cfg.DIDRegistryAddr, &c.didRegistry, "did registry"},
		{credentialRegistryABIJSON, cfg.VCRegistryAddr, &c.vcRegistry, "credential registry"},
		{roleControlABIJSON, cfg.RoleControlAddr, &c.roleControl, "role control"},
		{tokenABIJSON, cfg.TokenAddr, &c.token, "token"},
	} {
		if b.addr == "" {
			continue
		}
		parsed, err := abi.JSON(strings.NewReader(b.abiJSON))
		if err != nil {
			eth.Close()
			return nil, fmt.Errorf("parse %s abi: %w", b.name, err)
		}
		*b.target = bind.NewBoundContract(common.HexToAddress(b.addr), parsed, eth, eth, eth)
	}

	return c, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// DIDRegistry returns the DID registry client, or nil when unconfigured.
func (c *Client) DIDRegistry() ledger.DIDRegistry {
	if c.didRegistry == nil {
		return nil
	}
	return &didRegistry{c}
}

// CredentialRegistry returns the credential registry client, or nil when
// unconfigured.
func (c *Client) CredentialRegistry() ledger.CredentialRegistry {
	if c.vcRegistry == nil {
		return nil
	}
	return &credentialRegistry{c}
}

// RoleControl returns the role control client, or nil when unconfigured.
func (c *Client) RoleControl() ledger.RoleControl {
	if c.roleControl == nil {
		return nil
	}
	return &roleControl{c}
}

// Token returns the token client, or nil when unconfigured.
func (c *Client) Token() ledger.Token {
	if c.token == nil {
		return nil
	}
	return &tokenClient{c}
}

// transact submits a state-changing call and waits for inclusion.
func (c *Client) transact(ctx context.Context, contract *bind.BoundContract, method string, args ...any) (string, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	opts := *c.auth
	opts.Context = ctx

	tx, err := contract.Transact(&opts, method, args...)
	if err != nil {
		return "", 0, fmt.Errorf("%s: %w", method, err)
	}

	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		return "", 0, fmt.Errorf("%s: wait mined: %w", method, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", 0, fmt.Errorf("%s: transaction %s reverted", method, tx.Hash().Hex())
	}

	return tx.Hash().Hex(), receipt.BlockNumber.Uint64(), nil
}

// call executes a read-only contract call.
func (c *Client) call(ctx context.Context, contract *bind.BoundContract, out *[]any, method string, args ...any) error {
	return contract.Call(&bind.CallOpts{Context: ctx}, out, method, args...)
}

type didRegistry struct{ c *Client }

func (r *didRegistry) Register(ctx context.Context, did, address, docHash string) (string, uint64, error) {
	return r.c.transact(ctx, r.c.didRegistry, "registerDID", did, common.HexToAddress(address), common.HexToHash(docHash))
}

func (r *didRegistry) DIDByAddress(ctx context.Context, address string) (string, error) {
	var out []any
	if err := r.c.call(ctx, r.c.didRegistry, &out, "didOf", common.HexToAddress(address)); err != nil {
		return "", fmt.Errorf("didOf: %w", err)
	}
	did := *abi.ConvertType(out[0], new(string)).(*string)
	if did == "" {
		return "", ledger.ErrNotFound
	}
	return did, nil
}

func (r *didRegistry) AddressByDID(ctx context.Context, did string) (string, error) {
	var out []any
	if err := r.c.call(ctx, r.c.didRegistry, &out, "controllerOf", did); err != nil {
		return "", fmt.Errorf("controllerOf: %w", err)
	}
	addr := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	if addr == (common.Address{}) {
		return "", ledger.ErrNotFound
	}
	return addr.Hex(), nil
}

func (r *didRegistry) DocumentHashByDID(ctx context.Context, did string) (string, error) {
	var out []any
	if err := r.c.call(ctx, r.c.didRegistry, &out, "documentHashOf", did); err != nil {
		return "", fmt.Errorf("documentHashOf: %w", err)
	}
	hash := *abi.ConvertType(out[0], new([32]byte)).(*[32]byte)
	if hash == ([32]byte{}) {
		return "", ledger.ErrNotFound
	}
	return common.Hash(hash).Hex(), nil
}

type credentialRegistry struct{ c *Client }

// On-chain status encoding.
const (
	statusNone uint8 = iota
	statusActive
	statusSuspended
	statusRevoked
)

func encodeStatus(s credential.Status) (uint8, error) {
	switch s {
	case credential.StatusActive:
		return statusActive, nil
	case credential.StatusSuspended:
		return statusSuspended, nil
	case credential.StatusRevoked:
		return statusRevoked, nil
	default:
		return statusNone, fmt.Errorf("status %q not representable on chain", s)
	}
}

func decodeStatus(v uint8) credential.Status {
	switch v {
	case statusActive:
		return credential.StatusActive
	case statusSuspended:
		return credential.StatusSuspended
	case statusRevoked:
		return credential.StatusRevoked
	default:
		return credential.StatusNone
	}
}

func (r *credentialRegistry) Register(ctx context.Context, vcID, vcHash string) (string, uint64, error) {
	return r.c.transact(ctx, r.c.vcRegistry, "registerCredential", vcID, common.HexToHash(vcHash))
}

func (r *credentialRegistry) SetStatus(ctx context.Context, vcID string, status credential.Status) (string, uint64, error) {
	encoded, err := encodeStatus(status)
	if err != nil {
		return "", 0, err
	}
	return r.c.transact(ctx, r.c.vcRegistry, "setStatus", vcID, encoded)
}

func (r *credentialRegistry) Status(ctx context.Context, vcID string) (credential.Status, error) {
	var out []any
	if err := r.c.call(ctx, r.c.vcRegistry, &out, "statusOf", vcID); err != nil {
		return credential.StatusNone, fmt.Errorf("statusOf: %w", err)
	}
	raw := *abi.ConvertType(out[0], new(uint8)).(*uint8)
	if raw == statusNone {
		return credential.StatusNone, ledger.ErrNotFound
	}
	return decodeStatus(raw), nil
}

type roleControl struct{ c *Client }

func (r *roleControl) Grant(ctx context.Context, eventID, address string) (string, uint64, error) {
	return r.c.transact(ctx, r.c.roleControl, "grantRole", eventID, common.HexToAddress(address))
}

func (r *roleControl) Revoke(ctx context.Context, eventID, address string) (string, uint64, error) {
	return r.c.transact(ctx, r.c.roleControl, "revokeRole", eventID, common.HexToAddress(address))
}

func (r *roleControl) HasRole(ctx context.Context, eventID, address string) (bool, error) {
	var out []any
	if err := r.c.call(ctx, r.c.roleControl, &out, "hasRole", eventID, common.HexToAddress(address)); err != nil {
		return false, fmt.Errorf("hasRole: %w", err)
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

type tokenClient struct{ c *Client }

func (t *tokenClient) Transfer(ctx context.Context, from, to string, amount *big.Int) (string, uint64, error) {
	return t.c.transact(ctx, t.c.token, "transferFrom", common.HexToAddress(from), common.HexToAddress(to), amount)
}

func (t *tokenClient) BalanceOf(ctx context.Context, address string) (*big.Int, error) {
	var out []any
	if err := t.c.call(ctx, t.c.token, &out, "balanceOf", common.HexToAddress(address)); err != nil {
		return nil, fmt.Errorf("balanceOf: %w", err)
	}
	return abi.ConvertType(out[0], new(big.Int)).(*big.Int), nil
}
