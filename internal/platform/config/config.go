package config

import (
	"os"
	"strconv"
	"time"
)

// Defaults applied when the corresponding environment variable is unset.
var (
	DefaultChallengeTTL  = 5 * time.Minute
	DefaultSessionTTL    = 5 * time.Minute
	DefaultSweepEvery    = time.Minute
	DefaultVerifiedGrace = 30 * time.Second
)

// Server captures process-level configuration for the credential backbone.
type Server struct {
	Addr        string
	Environment string

	// Ledger connectivity. Empty RPCURL disables on-chain operations; the
	// sync layer then fails loudly instead of fabricating transaction ids.
	LedgerRPCURL    string
	ChainID         int64
	DIDRegistryAddr string
	VCRegistryAddr  string
	RoleControlAddr string
	TokenAddr       string

	// Issuer identity, server-side only. Never exposed to holder-facing APIs.
	IssuerDID        string
	IssuerPrivateKey string

	// Domain bound into presentation proofs.
	VerificationDomain string

	// Token guarding the issuance endpoints. Empty disables them.
	AdminToken string

	ChallengeTTL  time.Duration
	SessionTTL    time.Duration
	SweepInterval time.Duration
	VerifiedGrace time.Duration

	DatabaseURL  string
	RedisURL     string
	KafkaBrokers string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("CARITAS_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	environment := os.Getenv("CARITAS_ENV")
	if environment == "" {
		environment = "development"
	}

	domain := os.Getenv("VERIFICATION_DOMAIN")
	if domain == "" {
		domain = "caritas.example.org"
	}

	return Server{
		Addr:        addr,
		Environment: environment,

		LedgerRPCURL:    os.Getenv("LEDGER_RPC_URL"),
		ChainID:         envInt64("CHAIN_ID", 0),
		DIDRegistryAddr: os.Getenv("DID_REGISTRY_ADDR"),
		VCRegistryAddr:  os.Getenv("VC_REGISTRY_ADDR"),
		RoleControlAddr: os.Getenv("ROLE_CONTROL_ADDR"),
		TokenAddr:       os.Getenv("TOKEN_ADDR"),

		IssuerDID:        os.Getenv("ISSUER_DID"),
		IssuerPrivateKey: os.Getenv("ISSUER_PRIVATE_KEY"),

		VerificationDomain: domain,
		AdminToken:         os.Getenv("ADMIN_TOKEN"),

		ChallengeTTL:  envMinutes("CHALLENGE_TTL_MIN", DefaultChallengeTTL),
		SessionTTL:    envMinutes("SESSION_TTL_MIN", DefaultSessionTTL),
		SweepInterval: DefaultSweepEvery,
		VerifiedGrace: DefaultVerifiedGrace,

		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisURL:     os.Getenv("REDIS_URL"),
		KafkaBrokers: os.Getenv("KAFKA_BROKERS"),
	}
}

func envInt64(key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v
	}
	return fallback
}

func envMinutes(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		return time.Duration(v) * time.Minute
	}
	return fallback
}
