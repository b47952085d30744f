// Package config handles configuration for the server component:
// defaults, an optional JSON file, environment variables and finally
// command-line flags, each layer overriding the previous one.
package config

import (
	"fmt"
	"os"
	"time"
)

// DefaultSecretKey is the development signing secret. Startup logs a warning
// when it is still in use.
const DefaultSecretKey = "secretKey"

// Config holds runtime settings for the server.
//
// Fields:
//   - HTTPAddr: bind address for the REST API.
//   - GRPCAddr: bind address for the gRPC health service.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects in-memory storage.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Loaded once, never rotated.
//   - TokenValidityDuration: lifetime of issued bearer tokens.
//   - BcryptCost: work factor for password hashing.
//   - CORSOrigin: the single browser origin allowed to call the API.
//   - LogLevel / LogFormat: zerolog level and "console" or "json" output.
//   - OTLPEndpoint / OTLPInsecure: trace exporter target; empty disables tracing.
//   - RevokeOnLogout: record logged-out token ids and reject them until expiry.
type Config struct {
	HTTPAddr              string
	GRPCAddr              string
	DatabaseDSN           string
	SecretKey             string
	TokenValidityDuration time.Duration
	BcryptCost            int
	CORSOrigin            string
	LogLevel              string
	LogFormat             string
	OTLPEndpoint          string
	OTLPInsecure          bool
	RevokeOnLogout        bool
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secret key default is insecure and must be overridden in production.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":5000"
	c.GRPCAddr = ":50051"
	c.DatabaseDSN = ""
	c.SecretKey = DefaultSecretKey
	c.TokenValidityDuration = 7 * 24 * time.Hour
	c.BcryptCost = 12
	c.CORSOrigin = "http://localhost:5173"
	c.LogLevel = "info"
	c.LogFormat = "console"
	c.OTLPEndpoint = ""
	c.OTLPInsecure = false
	c.RevokeOnLogout = false
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("secret key must not be empty")
	}
	if c.TokenValidityDuration <= 0 {
		return fmt.Errorf("token validity must be positive, got %s", c.TokenValidityDuration)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost must be within [4, 31], got %d", c.BcryptCost)
	}
	return nil
}

// LoadConfig builds a Config from process arguments and environment.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:], os.LookupEnv)
}

// Load applies defaults, then the JSON file named by -c/-config (or
// $CONFIG_FILE), then environment variables resolved through lookup, then
// flags from args.
func Load(args []string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, lookup); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
