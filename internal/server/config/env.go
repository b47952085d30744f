package config

import (
	"fmt"
	"strconv"
	"time"
)

// parseEnv overlays values from environment variables. PORT is accepted as a
// bare port number for compatibility with PaaS conventions; HTTP_ADDR wins
// when both are set.
func parseEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}

	if port, ok := lookup("PORT"); ok && port != "" {
		cfg.HTTPAddr = ":" + port
	}

	strs := map[string]*string{
		"HTTP_ADDR":                   &cfg.HTTPAddr,
		"GRPC_ADDR":                   &cfg.GRPCAddr,
		"DATABASE_DSN":                &cfg.DatabaseDSN,
		"JWT_SECRET":                  &cfg.SecretKey,
		"CORS_ORIGIN":                 &cfg.CORSOrigin,
		"LOG_LEVEL":                   &cfg.LogLevel,
		"LOG_FORMAT":                  &cfg.LogFormat,
		"OTEL_EXPORTER_OTLP_ENDPOINT": &cfg.OTLPEndpoint,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("TOKEN_VALIDITY"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TOKEN_VALIDITY: %w", err)
		}
		cfg.TokenValidityDuration = d
	}

	if v, ok := lookup("BCRYPT_COST"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BCRYPT_COST: %w", err)
		}
		cfg.BcryptCost = n
	}

	bools := map[string]*bool{
		"OTEL_EXPORTER_OTLP_INSECURE": &cfg.OTLPInsecure,
		"REVOKE_ON_LOGOUT":            &cfg.RevokeOnLogout,
	}
	for key, dst := range bools {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
	}
	return nil
}
