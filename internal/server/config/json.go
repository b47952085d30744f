package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/visadesk/internal/flagx"
	"github.com/dmitrijs2005/visadesk/internal/timex"
)

// JSONConfig is the on-disk shape of the config file. Pointer fields let an
// absent key keep the value from the previous layer.
type JSONConfig struct {
	HTTPAddr              *string         `json:"http_addr"`
	GRPCAddr              *string         `json:"grpc_addr"`
	DatabaseDSN           *string         `json:"database_dsn"`
	SecretKey             *string         `json:"secret_key"`
	TokenValidityDuration *timex.Duration `json:"token_validity_duration"`
	BcryptCost            *int            `json:"bcrypt_cost"`
	CORSOrigin            *string         `json:"cors_origin"`
	LogLevel              *string         `json:"log_level"`
	LogFormat             *string         `json:"log_format"`
	OTLPEndpoint          *string         `json:"otlp_endpoint"`
	OTLPInsecure          *bool           `json:"otlp_insecure"`
	RevokeOnLogout        *bool           `json:"revoke_on_logout"`
}

// parseJSON overlays values from the JSON config file, if one is named.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var c JSONConfig
	if err := json.Unmarshal(raw, &c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.HTTPAddr, c.HTTPAddr)
	setString(&cfg.GRPCAddr, c.GRPCAddr)
	setString(&cfg.DatabaseDSN, c.DatabaseDSN)
	setString(&cfg.SecretKey, c.SecretKey)
	if c.TokenValidityDuration != nil {
		cfg.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
	if c.BcryptCost != nil {
		cfg.BcryptCost = *c.BcryptCost
	}
	setString(&cfg.CORSOrigin, c.CORSOrigin)
	setString(&cfg.LogLevel, c.LogLevel)
	setString(&cfg.LogFormat, c.LogFormat)
	setString(&cfg.OTLPEndpoint, c.OTLPEndpoint)
	if c.OTLPInsecure != nil {
		cfg.OTLPInsecure = *c.OTLPInsecure
	}
	if c.RevokeOnLogout != nil {
		cfg.RevokeOnLogout = *c.RevokeOnLogout
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
