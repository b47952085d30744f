package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv(t *testing.T) {
	var c Config
	c.LoadDefaults()

	err := parseEnv(&c, envFrom(map[string]string{
		"PORT":                        "8080",
		"DATABASE_DSN":                "postgres://env",
		"JWT_SECRET":                  "s3cr3t",
		"TOKEN_VALIDITY":              "48h",
		"BCRYPT_COST":                 "11",
		"LOG_FORMAT":                  "json",
		"OTEL_EXPORTER_OTLP_ENDPOINT": "collector:4317",
		"OTEL_EXPORTER_OTLP_INSECURE": "true",
		"REVOKE_ON_LOGOUT":            "1",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, "postgres://env", c.DatabaseDSN)
	assert.Equal(t, "s3cr3t", c.SecretKey)
	assert.Equal(t, 48*time.Hour, c.TokenValidityDuration)
	assert.Equal(t, 11, c.BcryptCost)
	assert.Equal(t, "json", c.LogFormat)
	assert.Equal(t, "collector:4317", c.OTLPEndpoint)
	assert.True(t, c.OTLPInsecure)
	assert.True(t, c.RevokeOnLogout)
}

func TestParseEnv_HTTPAddrWinsOverPort(t *testing.T) {
	var c Config
	c.LoadDefaults()

	require.NoError(t, parseEnv(&c, envFrom(map[string]string{
		"PORT":      "8080",
		"HTTP_ADDR": "127.0.0.1:9000",
	})))
	assert.Equal(t, "127.0.0.1:9000", c.HTTPAddr)
}

func TestParseEnv_BadValues(t *testing.T) {
	for key, val := range map[string]string{
		"TOKEN_VALIDITY":   "week",
		"BCRYPT_COST":      "high",
		"REVOKE_ON_LOGOUT": "maybe",
	} {
		t.Run(key, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			require.Error(t, parseEnv(&c, envFrom(map[string]string{key: val})))
		})
	}
}
