package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/visadesk/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   REST bind address (e.g., ":5000")
//	-g string   gRPC health bind address
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      token validity, hours
//	-b int      bcrypt cost
//	-o string   allowed CORS origin
//	-l string   log level
//	-f string   log format (console|json)
//	-r bool     revoke tokens on logout
//
// Duration flags are accepted as whole hours and converted to time.Duration.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-d", "-s", "-t", "-b", "-o", "-l", "-f", "-r"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.HTTPAddr, "a", cfg.HTTPAddr, "REST API address")
	fs.StringVar(&cfg.GRPCAddr, "g", cfg.GRPCAddr, "gRPC health address")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "JWT secret key")
	validity := fs.Int("t", int(cfg.TokenValidityDuration.Hours()), "token validity (in hours)")
	fs.IntVar(&cfg.BcryptCost, "b", cfg.BcryptCost, "bcrypt cost")
	fs.StringVar(&cfg.CORSOrigin, "o", cfg.CORSOrigin, "allowed CORS origin")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "f", cfg.LogFormat, "log format (console|json)")
	fs.BoolVar(&cfg.RevokeOnLogout, "r", cfg.RevokeOnLogout, "revoke tokens on logout")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			cfg.TokenValidityDuration = time.Duration(*validity) * time.Hour
		}
	})
	return nil
}
