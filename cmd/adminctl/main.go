// Command adminctl runs maintenance tasks against the visadesk store.
//
// Usage:
//
//	adminctl bootstrap [server flags]
//	adminctl gen-secret
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/visadesk/internal/admincli"
	"github.com/dmitrijs2005/visadesk/internal/logging"
	"github.com/dmitrijs2005/visadesk/internal/server"
	"github.com/dmitrijs2005/visadesk/internal/server/config"
	"github.com/dmitrijs2005/visadesk/internal/server/services"
	"github.com/dmitrijs2005/visadesk/internal/shared"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	var err error
	switch os.Args[1] {
	case "bootstrap":
		err = bootstrap(context.Background(), os.Args[2:])
	case "gen-secret":
		err = admincli.NewApp(os.Stdin, os.Stdout, nil).GenerateSecret(shared.MinSecretBytes)
	default:
		usage()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: adminctl bootstrap [-d dsn] [-c config.json] | adminctl gen-secret")
	os.Exit(2)
}

func bootstrap(ctx context.Context, args []string) error {
	cfg, err := config.Load(args, os.LookupEnv)
	if err != nil {
		return err
	}
	if cfg.DatabaseDSN == "" {
		return fmt.Errorf("bootstrap needs a database: set DATABASE_DSN or -d")
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	st, err := server.OpenStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.DB.Close()

	svc := services.NewUserService(st.DBTX(), st.Transactor, st.Manager, cfg, services.WithLogger(logger))

	return admincli.NewApp(os.Stdin, os.Stdout, svc).Bootstrap(ctx)
}
