package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophstat/internal/server/auth"
	"github.com/dmitrijs2005/gophstat/internal/server/config"
	"github.com/dmitrijs2005/gophstat/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophstat/internal/server/services"
	"github.com/dmitrijs2005/gophstat/internal/userctl"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()
	cfg := config.LoadStoreConfig()

	fs := flag.NewFlagSet("userctl", flag.ContinueOnError)
	fs.Usage = func() { userctl.Usage(os.Stderr) }
	fs.String("c", "", "config file")
	fs.String("config", "", "config file")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.DatabaseDriver, "driver", cfg.DatabaseDriver, "database driver (sqlite, postgres)")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return 2
	}

	rm, err := repomanager.NewRepositoryManager(cfg.DatabaseDriver)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	db, err := repomanager.Open(ctx, rm, cfg.DatabaseDSN)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer db.Close()

	if err := rm.RunMigrations(ctx, db); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	accounts := services.NewAccountService(db, rm, auth.NewPasswords(cfg.BcryptCost))
	if err := userctl.New(accounts, os.Stdin, os.Stdout).Run(ctx, fs.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "userctl:", err)
		if errors.Is(err, userctl.ErrUsage) {
			userctl.Usage(os.Stderr)
			return 2
		}
		return 1
	}
	return 0
}
