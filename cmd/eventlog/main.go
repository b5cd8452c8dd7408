package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ManuelReschke/MemberGate/internal/pkg/config"
	"github.com/ManuelReschke/MemberGate/internal/pkg/database"
	"github.com/ManuelReschke/MemberGate/internal/pkg/env"
	applog "github.com/ManuelReschke/MemberGate/internal/pkg/logger"
)

func main() {
	env.SetupEnvFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "eventlog",
		Short:         "Operate on the webhook event log",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(replayCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(signCmd())
	return rootCmd
}

// openStore loads the config and connects to the database.
func openStore() (*config.Config, *gorm.DB, *zap.Logger, error) {
	cfg, err := config.Load(env.Environ())
	if err != nil {
		return nil, nil, nil, err
	}

	log := applog.Setup(cfg.IsDev())
	db, err := database.Open(cfg.DB, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, db, log, nil
}
