package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"ms-events/internal/admin"
	"ms-events/internal/blob"
	"ms-events/internal/bootstrap"
	"ms-events/internal/client"
	"ms-events/internal/config"
	"ms-events/internal/logger"
	"ms-events/internal/publish"
	"ms-events/internal/store"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
)

// app holds everything one eventctl invocation needs
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *bun.DB
	server  *client.ServerClient
	console *admin.Console
}

func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	db, err := store.Open(cfg.Console.StoreDSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	st, err := store.New(ctx, db, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	blobs := blob.NewRegistry()
	httpClient := &http.Client{Timeout: cfg.Console.ClientTimeout}
	server := client.NewServerClient(cfg.Console.ServerURL, cfg.Console.AdminToken, httpClient, log)
	resolver := bootstrap.NewResolver(st, server, blobs, log)
	pipeline := publish.NewPipeline(server, blobs, log)
	console := admin.NewConsole(st, resolver, pipeline, blobs, log)

	if _, err := console.Load(ctx); err != nil {
		console.Close()
		db.Close()
		return nil, err
	}
	return &app{cfg: cfg, log: log, db: db, server: server, console: console}, nil
}

func (a *app) Close() {
	a.console.Close()
	if err := a.db.Close(); err != nil {
		a.log.Error("STORE", fmt.Sprintf("Failed to close store: %v", err))
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	var verbose bool
	log, _ := logger.NewLogger("", "eventctl")

	root := &cobra.Command{
		Use:           "eventctl",
		Short:         "Owner console for the event manifest",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := logger.WARN
			if verbose {
				level = logger.DEBUG
			}
			log.SetLevel(level)
		},
	}
	root.PersistentFlags().StringVar(&cfg.Console.StoreDSN, "store", cfg.Console.StoreDSN, "local store DSN (sqlite path or postgres:// URL)")
	root.PersistentFlags().StringVar(&cfg.Console.ServerURL, "server", cfg.Console.ServerURL, "manifest server base URL")
	root.PersistentFlags().StringVar(&cfg.Console.AdminToken, "token", cfg.Console.AdminToken, "admin bearer token")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")

	withApp := func(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()
			return run(cmd, a, args)
		}
	}

	root.AddCommand(
		newStatusCmd(withApp),
		newEventCmd(withApp),
		newAssetCmd(withApp),
		newSettingsCmd(withApp),
		newPublishCmd(withApp),
		newExportCmd(withApp),
		newRestoreCmd(withApp),
		newAICmd(withApp),
		newWatchCmd(cfg, log),
	)
	return root
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	if err := newRootCmd(cfg).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
