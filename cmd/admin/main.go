package main

import (
	"context"
	"os"

	"github.com/akolanti/docmind/internal/bootstrap"
	"github.com/akolanti/docmind/internal/config"
	"github.com/akolanti/docmind/pkg/logger_i"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "docmind-admin",
	Short: "operator commands for the document store",
	Example: `docmind-admin purge --document <doc-id>
docmind-admin purge --deleted-before 2026-01-01T00:00:00Z
docmind-admin token --user <user-id> --ttl 24h
docmind-admin reprocess --document <doc-id>`,
	SilenceUsage: true,
}

// loadConfig is swapped in tests.
var loadConfig = config.Load

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(purgeCmd(), tokenCmd(), reprocessCmd())
	rootCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
}

// withApp runs fn against a fully wired app without a worker pool.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *bootstrap.App) error) error {
	cfg := loadConfig()
	logger_i.InitWithWriter(cfg, cmd.ErrOrStderr())

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	app, err := bootstrap.Build(ctx, cfg, bootstrap.Options{InlineAnnotation: true})
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app)
}
