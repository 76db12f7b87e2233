package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/wesm/chatvault/internal/config"
)

var (
	cfgFile       string
	homeDir       string
	verbose       bool
	remoteURL     string // query a running server instead of the local archive
	allowInsecure bool
	cfg           *config.Config
	logger        *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "chatvault",
	Short: "Offline chat archive browser",
	Long: `chatvault builds a read-only archive from a chat server export and
serves it for paginated browsing and full-text search.

Build once with 'chatvault build', then browse from the command line,
over the JSON API ('chatvault serve') or from an MCP client ('chatvault mcp').`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Set up logging
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))

		// --home is passed through so it influences where config.toml is
		// loaded from, like CHATVAULT_HOME.
		var err error
		cfg, err = config.Load(cfgFile, homeDir)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	},
}

// Execute runs the root command with a background context.
// Prefer ExecuteContext for signal-aware execution.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.chatvault/config.toml)")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "home directory (overrides CHATVAULT_HOME)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&remoteURL, "remote", "", "query a running chatvault server at this URL")
	rootCmd.PersistentFlags().BoolVar(&allowInsecure, "insecure", false, "allow plain http to a non-loopback --remote server")
}
