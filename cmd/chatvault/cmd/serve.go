package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/wesm/chatvault/internal/api"
	"github.com/wesm/chatvault/internal/query"
	"github.com/wesm/chatvault/internal/workpool"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the archive over a JSON HTTP API",
	Long: `Serve the archive over a read-only JSON HTTP API.

Routes:
  GET /health
  GET /api/v1/stats
  GET /api/v1/channels
  GET /api/v1/channels/{id}
  GET /api/v1/channels/{id}/pages/{page}
  GET /api/v1/messages/{id}
  GET /api/v1/search?content=..&username=..&limit=..

Queries run on a bounded worker pool sized by [store] workers.
Use Ctrl+C to stop the server gracefully.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (overrides [server] api_port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := MustBeLocal("serve"); err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.APIPort = servePort
	}

	s, err := openLocalStore()
	if err != nil {
		return err
	}
	defer s.Close()

	pool := workpool.New(cfg.Store.Workers, logger)
	engine := query.NewPooledEngine(query.NewSQLiteEngine(s.DB()), pool)
	defer engine.Close()

	apiServer := api.NewServer(cfg, engine, logger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- apiServer.Start()
	}()

	fmt.Printf("chatvault server started\n")
	fmt.Printf("  API server: http://%s\n", apiServer.Addr())
	fmt.Printf("  Archive:    %s\n", s.Path())
	fmt.Printf("  Workers:    %d\n", pool.Size())
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop.")

	ctx := cmd.Context()
	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("API server error", "error", err)
			return fmt.Errorf("API server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("received shutdown signal")
		fmt.Println("\nShutting down...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown error", "error", err)
	}
	<-serverErr
	fmt.Println("Shutdown complete.")
	return nil
}
