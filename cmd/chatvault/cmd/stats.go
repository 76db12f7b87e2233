package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show archive statistics",
	Long: `Show statistics about the archive.

Uses the server given by --remote if set, otherwise the local archive.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := OpenEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		stats, err := engine.GetStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("get stats: %w", err)
		}

		// Show source indicator
		if IsRemoteMode() {
			fmt.Printf("Remote: %s\n", remoteURL)
		} else {
			fmt.Printf("Database: %s\n", cfg.DatabasePath())
		}

		fmt.Printf("  Categories:  %s\n", humanize.Comma(stats.CategoryCount))
		fmt.Printf("  Channels:    %s\n", humanize.Comma(stats.ChannelCount))
		fmt.Printf("  Messages:    %s\n", humanize.Comma(stats.MessageCount))
		fmt.Printf("  Pages:       %s\n", humanize.Comma(stats.PageCount))
		fmt.Printf("  Size:        %s\n", humanize.Bytes(uint64(max(stats.DatabaseSize, 0))))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
