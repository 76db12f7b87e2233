package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/wesm/chatvault/internal/store"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the page cache against the messages",
	Long: `Recompute every message's page and compare it with the stored page
cache. A mismatch means the archive was modified after it was built;
rebuild it with 'chatvault build'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := MustBeLocal("verify"); err != nil {
			return err
		}

		s, err := openLocalStore()
		if err != nil {
			return err
		}
		defer s.Close()

		check, err := s.CheckPageCache(cmd.Context(), store.PageSize)
		if err != nil {
			return fmt.Errorf("check page cache: %w", err)
		}

		fmt.Printf("Archive: %s\n", s.Path())
		fmt.Printf("  Messages:      %s\n", humanize.Comma(check.Messages))
		fmt.Printf("  Missing rows:  %s\n", humanize.Comma(check.Missing))
		fmt.Printf("  Stale rows:    %s\n", humanize.Comma(check.Stale))
		fmt.Printf("  Orphaned rows: %s\n", humanize.Comma(check.Orphaned))

		if !check.OK() {
			return fmt.Errorf("page cache does not match the messages; rebuild the archive")
		}
		fmt.Println("\nPage cache OK.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
