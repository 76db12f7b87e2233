package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wesm/chatvault/internal/query"
)

var gotoCmd = &cobra.Command{
	Use:   "goto <message-id>",
	Short: "Show the page holding a message",
	Long: `Resolve a message ID to its channel and page, and show that page.

Message IDs are printed by 'chatvault page' and 'chatvault search'. IDs
are not stable across rebuilds.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("message ID", args[0])
		if err != nil {
			return err
		}

		engine, err := OpenEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		ctx := cmd.Context()
		loc, err := engine.GoToMessage(ctx, id)
		if errors.Is(err, query.ErrNotFound) {
			return fmt.Errorf("message %d not found (IDs change when the archive is rebuilt)", id)
		}
		if err != nil {
			return fmt.Errorf("go to message: %w", err)
		}
		ch, err := engine.GetChannel(ctx, loc.ChannelID)
		if err != nil {
			return fmt.Errorf("get channel: %w", err)
		}
		msgs, err := engine.GetPage(ctx, loc.ChannelID, loc.Page)
		if err != nil {
			return fmt.Errorf("get page: %w", err)
		}
		return showPage(ch, loc.Page, msgs)
	},
}

func init() {
	rootCmd.AddCommand(gotoCmd)
	gotoCmd.Flags().BoolVar(&pageJSON, "json", false, "Output as JSON")
}
