package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/wesm/chatvault/internal/query"
)

var pageJSON bool

var pageCmd = &cobra.Command{
	Use:   "page <channel-id> [page]",
	Short: "Show one page of a channel",
	Long: `Show one page of a channel's messages, newest first.

Page 0 (the default) holds the newest messages. A page past the end of
the channel is empty.

Examples:
  chatvault page 3
  chatvault page 3 12`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		channelID, err := parseID("channel ID", args[0])
		if err != nil {
			return err
		}
		page := 0
		if len(args) == 2 {
			page, err = strconv.Atoi(args[1])
			if err != nil || page < 0 {
				return fmt.Errorf("invalid page %q: must be a non-negative integer", args[1])
			}
		}

		engine, err := OpenEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		ctx := cmd.Context()
		ch, err := engine.GetChannel(ctx, channelID)
		if err != nil {
			return fmt.Errorf("get channel: %w", err)
		}
		msgs, err := engine.GetPage(ctx, channelID, page)
		if err != nil {
			return fmt.Errorf("get page: %w", err)
		}
		return showPage(ch, page, msgs)
	},
}

func showPage(ch *query.Channel, page int, msgs []query.Message) error {
	if pageJSON {
		return writeJSON(struct {
			Channel  *query.Channel  `json:"channel"`
			Page     int             `json:"page"`
			Messages []query.Message `json:"messages"`
		}{ch, page, msgs})
	}

	fmt.Printf("#%s (%s), page %d\n\n", ch.Name, ch.CategoryName, page)
	if len(msgs) == 0 {
		fmt.Println("No messages on this page.")
		return nil
	}
	return writeMessages(os.Stdout, msgs)
}

func init() {
	rootCmd.AddCommand(pageCmd)
	pageCmd.Flags().BoolVar(&pageJSON, "json", false, "Output as JSON")
}
