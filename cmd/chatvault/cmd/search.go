package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wesm/chatvault/internal/search"
)

var (
	searchUser  string
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [words...]",
	Short: "Full-text search over message content and authors",
	Long: `Search the archive.

Every word must appear in the message content. With --user, messages whose
author name has words starting with the given ones match too. Case and
punctuation are ignored; results are newest first.

Examples:
  chatvault search release notes
  chatvault search --user ali
  chatvault search deploy --user bob -n 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := search.Filter{
			Content: strings.Join(args, " "),
			Limit:   searchLimit,
		}
		if cmd.Flags().Changed("user") {
			filter.Username = &searchUser
		}
		if search.NewQuery(filter).IsEmpty() {
			return fmt.Errorf("empty search query")
		}

		engine, err := OpenEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		hits, err := engine.Search(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}

		if searchJSON {
			return writeJSON(hits)
		}
		if len(hits) == 0 {
			fmt.Println("No messages found.")
			return nil
		}
		if err := writeHits(os.Stdout, hits); err != nil {
			return err
		}
		fmt.Printf("\nShowing %d results\n", len(hits))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchUser, "user", "u", "", "Match author names starting with these words")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 50, "Maximum number of results (0 = no limit)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output as JSON")
}
