package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var channelsJSON bool

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "List archived channels by category",
	Long: `List the archived text channels grouped by category, with the channel
IDs used by 'chatvault page'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := OpenEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		cats, err := engine.ListChannels(cmd.Context())
		if err != nil {
			return fmt.Errorf("list channels: %w", err)
		}

		if channelsJSON {
			return writeJSON(cats)
		}
		if len(cats) == 0 {
			fmt.Println("No channels archived.")
			return nil
		}
		writeChannels(os.Stdout, cats)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(channelsCmd)
	channelsCmd.Flags().BoolVar(&channelsJSON, "json", false, "Output as JSON")
}
