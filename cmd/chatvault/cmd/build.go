package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/wesm/chatvault/internal/importer"
)

var buildCmd = &cobra.Command{
	Use:   "build [export-dir]",
	Short: "Build the archive from an export",
	Long: `Build a fresh archive from a chat server export.

The export directory holds a categories/ directory of numbered JSON files
and an optional other_channels/ directory. A directory whose first
subdirectory holds the export is accepted too. Without an argument the
[export] source_dir setting is used.

The export is loaded and validated completely before the existing archive
is replaced, so a malformed export leaves the old archive untouched.

Examples:
  chatvault build ~/exports/server
  chatvault build            # uses [export] source_dir`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := MustBeLocal("build"); err != nil {
			return err
		}

		exportDir := cfg.Export.SourceDir
		if len(args) == 1 {
			exportDir = args[0]
		}
		if exportDir == "" {
			return fmt.Errorf("no export directory given\n\n" +
				"Pass one as an argument or set it in config.toml:\n" +
				"  [export]\n" +
				"  source_dir = \"/path/to/export\"")
		}

		dbPath := cfg.DatabasePath()
		fmt.Printf("Building %s from %s\n", dbPath, exportDir)

		summary, err := importer.Build(cmd.Context(), exportDir, dbPath, importer.BuildOptions{
			MaxConnections:  cfg.Store.MaxConnections,
			LoadConcurrency: cfg.Store.Workers,
			Progress:        NewCLIProgress(os.Stdout),
			Logger:          logger,
		})
		if err != nil {
			var perr *importer.ParseError
			switch {
			case errors.As(err, &perr):
				return fmt.Errorf("export file %s is malformed: %w\n\nThe existing archive was left unchanged", perr.Path, perr.Err)
			case errors.Is(err, importer.ErrExportNotFound):
				return fmt.Errorf("%w\n\nExpected a categories/ directory in %s or its first subdirectory", err, exportDir)
			}
			return fmt.Errorf("build failed: %w", err)
		}

		fmt.Println()
		fmt.Println("Build complete!")
		fmt.Printf("  Duration:    %s\n", summary.Duration.Round(time.Millisecond))
		fmt.Printf("  Categories:  %s\n", humanize.Comma(summary.Categories))
		fmt.Printf("  Channels:    %s (%s skipped)\n", humanize.Comma(summary.Channels), humanize.Comma(summary.ChannelsSkipped))
		fmt.Printf("  Messages:    %s\n", humanize.Comma(summary.Messages))
		fmt.Printf("  Indexed:     %s\n", humanize.Comma(summary.IndexedMessages))
		return nil
	},
}

// CLIProgress implements importer.BuildProgress for terminal output. On a
// terminal it redraws a single status line; otherwise it prints one line per
// channel.
type CLIProgress struct {
	out         io.Writer
	interactive bool

	startTime time.Time
	channels  int
	messages  int
	done      int
	skipped   int
}

// NewCLIProgress returns a progress reporter writing to f.
func NewCLIProgress(f *os.File) *CLIProgress {
	return &CLIProgress{
		out:         f,
		interactive: isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()),
	}
}

func (p *CLIProgress) OnStart(channels, messages int) {
	p.startTime = time.Now()
	p.channels = channels
	p.messages = messages
	p.done = 0
	p.skipped = 0
	fmt.Fprintf(p.out, "  Loaded %d channels, %s messages\n", channels, humanize.Comma(int64(messages)))
}

func (p *CLIProgress) OnChannel(category string, ch importer.Channel, skipped bool) {
	if p.startTime.IsZero() {
		p.startTime = time.Now()
	}
	p.done++
	if skipped {
		p.skipped++
	}

	if !p.interactive {
		status := "inserted"
		if skipped {
			status = "skipped (" + ch.Kind.String() + ")"
		}
		fmt.Fprintf(p.out, "  %s/%s: %s\n", category, ch.Name, status)
		return
	}
	fmt.Fprintf(p.out, "\r  Channels: %d/%d | Skipped: %d | Elapsed: %s    ",
		p.done, p.channels, p.skipped, formatDuration(time.Since(p.startTime)))
}

func (p *CLIProgress) OnComplete(*importer.BuildSummary) {
	if p.interactive {
		fmt.Fprintln(p.out) // Clear the progress line
	}
}

// formatDuration formats a duration as "1h2m3s", "2m3s" or "3s".
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm%ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

func init() {
	rootCmd.AddCommand(buildCmd)
}
