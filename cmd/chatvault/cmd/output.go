package cmd

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/wesm/chatvault/internal/query"
	"github.com/wesm/chatvault/internal/textutil"
)

const (
	usernameWidth = 20
	contentWidth  = 80
	channelWidth  = 24
)

// displayContent turns stored message HTML into a single terminal line.
func displayContent(content string, width int) string {
	return textutil.Truncate(textutil.OneLine(html.UnescapeString(content)), width)
}

// writeMessages prints messages as an aligned table, one row per message.
func writeMessages(out io.Writer, msgs []query.Message) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSENT\tAUTHOR\tMESSAGE")
	fmt.Fprintln(w, "──\t────\t──────\t───────")
	for _, m := range msgs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			m.ID,
			m.SentAt.Local().Format("2006-01-02 15:04"),
			textutil.Truncate(m.Username, usernameWidth),
			displayContent(m.Content, contentWidth))
	}
	return w.Flush()
}

// writeHits prints search hits with their channel.
func writeHits(out io.Writer, hits []query.SearchHit) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSENT\tCHANNEL\tAUTHOR\tMESSAGE")
	fmt.Fprintln(w, "──\t────\t───────\t──────\t───────")
	for _, h := range hits {
		fmt.Fprintf(w, "%d\t%s\t#%s\t%s\t%s\n",
			h.ID,
			h.SentAt.Local().Format("2006-01-02 15:04"),
			textutil.Truncate(h.ChannelName, channelWidth),
			textutil.Truncate(h.Username, usernameWidth),
			displayContent(h.Content, contentWidth))
	}
	return w.Flush()
}

// writeChannels prints categories with their channels indented below.
func writeChannels(out io.Writer, cats []query.CategoryChannels) {
	for _, cat := range cats {
		fmt.Fprintln(out, cat.CategoryName)
		for _, ch := range cat.Channels {
			fmt.Fprintf(out, "  %s %d\n", textutil.PadRight("#"+ch.Name, channelWidth+1), ch.ID)
		}
	}
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseID parses a positive integer command argument.
func parseID(what, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", what, s)
	}
	return id, nil
}
