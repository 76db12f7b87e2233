package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/wesm/chatvault/internal/store"
	"github.com/wesm/chatvault/internal/textutil"
)

const (
	categoriesDir    = "categories"
	otherChannelsDir = "other_channels"
)

// ErrExportNotFound is returned when no categories directory can be found.
var ErrExportNotFound = errors.New("export not found")

// ParseError reports an export file that could not be decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// LoadOptions configures LoadExport.
type LoadOptions struct {
	// Concurrency bounds how many files are decoded at once.
	// Defaults to the number of CPUs.
	Concurrency int

	// Logger is optional; defaults to slog.Default().
	Logger *slog.Logger
}

// ResolveExportRoot returns the directory holding the export's categories
// directory: dir itself, or else the first subdirectory of dir, by name,
// that has one.
func ResolveExportRoot(dir string) (string, error) {
	if isDir(filepath.Join(dir, categoriesDir)) {
		return dir, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrExportNotFound, dir)
		}
		return "", fmt.Errorf("read export dir: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		candidate := filepath.Join(dir, e.Name())
		if isDir(filepath.Join(candidate, categoriesDir)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no %s directory under %s", ErrExportNotFound, categoriesDir, dir)
}

// LoadExport reads every category file and other-channel file of the export
// rooted at root. Messages of every channel are sorted newest first. Channels
// outside any category are gathered into a final synthetic category named
// OtherChannelsCategory. Any unreadable or malformed file aborts the load.
func LoadExport(ctx context.Context, root string, opts LoadOptions) (*Export, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
	}

	ordinals, err := categoryOrdinals(filepath.Join(root, categoriesDir), log)
	if err != nil {
		return nil, err
	}
	otherFiles, err := otherChannelFiles(filepath.Join(root, otherChannelsDir))
	if err != nil {
		return nil, err
	}

	catResults := make([][]Category, len(ordinals))
	otherResults := make([]Channel, len(otherFiles))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for i, ord := range ordinals {
		path := filepath.Join(root, categoriesDir, strconv.Itoa(ord)+".json")
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cats, err := loadCategoryFile(path, ord)
			if err != nil {
				return err
			}
			catResults[i] = cats
			return nil
		})
	}
	for i, path := range otherFiles {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ch, err := loadChannelFile(path)
			if err != nil {
				return err
			}
			otherResults[i] = ch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	exp := &Export{Root: root}
	for _, cats := range catResults {
		exp.Categories = append(exp.Categories, cats...)
	}
	if len(otherResults) > 0 {
		last := -1
		if len(ordinals) > 0 {
			last = ordinals[len(ordinals)-1]
		}
		exp.Categories = append(exp.Categories, Category{
			Name:     OtherChannelsCategory,
			Ordinal:  last + 1,
			Channels: otherResults,
		})
	}

	log.Debug("export loaded",
		"root", root,
		"categories", len(exp.Categories),
		"channels", exp.ChannelCount(),
		"messages", exp.MessageCount())
	return exp, nil
}

// categoryOrdinals lists the numeric stems of categories/<n>.json in
// ascending order. Gaps are expected: private categories are dropped from
// exports without renumbering the rest.
func categoryOrdinals(dir string, log *slog.Logger) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrExportNotFound, dir)
		}
		return nil, fmt.Errorf("read categories: %w", err)
	}

	var ordinals []int
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(name, ".json"))
		if err != nil || n < 0 {
			log.Debug("ignoring category file without a numeric name", "file", name)
			continue
		}
		ordinals = append(ordinals, n)
	}
	sort.Ints(ordinals)
	return ordinals, nil
}

// otherChannelFiles lists other_channels/*.json by file name. A missing
// directory means the export has no such channels.
func otherChannelFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read other channels: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	// os.ReadDir already sorts by name.
	return files, nil
}

// loadCategoryFile decodes a category file holding either one category
// object or an array of them.
func loadCategoryFile(path string, ordinal int) ([]Category, error) {
	data, err := readExportFile(path)
	if err != nil {
		return nil, err
	}

	var raw []exportCategory
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(data, &raw)
	} else {
		var one exportCategory
		err = json.Unmarshal(data, &one)
		raw = []exportCategory{one}
	}
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	cats := make([]Category, 0, len(raw))
	for _, rc := range raw {
		cat := Category{Name: rc.Name, Ordinal: ordinal}
		for _, rch := range rc.Children {
			ch, err := convertChannel(rch)
			if err != nil {
				return nil, &ParseError{Path: path, Err: fmt.Errorf("category %q: %w", rc.Name, err)}
			}
			cat.Channels = append(cat.Channels, ch)
		}
		cats = append(cats, cat)
	}
	return cats, nil
}

func loadChannelFile(path string) (Channel, error) {
	data, err := readExportFile(path)
	if err != nil {
		return Channel{}, err
	}
	var raw exportChannel
	if err := json.Unmarshal(data, &raw); err != nil {
		return Channel{}, &ParseError{Path: path, Err: err}
	}
	ch, err := convertChannel(raw)
	if err != nil {
		return Channel{}, &ParseError{Path: path, Err: err}
	}
	return ch, nil
}

func readExportFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export file: %w", err)
	}
	return textutil.RepairUTF8(data), nil
}

// convertChannel validates a decoded channel, renders its messages and
// sorts them newest first. Equal timestamps keep their export order.
func convertChannel(raw exportChannel) (Channel, error) {
	if raw.Type == nil {
		return Channel{}, fmt.Errorf("channel %q: missing type", raw.Name)
	}
	ch := Channel{Kind: store.ChannelKind(*raw.Type), Name: raw.Name}
	if raw.Messages == nil {
		return ch, nil
	}

	ch.Messages = make([]Message, len(raw.Messages))
	for i, m := range raw.Messages {
		if m.SentAt == nil {
			return Channel{}, fmt.Errorf("channel %q: message %d: missing sentAt", raw.Name, i)
		}
		ch.Messages[i] = Message{
			Content:  RenderContent(m.Content),
			Username: m.Username,
			Avatar:   m.Avatar,
			SentAt:   m.SentAt.UTC(),
		}
	}
	slices.SortStableFunc(ch.Messages, func(a, b Message) int {
		return b.SentAt.Compare(a.SentAt)
	})
	return ch, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
