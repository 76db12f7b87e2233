package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/wesm/chatvault/internal/query"
	"github.com/wesm/chatvault/internal/remote"
	"github.com/wesm/chatvault/internal/store"
)

// IsRemoteMode reports whether read commands go to a server given by --remote.
func IsRemoteMode() bool {
	return remoteURL != ""
}

// OpenEngine returns the query engine read commands run against: a remote
// engine when --remote is set, otherwise the local archive. The returned
// engine must be closed by the caller.
func OpenEngine() (query.Engine, error) {
	if IsRemoteMode() {
		return remote.NewEngine(remote.Config{
			URL:           remoteURL,
			AllowInsecure: allowInsecure,
			Timeout:       30 * time.Second,
		})
	}
	s, err := openLocalStore()
	if err != nil {
		return nil, err
	}
	return &localEngine{SQLiteEngine: query.NewSQLiteEngine(s.DB()), store: s}, nil
}

// localEngine ties a SQLiteEngine to the store it reads, so closing the
// engine closes the database.
type localEngine struct {
	*query.SQLiteEngine
	store *store.Store
}

func (e *localEngine) Close() error {
	return e.store.Close()
}

// openLocalStore opens the archive at the configured path. It refuses to
// create one: an archive only comes into existence through build.
func openLocalStore() (*store.Store, error) {
	dbPath := cfg.DatabasePath()
	if _, err := os.Stat(dbPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no archive at %s\n\nRun 'chatvault build <export-dir>' first", dbPath)
		}
		return nil, fmt.Errorf("stat archive: %w", err)
	}
	s, err := store.Open(dbPath,
		store.WithMaxConnections(cfg.Store.MaxConnections),
		store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

// MustBeLocal returns an error if remote mode is active.
// Use this for commands that only work with the local database.
func MustBeLocal(cmdName string) error {
	if IsRemoteMode() {
		return fmt.Errorf("%s requires the local archive\n\n"+
			"This command cannot run against a remote server; drop --remote.", cmdName)
	}
	return nil
}
