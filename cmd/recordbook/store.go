// Selects the persistence backend from the -store flag.

package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/maruel/recordbook/internal/kvstore"
)

// openedStore is a persistence backend plus what the binary needs to manage
// it.
type openedStore struct {
	kv kvstore.Store
	// dir is set for file based backends, which can be watched for external
	// edits.
	dir   *kvstore.Dir
	close func() error
}

func (o *openedStore) Close() error {
	if o.close == nil {
		return nil
	}
	return o.close()
}

func openStore(kind, dataDir string) (*openedStore, error) {
	switch kind {
	case "memory":
		slog.Warn("Using the in-memory store, nothing will be persisted")
		return &openedStore{kv: &kvstore.Memory{}}, nil
	case "dir":
		d, err := kvstore.NewDir(dataDir)
		if err != nil {
			return nil, err
		}
		return &openedStore{kv: d, dir: d}, nil
	case "git":
		g, err := kvstore.NewGit(dataDir, "recordbook", "recordbook@localhost")
		if err != nil {
			return nil, fmt.Errorf("failed to open git store: %w", err)
		}
		return &openedStore{kv: g, dir: g.Dir}, nil
	case "sqlite":
		s, err := kvstore.NewSQLite(filepath.Join(dataDir, "recordbook.db"))
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return &openedStore{kv: s, close: s.Close}, nil
	default:
		return nil, fmt.Errorf("unknown store %q, want dir, git, sqlite or memory", kind)
	}
}
