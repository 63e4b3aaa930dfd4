// Stores each blob as <key>.json in a directory.

package kvstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

const blobExt = ".json"

// Dir is a Store keeping one file per key in a directory.
//
// Writes go to a temporary file renamed over the target, so a reader never
// observes a half-written blob.
type Dir struct {
	dir string
}

// NewDir creates the directory if needed and returns a Store rooted there.
func NewDir(dir string) (*Dir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return &Dir{dir: dir}, nil
}

// Root returns the directory holding the blobs.
func (d *Dir) Root() string {
	return d.dir
}

// Path returns the file holding key.
func (d *Dir) Path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(d.dir, key+blobExt), nil
}

// Get implements Store.
func (d *Dir) Get(key string) (string, bool, error) {
	p, err := d.Path(key)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(p) //nolint:gosec // G304: path is built from a validated key
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, unavailable("read", key, err)
	}
	return string(data), true, nil
}

// Set implements Store.
func (d *Dir) Set(key, value string) error {
	p, err := d.Path(key)
	if err != nil {
		return err
	}
	f, err := os.CreateTemp(d.dir, "."+key+"-*.tmp")
	if err != nil {
		return unavailable("write", key, err)
	}
	tmp := f.Name()
	if _, err := f.WriteString(value); err != nil {
		_ = f.Close()
		return unavailable("write", key, errors.Join(err, os.Remove(tmp)))
	}
	if err := f.Close(); err != nil {
		return unavailable("write", key, errors.Join(err, os.Remove(tmp)))
	}
	if err := os.Rename(tmp, p); err != nil {
		return unavailable("write", key, errors.Join(err, os.Remove(tmp)))
	}
	return nil
}

// Watch calls fn with the key of every blob written or created in the
// directory until ctx is done. Writes made through Set are reported too;
// callers are expected to ignore content they already hold.
func (d *Dir) Watch(ctx context.Context, fn func(key string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(d.dir); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				name := filepath.Base(event.Name)
				if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, blobExt) {
					continue
				}
				fn(strings.TrimSuffix(name, blobExt))
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching blob directory", "dir", d.dir, "err", err)
			}
		}
	}()
	return nil
}
