package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/hyprcat/hyprcat/internal/ld"
)

// file is a Store backend that keeps one JSON document per resource
// under baseDir. Filenames are the resource id URL-encoded with "%"
// replaced by "_" so they are filesystem safe. Writes go to a temp file
// and are renamed into place, making each Put atomic from a reader's
// point of view.
type file struct {
	baseDir string

	mu       sync.RWMutex
	dirReady bool

	// typeIndex caches type -> []id, invalidated whenever fsnotify
	// observes a write underneath baseDir (including writes from other
	// processes sharing the directory) or whenever this process itself
	// mutates the store.
	indexMu    sync.RWMutex
	typeIndex  map[string][]string
	indexValid bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFile returns a Store backed by one JSON file per resource under
// baseDir. The directory is created lazily on first use. A background
// fsnotify watcher keeps the type index coherent with out-of-process
// writes to baseDir.
func NewFile(baseDir string) (Store, error) {
	f := &file{baseDir: baseDir, done: make(chan struct{})}
	if err := f.ensureDir(); err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if err := watcher.Add(baseDir); err == nil {
			f.watcher = watcher
			go f.watchLoop()
		} else {
			_ = watcher.Close()
		}
	}
	return f, nil
}

// Close stops the background file watcher, if one was started.
func (f *file) Close() error {
	if f.watcher == nil {
		return nil
	}
	close(f.done)
	return f.watcher.Close()
}

func (f *file) watchLoop() {
	for {
		select {
		case <-f.done:
			return
		case _, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			f.invalidateIndex()
		case _, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (f *file) invalidateIndex() {
	f.indexMu.Lock()
	f.indexValid = false
	f.indexMu.Unlock()
}

func (f *file) ensureDir() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dirReady {
		return nil
	}
	if err := os.MkdirAll(f.baseDir, 0o755); err != nil {
		return fmt.Errorf("store: create base dir: %w", err)
	}
	f.dirReady = true
	return nil
}

func (f *file) pathFor(id string) string {
	encoded := strings.ReplaceAll(url.QueryEscape(id), "%", "_")
	return filepath.Join(f.baseDir, encoded+".json")
}

func (f *file) Get(ctx context.Context, id string) (map[string]any, error) {
	if err := f.ensureDir(); err != nil {
		return nil, err
	}
	body, err := os.ReadFile(f.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: read %s: %w", id, err)
	}
	var resource map[string]any
	if err := json.Unmarshal(body, &resource); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", id, err)
	}
	return resource, nil
}

func (f *file) Put(ctx context.Context, id string, resource map[string]any) error {
	if err := f.ensureDir(); err != nil {
		return err
	}
	body, err := json.MarshalIndent(resource, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", id, err)
	}
	target := f.pathFor(id)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return fmt.Errorf("store: write temp for %s: %w", id, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("store: rename into place for %s: %w", id, err)
	}
	f.invalidateIndex()
	return nil
}

func (f *file) Delete(ctx context.Context, id string) (bool, error) {
	if err := f.ensureDir(); err != nil {
		return false, err
	}
	err := os.Remove(f.pathFor(id))
	f.invalidateIndex()
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("store: delete %s: %w", id, err)
	}
	return true, nil
}

func (f *file) List(ctx context.Context) ([]string, error) {
	if err := f.ensureDir(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(f.baseDir)
	if err != nil {
		return nil, fmt.Errorf("store: list dir: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		body, err := os.ReadFile(filepath.Join(f.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		var resource map[string]any
		if err := json.Unmarshal(body, &resource); err != nil {
			continue
		}
		if id, ok := resource["id"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *file) FindByType(ctx context.Context, typ string) ([]map[string]any, error) {
	ids, err := f.typeIndexFor(typ)
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for _, id := range ids {
		resource, err := f.Get(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, resource)
	}
	return out, nil
}

// typeIndexFor rebuilds the full type index on a cache miss and returns
// the ids declared for typ. A rebuild is a full directory scan; cheap
// enough for the demo-scale catalogs this backend targets.
func (f *file) typeIndexFor(typ string) ([]string, error) {
	f.indexMu.RLock()
	if f.indexValid {
		ids := f.typeIndex[typ]
		f.indexMu.RUnlock()
		return ids, nil
	}
	f.indexMu.RUnlock()

	ids, err := f.List(context.Background())
	if err != nil {
		return nil, err
	}
	index := make(map[string][]string)
	for _, id := range ids {
		resource, err := f.Get(context.Background(), id)
		if err != nil {
			continue
		}
		for _, t := range ld.TypesOf(resource) {
			index[t] = append(index[t], id)
		}
	}

	f.indexMu.Lock()
	f.typeIndex = index
	f.indexValid = true
	f.indexMu.Unlock()

	return index[typ], nil
}
