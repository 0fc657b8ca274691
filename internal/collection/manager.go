// Package collection ties a collection's store to its fuzzy index, the
// external "last updated" marker and the event log.
package collection

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/franz/crate/internal/report"
	"github.com/franz/crate/internal/store"
	"github.com/franz/crate/internal/util"
)

// MarkerSink is implemented by marker sources that can also record a new
// "last updated" marker
type MarkerSink interface {
	SetLastCollectionUpdate(collectionID string, ms int64) error
}

// Config holds manager configuration
type Config struct {
	DataDir          string
	Markers          store.MarkerSource // may also implement MarkerSink
	Logger           *report.EventLogger
	NetworkOptimized bool
	Now              func() time.Time
	Retry            *util.RetryConfig // defaults to util.StoreRetryConfig
}

// Manager opens each collection once and hands out the cached handle
type Manager struct {
	mu          sync.Mutex
	cfg         Config
	collections map[string]*Collection
}

var idRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// NewManager creates a manager. No database is opened until Open.
func NewManager(cfg *Config) *Manager {
	c := *cfg
	if c.Retry == nil {
		c.Retry = util.StoreRetryConfig()
	}
	return &Manager{cfg: c, collections: make(map[string]*Collection)}
}

// Open returns the collection with the given id, opening or creating
// <DataDir>/<id>_collection.db on first use
func (m *Manager) Open(ctx context.Context, id string) (*Collection, error) {
	if !idRe.MatchString(id) {
		return nil, fmt.Errorf("%w: bad collection id %q", util.ErrInvalidConfig, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.collections[id]; ok {
		return c, nil
	}

	if err := os.MkdirAll(m.cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	path := filepath.Join(m.cfg.DataDir, id+store.FileSuffix)
	opts := &store.OpenOptions{
		CollectionID:     id,
		Markers:          m.cfg.Markers,
		Now:              m.cfg.Now,
		NetworkOptimized: m.cfg.NetworkOptimized,
	}

	s, err := util.RetryWithBackoff(ctx, m.cfg.Retry, "open collection "+id, func() (*store.Store, error) {
		return store.OpenWithOptions(path, opts)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", id, err)
	}

	c, err := newCollection(id, s, m.cfg.Markers, m.cfg.Logger)
	if err != nil {
		s.Close()
		return nil, err
	}

	util.DebugLog("Opened collection %s at %s", id, path)
	m.collections[id] = c
	return c, nil
}

// Get returns an already opened collection, or nil
func (m *Manager) Get(id string) *Collection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collections[id]
}

// IDs lists the opened collections, sorted
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.collections))
	for id := range m.collections {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Discover lists the ids of the collection files present in DataDir
func (m *Manager) Discover() ([]string, error) {
	entries, err := os.ReadDir(m.cfg.DataDir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read data dir: %w", err)
	}

	ids := []string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, store.FileSuffix) {
			continue
		}
		if id := strings.TrimSuffix(name, store.FileSuffix); idRe.MatchString(id) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// OpenAll opens every collection found by Discover
func (m *Manager) OpenAll(ctx context.Context) error {
	ids, err := m.Discover()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := m.Open(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every opened collection
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for id, c := range m.collections {
		if err := c.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("collection %s: %w", id, err))
		}
		delete(m.collections, id)
	}
	return errors.Join(errs...)
}
