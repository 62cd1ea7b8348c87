// Package assets loads C3 assets by path from WDF archives, DNP archives and
// an optional loose-file directory, caching the results.
package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/c3kit/internal/config"
	"github.com/Faultbox/c3kit/internal/logger"
	"github.com/Faultbox/c3kit/pkg/archive"
	"github.com/Faultbox/c3kit/pkg/archive/dnp"
	"github.com/Faultbox/c3kit/pkg/archive/wdf"
	"github.com/Faultbox/c3kit/pkg/c3"
	"github.com/Faultbox/c3kit/pkg/c3hash"
)

// Source names where a payload was found.
type Source string

const (
	SourceCache Source = "cache"
	SourceWDF   Source = "wdf"
	SourceDNP   Source = "dnp"
	SourceFS    Source = "filesystem"
)

// Options configures a Manager.
type Options struct {
	Root       string // loose-file directory
	Filesystem bool   // search Root after the archives
	Cache      bool
	MaxEntries int // cache bound, 0 for unbounded
	Logger     *zap.Logger
}

// OptionsFromConfig maps the archives and cache sections of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Root:       cfg.Archives.Root,
		Filesystem: cfg.Archives.Filesystem,
		Cache:      cfg.Cache.Enabled,
		MaxEntries: cfg.Cache.MaxEntries,
	}
}

// Manager resolves asset paths. WDF archives are only consulted when their
// pack id matches the path's; DNP archives are tried for every path.
// Archives added later take priority over earlier ones.
type Manager struct {
	mu   sync.RWMutex
	wdf  []*wdf.Archive
	dnp  []*dnp.Archive
	opts Options

	cache *Cache
	log   *zap.Logger
}

// NewManager creates a manager with no archives.
func NewManager(opts Options) *Manager {
	m := &Manager{opts: opts, log: opts.Logger}
	if m.log == nil {
		m.log = logger.Named("assets")
	}
	if opts.Cache {
		m.cache = NewCache(opts.MaxEntries)
	}
	return m
}

// Open creates a manager from cfg and opens every configured archive. On
// error the archives opened so far are closed.
func Open(cfg *config.Config) (*Manager, error) {
	m := NewManager(OptionsFromConfig(cfg))
	for _, path := range cfg.Archives.WDF {
		if err := m.AddWDF(path); err != nil {
			m.Close()
			return nil, err
		}
	}
	for _, path := range cfg.Archives.DNP {
		if err := m.AddDNP(path); err != nil {
			m.Close()
			return nil, err
		}
	}
	return m, nil
}

// AddWDF opens a WDF archive and adds it to the manager.
func (m *Manager) AddWDF(path string) error {
	a, err := wdf.Open(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}

	m.mu.Lock()
	m.wdf = append(m.wdf, a)
	m.mu.Unlock()

	m.log.Debug("opened WDF archive",
		zap.String("path", path),
		zap.String("pack_id", fmt.Sprintf("0x%08x", a.ID())),
		zap.Int("entries", a.Len()))
	return nil
}

// AddDNP opens a DNP archive and adds it to the manager.
func (m *Manager) AddDNP(path string) error {
	a, err := dnp.Open(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}

	m.mu.Lock()
	m.dnp = append(m.dnp, a)
	m.mu.Unlock()

	m.log.Debug("opened DNP archive", zap.String("path", path), zap.Int("entries", a.Len()))
	return nil
}

// Load returns the payload for an asset path. The returned slice may be
// shared with the cache and must not be modified.
func (m *Manager) Load(path string) ([]byte, error) {
	data, _, err := m.LoadFrom(path)
	return data, err
}

// LoadFrom is Load that also reports where the payload came from.
func (m *Manager) LoadFrom(path string) ([]byte, Source, error) {
	id := c3hash.RealID(path)

	if m.cache != nil {
		if data, ok := m.cache.Get(id); ok {
			m.log.Debug("cache hit", zap.String("path", path))
			return data, SourceCache, nil
		}
	}

	data, src, err := m.find(path, id)
	if err != nil {
		m.log.Debug("asset not found", zap.String("path", path), zap.Error(err))
		return nil, "", err
	}

	if m.cache != nil {
		m.cache.Set(id, data)
	}
	m.log.Debug("asset loaded",
		zap.String("path", path),
		zap.String("source", string(src)),
		zap.Int("size", len(data)))
	return data, src, nil
}

func (m *Manager) find(path string, id uint32) ([]byte, Source, error) {
	pack := c3hash.PackID(path)

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.wdf) - 1; i >= 0; i-- {
		a := m.wdf[i]
		if a.ID() != pack || !a.Contains(id) {
			continue
		}
		data, err := a.Load(id)
		if err != nil {
			return nil, "", fmt.Errorf("loading %s: %w", path, err)
		}
		return data, SourceWDF, nil
	}

	for i := len(m.dnp) - 1; i >= 0; i-- {
		data, err := m.dnp[i].LoadCopy(id)
		if errors.Is(err, archive.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("loading %s: %w", path, err)
		}
		return data, SourceDNP, nil
	}

	if m.opts.Filesystem && m.opts.Root != "" {
		name := filepath.Join(m.opts.Root, filepath.FromSlash(strings.ReplaceAll(path, "\\", "/")))
		data, err := os.ReadFile(name)
		if err == nil {
			return data, SourceFS, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, "", &archive.IOError{Op: "read", Path: name, Err: err}
		}
	}

	return nil, "", fmt.Errorf("file not found: %s: %w", path, archive.ErrNotFound)
}

// LoadModel loads each path and merges its chunks into one model, in order.
func (m *Manager) LoadModel(paths ...string) (*c3.Model, error) {
	model := c3.NewModel()
	for _, path := range paths {
		data, err := m.Load(path)
		if err != nil {
			return nil, err
		}
		if err := c3.DecodeMerge(data, model); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
	}
	m.log.Debug("model loaded",
		zap.Strings("paths", paths),
		zap.Int("meshes", len(model.Meshes)),
		zap.Int("motions", len(model.Motions)))
	return model, nil
}

// CacheStats returns cache hits and misses, or zeros with caching disabled.
func (m *Manager) CacheStats() (hits, misses int) {
	if m.cache == nil {
		return 0, 0
	}
	return m.cache.Stats()
}

// Close closes all archives and clears the cache.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.wdf {
		a.Close()
	}
	for _, a := range m.dnp {
		a.Close()
	}
	m.wdf = nil
	m.dnp = nil
	if m.cache != nil {
		m.cache.Clear()
	}
}

// Cache holds loaded payloads keyed by RealID. When full it evicts the
// oldest insertion.
type Cache struct {
	mu    sync.Mutex
	data  map[uint32][]byte
	order []uint32
	max   int

	// Stats
	hits   int
	misses int
}

// NewCache creates a cache holding at most max entries; 0 is unbounded.
func NewCache(max int) *Cache {
	return &Cache{
		data: make(map[uint32][]byte),
		max:  max,
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(id uint32) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[id]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(id uint32, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.data[id]; ok {
		c.data[id] = data
		return
	}
	if c.max > 0 && len(c.order) >= c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.data, oldest)
	}
	c.data[id] = data
	c.order = append(c.order, id)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[uint32][]byte)
	c.order = nil
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
