package migrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Loader resolves the definition behind a catalog entry.
type Loader interface {
	Load(ctx context.Context, file MigrationFile) (*Definition, error)
}

// TableLoader resolves definitions from a statically declared table keyed by
// filename, with or without the .go extension.
type TableLoader map[string]*Definition

func (t TableLoader) Load(ctx context.Context, file MigrationFile) (*Definition, error) {
	def, ok := t[file.Filename]
	if !ok {
		def, ok = t[strings.TrimSuffix(file.Filename, migrationExt)]
	}
	if !ok {
		return nil, fmt.Errorf("no definition registered for %s", file.Filename)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// Registry lists the catalog and caches loaded definitions for the lifetime
// of the process. The cache is write-once per filename.
type Registry struct {
	source Source
	loader Loader

	mu    sync.RWMutex
	cache map[string]*Definition
}

func NewRegistry(source Source, loader Loader) *Registry {
	return &Registry{
		source: source,
		loader: loader,
		cache:  make(map[string]*Definition),
	}
}

// GetAll lists the catalog, sorted by timestamp. Nothing is cached.
func (r *Registry) GetAll(ctx context.Context) ([]MigrationFile, error) {
	return r.source.List(ctx)
}

// Load returns the definition of file, loading it on first use. A failed
// load is not cached and is retried on the next call.
func (r *Registry) Load(ctx context.Context, file MigrationFile) (*Definition, error) {
	if def, ok := r.Get(file.Filename); ok {
		return def, nil
	}

	def, err := r.loader.Load(ctx, file)
	if err != nil {
		return nil, &LoadError{Filename: file.Filename, Err: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.cache[file.Filename]; ok {
		return existing, nil
	}
	r.cache[file.Filename] = def
	return def, nil
}

// Get returns an already loaded definition without loading it.
func (r *Registry) Get(filename string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.cache[filename]
	return def, ok
}

// Loaded reports whether at least one definition is cached.
func (r *Registry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache) > 0
}
