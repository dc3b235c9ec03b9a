package store

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Registry maps namespace names to their owning Store. Stores open lazily
// on first access and stay cached for the life of the registry; the
// registry itself is a plain value held by the server — there is no
// process-wide mutable state.
type Registry struct {
	dataDir string

	mu     sync.Mutex
	stores map[string]*Store
}

// NewRegistry creates a registry rooted at dataDir (e.g. "data/sims").
func NewRegistry(dataDir string) *Registry {
	return &Registry{
		dataDir: dataDir,
		stores:  make(map[string]*Store),
	}
}

// DataDir returns the directory namespace databases live in.
func (r *Registry) DataDir() string { return r.dataDir }

// Get returns the store of an existing namespace, opening it on first use.
func (r *Registry) Get(ctx context.Context, namespace string) (*Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[namespace]; ok {
		return s, nil
	}
	s, err := Open(ctx, r.dataDir, namespace)
	if err != nil {
		return nil, err
	}
	r.stores[namespace] = s
	return s, nil
}

// Create initializes a new namespace and caches its store.
func (r *Registry) Create(ctx context.Context, namespace string, width, height int, goal string, epoch int) (*Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.stores[namespace]; ok {
		return nil, ErrNamespaceExists
	}
	s, err := Create(ctx, r.dataDir, namespace, width, height, goal, epoch)
	if err != nil {
		return nil, err
	}
	r.stores[namespace] = s
	return s, nil
}

// Known lists every namespace with a database file under the data
// directory, sorted. Used by the background sweeper.
func (r *Registry) Known() ([]string, error) {
	entries, err := os.ReadDir(r.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if filepath.Ext(name) != ".db" {
			continue
		}
		ns := strings.TrimSuffix(name, ".db")
		if ValidateNamespace(ns) == nil {
			names = append(names, ns)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Close closes every cached store.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for ns, s := range r.stores {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(r.stores, ns)
	}
	return firstErr
}
