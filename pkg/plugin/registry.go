package plugin

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Entry pairs a plugin's descriptor with the factory that builds it.
type Entry struct {
	Descriptor *Descriptor
	New        Factory
}

// Registry holds explicitly registered plugin factories and serves
// category/name lookups. One Registry is constructed per process and passed
// to its consumers; there is no package-global instance.
type Registry struct {
	mu        sync.RWMutex
	factories []Factory
	log       *logrus.Logger
}

// NewRegistry creates an empty plugin registry.
func NewRegistry(log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.New()
	}
	return &Registry{log: log}
}

// Register adds a plugin factory. The factory is invoked once to read the
// descriptor; a factory producing a nil plugin, an unnamed descriptor, or a
// name that is already taken is rejected.
func (r *Registry) Register(factory Factory) error {
	if factory == nil {
		return fmt.Errorf("cannot register nil factory")
	}

	desc, err := describe(factory)
	if err != nil {
		return err
	}
	if desc.Name == "" {
		return fmt.Errorf("plugin descriptor has no name")
	}
	if desc.Category == "" {
		return fmt.Errorf("plugin %q declares no category", desc.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.factories {
		d, err := describe(existing)
		if err != nil {
			continue
		}
		if d.Name == desc.Name {
			return fmt.Errorf("plugin already registered: %s", desc.Name)
		}
	}

	r.factories = append(r.factories, factory)
	return nil
}

// Discover rebuilds the category -> name -> entry index from the registered
// factories. It is re-run on every call so a plugin registered after startup
// becomes visible without restart. A single misbehaving factory is logged
// and skipped; it never aborts the scan.
func (r *Registry) Discover() map[string]map[string]Entry {
	r.mu.RLock()
	factories := make([]Factory, len(r.factories))
	copy(factories, r.factories)
	r.mu.RUnlock()

	index := make(map[string]map[string]Entry)
	for _, factory := range factories {
		desc, err := describe(factory)
		if err != nil {
			r.log.WithError(err).Warn("Skipping plugin during discovery")
			continue
		}
		if desc.Name == "" || desc.Category == "" {
			continue
		}

		if index[desc.Category] == nil {
			index[desc.Category] = make(map[string]Entry)
		}
		index[desc.Category][desc.Name] = Entry{Descriptor: desc, New: factory}
	}

	return index
}

// Resolve finds a plugin by exact name across all categories. The boolean
// result signals "not found"; callers report that as a user-facing error,
// not a crash.
func (r *Registry) Resolve(name string) (Entry, bool) {
	for _, entries := range r.Discover() {
		if entry, ok := entries[name]; ok {
			return entry, true
		}
	}
	return Entry{}, false
}

// Count returns the number of registered factories.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}

// describe instantiates a plugin just long enough to read its descriptor,
// converting a factory panic into an error so one bad plugin cannot take
// down discovery.
func describe(factory Factory) (desc *Descriptor, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("plugin factory panicked: %v", rec)
		}
	}()

	p := factory()
	if p == nil {
		return nil, fmt.Errorf("plugin factory returned nil")
	}
	d := p.Descriptor()
	if d == nil {
		return nil, fmt.Errorf("plugin has nil descriptor")
	}
	return d, nil
}
