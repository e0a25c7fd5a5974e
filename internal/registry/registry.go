// Package registry holds named factories for the services a host wires up.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/CageChen/layerhub/internal/finder"
)

// FinderService is the name the finder factory is registered under.
const FinderService = "finder"

// Params are the construction parameters handed to a factory. All are optional.
type Params struct {
	Paths            []string
	DefaultExtension string
	Root             string
}

// Factory builds a service from params.
type Factory func(p Params) (any, error)

// Registry maps service names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Make builds the service registered under name.
func (r *Registry) Make(name string, p Params) (any, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no service registered as %q", name)
	}
	svc, err := factory(p)
	if err != nil {
		return nil, fmt.Errorf("make %s: %w", name, err)
	}
	return svc, nil
}

// Names returns the registered service names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Finder builds the finder service.
func (r *Registry) Finder(p Params) (*finder.Finder, error) {
	svc, err := r.Make(FinderService, p)
	if err != nil {
		return nil, err
	}
	f, ok := svc.(*finder.Finder)
	if !ok {
		return nil, fmt.Errorf("service %q is %T, not a finder", FinderService, svc)
	}
	return f, nil
}

// RegisterDefaults registers the finder factory. The extra options are
// applied to every finder it builds.
func RegisterDefaults(r *Registry, opts ...finder.Option) {
	r.Register(FinderService, func(p Params) (any, error) {
		all := append([]finder.Option{
			finder.WithRoot(p.Root),
			finder.WithDefaultExtension(p.DefaultExtension),
			finder.WithPaths(p.Paths...),
		}, opts...)
		return finder.New(all...)
	})
}
