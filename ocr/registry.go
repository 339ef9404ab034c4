package ocr

import (
	"fmt"
	"slices"
	"strings"
)

// Registry maps engine names to engines. It is built once at startup and
// read-only afterwards.
type Registry struct {
	engines     map[string]Engine
	defaultName string
}

// NewRegistry registers engines under their lower-cased names. The first
// engine is the default.
func NewRegistry(engines ...Engine) (*Registry, error) {
	r := &Registry{engines: make(map[string]Engine, len(engines))}
	for _, e := range engines {
		if e == nil {
			return nil, ErrEngineRequired
		}
		name := strings.ToLower(e.Name())
		if _, exists := r.engines[name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEngine, name)
		}
		r.engines[name] = e
		if r.defaultName == "" {
			r.defaultName = name
		}
	}
	return r, nil
}

// SetDefault selects the engine Get returns for an empty name.
func (r *Registry) SetDefault(name string) error {
	name = strings.ToLower(name)
	if _, ok := r.engines[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEngine, name)
	}
	r.defaultName = name
	return nil
}

// Get returns the named engine, or the default when name is empty.
func (r *Registry) Get(name string) (Engine, error) {
	if name == "" {
		name = r.defaultName
	}
	e, ok := r.engines[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %s)", ErrUnknownEngine, name, strings.Join(r.Names(), ", "))
	}
	return e, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
