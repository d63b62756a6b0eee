package audit

import "fmt"

// Registry holds plugins keyed by id, remembering registration order.
type Registry struct {
	plugins map[string]Plugin
	order   []string
}

// NewRegistry creates a Registry holding plugins, in order.
func NewRegistry(plugins ...Plugin) (*Registry, error) {
	r := &Registry{plugins: make(map[string]Plugin, len(plugins))}
	for _, p := range plugins {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds p. Ids must be non-empty and unique.
func (r *Registry) Register(p Plugin) error {
	id := p.ID()
	if id == "" {
		return fmt.Errorf("register plugin: empty id")
	}
	if _, dup := r.plugins[id]; dup {
		return fmt.Errorf("register plugin: duplicate id %q", id)
	}
	r.plugins[id] = p
	r.order = append(r.order, id)
	return nil
}

// Get returns the plugin registered under id.
func (r *Registry) Get(id string) (Plugin, bool) {
	p, ok := r.plugins[id]
	return p, ok
}

// IDs returns plugin ids in registration order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// Plugins returns the plugins in registration order.
func (r *Registry) Plugins() []Plugin {
	out := make([]Plugin, len(r.order))
	for i, id := range r.order {
		out[i] = r.plugins[id]
	}
	return out
}
