package records

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// DefaultConnection is the connection name a Model uses unless WithConnection says otherwise.
const DefaultConnection = "default"

// Plugin extends a Registry. Initialize runs once when the plugin is added and may subscribe to
// the EventBus or register connections.
type Plugin interface {
	Initialize(registry *Registry) error
}

// Registry holds the named connections, plugins and the EventBus shared by a set of Models.
// It replaces a process-wide singleton: every Model receives its Registry at construction.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]Adapter
	plugins     map[string]Plugin
	events      *EventBus
}

// RegistryOption defines a functional option for configuring Registry.
type RegistryOption func(*Registry)

// WithEventBus sets the EventBus instead of a fresh one.
func WithEventBus(bus *EventBus) RegistryOption {
	return func(r *Registry) {
		if bus != nil {
			r.events = bus
		}
	}
}

// NewRegistry creates a Registry without connections.
func NewRegistry(options ...RegistryOption) *Registry {
	r := &Registry{
		connections: make(map[string]Adapter),
		plugins:     make(map[string]Plugin),
		events:      NewEventBus(),
	}

	for _, option := range options {
		option(r)
	}

	return r
}

// AddConnection registers adapter under name, replacing an earlier registration.
func (r *Registry) AddConnection(name string, adapter Adapter) error {
	if name == "" {
		return ErrEmptyConnectionName
	}

	if adapter == nil {
		return ErrNilAdapter
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections[name] = adapter

	return nil
}

// Adapter returns the adapter registered under name.
func (r *Registry) Adapter(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, ok := r.connections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConnection, name)
	}

	return adapter, nil
}

// AddPlugin initializes plugin and registers it under name, replacing an earlier registration.
// A plugin whose Initialize fails is not registered.
func (r *Registry) AddPlugin(name string, plugin Plugin) error {
	if name == "" {
		return ErrEmptyPluginName
	}

	if plugin == nil {
		return ErrNilPlugin
	}

	// unlocked: Initialize may call AddConnection
	if err := plugin.Initialize(r); err != nil {
		return errors.Join(ErrPluginInitFailed, fmt.Errorf("plugin %q: %w", name, err))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins[name] = plugin

	return nil
}

// Plugin returns the plugin registered under name.
func (r *Registry) Plugin(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plugin, ok := r.plugins[name]

	return plugin, ok
}

// Events returns the EventBus shared by all Models of this Registry.
func (r *Registry) Events() *EventBus {
	return r.events
}

// Close closes every registered adapter that implements io.Closer and forgets all connections.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, adapter := range r.connections {
		if closer, ok := adapter.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing connection %q: %w", name, err))
			}
		}
	}

	clear(r.connections)

	return errors.Join(errs...)
}
