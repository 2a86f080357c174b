package upload

import (
	"errors"
	"fmt"

	"github.com/yriy-kuskov/cakereact-core/records"
)

// ErrForeignModel is returned by Plugin.Initialize when a Model belongs to another Registry.
var ErrForeignModel = errors.New("model belongs to another registry")

// Plugin registers a Behavior for a set of Models through records.Registry.AddPlugin.
type Plugin struct {
	behavior      *Behavior
	models        []*records.Model
	subscriptions []records.Subscription
}

// NewPlugin creates a Plugin that attaches behavior to models when it is initialized.
func NewPlugin(behavior *Behavior, models ...*records.Model) *Plugin {
	return &Plugin{
		behavior: behavior,
		models:   models,
	}
}

// Initialize attaches the Behavior to every Model. No Model is attached when one of them belongs to
// another Registry.
func (p *Plugin) Initialize(registry *records.Registry) error {
	for _, model := range p.models {
		if model.Registry() != registry {
			return fmt.Errorf("%w: %s", ErrForeignModel, model.Table())
		}
	}

	for _, model := range p.models {
		p.subscriptions = append(p.subscriptions, p.behavior.Attach(model)...)
	}

	return nil
}

// Behavior returns the wrapped Behavior.
func (p *Plugin) Behavior() *Behavior {
	return p.behavior
}

// Subscriptions returns the EventBus subscriptions made by Initialize.
func (p *Plugin) Subscriptions() []records.Subscription {
	return p.subscriptions
}
