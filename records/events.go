package records

import (
	"context"
	"errors"
	"sync"
)

// Lifecycle event names emitted by Model. External hook handlers subscribe to these.
const (
	EventBeforeSave   = "Model.beforeSave"
	EventAfterSave    = "Model.afterSave"
	EventBeforeUpdate = "Model.beforeUpdate"
	EventAfterUpdate  = "Model.afterUpdate"
	EventBeforeDelete = "Model.beforeDelete"
	EventAfterDelete  = "Model.afterDelete"
)

const (
	logMsgListenerAborted = "event listener aborted dispatch"
	logMsgListenerFailed  = "event listener failed"
	logAttrEvent          = "event"
	logAttrReason         = "reason"
)

// LifecycleEvent is passed by pointer to every listener of one dispatch.
// Listeners may mutate Payload; the Model persists the mutated Payload.
type LifecycleEvent struct {
	Name    string
	Subject *Model
	Payload Record
	Entity  *Entity
	ID      any

	cancellable bool
}

// NewLifecycleEvent builds an event. Only cancellable events can be aborted by a listener.
func NewLifecycleEvent(name string, subject *Model, payload Record, cancellable bool) *LifecycleEvent {
	return &LifecycleEvent{
		Name:        name,
		Subject:     subject,
		Payload:     payload,
		cancellable: cancellable,
	}
}

// Cancellable reports whether an Abort outcome stops the surrounding operation.
func (e *LifecycleEvent) Cancellable() bool {
	return e.cancellable
}

// Outcome is what a listener returns: continue the dispatch or abort the surrounding operation.
type Outcome struct {
	aborted bool
	reason  string
}

// Continue lets the dispatch and the surrounding operation proceed.
func Continue() Outcome {
	return Outcome{}
}

// Abort requests cancellation of the surrounding operation.
func Abort(reason string) Outcome {
	return Outcome{aborted: true, reason: reason}
}

// Aborted reports whether the outcome requests cancellation.
func (o Outcome) Aborted() bool {
	return o.aborted
}

// Reason returns the reason given to Abort.
func (o Outcome) Reason() string {
	return o.reason
}

// Listener handles one lifecycle event. It runs to completion before the next listener starts.
type Listener func(ctx context.Context, event *LifecycleEvent) (Outcome, error)

// Subscription identifies a registered listener for Off.
type Subscription struct {
	event string
	id    uint64
}

// Event returns the event name the subscription listens to.
func (s Subscription) Event() string {
	return s.event
}

type registeredListener struct {
	id       uint64
	listener Listener
}

// EventBus dispatches named lifecycle events to listeners, strictly sequentially and in registration order.
//
// Calling On or Off while an Emit for the same event is in flight is not supported: the in-flight
// dispatch keeps using the listener list it started with.
type EventBus struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[string][]registeredListener
	logger    Logger
}

// EventBusOption defines a functional option for configuring EventBus.
type EventBusOption func(*EventBus)

// WithEventBusLogger sets the logger for the EventBus.
func WithEventBusLogger(logger Logger) EventBusOption {
	return func(b *EventBus) {
		b.logger = logger
	}
}

// NewEventBus creates an EventBus without listeners.
func NewEventBus(options ...EventBusOption) *EventBus {
	b := &EventBus{
		listeners: make(map[string][]registeredListener),
	}

	for _, option := range options {
		option(b)
	}

	return b
}

// On appends a listener for the event.
func (b *EventBus) On(event string, listener Listener) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.listeners[event] = append(b.listeners[event], registeredListener{id: b.nextID, listener: listener})

	return Subscription{event: event, id: b.nextID}
}

// Off removes the listener behind the subscription and reports whether it was registered.
func (b *EventBus) Off(sub Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	registered := b.listeners[sub.event]
	for i, l := range registered {
		if l.id == sub.id {
			b.listeners[sub.event] = append(registered[:i:i], registered[i+1:]...)
			return true
		}
	}

	return false
}

// ListenerCount returns the number of listeners for the event.
func (b *EventBus) ListenerCount(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.listeners[event])
}

// Emit invokes the listeners for event.Name one after another and returns once the last one returned.
//
// For a cancellable event the first Abort stops the dispatch and is returned.
// For other events Abort outcomes are ignored.
// The first listener error stops the dispatch and is returned joined with ErrListenerFailed.
func (b *EventBus) Emit(ctx context.Context, event *LifecycleEvent) (Outcome, error) {
	b.mu.RLock()
	listeners := make([]registeredListener, len(b.listeners[event.Name]))
	copy(listeners, b.listeners[event.Name])
	b.mu.RUnlock()

	for _, l := range listeners {
		outcome, err := l.listener(ctx, event)
		if err != nil {
			if b.logger != nil {
				b.logger.Error(logMsgListenerFailed, logAttrEvent, event.Name, logAttrError, err.Error())
			}

			return Continue(), errors.Join(ErrListenerFailed, err)
		}

		if outcome.Aborted() && event.Cancellable() {
			if b.logger != nil {
				b.logger.Info(logMsgListenerAborted, logAttrEvent, event.Name, logAttrReason, outcome.Reason())
			}

			return outcome, nil
		}
	}

	return Continue(), nil
}
