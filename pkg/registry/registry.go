// pkg/registry/registry.go
package registry

import (
	"context"
	"errors"
	"sort"
	"time"

	"smartport-assistant/internal/models"
)

var (
	ErrInvalidIntent      = errors.New("INVALID_INTENT")
	ErrMetaIntent         = errors.New("META_INTENT_NOT_ROUTABLE")
	ErrDuplicateBinding   = errors.New("DUPLICATE_BINDING")
	ErrMissingHandlerName = errors.New("MISSING_HANDLER_NAME")
)

// Invocation is the single context a capability receives for one turn.
// Handlers read from it and never mutate it; the orchestrator owns the
// lifecycle.
type Invocation struct {
	TraceID  string
	Message  string
	Intent   models.Intent
	Entities models.EntityBag
	History  []models.Turn

	// Caller identity, as established by policy evaluation. When
	// NeedsOwnershipCheck is set the handler must scope its queries to
	// CarrierID rather than trust entity values.
	UserID              string
	Role                models.Role
	CarrierID           string
	NeedsOwnershipCheck bool

	// ReferenceTime anchors relative-date entities (date_tomorrow etc.)
	// for handlers that need a concrete day.
	ReferenceTime time.Time

	Extra map[string]interface{}
}

// Capability is one executable feature behind an intent.
type Capability interface {
	Execute(ctx context.Context, inv *Invocation) (interface{}, error)
}

// Binding declares the capability serving an intent: a stable handler name
// (surfaced in agent decision-trail tokens) plus the callable. A Binding
// whose Capability is nil is a declared-but-unwired feature; the dispatcher
// reports it as a configuration defect instead of crashing the turn.
type Binding struct {
	Name       string
	Capability Capability
}

// Registry maps routable intents to capability bindings. It is assembled
// once during startup; after that every access is read-only, so lookups are
// safe for concurrent use. Register is not.
type Registry struct {
	entries map[models.Intent]Binding
}

func New() *Registry {
	return &Registry{entries: make(map[models.Intent]Binding)}
}

// Register binds an intent to a capability. Meta intents are resolved by
// the orchestrator itself and cannot be registered. Duplicate registration
// is refused so a wiring mistake fails loudly at startup.
func (r *Registry) Register(intent models.Intent, binding Binding) error {
	if !intent.IsValid() {
		return ErrInvalidIntent
	}
	if intent.IsMeta() {
		return ErrMetaIntent
	}
	if binding.Name == "" {
		return ErrMissingHandlerName
	}
	if _, exists := r.entries[intent]; exists {
		return ErrDuplicateBinding
	}
	r.entries[intent] = binding
	return nil
}

// Resolve returns the binding for an intent. A missing binding is an
// expected condition (the feature is planned, not implemented), reported
// via ok=false rather than an error.
func (r *Registry) Resolve(intent models.Intent) (Binding, bool) {
	b, ok := r.entries[intent]
	return b, ok
}

// Intents returns the registered intents in stable sorted order.
func (r *Registry) Intents() []models.Intent {
	out := make([]models.Intent, 0, len(r.entries))
	for intent := range r.entries {
		out = append(out, intent)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of registered bindings.
func (r *Registry) Len() int {
	return len(r.entries)
}
