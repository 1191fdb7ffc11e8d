package block

import (
	"sort"
	"sync"

	"github.com/nbrandt/espalier/pkg/domain"
)

// Factory constructs a block from its definition. Property validation
// happens here; a factory error means the graph is unusable.
type Factory func(def domain.BlockDef) (Block, error)

// Registration describes one component type: its stable key, static
// metadata, property schema and factory.
type Registration struct {
	Component  string
	Descriptor Descriptor
	Template   Template
	New        Factory
}

// Registry maps component keys to block factories. It is constructed
// at service start and passed by reference into the engine; there is
// no package-level mutable registry.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Registration
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Registration)}
}

// Register adds a component type, overwriting any previous registration
// under the same key.
func (r *Registry) Register(reg Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[reg.Component]; !exists {
		r.order = append(r.order, reg.Component)
	}
	r.entries[reg.Component] = reg
}

// Known reports whether a component key is registered.
func (r *Registry) Known(component string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[component]
	return ok
}

// Descriptor returns the static descriptor registered for a component.
func (r *Registry) Descriptor(component string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[component]
	if !ok {
		return Descriptor{}, false
	}
	return reg.Descriptor, true
}

// Build instantiates the block described by def. An unknown component
// or a malformed property set is a graph integrity error.
func (r *Registry) Build(def domain.BlockDef) (Block, error) {
	r.mu.RLock()
	reg, ok := r.entries[def.Component]
	r.mu.RUnlock()
	if !ok {
		return nil, &domain.GraphError{BlockID: def.ID, Reason: "unknown component " + def.Component}
	}
	blk, err := reg.New(def)
	if err != nil {
		return nil, &domain.GraphError{BlockID: def.ID, Reason: err.Error()}
	}
	return blk, nil
}

// Catalog returns every registered type's serialized form, built from a
// blank definition, sorted by component key. Property-dependent
// connections appear only when serializing a constructed instance.
func (r *Registry) Catalog() []Serialized {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, len(r.order))
	copy(keys, r.order)
	sort.Strings(keys)

	out := make([]Serialized, 0, len(keys))
	for _, key := range keys {
		reg := r.entries[key]
		out = append(out, Serialized{
			Component:  reg.Component,
			Descriptor: reg.Descriptor,
			Template:   reg.Template,
		})
	}
	return out
}

// Default returns a registry with every built-in block type registered.
func Default() *Registry {
	r := NewRegistry()
	for _, reg := range builtins() {
		r.Register(reg)
	}
	return r
}

func builtins() []Registration {
	return []Registration{
		registerInputText(),
		registerInputEmail(),
		registerInputNumber(),
		registerInputDate(),
		registerInputDateTime(),
		registerInputDuration(),
		registerInputFile(),
		registerInputSelection(),
		registerInputSearchable(),
		registerInputOAuth(),
		registerInputPayment(),
		registerInputSkill(),
		registerDataExchange(),
		registerInterpreterSkill(),
		registerPromptText(),
		registerPromptPayment(),
		registerPromptPreview(),
		registerTerminal(),
	}
}
