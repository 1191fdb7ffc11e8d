package block

import (
	"context"
	"sort"

	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/ports"
)

// Result is the outcome of invoking a block: the outcome code plus the
// resolved next block id. An empty Connection on a terminal outcome
// ends the skill.
type Result struct {
	Code       domain.ResultCode `json:"code"`
	Connection string            `json:"connection,omitempty"`
}

// Block is one node of a skill graph.
type Block interface {
	ID() string
	Component() string
	Descriptor() Descriptor
	Template() Template
	Connections() map[domain.ResultCode]string

	// Serialize returns the block's catalog form for tooling. The
	// connection list is type specific and may depend on runtime
	// properties.
	Serialize() Serialized
}

// Processor is a block that executes without user input: interpreters,
// prompts and terminals.
type Processor interface {
	Block
	Process(ctx context.Context, bd ports.Binder, state *domain.ChannelState) (*Result, error)
}

// Input is a block that consumes one user statement.
type Input interface {
	Block

	// Key is the storage key the block saves its value under.
	Key() string

	// Required reports whether the block insists on a value. Optional
	// blocks auto-save nil and move on when the statement is empty.
	Required() bool

	Process(ctx context.Context, bd ports.Binder, state *domain.ChannelState, st *domain.InputStatement) (*Result, error)
}

// Searchable is an input block that answers autocomplete queries.
type Searchable interface {
	Input
	Search(ctx context.Context, bd ports.Binder, userID, query string) ([]domain.Node, error)
}

// Descriptor is static per-type metadata for catalogs and builder UIs.
type Descriptor struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Summary  string `json:"summary"`
}

// Block categories.
const (
	CategoryInput       = "input"
	CategoryInterpreter = "interpreter"
	CategoryPrompt      = "prompt"
	CategoryTerminal    = "terminal"
)

// ConnectionSpec is one declared transition in a block's serialized
// form.
type ConnectionSpec struct {
	Code   domain.ResultCode `json:"code"`
	Target string            `json:"target,omitempty"`
	Name   string            `json:"name,omitempty"`
}

// Serialized is a block's catalog representation.
type Serialized struct {
	Component   string           `json:"component"`
	Descriptor  Descriptor       `json:"descriptor"`
	Template    Template         `json:"template"`
	Connections []ConnectionSpec `json:"connections"`
}

// Base carries the identity, connections and outcome helpers shared by
// every block type.
type Base struct {
	id          string
	component   string
	connections map[domain.ResultCode]string
	descriptor  Descriptor
	template    Template
}

// NewBase builds the shared part of a block from its definition.
func NewBase(def domain.BlockDef, descriptor Descriptor, template Template) Base {
	conns := make(map[domain.ResultCode]string, len(def.Connections))
	for code, target := range def.Connections {
		conns[code] = target
	}
	return Base{
		id:          def.ID,
		component:   def.Component,
		connections: conns,
		descriptor:  descriptor,
		template:    template,
	}
}

func (b *Base) ID() string             { return b.id }
func (b *Base) Component() string      { return b.component }
func (b *Base) Descriptor() Descriptor { return b.descriptor }
func (b *Base) Template() Template     { return b.template }

func (b *Base) Connections() map[domain.ResultCode]string { return b.connections }

// Serialize returns the base catalog form: declared connections sorted
// by code. Types with property-dependent connections override this.
func (b *Base) Serialize() Serialized {
	specs := make([]ConnectionSpec, 0, len(b.connections))
	for code, target := range b.connections {
		specs = append(specs, ConnectionSpec{Code: code, Target: target})
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Code < specs[j].Code })
	return Serialized{
		Component:   b.component,
		Descriptor:  b.descriptor,
		Template:    b.template,
		Connections: specs,
	}
}

// Outcome helpers. Each resolves the block's own connections for the
// code; unresolved codes yield an empty connection.

func (b *Base) resolve(code domain.ResultCode) *Result {
	return &Result{Code: code, Connection: b.connections[code]}
}

func (b *Base) Move() *Result   { return b.resolve(domain.CodeMove) }
func (b *Base) MoveX() *Result  { return b.resolve(domain.CodeMoveX) }
func (b *Base) MoveY() *Result  { return b.resolve(domain.CodeMoveY) }
func (b *Base) MoveZ() *Result  { return b.resolve(domain.CodeMoveZ) }
func (b *Base) Accept() *Result { return b.resolve(domain.CodeAccept) }
func (b *Base) Reject() *Result { return b.resolve(domain.CodeReject) }
