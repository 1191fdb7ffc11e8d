// Package espalier is a conversational-skill execution engine: a
// declarative graph of typed blocks (prompts, inputs, data-exchange
// calls, terminals) drives one user through a multi-turn dialogue,
// persisting progress between turns, correlating redirect callbacks
// (OAuth, payment) back to the paused conversation, and answering
// autocomplete queries for selection inputs.
//
// The host service implements ports.Binder for each conversation and
// feeds inbound statements through Engine.Handle; everything else
// (storage, transport, providers) stays on the host's side of that
// interface.
package espalier

import (
	"context"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nbrandt/espalier/internal/engine"
	"github.com/nbrandt/espalier/internal/metrics"
	"github.com/nbrandt/espalier/pkg/block"
	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/ports"
)

// Version is the library release version, overridable at build time
// with -ldflags "-X github.com/nbrandt/espalier.Version=...".
var Version = "0.4.0"

// Engine is the high-level entry point. It wraps the internal flag
// dispatcher and processor loop behind a small surface safe for
// concurrent use across conversations; steps for one channel must be
// serialized by the caller (see pkg/session).
type Engine struct {
	core     *engine.Engine
	registry *block.Registry
	logger   *slog.Logger
	gatherer prometheus.Gatherer

	maxChainDepth int
	maxSteps      int
	cancelMessage string
	promRegistry  *prometheus.Registry
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a structured logger. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithBlockRegistry replaces the built-in block set, for hosts that
// register custom components.
func WithBlockRegistry(r *block.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithMaxChainDepth bounds post-skill chaining per turn.
func WithMaxChainDepth(depth int) Option {
	return func(e *Engine) {
		e.maxChainDepth = depth
	}
}

// WithMaxSteps bounds non-input block runs per turn.
func WithMaxSteps(steps int) Option {
	return func(e *Engine) {
		e.maxSteps = steps
	}
}

// WithCancelMessage sets the acknowledgment posted when a skill is
// abandoned.
func WithCancelMessage(msg string) Option {
	return func(e *Engine) {
		e.cancelMessage = msg
	}
}

// WithMetricsRegistry registers the engine collectors on reg instead of
// a private registry.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(e *Engine) {
		e.promRegistry = reg
	}
}

// New builds an engine.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if e.registry == nil {
		e.registry = block.Default()
	}
	if e.promRegistry == nil {
		e.promRegistry = prometheus.NewRegistry()
	}
	e.gatherer = e.promRegistry

	e.core = engine.New(engine.Config{
		Registry:      e.registry,
		Logger:        e.logger,
		Metrics:       metrics.New(e.promRegistry),
		MaxChainDepth: e.maxChainDepth,
		MaxSteps:      e.maxSteps,
		CancelMessage: e.cancelMessage,
	})
	return e
}

// Handle processes one inbound statement for the binder's conversation.
// Validation rejections are handled inside the graph and return nil;
// graph integrity and collaborator failures return the error untouched.
func (e *Engine) Handle(ctx context.Context, bd ports.Binder, st *domain.InputStatement) error {
	return e.core.Handle(ctx, bd, st)
}

// StartSkill launches the named skill package for the binder's
// conversation, bypassing intent classification. While another skill
// is active the statement is routed to it instead, like any inbound
// event.
func (e *Engine) StartSkill(ctx context.Context, bd ports.Binder, userID, pkg string) error {
	return e.Handle(ctx, bd, &domain.InputStatement{
		UserID: userID,
		Input:  pkg,
		Flag:   domain.FlagStartSkill,
	})
}

// Classify runs the flag manager without executing anything, exposing
// the dispatch decision to transports that route on it.
func (e *Engine) Classify(ctx context.Context, bd ports.Binder, st *domain.InputStatement) (domain.Flag, error) {
	state, err := bd.LoadState(ctx)
	if err != nil {
		return domain.FlagNone, err
	}
	cls, err := e.core.Classify(ctx, bd, state, st)
	if err != nil {
		return domain.FlagNone, err
	}
	return cls.Flag, nil
}

// Search answers an autocomplete query for the block the conversation
// is paused on. An idle conversation or a non-searchable block yields
// an empty list.
func (e *Engine) Search(ctx context.Context, bd ports.Binder, query string) ([]domain.Node, error) {
	return e.core.Search(ctx, bd, query)
}

// Catalog lists every registered block type in serialized form.
func (e *Engine) Catalog() []block.Serialized {
	return e.registry.Catalog()
}

// Registry exposes the block registry, for graph validation and custom
// registrations.
func (e *Engine) Registry() *block.Registry {
	return e.registry
}

// Metrics returns the gatherer holding the engine collectors, for
// mounting a scrape endpoint.
func (e *Engine) Metrics() prometheus.Gatherer {
	return e.gatherer
}
