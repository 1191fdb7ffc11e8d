// Package engine implements the flag-dispatch state machine and the
// skill-processor loop: one inbound statement is classified into a
// flag, then the corresponding processor advances the conversation's
// cursor through the active skill graph.
package engine

import (
	"io"
	"log/slog"
	"time"

	"github.com/nbrandt/espalier/internal/metrics"
	"github.com/nbrandt/espalier/pkg/block"
)

// Defaults applied by New when Config leaves a knob zero.
const (
	// DefaultMaxChainDepth bounds post-skill chaining per turn. A chain
	// deeper than this is assumed cyclic.
	DefaultMaxChainDepth = 8

	// DefaultMaxSteps bounds non-input block runs within one turn, so a
	// miswired graph of prompts cannot spin forever.
	DefaultMaxSteps = 64

	// DefaultCancelMessage acknowledges an abandoned skill.
	DefaultCancelMessage = "Okay, cancelled."
)

// Config wires an Engine. Zero fields take the package defaults; a nil
// Registry takes the built-in block set.
type Config struct {
	Registry      *block.Registry
	Logger        *slog.Logger
	Metrics       *metrics.Set
	MaxChainDepth int
	MaxSteps      int
	CancelMessage string
}

// Engine drives one conversation step per inbound statement. It is
// stateless between calls; everything it needs arrives through the
// binder and the persisted ChannelState.
type Engine struct {
	registry      *block.Registry
	log           *slog.Logger
	metrics       *metrics.Set
	maxChainDepth int
	maxSteps      int
	cancelMessage string
}

// New builds an engine from cfg.
func New(cfg Config) *Engine {
	e := &Engine{
		registry:      cfg.Registry,
		log:           cfg.Logger,
		metrics:       cfg.Metrics,
		maxChainDepth: cfg.MaxChainDepth,
		maxSteps:      cfg.MaxSteps,
		cancelMessage: cfg.CancelMessage,
	}
	if e.registry == nil {
		e.registry = block.Default()
	}
	if e.log == nil {
		e.log = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if e.metrics == nil {
		e.metrics = metrics.New(nil)
	}
	if e.maxChainDepth <= 0 {
		e.maxChainDepth = DefaultMaxChainDepth
	}
	if e.maxSteps <= 0 {
		e.maxSteps = DefaultMaxSteps
	}
	if e.cancelMessage == "" {
		e.cancelMessage = DefaultCancelMessage
	}
	return e
}

// Registry exposes the block registry, for catalogs and graph
// validation.
func (e *Engine) Registry() *block.Registry { return e.registry }

func (e *Engine) observeTurn(flag string, start time.Time) {
	e.metrics.Turns.WithLabelValues(flag).Inc()
	e.metrics.TurnDuration.Observe(time.Since(start).Seconds())
}
