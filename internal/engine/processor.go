package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nbrandt/espalier/pkg/block"
	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/ports"
)

// Handle processes one inbound statement end to end: load the cursor,
// classify, dispatch to the flag's processor. Rejections are not
// errors; graph and collaborator failures are.
func (e *Engine) Handle(ctx context.Context, bd ports.Binder, st *domain.InputStatement) error {
	start := time.Now()

	state, err := bd.LoadState(ctx)
	if err != nil {
		return err
	}

	cls, err := e.Classify(ctx, bd, state, st)
	if err != nil {
		return err
	}
	defer e.observeTurn(string(cls.Flag), start)

	e.log.DebugContext(ctx, "statement classified",
		"flag", string(cls.Flag),
		"channel_id", state.ChannelID,
		"in_skill", state.InSkill(),
	)

	switch cls.Flag {
	case domain.FlagStartSkill:
		return e.startSkill(ctx, bd, state, cls.Skill, cls.Statement, &turn{})
	case domain.FlagSkillProcessor:
		return e.continueSkill(ctx, bd, state, cls.Statement)
	case domain.FlagCancelSkill:
		return e.cancelSkill(ctx, bd, state)
	default:
		return e.standardInput(ctx, bd, cls.Statement)
	}
}

// turn carries the per-statement guards shared across recursion: the
// post-skill chain depth and the non-input step budget.
type turn struct {
	chainDepth int
	steps      int
}

// startSkill moves the cursor to the skill's start block and runs one
// step immediately, so a non-input start executes without waiting for
// another inbound event.
func (e *Engine) startSkill(ctx context.Context, bd ports.Binder, state *domain.ChannelState, skill *domain.Skill, st *domain.InputStatement, tn *turn) error {
	if tn.chainDepth > e.maxChainDepth {
		return fmt.Errorf("%w: skill %s at depth %d", domain.ErrChainDepthExceeded, skill.Package, tn.chainDepth)
	}
	if skill.Start == "" {
		return &domain.GraphError{Skill: skill.Package, Reason: "no start block"}
	}

	state.Skill = skill
	state.BlockID = skill.Start
	state.Data = make(map[string]any)
	state.Extra = make(map[string]any)
	if err := bd.SaveState(ctx, state); err != nil {
		return err
	}

	e.log.InfoContext(ctx, "skill started",
		"package", skill.Package,
		"channel_id", state.ChannelID,
		"chain_depth", tn.chainDepth,
	)
	return e.step(ctx, bd, state, st, true, tn)
}

func (e *Engine) continueSkill(ctx context.Context, bd ports.Binder, state *domain.ChannelState, st *domain.InputStatement) error {
	return e.step(ctx, bd, state, st, false, &turn{})
}

// step executes the block at the cursor and follows its result:
// re-prompt on a bare rejection, finish (and maybe chain) on an empty
// connection, otherwise advance and keep running until the next input
// block. State is persisted after every committed step and never after
// a failed one.
func (e *Engine) step(ctx context.Context, bd ports.Binder, state *domain.ChannelState, st *domain.InputStatement, isStart bool, tn *turn) error {
	tn.steps++
	if tn.steps > e.maxSteps {
		return &domain.GraphError{
			Skill:   state.Skill.Package,
			BlockID: state.BlockID,
			Reason:  "non-input chain exceeded the step budget, graph is likely cyclic",
		}
	}

	def, ok := state.Skill.Block(state.BlockID)
	if !ok {
		return &domain.GraphError{Skill: state.Skill.Package, BlockID: state.BlockID, Reason: "block id does not resolve"}
	}
	blk, err := e.registry.Build(*def)
	if err != nil {
		return e.tagSkill(state, err)
	}

	var res *block.Result
	switch b := blk.(type) {
	case block.Input:
		if isStart {
			// The statement that started the skill is not the answer to
			// its first question. Wait for the next turn.
			return nil
		}
		state.Scratch(block.ScratchInput, st.EffectiveInput())
		res, err = b.Process(ctx, bd, state, st)
	case block.Processor:
		res, err = b.Process(ctx, bd, state)
	default:
		return &domain.GraphError{Skill: state.Skill.Package, BlockID: def.ID, Reason: "component is neither input nor processor"}
	}
	if err != nil {
		// No partial commit: the cursor stays where the store last saw it.
		return e.tagSkill(state, err)
	}

	if res.Code == domain.CodeReject && res.Connection == "" {
		// Validation rejection: same block answers the next turn. Only
		// the accumulated scratch is persisted.
		e.metrics.Rejections.WithLabelValues(def.Component).Inc()
		e.log.DebugContext(ctx, "input rejected",
			"package", state.Skill.Package,
			"block_id", def.ID,
			"component", def.Component,
		)
		return bd.SaveState(ctx, state)
	}

	if res.Connection == "" {
		return e.finishSkill(ctx, bd, state, blk, tn)
	}

	next, ok := state.Skill.Block(res.Connection)
	if !ok {
		return &domain.GraphError{Skill: state.Skill.Package, BlockID: def.ID, Reason: "connection targets unknown block " + res.Connection}
	}
	state.BlockID = next.ID
	if err := bd.SaveState(ctx, state); err != nil {
		return err
	}

	desc, ok := e.registry.Descriptor(next.Component)
	if !ok {
		return &domain.GraphError{Skill: state.Skill.Package, BlockID: next.ID, Reason: "unknown component " + next.Component}
	}
	if desc.Category == block.CategoryInput {
		// Pause here; the next inbound statement answers this block.
		return nil
	}
	return e.step(ctx, bd, state, st, false, tn)
}

// finishSkill clears the cursor and, when the finishing block is a
// terminal naming a resolvable post_skill package, chains straight into
// that skill within the same pass.
func (e *Engine) finishSkill(ctx context.Context, bd ports.Binder, state *domain.ChannelState, blk block.Block, tn *turn) error {
	finished := state.Skill.Package
	var postSkill string
	if term, ok := blk.(*block.Terminal); ok {
		postSkill = term.PostSkill()
	}

	state.Reset()
	if err := bd.SaveState(ctx, state); err != nil {
		return err
	}
	e.log.InfoContext(ctx, "skill finished", "package", finished, "channel_id", state.ChannelID)
	e.metrics.ChainDepth.Observe(float64(tn.chainDepth))

	if postSkill == "" {
		return nil
	}
	next, err := bd.GetSkill(ctx, postSkill)
	if errors.Is(err, domain.ErrSkillNotFound) {
		e.log.WarnContext(ctx, "post skill does not resolve", "package", postSkill)
		return nil
	}
	if err != nil {
		return err
	}

	tn.chainDepth++
	fresh := &domain.InputStatement{UserID: state.UserID, Flag: domain.FlagStartSkill, Input: next}
	return e.startSkill(ctx, bd, state, next, fresh, tn)
}

func (e *Engine) cancelSkill(ctx context.Context, bd ports.Binder, state *domain.ChannelState) error {
	cancelled := ""
	if state.Skill != nil {
		cancelled = state.Skill.Package
	}
	state.Reset()
	if err := bd.SaveState(ctx, state); err != nil {
		return err
	}
	e.log.InfoContext(ctx, "skill cancelled", "package", cancelled, "channel_id", state.ChannelID)
	return bd.PostMessage(ctx, domain.NewOutput().AddText(e.cancelMessage))
}

func (e *Engine) standardInput(ctx context.Context, bd ports.Binder, st *domain.InputStatement) error {
	out, err := bd.StandardInput(ctx, st, domain.NewOutput())
	if err != nil {
		return err
	}
	if out.Empty() {
		return nil
	}
	return bd.PostMessage(ctx, out)
}

// tagSkill fills the skill package into graph errors raised below the
// engine, where only the block is known.
func (e *Engine) tagSkill(state *domain.ChannelState, err error) error {
	var gerr *domain.GraphError
	if errors.As(err, &gerr) && gerr.Skill == "" && state.Skill != nil {
		gerr.Skill = state.Skill.Package
	}
	return err
}
