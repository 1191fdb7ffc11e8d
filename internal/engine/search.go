package engine

import (
	"context"

	"github.com/nbrandt/espalier/pkg/block"
	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/ports"
)

// Search answers an autocomplete query for the block the conversation
// is currently paused on. It returns (nil, nil) when no skill is active
// or the pending block does not support search; the transport renders
// that as an empty candidate list.
func (e *Engine) Search(ctx context.Context, bd ports.Binder, query string) ([]domain.Node, error) {
	state, err := bd.LoadState(ctx)
	if err != nil {
		return nil, err
	}
	if !state.InSkill() {
		return nil, nil
	}

	def, ok := state.Skill.Block(state.BlockID)
	if !ok {
		return nil, &domain.GraphError{Skill: state.Skill.Package, BlockID: state.BlockID, Reason: "block id does not resolve"}
	}
	blk, err := e.registry.Build(*def)
	if err != nil {
		return nil, e.tagSkill(state, err)
	}

	searchable, ok := blk.(block.Searchable)
	if !ok {
		return nil, nil
	}
	return searchable.Search(ctx, bd, state.UserID, query)
}
