package skillfile

import (
	"github.com/nbrandt/espalier/pkg/block"
	"github.com/nbrandt/espalier/pkg/domain"
)

// Validate checks a skill's graph integrity against the registry:
// every block must build (known component, valid properties), every
// connection must target an existing block, the start block must
// exist, every block must be reachable from it, and the skill must
// contain a terminal block. Validation happens at load time so a
// broken graph never reaches a live conversation.
func Validate(skill *domain.Skill, registry *block.Registry) error {
	if skill.Package == "" {
		return &domain.GraphError{Skill: skill.Package, Reason: "missing package id"}
	}
	if len(skill.Blocks) == 0 {
		return &domain.GraphError{Skill: skill.Package, Reason: "skill has no blocks"}
	}
	if skill.Start == "" {
		return &domain.GraphError{Skill: skill.Package, Reason: "missing start block"}
	}

	ids := make(map[string]bool, len(skill.Blocks))
	for _, def := range skill.Blocks {
		if def.ID == "" {
			return &domain.GraphError{Skill: skill.Package, Reason: "block without id"}
		}
		if ids[def.ID] {
			return &domain.GraphError{Skill: skill.Package, BlockID: def.ID, Reason: "duplicate block id"}
		}
		ids[def.ID] = true
	}

	for _, def := range skill.Blocks {
		if _, err := registry.Build(def); err != nil {
			return err
		}
		for _, target := range def.Connections {
			if !ids[target] {
				return &domain.GraphError{
					Skill:   skill.Package,
					BlockID: def.ID,
					Reason:  "connection targets unknown block " + target,
				}
			}
		}
	}

	if !ids[skill.Start] {
		return &domain.GraphError{Skill: skill.Package, Reason: "start block " + skill.Start + " does not exist"}
	}

	reachable := make(map[string]bool, len(skill.Blocks))
	walk(skill, skill.Start, reachable)
	for _, def := range skill.Blocks {
		if !reachable[def.ID] {
			return &domain.GraphError{Skill: skill.Package, BlockID: def.ID, Reason: "unreachable from start"}
		}
	}

	for _, def := range skill.Blocks {
		if desc, ok := registry.Descriptor(def.Component); ok && desc.Category == block.CategoryTerminal {
			return nil
		}
	}
	return &domain.GraphError{Skill: skill.Package, Reason: "no terminal block reachable from start"}
}

func walk(skill *domain.Skill, id string, seen map[string]bool) {
	if seen[id] {
		return
	}
	seen[id] = true
	def, ok := skill.Block(id)
	if !ok {
		return
	}
	for _, target := range def.Connections {
		walk(skill, target, seen)
	}
}
