package engine

import (
	"context"
	"errors"

	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/ports"
)

// Classification is the flag manager's verdict for one statement: the
// resolved flag, the statement rewrapped for the processor (search
// wrappers unwrapped, skip inputs stripped), and, for a skill start,
// the resolved skill.
type Classification struct {
	Flag      domain.Flag
	Statement *domain.InputStatement
	Skill     *domain.Skill
}

// Classify maps one inbound statement to exactly one flag given the
// current cursor. It never mutates state or the caller's statement;
// calling it twice with the same inputs yields the same verdict.
//
// With an active skill: an explicit cancel (flag or host intent) wins,
// then search-wrapped control nodes are translated (cancel abandons,
// skip strips the input), and everything else continues the skill.
// Idle: an explicit start flag resolves its named package without
// consulting the intent classifier; otherwise the classifier gets one
// shot, and an unrecognized statement falls through to standard input.
func (e *Engine) Classify(ctx context.Context, bd ports.Binder, state *domain.ChannelState, st *domain.InputStatement) (Classification, error) {
	st = st.Clone()

	if state.InSkill() {
		if st.Flag == domain.FlagCancelSkill || bd.CancelIntent(ctx, st) {
			st.Flag = domain.FlagCancelSkill
			return Classification{Flag: domain.FlagCancelSkill, Statement: st}, nil
		}

		if n, ok := domain.DecodeNode(st.Input); ok && n.IsSearch() {
			if inner, ok := n.Inner(); ok {
				switch inner.Kind {
				case domain.NodeCancel:
					st.Input = nil
					st.Flag = domain.FlagCancelSkill
					return Classification{Flag: domain.FlagCancelSkill, Statement: st}, nil
				case domain.NodeSkip:
					st.Input = nil
				default:
					st.Input = inner.Data
				}
			}
		}

		st.Flag = domain.FlagSkillProcessor
		return Classification{Flag: domain.FlagSkillProcessor, Statement: st}, nil
	}

	if st.Flag == domain.FlagStartSkill {
		skill, err := e.resolveSkill(ctx, bd, startPackage(st))
		if err != nil {
			return Classification{}, err
		}
		if skill != nil {
			return startClassification(st, skill), nil
		}
		// Explicit start for an unknown package. The explicit flag takes
		// precedence over intent classification, so do not second-guess
		// it with the classifier.
		e.log.WarnContext(ctx, "start requested for unknown package", "package", startPackage(st))
	} else if pkg, ok := bd.SkillIntent(ctx, st); ok {
		skill, err := e.resolveSkill(ctx, bd, pkg)
		if err != nil {
			return Classification{}, err
		}
		if skill != nil {
			return startClassification(st, skill), nil
		}
	}

	st.Flag = domain.FlagStandardInput
	return Classification{Flag: domain.FlagStandardInput, Statement: st}, nil
}

func startClassification(st *domain.InputStatement, skill *domain.Skill) Classification {
	st.Flag = domain.FlagStartSkill
	st.Input = skill
	return Classification{Flag: domain.FlagStartSkill, Statement: st, Skill: skill}
}

// startPackage extracts the package id an explicit start statement
// names.
func startPackage(st *domain.InputStatement) string {
	if pkg, ok := st.Input.(string); ok && pkg != "" {
		return pkg
	}
	return st.Text
}

func (e *Engine) resolveSkill(ctx context.Context, bd ports.Binder, pkg string) (*domain.Skill, error) {
	if pkg == "" {
		return nil, nil
	}
	skill, err := bd.GetSkill(ctx, pkg)
	if errors.Is(err, domain.ErrSkillNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return skill, nil
}
