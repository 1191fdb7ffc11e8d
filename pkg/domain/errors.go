package domain

import (
	"errors"
	"fmt"
)

// ErrStateNotFound is returned when a channel id has no persisted state.
var ErrStateNotFound = errors.New("channel state not found")

// ErrSkillNotFound is returned when a package id resolves to no skill.
var ErrSkillNotFound = errors.New("skill not found")

// ErrTokenNotFound is returned when no token is stored for a
// (component, user) pair.
var ErrTokenNotFound = errors.New("oauth token not found")

// ErrChainDepthExceeded is returned when post-skill chaining recurses
// past the configured bound, which indicates a cyclic chain.
var ErrChainDepthExceeded = errors.New("post-skill chain depth exceeded")

// GraphError is a graph integrity failure: an unresolvable block id, an
// unknown component, or a skill missing its start or terminal. It is
// fatal for the turn and must reach the caller.
type GraphError struct {
	Skill   string
	BlockID string
	Reason  string
}

func (e *GraphError) Error() string {
	if e.BlockID != "" {
		return fmt.Sprintf("skill %s: block %s: %s", e.Skill, e.BlockID, e.Reason)
	}
	return fmt.Sprintf("skill %s: %s", e.Skill, e.Reason)
}

// ProviderError wraps a collaborator failure (token exchange, payment
// call, data exchange, search). The step aborts without committing
// state and the caller decides whether to retry the turn.
type ProviderError struct {
	Component string
	Op        string
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Component, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
