package domain

// ChannelState is the persisted cursor for one conversation: which
// skill is active, which block is current, and the skill's working
// memory. It is loaded once per inbound event and saved after each
// processor step.
type ChannelState struct {
	UserID     string `json:"user_id"`
	OperatorID string `json:"operator_id"`
	ChannelID  string `json:"channel_id"`

	// Skill is the active skill definition, nil when idle.
	Skill *Skill `json:"skill,omitempty"`

	// BlockID is the current position inside Skill.
	BlockID string `json:"block_id,omitempty"`

	// Data is the skill's working memory, keyed by each input block's
	// declared storage key.
	Data map[string]any `json:"data"`

	// Extra is scratch space for cross-block bookkeeping (last input,
	// last provider result). It lives exactly as long as the skill run
	// and is cleared with the rest of the cursor; there is no expiry.
	Extra map[string]any `json:"extra"`
}

// NewChannelState creates an idle cursor for a conversation.
func NewChannelState(userID, operatorID, channelID string) *ChannelState {
	return &ChannelState{
		UserID:     userID,
		OperatorID: operatorID,
		ChannelID:  channelID,
		Data:       make(map[string]any),
		Extra:      make(map[string]any),
	}
}

// InSkill reports whether a skill is in progress.
func (s *ChannelState) InSkill() bool {
	return s != nil && s.Skill != nil
}

// Reset clears the cursor back to idle: no skill, no position, no
// working memory.
func (s *ChannelState) Reset() {
	s.Skill = nil
	s.BlockID = ""
	s.Data = make(map[string]any)
	s.Extra = make(map[string]any)
}

// Clone returns a copy with deep-copied Data and Extra maps, safe to
// mutate without affecting the source.
func (s *ChannelState) Clone() *ChannelState {
	if s == nil {
		return nil
	}
	next := *s
	next.Data = make(map[string]any, len(s.Data))
	for k, v := range s.Data {
		next.Data[k] = v
	}
	next.Extra = make(map[string]any, len(s.Extra))
	for k, v := range s.Extra {
		next.Extra[k] = v
	}
	return &next
}

// Set stores a value in the skill's working memory.
func (s *ChannelState) Set(key string, value any) {
	if s.Data == nil {
		s.Data = make(map[string]any)
	}
	s.Data[key] = value
}

// Scratch stores a value in the cross-block scratch map.
func (s *ChannelState) Scratch(key string, value any) {
	if s.Extra == nil {
		s.Extra = make(map[string]any)
	}
	s.Extra[key] = value
}
