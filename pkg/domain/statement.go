package domain

// Flag is the coarse classification of an inbound event. The transport
// layer may set it as a hint; the flag manager produces the final value.
type Flag string

const (
	// FlagNone means the transport expressed no preference.
	FlagNone Flag = ""
	// FlagStartSkill requests that the named skill package be started.
	FlagStartSkill Flag = "start_skill"
	// FlagSkillProcessor routes the statement to the active skill's
	// current block.
	FlagSkillProcessor Flag = "skill_processor"
	// FlagCancelSkill abandons the active skill.
	FlagCancelSkill Flag = "cancel_skill"
	// FlagStandardInput routes the statement outside any skill.
	FlagStandardInput Flag = "standard_input"
)

// InputStatement is one inbound user event.
//
// Text carries the raw utterance when present. Input carries structured
// content: a Node payload, a raw value, or (for FlagStartSkill after
// classification) the resolved *Skill itself.
type InputStatement struct {
	UserID string `json:"user_id"`
	Text   string `json:"text,omitempty"`
	Input  any    `json:"input,omitempty"`
	Flag   Flag   `json:"flag,omitempty"`
}

// Clone returns a shallow copy. Classification rewraps statements
// without mutating the caller's value.
func (s *InputStatement) Clone() *InputStatement {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// HasInput reports whether the statement carries any usable content.
func (s *InputStatement) HasInput() bool {
	if s == nil {
		return false
	}
	if s.Input != nil {
		return true
	}
	return s.Text != ""
}

// EffectiveInput returns the structured input when present, otherwise
// the raw text.
func (s *InputStatement) EffectiveInput() any {
	if s == nil {
		return nil
	}
	if s.Input != nil {
		return s.Input
	}
	if s.Text != "" {
		return s.Text
	}
	return nil
}

// OutputStatement is one turn's ordered reply. Confidence is reserved
// for ranked interpretations; the graph path always emits 1.0.
type OutputStatement struct {
	Nodes      []Node  `json:"nodes"`
	Confidence float64 `json:"confidence"`
}

// NewOutput creates an empty reply with full confidence.
func NewOutput() *OutputStatement {
	return &OutputStatement{Confidence: 1.0}
}

// Add appends nodes to the reply and returns the statement for chaining.
func (o *OutputStatement) Add(nodes ...Node) *OutputStatement {
	o.Nodes = append(o.Nodes, nodes...)
	return o
}

// AddText appends a text node.
func (o *OutputStatement) AddText(text string) *OutputStatement {
	return o.Add(NewText(text))
}

// Empty reports whether the reply carries no nodes.
func (o *OutputStatement) Empty() bool {
	return o == nil || len(o.Nodes) == 0
}
