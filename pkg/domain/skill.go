package domain

// ResultCode identifies the outcome of invoking a block. Connections
// are keyed by result code.
type ResultCode int

const (
	CodeReject ResultCode = -1
	CodeAccept ResultCode = 0
	CodeMove   ResultCode = 1
	CodeMoveX  ResultCode = 2
	CodeMoveY  ResultCode = 3
	CodeMoveZ  ResultCode = 4
)

// Property is one named configuration value of a block. Order is
// preserved from the skill definition.
type Property struct {
	Name  string `json:"name" yaml:"name"`
	Value any    `json:"value" yaml:"value"`
}

// BlockDef is the declarative definition of one block in a skill graph.
// Component names the registered block behavior to instantiate.
// Connections maps an outcome code to the target block id; an absent
// code is terminal for that outcome.
type BlockDef struct {
	ID          string                `json:"id" yaml:"id"`
	Component   string                `json:"component" yaml:"component"`
	Properties  []Property            `json:"properties,omitempty" yaml:"properties,omitempty"`
	Connections map[ResultCode]string `json:"connections,omitempty" yaml:"connections,omitempty"`
}

// Skill is a complete block graph plus a start pointer, identified by a
// package id. The engine never mutates a skill definition.
type Skill struct {
	Package string     `json:"package" yaml:"package"`
	Start   string     `json:"start" yaml:"start"`
	Blocks  []BlockDef `json:"blocks" yaml:"blocks"`
}

// Block returns the definition with the given id.
func (s *Skill) Block(id string) (*BlockDef, bool) {
	for i := range s.Blocks {
		if s.Blocks[i].ID == id {
			return &s.Blocks[i], true
		}
	}
	return nil, false
}
