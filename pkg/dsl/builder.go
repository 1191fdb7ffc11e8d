// Package dsl builds skill graphs in code. It is the programmatic
// counterpart of the YAML skill files: hosts that generate skills
// dynamically use the builder, everything else loads files.
package dsl

import (
	"github.com/nbrandt/espalier/pkg/domain"
)

// Builder assembles one skill. The zero value is not usable; start
// with New.
type Builder struct {
	skill domain.Skill
}

// New starts a skill for the given package id.
func New(pkg string) *Builder {
	return &Builder{skill: domain.Skill{Package: pkg}}
}

// Start names the entry block. The first block added is the default
// start when Start is never called.
func (b *Builder) Start(id string) *Builder {
	b.skill.Start = id
	return b
}

// Block adds a block and returns its builder. Connections and
// properties chain off the returned value; Done returns to the skill
// builder.
func (b *Builder) Block(id, component string) *BlockBuilder {
	b.skill.Blocks = append(b.skill.Blocks, domain.BlockDef{ID: id, Component: component})
	if b.skill.Start == "" {
		b.skill.Start = id
	}
	return &BlockBuilder{parent: b, idx: len(b.skill.Blocks) - 1}
}

// Build returns the assembled skill. The block list is copied, so the
// caller may keep using the builder afterwards.
func (b *Builder) Build() *domain.Skill {
	skill := b.skill
	skill.Blocks = append([]domain.BlockDef(nil), b.skill.Blocks...)
	return &skill
}

// BlockBuilder configures one block.
type BlockBuilder struct {
	parent *Builder
	idx    int
}

func (bb *BlockBuilder) def() *domain.BlockDef {
	return &bb.parent.skill.Blocks[bb.idx]
}

// Prop sets one property, preserving call order.
func (bb *BlockBuilder) Prop(name string, value any) *BlockBuilder {
	def := bb.def()
	def.Properties = append(def.Properties, domain.Property{Name: name, Value: value})
	return bb
}

// On connects an outcome code to a target block.
func (bb *BlockBuilder) On(code domain.ResultCode, target string) *BlockBuilder {
	def := bb.def()
	if def.Connections == nil {
		def.Connections = make(map[domain.ResultCode]string)
	}
	def.Connections[code] = target
	return bb
}

// Move connects the default forward outcome.
func (bb *BlockBuilder) Move(target string) *BlockBuilder {
	return bb.On(domain.CodeMove, target)
}

// Reject connects the rejection outcome. Input blocks re-prompt by
// default; connecting Reject overrides that.
func (bb *BlockBuilder) Reject(target string) *BlockBuilder {
	return bb.On(domain.CodeReject, target)
}

// Done returns to the skill builder.
func (bb *BlockBuilder) Done() *Builder {
	return bb.parent
}

// Block adds a sibling block, closing this one.
func (bb *BlockBuilder) Block(id, component string) *BlockBuilder {
	return bb.parent.Block(id, component)
}

// Build closes this block and assembles the skill.
func (bb *BlockBuilder) Build() *domain.Skill {
	return bb.parent.Build()
}
