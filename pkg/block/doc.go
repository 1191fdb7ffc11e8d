// Package block implements the skill graph's node types: input blocks
// that validate one user turn, interpreter blocks that call providers,
// prompt blocks that emit nodes, and the terminal block.
//
// Blocks are instantiated from declarative definitions
// (domain.BlockDef) through a Registry of factories built once at
// service start. Each block type declares a property Template that is
// validated and decoded at construction time; a malformed property set
// is a construction error, while a runtime rejection simply re-prompts
// the same block.
package block
