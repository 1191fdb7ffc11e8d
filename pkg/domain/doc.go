// Package domain contains the pure data model of the skill engine:
// node payloads, statements, the persisted channel cursor, skill
// definitions and the shared error taxonomy.
//
// The package has no dependencies on the engine or any adapter. Types
// here are the vocabulary every other package speaks.
package domain
