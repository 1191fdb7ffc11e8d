// Package ports defines the interfaces between the skill engine and the
// host service that embeds it: the Binder (the host's side of one
// conversation), the polymorphic provider contracts, and the storage
// ports implemented by adapters.
//
// The engine depends only on these interfaces; persistence, transport
// and rendering stay external collaborators.
package ports
