// Package components holds the provider registry: the typed lookup
// from component names to constructed SkillProvider, OAuthProvider and
// PaymentProvider instances. A registry is built once at service start
// and handed to binders by reference; nothing here is package-global.
package components

import (
	"sync"

	"github.com/nbrandt/espalier/pkg/ports"
)

// Registry implements ports.ComponentResolver.
type Registry struct {
	mu       sync.RWMutex
	skills   map[string]ports.SkillProvider
	oauth    map[string]ports.OAuthProvider
	payments map[string]ports.PaymentProvider
	payOrder []string
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		skills:   make(map[string]ports.SkillProvider),
		oauth:    make(map[string]ports.OAuthProvider),
		payments: make(map[string]ports.PaymentProvider),
	}
}

// RegisterSkillProvider adds a skill provider under its own name.
func (r *Registry) RegisterSkillProvider(p ports.SkillProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skills[p.Name()] = p
}

// RegisterOAuthProvider adds an OAuth provider under its own name.
func (r *Registry) RegisterOAuthProvider(p ports.OAuthProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.oauth[p.Name()] = p
}

// RegisterPaymentProvider adds a payment provider under its own name.
func (r *Registry) RegisterPaymentProvider(p ports.PaymentProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.payments[p.Name()]; !exists {
		r.payOrder = append(r.payOrder, p.Name())
	}
	r.payments[p.Name()] = p
}

func (r *Registry) SkillProvider(name string) (ports.SkillProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.skills[name]
	return p, ok
}

func (r *Registry) OAuthProvider(name string) (ports.OAuthProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.oauth[name]
	return p, ok
}

func (r *Registry) PaymentProvider(name string) (ports.PaymentProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[name]
	return p, ok
}

// PaymentProviders returns every payment provider in registration
// order.
func (r *Registry) PaymentProviders() []ports.PaymentProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ports.PaymentProvider, 0, len(r.payOrder))
	for _, name := range r.payOrder {
		out = append(out, r.payments[name])
	}
	return out
}
