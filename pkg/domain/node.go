package domain

import (
	"encoding/json"
	"fmt"
)

// Node kind constants. The kind is the wire discriminator ("node" field)
// for every payload exchanged between the engine and the channel.
const (
	NodeText         = "text"
	NodeSearch       = "search"
	NodeCancel       = "cancel"
	NodeSkip         = "skip"
	NodePayment      = "payment"
	NodePreview      = "preview"
	NodeDate         = "date"
	NodeDateTime     = "datetime"
	NodeDuration     = "duration"
	NodeImage        = "image"
	NodeAudio        = "audio"
	NodeBinary       = "binary"
	NodeIFrame       = "iframe"
	NodeOAuth        = "oauth"
	NodeNotification = "notification"
)

var knownNodeKinds = map[string]bool{
	NodeText: true, NodeSearch: true, NodeCancel: true, NodeSkip: true,
	NodePayment: true, NodePreview: true, NodeDate: true, NodeDateTime: true,
	NodeDuration: true, NodeImage: true, NodeAudio: true, NodeBinary: true,
	NodeIFrame: true, NodeOAuth: true, NodeNotification: true,
}

// Node is a typed, serializable payload attached to a statement.
// Data carries the primary value; its shape depends on Kind. For a
// search node Data is a *Node wrapping the underlying choice.
// Meta carries auxiliary attributes (labels, mime types, urls).
type Node struct {
	Kind string         `json:"node"`
	Data any            `json:"data,omitempty"`
	Meta map[string]any `json:"meta,omitempty"`
}

// NewText builds a text node.
func NewText(text string) Node {
	return Node{Kind: NodeText, Data: text}
}

// NewCancel builds a cancel marker node.
func NewCancel() Node {
	return Node{Kind: NodeCancel}
}

// NewSkip builds a skip marker node.
func NewSkip() Node {
	return Node{Kind: NodeSkip}
}

// NewSearch wraps another node as a search candidate. The label is what
// the channel displays for the choice.
func NewSearch(inner Node, label string) Node {
	n := Node{Kind: NodeSearch, Data: &inner}
	if label != "" {
		n.Meta = map[string]any{"label": label}
	}
	return n
}

// NewPayment builds a payment node pointing at one or more provider urls.
// The urls map is keyed by provider component name.
func NewPayment(urls map[string]string, amount float64, currency string) Node {
	return Node{
		Kind: NodePayment,
		Data: urls,
		Meta: map[string]any{"amount": amount, "currency_code": currency},
	}
}

// NewPreview builds a link preview node.
func NewPreview(url, title string) Node {
	return Node{Kind: NodePreview, Data: url, Meta: map[string]any{"title": title}}
}

// NewOAuth builds an authorization-request node carrying the provider's
// authorize url.
func NewOAuth(component, authorizeURL string) Node {
	return Node{Kind: NodeOAuth, Data: authorizeURL, Meta: map[string]any{"component": component}}
}

// NewNotification builds an out-of-band notification node.
func NewNotification(text string) Node {
	return Node{Kind: NodeNotification, Data: text}
}

// IsSearch reports whether the node is a search wrapper.
func (n Node) IsSearch() bool { return n.Kind == NodeSearch }

// Inner returns the node wrapped by a search node, or false when the
// node is not a search wrapper or carries no inner node.
func (n Node) Inner() (Node, bool) {
	if n.Kind != NodeSearch {
		return Node{}, false
	}
	switch v := n.Data.(type) {
	case *Node:
		if v != nil {
			return *v, true
		}
	case Node:
		return v, true
	}
	return Node{}, false
}

// Label returns the display label from Meta, falling back to a string
// rendering of Data.
func (n Node) Label() string {
	if n.Meta != nil {
		if s, ok := n.Meta["label"].(string); ok && s != "" {
			return s
		}
	}
	if s, ok := n.Data.(string); ok {
		return s
	}
	return ""
}

// Text returns Data as a string when possible.
func (n Node) Text() string {
	if s, ok := n.Data.(string); ok {
		return s
	}
	return ""
}

// UnmarshalJSON decodes a node, rejecting unknown discriminators.
// A search node's data is decoded recursively into a *Node.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw struct {
		Kind string          `json:"node"`
		Data json.RawMessage `json:"data"`
		Meta map[string]any  `json:"meta"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Kind == "" {
		return fmt.Errorf("node: missing discriminator field %q", "node")
	}
	if !knownNodeKinds[raw.Kind] {
		return fmt.Errorf("node: unknown discriminator %q", raw.Kind)
	}

	n.Kind = raw.Kind
	n.Meta = raw.Meta
	n.Data = nil

	if len(raw.Data) == 0 || string(raw.Data) == "null" {
		return nil
	}

	if raw.Kind == NodeSearch {
		inner := &Node{}
		if err := json.Unmarshal(raw.Data, inner); err != nil {
			return fmt.Errorf("node: invalid search payload: %w", err)
		}
		n.Data = inner
		return nil
	}

	var v any
	if err := json.Unmarshal(raw.Data, &v); err != nil {
		return err
	}
	n.Data = v
	return nil
}

// DecodeNode attempts to interpret an arbitrary statement input as a
// Node. It accepts Node values, pointers, and JSON-shaped maps carrying
// the discriminator. Returns false when the value is not node-shaped.
func DecodeNode(v any) (Node, bool) {
	switch t := v.(type) {
	case Node:
		return t, true
	case *Node:
		if t != nil {
			return *t, true
		}
	case map[string]any:
		if _, ok := t["node"]; !ok {
			return Node{}, false
		}
		raw, err := json.Marshal(t)
		if err != nil {
			return Node{}, false
		}
		var n Node
		if err := json.Unmarshal(raw, &n); err != nil {
			return Node{}, false
		}
		return n, true
	}
	return Node{}, false
}
