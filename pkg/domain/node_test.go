package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNode_RoundTrip(t *testing.T) {
	n := NewText("hello")
	raw, err := json.Marshal(n)
	require.NoError(t, err)

	var back Node
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, NodeText, back.Kind)
	assert.Equal(t, "hello", back.Data)
}

func TestNode_UnknownDiscriminator(t *testing.T) {
	var n Node
	err := json.Unmarshal([]byte(`{"node":"hologram","data":"x"}`), &n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown discriminator")
}

func TestNode_MissingDiscriminator(t *testing.T) {
	var n Node
	err := json.Unmarshal([]byte(`{"data":"x"}`), &n)
	require.Error(t, err)
}

func TestNode_SearchNesting(t *testing.T) {
	n := NewSearch(NewCancel(), "Cancel")
	raw, err := json.Marshal(n)
	require.NoError(t, err)

	var back Node
	require.NoError(t, json.Unmarshal(raw, &back))
	require.True(t, back.IsSearch())

	inner, ok := back.Inner()
	require.True(t, ok)
	assert.Equal(t, NodeCancel, inner.Kind)
	assert.Equal(t, "Cancel", back.Label())
}

func TestDecodeNode_FromMap(t *testing.T) {
	// Transports decode JSON into map[string]any; the engine must still
	// recognize node-shaped inputs.
	v := map[string]any{"node": "search", "data": map[string]any{"node": "skip"}}
	n, ok := DecodeNode(v)
	require.True(t, ok)
	inner, ok := n.Inner()
	require.True(t, ok)
	assert.Equal(t, NodeSkip, inner.Kind)

	_, ok = DecodeNode(map[string]any{"foo": "bar"})
	assert.False(t, ok)

	_, ok = DecodeNode("plain text")
	assert.False(t, ok)
}

func TestChannelState_Reset(t *testing.T) {
	s := NewChannelState("u1", "op1", "ch1")
	s.Skill = &Skill{Package: "com.example.x", Start: "b1"}
	s.BlockID = "b1"
	s.Set("name", "Alice")
	s.Scratch("input", "hi")

	s.Reset()

	assert.Nil(t, s.Skill)
	assert.Empty(t, s.BlockID)
	assert.Empty(t, s.Data)
	assert.Empty(t, s.Extra)
	assert.Equal(t, "u1", s.UserID)
}

func TestChannelState_CloneIsolation(t *testing.T) {
	s := NewChannelState("u1", "op1", "ch1")
	s.Set("k", "v")

	c := s.Clone()
	c.Set("k", "changed")

	assert.Equal(t, "v", s.Data["k"])
}

func TestBlockDef_ConnectionKeys(t *testing.T) {
	// Integer-keyed connection maps must survive JSON.
	def := BlockDef{
		ID:          "b1",
		Component:   "input.text",
		Connections: map[ResultCode]string{CodeMove: "b2"},
	}
	raw, err := json.Marshal(def)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"1":"b2"`)

	var back BlockDef
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, "b2", back.Connections[CodeMove])
}
