package block

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/ports"
)

// processFunc is the subclass hook an input block supplies. It runs
// only after the shared required/skip policy has been evaluated.
type processFunc func(ctx context.Context, bd ports.Binder, state *domain.ChannelState, st *domain.InputStatement) (*Result, error)

// inputProps are the fields every input block template starts with.
type inputProps struct {
	Key      string `mapstructure:"key"`
	Required bool   `mapstructure:"required"`
}

// inputFields prepends the shared key/required fields to a template.
func inputFields(extra ...Field) Template {
	t := Template{
		{Name: "key", Type: FieldString, Required: true},
		{Name: "required", Type: FieldBool, Default: true},
	}
	return append(t, extra...)
}

// InputBase implements the shared input contract: the declared
// "required" property is honored before any subclass logic runs. An
// optional block receiving an empty statement saves an explicit nil
// and moves on.
type InputBase struct {
	Base
	key       string
	required  bool
	onProcess processFunc
}

// NewInputBase builds the shared input part.
func NewInputBase(base Base, key string, required bool, onProcess processFunc) InputBase {
	return InputBase{Base: base, key: key, required: required, onProcess: onProcess}
}

func (b *InputBase) Key() string    { return b.key }
func (b *InputBase) Required() bool { return b.required }

// Save stores a validated value under the block's key.
func (b *InputBase) Save(state *domain.ChannelState, value any) {
	state.Set(b.key, value)
}

// Process applies the skip policy, then delegates to the subclass.
func (b *InputBase) Process(ctx context.Context, bd ports.Binder, state *domain.ChannelState, st *domain.InputStatement) (*Result, error) {
	if !b.required && !st.HasInput() {
		b.Save(state, nil)
		return b.Move(), nil
	}
	return b.onProcess(ctx, bd, state, st)
}

// stringInput extracts a textual value from a statement: a plain
// string input, a text node's data, or the raw utterance.
func stringInput(st *domain.InputStatement) string {
	if st == nil {
		return ""
	}
	switch v := st.Input.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	}
	if n, ok := domain.DecodeNode(st.Input); ok {
		if s := n.Text(); s != "" {
			return s
		}
	}
	return st.Text
}

// numberInput extracts a numeric value from a statement.
func numberInput(st *domain.InputStatement) (float64, bool) {
	if st == nil {
		return 0, false
	}
	switch v := st.Input.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	s := strings.TrimSpace(stringInput(st))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// componentError wraps a collaborator failure for the error taxonomy.
func componentError(component, op string, err error) error {
	return &domain.ProviderError{Component: component, Op: op, Err: err}
}

// missingProvider is the graph-side failure for an unresolvable
// component name.
func missingProvider(kind, name string) error {
	return &domain.ProviderError{
		Component: name,
		Op:        "resolve",
		Err:       fmt.Errorf("no %s provider registered under %q", kind, name),
	}
}
