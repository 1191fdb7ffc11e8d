package block

import (
	"context"
	"net/url"
	"strings"

	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/ports"
)

type inputComponentProps struct {
	inputProps `mapstructure:",squash"`
	Component  string `mapstructure:"component"`
}

// InputOAuth pauses the conversation for an authorization round-trip.
//
// On an empty statement it first tries a stored token (refreshing an
// expired one; the store is only written on refresh success), and only
// then emits the provider's authorize url and rejects to wait. The
// redirect callback resumes the block with the raw callback url as
// input, whose code is exchanged and persisted.
type InputOAuth struct {
	InputBase
	component string
}

func registerInputOAuth() Registration {
	t := inputFields(
		Field{Name: "component", Type: FieldString, Required: true},
	)
	return Registration{
		Component: "input.oauth",
		Descriptor: Descriptor{
			Name:     "OAuth",
			Category: CategoryInput,
			Summary:  "Authorizes the user against an OAuth provider.",
		},
		Template: t,
		New: func(def domain.BlockDef) (Block, error) {
			var props inputComponentProps
			if err := t.Decode(def.Properties, &props); err != nil {
				return nil, err
			}
			b := &InputOAuth{component: props.Component}
			b.InputBase = NewInputBase(NewBase(def, registerInputOAuth().Descriptor, t), props.Key, props.Required, b.process)
			return b, nil
		},
	}
}

func (b *InputOAuth) process(ctx context.Context, bd ports.Binder, state *domain.ChannelState, st *domain.InputStatement) (*Result, error) {
	provider, ok := bd.Components().OAuthProvider(b.component)
	if !ok {
		return nil, missingProvider("oauth", b.component)
	}

	if code := callbackCode(st); code != "" {
		token, err := provider.Exchange(ctx, code)
		if err != nil {
			return nil, componentError(b.component, "exchange", err)
		}
		if err := bd.SaveOAuthToken(ctx, b.component, state.UserID, token); err != nil {
			return nil, componentError(b.component, "save token", err)
		}
		b.Save(state, map[string]any{"component": b.component, "authorized": true})
		return b.Move(), nil
	}

	// No callback yet: an existing valid token authorizes silently.
	if token, err := bd.LoadOAuthToken(ctx, b.component, state.UserID); err == nil {
		if !provider.Expired(token) {
			b.Save(state, map[string]any{"component": b.component, "authorized": true})
			return b.Move(), nil
		}
		if refreshed, err := provider.Refresh(ctx, token); err == nil {
			if err := bd.SaveOAuthToken(ctx, b.component, state.UserID, refreshed); err != nil {
				return nil, componentError(b.component, "save token", err)
			}
			b.Save(state, map[string]any{"component": b.component, "authorized": true})
			return b.Move(), nil
		}
		// Refresh failed: fall through to a fresh authorization. The
		// stored token is left untouched.
	}

	authorizeURL, err := provider.AuthorizeURL(ctx, state)
	if err != nil {
		return nil, componentError(b.component, "authorize url", err)
	}
	out := domain.NewOutput().Add(domain.NewOAuth(b.component, authorizeURL))
	if err := bd.PostMessage(ctx, out); err != nil {
		return nil, err
	}
	return b.Reject(), nil
}

// callbackCode extracts the authorization code from a statement whose
// input is a redirect callback url.
func callbackCode(st *domain.InputStatement) string {
	raw := callbackURL(st)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Query().Get("code")
}

// callbackURL returns the statement input when it looks like a url.
func callbackURL(st *domain.InputStatement) string {
	if st == nil {
		return ""
	}
	raw, _ := st.Input.(string)
	if raw == "" {
		raw = st.Text
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return ""
}
