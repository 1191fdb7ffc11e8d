// Package httpapi exposes the engine over HTTP: a statements endpoint
// for inbound events, redirect callback endpoints for OAuth and
// payment round-trips, the search sub-protocol, and the block catalog.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nbrandt/espalier"
	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/ports"
	"github.com/nbrandt/espalier/pkg/statetoken"
)

// BinderProvider resolves a conversation scope to its Binder. The
// transport calls it once per request; implementations typically wrap
// a session manager plus a component registry.
type BinderProvider interface {
	Binder(ctx context.Context, userID, operatorID, channelID string) (ports.Binder, error)
}

// Drainer is implemented by binders that buffer replies for a
// synchronous transport. When the request's binder implements it, the
// drained replies become the HTTP response body.
type Drainer interface {
	Drain() []*domain.OutputStatement
}

// TurnSerializer runs fn under a per-channel lock so concurrent
// requests for the same channel cannot interleave their turns.
// *session.Manager satisfies it.
type TurnSerializer interface {
	WithLock(ctx context.Context, channelID string, fn func(context.Context) error) error
}

// Server routes HTTP requests into the engine.
type Server struct {
	engine  *espalier.Engine
	binders BinderProvider
	codec   *statetoken.Codec
	turns   TurnSerializer
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithTurnSerializer serializes turns per channel. Without it,
// concurrent requests for one channel race on its state.
func WithTurnSerializer(turns TurnSerializer) Option {
	return func(s *Server) {
		s.turns = turns
	}
}

// NewServer creates the transport. The codec must match the one the
// providers embed into their redirect urls.
func NewServer(engine *espalier.Engine, binders BinderProvider, codec *statetoken.Codec, opts ...Option) *Server {
	s := &Server{
		engine:  engine,
		binders: binders,
		codec:   codec,
		logger:  slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/statements", s.postStatement)
	r.Get("/callbacks/oauth/{component}", s.oauthCallback)
	r.Get("/callbacks/payment/{component}", s.paymentCallback)
	r.Get("/search", s.search)
	r.Get("/blocks", s.blocks)
	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.engine.Metrics(), promhttp.HandlerOpts{}))
	return r
}

// statementRequest is the POST /statements body.
type statementRequest struct {
	UserID     string      `json:"user_id"`
	OperatorID string      `json:"operator_id"`
	ChannelID  string      `json:"channel_id"`
	Text       string      `json:"text,omitempty"`
	Input      any         `json:"input,omitempty"`
	Flag       domain.Flag `json:"flag,omitempty"`
}

type statementResponse struct {
	Replies []*domain.OutputStatement `json:"replies"`
}

func (s *Server) postStatement(w http.ResponseWriter, r *http.Request) {
	var body statementRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		s.logger.Warn("statement: invalid request body", "error", err)
		return
	}
	if body.UserID == "" || body.ChannelID == "" {
		http.Error(w, "user_id and channel_id are required", http.StatusBadRequest)
		return
	}

	bd, err := s.binders.Binder(r.Context(), body.UserID, body.OperatorID, body.ChannelID)
	if err != nil {
		http.Error(w, "failed to resolve conversation", http.StatusInternalServerError)
		s.logger.Error("statement: binder resolution failed", "channel_id", body.ChannelID, "error", err)
		return
	}

	st := &domain.InputStatement{
		UserID: body.UserID,
		Text:   body.Text,
		Input:  body.Input,
		Flag:   body.Flag,
	}
	if err := s.handle(r.Context(), body.ChannelID, bd, st); err != nil {
		s.writeEngineError(w, err)
		s.logger.Error("statement: turn failed", "channel_id", body.ChannelID, "error", err)
		return
	}

	s.writeReplies(w, bd)
}

// handle runs one engine turn, under the channel's lock when a
// serializer is configured.
func (s *Server) handle(ctx context.Context, channelID string, bd ports.Binder, st *domain.InputStatement) error {
	if s.turns == nil {
		return s.engine.Handle(ctx, bd, st)
	}
	return s.turns.WithLock(ctx, channelID, func(ctx context.Context) error {
		return s.engine.Handle(ctx, bd, st)
	})
}

// oauthCallback resumes a conversation paused on an authorization
// redirect. The encrypted state parameter identifies the conversation;
// the full callback url becomes the statement input so the paused
// block can extract the code.
func (s *Server) oauthCallback(w http.ResponseWriter, r *http.Request) {
	s.redirectCallback(w, r, chi.URLParam(r, "component"))
}

// paymentCallback resumes a conversation paused on a checkout
// redirect.
func (s *Server) paymentCallback(w http.ResponseWriter, r *http.Request) {
	s.redirectCallback(w, r, chi.URLParam(r, "component"))
}

func (s *Server) redirectCallback(w http.ResponseWriter, r *http.Request, component string) {
	trimmed, err := s.codec.Decode(r.URL.Query().Get("state"))
	if err != nil {
		// Fail closed without detail: a tampered token gets no hint
		// about why it was refused.
		http.Error(w, "invalid request", http.StatusBadRequest)
		s.logger.Warn("callback: state token rejected", "component", component)
		return
	}
	if trimmed.Component != component {
		http.Error(w, "invalid request", http.StatusBadRequest)
		s.logger.Warn("callback: component mismatch", "component", component, "token_component", trimmed.Component)
		return
	}

	bd, err := s.binders.Binder(r.Context(), trimmed.UserID, trimmed.OperatorID, trimmed.ChannelID)
	if err != nil {
		http.Error(w, "failed to resolve conversation", http.StatusInternalServerError)
		s.logger.Error("callback: binder resolution failed", "channel_id", trimmed.ChannelID, "error", err)
		return
	}

	st := &domain.InputStatement{
		UserID: trimmed.UserID,
		Input:  absoluteURL(r),
		Flag:   domain.FlagStandardInput,
	}
	if err := s.handle(r.Context(), trimmed.ChannelID, bd, st); err != nil {
		s.writeEngineError(w, err)
		s.logger.Error("callback: turn failed", "channel_id", trimmed.ChannelID, "error", err)
		return
	}

	s.writeReplies(w, bd)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID, channelID := q.Get("user_id"), q.Get("channel_id")
	if userID == "" || channelID == "" {
		http.Error(w, "user_id and channel_id are required", http.StatusBadRequest)
		return
	}

	bd, err := s.binders.Binder(r.Context(), userID, q.Get("operator_id"), channelID)
	if err != nil {
		http.Error(w, "failed to resolve conversation", http.StatusInternalServerError)
		s.logger.Error("search: binder resolution failed", "channel_id", channelID, "error", err)
		return
	}

	nodes, err := s.engine.Search(r.Context(), bd, q.Get("query"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if nodes == nil {
		nodes = []domain.Node{}
	}
	writeJSON(w, map[string]any{"nodes": nodes})
}

func (s *Server) blocks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.engine.Catalog())
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) writeReplies(w http.ResponseWriter, bd ports.Binder) {
	resp := statementResponse{Replies: []*domain.OutputStatement{}}
	if drainer, ok := bd.(Drainer); ok {
		resp.Replies = drainer.Drain()
	}
	writeJSON(w, resp)
}

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	var gerr *domain.GraphError
	var perr *domain.ProviderError
	switch {
	case errors.As(err, &gerr):
		http.Error(w, gerr.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &perr):
		http.Error(w, "provider unavailable", http.StatusBadGateway)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response encode failed", "error", err)
	}
}

// absoluteURL reconstructs the request url as the paused block will
// parse it.
func absoluteURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path, RawQuery: r.URL.RawQuery}
	return u.String()
}
