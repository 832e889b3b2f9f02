package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/NishantPriyadarshi063/shopify-frontend/internal/client"
	"github.com/NishantPriyadarshi063/shopify-frontend/internal/model"
	"github.com/NishantPriyadarshi063/shopify-frontend/internal/stream"

	"go.uber.org/zap"
)

// Phase is the lifecycle of a chat session
type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseLive    Phase = "live"
	PhaseFailed  Phase = "failed"
	PhaseClosed  Phase = "closed"
)

var (
	// ErrSendInFlight rejects a send while another send is pending.
	ErrSendInFlight = errors.New("a message is already being sent")
	// ErrEmptyMessage rejects whitespace-only sends.
	ErrEmptyMessage = errors.New("message body is empty")
	// ErrClosed rejects sends after the session ended.
	ErrClosed = errors.New("chat session is closed")
)

// API is the slice of the backend client the engine needs.
type API interface {
	ListMessages(ctx context.Context, cred client.Credential, requestID string) ([]model.ChatMessage, error)
	SendMessage(ctx context.Context, cred client.Credential, requestID, body string) (*model.ChatMessage, error)
	StreamURL(requestID string, cred client.Credential) string
}

// Source is a live event feed. Satisfied by *stream.Subscription.
type Source interface {
	Events() <-chan []byte
	Run(ctx context.Context) error
}

// Engine maintains the ordered, de-duplicated message timeline for one
// request and one role credential. Messages arrive from three sources (the
// initial history fetch, the live stream including re-delivery after
// reconnects, and send acknowledgements) and the only merge rule is: a
// message id already in the log is discarded, everything else is appended
// in arrival order. The backend's ordering is trusted; nothing is re-sorted.
type Engine struct {
	api       API
	cred      client.Credential
	requestID string
	log       *zap.Logger
	newSource func(url string, log *zap.Logger) Source

	mu        sync.Mutex
	phase     Phase
	messages  []model.ChatMessage
	seen      map[string]struct{}
	sending   bool
	observers []func(model.ChatMessage)
}

// New creates an engine for one request. Exactly one of the two roles is
// represented by cred; the engine never mixes them.
func New(backend API, cred client.Credential, requestID string, log *zap.Logger) *Engine {
	return &Engine{
		api:       backend,
		cred:      cred,
		requestID: requestID,
		log:       log,
		newSource: func(url string, log *zap.Logger) Source {
			return stream.New(url, log)
		},
		phase: PhaseLoading,
		seen:  make(map[string]struct{}),
	}
}

// Notify registers an observer invoked exactly once per distinct message
// id, for messages from any source. Register observers before Run.
func (e *Engine) Notify(fn func(model.ChatMessage)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, fn)
}

// Phase returns the current session phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Messages returns a snapshot of the timeline in display order.
func (e *Engine) Messages() []model.ChatMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.ChatMessage, len(e.messages))
	copy(out, e.messages)
	return out
}

// Run loads the history, then consumes the live stream until ctx is
// cancelled. A history fetch failure is terminal for this engine; recovery
// is a fresh engine. On any return the engine is closed and later async
// completions become no-ops.
func (e *Engine) Run(ctx context.Context) error {
	defer e.setPhase(PhaseClosed)

	history, err := e.api.ListMessages(ctx, e.cred, e.requestID)
	if err != nil {
		e.setPhase(PhaseFailed)
		return fmt.Errorf("failed to load chat history: %w", err)
	}
	for _, m := range history {
		e.merge(m)
	}
	e.setPhase(PhaseLive)

	src := e.newSource(e.api.StreamURL(e.requestID, e.cred), e.log)
	runErr := make(chan error, 1)
	go func() { runErr <- src.Run(ctx) }()

	for raw := range src.Events() {
		var msg model.ChatMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			e.log.Warn("Dropping unparseable stream event", zap.Error(err))
			continue
		}
		if msg.ID == "" {
			e.log.Warn("Dropping stream event without id")
			continue
		}
		e.merge(msg)
	}
	return <-runErr
}

// Send posts a message and merges the acknowledged result into the log.
// While one send is in flight further sends fail with ErrSendInFlight; on
// failure nothing is appended and the caller keeps the draft. There is no
// optimistic echo: only the server-assigned id is ever displayed.
func (e *Engine) Send(ctx context.Context, body string) (*model.ChatMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyMessage
	}

	e.mu.Lock()
	if e.phase == PhaseClosed || e.phase == PhaseFailed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	if e.sending {
		e.mu.Unlock()
		return nil, ErrSendInFlight
	}
	e.sending = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.sending = false
		e.mu.Unlock()
	}()

	msg, err := e.api.SendMessage(ctx, e.cred, e.requestID, body)
	if err != nil {
		return nil, err
	}
	// The stream may have delivered this message already; merge is id-deduped
	// either way.
	e.merge(*msg)
	return msg, nil
}

func (e *Engine) setPhase(p Phase) {
	e.mu.Lock()
	// Closed is final.
	if e.phase == PhaseClosed && p != PhaseClosed {
		e.mu.Unlock()
		return
	}
	e.phase = p
	e.mu.Unlock()
}

// merge appends msg unless its id was already observed. Returns whether the
// message was new. Late completions against a closed engine are no-ops.
func (e *Engine) merge(msg model.ChatMessage) bool {
	e.mu.Lock()
	if e.phase == PhaseClosed {
		e.mu.Unlock()
		return false
	}
	if _, dup := e.seen[msg.ID]; dup {
		e.mu.Unlock()
		return false
	}
	e.seen[msg.ID] = struct{}{}
	e.messages = append(e.messages, msg)
	observers := make([]func(model.ChatMessage), len(e.observers))
	copy(observers, e.observers)
	e.mu.Unlock()

	for _, fn := range observers {
		fn(msg)
	}
	return true
}
