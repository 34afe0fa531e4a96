// Package messaging connects the extension's isolated execution contexts
// (page, background, popup) with value-copied, asynchronous messages.
//
// Every context registers a named endpoint served by its own goroutine, so a
// context processes its messages one at a time. Messages are JSON-encoded on
// send; receivers never share memory with senders. Request/response pairs are
// correlated with a UUID echoed back by the receiver.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

var (
	// ErrBusClosed is returned after Close.
	ErrBusClosed = errors.New("messaging: bus closed")

	// ErrEndpointExists is returned when a name is registered twice.
	ErrEndpointExists = errors.New("messaging: endpoint already registered")

	// ErrNoReceiver is returned when the target endpoint does not exist
	// (the context was torn down or never started).
	ErrNoReceiver = errors.New("messaging: receiving end does not exist")

	// ErrNilHandler is returned when Register is called without a handler.
	ErrNilHandler = errors.New("messaging: nil handler")
)

const defaultInboxSize = 64

// Message is one delivered message. Body holds the full JSON object exactly as
// the sender encoded it, including its "action" field.
type Message struct {
	ID     string
	From   string
	Action string
	Body   json.RawMessage
}

// Decode unmarshals the message body into v.
func (m Message) Decode(v any) error {
	return json.Unmarshal(m.Body, v)
}

// Respond sends the reply for a request. Only the first call has an effect.
// It may be called from any goroutine, after the handler has returned.
type Respond func(v any)

// Handler processes one message. Returning true keeps the reply channel open
// so Respond can be called asynchronously later; returning false without
// having responded answers the request with JSON null.
type Handler func(ctx context.Context, msg Message, respond Respond) bool

// Stats are per-bus counters.
type Stats struct {
	Delivered      uint64
	Replies        uint64
	DroppedReplies uint64
}

// Bus routes messages between named endpoints.
type Bus struct {
	mu        sync.RWMutex
	endpoints map[string]*endpoint
	pending   map[string]*pendingReply
	closed    bool

	inboxSize int
	logger    *slog.Logger

	delivered      atomic.Uint64
	replies        atomic.Uint64
	droppedReplies atomic.Uint64
}

// pendingReply is a request waiting for its answer. dispatched is set once
// the receiving handler has been given the message.
type pendingReply struct {
	ch         chan json.RawMessage
	dispatched atomic.Bool
}

type endpoint struct {
	name    string
	inbox   chan Message
	handler Handler
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

// WithInboxSize sets the per-endpoint inbox buffer.
func WithInboxSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.inboxSize = n
		}
	}
}

// New creates an empty Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		endpoints: make(map[string]*endpoint),
		pending:   make(map[string]*pendingReply),
		inboxSize: defaultInboxSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Register starts an endpoint named name. The handler runs on a dedicated
// goroutine until Unregister or Close.
func (b *Bus) Register(name string, h Handler) error {
	if h == nil {
		return ErrNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	if _, exists := b.endpoints[name]; exists {
		return fmt.Errorf("%w: %s", ErrEndpointExists, name)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ep := &endpoint{
		name:    name,
		inbox:   make(chan Message, b.inboxSize),
		handler: h,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	b.endpoints[name] = ep
	go b.serve(ctx, ep)
	return nil
}

// Unregister stops the endpoint and waits for its goroutine to exit.
// Messages still queued in its inbox are discarded; requests among them
// fail with ErrNoReceiver.
func (b *Bus) Unregister(name string) {
	b.mu.Lock()
	ep, ok := b.endpoints[name]
	if ok {
		delete(b.endpoints, name)
	}
	b.mu.Unlock()

	if ok {
		ep.cancel()
		<-ep.done
	}
}

// Close stops every endpoint. Further sends fail with ErrBusClosed.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	eps := make([]*endpoint, 0, len(b.endpoints))
	for name, ep := range b.endpoints {
		eps = append(eps, ep)
		delete(b.endpoints, name)
	}
	b.mu.Unlock()

	for _, ep := range eps {
		ep.cancel()
		<-ep.done
	}
}

// Has reports whether an endpoint is currently registered.
func (b *Bus) Has(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.endpoints[name]
	return ok
}

// Stats returns a snapshot of the bus counters.
func (b *Bus) Stats() Stats {
	return Stats{
		Delivered:      b.delivered.Load(),
		Replies:        b.replies.Load(),
		DroppedReplies: b.droppedReplies.Load(),
	}
}

// Send delivers msg to the endpoint named to without waiting for a reply.
func (b *Bus) Send(ctx context.Context, from, to string, msg any) error {
	m, err := encode(from, msg)
	if err != nil {
		return err
	}
	_, err = b.deliver(ctx, to, m)
	return err
}

// Request delivers msg and waits for the reply. The wait ends with ctx;
// a reply that arrives afterwards is dropped. If the receiving endpoint is
// torn down before its handler sees the message, Request fails with
// ErrNoReceiver. A handler that already accepted the message may still reply.
func (b *Bus) Request(ctx context.Context, from, to string, msg any) (json.RawMessage, error) {
	m, err := encode(from, msg)
	if err != nil {
		return nil, err
	}
	m.ID = uuid.NewString()

	p := &pendingReply{ch: make(chan json.RawMessage, 1)}
	b.mu.Lock()
	b.pending[m.ID] = p
	b.mu.Unlock()
	defer b.forget(m.ID)

	ep, err := b.deliver(ctx, to, m)
	if err != nil {
		return nil, err
	}

	done := ep.done
	for {
		select {
		case reply := <-p.ch:
			return reply, nil
		case <-done:
			if !p.dispatched.Load() {
				return nil, fmt.Errorf("%w: %s", ErrNoReceiver, to)
			}
			done = nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// RequestInto is Request followed by json.Unmarshal into out.
func (b *Bus) RequestInto(ctx context.Context, from, to string, msg, out any) error {
	raw, err := b.Request(ctx, from, to, msg)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("messaging: decode reply from %s: %w", to, err)
	}
	return nil
}

func (b *Bus) deliver(ctx context.Context, to string, m Message) (*endpoint, error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil, ErrBusClosed
	}
	ep, ok := b.endpoints[to]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoReceiver, to)
	}

	select {
	case ep.inbox <- m:
		b.delivered.Add(1)
		return ep, nil
	case <-ep.done:
		return nil, fmt.Errorf("%w: %s", ErrNoReceiver, to)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *Bus) serve(ctx context.Context, ep *endpoint) {
	defer close(ep.done)
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-ep.inbox:
			if ctx.Err() != nil {
				return
			}
			b.dispatch(ctx, ep, m)
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, ep *endpoint, m Message) {
	if m.ID != "" {
		b.mu.RLock()
		p := b.pending[m.ID]
		b.mu.RUnlock()
		if p != nil {
			p.dispatched.Store(true)
		}
	}

	var once sync.Once
	respond := func(v any) {
		once.Do(func() {
			if m.ID == "" {
				return
			}
			b.reply(m.ID, v)
		})
	}

	keepOpen := ep.handler(ctx, m, respond)
	if !keepOpen {
		// A synchronous handler that did not answer gets a null reply,
		// so the requester is not left waiting.
		respond(nil)
	}
}

func (b *Bus) reply(id string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		b.logger.Error("messaging: encode reply", "error", err, "id", id)
		data = []byte(`null`)
	}

	b.mu.Lock()
	p, ok := b.pending[id]
	if ok {
		delete(b.pending, id)
	}
	b.mu.Unlock()

	if !ok {
		// The requester is gone; late replies are a no-op.
		b.droppedReplies.Add(1)
		b.logger.Debug("messaging: dropping reply for departed requester", "id", id)
		return
	}
	b.replies.Add(1)
	p.ch <- data
}

func (b *Bus) forget(id string) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

func encode(from string, msg any) (Message, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return Message{}, fmt.Errorf("messaging: encode message: %w", err)
	}
	var head struct {
		Action string `json:"action"`
	}
	// Non-object payloads simply carry no action.
	_ = json.Unmarshal(body, &head)
	return Message{From: from, Action: head.Action, Body: body}, nil
}
