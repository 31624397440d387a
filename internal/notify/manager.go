// Package notify keeps one push connection to the backend open for as long
// as any view wants task-assigned notifications.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/naveenspark/taskdash/pkg/client"
	"github.com/naveenspark/taskdash/pkg/domain"
)

// State is the connection state of a Manager.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "disconnected"
}

// Handler receives task-assigned notifications.
type Handler func(domain.TaskAssigned)

// Manager shares one connection among its subscribers.
type Manager struct {
	dialer     Dialer
	tokens     client.TokenSource
	log        logrus.FieldLogger
	minBackoff time.Duration
	maxBackoff time.Duration

	mu       sync.Mutex
	handlers map[int]Handler
	nextID   int
	state    State
	cancel   context.CancelFunc

	// dispatchMu is held while handlers run so that a released handler is
	// never called after release returns.
	dispatchMu sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the connection logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithBackoff sets the reconnect delay bounds.
func WithBackoff(initial, limit time.Duration) Option {
	return func(m *Manager) {
		m.minBackoff, m.maxBackoff = initial, limit
	}
}

// NewManager returns a disconnected Manager. tokens is read on every
// connection attempt.
func NewManager(d Dialer, tokens client.TokenSource, opts ...Option) *Manager {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	m := &Manager{
		dialer:     d,
		tokens:     tokens,
		log:        discard,
		minBackoff: time.Second,
		maxBackoff: 5 * time.Second,
		handlers:   make(map[int]Handler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe registers h and connects if h is the first subscriber. The
// returned release removes h and disconnects once nobody is subscribed.
// release must not be called from inside a handler.
func (m *Manager) Subscribe(h Handler) (release func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.handlers[id] = h
	if m.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		m.cancel = cancel
		m.state = Connecting
		go m.run(ctx)
	}
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { m.release(id) })
	}
}

func (m *Manager) release(id int) {
	m.mu.Lock()
	delete(m.handlers, id)
	if len(m.handlers) == 0 && m.cancel != nil {
		m.cancel()
		m.cancel = nil
		m.state = Disconnected
		m.log.Debug("push channel released")
	}
	m.mu.Unlock()

	m.dispatchMu.Lock()
	m.dispatchMu.Unlock() //nolint:staticcheck // waits out a dispatch in progress
}

// Subscribers returns the number of registered handlers.
func (m *Manager) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(ctx context.Context, s State) {
	m.mu.Lock()
	if ctx.Err() == nil {
		m.state = s
	}
	m.mu.Unlock()
}

func (m *Manager) run(ctx context.Context) {
	backoff := m.minBackoff
	for ctx.Err() == nil {
		m.setState(ctx, Connecting)
		err := m.connect(ctx, &backoff)
		if ctx.Err() != nil {
			return
		}
		m.log.WithError(err).WithField("retry_in", backoff).Info("push channel disconnected")
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, m.maxBackoff)
	}
}

func (m *Manager) connect(ctx context.Context, backoff *time.Duration) error {
	var token string
	if m.tokens != nil {
		token = m.tokens.Token()
	}
	stream, err := m.dialer.Open(ctx, token)
	if err != nil {
		return err
	}
	defer stream.Close() //nolint:errcheck // best-effort close

	m.setState(ctx, Connected)
	*backoff = m.minBackoff
	m.log.Info("push channel connected")
	for {
		ev, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return errors.New("stream closed by server")
			}
			return err
		}
		m.dispatch(ctx, ev)
	}
}

func (m *Manager) dispatch(ctx context.Context, ev Event) {
	log := m.log.WithField("event", ev.Name)
	if ev.Name != domain.EventTaskAssigned {
		log.Debug("ignoring push event")
		return
	}
	var payload domain.TaskAssigned
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		log.WithError(err).Warn("dropping malformed push event")
		return
	}

	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()
	if ctx.Err() != nil {
		return
	}
	m.mu.Lock()
	handlers := make([]Handler, 0, len(m.handlers))
	for _, h := range m.handlers {
		handlers = append(handlers, h)
	}
	m.mu.Unlock()
	for _, h := range handlers {
		h(payload)
	}
}
