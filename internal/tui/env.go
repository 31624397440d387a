package tui

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/naveenspark/taskdash/internal/notify"
	"github.com/naveenspark/taskdash/internal/query"
	"github.com/naveenspark/taskdash/internal/session"
	"github.com/naveenspark/taskdash/pkg/client"
	"github.com/naveenspark/taskdash/pkg/domain"
)

// Deps are the services the dashboard runs on.
type Deps struct {
	Client        *client.Client
	Store         *session.Store
	Cache         *query.Cache
	Notifier      *notify.Manager
	Log           logrus.FieldLogger
	ToastDuration time.Duration
	WebURL        string
	Version       string
}

// env is shared by the root model and every view. Bubbletea copies models on
// every update, so anything that must outlive a copy lives here.
type env struct {
	client        *client.Client
	store         *session.Store
	cache         *query.Cache
	notifier      *notify.Manager
	log           logrus.FieldLogger
	toastDuration time.Duration
	webURL        string
	version       string

	mail    *mailbox
	session *session.Session
	watched map[query.Key]func()
	pushed  map[tab]func()
}

func newEnv(d Deps) *env {
	e := &env{
		client:        d.Client,
		store:         d.Store,
		cache:         d.Cache,
		notifier:      d.Notifier,
		log:           d.Log,
		toastDuration: d.ToastDuration,
		webURL:        d.WebURL,
		version:       d.Version,
		mail:          newMailbox(),
		watched:       make(map[query.Key]func()),
		pushed:        make(map[tab]func()),
	}
	if e.cache == nil {
		e.cache = query.New()
	}
	if e.log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		e.log = discard
	}
	if e.toastDuration <= 0 {
		e.toastDuration = 10 * time.Second
	}
	return e
}

// ctx carries the current session into API calls.
func (e *env) ctx() context.Context {
	return session.WithSession(context.Background(), e.session)
}

func (e *env) isAdmin() bool { return e.session.IsAdmin() }

// watch forwards changes of key to the mailbox until unwatch.
func (e *env) watch(key query.Key) {
	if _, ok := e.watched[key]; ok {
		return
	}
	mail := e.mail
	e.watched[key] = e.cache.Subscribe(key, mail.putEntry)
}

func (e *env) unwatch(key query.Key) {
	if unsub, ok := e.watched[key]; ok {
		unsub()
		delete(e.watched, key)
	}
}

func (e *env) unwatchAll() {
	for key := range e.watched {
		e.unwatch(key)
	}
}

// query watches key and asks the cache for it.
func (e *env) query(key query.Key) query.Entry {
	e.watch(key)
	return e.cache.Query(key, e.fetcher(key))
}

func (e *env) refetch(key query.Key) tea.Cmd {
	cache := e.cache
	ctx := e.ctx()
	return func() tea.Msg {
		cache.Refetch(ctx, key) //nolint:errcheck // result arrives through the mailbox
		return nil
	}
}

// fetcher returns the API call behind key, bound to the current session.
func (e *env) fetcher(key query.Key) query.Fetcher {
	c, sess := e.client, e.session
	bind := func(ctx context.Context) context.Context { return session.WithSession(ctx, sess) }
	switch key {
	case query.KeyProfile:
		return func(ctx context.Context) (any, error) { return c.GetProfile(bind(ctx)) }
	case query.KeyTasks:
		return func(ctx context.Context) (any, error) { return c.ListTasks(bind(ctx)) }
	case query.KeyUsers:
		return func(ctx context.Context) (any, error) { return c.ListUsers(bind(ctx)) }
	}
	if id, ok := userTasksID(key); ok {
		return func(ctx context.Context) (any, error) { return c.ListTasksForUser(bind(ctx), id) }
	}
	return func(context.Context) (any, error) { return nil, nil }
}

func userTasksID(key query.Key) (string, bool) {
	id, ok := strings.CutPrefix(string(key), string(query.TasksForUser("")))
	return id, ok && id != ""
}

// subscribeAssigned acquires the push channel for t. Events are tagged with
// the tab so the root model can drop ones that arrive after t unmounts.
func (e *env) subscribeAssigned(t tab) func() {
	if e.notifier == nil {
		return func() {}
	}
	mail := e.mail
	return e.notifier.Subscribe(func(ta domain.TaskAssigned) {
		mail.putEvent(t, ta)
	})
}

func (e *env) acquirePush(t tab) {
	if _, ok := e.pushed[t]; !ok {
		e.pushed[t] = e.subscribeAssigned(t)
	}
}

func (e *env) releasePush(t tab) {
	if release, ok := e.pushed[t]; ok {
		release()
		delete(e.pushed, t)
	}
}

func (e *env) holdsPush(t tab) bool {
	_, ok := e.pushed[t]
	return ok
}

func (e *env) releaseAllPush() {
	for t := range e.pushed {
		e.releasePush(t)
	}
}

// mailbox collects updates produced off the event loop. Entries coalesce
// per key so a burst of cache changes becomes one message.
type mailbox struct {
	mu      sync.Mutex
	entries map[query.Key]query.Entry
	order   []query.Key
	events  []assignedEvent
	signal  chan struct{}
}

type assignedEvent struct {
	tab  tab
	task domain.TaskAssigned
}

// mailMsg delivers everything collected since the last one.
type mailMsg struct {
	entries []query.Entry
	events  []assignedEvent
}

func newMailbox() *mailbox {
	return &mailbox{
		entries: make(map[query.Key]query.Entry),
		signal:  make(chan struct{}, 1),
	}
}

func (b *mailbox) putEntry(e query.Entry) {
	b.mu.Lock()
	if _, ok := b.entries[e.Key]; !ok {
		b.order = append(b.order, e.Key)
	}
	b.entries[e.Key] = e
	b.mu.Unlock()
	b.wake()
}

func (b *mailbox) putEvent(t tab, ta domain.TaskAssigned) {
	b.mu.Lock()
	b.events = append(b.events, assignedEvent{tab: t, task: ta})
	b.mu.Unlock()
	b.wake()
}

func (b *mailbox) wake() {
	select {
	case b.signal <- struct{}{}:
	default:
	}
}

func (b *mailbox) drain() mailMsg {
	b.mu.Lock()
	defer b.mu.Unlock()
	msg := mailMsg{events: b.events}
	for _, key := range b.order {
		msg.entries = append(msg.entries, b.entries[key])
	}
	b.entries = make(map[query.Key]query.Entry)
	b.order = nil
	b.events = nil
	return msg
}

// wait blocks until something arrives. The root model re-issues it after
// every mailMsg.
func (b *mailbox) wait() tea.Cmd {
	return func() tea.Msg {
		<-b.signal
		return b.drain()
	}
}
