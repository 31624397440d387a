package mockapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/naveenspark/taskdash/pkg/domain"
)

type eventMsg struct {
	name string
	data []byte
}

// broker fans push events out to every connected stream.
type broker struct {
	mu   sync.Mutex
	subs map[chan eventMsg]struct{}
}

func newBroker() *broker {
	return &broker{subs: make(map[chan eventMsg]struct{})}
}

func (b *broker) subscribe() chan eventMsg {
	ch := make(chan eventMsg, 8)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *broker) unsubscribe(ch chan eventMsg) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

func (b *broker) connected() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// publish drops the event for a stream whose buffer is full.
func (b *broker) publish(name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	b.mu.Lock()
	for ch := range b.subs {
		select {
		case ch <- eventMsg{name: name, data: data}:
		default:
		}
	}
	b.mu.Unlock()
	return nil
}

func (s *Server) taskAssigned(t domain.Task, u domain.User) {
	if err := s.events.publish(domain.EventTaskAssigned, domain.TaskAssigned{Task: t, User: u}); err != nil {
		s.log.WithError(err).Warn("publish taskAssigned")
	}
}

// streamEvents holds the request open and writes push events as SSE.
func (s *Server) streamEvents(c echo.Context) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	flusher, ok := res.Writer.(http.Flusher)
	if !ok {
		return c.String(http.StatusInternalServerError, "stream unsupported")
	}

	ch := s.events.subscribe()
	defer s.events.unsubscribe(ch)

	res.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(res, ": connected\n\n"); err != nil {
		return nil
	}
	flusher.Flush()

	ctx := c.Request().Context()
	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
		case ev := <-ch:
			if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", ev.name, ev.data); err != nil {
				return nil
			}
		}
		flusher.Flush()
	}
}
