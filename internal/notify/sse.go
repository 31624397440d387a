package notify

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/naveenspark/taskdash/pkg/client"
)

// Event is one server-sent event.
type Event struct {
	Name string
	Data json.RawMessage
}

// EventStream yields events from an open connection.
type EventStream interface {
	// Next blocks until the next event arrives. It returns io.EOF when the
	// server closes the stream.
	Next() (Event, error)
	Close() error
}

// Dialer opens the push channel for a session token.
type Dialer interface {
	Open(ctx context.Context, token string) (EventStream, error)
}

// SSEDialer opens a text/event-stream endpoint on the task backend.
type SSEDialer struct {
	URL        string
	HTTPClient *http.Client
}

// NewSSEDialer returns a dialer for apiURL+path.
func NewSSEDialer(apiURL, path string) *SSEDialer {
	return &SSEDialer{
		URL:        strings.TrimRight(apiURL, "/") + "/" + strings.TrimLeft(path, "/"),
		HTTPClient: &http.Client{},
	}
}

// Open connects and returns the stream. The connection lives until ctx is
// done or the stream is closed.
func (d *SSEDialer) Open(ctx context.Context, token string) (EventStream, error) {
	if token == "" {
		return nil, client.ErrAuthenticationMissing
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("notify.Open: %w", err)
	}
	req.Header.Set(client.HeaderAuthToken, token)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	hc := d.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, &client.NetworkError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close() //nolint:errcheck // best-effort close
		return nil, &client.HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	return &sseStream{body: resp.Body, scanner: sc}, nil
}

type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

func (s *sseStream) Close() error { return s.body.Close() }

func (s *sseStream) Next() (Event, error) {
	return readEvent(s.scanner)
}

// readEvent reads lines until a blank line ends an event that carries data.
// Comment lines and fields other than event and data are skipped.
func readEvent(sc *bufio.Scanner) (Event, error) {
	var (
		name string
		data []string
	)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			if len(data) == 0 {
				name = ""
				continue
			}
			if name == "" {
				name = "message"
			}
			return Event{Name: name, Data: json.RawMessage(strings.Join(data, "\n"))}, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			data = append(data, value)
		}
	}
	if err := sc.Err(); err != nil {
		return Event{}, &client.NetworkError{Err: err}
	}
	return Event{}, io.EOF
}
