package stream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// State is the connection state of a subscription
type State string

const (
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateBackoff    State = "backoff"
	StateClosed     State = "closed"
)

// ErrStreamForbidden is returned when the server rejects the stream
// credential. Reconnecting would loop forever, so rejection is terminal.
var ErrStreamForbidden = errors.New("stream credential rejected")

const (
	backoffBase = 500 * time.Millisecond
	backoffCap  = 30 * time.Second
	eventBuffer = 64
)

// Subscription consumes a server-push event stream and hands each data
// payload to the caller. The server delivers only events that occur while
// the connection is up; after a drop it reconnects with capped exponential
// backoff and resumes from that point forward. De-duplication across
// reconnects is the consumer's job.
type Subscription struct {
	url  string
	http *http.Client
	log  *zap.Logger

	mu      sync.Mutex
	state   State
	attempt int

	events chan []byte
}

// New creates a subscription for the given stream URL. Nothing connects
// until Run is called.
func New(url string, log *zap.Logger) *Subscription {
	return &Subscription{
		url: url,
		// No overall timeout: the stream is long-lived by design.
		http:   &http.Client{},
		log:    log,
		state:  StateConnecting,
		events: make(chan []byte, eventBuffer),
	}
}

// Events returns the channel of raw data payloads. It is closed when Run
// returns.
func (s *Subscription) Events() <-chan []byte {
	return s.events
}

// State returns the current connection state.
func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Subscription) setState(st State) {
	s.mu.Lock()
	prev := s.state
	s.state = st
	s.mu.Unlock()
	if prev != st {
		s.log.Debug("Stream state changed", zap.String("from", string(prev)), zap.String("to", string(st)))
	}
}

// Run connects and keeps the stream alive until ctx is cancelled. Every
// teardown path closes the events channel, so a consumer ranging over
// Events sees a clean end of stream.
func (s *Subscription) Run(ctx context.Context) error {
	defer func() {
		s.setState(StateClosed)
		close(s.events)
	}()

	backoff := s.newBackoff()
	for {
		if ctx.Err() != nil {
			return nil
		}

		s.setState(StateConnecting)
		opened, err := s.consume(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrStreamForbidden) {
			return err
		}

		if opened {
			// Connection was established and later dropped; start the
			// backoff schedule over.
			backoff = s.newBackoff()
			s.mu.Lock()
			s.attempt = 0
			s.mu.Unlock()
		}

		delay, _ := backoff.Next()
		s.mu.Lock()
		s.attempt++
		attempt := s.attempt
		s.mu.Unlock()

		s.setState(StateBackoff)
		s.log.Debug("Stream reconnect scheduled",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Subscription) newBackoff() retry.Backoff {
	b := retry.NewExponential(backoffBase)
	b = retry.WithCappedDuration(backoffCap, b)
	b = retry.WithJitterPercent(20, b)
	return b
}

// consume opens the stream and reads events until the connection drops or
// ctx is cancelled. The bool result reports whether the stream reached the
// open state at all.
func (s *Subscription) consume(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("stream connect failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return false, ErrStreamForbidden
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("stream endpoint returned status %d", resp.StatusCode)
	}

	s.setState(StateOpen)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		// Comment lines are server heartbeats; blank lines delimit events.
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		payload, ok := strings.CutPrefix(line, "data:")
		if !ok {
			// event:/id:/retry: fields are not used by this stream.
			continue
		}
		payload = strings.TrimPrefix(payload, " ")
		if payload == "" {
			continue
		}

		select {
		case s.events <- []byte(payload):
		case <-ctx.Done():
			return true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return true, fmt.Errorf("stream read failed: %w", err)
	}
	return true, errors.New("stream closed by server")
}
