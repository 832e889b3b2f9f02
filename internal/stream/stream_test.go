package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sseHandler(fn func(w http.ResponseWriter, r *http.Request, flush func())) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		fn(w, r, flusher.Flush)
	}
}

func TestSubscription_DeliversDataPayloads(t *testing.T) {
	srv := httptest.NewServer(sseHandler(func(w http.ResponseWriter, r *http.Request, flush func()) {
		fmt.Fprint(w, ": heartbeat\n\n")
		fmt.Fprint(w, "data: {\"id\":\"m1\"}\n\n")
		fmt.Fprint(w, "data: {\"id\":\"m2\"}\n\n")
		flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := New(srv.URL, zap.NewNop())
	done := make(chan error, 1)
	go func() { done <- sub.Run(ctx) }()

	var got []string
	for len(got) < 2 {
		select {
		case ev := <-sub.Events():
			got = append(got, string(ev))
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for events")
		}
	}
	assert.Equal(t, []string{`{"id":"m1"}`, `{"id":"m2"}`}, got)
	assert.Equal(t, StateOpen, sub.State())

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, StateClosed, sub.State())

	// Channel is closed after Run returns.
	_, open := <-sub.Events()
	assert.False(t, open)
}

func TestSubscription_RejectedCredentialIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	sub := New(srv.URL, zap.NewNop())
	err := sub.Run(context.Background())
	assert.ErrorIs(t, err, ErrStreamForbidden)
	assert.Equal(t, StateClosed, sub.State())
}

func TestSubscription_ReconnectsAfterDrop(t *testing.T) {
	var connects atomic.Int32
	srv := httptest.NewServer(sseHandler(func(w http.ResponseWriter, r *http.Request, flush func()) {
		n := connects.Add(1)
		fmt.Fprintf(w, "data: {\"conn\":%d}\n\n", n)
		flush()
		if n == 1 {
			// Drop the first connection after one event.
			return
		}
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := New(srv.URL, zap.NewNop())
	go sub.Run(ctx)

	var got []string
	for len(got) < 2 {
		select {
		case ev := <-sub.Events():
			got = append(got, string(ev))
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for reconnect, got %v", got)
		}
	}
	assert.Equal(t, `{"conn":1}`, got[0])
	assert.Equal(t, `{"conn":2}`, got[1])
	assert.GreaterOrEqual(t, connects.Load(), int32(2))
}

func TestSubscription_BackoffDelaysAreCapped(t *testing.T) {
	sub := New("http://unused.invalid", zap.NewNop())

	b := sub.newBackoff()
	var prev time.Duration
	for i := 0; i < 12; i++ {
		d, stop := b.Next()
		require.False(t, stop)
		// 20% jitter on top of the capped value.
		assert.LessOrEqual(t, d, backoffCap+backoffCap/5)
		if i > 0 {
			// Nondecreasing up to the cap, modulo jitter headroom.
			assert.GreaterOrEqual(t, d+d/2, prev)
		}
		prev = d
	}
}
