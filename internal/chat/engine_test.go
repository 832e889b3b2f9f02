package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NishantPriyadarshi063/shopify-frontend/internal/client"
	"github.com/NishantPriyadarshi063/shopify-frontend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func msg(id, body string) model.ChatMessage {
	return model.ChatMessage{ID: id, Sender: model.SenderCustomer, Body: &body}
}

type fakeAPI struct {
	mu         sync.Mutex
	history    []model.ChatMessage
	historyErr error
	sendFn     func(body string) (*model.ChatMessage, error)
	sent       []string
}

func (f *fakeAPI) ListMessages(ctx context.Context, cred client.Credential, requestID string) ([]model.ChatMessage, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history, nil
}

func (f *fakeAPI) SendMessage(ctx context.Context, cred client.Credential, requestID, body string) (*model.ChatMessage, error) {
	f.mu.Lock()
	f.sent = append(f.sent, body)
	f.mu.Unlock()
	return f.sendFn(body)
}

func (f *fakeAPI) StreamURL(requestID string, cred client.Credential) string {
	return "http://backend.test/api/chat/" + requestID + "/stream"
}

type fakeSource struct {
	ch chan []byte
}

func newFakeSource() *fakeSource {
	return &fakeSource{ch: make(chan []byte, 16)}
}

func (f *fakeSource) Events() <-chan []byte { return f.ch }

func (f *fakeSource) Run(ctx context.Context) error {
	<-ctx.Done()
	close(f.ch)
	return nil
}

func (f *fakeSource) push(t *testing.T, m model.ChatMessage) {
	t.Helper()
	data, err := json.Marshal(m)
	require.NoError(t, err)
	f.ch <- data
}

func startEngine(t *testing.T, api API, src *fakeSource) (*Engine, context.CancelFunc, chan error) {
	t.Helper()
	e := New(api, client.CustomerEmail("c@example.com"), "req-1", zap.NewNop())
	e.newSource = func(url string, log *zap.Logger) Source { return src }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	require.Eventually(t, func() bool {
		p := e.Phase()
		return p == PhaseLive || p == PhaseFailed
	}, 2*time.Second, 5*time.Millisecond)
	return e, cancel, done
}

func ids(msgs []model.ChatMessage) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func TestEngine_MergesHistoryAndStreamWithoutDuplicates(t *testing.T) {
	api := &fakeAPI{history: []model.ChatMessage{msg("m1", "hi"), msg("m2", "hello")}}
	src := newFakeSource()
	e, cancel, done := startEngine(t, api, src)
	defer cancel()

	// m2 re-arrives via the stream (as after a reconnect), m3 is new.
	src.push(t, msg("m2", "hello"))
	src.push(t, msg("m3", "any update?"))

	require.Eventually(t, func() bool { return len(e.Messages()) == 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids(e.Messages()))

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, PhaseClosed, e.Phase())
}

func TestEngine_SendAckAndStreamEchoRenderOnce(t *testing.T) {
	ack := msg("m9", "on it")
	api := &fakeAPI{
		sendFn: func(body string) (*model.ChatMessage, error) { return &ack, nil },
	}
	src := newFakeSource()
	e, cancel, done := startEngine(t, api, src)
	defer cancel()

	sent, err := e.Send(context.Background(), "on it")
	require.NoError(t, err)
	assert.Equal(t, "m9", sent.ID)

	// The same message also arrives via the stream.
	src.push(t, ack)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"m9"}, ids(e.Messages()))

	cancel()
	<-done
}

func TestEngine_ObserverFiresOncePerID(t *testing.T) {
	api := &fakeAPI{history: []model.ChatMessage{msg("m1", "a")}}
	src := newFakeSource()

	e := New(api, client.Bearer("tok"), "req-1", zap.NewNop())
	e.newSource = func(url string, log *zap.Logger) Source { return src }

	var mu sync.Mutex
	counts := map[string]int{}
	e.Notify(func(m model.ChatMessage) {
		mu.Lock()
		counts[m.ID]++
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	require.Eventually(t, func() bool { return e.Phase() == PhaseLive }, 2*time.Second, 5*time.Millisecond)

	src.push(t, msg("m1", "a")) // duplicate of history
	src.push(t, msg("m2", "b"))
	src.push(t, msg("m2", "b")) // duplicate stream delivery

	require.Eventually(t, func() bool { return len(e.Messages()) == 2 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]int{"m1": 1, "m2": 1}, counts)

	cancel()
	<-done
}

func TestEngine_RejectsConcurrentSends(t *testing.T) {
	release := make(chan struct{})
	ack := msg("m1", "slow")
	api := &fakeAPI{
		sendFn: func(body string) (*model.ChatMessage, error) {
			<-release
			return &ack, nil
		},
	}
	src := newFakeSource()
	e, cancel, done := startEngine(t, api, src)
	defer cancel()

	first := make(chan error, 1)
	go func() {
		_, err := e.Send(context.Background(), "slow")
		first <- err
	}()

	require.Eventually(t, func() bool {
		_, err := e.Send(context.Background(), "too fast")
		return errors.Is(err, ErrSendInFlight)
	}, 2*time.Second, 5*time.Millisecond)

	close(release)
	require.NoError(t, <-first)

	// With the first send settled, sending works again.
	_, err := e.Send(context.Background(), "retry")
	require.NoError(t, err)

	cancel()
	<-done
}

func TestEngine_SendFailureLeavesLogUnchanged(t *testing.T) {
	api := &fakeAPI{
		history: []model.ChatMessage{msg("m1", "a")},
		sendFn: func(body string) (*model.ChatMessage, error) {
			return nil, &client.APIError{Kind: client.ErrKindServer, Message: "boom"}
		},
	}
	src := newFakeSource()
	e, cancel, done := startEngine(t, api, src)
	defer cancel()

	_, err := e.Send(context.Background(), "will fail")
	require.Error(t, err)
	assert.Equal(t, []string{"m1"}, ids(e.Messages()))

	cancel()
	<-done
}

func TestEngine_EmptySendRejectedLocally(t *testing.T) {
	api := &fakeAPI{sendFn: func(string) (*model.ChatMessage, error) {
		t.Fatal("no request should be sent")
		return nil, nil
	}}
	src := newFakeSource()
	e, cancel, done := startEngine(t, api, src)
	defer cancel()

	_, err := e.Send(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	cancel()
	<-done
	assert.Empty(t, api.sent)
}

func TestEngine_HistoryFailureIsTerminal(t *testing.T) {
	api := &fakeAPI{historyErr: &client.APIError{Kind: client.ErrKindNetwork, Message: "down"}}
	e := New(api, client.Bearer("tok"), "req-1", zap.NewNop())

	err := e.Run(context.Background())
	require.Error(t, err)

	// Closed is the final phase; sends are rejected.
	_, err = e.Send(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEngine_LateMergeAfterCloseIsNoOp(t *testing.T) {
	api := &fakeAPI{}
	src := newFakeSource()
	e, cancel, done := startEngine(t, api, src)

	cancel()
	require.NoError(t, <-done)

	assert.False(t, e.merge(msg("late", "too late")))
	assert.Empty(t, e.Messages())
}
