package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingHandler parks heavy operations until released.
type blockingHandler struct {
	mu      sync.Mutex
	started chan string
	release chan struct{}
	result  any
	err     error
}

func newBlockingHandler() *blockingHandler {
	return &blockingHandler{
		started: make(chan string, 8),
		release: make(chan struct{}),
		result:  "ok",
	}
}

func (h *blockingHandler) run(kind string) (any, error) {
	h.started <- kind
	<-h.release
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result, h.err
}

func (h *blockingHandler) HandleVectorOperation(_ context.Context, _ VectorOpRequest) (any, error) {
	return h.run("vector")
}

func (h *blockingHandler) HandleRecommendation(_ context.Context, _ RecommendRequest) (any, error) {
	return h.run("recommendation")
}

// immediateHandler answers without blocking.
type immediateHandler struct {
	vectorResult any
	recResult    any
	err          error
	lastVector   VectorOpRequest
	lastRec      RecommendRequest
}

func (h *immediateHandler) HandleVectorOperation(_ context.Context, req VectorOpRequest) (any, error) {
	h.lastVector = req
	return h.vectorResult, h.err
}

func (h *immediateHandler) HandleRecommendation(_ context.Context, req RecommendRequest) (any, error) {
	h.lastRec = req
	return h.recResult, h.err
}

func startWorker(t *testing.T, handler Handler) *Worker {
	t.Helper()
	w := New(handler, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Run(ctx)
	return w
}

func TestCall_Recommendation(t *testing.T) {
	handler := &immediateHandler{recResult: map[string]any{"bullets": 3}}
	w := startWorker(t, handler)

	msg := NewMessage(TypeRecommendation, map[string]any{
		"job_title":       "Backend Engineer",
		"job_description": "Go services",
		"limit":           5,
	})
	resp, err := w.Call(context.Background(), msg, time.Second)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, msg.ID, resp.ID)
	assert.Equal(t, TypeRecommendation, resp.Type)
	assert.Equal(t, handler.recResult, resp.Data)
	assert.Equal(t, "Backend Engineer", handler.lastRec.JobTitle)
	assert.Equal(t, 5, handler.lastRec.Limit)
}

func TestCall_SecondHeavyRequestBusy(t *testing.T) {
	handler := newBlockingHandler()
	w := startWorker(t, handler)

	first := NewMessage(TypeRecommendation, nil)
	done := make(chan Response, 1)
	go func() {
		resp, _ := w.Call(context.Background(), first, 5*time.Second)
		done <- resp
	}()

	select {
	case <-handler.started:
	case <-time.After(time.Second):
		t.Fatal("first operation never started")
	}

	// The second heavy request must fail fast instead of queueing behind
	// the first.
	resp, err := w.Call(context.Background(), NewMessage(TypeVectorOperation, nil), time.Second)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "already in progress")

	close(handler.release)
	select {
	case resp := <-done:
		assert.True(t, resp.Success)
	case <-time.After(time.Second):
		t.Fatal("first operation never completed")
	}
}

func TestCall_HealthCheckBypassesSlot(t *testing.T) {
	handler := newBlockingHandler()
	w := startWorker(t, handler)
	defer close(handler.release)

	go w.Call(context.Background(), NewMessage(TypeRecommendation, nil), 5*time.Second) //nolint:errcheck
	select {
	case <-handler.started:
	case <-time.After(time.Second):
		t.Fatal("operation never started")
	}

	resp, err := w.Call(context.Background(), NewMessage(TypeHealthCheck, nil), time.Second)
	require.NoError(t, err)
	require.True(t, resp.Success)

	health, ok := resp.Data.(Health)
	require.True(t, ok)
	assert.Equal(t, StateProcessing, health.State)
}

func TestCall_TimeoutFreesSlot(t *testing.T) {
	handler := newBlockingHandler()
	w := startWorker(t, handler)

	_, err := w.Call(context.Background(), NewMessage(TypeRecommendation, nil), 50*time.Millisecond)
	require.Error(t, err)

	// Force-completion freed the slot even though the handler is still
	// parked; a new operation can start immediately.
	assert.Equal(t, StateIdle, w.Shell().CurrentState())
	assert.Equal(t, int64(1), w.Shell().Snapshot().TimedOut)

	// The stale completion after release must not corrupt the counters.
	close(handler.release)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), w.Shell().Snapshot().Total)
}

func TestCall_PerformanceReset(t *testing.T) {
	handler := &immediateHandler{vectorResult: 0.5}
	w := startWorker(t, handler)

	msg := NewMessage(TypeVectorOperation, map[string]any{
		"op": "cosine_similarity",
		"a":  []float64{1, 0},
		"b":  []float64{1, 0},
	})
	_, err := w.Call(context.Background(), msg, time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), w.Shell().Snapshot().Total)

	resp, err := w.Call(context.Background(), NewMessage(TypePerformanceReset, nil), time.Second)
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, Stats{}, w.Shell().Snapshot())
}

func TestCall_UnknownTypeFails(t *testing.T) {
	w := startWorker(t, &immediateHandler{})

	resp, err := w.Call(context.Background(), NewMessage(MessageType("bogus"), nil), time.Second)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "unknown message type")
}

func TestCall_MalformedPayload(t *testing.T) {
	w := startWorker(t, &immediateHandler{})

	msg := NewMessage(TypeVectorOperation, map[string]any{"a": "not a vector"})
	resp, err := w.Call(context.Background(), msg, time.Second)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "malformed message payload")
}

func TestRun_ShutdownLeavesSlotIdle(t *testing.T) {
	handler := newBlockingHandler()
	w := New(handler, nil)
	ctx, cancel := context.WithCancel(context.Background())

	runDone := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(runDone)
	}()

	go w.Call(context.Background(), NewMessage(TypeRecommendation, nil), 5*time.Second) //nolint:errcheck
	select {
	case <-handler.started:
	case <-time.After(time.Second):
		t.Fatal("operation never started")
	}

	cancel()
	select {
	case <-runDone:
	case <-time.After(time.Second):
		t.Fatal("run loop did not stop")
	}

	assert.Equal(t, StateIdle, w.Shell().CurrentState())
	close(handler.release)
}

func TestNewMessage_UniqueIDs(t *testing.T) {
	a := NewMessage(TypeHealthCheck, nil)
	b := NewMessage(TypeHealthCheck, nil)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}
