package worker

import (
	"context"
	"sync"
	"time"

	"github.com/jonathan/bullet-ranker/internal/apperr"
	"go.uber.org/zap"
)

// Handler executes the heavy operations on behalf of the worker. The
// pipeline engine implements it.
type Handler interface {
	// HandleVectorOperation runs a raw vector computation.
	HandleVectorOperation(ctx context.Context, req VectorOpRequest) (any, error)
	// HandleRecommendation runs the full ranking pipeline.
	HandleRecommendation(ctx context.Context, req RecommendRequest) (any, error)
}

// Worker routes typed messages to a Handler, enforcing single-flight on
// heavy operations through its Shell. Health checks and performance resets
// bypass the slot: they must answer even while an operation is in flight.
type Worker struct {
	shell   *Shell
	handler Handler
	logger  *zap.Logger

	requests chan Message

	mu      sync.Mutex
	pending map[string]chan Response
}

// New creates a worker around the given handler.
func New(handler Handler, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		shell:    NewShell(),
		handler:  handler,
		logger:   logger,
		requests: make(chan Message, 16),
		pending:  make(map[string]chan Response),
	}
}

// Shell exposes the operation slot for health inspection.
func (w *Worker) Shell() *Shell {
	return w.shell
}

// Run consumes messages until ctx ends. Each message is handled on its own
// goroutine; the shell, not the loop, serializes heavy operations, so a
// second heavy request gets an immediate WorkerBusy instead of queueing.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.shell.PrepareShutdown()
			return
		case msg := <-w.requests:
			go w.dispatch(ctx, msg)
		}
	}
}

// Call submits a message and waits for its response or the timeout. On
// timeout the in-flight operation is force-completed as timed out: the slot
// frees immediately, the eventual result is discarded, and the underlying
// network request is not guaranteed to be aborted.
func (w *Worker) Call(ctx context.Context, msg Message, timeout time.Duration) (Response, error) {
	ch := make(chan Response, 1)
	w.mu.Lock()
	w.pending[msg.ID] = ch
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		delete(w.pending, msg.ID)
		w.mu.Unlock()
	}()

	callCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	select {
	case w.requests <- msg:
	case <-callCtx.Done():
		return Response{}, apperr.Wrap(apperr.KindTimeout, "worker did not accept the request", callCtx.Err())
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-callCtx.Done():
		if w.shell.ForceTimeout() {
			w.logger.Warn("operation force-completed after caller timeout",
				zap.String("id", msg.ID), zap.String("type", string(msg.Type)))
		}
		return Response{}, apperr.Wrap(apperr.KindTimeout, "worker operation timed out", callCtx.Err())
	}
}

// dispatch handles one message and delivers exactly one response for its ID.
func (w *Worker) dispatch(ctx context.Context, msg Message) {
	started := time.Now()
	data, err := w.handle(ctx, msg)

	resp := Response{
		Type:           msg.Type,
		ID:             msg.ID,
		Success:        err == nil,
		Data:           data,
		ProcessingTime: time.Since(started),
	}
	if err != nil {
		resp.Error = err.Error()
	}

	w.mu.Lock()
	ch, ok := w.pending[msg.ID]
	w.mu.Unlock()
	if ok {
		select {
		case ch <- resp:
		default:
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg Message) (any, error) {
	switch msg.Type {
	case TypeHealthCheck:
		return w.shell.CheckHealth(), nil

	case TypePerformanceReset:
		w.shell.ResetPerformance()
		return w.shell.Snapshot(), nil

	case TypeVectorOperation:
		var req VectorOpRequest
		if err := decodePayload(msg.Data, &req); err != nil {
			return nil, err
		}
		return w.runExclusive(ctx, string(msg.Type), func(ctx context.Context) (any, error) {
			return w.handler.HandleVectorOperation(ctx, req)
		})

	case TypeRecommendation:
		var req RecommendRequest
		if err := decodePayload(msg.Data, &req); err != nil {
			return nil, err
		}
		return w.runExclusive(ctx, string(msg.Type), func(ctx context.Context) (any, error) {
			return w.handler.HandleRecommendation(ctx, req)
		})

	default:
		return nil, apperr.Newf(apperr.KindInvalidInput, "unknown message type %q", msg.Type)
	}
}

// runExclusive claims the single-flight slot for the duration of fn.
func (w *Worker) runExclusive(ctx context.Context, kind string, fn func(ctx context.Context) (any, error)) (any, error) {
	token, err := w.shell.StartOperation(kind)
	if err != nil {
		return nil, err
	}

	result, err := fn(ctx)
	w.shell.Complete(token, err == nil, false)
	return result, err
}
