// Package bus is the asynchronous dispatch layer between the HTTP router
// and the handlers. Handlers register under address strings and run on
// worker pools; test addresses get a dedicated pool with backpressure
// signalled through the run monitor.
package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mattjoyce/wikigate/internal/log"
	"github.com/mattjoyce/wikigate/internal/monitor"
)

// TestSendTimeout is the reply timeout for test-run addresses. Suite runs
// are long; everything else uses the configured request timeout.
const TestSendTimeout = 10 * time.Minute

// Handler processes one envelope. Errors and panics never reach the
// caller; the dispatcher converts both into a 500 response.
type Handler func(ctx context.Context, env Envelope) (Response, error)

// SendError is a dispatch failure with an HTTP-shaped code the router can
// relay directly.
type SendError struct {
	Code    int
	Message string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("bus send failed (%d): %s", e.Code, e.Message)
}

var (
	// ErrQueueFull rejects a test run when the dedicated queue is at its
	// limit.
	ErrQueueFull = &SendError{Code: 429, Message: "Test queue is full"}

	// ErrUnknownAddress reports a request to an address nothing registered.
	ErrUnknownAddress = &SendError{Code: 404, Message: "No handler for address"}
)

type registration struct {
	handler  Handler
	pool     *Pool
	monitor  *monitor.RunMonitor
	maxQueue int
}

// Bus routes envelopes to registered handlers.
type Bus struct {
	general *Pool
	logger  *slog.Logger

	mu       sync.RWMutex
	handlers map[string]registration
}

// New creates a bus whose default registrations run on the general pool.
func New(general *Pool) *Bus {
	return &Bus{
		general:  general,
		logger:   log.WithComponent("bus"),
		handlers: make(map[string]registration),
	}
}

// Register binds a handler to an address on the general pool.
func (b *Bus) Register(addr string, h Handler) {
	b.mu.Lock()
	b.handlers[addr] = registration{handler: h, pool: b.general}
	b.mu.Unlock()
}

// RegisterWithPool binds a handler to an address on a dedicated pool with
// monitor-driven backpressure. maxQueue <= 0 disables the queue limit.
func (b *Bus) RegisterWithPool(addr string, h Handler, p *Pool, mon *monitor.RunMonitor, maxQueue int) {
	b.mu.Lock()
	b.handlers[addr] = registration{handler: h, pool: p, monitor: mon, maxQueue: maxQueue}
	b.mu.Unlock()
}

// Request dispatches an envelope and waits up to timeout for the reply. A
// timed-out or cancelled wait abandons the reply; the worker still runs the
// handler to completion and the monitor still counts it.
func (b *Bus) Request(ctx context.Context, addr string, env Envelope, timeout time.Duration) (Response, error) {
	b.mu.RLock()
	reg, ok := b.handlers[addr]
	b.mu.RUnlock()
	if !ok {
		return Response{}, ErrUnknownAddress
	}

	if reg.monitor != nil {
		if !reg.monitor.CanAccept(reg.maxQueue) {
			b.logger.Warn("queue full, rejecting", "address", addr, "resource", env.Resource)
			return Response{}, ErrQueueFull
		}
		reg.monitor.IncrementQueued()
	}

	// The handler must outlive a caller that gives up waiting, so it runs
	// under the request's values but not its cancellation.
	workCtx := context.WithoutCancel(ctx)
	reply := make(chan Response, 1)
	reg.pool.Submit(func() {
		reply <- b.invoke(workCtx, reg, addr, env)
	})

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case resp := <-reply:
		return resp, nil
	case <-ctx.Done():
		b.logger.Warn("caller gone before reply", "address", addr, "resource", env.Resource)
		return Response{}, &SendError{Code: 500, Message: "request cancelled"}
	case <-timer.C:
		b.logger.Warn("reply timed out", "address", addr, "resource", env.Resource, "timeout", timeout)
		return Response{}, &SendError{Code: 500, Message: "bus send timed out"}
	}
}

func (b *Bus) invoke(ctx context.Context, reg registration, addr string, env Envelope) (resp Response) {
	var start time.Time
	if reg.monitor != nil {
		start = reg.monitor.StartRun(env.Resource)
		defer reg.monitor.FinishRun(start, env.Resource)
	}

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked", "address", addr, "panic", r)
			resp = Reply(500, map[string]string{}, []byte(fmt.Sprintf("Responder error: %v", r)))
		}
	}()

	out, err := reg.handler(ctx, env)
	if err != nil {
		b.logger.Error("handler failed", "address", addr, "error", err)
		return Reply(500, map[string]string{}, []byte(fmt.Sprintf("Responder error: %v", err)))
	}
	return out
}
