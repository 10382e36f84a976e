package common

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/leadscore/pkg/errors"
)

// ---------------------------------------------------------------------------
// Sentinel Errors
// ---------------------------------------------------------------------------

// ErrDispatcherClosed resolves every submission made after Shutdown, and every
// submission still queued when a Shutdown deadline expires.
var ErrDispatcherClosed = errors.New(errors.ErrCodeDispatcherClosed, "dispatcher is closed")

// ---------------------------------------------------------------------------
// Future
// ---------------------------------------------------------------------------

// Future is the result handle of one submitted operation.
type Future[R any] struct {
	once sync.Once
	done chan struct{}
	val  R
	err  error
}

func newFuture[R any]() *Future[R] {
	return &Future[R]{done: make(chan struct{})}
}

func (f *Future[R]) resolve(val R, err error) {
	f.once.Do(func() {
		f.val = val
		f.err = err
		close(f.done)
	})
}

// Done is closed once the operation has settled.
func (f *Future[R]) Done() <-chan struct{} { return f.done }

// Await blocks until the operation settles or ctx is done. Abandoning a
// Future does not stop the operation.
func (f *Future[R]) Await(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// ---------------------------------------------------------------------------
// Metrics hook
// ---------------------------------------------------------------------------

// DispatcherMetrics receives admission telemetry.
type DispatcherMetrics interface {
	SetQueueDepth(n int)
	SetInFlight(n int)
	IncAdmitted()
	ObserveQueueWait(d time.Duration)
}

type noopDispatcherMetrics struct{}

func (noopDispatcherMetrics) SetQueueDepth(int)               {}
func (noopDispatcherMetrics) SetInFlight(int)                 {}
func (noopDispatcherMetrics) IncAdmitted()                    {}
func (noopDispatcherMetrics) ObserveQueueWait(time.Duration) {}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

type dispatcherConfig struct {
	maxConcurrent int
	window        time.Duration
	logger        logging.Logger
	metrics       DispatcherMetrics
}

func defaultDispatcherConfig() *dispatcherConfig {
	return &dispatcherConfig{
		maxConcurrent: 20,
		window:        time.Minute,
		logger:        logging.NewNopLogger(),
		metrics:       noopDispatcherMetrics{},
	}
}

// DispatcherOption is a functional option for NewDispatcher.
type DispatcherOption func(*dispatcherConfig)

// WithMaxConcurrent sets the in-flight cap. Values < 1 are ignored.
func WithMaxConcurrent(n int) DispatcherOption {
	return func(c *dispatcherConfig) {
		if n > 0 {
			c.maxConcurrent = n
		}
	}
}

// WithWindow sets the rate window. Refill admissions are spaced by
// window / maxConcurrent; a zero window disables spacing.
func WithWindow(d time.Duration) DispatcherOption {
	return func(c *dispatcherConfig) {
		if d >= 0 {
			c.window = d
		}
	}
}

// WithDispatcherLogger injects a logger.
func WithDispatcherLogger(l logging.Logger) DispatcherOption {
	return func(c *dispatcherConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDispatcherMetrics injects a metrics sink.
func WithDispatcherMetrics(m DispatcherMetrics) DispatcherOption {
	return func(c *dispatcherConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// ---------------------------------------------------------------------------
// Dispatcher
// ---------------------------------------------------------------------------

// Operation is a unit of work admitted by the Dispatcher.
type Operation[R any] func(ctx context.Context) (R, error)

type request[R any] struct {
	ctx        context.Context
	op         Operation[R]
	future     *Future[R]
	enqueuedAt time.Time
}

// DispatcherStats is a point-in-time snapshot of the dispatcher.
type DispatcherStats struct {
	Queued    int    `json:"queued"`
	InFlight  int    `json:"in_flight"`
	Admitted  uint64 `json:"admitted"`
	Completed uint64 `json:"completed"`
	Closed    bool   `json:"closed"`
}

// Dispatcher is a FIFO admission queue that keeps at most maxConcurrent
// operations in flight. The first maxConcurrent admissions are immediate;
// after that admissions are spaced by window/maxConcurrent. A single
// goroutine admits; the queue and the closing flag are guarded by mu.
// The Dispatcher never retries an operation.
type Dispatcher[R any] struct {
	cfg     *dispatcherConfig
	logger  logging.Logger
	metrics DispatcherMetrics

	limiter *rate.Limiter
	slots   chan struct{}

	mu      sync.Mutex
	queue   []*request[R]
	closing bool

	wake        chan struct{}
	abortCtx    context.Context
	abortCancel context.CancelFunc
	loopDone    chan struct{}
	running     sync.WaitGroup

	inFlight  atomic.Int64
	admitted  atomic.Uint64
	completed atomic.Uint64
}

// NewDispatcher creates a Dispatcher and starts its admission loop.
func NewDispatcher[R any](opts ...DispatcherOption) *Dispatcher[R] {
	cfg := defaultDispatcherConfig()
	for _, o := range opts {
		o(cfg)
	}

	limit := rate.Inf
	if cfg.window > 0 {
		limit = rate.Every(cfg.window / time.Duration(cfg.maxConcurrent))
	}

	abortCtx, abortCancel := context.WithCancel(context.Background())
	d := &Dispatcher[R]{
		cfg:         cfg,
		logger:      cfg.logger,
		metrics:     cfg.metrics,
		limiter:     rate.NewLimiter(limit, cfg.maxConcurrent),
		slots:       make(chan struct{}, cfg.maxConcurrent),
		wake:        make(chan struct{}, 1),
		abortCtx:    abortCtx,
		abortCancel: abortCancel,
		loopDone:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Submit enqueues op and returns its Future. The Future resolves to op's
// result or failure; after Shutdown it resolves to ErrDispatcherClosed. A
// request whose ctx is done before admission resolves to ctx.Err() and is
// never run.
func (d *Dispatcher[R]) Submit(ctx context.Context, op Operation[R]) *Future[R] {
	f := newFuture[R]()
	var zero R
	if op == nil {
		f.resolve(zero, errors.InvalidParam("operation must not be nil"))
		return f
	}

	d.mu.Lock()
	if d.closing {
		d.mu.Unlock()
		f.resolve(zero, ErrDispatcherClosed)
		return f
	}
	d.queue = append(d.queue, &request[R]{ctx: ctx, op: op, future: f, enqueuedAt: time.Now()})
	depth := len(d.queue)
	d.mu.Unlock()

	d.metrics.SetQueueDepth(depth)
	d.signal()
	return f
}

// Stats returns a snapshot of queue depth and admission counters.
func (d *Dispatcher[R]) Stats() DispatcherStats {
	d.mu.Lock()
	queued, closed := len(d.queue), d.closing
	d.mu.Unlock()
	return DispatcherStats{
		Queued:    queued,
		InFlight:  int(d.inFlight.Load()),
		Admitted:  d.admitted.Load(),
		Completed: d.completed.Load(),
		Closed:    closed,
	}
}

// Shutdown stops accepting submissions and waits for queued and in-flight
// operations to finish. If ctx ends first, operations still queued resolve
// to ErrDispatcherClosed and ctx.Err() is returned; operations already
// running are left to finish on their own.
func (d *Dispatcher[R]) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closing = true
	d.mu.Unlock()
	d.signal()

	drained := make(chan struct{})
	go func() {
		<-d.loopDone
		d.running.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		d.abortCancel()
		return nil
	case <-ctx.Done():
		d.abortCancel()
		<-d.loopDone
		return ctx.Err()
	}
}

func (d *Dispatcher[R]) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// run is the single admission loop.
func (d *Dispatcher[R]) run() {
	defer close(d.loopDone)

	for {
		if !d.waitForWork() {
			d.failQueued()
			return
		}
		if d.dropCancelledFront() {
			continue
		}

		select {
		case d.slots <- struct{}{}:
		case <-d.abortCtx.Done():
			d.failQueued()
			return
		}
		if err := d.limiter.Wait(d.abortCtx); err != nil {
			<-d.slots
			d.failQueued()
			return
		}

		req := d.pop()
		if req == nil {
			<-d.slots
			continue
		}
		if err := req.ctx.Err(); err != nil {
			<-d.slots
			var zero R
			req.future.resolve(zero, err)
			continue
		}
		d.launch(req)
	}
}

// waitForWork blocks until the queue is non-empty. It returns false once the
// dispatcher is closing with an empty queue, or has been aborted.
func (d *Dispatcher[R]) waitForWork() bool {
	for {
		d.mu.Lock()
		n, closing := len(d.queue), d.closing
		d.mu.Unlock()

		if n > 0 {
			return true
		}
		if closing {
			return false
		}
		select {
		case <-d.wake:
		case <-d.abortCtx.Done():
			return false
		}
	}
}

// dropCancelledFront resolves and removes the head request if its context
// is already done.
func (d *Dispatcher[R]) dropCancelledFront() bool {
	d.mu.Lock()
	if len(d.queue) == 0 || d.queue[0].ctx.Err() == nil {
		d.mu.Unlock()
		return false
	}
	req := d.queue[0]
	d.queue[0] = nil
	d.queue = d.queue[1:]
	depth := len(d.queue)
	d.mu.Unlock()

	d.metrics.SetQueueDepth(depth)
	var zero R
	req.future.resolve(zero, req.ctx.Err())
	return true
}

func (d *Dispatcher[R]) pop() *request[R] {
	d.mu.Lock()
	if len(d.queue) == 0 {
		d.mu.Unlock()
		return nil
	}
	req := d.queue[0]
	d.queue[0] = nil
	d.queue = d.queue[1:]
	depth := len(d.queue)
	d.mu.Unlock()

	d.metrics.SetQueueDepth(depth)
	return req
}

func (d *Dispatcher[R]) failQueued() {
	d.mu.Lock()
	pending := d.queue
	d.queue = nil
	d.mu.Unlock()

	if len(pending) > 0 {
		d.logger.Warn("dispatcher closed with queued operations", logging.Int("dropped", len(pending)))
	}
	var zero R
	for _, req := range pending {
		req.future.resolve(zero, ErrDispatcherClosed)
	}
	d.metrics.SetQueueDepth(0)
}

// launch runs req on its own goroutine. The slot acquired by run is
// released when the operation returns.
func (d *Dispatcher[R]) launch(req *request[R]) {
	d.running.Add(1)
	n := d.inFlight.Add(1)
	d.admitted.Add(1)

	wait := time.Since(req.enqueuedAt)
	d.metrics.IncAdmitted()
	d.metrics.SetInFlight(int(n))
	d.metrics.ObserveQueueWait(wait)
	d.logger.Debug("operation admitted", logging.Int64("in_flight", n), logging.Duration("queue_wait", wait))

	go func() {
		val, err := d.execute(req)

		n := d.inFlight.Add(-1)
		d.completed.Add(1)
		d.metrics.SetInFlight(int(n))
		<-d.slots

		req.future.resolve(val, err)
		d.running.Done()
	}()
}

func (d *Dispatcher[R]) execute(req *request[R]) (val R, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("operation panicked", logging.Any("panic", r))
			err = errors.Newf(errors.ErrCodeInternal, "operation panicked: %v", r)
		}
	}()
	return req.op(req.ctx)
}

//Personal.AI order the ending
