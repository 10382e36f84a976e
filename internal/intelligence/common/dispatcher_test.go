package common

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/turtacn/leadscore/pkg/errors"
)

func awaitAll[R any](t *testing.T, futures []*Future[R]) ([]R, []error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	vals := make([]R, len(futures))
	errs := make([]error, len(futures))
	for i, f := range futures {
		vals[i], errs[i] = f.Await(ctx)
	}
	return vals, errs
}

func TestDispatcher_ResolvesResults(t *testing.T) {
	d := NewDispatcher[string](WithMaxConcurrent(4), WithWindow(0))
	defer d.Shutdown(context.Background())

	var futures []*Future[string]
	for _, s := range []string{"a", "b", "c"} {
		s := s
		futures = append(futures, d.Submit(context.Background(), func(context.Context) (string, error) {
			return s + "_done", nil
		}))
	}

	vals, errs := awaitAll(t, futures)
	assert.Equal(t, []string{"a_done", "b_done", "c_done"}, vals)
	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestDispatcher_PropagatesFailureWithoutRetry(t *testing.T) {
	d := NewDispatcher[int](WithMaxConcurrent(2), WithWindow(0))
	defer d.Shutdown(context.Background())

	var calls atomic.Int32
	boom := errors.New("boom")
	f := d.Submit(context.Background(), func(context.Context) (int, error) {
		calls.Add(1)
		return 0, boom
	})

	_, err := f.Await(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDispatcher_NeverExceedsCap(t *testing.T) {
	const limit = 3
	d := NewDispatcher[int](WithMaxConcurrent(limit), WithWindow(0))
	defer d.Shutdown(context.Background())

	var current, peak atomic.Int32
	var futures []*Future[int]
	for i := 0; i < 20; i++ {
		futures = append(futures, d.Submit(context.Background(), func(context.Context) (int, error) {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
			return 0, nil
		}))
	}

	awaitAll(t, futures)
	assert.LessOrEqual(t, peak.Load(), int32(limit))
	assert.Equal(t, uint64(20), d.Stats().Completed)
}

func TestDispatcher_AdmitsInFIFOOrder(t *testing.T) {
	d := NewDispatcher[int](WithMaxConcurrent(1), WithWindow(0))
	defer d.Shutdown(context.Background())

	var mu sync.Mutex
	var order []int
	var futures []*Future[int]
	for i := 0; i < 10; i++ {
		i := i
		futures = append(futures, d.Submit(context.Background(), func(context.Context) (int, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return i, nil
		}))
	}

	awaitAll(t, futures)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestDispatcher_SpacesRefillAdmissions(t *testing.T) {
	// cap 2 over 200ms: two immediate admissions, then one every 100ms.
	d := NewDispatcher[time.Time](WithMaxConcurrent(2), WithWindow(200*time.Millisecond))
	defer d.Shutdown(context.Background())

	start := time.Now()
	var futures []*Future[time.Time]
	for i := 0; i < 4; i++ {
		futures = append(futures, d.Submit(context.Background(), func(context.Context) (time.Time, error) {
			return time.Now(), nil
		}))
	}

	admitted, _ := awaitAll(t, futures)
	assert.Less(t, admitted[1].Sub(start), 80*time.Millisecond)
	assert.GreaterOrEqual(t, admitted[2].Sub(start), 80*time.Millisecond)
	assert.GreaterOrEqual(t, admitted[3].Sub(admitted[2]), 80*time.Millisecond)
}

func TestDispatcher_RecoversPanics(t *testing.T) {
	d := NewDispatcher[int](WithMaxConcurrent(1), WithWindow(0))
	defer d.Shutdown(context.Background())

	_, err := d.Submit(context.Background(), func(context.Context) (int, error) {
		panic("kaboom")
	}).Await(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInternal))

	v, err := d.Submit(context.Background(), func(context.Context) (int, error) { return 7, nil }).
		Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestDispatcher_NilOperation(t *testing.T) {
	d := NewDispatcher[int]()
	defer d.Shutdown(context.Background())

	_, err := d.Submit(context.Background(), nil).Await(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeBadRequest))
}

func TestDispatcher_SkipsRequestsCancelledWhileQueued(t *testing.T) {
	d := NewDispatcher[int](WithMaxConcurrent(1), WithWindow(0))
	defer d.Shutdown(context.Background())

	release := make(chan struct{})
	first := d.Submit(context.Background(), func(context.Context) (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Bool
	second := d.Submit(ctx, func(context.Context) (int, error) {
		ran.Store(true)
		return 2, nil
	})
	cancel()
	close(release)

	_, err := first.Await(context.Background())
	require.NoError(t, err)
	_, err = second.Await(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran.Load())
}

func TestDispatcher_SubmitAfterShutdown(t *testing.T) {
	d := NewDispatcher[int]()
	require.NoError(t, d.Shutdown(context.Background()))

	_, err := d.Submit(context.Background(), func(context.Context) (int, error) { return 1, nil }).
		Await(context.Background())
	assert.ErrorIs(t, err, ErrDispatcherClosed)
	assert.True(t, d.Stats().Closed)
}

func TestDispatcher_ShutdownDrainsQueue(t *testing.T) {
	d := NewDispatcher[int](WithMaxConcurrent(1), WithWindow(0))

	var futures []*Future[int]
	for i := 0; i < 5; i++ {
		i := i
		futures = append(futures, d.Submit(context.Background(), func(context.Context) (int, error) {
			time.Sleep(2 * time.Millisecond)
			return i, nil
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Shutdown(ctx))

	for i, f := range futures {
		select {
		case <-f.Done():
		default:
			t.Fatalf("future %d not settled after shutdown", i)
		}
		v, err := f.Await(context.Background())
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
}

func TestDispatcher_ShutdownDeadlineFailsQueued(t *testing.T) {
	d := NewDispatcher[int](WithMaxConcurrent(1), WithWindow(0))

	release := make(chan struct{})
	defer close(release)
	running := d.Submit(context.Background(), func(context.Context) (int, error) {
		<-release
		return 1, nil
	})
	queued := d.Submit(context.Background(), func(context.Context) (int, error) { return 2, nil })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := d.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = queued.Await(context.Background())
	assert.ErrorIs(t, err, ErrDispatcherClosed)

	select {
	case <-running.Done():
		t.Fatal("running operation must not be aborted")
	default:
	}
}

func TestFuture_AwaitHonoursContext(t *testing.T) {
	f := newFuture[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	f.resolve(5, nil)
	f.resolve(6, errors.New("ignored"))
	v, err := f.Await(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 5, v)
}

type recordingMetrics struct {
	admitted atomic.Int32
	maxInFl  atomic.Int32
}

func (m *recordingMetrics) SetQueueDepth(int) {}
func (m *recordingMetrics) SetInFlight(n int) {
	for {
		p := m.maxInFl.Load()
		if int32(n) <= p || m.maxInFl.CompareAndSwap(p, int32(n)) {
			return
		}
	}
}
func (m *recordingMetrics) IncAdmitted()                   { m.admitted.Add(1) }
func (m *recordingMetrics) ObserveQueueWait(time.Duration) {}

func TestDispatcher_ReportsMetrics(t *testing.T) {
	m := &recordingMetrics{}
	d := NewDispatcher[int](WithMaxConcurrent(2), WithWindow(0), WithDispatcherMetrics(m))

	var futures []*Future[int]
	for i := 0; i < 6; i++ {
		futures = append(futures, d.Submit(context.Background(), func(context.Context) (int, error) {
			time.Sleep(time.Millisecond)
			return 0, nil
		}))
	}
	awaitAll(t, futures)
	require.NoError(t, d.Shutdown(context.Background()))

	assert.Equal(t, int32(6), m.admitted.Load())
	assert.LessOrEqual(t, m.maxInFl.Load(), int32(2))
	assert.Equal(t, 0, d.Stats().InFlight)
}

//Personal.AI order the ending
