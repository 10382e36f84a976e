package assistant

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/leadscore/internal/domain/scoring"
	apperrors "github.com/turtacn/leadscore/pkg/errors"
)

// fakeService is a scripted ConversationService.
type fakeService struct {
	mu sync.Mutex

	statuses []scoring.RunStatus
	messages []scoring.Message

	createErr error
	postErr   error
	startErr  error
	pollErr   error
	listErr   error

	calls      []string
	polls      int
	postedRole string
	posted     string
	assistant  string
}

func (f *fakeService) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeService) CreateThread(context.Context) (string, error) {
	f.record("create_thread")
	if f.createErr != nil {
		return "", f.createErr
	}
	return "thread_1", nil
}

func (f *fakeService) PostMessage(_ context.Context, _ string, role, content string) error {
	f.record("post_message")
	f.postedRole, f.posted = role, content
	return f.postErr
}

func (f *fakeService) StartRun(_ context.Context, _ string, assistantID string) (string, error) {
	f.record("start_run")
	f.assistant = assistantID
	if f.startErr != nil {
		return "", f.startErr
	}
	return "run_1", nil
}

func (f *fakeService) GetRunStatus(context.Context, string, string) (scoring.RunStatus, error) {
	f.record("get_status")
	if f.pollErr != nil {
		return "", f.pollErr
	}
	i := f.polls
	f.polls++
	if i >= len(f.statuses) {
		return f.statuses[len(f.statuses)-1], nil
	}
	return f.statuses[i], nil
}

func (f *fakeService) GetMessages(context.Context, string) ([]scoring.Message, error) {
	f.record("get_messages")
	return f.messages, f.listErr
}

type fakeConnector struct {
	svc scoring.ConversationService
	err error
}

func (c fakeConnector) Connect(context.Context, string) (Session, error) {
	if c.err != nil {
		return Session{}, c.err
	}
	return Session{Service: c.svc, AssistantID: "asst_1"}, nil
}

type recordingObserver struct {
	transitions []string
	polls       int
	terminal    []RunResult
}

func (o *recordingObserver) OnTransition(_ string, _, to State) {
	o.transitions = append(o.transitions, to.String())
}
func (o *recordingObserver) OnPoll(string, int, scoring.RunStatus) { o.polls++ }
func (o *recordingObserver) OnTerminal(_ string, res RunResult)    { o.terminal = append(o.terminal, res) }

func newTestRunner(svc scoring.ConversationService, opts ...RunnerOption) *Runner {
	opts = append([]RunnerOption{WithPollInterval(time.Millisecond), WithMaxAttempts(10)}, opts...)
	r := NewRunner(fakeConnector{svc: svc}, opts...)
	r.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return r
}

func item(prompt string) scoring.WorkItem {
	return scoring.WorkItem{
		ID:         "lead-1",
		PromptText: prompt,
		Context:    scoring.RequesterContext{SubscriptionID: "sub-1"},
	}
}

func TestRunner_EmptyPromptFailsWithoutCalls(t *testing.T) {
	svc := &fakeService{}
	r := newTestRunner(svc)

	res := r.Run(context.Background(), item("   "))
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, ReasonPromptMissing, res.Reason)
	assert.Empty(t, svc.calls)

	out := Classify("lead-1", res)
	assert.Equal(t, scoring.Failed("lead-1", scoring.DescPromptMissing), out)
}

func TestRunner_MalformedItemFailsWithoutCalls(t *testing.T) {
	svc := &fakeService{}
	r := newTestRunner(svc)

	it := item("score me")
	it.Malformed = true
	res := r.Run(context.Background(), it)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, ReasonMalformedInput, res.Reason)
	assert.Empty(t, svc.calls)

	assert.Equal(t, scoring.Failed("lead-1", scoring.DescInvalidJSON), r.Score(context.Background(), it))
}

func TestRunner_CompletedRun(t *testing.T) {
	svc := &fakeService{
		statuses: []scoring.RunStatus{scoring.RunStatusQueued, scoring.RunStatusRunning, scoring.RunStatusCompleted},
		messages: []scoring.Message{
			{Role: "assistant", Text: `{"AI Description":"Strong fit","AI Score":"85","AI Category":"Hot"}`},
			{Role: "user", Text: "prompt"},
		},
	}
	obs := &recordingObserver{}
	r := newTestRunner(svc, WithObserver(obs), WithMessageRole("user"))

	res := r.Run(context.Background(), item("Score this lead"))
	require.Equal(t, StateCompleted, res.State)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, "thread_1", res.ThreadID)
	assert.Equal(t, "run_1", res.RunID)
	assert.Equal(t, "asst_1", svc.assistant)
	assert.Equal(t, "user", svc.postedRole)
	assert.Equal(t, "Score this lead", svc.posted)

	assert.Equal(t, []string{"submitted", "polling", "completed"}, obs.transitions)
	assert.Equal(t, 3, obs.polls)
	require.Len(t, obs.terminal, 1)

	out := r.Score(context.Background(), item("Score this lead"))
	assert.True(t, out.Success)
	assert.Equal(t, "Strong fit", out.Description)
	assert.Equal(t, "85", out.Score)
	assert.Equal(t, "Hot", out.Category)
}

func TestRunner_RemoteTerminalFailures(t *testing.T) {
	for _, status := range []scoring.RunStatus{scoring.RunStatusFailed, scoring.RunStatusCancelled, scoring.RunStatusExpired} {
		t.Run(string(status), func(t *testing.T) {
			svc := &fakeService{statuses: []scoring.RunStatus{scoring.RunStatusQueued, status}}
			r := newTestRunner(svc)

			res := r.Run(context.Background(), item("p"))
			assert.Equal(t, StateFailed, res.State)
			assert.Equal(t, ReasonRemoteStatus, res.Reason)
			assert.Equal(t, status, res.RemoteStatus)
			assert.NotContains(t, svc.calls, "get_messages")

			out := Classify("lead-1", res)
			assert.False(t, out.Success)
			assert.Equal(t, "Run failed: "+string(status), out.Description)
			assert.Equal(t, scoring.NotAvailable, out.Score)
		})
	}
}

func TestRunner_ExhaustsExactlyMaxAttempts(t *testing.T) {
	svc := &fakeService{statuses: []scoring.RunStatus{scoring.RunStatusRunning}}
	var sleeps int
	r := newTestRunner(svc, WithMaxAttempts(4))
	r.sleep = func(context.Context, time.Duration) error {
		sleeps++
		return nil
	}

	res := r.Run(context.Background(), item("p"))
	assert.Equal(t, StateExpired, res.State)
	assert.Equal(t, ReasonExhausted, res.Reason)
	assert.Equal(t, 4, svc.polls)
	assert.Equal(t, 4, res.Attempts)
	assert.Equal(t, 3, sleeps)
	assert.True(t, apperrors.IsCode(res.Err, apperrors.ErrCodeTimeout))

	assert.Equal(t, scoring.Failed("lead-1", scoring.DescMaxRetries), Classify("lead-1", res))
}

func TestRunner_SleepUsesPollInterval(t *testing.T) {
	svc := &fakeService{statuses: []scoring.RunStatus{scoring.RunStatusQueued, scoring.RunStatusCompleted},
		messages: []scoring.Message{{Role: "assistant", Text: `{}`}}}
	var got []time.Duration
	r := newTestRunner(svc, WithPollInterval(250*time.Millisecond))
	r.sleep = func(_ context.Context, d time.Duration) error {
		got = append(got, d)
		return nil
	}

	res := r.Run(context.Background(), item("p"))
	require.Equal(t, StateCompleted, res.State)
	assert.Equal(t, []time.Duration{250 * time.Millisecond}, got)
}

func TestRunner_InvalidReply(t *testing.T) {
	svc := &fakeService{
		statuses: []scoring.RunStatus{scoring.RunStatusCompleted},
		messages: []scoring.Message{{Role: "assistant", Text: "not json"}},
	}
	r := newTestRunner(svc)

	out := r.Score(context.Background(), item("p"))
	assert.Equal(t, scoring.Failed("lead-1", scoring.DescInvalidJSON), out)
}

func TestRunner_NoMessageContent(t *testing.T) {
	svc := &fakeService{statuses: []scoring.RunStatus{scoring.RunStatusCompleted}}
	r := newTestRunner(svc)

	res := r.Run(context.Background(), item("p"))
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, ReasonNoContent, res.Reason)
	assert.Equal(t, scoring.DescNoMessageContent, Classify("lead-1", res).Description)
}

func TestRunner_FallsBackToNewestMessage(t *testing.T) {
	svc := &fakeService{
		statuses: []scoring.RunStatus{scoring.RunStatusCompleted},
		messages: []scoring.Message{{Role: "user", Text: `{"AI Score":7}`}},
	}
	r := newTestRunner(svc)

	out := r.Score(context.Background(), item("p"))
	assert.True(t, out.Success)
	assert.Equal(t, "7", out.Score)
	assert.Equal(t, scoring.PlaceholderDescription, out.Description)
	assert.Equal(t, scoring.PlaceholderCategory, out.Category)
}

func TestRunner_BackendFailuresAreNotRetried(t *testing.T) {
	boom := errors.New("boom")
	cases := []struct {
		name   string
		svc    *fakeService
		reason Reason
		calls  int
		desc   string
	}{
		{"create", &fakeService{createErr: boom}, ReasonCreateThread, 1, "Upstream error: create thread"},
		{"post", &fakeService{postErr: boom}, ReasonPostMessage, 2, "Upstream error: post message"},
		{"start", &fakeService{startErr: boom}, ReasonStartRun, 3, "Upstream error: start run"},
		{"poll", &fakeService{pollErr: boom}, ReasonPoll, 4, "Upstream error: poll"},
		{"fetch", &fakeService{statuses: []scoring.RunStatus{scoring.RunStatusCompleted}, listErr: boom}, ReasonFetch, 5, "Upstream error: fetch messages"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRunner(tc.svc)
			res := r.Run(context.Background(), item("p"))
			assert.Equal(t, StateFailed, res.State)
			assert.Equal(t, tc.reason, res.Reason)
			assert.Len(t, tc.svc.calls, tc.calls)
			assert.True(t, apperrors.IsCode(res.Err, apperrors.ErrCodeUpstream))
			assert.ErrorIs(t, res.Err, boom)
			assert.Equal(t, tc.desc, Classify("lead-1", res).Description)
		})
	}
}

func TestRunner_ConnectorFailure(t *testing.T) {
	r := NewRunner(fakeConnector{err: apperrors.New(apperrors.ErrCodeSecretNotFound, "missing")})

	res := r.Run(context.Background(), item("p"))
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, ReasonCredentials, res.Reason)
	assert.Equal(t, scoring.DescCredentials, Classify("lead-1", res).Description)
}

func TestRunner_CancelledWhilePolling(t *testing.T) {
	svc := &fakeService{statuses: []scoring.RunStatus{scoring.RunStatusRunning}}
	r := newTestRunner(svc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.sleep = sleepContext

	res := r.Run(ctx, item("p"))
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, ReasonAborted, res.Reason)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, scoring.DescAborted, Classify("lead-1", res).Description)
}

func TestRunner_RequestTimeoutBoundsEachCall(t *testing.T) {
	svc := &blockingService{fakeService: fakeService{}}
	r := newTestRunner(svc, WithRequestTimeout(20*time.Millisecond))

	start := time.Now()
	res := r.Run(context.Background(), item("p"))
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, ReasonCreateThread, res.Reason)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
}

type blockingService struct {
	fakeService
}

func (b *blockingService) CreateThread(ctx context.Context) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestRunner_ObserverSeesTerminalOnce(t *testing.T) {
	obs := &recordingObserver{}
	r := newTestRunner(&fakeService{}, WithObserver(obs))

	r.Run(context.Background(), item(""))
	assert.Equal(t, []string{"failed"}, obs.transitions)
	require.Len(t, obs.terminal, 1)
	assert.Equal(t, StateFailed, obs.terminal[0].State)
}

//Personal.AI order the ending
