package assistant

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/turtacn/leadscore/internal/domain/scoring"
	"github.com/turtacn/leadscore/pkg/errors"
)

// Default polling parameters.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxAttempts  = 10
	DefaultMessageRole  = "user"
)

// Session is a conversation backend bound to the credentials of one
// subscription, together with the assistant that runs the prompts.
type Session struct {
	Service     scoring.ConversationService
	AssistantID string
}

// Connector opens a Session for a subscription.
type Connector interface {
	Connect(ctx context.Context, subscriptionID string) (Session, error)
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

type runnerConfig struct {
	pollInterval   time.Duration
	maxAttempts    int
	requestTimeout time.Duration
	role           string
	observer       Observer
}

// RunnerOption is a functional option for NewRunner.
type RunnerOption func(*runnerConfig)

// WithPollInterval sets the delay between status queries.
func WithPollInterval(d time.Duration) RunnerOption {
	return func(c *runnerConfig) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithMaxAttempts bounds the number of status queries per run.
func WithMaxAttempts(n int) RunnerOption {
	return func(c *runnerConfig) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithRequestTimeout bounds each individual backend call. Zero disables it.
func WithRequestTimeout(d time.Duration) RunnerOption {
	return func(c *runnerConfig) {
		if d >= 0 {
			c.requestTimeout = d
		}
	}
}

// WithMessageRole sets the role of the posted prompt message.
func WithMessageRole(role string) RunnerOption {
	return func(c *runnerConfig) {
		if role != "" {
			c.role = role
		}
	}
}

// WithObserver installs a transition observer.
func WithObserver(o Observer) RunnerOption {
	return func(c *runnerConfig) {
		if o != nil {
			c.observer = o
		}
	}
}

// ---------------------------------------------------------------------------
// Runner
// ---------------------------------------------------------------------------

// Runner executes the operation state machine for work items. It holds no
// per-item state and is safe for concurrent use.
type Runner struct {
	connector Connector
	cfg       runnerConfig
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewRunner creates a Runner that opens sessions through connector.
func NewRunner(connector Connector, opts ...RunnerOption) *Runner {
	cfg := runnerConfig{
		pollInterval: DefaultPollInterval,
		maxAttempts:  DefaultMaxAttempts,
		role:         DefaultMessageRole,
		observer:     nopObserver{},
	}
	for _, o := range opts {
		o(&cfg)
	}
	return &Runner{connector: connector, cfg: cfg, sleep: sleepContext}
}

// Score runs item to a terminal state and classifies the result.
func (r *Runner) Score(ctx context.Context, item scoring.WorkItem) scoring.ItemOutcome {
	return Classify(item.ID, r.Run(ctx, item))
}

// Run drives item through created → submitted → polling → terminal and
// returns the tagged result. Backend failures end the run; nothing is
// retried except the status query, at most maxAttempts times.
func (r *Runner) Run(ctx context.Context, item scoring.WorkItem) RunResult {
	op := &operation{itemID: item.ID, state: StateCreated, observer: r.cfg.observer}

	if item.Malformed {
		return op.fail(RunResult{Reason: ReasonMalformedInput, Err: errors.ParseError("lead record is malformed", nil)})
	}
	prompt := strings.TrimSpace(item.PromptText)
	if prompt == "" {
		return op.fail(RunResult{Reason: ReasonPromptMissing, Err: errors.InputError("prompt is empty")})
	}

	op.transition(StateSubmitted)

	sess, err := r.connector.Connect(ctx, item.Context.SubscriptionID)
	if err != nil {
		return op.fail(RunResult{Reason: ReasonCredentials, Err: err})
	}
	svc := sess.Service

	var threadID string
	err = r.call(ctx, func(ctx context.Context) (err error) {
		threadID, err = svc.CreateThread(ctx)
		return err
	})
	if err != nil {
		return op.fail(RunResult{Reason: ReasonCreateThread, Err: errors.UpstreamError("create thread", err)})
	}

	err = r.call(ctx, func(ctx context.Context) error {
		return svc.PostMessage(ctx, threadID, r.cfg.role, prompt)
	})
	if err != nil {
		return op.fail(RunResult{Reason: ReasonPostMessage, ThreadID: threadID, Err: errors.UpstreamError("post message", err)})
	}

	var runID string
	err = r.call(ctx, func(ctx context.Context) (err error) {
		runID, err = svc.StartRun(ctx, threadID, sess.AssistantID)
		return err
	})
	if err != nil {
		return op.fail(RunResult{Reason: ReasonStartRun, ThreadID: threadID, Err: errors.UpstreamError("start run", err)})
	}

	op.transition(StatePolling)
	return r.poll(ctx, op, svc, threadID, runID)
}

func (r *Runner) poll(ctx context.Context, op *operation, svc scoring.ConversationService, threadID, runID string) RunResult {
	// WithMaxRetries treats zero as unlimited.
	var b backoff.BackOff = &backoff.StopBackOff{}
	if r.cfg.maxAttempts > 1 {
		b = backoff.WithMaxRetries(backoff.NewConstantBackOff(r.cfg.pollInterval), uint64(r.cfg.maxAttempts-1))
	}
	b.Reset()

	base := RunResult{ThreadID: threadID, RunID: runID}
	for attempt := 1; ; attempt++ {
		base.Attempts = attempt

		var status scoring.RunStatus
		err := r.call(ctx, func(ctx context.Context) (err error) {
			status, err = svc.GetRunStatus(ctx, threadID, runID)
			return err
		})
		if err != nil {
			res := base
			res.Reason, res.Err = ReasonPoll, errors.UpstreamError("get run status", err)
			return op.fail(res)
		}
		op.observer.OnPoll(op.itemID, attempt, status)
		base.RemoteStatus = status

		switch status {
		case scoring.RunStatusCompleted:
			return r.fetch(ctx, op, svc, base)
		case scoring.RunStatusFailed, scoring.RunStatusCancelled, scoring.RunStatusExpired, scoring.RunStatusIncomplete:
			res := base
			res.Reason = ReasonRemoteStatus
			res.Err = errors.Newf(errors.ErrCodeUpstream, "run ended with status %s", status)
			return op.fail(res)
		}

		next := b.NextBackOff()
		if next == backoff.Stop {
			res := base
			res.Reason, res.Err = ReasonExhausted, errors.TimeoutError(scoring.DescMaxRetries)
			return op.expire(res)
		}
		if err := r.sleep(ctx, next); err != nil {
			res := base
			res.Reason, res.Err = ReasonAborted, err
			return op.fail(res)
		}
	}
}

func (r *Runner) fetch(ctx context.Context, op *operation, svc scoring.ConversationService, base RunResult) RunResult {
	var msgs []scoring.Message
	err := r.call(ctx, func(ctx context.Context) (err error) {
		msgs, err = svc.GetMessages(ctx, base.ThreadID)
		return err
	})
	if err != nil {
		res := base
		res.Reason, res.Err = ReasonFetch, errors.UpstreamError("list messages", err)
		return op.fail(res)
	}

	content := replyText(msgs)
	if content == "" {
		res := base
		res.Reason, res.Err = ReasonNoContent, errors.ParseError(scoring.DescNoMessageContent, nil)
		return op.fail(res)
	}

	res := base
	res.Content = content
	return op.complete(res)
}

// replyText returns the text of the newest assistant message, falling back
// to the newest message of any role.
func replyText(msgs []scoring.Message) string {
	for _, m := range msgs {
		if m.Role == "assistant" && m.Text != "" {
			return m.Text
		}
	}
	if len(msgs) > 0 {
		return msgs[0].Text
	}
	return ""
}

// call runs fn under the per-request timeout.
func (r *Runner) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.cfg.requestTimeout <= 0 {
		return fn(ctx)
	}
	cctx, cancel := context.WithTimeout(ctx, r.cfg.requestTimeout)
	defer cancel()
	return fn(cctx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ---------------------------------------------------------------------------
// operation
// ---------------------------------------------------------------------------

// operation tracks the state of a single run. It is owned by one goroutine.
type operation struct {
	itemID   string
	state    State
	observer Observer
}

func (o *operation) transition(to State) {
	from := o.state
	o.state = to
	o.observer.OnTransition(o.itemID, from, to)
}

func (o *operation) finish(to State, res RunResult) RunResult {
	o.transition(to)
	res.State = to
	o.observer.OnTerminal(o.itemID, res)
	return res
}

func (o *operation) fail(res RunResult) RunResult     { return o.finish(StateFailed, res) }
func (o *operation) expire(res RunResult) RunResult   { return o.finish(StateExpired, res) }
func (o *operation) complete(res RunResult) RunResult { return o.finish(StateCompleted, res) }

//Personal.AI order the ending
