package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hireloop/interview-cli/internal/interview"
	logfields "github.com/hireloop/interview-cli/internal/logger"
	"github.com/hireloop/interview-cli/internal/transport"

	"go.uber.org/zap"
)

// Remaining time assumed when the server reports no duration.
const defaultRemainingSeconds = 300

var (
	// ErrNotStarted means the session exists but the interview has not begun;
	// the caller should offer to Begin it.
	ErrNotStarted = errors.New("interview has not been started yet")
	// ErrAlreadyCompleted means the session is finished and only results
	// remain.
	ErrAlreadyCompleted = errors.New("interview is already completed")
	// ErrSubmissionInFlight rejects overlapping submissions.
	ErrSubmissionInFlight = errors.New("an answer submission is already in flight")
)

// Client is the remote interview API surface the controller depends on.
type Client interface {
	Info(sessionID string) (*interview.Info, error)
	Start(sessionID string) (*interview.Started, error)
	ProcessAnswer(sessionID string, wav []byte) (*interview.AnswerResult, error)
	TextAnswer(sessionID, text string) (*interview.AnswerResult, error)
	End(sessionID string) error
}

// Controller mediates between the view layer and the remote interview API.
// It owns the session lifecycle state and publishes Events for rendering;
// remote failures never cross this boundary as raw errors — they become a
// user-facing message plus a state transition.
type Controller struct {
	sessionID string
	client    Client
	store     *Store
	policy    transport.Policy
	logger    *zap.Logger

	// tick shortened in tests; one second otherwise.
	tick time.Duration

	mu           sync.Mutex
	state        State
	question     string
	topic        string
	progress     *interview.Progress
	remaining    int
	evaluation   map[string]any
	scores       map[string]float64
	userErr      string
	useTextInput bool
	initialized  bool
	submitting   bool
	closed       bool
	// epoch advances whenever the session supersedes in-flight work; late
	// responses carrying an older epoch are dropped.
	epoch uint64

	events     chan Event
	tickerStop chan struct{}
	expireOnce sync.Once
	closeOnce  sync.Once
}

// New creates a Controller for one session. Nothing is fetched until
// Initialize is called.
func New(sessionID string, client Client, store *Store, policy transport.Policy, logger *zap.Logger) *Controller {
	logger = logfields.WithSessionFields(logger, sessionID, "")

	return &Controller{
		sessionID:  sessionID,
		client:     client,
		store:      store,
		policy:     policy,
		logger:     logger,
		tick:       time.Second,
		state:      StateLoading,
		events:     make(chan Event, 32),
		tickerStop: make(chan struct{}),
	}
}

// Events returns the notice queue for the view layer. The channel is closed
// by Close.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Initialize loads the session state: a fresh local snapshot when one exists,
// the remote interview-info endpoint otherwise. Calling it on an initialized
// controller is a no-op with no network traffic.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if c.store != nil {
		if snap, err := c.store.Load(c.sessionID, DefaultFreshness); err == nil {
			remaining := snap.RemainingSeconds - int(time.Since(snap.SavedAt).Seconds())
			if remaining > 0 && snap.CurrentQuestion != "" {
				c.mu.Lock()
				c.question = snap.CurrentQuestion
				c.topic = snap.CurrentTopic
				c.progress = snap.Progress
				c.remaining = remaining
				c.initialized = true
				c.state = StateActive
				c.emitLocked(Event{Kind: EventNotice, Message: "resumed saved session"})
				c.emitLocked(Event{Kind: EventQuestion, Message: c.question})
				c.mu.Unlock()

				c.logger.Info("session resumed from snapshot",
					zap.Int("remaining_seconds", remaining),
				)
				return nil
			}
		}
	}

	var info *interview.Info
	err := transport.Retry(ctx, c.logger, c.policy, "interview-info", func(context.Context) error {
		var err error
		info, err = c.client.Info(c.sessionID)
		return err
	})
	if err != nil {
		c.fail("could not load the interview", err)
		return err
	}

	switch info.Status {
	case interview.StatusPending:
		return ErrNotStarted
	case interview.StatusCompleted:
		c.mu.Lock()
		c.state = StateComplete
		c.mu.Unlock()
		return ErrAlreadyCompleted
	case interview.StatusActive:
		c.mu.Lock()
		c.question = info.CurrentQuestion
		c.topic = info.CurrentTopic
		c.progress = info.Progress
		c.remaining = remainingFromProgress(info.Progress)
		c.initialized = true
		c.state = StateActive
		c.saveSnapshotLocked()
		c.emitLocked(Event{Kind: EventQuestion, Message: c.question})
		c.mu.Unlock()
		return nil
	default:
		err := fmt.Errorf("unknown session status %q", info.Status)
		c.fail("the interview is in an unexpected state", err)
		return err
	}
}

// Begin starts a pending interview and installs the first question.
func (c *Controller) Begin(ctx context.Context) error {
	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	var started *interview.Started
	err := transport.Retry(ctx, c.logger, c.policy, "start-interview", func(context.Context) error {
		var err error
		started, err = c.client.Start(c.sessionID)
		return err
	})
	if err != nil {
		c.fail("could not start the interview", err)
		return err
	}

	c.mu.Lock()
	c.question = started.FirstQuestion
	c.topic = started.CurrentTopic
	c.remaining = defaultRemainingSeconds
	c.initialized = true
	c.state = StateActive
	c.saveSnapshotLocked()
	c.emitLocked(Event{Kind: EventQuestion, Message: c.question})
	c.mu.Unlock()

	return nil
}

// SubmitAudio posts a recorded answer.
func (c *Controller) SubmitAudio(ctx context.Context, wav []byte) error {
	return c.submit(ctx, "process-answer", func() (*interview.AnswerResult, error) {
		return c.client.ProcessAnswer(c.sessionID, wav)
	})
}

// SubmitText posts a typed answer.
func (c *Controller) SubmitText(ctx context.Context, text string) error {
	return c.submit(ctx, "text-answer", func() (*interview.AnswerResult, error) {
		return c.client.TextAnswer(c.sessionID, text)
	})
}

func (c *Controller) submit(ctx context.Context, op string, call func() (*interview.AnswerResult, error)) error {
	c.mu.Lock()
	if c.state == StateComplete {
		// Repeating a submission after completion must not resubmit.
		c.mu.Unlock()
		return nil
	}
	if c.submitting {
		c.mu.Unlock()
		return ErrSubmissionInFlight
	}
	c.submitting = true
	c.state = StateAwaitingAnswer
	epoch := c.epoch
	c.mu.Unlock()

	var result *interview.AnswerResult
	err := transport.Retry(ctx, c.logger, c.policy, op, func(context.Context) error {
		var err error
		result, err = call()
		return err
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false

	if err != nil {
		msg := "the interview system is unavailable right now"
		var apiErr *interview.APIError
		switch {
		case errors.As(err, &apiErr) && !apiErr.Retryable():
			if apiErr.Detail != "" {
				msg = apiErr.Detail
			}
		case errors.Is(err, context.Canceled):
			// The candidate canceled; not a transport failure, so the audio
			// path stays available.
			msg = "answer submission canceled"
		default:
			// Transient failure exhausted its retries; fall back to typing so
			// the candidate is never stuck.
			c.useTextInput = true
		}

		c.userErr = msg
		if c.state != StateComplete {
			c.state = StateErrored
		}
		c.emitLocked(Event{Kind: EventError, Message: msg})
		return err
	}

	if c.epoch != epoch || c.state == StateComplete {
		// The session moved on while the answer was in flight.
		c.logger.Debug("dropping stale answer result")
		return nil
	}

	c.userErr = ""

	if result.Transcription != "" {
		c.emitLocked(Event{Kind: EventTranscription, Message: result.Transcription})
	}
	if result.AIResponse != "" {
		c.emitLocked(Event{Kind: EventFeedback, Message: result.AIResponse})
	}
	if result.Progress != nil {
		c.progress = result.Progress
		c.remaining = remainingFromProgress(result.Progress)
	}

	if result.Completed {
		c.completeLocked(result.Evaluation, result.Scores)
		return nil
	}

	if result.NextQuestion != "" {
		c.question = result.NextQuestion
	}
	c.state = StateActive
	c.saveSnapshotLocked()
	c.emitLocked(Event{Kind: EventQuestion, Message: c.question})

	return nil
}

// EndEarly terminates the interview with one final remote call. The caller is
// responsible for confirming the candidate really wants this.
func (c *Controller) EndEarly(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateComplete {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	err := transport.Retry(ctx, c.logger, c.policy, "end-interview", func(context.Context) error {
		return c.client.End(c.sessionID)
	})
	if err != nil {
		c.fail("could not end the interview", err)
		return err
	}

	c.mu.Lock()
	c.completeLocked(nil, nil)
	c.mu.Unlock()

	return nil
}

// completeLocked transitions to the terminal state, advancing the epoch so
// in-flight work is dropped, and removes the snapshot.
func (c *Controller) completeLocked(evaluation map[string]any, scores map[string]float64) {
	c.state = StateComplete
	c.evaluation = evaluation
	c.scores = scores
	c.epoch++

	if c.store != nil {
		if err := c.store.Delete(c.sessionID); err != nil {
			c.logger.Warn("removing snapshot", zap.Error(err))
		}
	}

	c.emitLocked(Event{Kind: EventCompleted, Message: "interview complete"})
}

func (c *Controller) fail(msg string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.userErr = msg
	if c.state != StateComplete {
		c.state = StateErrored
	}
	c.emitLocked(Event{Kind: EventError, Message: msg})

	c.logger.Warn(msg, zap.String(logfields.FieldState, c.state.String()), zap.Error(err))
}

// ClearError returns an errored session to the active state for an explicit
// user retry.
func (c *Controller) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateErrored {
		return
	}
	c.userErr = ""
	if c.initialized {
		c.state = StateActive
	} else {
		c.state = StateLoading
	}
}

// StartCountdown begins the per-second countdown. When the remaining time
// reaches zero, onExpire runs exactly once in its own goroutine; the caller
// uses it to stop recording and auto-submit.
func (c *Controller) StartCountdown(onExpire func()) {
	interval := c.tick
	if interval <= 0 {
		interval = time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-c.tickerStop:
				return
			case <-ticker.C:
			}

			c.mu.Lock()
			if c.closed || c.state == StateComplete {
				c.mu.Unlock()
				return
			}
			if !c.initialized {
				c.mu.Unlock()
				continue
			}
			if c.remaining > 0 {
				c.remaining--
			}
			expired := c.remaining <= 0
			c.mu.Unlock()

			if expired {
				c.expireOnce.Do(func() {
					if onExpire != nil {
						go onExpire()
					}
				})
				return
			}
		}
	}()
}

// Close stops the countdown and closes the event queue. Safe to call from
// any exit path, repeatedly.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		close(c.tickerStop)

		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		close(c.events)
	})
}

// emitLocked queues an event without blocking; callers hold c.mu. Events are
// dropped when the view is not draining the queue.
func (c *Controller) emitLocked(ev Event) {
	if c.closed {
		return
	}

	select {
	case c.events <- ev:
	default:
	}
}

func (c *Controller) saveSnapshotLocked() {
	if c.store == nil {
		return
	}

	snap := Snapshot{
		CurrentQuestion:  c.question,
		CurrentTopic:     c.topic,
		Progress:         c.progress,
		RemainingSeconds: c.remaining,
		Initialized:      c.initialized,
	}

	if err := c.store.Save(c.sessionID, snap); err != nil {
		// Snapshots are opportunistic; losing one only costs resumability.
		c.logger.Warn("saving snapshot", zap.Error(err))
	}
}

func remainingFromProgress(p *interview.Progress) int {
	if p == nil || p.MaxDurationMinutes <= 0 {
		return defaultRemainingSeconds
	}

	remaining := int((p.MaxDurationMinutes - p.ElapsedMinutes) * 60)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Accessors below return copies of the mutable state for rendering.

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Question() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.question
}

func (c *Controller) Topic() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.topic
}

func (c *Controller) Progress() *interview.Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.progress == nil {
		return nil
	}
	p := *c.progress
	return &p
}

func (c *Controller) RemainingSeconds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func (c *Controller) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

func (c *Controller) UseTextInput() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.useTextInput
}

func (c *Controller) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userErr
}

func (c *Controller) Evaluation() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evaluation
}

func (c *Controller) Scores() map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scores
}
