// Package recording drives one recording attempt from negotiation to the
// finished output file.
package recording

import (
	"context"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/xsync"

	"github.com/kartoza/kartoza-portal-recorder/internal/experimental"
	"github.com/kartoza/kartoza-portal-recorder/internal/media"
	"github.com/kartoza/kartoza-portal-recorder/internal/models"
	"github.com/kartoza/kartoza-portal-recorder/internal/portal"
	"github.com/kartoza/kartoza-portal-recorder/internal/profile"
	"github.com/kartoza/kartoza-portal-recorder/internal/queue"
	"github.com/kartoza/kartoza-portal-recorder/internal/recerr"
	"github.com/kartoza/kartoza-portal-recorder/internal/resource"
	"github.com/kartoza/kartoza-portal-recorder/internal/timer"
)

// DurationUpdateInterval is how often the graph position is polled
const DurationUpdateInterval = 200 * time.Millisecond

// Negotiator obtains the capture grant
type Negotiator interface {
	Negotiate(ctx context.Context, opts models.CaptureOptions, parentWindow string) (*portal.NegotiationResult, error)
	CloseInBackground(ctx context.Context, s *portal.Session)
}

// AreaSelector asks the user for the part of the streams to record
type AreaSelector interface {
	SelectArea(ctx context.Context, transfer *os.File, streams []models.Stream) (models.CropData, error)
}

// AudioFinder resolves the default audio devices
type AudioFinder interface {
	DefaultSpeaker(ctx context.Context) (string, error)
	DefaultMic(ctx context.Context) (string, error)
}

// Dependencies are the collaborators of a Controller. Inspector, Catalog,
// Features and Clock are optional.
type Dependencies struct {
	Negotiator   Negotiator
	AreaSelector AreaSelector
	Audio        AudioFinder
	Launcher     media.Launcher
	Inspector    media.Inspector
	Catalog      *profile.Catalog
	Features     experimental.Features
	Clock        clock.Clock
}

// Option configures a Controller
type Option func(*Controller)

// OptionDurationUpdateInterval overrides DurationUpdateInterval
func OptionDurationUpdateInterval(d time.Duration) Option {
	return func(c *Controller) {
		c.pollInterval = d
	}
}

type snapshot struct {
	state      models.State
	duration   time.Duration
	outputPath string
	streams    []models.Stream
	selection  *models.Rect
	result     *models.CompletedRecording
	err        error
}

// Controller is the state machine of a single recording. All mutable
// state is owned by one loop goroutine; the public methods post work to it.
// A finished controller cannot be restarted.
type Controller struct {
	deps         Dependencies
	clock        clock.Clock
	pollInterval time.Duration

	cmds   chan func(ctx context.Context)
	events *queue.Unbounded[Event]
	done   chan struct{}

	snapshotLocker xsync.Mutex
	snapshot       snapshot

	// owned by the loop
	state          models.State
	duration       time.Duration
	startRequested bool
	cancelling     bool
	cancelStart    context.CancelFunc
	deferred       []func(ctx context.Context)

	negotiation *resource.Slot[*portal.NegotiationResult]
	timer       *timer.Timer
	ticks       <-chan uint64
	pipeline    media.Pipeline
	messages    <-chan media.Message
	outputPath  string
	sawEOS      bool

	hasStart    bool
	startedAt   time.Time
	pausedAt    time.Time
	pausedTotal time.Duration
	expected    time.Duration
}

// New returns a controller in the init state. Its loop runs until the
// recording finishes or ctx is done, which cancels the recording. Events
// nobody received are dropped once the recording finished and ctx is done.
func New(ctx context.Context, deps Dependencies, opts ...Option) *Controller {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	c := &Controller{
		deps:         deps,
		clock:        deps.Clock,
		pollInterval: DurationUpdateInterval,
		cmds:         make(chan func(ctx context.Context)),
		events:       queue.NewUnbounded[Event](context.WithoutCancel(ctx)),
		done:         make(chan struct{}),
		state:        models.State{Kind: models.StateInit},
		negotiation:  &resource.Slot[*portal.NegotiationResult]{},
	}
	c.snapshot.state = c.state
	for _, opt := range opts {
		opt(c)
	}

	ticker := c.clock.Ticker(c.pollInterval)
	observability.Go(ctx, func(ctx context.Context) {
		defer ticker.Stop()
		c.run(ctx, ticker.C)
		<-ctx.Done()
		c.events.Discard()
	})
	return c
}

// Events delivers state, duration and finish notifications in order. It
// is closed after EventFinished.
func (c *Controller) Events() <-chan Event {
	return c.events.Out()
}

// Done is closed once the recording finished
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// State returns the current state
func (c *Controller) State() models.State {
	return xsync.DoR1(context.Background(), &c.snapshotLocker, func() models.State {
		return c.snapshot.state
	})
}

// Duration returns the recorded media time
func (c *Controller) Duration() time.Duration {
	return xsync.DoR1(context.Background(), &c.snapshotLocker, func() time.Duration {
		return c.snapshot.duration
	})
}

// OutputPath returns the file being written, empty until the graph exists
func (c *Controller) OutputPath() string {
	return xsync.DoR1(context.Background(), &c.snapshotLocker, func() string {
		return c.snapshot.outputPath
	})
}

// Streams returns the granted streams, nil until the negotiation succeeded
func (c *Controller) Streams() []models.Stream {
	return xsync.DoR1(context.Background(), &c.snapshotLocker, func() []models.Stream {
		return c.snapshot.streams
	})
}

// Selection returns the selected area, nil unless an area was selected
func (c *Controller) Selection() *models.Rect {
	return xsync.DoR1(context.Background(), &c.snapshotLocker, func() *models.Rect {
		return c.snapshot.selection
	})
}

// Result returns the outcome. It is only meaningful after Done is closed.
func (c *Controller) Result() (*models.CompletedRecording, error) {
	return xsync.DoR2(context.Background(), &c.snapshotLocker, func() (*models.CompletedRecording, error) {
		return c.snapshot.result, c.snapshot.err
	})
}

func (c *Controller) run(ctx context.Context, pollC <-chan time.Time) {
	defer close(c.done)
	defer c.events.Close()

	ctxDone := ctx.Done()
	for !c.state.Kind.IsTerminal() {
		select {
		case fn := <-c.cmds:
			fn(ctx)
		case secs, ok := <-c.ticks:
			if !ok {
				c.ticks = nil
				continue
			}
			c.onTimerTick(ctx, secs)
		case m, ok := <-c.messages:
			if !ok {
				c.messages = nil
				c.onMessagesClosed(ctx)
				continue
			}
			c.onMessage(ctx, m)
		case <-pollC:
			c.updateDuration(ctx)
		case <-ctxDone:
			ctxDone = nil
			logger.Debugf(ctx, "context done, cancelling the recording")
			c.cancel(context.WithoutCancel(ctx))
		}

		for len(c.deferred) > 0 {
			fn := c.deferred[0]
			c.deferred = c.deferred[1:]
			fn(ctx)
		}
	}
	logger.Debugf(ctx, "recording loop finished")
}

// call runs fn on the loop and returns its error. After the loop ended
// every call is an invalid transition.
func (c *Controller) call(op string, fn func(ctx context.Context) error) error {
	errCh := make(chan error, 1)
	select {
	case c.cmds <- func(ctx context.Context) { errCh <- fn(ctx) }:
		return <-errCh
	case <-c.done:
		return recerr.InvalidTransition(op, c.State())
	}
}

// post runs fn on the loop and reports whether it returned true; false
// if the loop already ended
func (c *Controller) post(fn func(ctx context.Context) bool) bool {
	okCh := make(chan bool, 1)
	select {
	case c.cmds <- func(ctx context.Context) { okCh <- fn(ctx) }:
		return <-okCh
	case <-c.done:
		return false
	}
}

// Pause pauses a running recording
func (c *Controller) Pause() error {
	const op = "pause"
	return c.call(op, func(ctx context.Context) error {
		if c.cancelling || c.state.Kind != models.StateRecording || c.pipeline == nil {
			return recerr.InvalidTransition(op, c.state)
		}
		if err := c.pipeline.Pause(ctx); err != nil {
			return recerr.Runtime(op, err)
		}
		return nil
	})
}

// Resume continues a paused recording
func (c *Controller) Resume() error {
	const op = "resume"
	return c.call(op, func(ctx context.Context) error {
		if c.cancelling || c.state.Kind != models.StatePaused || c.pipeline == nil {
			return recerr.InvalidTransition(op, c.state)
		}
		if err := c.pipeline.Resume(ctx); err != nil {
			return recerr.Runtime(op, err)
		}
		return nil
	})
}

// Stop ends the recording gracefully; the controller is flushing until
// the output file is finalized
func (c *Controller) Stop() error {
	const op = "stop"
	return c.call(op, func(ctx context.Context) error {
		switch c.state.Kind {
		case models.StateInit, models.StateFlushing, models.StateFinished:
			return recerr.InvalidTransition(op, c.state)
		}
		if c.cancelling {
			return recerr.InvalidTransition(op, c.state)
		}

		now := c.clock.Now()
		if c.state.Kind == models.StatePaused {
			c.pausedTotal += now.Sub(c.pausedAt)
		}
		if c.hasStart {
			c.expected = now.Sub(c.startedAt) - c.pausedTotal
		}
		logger.Debugf(ctx, "stopping, expected duration %v", c.expected)
		c.setState(ctx, models.State{Kind: models.StateFlushing})

		if c.pipeline == nil {
			logger.Debugf(ctx, "stopped before the pipeline existed, nothing to flush")
			c.cancel(ctx)
			return nil
		}
		if err := c.pipeline.SendEOS(ctx); err != nil {
			c.fail(ctx, recerr.Runtime(op, err))
		}
		return nil
	})
}

// Cancel aborts the recording and deletes the partial output. The
// controller finishes with a Cancelled error on its next loop turn.
func (c *Controller) Cancel() error {
	const op = "cancel"
	return c.call(op, func(ctx context.Context) error {
		if c.state.Kind.IsTerminal() {
			return recerr.InvalidTransition(op, c.state)
		}
		c.cancel(ctx)
		return nil
	})
}

func (c *Controller) cancel(ctx context.Context) {
	if c.cancelling {
		return
	}
	c.cancelling = true
	logger.Debugf(ctx, "cancelling recording in state %s", c.state)

	c.teardown(ctx, true)
	c.deleteFile(ctx)
	c.deferred = append(c.deferred, func(ctx context.Context) {
		c.finish(ctx, nil, recerr.Cancelled("recording"))
	})
}

func (c *Controller) setState(ctx context.Context, s models.State) {
	if s == c.state {
		return
	}
	logger.Debugf(ctx, "state: %s -> %s", c.state, s)
	c.state = s
	c.snapshotLocker.Do(ctx, func() {
		c.snapshot.state = s
	})
	c.events.Push(Event{Kind: EventStateChanged, State: s})
}

func (c *Controller) setDuration(ctx context.Context, d time.Duration) {
	if d == c.duration {
		return
	}
	c.duration = d
	c.snapshotLocker.Do(ctx, func() {
		c.snapshot.duration = d
	})
	c.events.Push(Event{Kind: EventDurationChanged, Duration: d})
}

func (c *Controller) setOutputPath(ctx context.Context, path string) {
	c.outputPath = path
	c.snapshotLocker.Do(ctx, func() {
		c.snapshot.outputPath = path
	})
}

// finish moves to the terminal state; only the first call counts
func (c *Controller) finish(ctx context.Context, result *models.CompletedRecording, err error) {
	if c.state.Kind.IsTerminal() {
		return
	}
	if c.cancelStart != nil {
		c.cancelStart()
	}
	c.ticks = nil
	c.messages = nil

	switch {
	case err == nil:
		logger.Debugf(ctx, "recording finished: %s (%v)", result.Path, result.Duration)
	case recerr.IsCancelled(err):
		logger.Debugf(ctx, "recording cancelled: %v", err)
	default:
		logger.Errorf(ctx, "recording failed: %v", err)
	}

	c.snapshotLocker.Do(ctx, func() {
		c.snapshot.result = result
		c.snapshot.err = err
	})
	c.setState(ctx, models.State{Kind: models.StateFinished})
	c.events.Push(Event{Kind: EventFinished, Result: result, Err: err})
}

// fail tears everything down and finishes with err
func (c *Controller) fail(ctx context.Context, err error) {
	if c.state.Kind.IsTerminal() || c.cancelling {
		return
	}
	c.teardown(ctx, true)
	c.deleteFile(ctx)
	c.finish(ctx, nil, err)
}

func (c *Controller) deleteFile(ctx context.Context) {
	if c.outputPath == "" {
		return
	}
	if err := os.Remove(c.outputPath); err != nil && !os.IsNotExist(err) {
		logger.Warnf(ctx, "failed to delete recording file %s: %v", c.outputPath, err)
		return
	}
	logger.Debugf(ctx, "deleted %s", c.outputPath)
}
