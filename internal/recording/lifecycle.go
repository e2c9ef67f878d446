package recording

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/observability"

	"github.com/kartoza/kartoza-portal-recorder/internal/experimental"
	"github.com/kartoza/kartoza-portal-recorder/internal/media"
	"github.com/kartoza/kartoza-portal-recorder/internal/models"
	"github.com/kartoza/kartoza-portal-recorder/internal/pipeline"
	"github.com/kartoza/kartoza-portal-recorder/internal/portal"
	"github.com/kartoza/kartoza-portal-recorder/internal/profile"
	"github.com/kartoza/kartoza-portal-recorder/internal/recerr"
	"github.com/kartoza/kartoza-portal-recorder/internal/timer"
)

const (
	helpBroker       = "Make sure that xdg-desktop-portal and a portal backend for your desktop are running."
	helpPlugin       = "A GStreamer plugin may not be installed."
	helpSaveLocation = "Make sure that the saving location exists and is accessible."
)

// Start begins the recording in the background. It only fails if the
// controller was already started; everything else ends in EventFinished.
// A dismissed permission dialog or area selection finishes with a
// Cancelled error that wraps the UserCancelled cause.
func (c *Controller) Start(ctx context.Context, parentWindow string, settings Settings) error {
	const op = "start"
	return c.call(op, func(loopCtx context.Context) error {
		if c.state.Kind != models.StateInit || c.startRequested || c.cancelling {
			return recerr.InvalidTransition(op, c.state)
		}
		c.startRequested = true

		startCtx, cancel := context.WithCancel(loopCtx)
		c.cancelStart = cancel
		observability.Go(startCtx, func(ctx context.Context) {
			if err := c.start(ctx, parentWindow, settings); err != nil {
				c.post(func(ctx context.Context) bool {
					c.fail(ctx, err)
					return true
				})
			}
		})
		return nil
	})
}

// start runs the steps of a recording that wait on collaborators. Each
// result is handed to the loop, which drops it if the recording was
// cancelled in the meantime.
func (c *Controller) start(ctx context.Context, parentWindow string, settings Settings) error {
	p, err := c.profile(ctx, settings.ProfileID())
	if err != nil {
		return err
	}

	restoreToken := settings.RestoreToken()
	if err := settings.SetRestoreToken(""); err != nil {
		logger.Warnf(ctx, "failed to clear the restore token: %v", err)
	}

	res, err := c.deps.Negotiator.Negotiate(ctx, c.captureOptions(settings, restoreToken), parentWindow)
	if err != nil {
		if recerr.IsCancelled(err) {
			return dismissed("negotiate", err)
		}
		return fmt.Errorf("failed to start recording: %w", withHelp(err, helpBroker))
	}
	if !c.post(func(ctx context.Context) bool { return c.adoptNegotiation(ctx, res) }) {
		c.releaseNegotiation(ctx, res)
		return nil
	}
	if err := settings.SetRestoreToken(res.RestoreToken); err != nil {
		logger.Warnf(ctx, "failed to save the restore token: %v", err)
	}

	var crop *models.CropData
	if settings.CaptureMode() == models.CaptureSelection {
		if c.deps.AreaSelector == nil {
			return recerr.Config("select area", "no area selector available")
		}
		data, err := c.deps.AreaSelector.SelectArea(ctx, res.Transfer.File(), res.Streams)
		if err != nil {
			if recerr.IsCancelled(err) {
				return dismissed("select area", err)
			}
			return err
		}
		crop = &data
		c.snapshotLocker.Do(ctx, func() {
			c.snapshot.selection = &data.SelectionRect
		})
	}

	t := timer.New(c.clock, settings.RecordDelay())
	if !c.post(func(ctx context.Context) bool { return c.adoptTimer(ctx, t) }) {
		return nil
	}
	t.Start(ctx)
	if err := t.Wait(ctx); err != nil {
		return err
	}

	framerate := models.NewFraction(p.Framerate(settings.Framerate()))
	outputPath := pipeline.OutputPath(settings.SavingLocation(), p, c.clock.Now())
	builder := pipeline.NewBuilder(outputPath, framerate, p, res.Transfer.File(), res.Streams)
	if crop != nil {
		builder.SelectArea(*crop)
	}
	if p.SupportsAudio() && (settings.RecordMic() || settings.RecordSpeaker()) && c.deps.Audio == nil {
		return recerr.Config("find audio sources", "no audio device finder available")
	}
	if p.SupportsAudio() {
		if settings.RecordMic() {
			mic, err := c.deps.Audio.DefaultMic(ctx)
			if err != nil {
				return fmt.Errorf("no microphone source found: %w", err)
			}
			builder.MicSource(mic)
		}
		if settings.RecordSpeaker() {
			speaker, err := c.deps.Audio.DefaultSpeaker(ctx)
			if err != nil {
				return fmt.Errorf("no desktop speaker source found: %w", err)
			}
			builder.SpeakerSource(speaker)
		}
	}

	g, err := builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("failed to start recording: %w", withHelp(err, helpPlugin))
	}
	pl, err := c.deps.Launcher.Launch(ctx, g, outputPath)
	if err != nil {
		return fmt.Errorf("failed to start recording: %w", withHelp(recerr.Runtime("launch pipeline", err), helpPlugin))
	}
	if !c.post(func(ctx context.Context) bool { return c.adoptPipeline(ctx, pl) }) {
		if err := pl.Halt(ctx); err != nil {
			logger.Warnf(ctx, "failed to stop the abandoned pipeline: %v", err)
		}
	}
	return nil
}

func (c *Controller) profile(ctx context.Context, id string) (*profile.Profile, error) {
	catalog := c.deps.Catalog
	if catalog == nil {
		var err error
		if catalog, err = profile.Builtin(); err != nil {
			return nil, err
		}
	}
	if id == "" {
		return nil, recerr.Config("start", "no active profile")
	}
	p, err := catalog.Get(id)
	if err != nil {
		return nil, err
	}
	if c.deps.Inspector != nil && !p.IsAvailable(ctx, c.deps.Inspector) {
		return nil, recerr.Config("start", fmt.Sprintf("profile %q is not available", p.ID)).WithHelp(helpPlugin)
	}
	return p, nil
}

func (c *Controller) captureOptions(settings Settings, restoreToken string) models.CaptureOptions {
	opts := models.CaptureOptions{
		CursorMode:    models.CursorHidden,
		SourceTypes:   models.SourceMonitor,
		AllowMultiple: c.deps.Features.Enabled(experimental.MultipleVideoSources),
		RestoreToken:  restoreToken,
		PersistMode:   models.PersistExplicitlyRevoked,
	}
	if settings.ShowPointer() {
		opts.CursorMode = models.CursorEmbedded
	}
	if c.deps.Features.Enabled(experimental.WindowRecording) {
		opts.SourceTypes |= models.SourceWindow
	}
	return opts
}

// dismissed turns a user dismissal into a plain cancellation
func dismissed(op string, err error) error {
	if errors.Is(err, recerr.ErrUserCancelled) {
		return recerr.Wrap(err, recerr.KindCancelled, op)
	}
	return err
}

// withHelp attaches help to the recording error in err unless it already has some
func withHelp(err error, help string) error {
	var e *recerr.Error
	if !errors.As(err, &e) {
		return recerr.Runtime("", err).WithHelp(help)
	}
	if recerr.HelpOf(err) == "" {
		e.WithHelp(help)
	}
	return err
}

func (c *Controller) adoptNegotiation(ctx context.Context, res *portal.NegotiationResult) bool {
	if c.cancelling || c.state.Kind.IsTerminal() {
		return false
	}
	c.negotiation.Put(ctx, res)
	c.snapshotLocker.Do(ctx, func() {
		c.snapshot.streams = res.Streams
	})
	logger.Debugf(ctx, "negotiated %d stream(s)", len(res.Streams))
	return true
}

func (c *Controller) adoptTimer(ctx context.Context, t *timer.Timer) bool {
	if c.cancelling || c.state.Kind.IsTerminal() {
		return false
	}
	c.timer = t
	c.ticks = t.Ticks()
	return true
}

func (c *Controller) adoptPipeline(ctx context.Context, pl media.Pipeline) bool {
	if c.cancelling || c.state.Kind.IsTerminal() {
		return false
	}
	c.pipeline = pl
	c.messages = pl.Messages()
	c.ticks = nil
	c.setOutputPath(ctx, pl.OutputPath())

	if err := pl.Play(ctx); err != nil {
		c.fail(ctx, fmt.Errorf("failed to initialize pipeline state to playing: %w",
			recerr.Runtime("play", err).WithHelp(helpSaveLocation)))
		return true
	}
	c.updateDuration(ctx)
	return true
}

func (c *Controller) releaseNegotiation(ctx context.Context, res *portal.NegotiationResult) {
	c.deps.Negotiator.CloseInBackground(ctx, res.Session)
	if err := res.Transfer.Close(); err != nil {
		logger.Warnf(ctx, "failed to close the stream transfer handle: %v", err)
	}
}

// teardown stops the timer and the graph and closes the session in the
// background. Failures are logged only.
func (c *Controller) teardown(ctx context.Context, halt bool) {
	var result *multierror.Error

	if c.cancelStart != nil {
		c.cancelStart()
	}
	if c.timer != nil {
		c.timer.Cancel()
	}
	if c.pipeline != nil && halt {
		if err := c.pipeline.Halt(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to stop the pipeline: %w", err))
		}
	}
	err := c.negotiation.Release(ctx, func(res *portal.NegotiationResult) error {
		c.deps.Negotiator.CloseInBackground(ctx, res.Session)
		if err := res.Transfer.Close(); err != nil {
			return fmt.Errorf("failed to close the stream transfer handle: %w", err)
		}
		return nil
	})
	if err != nil {
		result = multierror.Append(result, err)
	}

	if err := result.ErrorOrNil(); err != nil {
		logger.Warnf(ctx, "cleanup: %v", err)
	}
}

func (c *Controller) onTimerTick(ctx context.Context, secsLeft uint64) {
	if c.cancelling || c.pipeline != nil || secsLeft == 0 {
		return
	}
	switch c.state.Kind {
	case models.StateInit, models.StateDelayed:
		c.setState(ctx, models.State{Kind: models.StateDelayed, SecsLeft: secsLeft})
	}
}

func (c *Controller) markStart(ctx context.Context, reason string) {
	if c.hasStart {
		return
	}
	c.hasStart = true
	c.startedAt = c.clock.Now()
	logger.Debugf(ctx, "recording started (%s)", reason)
}

func (c *Controller) onMessage(ctx context.Context, m media.Message) {
	if c.cancelling || c.state.Kind.IsTerminal() {
		return
	}

	switch m.Kind {
	case media.MessageAsyncDone:
		c.markStart(ctx, "async-done")

	case media.MessageStateChanged:
		if !m.FromPipeline {
			logger.Tracef(ctx, "%s", m)
			return
		}
		logger.Debugf(ctx, "pipeline changed state from %s to %s", m.OldState, m.NewState)
		if c.state.Kind == models.StateFlushing {
			return
		}
		switch m.NewState {
		case media.PlayStatePaused:
			if c.state.Kind == models.StateRecording {
				c.pausedAt = c.clock.Now()
				c.setState(ctx, models.State{Kind: models.StatePaused})
			}
		case media.PlayStatePlaying:
			c.markStart(ctx, "playing")
			if c.state.Kind == models.StatePaused {
				c.pausedTotal += c.clock.Since(c.pausedAt)
			}
			c.setState(ctx, models.State{Kind: models.StateRecording})
		}

	case media.MessageEOS:
		logger.Debugf(ctx, "end of stream")
		if c.state.Kind != models.StateFlushing {
			logger.Errorf(ctx, "received end of stream in state %s", c.state)
		}
		c.sawEOS = true
		c.updateDuration(ctx)
		c.setState(ctx, models.State{Kind: models.StateFlushing, Progress: 100})

	case media.MessageError:
		logger.Debugf(ctx, "pipeline error in state %s: %s (%s)", c.state, m.Text, m.Debug)
		c.fail(ctx, c.runtimeError(m))

	case media.MessageWarning:
		logger.Warnf(ctx, "pipeline warning: %s", m)

	case media.MessageInfo:
		logger.Debugf(ctx, "pipeline info: %s", m)
	}
}

// onMessagesClosed finishes the recording once the graph is gone. After
// end of stream this is the point where the file is complete.
func (c *Controller) onMessagesClosed(ctx context.Context) {
	if c.cancelling || c.state.Kind.IsTerminal() {
		return
	}
	if !c.sawEOS {
		c.fail(ctx, recerr.New(recerr.KindRuntime, "record", "the pipeline stopped unexpectedly"))
		return
	}
	c.teardown(ctx, false)
	c.finish(ctx, &models.CompletedRecording{
		Path:     c.outputPath,
		Duration: c.duration,
	}, nil)
}

func (c *Controller) runtimeError(m media.Message) error {
	err := recerr.New(recerr.KindRuntime, "record", "an error occurred while recording: "+m.Text)
	if m.Debug != "" {
		err.Cause = fmt.Errorf("%s", m.Debug)
	}
	if m.IsOpenWriteFailure() {
		dir := filepath.Dir(c.outputPath)
		err.Message = fmt.Sprintf("failed to open %q for writing", dir)
		err.WithHelp(helpSaveLocation)
	}
	return err
}

// updateDuration polls the graph position. An unknown position keeps the
// last value.
func (c *Controller) updateDuration(ctx context.Context) {
	if c.pipeline == nil || c.state.Kind.IsTerminal() {
		return
	}
	if d, ok := c.pipeline.Position(ctx); ok {
		c.setDuration(ctx, d)
	}
	if c.state.Kind == models.StateFlushing {
		if progress := c.flushProgress(); progress > c.state.Progress {
			c.setState(ctx, models.State{Kind: models.StateFlushing, Progress: progress})
		}
	}
}

func (c *Controller) flushProgress() int {
	if c.sawEOS {
		return 100
	}
	if c.expected <= 0 {
		return 0
	}
	return FlushProgress(c.duration, c.expected)
}

// FlushProgress is the share of expected already written, in whole
// percent clamped to [0, 100]
func FlushProgress(written, expected time.Duration) int {
	if expected <= 0 {
		return 0
	}
	p := math.Round(float64(written) / float64(expected) * 100)
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return int(p)
}
