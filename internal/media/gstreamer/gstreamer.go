// Package gstreamer runs media graphs inside the process with GStreamer.
package gstreamer

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/go-gst/go-glib/glib"
	"github.com/go-gst/go-gst/gst"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/xsync"

	"github.com/kartoza/kartoza-portal-recorder/internal/media"
	"github.com/kartoza/kartoza-portal-recorder/internal/queue"
)

var initOnce sync.Once

// Init initializes GStreamer and starts the main loop that dispatches bus
// watches. Later calls do nothing.
func Init(ctx context.Context) {
	initOnce.Do(func() {
		gst.Init(nil)
		loop := glib.NewMainLoop(glib.MainContextDefault(), false)
		observability.Go(context.WithoutCancel(ctx), func(ctx context.Context) {
			logger.Debugf(ctx, "GStreamer main loop started")
			loop.Run()
		})
	})
}

// Launcher builds GStreamer pipelines from graphs
type Launcher struct{}

var _ media.Launcher = (*Launcher)(nil)

// NewLauncher initializes GStreamer and returns a launcher
func NewLauncher(ctx context.Context) *Launcher {
	Init(ctx)
	return &Launcher{}
}

// Launch implements media.Launcher. The pipeline stays in NULL until Play.
func (l *Launcher) Launch(ctx context.Context, g *media.Graph, outputPath string) (media.Pipeline, error) {
	desc := g.Describe()
	if desc == "" {
		return nil, fmt.Errorf("the graph is empty")
	}
	logger.Debugf(ctx, "pipeline: %s", desc)

	pipeline, err := gst.NewPipelineFromString(desc)
	if err != nil {
		return nil, fmt.Errorf("failed to construct the pipeline: %w", err)
	}
	return &Pipeline{
		pipeline:   pipeline,
		name:       pipeline.GetName(),
		files:      g.Files(),
		outputPath: outputPath,
		messages:   queue.NewUnbounded[media.Message](context.WithoutCancel(ctx)),
	}, nil
}

type pipelineState int

const (
	pipelineIdle pipelineState = iota
	pipelinePlaying
	pipelinePaused
	pipelineDraining
	pipelineStopped
)

// Pipeline is a media.Pipeline backed by a gst.Pipeline. Bus messages are
// delivered by the main loop started in Init.
type Pipeline struct {
	pipeline   *gst.Pipeline
	name       string
	outputPath string
	messages   *queue.Unbounded[media.Message]

	// read by fdsrc elements until the pipeline stops
	files []*os.File

	locker xsync.Mutex
	state  pipelineState
}

var _ media.Pipeline = (*Pipeline)(nil)

// OutputPath implements media.Pipeline
func (p *Pipeline) OutputPath() string {
	return p.outputPath
}

// Messages implements media.Pipeline
func (p *Pipeline) Messages() <-chan media.Message {
	return p.messages.Out()
}

// Play implements media.Pipeline
func (p *Pipeline) Play(ctx context.Context) error {
	return xsync.DoR1(ctx, &p.locker, func() error {
		if p.state != pipelineIdle {
			return fmt.Errorf("pipeline already started")
		}
		watchCtx := context.WithoutCancel(ctx)
		p.pipeline.GetPipelineBus().AddWatch(func(msg *gst.Message) bool {
			return p.onMessage(watchCtx, msg)
		})
		if err := p.pipeline.SetState(gst.StatePlaying); err != nil {
			return fmt.Errorf("failed to set the pipeline to playing: %w", err)
		}
		p.state = pipelinePlaying
		return nil
	})
}

func (p *Pipeline) onMessage(ctx context.Context, msg *gst.Message) bool {
	m, ok := convert(msg, p.name)
	if !ok {
		return true
	}
	logger.Tracef(ctx, "bus: %s", m)
	return xsync.DoR1(ctx, &p.locker, func() bool {
		if p.state == pipelineStopped {
			return false
		}
		p.messages.Push(m)
		if m.Kind != media.MessageEOS {
			return true
		}
		if err := p.pipeline.SetState(gst.StateNull); err != nil {
			logger.Warnf(ctx, "unable to stop the drained pipeline: %v", err)
		}
		p.state = pipelineStopped
		p.messages.Close()
		return false
	})
}

// Pause implements media.Pipeline. Sources stop producing while paused, so
// the paused span is absent from the output.
func (p *Pipeline) Pause(ctx context.Context) error {
	return xsync.DoR1(ctx, &p.locker, func() error {
		if p.state != pipelinePlaying {
			return fmt.Errorf("pipeline is not playing")
		}
		if err := p.pipeline.SetState(gst.StatePaused); err != nil {
			return fmt.Errorf("failed to pause the pipeline: %w", err)
		}
		p.state = pipelinePaused
		return nil
	})
}

// Resume implements media.Pipeline
func (p *Pipeline) Resume(ctx context.Context) error {
	return xsync.DoR1(ctx, &p.locker, func() error {
		if p.state != pipelinePaused {
			return fmt.Errorf("pipeline is not paused")
		}
		if err := p.pipeline.SetState(gst.StatePlaying); err != nil {
			return fmt.Errorf("failed to resume the pipeline: %w", err)
		}
		p.state = pipelinePlaying
		return nil
	})
}

// SendEOS implements media.Pipeline. A paused pipeline is set playing
// first, since a paused pipeline does not move the event downstream.
func (p *Pipeline) SendEOS(ctx context.Context) error {
	return xsync.DoR1(ctx, &p.locker, func() error {
		switch p.state {
		case pipelinePaused:
			if err := p.pipeline.SetState(gst.StatePlaying); err != nil {
				return fmt.Errorf("failed to resume the pipeline: %w", err)
			}
		case pipelinePlaying:
		default:
			return fmt.Errorf("pipeline is not running")
		}
		if !p.pipeline.SendEvent(gst.NewEOSEvent()) {
			return fmt.Errorf("the pipeline did not accept the end of stream")
		}
		p.state = pipelineDraining
		return nil
	})
}

// Halt implements media.Pipeline. Undelivered messages are dropped.
func (p *Pipeline) Halt(ctx context.Context) error {
	return xsync.DoR1(ctx, &p.locker, func() error {
		if p.state == pipelineStopped {
			return nil
		}
		p.state = pipelineStopped
		p.messages.Discard()
		if err := p.pipeline.SetState(gst.StateNull); err != nil {
			return fmt.Errorf("failed to stop the pipeline: %w", err)
		}
		return nil
	})
}

// Position implements media.Pipeline with a position query, so time spent
// paused is not counted.
func (p *Pipeline) Position(ctx context.Context) (time.Duration, bool) {
	return xsync.DoR2(ctx, &p.locker, func() (time.Duration, bool) {
		switch p.state {
		case pipelinePlaying, pipelinePaused, pipelineDraining:
		default:
			return 0, false
		}
		ok, pos := p.pipeline.QueryPosition(gst.FormatTime)
		if !ok || pos < 0 {
			return 0, false
		}
		return time.Duration(pos), true
	})
}

func convert(msg *gst.Message, pipelineName string) (media.Message, bool) {
	m := media.Message{Source: msg.Source()}
	m.FromPipeline = m.Source == pipelineName

	switch msg.Type() {
	case gst.MessageStateChanged:
		from, to := msg.ParseStateChanged()
		m.Kind = media.MessageStateChanged
		m.OldState, m.NewState = playState(from), playState(to)
	case gst.MessageAsyncDone:
		m.Kind = media.MessageAsyncDone
	case gst.MessageEOS:
		m.Kind = media.MessageEOS
	case gst.MessageError:
		m.Kind = media.MessageError
		describe(&m, msg.ParseError())
	case gst.MessageWarning:
		m.Kind = media.MessageWarning
		describe(&m, msg.ParseWarning())
	case gst.MessageInfo:
		m.Kind = media.MessageInfo
		describe(&m, msg.ParseInfo())
	default:
		return m, false
	}
	return m, true
}

func describe(m *media.Message, gerr *gst.GError) {
	if gerr == nil {
		return
	}
	m.Text = gerr.Error()
	m.Debug = gerr.DebugString()
}

func playState(s gst.State) media.PlayState {
	switch s {
	case gst.StateNull:
		return media.PlayStateNull
	case gst.StateReady:
		return media.PlayStateReady
	case gst.StatePaused:
		return media.PlayStatePaused
	case gst.StatePlaying:
		return media.PlayStatePlaying
	}
	return media.PlayStateVoid
}

// Inspector looks element factories up in the GStreamer registry
type Inspector struct{}

var _ media.Inspector = (*Inspector)(nil)

// NewInspector initializes GStreamer and returns a registry inspector
func NewInspector(ctx context.Context) *Inspector {
	Init(ctx)
	return &Inspector{}
}

// HasFactory implements media.Inspector
func (i *Inspector) HasFactory(ctx context.Context, factory string) bool {
	if gst.Find(factory) == nil {
		logger.Debugf(ctx, "element factory %q is not available", factory)
		return false
	}
	return true
}
