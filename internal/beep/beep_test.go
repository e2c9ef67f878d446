package beep

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartoza/kartoza-portal-recorder/internal/media"
)

type tonePipeline struct {
	messages chan media.Message
	played   bool
	halted   bool
}

func newTonePipeline(msgs ...media.Message) *tonePipeline {
	p := &tonePipeline{messages: make(chan media.Message, len(msgs))}
	for _, m := range msgs {
		p.messages <- m
	}
	return p
}

func (p *tonePipeline) Play(ctx context.Context) error    { p.played = true; return nil }
func (p *tonePipeline) Pause(ctx context.Context) error   { return nil }
func (p *tonePipeline) Resume(ctx context.Context) error  { return nil }
func (p *tonePipeline) SendEOS(ctx context.Context) error { return nil }
func (p *tonePipeline) Halt(ctx context.Context) error    { p.halted = true; return nil }
func (p *tonePipeline) Position(ctx context.Context) (time.Duration, bool) {
	return 0, false
}
func (p *tonePipeline) Messages() <-chan media.Message { return p.messages }
func (p *tonePipeline) OutputPath() string             { return "" }

func TestGraph(t *testing.T) {
	g, err := Graph(880)
	require.NoError(t, err)

	desc := g.Describe()
	assert.Contains(t, desc, "audiotestsrc name=tone wave=sine freq=880 num-buffers=5")
	assert.Contains(t, desc, "autoaudiosink")
	assert.Empty(t, g.UnlinkedPads())
}

func TestPlay(t *testing.T) {
	var graphs []*media.Graph
	var pipelines []*tonePipeline
	p := New(media.LauncherFunc(func(ctx context.Context, g *media.Graph, outputPath string) (media.Pipeline, error) {
		graphs = append(graphs, g)
		pl := newTonePipeline(
			media.Message{Kind: media.MessageStateChanged, FromPipeline: true, NewState: media.PlayStatePlaying},
			media.Message{Kind: media.MessageEOS, FromPipeline: true},
		)
		pipelines = append(pipelines, pl)
		return pl, nil
	}))

	require.NoError(t, p.Play(context.Background(), 3))
	require.NoError(t, p.Play(context.Background(), 9))
	require.NoError(t, p.Play(context.Background(), 0))

	require.Len(t, graphs, 1)
	assert.Contains(t, graphs[0].Describe(), "freq=698")
	assert.True(t, pipelines[0].played)
	assert.True(t, pipelines[0].halted)
}

func TestPlayStreamError(t *testing.T) {
	pl := newTonePipeline(media.Message{Kind: media.MessageError, Source: "autoaudiosink0", Text: "no audio device"})
	p := New(media.LauncherFunc(func(ctx context.Context, g *media.Graph, outputPath string) (media.Pipeline, error) {
		return pl, nil
	}))

	err := p.Play(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "554Hz")
	assert.Contains(t, err.Error(), "no audio device")
	assert.True(t, pl.halted)
}

func TestPlayLaunchError(t *testing.T) {
	p := New(media.LauncherFunc(func(ctx context.Context, g *media.Graph, outputPath string) (media.Pipeline, error) {
		return nil, errors.New("no element audiotestsrc")
	}))

	err := p.Play(context.Background(), 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "622Hz")
}

func TestPlayHonorsContext(t *testing.T) {
	pl := newTonePipeline()
	p := New(media.LauncherFunc(func(ctx context.Context, g *media.Graph, outputPath string) (media.Pipeline, error) {
		return pl, nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Play(ctx, 5)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, pl.halted)
}
