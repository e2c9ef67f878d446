package gstreamer

import (
	"context"
	"testing"
	"time"

	"github.com/go-gst/go-gst/gst"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartoza/kartoza-portal-recorder/internal/media"
)

func requireElements(t *testing.T, names ...string) {
	t.Helper()
	Init(context.Background())
	for _, name := range names {
		if gst.Find(name) == nil {
			t.Skipf("GStreamer element %s is not installed", name)
		}
	}
}

func testGraph(t *testing.T, live bool, buffers int) *media.Graph {
	t.Helper()
	g := media.NewGraph()
	src, err := g.Add("videotestsrc", "src")
	require.NoError(t, err)
	src.Set("is-live", live)
	if buffers > 0 {
		src.Set("num-buffers", buffers)
	}
	sink, err := g.Add("fakesink", "sink")
	require.NoError(t, err)
	sink.Set("sync", true)
	require.NoError(t, g.LinkMany(src, sink))
	return g
}

// waitFor reads messages until match returns true
func waitFor(t *testing.T, pl media.Pipeline, match func(media.Message) bool) media.Message {
	t.Helper()
	timeout := time.After(10 * time.Second)
	for {
		select {
		case m, ok := <-pl.Messages():
			require.True(t, ok, "messages closed before the expected one arrived")
			if match(m) {
				return m
			}
		case <-timeout:
			t.Fatal("timed out waiting for a pipeline message")
		}
	}
}

func pipelineState(s media.PlayState) func(media.Message) bool {
	return func(m media.Message) bool {
		return m.Kind == media.MessageStateChanged && m.FromPipeline && m.NewState == s
	}
}

func waitClosed(t *testing.T, pl media.Pipeline) {
	t.Helper()
	timeout := time.After(10 * time.Second)
	for {
		select {
		case _, ok := <-pl.Messages():
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("messages were not closed")
		}
	}
}

func TestPlayUntilEndOfStream(t *testing.T) {
	requireElements(t, "videotestsrc", "fakesink")
	ctx := context.Background()

	pl, err := NewLauncher(ctx).Launch(ctx, testGraph(t, false, 10), "/tmp/out.webm")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out.webm", pl.OutputPath())

	_, known := pl.Position(ctx)
	assert.False(t, known)

	require.NoError(t, pl.Play(ctx))
	assert.Error(t, pl.Play(ctx))

	waitFor(t, pl, pipelineState(media.PlayStatePlaying))
	waitFor(t, pl, func(m media.Message) bool { return m.Kind == media.MessageEOS })
	waitClosed(t, pl)
	require.NoError(t, pl.Halt(ctx))
}

func TestPauseStopsThePosition(t *testing.T) {
	requireElements(t, "videotestsrc", "fakesink")
	ctx := context.Background()

	pl, err := NewLauncher(ctx).Launch(ctx, testGraph(t, true, 0), "")
	require.NoError(t, err)
	defer pl.Halt(ctx)

	require.NoError(t, pl.Play(ctx))
	waitFor(t, pl, pipelineState(media.PlayStatePlaying))
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, pl.Pause(ctx))
	waitFor(t, pl, pipelineState(media.PlayStatePaused))
	before, known := pl.Position(ctx)
	require.True(t, known)
	assert.Greater(t, before, time.Duration(0))

	time.Sleep(500 * time.Millisecond)
	after, known := pl.Position(ctx)
	require.True(t, known)
	assert.Less(t, after-before, 100*time.Millisecond)

	assert.Error(t, pl.Pause(ctx))
	require.NoError(t, pl.Resume(ctx))
	waitFor(t, pl, pipelineState(media.PlayStatePlaying))
}

func TestSendEOSWhilePaused(t *testing.T) {
	requireElements(t, "videotestsrc", "fakesink")
	ctx := context.Background()

	pl, err := NewLauncher(ctx).Launch(ctx, testGraph(t, true, 0), "")
	require.NoError(t, err)

	assert.Error(t, pl.SendEOS(ctx))
	require.NoError(t, pl.Play(ctx))
	waitFor(t, pl, pipelineState(media.PlayStatePlaying))
	require.NoError(t, pl.Pause(ctx))
	waitFor(t, pl, pipelineState(media.PlayStatePaused))

	require.NoError(t, pl.SendEOS(ctx))
	waitFor(t, pl, func(m media.Message) bool { return m.Kind == media.MessageEOS })
	waitClosed(t, pl)
}

func TestHaltClosesMessages(t *testing.T) {
	requireElements(t, "videotestsrc", "fakesink")
	ctx := context.Background()

	pl, err := NewLauncher(ctx).Launch(ctx, testGraph(t, true, 0), "")
	require.NoError(t, err)
	require.NoError(t, pl.Play(ctx))
	waitFor(t, pl, pipelineState(media.PlayStatePlaying))

	require.NoError(t, pl.Halt(ctx))
	require.NoError(t, pl.Halt(ctx))
	waitClosed(t, pl)
	_, known := pl.Position(ctx)
	assert.False(t, known)
}

func TestLaunchUnknownElement(t *testing.T) {
	requireElements(t, "fakesink")
	ctx := context.Background()

	g := media.NewGraph()
	src, err := g.Add("nosuchsource", "src")
	require.NoError(t, err)
	sink, err := g.Add("fakesink", "sink")
	require.NoError(t, err)
	require.NoError(t, g.LinkMany(src, sink))

	_, err = NewLauncher(ctx).Launch(ctx, g, "")
	assert.Error(t, err)
}

func TestLaunchEmptyGraph(t *testing.T) {
	ctx := context.Background()
	_, err := (&Launcher{}).Launch(ctx, media.NewGraph(), "")
	assert.Error(t, err)
}

func TestPlayState(t *testing.T) {
	assert.Equal(t, media.PlayStateNull, playState(gst.StateNull))
	assert.Equal(t, media.PlayStateReady, playState(gst.StateReady))
	assert.Equal(t, media.PlayStatePaused, playState(gst.StatePaused))
	assert.Equal(t, media.PlayStatePlaying, playState(gst.StatePlaying))
	assert.Equal(t, media.PlayStateVoid, playState(gst.VoidPending))
}

func TestInspector(t *testing.T) {
	requireElements(t, "fakesrc", "fakesink")
	ctx := context.Background()

	i := NewInspector(ctx)
	assert.True(t, i.HasFactory(ctx, "fakesink"))
	assert.False(t, i.HasFactory(ctx, "nosuchsource"))

	f, err := media.ParseFragment("fakesrc ! nosuchsink")
	require.NoError(t, err)
	assert.Equal(t, []string{"nosuchsink"}, media.MissingFactories(ctx, i, f))
}
