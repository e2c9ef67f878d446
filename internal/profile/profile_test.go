package profile

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartoza/kartoza-portal-recorder/internal/experimental"
	"github.com/kartoza/kartoza-portal-recorder/internal/media"
	"github.com/kartoza/kartoza-portal-recorder/internal/recerr"
)

func builtinProfile(t *testing.T, id string) *Profile {
	c, err := Builtin()
	require.NoError(t, err)
	p, err := c.Get(id)
	require.NoError(t, err)
	return p
}

type testGraph struct {
	*media.Graph
	video, audio, sink *media.Element
}

func newTestGraph(t *testing.T, withAudio bool) testGraph {
	g := testGraph{Graph: media.NewGraph()}
	var err error
	g.video, err = g.Add("videotestsrc", "")
	require.NoError(t, err)
	if withAudio {
		g.audio, err = g.Add("audiotestsrc", "")
		require.NoError(t, err)
	}
	g.sink, err = g.Add("filesink", "filesink")
	require.NoError(t, err)
	return g
}

func TestBuiltinCatalog(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)

	ids := func(ps []*Profile) []string {
		var out []string
		for _, p := range ps {
			out = append(out, p.ID)
		}
		return out
	}

	assert.Equal(t, []string{"webm", "mp4", "matroska", "gif"}, ids(c.Visible(nil)))
	assert.Len(t, c.All(), 9)
	assert.Len(t, c.Visible(experimental.Features{experimental.All: {}}), 9)

	gif, err := c.Get("gif")
	require.NoError(t, err)
	assert.False(t, gif.SupportsAudio())
	assert.False(t, gif.HasContainer())
	assert.Equal(t, 24, gif.SuggestedMaxFramerate())
	assert.Equal(t, "gif", gif.FileExtension())

	vp9, err := c.Get("webm-vp9")
	require.NoError(t, err)
	assert.True(t, vp9.Experimental)

	_, err = c.Get("nope")
	assert.ErrorIs(t, err, recerr.ErrConfig)
}

func TestFramerate(t *testing.T) {
	gif := builtinProfile(t, "gif")
	webm := builtinProfile(t, "webm")

	assert.Equal(t, 24, gif.Framerate(60))
	assert.Equal(t, 15, gif.Framerate(15))
	assert.Equal(t, DefaultFramerate, webm.Framerate(0))
	assert.Equal(t, 30, webm.Framerate(30))
}

func TestParseRejectsBadCatalogs(t *testing.T) {
	tests := map[string]string{
		"version":     "version: 2\nsupported: []\n",
		"duplicate":   "version: 1\nsupported:\n  - {id: a, extension: x, videoenc: vp8enc}\n  - {id: a, extension: x, videoenc: vp8enc}\n",
		"no video":    "version: 1\nsupported:\n  - {id: a, extension: x}\n",
		"no ext":      "version: 1\nsupported:\n  - {id: a, videoenc: vp8enc}\n",
		"audio alone": "version: 1\nsupported:\n  - {id: a, extension: x, videoenc: vp8enc, audioenc: opusenc}\n",
		"bad muxer":   "version: 1\nsupported:\n  - {id: a, extension: x, videoenc: vp8enc, muxer: queue}\n",
		"bad chain":   "version: 1\nsupported:\n  - {id: a, extension: x, videoenc: 'vp8enc !'}\n",
		"not yaml":    "version: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestThreadPlaceholderIsExpanded(t *testing.T) {
	g := newTestGraph(t, false)
	require.NoError(t, builtinProfile(t, "webm").Attach(context.Background(), g.Graph, g.video, nil, g.sink))

	enc := g.ElementsByFactory("vp8enc")
	require.Len(t, enc, 1)
	threads, ok := enc[0].Prop("threads")
	require.True(t, ok)
	assert.Equal(t, strconv.Itoa(ThreadCount()), threads)
	assert.LessOrEqual(t, ThreadCount(), MaxThreadCount)
}

func TestAttachContainerWithAudio(t *testing.T) {
	for _, id := range []string{"webm", "mp4", "matroska"} {
		t.Run(id, func(t *testing.T) {
			g := newTestGraph(t, true)
			require.NoError(t, builtinProfile(t, id).Attach(context.Background(), g.Graph, g.video, g.audio, g.sink))

			assert.Empty(t, g.UnlinkedPads())
			mux := g.sink.Pad("sink").Peer.Element
			assert.True(t, media.IsMuxer(mux.Factory))
			assert.NotNil(t, mux.Pad("video_0"))
			assert.NotNil(t, mux.Pad("audio_0"))
		})
	}
}

func TestAttachContainerWithoutAudio(t *testing.T) {
	g := newTestGraph(t, false)
	require.NoError(t, builtinProfile(t, "mp4").Attach(context.Background(), g.Graph, g.video, nil, g.sink))

	assert.Empty(t, g.UnlinkedPads())
	mux := g.ElementsByFactory("mp4mux")[0]
	assert.Nil(t, mux.Pad("audio_0"))
}

func TestAttachBareProfileIgnoresAudio(t *testing.T) {
	g := newTestGraph(t, true)
	require.NoError(t, builtinProfile(t, "gif").Attach(context.Background(), g.Graph, g.video, g.audio, g.sink))

	assert.Equal(t, "gifenc", g.sink.Pad("sink").Peer.Element.Factory)
	unlinked := g.UnlinkedPads()
	require.Len(t, unlinked, 1)
	assert.Same(t, g.audio, unlinked[0].Element)
}

func TestAttachContainerWithoutAudioEncoderFails(t *testing.T) {
	p := &Profile{ID: "silent", Extension: "webm", VideoEncoder: "vp8enc", Muxer: "webmmux"}
	g := newTestGraph(t, true)
	before := len(g.Elements())

	err := p.Attach(context.Background(), g.Graph, g.video, g.audio, g.sink)
	assert.ErrorIs(t, err, recerr.ErrConfig)
	assert.Len(t, g.Elements(), before)
	assert.Len(t, g.UnlinkedPads(), 3)
}

func TestAttachInvalidFragmentLeavesGraphUntouched(t *testing.T) {
	p := &Profile{ID: "broken", Extension: "webm", VideoEncoder: "vp8enc ! ", Muxer: "webmmux"}
	g := newTestGraph(t, false)
	before := len(g.Elements())

	assert.ErrorIs(t, p.Attach(context.Background(), g.Graph, g.video, nil, g.sink), recerr.ErrConfig)
	assert.Len(t, g.Elements(), before)
}

func TestAttachRequiresFreePads(t *testing.T) {
	g := newTestGraph(t, false)
	other, _ := g.Add("fakesink", "")
	require.NoError(t, g.Link(g.video, other))

	err := builtinProfile(t, "webm").Attach(context.Background(), g.Graph, g.video, nil, g.sink)
	assert.ErrorIs(t, err, recerr.ErrConfig)
}

func TestIsAvailable(t *testing.T) {
	ctx := context.Background()
	installed := map[string]bool{
		"videoconvert": true, "queue": true, "vp8enc": true,
		"audioconvert": true, "opusenc": true, "webmmux": true,
		"capsfilter": true, "x264enc": true,
	}
	inspector := media.InspectorFunc(func(_ context.Context, f string) bool { return installed[f] })

	assert.True(t, builtinProfile(t, "webm").IsAvailable(ctx, inspector))
	assert.False(t, builtinProfile(t, "mp4").IsAvailable(ctx, inspector), "lamemp3enc and mp4mux missing")
	assert.False(t, builtinProfile(t, "gif").IsAvailable(ctx, inspector))
	assert.False(t, (&Profile{ID: "x"}).IsAvailable(ctx, inspector))

	c, err := Builtin()
	require.NoError(t, err)
	available := c.Available(ctx, nil, inspector)
	require.Len(t, available, 1)
	assert.Equal(t, "webm", available[0].ID)
}
