package models

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRectFromPoints(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want Rect
	}{
		{"top-left to bottom-right", Point{10, 20}, Point{110, 70}, Rect{10, 20, 100, 50}},
		{"bottom-right to top-left", Point{110, 70}, Point{10, 20}, Rect{10, 20, 100, 50}},
		{"mixed corners", Point{110, 20}, Point{10, 70}, Rect{10, 20, 100, 50}},
		{"degenerate", Point{5, 5}, Point{5, 5}, Rect{5, 5, 1, 1}},
		{"flat", Point{0, 5}, Point{30, 5}, Rect{0, 5, 30, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RectFromPoints(tt.a, tt.b))
			assert.Equal(t, tt.want, RectFromPoints(tt.b, tt.a))
		})
	}
}

func TestRectUnion(t *testing.T) {
	a := Rect{0, 0, 1920, 1080}
	b := Rect{1920, 0, 1280, 1024}

	assert.Equal(t, Rect{0, 0, 3200, 1080}, a.Union(b))
	assert.Equal(t, b, Rect{}.Union(b))
}

func TestSourceTypeBits(t *testing.T) {
	both := SourceMonitor | SourceWindow

	assert.True(t, both.Has(SourceMonitor))
	assert.True(t, both.Has(SourceWindow))
	assert.False(t, both.Has(SourceVirtual))
	assert.False(t, both.Has(0))
	assert.Equal(t, "monitor|window", both.String())
	assert.Equal(t, "none", SourceType(0).String())
}

func TestCursorModeString(t *testing.T) {
	assert.Equal(t, "embedded", CursorEmbedded.String())
	assert.Equal(t, "hidden|embedded", (CursorHidden | CursorEmbedded).String())
}

func TestStreamGeometry(t *testing.T) {
	s := Stream{NodeID: 42, Position: Point32{X: 100, Y: 0}, Size: Size32{Width: 200, Height: 100}}

	assert.True(t, s.HasSize())
	assert.Equal(t, Rect{100, 0, 200, 100}, s.Rect())
	assert.True(t, s.ContainsPoint(Point{150, 50}))
	assert.False(t, s.ContainsPoint(Point{300, 50}))
	assert.False(t, Stream{NodeID: 1}.HasSize())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "delayed(3s)", State{Kind: StateDelayed, SecsLeft: 3}.String())
	assert.Equal(t, "flushing(40%)", State{Kind: StateFlushing, Progress: 40}.String())
	assert.Equal(t, "recording", State{Kind: StateRecording}.String())
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00"},
		{-time.Second, "00:00"},
		{59*time.Second + 900*time.Millisecond, "00:59"},
		{61 * time.Second, "01:01"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatClock(tt.in))
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "5s", FormatDuration(5*time.Second))
	assert.Equal(t, "2m05s", FormatDuration(125*time.Second))
	assert.Equal(t, "1h00m01s", FormatDuration(time.Hour+time.Second))
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatFileSize(512))
	assert.Equal(t, "1.5 KB", FormatFileSize(1536))
	assert.Equal(t, "2.0 MB", FormatFileSize(2*1024*1024))
}

func TestRecordingInfoSaveLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "Kartoza-test.webm")
	require.NoError(t, os.WriteFile(file, make([]byte, 2048), 0644))

	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	info := NewRecordingInfo(file, "webm", []Stream{{NodeID: 7}}, start)
	info.SetDuration(start.Add(time.Minute), 55*time.Second)
	require.NoError(t, info.Save())

	loaded, err := LoadRecordingInfo(file)
	require.NoError(t, err)
	assert.Equal(t, int64(2048), loaded.FileSize)
	assert.Equal(t, "webm", loaded.Profile)
	assert.Equal(t, 55*time.Second, loaded.Duration)
	assert.Equal(t, uint32(7), loaded.Streams[0].NodeID)
}

func TestParseCaptureMode(t *testing.T) {
	tests := map[string]CaptureMode{
		"":               CaptureMonitorWindow,
		"monitor-window": CaptureMonitorWindow,
		"screen":         CaptureMonitorWindow,
		"window":         CaptureMonitorWindow,
		"selection":      CaptureSelection,
		"area":           CaptureSelection,
	}
	for in, expected := range tests {
		got, err := ParseCaptureMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, expected, got, in)
	}

	_, err := ParseCaptureMode("everything")
	assert.Error(t, err)
}
