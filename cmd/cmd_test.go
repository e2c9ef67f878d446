package cmd

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/kartoza/kartoza-portal-recorder/internal/config"
	"github.com/kartoza/kartoza-portal-recorder/internal/models"
)

func newStartFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	startOpts = startOptions{}
	flags := pflag.NewFlagSet("start", pflag.ContinueOnError)
	addStartFlags(flags)
	if err := flags.Parse(args); err != nil {
		t.Fatalf("failed to parse %v: %v", args, err)
	}
	return flags
}

func TestApplyStartFlags_OnlyChangedFlags(t *testing.T) {
	cfg, err := config.LoadFrom(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatal(err)
	}
	cfg.MicEnabled = true
	cfg.DelaySeconds = 7

	flags := newStartFlags(t, "--profile", "mp4", "--speaker", "--framerate", "30")
	if err := applyStartFlags(flags, cfg); err != nil {
		t.Fatalf("applyStartFlags failed: %v", err)
	}

	if cfg.ProfileID() != "mp4" {
		t.Errorf("expected profile mp4, got %s", cfg.ProfileID())
	}
	if !cfg.RecordSpeaker() {
		t.Error("expected speaker recording to be enabled")
	}
	if cfg.Framerate() != 30 {
		t.Errorf("expected framerate 30, got %d", cfg.Framerate())
	}
	// Untouched flags keep the saved values
	if !cfg.RecordMic() {
		t.Error("expected the saved mic setting to be kept")
	}
	if cfg.RecordDelay() != 7*time.Second {
		t.Errorf("expected the saved delay, got %v", cfg.RecordDelay())
	}
}

func TestApplyStartFlags_AreaSelectsRegion(t *testing.T) {
	cfg, err := config.LoadFrom(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatal(err)
	}

	flags := newStartFlags(t, "--area", "0,0 640x480")
	if err := applyStartFlags(flags, cfg); err != nil {
		t.Fatalf("applyStartFlags failed: %v", err)
	}
	if cfg.CaptureMode() != models.CaptureSelection {
		t.Errorf("expected selection mode, got %s", cfg.CaptureMode())
	}
}

func TestApplyStartFlags_Invalid(t *testing.T) {
	tests := [][]string{
		{"--mode", "everything"},
		{"--delay", "-1"},
	}
	for _, args := range tests {
		cfg, err := config.LoadFrom(filepath.Join(t.TempDir(), "config.json"))
		if err != nil {
			t.Fatal(err)
		}
		if err := applyStartFlags(newStartFlags(t, args...), cfg); err == nil {
			t.Errorf("expected an error for %v", args)
		}
	}
}

func TestFormatStatus(t *testing.T) {
	if got := formatStatus(models.RecordingStatus{}); got != "Recording: INACTIVE\n" {
		t.Errorf("unexpected inactive status %q", got)
	}

	got := formatStatus(models.RecordingStatus{
		PID:        42,
		State:      models.StatePaused,
		Duration:   75 * time.Second,
		Profile:    "webm",
		OutputFile: "/tmp/out.webm",
	})
	for _, s := range []string{"PAUSED", "42", "webm", "01:15", "/tmp/out.webm", "resume"} {
		if !strings.Contains(got, s) {
			t.Errorf("expected status to contain %q, got:\n%s", s, got)
		}
	}

	got = formatStatus(models.RecordingStatus{PID: 1, State: models.StateFlushing, Progress: 60})
	if !strings.Contains(got, "SAVING (60%)") {
		t.Errorf("expected flushing progress, got:\n%s", got)
	}
}
