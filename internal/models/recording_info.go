package models

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"
)

// RecordingInfo is written next to a finished recording as <file>.json
type RecordingInfo struct {
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`

	Environment EnvironmentInfo `json:"environment"`

	File     string   `json:"file"`
	FileSize int64    `json:"file_size"`
	Profile  string   `json:"profile"`
	Streams  []Stream `json:"streams"`
	Crop     *Rect    `json:"crop,omitempty"`

	AppVersion string    `json:"app_version"`
	CreatedAt  time.Time `json:"created_at"`
}

// EnvironmentInfo contains system environment details
type EnvironmentInfo struct {
	OS                 string `json:"os"`
	Arch               string `json:"arch"`
	Hostname           string `json:"hostname"`
	DesktopEnvironment string `json:"desktop_environment"`
	WaylandCompositor  string `json:"wayland_compositor,omitempty"`
}

// NewRecordingInfo creates a new RecordingInfo with system information populated
func NewRecordingInfo(file, profile string, streams []Stream, start time.Time) *RecordingInfo {
	hostname, _ := os.Hostname()

	return &RecordingInfo{
		StartTime: start,
		Environment: EnvironmentInfo{
			OS:                 runtime.GOOS,
			Arch:               runtime.GOARCH,
			Hostname:           hostname,
			DesktopEnvironment: desktopEnvironment(),
			WaylandCompositor:  waylandCompositor(),
		},
		File:      file,
		Profile:   profile,
		Streams:   streams,
		CreatedAt: time.Now(),
	}
}

// SetDuration records the end of the recording and the media duration,
// which excludes paused spans and may differ from wall time
func (r *RecordingInfo) SetDuration(end time.Time, d time.Duration) {
	r.EndTime = end
	r.Duration = d
}

// InfoPath returns the sidecar path for a recording file
func InfoPath(file string) string {
	return file + ".json"
}

// Save writes the sidecar file and refreshes the size of the recording
func (r *RecordingInfo) Save() error {
	if r.File == "" {
		return nil
	}
	if stat, err := os.Stat(r.File); err == nil {
		r.FileSize = stat.Size()
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(InfoPath(r.File), data, 0644)
}

// LoadRecordingInfo loads the sidecar of a recording file
func LoadRecordingInfo(file string) (*RecordingInfo, error) {
	data, err := os.ReadFile(InfoPath(file))
	if err != nil {
		return nil, err
	}

	var info RecordingInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}

	return &info, nil
}

// desktopEnvironment names the running desktop from the session variables
func desktopEnvironment() string {
	for _, key := range []string{"XDG_CURRENT_DESKTOP", "XDG_SESSION_DESKTOP", "DESKTOP_SESSION"} {
		if de := os.Getenv(key); de != "" {
			return de
		}
	}
	return "Unknown"
}

// waylandCompositor names the compositor when it announces itself, and is
// empty outside Wayland sessions
func waylandCompositor() string {
	switch {
	case os.Getenv("HYPRLAND_INSTANCE_SIGNATURE") != "":
		return "Hyprland"
	case os.Getenv("SWAYSOCK") != "":
		return "Sway"
	case os.Getenv("NIRI_SOCKET") != "":
		return "niri"
	case os.Getenv("WAYLAND_DISPLAY") != "" || os.Getenv("XDG_SESSION_TYPE") == "wayland":
		return "Wayland (unknown compositor)"
	}
	return ""
}

// FormatDuration formats a duration for display
func FormatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// FormatClock formats a duration as a digital clock (MM:SS, or H:MM:SS past an hour)
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	h := total / 3600
	m := (total / 60) % 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// FormatFileSize formats a file size in bytes for display
func FormatFileSize(bytes int64) string {
	const (
		KB float64 = 1024
		MB         = KB * 1024
		GB         = MB * 1024
	)

	b := float64(bytes)

	switch {
	case b >= GB:
		return fmt.Sprintf("%.1f GB", b/GB)
	case b >= MB:
		return fmt.Sprintf("%.1f MB", b/MB)
	case b >= KB:
		return fmt.Sprintf("%.1f KB", b/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
