package models

import (
	"fmt"
	"time"
)

// RecordingState represents the current state of a recording session
type RecordingState string

const (
	StateInit      RecordingState = "init"
	StateDelayed   RecordingState = "delayed"
	StateRecording RecordingState = "recording"
	StatePaused    RecordingState = "paused"
	StateFlushing  RecordingState = "flushing"
	StateFinished  RecordingState = "finished"
)

// IsTerminal reports whether no further transition can happen
func (s RecordingState) IsTerminal() bool {
	return s == StateFinished
}

// State is a snapshot of the controller state machine.
// SecsLeft is only meaningful while delayed, Progress only while flushing.
type State struct {
	Kind     RecordingState `json:"kind"`
	SecsLeft uint64         `json:"secs_left,omitempty"`
	Progress int            `json:"progress,omitempty"`
}

func (s State) String() string {
	switch s.Kind {
	case StateDelayed:
		return fmt.Sprintf("%s(%ds)", s.Kind, s.SecsLeft)
	case StateFlushing:
		return fmt.Sprintf("%s(%d%%)", s.Kind, s.Progress)
	default:
		return string(s.Kind)
	}
}

// CompletedRecording describes a finished output file
type CompletedRecording struct {
	Path     string        `json:"path"`
	Duration time.Duration `json:"duration"`
}

// RecordingStatus is used for CLI status responses; a running recorder
// rewrites it on every state or duration change.
type RecordingStatus struct {
	PID        int            `json:"pid"`
	State      RecordingState `json:"state"`
	SecsLeft   uint64         `json:"secs_left,omitempty"`
	Progress   int            `json:"progress,omitempty"`
	StartTime  time.Time      `json:"start_time"`
	Duration   time.Duration  `json:"duration"`
	Profile    string         `json:"profile"`
	OutputFile string         `json:"output_file,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// IsActive reports whether the recorder is still producing output
func (s RecordingStatus) IsActive() bool {
	switch s.State {
	case StateRecording, StatePaused, StateDelayed, StateInit, StateFlushing:
		return true
	}
	return false
}

// CaptureMode selects what part of the granted streams is recorded
type CaptureMode string

const (
	// CaptureMonitorWindow records the granted streams whole
	CaptureMonitorWindow CaptureMode = "monitor-window"
	// CaptureSelection asks for an area and crops to it
	CaptureSelection CaptureMode = "selection"
)

// ParseCaptureMode accepts the mode names used on the command line
func ParseCaptureMode(s string) (CaptureMode, error) {
	switch CaptureMode(s) {
	case CaptureMonitorWindow, "":
		return CaptureMonitorWindow, nil
	case CaptureSelection:
		return CaptureSelection, nil
	}
	switch s {
	case "screen", "monitor", "window":
		return CaptureMonitorWindow, nil
	case "area", "region":
		return CaptureSelection, nil
	}
	return "", fmt.Errorf("unknown capture mode %q", s)
}
