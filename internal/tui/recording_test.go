package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kartoza/kartoza-portal-recorder/internal/models"
	"github.com/kartoza/kartoza-portal-recorder/internal/recerr"
	"github.com/kartoza/kartoza-portal-recorder/internal/recording"
)

type fakeControl struct {
	calls []string
	err   error
}

func (f *fakeControl) Pause() error  { f.calls = append(f.calls, "pause"); return f.err }
func (f *fakeControl) Resume() error { f.calls = append(f.calls, "resume"); return f.err }
func (f *fakeControl) Stop() error   { f.calls = append(f.calls, "stop"); return f.err }
func (f *fakeControl) Cancel() error { f.calls = append(f.calls, "cancel"); return f.err }

func newSizedModel(control Control) *RecordingModel {
	m := NewRecordingModel(control, "webm")
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func stateMsg(kind models.RecordingState) EventMsg {
	return EventMsg{Kind: recording.EventStateChanged, State: models.State{Kind: kind}}
}

func TestRecordingModel_PauseTogglesWithState(t *testing.T) {
	control := &fakeControl{}
	m := newSizedModel(control)

	// Nothing to pause before the recording runs
	m.Update(runes("p"))
	if len(control.calls) != 0 {
		t.Fatalf("expected no calls in init, got %v", control.calls)
	}

	m.Update(stateMsg(models.StateRecording))
	m.Update(runes("p"))
	m.Update(stateMsg(models.StatePaused))
	m.Update(runes("p"))

	expected := []string{"pause", "resume"}
	if strings.Join(control.calls, ",") != strings.Join(expected, ",") {
		t.Errorf("expected calls %v, got %v", expected, control.calls)
	}
}

func TestRecordingModel_StopAndCancelKeys(t *testing.T) {
	control := &fakeControl{}
	m := newSizedModel(control)
	m.Update(stateMsg(models.StateRecording))

	m.Update(runes("s"))
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	expected := []string{"stop", "cancel"}
	if strings.Join(control.calls, ",") != strings.Join(expected, ",") {
		t.Errorf("expected calls %v, got %v", expected, control.calls)
	}
}

func TestRecordingModel_ActionErrorIsShown(t *testing.T) {
	control := &fakeControl{err: recerr.InvalidTransition("stop", models.State{Kind: models.StateFlushing})}
	m := newSizedModel(control)
	m.Update(EventMsg{Kind: recording.EventStateChanged, State: models.State{Kind: models.StateFlushing, Progress: 40}})

	m.Update(runes("s"))

	if !strings.Contains(m.View(), "not allowed in state flushing(40%)") {
		t.Errorf("expected the action error in the view, got:\n%s", m.View())
	}
}

func TestRecordingModel_ViewPerState(t *testing.T) {
	tests := []struct {
		name     string
		msgs     []EventMsg
		contains []string
	}{
		{
			name:     "init",
			contains: []string{"Waiting for the screen cast permission", "Starting"},
		},
		{
			name:     "countdown",
			msgs:     []EventMsg{{Kind: recording.EventStateChanged, State: models.State{Kind: models.StateDelayed, SecsLeft: 3}}},
			contains: []string{"█", "Recording starts soon"},
		},
		{
			name: "recording",
			msgs: []EventMsg{
				stateMsg(models.StateRecording),
				{Kind: recording.EventDurationChanged, Duration: 65 * time.Second},
			},
			contains: []string{"01:05", "REC", "p: pause"},
		},
		{
			name:     "paused",
			msgs:     []EventMsg{stateMsg(models.StatePaused)},
			contains: []string{"Paused", "p: resume"},
		},
		{
			name:     "flushing",
			msgs:     []EventMsg{{Kind: recording.EventStateChanged, State: models.State{Kind: models.StateFlushing, Progress: 50}}},
			contains: []string{"Saving the recording", "50%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newSizedModel(&fakeControl{})
			for _, msg := range tt.msgs {
				m.Update(msg)
			}
			view := m.View()
			for _, s := range tt.contains {
				if !strings.Contains(view, s) {
					t.Errorf("expected view to contain %q, got:\n%s", s, view)
				}
			}
		})
	}
}

func TestRecordingModel_FinishedQuits(t *testing.T) {
	m := newSizedModel(&fakeControl{})
	result := &models.CompletedRecording{Path: "/tmp/out.webm", Duration: 90 * time.Second}

	_, cmd := m.Update(EventMsg{Kind: recording.EventFinished, Result: result})
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("expected tea.QuitMsg, got %T", cmd())
	}

	if !m.IsFinished() {
		t.Error("expected the model to be finished")
	}
	got, err := m.Result()
	if err != nil || got != result {
		t.Errorf("unexpected result %v, %v", got, err)
	}
	view := m.View()
	for _, s := range []string{"Recording saved", "/tmp/out.webm", "1m30s"} {
		if !strings.Contains(view, s) {
			t.Errorf("expected view to contain %q, got:\n%s", s, view)
		}
	}
}

func TestRecordingModel_FailureShowsHelp(t *testing.T) {
	m := newSizedModel(&fakeControl{})
	err := recerr.Runtime("recording", errors.New("no space left on device")).WithHelp("Make sure that the saving location exists and is accessible.")

	m.Update(EventMsg{Kind: recording.EventFinished, Err: err})

	view := m.View()
	for _, s := range []string{"Recording failed", "no space left on device", "saving location"} {
		if !strings.Contains(view, s) {
			t.Errorf("expected view to contain %q, got:\n%s", s, view)
		}
	}
}

func TestRecordingModel_CancelledIsQuiet(t *testing.T) {
	m := newSizedModel(&fakeControl{})
	m.Update(EventMsg{Kind: recording.EventFinished, Err: recerr.Cancelled("recording")})

	view := m.View()
	if !strings.Contains(view, "Recording cancelled") {
		t.Errorf("expected cancelled message, got:\n%s", view)
	}
	if strings.Contains(view, "failed") {
		t.Errorf("cancellation should not be reported as a failure:\n%s", view)
	}
}

func TestBigNumber(t *testing.T) {
	lines := bigNumber(10)
	if len(lines) != 7 {
		t.Fatalf("expected 7 lines, got %d", len(lines))
	}
	expected := bigDigits['1'][0] + bigDigits['0'][0]
	if lines[0] != expected {
		t.Errorf("expected %q, got %q", expected, lines[0])
	}
}
