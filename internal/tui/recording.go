// Package tui renders a running recording in the terminal.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kartoza/kartoza-portal-recorder/internal/models"
	"github.com/kartoza/kartoza-portal-recorder/internal/recerr"
	"github.com/kartoza/kartoza-portal-recorder/internal/recording"
)

// Control is the part of the recording controller the screen drives
type Control interface {
	Pause() error
	Resume() error
	Stop() error
	Cancel() error
}

// EventMsg carries a controller event into the program
type EventMsg recording.Event

type blinkMsg struct{}

const blinkInterval = 500 * time.Millisecond

var (
	keyPause  = key.NewBinding(key.WithKeys("p", " "))
	keyStop   = key.NewBinding(key.WithKeys("s", "enter"))
	keyCancel = key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"))
)

// RecordingModel shows the state of one recording and forwards the
// pause, stop and cancel keys to the controller
type RecordingModel struct {
	control Control
	profile string

	width  int
	height int

	state    models.State
	duration time.Duration
	blinkOn  bool

	spinner  spinner.Model
	progress progress.Model

	actionErr error
	finished  bool
	result    *models.CompletedRecording
	err       error
}

// NewRecordingModel creates the recording screen
func NewRecordingModel(control Control, profileName string) *RecordingModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorOrange)

	return &RecordingModel{
		control:  control,
		profile:  profileName,
		state:    models.State{Kind: models.StateInit},
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient()),
	}
}

// Init starts the spinner and the blinking indicator
func (m *RecordingModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, blink())
}

func blink() tea.Cmd {
	return tea.Tick(blinkInterval, func(time.Time) tea.Msg {
		return blinkMsg{}
	})
}

// Update handles keys, controller events and animation ticks
func (m *RecordingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(msg.Width-20, HeaderWidth)
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case EventMsg:
		switch msg.Kind {
		case recording.EventStateChanged:
			m.state = msg.State
		case recording.EventDurationChanged:
			m.duration = msg.Duration
		case recording.EventFinished:
			m.state = models.State{Kind: models.StateFinished}
			m.finished = true
			m.result = msg.Result
			m.err = msg.Err
			return m, tea.Quit
		}
		return m, nil

	case blinkMsg:
		if m.finished {
			return m, nil
		}
		m.blinkOn = !m.blinkOn
		return m, blink()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *RecordingModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.finished {
		return tea.Quit
	}

	var err error
	switch {
	case key.Matches(msg, keyPause):
		switch m.state.Kind {
		case models.StateRecording:
			err = m.control.Pause()
		case models.StatePaused:
			err = m.control.Resume()
		default:
			return nil
		}
	case key.Matches(msg, keyStop):
		err = m.control.Stop()
	case key.Matches(msg, keyCancel):
		err = m.control.Cancel()
	default:
		return nil
	}
	m.actionErr = err
	return nil
}

// Result returns the outcome once the finished event arrived
func (m *RecordingModel) Result() (*models.CompletedRecording, error) {
	return m.result, m.err
}

// IsFinished reports whether the finished event arrived
func (m *RecordingModel) IsFinished() bool {
	return m.finished
}

// View renders the screen
func (m *RecordingModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	header := RenderHeader(m.screenTitle(), &HeaderState{
		Status:   m.statusText(),
		Active:   m.state.Kind == models.StateRecording,
		Profile:  m.profile,
		Duration: models.FormatClock(m.duration),
		BlinkOn:  m.blinkOn,
	})

	content := m.renderContent()
	if m.actionErr != nil {
		content = lipgloss.JoinVertical(lipgloss.Center, content, "", ErrorStyle.Render(m.actionErr.Error()))
	}

	return LayoutWithHeaderFooter(header, content, RenderHelpFooter(m.helpText(), m.width), m.width, m.height)
}

func (m *RecordingModel) screenTitle() string {
	switch m.state.Kind {
	case models.StateFinished:
		return "Done"
	default:
		return "Recording"
	}
}

func (m *RecordingModel) statusText() string {
	switch m.state.Kind {
	case models.StateInit:
		return "Starting"
	case models.StateDelayed:
		return "Countdown"
	case models.StateRecording:
		return "REC"
	case models.StatePaused:
		return "Paused"
	case models.StateFlushing:
		return "Saving"
	}
	return "Finished"
}

func (m *RecordingModel) renderContent() string {
	switch m.state.Kind {
	case models.StateInit:
		return fmt.Sprintf("%s %s", m.spinner.View(), LabelStyle.Render("Waiting for the screen cast permission..."))

	case models.StateDelayed:
		return renderCountdown(m.state.SecsLeft)

	case models.StateRecording:
		return lipgloss.JoinVertical(
			lipgloss.Center,
			TitleStyle.Render(models.FormatClock(m.duration)),
			"",
			LabelStyle.Render("Recording"),
		)

	case models.StatePaused:
		return lipgloss.JoinVertical(
			lipgloss.Center,
			PausedStyle.Render(models.FormatClock(m.duration)),
			"",
			LabelStyle.Render("Paused"),
		)

	case models.StateFlushing:
		return lipgloss.JoinVertical(
			lipgloss.Center,
			LabelStyle.Render("Saving the recording..."),
			"",
			m.progress.ViewAs(float64(m.state.Progress)/100),
		)
	}

	return m.renderResult()
}

func (m *RecordingModel) renderResult() string {
	switch {
	case m.err == nil && m.result != nil:
		return lipgloss.JoinVertical(
			lipgloss.Center,
			SuccessStyle.Render("Recording saved"),
			"",
			LabelStyle.Render("File: ")+ValueStyle.Render(m.result.Path),
			LabelStyle.Render("Duration: ")+ValueStyle.Render(models.FormatDuration(m.result.Duration)),
		)
	case recerr.IsCancelled(m.err):
		return LabelStyle.Render("Recording cancelled")
	case m.err != nil:
		lines := []string{ErrorStyle.Render("Recording failed"), "", ValueStyle.Render(m.err.Error())}
		if help := recerr.HelpOf(m.err); help != "" {
			lines = append(lines, "", LabelStyle.Render(help))
		}
		return lipgloss.JoinVertical(lipgloss.Center, lines...)
	}
	return ""
}

func (m *RecordingModel) helpText() string {
	switch m.state.Kind {
	case models.StateRecording:
		return "p: pause • s: stop • q: cancel"
	case models.StatePaused:
		return "p: resume • s: stop • q: cancel"
	case models.StateFlushing:
		return "q: cancel"
	case models.StateFinished:
		return "any key: exit"
	}
	return "s: stop • q: cancel"
}
