package media

import (
	"fmt"
	"strings"
)

// MessageKind enumerates the graph messages the controller reacts to
type MessageKind int

const (
	MessageStateChanged MessageKind = iota + 1
	MessageAsyncDone
	MessageEOS
	MessageError
	MessageWarning
	MessageInfo
)

func (k MessageKind) String() string {
	switch k {
	case MessageStateChanged:
		return "state-changed"
	case MessageAsyncDone:
		return "async-done"
	case MessageEOS:
		return "eos"
	case MessageError:
		return "error"
	case MessageWarning:
		return "warning"
	case MessageInfo:
		return "info"
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// PlayState is the state of the graph or one of its elements
type PlayState string

const (
	PlayStateVoid    PlayState = "void-pending"
	PlayStateNull    PlayState = "null"
	PlayStateReady   PlayState = "ready"
	PlayStatePaused  PlayState = "paused"
	PlayStatePlaying PlayState = "playing"
)

// Message is one lifecycle notification from a running graph
type Message struct {
	Kind MessageKind
	// Source is the name of the posting element
	Source string
	// FromPipeline is set when the top-level pipeline posted the message
	FromPipeline bool

	OldState PlayState
	NewState PlayState

	Text  string
	Debug string
}

// IsOpenWriteFailure reports an error caused by an output location that
// cannot be written
func (m Message) IsOpenWriteFailure() bool {
	if m.Kind != MessageError {
		return false
	}
	return strings.Contains(m.Text, "for writing") ||
		strings.Contains(m.Debug, "for writing")
}

func (m Message) String() string {
	switch m.Kind {
	case MessageStateChanged:
		return fmt.Sprintf("%s from %s: %s -> %s", m.Kind, m.Source, m.OldState, m.NewState)
	case MessageError, MessageWarning, MessageInfo:
		return fmt.Sprintf("%s from %s: %s", m.Kind, m.Source, m.Text)
	default:
		return fmt.Sprintf("%s from %s", m.Kind, m.Source)
	}
}
