package recording

import (
	"fmt"
	"time"

	"github.com/kartoza/kartoza-portal-recorder/internal/models"
)

// EventKind tells which field of an Event is set
type EventKind int

const (
	EventStateChanged EventKind = iota + 1
	EventDurationChanged
	EventFinished
)

func (k EventKind) String() string {
	switch k {
	case EventStateChanged:
		return "state-changed"
	case EventDurationChanged:
		return "duration-changed"
	case EventFinished:
		return "finished"
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// Event is a notification from the controller. EventFinished is always
// the last one and carries either Result or Err.
type Event struct {
	Kind     EventKind
	State    models.State
	Duration time.Duration
	Result   *models.CompletedRecording
	Err      error
}

func (e Event) String() string {
	switch e.Kind {
	case EventStateChanged:
		return fmt.Sprintf("%s: %s", e.Kind, e.State)
	case EventDurationChanged:
		return fmt.Sprintf("%s: %s", e.Kind, e.Duration)
	case EventFinished:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Kind, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Result.Path)
	}
	return e.Kind.String()
}
