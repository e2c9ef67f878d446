package recording

import (
	"time"

	"github.com/kartoza/kartoza-portal-recorder/internal/models"
)

// Settings is what a recording reads from the user's preferences. The
// restore token is the only value written back.
type Settings interface {
	ProfileID() string
	RecordDelay() time.Duration
	ShowPointer() bool
	RecordMic() bool
	RecordSpeaker() bool
	CaptureMode() models.CaptureMode
	// Framerate is the requested frames per second, 0 for the profile default
	Framerate() int
	SavingLocation() string

	RestoreToken() string
	SetRestoreToken(token string) error
}
