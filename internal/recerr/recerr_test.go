package recerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stateName string

func (s stateName) String() string { return string(s) }

func TestErrorMatchesSentinelByKind(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"broker", Broker("create session", errors.New("no bus")), ErrBroker},
		{"user cancelled", UserCancelled("select sources"), ErrUserCancelled},
		{"cancelled", Cancelled("recording"), ErrCancelled},
		{"broker lost", BrokerLost("start"), ErrBrokerLost},
		{"ended", BrokerEndedUnexpectedly("start"), ErrBrokerEndedUnexpectedly},
		{"config", Config("attach", "no audio encoder"), ErrConfig},
		{"runtime", Runtime("pipeline", errors.New("boom")), ErrRuntime},
		{"transition", InvalidTransition("pause", stateName("init")), ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
		})
	}

	assert.NotErrorIs(t, Cancelled("x"), ErrBroker)
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("permission denied")
	err := Runtime("filesink", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "filesink")
	assert.Contains(t, err.Error(), "permission denied")
}

func TestIsCancelled(t *testing.T) {
	assert.True(t, IsCancelled(Cancelled("x")))
	assert.True(t, IsCancelled(fmt.Errorf("wrap: %w", UserCancelled("x"))))
	assert.False(t, IsCancelled(BrokerLost("x")))
	assert.False(t, IsCancelled(nil))
}

func TestHelpOf(t *testing.T) {
	inner := Runtime("filesink", errors.New("could not open")).WithHelp("check the folder")
	outer := fmt.Errorf("recording failed: %w", inner)

	assert.Equal(t, "check the folder", HelpOf(outer))
	assert.Equal(t, "", HelpOf(errors.New("plain")))
	assert.Equal(t, "", HelpOf(nil))
}

func TestKindOf(t *testing.T) {
	kind, ok := KindOf(fmt.Errorf("x: %w", Config("attach", "y")))
	assert.True(t, ok)
	assert.Equal(t, KindConfig, kind)

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}
