package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageString(t *testing.T) {
	assert.Equal(t, "state-changed from pipeline0: paused -> playing", Message{
		Kind: MessageStateChanged, Source: "pipeline0", OldState: PlayStatePaused, NewState: PlayStatePlaying,
	}.String())
	assert.Equal(t, "error from sink: Could not open file", Message{
		Kind: MessageError, Source: "sink", Text: "Could not open file",
	}.String())
	assert.Equal(t, "eos from pipeline0", Message{Kind: MessageEOS, Source: "pipeline0"}.String())
	assert.Equal(t, "unknown(42)", MessageKind(42).String())
}

func TestIsOpenWriteFailure(t *testing.T) {
	assert.True(t, Message{Kind: MessageError, Text: `Could not open file "/root/x.webm" for writing.`}.IsOpenWriteFailure())
	assert.True(t, Message{Kind: MessageError, Debug: "gstfilesink.c(458): could not open for writing"}.IsOpenWriteFailure())
	assert.False(t, Message{Kind: MessageWarning, Text: "for writing"}.IsOpenWriteFailure())
	assert.False(t, Message{Kind: MessageError, Text: "Internal data stream error."}.IsOpenWriteFailure())
}
