package audio

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartoza/kartoza-portal-recorder/internal/recerr"
)

const pactlInfo = `Server String: /run/user/1000/pulse/native
Library Protocol Version: 35
Server Protocol Version: 35
Server Name: PulseAudio (on PipeWire 1.0.5)
Server Version: 15.0.0
Default Sink: alsa_output.pci-0000_00_1f.3.analog-stereo
Default Source: alsa_input.pci-0000_00_1f.3.analog-stereo
`

func finderReturning(out string, err error) *Finder {
	return NewFinderWithRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte(out), err
	})
}

func TestParseInfo(t *testing.T) {
	info := ParseInfo(pactlInfo)
	assert.Equal(t, "alsa_output.pci-0000_00_1f.3.analog-stereo", info.DefaultSink)
	assert.Equal(t, "alsa_input.pci-0000_00_1f.3.analog-stereo", info.DefaultSource)
	assert.Equal(t, "PulseAudio (on PipeWire 1.0.5) version 15.0.0", info.Version())
}

func TestDefaultSpeakerIsSinkMonitor(t *testing.T) {
	name, err := finderReturning(pactlInfo, nil).DefaultSpeaker(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alsa_output.pci-0000_00_1f.3.analog-stereo.monitor", name)
}

func TestDefaultMic(t *testing.T) {
	name, err := finderReturning(pactlInfo, nil).DefaultMic(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alsa_input.pci-0000_00_1f.3.analog-stereo", name)
}

func TestMonitorIsNotAMicrophone(t *testing.T) {
	out := "Default Sink: speakers\nDefault Source: speakers.monitor\n"
	_, err := finderReturning(out, nil).DefaultMic(context.Background())
	assert.ErrorIs(t, err, recerr.ErrRuntime)
}

func TestServerUnavailable(t *testing.T) {
	_, err := finderReturning("", errors.New("connection refused")).DefaultSpeaker(context.Background())
	require.Error(t, err)
	assert.NotEmpty(t, recerr.HelpOf(err))
}

func TestSources(t *testing.T) {
	out := "55\talsa_output.analog-stereo.monitor\tPipeWire\ts32le 2ch 48000Hz\tSUSPENDED\n" +
		"56\talsa_input.analog-stereo\tPipeWire\ts32le 2ch 48000Hz\tSUSPENDED\n"
	names, err := finderReturning(out, nil).Sources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alsa_output.analog-stereo.monitor", "alsa_input.analog-stereo"}, names)
}

func TestRunnerUsesItsOwnProcessGroup(t *testing.T) {
	out, err := execRunner(context.Background(), "sh", "-c", "cut -d' ' -f5 /proc/$$/stat")
	require.NoError(t, err)
	pgid, err := strconv.Atoi(strings.TrimSpace(string(out)))
	require.NoError(t, err)
	assert.NotEqual(t, syscall.Getpgrp(), pgid)
}
