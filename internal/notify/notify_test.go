package notify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartoza/kartoza-portal-recorder/internal/models"
	"github.com/kartoza/kartoza-portal-recorder/internal/recerr"
)

// fakeNotifySend records the arguments of every call in a file
func fakeNotifySend(t *testing.T) func() []string {
	dir := t.TempDir()
	log := filepath.Join(dir, "calls")
	script := filepath.Join(dir, "notify-send")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nfor a in \"$@\"; do echo \"$a\"; done >> "+log+"\n"), 0755))

	old := Command
	Command = script
	t.Cleanup(func() { Command = old })

	return func() []string {
		data, err := os.ReadFile(log)
		if os.IsNotExist(err) {
			return nil
		}
		require.NoError(t, err)
		return strings.Split(strings.TrimSpace(string(data)), "\n")
	}
}

func TestRecordingFinishedSuccess(t *testing.T) {
	calls := fakeNotifySend(t)

	err := RecordingFinished(context.Background(), &models.CompletedRecording{
		Path:     "/home/me/Videos/Kartoza-2024-01-02-03-04-05.webm",
		Duration: 75 * time.Second,
	}, nil)
	require.NoError(t, err)

	args := calls()
	assert.Contains(t, args, "--urgency=normal")
	assert.Contains(t, args, "Screencast recorded")
	assert.Contains(t, args, "Kartoza-2024-01-02-03-04-05.webm (1m15s) saved to /home/me/Videos")
}

func TestRecordingFinishedError(t *testing.T) {
	calls := fakeNotifySend(t)

	failure := recerr.Runtime("record", errors.New("disk full")).WithHelp("Free some space.")
	require.NoError(t, RecordingFinished(context.Background(), nil, failure))

	args := calls()
	assert.Contains(t, args, "--urgency=critical")
	assert.Contains(t, args, "Free some space.")
}

func TestRecordingFinishedCancelledIsSilent(t *testing.T) {
	calls := fakeNotifySend(t)

	require.NoError(t, RecordingFinished(context.Background(), nil, recerr.Cancelled("recording")))
	require.NoError(t, RecordingFinished(context.Background(), nil, recerr.UserCancelled("start")))
	assert.Empty(t, calls())
}

func TestSendRunsInItsOwnProcessGroup(t *testing.T) {
	dir := t.TempDir()
	pgidFile := filepath.Join(dir, "pgid")
	script := filepath.Join(dir, "notify-send")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\ncut -d' ' -f5 /proc/$$/stat > "+pgidFile+"\n"), 0755))

	old := Command
	Command = script
	t.Cleanup(func() { Command = old })

	require.NoError(t, Info("title", "body"))

	data, err := os.ReadFile(pgidFile)
	require.NoError(t, err)
	pgid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	require.NoError(t, err)
	assert.NotEqual(t, syscall.Getpgrp(), pgid)
}
