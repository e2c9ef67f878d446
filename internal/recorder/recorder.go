// Package recorder tracks a running recorder process through its PID and
// status files, so that other invocations can query and control it.
package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/xsync"

	"github.com/kartoza/kartoza-portal-recorder/internal/config"
	"github.com/kartoza/kartoza-portal-recorder/internal/models"
	"github.com/kartoza/kartoza-portal-recorder/internal/recording"
)

// Command is a request sent to the running recorder
type Command int

const (
	CommandStop Command = iota + 1
	CommandPause
	CommandResume
	CommandCancel
)

func (c Command) String() string {
	switch c {
	case CommandStop:
		return "stop"
	case CommandPause:
		return "pause"
	case CommandResume:
		return "resume"
	case CommandCancel:
		return "cancel"
	}
	return fmt.Sprintf("unknown(%d)", int(c))
}

// Signal returns the signal that carries the command
func (c Command) Signal() syscall.Signal {
	switch c {
	case CommandStop:
		return syscall.SIGINT
	case CommandPause:
		return syscall.SIGUSR1
	case CommandResume:
		return syscall.SIGUSR2
	case CommandCancel:
		return syscall.SIGTERM
	}
	return 0
}

// Signals lists the signals the running recorder listens to
func Signals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGUSR1, syscall.SIGUSR2, syscall.SIGTERM}
}

// CommandForSignal maps a received signal back to its command
func CommandForSignal(sig os.Signal) (Command, bool) {
	for _, c := range []Command{CommandStop, CommandPause, CommandResume, CommandCancel} {
		if sig == c.Signal() {
			return c, true
		}
	}
	return 0, false
}

// Instance is the recorder process as seen through its files
type Instance struct {
	pidFile    string
	statusFile string

	locker xsync.Mutex
	status models.RecordingStatus
}

// New returns the instance at the default file locations
func New() *Instance {
	return NewWithPaths(config.PIDFile, config.StatusFile)
}

// NewWithPaths returns an instance using the given files
func NewWithPaths(pidFile, statusFile string) *Instance {
	return &Instance{pidFile: pidFile, statusFile: statusFile}
}

// PID returns the PID of the running recorder, 0 if none runs
func (i *Instance) PID() int {
	pid := readPID(i.pidFile)
	if pid <= 0 || !processAlive(pid) {
		return 0
	}
	return pid
}

// IsRunning checks if a recorder process is alive
func (i *Instance) IsRunning() bool {
	return i.PID() != 0
}

// Claim registers the current process as the running recorder
func (i *Instance) Claim(ctx context.Context, profileName string) error {
	if pid := i.PID(); pid != 0 && pid != os.Getpid() {
		return fmt.Errorf("a recording is already in progress (pid %d)", pid)
	}
	if err := writeFileAtomic(i.pidFile, []byte(strconv.Itoa(os.Getpid()))); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return xsync.DoR1(ctx, &i.locker, func() error {
		i.status = models.RecordingStatus{
			PID:     os.Getpid(),
			State:   models.StateInit,
			Profile: profileName,
		}
		return i.writeStatus()
	})
}

// Release removes the PID and status files
func (i *Instance) Release(ctx context.Context) {
	for _, f := range []string{i.pidFile, i.statusFile} {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			logger.Warnf(ctx, "failed to remove %s: %v", f, err)
		}
	}
}

// Apply folds a controller event into the status file
func (i *Instance) Apply(ctx context.Context, ev recording.Event) error {
	return xsync.DoR1(ctx, &i.locker, func() error {
		switch ev.Kind {
		case recording.EventStateChanged:
			i.status.State = ev.State.Kind
			i.status.SecsLeft = ev.State.SecsLeft
			i.status.Progress = ev.State.Progress
			if ev.State.Kind == models.StateRecording && i.status.StartTime.IsZero() {
				i.status.StartTime = time.Now()
			}
		case recording.EventDurationChanged:
			i.status.Duration = ev.Duration
		case recording.EventFinished:
			i.status.State = models.StateFinished
			if ev.Result != nil {
				i.status.OutputFile = ev.Result.Path
				i.status.Duration = ev.Result.Duration
			}
		}
		return i.writeStatus()
	})
}

// SetOutputFile records the file being written
func (i *Instance) SetOutputFile(ctx context.Context, path string) error {
	return xsync.DoR1(ctx, &i.locker, func() error {
		if i.status.OutputFile == path {
			return nil
		}
		i.status.OutputFile = path
		return i.writeStatus()
	})
}

func (i *Instance) writeStatus() error {
	i.status.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(i.status, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(i.statusFile, data)
}

// Status returns the status of the running recorder. The zero status,
// which is not active, is returned when nothing runs.
func (i *Instance) Status() models.RecordingStatus {
	pid := i.PID()
	if pid == 0 {
		return models.RecordingStatus{}
	}

	var status models.RecordingStatus
	data, err := os.ReadFile(i.statusFile)
	if err == nil {
		err = json.Unmarshal(data, &status)
	}
	if err != nil {
		return models.RecordingStatus{PID: pid, State: models.StateInit}
	}
	status.PID = pid
	return status
}

// Send delivers a command to the running recorder
func (i *Instance) Send(c Command) error {
	pid := i.PID()
	if pid == 0 {
		return fmt.Errorf("no recording in progress")
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return process.Signal(c.Signal())
}

// WaitExit waits until the running recorder exits or ctx is done
func (i *Instance) WaitExit(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for i.IsRunning() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Helper functions

func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

func readPID(pidFile string) int {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return 0
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}

	return pid
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
