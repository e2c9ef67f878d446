package notify

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/facebookincubator/go-belt/tool/logger"

	"github.com/kartoza/kartoza-portal-recorder/internal/models"
	"github.com/kartoza/kartoza-portal-recorder/internal/recerr"
)

// Urgency levels for notifications
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyNormal   Urgency = "normal"
	UrgencyCritical Urgency = "critical"
)

// AppName is shown as the sender of every notification
const AppName = "Kartoza Portal Recorder"

// Command is the notification program; tests replace it
var Command = "notify-send"

// Send sends a desktop notification using notify-send
func Send(title, body string, urgency Urgency, icon string) error {
	args := []string{"--app-name=" + AppName}

	if urgency != "" {
		args = append(args, "--urgency="+string(urgency))
	}

	if icon != "" {
		args = append(args, "--icon="+icon)
	}

	args = append(args, title, body)
	cmd := exec.Command(Command, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return cmd.Run()
}

// Info sends an informational notification
func Info(title, body string) error {
	return Send(title, body, UrgencyNormal, "video-x-generic")
}

// Warning sends a warning notification
func Warning(title, body string) error {
	return Send(title, body, UrgencyLow, "dialog-warning")
}

// Error sends an error notification
func Error(title, body string) error {
	return Send(title, body, UrgencyCritical, "dialog-error")
}

// RecordingFinished reports the outcome of a recording. Cancellations
// are expected and stay silent.
func RecordingFinished(ctx context.Context, result *models.CompletedRecording, err error) error {
	switch {
	case err != nil && recerr.IsCancelled(err):
		logger.Debugf(ctx, "not notifying about a cancelled recording")
		return nil
	case err != nil:
		body := err.Error()
		if help := recerr.HelpOf(err); help != "" {
			body += "\n\n" + help
		}
		return Error("Failed to record", body)
	default:
		return Info("Screencast recorded",
			fmt.Sprintf("%s (%s) saved to %s",
				filepath.Base(result.Path),
				models.FormatDuration(result.Duration),
				filepath.Dir(result.Path)))
	}
}
