package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kartoza/kartoza-portal-recorder/internal/recorder"
)

var waitTimeout time.Duration

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop screen recording",
	Long: `Stop the current screen recording session. The recorder finishes writing
the file before it exits; this command waits for that unless --wait=0.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendCommand(cmd.Context(), recorder.New(), recorder.CommandStop, "Stopping recording...", waitTimeout)
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel screen recording and delete the partial file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendCommand(cmd.Context(), recorder.New(), recorder.CommandCancel, "Cancelling recording...", waitTimeout)
	},
}

// sendCommand signals the running recorder and waits up to wait for it
// to exit
func sendCommand(ctx context.Context, rec *recorder.Instance, c recorder.Command, message string, wait time.Duration) error {
	if !rec.IsRunning() {
		return fmt.Errorf("no recording in progress")
	}

	fmt.Println(message)
	if err := rec.Send(c); err != nil {
		return fmt.Errorf("failed to %s the recording: %w", c, err)
	}
	if wait <= 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	if err := rec.WaitExit(ctx); err != nil {
		return fmt.Errorf("the recorder is still running after %s", wait)
	}
	return nil
}

func init() {
	for _, c := range []*cobra.Command{stopCmd, cancelCmd} {
		c.Flags().DurationVar(&waitTimeout, "wait", 30*time.Second, "how long to wait for the recorder to exit")
	}
}
