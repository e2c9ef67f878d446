package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kartoza/kartoza-portal-recorder/internal/models"
	"github.com/kartoza/kartoza-portal-recorder/internal/recorder"
)

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the current recording",
	Long: `Pause the current recording session. Paused time is left out of the
recording; resume it with 'kartoza-portal-recorder resume'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rec := recorder.New()
		status := rec.Status()

		switch status.State {
		case models.StatePaused:
			return fmt.Errorf("recording is already paused")
		case models.StateRecording:
		default:
			return fmt.Errorf("no recording in progress")
		}

		fmt.Println("Pausing recording...")
		if err := rec.Send(recorder.CommandPause); err != nil {
			return err
		}
		fmt.Println("Use 'kartoza-portal-recorder resume' to continue recording.")
		return nil
	},
}
