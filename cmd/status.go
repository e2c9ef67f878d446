package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kartoza/kartoza-portal-recorder/internal/models"
	"github.com/kartoza/kartoza-portal-recorder/internal/recorder"
)

var jsonOutput bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recording status",
	Long:  `Display the current recording status including state, duration and output file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		status := recorder.New().Status()

		if jsonOutput {
			data, err := json.MarshalIndent(status, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Print(formatStatus(status))
		return nil
	},
}

func formatStatus(status models.RecordingStatus) string {
	if !status.IsActive() {
		return "Recording: INACTIVE\n"
	}

	var state string
	switch status.State {
	case models.StateInit:
		state = "STARTING"
	case models.StateDelayed:
		state = fmt.Sprintf("COUNTDOWN (%ds)", status.SecsLeft)
	case models.StateRecording:
		state = "ACTIVE"
	case models.StatePaused:
		state = "PAUSED"
	case models.StateFlushing:
		state = fmt.Sprintf("SAVING (%d%%)", status.Progress)
	}

	s := fmt.Sprintf("Recording: %s\n", state)
	s += fmt.Sprintf("PID:       %d\n", status.PID)
	s += fmt.Sprintf("Profile:   %s\n", status.Profile)
	s += fmt.Sprintf("Duration:  %s\n", models.FormatClock(status.Duration))
	if status.OutputFile != "" {
		s += fmt.Sprintf("File:      %s\n", status.OutputFile)
	}
	if status.State == models.StatePaused {
		s += "\nUse 'kartoza-portal-recorder resume' to continue recording.\n"
		s += "Use 'kartoza-portal-recorder stop' to finish.\n"
	}
	return s
}

func init() {
	statusCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")
}
