package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kartoza/kartoza-portal-recorder/internal/models"
	"github.com/kartoza/kartoza-portal-recorder/internal/recorder"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused recording",
	RunE: func(cmd *cobra.Command, args []string) error {
		rec := recorder.New()

		if rec.Status().State != models.StatePaused {
			return fmt.Errorf("no paused recording to resume")
		}

		fmt.Println("Resuming recording...")
		if err := rec.Send(recorder.CommandResume); err != nil {
			return err
		}
		fmt.Println("Use 'kartoza-portal-recorder pause' to pause or 'stop' to finish.")
		return nil
	},
}
