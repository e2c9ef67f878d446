package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kartoza/kartoza-portal-recorder/internal/recorder"
)

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Toggle screen recording on/off",
	Long: `Toggle screen recording. If recording is active, stop it. If not recording,
start a new recording in the foreground with the saved configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rec := recorder.New()

		if rec.IsRunning() {
			return sendCommand(cmd.Context(), rec, recorder.CommandStop, "Stopping recording...", 0)
		}

		return runStart(cmd, args)
	},
}

func init() {
	toggleCmd.Flags().BoolVar(&startOpts.noTUI, "no-tui", false, "print plain progress lines instead of the interactive screen")
}
