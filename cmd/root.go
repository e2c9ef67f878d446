package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/facebookincubator/go-belt/tool/logger"
	xlogrus "github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/cobra"
)

var (
	version = "dev"

	// LoggerLevel is the level of the logger put into the command context
	LoggerLevel = logger.LevelWarning

	logFile string
)

// SetVersion sets the application version (called from main)
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "kartoza-portal-recorder",
	Short: "Screen recorder for Wayland and X11 desktops using the ScreenCast portal",
	Long: `Kartoza Portal Recorder records the screen through the xdg-desktop-portal
ScreenCast interface and encodes it with GStreamer.

It supports:
  - Recording a monitor, a window or a selected area
  - Desktop audio and microphone capture
  - Countdown before the recording starts
  - Pausing and resuming, controlled from another terminal or a key binding
  - Several encoding profiles (WebM, MP4, Matroska, GIF and more)

Running it without a subcommand starts a recording.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		l := logger.FromCtx(ctx)
		if logFile != "" {
			f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				l.Errorf("unable to open the log file '%s': %v", logFile, err)
			} else {
				ll := xlogrus.DefaultLogrusLogger()
				ll.SetOutput(f)
				l = xlogrus.New(ll)
			}
		}
		l = l.WithLevel(LoggerLevel)
		ctx = logger.CtxWithLogger(ctx, l)
		cmd.SetContext(ctx)
		logger.Debugf(ctx, "log-level: %v", LoggerLevel)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Debug(cmd.Context(), "end")
	},
	RunE: runStart,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("kartoza-portal-recorder %s\n", version)
	},
}

// Execute runs the root command with ctx
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().Var(&LoggerLevel, "log-level", "logging level (trace, debug, info, warning, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(depsCmd)
	rootCmd.AddCommand(versionCmd)
}
