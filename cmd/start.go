package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/benbjohnson/clock"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/observability"

	"github.com/kartoza/kartoza-portal-recorder/internal/areaselect"
	"github.com/kartoza/kartoza-portal-recorder/internal/audio"
	"github.com/kartoza/kartoza-portal-recorder/internal/beep"
	"github.com/kartoza/kartoza-portal-recorder/internal/config"
	"github.com/kartoza/kartoza-portal-recorder/internal/deps"
	"github.com/kartoza/kartoza-portal-recorder/internal/experimental"
	"github.com/kartoza/kartoza-portal-recorder/internal/media/gstreamer"
	"github.com/kartoza/kartoza-portal-recorder/internal/models"
	"github.com/kartoza/kartoza-portal-recorder/internal/notify"
	"github.com/kartoza/kartoza-portal-recorder/internal/portal"
	"github.com/kartoza/kartoza-portal-recorder/internal/profile"
	"github.com/kartoza/kartoza-portal-recorder/internal/recerr"
	"github.com/kartoza/kartoza-portal-recorder/internal/recorder"
	"github.com/kartoza/kartoza-portal-recorder/internal/recording"
	"github.com/kartoza/kartoza-portal-recorder/internal/tui"
)

type startOptions struct {
	profile      string
	delay        int
	pointer      bool
	mic          bool
	speaker      bool
	mode         string
	area         string
	framerate    int
	outputDir    string
	parentWindow string
	noTUI        bool
	noBeep       bool
	save         bool
}

var startOpts startOptions

var startCmd = &cobra.Command{
	Use:     "start",
	Aliases: []string{"record"},
	Short:   "Start screen recording",
	Long: `Start a new screen recording session.

The desktop asks which monitor or window to share, unless a previous grant
can be restored. The recording runs in the foreground until it is stopped
with 's' in the terminal, with SIGINT or with 'kartoza-portal-recorder stop'.

Command line flags override the saved configuration for this recording
only, unless --save is given.`,
	RunE: runStart,
}

func init() {
	addStartFlags(startCmd.Flags())
	addStartFlags(rootCmd.Flags())
}

func addStartFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&startOpts.profile, "profile", "p", "", "encoding profile id (see 'profiles')")
	flags.IntVarP(&startOpts.delay, "delay", "d", 0, "seconds to count down before recording")
	flags.BoolVar(&startOpts.pointer, "pointer", true, "show the mouse pointer")
	flags.BoolVar(&startOpts.mic, "mic", false, "record the default microphone")
	flags.BoolVar(&startOpts.speaker, "speaker", false, "record the desktop audio")
	flags.StringVarP(&startOpts.mode, "mode", "m", "", "capture mode: monitor-window or selection")
	flags.StringVar(&startOpts.area, "area", "", "record this area instead of asking, e.g. \"0,0 1280x720\"")
	flags.IntVar(&startOpts.framerate, "framerate", 0, "requested framerate (0: the profile's suggestion)")
	flags.StringVarP(&startOpts.outputDir, "output", "o", "", "output directory (default: ~/Videos)")
	flags.StringVar(&startOpts.parentWindow, "parent-window", "", "parent window identifier for the portal dialogs")
	flags.BoolVar(&startOpts.noTUI, "no-tui", false, "print plain progress lines instead of the interactive screen")
	flags.BoolVar(&startOpts.noBeep, "no-beep", false, "do not beep during the countdown")
	flags.BoolVar(&startOpts.save, "save", false, "save the given flags as the new defaults")
}

// applyStartFlags copies the flags the user set onto cfg
func applyStartFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	if flags.Changed("profile") {
		cfg.ProfileName = startOpts.profile
	}
	if flags.Changed("delay") {
		if startOpts.delay < 0 {
			return fmt.Errorf("the delay cannot be negative")
		}
		cfg.DelaySeconds = startOpts.delay
	}
	if flags.Changed("pointer") {
		cfg.PointerVisible = startOpts.pointer
	}
	if flags.Changed("mic") {
		cfg.MicEnabled = startOpts.mic
	}
	if flags.Changed("speaker") {
		cfg.SpeakerEnabled = startOpts.speaker
	}
	if flags.Changed("mode") {
		mode, err := models.ParseCaptureMode(startOpts.mode)
		if err != nil {
			return err
		}
		cfg.Mode = mode
	}
	if flags.Changed("area") {
		cfg.Mode = models.CaptureSelection
	}
	if flags.Changed("framerate") {
		cfg.VideoFramerate = startOpts.framerate
	}
	if flags.Changed("output") {
		cfg.OutputDir = startOpts.outputDir
	}
	return nil
}

func runStart(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cmd.SilenceUsage = true

	if missing := deps.NewChecker(gstreamer.NewInspector(ctx)).MissingRequired(ctx); len(missing) > 0 {
		return errors.New(deps.FormatMissing(missing))
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyStartFlags(cmd.Flags(), cfg); err != nil {
		return err
	}
	if startOpts.save {
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
	}
	if err := config.EnsureDirectories(); err != nil {
		logger.Warnf(ctx, "failed to create the default directories: %v", err)
	}

	inst := recorder.New()
	if err := inst.Claim(ctx, cfg.ProfileID()); err != nil {
		return err
	}
	defer inst.Release(ctx)

	conn, err := portal.Dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	var selector recording.AreaSelector = areaselect.NewSlurp()
	if startOpts.area != "" {
		rect, err := areaselect.ParseGeometry(startOpts.area)
		if err != nil {
			return err
		}
		selector = areaselect.Static{Selection: rect}
	}

	catalog, err := profile.Builtin()
	if err != nil {
		return err
	}

	clk := clock.New()
	launcher := gstreamer.NewLauncher(ctx)
	ctrl := recording.New(ctx, recording.Dependencies{
		Negotiator:   portal.NewNegotiator(conn),
		AreaSelector: selector,
		Audio:        audio.NewFinder(),
		Launcher:     launcher,
		Inspector:    gstreamer.NewInspector(ctx),
		Catalog:      catalog,
		Features:     experimental.FromEnv(ctx),
		Clock:        clk,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, recorder.Signals()...)
	defer signal.Stop(sigCh)
	observability.Go(ctx, func(ctx context.Context) {
		for {
			select {
			case sig := <-sigCh:
				if c, ok := recorder.CommandForSignal(sig); ok {
					dispatch(ctx, ctrl, c)
				}
			case <-ctrl.Done():
				return
			}
		}
	})

	if err := ctrl.Start(ctx, startOpts.parentWindow, cfg); err != nil {
		return err
	}

	var startedAt time.Time
	forward := func(recording.Event) {}
	if startOpts.noTUI {
		forward = printEvent
	}

	var program *tea.Program
	if !startOpts.noTUI {
		program = tea.NewProgram(
			tui.NewRecordingModel(ctrl, cfg.ProfileID()),
			tea.WithAltScreen(),
			tea.WithContext(ctx),
			tea.WithoutSignalHandler(),
		)
		forward = func(ev recording.Event) { program.Send(tui.EventMsg(ev)) }
	}

	var beeper *beep.Player
	if !startOpts.noBeep {
		beeper = beep.New(launcher)
	}

	pumpDone := make(chan struct{})
	observability.Go(ctx, func(ctx context.Context) {
		defer close(pumpDone)
		for ev := range ctrl.Events() {
			if ev.Kind == recording.EventStateChanged && ev.State.Kind == models.StateRecording && startedAt.IsZero() {
				startedAt = time.Now()
			}
			if ev.Kind == recording.EventStateChanged && ev.State.Kind == models.StateDelayed && beeper != nil {
				secsLeft := ev.State.SecsLeft
				observability.Go(ctx, func(ctx context.Context) {
					if err := beeper.Play(ctx, secsLeft); err != nil {
						logger.Debugf(ctx, "%v", err)
					}
				})
			}
			if path := ctrl.OutputPath(); path != "" {
				if err := inst.SetOutputFile(ctx, path); err != nil {
					logger.Warnf(ctx, "failed to update the status file: %v", err)
				}
			}
			if err := inst.Apply(ctx, ev); err != nil {
				logger.Warnf(ctx, "failed to update the status file: %v", err)
			}
			forward(ev)
		}
	})

	if program != nil {
		final, err := program.Run()
		if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			logger.Errorf(ctx, "the terminal interface failed: %v", err)
		}
		if m, ok := final.(*tui.RecordingModel); !ok || !m.IsFinished() {
			logger.Debugf(ctx, "the terminal interface exited early, cancelling")
			if err := ctrl.Cancel(); err != nil {
				logger.Debugf(ctx, "cancel: %v", err)
			}
		}
	}
	<-ctrl.Done()
	<-pumpDone

	result, recErr := ctrl.Result()
	if err := notify.RecordingFinished(ctx, result, recErr); err != nil {
		logger.Debugf(ctx, "failed to send the notification: %v", err)
	}

	switch {
	case recErr == nil:
		writeRecordingInfo(ctx, ctrl, cfg.ProfileID(), result, startedAt)
		fmt.Printf("Recording saved to %s (%s)\n", result.Path, models.FormatDuration(result.Duration))
		return nil
	case recerr.IsCancelled(recErr):
		fmt.Println("Recording cancelled.")
		return nil
	default:
		if help := recerr.HelpOf(recErr); help != "" {
			fmt.Fprintln(os.Stderr, help)
		}
		return recErr
	}
}

// dispatch applies a command received from another invocation
func dispatch(ctx context.Context, ctrl *recording.Controller, c recorder.Command) {
	logger.Debugf(ctx, "received %s", c)

	var err error
	switch c {
	case recorder.CommandStop:
		err = ctrl.Stop()
	case recorder.CommandPause:
		err = ctrl.Pause()
	case recorder.CommandResume:
		err = ctrl.Resume()
	case recorder.CommandCancel:
		err = ctrl.Cancel()
	}
	if err != nil {
		logger.Warnf(ctx, "%s: %v", c, err)
	}
}

func printEvent(ev recording.Event) {
	switch ev.Kind {
	case recording.EventStateChanged:
		switch ev.State.Kind {
		case models.StateDelayed:
			fmt.Printf("Recording starts in %d...\n", ev.State.SecsLeft)
		case models.StateRecording:
			fmt.Println("Recording.")
		case models.StatePaused:
			fmt.Println("Paused.")
		case models.StateFlushing:
			fmt.Printf("Saving... %d%%\n", ev.State.Progress)
		}
	case recording.EventFinished:
		if ev.Err != nil && !recerr.IsCancelled(ev.Err) {
			fmt.Fprintf(os.Stderr, "Recording failed: %v\n", ev.Err)
		}
	}
}

func writeRecordingInfo(ctx context.Context, ctrl *recording.Controller, profileID string, result *models.CompletedRecording, startedAt time.Time) {
	info := models.NewRecordingInfo(result.Path, profileID, ctrl.Streams(), startedAt)
	info.SetDuration(time.Now(), result.Duration)
	info.Crop = ctrl.Selection()
	info.AppVersion = version
	if err := info.Save(); err != nil {
		logger.Warnf(ctx, "failed to save the recording info: %v", err)
	}
}
