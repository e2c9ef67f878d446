package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kartoza/kartoza-portal-recorder/internal/deps"
	"github.com/kartoza/kartoza-portal-recorder/internal/media/gstreamer"
	"github.com/kartoza/kartoza-portal-recorder/internal/portal"
)

var depsStyles = struct {
	green, red, gray, cyan, bold lipgloss.Style
}{
	green: lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")),
	red:   lipgloss.NewStyle().Foreground(lipgloss.Color("#E95420")),
	gray:  lipgloss.NewStyle().Foreground(lipgloss.Color("#9A9EA0")),
	cyan:  lipgloss.NewStyle().Foreground(lipgloss.Color("#00BCD4")),
	bold:  lipgloss.NewStyle().Bold(true),
}

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Check for required dependencies",
	Long: `Check that the ScreenCast portal answers on the session bus and that the
programs and GStreamer elements used by the recording pipeline are installed.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		st := depsStyles
		required, optional := deps.NewChecker(gstreamer.NewInspector(ctx)).CheckAll(ctx)

		fmt.Println()
		fmt.Printf("%s %s\n\n", st.bold.Render("Display Server:"), st.cyan.Render(deps.GetDisplayServerName()))

		portalOk := true
		info, err := checkPortal(ctx)
		if err != nil {
			portalOk = false
			info = err.Error()
		}
		fmt.Println(st.bold.Render("Capture Broker:"))
		fmt.Println()
		printDependency(portalOk, true, "xdg-desktop-portal ScreenCast", info)

		fmt.Println(st.bold.Render("Required Dependencies:"))
		fmt.Println()
		requiredOk := true
		for _, r := range required {
			requiredOk = requiredOk && r.Available
			printDependency(r.Available, true, r.Dependency.Name, describeResult(r))
		}

		fmt.Println(st.bold.Render("Optional Dependencies:"))
		fmt.Println()
		for _, r := range optional {
			printDependency(r.Available, false, r.Dependency.Name, describeResult(r))
		}

		switch {
		case requiredOk && portalOk:
			fmt.Println(st.green.Render("All required dependencies are installed!"))
		case !portalOk:
			fmt.Println(st.red.Render("The ScreenCast portal is not reachable."))
			fmt.Println("Make sure xdg-desktop-portal and a backend for your desktop are running.")
		default:
			fmt.Println(st.red.Render("Some required dependencies are missing."))
			fmt.Println("Please install them before using the application.")
		}
		fmt.Println()
	},
}

func describeResult(r deps.CheckResult) string {
	desc := r.Dependency.Description
	if r.Path != "" {
		desc += "\n    Path: " + r.Path
	}
	return desc
}

func printDependency(ok, required bool, name, description string) {
	st := depsStyles
	status := st.gray.Render("○")
	switch {
	case ok:
		status = st.green.Render("✓")
	case required:
		status = st.red.Render("✗")
	}
	fmt.Printf("  %s %s\n", status, st.bold.Render(name))
	fmt.Printf("    %s\n\n", st.gray.Render(description))
}

// checkPortal describes the ScreenCast interface of the running portal
func checkPortal(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	conn, err := portal.Dial(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	n := portal.NewNegotiator(conn)
	version, err := n.Version(ctx)
	if err != nil {
		return "", err
	}
	sources, err := n.AvailableSourceTypes(ctx)
	if err != nil {
		return "", err
	}
	cursors, err := n.AvailableCursorModes(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("version %d, sources: %s, cursor modes: %s", version, sources, cursors), nil
}
