// Package deps checks the programs and GStreamer elements a recording needs.
package deps

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/kartoza/kartoza-portal-recorder/internal/media"
)

// DisplayServer represents the type of display server in use
type DisplayServer string

const (
	DisplayServerWayland DisplayServer = "wayland"
	DisplayServerX11     DisplayServer = "x11"
	DisplayServerUnknown DisplayServer = "unknown"
)

// DetectDisplayServer determines if running on Wayland or X11
func DetectDisplayServer() DisplayServer {
	switch {
	case os.Getenv("WAYLAND_DISPLAY") != "":
		return DisplayServerWayland
	case os.Getenv("DISPLAY") != "":
		return DisplayServerX11
	}
	return DisplayServerUnknown
}

// GetDisplayServerName returns a human-readable name for the display server
func GetDisplayServerName() string {
	switch DetectDisplayServer() {
	case DisplayServerWayland:
		return "Wayland"
	case DisplayServerX11:
		return "X11"
	default:
		return "Unknown"
	}
}

// Kind tells how a dependency is looked up
type Kind string

const (
	// KindProgram is an executable on PATH
	KindProgram Kind = "program"
	// KindElement is a GStreamer element factory
	KindElement Kind = "element"
)

// Dependency is something a recording may need
type Dependency struct {
	Name        string
	Description string
	Kind        Kind
	Required    bool
}

// CheckResult contains the result of checking a dependency
type CheckResult struct {
	Dependency Dependency
	Available  bool
	Path       string // set for programs that were found
	Error      error
}

// Programs run by the recorder
var Programs = []Dependency{
	{Name: "pactl", Description: "Finds the default microphone and speaker", Kind: KindProgram},
	{Name: "notify-send", Description: "Desktop notifications", Kind: KindProgram},
}

// AreaSelectors are only useful on Wayland; on X11 pass --area instead
var AreaSelectors = []Dependency{
	{Name: "slurp", Description: "Area selection for --mode selection", Kind: KindProgram},
}

// Elements used by every recording graph, and by audio recording
var Elements = []Dependency{
	{Name: "pipewiresrc", Description: "Reads the screen cast stream (gstreamer1.0-pipewire)", Kind: KindElement, Required: true},
	{Name: "videorate", Description: "Fixes the framerate (gst-plugins-base)", Kind: KindElement, Required: true},
	{Name: "videoscale", Description: "Scales for area selection (gst-plugins-base)", Kind: KindElement, Required: true},
	{Name: "videocrop", Description: "Crops to the selected area (gst-plugins-good)", Kind: KindElement, Required: true},
	{Name: "compositor", Description: "Joins several streams side by side (gst-plugins-base)", Kind: KindElement, Required: true},
	{Name: "queue", Description: "Decouples capture and encoding (gstreamer core)", Kind: KindElement, Required: true},
	{Name: "filesink", Description: "Writes the recording (gstreamer core)", Kind: KindElement, Required: true},
	{Name: "pulsesrc", Description: "Captures audio (gst-plugins-good)", Kind: KindElement},
	{Name: "audiomixer", Description: "Mixes microphone and speaker (gst-plugins-base)", Kind: KindElement},
	{Name: "audiorate", Description: "Fills audio gaps (gst-plugins-base)", Kind: KindElement},
}

// Checker looks dependencies up
type Checker struct {
	LookPath  func(file string) (string, error)
	Inspector media.Inspector
}

// NewChecker returns a checker using PATH and the given element inspector
func NewChecker(inspector media.Inspector) *Checker {
	return &Checker{LookPath: exec.LookPath, Inspector: inspector}
}

// All returns the dependencies relevant on the current display server
func All() []Dependency {
	var out []Dependency
	out = append(out, Programs...)
	if DetectDisplayServer() != DisplayServerX11 {
		out = append(out, AreaSelectors...)
	}
	return append(out, Elements...)
}

// Check verifies if a single dependency is available. Elements need an
// inspector.
func (c *Checker) Check(ctx context.Context, dep Dependency) CheckResult {
	result := CheckResult{Dependency: dep}

	switch dep.Kind {
	case KindElement:
		if c.Inspector == nil {
			result.Error = fmt.Errorf("cannot check elements without the GStreamer registry")
			return result
		}
		result.Available = c.Inspector.HasFactory(ctx, dep.Name)
		if !result.Available {
			result.Error = fmt.Errorf("element factory %q not found", dep.Name)
		}
	default:
		path, err := c.LookPath(dep.Name)
		result.Available = err == nil
		result.Path = path
		result.Error = err
	}

	return result
}

// CheckAll verifies every dependency, split into required and optional
func (c *Checker) CheckAll(ctx context.Context) (required []CheckResult, optional []CheckResult) {
	for _, dep := range All() {
		r := c.Check(ctx, dep)
		if dep.Required {
			required = append(required, r)
		} else {
			optional = append(optional, r)
		}
	}
	return required, optional
}

// MissingRequired returns the required dependencies that were not found
func (c *Checker) MissingRequired(ctx context.Context) []CheckResult {
	var missing []CheckResult
	for _, dep := range All() {
		if !dep.Required {
			continue
		}
		if r := c.Check(ctx, dep); !r.Available {
			missing = append(missing, r)
		}
	}
	return missing
}

// FormatMissing returns a formatted string of missing dependencies
func FormatMissing(results []CheckResult) string {
	if len(results) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Missing dependencies:\n\n")

	for _, r := range results {
		fmt.Fprintf(&sb, "  • %s (%s)\n", r.Dependency.Name, r.Dependency.Kind)
		fmt.Fprintf(&sb, "    %s\n\n", r.Dependency.Description)
	}
	sb.WriteString("Run 'kartoza-portal-recorder deps' for details.")

	return sb.String()
}
