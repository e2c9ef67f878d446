package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kartoza/kartoza-portal-recorder/internal/config"
	"github.com/kartoza/kartoza-portal-recorder/internal/experimental"
	"github.com/kartoza/kartoza-portal-recorder/internal/media/gstreamer"
	"github.com/kartoza/kartoza-portal-recorder/internal/profile"
)

var profilesJSONOutput bool

type profileEntry struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Extension    string `json:"extension"`
	Audio        bool   `json:"audio"`
	Experimental bool   `json:"experimental"`
	Available    bool   `json:"available"`
	Active       bool   `json:"active"`
}

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the encoding profiles",
	Long: `List the encoding profiles and whether the GStreamer elements they need
are installed. Experimental profiles are listed when KARTOZA_EXPERIMENTAL
contains experimental-formats or all.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		catalog, err := profile.Builtin()
		if err != nil {
			return err
		}
		active := config.DefaultProfile
		if cfg, err := config.Load(); err == nil {
			active = cfg.ProfileID()
		}

		inspector := gstreamer.NewInspector(ctx)
		var entries []profileEntry
		for _, p := range catalog.Visible(experimental.FromEnv(ctx)) {
			entries = append(entries, profileEntry{
				ID:           p.ID,
				Name:         p.Name,
				Extension:    p.FileExtension(),
				Audio:        p.SupportsAudio(),
				Experimental: p.Experimental,
				Available:    p.IsAvailable(ctx, inspector),
				Active:       p.ID == active,
			})
		}

		if profilesJSONOutput {
			data, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		green := lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
		gray := lipgloss.NewStyle().Foreground(lipgloss.Color("#9A9EA0"))
		orange := lipgloss.NewStyle().Foreground(lipgloss.Color("#DDA036")).Bold(true)

		for _, e := range entries {
			status := gray.Render("○")
			if e.Available {
				status = green.Render("✓")
			}
			name := e.ID
			if e.Active {
				name = orange.Render(e.ID + " *")
			}
			var notes []string
			if !e.Audio {
				notes = append(notes, "no audio")
			}
			if e.Experimental {
				notes = append(notes, "experimental")
			}
			line := fmt.Sprintf("  %s %-14s %s (.%s)", status, name, e.Name, e.Extension)
			if len(notes) > 0 {
				line += gray.Render(fmt.Sprintf(" [%s]", strings.Join(notes, ", ")))
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	profilesCmd.Flags().BoolVar(&profilesJSONOutput, "json", false, "Output profiles as JSON")
}
