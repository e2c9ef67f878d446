// Package profile describes the encoding profiles a recording can use and
// attaches them to a media graph.
package profile

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/facebookincubator/go-belt/tool/logger"

	"github.com/kartoza/kartoza-portal-recorder/internal/media"
	"github.com/kartoza/kartoza-portal-recorder/internal/recerr"
)

// DefaultFramerate is used when a profile does not suggest one
const DefaultFramerate = 60

// MaxThreadCount caps the ${N_THREADS} placeholder
const MaxThreadCount = 64

// ThreadCount is the value substituted for ${N_THREADS}
func ThreadCount() int {
	return min(runtime.NumCPU(), MaxThreadCount)
}

// Profile is an encoding profile: a video encoder chain, an optional audio
// encoder chain and an optional container muxer
type Profile struct {
	ID              string `yaml:"id"`
	Name            string `yaml:"name"`
	Extension       string `yaml:"extension"`
	SuggestedMaxFPS int    `yaml:"suggested-max-fps"`
	VideoEncoder    string `yaml:"videoenc"`
	AudioEncoder    string `yaml:"audioenc"`
	Muxer           string `yaml:"muxer"`

	Experimental bool `yaml:"-"`
}

// FileExtension returns the extension of produced files, without the dot
func (p *Profile) FileExtension() string {
	return p.Extension
}

// SuggestedMaxFramerate returns the framerate ceiling the profile asks for,
// or zero when there is none
func (p *Profile) SuggestedMaxFramerate() int {
	return p.SuggestedMaxFPS
}

// Framerate caps the requested framerate with the profile suggestion
func (p *Profile) Framerate(requested int) int {
	if requested <= 0 {
		requested = DefaultFramerate
	}
	if p.SuggestedMaxFPS > 0 && requested > p.SuggestedMaxFPS {
		return p.SuggestedMaxFPS
	}
	return requested
}

// SupportsAudio reports whether the profile can encode audio
func (p *Profile) SupportsAudio() bool {
	return strings.TrimSpace(p.AudioEncoder) != ""
}

// HasContainer reports whether the profile muxes into a container
func (p *Profile) HasContainer() bool {
	return strings.TrimSpace(p.Muxer) != ""
}

func (p *Profile) String() string {
	return p.ID
}

type parsedProfile struct {
	video *media.Fragment
	audio *media.Fragment
	muxer *media.ElementSpec
}

func expand(desc string) string {
	return strings.ReplaceAll(desc, "${N_THREADS}", strconv.Itoa(ThreadCount()))
}

// parse dry-runs every fragment without touching a graph
func (p *Profile) parse() (*parsedProfile, error) {
	if strings.TrimSpace(p.VideoEncoder) == "" {
		return nil, fmt.Errorf("profile %q has no video encoder", p.ID)
	}
	out := &parsedProfile{}

	var err error
	if out.video, err = media.ParseFragment(expand(p.VideoEncoder)); err != nil {
		return nil, fmt.Errorf("profile %q video encoder: %w", p.ID, err)
	}
	if p.SupportsAudio() {
		if !p.HasContainer() {
			return nil, fmt.Errorf("profile %q encodes audio but has no container", p.ID)
		}
		if out.audio, err = media.ParseFragment(expand(p.AudioEncoder)); err != nil {
			return nil, fmt.Errorf("profile %q audio encoder: %w", p.ID, err)
		}
	}
	if p.HasContainer() {
		mux, err := media.ParseFragment(expand(p.Muxer))
		if err != nil {
			return nil, fmt.Errorf("profile %q muxer: %w", p.ID, err)
		}
		if len(mux.Elements) != 1 || !media.IsMuxer(mux.Elements[0].Factory) {
			return nil, fmt.Errorf("profile %q muxer %q is not a single known muxer", p.ID, p.Muxer)
		}
		out.muxer = &mux.Elements[0]
	}
	return out, nil
}

func (pp *parsedProfile) factories() []string {
	out := pp.video.Factories()
	if pp.audio != nil {
		out = append(out, pp.audio.Factories()...)
	}
	if pp.muxer != nil {
		out = append(out, pp.muxer.Factory)
	}
	return out
}

// IsAvailable reports whether every element the profile needs is installed.
// The reason for an unavailable profile is logged.
func (p *Profile) IsAvailable(ctx context.Context, inspector media.Inspector) bool {
	pp, err := p.parse()
	if err != nil {
		logger.Warnf(ctx, "profile %q is not available: %v", p.ID, err)
		return false
	}
	var missing []string
	for _, factory := range pp.factories() {
		if !inspector.HasFactory(ctx, factory) {
			missing = append(missing, factory)
		}
	}
	if len(missing) > 0 {
		logger.Debugf(ctx, "profile %q is not available, missing elements: %s", p.ID, strings.Join(missing, ", "))
		return false
	}
	return true
}

// Attach adds the encoders (and muxer) to g, linking videoSrc and
// optionally audioSrc to sink. Every precondition is checked before the
// graph is modified, so a failed Attach leaves g untouched.
func (p *Profile) Attach(ctx context.Context, g *media.Graph, videoSrc, audioSrc, sink *media.Element) error {
	const op = "attach profile"

	pp, err := p.parse()
	if err != nil {
		return recerr.Config(op, err.Error())
	}
	if videoSrc == nil || sink == nil {
		return recerr.Config(op, "video source and sink are required")
	}
	if videoSrc.Pad("src") == nil || videoSrc.Pad("src").IsLinked() {
		return recerr.Config(op, fmt.Sprintf("%s has no free source pad", videoSrc))
	}
	if sink.Pad("sink") == nil || sink.Pad("sink").IsLinked() {
		return recerr.Config(op, fmt.Sprintf("%s has no free sink pad", sink))
	}
	if audioSrc != nil {
		switch {
		case !p.HasContainer():
			logger.Warnf(ctx, "profile %q does not support audio, ignoring the audio source", p.ID)
			audioSrc = nil
		case !p.SupportsAudio():
			return recerr.Config(op, fmt.Sprintf("profile %q has a container but no audio encoder", p.ID))
		case audioSrc.Pad("src") == nil || audioSrc.Pad("src").IsLinked():
			return recerr.Config(op, fmt.Sprintf("%s has no free source pad", audioSrc))
		}
	}

	videoFirst, videoLast, err := g.AddFragment(pp.video)
	if err != nil {
		return recerr.Wrap(err, recerr.KindConfig, op)
	}
	if err := g.Link(videoSrc, videoFirst); err != nil {
		return recerr.Wrap(err, recerr.KindConfig, op)
	}

	if pp.muxer == nil {
		if err := g.Link(videoLast, sink); err != nil {
			return recerr.Wrap(err, recerr.KindConfig, op)
		}
		return nil
	}

	mux, err := g.Add(pp.muxer.Factory, "")
	if err != nil {
		return recerr.Wrap(err, recerr.KindConfig, op)
	}
	for _, prop := range pp.muxer.Props {
		mux.Set(prop.Key, prop.Value)
	}
	if err := linkRequest(g, videoLast, mux, "video_%u"); err != nil {
		return recerr.Wrap(err, recerr.KindConfig, op)
	}

	if audioSrc != nil {
		audioFirst, audioLast, err := g.AddFragment(pp.audio)
		if err != nil {
			return recerr.Wrap(err, recerr.KindConfig, op)
		}
		if err := g.Link(audioSrc, audioFirst); err != nil {
			return recerr.Wrap(err, recerr.KindConfig, op)
		}
		if err := linkRequest(g, audioLast, mux, "audio_%u"); err != nil {
			return recerr.Wrap(err, recerr.KindConfig, op)
		}
	}

	if err := g.Link(mux, sink); err != nil {
		return recerr.Wrap(err, recerr.KindConfig, op)
	}
	return nil
}

func linkRequest(g *media.Graph, src, mux *media.Element, template string) error {
	pad, err := g.RequestPad(mux, template)
	if err != nil {
		return err
	}
	return g.LinkPads(src.Pad("src"), pad)
}
