// Package pipeline assembles the media graph of a recording.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"

	"github.com/kartoza/kartoza-portal-recorder/internal/media"
	"github.com/kartoza/kartoza-portal-recorder/internal/models"
	"github.com/kartoza/kartoza-portal-recorder/internal/profile"
	"github.com/kartoza/kartoza-portal-recorder/internal/recerr"
)

const (
	AudioSampleRate = 48000
	AudioChannels   = 1
)

// FileNamePrefix starts every recording file name
const FileNamePrefix = "Kartoza"

// OutputPath returns a timestamped file path inside dir for profile p
func OutputPath(dir string, p *profile.Profile, now time.Time) string {
	name := fmt.Sprintf("%s-%s.%s", FileNamePrefix, now.Format("2006-01-02-15-04-05"), p.FileExtension())
	return filepath.Join(dir, name)
}

// Builder collects what a recording graph needs and builds it
type Builder struct {
	outputPath string
	framerate  models.Fraction
	profile    *profile.Profile
	transfer   *os.File
	streams    []models.Stream

	speakerSource string
	micSource     string
	crop          *models.CropData
}

// NewBuilder returns a builder for a graph writing to outputPath. transfer
// is the descriptor granting access to the captured streams.
func NewBuilder(outputPath string, framerate models.Fraction, p *profile.Profile, transfer *os.File, streams []models.Stream) *Builder {
	return &Builder{
		outputPath: outputPath,
		framerate:  framerate,
		profile:    p,
		transfer:   transfer,
		streams:    streams,
	}
}

// SpeakerSource records the given monitor device
func (b *Builder) SpeakerSource(device string) *Builder {
	b.speakerSource = device
	return b
}

// MicSource records the given input device
func (b *Builder) MicSource(device string) *Builder {
	b.micSource = device
	return b
}

// SelectArea crops the video to a selection
func (b *Builder) SelectArea(data models.CropData) *Builder {
	b.crop = &data
	return b
}

func (b *Builder) audioSources() []string {
	var out []string
	for _, s := range []string{b.speakerSource, b.micSource} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Build returns the complete graph
func (b *Builder) Build(ctx context.Context) (*media.Graph, error) {
	const op = "build pipeline"

	switch {
	case b.profile == nil:
		return nil, recerr.Config(op, "no profile")
	case b.transfer == nil:
		return nil, recerr.Config(op, "no stream transfer handle")
	case len(b.streams) == 0:
		return nil, recerr.Config(op, "no streams")
	case b.outputPath == "":
		return nil, recerr.Config(op, "no output path")
	}
	logger.Debugf(ctx, "building pipeline: file=%s framerate=%s profile=%s streams=%d speaker=%q mic=%q crop=%v",
		b.outputPath, b.framerate, b.profile.ID, len(b.streams), b.speakerSource, b.micSource, b.crop)

	g := media.NewGraph()
	fd := g.AttachFile(b.transfer)

	videoOut, err := b.addVideoSources(ctx, g, fd)
	if err != nil {
		return nil, err
	}
	videoQueue, err := add(g, "queue", "")
	if err != nil {
		return nil, err
	}
	if err := g.Link(videoOut, videoQueue); err != nil {
		return nil, recerr.Wrap(err, recerr.KindConfig, op)
	}

	filesink, err := add(g, "filesink", "filesink")
	if err != nil {
		return nil, err
	}
	filesink.Set("location", b.outputPath)

	var audioQueue *media.Element
	devices := b.audioSources()
	switch {
	case len(devices) > 0 && b.profile.SupportsAudio():
		mixer, err := b.addAudioSources(g, devices)
		if err != nil {
			return nil, err
		}
		if audioQueue, err = add(g, "queue", ""); err != nil {
			return nil, err
		}
		if err := g.Link(mixer, audioQueue); err != nil {
			return nil, recerr.Wrap(err, recerr.KindConfig, op)
		}
	case len(devices) > 0:
		logger.Warnf(ctx, "profile %q does not support audio, ignoring audio sources", b.profile.ID)
	}

	if err := b.profile.Attach(ctx, g, videoQueue, audioQueue, filesink); err != nil {
		return nil, fmt.Errorf("failed to attach profile %q to pipeline: %w", b.profile.ID, err)
	}

	if unlinked := g.UnlinkedPads(); len(unlinked) > 0 {
		return nil, recerr.Config(op, fmt.Sprintf("pad %s is left unlinked", unlinked[0]))
	}
	return g, nil
}

func add(g *media.Graph, factory, name string) (*media.Element, error) {
	e, err := g.Add(factory, name)
	if err != nil {
		return nil, recerr.Wrap(err, recerr.KindConfig, "build pipeline")
	}
	return e, nil
}

func (b *Builder) addStream(g *media.Graph, fd int, s models.Stream) (*media.Element, error) {
	src, err := add(g, "pipewiresrc", "")
	if err != nil {
		return nil, err
	}
	src.Set("fd", fd).
		Set("path", strconv.FormatUint(uint64(s.NodeID), 10)).
		Set("do-timestamp", true).
		Set("keepalive-time", 1000).
		Set("resend-last", true)

	rate, err := add(g, "videorate", "")
	if err != nil {
		return nil, err
	}
	rate.Set("skip-to-first", true)

	caps, err := add(g, "capsfilter", "")
	if err != nil {
		return nil, err
	}
	caps.Set("caps", "video/x-raw,framerate="+b.framerate.String())

	if err := g.LinkMany(src, rate, caps); err != nil {
		return nil, recerr.Wrap(err, recerr.KindConfig, "build pipeline")
	}
	return caps, nil
}

func (b *Builder) addVideoSources(ctx context.Context, g *media.Graph, fd int) (*media.Element, error) {
	const op = "build pipeline"

	var out *media.Element
	if len(b.streams) == 1 {
		var err error
		if out, err = b.addStream(g, fd, b.streams[0]); err != nil {
			return nil, err
		}
	} else {
		compositor, err := add(g, "compositor", "")
		if err != nil {
			return nil, err
		}
		xpos := 0
		for _, s := range b.streams {
			if !s.HasSize() {
				return nil, recerr.Config(op, fmt.Sprintf("stream %d has no size, cannot composite", s.NodeID))
			}
			last, err := b.addStream(g, fd, s)
			if err != nil {
				return nil, err
			}
			pad, err := g.RequestPad(compositor, "sink_%u")
			if err != nil {
				return nil, recerr.Wrap(err, recerr.KindConfig, op)
			}
			pad.Set("xpos", xpos)
			if err := g.LinkPads(last.Pad("src"), pad); err != nil {
				return nil, recerr.Wrap(err, recerr.KindConfig, op)
			}
			xpos += int(s.Size.Width)
		}
		out = compositor
	}

	if b.crop == nil {
		return out, nil
	}

	width, height, ok := StreamSize(b.streams)
	if !ok {
		width, height = int(b.crop.FullRect.Width), int(b.crop.FullRect.Height)
		logger.Warnf(ctx, "stream size unknown, assuming the selected area size %dx%d", width, height)
	}
	crop := ComputeCrop(ctx, *b.crop, width, height)
	logger.Debugf(ctx, "crop: %+v", crop)

	scale, err := add(g, "videoscale", "")
	if err != nil {
		return nil, err
	}
	scaleCaps, err := add(g, "capsfilter", "")
	if err != nil {
		return nil, err
	}
	scaleCaps.Set("caps", fmt.Sprintf("video/x-raw,width=%d,height=%d", roundToEven(width), roundToEven(height)))
	videocrop, err := add(g, "videocrop", "")
	if err != nil {
		return nil, err
	}
	videocrop.Set("top", crop.Top).
		Set("left", crop.Left).
		Set("right", crop.Right).
		Set("bottom", crop.Bottom)

	if err := g.LinkMany(out, scale, scaleCaps, videocrop); err != nil {
		return nil, recerr.Wrap(err, recerr.KindConfig, op)
	}
	return videocrop, nil
}

func (b *Builder) addAudioSources(g *media.Graph, devices []string) (*media.Element, error) {
	mixer, err := add(g, "audiomixer", "")
	if err != nil {
		return nil, err
	}
	for _, device := range devices {
		src, err := add(g, "pulsesrc", "")
		if err != nil {
			return nil, err
		}
		src.Set("device", device).
			Set("provide-clock", false).
			Set("do-timestamp", true)

		caps, err := add(g, "capsfilter", "")
		if err != nil {
			return nil, err
		}
		caps.Set("caps", fmt.Sprintf("audio/x-raw,rate=%d,channels=%d", AudioSampleRate, AudioChannels))

		rate, err := add(g, "audiorate", "")
		if err != nil {
			return nil, err
		}
		rate.Set("skip-to-first", true)

		if err := g.LinkMany(src, caps, rate, mixer); err != nil {
			return nil, recerr.Wrap(err, recerr.KindConfig, "build pipeline")
		}
	}
	return mixer, nil
}
