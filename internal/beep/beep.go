// Package beep plays the countdown tones.
package beep

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"

	"github.com/kartoza/kartoza-portal-recorder/internal/media"
)

// Descending frequencies for countdown beeps (Hz)
// 5=880Hz, 4=784Hz, 3=698Hz, 2=622Hz, 1=554Hz (descending A5 to C#5)
var Frequencies = map[uint64]int{
	5: 880,
	4: 784,
	3: 698,
	2: 622,
	1: 554,
}

// Buffers is the number of audiotestsrc buffers per tone, about 100ms
const Buffers = 5

// Player plays tones through a media launcher
type Player struct {
	launcher media.Launcher
}

// New returns a player running tone graphs with launcher
func New(launcher media.Launcher) *Player {
	return &Player{launcher: launcher}
}

// Graph returns the graph playing one tone
func Graph(freq int) (*media.Graph, error) {
	g := media.NewGraph()
	src, err := g.Add("audiotestsrc", "tone")
	if err != nil {
		return nil, err
	}
	src.Set("wave", "sine").Set("freq", freq).Set("num-buffers", Buffers)
	convert, err := g.Add("audioconvert", "")
	if err != nil {
		return nil, err
	}
	sink, err := g.Add("autoaudiosink", "")
	if err != nil {
		return nil, err
	}
	if err := g.LinkMany(src, convert, sink); err != nil {
		return nil, err
	}
	return g, nil
}

// Play plays the tone for the given seconds left. Counts without a tone
// are ignored.
func (p *Player) Play(ctx context.Context, secsLeft uint64) error {
	freq, ok := Frequencies[secsLeft]
	if !ok {
		return nil
	}

	g, err := Graph(freq)
	if err != nil {
		return err
	}
	logger.Tracef(ctx, "beep: %s", g.Describe())
	pl, err := p.launcher.Launch(ctx, g, "")
	if err != nil {
		return fmt.Errorf("failed to prepare the %dHz tone: %w", freq, err)
	}
	defer func() {
		if err := pl.Halt(ctx); err != nil {
			logger.Debugf(ctx, "beep: %v", err)
		}
	}()
	if err := pl.Play(ctx); err != nil {
		return fmt.Errorf("failed to play the %dHz tone: %w", freq, err)
	}

	msgs := pl.Messages()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-msgs:
			if !ok {
				return nil
			}
			switch m.Kind {
			case media.MessageEOS:
				return nil
			case media.MessageError:
				return fmt.Errorf("failed to play the %dHz tone: %s", freq, m.Text)
			}
		}
	}
}
