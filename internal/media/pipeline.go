package media

import (
	"context"
	"time"
)

// Pipeline is a running graph
type Pipeline interface {
	// Play starts the graph. Messages start flowing afterwards.
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	// SendEOS asks the graph to drain and finish the output file
	SendEOS(ctx context.Context) error
	// Halt tears the graph down without draining
	Halt(ctx context.Context) error
	// Position returns the media time recorded so far; false when unknown
	Position(ctx context.Context) (time.Duration, bool)
	// Messages is closed once the graph stopped
	Messages() <-chan Message
	OutputPath() string
}

// Launcher turns a graph into a Pipeline
type Launcher interface {
	Launch(ctx context.Context, g *Graph, outputPath string) (Pipeline, error)
}

// LauncherFunc adapts a function to Launcher
type LauncherFunc func(ctx context.Context, g *Graph, outputPath string) (Pipeline, error)

// Launch implements Launcher
func (f LauncherFunc) Launch(ctx context.Context, g *Graph, outputPath string) (Pipeline, error) {
	return f(ctx, g, outputPath)
}
