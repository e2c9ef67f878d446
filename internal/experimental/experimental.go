// Package experimental reads the opt-in feature switches from the environment.
package experimental

import (
	"context"
	"os"
	"strings"

	"github.com/facebookincubator/go-belt/tool/logger"
)

// EnvVar lists enabled features, comma separated
const EnvVar = "KARTOZA_EXPERIMENTAL"

// Feature is an unsupported capability hidden by default
type Feature string

const (
	All                  Feature = "all"
	ExperimentalFormats  Feature = "experimental-formats"
	MultipleVideoSources Feature = "multiple-video-sources"
	WindowRecording      Feature = "window-recording"
)

// Features is a set of enabled features
type Features map[Feature]struct{}

// Parse reads a comma separated feature list. Unknown names are logged and skipped.
func Parse(ctx context.Context, value string) Features {
	out := Features{}
	for _, raw := range strings.Split(value, ",") {
		name := Feature(strings.ToLower(strings.TrimSpace(raw)))
		if name == "" {
			continue
		}
		switch name {
		case All, ExperimentalFormats, MultipleVideoSources, WindowRecording:
			out[name] = struct{}{}
		default:
			logger.Warnf(ctx, "unknown experimental feature %q", name)
		}
	}
	return out
}

// FromEnv parses EnvVar
func FromEnv(ctx context.Context) Features {
	return Parse(ctx, os.Getenv(EnvVar))
}

// Enabled reports whether f is on, either directly or through All
func (fs Features) Enabled(f Feature) bool {
	if _, ok := fs[All]; ok {
		return true
	}
	_, ok := fs[f]
	return ok
}

// Any reports whether at least one feature is on
func (fs Features) Any() bool {
	return len(fs) > 0
}
