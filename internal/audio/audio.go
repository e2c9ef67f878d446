// Package audio finds the default PulseAudio/PipeWire devices to record from.
package audio

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"syscall"

	"github.com/facebookincubator/go-belt/tool/logger"

	"github.com/kartoza/kartoza-portal-recorder/internal/recerr"
)

// MonitorSuffix turns a sink name into the name of its monitor source
const MonitorSuffix = ".monitor"

// Runner runs a command and returns its standard output
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return cmd.Output()
}

// ServerInfo is the part of `pactl info` we care about
type ServerInfo struct {
	ServerName    string
	ServerVersion string
	DefaultSink   string
	DefaultSource string
}

// Version returns a human readable server identification
func (i ServerInfo) Version() string {
	if i.ServerName == "" {
		return ""
	}
	return fmt.Sprintf("%s version %s", i.ServerName, i.ServerVersion)
}

// Finder looks up audio devices with pactl
type Finder struct {
	Binary string
	run    Runner
}

// NewFinder returns a finder using pactl from PATH
func NewFinder() *Finder {
	return &Finder{Binary: "pactl", run: execRunner}
}

// NewFinderWithRunner returns a finder that runs commands through run
func NewFinderWithRunner(run Runner) *Finder {
	return &Finder{Binary: "pactl", run: run}
}

// Info queries the sound server
func (f *Finder) Info(ctx context.Context) (ServerInfo, error) {
	out, err := f.run(ctx, f.Binary, "info")
	if err != nil {
		return ServerInfo{}, recerr.Runtime("query sound server", err).
			WithHelp("Make sure that you have PulseAudio or PipeWire installed in your system.")
	}
	return ParseInfo(string(out)), nil
}

// DefaultSpeaker returns the monitor source of the default sink
func (f *Finder) DefaultSpeaker(ctx context.Context) (string, error) {
	info, err := f.Info(ctx)
	if err != nil {
		return "", err
	}
	if info.DefaultSink == "" {
		return "", recerr.New(recerr.KindRuntime, "find speaker source", "no desktop speaker source found")
	}
	name := info.DefaultSink + MonitorSuffix
	logger.Debugf(ctx, "default speaker source: %s", name)
	return name, nil
}

// DefaultMic returns the default input source. A default source that is
// just the speaker monitor does not count as a microphone.
func (f *Finder) DefaultMic(ctx context.Context) (string, error) {
	info, err := f.Info(ctx)
	if err != nil {
		return "", err
	}
	if info.DefaultSource == "" ||
		strings.HasSuffix(info.DefaultSource, MonitorSuffix) ||
		info.DefaultSource == info.DefaultSink+MonitorSuffix {
		return "", recerr.New(recerr.KindRuntime, "find microphone source", "no microphone source found")
	}
	logger.Debugf(ctx, "default microphone source: %s", info.DefaultSource)
	return info.DefaultSource, nil
}

// Sources lists the names of all capture sources, monitors included
func (f *Finder) Sources(ctx context.Context) ([]string, error) {
	out, err := f.run(ctx, f.Binary, "list", "short", "sources")
	if err != nil {
		return nil, recerr.Runtime("list audio sources", err)
	}
	return parseShortList(string(out)), nil
}

// ParseInfo reads the output of `pactl info`
func ParseInfo(out string) ServerInfo {
	var info ServerInfo
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Server Name":
			info.ServerName = value
		case "Server Version":
			info.ServerVersion = value
		case "Default Sink":
			info.DefaultSink = value
		case "Default Source":
			info.DefaultSource = value
		}
	}
	return info
}

// parseShortList takes the second column of `pactl list short ...`
func parseShortList(out string) []string {
	var names []string
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		names = append(names, fields[1])
	}
	return names
}
