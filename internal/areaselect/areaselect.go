// Package areaselect asks the user for the part of the screen to record.
package areaselect

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"github.com/facebookincubator/go-belt/tool/logger"

	"github.com/kartoza/kartoza-portal-recorder/internal/models"
	"github.com/kartoza/kartoza-portal-recorder/internal/recerr"
)

// FullRect is the bounding box of the streams in display coordinates
func FullRect(streams []models.Stream) (models.Rect, error) {
	var full models.Rect
	found := false
	for _, s := range streams {
		if !s.HasSize() {
			continue
		}
		if !found {
			full = s.Rect()
			found = true
			continue
		}
		full = full.Union(s.Rect())
	}
	if !found {
		return models.Rect{}, recerr.Config("select area", "the streams have no known size")
	}
	return full, nil
}

// Slurp lets the user drag a rectangle with slurp
type Slurp struct {
	Binary string
}

// NewSlurp returns a selector using slurp from PATH
func NewSlurp() *Slurp {
	return &Slurp{Binary: "slurp"}
}

// SelectArea runs slurp and returns the selection. Dismissing slurp is a
// user cancellation.
func (s *Slurp) SelectArea(ctx context.Context, transfer *os.File, streams []models.Stream) (models.CropData, error) {
	const op = "select area"

	full, err := FullRect(streams)
	if err != nil {
		return models.CropData{}, err
	}

	cmd := exec.CommandContext(ctx, s.Binary, "-d", "-f", "%x %y %w %h")
	// keep a Ctrl+C in the terminal away from the child
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return models.CropData{}, recerr.UserCancelled(op)
		}
		if ctx.Err() != nil {
			return models.CropData{}, recerr.Wrap(ctx.Err(), recerr.KindCancelled, op)
		}
		return models.CropData{}, recerr.Runtime(op, fmt.Errorf("failed to run %s: %w", s.Binary, err)).
			WithHelp("Make sure that slurp is installed.")
	}

	selection, err := ParseGeometry(string(out))
	if err != nil {
		return models.CropData{}, recerr.Runtime(op, err)
	}
	logger.Debugf(ctx, "selected %s of %s", selection, full)
	return models.CropData{FullRect: full, SelectionRect: selection}, nil
}

// Static always selects the same rectangle
type Static struct {
	Selection models.Rect
}

// SelectArea implements recording.AreaSelector
func (s Static) SelectArea(ctx context.Context, transfer *os.File, streams []models.Stream) (models.CropData, error) {
	full, err := FullRect(streams)
	if err != nil {
		return models.CropData{}, err
	}
	return models.CropData{FullRect: full, SelectionRect: s.Selection}, nil
}

// ParseGeometry reads "X Y W H", "X,Y WxH" (slurp's default output) or
// "WxH+X+Y". A zero width or height is widened to one unit.
func ParseGeometry(s string) (models.Rect, error) {
	s = strings.TrimSpace(s)
	var nums []string
	if strings.Contains(s, "+") {
		size, offset, _ := strings.Cut(s, "+")
		w, h, ok := strings.Cut(size, "x")
		if !ok {
			return models.Rect{}, fmt.Errorf("invalid geometry %q", s)
		}
		x, y, ok := strings.Cut(offset, "+")
		if !ok {
			return models.Rect{}, fmt.Errorf("invalid geometry %q", s)
		}
		nums = []string{x, y, w, h}
	} else {
		nums = strings.FieldsFunc(s, func(r rune) bool {
			return r == ' ' || r == ',' || r == 'x' || r == '\t'
		})
	}
	if len(nums) != 4 {
		return models.Rect{}, fmt.Errorf("invalid geometry %q", s)
	}

	var v [4]float64
	for i, n := range nums {
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return models.Rect{}, fmt.Errorf("invalid geometry %q: %w", s, err)
		}
		v[i] = f
	}
	if v[2] < 0 || v[3] < 0 {
		return models.Rect{}, fmt.Errorf("invalid geometry %q: negative size", s)
	}
	return models.RectFromPoints(
		models.Point{X: v[0], Y: v[1]},
		models.Point{X: v[0] + v[2], Y: v[1] + v[3]},
	), nil
}
