package media

import "strings"

// Direction of a pad
type Direction int

const (
	DirectionSrc Direction = iota
	DirectionSink
)

func (d Direction) String() string {
	if d == DirectionSink {
		return "sink"
	}
	return "src"
}

// PadTemplate describes a pad an element has or can create
type PadTemplate struct {
	Name      string
	Direction Direction
	Request   bool
}

// Layout lists the pads of an element factory
type Layout struct {
	Templates []PadTemplate
}

var (
	sourceLayout = Layout{Templates: []PadTemplate{
		{Name: "src", Direction: DirectionSrc},
	}}
	sinkLayout = Layout{Templates: []PadTemplate{
		{Name: "sink", Direction: DirectionSink},
	}}
	filterLayout = Layout{Templates: []PadTemplate{
		{Name: "sink", Direction: DirectionSink},
		{Name: "src", Direction: DirectionSrc},
	}}
	muxerLayout = Layout{Templates: []PadTemplate{
		{Name: "video_%u", Direction: DirectionSink, Request: true},
		{Name: "audio_%u", Direction: DirectionSink, Request: true},
		{Name: "src", Direction: DirectionSrc},
	}}
	mixerLayout = Layout{Templates: []PadTemplate{
		{Name: "sink_%u", Direction: DirectionSink, Request: true},
		{Name: "src", Direction: DirectionSrc},
	}}
)

var layouts = map[string]Layout{
	"pipewiresrc":  sourceLayout,
	"pulsesrc":     sourceLayout,
	"videotestsrc": sourceLayout,
	"audiotestsrc": sourceLayout,
	"fdsrc":        sourceLayout,

	"filesink": sinkLayout,
	"fakesink": sinkLayout,
	"fdsink":   sinkLayout,

	"autoaudiosink": sinkLayout,

	"webmmux":     muxerLayout,
	"mp4mux":      muxerLayout,
	"qtmux":       muxerLayout,
	"matroskamux": muxerLayout,
	"oggmux":      muxerLayout,

	"compositor": mixerLayout,
	"audiomixer": mixerLayout,
}

// LayoutOf returns the pad layout of a factory. Unknown factories are
// treated as single input, single output filters, which covers encoders,
// converters and queues.
func LayoutOf(factory string) Layout {
	if l, ok := layouts[factory]; ok {
		return l
	}
	return filterLayout
}

// IsMuxer reports whether the factory has video and audio request pads
func IsMuxer(factory string) bool {
	_, ok := LayoutOf(factory).requestTemplate("video_%u")
	return ok
}

func (l Layout) requestTemplate(name string) (PadTemplate, bool) {
	for _, t := range l.Templates {
		if t.Request && t.Name == name {
			return t, true
		}
	}
	return PadTemplate{}, false
}

func (l Layout) requestTemplates(dir Direction) []PadTemplate {
	var out []PadTemplate
	for _, t := range l.Templates {
		if t.Request && t.Direction == dir {
			out = append(out, t)
		}
	}
	return out
}

func (l Layout) staticTemplates() []PadTemplate {
	var out []PadTemplate
	for _, t := range l.Templates {
		if !t.Request {
			out = append(out, t)
		}
	}
	return out
}

func templatePrefix(name string) string {
	return strings.TrimSuffix(name, "%u")
}
