package models

import "strings"

// SourceType is a bitset of capturable source kinds, using the broker's wire values
type SourceType uint32

const (
	SourceMonitor SourceType = 1
	SourceWindow  SourceType = 2
	SourceVirtual SourceType = 4
)

// Has reports whether all bits of other are set
func (s SourceType) Has(other SourceType) bool {
	return other != 0 && s&other == other
}

func (s SourceType) String() string {
	var parts []string
	if s&SourceMonitor != 0 {
		parts = append(parts, "monitor")
	}
	if s&SourceWindow != 0 {
		parts = append(parts, "window")
	}
	if s&SourceVirtual != 0 {
		parts = append(parts, "virtual")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// CursorMode is a bitset describing how the pointer appears in the capture
type CursorMode uint32

const (
	CursorHidden   CursorMode = 1
	CursorEmbedded CursorMode = 2
	CursorMetadata CursorMode = 4
)

// Has reports whether all bits of other are set
func (c CursorMode) Has(other CursorMode) bool {
	return other != 0 && c&other == other
}

func (c CursorMode) String() string {
	switch c {
	case CursorHidden:
		return "hidden"
	case CursorEmbedded:
		return "embedded"
	case CursorMetadata:
		return "metadata"
	}
	var parts []string
	for _, m := range []CursorMode{CursorHidden, CursorEmbedded, CursorMetadata} {
		if c&m != 0 {
			parts = append(parts, m.String())
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// PersistMode controls whether the broker remembers the grant
type PersistMode uint32

const (
	PersistDoNot             PersistMode = 0
	PersistApplication       PersistMode = 1
	PersistExplicitlyRevoked PersistMode = 2
)

// CaptureOptions are the choices sent to the broker when selecting sources
type CaptureOptions struct {
	CursorMode    CursorMode
	SourceTypes   SourceType
	AllowMultiple bool
	// RestoreToken is empty when there is no previous grant to restore
	RestoreToken string
	PersistMode  PersistMode
}

// Point32 is an integer position reported by the broker
type Point32 struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

// Size32 is an integer size reported by the broker
type Size32 struct {
	Width  int32 `json:"width"`
	Height int32 `json:"height"`
}

// Stream is one captured source granted by the broker
type Stream struct {
	NodeID     uint32     `json:"node_id"`
	ID         string     `json:"id,omitempty"`
	Position   Point32    `json:"position"`
	Size       Size32     `json:"size"`
	SourceType SourceType `json:"source_type"`
}

// HasSize reports whether the broker told us the stream dimensions
func (s Stream) HasSize() bool {
	return s.Size.Width > 0 && s.Size.Height > 0
}

// Rect returns the stream rectangle in shared display coordinates
func (s Stream) Rect() Rect {
	return Rect{
		X:      float64(s.Position.X),
		Y:      float64(s.Position.Y),
		Width:  float64(s.Size.Width),
		Height: float64(s.Size.Height),
	}
}

// ContainsPoint checks if the stream covers the given position
func (s Stream) ContainsPoint(p Point) bool {
	return p.X >= float64(s.Position.X) &&
		p.X < float64(s.Position.X+s.Size.Width) &&
		p.Y >= float64(s.Position.Y) &&
		p.Y < float64(s.Position.Y+s.Size.Height)
}
