package portal

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/kartoza/kartoza-portal-recorder/internal/models"
)

// decodeStreams reads the a(ua{sv}) "streams" result of Start. Missing
// optional properties are left at their zero values.
func decodeStreams(v dbus.Variant) ([]models.Stream, error) {
	raw, ok := v.Value().([][]any)
	if !ok {
		return nil, fmt.Errorf("unexpected streams type %s", v.Signature())
	}

	streams := make([]models.Stream, 0, len(raw))
	for i, entry := range raw {
		if len(entry) != 2 {
			return nil, fmt.Errorf("stream %d: expected 2 fields, got %d", i, len(entry))
		}
		nodeID, ok := entry[0].(uint32)
		if !ok {
			return nil, fmt.Errorf("stream %d: node id is %T", i, entry[0])
		}
		props, _ := entry[1].(map[string]dbus.Variant)

		s := models.Stream{NodeID: nodeID}
		if id, ok := props["id"]; ok {
			s.ID, _ = id.Value().(string)
		}
		if pos, ok := props["position"]; ok {
			x, y := pair(pos)
			s.Position = models.Point32{X: x, Y: y}
		}
		if size, ok := props["size"]; ok {
			w, h := pair(size)
			s.Size = models.Size32{Width: w, Height: h}
		}
		if st, ok := props["source_type"]; ok {
			t, _ := st.Value().(uint32)
			s.SourceType = models.SourceType(t)
		}
		streams = append(streams, s)
	}
	return streams, nil
}

func pair(v dbus.Variant) (int32, int32) {
	fields, ok := v.Value().([]any)
	if !ok || len(fields) != 2 {
		return 0, 0
	}
	a, _ := fields[0].(int32)
	b, _ := fields[1].(int32)
	return a, b
}

func variantString(results map[string]dbus.Variant, key string) string {
	v, ok := results[key]
	if !ok {
		return ""
	}
	switch s := v.Value().(type) {
	case string:
		return s
	case dbus.ObjectPath:
		return string(s)
	}
	return ""
}
