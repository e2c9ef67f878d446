package media

import (
	"fmt"
	"regexp"
	"strings"
)

// ElementSpec is one element of a parsed fragment
type ElementSpec struct {
	Factory string
	Props   []Property
}

// Fragment is a linear chain of elements written in gst-launch syntax,
// e.g. "x264enc qp-max=17 ! video/x-h264, profile=baseline"
type Fragment struct {
	Source   string
	Elements []ElementSpec
}

var factoryRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ParseFragment parses a fragment without touching any graph. Caps
// segments become capsfilter elements.
func ParseFragment(desc string) (*Fragment, error) {
	f := &Fragment{Source: desc}
	if strings.TrimSpace(desc) == "" {
		return nil, fmt.Errorf("empty fragment")
	}

	for i, segment := range splitUnquoted(desc, '!') {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			return nil, fmt.Errorf("fragment %q: empty element at position %d", desc, i)
		}

		fields, err := tokenize(segment)
		if err != nil {
			return nil, fmt.Errorf("fragment %q: %w", desc, err)
		}

		if strings.Contains(fields[0], "/") {
			f.Elements = append(f.Elements, ElementSpec{
				Factory: "capsfilter",
				Props:   []Property{{Key: "caps", Value: normalizeCaps(segment)}},
			})
			continue
		}

		es := ElementSpec{Factory: fields[0]}
		if !factoryRe.MatchString(es.Factory) {
			return nil, fmt.Errorf("fragment %q: invalid element factory %q", desc, es.Factory)
		}
		for _, field := range fields[1:] {
			key, value, ok := strings.Cut(field, "=")
			if !ok || key == "" {
				return nil, fmt.Errorf("fragment %q: property %q of %s is not key=value", desc, field, es.Factory)
			}
			es.Props = append(es.Props, Property{Key: key, Value: strings.Trim(value, `"`)})
		}
		f.Elements = append(f.Elements, es)
	}
	return f, nil
}

// Factories returns the factory names used by the fragment
func (f *Fragment) Factories() []string {
	out := make([]string, 0, len(f.Elements))
	for _, e := range f.Elements {
		out = append(out, e.Factory)
	}
	return out
}

// AddFragment adds the fragment's elements to the graph, linked in order,
// and returns the first and last element of the chain
func (g *Graph) AddFragment(f *Fragment) (*Element, *Element, error) {
	if f == nil || len(f.Elements) == 0 {
		return nil, nil, fmt.Errorf("empty fragment")
	}

	for _, es := range f.Elements {
		if len(LayoutOf(es.Factory).requestTemplates(DirectionSink)) > 0 {
			return nil, nil, fmt.Errorf("fragment %q: %s cannot be used inside a chain", f.Source, es.Factory)
		}
	}

	var chain []*Element
	for _, es := range f.Elements {
		e, err := g.Add(es.Factory, "")
		if err != nil {
			return nil, nil, err
		}
		for _, p := range es.Props {
			e.Set(p.Key, p.Value)
		}
		chain = append(chain, e)
	}
	if err := g.LinkMany(chain...); err != nil {
		return nil, nil, err
	}
	return chain[0], chain[len(chain)-1], nil
}

func normalizeCaps(segment string) string {
	parts := strings.Split(segment, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return strings.Join(parts, ",")
}

func splitUnquoted(s string, sep rune) []string {
	var (
		out    []string
		cur    strings.Builder
		quoted bool
	)
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			cur.WriteRune(r)
		case r == sep && !quoted:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(out, cur.String())
}

func tokenize(s string) ([]string, error) {
	var (
		out    []string
		cur    strings.Builder
		quoted bool
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			cur.WriteRune(r)
		case (r == ' ' || r == '\t' || r == '\n') && !quoted:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated quote in %q", s)
	}
	flush()
	if len(out) == 0 {
		return nil, fmt.Errorf("empty element")
	}
	return out, nil
}
