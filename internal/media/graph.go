// Package media models a processing graph of GStreamer elements and runs it.
package media

import (
	"fmt"
	"os"
	"strconv"
)

// Property is one element or pad property, kept in insertion order
type Property struct {
	Key   string
	Value string
}

type properties []Property

func (p *properties) set(key string, value any) {
	v := formatValue(value)
	for i := range *p {
		if (*p)[i].Key == key {
			(*p)[i].Value = v
			return
		}
	}
	*p = append(*p, Property{Key: key, Value: v})
}

func (p properties) get(key string) (string, bool) {
	for _, prop := range p {
		if prop.Key == key {
			return prop.Value, true
		}
	}
	return "", false
}

func formatValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Element is a node of the graph
type Element struct {
	Name    string
	Factory string

	props    properties
	pads     []*Pad
	requests map[string]int
}

// Set sets a property and returns the element for chaining
func (e *Element) Set(key string, value any) *Element {
	e.props.set(key, value)
	return e
}

// Prop returns a property value
func (e *Element) Prop(key string) (string, bool) {
	return e.props.get(key)
}

// Props returns the properties in the order they were set
func (e *Element) Props() []Property {
	return append([]Property(nil), e.props...)
}

// Pad returns a pad by name, or nil
func (e *Element) Pad(name string) *Pad {
	for _, p := range e.pads {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Pads returns all pads the element currently has
func (e *Element) Pads() []*Pad {
	return append([]*Pad(nil), e.pads...)
}

func (e *Element) String() string {
	return e.Name
}

// Pad is a connection point of an element
type Pad struct {
	Name      string
	Direction Direction
	Element   *Element
	Peer      *Pad
	Request   bool

	props properties
}

// Set sets a pad property, like xpos on a compositor input
func (p *Pad) Set(key string, value any) *Pad {
	p.props.set(key, value)
	return p
}

// Prop returns a pad property value
func (p *Pad) Prop(key string) (string, bool) {
	return p.props.get(key)
}

// IsLinked reports whether the pad has a peer
func (p *Pad) IsLinked() bool {
	return p.Peer != nil
}

func (p *Pad) String() string {
	return p.Element.Name + "." + p.Name
}

type link struct {
	src  *Pad
	sink *Pad
}

// Graph is an ordered set of elements and the links between their pads
type Graph struct {
	elements []*Element
	byName   map[string]*Element
	counters map[string]int
	links    []link
	files    []*os.File
}

// NewGraph returns an empty graph
func NewGraph() *Graph {
	return &Graph{
		byName:   map[string]*Element{},
		counters: map[string]int{},
	}
}

// Add creates an element. An empty name gets factory+index, like gst does.
func (g *Graph) Add(factory, name string) (*Element, error) {
	if factory == "" {
		return nil, fmt.Errorf("empty element factory")
	}
	if name == "" {
		for {
			name = factory + strconv.Itoa(g.counters[factory])
			g.counters[factory]++
			if _, taken := g.byName[name]; !taken {
				break
			}
		}
	}
	if _, taken := g.byName[name]; taken {
		return nil, fmt.Errorf("element name %q already in use", name)
	}

	e := &Element{Name: name, Factory: factory, requests: map[string]int{}}
	for _, t := range LayoutOf(factory).staticTemplates() {
		e.pads = append(e.pads, &Pad{Name: t.Name, Direction: t.Direction, Element: e})
	}
	g.elements = append(g.elements, e)
	g.byName[name] = e
	return e, nil
}

// Element looks up an element by name
func (g *Graph) Element(name string) *Element {
	return g.byName[name]
}

// Elements returns the elements in insertion order
func (g *Graph) Elements() []*Element {
	return append([]*Element(nil), g.elements...)
}

// ElementsByFactory returns every element created from factory
func (g *Graph) ElementsByFactory(factory string) []*Element {
	var out []*Element
	for _, e := range g.elements {
		if e.Factory == factory {
			out = append(out, e)
		}
	}
	return out
}

// RequestPad creates a new pad from a request template such as "video_%u"
func (g *Graph) RequestPad(e *Element, template string) (*Pad, error) {
	t, ok := LayoutOf(e.Factory).requestTemplate(template)
	if !ok {
		return nil, fmt.Errorf("%s (%s) has no request pad template %q", e.Name, e.Factory, template)
	}
	prefix := templatePrefix(t.Name)
	idx := e.requests[prefix]
	e.requests[prefix] = idx + 1

	p := &Pad{Name: prefix + strconv.Itoa(idx), Direction: t.Direction, Element: e, Request: true}
	e.pads = append(e.pads, p)
	return p, nil
}

// LinkPads connects a source pad to a sink pad
func (g *Graph) LinkPads(src, sink *Pad) error {
	switch {
	case src == nil || sink == nil:
		return fmt.Errorf("cannot link a nil pad")
	case src.Direction != DirectionSrc:
		return fmt.Errorf("%s is not a source pad", src)
	case sink.Direction != DirectionSink:
		return fmt.Errorf("%s is not a sink pad", sink)
	case src.IsLinked():
		return fmt.Errorf("%s is already linked to %s", src, src.Peer)
	case sink.IsLinked():
		return fmt.Errorf("%s is already linked to %s", sink, sink.Peer)
	case src.Element == sink.Element:
		return fmt.Errorf("cannot link %s to itself", src.Element)
	}
	src.Peer = sink
	sink.Peer = src
	g.links = append(g.links, link{src: src, sink: sink})
	return nil
}

// Link connects the first free source pad of src to the first free sink
// pad of sink, requesting one if sink only has a single request template.
func (g *Graph) Link(src, sink *Element) error {
	srcPad := firstFree(src, DirectionSrc)
	if srcPad == nil {
		return fmt.Errorf("%s has no free source pad", src)
	}
	sinkPad := firstFree(sink, DirectionSink)
	if sinkPad == nil {
		templates := LayoutOf(sink.Factory).requestTemplates(DirectionSink)
		if len(templates) != 1 {
			return fmt.Errorf("%s has no free sink pad", sink)
		}
		var err error
		if sinkPad, err = g.RequestPad(sink, templates[0].Name); err != nil {
			return err
		}
	}
	return g.LinkPads(srcPad, sinkPad)
}

// LinkMany links the elements in a chain
func (g *Graph) LinkMany(elements ...*Element) error {
	for i := 1; i < len(elements); i++ {
		if err := g.Link(elements[i-1], elements[i]); err != nil {
			return err
		}
	}
	return nil
}

// UnlinkedPads returns every pad without a peer. Request templates that
// were never requested do not count.
func (g *Graph) UnlinkedPads() []*Pad {
	var out []*Pad
	for _, e := range g.elements {
		for _, p := range e.pads {
			if !p.IsLinked() {
				out = append(out, p)
			}
		}
	}
	return out
}

// AttachFile keeps f open for the runtime and returns the descriptor
// number elements read it from
func (g *Graph) AttachFile(f *os.File) int {
	g.files = append(g.files, f)
	return int(f.Fd())
}

// Files returns the attached files in attach order
func (g *Graph) Files() []*os.File {
	return append([]*os.File(nil), g.files...)
}

func firstFree(e *Element, dir Direction) *Pad {
	for _, p := range e.pads {
		if p.Direction == dir && !p.Request && !p.IsLinked() {
			return p
		}
	}
	return nil
}
