package media

import (
	"fmt"
	"strings"
)

// Args renders the graph as launch description tokens: every element with
// its properties, then one explicit link per pad pair.
func (g *Graph) Args() ([]string, error) {
	if len(g.elements) == 0 {
		return nil, fmt.Errorf("empty graph")
	}

	var args []string
	for _, e := range g.elements {
		args = append(args, e.Factory, "name="+e.Name)
		for _, p := range e.props {
			args = append(args, p.Key+"="+quoteValue(p.Value))
		}
		for _, pad := range e.pads {
			for _, p := range pad.props {
				args = append(args, pad.Name+"::"+p.Key+"="+quoteValue(p.Value))
			}
		}
	}
	for _, l := range g.links {
		args = append(args, l.src.String(), "!", l.sink.String())
	}
	return args, nil
}

// Describe returns the graph as a single launch description, the syntax
// gst.NewPipelineFromString parses
func (g *Graph) Describe() string {
	args, err := g.Args()
	if err != nil {
		return ""
	}
	return strings.Join(args, " ")
}

func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t\"\\!") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(v) + `"`
}
