package production

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/comalice/mvix"
)

// Visualizer draws the states a feature went through as a graph. States are
// collapsed to nodes by Label; each edge is labelled with the event types
// that caused it.
type Visualizer[E, S any] struct {
	Label func(S) string
}

// Edge is one observed transition between two labelled states.
type Edge struct {
	From   string   `json:"from"`
	To     string   `json:"to"`
	Events []string `json:"events"`
	Count  int      `json:"count"`
}

// Edges aggregates transitions by (from, to). Self loops are kept.
func (v *Visualizer[E, S]) Edges(transitions []mvix.Transition[E, S]) []Edge {
	index := make(map[[2]string]*Edge)
	var order [][2]string
	for _, t := range transitions {
		key := [2]string{v.Label(t.From), v.Label(t.To)}
		edge, ok := index[key]
		if !ok {
			edge = &Edge{From: key[0], To: key[1]}
			index[key] = edge
			order = append(order, key)
		}
		edge.Count++
		name := fmt.Sprintf("%T", t.Event)
		if !slices.Contains(edge.Events, name) {
			edge.Events = append(edge.Events, name)
		}
	}
	edges := make([]Edge, len(order))
	for i, key := range order {
		edge := *index[key]
		slices.Sort(edge.Events)
		edges[i] = edge
	}
	return edges
}

// ExportDOT generates Graphviz DOT source for the observed transitions,
// highlighting current.
func (v *Visualizer[E, S]) ExportDOT(transitions []mvix.Transition[E, S], current S) string {
	var buf bytes.Buffer
	buf.WriteString(`digraph Feature {
  rankdir=LR;
  node [shape=box, fontsize=10, style=rounded];
  edge [fontsize=9];
`)

	edges := v.Edges(transitions)
	active := v.Label(current)
	seen := map[string]bool{}
	var nodes []string
	addNode := func(n string) {
		if !seen[n] {
			seen[n] = true
			nodes = append(nodes, n)
		}
	}
	addNode(active)
	for _, e := range edges {
		addNode(e.From)
		addNode(e.To)
	}

	for _, n := range nodes {
		style := ""
		if n == active {
			style = ` style=filled fillcolor=lightgreen`
		}
		fmt.Fprintf(&buf, "  %q [label=%q%s];\n", n, n, style)
	}
	for _, e := range edges {
		label := fmt.Sprintf("%s x%d", strings.Join(e.Events, ", "), e.Count)
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.From, e.To, label)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// ExportJSON serializes the aggregated edges.
func (v *Visualizer[E, S]) ExportJSON(transitions []mvix.Transition[E, S]) ([]byte, error) {
	return json.MarshalIndent(v.Edges(transitions), "", "  ")
}
