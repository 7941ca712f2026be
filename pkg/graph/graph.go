// Package graph provides the concept graph: discovered concepts and the
// relations between them, built incrementally from deltas.
package graph

// Node is a concept in the graph.
type Node struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name,omitempty"`
}

// Link is a directed relation between two concepts. Label is informational
// and never part of link identity.
type Link struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
	Label  string `json:"label,omitempty"`
}

// Graph is a full node/link snapshot.
type Graph struct {
	Nodes []Node `json:"nodes" validate:"required,dive"`
	Links []Link `json:"links" validate:"required,dive"`
}

// Empty reports whether the snapshot carries no nodes and no links.
func (g *Graph) Empty() bool {
	return g == nil || (len(g.Nodes) == 0 && len(g.Links) == 0)
}

// Delta is an incremental change to the graph.
type Delta struct {
	NewNodes     []string `json:"new_nodes"`
	NewEdges     []Link   `json:"new_edges" validate:"dive"`
	RemovedNodes []string `json:"removed_nodes"`
}

// Empty reports whether applying the delta would be a no-op.
func (d *Delta) Empty() bool {
	return d == nil || (len(d.NewNodes) == 0 && len(d.NewEdges) == 0 && len(d.RemovedNodes) == 0)
}

type linkKey struct {
	source string
	target string
}
