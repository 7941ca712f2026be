package graph

// Store is the in-memory concept graph. Node IDs are unique and links are
// unique by (source, target). A link may reference a node that is absent;
// renderers skip such links, the store keeps them.
//
// Store is not safe for concurrent use; the orchestrator owns it exclusively.
type Store struct {
	nodes     []Node
	nodeIndex map[string]int
	links     []Link
	linkIndex map[linkKey]struct{}
}

// DeltaStats reports what a delta actually changed.
type DeltaStats struct {
	NodesAdded   int
	NodesRemoved int
	LinksAdded   int
}

// NewStore creates an empty graph store.
func NewStore() *Store {
	return &Store{
		nodeIndex: make(map[string]int),
		linkIndex: make(map[linkKey]struct{}),
	}
}

// ApplyDelta removes nodes, then adds nodes, then adds edges. Removal runs
// first so a node removed and re-added in the same delta ends up present.
// Edges whose (source, target) pair already exists are ignored, keeping the
// original label.
func (s *Store) ApplyDelta(d Delta) DeltaStats {
	var stats DeltaStats
	for _, id := range d.RemovedNodes {
		if s.removeNode(id) {
			stats.NodesRemoved++
		}
	}
	for _, id := range d.NewNodes {
		if s.addNode(Node{ID: id}) {
			stats.NodesAdded++
		}
	}
	for _, l := range d.NewEdges {
		if s.addLink(l) {
			stats.LinksAdded++
		}
	}
	return stats
}

// Merge adds every node and link of g that is not yet present. Nothing is
// removed. Node names from g fill in names missing on existing nodes.
func (s *Store) Merge(g Graph) DeltaStats {
	var stats DeltaStats
	for _, n := range g.Nodes {
		if i, ok := s.nodeIndex[n.ID]; ok {
			if s.nodes[i].Name == "" {
				s.nodes[i].Name = n.Name
			}
			continue
		}
		if s.addNode(n) {
			stats.NodesAdded++
		}
	}
	for _, l := range g.Links {
		if s.addLink(l) {
			stats.LinksAdded++
		}
	}
	return stats
}

// HasNode reports whether a node with the given ID exists.
func (s *Store) HasNode(id string) bool {
	_, ok := s.nodeIndex[id]
	return ok
}

// NodeCount returns the number of nodes.
func (s *Store) NodeCount() int {
	return len(s.nodes)
}

// LinkCount returns the number of links, including dangling ones.
func (s *Store) LinkCount() int {
	return len(s.links)
}

// Snapshot returns a copy of the graph.
func (s *Store) Snapshot() Graph {
	return Graph{
		Nodes: append([]Node{}, s.nodes...),
		Links: append([]Link{}, s.links...),
	}
}

// Restore replaces the graph contents with g, deduplicating as it goes.
func (s *Store) Restore(g Graph) {
	s.Reset()
	s.Merge(g)
}

// Reset empties the graph.
func (s *Store) Reset() {
	s.nodes = nil
	s.links = nil
	s.nodeIndex = make(map[string]int)
	s.linkIndex = make(map[linkKey]struct{})
}

func (s *Store) addNode(n Node) bool {
	if n.ID == "" {
		return false
	}
	if _, ok := s.nodeIndex[n.ID]; ok {
		return false
	}
	s.nodeIndex[n.ID] = len(s.nodes)
	s.nodes = append(s.nodes, n)
	return true
}

func (s *Store) removeNode(id string) bool {
	i, ok := s.nodeIndex[id]
	if !ok {
		return false
	}
	s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)
	delete(s.nodeIndex, id)
	for j := i; j < len(s.nodes); j++ {
		s.nodeIndex[s.nodes[j].ID] = j
	}
	return true
}

func (s *Store) addLink(l Link) bool {
	if l.Source == "" || l.Target == "" {
		return false
	}
	key := linkKey{source: l.Source, target: l.Target}
	if _, ok := s.linkIndex[key]; ok {
		return false
	}
	s.linkIndex[key] = struct{}{}
	s.links = append(s.links, l)
	return true
}
