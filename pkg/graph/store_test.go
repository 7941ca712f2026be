package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDelta_AddsNodesAndEdges(t *testing.T) {
	s := NewStore()

	stats := s.ApplyDelta(Delta{
		NewNodes: []string{"being", "nothing", "becoming"},
		NewEdges: []Link{
			{Source: "being", Target: "nothing", Label: "contradicts"},
			{Source: "nothing", Target: "becoming", Label: "sublates"},
		},
	})

	assert.Equal(t, DeltaStats{NodesAdded: 3, LinksAdded: 2}, stats)
	assert.Equal(t, 3, s.NodeCount())
	assert.Equal(t, 2, s.LinkCount())
}

func TestApplyDelta_DeduplicatesNodes(t *testing.T) {
	s := NewStore()
	s.ApplyDelta(Delta{NewNodes: []string{"being"}})

	stats := s.ApplyDelta(Delta{NewNodes: []string{"being", "being", "nothing"}})

	assert.Equal(t, 1, stats.NodesAdded)
	assert.Equal(t, 2, s.NodeCount())
}

func TestApplyDelta_EdgeDedupByPairKeepsOriginalLabel(t *testing.T) {
	s := NewStore()
	s.ApplyDelta(Delta{
		NewNodes: []string{"being", "nothing"},
		NewEdges: []Link{{Source: "being", Target: "nothing", Label: "implies"}},
	})

	stats := s.ApplyDelta(Delta{
		NewEdges: []Link{{Source: "being", Target: "nothing", Label: "contradicts"}},
	})

	assert.Equal(t, 0, stats.LinksAdded)
	require.Equal(t, 1, s.LinkCount())
	assert.Equal(t, "implies", s.Snapshot().Links[0].Label)
}

func TestApplyDelta_ReverseDirectionIsDistinct(t *testing.T) {
	s := NewStore()
	s.ApplyDelta(Delta{NewEdges: []Link{{Source: "a", Target: "b"}}})

	s.ApplyDelta(Delta{NewEdges: []Link{{Source: "b", Target: "a"}}})

	assert.Equal(t, 2, s.LinkCount())
}

func TestApplyDelta_RemovalBeforeAddition(t *testing.T) {
	s := NewStore()
	s.ApplyDelta(Delta{NewNodes: []string{"being", "nothing"}})

	stats := s.ApplyDelta(Delta{
		RemovedNodes: []string{"being", "absent"},
		NewNodes:     []string{"being"},
	})

	assert.True(t, s.HasNode("being"), "node removed and re-added in one delta must be present")
	assert.Equal(t, 1, stats.NodesRemoved)
	assert.Equal(t, 1, stats.NodesAdded)
	assert.Equal(t, 2, s.NodeCount())
}

func TestApplyDelta_RemovalKeepsLinks(t *testing.T) {
	s := NewStore()
	s.ApplyDelta(Delta{
		NewNodes: []string{"a", "b"},
		NewEdges: []Link{{Source: "a", Target: "b"}},
	})

	s.ApplyDelta(Delta{RemovedNodes: []string{"a"}})

	assert.False(t, s.HasNode("a"))
	assert.True(t, s.HasNode("b"))
	assert.Equal(t, 1, s.LinkCount(), "links are the source of truth and stay in the list")
}

func TestApplyDelta_IgnoresEmptyIDs(t *testing.T) {
	s := NewStore()

	stats := s.ApplyDelta(Delta{
		NewNodes: []string{""},
		NewEdges: []Link{{Source: "", Target: "b"}},
	})

	assert.Equal(t, DeltaStats{}, stats)
}

func TestMerge_FillsNamesAndAddsMissing(t *testing.T) {
	s := NewStore()
	s.ApplyDelta(Delta{NewNodes: []string{"being"}})

	stats := s.Merge(Graph{
		Nodes: []Node{{ID: "being", Name: "Being"}, {ID: "nothing", Name: "Nothing"}},
		Links: []Link{{Source: "being", Target: "nothing"}},
	})

	assert.Equal(t, DeltaStats{NodesAdded: 1, LinksAdded: 1}, stats)
	snap := s.Snapshot()
	assert.Equal(t, "Being", snap.Nodes[0].Name)
	assert.Equal(t, "Nothing", snap.Nodes[1].Name)
}

func TestSnapshotRestore(t *testing.T) {
	s := NewStore()
	s.ApplyDelta(Delta{
		NewNodes: []string{"a", "b", "c"},
		NewEdges: []Link{{Source: "a", Target: "b"}, {Source: "b", Target: "c"}},
	})
	snap := s.Snapshot()

	other := NewStore()
	other.Restore(snap)

	assert.Equal(t, snap, other.Snapshot())

	// Snapshot is a copy
	snap.Nodes[0].ID = "mutated"
	assert.True(t, other.HasNode("a"))
	assert.True(t, s.HasNode("a"))
}

func TestRemoveNode_ReindexesRemaining(t *testing.T) {
	s := NewStore()
	s.ApplyDelta(Delta{NewNodes: []string{"a", "b", "c"}})

	s.ApplyDelta(Delta{RemovedNodes: []string{"a"}})
	s.ApplyDelta(Delta{RemovedNodes: []string{"c"}})

	require.Equal(t, 1, s.NodeCount())
	assert.Equal(t, "b", s.Snapshot().Nodes[0].ID)
}

func TestEmptyHelpers(t *testing.T) {
	var g *Graph
	assert.True(t, g.Empty())
	assert.True(t, (&Graph{}).Empty())
	assert.False(t, (&Graph{Nodes: []Node{{ID: "a"}}}).Empty())

	var d *Delta
	assert.True(t, d.Empty())
	assert.False(t, (&Delta{RemovedNodes: []string{"a"}}).Empty())
}
