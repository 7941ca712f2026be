// Package analysis turns document text and accumulated knowledge into one
// structured LLM analysis per call, with phase-specific instructions, schema
// validation and retry/backoff around the transport.
package analysis

import (
	"github.com/dan-solli/dialectic/pkg/graph"
	"github.com/dan-solli/dialectic/pkg/knowledge"
	"github.com/dan-solli/dialectic/pkg/llm"
)

// Phase selects the instructions and output schema of an analysis call.
type Phase string

const (
	// PhaseGlobal reads the whole document and seeds concepts, graph and axioms.
	PhaseGlobal Phase = "global"
	// PhaseIterative analyses one chunk against the current whole.
	PhaseIterative Phase = "iterative"
	// PhaseConsolidation merges redundant axioms and refines the whole.
	PhaseConsolidation Phase = "consolidation"
)

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseGlobal, PhaseIterative, PhaseConsolidation:
		return true
	}
	return false
}

// Request holds the inputs of one analysis call.
type Request struct {
	Phase Phase

	// Text is the whole document (global), one chunk (iterative) or empty
	// (consolidation).
	Text string

	// Axioms is the current axiom set. Stale axioms are filtered out of the
	// prompt.
	Axioms []knowledge.Axiom

	// Image is attached only in the global phase.
	Image *llm.Image

	// Global is the current whole-document analysis, if any.
	Global *Result

	// Previous is the most recent chunk analysis, if any.
	Previous *Result

	// ChunkLabel identifies the chunk, e.g. "Chunk 2/5".
	ChunkLabel string
}

// Formalization is a concept expressed in the symbolic vocabulary.
type Formalization struct {
	Concept       string `json:"concept" validate:"required"`
	Formalization string `json:"formalization" validate:"required"`
	Explanation   string `json:"explanation"`
}

// Pattern is a dialectical pattern spanning several concepts.
type Pattern struct {
	Pattern     string   `json:"pattern" validate:"required"`
	Concepts    []string `json:"concepts"`
	Description string   `json:"description"`
}

// Result is the structured analysis returned by the model. The same shape
// serves as the global analysis and as each chunk analysis.
type Result struct {
	KeyConcepts    []string             `json:"key_concepts" validate:"required"`
	Formalizations []Formalization      `json:"pml_formalizations" validate:"required,dive"`
	ProposedAxioms []knowledge.Proposal `json:"proposed_axioms" validate:"required,dive"`
	AxiomUpdates   []knowledge.Update   `json:"axiom_updates,omitempty" validate:"omitempty,dive"`
	Patterns       []Pattern            `json:"dialectical_patterns" validate:"required,dive"`

	// Narrative is the per-chunk reading (iterative phase).
	Narrative string `json:"narrative,omitempty"`

	// GraphData is the initial concept graph (global phase).
	GraphData *graph.Graph `json:"graph_data,omitempty"`

	// GraphUpdate is an incremental change to the concept graph (iterative phase).
	GraphUpdate *graph.Delta `json:"graph_update,omitempty"`

	// UpdatedGlobalConcepts and UpdatedGraphData refine the whole
	// (consolidation phase).
	UpdatedGlobalConcepts []string     `json:"updated_global_concepts,omitempty"`
	UpdatedGraphData      *graph.Graph `json:"updated_graph_data,omitempty"`
}

// Clone returns a deep copy of r.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	out := *r
	out.KeyConcepts = cloneStrings(r.KeyConcepts)
	if r.Formalizations != nil {
		out.Formalizations = append([]Formalization{}, r.Formalizations...)
	}
	if r.ProposedAxioms != nil {
		out.ProposedAxioms = make([]knowledge.Proposal, len(r.ProposedAxioms))
		for i, p := range r.ProposedAxioms {
			p.Premises = cloneStrings(p.Premises)
			out.ProposedAxioms[i] = p
		}
	}
	out.AxiomUpdates = append([]knowledge.Update(nil), r.AxiomUpdates...)
	if r.Patterns != nil {
		out.Patterns = make([]Pattern, len(r.Patterns))
		for i, p := range r.Patterns {
			p.Concepts = cloneStrings(p.Concepts)
			out.Patterns[i] = p
		}
	}
	out.GraphData = cloneGraph(r.GraphData)
	if r.GraphUpdate != nil {
		d := graph.Delta{
			NewNodes:     cloneStrings(r.GraphUpdate.NewNodes),
			NewEdges:     append([]graph.Link(nil), r.GraphUpdate.NewEdges...),
			RemovedNodes: cloneStrings(r.GraphUpdate.RemovedNodes),
		}
		out.GraphUpdate = &d
	}
	out.UpdatedGlobalConcepts = cloneStrings(r.UpdatedGlobalConcepts)
	out.UpdatedGraphData = cloneGraph(r.UpdatedGraphData)
	return &out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}

func cloneGraph(g *graph.Graph) *graph.Graph {
	if g == nil {
		return nil
	}
	return &graph.Graph{
		Nodes: append([]graph.Node{}, g.Nodes...),
		Links: append([]graph.Link{}, g.Links...),
	}
}
