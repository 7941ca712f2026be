package orchestrator

import (
	"github.com/dan-solli/dialectic/pkg/analysis"
	"github.com/dan-solli/dialectic/pkg/graph"
	"github.com/dan-solli/dialectic/pkg/knowledge"
)

// Session is the complete resumable state of an analysis. It is the export
// and import format; field names match files written by the browser tool,
// which lacks the last three fields.
type Session struct {
	SessionID       string             `json:"sessionId,omitempty"`
	FileContent     string             `json:"fileContent"`
	FileName        string             `json:"fileName"`
	Axioms          []knowledge.Axiom  `json:"axioms" validate:"dive"`
	GlobalAnalysis  *analysis.Result   `json:"globalAnalysis"`
	AnalysisHistory []*analysis.Result `json:"analysisHistory" validate:"dive,required"`
	CurrentChunkIdx int                `json:"currentChunkIndex" validate:"min=0"`
	Phase           Phase              `json:"phase" validate:"required"`
	GraphData       *graph.Graph       `json:"graphData,omitempty"`

	ChunksSinceConsolidation int `json:"chunksSinceConsolidation,omitempty" validate:"min=0"`
	NextAxiomID              int `json:"nextAxiomId,omitempty" validate:"min=0"`
}

// Summary is a content-free view of a session for listings and logs.
type Summary struct {
	SessionID                string
	FileName                 string
	Phase                    Phase
	ChunkIndex               int
	ChunkCount               int
	ChunksSinceConsolidation int
	Axioms                   map[knowledge.Status]int
	GraphNodes               int
	GraphLinks               int
	LastError                string
}

// AxiomCount returns the total number of axioms in the summary.
func (s Summary) AxiomCount() int {
	total := 0
	for _, n := range s.Axioms {
		total += n
	}
	return total
}

// ActiveAxiomCount returns the number of non-stale axioms.
func (s Summary) ActiveAxiomCount() int {
	return s.AxiomCount() - s.Axioms[knowledge.StatusStale]
}

// normalizePhase maps phases that are only held mid-call to the stable phase
// the workflow would resume from.
func normalizePhase(p Phase) Phase {
	switch p {
	case PhaseFileLoaded:
		return PhaseIdle
	case PhaseIterativeAnalysis, PhaseConsolidating, phaseAutoIterating:
		return PhaseGlobalAnalysisComplete
	}
	return p
}

// rebuildGraph derives the concept graph for sessions exported without one:
// the global graph followed by every chunk's delta in order.
func rebuildGraph(global *analysis.Result, history []*analysis.Result) *graph.Store {
	g := graph.NewStore()
	if global != nil && global.GraphData != nil {
		g.Merge(*global.GraphData)
	}
	for _, h := range history {
		if h != nil && h.GraphUpdate != nil {
			g.ApplyDelta(*h.GraphUpdate)
		}
	}
	return g
}
