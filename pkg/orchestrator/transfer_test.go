package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dan-solli/dialectic/pkg/knowledge"
)

// browserExport is a session file as written by the browser tool: no session
// ID, no graph, no counters, and a phase that was held mid-run.
const browserExport = `{
  "fileContent": "Being, pure being, without any further determination.",
  "fileName": "logic.txt",
  "axioms": [
    {"id": "A1", "status": "Material", "premises": ["s(being)"], "conclusion": "s(nothing)", "rationale": "empty", "history": ["[Global] Created"]},
    {"id": "A3", "status": "Stale", "premises": ["s(nothing)"], "conclusion": "s(being)", "rationale": "return", "history": ["[Chunk 1/1] Created", "[Chunk 1/1] refuted"]}
  ],
  "globalAnalysis": {
    "key_concepts": ["being", "nothing"],
    "pml_formalizations": [{"concept": "Being", "formalization": "s(being)", "explanation": "pure"}],
    "proposed_axioms": [{"premises": ["s(being)"], "conclusion": "s(nothing)", "rationale": "empty"}],
    "dialectical_patterns": [],
    "graph_data": {"nodes": [{"id": "being"}, {"id": "nothing"}], "links": [{"source": "being", "target": "nothing"}]}
  },
  "analysisHistory": [
    {
      "key_concepts": ["becoming"],
      "pml_formalizations": [],
      "proposed_axioms": [],
      "dialectical_patterns": [],
      "graph_update": {"new_nodes": ["becoming"], "new_edges": [{"source": "nothing", "target": "becoming"}], "removed_nodes": []}
    }
  ],
  "currentChunkIndex": 1,
  "phase": "AutoIterating"
}`

func TestExportImport_RoundTrip(t *testing.T) {
	o := New(&fakeAnalyzer{})
	o.LoadDocument(document(20000))
	ctx := context.Background()
	require.NoError(t, o.Start(ctx))
	_, err := o.Advance(ctx)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, o.Export(&buf))
	assert.Contains(t, buf.String(), "\n  \"fileContent\"")

	other := New(&fakeAnalyzer{})
	require.NoError(t, other.Import(&buf))

	assert.Equal(t, o.Session(), other.Session())
	assert.Equal(t, o.Summary(), other.Summary())

	// The imported session continues where the export left off.
	kind, err := other.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, StepChunk, kind)
	assert.Equal(t, "A3", other.Session().Axioms[2].ID)
}

func TestImport_BrowserFormat(t *testing.T) {
	o := New(&fakeAnalyzer{})
	require.NoError(t, o.Import(strings.NewReader(browserExport)))

	s := o.Session()
	assert.Equal(t, PhaseGlobalAnalysisComplete, s.Phase)
	assert.NotEmpty(t, s.SessionID)
	assert.Equal(t, 4, s.NextAxiomID)
	assert.Equal(t, 0, s.ChunksSinceConsolidation)
	assert.Equal(t, "logic.txt", s.FileName)

	summary := o.Summary()
	assert.Equal(t, 1, summary.ChunkCount)
	assert.Equal(t, 1, summary.ChunkIndex)
	assert.Equal(t, 3, summary.GraphNodes)
	assert.Equal(t, 2, summary.GraphLinks)
	assert.Equal(t, 1, summary.Axioms[knowledge.StatusStale])
	assert.Equal(t, 1, summary.ActiveAxiomCount())

	kind, err := o.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StepComplete, kind)
	assert.Equal(t, PhaseIterativeAnalysisComplete, o.Phase())
}

func TestImport_NormalizesPhases(t *testing.T) {
	tests := []struct {
		phase string
		want  Phase
	}{
		{"IterativeAnalysis", PhaseGlobalAnalysisComplete},
		{"Consolidating", PhaseGlobalAnalysisComplete},
		{"AutoIterating", PhaseGlobalAnalysisComplete},
		{"IterativeAnalysisComplete", PhaseIterativeAnalysisComplete},
	}

	for _, tt := range tests {
		t.Run(tt.phase, func(t *testing.T) {
			var raw map[string]any
			require.NoError(t, json.Unmarshal([]byte(browserExport), &raw))
			raw["phase"] = tt.phase
			data, err := json.Marshal(raw)
			require.NoError(t, err)

			o := New(&fakeAnalyzer{})
			require.NoError(t, o.Import(bytes.NewReader(data)))
			assert.Equal(t, tt.want, o.Phase())
		})
	}
}

func TestImport_FileLoadedBecomesIdle(t *testing.T) {
	o := New(&fakeAnalyzer{})
	in := `{"fileContent": "text", "fileName": "a.txt", "axioms": [], "globalAnalysis": null, "analysisHistory": [], "currentChunkIndex": 0, "phase": "FileLoaded"}`
	require.NoError(t, o.Import(strings.NewReader(in)))
	assert.Equal(t, PhaseIdle, o.Phase())

	// A document restored in Idle can be started.
	require.NoError(t, o.Start(context.Background()))
}

func TestImport_FailureLeavesSessionUnchanged(t *testing.T) {
	tests := []struct {
		name   string
		modify func(raw map[string]any)
		input  string
	}{
		{name: "not json", input: "{not json"},
		{name: "unknown phase", modify: func(raw map[string]any) { raw["phase"] = "Dreaming" }},
		{name: "missing phase", modify: func(raw map[string]any) { delete(raw, "phase") }},
		{name: "no text", modify: func(raw map[string]any) { raw["fileContent"] = "" }},
		{name: "no global analysis", modify: func(raw map[string]any) { raw["globalAnalysis"] = nil }},
		{name: "chunk index out of range", modify: func(raw map[string]any) { raw["currentChunkIndex"] = 5 }},
		{name: "negative chunk index", modify: func(raw map[string]any) { raw["currentChunkIndex"] = -1 }},
		{name: "bad axiom status", modify: func(raw map[string]any) {
			raw["axioms"] = []any{map[string]any{"id": "A1", "status": "Certain"}}
		}},
		{name: "duplicate axiom id", modify: func(raw map[string]any) {
			ax := map[string]any{"id": "A1", "status": "Material"}
			raw["axioms"] = []any{ax, ax}
		}},
		{name: "history entry is null", modify: func(raw map[string]any) { raw["analysisHistory"] = []any{nil} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := New(&fakeAnalyzer{})
			o.LoadDocument(document(100))
			require.NoError(t, o.Start(context.Background()))
			before := o.Session()

			input := tt.input
			if tt.modify != nil {
				var raw map[string]any
				require.NoError(t, json.Unmarshal([]byte(browserExport), &raw))
				tt.modify(raw)
				data, err := json.Marshal(raw)
				require.NoError(t, err)
				input = string(data)
			}

			err := o.Import(strings.NewReader(input))
			require.Error(t, err)
			var ie *ImportError
			assert.ErrorAs(t, err, &ie)
			assert.Equal(t, ErrTypeImport, ClassifyError(err))

			assert.Equal(t, before, o.Session())
			assert.Equal(t, err, o.LastError())
		})
	}
}
