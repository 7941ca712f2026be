package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dan-solli/dialectic/pkg/knowledge"
	"github.com/dan-solli/dialectic/pkg/orchestrator"
	"github.com/dan-solli/dialectic/pkg/trace"
)

func TestSummarizeTraces(t *testing.T) {
	records := []trace.TraceRecord{
		{Operation: "chunk_analysis", Status: "success", DurationMs: 100},
		{Operation: "global_analysis", Status: "success", DurationMs: 400},
		{Operation: "chunk_analysis", Status: "error", ErrorType: "permanent", DurationMs: 300},
		{Operation: "chunk_analysis", Status: "discarded", DurationMs: 50},
	}

	stats := summarizeTraces(records)
	require.Len(t, stats, 2)

	chunk := stats[0]
	assert.Equal(t, "chunk_analysis", chunk.Operation)
	assert.Equal(t, 3, chunk.Count)
	assert.Equal(t, 1, chunk.Errors)
	assert.Equal(t, 1, chunk.Discarded)
	assert.Equal(t, int64(150), chunk.AvgMs())
	assert.Equal(t, int64(300), chunk.MaxMs)
	assert.Equal(t, 1, chunk.ErrTypes["permanent"])

	assert.Equal(t, "global_analysis", stats[1].Operation)

	var buf bytes.Buffer
	printTraceSummary(&buf, stats)
	assert.Contains(t, buf.String(), "OPERATION")
	assert.Contains(t, buf.String(), "  permanent")
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, orchestrator.Summary{
		SessionID:  "s1",
		FileName:   "logic.txt",
		Phase:      orchestrator.PhaseGlobalAnalysisComplete,
		ChunkIndex: 2,
		ChunkCount: 5,
		Axioms:     map[knowledge.Status]int{knowledge.StatusMaterial: 3, knowledge.StatusStale: 1},
		GraphNodes: 7,
		GraphLinks: 6,
		LastError:  "consolidation failed: timeout",
	})

	out := buf.String()
	assert.Contains(t, out, "chunks     2/5\n")
	assert.Contains(t, out, "axioms     4 (3 active)\n")
	assert.Contains(t, out, "graph      7 nodes, 6 links\n")
	assert.Contains(t, out, "error      consolidation failed: timeout\n")
}

func TestFormatAxiom(t *testing.T) {
	a := knowledge.Axiom{ID: "A12", Status: knowledge.StatusRefined, Premises: []string{"s(being)", "o(nothing)"}, Conclusion: "n(becoming)"}
	assert.Equal(t, "A12   (Refined)  [s(being), o(nothing)] => n(becoming)", formatAxiom(a))
}
