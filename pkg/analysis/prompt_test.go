package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dan-solli/dialectic/pkg/knowledge"
)

func TestFormatAxioms(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, "No axioms loaded yet.", FormatAxioms(nil))
	})

	t.Run("only stale", func(t *testing.T) {
		axioms := []knowledge.Axiom{{ID: "A1", Status: knowledge.StatusStale}}
		assert.Equal(t, "No active axioms.", FormatAxioms(axioms))
	})

	t.Run("filters stale", func(t *testing.T) {
		axioms := []knowledge.Axiom{
			{ID: "A1", Status: knowledge.StatusMaterial, Premises: []string{"s(being)", "o(being)"}, Conclusion: "s(nothing)"},
			{ID: "A2", Status: knowledge.StatusStale, Premises: []string{"x"}, Conclusion: "y"},
			{ID: "A3", Status: knowledge.StatusRefined, Premises: []string{}, Conclusion: "n(becoming)"},
		}
		want := "- ID: A1 | STATUS: Material | LOGIC: [s(being), o(being)] => s(nothing)\n" +
			"- ID: A3 | STATUS: Refined | LOGIC: [] => n(becoming)"
		assert.Equal(t, want, FormatAxioms(axioms))
	})
}

func TestBuildPrompt_Iterative(t *testing.T) {
	prompt := buildPrompt(Request{
		Phase:      PhaseIterative,
		Text:       "Becoming is the truth of being.",
		ChunkLabel: "Chunk 2/5",
		Global:     &Result{KeyConcepts: []string{"being"}},
		Previous: &Result{
			KeyConcepts: []string{"nothing", "void"},
			Patterns:    []Pattern{{Pattern: "oscillation"}, {Pattern: "negation"}},
		},
	})

	assert.Contains(t, prompt, "Global Analysis (The Big Picture):\n[\n  \"being\"\n]")
	assert.Contains(t, prompt, "- Recent Concepts: nothing, void\n")
	assert.Contains(t, prompt, "- Recent Patterns: oscillation, negation\n")
	assert.Contains(t, prompt, "--- Analyze this Text Chunk (Chunk 2/5) ---\nBecoming is the truth of being.\n---")
}

func TestBuildPrompt_IterativeWithoutPrevious(t *testing.T) {
	prompt := buildPrompt(Request{Phase: PhaseIterative, Text: "t", ChunkLabel: "Chunk 1/1"})

	assert.NotContains(t, prompt, "Previous Chunk Analysis")
	assert.Contains(t, prompt, "Global Analysis (The Big Picture):\n[]")
}

func TestBuildPrompt_Consolidation(t *testing.T) {
	prompt := buildPrompt(Request{
		Phase:  PhaseConsolidation,
		Global: &Result{KeyConcepts: []string{"being", "nothing"}},
		Axioms: []knowledge.Axiom{{ID: "A1", Status: knowledge.StatusFormal, Premises: []string{"p"}, Conclusion: "c"}},
	})

	assert.Contains(t, prompt, "- ID: A1 | STATUS: Formal | LOGIC: [p] => c")
	assert.Contains(t, prompt, "Current Global Analysis (The Whole):")
	assert.Contains(t, prompt, "HERMENEUTIC REFLECTION")
	assert.NotContains(t, prompt, "--- Analyze this Text Chunk")
}

func TestSystemInstructions(t *testing.T) {
	assert.Contains(t, systemInstructions(PhaseGlobal), "graph_data")
	assert.Contains(t, systemInstructions(PhaseIterative), "graph_update")
	assert.Contains(t, systemInstructions(PhaseConsolidation), "updated_global_concepts")
	for _, p := range []Phase{PhaseGlobal, PhaseIterative, PhaseConsolidation} {
		assert.Contains(t, systemInstructions(p), "PML VOCABULARY")
	}
}

func TestResultClone_IsDeep(t *testing.T) {
	orig := &Result{
		KeyConcepts:    []string{"a"},
		ProposedAxioms: []knowledge.Proposal{{Premises: []string{"p"}, Conclusion: "c"}},
		Patterns:       []Pattern{{Pattern: "x", Concepts: []string{"a"}}},
	}
	cp := orig.Clone()

	cp.KeyConcepts[0] = "changed"
	cp.ProposedAxioms[0].Premises[0] = "changed"
	cp.Patterns[0].Concepts[0] = "changed"

	assert.Equal(t, "a", orig.KeyConcepts[0])
	assert.Equal(t, "p", orig.ProposedAxioms[0].Premises[0])
	assert.Equal(t, "a", orig.Patterns[0].Concepts[0])
	assert.Nil(t, (*Result)(nil).Clone())
}
