package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dan-solli/dialectic/pkg/knowledge"
)

// commonInstructions opens every system prompt.
const commonInstructions = `You are a philosophical interpreter working with a notation inspired by Polarized Modal Logic (PML).
Your task is to analyze the provided philosophical text.

PML VOCABULARY:
- Contexts: s(P) subjective, o(P) objective, n(P) normative
- Modalities: comp_nec(P) compressive necessity, exp_nec(P) expansive necessity
- Polarity: "compressive" (synthesis, determination) or "expansive" (analysis, dissolution)

RESPONSE FORMAT:
Respond with ONLY a valid JSON object.
Keep every "rationale", "explanation" and "description" short (at most 30 words).
`

const globalInstructions = commonInstructions + `
PHASE: GLOBAL ANALYSIS. Read the entire text.
Identify the main concepts and a first set of axioms.
"graph_data" is required in this phase.

JSON Structure:
{
  "key_concepts": ["concept1"],
  "pml_formalizations": [{"concept": "Being", "formalization": "s(being)", "explanation": "..."}],
  "proposed_axioms": [{"premises": ["s(being)"], "conclusion": "s(nothing)", "rationale": "...", "polarity": "compressive"}],
  "dialectical_patterns": [{"pattern": "oscillation", "concepts": ["being", "nothing"], "description": "..."}],
  "graph_data": {"nodes": [{"id": "being"}], "links": [{"source": "being", "target": "nothing"}]}
}`

const iterativeInstructions = commonInstructions + `
PHASE: ITERATIVE DEEP DIVE. Read one chunk against the global picture.

AXIOM DISCIPLINE:
- Propose a new axiom only for a major structural shift or a synthesis no existing axiom covers.
- When the chunk supports or sharpens an existing axiom, update it ("Refined" or "Formal") instead.
- When the chunk contradicts an existing axiom, mark it "Stale".
- Report concepts the chunk adds to or removes from the concept graph in "graph_update".

JSON Structure:
{
  "key_concepts": ["concept_from_chunk"],
  "pml_formalizations": [{"concept": "New Concept", "formalization": "s(new)", "explanation": "..."}],
  "proposed_axioms": [{"premises": ["s(old)"], "conclusion": "s(new)", "rationale": "...", "polarity": "compressive"}],
  "axiom_updates": [
    {"axiom_id": "A1", "new_status": "Stale", "modification_rationale": "Refuted in paragraph 2."},
    {"axiom_id": "A2", "new_status": "Refined", "refined_conclusion": "s(being) => s(becoming)", "modification_rationale": "Concept evolved."}
  ],
  "dialectical_patterns": [{"pattern": "refinement", "concepts": ["old", "new"], "description": "..."}],
  "narrative": "...",
  "graph_update": {"new_nodes": ["becoming"], "new_edges": [{"source": "being", "target": "becoming"}], "removed_nodes": []}
}`

const consolidationInstructions = commonInstructions + `
PHASE: HERMENEUTIC REFLECTION. The parts reshape the whole.

1. Refine the parts (axioms):
   - Merge duplicates. When several axioms describe the same movement keep the best one as "Formal" and mark the rest "Stale".
   - Prune weak or redundant axioms. Aim for a tight logical system, not a transcript.
2. Refine the whole (global context):
   - If the detailed axioms show the global map was imprecise, return "updated_global_concepts" and "updated_graph_data".

Return empty arrays for "key_concepts", "pml_formalizations", "proposed_axioms" and "dialectical_patterns".

JSON Structure:
{
  "key_concepts": [],
  "pml_formalizations": [],
  "proposed_axioms": [],
  "axiom_updates": [
    {"axiom_id": "A1", "new_status": "Stale", "modification_rationale": "Merged into A5."},
    {"axiom_id": "A5", "new_status": "Formal", "refined_conclusion": "...", "modification_rationale": "Synthesized with A1."}
  ],
  "dialectical_patterns": [],
  "updated_global_concepts": ["refined_concept"],
  "updated_graph_data": {"nodes": [], "links": []}
}`

// systemInstructions returns the system prompt for a phase.
func systemInstructions(phase Phase) string {
	switch phase {
	case PhaseGlobal:
		return globalInstructions
	case PhaseConsolidation:
		return consolidationInstructions
	default:
		return iterativeInstructions
	}
}

// FormatAxioms renders the active axioms one per line. Stale axioms are
// omitted.
func FormatAxioms(axioms []knowledge.Axiom) string {
	if len(axioms) == 0 {
		return "No axioms loaded yet."
	}

	var b strings.Builder
	for _, a := range axioms {
		if !a.Active() {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- ID: %s | STATUS: %s | LOGIC: [%s] => %s",
			a.ID, a.Status, strings.Join(a.Premises, ", "), a.Conclusion)
	}

	if b.Len() == 0 {
		return "No active axioms."
	}
	return b.String()
}

// buildPrompt assembles the user content of a request.
func buildPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("Current Active Axioms (The Parts):\n")
	b.WriteString(FormatAxioms(req.Axioms))
	b.WriteString("\n\n")

	switch req.Phase {
	case PhaseConsolidation:
		b.WriteString("Current Global Analysis (The Whole):\n")
		b.WriteString(globalConcepts(req.Global))
		b.WriteString("\n\n")
		b.WriteString("INSTRUCTION: Perform HERMENEUTIC REFLECTION. Use the axioms (parts) to refine the global context (whole). Prune redundant axioms aggressively.")

	case PhaseIterative:
		b.WriteString("Global Analysis (The Big Picture):\n")
		b.WriteString(globalConcepts(req.Global))
		b.WriteString("\n\n")

		if req.Previous != nil {
			b.WriteString("Previous Chunk Analysis (Immediate Context):\n")
			fmt.Fprintf(&b, "- Recent Concepts: %s\n", strings.Join(req.Previous.KeyConcepts, ", "))
			patterns := make([]string, 0, len(req.Previous.Patterns))
			for _, p := range req.Previous.Patterns {
				patterns = append(patterns, p.Pattern)
			}
			fmt.Fprintf(&b, "- Recent Patterns: %s\n\n", strings.Join(patterns, ", "))
		}

		fmt.Fprintf(&b, "--- Analyze this Text Chunk (%s) ---\n%s\n---", req.ChunkLabel, req.Text)

	default:
		fmt.Fprintf(&b, "--- Text to analyze ---\n%s\n---", req.Text)
	}

	return b.String()
}

// globalConcepts renders the key concepts of the whole as indented JSON.
func globalConcepts(global *Result) string {
	concepts := []string{}
	if global != nil && global.KeyConcepts != nil {
		concepts = global.KeyConcepts
	}
	out, err := json.MarshalIndent(concepts, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(out)
}
