package analysis

import (
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/dan-solli/dialectic/pkg/knowledge"
)

// arrayFields names every field the schema declares as an array of strings.
// Models sometimes emit a bare string there; the parser wraps it.
var arrayFields = map[string]bool{
	"key_concepts":            true,
	"premises":                true,
	"concepts":                true,
	"updated_global_concepts": true,
	"new_nodes":               true,
	"removed_nodes":           true,
}

func stringArray(description string) jsonschema.Definition {
	return jsonschema.Definition{
		Type:        jsonschema.Array,
		Description: description,
		Items:       &jsonschema.Definition{Type: jsonschema.String},
	}
}

func objectArray(description string, props map[string]jsonschema.Definition, required ...string) jsonschema.Definition {
	return jsonschema.Definition{
		Type:        jsonschema.Array,
		Description: description,
		Items: &jsonschema.Definition{
			Type:       jsonschema.Object,
			Properties: props,
			Required:   required,
		},
	}
}

func graphDefinition(description string) jsonschema.Definition {
	return jsonschema.Definition{
		Type:        jsonschema.Object,
		Description: description,
		Properties: map[string]jsonschema.Definition{
			"nodes": objectArray("Concepts", map[string]jsonschema.Definition{
				"id":   {Type: jsonschema.String},
				"name": {Type: jsonschema.String},
			}, "id"),
			"links": objectArray("Relations between concepts", map[string]jsonschema.Definition{
				"source": {Type: jsonschema.String},
				"target": {Type: jsonschema.String},
				"label":  {Type: jsonschema.String},
			}, "source", "target"),
		},
		Required: []string{"nodes", "links"},
	}
}

func statusEnum() []string {
	out := make([]string, len(knowledge.Statuses))
	for i, s := range knowledge.Statuses {
		out[i] = string(s)
	}
	return out
}

// axiomUpdates describes changes to existing axioms. A missing new_status
// keeps the current one.
func axiomUpdates() jsonschema.Definition {
	return objectArray("Changes to existing axioms", map[string]jsonschema.Definition{
		"axiom_id":               {Type: jsonschema.String},
		"new_status":             {Type: jsonschema.String, Enum: statusEnum()},
		"modification_rationale": {Type: jsonschema.String},
		"refined_conclusion":     {Type: jsonschema.String},
	}, "axiom_id", "modification_rationale")
}

// baseProperties are shared by every phase.
func baseProperties() map[string]jsonschema.Definition {
	return map[string]jsonschema.Definition{
		"key_concepts": stringArray("Central concepts of the text"),
		"pml_formalizations": objectArray("Concepts expressed in the symbolic vocabulary", map[string]jsonschema.Definition{
			"concept":       {Type: jsonschema.String},
			"formalization": {Type: jsonschema.String},
			"explanation":   {Type: jsonschema.String},
		}, "concept", "formalization", "explanation"),
		"proposed_axioms": objectArray("New axioms as premises and a conclusion", map[string]jsonschema.Definition{
			"premises":   stringArray("Premise formulas"),
			"conclusion": {Type: jsonschema.String},
			"rationale":  {Type: jsonschema.String},
			"polarity":   {Type: jsonschema.String, Description: "Optional stance marker"},
		}, "premises", "conclusion", "rationale"),
		"dialectical_patterns": objectArray("Dialectical movements across concepts", map[string]jsonschema.Definition{
			"pattern":     {Type: jsonschema.String},
			"concepts":    stringArray(""),
			"description": {Type: jsonschema.String},
		}, "pattern", "concepts", "description"),
	}
}

var baseRequired = []string{"key_concepts", "pml_formalizations", "proposed_axioms", "dialectical_patterns"}

// Schema returns the response schema for a phase. The returned definition
// marshals to JSON Schema and is safe to pass as llm.Request.Schema.
func Schema(phase Phase) *jsonschema.Definition {
	props := baseProperties()
	required := append([]string{}, baseRequired...)

	switch phase {
	case PhaseGlobal:
		props["graph_data"] = graphDefinition("Initial concept graph of the whole text")
		required = append(required, "graph_data")
	case PhaseIterative:
		props["axiom_updates"] = axiomUpdates()
		props["narrative"] = jsonschema.Definition{Type: jsonschema.String, Description: "Reading of this chunk against the whole"}
		props["graph_update"] = jsonschema.Definition{
			Type:        jsonschema.Object,
			Description: "Incremental change to the concept graph",
			Properties: map[string]jsonschema.Definition{
				"new_nodes": stringArray("Concept ids to add"),
				"new_edges": objectArray("Relations to add", map[string]jsonschema.Definition{
					"source": {Type: jsonschema.String},
					"target": {Type: jsonschema.String},
					"label":  {Type: jsonschema.String},
				}, "source", "target"),
				"removed_nodes": stringArray("Concept ids to remove"),
			},
		}
	case PhaseConsolidation:
		props["axiom_updates"] = axiomUpdates()
		props["updated_global_concepts"] = stringArray("Refined list of global concepts")
		props["updated_graph_data"] = graphDefinition("Refined concept graph")
	}

	return &jsonschema.Definition{
		Type:       jsonschema.Object,
		Properties: props,
		Required:   required,
	}
}

// schemaName is the provider-facing name of a phase schema.
func schemaName(phase Phase) string {
	return string(phase) + "_analysis"
}
