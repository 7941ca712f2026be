package dialectic

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dan-solli/dialectic/pkg/llm"
	"github.com/dan-solli/dialectic/pkg/orchestrator"
	"github.com/dan-solli/dialectic/pkg/store"
	"github.com/dan-solli/dialectic/pkg/trace"
)

const globalJSON = `{
  "key_concepts": ["being", "nothing"],
  "pml_formalizations": [{"concept": "Being", "formalization": "s(being)"}],
  "proposed_axioms": [{"premises": ["s(being)"], "conclusion": "s(nothing)", "rationale": "empty"}],
  "dialectical_patterns": [],
  "graph_data": {"nodes": [{"id": "being"}, {"id": "nothing"}], "links": [{"source": "being", "target": "nothing"}]}
}`

const chunkJSON = "```json\n" + `{
  "key_concepts": "becoming",
  "pml_formalizations": [],
  "proposed_axioms": [],
  "axiom_updates": [{"axiom_id": "A1", "new_status": "Refined", "modification_rationale": "sharpened"}],
  "dialectical_patterns": [],
  "narrative": "being passes over into nothing",
  "graph_update": {"new_nodes": ["becoming"], "new_edges": [{"source": "nothing", "target": "becoming"}], "removed_nodes": []}
}` + "\n```"

const consolidationJSON = `{
  "key_concepts": [],
  "pml_formalizations": [],
  "proposed_axioms": [],
  "axiom_updates": [{"axiom_id": "A1", "new_status": "Formal", "modification_rationale": "confirmed"}],
  "dialectical_patterns": [],
  "updated_global_concepts": ["being", "nothing", "becoming"]
}`

// phaseLLM answers by schema name and records every request.
type phaseLLM struct {
	mu       sync.Mutex
	requests []llm.Request
	fail     error
}

func (p *phaseLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.fail != nil {
		return "", p.fail
	}
	switch req.SchemaName {
	case "global_analysis":
		return globalJSON, nil
	case "iterative_analysis":
		return chunkJSON, nil
	default:
		return consolidationJSON, nil
	}
}

func (p *phaseLLM) schemaNames() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, len(p.requests))
	for i, r := range p.requests {
		names[i] = r.SchemaName
	}
	return names
}

func writeDocument(t *testing.T, dir string, runes int) string {
	t.Helper()
	path := filepath.Join(dir, "logic.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("b", runes)), 0644))
	return path
}

func TestNewWithClient_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	client := &phaseLLM{}
	d, err := NewWithClient(Config{
		ChunkSize:      1000,
		DBPath:         filepath.Join(dir, "db", "sessions.db"),
		TracePath:      filepath.Join(dir, "trace.jsonl"),
		MetricsEnabled: true,
	}, client)
	require.NoError(t, err)

	ctx := context.Background()
	previous, err := d.LoadFile(ctx, writeDocument(t, dir, 3500), "")
	require.NoError(t, err)
	assert.Empty(t, previous)

	require.NoError(t, d.Run(ctx, false))

	o := d.Orchestrator()
	assert.Equal(t, orchestrator.PhaseIterativeAnalysisComplete, o.Phase())
	assert.Equal(t, []string{
		"global_analysis",
		"iterative_analysis", "iterative_analysis", "iterative_analysis",
		"consolidation_analysis",
		"iterative_analysis",
	}, client.schemaNames())

	s := o.Session()
	assert.Equal(t, []string{"being", "nothing", "becoming"}, s.GlobalAnalysis.KeyConcepts)
	require.Len(t, s.Axioms, 1)
	// The last chunk ran after consolidation and refined A1 again.
	assert.Equal(t, "Refined", string(s.Axioms[0].Status))
	assert.Contains(t, s.Axioms[0].History, "[Hermeneutic Reflection] confirmed")
	assert.Len(t, s.AnalysisHistory, 4)
	assert.Equal(t, "being passes over into nothing", s.AnalysisHistory[0].Narrative)

	saved, err := d.Store().LoadSession(ctx, o.SessionID())
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, string(orchestrator.PhaseIterativeAnalysisComplete), saved.Phase)

	n, err := testutil.GatherAndCount(d.Metrics().Registry(), "dialectic_steps_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, d.Close())
	records, err := trace.ReadFile(filepath.Join(dir, "trace.jsonl"))
	require.NoError(t, err)
	assert.Len(t, records, 6)

	// Loading the same text again points at the completed session.
	d2, err := NewWithClient(Config{DBPath: filepath.Join(dir, "db", "sessions.db")}, &phaseLLM{})
	require.NoError(t, err)
	defer d2.Close()
	previous, err = d2.LoadFile(ctx, filepath.Join(dir, "logic.txt"), "")
	require.NoError(t, err)
	assert.Equal(t, s.SessionID, previous)
}

func TestResume(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sessions.db")
	client := &phaseLLM{}
	d, err := NewWithClient(Config{ChunkSize: 1000, DBPath: dbPath}, client)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = d.LoadFile(ctx, writeDocument(t, dir, 2500), "")
	require.NoError(t, err)
	o := d.Orchestrator()
	require.NoError(t, o.Start(ctx))
	_, err = o.Advance(ctx)
	require.NoError(t, err)
	id := o.SessionID()
	want := o.Session()
	require.NoError(t, d.Close())

	resumed, err := NewWithClient(Config{ChunkSize: 1000, DBPath: dbPath}, &phaseLLM{})
	require.NoError(t, err)
	defer resumed.Close()

	require.NoError(t, resumed.Resume(ctx, id))
	assert.Equal(t, want, resumed.Orchestrator().Session())

	err = resumed.Resume(ctx, "no-such-session")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestResume_WithoutStore(t *testing.T) {
	d, err := NewWithClient(Config{}, &phaseLLM{})
	require.NoError(t, err)
	defer d.Close()
	assert.Error(t, d.Resume(context.Background(), "x"))
	assert.Nil(t, d.Store())
	assert.Nil(t, d.Metrics())
}

func TestExportImportFile(t *testing.T) {
	dir := t.TempDir()
	d, err := NewWithClient(Config{}, &phaseLLM{})
	require.NoError(t, err)
	defer d.Close()

	ctx := context.Background()
	_, err = d.LoadFile(ctx, writeDocument(t, dir, 100), "")
	require.NoError(t, err)
	require.NoError(t, d.Orchestrator().Start(ctx))

	path := filepath.Join(dir, "session.json")
	require.NoError(t, d.ExportFile(path))

	other, err := NewWithClient(Config{}, &phaseLLM{})
	require.NoError(t, err)
	defer other.Close()
	require.NoError(t, other.ImportFile(path))
	assert.Equal(t, d.Orchestrator().Session(), other.Orchestrator().Session())

	assert.Error(t, other.ImportFile(filepath.Join(dir, "missing.json")))
}

func TestRun_StopsOnFailure(t *testing.T) {
	dir := t.TempDir()
	client := &phaseLLM{fail: errors.New("invalid request")}
	d, err := NewWithClient(Config{}, client)
	require.NoError(t, err)
	defer d.Close()

	ctx := context.Background()
	_, err = d.LoadFile(ctx, writeDocument(t, dir, 100), "")
	require.NoError(t, err)

	err = d.Run(ctx, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid request")
	// Non-transient errors are not retried.
	assert.Len(t, client.schemaNames(), 1)
	assert.Equal(t, orchestrator.PhaseIdle, d.Orchestrator().Phase())
}

func TestRun_Auto(t *testing.T) {
	dir := t.TempDir()
	d, err := NewWithClient(Config{AutoRunInterval: time.Millisecond}, &phaseLLM{})
	require.NoError(t, err)
	defer d.Close()

	ctx := context.Background()
	_, err = d.LoadFile(ctx, writeDocument(t, dir, 100), "")
	require.NoError(t, err)

	require.NoError(t, d.Run(ctx, true))
	assert.Equal(t, orchestrator.PhaseIterativeAnalysisComplete, d.Orchestrator().Phase())
}

func TestNew_SelectsProvider(t *testing.T) {
	d, err := New(Config{Provider: ProviderOllama})
	require.NoError(t, err)
	defer d.Close()
	_, ok := d.GetLLM().(*llm.OllamaClient)
	assert.True(t, ok)

	d2, err := New(Config{APIKey: "k", Model: "gpt-4.1"})
	require.NoError(t, err)
	defer d2.Close()
	c, ok := d2.GetLLM().(*llm.OpenAILLM)
	require.True(t, ok)
	assert.Equal(t, "gpt-4.1", c.Model)

	_, err = New(Config{Provider: "gemini"})
	assert.Error(t, err)
}
