package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dan-solli/dialectic/pkg/analysis"
	"github.com/dan-solli/dialectic/pkg/chunker"
	"github.com/dan-solli/dialectic/pkg/graph"
	"github.com/dan-solli/dialectic/pkg/ingest"
	"github.com/dan-solli/dialectic/pkg/knowledge"
	"github.com/dan-solli/dialectic/pkg/metrics"
	"github.com/dan-solli/dialectic/pkg/store"
)

var validate = validator.New()

// Export writes the session as indented JSON.
func (o *Orchestrator) Export(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(o.Session())
}

// Import replaces the session with one read from r. The file is validated
// completely before anything is replaced; on error the current session is
// left as it was and the error is an *ImportError.
//
// Files written by the browser tool are accepted: a missing graph is rebuilt
// from the analyses, missing counters are derived, and phases that were only
// held mid-call are mapped to the phase the workflow resumes from.
func (o *Orchestrator) Import(r io.Reader) error {
	var s Session
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return o.importFailed(&ImportError{Err: fmt.Errorf("decode: %w", err)})
	}
	return o.Restore(s)
}

// Restore replaces the session with s under the same rules as Import.
func (o *Orchestrator) Restore(s Session) error {
	st := newStepTrace(metrics.OpImport, o.now)

	next, err := o.prepare(s)
	if err != nil {
		return o.importFailed(err)
	}

	o.mu.Lock()
	o.epoch++
	o.sessionID = next.sessionID
	o.doc = next.doc
	o.chunks = next.chunks
	o.phase = next.phase
	o.axioms = next.axioms
	o.graph = next.graph
	o.global = next.global
	o.history = next.history
	o.chunkIndex = next.chunkIndex
	o.sinceConsolidation = next.sinceConsolidation
	o.lastErr = nil
	o.mu.Unlock()

	ctx := context.Background()
	o.halt()
	o.updateGauges(ctx)

	rec := st.record(next.sessionID, "success", nil)
	o.metrics.RecordOperation(ctx, metrics.OpImport, "success", rec.DurationMs)
	o.export(ctx, rec)

	o.logger.Info("session imported",
		"session_id", next.sessionID,
		"file", next.doc.FileName,
		"phase", next.phase,
		"chunk", next.chunkIndex,
		"chunks", len(next.chunks),
		"axioms", next.axioms.Len())
	return nil
}

// restored is a fully validated session waiting to be swapped in.
type restored struct {
	sessionID          string
	doc                ingest.Document
	chunks             []chunker.Chunk
	phase              Phase
	axioms             *knowledge.Store
	graph              *graph.Store
	global             *analysis.Result
	history            []*analysis.Result
	chunkIndex         int
	sinceConsolidation int
}

func (o *Orchestrator) prepare(s Session) (*restored, error) {
	if err := validate.Struct(&s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, importErrorf("field %s failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return nil, &ImportError{Err: err}
	}
	if !s.Phase.Valid() && s.Phase != phaseAutoIterating {
		return nil, importErrorf("unknown phase %q", s.Phase)
	}

	phase := normalizePhase(s.Phase)
	if phase != PhaseIdle && s.FileContent == "" {
		return nil, importErrorf("phase %s requires document text", phase)
	}
	if phase != PhaseIdle && s.GlobalAnalysis == nil {
		return nil, importErrorf("phase %s requires a global analysis", phase)
	}

	chunks := o.chunker.Chunk(s.FileContent)
	if s.CurrentChunkIdx > len(chunks) {
		return nil, importErrorf("chunk index %d out of range, document has %d chunks", s.CurrentChunkIdx, len(chunks))
	}

	axioms := knowledge.NewStore()
	if err := axioms.Restore(s.Axioms, s.NextAxiomID); err != nil {
		return nil, &ImportError{Err: err}
	}

	var g *graph.Store
	if s.GraphData != nil {
		g = graph.NewStore()
		g.Restore(*s.GraphData)
	} else {
		g = rebuildGraph(s.GlobalAnalysis, s.AnalysisHistory)
	}

	history := make([]*analysis.Result, len(s.AnalysisHistory))
	for i, h := range s.AnalysisHistory {
		history[i] = h.Clone()
	}

	sessionID := s.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	return &restored{
		sessionID:          sessionID,
		doc:                ingest.Document{FileName: s.FileName, Content: s.FileContent},
		chunks:             chunks,
		phase:              phase,
		axioms:             axioms,
		graph:              g,
		global:             s.GlobalAnalysis.Clone(),
		history:            history,
		chunkIndex:         s.CurrentChunkIdx,
		sinceConsolidation: s.ChunksSinceConsolidation,
	}, nil
}

func (o *Orchestrator) importFailed(err error) error {
	ctx := context.Background()
	o.logger.Warn("session import failed", "error", err)
	o.metrics.RecordOperation(ctx, metrics.OpImport, "error", 0)
	o.metrics.RecordError(ctx, metrics.OpImport, ErrTypeImport)

	o.mu.Lock()
	o.lastErr = err
	o.mu.Unlock()
	return err
}

// checkpoint saves the session to the configured store. Failures are logged
// and counted but never fail the step.
func (o *Orchestrator) checkpoint(ctx context.Context, st *stepTrace) {
	if o.checkpoints == nil {
		return
	}

	var span *spanTimer
	if st != nil {
		span = st.span(stageCheckpoint)
	}
	err := o.saveCheckpoint(ctx)
	if span != nil {
		span.finish(err, nil)
	}
	if err != nil {
		o.logger.Warn("checkpoint failed", "session_id", o.SessionID(), "error", err)
		o.metrics.RecordError(ctx, metrics.OpCheckpoint, ClassifyError(err))
	}
}

func (o *Orchestrator) saveCheckpoint(ctx context.Context) error {
	sess := o.Session()
	if sess.SessionID == "" {
		return nil
	}
	summary := o.Summary()

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	return o.checkpoints.SaveSession(ctx, &store.Session{
		ID:           sess.SessionID,
		FileName:     sess.FileName,
		DocumentHash: ingest.Hash(sess.FileContent),
		Phase:        string(sess.Phase),
		ChunkIndex:   summary.ChunkIndex,
		ChunkCount:   summary.ChunkCount,
		AxiomCount:   summary.AxiomCount(),
		LastError:    summary.LastError,
		Data:         data,
	})
}
