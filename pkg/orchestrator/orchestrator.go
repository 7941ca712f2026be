// Package orchestrator drives the analysis workflow: one global analysis,
// then chunk-by-chunk iterative analysis with periodic consolidation, merging
// every result into the knowledge base and concept graph.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/dan-solli/dialectic/pkg/analysis"
	"github.com/dan-solli/dialectic/pkg/chunker"
	"github.com/dan-solli/dialectic/pkg/graph"
	"github.com/dan-solli/dialectic/pkg/ingest"
	"github.com/dan-solli/dialectic/pkg/knowledge"
	"github.com/dan-solli/dialectic/pkg/metrics"
	"github.com/dan-solli/dialectic/pkg/store"
	"github.com/dan-solli/dialectic/pkg/trace"
)

const (
	// DefaultConsolidationInterval is the number of successful chunk
	// analyses between consolidation passes.
	DefaultConsolidationInterval = 3

	// LabelGlobal tags history entries written by the global analysis.
	LabelGlobal = "Global"
	// LabelConsolidation tags history entries written by consolidation.
	LabelConsolidation = "Hermeneutic Reflection"
)

// Analyzer performs one analysis call. *analysis.Analyzer implements it.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error)
}

// Orchestrator owns the session state and runs the workflow.
//
// At most one step (Start, Advance, Consolidate) runs at a time; a concurrent
// request fails with ErrStepInProgress. The state mutex is never held across
// the LLM call, so Session, Phase, Reset and Import stay responsive while a
// step is waiting. A result whose session was reset or replaced in the
// meantime is discarded.
type Orchestrator struct {
	analyzer    Analyzer
	chunker     chunker.Chunker
	interval    int
	logger      *slog.Logger
	metrics     metrics.Collector
	tracer      trace.Exporter
	checkpoints store.SessionStore
	tracker     store.DocumentTracker
	now         func() time.Time

	step sync.Mutex

	mu                 sync.Mutex
	epoch              uint64
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
	lastErr            error

	hooksMu  sync.Mutex
	hooks    map[int]func()
	nextHook int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.chunker.Size = n
		}
	}
}

// WithConsolidationInterval sets how many chunk analyses run between
// consolidation passes.
func WithConsolidationInterval(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.interval = n
		}
	}
}

// WithLogger sets the structured logger. A nil logger disables logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(c metrics.Collector) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.metrics = c
		}
	}
}

// WithTraceExporter sets where step traces are written.
func WithTraceExporter(e trace.Exporter) Option {
	return func(o *Orchestrator) {
		if e != nil {
			o.tracer = e
		}
	}
}

// WithCheckpointer saves the session after every step.
func WithCheckpointer(s store.SessionStore) Option {
	return func(o *Orchestrator) {
		o.checkpoints = s
	}
}

// WithDocumentTracker records documents whose chunk loop completed.
func WithDocumentTracker(t store.DocumentTracker) Option {
	return func(o *Orchestrator) {
		o.tracker = t
	}
}

// WithClock replaces the clock used for traces.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates an idle orchestrator with an empty session.
func New(a Analyzer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		analyzer: a,
		chunker:  chunker.Chunker{Size: chunker.DefaultSize},
		interval: DefaultConsolidationInterval,
		logger:   slog.New(slog.DiscardHandler),
		metrics:  metrics.NewNoopCollector(),
		tracer:   trace.NewNoopExporter(),
		now:      time.Now,
		phase:    PhaseIdle,
		axioms:   knowledge.NewStore(),
		graph:    graph.NewStore(),
		hooks:    make(map[int]func()),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// LoadDocument clears the session and loads doc. The phase stays Idle until
// Start is called.
func (o *Orchestrator) LoadDocument(doc ingest.Document) {
	o.mu.Lock()
	o.resetLocked()
	o.sessionID = uuid.New().String()
	o.doc = doc
	o.chunks = o.chunker.Chunk(doc.Content)
	sessionID, chunks := o.sessionID, len(o.chunks)
	o.mu.Unlock()

	o.logger.Info("document loaded",
		"session_id", sessionID,
		"file", doc.FileName,
		"chars", utf8.RuneCountInString(doc.Content),
		"chunks", chunks,
		"image", doc.Image != nil)
	o.halt()
}

// Reset returns to Idle and clears every session field. A step still waiting
// on the LLM will have its result discarded.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.resetLocked()
	o.mu.Unlock()

	o.logger.Info("session reset")
	o.halt()
}

func (o *Orchestrator) resetLocked() {
	o.epoch++
	o.sessionID = ""
	o.doc = ingest.Document{}
	o.chunks = nil
	o.phase = PhaseIdle
	o.axioms = knowledge.NewStore()
	o.graph = graph.NewStore()
	o.global = nil
	o.history = nil
	o.chunkIndex = 0
	o.sinceConsolidation = 0
	o.lastErr = nil
}

// Start runs the global analysis over the whole document.
func (o *Orchestrator) Start(ctx context.Context) error {
	if !o.step.TryLock() {
		return ErrStepInProgress
	}
	defer o.step.Unlock()

	o.mu.Lock()
	if o.phase != PhaseIdle {
		phase := o.phase
		o.mu.Unlock()
		return fmt.Errorf("%w: start from %s", ErrInvalidPhase, phase)
	}
	if o.doc.Content == "" {
		o.mu.Unlock()
		return ErrNoDocument
	}
	o.phase = PhaseFileLoaded
	epoch, sessionID := o.epoch, o.sessionID
	req := analysis.Request{
		Phase: analysis.PhaseGlobal,
		Text:  o.doc.Content,
		Image: o.doc.Image,
	}
	o.mu.Unlock()

	st := newStepTrace(metrics.OpGlobalAnalysis, o.now)
	o.logger.Info("starting global analysis", "session_id", sessionID)

	res, err := o.call(ctx, st, req)

	o.mu.Lock()
	if o.epoch != epoch {
		o.mu.Unlock()
		return o.discard(ctx, st, sessionID)
	}
	if err != nil {
		err = fmt.Errorf("global analysis failed: %w", err)
		o.phase = PhaseIdle
		o.lastErr = err
		o.mu.Unlock()
		return o.fail(ctx, st, sessionID, err)
	}

	apply := st.span(stageApply)
	o.global = res.Clone()
	updated := o.axioms.ApplyUpdates(res.AxiomUpdates, LabelGlobal)
	created := o.axioms.ApplyProposals(res.ProposedAxioms, LabelGlobal)
	var stats graph.DeltaStats
	if res.GraphData != nil {
		stats = o.graph.Merge(*res.GraphData)
	}
	o.chunkIndex = 0
	o.sinceConsolidation = 0
	o.phase = PhaseGlobalAnalysisComplete
	o.mu.Unlock()
	apply.finish(nil, applyCounters(len(created), updated, stats))

	o.succeed(ctx, st, sessionID)
	return nil
}

// Advance performs the next step from GlobalAnalysisComplete: a consolidation
// if one is due, otherwise the next chunk, otherwise completion. From
// IterativeAnalysisComplete it reports StepComplete and does nothing.
func (o *Orchestrator) Advance(ctx context.Context) (StepKind, error) {
	if !o.step.TryLock() {
		return StepNone, ErrStepInProgress
	}
	defer o.step.Unlock()

	o.mu.Lock()
	phase := o.phase
	due := o.consolidationDueLocked()
	exhausted := o.chunkIndex >= len(o.chunks)
	o.mu.Unlock()

	switch {
	case phase == PhaseIterativeAnalysisComplete:
		return StepComplete, nil
	case phase != PhaseGlobalAnalysisComplete:
		return StepNone, fmt.Errorf("%w: advance from %s", ErrInvalidPhase, phase)
	case due:
		return StepConsolidation, o.consolidate(ctx)
	case exhausted:
		return StepComplete, o.finishChunks(ctx)
	default:
		return StepChunk, o.analyzeNextChunk(ctx)
	}
}

// Consolidate runs a consolidation pass now, regardless of the interval.
func (o *Orchestrator) Consolidate(ctx context.Context) error {
	if !o.step.TryLock() {
		return ErrStepInProgress
	}
	defer o.step.Unlock()

	return o.consolidate(ctx)
}

// Step starts the analysis from Idle, and advances it otherwise.
func (o *Orchestrator) Step(ctx context.Context) (StepKind, error) {
	if o.Phase() == PhaseIdle {
		return StepGlobal, o.Start(ctx)
	}
	return o.Advance(ctx)
}

func (o *Orchestrator) consolidationDueLocked() bool {
	return o.sinceConsolidation > 0 && o.sinceConsolidation >= o.interval
}

func (o *Orchestrator) analyzeNextChunk(ctx context.Context) error {
	o.mu.Lock()
	if o.phase != PhaseGlobalAnalysisComplete || o.chunkIndex >= len(o.chunks) {
		phase := o.phase
		o.mu.Unlock()
		return fmt.Errorf("%w: analyze chunk from %s", ErrInvalidPhase, phase)
	}
	idx := o.chunkIndex
	label := fmt.Sprintf("Chunk %d/%d", idx+1, len(o.chunks))
	req := analysis.Request{
		Phase:      analysis.PhaseIterative,
		Text:       o.chunks[idx].Text,
		Axioms:     o.axioms.ListAll(),
		Global:     o.global.Clone(),
		ChunkLabel: label,
	}
	if n := len(o.history); n > 0 {
		req.Previous = o.history[n-1].Clone()
	}
	o.phase = PhaseIterativeAnalysis
	epoch, sessionID := o.epoch, o.sessionID
	o.mu.Unlock()

	st := newStepTrace(metrics.OpChunkAnalysis, o.now)
	st.ids["chunkIndex"] = idx
	o.logger.Info("analyzing chunk", "session_id", sessionID, "chunk", label)

	res, err := o.call(ctx, st, req)

	o.mu.Lock()
	if o.epoch != epoch {
		o.mu.Unlock()
		return o.discard(ctx, st, sessionID)
	}
	if err != nil {
		err = fmt.Errorf("iterative analysis for %s failed: %w", label, err)
		o.phase = PhaseGlobalAnalysisComplete
		o.lastErr = err
		o.mu.Unlock()
		return o.fail(ctx, st, sessionID, err)
	}

	apply := st.span(stageApply)
	o.history = append(o.history, res.Clone())
	updated := o.axioms.ApplyUpdates(res.AxiomUpdates, label)
	created := o.axioms.ApplyProposals(res.ProposedAxioms, label)
	var stats graph.DeltaStats
	if res.GraphUpdate != nil {
		stats = o.graph.ApplyDelta(*res.GraphUpdate)
	}
	o.chunkIndex++
	o.sinceConsolidation++

	// A due consolidation still runs before the loop is declared complete.
	finished := o.chunkIndex >= len(o.chunks) && !o.consolidationDueLocked()
	if finished {
		o.phase = PhaseIterativeAnalysisComplete
	} else {
		o.phase = PhaseGlobalAnalysisComplete
	}
	o.mu.Unlock()
	apply.finish(nil, applyCounters(len(created), updated, stats))

	o.succeed(ctx, st, sessionID)
	if finished {
		o.complete(ctx)
	}
	return nil
}

func (o *Orchestrator) consolidate(ctx context.Context) error {
	o.mu.Lock()
	if o.phase != PhaseGlobalAnalysisComplete || o.global == nil {
		phase := o.phase
		o.mu.Unlock()
		return fmt.Errorf("%w: consolidate from %s", ErrInvalidPhase, phase)
	}
	req := analysis.Request{
		Phase:  analysis.PhaseConsolidation,
		Axioms: o.axioms.ListAll(),
		Global: o.global.Clone(),
	}
	o.phase = PhaseConsolidating
	epoch, sessionID := o.epoch, o.sessionID
	o.mu.Unlock()

	st := newStepTrace(metrics.OpConsolidation, o.now)
	o.logger.Info("starting consolidation", "session_id", sessionID, "axioms", len(req.Axioms))

	res, err := o.call(ctx, st, req)

	o.mu.Lock()
	if o.epoch != epoch {
		o.mu.Unlock()
		return o.discard(ctx, st, sessionID)
	}
	if err != nil {
		err = fmt.Errorf("consolidation failed: %w", err)
		o.phase = PhaseGlobalAnalysisComplete
		o.sinceConsolidation = 0
		o.lastErr = err
		o.mu.Unlock()
		return o.fail(ctx, st, sessionID, err)
	}

	apply := st.span(stageApply)
	updated := o.axioms.ApplyUpdates(res.AxiomUpdates, LabelConsolidation)
	created := o.axioms.ApplyProposals(res.ProposedAxioms, LabelConsolidation)

	// Field merge: the whole keeps anything the response does not refine.
	if len(res.UpdatedGlobalConcepts) > 0 {
		o.global.KeyConcepts = append([]string{}, res.UpdatedGlobalConcepts...)
	}
	var stats graph.DeltaStats
	if !res.UpdatedGraphData.Empty() {
		refined := res.Clone().UpdatedGraphData
		o.global.GraphData = refined
		stats = o.graph.Merge(*refined)
	}
	o.sinceConsolidation = 0
	o.phase = PhaseGlobalAnalysisComplete
	o.mu.Unlock()
	apply.finish(nil, applyCounters(len(created), updated, stats))

	o.succeed(ctx, st, sessionID)
	return nil
}

// finishChunks moves a session with no chunks left to IterativeAnalysisComplete.
func (o *Orchestrator) finishChunks(ctx context.Context) error {
	o.mu.Lock()
	if o.phase != PhaseGlobalAnalysisComplete {
		phase := o.phase
		o.mu.Unlock()
		return fmt.Errorf("%w: complete from %s", ErrInvalidPhase, phase)
	}
	o.phase = PhaseIterativeAnalysisComplete
	o.mu.Unlock()

	o.checkpoint(ctx, nil)
	o.complete(ctx)
	return nil
}

// call runs the analysis inside an "llm" span.
func (o *Orchestrator) call(ctx context.Context, st *stepTrace, req analysis.Request) (*analysis.Result, error) {
	span := st.span(stageLLM)
	res, err := o.analyzer.Analyze(ctx, req)
	span.finish(err, nil)
	return res, err
}

func applyCounters(created, updated int, stats graph.DeltaStats) map[string]int64 {
	return map[string]int64{
		"axiomsCreated": int64(created),
		"axiomsUpdated": int64(updated),
		"nodesAdded":    int64(stats.NodesAdded),
		"nodesRemoved":  int64(stats.NodesRemoved),
		"linksAdded":    int64(stats.LinksAdded),
	}
}

// succeed finishes a committed step: checkpoint, gauges, metrics and trace.
func (o *Orchestrator) succeed(ctx context.Context, st *stepTrace, sessionID string) {
	o.checkpoint(ctx, st)
	o.updateGauges(ctx)

	rec := st.record(sessionID, "success", nil)
	o.metrics.RecordOperation(ctx, st.operation, "success", rec.DurationMs)
	for _, span := range rec.Spans {
		o.metrics.RecordStage(ctx, st.operation, span.Name, span.DurationMs)
	}
	o.export(ctx, rec)

	o.logger.Info("step complete",
		"session_id", sessionID,
		"operation", st.operation,
		"duration_ms", rec.DurationMs,
		"phase", o.Phase())
}

// fail finishes a failed step and halts any auto-run. Returns err.
func (o *Orchestrator) fail(ctx context.Context, st *stepTrace, sessionID string, err error) error {
	errType := ClassifyError(err)
	o.logger.Error("step failed",
		"session_id", sessionID,
		"operation", st.operation,
		"error_type", errType,
		"error", err)

	o.checkpoint(ctx, st)

	rec := st.record(sessionID, "error", err)
	o.metrics.RecordOperation(ctx, st.operation, "error", rec.DurationMs)
	o.metrics.RecordError(ctx, st.operation, errType)
	o.export(ctx, rec)

	o.halt()
	return err
}

// discard drops the result of a step whose session is gone.
func (o *Orchestrator) discard(ctx context.Context, st *stepTrace, sessionID string) error {
	o.logger.Warn("discarding step result, session was reset", "session_id", sessionID, "operation", st.operation)
	o.export(ctx, st.record(sessionID, "discarded", ErrSessionReset))
	return ErrSessionReset
}

// complete records the finished chunk loop and halts any auto-run.
func (o *Orchestrator) complete(ctx context.Context) {
	o.mu.Lock()
	sessionID, doc, chunks := o.sessionID, o.doc, len(o.chunks)
	o.mu.Unlock()

	o.logger.Info("analysis complete", "session_id", sessionID, "file", doc.FileName, "chunks", chunks)

	if o.tracker != nil {
		if err := o.tracker.MarkDocumentProcessed(ctx, doc.Hash(), doc.FileName, sessionID, chunks); err != nil {
			o.logger.Warn("failed to record processed document", "session_id", sessionID, "error", err)
		}
	}
	o.halt()
}

func (o *Orchestrator) export(ctx context.Context, rec *trace.TraceRecord) {
	if err := o.tracer.Export(ctx, rec); err != nil {
		o.logger.Warn("failed to export trace", "operation", rec.Operation, "error", err)
	}
}

func (o *Orchestrator) updateGauges(ctx context.Context) {
	s := o.Summary()
	o.metrics.SetStorageCount(ctx, metrics.StorageAxioms, int64(s.AxiomCount()))
	o.metrics.SetStorageCount(ctx, metrics.StorageActiveAxioms, int64(s.ActiveAxiomCount()))
	o.metrics.SetStorageCount(ctx, metrics.StorageGraphNodes, int64(s.GraphNodes))
	o.metrics.SetStorageCount(ctx, metrics.StorageGraphLinks, int64(s.GraphLinks))
	o.metrics.SetStorageCount(ctx, metrics.StorageChunksLeft, int64(s.ChunkCount-s.ChunkIndex))
}

// OnHalt registers fn to run whenever auto-run must stop: on a failed step,
// on completion, and on Reset, LoadDocument or Import. The returned function
// unregisters it.
func (o *Orchestrator) OnHalt(fn func()) (unregister func()) {
	o.hooksMu.Lock()
	id := o.nextHook
	o.nextHook++
	o.hooks[id] = fn
	o.hooksMu.Unlock()

	return func() {
		o.hooksMu.Lock()
		delete(o.hooks, id)
		o.hooksMu.Unlock()
	}
}

func (o *Orchestrator) halt() {
	o.hooksMu.Lock()
	hooks := make([]func(), 0, len(o.hooks))
	for _, fn := range o.hooks {
		hooks = append(hooks, fn)
	}
	o.hooksMu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

// Phase returns the current phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// LastError returns the most recent failure until it is cleared or
// superseded.
func (o *Orchestrator) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// ClearError dismisses the last error.
func (o *Orchestrator) ClearError() {
	o.mu.Lock()
	o.lastErr = nil
	o.mu.Unlock()
}

// SessionID returns the identifier of the current session, or "" when no
// document is loaded.
func (o *Orchestrator) SessionID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessionID
}

// Session returns a deep copy of the session state.
func (o *Orchestrator) Session() Session {
	o.mu.Lock()
	defer o.mu.Unlock()

	axioms := o.axioms.ListAll()
	if axioms == nil {
		axioms = []knowledge.Axiom{}
	}
	history := make([]*analysis.Result, len(o.history))
	for i, h := range o.history {
		history[i] = h.Clone()
	}
	g := o.graph.Snapshot()

	return Session{
		SessionID:                o.sessionID,
		FileContent:              o.doc.Content,
		FileName:                 o.doc.FileName,
		Axioms:                   axioms,
		GlobalAnalysis:           o.global.Clone(),
		AnalysisHistory:          history,
		CurrentChunkIdx:          o.chunkIndex,
		Phase:                    o.phase,
		GraphData:                &g,
		ChunksSinceConsolidation: o.sinceConsolidation,
		NextAxiomID:              o.axioms.NextID(),
	}
}

// Summary returns counts describing the session without its content.
func (o *Orchestrator) Summary() Summary {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := Summary{
		SessionID:                o.sessionID,
		FileName:                 o.doc.FileName,
		Phase:                    o.phase,
		ChunkIndex:               o.chunkIndex,
		ChunkCount:               len(o.chunks),
		ChunksSinceConsolidation: o.sinceConsolidation,
		Axioms:                   o.axioms.Counts(),
		GraphNodes:               o.graph.NodeCount(),
		GraphLinks:               o.graph.LinkCount(),
	}
	if o.lastErr != nil {
		s.LastError = o.lastErr.Error()
	}
	return s
}

// ActiveAxioms returns the non-stale axioms in creation order.
func (o *Orchestrator) ActiveAxioms() []knowledge.Axiom {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.axioms.ListActive()
}
