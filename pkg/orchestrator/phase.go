package orchestrator

// Phase is the state of the analysis workflow.
type Phase string

const (
	// PhaseIdle is the initial state. A loaded document waits here for Start.
	PhaseIdle Phase = "Idle"
	// PhaseFileLoaded is held while the global analysis is in flight.
	PhaseFileLoaded Phase = "FileLoaded"
	// PhaseGlobalAnalysisComplete is the stable state between steps.
	PhaseGlobalAnalysisComplete Phase = "GlobalAnalysisComplete"
	// PhaseIterativeAnalysis is held while a chunk analysis is in flight.
	PhaseIterativeAnalysis Phase = "IterativeAnalysis"
	// PhaseIterativeAnalysisComplete is terminal for the chunk loop.
	PhaseIterativeAnalysisComplete Phase = "IterativeAnalysisComplete"
	// PhaseConsolidating is held while a consolidation is in flight.
	PhaseConsolidating Phase = "Consolidating"

	// phaseAutoIterating appears in sessions exported by older tools.
	phaseAutoIterating Phase = "AutoIterating"
)

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseIdle, PhaseFileLoaded, PhaseGlobalAnalysisComplete,
		PhaseIterativeAnalysis, PhaseIterativeAnalysisComplete, PhaseConsolidating:
		return true
	}
	return false
}

// InFlight reports whether p is only held while an LLM call is outstanding.
func (p Phase) InFlight() bool {
	return p == PhaseFileLoaded || p == PhaseIterativeAnalysis || p == PhaseConsolidating
}

// StepKind reports what a step did.
type StepKind int

const (
	// StepNone means no step ran.
	StepNone StepKind = iota
	// StepGlobal is a global analysis.
	StepGlobal
	// StepChunk is one chunk analysis.
	StepChunk
	// StepConsolidation is a hermeneutic reflection pass.
	StepConsolidation
	// StepComplete means the chunk loop has finished.
	StepComplete
)

func (k StepKind) String() string {
	switch k {
	case StepGlobal:
		return "global"
	case StepChunk:
		return "chunk"
	case StepConsolidation:
		return "consolidation"
	case StepComplete:
		return "complete"
	default:
		return "none"
	}
}
