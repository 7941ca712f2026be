package cmd

import (
	"cmp"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/dan-solli/dialectic/pkg/trace"
)

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Inspect step trace files",
}

var traceSummaryCmd = &cobra.Command{
	Use:         "summary <trace.jsonl>",
	Short:       "Summarize a step trace file by operation",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{skipApp: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := trace.ReadFile(args[0])
		if err != nil {
			return err
		}
		printTraceSummary(cmd.OutOrStdout(), summarizeTraces(records))
		return nil
	},
}

// opStats aggregates the trace records of one operation.
type opStats struct {
	Operation string
	Count     int
	Errors    int
	Discarded int
	TotalMs   int64
	MaxMs     int64
	ErrTypes  map[string]int
}

func (s opStats) AvgMs() int64 {
	if s.Count == 0 {
		return 0
	}
	return s.TotalMs / int64(s.Count)
}

func summarizeTraces(records []trace.TraceRecord) []opStats {
	byOp := make(map[string]*opStats)
	for _, r := range records {
		s, ok := byOp[r.Operation]
		if !ok {
			s = &opStats{Operation: r.Operation, ErrTypes: make(map[string]int)}
			byOp[r.Operation] = s
		}
		s.Count++
		s.TotalMs += r.DurationMs
		s.MaxMs = max(s.MaxMs, r.DurationMs)
		switch r.Status {
		case "error":
			s.Errors++
			s.ErrTypes[r.ErrorType]++
		case "discarded":
			s.Discarded++
		}
	}

	out := make([]opStats, 0, len(byOp))
	for _, s := range byOp {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b opStats) int {
		return cmp.Compare(a.Operation, b.Operation)
	})
	return out
}

func printTraceSummary(w io.Writer, stats []opStats) {
	fmt.Fprintf(w, "%-16s %6s %6s %9s %9s %9s\n", "OPERATION", "COUNT", "ERRORS", "DISCARDED", "AVG_MS", "MAX_MS")
	for _, s := range stats {
		fmt.Fprintf(w, "%-16s %6d %6d %9d %9d %9d\n", s.Operation, s.Count, s.Errors, s.Discarded, s.AvgMs(), s.MaxMs)
		for _, t := range slices.Sorted(maps.Keys(s.ErrTypes)) {
			fmt.Fprintf(w, "  %-14s %6d\n", t, s.ErrTypes[t])
		}
	}
}

func init() {
	rootCmd.AddCommand(traceCmd)
	traceCmd.AddCommand(traceSummaryCmd)
}
