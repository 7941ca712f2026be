package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dan-solli/dialectic/pkg/knowledge"
)

var (
	inspectAll  bool
	inspectJSON bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Show a checkpointed session",
	Long: `Show the state of a checkpointed session and its axioms.

Examples:
  dialectic inspect 5f0c1e9a-...
  dialectic inspect 5f0c1e9a-... --all
  dialectic inspect 5f0c1e9a-... --json > session.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.Resume(cmd.Context(), args[0]); err != nil {
			return err
		}
		o := app.Orchestrator()
		out := cmd.OutOrStdout()

		if inspectJSON {
			return o.Export(out)
		}

		printSummary(out, o.Summary())

		axioms := o.ActiveAxioms()
		if inspectAll {
			axioms = o.Session().Axioms
		}
		if len(axioms) == 0 {
			return nil
		}
		fmt.Fprintln(out)
		for _, a := range axioms {
			fmt.Fprintln(out, formatAxiom(a))
		}
		return nil
	},
}

func formatAxiom(a knowledge.Axiom) string {
	return fmt.Sprintf("%-5s %-10s [%s] => %s",
		a.ID, "("+string(a.Status)+")", strings.Join(a.Premises, ", "), a.Conclusion)
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectAll, "all", false, "include stale axioms")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "print the full session as JSON")
	rootCmd.AddCommand(inspectCmd)
}
