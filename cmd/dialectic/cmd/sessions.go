package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage checkpointed sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List checkpointed sessions, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := app.Store().ListSessions(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, s := range sessions {
			fmt.Fprintf(out, "%s  %s  %-26s %3d/%-3d %4d axioms  %s\n",
				s.ID,
				s.UpdatedAt.Local().Format("2006-01-02 15:04"),
				s.Phase,
				s.ChunkIndex, s.ChunkCount,
				s.AxiomCount,
				s.FileName)
			if s.LastError != "" {
				fmt.Fprintf(out, "    error: %s\n", s.LastError)
			}
		}
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a checkpointed session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.Store().DeleteSession(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}
