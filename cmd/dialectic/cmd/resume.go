package cmd

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var importPath string

var resumeCmd = &cobra.Command{
	Use:   "resume [session-id]",
	Short: "Continue a checkpointed or exported session",
	Long: `Continue an analysis from its last checkpoint, or from a session file
written by --export or by the browser tool.

Examples:
  dialectic resume 5f0c1e9a-...
  dialectic resume --from logic-session.json --auto`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		switch {
		case importPath != "":
			if err := app.ImportFile(importPath); err != nil {
				return err
			}
		case len(args) == 1:
			if err := app.Resume(ctx, args[0]); err != nil {
				return err
			}
		default:
			return errors.New("a session ID or --from is required")
		}

		return execute(ctx, cmd)
	},
}

func init() {
	resumeCmd.Flags().StringVar(&importPath, "from", "", "session JSON file to import")
	addRunFlags(resumeCmd)
	rootCmd.AddCommand(resumeCmd)
}
