package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dan-solli/dialectic/pkg/orchestrator"
)

var (
	imagePath  string
	auto       bool
	exportPath string
)

var runCmd = &cobra.Command{
	Use:   "run <document>",
	Short: "Analyze a document from the beginning",
	Long: `Analyze a UTF-8 text document: a global analysis of the whole, then every
chunk in order with a reflection pass every few chunks.

Examples:
  dialectic run logic.txt
  dialectic run logic.txt --image diagram.png --auto
  dialectic run logic.txt --export logic-session.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		previous, err := app.LoadFile(ctx, args[0], imagePath)
		if err != nil {
			return err
		}
		if previous != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "note: this text was already analyzed in session %s\n", previous)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "session %s\n", app.Orchestrator().SessionID())

		return execute(ctx, cmd)
	},
}

func init() {
	runCmd.Flags().StringVar(&imagePath, "image", "", "image to attach to the global analysis")
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

// addRunFlags registers the flags shared by commands that advance a session.
func addRunFlags(c *cobra.Command) {
	c.Flags().BoolVar(&auto, "auto", false, "pace steps with the auto-run interval")
	c.Flags().StringVar(&exportPath, "export", "", "write the session to this JSON file when done")
}

// execute advances the loaded session to completion, serving metrics while
// it runs. The summary is printed and the export written even on failure.
func execute(ctx context.Context, cmd *cobra.Command) error {
	g, gctx := errgroup.WithContext(ctx)

	var srv *http.Server
	if metricsAddr != "" && app.Metrics() != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(app.Metrics().Registry(), promhttp.HandlerOpts{}))
		srv = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		if srv != nil {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
		}
		return app.Run(gctx, auto)
	})

	err := g.Wait()

	printSummary(cmd.OutOrStdout(), app.Orchestrator().Summary())
	if exportPath != "" {
		if xerr := app.ExportFile(exportPath); xerr != nil {
			return errors.Join(err, xerr)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", exportPath)
	}
	return err
}

func printSummary(w io.Writer, s orchestrator.Summary) {
	fmt.Fprintf(w, "%-10s %s\n", "session", s.SessionID)
	fmt.Fprintf(w, "%-10s %s\n", "document", s.FileName)
	fmt.Fprintf(w, "%-10s %s\n", "phase", s.Phase)
	fmt.Fprintf(w, "%-10s %d/%d\n", "chunks", s.ChunkIndex, s.ChunkCount)
	fmt.Fprintf(w, "%-10s %d (%d active)\n", "axioms", s.AxiomCount(), s.ActiveAxiomCount())
	fmt.Fprintf(w, "%-10s %d nodes, %d links\n", "graph", s.GraphNodes, s.GraphLinks)
	if s.LastError != "" {
		fmt.Fprintf(w, "%-10s %s\n", "error", s.LastError)
	}
}
