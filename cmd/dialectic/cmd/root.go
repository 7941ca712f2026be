package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dan-solli/dialectic/pkg/dialectic"
)

// skipApp marks commands that work without an engine instance.
const skipApp = "skip-app"

var (
	configPath  string
	dbPath      string
	tracePath   string
	provider    string
	model       string
	baseURL     string
	chunkSize   int
	metricsAddr string
	verbose     bool
	jsonLogs    bool

	app *dialectic.Dialectic
)

var rootCmd = &cobra.Command{
	Use:   "dialectic",
	Short: "Hermeneutic analysis of text documents",
	Long: `dialectic reads a document the way the hermeneutic circle does: one
global reading of the whole, then chunk-by-chunk readings of the parts, with
periodic reflection passes where the parts reshape the whole.

Every step is checkpointed, so an interrupted analysis can be resumed by
session ID.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Annotations[skipApp] != "" {
			return nil
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		app, err = dialectic.New(cfg)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app == nil {
			return nil
		}
		return app.Close()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	flags.StringVar(&dbPath, "db", "", "checkpoint database (default ~/.dialectic/sessions.db)")
	flags.StringVar(&tracePath, "trace", "", "append step traces to this JSON Lines file")
	flags.StringVar(&provider, "provider", "", "LLM provider: openai or ollama")
	flags.StringVar(&model, "model", "", "LLM model name")
	flags.StringVar(&baseURL, "base-url", "", "LLM API base URL")
	flags.IntVar(&chunkSize, "chunk-size", 0, "chunk size in characters")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log debug output")
	flags.BoolVar(&jsonLogs, "json-logs", false, "log as JSON instead of text")
}

// loadConfig reads the config file, then applies flags that were set.
func loadConfig(cmd *cobra.Command) (dialectic.Config, error) {
	var cfg dialectic.Config
	if configPath != "" {
		var err error
		if cfg, err = dialectic.LoadConfig(configPath); err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DBPath = dbPath
	}
	if flags.Changed("trace") {
		cfg.TracePath = tracePath
	}
	if flags.Changed("provider") {
		cfg.Provider = provider
	}
	if flags.Changed("model") {
		cfg.Model = model
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = baseURL
	}
	if flags.Changed("chunk-size") {
		cfg.ChunkSize = chunkSize
	}
	if metricsAddr != "" {
		cfg.MetricsEnabled = true
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath()
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if jsonLogs {
		cfg.Logger = slog.New(slog.NewJSONHandler(os.Stderr, opts))
	} else {
		cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, opts))
	}

	return cfg, nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".dialectic", "sessions.db")
	}
	return filepath.Join(home, ".dialectic", "sessions.db")
}
