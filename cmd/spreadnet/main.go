package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"spreadnet/internal/config"
	"spreadnet/internal/logging"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string
	timeout    time.Duration

	logger *zap.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "spreadnet",
	Short: "spreadnet - queued spreading-activation inference",
	Long: `spreadnet tokenizes text into token activations and lets activation
spread through a neural model. Linking, propagation and field updates run as
steps of a deterministic per-document queue.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ws, err := resolveWorkspace()
		if err != nil {
			return err
		}
		path := configPath
		if path == "" {
			path = filepath.Join(ws, ".spreadnet", "config.yaml")
		}
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
		if cfg.Storage.Path != "" && !filepath.IsAbs(cfg.Storage.Path) {
			cfg.Storage.Path = filepath.Join(ws, cfg.Storage.Path)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", path, err)
		}
		if err := logging.Initialize(ws, cfg.Logging.Options()); err != nil {
			return err
		}
		logger.Debug("configuration loaded",
			zap.String("path", path),
			zap.String("backend", cfg.Storage.Backend),
			zap.Int("workers", cfg.Processor.Workers))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run [text]",
	Short: "Process one text and print its activations and links",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runText,
}

var traceCmd = &cobra.Command{
	Use:   "trace [text]",
	Short: "Process one text and print the derived trace facts",
	Long: `Records every queue and element event of the thought as Mangle facts,
evaluates the trace rules and prints the linked/reaches closure and any step
that was processed twice.`,
	Args: cobra.MinimumNArgs(1),
	RunE: traceText,
}

var batchCmd = &cobra.Command{
	Use:   "batch [files...]",
	Short: "Process files concurrently over one shared model",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBatch,
}

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Process text files as they appear in a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect suspension storage",
}

var storeIndexCmd = &cobra.Command{
	Use:   "index [dir]",
	Short: "Print the labels and entries of a file store index",
	Args:  cobra.ExactArgs(1),
	RunE:  storeIndex,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: detected root)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: <workspace>/.spreadnet/config.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")

	storeCmd.AddCommand(storeIndexCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(storeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveWorkspace() (string, error) {
	if workspace != "" {
		return filepath.Abs(workspace)
	}
	return config.FindWorkspaceRoot()
}
