package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"spreadnet/internal/engine"
	"spreadnet/internal/store"
)

func joinArgs(args []string) string {
	return strings.Join(args, " ")
}

// processText runs one text through a fresh processor over the configured model.
func processText(cmd *cobra.Command, text string, opts ...engine.Option) (res *engine.Result, err error) {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	m, closeModel, err := openModel()
	if err != nil {
		return nil, err
	}
	defer func() { err = multierr.Append(err, closeModel()) }()

	p := engine.NewProcessor(m, cfg, opts...)
	logger.Info("processing text", zap.Int("bytes", len(text)))
	return p.Process(ctx, engine.Document{Name: "input", Text: text})
}

func runText(cmd *cobra.Command, args []string) error {
	res, err := processText(cmd, joinArgs(args))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderResult(res))
	return nil
}

func traceText(cmd *cobra.Command, args []string) error {
	res, err := processText(cmd, joinArgs(args), engine.WithTracing())
	if err != nil {
		return err
	}
	out, err := renderTrace(res.Trace)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderSummary(res))
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

func runBatch(cmd *cobra.Command, args []string) (err error) {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	docs, err := engine.ReadDocuments(args)
	if err != nil {
		return err
	}
	m, closeModel, err := openModel()
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeModel()) }()

	batch, err := engine.NewProcessor(m, cfg).ProcessAll(ctx, docs)
	if err != nil {
		return err
	}
	logger.Info("batch complete",
		zap.String("batch", batch.ID),
		zap.Int("documents", len(batch.Results)),
		zap.Duration("duration", batch.Duration))
	fmt.Fprint(cmd.OutOrStdout(), renderBatch(batch))
	return nil
}

func runWatch(cmd *cobra.Command, args []string) (err error) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, closeModel, err := openModel()
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeModel()) }()

	out := cmd.OutOrStdout()
	w, err := engine.NewWatcher(args[0], engine.NewProcessor(m, cfg), func(path string, res *engine.Result, err error) {
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("%s: %v", path, err)))
			return
		}
		fmt.Fprintln(out, renderSummary(res))
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return err
	}
	fmt.Fprintf(out, "watching %s (ctrl-c to stop)\n", args[0])

	<-ctx.Done()
	w.Stop()
	stats := w.Stats()
	logger.Info("watcher stopped", zap.Int("processed", stats.Processed), zap.Int("errors", stats.Errors))
	return nil
}

func storeIndex(cmd *cobra.Command, args []string) error {
	idx, err := store.ReadIndexFile(args[0])
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), renderIndex(idx))
	return nil
}
