// Package cli implements reviewctl, a command line front end that talks to a
// local engine without the HTTP service or its databases.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"chess_review/internal/bootstrap"
	"chess_review/internal/usecase/analysis"
)

var (
	configPath string
	forceJSON  bool
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "reviewctl",
	Short:         "Analyze positions and review games with a local UCI engine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".env", "env-style configuration file")
	rootCmd.PersistentFlags().BoolVar(&forceJSON, "json", false, "always print JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// jsonOutput reports whether results should be printed as JSON: when asked
// to, or when stdout is not a terminal.
func jsonOutput(w io.Writer) bool {
	if forceJSON {
		return true
	}
	f, ok := w.(*os.File)
	if !ok {
		return true
	}
	return !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// engineSession runs fn against a freshly started local engine and tears the
// engine down afterwards.
func engineSession(ctx context.Context, fn func(ctx context.Context, uc *analysis.AnalysisUseCase, log *zap.SugaredLogger) error) error {
	cfg, err := bootstrap.Setup(configPath)
	if err != nil {
		return err
	}
	log := bootstrap.NewLogger(logLevel)
	defer log.Sync()

	client, sched := bootstrap.NewLocalEngine(cfg, log)
	uc := analysis.NewAnalysisUseCase(sched, nil, cfg.DefaultDepth, log)

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_ = sched.Run(gctx)
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return fn(gctx, uc, log)
	})
	err = g.Wait()

	closeErr := client.Close(context.Background())
	if err != nil {
		return err
	}
	return closeErr
}
