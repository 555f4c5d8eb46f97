package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	coreapp "structmap/internal/core/app"
	"structmap/internal/core/errors"
	"structmap/internal/data/history"
	"structmap/internal/shared/observability"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func runBuild(cmd *cobra.Command, opts *options) error {
	closeLog := configureLogging(opts.ui, opts.verbose)
	defer closeLog()

	cfg, err := resolveConfig(cmd.Flags(), opts)
	if err != nil {
		return err
	}
	if opts.ui {
		cfg.Watch.Enabled = true
	}
	serve := cfg.Output.File == "" && cfg.Preview.IsEnabled()
	if cfg.Output.File == "" && !serve && !cfg.Watch.Enabled {
		return errors.New(errors.CodeValidationError, "preview is disabled; set --outFile to keep the structure map")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:  cfg.Observability.EnableTracing,
		Endpoint: cfg.Observability.OTLPEndpoint,
		Insecure: cfg.Observability.OTLPInsecure,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	a, err := coreapp.New(cfg)
	if err != nil {
		return err
	}

	store, err := a.OpenHistory()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	out := cmd.OutOrStdout()
	pg := newProgress(out)

	var res *coreapp.Result
	if err := pg.step("Building structure map", func() error {
		var berr error
		res, berr = a.Build(ctx)
		return berr
	}); err != nil {
		return err
	}

	jsonPath := cfg.Output.File
	if jsonPath == "" {
		tmp, cleanup, err := coreapp.TempOutputPath()
		if err != nil {
			return err
		}
		defer cleanup()
		jsonPath = tmp
	}

	if err := pg.step("Exporting view model", func() error {
		_, werr := a.WriteOutputs(res, jsonPath)
		return werr
	}); err != nil {
		return err
	}
	recordBuild(store, res)
	printSummary(out, res, jsonPath)

	if !serve && !cfg.Watch.Enabled {
		return nil
	}

	if serve {
		server := NewPreviewServer(cfg.Preview, cfg.Observability.MetricsPath, jsonPath, a)
		url, err := server.Start(ctx)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Stop(sctx); err != nil {
				slog.Warn("preview server shutdown failed", "error", err)
			}
		}()
		fmt.Fprintln(out, successStyle.Render("Preview available at "+url))
		if cfg.Preview.Open {
			if err := openBrowser(url); err != nil {
				slog.Warn("open browser failed", "url", url, "error", err)
			}
		}
	}

	var program *tea.Program
	if opts.ui {
		program = tea.NewProgram(initialModel(cfg.RootDir), tea.WithAltScreen(), tea.WithContext(ctx))
	}

	if cfg.Watch.Enabled {
		session, err := a.StartWatch(ctx, func(res *coreapp.Result, berr error) {
			if berr == nil {
				if _, werr := a.WriteOutputs(res, jsonPath); werr != nil {
					slog.Error("rewrite outputs failed", "error", werr)
					berr = werr
				} else {
					recordBuild(store, res)
				}
			}
			if program != nil {
				program.Send(newUpdateMsg(res, berr))
			} else if berr == nil {
				printSummary(out, res, jsonPath)
			}
		})
		if err != nil {
			return err
		}
		defer session.Close()
	}

	if program != nil {
		go program.Send(newUpdateMsg(res, nil))
		if _, err := program.Run(); err != nil && !stderrors.Is(err, tea.ErrProgramKilled) {
			return errors.Wrap(err, errors.CodeInternal, "run dashboard")
		}
		return nil
	}

	fmt.Fprintln(out, mutedStyle.Render("Press Ctrl+C to stop."))
	<-ctx.Done()
	return nil
}

func recordBuild(store *history.Store, res *coreapp.Result) {
	if store == nil || res == nil {
		return
	}
	if err := store.SaveBuild(coreapp.HistoryEntry(res)); err != nil {
		slog.Warn("record build history failed", "error", err, "run_id", res.RunID)
	}
}

func printSummary(w io.Writer, res *coreapp.Result, jsonPath string) {
	vm := res.ViewModel
	fmt.Fprintf(w, "%d modules in %d packages, %d files scanned\n", vm.Modules, vm.Packages, res.Files)
	if n := res.Summary.CycleCount(); n > 0 {
		fmt.Fprintln(w, failureStyle.Render(fmt.Sprintf("%d cyclic groups", n)))
	} else {
		fmt.Fprintln(w, successStyle.Render("no cyclic groups"))
	}
	if res.Tree != nil {
		if n := res.Tree.UnresolvedCount(); n > 0 {
			fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%d imports left unresolved", n)))
		}
	}
	fmt.Fprintln(w, mutedStyle.Render("structure map written to "+jsonPath))
}

// configureLogging installs the default slog handler. The dashboard owns the
// terminal, so in ui mode records go to a log file instead.
func configureLogging(uiMode, verbose bool) func() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	var output io.Writer = os.Stderr
	closeFn := func() {}
	if uiMode {
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else if fi, err := os.Lstat(logPath); err == nil && fi.Mode()&os.ModeSymlink != 0 {
			fmt.Fprintf(os.Stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
		} else if f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
		} else {
			output = f
			closeFn = func() { _ = f.Close() }
		}
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: level})))
	return closeFn
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "structmap", "structmap.log")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", "structmap", "structmap.log")
	}
	return filepath.Join(os.TempDir(), "structmap.log")
}
