// Command reconcile diffs, applies and renders tree documents.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/vango-dev/reconciler/internal/config"
	"github.com/vango-dev/reconciler/internal/errors"
	"github.com/vango-dev/reconciler/pkg/reconcile"
	"github.com/vango-dev/reconciler/pkg/render"
	"github.com/vango-dev/reconciler/pkg/treedoc"
	"github.com/vango-dev/reconciler/pkg/vdom"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		errors.Print(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// app holds state shared by all commands, resolved from the global flags
// before any command runs.
type app struct {
	configPath string
	logLevel   string
	metrics    bool
	noColor    bool

	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	out      io.Writer
	errOut   io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Diff, apply and render virtual DOM trees",
		Long: `Reconcile compares virtual DOM trees described as YAML or JSON
documents and produces the minimal patch stream that turns one into
the other.

  • Positional diffing of elements, text, fragments and components
  • Patch application with verification
  • HTML rendering
  • Live reconciliation of a document as it is edited`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.dumpMetrics()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Config file (default: nearest reconcile.yaml)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.BoolVar(&a.metrics, "metrics", false, "Print Prometheus metrics when the command finishes")
	flags.BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		diffCmd(a),
		applyCmd(a),
		renderCmd(a),
		watchCmd(a),
		versionCmd(a),
	)
	return rootCmd
}

// load resolves configuration and the logger.
func (a *app) load(cmd *cobra.Command) error {
	a.out = cmd.OutOrStdout()
	a.errOut = cmd.ErrOrStderr()
	if a.noColor {
		errors.DisableColors()
	}

	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFile(a.configPath)
	} else {
		a.cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return err
	}

	if a.logLevel != "" {
		if _, ok := config.ParseLevel(a.logLevel); !ok {
			return errors.New("R051").
				WithDetail(fmt.Sprintf("--log-level is %q", a.logLevel)).
				WithSuggestion("Use one of debug, info, warn, error")
		}
		a.cfg.Log.Level = a.logLevel
	}
	if a.metrics {
		a.cfg.Metrics.Enabled = true
	}

	a.logger = a.cfg.Logger(a.errOut)
	return nil
}

// reconciler builds a Reconciler from the loaded configuration. Metrics go
// to a private registry that is printed after the command.
func (a *app) reconciler() *reconcile.Reconciler {
	opts := []reconcile.Option{
		reconcile.WithLogger(a.logger),
		reconcile.WithTracer(otel.Tracer(a.cfg.Tracing.TracerName)),
	}
	if a.cfg.Metrics.Enabled {
		if a.registry == nil {
			a.registry = prometheus.NewRegistry()
		}
		opts = append(opts, reconcile.WithMetrics(reconcile.NewMetrics(
			reconcile.WithNamespace(a.cfg.Metrics.Namespace),
			reconcile.WithRegistry(a.registry),
		)))
	}
	return reconcile.New(opts...)
}

// writeHTML renders tree to the command output. pretty overrides the
// configuration when set. Compact output gets a trailing newline.
func (a *app) writeHTML(tree vdom.Ref, pretty *bool) error {
	cfg := render.RendererConfig{
		Pretty: a.cfg.Render.Pretty,
		Indent: a.cfg.Render.Indent,
	}
	if pretty != nil {
		cfg.Pretty = *pretty
	}
	if err := render.NewRenderer(cfg).RenderToWriter(a.out, tree); err != nil {
		return errors.Classify(err)
	}
	if !cfg.Pretty {
		_, err := fmt.Fprintln(a.out)
		return err
	}
	return nil
}

func (a *app) dumpMetrics() error {
	if a.registry == nil {
		return nil
	}
	families, err := a.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(a.errOut, mf); err != nil {
			return err
		}
	}
	return nil
}

// loadTree reads a tree document, attaching the file to any error so it is
// reported with source context.
func loadTree(path string) (vdom.Ref, error) {
	arena, root, err := treedoc.Load(path)
	if err != nil {
		return vdom.Ref{}, errors.Classify(err).WithFile(path)
	}
	return arena.Ref(root), nil
}

// flagBool returns a pointer to v when the flag was set on the command line.
func flagBool(cmd *cobra.Command, name string, v bool) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

// success prints a success message.
func (a *app) success(format string, args ...any) {
	fmt.Fprintf(a.errOut, "%s %s\n", a.color("\033[32m", "✓"), fmt.Sprintf(format, args...))
}

// info prints an info message.
func (a *app) info(format string, args ...any) {
	fmt.Fprintf(a.errOut, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func (a *app) warn(format string, args ...any) {
	fmt.Fprintf(a.errOut, "%s %s\n", a.color("\033[33m", "⚠"), fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func (a *app) errorMsg(format string, args ...any) {
	fmt.Fprintf(a.errOut, "%s %s\n", a.color("\033[31m", "✗"), fmt.Sprintf(format, args...))
}

func (a *app) color(code, text string) string {
	if a.noColor {
		return text
	}
	return code + text + "\033[0m"
}
