package reconcile

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/reconciler/pkg/vdom"
)

// DefaultTracerName is the instrumentation name used when no tracer is
// configured.
const DefaultTracerName = "github.com/vango-dev/reconciler"

// Reconciler computes and applies patches with instrumentation. It holds no
// tree state and is safe for concurrent use; Apply still needs exclusive
// access to the arena it mutates.
type Reconciler struct {
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics sink. Default: none.
func WithMetrics(m *Metrics) Option {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// WithTracer sets the tracer. Default: the global provider's tracer named
// DefaultTracerName.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Reconciler) {
		r.tracer = tracer
	}
}

// New creates a Reconciler.
func New(opts ...Option) *Reconciler {
	r := &Reconciler{}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer(DefaultTracerName)
	}
	return r
}

// Logger returns the configured logger.
func (r *Reconciler) Logger() *slog.Logger {
	return r.logger
}

// Diff returns the patches that transform prev into next. See vdom.Diff.
func (r *Reconciler) Diff(ctx context.Context, prev, next vdom.Ref) []vdom.Patch {
	_, span := r.tracer.Start(ctx, "reconcile.diff", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	start := time.Now()
	patches := vdom.Diff(prev, next)
	elapsed := time.Since(start)

	r.metrics.observeDiff(elapsed, patches)
	span.SetAttributes(
		attribute.Int("reconcile.patch_count", len(patches)),
		attribute.Bool("reconcile.root_replaced", rootReplaced(patches)),
	)
	span.SetStatus(codes.Ok, "")

	r.logger.DebugContext(ctx, "diff",
		"patches", len(patches),
		"duration", elapsed,
	)
	return patches
}

// Apply applies patches to the tree rooted at root. See vdom.Apply.
func (r *Reconciler) Apply(ctx context.Context, a *vdom.Arena, root vdom.NodeID, patches []vdom.Patch) error {
	_, span := r.tracer.Start(ctx, "reconcile.apply",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int("reconcile.patch_count", len(patches))),
	)
	defer span.End()

	start := time.Now()
	err := vdom.Apply(a, root, patches)
	elapsed := time.Since(start)

	r.metrics.observeApply(elapsed, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.WarnContext(ctx, "apply failed",
			"patches", len(patches),
			"error", err,
		)
		return err
	}
	span.SetStatus(codes.Ok, "")

	r.logger.DebugContext(ctx, "apply",
		"patches", len(patches),
		"duration", elapsed,
	)
	return nil
}

// Reconcile diffs the tree at root in a against next and applies the
// result, returning the patches.
func (r *Reconciler) Reconcile(ctx context.Context, a *vdom.Arena, root vdom.NodeID, next vdom.Ref) ([]vdom.Patch, error) {
	ctx, span := r.tracer.Start(ctx, "reconcile")
	defer span.End()

	patches := r.Diff(ctx, a.Ref(root), next)
	if err := r.Apply(ctx, a, root, patches); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return patches, err
	}
	return patches, nil
}

func rootReplaced(patches []vdom.Patch) bool {
	return len(patches) == 1 && patches[0].Op == vdom.PatchReplace && len(patches[0].Path) == 0
}
