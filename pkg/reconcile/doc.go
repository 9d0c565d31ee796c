// Package reconcile drives diff and apply cycles with logging, metrics and
// tracing, and keeps long-lived trees in sync with their renders.
//
// # Reconciler
//
// A Reconciler wraps vdom.Diff and vdom.Apply. Each call opens an
// OpenTelemetry span, records Prometheus metrics when configured and logs at
// debug level:
//
//	r := reconcile.New(
//	    reconcile.WithLogger(logger),
//	    reconcile.WithMetrics(reconcile.NewMetrics(reconcile.WithRegistry(reg))),
//	)
//	patches := r.Diff(ctx, prev, next)
//	if err := r.Apply(ctx, a, root, patches); err != nil {
//	    return err
//	}
//
// The tracer defaults to the global OpenTelemetry provider, which is a no-op
// until the application installs one.
//
// # Live Trees
//
// A LiveTree owns a copy of the current tree. Update diffs a new render
// against it, applies the patches and returns them as a sequence-numbered
// frame ready for protocol.EncodePatches. If the patches ever fail to apply
// the tree is rebuilt from the render and the frame carries a single root
// Replace instead.
//
//	live := r.NewLiveTree(initial, reconcile.WithRegistry(registry))
//	frame, err := live.Update(ctx, next)
//
// A mirror LiveTree on the receiving side consumes those frames with
// Receive, rejecting gaps in the sequence until a snapshot resynchronizes
// it.
package reconcile
