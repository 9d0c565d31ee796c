package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/vango-dev/reconciler/pkg/protocol"
	"github.com/vango-dev/reconciler/pkg/vdom"
)

var (
	// ErrOutOfOrder is returned by Receive when a frame does not follow the
	// last applied one.
	ErrOutOfOrder = errors.New("reconcile: frame out of order")

	// ErrStale is returned by Receive after a failed apply, until a snapshot
	// frame resynchronizes the tree.
	ErrStale = errors.New("reconcile: live tree is stale")

	// ErrNoRegistry is returned when dispatching events on a tree without a
	// registry.
	ErrNoRegistry = errors.New("reconcile: no registry")
)

// LiveTree owns one tree instance and serializes diff and apply cycles on
// it. A LiveTree is safe for concurrent use.
type LiveTree struct {
	id       string
	r        *Reconciler
	registry *vdom.Registry
	recover  bool

	mu    sync.Mutex
	arena *vdom.Arena
	root  vdom.NodeID
	seq   uint64
	size  int
	stale bool
}

// LiveOption configures a LiveTree.
type LiveOption func(*LiveTree)

// WithHandlerRegistry sets the registry used to dispatch events.
func WithHandlerRegistry(registry *vdom.Registry) LiveOption {
	return func(t *LiveTree) {
		t.registry = registry
	}
}

// WithRecover controls whether Update rebuilds the tree when patches fail to
// apply. Default: true.
func WithRecover(enabled bool) LiveOption {
	return func(t *LiveTree) {
		t.recover = enabled
	}
}

// WithID sets the tree ID. Default: a random UUID.
func WithID(id string) LiveOption {
	return func(t *LiveTree) {
		t.id = id
	}
}

// NewLiveTree creates a live tree holding a deep copy of initial. An invalid
// initial ref starts the tree as an empty fragment.
func (r *Reconciler) NewLiveTree(initial vdom.Ref, opts ...LiveOption) *LiveTree {
	t := &LiveTree{
		r:       r,
		recover: true,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.id == "" {
		t.id = uuid.NewString()
	}
	t.reset(initial)
	return t
}

// ID returns the tree ID.
func (t *LiveTree) ID() string {
	return t.id
}

// Seq returns the sequence number of the last frame produced or received.
func (t *LiveTree) Seq() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seq
}

// Size returns the number of nodes in the tree.
func (t *LiveTree) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.size
}

// View calls fn with the current tree. The ref must not be retained or
// mutated after fn returns.
func (t *LiveTree) View(fn func(vdom.Ref)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(t.arena.Ref(t.root))
}

// Update reconciles the tree with next and returns the applied patches as
// the next frame. An update without changes returns a frame with no patches
// and does not advance the sequence.
//
// The frame's payloads reference next, which must stay unchanged until the
// frame has been encoded.
func (t *LiveTree) Update(ctx context.Context, next vdom.Ref) (protocol.PatchesFrame, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stale {
		return t.rebuild(ctx, next, "stale"), nil
	}
	patches := t.r.Diff(ctx, t.arena.Ref(t.root), next)
	return t.commit(ctx, patches, next)
}

// commit applies patches to the tree and numbers them. Callers hold t.mu.
func (t *LiveTree) commit(ctx context.Context, patches []vdom.Patch, next vdom.Ref) (protocol.PatchesFrame, error) {
	if len(patches) == 0 {
		return protocol.PatchesFrame{Seq: t.seq}, nil
	}

	if err := t.r.Apply(ctx, t.arena, t.root, patches); err != nil {
		if !t.recover || !errors.Is(err, vdom.ErrInvalidPatchTarget) {
			t.stale = true
			return protocol.PatchesFrame{}, fmt.Errorf("live tree %s: %w", t.id, err)
		}
		return t.rebuild(ctx, next, err.Error()), nil
	}

	t.seq++
	t.resize()
	return protocol.PatchesFrame{Seq: t.seq, Patches: patches}, nil
}

// rebuild replaces the tree with a copy of next and returns a frame holding
// a single root Replace. Callers hold t.mu.
func (t *LiveTree) rebuild(ctx context.Context, next vdom.Ref, reason string) protocol.PatchesFrame {
	t.r.metrics.recordRecovery()
	t.r.logger.WarnContext(ctx, "rebuilding live tree",
		"tree", t.id,
		"seq", t.seq+1,
		"reason", reason,
	)

	t.reset(next)
	t.seq++
	t.stale = false
	return protocol.PatchesFrame{
		Seq:     t.seq,
		Patches: []vdom.Patch{{Op: vdom.PatchReplace, Node: next}},
	}
}

// Snapshot returns a frame that replaces a mirror's whole tree with a copy
// of this one, numbered with the current sequence.
func (t *LiveTree) Snapshot() protocol.PatchesFrame {
	t.mu.Lock()
	defer t.mu.Unlock()

	a := vdom.NewArena()
	id := a.Clone(t.arena.Ref(t.root))
	return protocol.PatchesFrame{
		Seq:     t.seq,
		Patches: []vdom.Patch{{Op: vdom.PatchReplace, Node: a.Ref(id)}},
	}
}

// Receive applies a frame produced by another LiveTree's Update or
// Snapshot. Frames must arrive in sequence; a snapshot is accepted at any
// point and clears a stale tree.
func (t *LiveTree) Receive(ctx context.Context, frame protocol.PatchesFrame) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if isSnapshot(frame) {
		t.reset(frame.Patches[0].Node)
		t.seq = frame.Seq
		t.stale = false
		return nil
	}
	if t.stale {
		t.r.metrics.recordRejected(ErrStale)
		return fmt.Errorf("live tree %s: %w", t.id, ErrStale)
	}
	if len(frame.Patches) == 0 && frame.Seq == t.seq {
		return nil
	}
	if frame.Seq != t.seq+1 {
		t.r.metrics.recordRejected(ErrOutOfOrder)
		return fmt.Errorf("live tree %s: %w: got %d, want %d", t.id, ErrOutOfOrder, frame.Seq, t.seq+1)
	}

	if err := t.r.Apply(ctx, t.arena, t.root, frame.Patches); err != nil {
		t.stale = true
		return fmt.Errorf("live tree %s: frame %d: %w", t.id, frame.Seq, err)
	}
	t.seq = frame.Seq
	t.resize()
	return nil
}

// HandleEvent decodes an event payload and dispatches it.
func (t *LiveTree) HandleEvent(ctx context.Context, payload []byte) error {
	ev, err := protocol.DecodeEvent(payload)
	if err != nil {
		return err
	}
	return t.Dispatch(ctx, ev)
}

// Dispatch invokes the handler registered for ev.Type on the element at
// ev.Path. The handler runs without the tree lock held, so it may call
// Update.
func (t *LiveTree) Dispatch(ctx context.Context, ev vdom.Event) error {
	_, span := t.r.tracer.Start(ctx, "reconcile.event")
	defer span.End()
	span.SetAttributes(
		attribute.String("reconcile.tree", t.id),
		attribute.String("reconcile.event_type", ev.Type),
		attribute.String("reconcile.event_path", ev.Path.String()),
	)

	err := t.dispatch(ev)
	t.r.metrics.recordEvent(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (t *LiveTree) dispatch(ev vdom.Event) error {
	if t.registry == nil {
		return ErrNoRegistry
	}

	t.mu.Lock()
	ref := t.arena.Ref(t.root)
	for _, i := range ev.Path {
		ref = ref.Child(i)
	}
	n := ref.Node()
	var (
		key   vdom.HandlerKey
		found bool
	)
	if n != nil {
		key, found = n.Handlers[ev.Type]
	}
	t.mu.Unlock()

	if n == nil {
		return fmt.Errorf("%w: no node at %s", vdom.ErrInvalidPatchTarget, ev.Path)
	}
	if !found {
		return fmt.Errorf("%w: no %q handler at %s", vdom.ErrHandlerNotFound, ev.Type, ev.Path)
	}
	return t.registry.Dispatch(key, ev)
}

// Close releases the tree.
func (t *LiveTree) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.r.metrics.addLiveNodes(-t.size)
	t.arena = vdom.NewArena()
	t.root = t.arena.Fragment()
	t.size = 0
}

// reset replaces the tree with a deep copy of src. Callers hold t.mu, or
// own t exclusively.
func (t *LiveTree) reset(src vdom.Ref) {
	t.arena = vdom.NewArena()
	t.root = t.arena.Clone(src)
	if t.root == vdom.NoNode {
		t.root = t.arena.Fragment()
	}
	t.resize()
}

func (t *LiveTree) resize() {
	size := t.arena.Size(t.root)
	t.r.metrics.addLiveNodes(size - t.size)
	t.size = size
}

func isSnapshot(frame protocol.PatchesFrame) bool {
	return len(frame.Patches) == 1 &&
		frame.Patches[0].Op == vdom.PatchReplace &&
		len(frame.Patches[0].Path) == 0
}
