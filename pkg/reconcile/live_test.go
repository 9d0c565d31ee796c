package reconcile

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/reconciler/pkg/protocol"
	"github.com/vango-dev/reconciler/pkg/vdom"
)

func treeOf(t *LiveTree) vdom.Ref {
	var out vdom.Ref
	t.View(func(r vdom.Ref) {
		a := vdom.NewArena()
		out = a.Ref(a.Clone(r))
	})
	return out
}

func TestLiveTreeUpdateSequence(t *testing.T) {
	r := New(WithLogger(quietLogger()))
	ctx := context.Background()
	live := r.NewLiveTree(vdom.Tree(listTree("a")))
	assert.NotEmpty(t, live.ID())

	frame, err := live.Update(ctx, vdom.Tree(listTree("a", "b")))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), frame.Seq)
	require.Len(t, frame.Patches, 1)
	assert.Equal(t, vdom.PatchAdd, frame.Patches[0].Op)

	next := vdom.Tree(listTree("x", "b"))
	frame, err = live.Update(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), frame.Seq)
	assert.True(t, vdom.Equal(treeOf(live), next))

	frame, err = live.Update(ctx, vdom.Tree(listTree("x", "b")))
	require.NoError(t, err)
	assert.Empty(t, frame.Patches, "unchanged render")
	assert.Equal(t, uint64(2), frame.Seq)
	assert.Equal(t, uint64(2), live.Seq())
}

func TestLiveTreeOwnsCopy(t *testing.T) {
	r := New(WithLogger(quietLogger()))
	initial := vdom.Tree(listTree("a"))
	live := r.NewLiveTree(initial)

	initial.Arena.Node(initial.ID).Tag = "ol"
	live.View(func(ref vdom.Ref) {
		assert.Equal(t, "ul", ref.Node().Tag)
	})
}

func TestLiveTreeEmptyInitial(t *testing.T) {
	r := New(WithLogger(quietLogger()))
	live := r.NewLiveTree(vdom.Ref{})
	assert.Equal(t, 1, live.Size())

	next := vdom.Tree(vdom.El("main"))
	frame, err := live.Update(context.Background(), next)
	require.NoError(t, err)
	assert.True(t, isSnapshot(frame))
	assert.True(t, vdom.Equal(treeOf(live), next))
}

func TestLiveTreeMirrorOverWire(t *testing.T) {
	r := New(WithLogger(quietLogger()))
	ctx := context.Background()

	source := r.NewLiveTree(vdom.Tree(listTree("a", "b", "c")))
	mirror := r.NewLiveTree(vdom.Ref{})

	send := func(frame protocol.PatchesFrame) {
		t.Helper()
		decoded, err := protocol.DecodePatches(protocol.EncodePatches(&frame))
		require.NoError(t, err)
		require.NoError(t, mirror.Receive(ctx, *decoded))
	}

	send(source.Snapshot())
	assert.Equal(t, uint64(0), mirror.Seq())
	assert.True(t, vdom.Equal(treeOf(mirror), treeOf(source)))

	renders := []vdom.Builder{
		listTree("a", "b"),
		listTree("a", "z", "c", "d"),
		vdom.El("ul", vdom.Attrs{"class": "done"}),
		vdom.Frag(vdom.T("gone")),
	}
	for i, b := range renders {
		frame, err := source.Update(ctx, vdom.Tree(b))
		require.NoError(t, err, "render %d", i)
		send(frame)
		assert.Equal(t, source.Seq(), mirror.Seq(), "render %d", i)
		assert.True(t, vdom.Equal(treeOf(mirror), treeOf(source)), "render %d", i)
	}
}

func TestLiveTreeReceiveOutOfOrder(t *testing.T) {
	m := newTestMetrics()
	r := New(WithLogger(quietLogger()), WithMetrics(m))
	ctx := context.Background()

	source := r.NewLiveTree(vdom.Tree(listTree("a")))
	mirror := r.NewLiveTree(vdom.Tree(listTree("a")))

	first, err := source.Update(ctx, vdom.Tree(listTree("a", "b")))
	require.NoError(t, err)
	second, err := source.Update(ctx, vdom.Tree(listTree("a", "b", "c")))
	require.NoError(t, err)

	err = mirror.Receive(ctx, second)
	require.ErrorIs(t, err, ErrOutOfOrder)
	assert.Contains(t, err.Error(), "got 2, want 1")
	assert.Equal(t, 1.0, counterValue(t, m.applyErrors.WithLabelValues("out_of_order")))
	assert.Equal(t, uint64(0), histogramCount(t, m.applyDuration), "rejected frames are not timed")

	require.NoError(t, mirror.Receive(ctx, first))
	require.NoError(t, mirror.Receive(ctx, second))
	assert.True(t, vdom.Equal(treeOf(mirror), treeOf(source)))

	// Replaying an empty frame for the current sequence is a no-op.
	require.NoError(t, mirror.Receive(ctx, protocol.PatchesFrame{Seq: 2}))
}

func TestLiveTreeReceiveStale(t *testing.T) {
	m := newTestMetrics()
	r := New(WithLogger(quietLogger()), WithMetrics(m))
	ctx := context.Background()

	source := r.NewLiveTree(vdom.Tree(listTree("a")))
	mirror := r.NewLiveTree(vdom.Tree(vdom.T("out of sync")))

	frame, err := source.Update(ctx, vdom.Tree(listTree()))
	require.NoError(t, err)

	err = mirror.Receive(ctx, frame)
	require.ErrorIs(t, err, vdom.ErrInvalidPatchTarget)

	frame, err = source.Update(ctx, vdom.Tree(listTree("b")))
	require.NoError(t, err)
	applied := histogramCount(t, m.applyDuration)
	require.ErrorIs(t, mirror.Receive(ctx, frame), ErrStale)
	assert.Equal(t, 1.0, counterValue(t, m.applyErrors.WithLabelValues("stale")))
	assert.Equal(t, applied, histogramCount(t, m.applyDuration), "rejected frames are not timed")

	require.NoError(t, mirror.Receive(ctx, source.Snapshot()))
	assert.Equal(t, source.Seq(), mirror.Seq())
	assert.True(t, vdom.Equal(treeOf(mirror), treeOf(source)))
}

func TestLiveTreeRecoversFromFailedApply(t *testing.T) {
	m := newTestMetrics()
	r := New(WithLogger(quietLogger()), WithMetrics(m))
	ctx := context.Background()

	live := r.NewLiveTree(vdom.Tree(vdom.T("x")))
	next := vdom.Tree(vdom.El("div", "y"))

	live.mu.Lock()
	frame, err := live.commit(ctx, []vdom.Patch{{Op: vdom.PatchRemove}}, next)
	live.mu.Unlock()

	require.NoError(t, err)
	assert.Equal(t, uint64(1), frame.Seq)
	require.True(t, isSnapshot(frame))
	assert.True(t, vdom.Equal(frame.Patches[0].Node, next))
	assert.True(t, vdom.Equal(treeOf(live), next))
	assert.Equal(t, 1.0, counterValue(t, m.recoveries))
	assert.Equal(t, 1.0, counterValue(t, m.applyErrors.WithLabelValues("invalid_target")))
}

func TestLiveTreeWithoutRecover(t *testing.T) {
	r := New(WithLogger(quietLogger()))
	ctx := context.Background()

	live := r.NewLiveTree(vdom.Tree(vdom.T("x")), WithRecover(false), WithID("tree-1"))
	next := vdom.Tree(vdom.El("div"))

	live.mu.Lock()
	_, err := live.commit(ctx, []vdom.Patch{{Op: vdom.PatchRemove}}, next)
	live.mu.Unlock()

	require.ErrorIs(t, err, vdom.ErrInvalidPatchTarget)
	assert.Contains(t, err.Error(), "live tree tree-1")

	// The failed tree is rebuilt on the next update.
	frame, err := live.Update(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), frame.Seq)
	assert.True(t, isSnapshot(frame))
	assert.True(t, vdom.Equal(treeOf(live), next))
}

func counterTree() vdom.Builder {
	return vdom.El("div",
		vdom.El("button", vdom.Handlers{"click": "inc"}, "+"),
		vdom.El("span", "0"),
	)
}

func TestLiveTreeDispatch(t *testing.T) {
	m := newTestMetrics()
	r := New(WithLogger(quietLogger()), WithMetrics(m))
	ctx := context.Background()
	registry := vdom.NewRegistry()

	live := r.NewLiveTree(vdom.Tree(counterTree()), WithHandlerRegistry(registry))

	var (
		got    vdom.Event
		frames []protocol.PatchesFrame
	)
	registry.RegisterHandler("inc", func(ev vdom.Event) {
		got = ev
		// Handlers may re-render the tree they were dispatched from.
		frame, err := live.Update(ctx, vdom.Tree(vdom.El("div",
			vdom.El("button", vdom.Handlers{"click": "inc"}, "+"),
			vdom.El("span", "1"),
		)))
		require.NoError(t, err)
		frames = append(frames, frame)
	})

	payload := protocol.EncodeEvent(vdom.Event{Type: "click", Path: vdom.Path{0}})
	require.NoError(t, live.HandleEvent(ctx, payload))

	assert.Equal(t, "click", got.Type)
	assert.Equal(t, vdom.Path{0}, got.Path)
	require.Len(t, frames, 1)
	assert.Equal(t, uint64(1), frames[0].Seq)
	assert.Equal(t, 1.0, counterValue(t, m.eventsTotal.WithLabelValues("success")))
}

func TestLiveTreeDispatchErrors(t *testing.T) {
	m := newTestMetrics()
	r := New(WithLogger(quietLogger()), WithMetrics(m))
	ctx := context.Background()

	live := r.NewLiveTree(vdom.Tree(counterTree()), WithHandlerRegistry(vdom.NewRegistry()))

	err := live.Dispatch(ctx, vdom.Event{Type: "input", Path: vdom.Path{0}})
	assert.ErrorIs(t, err, vdom.ErrHandlerNotFound)

	err = live.Dispatch(ctx, vdom.Event{Type: "click", Path: vdom.Path{5}})
	assert.ErrorIs(t, err, vdom.ErrInvalidPatchTarget)

	// The key is on the tree but nothing is registered under it.
	err = live.Dispatch(ctx, vdom.Event{Type: "click", Path: vdom.Path{0}})
	assert.ErrorIs(t, err, vdom.ErrHandlerNotFound)

	assert.Error(t, live.HandleEvent(ctx, []byte{0xff}))

	bare := r.NewLiveTree(vdom.Tree(counterTree()))
	assert.ErrorIs(t, bare.Dispatch(ctx, vdom.Event{Type: "click", Path: vdom.Path{0}}), ErrNoRegistry)

	assert.Equal(t, 2.0, counterValue(t, m.eventsTotal.WithLabelValues("handler_not_found")))
	assert.Equal(t, 1.0, counterValue(t, m.eventsTotal.WithLabelValues("invalid_target")))
}

func TestLiveTreeNodeGauge(t *testing.T) {
	m := newTestMetrics()
	r := New(WithLogger(quietLogger()), WithMetrics(m))

	live := r.NewLiveTree(vdom.Tree(listTree("a", "b")))
	assert.Equal(t, 3, live.Size())
	assert.Equal(t, 3.0, gaugeValue(t, m.liveNodes))

	_, err := live.Update(context.Background(), vdom.Tree(listTree("a")))
	require.NoError(t, err)
	assert.Equal(t, 2.0, gaugeValue(t, m.liveNodes))

	live.Close()
	assert.Equal(t, 0.0, gaugeValue(t, m.liveNodes))
}

func TestLiveTreeConcurrentUpdates(t *testing.T) {
	r := New(WithLogger(quietLogger()))
	live := r.NewLiveTree(vdom.Tree(vdom.T("start")))

	const n = 20
	seqs := make([]uint64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			frame, err := live.Update(context.Background(), vdom.Tree(vdom.T(fmt.Sprintf("render %d", i))))
			assert.NoError(t, err)
			seqs[i] = frame.Seq
		}(i)
	}
	wg.Wait()

	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	for i, seq := range seqs {
		assert.Equal(t, uint64(i+1), seq)
	}
	assert.Equal(t, uint64(n), live.Seq())
}
