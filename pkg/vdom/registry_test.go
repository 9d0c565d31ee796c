package vdom

import (
	"errors"
	"sync"
	"testing"
)

func TestRegistryDispatch(t *testing.T) {
	r := NewRegistry()
	var got Event
	r.RegisterHandler("save", func(ev Event) { got = ev })

	if err := r.Dispatch("save", Event{Type: "click", Value: "v"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got.Type != "click" || got.Value != "v" {
		t.Errorf("event = %+v", got)
	}

	r.UnregisterHandler("save")
	if err := r.Dispatch("save", Event{}); !errors.Is(err, ErrHandlerNotFound) {
		t.Errorf("err = %v, want ErrHandlerNotFound", err)
	}
}

func TestRegistryDispatchAt(t *testing.T) {
	a := NewArena()
	root := El("form", El("button", Handlers{"click": "submit"}, "Go")).Build(a)

	r := NewRegistry()
	var got Event
	r.RegisterHandler("submit", func(ev Event) { got = ev })

	if err := r.DispatchAt(a, root, Path{0}, Event{Type: "click"}); err != nil {
		t.Fatalf("DispatchAt: %v", err)
	}
	if !got.Path.Equal(Path{0}) {
		t.Errorf("event path = %v, want /0", got.Path)
	}

	if err := r.DispatchAt(a, root, Path{0}, Event{Type: "input"}); !errors.Is(err, ErrHandlerNotFound) {
		t.Errorf("missing event: err = %v, want ErrHandlerNotFound", err)
	}
	if err := r.DispatchAt(a, root, Path{4}, Event{Type: "click"}); !errors.Is(err, ErrInvalidPatchTarget) {
		t.Errorf("bad path: err = %v, want ErrInvalidPatchTarget", err)
	}
}

func TestRegistryHandlersFollowPatches(t *testing.T) {
	live := NewArena()
	root := El("button", Handlers{"click": "a", "focus": "f"}).Build(live)

	if err := Apply(live, root, Diff(live.Ref(root), Tree(El("button", Handlers{"click": "b"})))); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	r := NewRegistry()
	calls := map[string]int{}
	for _, k := range []HandlerKey{"a", "b", "f"} {
		k := k
		r.RegisterHandler(k, func(Event) { calls[string(k)]++ })
	}

	if err := r.DispatchAt(live, root, nil, Event{Type: "click"}); err != nil {
		t.Fatalf("DispatchAt: %v", err)
	}
	if calls["b"] != 1 || calls["a"] != 0 {
		t.Errorf("calls = %v, want only b", calls)
	}
	// The removed handler is really gone, not replaced by a no-op.
	if err := r.DispatchAt(live, root, nil, Event{Type: "focus"}); !errors.Is(err, ErrHandlerNotFound) {
		t.Errorf("focus: err = %v, want ErrHandlerNotFound", err)
	}
}

func TestRegistryRenderComponent(t *testing.T) {
	r := NewRegistry()
	r.RegisterRender("counter", func(a *Arena, props Attrs, state State) NodeID {
		return a.Element("span", Attrs{"class": props["class"]}, nil, a.Textf("%d", state["count"].IntValue()))
	})

	a := NewArena()
	comp := a.Component("Counter", Attrs{"class": "c"}, State{"count": Int(7)}, "counter")

	id, err := r.RenderComponent(a, comp)
	if err != nil {
		t.Fatalf("RenderComponent: %v", err)
	}
	if !Equal(a.Ref(id), Tree(El("span", Attrs{"class": "c"}, "7"))) {
		t.Errorf("rendered %s", Describe(a.Ref(id)))
	}

	missing := a.Component("Other", nil, nil, "other")
	if _, err := r.RenderComponent(a, missing); !errors.Is(err, ErrRenderNotFound) {
		t.Errorf("err = %v, want ErrRenderNotFound", err)
	}
	if _, err := r.RenderComponent(a, a.Text("x")); !errors.Is(err, ErrNotComponent) {
		t.Errorf("err = %v, want ErrNotComponent", err)
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := HandlerKey(string(rune('a' + i)))
			r.RegisterHandler(key, func(Event) {})
			for j := 0; j < 100; j++ {
				_, _ = r.Handler(key)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		if _, ok := r.Handler(HandlerKey(string(rune('a' + i)))); !ok {
			t.Errorf("handler %d missing", i)
		}
	}
}
