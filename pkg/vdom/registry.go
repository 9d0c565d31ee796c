package vdom

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrHandlerNotFound is returned when dispatching to an unregistered key.
	ErrHandlerNotFound = errors.New("vdom: handler not registered")

	// ErrRenderNotFound is returned when a component's render key is unknown.
	ErrRenderNotFound = errors.New("vdom: render function not registered")

	// ErrNotComponent is returned when rendering a node that is not a component.
	ErrNotComponent = errors.New("vdom: node is not a component")
)

// Event is delivered to a handler.
type Event struct {
	Type  string // "click", "input", ...
	Path  Path   // Address of the element that received the event
	Value string // Event payload, e.g. an input's value
}

// Handler handles an event.
type Handler func(Event)

// RenderFunc builds a component's subtree in a from its props and state and
// returns the new, unowned root.
type RenderFunc func(a *Arena, props Attrs, state State) NodeID

// Registry is the side table of executable handlers and component render
// functions. Trees only store their keys; equality during diffing is by key.
//
// A Registry is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[HandlerKey]Handler
	renders  map[string]RenderFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[HandlerKey]Handler),
		renders:  make(map[string]RenderFunc),
	}
}

// RegisterHandler stores h under key, replacing any previous handler.
func (r *Registry) RegisterHandler(key HandlerKey, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[key] = h
}

// UnregisterHandler removes the handler stored under key.
func (r *Registry) UnregisterHandler(key HandlerKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, key)
}

// Handler returns the handler stored under key.
func (r *Registry) Handler(key HandlerKey) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[key]
	return h, ok
}

// Dispatch invokes the handler stored under key.
func (r *Registry) Dispatch(key HandlerKey, ev Event) error {
	h, ok := r.Handler(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrHandlerNotFound, key)
	}
	h(ev)
	return nil
}

// DispatchAt resolves the element at path under root, looks up its handler
// for ev.Type and invokes it.
func (r *Registry) DispatchAt(a *Arena, root NodeID, path Path, ev Event) error {
	id, ok := resolve(a, root, path)
	if !ok {
		return fmt.Errorf("%w: no node at %s", ErrInvalidPatchTarget, path)
	}
	n := a.Node(id)
	key, ok := n.Handlers[ev.Type]
	if !ok {
		return fmt.Errorf("%w: no %q handler at %s", ErrHandlerNotFound, ev.Type, path)
	}
	ev.Path = path
	return r.Dispatch(key, ev)
}

// RegisterRender stores fn under key.
func (r *Registry) RegisterRender(key string, fn RenderFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renders[key] = fn
}

// Render returns the render function stored under key.
func (r *Registry) Render(key string) (RenderFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.renders[key]
	return fn, ok
}

// RenderComponent invokes the render function of the component at id and
// returns the root of the produced subtree, allocated in a and unowned.
func (r *Registry) RenderComponent(a *Arena, id NodeID) (NodeID, error) {
	n := a.Node(id)
	if n == nil || n.Kind != KindComponent {
		return NoNode, ErrNotComponent
	}
	fn, ok := r.Render(n.Render)
	if !ok {
		return NoNode, fmt.Errorf("%w: %q (component %s)", ErrRenderNotFound, n.Render, n.Name)
	}
	// The render function may allocate, which invalidates n.
	props, state := copyMap(n.Props), n.State.Clone()
	return fn(a, props, state), nil
}
