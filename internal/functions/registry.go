package functions

import (
	"context"
	"fmt"
	"sort"
)

// Handler executes one named function. Business outcomes, including failures
// the agent should relay, are returned as a Result. A non-nil error means the
// handler itself broke and becomes a 500.
type Handler interface {
	Handle(ctx context.Context, args map[string]any, call CallContext) (Result, error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, args map[string]any, call CallContext) (Result, error)

func (f HandlerFunc) Handle(ctx context.Context, args map[string]any, call CallContext) (Result, error) {
	return f(ctx, args, call)
}

// Registry maps function names to handlers. It is filled at startup and only
// read while serving.
type Registry struct {
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds name to h. It panics on an empty name, a nil handler or a
// duplicate, all of which are wiring mistakes.
func (r *Registry) Register(name string, h Handler) *Registry {
	if name == "" {
		panic("functions: empty function name")
	}
	if h == nil {
		panic("functions: nil handler for " + name)
	}
	if _, dup := r.handlers[name]; dup {
		panic("functions: duplicate handler for " + name)
	}
	r.handlers[name] = h
	return r
}

// Lookup returns the handler for name or an error wrapping ErrFunctionNotFound.
func (r *Registry) Lookup(name string) (Handler, error) {
	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	}
	return h, nil
}

// Names lists registered functions in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
