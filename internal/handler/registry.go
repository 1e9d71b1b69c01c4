package handler

import (
	"github.com/kbindex/indexer/internal/logx"
)

// Registry routes a path to exactly one Handler in priority order
// (spec.md §4.2, C2): "the Executor asks the Registry for a Handler given
// a path. Registry iterates handlers in priority order, returning the
// first whose can_handle is true. If none matches, the Registry warns and
// skips."
type Registry struct {
	handlers []Handler
	log      *logx.Logger
}

// NewRegistry builds an empty Registry. Handlers are tried in the order
// they are registered, so register the most specific handlers first.
func NewRegistry(log *logx.Logger) *Registry {
	if log == nil {
		log = logx.Default
	}
	return &Registry{log: log}
}

// Register adds a handler at the end of the priority order.
func (r *Registry) Register(h Handler) {
	r.handlers = append(r.handlers, h)
}

// Resolve returns the first handler whose CanHandle is true for path, or
// nil if none matches — callers must treat nil as SKIP with reason
// NO_HANDLER_AVAILABLE (spec.md §4.2), never guess.
func (r *Registry) Resolve(path string) Handler {
	for _, h := range r.handlers {
		if h.CanHandle(path) {
			return h
		}
	}
	r.log.Warn("no handler matches path %q; skipping (NO_HANDLER_AVAILABLE)", path)
	return nil
}

// Handlers returns the registered handlers in priority order.
func (r *Registry) Handlers() []Handler {
	out := make([]Handler, len(r.handlers))
	copy(out, r.handlers)
	return out
}
