package jobs

import (
	"context"
	"sync"

	"github.com/revisify/backend/internal/types"
)

// Handler executes one claimed run. Implementations own their run's status
// transitions on failure; the worker only steps in for dispatch errors and
// panics.
type Handler interface {
	Run(ctx context.Context, run *types.PipelineRun) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, run *types.PipelineRun) error

func (f HandlerFunc) Run(ctx context.Context, run *types.PipelineRun) error { return f(ctx, run) }

// Registry maps job types to their handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(jobType string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[jobType] = h
}

func (r *Registry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}
