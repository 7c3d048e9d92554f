// Package runtime is the execution contract between the worker and the
// pipeline stages it dispatches to: a handler registry keyed by RunType, and
// a capability-scoped Context each handler receives. Adapted from the
// teacher's job_type-keyed registry, generalized from job_type strings to
// domainruns.RunType.
package runtime

import (
	"fmt"
	"sync"

	domainruns "github.com/ds4psb/komission-core/internal/domain/runs"
)

// Handler executes one Run. Handlers must be side-effect safe under retry:
// a Run may be re-claimed and re-executed after partial work if the process
// died mid-handler.
type Handler func(ctx Context) error

// Registry is a concurrency-safe map of RunType -> handler. At most one
// handler may be registered per RunType; duplicate registration is a wiring
// error, caught at startup rather than picked silently.
type Registry struct {
	mu       sync.RWMutex
	handlers map[domainruns.RunType]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[domainruns.RunType]Handler)}
}

func (r *Registry) Register(runType domainruns.RunType, h Handler) error {
	if h == nil {
		return fmt.Errorf("runtime: nil handler for run_type %q", runType)
	}
	if runType == "" {
		return fmt.Errorf("runtime: empty run_type")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[runType]; exists {
		return fmt.Errorf("runtime: handler already registered for run_type %q", runType)
	}
	r.handlers[runType] = h
	return nil
}

func (r *Registry) Get(runType domainruns.RunType) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[runType]
	return h, ok
}
