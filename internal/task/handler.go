package task

import (
	"context"
	"fmt"
	"sync"

	"github.com/phrazzld/hitster/internal/domain"
)

// Handler performs the work for one job kind.
type Handler interface {
	// Execute runs job and returns the update to merge into its payload.
	// A returned error fails the job with err.Error() as its detail.
	Execute(ctx context.Context, job *domain.Job) (domain.JobResult, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, job *domain.Job) (domain.JobResult, error)

// Execute calls f.
func (f HandlerFunc) Execute(ctx context.Context, job *domain.Job) (domain.JobResult, error) {
	return f(ctx, job)
}

// Registry maps job kinds to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[domain.JobKind]Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[domain.JobKind]Handler)}
}

// Register binds h to kind, replacing any previous handler.
func (r *Registry) Register(kind domain.JobKind, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = h
}

// Lookup returns the handler for kind.
func (r *Registry) Lookup(kind domain.JobKind) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[kind]
	return h, ok
}

// Validate checks that every kind has a handler.
func (r *Registry) Validate(kinds ...domain.JobKind) error {
	for _, kind := range kinds {
		if _, ok := r.Lookup(kind); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownJobKind, kind)
		}
	}
	return nil
}
