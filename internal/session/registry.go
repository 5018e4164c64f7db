package session

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/jonathan/applypilot/internal/dom"
)

// Resource is the remote browser surface a session operates on. The concrete
// implementation lives in the browser package; tests substitute fixtures.
type Resource interface {
	// Navigate loads the posting URL in the page backing this resource.
	Navigate(ctx context.Context, url string) error
	// Tree exposes the loaded document for discovery and execution.
	Tree() dom.Tree
	// PageText returns the visible text of the loaded document.
	PageText(ctx context.Context) (string, error)
	// Screenshot captures the current viewport as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)
	// Close releases the browser resource. Safe to call more than once.
	Close(ctx context.Context) error
}

// Provisioner creates browser resources on demand.
type Provisioner interface {
	Provision(ctx context.Context) (Resource, error)
}

// ErrNoResource is returned when a session has no live browser resource,
// either because it was never provisioned or because it was released.
var ErrNoResource = fmt.Errorf("no browser resource for session")

// Registry tracks the browser resource owned by each live session. A session
// holds at most one resource; it is released exactly once, on terminal
// transition or explicit eviction.
type Registry struct {
	mu        sync.Mutex
	resources map[uuid.UUID]Resource
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{resources: make(map[uuid.UUID]Resource)}
}

// Put associates a resource with a session, closing any previous one.
func (r *Registry) Put(ctx context.Context, id uuid.UUID, res Resource) {
	r.mu.Lock()
	prev := r.resources[id]
	r.resources[id] = res
	r.mu.Unlock()

	if prev != nil && prev != res {
		if err := prev.Close(ctx); err != nil {
			log.Printf("[session] closing replaced resource for %s: %v", id, err)
		}
	}
}

// Get returns the resource held for a session.
func (r *Registry) Get(id uuid.UUID) (Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.resources[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoResource, id)
	}
	return res, nil
}

// Release closes and forgets a session's resource. Releasing a session that
// holds nothing is a no-op, so callers do not need to track whether a
// terminal transition already ran.
func (r *Registry) Release(ctx context.Context, id uuid.UUID) {
	r.mu.Lock()
	res, ok := r.resources[id]
	delete(r.resources, id)
	r.mu.Unlock()

	if !ok {
		return
	}
	if err := res.Close(ctx); err != nil {
		log.Printf("[session] closing resource for %s: %v", id, err)
	}
}

// ReleaseAll closes every held resource. Used on shutdown.
func (r *Registry) ReleaseAll(ctx context.Context) {
	r.mu.Lock()
	held := r.resources
	r.resources = make(map[uuid.UUID]Resource)
	r.mu.Unlock()

	for id, res := range held {
		if err := res.Close(ctx); err != nil {
			log.Printf("[session] closing resource for %s: %v", id, err)
		}
	}
}
