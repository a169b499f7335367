package surface

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Acquirer produces a live Surface, typically by finding the product's page
// in the running browser.
type Acquirer interface {
	Acquire(ctx context.Context) (Surface, error)
}

// AcquirerFunc adapts a function to Acquirer.
type AcquirerFunc func(ctx context.Context) (Surface, error)

// Acquire calls f.
func (f AcquirerFunc) Acquire(ctx context.Context) (Surface, error) {
	return f(ctx)
}

// Handle owns the active Surface. Readers call Current for every operation
// and never keep the result across a recovery; only the recovering component
// calls Reacquire.
type Handle struct {
	current  Surface
	acquirer Acquirer
	mu       sync.RWMutex
}

// NewHandle returns a handle holding initial. A nil initial surface is
// acquired lazily on the first Reacquire.
func NewHandle(initial Surface, acquirer Acquirer) *Handle {
	return &Handle{current: initial, acquirer: acquirer}
}

// Current returns the surface operations should use right now.
func (h *Handle) Current() Surface {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reacquire replaces the current surface with a fresh one. On failure the
// previous surface is kept.
func (h *Handle) Reacquire(ctx context.Context) (Surface, error) {
	if h.acquirer == nil {
		return nil, errors.New("surface handle has no acquirer")
	}

	s, err := h.acquirer.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reacquire surface: %w", err)
	}

	h.mu.Lock()
	h.current = s
	h.mu.Unlock()
	return s, nil
}
