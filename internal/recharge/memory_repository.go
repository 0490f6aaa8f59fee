package recharge

import (
	"context"
	"errors"
	"sync"
	"time"
)

type memoryRepository struct {
	mu      sync.Mutex
	storage map[string]Request
}

// NewMemoryRepository constructs an in-memory recharge repository for tests
// and DB-less development mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Request)}
}

func (r *memoryRepository) Create(_ context.Context, req Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[req.ID]; exists {
		return errors.New("recharge request exists")
	}
	r.storage[req.ID] = req
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.storage[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	return req, nil
}

func (r *memoryRepository) Transition(_ context.Context, id, from, to, gatewayOrderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.storage[id]
	if !ok {
		return ErrNotFound
	}
	if req.Status != from {
		return ErrStateConflict
	}

	req.Status = to
	if gatewayOrderID != "" {
		req.GatewayOrderID = gatewayOrderID
	}
	req.UpdatedAt = time.Now().UTC()
	r.storage[id] = req
	return nil
}
