package trustlineop

import (
	"context"
	"errors"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Operation
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Operation)}
}

func (r *memoryRepository) Create(_ context.Context, op Operation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[op.ID]; exists {
		return errors.New("trustline operation exists")
	}
	r.storage[op.ID] = op
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Operation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.storage[id]
	if !ok {
		return Operation{}, ErrNotFound
	}
	return op, nil
}

func (r *memoryRepository) Resolve(_ context.Context, id string, res Resolution) (Operation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	op, ok := r.storage[id]
	if !ok {
		return Operation{}, ErrNotFound
	}
	if op.Status != StatusPending {
		return Operation{}, ErrInvalidTransition
	}
	op.Status = res.Status
	if res.TransactionHash != "" {
		op.TransactionHash = res.TransactionHash
	}
	op.ErrorMessage = res.ErrorMessage
	op.UpdatedAt = res.UpdatedAt
	r.storage[id] = op
	return op, nil
}

func (r *memoryRepository) ListByWallet(_ context.Context, wallet string, limit int) ([]Operation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Operation
	for _, op := range r.storage {
		if op.WalletAddress == wallet {
			out = append(out, op)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
