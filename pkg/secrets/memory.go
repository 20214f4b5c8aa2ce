package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// InMemoryRepository is a Repository backed by a map of JSON strings. It is
// used by tests and local development in place of AWS Secrets Manager.
type InMemoryRepository struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewInMemoryRepository(values map[string]string) *InMemoryRepository {
	copied := make(map[string]string, len(values))
	for name, value := range values {
		copied[name] = value
	}
	return &InMemoryRepository{values: copied}
}

func (r *InMemoryRepository) AddSecret(name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[name] = value
}

func (r *InMemoryRepository) RemoveSecret(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.values, name)
}

func (r *InMemoryRepository) GetSecret(ctx context.Context, name string, out any) error {
	r.mu.RLock()
	value, ok := r.values[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}
	if err := json.Unmarshal([]byte(value), out); err != nil {
		return fmt.Errorf("decoding secret %s: %w", name, err)
	}
	return nil
}
