package secret

import (
	"context"
	"sync"

	"github.com/redbco/redb-catalog/internal/catalogerr"
	"github.com/redbco/redb-catalog/internal/ident"
)

// InlineStore is an in-memory pass-through Store, used in tests and for
// warehouses whose storage profile needs no secret (e.g. local disk).
type InlineStore struct {
	mu      sync.RWMutex
	secrets map[ident.SecretID]*Secret
}

func NewInlineStore() *InlineStore {
	return &InlineStore{secrets: make(map[ident.SecretID]*Secret)}
}

func (s *InlineStore) Get(ctx context.Context, id ident.SecretID) (*Secret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sec, ok := s.secrets[id]
	if !ok {
		return nil, catalogerr.SecretError("secret not found", nil)
	}
	return sec, nil
}

func (s *InlineStore) Put(ctx context.Context, values map[string]string) (ident.SecretID, error) {
	id, err := ident.NewV7()
	if err != nil {
		return "", catalogerr.Internal("failed to mint secret id", err)
	}
	secretID := ident.SecretID(id.String())

	s.mu.Lock()
	s.secrets[secretID] = New(values)
	s.mu.Unlock()

	return secretID, nil
}

func (s *InlineStore) Delete(ctx context.Context, id ident.SecretID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.secrets, id)
	return nil
}
