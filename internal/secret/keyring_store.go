package secret

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redbco/redb-catalog/internal/catalogerr"
	"github.com/redbco/redb-catalog/internal/ident"
	"github.com/redbco/redb-catalog/pkg/keyring"
)

const keyringService = "redb-catalog-secret"

// KeyringStore stores storage-profile secrets (access keys, SAS tokens,
// service-account JSON) keyed by a minted SecretID, backed by the system
// keyring with an encrypted-file fallback for headless servers.
type KeyringStore struct {
	manager *keyring.KeyringManager
}

func NewKeyringStore(keyringPath, masterPassword string) *KeyringStore {
	return &KeyringStore{
		manager: keyring.NewKeyringManager(keyringPath, masterPassword),
	}
}

func (s *KeyringStore) Get(ctx context.Context, id ident.SecretID) (*Secret, error) {
	raw, err := s.manager.Get(keyringService, string(id))
	if err != nil {
		return nil, catalogerr.SecretError(fmt.Sprintf("secret %s not found", id), err)
	}
	var values map[string]string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, catalogerr.SecretError("secret payload is corrupt", err)
	}
	return New(values), nil
}

func (s *KeyringStore) Put(ctx context.Context, values map[string]string) (ident.SecretID, error) {
	id, err := ident.NewV7()
	if err != nil {
		return "", catalogerr.Internal("failed to mint secret id", err)
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "", catalogerr.SecretError("failed to encode secret", err)
	}
	secretID := ident.SecretID(id.String())
	if err := s.manager.Set(keyringService, string(secretID), string(raw)); err != nil {
		return "", catalogerr.SecretError("failed to store secret", err)
	}
	return secretID, nil
}

func (s *KeyringStore) Delete(ctx context.Context, id ident.SecretID) error {
	if err := s.manager.Delete(keyringService, string(id)); err != nil {
		return catalogerr.SecretError(fmt.Sprintf("failed to delete secret %s", id), err)
	}
	return nil
}
