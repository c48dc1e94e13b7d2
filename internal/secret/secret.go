// Package secret defines the Secret Store interface: an opaque fetch of
// credentials by secret id. The core never logs or persists secret
// contents; Secret deliberately has no Display/String surface.
package secret

import (
	"context"
	"fmt"

	"github.com/redbco/redb-catalog/internal/ident"
)

// Secret is an opaque credential blob. It intentionally does not implement
// fmt.Stringer; its Format method makes accidental logging (e.g. via %v)
// surface the Go pointer, not the contents.
type Secret struct {
	values map[string]string
}

// Format prints only the pointer, for every verb.
func (s *Secret) Format(f fmt.State, verb rune) {
	fmt.Fprintf(f, "%p", s)
}

func New(values map[string]string) *Secret {
	cp := make(map[string]string, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return &Secret{values: cp}
}

func (s *Secret) Get(key string) string {
	if s == nil {
		return ""
	}
	return s.values[key]
}

// Store resolves opaque secret handles to their contents. Implementations
// range from a pass-through of inline credentials to KMS/keyring-backed
// stores.
type Store interface {
	Get(ctx context.Context, id ident.SecretID) (*Secret, error)
	Put(ctx context.Context, values map[string]string) (ident.SecretID, error)
	Delete(ctx context.Context, id ident.SecretID) error
}
