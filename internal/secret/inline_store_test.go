package secret

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-catalog/internal/catalogerr"
)

func TestInlineStorePutThenGetRoundTrip(t *testing.T) {
	store := NewInlineStore()
	ctx := context.Background()

	id, err := store.Put(ctx, map[string]string{"access-key": "AKIA...", "secret-key": "shh"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	sec, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "AKIA...", sec.Get("access-key"))
	assert.Equal(t, "shh", sec.Get("secret-key"))
	assert.Empty(t, sec.Get("unknown-key"))
}

func TestInlineStoreGetUnknownIDIsSecretError(t *testing.T) {
	store := NewInlineStore()
	_, err := store.Get(context.Background(), "does-not-exist")
	assert.Error(t, err)
	assert.Equal(t, catalogerr.TypeSecretError, catalogerr.As(err).Type)
}

func TestInlineStoreDeleteRemovesSecret(t *testing.T) {
	store := NewInlineStore()
	ctx := context.Background()

	id, err := store.Put(ctx, map[string]string{"k": "v"})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, id))

	_, err = store.Get(ctx, id)
	assert.Error(t, err)
}

func TestInlineStoreDeleteUnknownIDIsNoop(t *testing.T) {
	store := NewInlineStore()
	assert.NoError(t, store.Delete(context.Background(), "does-not-exist"))
}

func TestSecretGetOnNilReceiverReturnsEmpty(t *testing.T) {
	var sec *Secret
	assert.Equal(t, "", sec.Get("anything"))
}

func TestNewSecretCopiesInputMap(t *testing.T) {
	values := map[string]string{"k": "v"}
	sec := New(values)
	values["k"] = "mutated"
	assert.Equal(t, "v", sec.Get("k"), "Secret must not alias the caller's map")
}
