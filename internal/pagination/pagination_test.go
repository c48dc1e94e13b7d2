package pagination

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultListFlagsIsActiveOnly(t *testing.T) {
	flags := DefaultListFlags()
	assert.True(t, flags.IncludeActive)
	assert.False(t, flags.IncludeStaged)
	assert.False(t, flags.IncludeDeleted)
}

// TestAllIsDisjointUnionOfSingleFlags is the Go analogue of the "listing
// with every state flag set in All() behaves as the union of listing each
// flag individually" law from spec §8.
func TestAllIsDisjointUnionOfSingleFlags(t *testing.T) {
	all := All()
	active := DefaultListFlags()
	deleted := OnlyDeleted()

	assert.True(t, all.IncludeActive && all.IncludeStaged && all.IncludeDeleted)
	assert.True(t, active.IncludeActive)
	assert.True(t, deleted.IncludeDeleted)
	assert.False(t, deleted.IncludeActive)
}

func TestCursorRoundTrip(t *testing.T) {
	id := uuid.Must(uuid.NewRandom())
	cursor := Cursor{LastID: id}

	token := cursor.Encode()
	assert.NotEmpty(t, token)

	decoded, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, id, decoded.LastID)
}

func TestDecodeCursorEmptyTokenIsZeroValue(t *testing.T) {
	decoded, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Equal(t, Cursor{}, decoded)
}

func TestDecodeCursorRejectsInvalidBase64(t *testing.T) {
	_, err := DecodeCursor("not valid base64url!!")
	assert.Error(t, err)
}

func TestDecodeCursorRejectsWrongLength(t *testing.T) {
	// valid base64url but decodes to fewer than 16 bytes
	_, err := DecodeCursor("YWJj")
	assert.Error(t, err)
}

func TestCursorEncodingIsURLSafe(t *testing.T) {
	id := uuid.Must(uuid.NewRandom())
	token := Cursor{LastID: id}.Encode()
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")
	assert.NotContains(t, token, "=")
}
