// Package pagination implements the list filters and opaque cursor encoding
// used by every list operation in the catalog backend and lifecycle engine.
package pagination

import (
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

// ListFlags controls which tabular lifecycle states a list operation
// includes. Defaults match spec §4.I: active only.
type ListFlags struct {
	IncludeActive  bool
	IncludeStaged  bool
	IncludeDeleted bool
}

func DefaultListFlags() ListFlags {
	return ListFlags{IncludeActive: true}
}

// All returns a ListFlags including every state; used to test that listing
// with All() is the disjoint union of listing with each single flag (§8 Laws).
func All() ListFlags {
	return ListFlags{IncludeActive: true, IncludeStaged: true, IncludeDeleted: true}
}

func OnlyDeleted() ListFlags {
	return ListFlags{IncludeDeleted: true}
}

// DropFlags controls drop semantics: HardDelete purges the row immediately,
// Purge additionally instructs the caller to remove the underlying objects.
type DropFlags struct {
	HardDelete bool
	Purge      bool
}

// Query is a list request: an optional opaque cursor and a bounded page
// size.
type Query struct {
	PageToken string
	PageSize  int
}

// Cursor is the opaque pagination cursor: the time-ordered id of the last
// returned row. Ordering is id-ascending; encoding is base64url of the raw
// 16 bytes, unpadded, so it survives URL-safe transport (spec §9 Open
// Question, resolved this way).
type Cursor struct {
	LastID uuid.UUID
}

func (c Cursor) Encode() string {
	return base64.RawURLEncoding.EncodeToString(c.LastID[:])
}

func DecodeCursor(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid page token: %w", err)
	}
	if len(raw) != 16 {
		return Cursor{}, fmt.Errorf("invalid page token: wrong length")
	}
	var id uuid.UUID
	copy(id[:], raw)
	return Cursor{LastID: id}, nil
}

// Page wraps a list result with the cursor to request the next page, if any.
type Page[T any] struct {
	Items         []T
	NextPageToken string
}
