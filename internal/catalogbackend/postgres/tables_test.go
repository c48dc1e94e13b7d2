package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-catalog/internal/catalogbackend"
	"github.com/redbco/redb-catalog/internal/ident"
)

// TestStatusesFor exercises the pure ListFlags-to-SQL-status-list mapping
// with no database involved, mirroring the teacher's own style of testing
// query-building logic in isolation (see postgres/data_test.go).
func TestStatusesFor(t *testing.T) {
	cases := []struct {
		name  string
		flags catalogbackend.ListFlags
		want  []string
	}{
		{"active only", catalogbackend.ListFlags{IncludeActive: true}, []string{"active"}},
		{"staged only", catalogbackend.ListFlags{IncludeStaged: true}, []string{"staged"}},
		{"deleted only", catalogbackend.ListFlags{IncludeDeleted: true}, []string{"soft_deleted", "expired"}},
		{"none set", catalogbackend.ListFlags{}, nil},
		{"all set", catalogbackend.ListFlags{IncludeActive: true, IncludeStaged: true, IncludeDeleted: true},
			[]string{"active", "staged", "soft_deleted", "expired"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, statusesFor(tc.flags))
		})
	}
}

// TestTableIdentsToIDsEmptyInputReturnsEmptyMap checks the zero-row path
// never reaches the pool, the same "empty data should return 0" shape the
// teacher's own postgres tests use for a pool-free assertion.
func TestTableIdentsToIDsEmptyInputReturnsEmptyMap(t *testing.T) {
	b := New(nil)
	warehouseID := ident.WarehouseID(uuid.Must(uuid.NewRandom()))

	out, err := b.TableIdentsToIDs(context.Background(), warehouseID, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

// TestLoadTablesByIDEmptyInputReturnsEmptySlice is the table-side analogue.
func TestLoadTablesByIDEmptyInputReturnsEmptySlice(t *testing.T) {
	b := New(nil)
	out, err := b.LoadTablesByID(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Empty(t, out)
}
