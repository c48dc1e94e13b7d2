// Package catalogbackend defines the transactional persistence port: the
// Catalog Backend interface of spec §4.C, plus the data-model structs of
// spec §3.
package catalogbackend

import (
	"time"

	"github.com/redbco/redb-catalog/internal/ident"
	"github.com/redbco/redb-catalog/internal/pagination"
)

type WarehouseStatus int

const (
	WarehouseActive WarehouseStatus = iota
	WarehouseInactive
)

type TabularDeleteProfile struct {
	Soft  bool
	Grace time.Duration
}

type Warehouse struct {
	ID                   ident.WarehouseID
	Name                 string
	ProjectID            ident.ProjectID
	StorageProfileJSON   string // opaque, backend-defined encoding of a storage.Profile
	StorageSecretID      *ident.SecretID
	Status               WarehouseStatus
	TabularDeleteProfile TabularDeleteProfile
}

type Namespace struct {
	ID         ident.NamespaceID
	WarehouseID ident.WarehouseID
	Identifier ident.NamespaceIdent
	Properties map[string]string
}

type TabularStatus int

const (
	StatusStaged TabularStatus = iota
	StatusActive
	StatusSoftDeleted
	StatusExpired
)

type DeletionDetails struct {
	ExpirationTaskID *string
	ExpirationAt     *time.Time
	DeletedAt        *time.Time
	CreatedAt        time.Time
}

// Tabular is the shared row shape for both tables and views (spec §3).
type Tabular struct {
	TabularID       ident.TabularID
	NamespaceID     ident.NamespaceID
	Identifier      string // table/view name within the namespace
	MetadataLocation *string
	StorageLocation string
	Status          TabularStatus
	Deletion        *DeletionDetails
}

// TableCreate is the insert payload for Table ops' create. MetadataLocation
// may be absent for stage-create.
type TableCreate struct {
	TabularID        ident.TableID
	NamespaceID      ident.NamespaceID
	Name             string
	MetadataLocation *string
	StorageLocation  string
	MetadataJSON     string
}

type ViewCreate struct {
	TabularID       ident.ViewID
	NamespaceID     ident.NamespaceID
	Name            string
	MetadataLocation string
	StorageLocation string
	MetadataJSON    string
}

// CommitProposal is one entry of the batch accepted by CommitTableTransaction.
type CommitProposal struct {
	TableID             ident.TableID
	NewMetadataJSON     string
	NewMetadataLocation string
	PreviousMetadataLocation string // optimistic-concurrency token; must match current row
}

type DropFlags = pagination.DropFlags
type ListFlags = pagination.ListFlags
