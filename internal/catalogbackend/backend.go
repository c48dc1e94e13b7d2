package catalogbackend

import (
	"context"
	"time"

	"github.com/redbco/redb-catalog/internal/ident"
	"github.com/redbco/redb-catalog/internal/pagination"
)

// ReadTransaction is a read-only handle; it never needs a rollback/commit
// decision from the caller beyond releasing the underlying connection.
type ReadTransaction interface {
	Rollback(ctx context.Context) error
}

// Transaction is a read-write handle. Dropping (never calling Commit) must
// roll back — the backend's Rollback is idempotent with an already-committed
// handle.
type Transaction interface {
	ReadTransaction
	Commit(ctx context.Context) error
}

// Backend is the transactional persistence port of spec §4.C. All mutating
// operations take a Transaction; most read operations take either handle
// type or a bare context (for flows that do not need one).
type Backend interface {
	BeginRead(ctx context.Context) (ReadTransaction, error)
	BeginWrite(ctx context.Context) (Transaction, error)

	// Warehouse ops
	CreateWarehouse(ctx context.Context, tx Transaction, w Warehouse) error
	ListProjects(ctx context.Context) ([]ident.ProjectID, error)
	ListWarehouses(ctx context.Context, projectID ident.ProjectID, status *WarehouseStatus) ([]Warehouse, error)
	GetWarehouse(ctx context.Context, id ident.WarehouseID) (*Warehouse, error) // active-only
	RenameWarehouse(ctx context.Context, tx Transaction, id ident.WarehouseID, newName string) error
	SetWarehouseStatus(ctx context.Context, tx Transaction, id ident.WarehouseID, status WarehouseStatus) error
	UpdateStorageProfile(ctx context.Context, tx Transaction, id ident.WarehouseID, profileJSON string, secretID *ident.SecretID) error
	DeleteWarehouse(ctx context.Context, tx Transaction, id ident.WarehouseID) error

	// Namespace ops
	ListNamespaces(ctx context.Context, warehouseID ident.WarehouseID, parent ident.NamespaceIdent) ([]Namespace, error)
	CreateNamespace(ctx context.Context, tx Transaction, n Namespace) error
	GetNamespace(ctx context.Context, tx ReadTransaction, warehouseID ident.WarehouseID, ident_ ident.NamespaceIdent) (*Namespace, error)
	NamespaceIdentToID(ctx context.Context, warehouseID ident.WarehouseID, ident_ ident.NamespaceIdent) (*ident.NamespaceID, error)
	DropNamespace(ctx context.Context, tx Transaction, id ident.NamespaceID) error
	UpdateNamespaceProperties(ctx context.Context, tx Transaction, id ident.NamespaceID, properties map[string]string) error

	// Table ops
	CreateTable(ctx context.Context, tx Transaction, t TableCreate) error
	ListTables(ctx context.Context, namespaceID ident.NamespaceID, flags ListFlags, q pagination.Query) (pagination.Page[Tabular], error)
	TableIdentToID(ctx context.Context, warehouseID ident.WarehouseID, t ident.TableIdent) (*ident.TableID, error)
	TableIdentsToIDs(ctx context.Context, warehouseID ident.WarehouseID, ts []ident.TableIdent) (map[ident.TableIdent]ident.TableID, error)
	LoadTablesByID(ctx context.Context, ids []ident.TableID, includeDeleted bool) ([]Tabular, error)
	GetTableByID(ctx context.Context, id ident.TableID) (*Tabular, error)
	GetTableByLocation(ctx context.Context, warehouseID ident.WarehouseID, location string) (*Tabular, error)
	RenameTable(ctx context.Context, tx Transaction, id ident.TableID, newNamespaceID ident.NamespaceID, newName string) error
	DropTable(ctx context.Context, tx Transaction, id ident.TableID, flags DropFlags) error
	MarkTableDeleted(ctx context.Context, tx Transaction, id ident.TableID, deletion DeletionDetails) error
	CommitTableTransaction(ctx context.Context, tx Transaction, proposals []CommitProposal) error

	// View ops
	CreateView(ctx context.Context, tx Transaction, v ViewCreate) error
	LoadView(ctx context.Context, id ident.ViewID) (*Tabular, error)
	ListViews(ctx context.Context, namespaceID ident.NamespaceID, flags ListFlags, q pagination.Query) (pagination.Page[Tabular], error)
	UpdateViewMetadata(ctx context.Context, tx Transaction, id ident.ViewID, metadataJSON, metadataLocation string) error
	DropView(ctx context.Context, tx Transaction, id ident.ViewID, flags DropFlags) error
	RenameView(ctx context.Context, tx Transaction, id ident.ViewID, newNamespaceID ident.NamespaceID, newName string) error
	ViewIdentToID(ctx context.Context, warehouseID ident.WarehouseID, v ident.ViewIdent) (*ident.ViewID, error)

	// Tabular ops
	ListTabulars(ctx context.Context, namespaceID ident.NamespaceID, flags ListFlags, q pagination.Query) (pagination.Page[Tabular], error)

	// ListExpiredTabulars returns soft-deleted tables/views across all
	// warehouses whose expiration time has passed, for the sweeper to purge
	// (spec §4.F.4).
	ListExpiredTabulars(ctx context.Context, before time.Time, limit int) ([]ExpiredTabular, error)

	Ping(ctx context.Context) error
}

// ExpiredTabular identifies one soft-deleted row past its grace window,
// enough for the sweeper to call DropTable/DropView with HardDelete.
type ExpiredTabular struct {
	WarehouseID ident.WarehouseID
	TabularID   ident.TabularID
}
