package lifecycle

import (
	"context"
	"time"

	"github.com/redbco/redb-catalog/internal/authz"
	"github.com/redbco/redb-catalog/internal/catalogbackend"
	"github.com/redbco/redb-catalog/internal/catalogerr"
	"github.com/redbco/redb-catalog/internal/ident"
	"github.com/redbco/redb-catalog/internal/pagination"
	"github.com/redbco/redb-catalog/internal/storage"
)

// LoadTableResult bundles the tabular row with the client storage config the
// REST layer attaches to a load-table response.
type LoadTableResult struct {
	Tabular catalogbackend.Tabular
	Config  storage.TableConfig
}

// LoadTable resolves a table identifier, loads its row, and vends a fresh
// client storage config scoped to its location (spec §4.B "scoped strictly
// to tabular_location").
func (e *Engine[B, A, S]) LoadTable(ctx context.Context, rm authz.RequestMetadata, warehouseID ident.WarehouseID, t ident.TableIdent, access storage.DataAccess) (result LoadTableResult, err error) {
	defer e.record(ctx, "load_table", time.Now(), &err)

	if err = e.Authz.CheckLoadTable(ctx, rm, warehouseID, t); err != nil {
		return LoadTableResult{}, catalogerr.As(err)
	}

	tableID, rerr := e.Backend.TableIdentToID(ctx, warehouseID, t)
	if rerr != nil {
		return LoadTableResult{}, catalogerr.As(rerr)
	}
	if tableID == nil {
		return LoadTableResult{}, catalogerr.NotFound("table not found")
	}

	tabular, gerr := e.Backend.GetTableByID(ctx, *tableID)
	if gerr != nil {
		return LoadTableResult{}, catalogerr.As(gerr)
	}
	if tabular == nil || tabular.Status == catalogbackend.StatusSoftDeleted {
		return LoadTableResult{}, catalogerr.NotFound("table not found")
	}

	warehouse, werr := e.resolveWarehouse(ctx, warehouseID)
	if werr != nil {
		return LoadTableResult{}, werr
	}
	profile, perr := e.loadProfile(warehouse)
	if perr != nil {
		return LoadTableResult{}, perr
	}
	sec, serr := e.fetchSecret(ctx, warehouse)
	if serr != nil {
		return LoadTableResult{}, serr
	}

	tableLocation, lerr := ident.ParseLocation(tabular.StorageLocation)
	if lerr != nil {
		return LoadTableResult{}, catalogerr.Internal("corrupt table storage location", lerr)
	}
	config, cerr := profile.GenerateTableConfig(ctx, access, sec, tableLocation, storage.PermissionReadWrite)
	if cerr != nil {
		return LoadTableResult{}, catalogerr.As(cerr)
	}

	return LoadTableResult{Tabular: *tabular, Config: config}, nil
}

// LoadView resolves a view identifier and loads its row; views have no
// vended credentials.
func (e *Engine[B, A, S]) LoadView(ctx context.Context, rm authz.RequestMetadata, warehouseID ident.WarehouseID, v ident.ViewIdent) (tabular catalogbackend.Tabular, err error) {
	defer e.record(ctx, "load_view", time.Now(), &err)

	if err = e.Authz.CheckLoadView(ctx, rm, warehouseID, v); err != nil {
		return catalogbackend.Tabular{}, catalogerr.As(err)
	}

	viewID, rerr := e.Backend.ViewIdentToID(ctx, warehouseID, v)
	if rerr != nil {
		return catalogbackend.Tabular{}, catalogerr.As(rerr)
	}
	if viewID == nil {
		return catalogbackend.Tabular{}, catalogerr.NotFound("view not found")
	}

	loaded, gerr := e.Backend.LoadView(ctx, *viewID)
	if gerr != nil {
		return catalogbackend.Tabular{}, catalogerr.As(gerr)
	}
	if loaded == nil || loaded.Status == catalogbackend.StatusSoftDeleted {
		return catalogbackend.Tabular{}, catalogerr.NotFound("view not found")
	}
	return *loaded, nil
}

// ListTables, ListViews and ListTabulars are thin authorize-then-passthrough
// wrappers: listing carries no state transition, so there is nothing for
// the engine to orchestrate beyond the permission check (spec §4.I).
func (e *Engine[B, A, S]) ListTables(ctx context.Context, rm authz.RequestMetadata, warehouseID ident.WarehouseID, ns ident.NamespaceIdent, flags pagination.ListFlags, q pagination.Query) (page pagination.Page[catalogbackend.Tabular], err error) {
	defer e.record(ctx, "list_tables", time.Now(), &err)
	if err = e.Authz.CheckListTabulars(ctx, rm, warehouseID, ns); err != nil {
		return pagination.Page[catalogbackend.Tabular]{}, catalogerr.As(err)
	}
	namespaceID, nerr := e.resolveNamespaceID(ctx, warehouseID, ns)
	if nerr != nil {
		return pagination.Page[catalogbackend.Tabular]{}, nerr
	}
	page, err = e.Backend.ListTables(ctx, namespaceID, flags, q)
	if err != nil {
		return pagination.Page[catalogbackend.Tabular]{}, catalogerr.As(err)
	}
	return page, nil
}

func (e *Engine[B, A, S]) ListViews(ctx context.Context, rm authz.RequestMetadata, warehouseID ident.WarehouseID, ns ident.NamespaceIdent, flags pagination.ListFlags, q pagination.Query) (page pagination.Page[catalogbackend.Tabular], err error) {
	defer e.record(ctx, "list_views", time.Now(), &err)
	if err = e.Authz.CheckListTabulars(ctx, rm, warehouseID, ns); err != nil {
		return pagination.Page[catalogbackend.Tabular]{}, catalogerr.As(err)
	}
	namespaceID, nerr := e.resolveNamespaceID(ctx, warehouseID, ns)
	if nerr != nil {
		return pagination.Page[catalogbackend.Tabular]{}, nerr
	}
	page, err = e.Backend.ListViews(ctx, namespaceID, flags, q)
	if err != nil {
		return pagination.Page[catalogbackend.Tabular]{}, catalogerr.As(err)
	}
	return page, nil
}

func (e *Engine[B, A, S]) ListTabulars(ctx context.Context, rm authz.RequestMetadata, warehouseID ident.WarehouseID, ns ident.NamespaceIdent, flags pagination.ListFlags, q pagination.Query) (page pagination.Page[catalogbackend.Tabular], err error) {
	defer e.record(ctx, "list_tabulars", time.Now(), &err)
	if err = e.Authz.CheckListTabulars(ctx, rm, warehouseID, ns); err != nil {
		return pagination.Page[catalogbackend.Tabular]{}, catalogerr.As(err)
	}
	namespaceID, nerr := e.resolveNamespaceID(ctx, warehouseID, ns)
	if nerr != nil {
		return pagination.Page[catalogbackend.Tabular]{}, nerr
	}
	page, err = e.Backend.ListTabulars(ctx, namespaceID, flags, q)
	if err != nil {
		return pagination.Page[catalogbackend.Tabular]{}, catalogerr.As(err)
	}
	return page, nil
}
