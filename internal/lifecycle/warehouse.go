package lifecycle

import (
	"context"
	"time"

	"github.com/redbco/redb-catalog/internal/catalogbackend"
	"github.com/redbco/redb-catalog/internal/catalogerr"
	"github.com/redbco/redb-catalog/internal/ident"
	"github.com/redbco/redb-catalog/internal/storage"
)

// CreateWarehouse registers a new warehouse with its storage profile. There
// is no Authorizer check here: warehouse administration sits above the
// per-warehouse RBAC the Authorizer enforces (spec §4.E scopes checks to an
// existing warehouse_id).
func (e *Engine[B, A, S]) CreateWarehouse(ctx context.Context, projectID ident.ProjectID, name string, profile storage.Profile, secretID *ident.SecretID, deleteProfile catalogbackend.TabularDeleteProfile) (warehouseID ident.WarehouseID, err error) {
	defer e.record(ctx, "create_warehouse", time.Now(), &err)

	uuidVal, uerr := ident.NewV7()
	if uerr != nil {
		return ident.WarehouseID{}, catalogerr.Internal("failed to mint warehouse id", uerr)
	}
	id := ident.WarehouseID(uuidVal)

	profileJSON, eerr := storage.EncodeProfile(profile)
	if eerr != nil {
		return ident.WarehouseID{}, eerr
	}

	txn, err := e.Backend.BeginWrite(ctx)
	if err != nil {
		return ident.WarehouseID{}, catalogerr.As(err)
	}
	defer func() { _ = txn.Rollback(ctx) }()

	if err = e.Backend.CreateWarehouse(ctx, txn, catalogbackend.Warehouse{
		ID: id, Name: name, ProjectID: projectID, StorageProfileJSON: profileJSON,
		StorageSecretID: secretID, Status: catalogbackend.WarehouseActive, TabularDeleteProfile: deleteProfile,
	}); err != nil {
		return ident.WarehouseID{}, catalogerr.As(err)
	}
	if err = txn.Commit(ctx); err != nil {
		return ident.WarehouseID{}, catalogerr.As(err)
	}
	return id, nil
}

func (e *Engine[B, A, S]) ListWarehouses(ctx context.Context, projectID ident.ProjectID, status *catalogbackend.WarehouseStatus) ([]catalogbackend.Warehouse, error) {
	out, err := e.Backend.ListWarehouses(ctx, projectID, status)
	if err != nil {
		return nil, catalogerr.As(err)
	}
	return out, nil
}

// ListProjects enumerates the distinct projects that own at least one
// warehouse; the REST layer uses this to populate a catalog selector.
func (e *Engine[B, A, S]) ListProjects(ctx context.Context) ([]ident.ProjectID, error) {
	out, err := e.Backend.ListProjects(ctx)
	if err != nil {
		return nil, catalogerr.As(err)
	}
	return out, nil
}

// RenameWarehouse changes a warehouse's display name.
func (e *Engine[B, A, S]) RenameWarehouse(ctx context.Context, warehouseID ident.WarehouseID, newName string) (err error) {
	defer e.record(ctx, "rename_warehouse", time.Now(), &err)

	txn, err := e.Backend.BeginWrite(ctx)
	if err != nil {
		return catalogerr.As(err)
	}
	defer func() { _ = txn.Rollback(ctx) }()

	if err = e.Backend.RenameWarehouse(ctx, txn, warehouseID, newName); err != nil {
		return catalogerr.As(err)
	}
	if err = txn.Commit(ctx); err != nil {
		return catalogerr.As(err)
	}
	return nil
}

// UpdateStorageProfile replaces a warehouse's storage profile and/or secret
// reference. Callers are responsible for ensuring the new profile's base
// location is compatible with tabulars already written under the old one.
func (e *Engine[B, A, S]) UpdateStorageProfile(ctx context.Context, warehouseID ident.WarehouseID, profile storage.Profile, secretID *ident.SecretID) (err error) {
	defer e.record(ctx, "update_storage_profile", time.Now(), &err)

	profileJSON, eerr := storage.EncodeProfile(profile)
	if eerr != nil {
		return eerr
	}

	txn, err := e.Backend.BeginWrite(ctx)
	if err != nil {
		return catalogerr.As(err)
	}
	defer func() { _ = txn.Rollback(ctx) }()

	if err = e.Backend.UpdateStorageProfile(ctx, txn, warehouseID, profileJSON, secretID); err != nil {
		return catalogerr.As(err)
	}
	if err = txn.Commit(ctx); err != nil {
		return catalogerr.As(err)
	}
	return nil
}

func (e *Engine[B, A, S]) SetWarehouseStatus(ctx context.Context, warehouseID ident.WarehouseID, status catalogbackend.WarehouseStatus) (err error) {
	defer e.record(ctx, "set_warehouse_status", time.Now(), &err)

	txn, err := e.Backend.BeginWrite(ctx)
	if err != nil {
		return catalogerr.As(err)
	}
	defer func() { _ = txn.Rollback(ctx) }()

	if err = e.Backend.SetWarehouseStatus(ctx, txn, warehouseID, status); err != nil {
		return catalogerr.As(err)
	}
	if err = txn.Commit(ctx); err != nil {
		return catalogerr.As(err)
	}
	return nil
}

// DeleteWarehouse removes a warehouse; the backend rejects this while live
// tabulars remain (spec §4.C DeleteWarehouse).
func (e *Engine[B, A, S]) DeleteWarehouse(ctx context.Context, warehouseID ident.WarehouseID) (err error) {
	defer e.record(ctx, "delete_warehouse", time.Now(), &err)

	txn, err := e.Backend.BeginWrite(ctx)
	if err != nil {
		return catalogerr.As(err)
	}
	defer func() { _ = txn.Rollback(ctx) }()

	if err = e.Backend.DeleteWarehouse(ctx, txn, warehouseID); err != nil {
		return catalogerr.As(err)
	}
	if err = txn.Commit(ctx); err != nil {
		return catalogerr.As(err)
	}
	return nil
}
