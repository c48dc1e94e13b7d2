package lifecycle

import (
	"context"
	"time"

	"github.com/redbco/redb-catalog/internal/authz"
	"github.com/redbco/redb-catalog/internal/catalogbackend"
	"github.com/redbco/redb-catalog/internal/catalogerr"
	"github.com/redbco/redb-catalog/internal/events"
	"github.com/redbco/redb-catalog/internal/ident"
)

// RenameTable moves a table to a (possibly different) namespace under a new
// name, atomically within one backend transaction.
func (e *Engine[B, A, S]) RenameTable(ctx context.Context, rm authz.RequestMetadata, warehouseID ident.WarehouseID, src ident.TableIdent, dst ident.TableIdent) (err error) {
	defer e.record(ctx, "rename_table", time.Now(), &err)

	if err = e.Authz.CheckRenameTable(ctx, rm, warehouseID, src); err != nil {
		return catalogerr.As(err)
	}

	tableID, rerr := e.Backend.TableIdentToID(ctx, warehouseID, src)
	if rerr != nil {
		return catalogerr.As(rerr)
	}
	if tableID == nil {
		return catalogerr.NotFound("table not found")
	}

	newNamespaceID, err := e.resolveNamespaceID(ctx, warehouseID, dst.Namespace)
	if err != nil {
		return err
	}

	txn, err := e.Backend.BeginWrite(ctx)
	if err != nil {
		return catalogerr.As(err)
	}
	defer func() { _ = txn.Rollback(ctx) }()

	if err = e.Backend.RenameTable(ctx, txn, *tableID, newNamespaceID, dst.Name); err != nil {
		return catalogerr.As(err)
	}
	if err = txn.Commit(ctx); err != nil {
		return catalogerr.As(err)
	}

	e.publish(ctx, events.Event{Type: events.TableRenamed, WarehouseID: warehouseID, NamespaceID: newNamespaceID,
		TabularID: ident.TableTabularID(*tableID), Timestamp: time.Now()})
	return nil
}

// RenameView mirrors RenameTable for views.
func (e *Engine[B, A, S]) RenameView(ctx context.Context, rm authz.RequestMetadata, warehouseID ident.WarehouseID, src ident.ViewIdent, dst ident.ViewIdent) (err error) {
	defer e.record(ctx, "rename_view", time.Now(), &err)

	if err = e.Authz.CheckRenameView(ctx, rm, warehouseID, src); err != nil {
		return catalogerr.As(err)
	}

	viewID, rerr := e.Backend.ViewIdentToID(ctx, warehouseID, src)
	if rerr != nil {
		return catalogerr.As(rerr)
	}
	if viewID == nil {
		return catalogerr.NotFound("view not found")
	}

	newNamespaceID, err := e.resolveNamespaceID(ctx, warehouseID, dst.Namespace)
	if err != nil {
		return err
	}

	txn, err := e.Backend.BeginWrite(ctx)
	if err != nil {
		return catalogerr.As(err)
	}
	defer func() { _ = txn.Rollback(ctx) }()

	if err = e.Backend.RenameView(ctx, txn, *viewID, newNamespaceID, dst.Name); err != nil {
		return catalogerr.As(err)
	}
	if err = txn.Commit(ctx); err != nil {
		return catalogerr.As(err)
	}

	e.publish(ctx, events.Event{Type: events.ViewRenamed, WarehouseID: warehouseID, NamespaceID: newNamespaceID,
		TabularID: ident.ViewTabularID(*viewID), Timestamp: time.Now()})
	return nil
}

// DropTable removes a table. Soft-deletion (state SoftDeleted with a
// scheduled expiration) is used when the warehouse's delete profile
// requests it; otherwise the row is purged immediately (spec §4.F.4,
// §4.F.6 state machine).
func (e *Engine[B, A, S]) DropTable(ctx context.Context, rm authz.RequestMetadata, warehouseID ident.WarehouseID, t ident.TableIdent, purge bool) (err error) {
	defer e.record(ctx, "drop_table", time.Now(), &err)

	if err = e.Authz.CheckDropTable(ctx, rm, warehouseID, t); err != nil {
		return catalogerr.As(err)
	}

	warehouse, werr := e.resolveWarehouse(ctx, warehouseID)
	if werr != nil {
		return werr
	}

	tableID, rerr := e.Backend.TableIdentToID(ctx, warehouseID, t)
	if rerr != nil {
		return catalogerr.As(rerr)
	}
	if tableID == nil {
		return catalogerr.NotFound("table not found")
	}

	txn, err := e.Backend.BeginWrite(ctx)
	if err != nil {
		return catalogerr.As(err)
	}
	defer func() { _ = txn.Rollback(ctx) }()

	if warehouse.TabularDeleteProfile.Soft {
		expiresAt := time.Now().Add(warehouse.TabularDeleteProfile.Grace)
		if err = e.Backend.MarkTableDeleted(ctx, txn, *tableID, catalogbackend.DeletionDetails{ExpirationAt: &expiresAt}); err != nil {
			return catalogerr.As(err)
		}
	} else {
		if err = e.Backend.DropTable(ctx, txn, *tableID, catalogbackend.DropFlags{HardDelete: true, Purge: purge}); err != nil {
			return catalogerr.As(err)
		}
	}
	if err = txn.Commit(ctx); err != nil {
		return catalogerr.As(err)
	}

	e.publish(ctx, events.Event{Type: events.TableDropped, WarehouseID: warehouseID, TabularID: ident.TableTabularID(*tableID), Timestamp: time.Now()})
	return nil
}

// DropView removes a view. Views carry no data files of their own, so
// dropping is always a hard delete of the catalog row, whatever the
// warehouse's delete profile says; the view's metadata object is not
// removed.
func (e *Engine[B, A, S]) DropView(ctx context.Context, rm authz.RequestMetadata, warehouseID ident.WarehouseID, v ident.ViewIdent) (err error) {
	defer e.record(ctx, "drop_view", time.Now(), &err)

	if err = e.Authz.CheckDropView(ctx, rm, warehouseID, v); err != nil {
		return catalogerr.As(err)
	}

	viewID, rerr := e.Backend.ViewIdentToID(ctx, warehouseID, v)
	if rerr != nil {
		return catalogerr.As(rerr)
	}
	if viewID == nil {
		return catalogerr.NotFound("view not found")
	}

	txn, err := e.Backend.BeginWrite(ctx)
	if err != nil {
		return catalogerr.As(err)
	}
	defer func() { _ = txn.Rollback(ctx) }()

	if err = e.Backend.DropView(ctx, txn, *viewID, catalogbackend.DropFlags{HardDelete: true}); err != nil {
		return catalogerr.As(err)
	}
	if err = txn.Commit(ctx); err != nil {
		return catalogerr.As(err)
	}

	e.publish(ctx, events.Event{Type: events.ViewDropped, WarehouseID: warehouseID, TabularID: ident.ViewTabularID(*viewID), Timestamp: time.Now()})
	return nil
}
