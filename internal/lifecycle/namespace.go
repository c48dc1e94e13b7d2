package lifecycle

import (
	"context"
	"time"

	"github.com/redbco/redb-catalog/internal/authz"
	"github.com/redbco/redb-catalog/internal/catalogbackend"
	"github.com/redbco/redb-catalog/internal/catalogerr"
	"github.com/redbco/redb-catalog/internal/ident"
)

// CreateNamespace is a thin authorize-then-insert passthrough: namespaces
// carry no storage of their own, so there is no location/metadata step to
// orchestrate (spec §4.F note on warehouse/namespace passthroughs).
func (e *Engine[B, A, S]) CreateNamespace(ctx context.Context, rm authz.RequestMetadata, warehouseID ident.WarehouseID, nsIdent ident.NamespaceIdent, properties map[string]string) (namespaceID ident.NamespaceID, err error) {
	defer e.record(ctx, "create_namespace", time.Now(), &err)

	if err = e.Authz.CheckCreateNamespace(ctx, rm, warehouseID); err != nil {
		return ident.NamespaceID{}, catalogerr.As(err)
	}

	uuidVal, uerr := ident.NewV7()
	if uerr != nil {
		return ident.NamespaceID{}, catalogerr.Internal("failed to mint namespace id", uerr)
	}
	id := ident.NamespaceID(uuidVal)

	txn, err := e.Backend.BeginWrite(ctx)
	if err != nil {
		return ident.NamespaceID{}, catalogerr.As(err)
	}
	defer func() { _ = txn.Rollback(ctx) }()

	if err = e.Backend.CreateNamespace(ctx, txn, catalogbackend.Namespace{
		ID: id, WarehouseID: warehouseID, Identifier: nsIdent, Properties: properties,
	}); err != nil {
		return ident.NamespaceID{}, catalogerr.As(err)
	}
	if err = txn.Commit(ctx); err != nil {
		return ident.NamespaceID{}, catalogerr.As(err)
	}
	return id, nil
}

// ListNamespaces passes through to the backend after confirming the
// warehouse exists and is active.
func (e *Engine[B, A, S]) ListNamespaces(ctx context.Context, warehouseID ident.WarehouseID, parent ident.NamespaceIdent) ([]catalogbackend.Namespace, error) {
	if _, err := e.resolveWarehouse(ctx, warehouseID); err != nil {
		return nil, err
	}
	ns, err := e.Backend.ListNamespaces(ctx, warehouseID, parent)
	if err != nil {
		return nil, catalogerr.As(err)
	}
	return ns, nil
}

// DropNamespace removes an empty namespace; the backend itself enforces the
// "no live children" invariant, rejecting the drop with Conflict if any
// child namespace or live tabular still exists underneath it (spec §3
// invariant 4, spec §4.C DropNamespace).
func (e *Engine[B, A, S]) DropNamespace(ctx context.Context, rm authz.RequestMetadata, warehouseID ident.WarehouseID, nsIdent ident.NamespaceIdent) (err error) {
	defer e.record(ctx, "drop_namespace", time.Now(), &err)

	if err = e.Authz.CheckDropNamespace(ctx, rm, warehouseID, nsIdent); err != nil {
		return catalogerr.As(err)
	}

	namespaceID, nerr := e.resolveNamespaceID(ctx, warehouseID, nsIdent)
	if nerr != nil {
		return nerr
	}

	txn, err := e.Backend.BeginWrite(ctx)
	if err != nil {
		return catalogerr.As(err)
	}
	defer func() { _ = txn.Rollback(ctx) }()

	if err = e.Backend.DropNamespace(ctx, txn, namespaceID); err != nil {
		return catalogerr.As(err)
	}
	if err = txn.Commit(ctx); err != nil {
		return catalogerr.As(err)
	}
	return nil
}
