// Package authz defines the Authorizer interface: one check per lifecycle
// operation, invoked before any backend mutation. Authorizers are
// cloneable handles to shared state; the interface is async because checks
// may call an external policy service (spec §4.E).
package authz

import (
	"context"

	"github.com/redbco/redb-catalog/internal/ident"
)

// RequestMetadata carries the caller identity and trace context an
// Authorizer needs to make a decision.
type RequestMetadata struct {
	PrincipalID string
	TraceID     string
}

// Authorizer performs per-operation permission checks. A denial returns a
// *catalogerr.Error with Type Forbidden and a stable reason code; nothing
// else surfaces as an error from these methods.
type Authorizer interface {
	CheckCreateNamespace(ctx context.Context, rm RequestMetadata, warehouseID ident.WarehouseID) error
	CheckCreateTable(ctx context.Context, rm RequestMetadata, warehouseID ident.WarehouseID, ns ident.NamespaceIdent) error
	CheckCreateView(ctx context.Context, rm RequestMetadata, warehouseID ident.WarehouseID, ns ident.NamespaceIdent) error
	CheckLoadTable(ctx context.Context, rm RequestMetadata, warehouseID ident.WarehouseID, table ident.TableIdent) error
	CheckLoadView(ctx context.Context, rm RequestMetadata, warehouseID ident.WarehouseID, view ident.ViewIdent) error
	CheckCommitTable(ctx context.Context, rm RequestMetadata, warehouseID ident.WarehouseID, table ident.TableIdent) error
	CheckRenameTable(ctx context.Context, rm RequestMetadata, warehouseID ident.WarehouseID, src ident.TableIdent) error
	CheckRenameView(ctx context.Context, rm RequestMetadata, warehouseID ident.WarehouseID, src ident.ViewIdent) error
	CheckDropTable(ctx context.Context, rm RequestMetadata, warehouseID ident.WarehouseID, table ident.TableIdent) error
	CheckDropView(ctx context.Context, rm RequestMetadata, warehouseID ident.WarehouseID, view ident.ViewIdent) error
	CheckListTabulars(ctx context.Context, rm RequestMetadata, warehouseID ident.WarehouseID, ns ident.NamespaceIdent) error
	CheckDropNamespace(ctx context.Context, rm RequestMetadata, warehouseID ident.WarehouseID, ns ident.NamespaceIdent) error

	// Clone returns a handle safe to share across concurrent requests.
	Clone() Authorizer
}
