package authz

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redbco/redb-catalog/internal/catalogerr"
	"github.com/redbco/redb-catalog/internal/ident"
)

// Role is the set of permissions a principal holds on a warehouse.
type Role int

const (
	RoleNone Role = iota
	RoleViewer
	RoleEditor
	RoleAdmin
)

// StaticRBAC authorizes by looking up a principal's role on a warehouse in
// a `warehouse_role_bindings` table, grounded on the teacher's direct
// pgxpool query style (query string + QueryRow + manual Scan).
type StaticRBAC struct {
	pool *pgxpool.Pool
}

func NewStaticRBAC(pool *pgxpool.Pool) *StaticRBAC {
	return &StaticRBAC{pool: pool}
}

func (a *StaticRBAC) roleFor(ctx context.Context, principalID string, warehouseID ident.WarehouseID) (Role, error) {
	if principalID == "" {
		return RoleNone, nil
	}
	const query = `
		SELECT role FROM warehouse_role_bindings
		WHERE warehouse_id = $1 AND principal_id = $2
	`
	var roleStr string
	err := a.pool.QueryRow(ctx, query, warehouseID.String(), principalID).Scan(&roleStr)
	if err != nil {
		return RoleNone, nil // unbound principal: no role, not an error
	}
	switch roleStr {
	case "admin":
		return RoleAdmin, nil
	case "editor":
		return RoleEditor, nil
	case "viewer":
		return RoleViewer, nil
	default:
		return RoleNone, nil
	}
}

func (a *StaticRBAC) require(ctx context.Context, rm RequestMetadata, warehouseID ident.WarehouseID, min Role, action string) error {
	role, err := a.roleFor(ctx, rm.PrincipalID, warehouseID)
	if err != nil {
		return catalogerr.Internal("authorization lookup failed", err)
	}
	if role < min {
		return catalogerr.Forbidden(fmt.Sprintf("principal lacks permission to %s on warehouse %s", action, warehouseID))
	}
	return nil
}

func (a *StaticRBAC) CheckCreateNamespace(ctx context.Context, rm RequestMetadata, w ident.WarehouseID) error {
	return a.require(ctx, rm, w, RoleEditor, "create-namespace")
}
func (a *StaticRBAC) CheckCreateTable(ctx context.Context, rm RequestMetadata, w ident.WarehouseID, ns ident.NamespaceIdent) error {
	return a.require(ctx, rm, w, RoleEditor, "create-table")
}
func (a *StaticRBAC) CheckCreateView(ctx context.Context, rm RequestMetadata, w ident.WarehouseID, ns ident.NamespaceIdent) error {
	return a.require(ctx, rm, w, RoleEditor, "create-view")
}
func (a *StaticRBAC) CheckLoadTable(ctx context.Context, rm RequestMetadata, w ident.WarehouseID, t ident.TableIdent) error {
	return a.require(ctx, rm, w, RoleViewer, "load-table")
}
func (a *StaticRBAC) CheckLoadView(ctx context.Context, rm RequestMetadata, w ident.WarehouseID, v ident.ViewIdent) error {
	return a.require(ctx, rm, w, RoleViewer, "load-view")
}
func (a *StaticRBAC) CheckCommitTable(ctx context.Context, rm RequestMetadata, w ident.WarehouseID, t ident.TableIdent) error {
	return a.require(ctx, rm, w, RoleEditor, "commit-table")
}
func (a *StaticRBAC) CheckRenameTable(ctx context.Context, rm RequestMetadata, w ident.WarehouseID, t ident.TableIdent) error {
	return a.require(ctx, rm, w, RoleEditor, "rename-table")
}
func (a *StaticRBAC) CheckRenameView(ctx context.Context, rm RequestMetadata, w ident.WarehouseID, v ident.ViewIdent) error {
	return a.require(ctx, rm, w, RoleEditor, "rename-view")
}
func (a *StaticRBAC) CheckDropTable(ctx context.Context, rm RequestMetadata, w ident.WarehouseID, t ident.TableIdent) error {
	return a.require(ctx, rm, w, RoleAdmin, "drop-table")
}
func (a *StaticRBAC) CheckDropView(ctx context.Context, rm RequestMetadata, w ident.WarehouseID, v ident.ViewIdent) error {
	return a.require(ctx, rm, w, RoleAdmin, "drop-view")
}
func (a *StaticRBAC) CheckListTabulars(ctx context.Context, rm RequestMetadata, w ident.WarehouseID, ns ident.NamespaceIdent) error {
	return a.require(ctx, rm, w, RoleViewer, "list-tabulars")
}
func (a *StaticRBAC) CheckDropNamespace(ctx context.Context, rm RequestMetadata, w ident.WarehouseID, ns ident.NamespaceIdent) error {
	return a.require(ctx, rm, w, RoleAdmin, "drop-namespace")
}

func (a *StaticRBAC) Clone() Authorizer { return a }
