package authz

import (
	"context"

	"github.com/redbco/redb-catalog/internal/ident"
)

// AllowAll authorizes every request. Used for development and for
// deployments that delegate authorization entirely to a network perimeter.
type AllowAll struct{}

func (AllowAll) CheckCreateNamespace(context.Context, RequestMetadata, ident.WarehouseID) error { return nil }
func (AllowAll) CheckCreateTable(context.Context, RequestMetadata, ident.WarehouseID, ident.NamespaceIdent) error {
	return nil
}
func (AllowAll) CheckCreateView(context.Context, RequestMetadata, ident.WarehouseID, ident.NamespaceIdent) error {
	return nil
}
func (AllowAll) CheckLoadTable(context.Context, RequestMetadata, ident.WarehouseID, ident.TableIdent) error {
	return nil
}
func (AllowAll) CheckLoadView(context.Context, RequestMetadata, ident.WarehouseID, ident.ViewIdent) error {
	return nil
}
func (AllowAll) CheckCommitTable(context.Context, RequestMetadata, ident.WarehouseID, ident.TableIdent) error {
	return nil
}
func (AllowAll) CheckRenameTable(context.Context, RequestMetadata, ident.WarehouseID, ident.TableIdent) error {
	return nil
}
func (AllowAll) CheckRenameView(context.Context, RequestMetadata, ident.WarehouseID, ident.ViewIdent) error {
	return nil
}
func (AllowAll) CheckDropTable(context.Context, RequestMetadata, ident.WarehouseID, ident.TableIdent) error {
	return nil
}
func (AllowAll) CheckDropView(context.Context, RequestMetadata, ident.WarehouseID, ident.ViewIdent) error {
	return nil
}
func (AllowAll) CheckListTabulars(context.Context, RequestMetadata, ident.WarehouseID, ident.NamespaceIdent) error {
	return nil
}
func (AllowAll) CheckDropNamespace(context.Context, RequestMetadata, ident.WarehouseID, ident.NamespaceIdent) error {
	return nil
}
func (a AllowAll) Clone() Authorizer { return a }
