package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/redbco/redb-catalog/internal/catalogbackend"
	"github.com/redbco/redb-catalog/internal/catalogerr"
	"github.com/redbco/redb-catalog/internal/ident"
)

func (b *Backend) CreateView(ctx context.Context, txn catalogbackend.Transaction, v catalogbackend.ViewCreate) error {
	const query = `
		INSERT INTO tabulars (id, namespace_id, name, kind, metadata_location, storage_location, metadata_json, status, created_at)
		VALUES ($1, $2, $3, 'view', $4, $5, $6, 'active', now())
	`
	_, err := asPgTx(txn).Exec(ctx, query,
		v.TabularID.String(), v.NamespaceID.String(), v.Name, v.MetadataLocation, v.StorageLocation, v.MetadataJSON)
	if err != nil {
		return mapUniqueViolation(err, fmt.Sprintf("view %s already exists in namespace", v.Name))
	}
	return nil
}

func (b *Backend) LoadView(ctx context.Context, id ident.ViewID) (*catalogbackend.Tabular, error) {
	const query = `
		SELECT id, namespace_id, name, metadata_location, storage_location, status,
		       expiration_task_id, expiration_at, deleted_at, created_at
		FROM tabulars WHERE id = $1 AND kind = 'view'
	`
	row := b.pool.QueryRow(ctx, query, id.String())
	t, err := scanTabularRow(row, ident.KindView)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, catalogerr.Internal("failed to load view", err)
	}
	return &t, nil
}

func (b *Backend) UpdateViewMetadata(ctx context.Context, txn catalogbackend.Transaction, id ident.ViewID, metadataJSON, metadataLocation string) error {
	_, err := asPgTx(txn).Exec(ctx, `
		UPDATE tabulars SET metadata_json = $1, metadata_location = $2 WHERE id = $3 AND kind = 'view'
	`, metadataJSON, metadataLocation, id.String())
	if err != nil {
		return catalogerr.Internal("failed to update view metadata", err)
	}
	return nil
}

func (b *Backend) DropView(ctx context.Context, txn catalogbackend.Transaction, id ident.ViewID, flags catalogbackend.DropFlags) error {
	if flags.HardDelete {
		_, err := asPgTx(txn).Exec(ctx, `DELETE FROM tabulars WHERE id = $1 AND kind = 'view'`, id.String())
		if err != nil {
			return catalogerr.Internal("failed to hard-delete view", err)
		}
		return nil
	}
	_, err := asPgTx(txn).Exec(ctx, `UPDATE tabulars SET status = 'soft_deleted', deleted_at = now() WHERE id = $1 AND kind = 'view'`, id.String())
	if err != nil {
		return catalogerr.Internal("failed to soft-delete view", err)
	}
	return nil
}

func (b *Backend) RenameView(ctx context.Context, txn catalogbackend.Transaction, id ident.ViewID, newNamespaceID ident.NamespaceID, newName string) error {
	_, err := asPgTx(txn).Exec(ctx, `UPDATE tabulars SET namespace_id = $1, name = $2 WHERE id = $3 AND kind = 'view'`,
		newNamespaceID.String(), newName, id.String())
	if err != nil {
		return mapUniqueViolation(err, fmt.Sprintf("view %s already exists in target namespace", newName))
	}
	return nil
}

func (b *Backend) ViewIdentToID(ctx context.Context, warehouseID ident.WarehouseID, v ident.ViewIdent) (*ident.ViewID, error) {
	const query = `
		SELECT tb.id FROM tabulars tb
		JOIN namespaces n ON tb.namespace_id = n.id
		WHERE n.warehouse_id = $1 AND n.identifier = $2 AND tb.name = $3 AND tb.kind = 'view' AND tb.status != 'soft_deleted'
	`
	var s string
	err := b.pool.QueryRow(ctx, query, warehouseID.String(), []string(v.Namespace), v.Name).Scan(&s)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, catalogerr.Internal("failed to resolve view identifier", err)
	}
	id, err := parseUUID(s)
	if err != nil {
		return nil, err
	}
	vid := ident.ViewID(id)
	return &vid, nil
}
