package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/redbco/redb-catalog/internal/catalogbackend"
	"github.com/redbco/redb-catalog/internal/catalogerr"
	"github.com/redbco/redb-catalog/internal/ident"
	"github.com/redbco/redb-catalog/internal/pagination"
)

// tabulars holds both tables and views in one row shape, distinguished by
// the `kind` column ('table' | 'view'); spec §3 describes this as the
// shared Tabular row.

func (b *Backend) CreateTable(ctx context.Context, txn catalogbackend.Transaction, t catalogbackend.TableCreate) error {
	const query = `
		INSERT INTO tabulars (id, namespace_id, name, kind, metadata_location, storage_location, metadata_json, status, created_at)
		VALUES ($1, $2, $3, 'table', $4, $5, $6, $7, now())
	`
	status := catalogbackend.StatusStaged
	if t.MetadataLocation != nil {
		status = catalogbackend.StatusActive
	}
	_, err := asPgTx(txn).Exec(ctx, query,
		t.TabularID.String(), t.NamespaceID.String(), t.Name, t.MetadataLocation, t.StorageLocation, t.MetadataJSON,
		tabularStatusString(status))
	if err != nil {
		return mapUniqueViolation(err, fmt.Sprintf("table %s already exists in namespace", t.Name))
	}
	return nil
}

func (b *Backend) ListTables(ctx context.Context, namespaceID ident.NamespaceID, flags catalogbackend.ListFlags, q pagination.Query) (pagination.Page[catalogbackend.Tabular], error) {
	return b.listTabulars(ctx, namespaceID, "table", flags, q)
}

func (b *Backend) ListViews(ctx context.Context, namespaceID ident.NamespaceID, flags catalogbackend.ListFlags, q pagination.Query) (pagination.Page[catalogbackend.Tabular], error) {
	return b.listTabulars(ctx, namespaceID, "view", flags, q)
}

func (b *Backend) ListTabulars(ctx context.Context, namespaceID ident.NamespaceID, flags catalogbackend.ListFlags, q pagination.Query) (pagination.Page[catalogbackend.Tabular], error) {
	return b.listTabulars(ctx, namespaceID, "", flags, q)
}

func (b *Backend) listTabulars(ctx context.Context, namespaceID ident.NamespaceID, kindFilter string, flags catalogbackend.ListFlags, q pagination.Query) (pagination.Page[catalogbackend.Tabular], error) {
	cursor, err := pagination.DecodeCursor(q.PageToken)
	if err != nil {
		return pagination.Page[catalogbackend.Tabular]{}, catalogerr.BadRequest("invalid page token", err)
	}
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	statuses := statusesFor(flags)
	if len(statuses) == 0 {
		return pagination.Page[catalogbackend.Tabular]{}, nil
	}

	query := `
		SELECT id, namespace_id, name, metadata_location, storage_location, status, kind,
		       expiration_task_id, expiration_at, deleted_at, created_at
		FROM tabulars
		WHERE namespace_id = $1 AND status = ANY($2) AND id > $3
	`
	args := []interface{}{namespaceID.String(), statuses, cursor.LastID.String()}
	if kindFilter != "" {
		query += ` AND kind = $4 ORDER BY id ASC LIMIT ` + fmt.Sprint(pageSize+1)
		args = append(args, kindFilter)
	} else {
		query += ` ORDER BY id ASC LIMIT ` + fmt.Sprint(pageSize+1)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return pagination.Page[catalogbackend.Tabular]{}, catalogerr.Internal("failed to list tabulars", err)
	}
	defer rows.Close()

	var items []catalogbackend.Tabular
	for rows.Next() {
		var kindStr string
		t, kind, err := scanTabularWithKind(rows, &kindStr)
		if err != nil {
			return pagination.Page[catalogbackend.Tabular]{}, catalogerr.Internal("failed to scan tabular row", err)
		}
		t.TabularID.Kind = kind
		items = append(items, t)
	}

	page := pagination.Page[catalogbackend.Tabular]{Items: items}
	if len(items) > pageSize {
		page.Items = items[:pageSize]
		last := page.Items[len(page.Items)-1]
		page.NextPageToken = pagination.Cursor{LastID: last.TabularID.UUID}.Encode()
	}
	return page, nil
}

func scanTabularWithKind(rows pgx.Rows, kindStr *string) (catalogbackend.Tabular, ident.TabularKind, error) {
	var (
		idStr, namespaceIDStr, name, storageLocation, statusStr string
		metadataLocation                                        *string
		expirationTaskID                                        *string
	)
	t, err := func() (catalogbackend.Tabular, error) {
		var expirationAt, deletedAt, createdAt interface{}
		if err := rows.Scan(&idStr, &namespaceIDStr, &name, &metadataLocation, &storageLocation, &statusStr, kindStr,
			&expirationTaskID, &expirationAt, &deletedAt, &createdAt); err != nil {
			return catalogbackend.Tabular{}, err
		}
		id, err := parseUUID(idStr)
		if err != nil {
			return catalogbackend.Tabular{}, err
		}
		nsID, err := parseUUID(namespaceIDStr)
		if err != nil {
			return catalogbackend.Tabular{}, err
		}
		return catalogbackend.Tabular{
			TabularID:        ident.TabularID{UUID: id},
			NamespaceID:      ident.NamespaceID(nsID),
			Identifier:       name,
			MetadataLocation: metadataLocation,
			StorageLocation:  storageLocation,
			Status:           parseTabularStatus(statusStr),
		}, nil
	}()
	if err != nil {
		return catalogbackend.Tabular{}, ident.KindTable, err
	}
	kind := ident.KindTable
	if *kindStr == "view" {
		kind = ident.KindView
	}
	return t, kind, nil
}

func statusesFor(flags catalogbackend.ListFlags) []string {
	var out []string
	if flags.IncludeActive {
		out = append(out, "active")
	}
	if flags.IncludeStaged {
		out = append(out, "staged")
	}
	if flags.IncludeDeleted {
		out = append(out, "soft_deleted", "expired")
	}
	return out
}

func (b *Backend) TableIdentToID(ctx context.Context, warehouseID ident.WarehouseID, t ident.TableIdent) (*ident.TableID, error) {
	const query = `
		SELECT tb.id FROM tabulars tb
		JOIN namespaces n ON tb.namespace_id = n.id
		WHERE n.warehouse_id = $1 AND n.identifier = $2 AND tb.name = $3 AND tb.kind = 'table' AND tb.status != 'soft_deleted'
	`
	var s string
	err := b.pool.QueryRow(ctx, query, warehouseID.String(), []string(t.Namespace), t.Name).Scan(&s)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, catalogerr.Internal("failed to resolve table identifier", err)
	}
	id, err := parseUUID(s)
	if err != nil {
		return nil, err
	}
	tid := ident.TableID(id)
	return &tid, nil
}

func (b *Backend) TableIdentsToIDs(ctx context.Context, warehouseID ident.WarehouseID, ts []ident.TableIdent) (map[ident.TableIdent]ident.TableID, error) {
	out := make(map[ident.TableIdent]ident.TableID, len(ts))
	for _, t := range ts {
		id, err := b.TableIdentToID(ctx, warehouseID, t)
		if err != nil {
			return nil, err
		}
		if id != nil {
			out[t] = *id
		}
	}
	return out, nil
}

func (b *Backend) LoadTablesByID(ctx context.Context, ids []ident.TableID, includeDeleted bool) ([]catalogbackend.Tabular, error) {
	out := make([]catalogbackend.Tabular, 0, len(ids))
	for _, id := range ids {
		t, err := b.GetTableByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if t == nil {
			continue
		}
		if !includeDeleted && t.Status == catalogbackend.StatusSoftDeleted {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (b *Backend) GetTableByID(ctx context.Context, id ident.TableID) (*catalogbackend.Tabular, error) {
	const query = `
		SELECT id, namespace_id, name, metadata_location, storage_location, status,
		       expiration_task_id, expiration_at, deleted_at, created_at
		FROM tabulars WHERE id = $1 AND kind = 'table'
	`
	row := b.pool.QueryRow(ctx, query, id.String())
	t, err := scanTabularRow(row, ident.KindTable)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, catalogerr.Internal("failed to load table", err)
	}
	return &t, nil
}

func (b *Backend) GetTableByLocation(ctx context.Context, warehouseID ident.WarehouseID, location string) (*catalogbackend.Tabular, error) {
	const query = `
		SELECT tb.id, tb.namespace_id, tb.name, tb.metadata_location, tb.storage_location, tb.status,
		       tb.expiration_task_id, tb.expiration_at, tb.deleted_at, tb.created_at
		FROM tabulars tb
		JOIN namespaces n ON tb.namespace_id = n.id
		WHERE n.warehouse_id = $1 AND tb.storage_location = $2 AND tb.kind = 'table'
	`
	row := b.pool.QueryRow(ctx, query, warehouseID.String(), location)
	t, err := scanTabularRow(row, ident.KindTable)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, catalogerr.Internal("failed to load table by location", err)
	}
	return &t, nil
}

func (b *Backend) RenameTable(ctx context.Context, txn catalogbackend.Transaction, id ident.TableID, newNamespaceID ident.NamespaceID, newName string) error {
	_, err := asPgTx(txn).Exec(ctx, `UPDATE tabulars SET namespace_id = $1, name = $2 WHERE id = $3 AND kind = 'table'`,
		newNamespaceID.String(), newName, id.String())
	if err != nil {
		return mapUniqueViolation(err, fmt.Sprintf("table %s already exists in target namespace", newName))
	}
	return nil
}

func (b *Backend) DropTable(ctx context.Context, txn catalogbackend.Transaction, id ident.TableID, flags catalogbackend.DropFlags) error {
	if flags.HardDelete {
		_, err := asPgTx(txn).Exec(ctx, `DELETE FROM tabulars WHERE id = $1 AND kind = 'table'`, id.String())
		if err != nil {
			return catalogerr.Internal("failed to hard-delete table", err)
		}
		return nil
	}
	_, err := asPgTx(txn).Exec(ctx, `UPDATE tabulars SET status = 'soft_deleted', deleted_at = now() WHERE id = $1 AND kind = 'table'`, id.String())
	if err != nil {
		return catalogerr.Internal("failed to soft-delete table", err)
	}
	return nil
}

func (b *Backend) MarkTableDeleted(ctx context.Context, txn catalogbackend.Transaction, id ident.TableID, deletion catalogbackend.DeletionDetails) error {
	_, err := asPgTx(txn).Exec(ctx, `
		UPDATE tabulars SET status = 'soft_deleted', expiration_task_id = $1, expiration_at = $2, deleted_at = now()
		WHERE id = $3 AND kind = 'table'
	`, deletion.ExpirationTaskID, deletion.ExpirationAt, id.String())
	if err != nil {
		return catalogerr.Internal("failed to mark table deleted", err)
	}
	return nil
}

// ListExpiredTabulars finds soft-deleted rows across every warehouse whose
// expiration_at has passed, for the sweeper to purge (spec §4.F.4). Tables
// and views share the tabulars table, so one query covers both.
func (b *Backend) ListExpiredTabulars(ctx context.Context, before time.Time, limit int) ([]catalogbackend.ExpiredTabular, error) {
	const query = `
		SELECT n.warehouse_id, tb.id, tb.kind
		FROM tabulars tb
		JOIN namespaces n ON tb.namespace_id = n.id
		WHERE tb.status = 'soft_deleted' AND tb.expiration_at IS NOT NULL AND tb.expiration_at < $1
		ORDER BY tb.expiration_at ASC
		LIMIT $2
	`
	rows, err := b.pool.Query(ctx, query, before, limit)
	if err != nil {
		return nil, catalogerr.Internal("failed to list expired tabulars", err)
	}
	defer rows.Close()

	var out []catalogbackend.ExpiredTabular
	for rows.Next() {
		var warehouseIDStr, idStr, kindStr string
		if err := rows.Scan(&warehouseIDStr, &idStr, &kindStr); err != nil {
			return nil, catalogerr.Internal("failed to scan expired tabular row", err)
		}
		warehouseID, err := parseUUID(warehouseIDStr)
		if err != nil {
			return nil, err
		}
		id, err := parseUUID(idStr)
		if err != nil {
			return nil, err
		}
		kind := ident.KindTable
		if kindStr == "view" {
			kind = ident.KindView
		}
		out = append(out, catalogbackend.ExpiredTabular{
			WarehouseID: ident.WarehouseID(warehouseID),
			TabularID:   ident.TabularID{Kind: kind, UUID: id},
		})
	}
	return out, nil
}

// CommitTableTransaction applies a batch of metadata-pointer swaps under
// optimistic concurrency: each proposal's PreviousMetadataLocation must
// still match the row's current metadata_location, or the whole batch
// aborts with Conflict (spec §4.F.2 — all-or-nothing).
func (b *Backend) CommitTableTransaction(ctx context.Context, txn catalogbackend.Transaction, proposals []catalogbackend.CommitProposal) error {
	pgtx := asPgTx(txn)
	for _, p := range proposals {
		tag, err := pgtx.Exec(ctx, `
			UPDATE tabulars
			SET metadata_location = $1, metadata_json = $2, status = 'active'
			WHERE id = $3 AND kind = 'table' AND metadata_location = $4
		`, p.NewMetadataLocation, p.NewMetadataJSON, p.TableID.String(), p.PreviousMetadataLocation)
		if err != nil {
			return catalogerr.Internal("failed to apply commit", err)
		}
		if tag.RowsAffected() == 0 {
			return catalogerr.Conflict(fmt.Sprintf("table %s metadata_location changed concurrently", p.TableID))
		}
	}
	return nil
}
