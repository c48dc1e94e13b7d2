// Package postgres implements catalogbackend.Backend on top of pgx/pgxpool,
// grounded on the teacher's raw-SQL-via-pgxpool service style
// (services/core/internal/services/database): query strings, QueryRow/
// Query/Exec with manual Scan, pgx.ErrNoRows translated to a domain "not
// found" result. The transaction wrapper itself is grounded directly on
// pgx.Tx's own API, since the teacher's retrieved service files never open
// an explicit transaction.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redbco/redb-catalog/internal/catalogbackend"
	"github.com/redbco/redb-catalog/internal/catalogerr"
	"github.com/redbco/redb-catalog/internal/ident"
)

// Backend is the Postgres-backed catalogbackend.Backend implementation.
type Backend struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Backend {
	return &Backend{pool: pool}
}

func (b *Backend) Ping(ctx context.Context) error {
	if err := b.pool.Ping(ctx); err != nil {
		return catalogerr.StorageError("database ping failed", err)
	}
	return nil
}

// tx wraps a pgx.Tx. Dropping an uncommitted handle (the caller never calls
// Commit) rolls back on Rollback, matching the "drop means rollback"
// contract of spec §4.C.
type tx struct {
	pgtx pgx.Tx
}

func (t *tx) Commit(ctx context.Context) error {
	if err := t.pgtx.Commit(ctx); err != nil {
		return catalogerr.Internal("commit failed", err)
	}
	return nil
}

func (t *tx) Rollback(ctx context.Context) error {
	err := t.pgtx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return catalogerr.Internal("rollback failed", err)
	}
	return nil
}

func (b *Backend) BeginRead(ctx context.Context) (catalogbackend.ReadTransaction, error) {
	pgtx, err := b.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, catalogerr.Internal("failed to begin read transaction", err)
	}
	return &tx{pgtx: pgtx}, nil
}

func (b *Backend) BeginWrite(ctx context.Context) (catalogbackend.Transaction, error) {
	pgtx, err := b.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, catalogerr.Internal("failed to begin write transaction", err)
	}
	return &tx{pgtx: pgtx}, nil
}

func asPgTx(t catalogbackend.Transaction) pgx.Tx {
	return t.(*tx).pgtx
}

func asPgReadTx(t catalogbackend.ReadTransaction) pgx.Tx {
	if t == nil {
		return nil
	}
	return t.(*tx).pgtx
}

// --- Warehouse ops -------------------------------------------------------

func (b *Backend) CreateWarehouse(ctx context.Context, txn catalogbackend.Transaction, w catalogbackend.Warehouse) error {
	const query = `
		INSERT INTO warehouses (id, name, project_id, storage_profile, storage_secret_id, status, delete_profile_soft, delete_profile_grace_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	var secretID *string
	if w.StorageSecretID != nil {
		s := string(*w.StorageSecretID)
		secretID = &s
	}
	_, err := asPgTx(txn).Exec(ctx, query,
		w.ID.String(), w.Name, w.ProjectID.String(), w.StorageProfileJSON, secretID,
		w.Status == catalogbackend.WarehouseActive, w.TabularDeleteProfile.Soft, int64(w.TabularDeleteProfile.Grace.Seconds()))
	if err != nil {
		return mapUniqueViolation(err, "warehouse name already exists in project")
	}
	return nil
}

func (b *Backend) ListProjects(ctx context.Context) ([]ident.ProjectID, error) {
	rows, err := b.pool.Query(ctx, `SELECT DISTINCT project_id FROM warehouses`)
	if err != nil {
		return nil, catalogerr.Internal("failed to list projects", err)
	}
	defer rows.Close()

	var out []ident.ProjectID
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, catalogerr.Internal("failed to scan project id", err)
		}
		id, err := parseProjectID(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func (b *Backend) ListWarehouses(ctx context.Context, projectID ident.ProjectID, status *catalogbackend.WarehouseStatus) ([]catalogbackend.Warehouse, error) {
	query := `SELECT id, name, project_id, storage_profile, storage_secret_id, status, delete_profile_soft, delete_profile_grace_seconds
		FROM warehouses WHERE project_id = $1`
	args := []interface{}{projectID.String()}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status == catalogbackend.WarehouseActive)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, catalogerr.Internal("failed to list warehouses", err)
	}
	defer rows.Close()

	var out []catalogbackend.Warehouse
	for rows.Next() {
		w, err := scanWarehouse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

func (b *Backend) GetWarehouse(ctx context.Context, id ident.WarehouseID) (*catalogbackend.Warehouse, error) {
	const query = `SELECT id, name, project_id, storage_profile, storage_secret_id, status, delete_profile_soft, delete_profile_grace_seconds
		FROM warehouses WHERE id = $1 AND status = true`
	row := b.pool.QueryRow(ctx, query, id.String())
	w, err := scanWarehouseRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, catalogerr.Internal("failed to load warehouse", err)
	}
	return &w, nil
}

func (b *Backend) RenameWarehouse(ctx context.Context, txn catalogbackend.Transaction, id ident.WarehouseID, newName string) error {
	_, err := asPgTx(txn).Exec(ctx, `UPDATE warehouses SET name = $1 WHERE id = $2`, newName, id.String())
	if err != nil {
		return mapUniqueViolation(err, "warehouse name already exists in project")
	}
	return nil
}

func (b *Backend) SetWarehouseStatus(ctx context.Context, txn catalogbackend.Transaction, id ident.WarehouseID, status catalogbackend.WarehouseStatus) error {
	_, err := asPgTx(txn).Exec(ctx, `UPDATE warehouses SET status = $1 WHERE id = $2`,
		status == catalogbackend.WarehouseActive, id.String())
	if err != nil {
		return catalogerr.Internal("failed to set warehouse status", err)
	}
	return nil
}

func (b *Backend) UpdateStorageProfile(ctx context.Context, txn catalogbackend.Transaction, id ident.WarehouseID, profileJSON string, secretID *ident.SecretID) error {
	var s *string
	if secretID != nil {
		v := string(*secretID)
		s = &v
	}
	_, err := asPgTx(txn).Exec(ctx, `UPDATE warehouses SET storage_profile = $1, storage_secret_id = $2 WHERE id = $3`,
		profileJSON, s, id.String())
	if err != nil {
		return catalogerr.Internal("failed to update storage profile", err)
	}
	return nil
}

func (b *Backend) DeleteWarehouse(ctx context.Context, txn catalogbackend.Transaction, id ident.WarehouseID) error {
	var count int
	err := asPgTx(txn).QueryRow(ctx, `
		SELECT count(*) FROM tabulars t JOIN namespaces n ON t.namespace_id = n.id
		WHERE n.warehouse_id = $1 AND t.status != 'soft_deleted'
	`, id.String()).Scan(&count)
	if err != nil {
		return catalogerr.Internal("failed to check for live tabulars", err)
	}
	if count > 0 {
		return catalogerr.Conflict("warehouse still contains live tabulars")
	}

	_, err = asPgTx(txn).Exec(ctx, `DELETE FROM warehouses WHERE id = $1`, id.String())
	if err != nil {
		return catalogerr.Internal("failed to delete warehouse", err)
	}
	return nil
}

// --- Namespace ops --------------------------------------------------------

func (b *Backend) ListNamespaces(ctx context.Context, warehouseID ident.WarehouseID, parent ident.NamespaceIdent) ([]catalogbackend.Namespace, error) {
	const query = `SELECT id, warehouse_id, identifier, properties FROM namespaces WHERE warehouse_id = $1`
	rows, err := b.pool.Query(ctx, query, warehouseID.String())
	if err != nil {
		return nil, catalogerr.Internal("failed to list namespaces", err)
	}
	defer rows.Close()

	var out []catalogbackend.Namespace
	for rows.Next() {
		n, err := scanNamespace(rows)
		if err != nil {
			return nil, err
		}
		if len(parent) == 0 || isChildNamespace(parent, n.Identifier) {
			out = append(out, n)
		}
	}
	return out, nil
}

func isChildNamespace(parent, candidate ident.NamespaceIdent) bool {
	if len(candidate) <= len(parent) {
		return false
	}
	for i := range parent {
		if parent[i] != candidate[i] {
			return false
		}
	}
	return true
}

func (b *Backend) CreateNamespace(ctx context.Context, txn catalogbackend.Transaction, n catalogbackend.Namespace) error {
	const query = `INSERT INTO namespaces (id, warehouse_id, identifier, properties) VALUES ($1, $2, $3, $4)`
	_, err := asPgTx(txn).Exec(ctx, query, n.ID.String(), n.WarehouseID.String(), []string(n.Identifier), n.Properties)
	if err != nil {
		return mapUniqueViolation(err, "namespace already exists")
	}
	return nil
}

func (b *Backend) GetNamespace(ctx context.Context, rtx catalogbackend.ReadTransaction, warehouseID ident.WarehouseID, identifier ident.NamespaceIdent) (*catalogbackend.Namespace, error) {
	const query = `SELECT id, warehouse_id, identifier, properties FROM namespaces WHERE warehouse_id = $1 AND identifier = $2`
	var row pgx.Row
	if pgtx := asPgReadTx(rtx); pgtx != nil {
		row = pgtx.QueryRow(ctx, query, warehouseID.String(), []string(identifier))
	} else {
		row = b.pool.QueryRow(ctx, query, warehouseID.String(), []string(identifier))
	}
	n, err := scanNamespaceRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalogerr.NotFound("namespace not found")
		}
		return nil, catalogerr.Internal("failed to load namespace", err)
	}
	return &n, nil
}

func (b *Backend) NamespaceIdentToID(ctx context.Context, warehouseID ident.WarehouseID, identifier ident.NamespaceIdent) (*ident.NamespaceID, error) {
	const query = `
		SELECT n.id FROM namespaces n
		JOIN warehouses w ON n.warehouse_id = w.id
		WHERE n.warehouse_id = $1 AND n.identifier = $2 AND w.status = true
	`
	var s string
	err := b.pool.QueryRow(ctx, query, warehouseID.String(), []string(identifier)).Scan(&s)
	if err != nil {
		// Missing or inactive warehouse: empty result, never an error.
		return nil, nil
	}
	id, err := parseNamespaceID(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (b *Backend) DropNamespace(ctx context.Context, txn catalogbackend.Transaction, id ident.NamespaceID) error {
	var warehouseIDStr string
	var identifier []string
	err := asPgTx(txn).QueryRow(ctx, `SELECT warehouse_id, identifier FROM namespaces WHERE id = $1`, id.String()).Scan(&warehouseIDStr, &identifier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalogerr.NotFound("namespace not found")
		}
		return catalogerr.Internal("failed to load namespace", err)
	}

	rows, err := asPgTx(txn).Query(ctx, `SELECT identifier FROM namespaces WHERE warehouse_id = $1`, warehouseIDStr)
	if err != nil {
		return catalogerr.Internal("failed to check namespace children", err)
	}
	defer rows.Close()
	for rows.Next() {
		var candidate []string
		if err := rows.Scan(&candidate); err != nil {
			return catalogerr.Internal("failed to scan namespace identifier", err)
		}
		if isChildNamespace(ident.NamespaceIdent(identifier), ident.NamespaceIdent(candidate)) {
			return catalogerr.Conflict("namespace still has child namespaces")
		}
	}
	if err := rows.Err(); err != nil {
		return catalogerr.Internal("failed to check namespace children", err)
	}

	var count int
	err = asPgTx(txn).QueryRow(ctx, `
		SELECT count(*) FROM tabulars WHERE namespace_id = $1 AND status != 'soft_deleted'
	`, id.String()).Scan(&count)
	if err != nil {
		return catalogerr.Internal("failed to check namespace children", err)
	}
	if count > 0 {
		return catalogerr.Conflict("namespace still has live children")
	}

	_, err = asPgTx(txn).Exec(ctx, `DELETE FROM namespaces WHERE id = $1`, id.String())
	if err != nil {
		return catalogerr.Internal("failed to drop namespace", err)
	}
	return nil
}

func (b *Backend) UpdateNamespaceProperties(ctx context.Context, txn catalogbackend.Transaction, id ident.NamespaceID, properties map[string]string) error {
	_, err := asPgTx(txn).Exec(ctx, `UPDATE namespaces SET properties = $1 WHERE id = $2`, properties, id.String())
	if err != nil {
		return catalogerr.Internal("failed to update namespace properties", err)
	}
	return nil
}

// --- helpers --------------------------------------------------------------

func mapUniqueViolation(err error, message string) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return catalogerr.Conflict(message)
	}
	return catalogerr.Internal("database operation failed", err)
}

func isUniqueViolation(err error) bool {
	return containsSQLState(err, "23505")
}

func containsSQLState(err error, code string) bool {
	type sqlStater interface{ SQLState() string }
	var s sqlStater
	for e := err; e != nil; e = errors.Unwrap(e) {
		if ss, ok := e.(sqlStater); ok {
			s = ss
			break
		}
	}
	return s != nil && s.SQLState() == code
}

func parseProjectID(s string) (ident.ProjectID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ident.ProjectID{}, err
	}
	return ident.ProjectID(u), nil
}

func parseNamespaceID(s string) (ident.NamespaceID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ident.NamespaceID{}, err
	}
	return ident.NamespaceID(u), nil
}
