package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/apache/iceberg-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-catalog/internal/authz"
	"github.com/redbco/redb-catalog/internal/catalogbackend"
	"github.com/redbco/redb-catalog/internal/catalogconfig"
	"github.com/redbco/redb-catalog/internal/catalogerr"
	"github.com/redbco/redb-catalog/internal/events"
	"github.com/redbco/redb-catalog/internal/ident"
	"github.com/redbco/redb-catalog/internal/icebergmeta"
	"github.com/redbco/redb-catalog/internal/metrics"
	"github.com/redbco/redb-catalog/internal/secret"
	"github.com/redbco/redb-catalog/internal/storage"
)

type testHarness struct {
	engine      *Engine[*fakeBackend, authz.Authorizer, secret.Store]
	backend     *fakeBackend
	warehouseID ident.WarehouseID
	namespace   ident.NamespaceIdent
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	backend := newFakeBackend()
	engine := New[*fakeBackend, authz.Authorizer, secret.Store](
		backend, authz.AllowAll{}, secret.NewInlineStore(), events.NoopPublisher{}, metrics.Discard{},
		catalogconfig.Defaults{DefaultCodec: "", MaxPageSize: 1000, DefaultPageSize: 100}, nil,
	)

	ctx := context.Background()
	profile := &storage.LocalProfile{RootDir: t.TempDir()}
	warehouseID, err := engine.CreateWarehouse(ctx, ident.ProjectID{}, "test-warehouse", profile, nil,
		catalogbackend.TabularDeleteProfile{})
	require.NoError(t, err)

	ns, err := ident.NewNamespaceIdent("accounting")
	require.NoError(t, err)
	_, err = engine.CreateNamespace(ctx, authz.RequestMetadata{}, warehouseID, ns, nil)
	require.NoError(t, err)

	return &testHarness{engine: engine, backend: backend, warehouseID: warehouseID, namespace: ns}
}

func testSchema() *iceberg.Schema {
	return iceberg.NewSchema(0)
}

func TestCreateTableThenLoad(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	result, err := h.engine.CreateTable(ctx, authz.RequestMetadata{}, CreateTableRequest{
		WarehouseID: h.warehouseID, Namespace: h.namespace, Name: "orders", Schema: testSchema(),
	}, storage.DataAccessVendedCredentials)
	require.NoError(t, err)
	assert.Equal(t, catalogbackend.StatusActive, result.Tabular.Status)
	assert.NotNil(t, result.Tabular.MetadataLocation)
	assert.NotEmpty(t, result.MetadataJSON)

	loaded, err := h.engine.LoadTable(ctx, authz.RequestMetadata{}, h.warehouseID,
		ident.TableIdent{Namespace: h.namespace, Name: "orders"}, storage.DataAccessVendedCredentials)
	require.NoError(t, err)
	assert.Equal(t, result.Tabular.TabularID, loaded.Tabular.TabularID)
}

func TestCreateTableStageOnlyLeavesStagedStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	result, err := h.engine.CreateTable(ctx, authz.RequestMetadata{}, CreateTableRequest{
		WarehouseID: h.warehouseID, Namespace: h.namespace, Name: "orders", Schema: testSchema(), StageOnly: true,
	}, storage.DataAccessVendedCredentials)
	require.NoError(t, err)
	assert.Equal(t, catalogbackend.StatusStaged, result.Tabular.Status)
	assert.Nil(t, result.Tabular.MetadataLocation)
}

func TestCreateTableDuplicateNameConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := CreateTableRequest{WarehouseID: h.warehouseID, Namespace: h.namespace, Name: "orders", Schema: testSchema()}

	_, err := h.engine.CreateTable(ctx, authz.RequestMetadata{}, req, storage.DataAccessVendedCredentials)
	require.NoError(t, err)

	_, err = h.engine.CreateTable(ctx, authz.RequestMetadata{}, req, storage.DataAccessVendedCredentials)
	require.Error(t, err)
	assert.Equal(t, catalogerr.TypeConflict, catalogerr.As(err).Type)
}

func TestCreateTableMissingSchemaIsBadRequest(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.CreateTable(context.Background(), authz.RequestMetadata{}, CreateTableRequest{
		WarehouseID: h.warehouseID, Namespace: h.namespace, Name: "orders",
	}, storage.DataAccessVendedCredentials)
	require.Error(t, err)
	assert.Equal(t, catalogerr.TypeBadRequest, catalogerr.As(err).Type)
}

func TestCreateTableUnknownNamespaceNotFound(t *testing.T) {
	h := newHarness(t)
	missing, _ := ident.NewNamespaceIdent("does-not-exist")
	_, err := h.engine.CreateTable(context.Background(), authz.RequestMetadata{}, CreateTableRequest{
		WarehouseID: h.warehouseID, Namespace: missing, Name: "orders", Schema: testSchema(),
	}, storage.DataAccessVendedCredentials)
	require.Error(t, err)
	assert.Equal(t, catalogerr.TypeNotFound, catalogerr.As(err).Type)
}

func TestCreateTableOnInactiveWarehouseFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	inactive := catalogbackend.WarehouseInactive
	require.NoError(t, h.engine.SetWarehouseStatus(ctx, h.warehouseID, inactive))

	_, err := h.engine.CreateTable(ctx, authz.RequestMetadata{}, CreateTableRequest{
		WarehouseID: h.warehouseID, Namespace: h.namespace, Name: "orders", Schema: testSchema(),
	}, storage.DataAccessVendedCredentials)
	require.Error(t, err)
	assert.Equal(t, catalogerr.TypeWarehouseInactive, catalogerr.As(err).Type)
}

func TestCreateViewRequiresRepresentation(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.CreateView(context.Background(), authz.RequestMetadata{}, CreateViewRequest{
		WarehouseID: h.warehouseID, Namespace: h.namespace, Name: "active_orders", Schema: testSchema(),
	})
	require.Error(t, err)
	assert.Equal(t, catalogerr.TypeBadRequest, catalogerr.As(err).Type)
}

func TestCreateViewThenLoad(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	result, err := h.engine.CreateView(ctx, authz.RequestMetadata{}, CreateViewRequest{
		WarehouseID: h.warehouseID, Namespace: h.namespace, Name: "active_orders", Schema: testSchema(),
		Representations:  []icebergmeta.ViewRepresentation{{Type: "sql", SQL: "SELECT * FROM orders", Dialect: "trino"}},
		DefaultNamespace: h.namespace,
	})
	require.NoError(t, err)

	loaded, err := h.engine.LoadView(ctx, authz.RequestMetadata{}, h.warehouseID,
		ident.ViewIdent{Namespace: h.namespace, Name: "active_orders"})
	require.NoError(t, err)
	assert.Equal(t, result.Tabular.TabularID, loaded.TabularID)
}

func TestRenameTableAcrossNamespaces(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.engine.CreateTable(ctx, authz.RequestMetadata{}, CreateTableRequest{
		WarehouseID: h.warehouseID, Namespace: h.namespace, Name: "orders", Schema: testSchema(),
	}, storage.DataAccessVendedCredentials)
	require.NoError(t, err)

	otherNS, _ := ident.NewNamespaceIdent("archive")
	_, err = h.engine.CreateNamespace(ctx, authz.RequestMetadata{}, h.warehouseID, otherNS, nil)
	require.NoError(t, err)

	src := ident.TableIdent{Namespace: h.namespace, Name: "orders"}
	dst := ident.TableIdent{Namespace: otherNS, Name: "orders_2025"}
	require.NoError(t, h.engine.RenameTable(ctx, authz.RequestMetadata{}, h.warehouseID, src, dst))

	_, err = h.engine.LoadTable(ctx, authz.RequestMetadata{}, h.warehouseID, src, storage.DataAccessVendedCredentials)
	assert.Error(t, err, "renamed-away identifier must no longer resolve")

	loaded, err := h.engine.LoadTable(ctx, authz.RequestMetadata{}, h.warehouseID, dst, storage.DataAccessVendedCredentials)
	require.NoError(t, err)
	assert.Equal(t, "orders_2025", loaded.Tabular.Identifier)
}

func TestDropTableHardDeleteRemovesRow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.engine.CreateTable(ctx, authz.RequestMetadata{}, CreateTableRequest{
		WarehouseID: h.warehouseID, Namespace: h.namespace, Name: "orders", Schema: testSchema(),
	}, storage.DataAccessVendedCredentials)
	require.NoError(t, err)

	tbl := ident.TableIdent{Namespace: h.namespace, Name: "orders"}
	require.NoError(t, h.engine.DropTable(ctx, authz.RequestMetadata{}, h.warehouseID, tbl, true))

	_, err = h.engine.LoadTable(ctx, authz.RequestMetadata{}, h.warehouseID, tbl, storage.DataAccessVendedCredentials)
	assert.Error(t, err)
}

func TestDropTableSoftDeleteIsHiddenFromLoadButExpiresLater(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	engine := New[*fakeBackend, authz.Authorizer, secret.Store](
		backend, authz.AllowAll{}, secret.NewInlineStore(), events.NoopPublisher{}, metrics.Discard{},
		catalogconfig.Defaults{}, nil,
	)
	profile := &storage.LocalProfile{RootDir: t.TempDir()}
	warehouseID, err := engine.CreateWarehouse(ctx, ident.ProjectID{}, "soft-delete-wh", profile, nil,
		catalogbackend.TabularDeleteProfile{Soft: true, Grace: time.Hour})
	require.NoError(t, err)

	ns, _ := ident.NewNamespaceIdent("accounting")
	_, err = engine.CreateNamespace(ctx, authz.RequestMetadata{}, warehouseID, ns, nil)
	require.NoError(t, err)

	_, err = engine.CreateTable(ctx, authz.RequestMetadata{}, CreateTableRequest{
		WarehouseID: warehouseID, Namespace: ns, Name: "orders", Schema: testSchema(),
	}, storage.DataAccessVendedCredentials)
	require.NoError(t, err)

	tbl := ident.TableIdent{Namespace: ns, Name: "orders"}
	require.NoError(t, engine.DropTable(ctx, authz.RequestMetadata{}, warehouseID, tbl, false))

	_, err = engine.LoadTable(ctx, authz.RequestMetadata{}, warehouseID, tbl, storage.DataAccessVendedCredentials)
	assert.Error(t, err, "a soft-deleted table must not be loadable")

	// Not yet past its grace window: the sweeper should not pick it up.
	expired, err := engine.ListExpiredTabulars(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, expired)

	// Past the grace window: the sweeper should find and purge it.
	expired, err = engine.ListExpiredTabulars(ctx, time.Now().Add(2*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)

	require.NoError(t, engine.PurgeExpiredTabular(ctx, expired[0]))
	expired, err = engine.ListExpiredTabulars(ctx, time.Now().Add(2*time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestCommitTableAppliesOptimisticConcurrency(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, err := h.engine.CreateTable(ctx, authz.RequestMetadata{}, CreateTableRequest{
		WarehouseID: h.warehouseID, Namespace: h.namespace, Name: "orders", Schema: testSchema(),
	}, storage.DataAccessVendedCredentials)
	require.NoError(t, err)

	tableID, err := created.Tabular.TabularID.AsTable()
	require.NoError(t, err)

	ref := TableRef{
		ID:              tableID,
		CurrentMetadata: created.MetadataJSON,
		CurrentLocation: *created.Tabular.MetadataLocation,
	}

	result, err := h.engine.CommitTable(ctx, authz.RequestMetadata{}, h.warehouseID,
		ident.TableIdent{Namespace: h.namespace, Name: "orders"},
		TableCommitRequest{Table: ref, Properties: map[string]string{"owner": "data-eng"}})
	require.NoError(t, err)
	require.Len(t, result.Metadata, 1)

	// Committing again against the now-stale location must fail the whole
	// batch (spec §4.F.2 "all-or-nothing").
	_, err = h.engine.CommitTable(ctx, authz.RequestMetadata{}, h.warehouseID,
		ident.TableIdent{Namespace: h.namespace, Name: "orders"},
		TableCommitRequest{Table: ref, Properties: map[string]string{"owner": "someone-else"}})
	require.Error(t, err)
	assert.Equal(t, catalogerr.TypeConflict, catalogerr.As(err).Type)
}

func TestCommitTransactionRejectsEmptyBatch(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.CommitTransaction(context.Background(), authz.RequestMetadata{}, h.warehouseID,
		ident.TableIdent{Namespace: h.namespace, Name: "orders"}, nil)
	require.Error(t, err)
	assert.Equal(t, catalogerr.TypeBadRequest, catalogerr.As(err).Type)
}

func TestDropNamespaceRemovesIt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.engine.DropNamespace(ctx, authz.RequestMetadata{}, h.warehouseID, h.namespace))

	nss, err := h.engine.ListNamespaces(ctx, h.warehouseID, nil)
	require.NoError(t, err)
	assert.Empty(t, nss)
}

// TestDropNamespaceRejectsLiveChildNamespace guards spec §3 invariant 4:
// dropping a namespace with a live child namespace underneath it (even an
// empty one, with no tabulars of its own) must fail, not silently orphan
// the child.
func TestDropNamespaceRejectsLiveChildNamespace(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	child, err := ident.NewNamespaceIdent("accounting", "sub")
	require.NoError(t, err)
	_, err = h.engine.CreateNamespace(ctx, authz.RequestMetadata{}, h.warehouseID, child, nil)
	require.NoError(t, err)

	err = h.engine.DropNamespace(ctx, authz.RequestMetadata{}, h.warehouseID, h.namespace)
	require.Error(t, err)
	assert.Equal(t, catalogerr.TypeConflict, catalogerr.As(err).Type)

	nss, err := h.engine.ListNamespaces(ctx, h.warehouseID, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, nss, "parent namespace must not be removed while a child namespace still exists")
}

// TestDropNamespaceRejectsLiveTableInChildNamespace is the scenario from
// the review: dropping ["a"] while ["a","b"] holds a live table must fail,
// not just dropping ["a"] while a sibling namespace exists underneath it.
func TestDropNamespaceRejectsLiveTableInChildNamespace(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	child, err := ident.NewNamespaceIdent("accounting", "sub")
	require.NoError(t, err)
	_, err = h.engine.CreateNamespace(ctx, authz.RequestMetadata{}, h.warehouseID, child, nil)
	require.NoError(t, err)

	_, err = h.engine.CreateTable(ctx, authz.RequestMetadata{}, CreateTableRequest{
		WarehouseID: h.warehouseID, Namespace: child, Name: "orders", Schema: testSchema(),
	}, storage.DataAccessVendedCredentials)
	require.NoError(t, err)

	err = h.engine.DropNamespace(ctx, authz.RequestMetadata{}, h.warehouseID, h.namespace)
	require.Error(t, err)
	assert.Equal(t, catalogerr.TypeConflict, catalogerr.As(err).Type)
}

func TestWarehouseLifecycle(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	engine := New[*fakeBackend, authz.Authorizer, secret.Store](
		backend, authz.AllowAll{}, secret.NewInlineStore(), events.NoopPublisher{}, metrics.Discard{},
		catalogconfig.Defaults{}, nil,
	)

	projectID := ident.ProjectID{}
	profile := &storage.LocalProfile{RootDir: t.TempDir()}
	id, err := engine.CreateWarehouse(ctx, projectID, "primary", profile, nil, catalogbackend.TabularDeleteProfile{})
	require.NoError(t, err)

	projects, err := engine.ListProjects(ctx)
	require.NoError(t, err)
	assert.Contains(t, projects, projectID)

	require.NoError(t, engine.RenameWarehouse(ctx, id, "primary-renamed"))
	warehouses, err := engine.ListWarehouses(ctx, projectID, nil)
	require.NoError(t, err)
	require.Len(t, warehouses, 1)
	assert.Equal(t, "primary-renamed", warehouses[0].Name)

	newProfile := &storage.LocalProfile{RootDir: t.TempDir()}
	require.NoError(t, engine.UpdateStorageProfile(ctx, id, newProfile, nil))

	require.NoError(t, engine.DeleteWarehouse(ctx, id))
	warehouses, err = engine.ListWarehouses(ctx, projectID, nil)
	require.NoError(t, err)
	assert.Empty(t, warehouses)
}
