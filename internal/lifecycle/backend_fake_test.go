package lifecycle

import (
	"context"
	"sort"
	"time"

	"github.com/redbco/redb-catalog/internal/catalogbackend"
	"github.com/redbco/redb-catalog/internal/catalogerr"
	"github.com/redbco/redb-catalog/internal/ident"
	"github.com/redbco/redb-catalog/internal/pagination"
)

// fakeState is a deep-copyable in-memory snapshot of everything fakeBackend
// persists. BeginWrite clones it; Commit swaps the clone back in; Rollback
// simply discards it — the same copy-on-write shape the real Postgres
// backend gets for free from transaction isolation.
type fakeState struct {
	warehouses map[ident.WarehouseID]catalogbackend.Warehouse
	namespaces map[ident.NamespaceID]catalogbackend.Namespace
	nsIndex    map[string]ident.NamespaceID // warehouseID + "/" + ns.URLForm()
	tables     map[ident.TableID]*catalogbackend.Tabular
	tableJSON  map[ident.TableID]string
	tableIndex map[string]ident.TableID // warehouseID + "/" + ns.URLForm() + "/" + name
	views      map[ident.ViewID]*catalogbackend.Tabular
	viewIndex  map[string]ident.ViewID
}

func newFakeState() fakeState {
	return fakeState{
		warehouses: map[ident.WarehouseID]catalogbackend.Warehouse{},
		namespaces: map[ident.NamespaceID]catalogbackend.Namespace{},
		nsIndex:    map[string]ident.NamespaceID{},
		tables:     map[ident.TableID]*catalogbackend.Tabular{},
		tableJSON:  map[ident.TableID]string{},
		tableIndex: map[string]ident.TableID{},
		views:      map[ident.ViewID]*catalogbackend.Tabular{},
		viewIndex:  map[string]ident.ViewID{},
	}
}

func (s fakeState) clone() fakeState {
	out := newFakeState()
	for k, v := range s.warehouses {
		out.warehouses[k] = v
	}
	for k, v := range s.namespaces {
		out.namespaces[k] = v
	}
	for k, v := range s.nsIndex {
		out.nsIndex[k] = v
	}
	for k, v := range s.tables {
		cp := *v
		out.tables[k] = &cp
	}
	for k, v := range s.tableJSON {
		out.tableJSON[k] = v
	}
	for k, v := range s.tableIndex {
		out.tableIndex[k] = v
	}
	for k, v := range s.views {
		cp := *v
		out.views[k] = &cp
	}
	for k, v := range s.viewIndex {
		out.viewIndex[k] = v
	}
	return out
}

func nsKey(warehouseID ident.WarehouseID, n ident.NamespaceIdent) string {
	return warehouseID.String() + "/" + n.URLForm()
}

func tableKey(warehouseID ident.WarehouseID, t ident.TableIdent) string {
	return warehouseID.String() + "/" + t.Namespace.URLForm() + "/" + t.Name
}

func viewKey(warehouseID ident.WarehouseID, v ident.ViewIdent) string {
	return warehouseID.String() + "/" + v.Namespace.URLForm() + "/" + v.Name
}

// fakeBackend is a minimal in-memory catalogbackend.Backend used to exercise
// the lifecycle engine without a Postgres instance.
type fakeBackend struct {
	committed fakeState
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{committed: newFakeState()}
}

type fakeReadTxn struct{}

func (fakeReadTxn) Rollback(context.Context) error { return nil }

type fakeTxn struct {
	backend *fakeBackend
	state   fakeState
	done    bool
}

func (t *fakeTxn) Rollback(context.Context) error { return nil }

func (t *fakeTxn) Commit(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.backend.committed = t.state
	t.done = true
	return nil
}

func (b *fakeBackend) BeginRead(ctx context.Context) (catalogbackend.ReadTransaction, error) {
	return fakeReadTxn{}, nil
}

func (b *fakeBackend) BeginWrite(ctx context.Context) (catalogbackend.Transaction, error) {
	return &fakeTxn{backend: b, state: b.committed.clone()}, nil
}

func stateOf(tx catalogbackend.Transaction) *fakeState {
	return &tx.(*fakeTxn).state
}

func (b *fakeBackend) CreateWarehouse(ctx context.Context, tx catalogbackend.Transaction, w catalogbackend.Warehouse) error {
	stateOf(tx).warehouses[w.ID] = w
	return nil
}

func (b *fakeBackend) ListProjects(ctx context.Context) ([]ident.ProjectID, error) {
	seen := map[ident.ProjectID]bool{}
	var out []ident.ProjectID
	for _, w := range b.committed.warehouses {
		if !seen[w.ProjectID] {
			seen[w.ProjectID] = true
			out = append(out, w.ProjectID)
		}
	}
	return out, nil
}

func (b *fakeBackend) ListWarehouses(ctx context.Context, projectID ident.ProjectID, status *catalogbackend.WarehouseStatus) ([]catalogbackend.Warehouse, error) {
	var out []catalogbackend.Warehouse
	for _, w := range b.committed.warehouses {
		if w.ProjectID != projectID {
			continue
		}
		if status != nil && w.Status != *status {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

func (b *fakeBackend) GetWarehouse(ctx context.Context, id ident.WarehouseID) (*catalogbackend.Warehouse, error) {
	w, ok := b.committed.warehouses[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (b *fakeBackend) RenameWarehouse(ctx context.Context, tx catalogbackend.Transaction, id ident.WarehouseID, newName string) error {
	s := stateOf(tx)
	w, ok := s.warehouses[id]
	if !ok {
		return catalogerr.NotFound("warehouse not found")
	}
	w.Name = newName
	s.warehouses[id] = w
	return nil
}

func (b *fakeBackend) SetWarehouseStatus(ctx context.Context, tx catalogbackend.Transaction, id ident.WarehouseID, status catalogbackend.WarehouseStatus) error {
	s := stateOf(tx)
	w, ok := s.warehouses[id]
	if !ok {
		return catalogerr.NotFound("warehouse not found")
	}
	w.Status = status
	s.warehouses[id] = w
	return nil
}

func (b *fakeBackend) UpdateStorageProfile(ctx context.Context, tx catalogbackend.Transaction, id ident.WarehouseID, profileJSON string, secretID *ident.SecretID) error {
	s := stateOf(tx)
	w, ok := s.warehouses[id]
	if !ok {
		return catalogerr.NotFound("warehouse not found")
	}
	w.StorageProfileJSON = profileJSON
	w.StorageSecretID = secretID
	s.warehouses[id] = w
	return nil
}

func (b *fakeBackend) DeleteWarehouse(ctx context.Context, tx catalogbackend.Transaction, id ident.WarehouseID) error {
	delete(stateOf(tx).warehouses, id)
	return nil
}

func (b *fakeBackend) ListNamespaces(ctx context.Context, warehouseID ident.WarehouseID, parent ident.NamespaceIdent) ([]catalogbackend.Namespace, error) {
	var out []catalogbackend.Namespace
	for _, n := range b.committed.namespaces {
		if n.WarehouseID != warehouseID {
			continue
		}
		if len(n.Identifier) != len(parent)+1 {
			continue
		}
		if len(parent) > 0 && !n.Identifier[:len(parent)].Equal(parent) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (b *fakeBackend) CreateNamespace(ctx context.Context, tx catalogbackend.Transaction, n catalogbackend.Namespace) error {
	s := stateOf(tx)
	key := nsKey(n.WarehouseID, n.Identifier)
	if _, exists := s.nsIndex[key]; exists {
		return catalogerr.Conflict("namespace already exists")
	}
	s.namespaces[n.ID] = n
	s.nsIndex[key] = n.ID
	return nil
}

func (b *fakeBackend) GetNamespace(ctx context.Context, tx catalogbackend.ReadTransaction, warehouseID ident.WarehouseID, ident_ ident.NamespaceIdent) (*catalogbackend.Namespace, error) {
	id, ok := b.committed.nsIndex[nsKey(warehouseID, ident_)]
	if !ok {
		return nil, nil
	}
	n := b.committed.namespaces[id]
	return &n, nil
}

func (b *fakeBackend) NamespaceIdentToID(ctx context.Context, warehouseID ident.WarehouseID, ident_ ident.NamespaceIdent) (*ident.NamespaceID, error) {
	id, ok := b.committed.nsIndex[nsKey(warehouseID, ident_)]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

// isChildNamespace reports whether candidate is a strict descendant of
// parent, mirroring the prefix check postgres.isChildNamespace does in Go.
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

func (b *fakeBackend) DropNamespace(ctx context.Context, tx catalogbackend.Transaction, id ident.NamespaceID) error {
	s := stateOf(tx)
	n, ok := s.namespaces[id]
	if !ok {
		return catalogerr.NotFound("namespace not found")
	}

	for _, other := range s.namespaces {
		if other.WarehouseID == n.WarehouseID && isChildNamespace(n.Identifier, other.Identifier) {
			return catalogerr.Conflict("namespace still has child namespaces")
		}
	}
	for _, row := range s.tables {
		if row.NamespaceID == id && row.Status != catalogbackend.StatusSoftDeleted {
			return catalogerr.Conflict("namespace still has live children")
		}
	}
	for _, row := range s.views {
		if row.NamespaceID == id && row.Status != catalogbackend.StatusSoftDeleted {
			return catalogerr.Conflict("namespace still has live children")
		}
	}

	delete(s.namespaces, id)
	delete(s.nsIndex, nsKey(n.WarehouseID, n.Identifier))
	return nil
}

func (b *fakeBackend) UpdateNamespaceProperties(ctx context.Context, tx catalogbackend.Transaction, id ident.NamespaceID, properties map[string]string) error {
	s := stateOf(tx)
	n, ok := s.namespaces[id]
	if !ok {
		return catalogerr.NotFound("namespace not found")
	}
	n.Properties = properties
	s.namespaces[id] = n
	return nil
}

func (b *fakeBackend) CreateTable(ctx context.Context, tx catalogbackend.Transaction, t catalogbackend.TableCreate) error {
	s := stateOf(tx)
	n, ok := s.namespaces[t.NamespaceID]
	if !ok {
		return catalogerr.NotFound("namespace not found")
	}
	status := catalogbackend.StatusActive
	if t.MetadataLocation == nil {
		status = catalogbackend.StatusStaged
	}
	row := catalogbackend.Tabular{
		TabularID: ident.TableTabularID(t.TabularID), NamespaceID: t.NamespaceID, Identifier: t.Name,
		MetadataLocation: t.MetadataLocation, StorageLocation: t.StorageLocation, Status: status,
	}
	key := tableKey(n.WarehouseID, ident.TableIdent{Namespace: n.Identifier, Name: t.Name})
	if _, exists := s.tableIndex[key]; exists {
		return catalogerr.Conflict("table already exists")
	}
	s.tables[t.TabularID] = &row
	s.tableJSON[t.TabularID] = t.MetadataJSON
	s.tableIndex[key] = t.TabularID
	return nil
}

func (b *fakeBackend) ListTables(ctx context.Context, namespaceID ident.NamespaceID, flags catalogbackend.ListFlags, q pagination.Query) (pagination.Page[catalogbackend.Tabular], error) {
	var out []catalogbackend.Tabular
	for _, row := range b.committed.tables {
		if row.NamespaceID != namespaceID {
			continue
		}
		if !statusIncluded(row.Status, flags) {
			continue
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return pagination.Page[catalogbackend.Tabular]{Items: out}, nil
}

func statusIncluded(status catalogbackend.TabularStatus, flags catalogbackend.ListFlags) bool {
	switch status {
	case catalogbackend.StatusActive:
		return flags.IncludeActive
	case catalogbackend.StatusStaged:
		return flags.IncludeStaged
	case catalogbackend.StatusSoftDeleted, catalogbackend.StatusExpired:
		return flags.IncludeDeleted
	default:
		return false
	}
}

func (b *fakeBackend) TableIdentToID(ctx context.Context, warehouseID ident.WarehouseID, t ident.TableIdent) (*ident.TableID, error) {
	id, ok := b.committed.tableIndex[tableKey(warehouseID, t)]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

func (b *fakeBackend) TableIdentsToIDs(ctx context.Context, warehouseID ident.WarehouseID, ts []ident.TableIdent) (map[ident.TableIdent]ident.TableID, error) {
	out := map[ident.TableIdent]ident.TableID{}
	for _, t := range ts {
		if id, ok := b.committed.tableIndex[tableKey(warehouseID, t)]; ok {
			out[t] = id
		}
	}
	return out, nil
}

func (b *fakeBackend) LoadTablesByID(ctx context.Context, ids []ident.TableID, includeDeleted bool) ([]catalogbackend.Tabular, error) {
	var out []catalogbackend.Tabular
	for _, id := range ids {
		row, ok := b.committed.tables[id]
		if !ok {
			continue
		}
		if row.Status == catalogbackend.StatusSoftDeleted && !includeDeleted {
			continue
		}
		out = append(out, *row)
	}
	return out, nil
}

func (b *fakeBackend) GetTableByID(ctx context.Context, id ident.TableID) (*catalogbackend.Tabular, error) {
	row, ok := b.committed.tables[id]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (b *fakeBackend) GetTableByLocation(ctx context.Context, warehouseID ident.WarehouseID, location string) (*catalogbackend.Tabular, error) {
	for _, row := range b.committed.tables {
		if row.StorageLocation == location {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (b *fakeBackend) RenameTable(ctx context.Context, tx catalogbackend.Transaction, id ident.TableID, newNamespaceID ident.NamespaceID, newName string) error {
	s := stateOf(tx)
	row, ok := s.tables[id]
	if !ok {
		return catalogerr.NotFound("table not found")
	}
	oldNS := b.committed.namespaces[row.NamespaceID]
	newNS, ok := s.namespaces[newNamespaceID]
	if !ok {
		return catalogerr.NotFound("target namespace not found")
	}
	delete(s.tableIndex, tableKey(oldNS.WarehouseID, ident.TableIdent{Namespace: oldNS.Identifier, Name: row.Identifier}))
	row.NamespaceID = newNamespaceID
	row.Identifier = newName
	s.tableIndex[tableKey(newNS.WarehouseID, ident.TableIdent{Namespace: newNS.Identifier, Name: newName})] = id
	return nil
}

func (b *fakeBackend) DropTable(ctx context.Context, tx catalogbackend.Transaction, id ident.TableID, flags catalogbackend.DropFlags) error {
	s := stateOf(tx)
	row, ok := s.tables[id]
	if !ok {
		return catalogerr.NotFound("table not found")
	}
	n := b.committed.namespaces[row.NamespaceID]
	delete(s.tableIndex, tableKey(n.WarehouseID, ident.TableIdent{Namespace: n.Identifier, Name: row.Identifier}))
	delete(s.tables, id)
	delete(s.tableJSON, id)
	return nil
}

func (b *fakeBackend) MarkTableDeleted(ctx context.Context, tx catalogbackend.Transaction, id ident.TableID, deletion catalogbackend.DeletionDetails) error {
	s := stateOf(tx)
	row, ok := s.tables[id]
	if !ok {
		return catalogerr.NotFound("table not found")
	}
	row.Status = catalogbackend.StatusSoftDeleted
	row.Deletion = &deletion
	return nil
}

func (b *fakeBackend) CommitTableTransaction(ctx context.Context, tx catalogbackend.Transaction, proposals []catalogbackend.CommitProposal) error {
	s := stateOf(tx)
	// validate every proposal before applying any, for all-or-nothing
	// semantics (spec §4.F.2).
	for _, p := range proposals {
		row, ok := s.tables[p.TableID]
		if !ok {
			return catalogerr.NotFound("table not found")
		}
		if row.MetadataLocation == nil || *row.MetadataLocation != p.PreviousMetadataLocation {
			return catalogerr.Conflict("table metadata location changed concurrently")
		}
	}
	for _, p := range proposals {
		row := s.tables[p.TableID]
		loc := p.NewMetadataLocation
		row.MetadataLocation = &loc
		s.tableJSON[p.TableID] = p.NewMetadataJSON
	}
	return nil
}

func (b *fakeBackend) CreateView(ctx context.Context, tx catalogbackend.Transaction, v catalogbackend.ViewCreate) error {
	s := stateOf(tx)
	n, ok := s.namespaces[v.NamespaceID]
	if !ok {
		return catalogerr.NotFound("namespace not found")
	}
	loc := v.MetadataLocation
	row := catalogbackend.Tabular{
		TabularID: ident.ViewTabularID(v.TabularID), NamespaceID: v.NamespaceID, Identifier: v.Name,
		MetadataLocation: &loc, StorageLocation: v.StorageLocation, Status: catalogbackend.StatusActive,
	}
	key := viewKey(n.WarehouseID, ident.ViewIdent{Namespace: n.Identifier, Name: v.Name})
	if _, exists := s.viewIndex[key]; exists {
		return catalogerr.Conflict("view already exists")
	}
	s.views[v.TabularID] = &row
	s.viewIndex[key] = v.TabularID
	return nil
}

func (b *fakeBackend) LoadView(ctx context.Context, id ident.ViewID) (*catalogbackend.Tabular, error) {
	row, ok := b.committed.views[id]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (b *fakeBackend) ListViews(ctx context.Context, namespaceID ident.NamespaceID, flags catalogbackend.ListFlags, q pagination.Query) (pagination.Page[catalogbackend.Tabular], error) {
	var out []catalogbackend.Tabular
	for _, row := range b.committed.views {
		if row.NamespaceID != namespaceID {
			continue
		}
		if !statusIncluded(row.Status, flags) {
			continue
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return pagination.Page[catalogbackend.Tabular]{Items: out}, nil
}

func (b *fakeBackend) UpdateViewMetadata(ctx context.Context, tx catalogbackend.Transaction, id ident.ViewID, metadataJSON, metadataLocation string) error {
	s := stateOf(tx)
	row, ok := s.views[id]
	if !ok {
		return catalogerr.NotFound("view not found")
	}
	row.MetadataLocation = &metadataLocation
	return nil
}

func (b *fakeBackend) DropView(ctx context.Context, tx catalogbackend.Transaction, id ident.ViewID, flags catalogbackend.DropFlags) error {
	s := stateOf(tx)
	row, ok := s.views[id]
	if !ok {
		return catalogerr.NotFound("view not found")
	}
	n := b.committed.namespaces[row.NamespaceID]
	delete(s.viewIndex, viewKey(n.WarehouseID, ident.ViewIdent{Namespace: n.Identifier, Name: row.Identifier}))
	delete(s.views, id)
	return nil
}

func (b *fakeBackend) RenameView(ctx context.Context, tx catalogbackend.Transaction, id ident.ViewID, newNamespaceID ident.NamespaceID, newName string) error {
	s := stateOf(tx)
	row, ok := s.views[id]
	if !ok {
		return catalogerr.NotFound("view not found")
	}
	oldNS := b.committed.namespaces[row.NamespaceID]
	newNS, ok := s.namespaces[newNamespaceID]
	if !ok {
		return catalogerr.NotFound("target namespace not found")
	}
	delete(s.viewIndex, viewKey(oldNS.WarehouseID, ident.ViewIdent{Namespace: oldNS.Identifier, Name: row.Identifier}))
	row.NamespaceID = newNamespaceID
	row.Identifier = newName
	s.viewIndex[viewKey(newNS.WarehouseID, ident.ViewIdent{Namespace: newNS.Identifier, Name: newName})] = id
	return nil
}

func (b *fakeBackend) ViewIdentToID(ctx context.Context, warehouseID ident.WarehouseID, v ident.ViewIdent) (*ident.ViewID, error) {
	id, ok := b.committed.viewIndex[viewKey(warehouseID, v)]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

func (b *fakeBackend) ListTabulars(ctx context.Context, namespaceID ident.NamespaceID, flags catalogbackend.ListFlags, q pagination.Query) (pagination.Page[catalogbackend.Tabular], error) {
	tables, _ := b.ListTables(ctx, namespaceID, flags, q)
	views, _ := b.ListViews(ctx, namespaceID, flags, q)
	items := append(tables.Items, views.Items...)
	sort.Slice(items, func(i, j int) bool { return items[i].Identifier < items[j].Identifier })
	return pagination.Page[catalogbackend.Tabular]{Items: items}, nil
}

func (b *fakeBackend) ListExpiredTabulars(ctx context.Context, before time.Time, limit int) ([]catalogbackend.ExpiredTabular, error) {
	var out []catalogbackend.ExpiredTabular
	collect := func(warehouseID ident.WarehouseID, tid ident.TabularID, row *catalogbackend.Tabular) {
		if row.Status != catalogbackend.StatusSoftDeleted || row.Deletion == nil || row.Deletion.ExpirationAt == nil {
			return
		}
		if row.Deletion.ExpirationAt.After(before) {
			return
		}
		out = append(out, catalogbackend.ExpiredTabular{WarehouseID: warehouseID, TabularID: tid})
	}
	for _, row := range b.committed.tables {
		n := b.committed.namespaces[row.NamespaceID]
		collect(n.WarehouseID, row.TabularID, row)
	}
	for _, row := range b.committed.views {
		n := b.committed.namespaces[row.NamespaceID]
		collect(n.WarehouseID, row.TabularID, row)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (b *fakeBackend) Ping(ctx context.Context) error { return nil }
