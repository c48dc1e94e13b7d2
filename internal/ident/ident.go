// Package ident defines the nominal identifier types and namespace/table/view
// identifiers used throughout the catalog backend and lifecycle engine.
package ident

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewV7 mints a time-ordered identifier. Insertion order is recoverable from
// the id itself, which pagination and object-path layout both depend on.
func NewV7() (uuid.UUID, error) {
	return uuid.NewV7()
}

// ProjectID, WarehouseID, NamespaceID, TableID and ViewID are distinct
// nominal types over uuid.UUID; the Go compiler rejects mixing them even
// though they share an underlying representation.
type (
	ProjectID   uuid.UUID
	WarehouseID uuid.UUID
	NamespaceID uuid.UUID
	TableID     uuid.UUID
	ViewID      uuid.UUID
)

func (id ProjectID) String() string   { return uuid.UUID(id).String() }
func (id WarehouseID) String() string { return uuid.UUID(id).String() }
func (id NamespaceID) String() string { return uuid.UUID(id).String() }
func (id TableID) String() string     { return uuid.UUID(id).String() }
func (id ViewID) String() string      { return uuid.UUID(id).String() }

// TabularKind tags which half of the Table|View union a TabularID carries.
type TabularKind int

const (
	KindTable TabularKind = iota
	KindView
)

func (k TabularKind) String() string {
	if k == KindView {
		return "view"
	}
	return "table"
}

// TabularID is the tagged union `{Table(UUID) | View(UUID)}`. The tag is
// persisted alongside the uuid and carried in object paths.
type TabularID struct {
	Kind TabularKind
	UUID uuid.UUID
}

func TableTabularID(id TableID) TabularID { return TabularID{Kind: KindTable, UUID: uuid.UUID(id)} }
func ViewTabularID(id ViewID) TabularID   { return TabularID{Kind: KindView, UUID: uuid.UUID(id)} }

// AsTable returns the wrapped TableID, or an error if this union holds a view.
func (t TabularID) AsTable() (TableID, error) {
	if t.Kind != KindTable {
		return TableID{}, fmt.Errorf("tabular id %s is a view, not a table", t.UUID)
	}
	return TableID(t.UUID), nil
}

// AsView returns the wrapped ViewID, or an error if this union holds a table.
func (t TabularID) AsView() (ViewID, error) {
	if t.Kind != KindView {
		return ViewID{}, fmt.Errorf("tabular id %s is a table, not a view", t.UUID)
	}
	return ViewID(t.UUID), nil
}

func (t TabularID) String() string {
	return fmt.Sprintf("%s:%s", t.Kind, t.UUID)
}

// SecretID is an opaque handle resolved by the Secret Store; it carries no
// structure the engine is allowed to interpret.
type SecretID string

// NamespaceIdent is an ordered, non-empty sequence of string components
// (Iceberg multi-level namespaces).
type NamespaceIdent []string

// NamespaceDelimiter is the separator used by the Iceberg REST spec to join
// namespace levels in URL path segments (the unit separator, \x1f).
const NamespaceDelimiter = "\x1f"

func NewNamespaceIdent(parts ...string) (NamespaceIdent, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("namespace identifier must have at least one component")
	}
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("namespace identifier components must be non-empty")
		}
	}
	out := make(NamespaceIdent, len(parts))
	copy(out, parts)
	return out, nil
}

// URLForm joins the namespace's components using the REST spec delimiter.
func (n NamespaceIdent) URLForm() string {
	return strings.Join(n, NamespaceDelimiter)
}

func (n NamespaceIdent) Equal(other NamespaceIdent) bool {
	if len(n) != len(other) {
		return false
	}
	for i := range n {
		if n[i] != other[i] {
			return false
		}
	}
	return true
}

func (n NamespaceIdent) String() string {
	return strings.Join(n, ".")
}

// forbiddenNameChars matches characters the Iceberg spec disallows in a
// table or view name (REST path segments cannot carry these unescaped).
const forbiddenNameChars = "/\x1f"

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name must be non-empty")
	}
	if strings.ContainsAny(name, forbiddenNameChars) {
		return fmt.Errorf("name %q contains a forbidden character", name)
	}
	return nil
}

// TableIdent is a (NamespaceIdent, name) pair.
type TableIdent struct {
	Namespace NamespaceIdent
	Name      string
}

func NewTableIdent(ns NamespaceIdent, name string) (TableIdent, error) {
	if err := validateName(name); err != nil {
		return TableIdent{}, err
	}
	return TableIdent{Namespace: ns, Name: name}, nil
}

func (t TableIdent) String() string {
	return fmt.Sprintf("%s.%s", t.Namespace, t.Name)
}

// ViewIdent is a (NamespaceIdent, name) pair, disjoint from the table
// namespace of the same parent namespace.
type ViewIdent struct {
	Namespace NamespaceIdent
	Name      string
}

func NewViewIdent(ns NamespaceIdent, name string) (ViewIdent, error) {
	if err := validateName(name); err != nil {
		return ViewIdent{}, err
	}
	return ViewIdent{Namespace: ns, Name: name}, nil
}

func (v ViewIdent) String() string {
	return fmt.Sprintf("%s.%s", v.Namespace, v.Name)
}
