package icebergmeta

import (
	"encoding/json"
	"time"

	"github.com/apache/iceberg-go"
	"github.com/google/uuid"

	"github.com/redbco/redb-catalog/internal/catalogerr"
)

// ViewRepresentation is one query dialect the view's current version
// carries (the Iceberg REST spec supports "sql" representations today).
type ViewRepresentation struct {
	Type    string `json:"type"`
	SQL     string `json:"sql"`
	Dialect string `json:"dialect"`
}

// ViewVersion is one immutable entry in a view's version history.
type ViewVersion struct {
	VersionID       int64                `json:"version-id"`
	TimestampMs     int64                `json:"timestamp-ms"`
	SchemaID        int                  `json:"schema-id"`
	Summary         map[string]string    `json:"summary,omitempty"`
	Representations []ViewRepresentation `json:"representations"`
	DefaultCatalog  *string              `json:"default-catalog,omitempty"`
	DefaultNamespace []string            `json:"default-namespace"`
}

type viewVersionLogEntry struct {
	VersionID   int64 `json:"version-id"`
	TimestampMs int64 `json:"timestamp-ms"`
}

// ViewMetadata is the hand-built equivalent of iceberg-go's table.Metadata
// for views, following the Iceberg REST view-metadata JSON shape (no
// upstream library models this; see DESIGN.md).
type ViewMetadata struct {
	ViewUUID         string                `json:"view-uuid"`
	FormatVersion    int                   `json:"format-version"`
	Location         string                `json:"location"`
	CurrentVersionID int64                 `json:"current-version-id"`
	Versions         []ViewVersion         `json:"versions"`
	VersionLog       []viewVersionLogEntry `json:"version-log"`
	Schemas          []*iceberg.Schema     `json:"schemas"`
	Properties       map[string]string     `json:"properties,omitempty"`
}

// NewViewMetadata builds the first version of a view's metadata, grounded
// on the ViewMetadataBuilder::from_view_creation flow.
func NewViewMetadata(viewUUID uuid.UUID, location string, schema *iceberg.Schema, reps []ViewRepresentation, defaultNamespace []string, properties map[string]string) ViewMetadata {
	now := time.Now().UnixMilli()
	return ViewMetadata{
		ViewUUID:         viewUUID.String(),
		FormatVersion:    1,
		Location:         location,
		CurrentVersionID: 1,
		Schemas:          []*iceberg.Schema{schema},
		Properties:       properties,
		Versions: []ViewVersion{{
			VersionID:        1,
			TimestampMs:      now,
			SchemaID:         schema.ID,
			Representations:  reps,
			DefaultNamespace: defaultNamespace,
		}},
		VersionLog: []viewVersionLogEntry{{VersionID: 1, TimestampMs: now}},
	}
}

// ApplyViewCommit appends a new version built from the given representation
// set and schema, replacing CurrentVersionID.
func ApplyViewCommit(current ViewMetadata, schema *iceberg.Schema, reps []ViewRepresentation, defaultNamespace []string) ViewMetadata {
	now := time.Now().UnixMilli()
	nextVersionID := current.CurrentVersionID + 1

	schemaID := schema.ID
	found := false
	for _, s := range current.Schemas {
		if s.ID == schemaID {
			found = true
			break
		}
	}
	schemas := current.Schemas
	if !found {
		schemas = append(schemas, schema)
	}

	current.Schemas = schemas
	current.CurrentVersionID = nextVersionID
	current.Versions = append(current.Versions, ViewVersion{
		VersionID:        nextVersionID,
		TimestampMs:      now,
		SchemaID:         schemaID,
		Representations:  reps,
		DefaultNamespace: defaultNamespace,
	})
	current.VersionLog = append(current.VersionLog, viewVersionLogEntry{VersionID: nextVersionID, TimestampMs: now})
	return current
}

func MarshalViewMetadata(meta ViewMetadata) (string, error) {
	data, err := json.Marshal(meta)
	if err != nil {
		return "", catalogerr.Internal("failed to serialize view metadata", err)
	}
	return string(data), nil
}

func ParseViewMetadata(data []byte) (ViewMetadata, error) {
	var meta ViewMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return ViewMetadata{}, catalogerr.BadRequest("invalid view metadata", err)
	}
	return meta, nil
}
