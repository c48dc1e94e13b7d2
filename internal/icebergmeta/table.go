// Package icebergmeta builds and serializes Iceberg table and view metadata
// JSON documents for the lifecycle engine. Table metadata is delegated to
// github.com/apache/iceberg-go's table package; view metadata has no
// upstream Go model yet, so it is hand-built to the same JSON shape the
// Iceberg REST spec defines for views.
package icebergmeta

import (
	"encoding/json"
	"fmt"

	"github.com/apache/iceberg-go"
	"github.com/apache/iceberg-go/table"

	"github.com/redbco/redb-catalog/internal/catalogerr"
)

// NewTableMetadata builds fresh, format-version 2 metadata for a table at
// location with the given schema and properties. Partitioning and sort
// order are left unspecified (unpartitioned, unsorted) until a later
// commit introduces them — the REST create-table request does not carry
// them in the minimal flow this engine supports.
func NewTableMetadata(schema *iceberg.Schema, location string, properties map[string]string) (table.Metadata, error) {
	props := iceberg.Properties{}
	for k, v := range properties {
		props[k] = v
	}
	props["format-version"] = "2"

	meta, err := table.NewMetadata(schema, iceberg.UnpartitionedSpec, table.UnsortedSortOrder, location, props)
	if err != nil {
		return nil, catalogerr.Internal("failed to build table metadata", err)
	}
	return meta, nil
}

// MarshalTableMetadata serializes metadata to the canonical JSON form
// written to the metadata file and returned to REST clients.
func MarshalTableMetadata(meta table.Metadata) (string, error) {
	data, err := json.Marshal(meta)
	if err != nil {
		return "", catalogerr.Internal("failed to serialize table metadata", err)
	}
	return string(data), nil
}

// ParseTableMetadata parses a previously-written metadata.json blob.
func ParseTableMetadata(data []byte) (table.Metadata, error) {
	meta, err := table.ParseMetadataBytes(data)
	if err != nil {
		return nil, catalogerr.BadRequest("invalid table metadata", err)
	}
	return meta, nil
}

// ApplyCommit builds the next table metadata revision from the current one
// plus a replacement schema and properties, mirroring the subset of
// table.Update operations this engine's commit flow needs (full schema
// evolution is out of scope; a commit replaces the schema wholesale and
// sets each given property key, leaving other existing keys in place).
func ApplyCommit(current table.Metadata, newSchema *iceberg.Schema, properties map[string]string) (table.Metadata, error) {
	builder, err := table.MetadataBuilderFromBase(current)
	if err != nil {
		return nil, catalogerr.Internal("failed to start metadata builder", err)
	}
	if newSchema != nil {
		if _, err := builder.AddSchema(newSchema); err != nil {
			return nil, catalogerr.Internal("failed to add schema", err)
		}
		if err := builder.SetCurrentSchemaID(-1); err != nil {
			return nil, catalogerr.Internal("failed to set current schema", err)
		}
	}
	for k, v := range properties {
		builder.SetProperties(iceberg.Properties{k: v})
	}
	next, err := builder.Build()
	if err != nil {
		return nil, catalogerr.Internal("failed to build next table metadata", err)
	}
	return next, nil
}

// MetadataFileName generates the "<version>-<uuid>.metadata.json" name the
// Iceberg spec uses for table and view metadata files alike.
func MetadataFileName(version int) (string, error) {
	if version < 0 {
		return "", fmt.Errorf("invalid metadata version: %d", version)
	}
	name, err := table.GenerateMetadataFileName(version)
	if err != nil {
		return "", catalogerr.Internal("failed to generate metadata file name", err)
	}
	return name, nil
}
