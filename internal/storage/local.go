package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/redbco/redb-catalog/internal/catalogerr"
	"github.com/redbco/redb-catalog/internal/ident"
	"github.com/redbco/redb-catalog/internal/secret"
)

// LocalProfile is the local-filesystem storage profile variant, used for
// development and tests. No pack dependency models a local object store,
// so this variant is necessarily backed by os/io directly.
type LocalProfile struct {
	RootDir string
}

func (p *LocalProfile) Variant() string { return "file" }

func (p *LocalProfile) BaseLocation(warehouseID ident.WarehouseID) ident.Location {
	return ident.Location{Scheme: "file", Authority: "local"}.Push(warehouseID.String())
}

func (p *LocalProfile) DefaultMetadataLocation(tabularLocation ident.Location, codec string, tabularUUID uuid.UUID) (ident.Location, error) {
	return defaultMetadataLocation(tabularLocation, codec, tabularUUID)
}

func (p *LocalProfile) IsAllowedLocation(warehouseID ident.WarehouseID, loc ident.Location) bool {
	return isAllowedLocation(p.BaseLocation(warehouseID), loc)
}

func (p *LocalProfile) path(loc ident.Location) string {
	return filepath.Join(append([]string{p.RootDir}, loc.Segments()...)...)
}

func (p *LocalProfile) WriteObject(ctx context.Context, loc ident.Location, data []byte, sec *secret.Secret) error {
	path := p.path(loc)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return catalogerr.StorageError("failed to create local directory", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return catalogerr.StorageError("failed to write local object", err)
	}
	return nil
}

func (p *LocalProfile) GenerateTableConfig(ctx context.Context, access DataAccess, sec *secret.Secret, tabularLocation ident.Location, perm Permission) (TableConfig, error) {
	return TableConfig{Properties: map[string]string{
		"file.root": strings.TrimSuffix(p.RootDir, "/"),
	}}, nil
}
