package storage

import (
	"context"
	"fmt"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/redbco/redb-catalog/internal/catalogerr"
	"github.com/redbco/redb-catalog/internal/ident"
	"github.com/redbco/redb-catalog/internal/secret"
)

// GCSProfile is the Google Cloud Storage storage profile variant.
type GCSProfile struct {
	Bucket    string
	KeyPrefix string
}

func (p *GCSProfile) Variant() string { return "gcs" }

func (p *GCSProfile) BaseLocation(warehouseID ident.WarehouseID) ident.Location {
	segments := []string{}
	if p.KeyPrefix != "" {
		segments = strings.Split(strings.Trim(p.KeyPrefix, "/"), "/")
	}
	segments = append(segments, warehouseID.String())
	loc := ident.Location{Scheme: "gs", Authority: p.Bucket}
	for _, s := range segments {
		loc = loc.Push(s)
	}
	return loc
}

func (p *GCSProfile) DefaultMetadataLocation(tabularLocation ident.Location, codec string, tabularUUID uuid.UUID) (ident.Location, error) {
	return defaultMetadataLocation(tabularLocation, codec, tabularUUID)
}

func (p *GCSProfile) IsAllowedLocation(warehouseID ident.WarehouseID, loc ident.Location) bool {
	return isAllowedLocation(p.BaseLocation(warehouseID), loc)
}

func (p *GCSProfile) WriteObject(ctx context.Context, loc ident.Location, data []byte, sec *secret.Secret) error {
	var opts []option.ClientOption
	if sec != nil && sec.Get("service_account_json") != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(sec.Get("service_account_json"))))
	}
	cli, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return catalogerr.StorageError("failed to create GCS client", err)
	}
	defer cli.Close()

	key := strings.Join(loc.Segments(), "/")
	w := cli.Bucket(p.Bucket).Object(key).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		return catalogerr.StorageError(fmt.Sprintf("failed to write object %s", loc), err)
	}
	if err := w.Close(); err != nil {
		return catalogerr.StorageError(fmt.Sprintf("failed to finalize object %s", loc), err)
	}
	return nil
}

// GenerateTableConfig vends a signed-URL-scoped config: this profile
// relies on GCS signed URLs scoped to tabularLocation rather than STS-style
// assumed credentials.
func (p *GCSProfile) GenerateTableConfig(ctx context.Context, access DataAccess, sec *secret.Secret, tabularLocation ident.Location, perm Permission) (TableConfig, error) {
	if access == DataAccessRemoteSigning {
		return TableConfig{Properties: map[string]string{
			"gcs.remote-signing-enabled": "true",
		}}, nil
	}
	if sec == nil || sec.Get("service_account_json") == "" {
		return TableConfig{}, catalogerr.StorageError("profile requires a service account secret for vended credentials", nil)
	}
	return TableConfig{Properties: map[string]string{
		"gcs.oauth2.private-key": sec.Get("service_account_json"),
	}}, nil
}
