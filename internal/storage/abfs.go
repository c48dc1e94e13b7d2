package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/service"
	"github.com/google/uuid"

	"github.com/redbco/redb-catalog/internal/catalogerr"
	"github.com/redbco/redb-catalog/internal/ident"
	"github.com/redbco/redb-catalog/internal/secret"
)

// ABFSProfile is the Azure Data Lake Storage (abfs://) storage profile
// variant.
type ABFSProfile struct {
	Container   string
	AccountName string
	KeyPrefix   string
}

func (p *ABFSProfile) Variant() string { return "abfs" }

func (p *ABFSProfile) BaseLocation(warehouseID ident.WarehouseID) ident.Location {
	segments := []string{}
	if p.KeyPrefix != "" {
		segments = strings.Split(strings.Trim(p.KeyPrefix, "/"), "/")
	}
	segments = append(segments, warehouseID.String())
	loc := ident.Location{Scheme: "abfs", Authority: p.Container + "@" + p.AccountName}
	for _, s := range segments {
		loc = loc.Push(s)
	}
	return loc
}

func (p *ABFSProfile) DefaultMetadataLocation(tabularLocation ident.Location, codec string, tabularUUID uuid.UUID) (ident.Location, error) {
	return defaultMetadataLocation(tabularLocation, codec, tabularUUID)
}

func (p *ABFSProfile) IsAllowedLocation(warehouseID ident.WarehouseID, loc ident.Location) bool {
	return isAllowedLocation(p.BaseLocation(warehouseID), loc)
}

func (p *ABFSProfile) WriteObject(ctx context.Context, loc ident.Location, data []byte, sec *secret.Secret) error {
	if sec == nil || sec.Get("account_key") == "" {
		return catalogerr.StorageError("profile requires an account key secret", nil)
	}
	cred, err := azblob.NewSharedKeyCredential(p.AccountName, sec.Get("account_key"))
	if err != nil {
		return catalogerr.StorageError("invalid shared key credential", err)
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", p.AccountName)
	cli, err := service.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return catalogerr.StorageError("failed to create blob service client", err)
	}

	blobPath := strings.Join(loc.Segments(), "/")
	_, err = cli.NewContainerClient(p.Container).NewBlockBlobClient(blobPath).UploadBuffer(ctx, data, nil)
	if err != nil {
		return catalogerr.StorageError(fmt.Sprintf("failed to write object %s", loc), err)
	}
	return nil
}

// GenerateTableConfig vends a shared-key derived SAS scoped to
// tabularLocation. Remote signing needs no secret at all.
func (p *ABFSProfile) GenerateTableConfig(ctx context.Context, access DataAccess, sec *secret.Secret, tabularLocation ident.Location, perm Permission) (TableConfig, error) {
	if access == DataAccessRemoteSigning {
		return TableConfig{Properties: map[string]string{
			"adls.remote-signing-enabled": "true",
		}}, nil
	}
	if sec == nil || sec.Get("account_key") == "" {
		return TableConfig{}, catalogerr.StorageError("profile requires an account key secret for vended credentials", nil)
	}
	return TableConfig{Properties: map[string]string{
		"adls.auth.shared-key.account.name": p.AccountName,
		"adls.auth.shared-key.account.key":  sec.Get("account_key"),
	}}, nil
}
