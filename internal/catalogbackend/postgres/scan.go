package postgres

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/redbco/redb-catalog/internal/catalogbackend"
	"github.com/redbco/redb-catalog/internal/catalogerr"
	"github.com/redbco/redb-catalog/internal/ident"
)

func parseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.UUID{}, catalogerr.Internal("corrupt uuid column", err)
	}
	return id, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWarehouseRow(row pgx.Row) (catalogbackend.Warehouse, error) {
	return scanWarehouse(row)
}

func scanWarehouse(row rowScanner) (catalogbackend.Warehouse, error) {
	var (
		idStr, name, projectIDStr, profile string
		secretID                           *string
		active                             bool
		soft                               bool
		graceSeconds                       int64
	)
	if err := row.Scan(&idStr, &name, &projectIDStr, &profile, &secretID, &active, &soft, &graceSeconds); err != nil {
		return catalogbackend.Warehouse{}, err
	}
	id, err := parseUUID(idStr)
	if err != nil {
		return catalogbackend.Warehouse{}, err
	}
	projectID, err := parseUUID(projectIDStr)
	if err != nil {
		return catalogbackend.Warehouse{}, err
	}
	status := catalogbackend.WarehouseInactive
	if active {
		status = catalogbackend.WarehouseActive
	}
	var sid *ident.SecretID
	if secretID != nil {
		s := ident.SecretID(*secretID)
		sid = &s
	}
	return catalogbackend.Warehouse{
		ID:                 ident.WarehouseID(id),
		Name:               name,
		ProjectID:          ident.ProjectID(projectID),
		StorageProfileJSON: profile,
		StorageSecretID:    sid,
		Status:             status,
		TabularDeleteProfile: catalogbackend.TabularDeleteProfile{
			Soft:  soft,
			Grace: time.Duration(graceSeconds) * time.Second,
		},
	}, nil
}

func scanNamespaceRow(row pgx.Row) (catalogbackend.Namespace, error) {
	return scanNamespace(row)
}

func scanNamespace(row rowScanner) (catalogbackend.Namespace, error) {
	var (
		idStr, warehouseIDStr string
		identifier            []string
		properties            map[string]string
	)
	if err := row.Scan(&idStr, &warehouseIDStr, &identifier, &properties); err != nil {
		return catalogbackend.Namespace{}, err
	}
	id, err := parseUUID(idStr)
	if err != nil {
		return catalogbackend.Namespace{}, err
	}
	warehouseID, err := parseUUID(warehouseIDStr)
	if err != nil {
		return catalogbackend.Namespace{}, err
	}
	return catalogbackend.Namespace{
		ID:          ident.NamespaceID(id),
		WarehouseID: ident.WarehouseID(warehouseID),
		Identifier:  ident.NamespaceIdent(identifier),
		Properties:  properties,
	}, nil
}

func scanTabularRow(row pgx.Row, kind ident.TabularKind) (catalogbackend.Tabular, error) {
	return scanTabular(row, kind)
}

func scanTabular(row rowScanner, kind ident.TabularKind) (catalogbackend.Tabular, error) {
	var (
		idStr, namespaceIDStr, name, storageLocation, statusStr string
		metadataLocation                                        *string
		expirationTaskID                                         *string
		expirationAt, deletedAt                                  *time.Time
		createdAt                                                time.Time
	)
	if err := row.Scan(&idStr, &namespaceIDStr, &name, &metadataLocation, &storageLocation, &statusStr,
		&expirationTaskID, &expirationAt, &deletedAt, &createdAt); err != nil {
		return catalogbackend.Tabular{}, err
	}
	id, err := parseUUID(idStr)
	if err != nil {
		return catalogbackend.Tabular{}, err
	}
	namespaceID, err := parseUUID(namespaceIDStr)
	if err != nil {
		return catalogbackend.Tabular{}, err
	}
	return catalogbackend.Tabular{
		TabularID:        ident.TabularID{Kind: kind, UUID: id},
		NamespaceID:      ident.NamespaceID(namespaceID),
		Identifier:       name,
		MetadataLocation: metadataLocation,
		StorageLocation:  storageLocation,
		Status:           parseTabularStatus(statusStr),
		Deletion: &catalogbackend.DeletionDetails{
			ExpirationTaskID: expirationTaskID,
			ExpirationAt:     expirationAt,
			DeletedAt:        deletedAt,
			CreatedAt:        createdAt,
		},
	}, nil
}

func parseTabularStatus(s string) catalogbackend.TabularStatus {
	switch s {
	case "active":
		return catalogbackend.StatusActive
	case "soft_deleted":
		return catalogbackend.StatusSoftDeleted
	case "expired":
		return catalogbackend.StatusExpired
	default:
		return catalogbackend.StatusStaged
	}
}

func tabularStatusString(s catalogbackend.TabularStatus) string {
	switch s {
	case catalogbackend.StatusActive:
		return "active"
	case catalogbackend.StatusSoftDeleted:
		return "soft_deleted"
	case catalogbackend.StatusExpired:
		return "expired"
	default:
		return "staged"
	}
}
