package storage

import (
	"encoding/json"

	"github.com/redbco/redb-catalog/internal/catalogerr"
)

// envelope is the on-disk encoding of a warehouse's storage_profile column:
// a variant tag plus the one populated profile struct. Decoupling this from
// Profile keeps the interface free of marshaling concerns.
type envelope struct {
	Variant string        `json:"variant"`
	S3      *S3Profile    `json:"s3,omitempty"`
	GCS     *GCSProfile   `json:"gcs,omitempty"`
	ABFS    *ABFSProfile  `json:"abfs,omitempty"`
	Local   *LocalProfile `json:"local,omitempty"`
}

// EncodeProfile serializes a Profile for storage in Warehouse.StorageProfileJSON.
func EncodeProfile(p Profile) (string, error) {
	env := envelope{Variant: p.Variant()}
	switch v := p.(type) {
	case *S3Profile:
		env.S3 = v
	case *GCSProfile:
		env.GCS = v
	case *ABFSProfile:
		env.ABFS = v
	case *LocalProfile:
		env.Local = v
	default:
		return "", catalogerr.Internal("unknown storage profile variant", nil)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return "", catalogerr.Internal("failed to encode storage profile", err)
	}
	return string(data), nil
}

// DecodeProfile reverses EncodeProfile.
func DecodeProfile(raw string) (Profile, error) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, catalogerr.Internal("failed to decode storage profile", err)
	}
	switch env.Variant {
	case "s3":
		if env.S3 == nil {
			return nil, catalogerr.Internal("storage profile missing s3 payload", nil)
		}
		return env.S3, nil
	case "gcs":
		if env.GCS == nil {
			return nil, catalogerr.Internal("storage profile missing gcs payload", nil)
		}
		return env.GCS, nil
	case "abfs":
		if env.ABFS == nil {
			return nil, catalogerr.Internal("storage profile missing abfs payload", nil)
		}
		return env.ABFS, nil
	case "file":
		if env.Local == nil {
			return nil, catalogerr.Internal("storage profile missing local payload", nil)
		}
		return env.Local, nil
	default:
		return nil, catalogerr.Internal("unknown storage profile variant: "+env.Variant, nil)
	}
}
