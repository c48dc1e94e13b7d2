// Package catalogconfig holds the process-wide read-only configuration
// object (spec §9 "Global mutable state"): defaults initialized once at
// startup and never mutated afterward. The engine receives these as a
// parameter, never through a global.
package catalogconfig

import (
	"strconv"
	"time"

	"github.com/redbco/redb-catalog/pkg/config"
)

// Defaults bundles the page-size caps, default project id, default codec,
// credential TTL and sweeper settings resolved at startup. Of these the
// lifecycle engine reads DefaultCodec and the sweeper reads
// SweeperInterval; the page-size caps, project id, credential TTL and
// GhostBlobGrace are resolved but not read by any other package.
type Defaults struct {
	DefaultProjectID  string
	DefaultCodec      string
	MaxPageSize       int
	DefaultPageSize   int
	CredentialTTL     time.Duration
	GhostBlobGrace    time.Duration
	SweeperInterval   time.Duration
}

// FromConfig resolves Defaults from a *config.Config, falling back to
// sensible defaults for anything unset or unparsable.
func FromConfig(cfg *config.Config) Defaults {
	d := Defaults{
		DefaultProjectID: "00000000-0000-0000-0000-000000000000",
		DefaultCodec:     "gzip",
		MaxPageSize:      1000,
		DefaultPageSize:  100,
		CredentialTTL:    time.Hour,
		GhostBlobGrace:   24 * time.Hour,
		SweeperInterval:  10 * time.Minute,
	}
	if cfg == nil {
		return d
	}

	if v := cfg.Get("catalog.default_project_id"); v != "" {
		d.DefaultProjectID = v
	}
	if v := cfg.Get("catalog.default_codec"); v != "" {
		d.DefaultCodec = v
	}
	if v := cfg.Get("catalog.max_page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			d.MaxPageSize = n
		}
	}
	if v := cfg.Get("catalog.default_page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			d.DefaultPageSize = n
		}
	}
	if v := cfg.Get("catalog.credential_ttl"); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			d.CredentialTTL = dur
		}
	}
	if v := cfg.Get("catalog.ghost_blob_grace"); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			d.GhostBlobGrace = dur
		}
	}
	if v := cfg.Get("catalog.sweeper_interval"); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			d.SweeperInterval = dur
		}
	}
	return d
}
