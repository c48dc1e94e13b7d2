package ident

import (
	"fmt"
	"strings"
)

// Location is a URI with scheme, authority and path segments. It is the Go
// analogue of the Rust iceberg_ext Location type used throughout the
// original warehouse base-location/sublocation checks: segment-wise
// comparison, never raw string prefixing.
type Location struct {
	Scheme    string
	Authority string
	segments  []string
	// trailingSlash records whether the caller's input ended in "/"; two
	// locations compare equal only after canonical normalization of it.
	trailingSlash bool
}

// ParseLocation parses a location string of the form
// "scheme://authority/seg1/seg2/...".
func ParseLocation(raw string) (Location, error) {
	schemeSep := strings.Index(raw, "://")
	if schemeSep < 0 {
		return Location{}, fmt.Errorf("location %q is missing a scheme", raw)
	}
	scheme := raw[:schemeSep]
	rest := raw[schemeSep+3:]

	authSep := strings.IndexByte(rest, '/')
	var authority, path string
	if authSep < 0 {
		authority = rest
		path = ""
	} else {
		authority = rest[:authSep]
		path = rest[authSep+1:]
	}
	if authority == "" {
		return Location{}, fmt.Errorf("location %q is missing an authority", raw)
	}

	trailingSlash := strings.HasSuffix(path, "/")
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}

	return Location{
		Scheme:        scheme,
		Authority:     authority,
		segments:      segments,
		trailingSlash: trailingSlash,
	}, nil
}

func (l Location) Segments() []string {
	out := make([]string, len(l.segments))
	copy(out, l.segments)
	return out
}

// WithoutTrailingSlash returns the location's string form without a trailing
// slash.
func (l Location) WithoutTrailingSlash() string {
	return fmt.Sprintf("%s://%s/%s", l.Scheme, l.Authority, strings.Join(l.segments, "/"))
}

// WithTrailingSlash returns the location's string form with exactly one
// trailing slash.
func (l Location) WithTrailingSlash() string {
	return l.WithoutTrailingSlash() + "/"
}

func (l Location) String() string {
	if l.trailingSlash {
		return l.WithTrailingSlash()
	}
	return l.WithoutTrailingSlash()
}

// Push appends a path component, returning a new Location.
func (l Location) Push(component string) Location {
	segs := make([]string, len(l.segments), len(l.segments)+1)
	copy(segs, l.segments)
	segs = append(segs, component)
	return Location{Scheme: l.Scheme, Authority: l.Authority, segments: segs}
}

// Equal compares locations after canonical normalization of the trailing
// slash: "s3://b/x/" and "s3://b/x" are equal.
func (l Location) Equal(other Location) bool {
	if l.Scheme != other.Scheme || l.Authority != other.Authority {
		return false
	}
	return segmentsEqual(l.segments, other.segments)
}

func segmentsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// IsSublocationOf reports whether l is strictly nested inside base,
// comparing by decoded path segments (not raw string prefix) so that
// "s3://b/x/" and "s3://b/x" behave identically as a base, and "s3://b/xy"
// is correctly rejected as a sublocation of "s3://b/x/".
func (l Location) IsSublocationOf(base Location) bool {
	if l.Scheme != base.Scheme || l.Authority != base.Authority {
		return false
	}
	if len(l.segments) <= len(base.segments) {
		return false
	}
	return segmentsEqual(l.segments[:len(base.segments)], base.segments)
}

// Lstrip strips the prefix's segments from l, returning a Location that
// holds only the remaining segments (none when l equals prefix). If prefix
// is not a prefix of l, Lstrip returns l unchanged.
func (l Location) Lstrip(prefix Location) Location {
	if l.Scheme != prefix.Scheme || l.Authority != prefix.Authority {
		return l
	}
	if len(l.segments) < len(prefix.segments) || !segmentsEqual(l.segments[:len(prefix.segments)], prefix.segments) {
		return l
	}
	remaining := make([]string, len(l.segments)-len(prefix.segments))
	copy(remaining, l.segments[len(prefix.segments):])
	return Location{Scheme: l.Scheme, Authority: l.Authority, segments: remaining}
}
