package catalog

import (
	"fmt"
	"strings"

	"github.com/mazrik/modcat/pkg/errors"
)

// Reserved aggregate keys and the delimiter marking derived entries
// inside the module partition. Keys containing the delimiter are never
// treated as primitive module records.
const (
	ModulesCacheKey  = "modules-data"
	VendorsCacheKey  = "vendors-data"
	DerivedDelimiter = ":"
)

// placeholder replaces whitespace inside vendor key segments so a key
// stays a single path-like token. The substitution is reversible: "#"
// never occurs in segment names.
const placeholder = "#"

// ModuleKey derives the canonical module partition key
// "<name>@<revision>/<organization>". It fails with MALFORMED_RECORD
// when any identity field is missing or empty.
func ModuleKey(m ModuleRecord) (string, error) {
	name := m.Name()
	revision := m.Revision()
	organization := m.Organization()
	if name == "" || revision == "" || organization == "" {
		return "", errors.New(errors.ErrCodeMalformedRecord,
			"module record needs name, revision and organization (got %q, %q, %q)",
			name, revision, organization)
	}
	return fmt.Sprintf("%s@%s/%s", name, revision, organization), nil
}

// moduleRefKey builds the composite key of a module reference inside a
// vendor leaf. Unlike ModuleKey it is total: missing fields become
// empty segments, matching the dedup-only role of the key.
func moduleRefKey(m ModuleRecord) string {
	return fmt.Sprintf("%s@%s/%s", m.Name(), m.Revision(), m.Organization())
}

// ImplementationKey derives the composite key of an implementation
// reference: the four identifying segments with whitespace replaced by
// the placeholder, joined by "/". The same key format identifies vendor
// partition records.
func ImplementationKey(ref map[string]any) string {
	segment := func(field string) string {
		s, _ := ref[field].(string)
		return strings.ReplaceAll(s, " ", placeholder)
	}
	return segment("vendor") + "/" + segment("platform") + "/" +
		segment("software-version") + "/" + segment("software-flavor")
}

// VendorKey derives the vendor partition key from the four segment
// names directly.
func VendorKey(vendor, platform, softwareVersion, softwareFlavor string) string {
	escape := func(s string) string { return strings.ReplaceAll(s, " ", placeholder) }
	return escape(vendor) + "/" + escape(platform) + "/" +
		escape(softwareVersion) + "/" + escape(softwareFlavor)
}

// ParseVendorKey inverts VendorKey, recovering the four original
// segment names. It fails with INVALID_KEY when the key does not have
// exactly four segments.
func ParseVendorKey(key string) (vendor, platform, softwareVersion, softwareFlavor string, err error) {
	parts := strings.Split(strings.ReplaceAll(key, placeholder, " "), "/")
	if len(parts) != 4 {
		return "", "", "", "", errors.New(errors.ErrCodeInvalidKey,
			"vendor key %q does not have four segments", key)
	}
	return parts[0], parts[1], parts[2], parts[3], nil
}
