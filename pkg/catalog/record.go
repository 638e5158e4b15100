// Package catalog implements the merge/cache engine of the modcat
// metadata catalog.
//
// The catalog stores two kinds of primitive records in separate store
// partitions: module records (one per published specification module)
// and vendor implementation records (one per vendor/platform/software
// version/software flavor tuple). Incoming records are partial: the
// engine merges them field by field into what is already stored so that
// previously known information is never silently discarded.
//
// Two aggregate caches are derived from the primitive records: a flat
// map of every module record under one reserved key, and a hierarchical
// vendor tree under another. Both are pure derived views, rebuilt from
// scratch by scanning the primitive keys, and are never the source of
// truth.
package catalog

import (
	"encoding/json"

	"github.com/mazrik/modcat/pkg/errors"
)

// Well-known module record fields interpreted by the merge engine.
// Everything else is carried opaquely.
const (
	FieldName            = "name"
	FieldRevision        = "revision"
	FieldOrganization    = "organization"
	FieldImplementations = "implementations"
	FieldDependents      = "dependents"
	FieldDependencies    = "dependencies"
	FieldExpires         = "expires"
)

// ModuleRecord is one catalog module record. Records are open maps so
// that fields the engine does not interpret survive merges untouched.
// List-valued fields hold []any of map[string]any, matching their JSON
// decoding.
type ModuleRecord map[string]any

// Name returns the module name, or "" when absent.
func (m ModuleRecord) Name() string { return m.stringField(FieldName) }

// Revision returns the module revision date, or "" when absent.
func (m ModuleRecord) Revision() string { return m.stringField(FieldRevision) }

// Organization returns the owning organization, or "" when absent.
func (m ModuleRecord) Organization() string { return m.stringField(FieldOrganization) }

func (m ModuleRecord) stringField(key string) string {
	s, _ := m[key].(string)
	return s
}

// Implementations returns the implementation reference list.
func (m ModuleRecord) Implementations() []any { return asList(m[FieldImplementations]) }

// Dependents returns the dependents list.
func (m ModuleRecord) Dependents() []any { return asList(m[FieldDependents]) }

// Dependencies returns the dependencies list.
func (m ModuleRecord) Dependencies() []any { return asList(m[FieldDependencies]) }

// DecodeModule decodes a stored JSON value into a ModuleRecord.
// The empty object decodes to an empty record.
func DecodeModule(data []byte) (ModuleRecord, error) {
	var m ModuleRecord
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecodeFailure, err, "decode module record")
	}
	if m == nil {
		m = ModuleRecord{}
	}
	return m, nil
}

// EncodeModule encodes a ModuleRecord as its stored JSON value.
func EncodeModule(m ModuleRecord) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode module record")
	}
	return data, nil
}

// asList normalizes a list-valued field. Absent or non-list values
// yield nil.
func asList(v any) []any {
	list, _ := v.([]any)
	return list
}

// asMap normalizes an object-valued element. Non-object values yield nil.
func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// entryName returns the "name" of a list element, or "" when the
// element is not an object or has no name.
func entryName(v any) string {
	s, _ := asMap(v)[FieldName].(string)
	return s
}
