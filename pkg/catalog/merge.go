package catalog

import (
	"reflect"
)

// MergeModule merges an incoming (possibly partial) module record into
// the existing stored record of the same canonical key and returns the
// merged record. The existing map is mutated in place.
//
// Field rules, applied to the union of keys present on either side:
//   - implementations: append-only by composite key. An incoming
//     reference whose key already exists leaves the stored entry
//     untouched; new keys are appended.
//   - dependents, dependencies: deduped by name. New names are
//     appended; an incoming entry matching an existing name replaces
//     that entry in place (position preserved).
//   - everything else: an incoming non-null value that differs from the
//     existing one overwrites it; null/absent incoming values preserve
//     the existing value.
//
// Merging is idempotent: applying the same incoming record twice yields
// the same stored record as applying it once.
func MergeModule(incoming, existing ModuleRecord) ModuleRecord {
	for key := range union(incoming, existing) {
		switch key {
		case FieldImplementations:
			mergeImplementations(incoming, existing)
		case FieldDependents, FieldDependencies:
			mergeNamedList(incoming, existing, key)
		default:
			newValue, ok := incoming[key]
			if ok && newValue != nil && !reflect.DeepEqual(existing[key], newValue) {
				existing[key] = newValue
			}
		}
	}
	return existing
}

// union collects the key set present on either record.
func union(a, b ModuleRecord) map[string]struct{} {
	keys := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		keys[k] = struct{}{}
	}
	for k := range b {
		keys[k] = struct{}{}
	}
	return keys
}

// mergeImplementations appends incoming implementation references whose
// composite key is not yet present. Existing references win and are
// never modified.
func mergeImplementations(incoming, existing ModuleRecord) {
	newRefs := incoming.Implementations()
	if len(newRefs) == 0 {
		return
	}

	existingRefs := existing.Implementations()
	seen := make(map[string]struct{}, len(existingRefs))
	for _, ref := range existingRefs {
		seen[ImplementationKey(asMap(ref))] = struct{}{}
	}

	for _, ref := range newRefs {
		key := ImplementationKey(asMap(ref))
		if _, ok := seen[key]; ok {
			continue
		}
		existingRefs = append(existingRefs, ref)
		seen[key] = struct{}{}
	}
	existing[FieldImplementations] = existingRefs
}

// mergeNamedList merges a dependency-kind list (dependents or
// dependencies) deduped by name: incoming entries replace same-named
// existing entries in place, new names are appended.
func mergeNamedList(incoming, existing ModuleRecord, field string) {
	newEntries := asList(incoming[field])
	if len(newEntries) == 0 {
		return
	}

	existingEntries := asList(existing[field])
	if len(existingEntries) == 0 {
		existing[field] = newEntries
		return
	}

	index := make(map[string]int, len(existingEntries))
	for i, entry := range existingEntries {
		index[entryName(entry)] = i
	}

	for _, entry := range newEntries {
		name := entryName(entry)
		if i, ok := index[name]; ok {
			existingEntries[i] = entry
		} else {
			index[name] = len(existingEntries)
			existingEntries = append(existingEntries, entry)
		}
	}
	existing[field] = existingEntries
}
