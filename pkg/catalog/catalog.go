package catalog

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/mazrik/modcat/pkg/errors"
	"github.com/mazrik/modcat/pkg/observability"
	"github.com/mazrik/modcat/pkg/store"
)

// Catalog is the merge/cache engine over the two store partitions.
//
// Mutations are read-modify-write: a get, an in-memory merge and a put.
// A per-key mutex serializes writers of the same canonical key inside
// this process, so concurrent CLI jobs and handlers cannot overwrite
// each other's merges. Writers in other processes are not coordinated;
// the deployment assumption is one logical owner per key per ingestion
// cycle.
type Catalog struct {
	modules store.Store
	vendors store.Store
	logger  *log.Logger
	locks   keyedMutex
}

// New creates a Catalog over the given module and vendor partitions.
// A nil logger falls back to log.Default().
func New(modules, vendors store.Store, logger *log.Logger) *Catalog {
	if logger == nil {
		logger = log.Default()
	}
	return &Catalog{
		modules: modules,
		vendors: vendors,
		logger:  logger,
	}
}

// =============================================================================
// Modules
// =============================================================================

// GetModule loads the stored module record under key. Absent keys yield
// an empty record.
func (c *Catalog) GetModule(ctx context.Context, key string) (ModuleRecord, error) {
	data, err := c.modules.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return DecodeModule(data)
}

// PopulateModules merges each incoming record into its stored record
// and writes the result under its canonical key.
//
// There is no cross-record transaction: records stored before a failure
// stay stored, and the caller decides whether to abort or continue.
// A malformed record (missing identity fields) fails fast before any
// write for that record.
func (c *Catalog) PopulateModules(ctx context.Context, records []ModuleRecord) error {
	logger := c.logger.With("batch", uuid.NewString())
	logger.Debug("populating modules", "count", len(records))

	for _, record := range records {
		key, err := ModuleKey(record)
		if err != nil {
			return err
		}
		if err := c.mergeAndStore(ctx, key, record); err != nil {
			return err
		}
		logger.Info("key updated", "key", key)
	}
	return nil
}

func (c *Catalog) mergeAndStore(ctx context.Context, key string, record ModuleRecord) error {
	unlock := c.locks.lock(key)
	defer unlock()

	data, err := c.modules.Get(ctx, key)
	if err != nil {
		return err
	}

	merged := record
	created := store.IsEmpty(data)
	if !created {
		existing, err := DecodeModule(data)
		if err != nil {
			return err
		}
		merged = MergeModule(record, existing)
	}

	encoded, err := EncodeModule(merged)
	if err != nil {
		return err
	}
	if err := c.modules.Set(ctx, key, encoded); err != nil {
		return err
	}
	observability.Catalog().OnMerge(ctx, key, created)
	return nil
}

// GetAllModules returns the flat module aggregate as stored, the empty
// object when it has never been built.
func (c *Catalog) GetAllModules(ctx context.Context) ([]byte, error) {
	return c.modules.Get(ctx, ModulesCacheKey)
}

// RebuildModuleCache rebuilds the flat module aggregate from scratch by
// scanning every primitive key in the module partition. The aggregate's
// own key and derived entries (keys containing the derived delimiter)
// are excluded so derived data never feeds back into itself.
//
// A value that fails to decode is skipped and logged rather than
// aborting the rebuild; one corrupt record must not lose every other
// record's contribution.
func (c *Catalog) RebuildModuleCache(ctx context.Context) error {
	start := time.Now()
	observability.Catalog().OnRebuildStart(ctx, ModulesCacheKey)

	keys, err := c.modules.ScanKeys(ctx)
	if err != nil {
		observability.Catalog().OnRebuildComplete(ctx, ModulesCacheKey, 0, time.Since(start), err)
		return err
	}

	aggregate := make(map[string]ModuleRecord, len(keys))
	for _, key := range keys {
		if key == ModulesCacheKey || strings.Contains(key, DerivedDelimiter) {
			continue
		}
		data, err := c.modules.Get(ctx, key)
		if err != nil {
			observability.Catalog().OnRebuildComplete(ctx, ModulesCacheKey, 0, time.Since(start), err)
			return err
		}
		record, err := DecodeModule(data)
		if err != nil {
			c.logger.Warn("skipping undecodable module record", "key", key, "err", err)
			continue
		}
		aggregate[key] = record
	}

	encoded, err := json.Marshal(aggregate)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode module aggregate")
	}
	err = c.modules.Set(ctx, ModulesCacheKey, encoded)
	observability.Catalog().OnRebuildComplete(ctx, ModulesCacheKey, len(aggregate), time.Since(start), err)
	if err != nil {
		return err
	}
	c.logger.Info("module cache rebuilt", "records", len(aggregate))
	return nil
}

// DeleteModules removes the given module keys unconditionally and
// returns how many existed. Callers rebuild the module cache afterward.
func (c *Catalog) DeleteModules(ctx context.Context, keys []string) (int, error) {
	return c.modules.Delete(ctx, keys...)
}

// DeleteDependent removes the first dependent named dependentName from
// the module stored under key and re-stores the record. It reports
// whether a removal happened; no write occurs on a miss.
func (c *Catalog) DeleteDependent(ctx context.Context, key, dependentName string) (bool, error) {
	return c.removeListEntry(ctx, key, FieldDependents, func(entry any) bool {
		return entryName(entry) == dependentName
	})
}

// DeleteImplementation removes the implementation reference whose
// composite key equals implementationKey from the module stored under
// key. It reports whether a removal happened; no write occurs on a
// miss.
func (c *Catalog) DeleteImplementation(ctx context.Context, key, implementationKey string) (bool, error) {
	return c.removeListEntry(ctx, key, FieldImplementations, func(entry any) bool {
		return ImplementationKey(asMap(entry)) == implementationKey
	})
}

func (c *Catalog) removeListEntry(ctx context.Context, key, field string, match func(any) bool) (bool, error) {
	unlock := c.locks.lock(key)
	defer unlock()

	record, err := c.GetModule(ctx, key)
	if err != nil {
		return false, err
	}

	entries := asList(record[field])
	for i, entry := range entries {
		if !match(entry) {
			continue
		}
		record[field] = append(entries[:i:i], entries[i+1:]...)
		encoded, err := EncodeModule(record)
		if err != nil {
			return false, err
		}
		if err := c.modules.Set(ctx, key, encoded); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// DeleteExpires removes the expires attribute from the stored record
// identified by record's canonical key, cancelling a pending
// expiration. It reports whether the attribute was present; no write
// occurs when it was not.
func (c *Catalog) DeleteExpires(ctx context.Context, record ModuleRecord) (bool, error) {
	key, err := ModuleKey(record)
	if err != nil {
		return false, err
	}

	unlock := c.locks.lock(key)
	defer unlock()

	stored, err := c.GetModule(ctx, key)
	if err != nil {
		return false, err
	}
	if _, ok := stored[FieldExpires]; !ok {
		return false, nil
	}
	delete(stored, FieldExpires)

	encoded, err := EncodeModule(stored)
	if err != nil {
		return false, err
	}
	if err := c.modules.Set(ctx, key, encoded); err != nil {
		return false, err
	}
	return true, nil
}

// PurgeImplementations removes every implementation reference whose
// composite key contains fragment from every stored module record. It
// returns the number of references removed. Used after a vendor
// subtree deletion so modules keep no dangling references into the
// deleted subtree.
func (c *Catalog) PurgeImplementations(ctx context.Context, fragment string) (int, error) {
	keys, err := c.modules.ScanKeys(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, key := range keys {
		if key == ModulesCacheKey || strings.Contains(key, DerivedDelimiter) {
			continue
		}
		n, err := c.purgeModuleImplementations(ctx, key, fragment)
		if err != nil {
			return removed, err
		}
		removed += n
	}
	return removed, nil
}

func (c *Catalog) purgeModuleImplementations(ctx context.Context, key, fragment string) (int, error) {
	unlock := c.locks.lock(key)
	defer unlock()

	data, err := c.modules.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	record, err := DecodeModule(data)
	if err != nil {
		c.logger.Warn("skipping undecodable module record", "key", key, "err", err)
		return 0, nil
	}

	refs := record.Implementations()
	kept := refs[:0:0]
	for _, ref := range refs {
		if !strings.Contains(ImplementationKey(asMap(ref)), fragment) {
			kept = append(kept, ref)
		}
	}
	removed := len(refs) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	record[FieldImplementations] = kept
	encoded, err := EncodeModule(record)
	if err != nil {
		return 0, err
	}
	if err := c.modules.Set(ctx, key, encoded); err != nil {
		return 0, err
	}
	return removed, nil
}

// =============================================================================
// Vendors
// =============================================================================

// GetImplementation loads the stored vendor leaf record under key.
// Absent keys yield a nameless empty node.
func (c *Catalog) GetImplementation(ctx context.Context, key string) (*Node, error) {
	data, err := c.vendors.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return DecodeImplementation(data)
}

// PopulateVendors expands each vendor block into one flat record per
// leaf tuple, accumulates module lists across identical tuples seen in
// the same call (deduped by composite module key, last in the batch
// wins), then merges every accumulated leaf against its stored record
// and writes it under its canonical vendor partition key.
//
// When a leaf already exists in the store, its module list is extended
// by the batch (incoming wins per module key) and its other fields,
// protocols included, are preserved.
func (c *Catalog) PopulateVendors(ctx context.Context, vendors []*Node) error {
	logger := c.logger.With("batch", uuid.NewString())

	var order []string
	accumulated := make(map[string]*Node)
	for _, vendor := range vendors {
		for _, platform := range vendor.Children {
			for _, version := range platform.Children {
				for _, flavor := range version.Children {
					key := VendorKey(vendor.Name, platform.Name, version.Name, flavor.Name)
					leaf, ok := accumulated[key]
					if !ok {
						leaf = &Node{Fields: flavor.Fields}
						accumulated[key] = leaf
						order = append(order, key)
					}
					leaf.Modules = mergeModuleRefs(leaf.Modules, flavor.Modules)
				}
			}
		}
	}
	logger.Debug("populating vendors", "tuples", len(order))

	for _, key := range order {
		if err := c.mergeAndStoreLeaf(ctx, key, accumulated[key]); err != nil {
			return err
		}
		logger.Info("key updated", "key", key)
	}
	return nil
}

func (c *Catalog) mergeAndStoreLeaf(ctx context.Context, key string, leaf *Node) error {
	unlock := c.locks.lock(key)
	defer unlock()

	data, err := c.vendors.Get(ctx, key)
	if err != nil {
		return err
	}

	merged := leaf
	created := store.IsEmpty(data)
	if !created {
		existing, err := DecodeImplementation(data)
		if err != nil {
			return err
		}
		existing.Modules = mergeModuleRefs(existing.Modules, leaf.Modules)
		merged = existing
	}

	encoded, err := EncodeImplementation(merged)
	if err != nil {
		return err
	}
	if err := c.vendors.Set(ctx, key, encoded); err != nil {
		return err
	}
	observability.Catalog().OnMerge(ctx, key, created)
	return nil
}

// GetAllVendors returns the hierarchical vendor aggregate as stored,
// the empty object when it has never been built.
func (c *Catalog) GetAllVendors(ctx context.Context) ([]byte, error) {
	return c.vendors.Get(ctx, VendorsCacheKey)
}

// VendorTree reconstructs the vendor hierarchy from the primitive
// vendor partition keys. Only keys containing fragment contribute; the
// empty fragment reconstructs everything. Supplying a deletion fragment
// afterward verifies the deletion: the result must be empty.
//
// Keys that do not parse into four segments are skipped and logged,
// consistent with the module cache rebuild.
func (c *Catalog) VendorTree(ctx context.Context, fragment string) (*Tree, error) {
	keys, err := c.vendors.ScanKeys(ctx)
	if err != nil {
		return nil, err
	}

	tree := &Tree{}
	for _, key := range keys {
		if key == VendorsCacheKey || !strings.Contains(key, fragment) {
			continue
		}
		data, err := c.vendors.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		leaf, err := DecodeImplementation(data)
		if err != nil {
			c.logger.Warn("skipping undecodable implementation record", "key", key, "err", err)
			continue
		}
		branch, err := BuildBranch(key, leaf)
		if err != nil {
			c.logger.Warn("skipping malformed vendor key", "key", key, "err", err)
			continue
		}
		tree.Merge(branch)
	}
	return tree, nil
}

// RebuildVendorCache rebuilds the hierarchical vendor aggregate from
// scratch and stores it under its reserved key.
func (c *Catalog) RebuildVendorCache(ctx context.Context) error {
	start := time.Now()
	observability.Catalog().OnRebuildStart(ctx, VendorsCacheKey)

	tree, err := c.VendorTree(ctx, "")
	if err != nil {
		observability.Catalog().OnRebuildComplete(ctx, VendorsCacheKey, 0, time.Since(start), err)
		return err
	}
	encoded, err := EncodeVendors(tree)
	if err != nil {
		return err
	}
	err = c.vendors.Set(ctx, VendorsCacheKey, encoded)
	observability.Catalog().OnRebuildComplete(ctx, VendorsCacheKey, len(tree.Vendors), time.Since(start), err)
	if err != nil {
		return err
	}
	c.logger.Info("vendor cache rebuilt", "vendors", len(tree.Vendors))
	return nil
}

// DeleteVendorSubtree removes every vendor partition key containing
// fragment and returns the removed count. Fragment specificity decides
// granularity: "vendorX/" removes a whole vendor,
// "vendorX/platformY/" one platform, and so on. The aggregate caches
// are not rebuilt here; callers rebuild both afterward.
func (c *Catalog) DeleteVendorSubtree(ctx context.Context, fragment string) (int, error) {
	keys, err := c.vendors.ScanKeys(ctx)
	if err != nil {
		return 0, err
	}

	var doomed []string
	for _, key := range keys {
		if strings.Contains(key, fragment) {
			doomed = append(doomed, key)
		}
	}
	if len(doomed) == 0 {
		return 0, nil
	}
	return c.vendors.Delete(ctx, doomed...)
}

// =============================================================================
// Per-key write serialization
// =============================================================================

// keyedMutex hands out one mutex per canonical key. Entries are never
// released; the map is bounded by the number of distinct keys written
// during the process lifetime.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
