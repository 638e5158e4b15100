package catalog

import (
	"encoding/json"

	"github.com/mazrik/modcat/pkg/errors"
)

// Level identifies one tier of the vendor hierarchy. The hierarchy is
// fixed: vendor, platform, software version, software flavor. Flavor is
// the terminal level; its nodes carry the module reference list instead
// of children.
type Level int

const (
	LevelVendor Level = iota
	LevelPlatform
	LevelSoftwareVersion
	LevelSoftwareFlavor
)

// String returns the level label used in log output.
func (l Level) String() string {
	switch l {
	case LevelVendor:
		return "vendor"
	case LevelPlatform:
		return "platform"
	case LevelSoftwareVersion:
		return "software-version"
	case LevelSoftwareFlavor:
		return "software-flavor"
	}
	return "unknown"
}

// childField returns the JSON field holding the next level's node list.
// Empty for the terminal level.
func (l Level) childField() string {
	switch l {
	case LevelVendor:
		return "platforms"
	case LevelPlatform:
		return "software-versions"
	case LevelSoftwareVersion:
		return "software-flavors"
	}
	return ""
}

// isLeaf reports whether l is the terminal level.
func (l Level) isLeaf() bool { return l == LevelSoftwareFlavor }

// Node is one named node of the vendor hierarchy. Non-leaf nodes hold
// their next-level nodes in Children; leaf (software flavor) nodes hold
// the module references implemented by the tuple in Modules. Fields
// carries everything else (protocols on flavors, arbitrary extras)
// opaquely.
//
// The same Node shape serves every level: which list is populated is
// decided by the Level the node sits at, so merge logic stays
// level-agnostic while remaining type-checked.
type Node struct {
	Name     string
	Fields   map[string]any
	Children []*Node
	Modules  []ModuleRecord
}

// Tree is a forest of vendor-level nodes: the shape of the vendors-data
// aggregate cache.
type Tree struct {
	Vendors []*Node
}

// Merge folds other into t. Nodes are deduped by name at every level;
// colliding nodes merge recursively: shared object fields deep-merge,
// shared scalar fields take the incoming value, children merge by the
// same rule one level down. At the terminal level module references are
// deduped by their composite key, last write wins.
func (t *Tree) Merge(other *Tree) {
	if other == nil {
		return
	}
	t.Vendors = mergeNodes(LevelVendor, t.Vendors, other.Vendors)
}

func mergeNodes(level Level, existing, incoming []*Node) []*Node {
	index := make(map[string]*Node, len(existing))
	for _, n := range existing {
		index[n.Name] = n
	}
	for _, n := range incoming {
		if target, ok := index[n.Name]; ok {
			mergeNode(level, target, n)
		} else {
			existing = append(existing, n)
			index[n.Name] = n
		}
	}
	return existing
}

func mergeNode(level Level, existing, incoming *Node) {
	for key, value := range incoming.Fields {
		if existing.Fields == nil {
			existing.Fields = make(map[string]any)
		}
		current, ok := existing.Fields[key]
		if !ok {
			existing.Fields[key] = value
			continue
		}
		currentMap, incomingMap := asMap(current), asMap(value)
		if currentMap != nil && incomingMap != nil {
			deepMergeMap(currentMap, incomingMap)
		} else {
			existing.Fields[key] = value
		}
	}

	if level.isLeaf() {
		existing.Modules = mergeModuleRefs(existing.Modules, incoming.Modules)
		return
	}
	existing.Children = mergeNodes(level+1, existing.Children, incoming.Children)
}

// deepMergeMap merges src into dst: shared object values recurse,
// shared scalar values take src, src-only keys are added, dst-only keys
// are kept.
func deepMergeMap(dst, src map[string]any) {
	for key, value := range src {
		current, ok := dst[key]
		if !ok {
			dst[key] = value
			continue
		}
		currentMap, valueMap := asMap(current), asMap(value)
		if currentMap != nil && valueMap != nil {
			deepMergeMap(currentMap, valueMap)
		} else {
			dst[key] = value
		}
	}
}

// mergeModuleRefs dedupes module references by composite module key.
// Existing order is preserved; an incoming reference with a known key
// replaces the stored one in place (last write wins), new keys append.
func mergeModuleRefs(existing, incoming []ModuleRecord) []ModuleRecord {
	index := make(map[string]int, len(existing))
	for i, ref := range existing {
		index[moduleRefKey(ref)] = i
	}
	for _, ref := range incoming {
		key := moduleRefKey(ref)
		if i, ok := index[key]; ok {
			existing[i] = ref
		} else {
			index[key] = len(existing)
			existing = append(existing, ref)
		}
	}
	return existing
}

// BuildBranch reconstructs the singleton tree for one vendor partition
// key: the leaf record re-nested bottom-up under its software version,
// platform and vendor as recovered from the key.
func BuildBranch(key string, leaf *Node) (*Tree, error) {
	vendor, platform, softwareVersion, softwareFlavor, err := ParseVendorKey(key)
	if err != nil {
		return nil, err
	}
	leaf.Name = softwareFlavor
	return &Tree{Vendors: []*Node{
		{Name: vendor, Children: []*Node{
			{Name: platform, Children: []*Node{
				{Name: softwareVersion, Children: []*Node{leaf}},
			}},
		}},
	}}, nil
}

// =============================================================================
// JSON encoding
// =============================================================================

// The wire shape nests each level's node list under a plural field:
//
//	{"vendors":[{"name":"cisco","platforms":[{"name":"xr",
//	  "software-versions":[{"name":"7.0","software-flavors":[
//	    {"name":"ios","protocols":{...},"modules":[...]}]}]}]}]}
//
// Leaf records stored under vendor partition keys use the flavor node
// shape without the name (the name lives in the key).

// DecodeVendors decodes a vendor forest from its wire shape.
func DecodeVendors(data []byte) (*Tree, error) {
	var top struct {
		Vendors []map[string]any `json:"vendors"`
	}
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecodeFailure, err, "decode vendor tree")
	}
	tree := &Tree{}
	for _, m := range top.Vendors {
		tree.Vendors = append(tree.Vendors, nodeFromMap(LevelVendor, m))
	}
	return tree, nil
}

// EncodeVendors encodes a vendor forest into its wire shape.
func EncodeVendors(t *Tree) ([]byte, error) {
	vendors := make([]any, 0, len(t.Vendors))
	for _, n := range t.Vendors {
		vendors = append(vendors, n.toMap(LevelVendor))
	}
	data, err := json.Marshal(map[string]any{"vendors": vendors})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode vendor tree")
	}
	return data, nil
}

// DecodeImplementation decodes a stored vendor leaf value into a
// nameless flavor-level node.
func DecodeImplementation(data []byte) (*Node, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecodeFailure, err, "decode implementation record")
	}
	return nodeFromMap(LevelSoftwareFlavor, m), nil
}

// EncodeImplementation encodes a flavor-level node as a stored vendor
// leaf value. The node name is not part of the value; it lives in the
// partition key.
func EncodeImplementation(n *Node) ([]byte, error) {
	m := n.toMap(LevelSoftwareFlavor)
	delete(m, FieldName)
	data, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode implementation record")
	}
	return data, nil
}

func nodeFromMap(level Level, m map[string]any) *Node {
	name, _ := m[FieldName].(string)
	n := &Node{Name: name}
	for key, value := range m {
		switch {
		case key == FieldName:
			// already captured
		case !level.isLeaf() && key == level.childField():
			for _, child := range asList(value) {
				if childMap := asMap(child); childMap != nil {
					n.Children = append(n.Children, nodeFromMap(level+1, childMap))
				}
			}
		case level.isLeaf() && key == "modules":
			for _, ref := range asList(value) {
				if refMap := asMap(ref); refMap != nil {
					n.Modules = append(n.Modules, ModuleRecord(refMap))
				}
			}
		default:
			if n.Fields == nil {
				n.Fields = make(map[string]any)
			}
			n.Fields[key] = value
		}
	}
	return n
}

func (n *Node) toMap(level Level) map[string]any {
	m := make(map[string]any, len(n.Fields)+3)
	for key, value := range n.Fields {
		m[key] = value
	}
	if n.Name != "" {
		m[FieldName] = n.Name
	}
	if level.isLeaf() {
		modules := make([]any, 0, len(n.Modules))
		for _, ref := range n.Modules {
			modules = append(modules, map[string]any(ref))
		}
		m["modules"] = modules
		return m
	}
	if len(n.Children) > 0 {
		children := make([]any, 0, len(n.Children))
		for _, child := range n.Children {
			children = append(children, child.toMap(level+1))
		}
		m[level.childField()] = children
	}
	return m
}
