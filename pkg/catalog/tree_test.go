package catalog

import (
	"testing"
)

func flavorLeaf(protocols map[string]any, modules ...ModuleRecord) *Node {
	n := &Node{Modules: modules}
	if protocols != nil {
		n.Fields = map[string]any{"protocols": protocols}
	}
	return n
}

func singleBranch(t *testing.T, key string, leaf *Node) *Tree {
	t.Helper()
	branch, err := BuildBranch(key, leaf)
	if err != nil {
		t.Fatalf("BuildBranch(%q) error: %v", key, err)
	}
	return branch
}

func TestBuildBranchRecoversSegments(t *testing.T) {
	tree := singleBranch(t, "juniper#networks/mx#960/21.2/flex", flavorLeaf(nil))

	vendor := tree.Vendors[0]
	if vendor.Name != "juniper networks" {
		t.Errorf("vendor = %q, want %q", vendor.Name, "juniper networks")
	}
	platform := vendor.Children[0]
	if platform.Name != "mx 960" {
		t.Errorf("platform = %q, want %q", platform.Name, "mx 960")
	}
	version := platform.Children[0]
	if version.Name != "21.2" {
		t.Errorf("software version = %q, want %q", version.Name, "21.2")
	}
	if version.Children[0].Name != "flex" {
		t.Errorf("software flavor = %q, want %q", version.Children[0].Name, "flex")
	}
}

func TestTreeMergeDedupesByNameAtEveryLevel(t *testing.T) {
	tree := &Tree{}
	tree.Merge(singleBranch(t, "cisco/xr/7.0/ios", flavorLeaf(nil)))
	tree.Merge(singleBranch(t, "cisco/xr/7.0/lite", flavorLeaf(nil)))
	tree.Merge(singleBranch(t, "cisco/nexus/9.3/ios", flavorLeaf(nil)))
	tree.Merge(singleBranch(t, "juniper/mx/21.2/flex", flavorLeaf(nil)))

	if len(tree.Vendors) != 2 {
		t.Fatalf("vendors = %d, want 2", len(tree.Vendors))
	}

	cisco := tree.Vendors[0]
	if cisco.Name != "cisco" || len(cisco.Children) != 2 {
		t.Fatalf("cisco platforms = %d, want 2", len(cisco.Children))
	}
	xr := cisco.Children[0]
	if len(xr.Children) != 1 {
		t.Fatalf("xr software versions = %d, want 1", len(xr.Children))
	}
	if len(xr.Children[0].Children) != 2 {
		t.Errorf("xr 7.0 flavors = %d, want 2", len(xr.Children[0].Children))
	}
}

func TestTreeMergeModuleRefsLastWins(t *testing.T) {
	first := flavorLeaf(nil,
		ModuleRecord{"name": "m", "revision": "2020-01-01", "organization": "ietf", "schema": "old"},
		ModuleRecord{"name": "n", "revision": "2020-01-01", "organization": "ietf"},
	)
	second := flavorLeaf(nil,
		ModuleRecord{"name": "m", "revision": "2020-01-01", "organization": "ietf", "schema": "new"},
	)

	tree := &Tree{}
	tree.Merge(singleBranch(t, "cisco/xr/7.0/ios", first))
	tree.Merge(singleBranch(t, "cisco/xr/7.0/ios", second))

	flavor := tree.Vendors[0].Children[0].Children[0].Children[0]
	if len(flavor.Modules) != 2 {
		t.Fatalf("modules = %d, want 2", len(flavor.Modules))
	}
	if flavor.Modules[0]["schema"] != "new" {
		t.Errorf("modules[0] = %v, want last write to win", flavor.Modules[0])
	}
	if flavor.Modules[1].Name() != "n" {
		t.Errorf("modules[1] = %v, want n preserved", flavor.Modules[1])
	}
}

func TestTreeMergeDeepMergesSharedObjectFields(t *testing.T) {
	first := flavorLeaf(map[string]any{"protocol": map[string]any{"name": "netconf"}})
	second := flavorLeaf(map[string]any{
		"protocol": map[string]any{"version": "1.1"},
		"extra":    "x",
	})

	tree := &Tree{}
	tree.Merge(singleBranch(t, "cisco/xr/7.0/ios", first))
	tree.Merge(singleBranch(t, "cisco/xr/7.0/ios", second))

	flavor := tree.Vendors[0].Children[0].Children[0].Children[0]
	protocols := asMap(flavor.Fields["protocols"])
	protocol := asMap(protocols["protocol"])
	if protocol["name"] != "netconf" || protocol["version"] != "1.1" {
		t.Errorf("shared object fields should deep merge, got %v", protocol)
	}
	if protocols["extra"] != "x" {
		t.Errorf("one-sided fields should be kept, got %v", protocols)
	}
}

func TestTreeMergeScalarFieldIncomingWins(t *testing.T) {
	first := flavorLeaf(nil)
	first.Fields = map[string]any{"os-type": "classic"}
	second := flavorLeaf(nil)
	second.Fields = map[string]any{"os-type": "evolved"}

	tree := &Tree{}
	tree.Merge(singleBranch(t, "cisco/xr/7.0/ios", first))
	tree.Merge(singleBranch(t, "cisco/xr/7.0/ios", second))

	flavor := tree.Vendors[0].Children[0].Children[0].Children[0]
	if flavor.Fields["os-type"] != "evolved" {
		t.Errorf("os-type = %v, want evolved", flavor.Fields["os-type"])
	}
}

func TestVendorsEncodeDecodeRoundTrip(t *testing.T) {
	leaf := flavorLeaf(
		map[string]any{"protocol": []any{map[string]any{"name": "netconf"}}},
		ModuleRecord{"name": "m", "revision": "2020-01-01", "organization": "ietf"},
	)
	tree := singleBranch(t, "cisco/xr#lnt/7.0/ios", leaf)

	encoded, err := EncodeVendors(tree)
	if err != nil {
		t.Fatalf("EncodeVendors error: %v", err)
	}

	decoded, err := DecodeVendors(encoded)
	if err != nil {
		t.Fatalf("DecodeVendors error: %v", err)
	}

	if len(decoded.Vendors) != 1 {
		t.Fatalf("vendors = %d, want 1", len(decoded.Vendors))
	}
	vendor := decoded.Vendors[0]
	if vendor.Name != "cisco" {
		t.Errorf("vendor = %q, want cisco", vendor.Name)
	}
	flavor := vendor.Children[0].Children[0].Children[0]
	if flavor.Name != "ios" {
		t.Errorf("flavor = %q, want ios", flavor.Name)
	}
	if len(flavor.Modules) != 1 || flavor.Modules[0].Name() != "m" {
		t.Errorf("modules = %v, want one module m", flavor.Modules)
	}
	if asMap(flavor.Fields["protocols"]) == nil {
		t.Errorf("protocols field lost in round trip: %v", flavor.Fields)
	}
}

func TestImplementationEncodeOmitsName(t *testing.T) {
	leaf := flavorLeaf(nil, ModuleRecord{"name": "m", "revision": "2020-01-01", "organization": "ietf"})
	leaf.Name = "ios"

	encoded, err := EncodeImplementation(leaf)
	if err != nil {
		t.Fatalf("EncodeImplementation error: %v", err)
	}

	decoded, err := DecodeImplementation(encoded)
	if err != nil {
		t.Fatalf("DecodeImplementation error: %v", err)
	}
	if decoded.Name != "" {
		t.Errorf("leaf value should not carry the flavor name, got %q", decoded.Name)
	}
	if len(decoded.Modules) != 1 {
		t.Errorf("modules = %d, want 1", len(decoded.Modules))
	}
}
