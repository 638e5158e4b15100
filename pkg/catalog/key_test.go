package catalog

import (
	"testing"

	"github.com/mazrik/modcat/pkg/errors"
)

func TestModuleKey(t *testing.T) {
	record := ModuleRecord{
		"name":         "mod-a",
		"revision":     "2020-01-01",
		"organization": "ietf",
	}

	key, err := ModuleKey(record)
	if err != nil {
		t.Fatalf("ModuleKey error: %v", err)
	}
	if key != "mod-a@2020-01-01/ietf" {
		t.Errorf("ModuleKey = %q, want %q", key, "mod-a@2020-01-01/ietf")
	}
}

func TestModuleKeyMalformed(t *testing.T) {
	tests := []struct {
		name   string
		record ModuleRecord
	}{
		{"missing name", ModuleRecord{"revision": "2020-01-01", "organization": "ietf"}},
		{"missing revision", ModuleRecord{"name": "mod-a", "organization": "ietf"}},
		{"missing organization", ModuleRecord{"name": "mod-a", "revision": "2020-01-01"}},
		{"empty name", ModuleRecord{"name": "", "revision": "2020-01-01", "organization": "ietf"}},
		{"non-string name", ModuleRecord{"name": true, "revision": "2020-01-01", "organization": "ietf"}},
		{"empty record", ModuleRecord{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ModuleKey(tt.record)
			if !errors.Is(err, errors.ErrCodeMalformedRecord) {
				t.Errorf("ModuleKey error = %v, want MALFORMED_RECORD", err)
			}
		})
	}
}

func TestImplementationKey(t *testing.T) {
	ref := map[string]any{
		"vendor":           "cisco",
		"platform":         "Nexus 9000",
		"software-version": "10.3(2)",
		"software-flavor":  "ALL",
	}

	key := ImplementationKey(ref)
	if key != "cisco/Nexus#9000/10.3(2)/ALL" {
		t.Errorf("ImplementationKey = %q", key)
	}
}

func TestImplementationKeyMissingFieldsAreEmptySegments(t *testing.T) {
	key := ImplementationKey(map[string]any{"vendor": "cisco"})
	if key != "cisco///" {
		t.Errorf("ImplementationKey = %q, want %q", key, "cisco///")
	}
}

func TestVendorKeyRoundTrip(t *testing.T) {
	tests := []struct {
		vendor, platform, version, flavor string
	}{
		{"cisco", "xr", "7.0", "ios"},
		{"juniper networks", "mx 960", "junos 21.2", "flex flavor"},
		{"fujitsu", "T100", "2.4", "Linux"},
	}

	for _, tt := range tests {
		key := VendorKey(tt.vendor, tt.platform, tt.version, tt.flavor)
		vendor, platform, version, flavor, err := ParseVendorKey(key)
		if err != nil {
			t.Fatalf("ParseVendorKey(%q) error: %v", key, err)
		}
		if vendor != tt.vendor || platform != tt.platform || version != tt.version || flavor != tt.flavor {
			t.Errorf("round trip of %q = (%q, %q, %q, %q), want (%q, %q, %q, %q)",
				key, vendor, platform, version, flavor, tt.vendor, tt.platform, tt.version, tt.flavor)
		}
	}
}

func TestVendorKeyEscapesWhitespace(t *testing.T) {
	key := VendorKey("juniper networks", "mx 960", "21.2", "flex")
	if key != "juniper#networks/mx#960/21.2/flex" {
		t.Errorf("VendorKey = %q", key)
	}
}

func TestParseVendorKeyInvalid(t *testing.T) {
	for _, key := range []string{"", "cisco", "cisco/xr/7.0", "a/b/c/d/e"} {
		_, _, _, _, err := ParseVendorKey(key)
		if !errors.Is(err, errors.ErrCodeInvalidKey) {
			t.Errorf("ParseVendorKey(%q) error = %v, want INVALID_KEY", key, err)
		}
	}
}
