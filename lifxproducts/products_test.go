package lifxproducts

import (
	"encoding/json"
	"reflect"
	"testing"
)

func mustJSON(t *testing.T, x interface{}) string {
	b, err := json.Marshal(x)
	if err != nil {
		t.Fatalf("internal error: json.Marshal: %v", err)
	}
	return string(b)
}

func TestDetermineProductExtendedMultizone(t *testing.T) {
	const vid, pid = 1, 32 // LIFX Z

	// (2, 78) picks up extended multizone, but not the expanded temperature range.
	p, err := DetermineProduct(ProductsFile, vid, pid, HostFirmware{Major: 2, Minor: 78})
	if err != nil {
		t.Fatalf("DetermineProduct: %v", err)
	}
	p.Upgrades = nil // should have been applied to p.Features
	want := Product{
		PID:  pid,
		Name: "LIFX Z",
		Features: ProductCapabilities{
			HEV:      boolPtr(false),
			Color:    boolPtr(true),
			Matrix:   boolPtr(false),
			Infrared: boolPtr(false),

			Multizone:         boolPtr(true),
			TemperatureRange:  []uint16{2500, 9000},
			ExtendedMultizone: boolPtr(true),
			HasUplight:        boolPtr(false),
		},
	}
	if !reflect.DeepEqual(p, want) {
		t.Errorf("DetermineProduct did not yield the right result.\n got %s\nwant %s",
			mustJSON(t, p), mustJSON(t, want))
	}
}

func TestDetermineProductHigherFirmwareTemperatureRange(t *testing.T) {
	const vid, pid = 1, 32 // LIFX Z

	p, err := DetermineProduct(ProductsFile, vid, pid, HostFirmware{Major: 2, Minor: 80})
	if err != nil {
		t.Fatalf("DetermineProduct: %v", err)
	}
	if got, want := p.Features.TemperatureRange, []uint16{1500, 9000}; !reflect.DeepEqual(got, want) {
		t.Errorf("DetermineProduct on a higher firmware version gave wrong result for temperature_range.\n got %d, want %d", got, want)
	}
}

func TestDetermineProductBelowUpgradeThreshold(t *testing.T) {
	const vid, pid = 1, 32 // LIFX Z

	// (2, 76) is below both upgrade thresholds.
	p, err := DetermineProduct(ProductsFile, vid, pid, HostFirmware{Major: 2, Minor: 76})
	if err != nil {
		t.Fatalf("DetermineProduct: %v", err)
	}
	if got := *p.Features.ExtendedMultizone; got {
		t.Errorf("ExtendedMultizone = true before upgrade threshold")
	}
}

func TestDetermineProductCeilingHasUplight(t *testing.T) {
	const vid, pid = 1, 90 // LIFX Ceiling

	p, err := DetermineProduct(ProductsFile, vid, pid, HostFirmware{Major: 3, Minor: 70})
	if err != nil {
		t.Fatalf("DetermineProduct: %v", err)
	}
	if !p.Features.IsCeiling() {
		t.Errorf("LIFX Ceiling product did not report IsCeiling()")
	}
	if !*p.Features.Matrix {
		t.Errorf("LIFX Ceiling product did not report matrix capability")
	}
}

func TestDetermineProductUnknownVendor(t *testing.T) {
	if _, err := DetermineProduct(ProductsFile, 999, 1, HostFirmware{}); err == nil {
		t.Errorf("DetermineProduct with unknown vendor ID succeeded; want error")
	}
}

func TestDetermineProductUnknownProduct(t *testing.T) {
	if _, err := DetermineProduct(ProductsFile, 1, 999999, HostFirmware{}); err == nil {
		t.Errorf("DetermineProduct with unknown product ID succeeded; want error")
	}
}

func TestProductCapabilitiesString(t *testing.T) {
	pc := ProductCapabilities{
		Color:            boolPtr(true),
		Multizone:        boolPtr(true),
		TemperatureRange: []uint16{2500, 9000},
	}
	got := pc.String()
	if got == "" || got[0] != '{' {
		t.Errorf("ProductCapabilities.String() = %q, want a brace-delimited summary", got)
	}
}
