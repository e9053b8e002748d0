// Package lifxproducts decodes the LIFX product registry and determines a
// device's derived capability record from its vendor/product IDs and host
// firmware version.
//
// Adapted from github.com/dsymonds/lifx's products.go, generalized to the
// fuller capability record spec.md's device-subtype design calls for
// (infrared, HEV, zone geometry for ceiling devices) instead of the
// teacher's {hev, color, matrix, multizone, temperature_range,
// extended_multizone} set.
package lifxproducts

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// rawProductsJSON is a version of https://github.com/LIFX/products embedded
// in this package, exactly as the teacher embeds it.
//
//go:embed products.json
var rawProductsJSON []byte

// ProductsFile is the decoded product registry. Pass this as the first
// argument to DetermineProduct.
var ProductsFile []VendorProducts

func init() {
	if err := json.Unmarshal(rawProductsJSON, &ProductsFile); err != nil {
		panic("internal error decoding products.json: " + err.Error())
	}
}

// VendorProducts groups one vendor's products under a shared capability
// default.
type VendorProducts struct {
	VID  uint32 `json:"vid"`  // 1 == LIFX
	Name string `json:"name"` // e.g. "LIFX"

	Defaults ProductCapabilities `json:"defaults"`
	Products []Product           `json:"products"`
}

// HostFirmware reports a device's host firmware version, completing the
// teacher's dangling GetHostFirmware/HostFirmware reference
// (cmd/ping/main.go calls dev.GetHostFirmware and uses the result's
// Major/Minor/Build fields, but the type was never declared in the teacher's
// retrieved source).
type HostFirmware struct {
	Major, Minor uint16
	Build        time.Time
}

// ProductCapabilities is the functional capability set of a product.
//
// Fields are nullable/zero because the source data has a default-layering
// semantic: vendor defaults, then product features, then firmware-gated
// upgrades are merged in order (see DetermineProduct). Any Product returned
// through DetermineProduct has every bool field set to a concrete value.
type ProductCapabilities struct {
	HEV      *bool `json:"hev,omitempty"`
	Color    *bool `json:"color,omitempty"`
	Matrix   *bool `json:"matrix,omitempty"`
	Infrared *bool `json:"infrared,omitempty"`

	Multizone         *bool    `json:"multizone,omitempty"`
	ExtendedMultizone *bool    `json:"extended_multizone,omitempty"`
	TemperatureRange  []uint16 `json:"temperature_range,omitempty"` // [min, max] Kelvin; nil until merged

	// HasUplight marks ceiling-style matrix devices with one distinguished
	// uplight pixel plus a downlight region covering the rest of the canvas
	// (spec.md §3 Canvas layout, §9 Device subtypes). The uplight's actual
	// pixel index (pixel_count-1) depends on the device's queried tile
	// geometry, not the static product registry, so it is computed by
	// package device rather than stored here.
	HasUplight *bool `json:"has_uplight,omitempty"`
}

func (pc ProductCapabilities) String() string {
	var s []string
	checkBool := func(b *bool, name string) {
		if b != nil && *b {
			s = append(s, name)
		}
	}
	checkBool(pc.HEV, "hev")
	checkBool(pc.Color, "color")
	checkBool(pc.Matrix, "matrix")
	checkBool(pc.Infrared, "infrared")
	checkBool(pc.Multizone, "multizone")
	if tr := pc.TemperatureRange; len(tr) > 0 {
		s = append(s, fmt.Sprintf("temperature_range=[%d,%d]", tr[0], tr[1]))
	}
	checkBool(pc.ExtendedMultizone, "extended_multizone")
	checkBool(pc.HasUplight, "uplight")
	return "{" + strings.Join(s, ",") + "}"
}

// IsCeiling reports whether pc describes a ceiling-class matrix device.
func (pc ProductCapabilities) IsCeiling() bool {
	return pc.HasUplight != nil && *pc.HasUplight
}

// merge applies values set in o, following the teacher's layering rule:
// only fields o actually sets are copied over.
func (pc *ProductCapabilities) merge(o ProductCapabilities) {
	copyBool := func(dst **bool, src *bool) {
		if src == nil {
			return
		}
		if *dst == nil {
			*dst = boolPtr(false) // immediately overwritten below
		}
		**dst = *src
	}

	copyBool(&pc.HEV, o.HEV)
	copyBool(&pc.Color, o.Color)
	copyBool(&pc.Matrix, o.Matrix)
	copyBool(&pc.Infrared, o.Infrared)
	copyBool(&pc.Multizone, o.Multizone)
	copyBool(&pc.ExtendedMultizone, o.ExtendedMultizone)
	copyBool(&pc.HasUplight, o.HasUplight)

	if tr := o.TemperatureRange; len(tr) > 0 {
		pc.TemperatureRange = []uint16{tr[0], tr[1]}
	}
}

// Product describes one vendor product and its firmware-gated capability
// upgrades.
type Product struct {
	PID      uint32              `json:"pid"`
	Name     string              `json:"name"`
	Features ProductCapabilities `json:"features"`
	Upgrades []struct {
		Major    uint16              `json:"major"`
		Minor    uint16              `json:"minor"`
		Features ProductCapabilities `json:"features"`
	} `json:"upgrades"`
}

// DetermineProduct determines the product and its derived capabilities.
// Use this rather than manually inspecting ProductsFile, which should be
// passed as the first argument.
//
// vendorID and productID can be obtained from a device's StateVersion
// reply; firmwareVersion from its StateHostFirmware reply.
func DetermineProduct(file []VendorProducts, vendorID, productID uint32, firmwareVersion HostFirmware) (Product, error) {
	var vp *VendorProducts
	for i := range file {
		if file[i].VID == vendorID {
			vp = &file[i]
			break
		}
	}
	if vp == nil {
		return Product{}, fmt.Errorf("unknown vendor ID %d", vendorID)
	}

	var product Product
	var found bool
	for _, p := range vp.Products {
		if p.PID == productID {
			product, found = p, true
			break
		}
	}
	if !found {
		return Product{}, fmt.Errorf("unknown product ID %d for vendor %d (%s)", productID, vendorID, vp.Name)
	}

	// Start with the default capabilities, then the product's own, then
	// apply firmware-gated upgrades in declaration order. Per spec.md §9
	// ("extended-multizone firmware gate"), this is where a capability can
	// be un-set by absence just as easily as set by presence — upgrades
	// only ever add fields the registry declares, never remove them.
	cap := ProductCapabilities{
		HEV:      boolPtr(false),
		Color:    boolPtr(false),
		Matrix:   boolPtr(false),
		Infrared: boolPtr(false),

		Multizone:         boolPtr(false),
		ExtendedMultizone: boolPtr(false),
		HasUplight:        boolPtr(false),
		// no TemperatureRange default
	}
	cap.merge(vp.Defaults)
	cap.merge(product.Features)
	for _, u := range product.Upgrades {
		// A higher major version always qualifies regardless of minor; an
		// equal major version needs at least the upgrade's minor.
		if firmwareVersion.Major > u.Major || (firmwareVersion.Major == u.Major && firmwareVersion.Minor >= u.Minor) {
			cap.merge(u.Features)
		}
	}
	product.Features = cap

	return product, nil
}

func boolPtr(b bool) *bool { return &b }
