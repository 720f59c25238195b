// Package catalog loads the workpiece catalog: the table mapping a
// detector's class labels to gripping heights, approach offsets, and
// bilingual descriptions used by get_workpiece_catalog and the
// trajectory helper's safe-height default.
package catalog

import (
	"encoding/csv"
	"io"
	"strconv"
)

// Workpiece is one catalog row. ApproachZOffset supplements the
// spec's {name, gripping_height, description} shape with the
// original's per-workpiece safe-transit offset.
type Workpiece struct {
	ClassLabel      string
	NameJA, NameEN  string
	GrippingHeight  float64 // mm
	ApproachZOffset float64 // mm
	DescriptionJA   string
	DescriptionEN   string
}

// Catalog is an immutable, class-label-keyed workpiece table.
type Catalog struct {
	byLabel map[string]Workpiece
}

// Get returns the workpiece for a class label and whether it exists.
func (c Catalog) Get(label string) (Workpiece, bool) {
	w, ok := c.byLabel[label]
	return w, ok
}

// All returns every catalog entry, keyed by class label.
func (c Catalog) All() map[string]Workpiece {
	out := make(map[string]Workpiece, len(c.byLabel))
	for k, v := range c.byLabel {
		out[k] = v
	}
	return out
}

// Default returns the compiled-in fallback catalog, used when no CSV
// path is configured or the file is absent. It carries the same two
// entries the original hardcoded: earplug_case and base_tray, with
// their approach_z_offset values.
func Default() Catalog {
	return Catalog{byLabel: map[string]Workpiece{
		"earplug_case": {
			ClassLabel:      "earplug_case",
			NameJA:          "耳栓ケース",
			NameEN:          "earplug case",
			GrippingHeight:  43.0,
			ApproachZOffset: 50.0,
			DescriptionJA:   "耳栓を収納する小型ケース",
			DescriptionEN:   "small case for storing earplugs",
		},
		"base_tray": {
			ClassLabel:      "base_tray",
			NameJA:          "配置トレイ",
			NameEN:          "placement tray",
			GrippingHeight:  5.0,
			ApproachZOffset: 60.0,
			DescriptionJA:   "ワークを配置するためのトレイ",
			DescriptionEN:   "tray for placing workpieces",
		},
	}}
}

// expectedHeader is the CSV's required column order.
var expectedHeader = []string{"class_label", "name_ja", "name_en", "gripping_height", "description_ja", "description_en"}

// Load reads a UTF-8 CSV with headers class_label,name_ja,name_en,
// gripping_height,description_ja,description_en. Rows with a
// malformed gripping_height fall back to 0. The CSV format has no
// approach_z_offset column; rows loaded this way get ApproachZOffset
// 0 unless later merged with Default().
func Load(r io.Reader) (Catalog, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(expectedHeader)

	records, err := cr.ReadAll()
	if err != nil {
		return Catalog{}, err
	}
	if len(records) == 0 {
		return Catalog{byLabel: map[string]Workpiece{}}, nil
	}

	byLabel := make(map[string]Workpiece, len(records)-1)
	for _, row := range records[1:] {
		height, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			height = 0
		}
		w := Workpiece{
			ClassLabel:     row[0],
			NameJA:         row[1],
			NameEN:         row[2],
			GrippingHeight: height,
			DescriptionJA:  row[4],
			DescriptionEN:  row[5],
		}
		byLabel[w.ClassLabel] = w
	}

	return Catalog{byLabel: byLabel}, nil
}

// MergeApproachOffsets copies ApproachZOffset from fallback into c for
// any label present in both, leaving CSV-sourced fields otherwise
// untouched. Used to enrich a CSV-loaded catalog (which has no
// approach_z_offset column) with the compiled-in defaults.
func (c Catalog) MergeApproachOffsets(fallback Catalog) Catalog {
	merged := make(map[string]Workpiece, len(c.byLabel))
	for label, w := range c.byLabel {
		if fb, ok := fallback.byLabel[label]; ok {
			w.ApproachZOffset = fb.ApproachZOffset
		}
		merged[label] = w
	}
	return Catalog{byLabel: merged}
}
