package survey

import "testing"

func TestCoalescedName(t *testing.T) {
	spec := VarSpec{Exact: "c7060", Interval: "c7060it"}
	if got := spec.CoalescedName(); got != "c7060_val" {
		t.Errorf("CoalescedName() = %q, want %q", got, "c7060_val")
	}
}

func TestCatalogueShape(t *testing.T) {
	debt := DebtSpecs()
	assets := AssetSpecs()

	// 17 debt categories, with the two six-instance house-loan
	// questions expanded.
	if len(debt) != 27 {
		t.Errorf("DebtSpecs() returned %d specs, want 27", len(debt))
	}
	// 24 asset categories, with six house instances and five bond
	// instances expanded.
	if len(assets) != 33 {
		t.Errorf("AssetSpecs() returned %d specs, want 33", len(assets))
	}

	seen := map[string]bool{}
	for _, s := range append(debt, assets...) {
		if s.Exact == "" {
			t.Fatalf("catalogue contains spec with empty exact column: %+v", s)
		}
		if seen[s.Exact] {
			t.Errorf("duplicate exact column %q in catalogue", s.Exact)
		}
		seen[s.Exact] = true
	}
}

func TestIntervalTwinBracketCoverage(t *testing.T) {
	// A handful of interval twins have no bracket table in the 2017
	// codebook; their codes resolve to undefined, which the coalescer
	// tolerates. Anything outside this set missing a table means a
	// transcription slip.
	knownUncovered := map[string]bool{
		"b2003dit": true,
		"c2023dit": true,
		"c2023eit": true,
		"d3116it":  true,
	}

	for _, s := range AllSpecs() {
		if !s.HasInterval() {
			continue
		}
		if HasTable(s.Interval) {
			if knownUncovered[s.Interval] {
				t.Errorf("interval column %q unexpectedly gained a bracket table", s.Interval)
			}
			continue
		}
		if !knownUncovered[s.Interval] {
			t.Errorf("interval column %q (twin of %q) has no bracket table", s.Interval, s.Exact)
		}
	}
}

func TestBusinessVehicleSpecIsNotAnAsset(t *testing.T) {
	bv := BusinessVehicleSpec()
	if bv.Exact != "c7062" || bv.Interval != "c7062it" {
		t.Fatalf("unexpected business-vehicle spec: %+v", bv)
	}
	for _, s := range AssetSpecs() {
		if s.Exact == bv.Exact {
			t.Error("business-vehicle variable must not appear in the asset set")
		}
	}
}

func TestHeadColumnsOrderAndCopy(t *testing.T) {
	cols := HeadColumns()
	if cols[0].Raw != "hhid" || cols[len(cols)-1].Renamed != "head_siblings" {
		t.Errorf("unexpected head column order: %+v", cols)
	}

	var sex *HeadColumn
	for i := range cols {
		if cols[i].Raw == "a2003" {
			sex = &cols[i]
		}
	}
	if sex == nil || sex.Renamed != "head_sex" {
		t.Fatalf("a2003 should rename to head_sex, got %+v", sex)
	}

	sex.Renamed = "mutated"
	for _, c := range HeadColumns() {
		if c.Raw == "a2003" && c.Renamed != "head_sex" {
			t.Error("HeadColumns must return an independent copy")
		}
	}
}

func TestIndexedSpecExpansion(t *testing.T) {
	houseBank := indexedSpecs("c2064", "c2064it", 1, 6)
	if len(houseBank) != 6 {
		t.Fatalf("expected 6 house-loan instances, got %d", len(houseBank))
	}
	if houseBank[0].Exact != "c2064_1" || houseBank[0].Interval != "c2064it_1" {
		t.Errorf("first instance = %+v", houseBank[0])
	}
	if houseBank[5].Exact != "c2064_6" || houseBank[5].Interval != "c2064it_6" {
		t.Errorf("last instance = %+v", houseBank[5])
	}
}
