package survey

import (
	"math"
	"testing"
)

func TestResolveKnownCodes(t *testing.T) {
	tests := []struct {
		code     float64
		variable string
		want     float64
	}{
		{1, "b2003ait", 5_000},
		{11, "d3109it", 15_000_000},
		{1, "d1105it", 5_000},
		{5, "c7060it", 150_000},
		{1, "c2064it_3", 50_000},
		{11, "c2064it_6", 15_000_000},
		{1, "c1000bbit", 25},
		{4, "c1000bbit", 95.5},
		{13, "c1000bdit", 30_000_000},
		{15, "c2000fit", 30_000_000},
		{12, "f4005it", 30_000},
		{7, "h3351it", 30_000},
		{11, "g1024it", 150_000},
	}

	for _, test := range tests {
		got, ok := Resolve(test.code, test.variable)
		if !ok {
			t.Errorf("Resolve(%v, %q): expected resolution, got none", test.code, test.variable)
			continue
		}
		if got != test.want {
			t.Errorf("Resolve(%v, %q) = %v, want %v", test.code, test.variable, got, test.want)
		}
	}
}

func TestResolveUnknowns(t *testing.T) {
	if _, ok := Resolve(99, "b2003ait"); ok {
		t.Error("code outside the table should not resolve")
	}
	if _, ok := Resolve(1, "does_not_exist"); ok {
		t.Error("unregistered variable should not resolve")
	}
	if _, ok := Resolve(math.NaN(), "b2003ait"); ok {
		t.Error("missing code should not resolve")
	}
	// Code 4 is a hole in the f4005it bracket layout.
	if _, ok := Resolve(4, "f4005it"); ok {
		t.Error("unused code 4 should not resolve for f4005it")
	}
}

func TestResolveSuffixInsensitive(t *testing.T) {
	base, okBase := Resolve(3, "c2016it")
	suffixed, okSuffix := Resolve(3, "c2016it_4")
	if !okBase || !okSuffix {
		t.Fatalf("expected both lookups to resolve (base=%v suffix=%v)", okBase, okSuffix)
	}
	if base != suffixed {
		t.Errorf("suffix changed resolution: base %v, suffixed %v", base, suffixed)
	}
}

func TestNormalizeVarName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"c2016it_1", "c2016it"},
		{"c2064it_6", "c2064it"},
		{"c3019ait", "c3019ait"}, // trailing letters, not an index
		{"b3031a_2", "b3031a"},
		{"hhid", "hhid"},
		{"x_", "x_"},
		{"x_1a", "x_1a"},
	}
	for _, test := range tests {
		if got := NormalizeVarName(test.in); got != test.want {
			t.Errorf("NormalizeVarName(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestResolveColumn(t *testing.T) {
	codes := []float64{1, math.NaN(), 99, 5}
	got := ResolveColumn(codes, "c7060it")

	if len(got) != len(codes) {
		t.Fatalf("expected %d values, got %d", len(codes), len(got))
	}
	if got[0] != 5_000 {
		t.Errorf("got[0] = %v, want 5000", got[0])
	}
	if !math.IsNaN(got[1]) {
		t.Errorf("missing code should stay undefined, got %v", got[1])
	}
	if !math.IsNaN(got[2]) {
		t.Errorf("unregistered code should be undefined, got %v", got[2])
	}
	if got[3] != 150_000 {
		t.Errorf("got[3] = %v, want 150000", got[3])
	}
}

func TestEveryRegisteredCodeResolvesToTableEntry(t *testing.T) {
	for _, tbl := range codebookTables {
		for _, v := range tbl.variables {
			for code, want := range tbl.codes {
				got, ok := Resolve(float64(code), v)
				if !ok {
					t.Fatalf("Resolve(%d, %q): registered code did not resolve", code, v)
				}
				if got != want {
					t.Fatalf("Resolve(%d, %q) = %v, want %v", code, v, got, want)
				}
			}
		}
	}
}
