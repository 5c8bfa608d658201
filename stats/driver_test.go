package stats

import (
	"reflect"
	"testing"

	"github.com/fulcrumgenomics/pixy/calc"
	"github.com/fulcrumgenomics/pixy/windows"
)

func gtmat(rows ...[]int8) *calc.Matrix {
	m := &calc.Matrix{Ploidy: 2}
	for _, r := range rows {
		m.Calls = append(m.Calls, r)
	}
	return m
}

func TestPiRow(t *testing.T) {
	d := &driver{popNames: []string{"A"}, popIndices: map[string][]int{"A": {0, 1}}}
	w := windows.Window{Start: 1, End: 100}

	row := d.piRow("1", w, "A", gtmat([]int8{0, 1, 1, 1}), false)
	if row.Value.NA || row.Value.Val != 0.5 {
		t.Errorf("pi: got %s, want 0.5", row.Value)
	}
	if row.NSites != 1 {
		t.Errorf("no_sites: got %d, want 1", row.NSites)
	}
	if row.C1.Val != 3 || row.C2.Val != 6 || row.C3.Val != 0 {
		t.Errorf("components: got %s/%s/%s, want 3/6/0", row.C1, row.C2, row.C3)
	}
	if row.Pop2 != NA {
		t.Errorf("pi pop2: got %s, want NA", row.Pop2)
	}
}

func TestPiRowEmptyWindow(t *testing.T) {
	d := &driver{popNames: []string{"A"}, popIndices: map[string][]int{"A": {0}}}
	row := d.piRow("1", windows.Window{Start: 1, End: 100}, "A", nil, true)
	if !row.Value.NA || !row.C1.NA || !row.C2.NA || !row.C3.NA {
		t.Errorf("empty window should give an all-NA row, got %s", row)
	}
	if row.NSites != 0 {
		t.Errorf("empty window no_sites: got %d, want 0", row.NSites)
	}
	if row.Start != 1 || row.End != 100 {
		t.Errorf("empty window must keep its span, got %d-%d", row.Start, row.End)
	}
}

func TestDxyRow(t *testing.T) {
	d := &driver{
		popNames:   []string{"A", "B"},
		popIndices: map[string][]int{"A": {0}, "B": {1}},
	}
	row, err := d.dxyRow("1", windows.Window{Start: 1, End: 100}, [2]string{"A", "B"},
		gtmat([]int8{0, 0, 1, 1}), false)
	if err != nil {
		t.Fatal(err)
	}
	if row.Value.NA || row.Value.Val != 1.0 {
		t.Errorf("dxy: got %s, want 1", row.Value)
	}
	if row.C1.Val != 4 || row.C2.Val != 4 {
		t.Errorf("dxy components: got %s/%s, want 4/4", row.C1, row.C2)
	}
	if row.NSites != 1 {
		t.Errorf("dxy no_sites: got %d, want 1", row.NSites)
	}
}

func TestFstRowFixedDifference(t *testing.T) {
	d := &driver{
		popNames:   []string{"A", "B"},
		popIndices: map[string][]int{"A": {0, 1}, "B": {2, 3}},
		fstType:    calc.WC,
	}
	fstGT := gtmat([]int8{0, 0, 0, 0, 1, 1, 1, 1})
	row, err := d.fstRow("1", windows.Window{Start: 1, End: 100}, [2]string{"A", "B"}, fstGT, 0, 1, true)
	if err != nil {
		t.Fatal(err)
	}
	if row.Value.NA || row.Value.Val != 1.0 {
		t.Errorf("fst: got %s, want 1", row.Value)
	}
	if row.C1.NA || row.C2.NA || row.C3.NA {
		t.Errorf("aggregate mode must keep numeric components, got %s/%s/%s", row.C1, row.C2, row.C3)
	}
	if row.NSites != 1 {
		t.Errorf("no_snps: got %d, want 1", row.NSites)
	}

	// outside aggregate mode the components are not carried
	row, err = d.fstRow("1", windows.Window{Start: 1, End: 100}, [2]string{"A", "B"}, fstGT, 0, 1, false)
	if err != nil {
		t.Fatal(err)
	}
	if !row.C1.NA || !row.C2.NA || !row.C3.NA {
		t.Errorf("non-aggregate components should be NA, got %s/%s/%s", row.C1, row.C2, row.C3)
	}
}

func TestFstRowNoVariants(t *testing.T) {
	d := &driver{
		popNames:   []string{"A", "B"},
		popIndices: map[string][]int{"A": {0}, "B": {1}},
		fstType:    calc.WC,
	}
	row, err := d.fstRow("1", windows.Window{Start: 1, End: 100}, [2]string{"A", "B"}, nil, 0, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if !row.Value.NA || row.NSites != 0 {
		t.Errorf("windows without variants should still yield an NA row, got %s", row)
	}
}

func TestPopPairs(t *testing.T) {
	d := &driver{popNames: []string{"A", "B", "C"}}
	want := [][2]string{{"A", "B"}, {"A", "C"}, {"B", "C"}}
	if got := d.popPairs(); !reflect.DeepEqual(got, want) {
		t.Errorf("popPairs: got %v, want %v", got, want)
	}
}

func TestLocateRange(t *testing.T) {
	pos := []int{10, 20, 30, 40, 50}
	tests := []struct {
		start, end int
		lo, hi     int
	}{
		{1, 100, 0, 5},
		{20, 40, 1, 4},
		{21, 29, 2, 2},
		{50, 60, 4, 5},
		{60, 70, 5, 5},
	}
	for _, tt := range tests {
		lo, hi := locateRange(pos, tt.start, tt.end)
		if lo != tt.lo || hi != tt.hi {
			t.Errorf("locateRange(%d, %d): got %d,%d, want %d,%d", tt.start, tt.end, lo, hi, tt.lo, tt.hi)
		}
	}
}

func TestFilterVariable(t *testing.T) {
	gt := gtmat(
		[]int8{0, 0, 0, 0},     // invariant reference
		[]int8{0, 1, 0, 0},     // variable biallelic: kept
		[]int8{0, 2, 0, 1},     // multiallelic
		[]int8{-1, -1, -1, -1}, // uncalled
		[]int8{1, 1, 1, 1},     // invariant non-reference
		[]int8{1, 1, 0, -1},    // variable with a missing call: kept
	)
	pos := []int{10, 20, 30, 40, 50, 60}
	fgt, fpos := filterVariable(gt, pos)
	if !reflect.DeepEqual(fpos, []int{20, 60}) {
		t.Fatalf("filterVariable positions: got %v, want [20 60]", fpos)
	}
	if fgt.NSites() != 2 || fgt.Ploidy != 2 {
		t.Errorf("filterVariable matrix: %d sites ploidy %d", fgt.NSites(), fgt.Ploidy)
	}

	fgt, fpos = filterVariable(gtmat([]int8{0, 0, 0, 0}), []int{10})
	if fgt != nil || fpos != nil {
		t.Errorf("all-invariant chunk should filter to nil, got %v %v", fgt, fpos)
	}
}

func TestCalledAndSharedSites(t *testing.T) {
	m1 := gtmat([]int8{0, 1}, []int8{-1, -1}, []int8{0, 0})
	m2 := gtmat([]int8{1, 1}, []int8{0, 0}, []int8{-1, -1})
	if got := calledSites(m1); got != 2 {
		t.Errorf("calledSites: got %d, want 2", got)
	}
	if got := sharedSites(m1, m2); got != 1 {
		t.Errorf("sharedSites: got %d, want 1", got)
	}
}
