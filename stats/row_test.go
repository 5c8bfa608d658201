package stats

import (
	"math"
	"reflect"
	"testing"
)

func TestRowRoundTrip(t *testing.T) {
	rows := []Row{
		{Stat: "pi", Pop1: "A", Pop2: NA, Chrom: "1", Start: 1, End: 100,
			Value: floatField(0.5), NSites: 3, C1: intField(3), C2: intField(6), C3: intField(0)},
		{Stat: "dxy", Pop1: "A", Pop2: "B", Chrom: "X", Start: 101, End: 200,
			Value: naField(), NSites: 0, C1: naField(), C2: naField(), C3: naField()},
		{Stat: "fst", Pop1: "A", Pop2: "B", Chrom: "1", Start: 1, End: 100,
			Value: floatField(0.2), NSites: 2, C1: floatField(0.125), C2: floatField(0.625), C3: floatField(0)},
	}
	for _, want := range rows {
		got, err := parseRow(want.String() + "\n")
		if err != nil {
			t.Fatalf("parseRow(%q): %v", want.String(), err)
		}
		// float components with a round value re-parse as integer fields;
		// compare on the rendered form, which is what downstream consumes
		if got.String() != want.String() {
			t.Errorf("round trip: got %q, want %q", got.String(), want.String())
		}
	}
}

func TestParseRowRejectsShortLines(t *testing.T) {
	if _, err := parseRow("pi\tA\tNA\t1\t1\t100\n"); err == nil {
		t.Error("expected an error for a row with too few columns")
	}
}

func TestFieldString(t *testing.T) {
	tests := []struct {
		f    Field
		want string
	}{
		{intField(42), "42"},
		{floatField(0.5), "0.5"},
		{floatField(math.NaN()), "NA"},
		{floatField(math.Inf(1)), "NA"},
		{naField(), "NA"},
	}
	for _, tt := range tests {
		if got := tt.f.String(); got != tt.want {
			t.Errorf("Field%+v.String(): got %q, want %q", tt.f, got, tt.want)
		}
	}
}

func TestParseField(t *testing.T) {
	f, err := parseField("NA")
	if err != nil || !f.NA {
		t.Errorf("parseField(NA): got %+v, %v", f, err)
	}
	f, err = parseField("6")
	if err != nil || !reflect.DeepEqual(f, intField(6)) {
		t.Errorf("parseField(6): got %+v, %v", f, err)
	}
	f, err = parseField("0.625")
	if err != nil || f.Val != 0.625 || f.Integer {
		t.Errorf("parseField(0.625): got %+v, %v", f, err)
	}
	if _, err = parseField("bogus"); err == nil {
		t.Error("expected an error for a non-numeric field")
	}
}
