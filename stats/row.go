package stats

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NA marks a statistic or component with no valid comparisons behind it.
const NA = "NA"

// Field is one numeric component of a result row, possibly NA. Integer
// fields (pairwise counts) format without a decimal part.
type Field struct {
	Val     float64
	NA      bool
	Integer bool
}

func intField(v int) Field { return Field{Val: float64(v), Integer: true} }

// floatField converts non-finite values to NA so they never reach output.
func floatField(v float64) Field {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Field{NA: true}
	}
	return Field{Val: v}
}

func naField() Field { return Field{NA: true} }

func (f Field) String() string {
	if f.NA {
		return NA
	}
	if f.Integer {
		return strconv.Itoa(int(f.Val))
	}
	return strconv.FormatFloat(f.Val, 'g', -1, 64)
}

// Row is one computed result in the 11-column schema shared by all three
// statistics. For pi and dxy the components are (differences, comparisons,
// missing); for fst they are (a, b, c) under WC84 or (numerator,
// denominator, 0) under Hudson.
type Row struct {
	Stat   string // pi, dxy or fst
	Pop1   string
	Pop2   string // NA for pi
	Chrom  string
	Start  int
	End    int
	Value  Field
	NSites int
	C1     Field
	C2     Field
	C3     Field
}

func (r Row) String() string {
	return strings.Join([]string{
		r.Stat, r.Pop1, r.Pop2, r.Chrom,
		strconv.Itoa(r.Start), strconv.Itoa(r.End),
		r.Value.String(), strconv.Itoa(r.NSites),
		r.C1.String(), r.C2.String(), r.C3.String(),
	}, "\t")
}

func parseField(s string) (Field, error) {
	if s == NA {
		return Field{NA: true}, nil
	}
	if i, err := strconv.Atoi(s); err == nil {
		return intField(i), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Field{}, err
	}
	return Field{Val: v}, nil
}

// parseRow decodes one tab-delimited temp-file line back into a Row.
func parseRow(line string) (Row, error) {
	toks := strings.Split(strings.TrimSuffix(line, "\n"), "\t")
	if len(toks) != 11 {
		return Row{}, fmt.Errorf("stats: row has %d columns, want 11: %q", len(toks), line)
	}
	r := Row{Stat: toks[0], Pop1: toks[1], Pop2: toks[2], Chrom: toks[3]}
	var err error
	if r.Start, err = strconv.Atoi(toks[4]); err != nil {
		return Row{}, err
	}
	if r.End, err = strconv.Atoi(toks[5]); err != nil {
		return Row{}, err
	}
	if r.Value, err = parseField(toks[6]); err != nil {
		return Row{}, err
	}
	if r.NSites, err = strconv.Atoi(toks[7]); err != nil {
		return Row{}, err
	}
	if r.C1, err = parseField(toks[8]); err != nil {
		return Row{}, err
	}
	if r.C2, err = parseField(toks[9]); err != nil {
		return Row{}, err
	}
	if r.C3, err = parseField(toks[10]); err != nil {
		return Row{}, err
	}
	return r, nil
}
