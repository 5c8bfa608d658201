package stats

import (
	"sort"

	"github.com/fulcrumgenomics/pixy/calc"
)

// aggregateRows re-bins subwindow-grained rows of one statistic on one
// chromosome into windows of the requested size. Bins are closed,
// non-overlapping intervals anchored at the minimum observed position. The
// decomposed components are summed (NA entries skipped) and the final ratio
// is recomputed from the sums; ratios are never averaged.
func aggregateRows(rows []Row, windowSize int, fstType string) []Row {
	if len(rows) == 0 {
		return nil
	}

	min := rows[0].Start
	for _, r := range rows {
		if r.Start < min {
			min = r.Start
		}
	}

	type key struct {
		pop1, pop2 string
		bin        int
	}
	groups := make(map[key]*Row)
	var order []key
	for _, r := range rows {
		k := key{pop1: r.Pop1, pop2: r.Pop2, bin: (r.Start - min) / windowSize}
		g, ok := groups[k]
		if !ok {
			g = &Row{
				Stat: r.Stat, Pop1: r.Pop1, Pop2: r.Pop2, Chrom: r.Chrom,
				Start: min + k.bin*windowSize,
				End:   min + (k.bin+1)*windowSize - 1,
				C1:    Field{Integer: r.C1.Integer},
				C2:    Field{Integer: r.C2.Integer},
				C3:    Field{Integer: r.C3.Integer},
			}
			groups[k] = g
			order = append(order, k)
		}
		g.NSites += r.NSites
		addField(&g.C1, r.C1)
		addField(&g.C2, r.C2)
		addField(&g.C3, r.C3)
	}

	out := make([]Row, 0, len(order))
	for _, k := range order {
		g := groups[k]
		g.Value = recompute(g.Stat, fstType, g.C1, g.C2, g.C3)
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Pop1 != b.Pop1 {
			return a.Pop1 < b.Pop1
		}
		if a.Pop2 != b.Pop2 {
			return a.Pop2 < b.Pop2
		}
		return a.Start < b.Start
	})
	return out
}

// addField accumulates src into dst, skipping NA entries; the integer flag
// survives from the sources so counts still format as counts.
func addField(dst *Field, src Field) {
	if src.NA {
		return
	}
	dst.Val += src.Val
	dst.Integer = src.Integer
}

// recompute derives the final ratio from summed components using the same
// rule as the per-window computation: diffs/comps for pi and dxy,
// a/(a+b+c) for WC84 fst and num/den for Hudson fst. A zero denominator
// yields NA.
func recompute(stat, fstType string, c1, c2, c3 Field) Field {
	switch stat {
	case "pi", "dxy":
		return ratioField(divide(c1.Val, c2.Val))
	case "fst":
		if fstType == calc.WC {
			return ratioField(divide(c1.Val, c1.Val+c2.Val+c3.Val))
		}
		return ratioField(divide(c1.Val, c2.Val))
	}
	return naField()
}

func divide(num, den float64) calc.Ratio {
	if !(den > 0) {
		return calc.Ratio{NA: true}
	}
	return calc.Ratio{Val: num / den}
}
