package stats

import (
	"sort"

	"github.com/fulcrumgenomics/pixy/calc"
	"github.com/fulcrumgenomics/pixy/vcf"
	"github.com/fulcrumgenomics/pixy/windows"
)

// chunkTask is the unit of work handed to one worker: a chromosome
// sub-range and the windows to report within it.
type chunkTask struct {
	chrom     string
	chunk     windows.Chunk
	sites     []int // target sites falling in this chunk, nil when unused
	aggregate bool  // rows are subwindow-grained and will be re-binned
}

// driver computes all requested statistics for one chunk at a time. It is
// read-only after construction and safe to share across workers.
type driver struct {
	rdr        *vcf.Reader
	popNames   []string
	popIndices map[string][]int
	doPi       bool
	doDxy      bool
	doFst      bool
	fstType    string
	windowSize int
}

// popPairs returns all unordered population pairs, in file order.
func (d *driver) popPairs() [][2]string {
	var pairs [][2]string
	for i := 0; i < len(d.popNames); i++ {
		for j := i + 1; j < len(d.popNames); j++ {
			pairs = append(pairs, [2]string{d.popNames[i], d.popNames[j]})
		}
	}
	return pairs
}

// computeChunk reads the chunk's genotypes once and emits one row per
// (statistic, population or pair, window). Empty chunks and windows yield
// NA rows so the output grid stays dense.
func (d *driver) computeChunk(t chunkTask) ([]Row, error) {
	gt, pos, err := d.rdr.ReadRegion(t.chrom, t.chunk.Start, t.chunk.End, t.sites)
	if err != nil {
		return nil, err
	}

	// fst only sees variable biallelic sites; filter once per chunk and
	// reuse the view for every window.
	var fstGT *calc.Matrix
	var fstPos []int
	if d.doFst && gt != nil {
		fstGT, fstPos = filterVariable(gt, pos)
	}

	block := make([]Row, 0, len(t.chunk.Windows)*len(d.popNames))

	// per-site mode: fst is computed once across the whole chunk rather
	// than once per single-base window
	if d.doFst && d.windowSize == 1 && fstGT != nil {
		rows, err := d.fstPerSiteRows(t.chrom, fstGT, fstPos)
		if err != nil {
			return nil, err
		}
		block = append(block, rows...)
	}

	for _, w := range t.chunk.Windows {
		var gtRegion *calc.Matrix
		lo, hi := locateRange(pos, w.Start, w.End)
		windowEmpty := gt == nil || lo == hi
		if !windowEmpty {
			gtRegion = gt.Rows(lo, hi)
		}

		if d.doPi {
			for _, pop := range d.popNames {
				block = append(block, d.piRow(t.chrom, w, pop, gtRegion, windowEmpty))
			}
		}
		if d.doDxy {
			for _, pair := range d.popPairs() {
				row, err := d.dxyRow(t.chrom, w, pair, gtRegion, windowEmpty)
				if err != nil {
					return nil, err
				}
				block = append(block, row)
			}
		}
		if d.doFst && d.windowSize != 1 {
			flo, fhi := locateRange(fstPos, w.Start, w.End)
			for _, pair := range d.popPairs() {
				row, err := d.fstRow(t.chrom, w, pair, fstGT, flo, fhi, t.aggregate)
				if err != nil {
					return nil, err
				}
				block = append(block, row)
			}
		}
	}
	return block, nil
}

func (d *driver) piRow(chrom string, w windows.Window, pop string, gtRegion *calc.Matrix, empty bool) Row {
	row := Row{Stat: "pi", Pop1: pop, Pop2: NA, Chrom: chrom, Start: w.Start, End: w.End,
		Value: naField(), C1: naField(), C2: naField(), C3: naField()}
	if empty {
		return row
	}
	gtPop := gtRegion.Take(d.popIndices[pop])
	if !hasData(gtPop) {
		return row
	}
	res := calc.Pi(gtPop)
	row.Value = ratioField(res.AvgPi)
	row.NSites = calledSites(gtPop)
	row.C1 = intField(res.TotalDiffs)
	row.C2 = intField(res.TotalComps)
	row.C3 = intField(res.TotalMissing)
	return row
}

func (d *driver) dxyRow(chrom string, w windows.Window, pair [2]string, gtRegion *calc.Matrix, empty bool) (Row, error) {
	row := Row{Stat: "dxy", Pop1: pair[0], Pop2: pair[1], Chrom: chrom, Start: w.Start, End: w.End,
		Value: naField(), C1: naField(), C2: naField(), C3: naField()}
	if empty {
		return row, nil
	}
	gt1 := gtRegion.Take(d.popIndices[pair[0]])
	gt2 := gtRegion.Take(d.popIndices[pair[1]])
	if !hasData(gt1) || !hasData(gt2) {
		return row, nil
	}
	res, err := calc.Dxy(gt1, gt2)
	if err != nil {
		return Row{}, err
	}
	row.Value = ratioField(res.AvgDxy)
	row.NSites = sharedSites(gt1, gt2)
	row.C1 = intField(res.TotalDiffs)
	row.C2 = intField(res.TotalComps)
	row.C3 = intField(res.TotalMissing)
	return row, nil
}

func (d *driver) fstRow(chrom string, w windows.Window, pair [2]string, fstGT *calc.Matrix, lo, hi int, aggregate bool) (Row, error) {
	row := Row{Stat: "fst", Pop1: pair[0], Pop2: pair[1], Chrom: chrom, Start: w.Start, End: w.End,
		Value: naField(), C1: naField(), C2: naField(), C3: naField()}
	if fstGT == nil || lo == hi {
		return row, nil
	}
	subpops := [][]int{d.popIndices[pair[0]], d.popIndices[pair[1]]}
	res, err := calc.Fst(fstGT.Rows(lo, hi), subpops, d.fstType)
	if err != nil {
		return Row{}, err
	}
	row.Value = ratioField(res.Fst)
	row.NSites = res.NSites
	if aggregate {
		// keep the additive components so the ratio can be recomputed after
		// re-binning
		row.C1 = floatField(res.A)
		row.C2 = floatField(res.B)
		row.C3 = floatField(res.C)
	}
	return row, nil
}

func (d *driver) fstPerSiteRows(chrom string, fstGT *calc.Matrix, fstPos []int) ([]Row, error) {
	var rows []Row
	for _, pair := range d.popPairs() {
		subpops := [][]int{d.popIndices[pair[0]], d.popIndices[pair[1]]}
		fst, err := calc.FstPerSite(fstGT, subpops, d.fstType)
		if err != nil {
			return nil, err
		}
		for i, v := range fst {
			rows = append(rows, Row{
				Stat: "fst", Pop1: pair[0], Pop2: pair[1], Chrom: chrom,
				Start: fstPos[i], End: fstPos[i],
				Value: floatField(v), NSites: 1,
				C1: naField(), C2: naField(), C3: naField(),
			})
		}
	}
	return rows, nil
}

func ratioField(r calc.Ratio) Field {
	if r.NA {
		return naField()
	}
	return floatField(r.Val)
}

// hasData is the shared emptiness predicate: a population slice is
// computable when it has at least one site.
func hasData(m *calc.Matrix) bool { return m != nil && m.NSites() > 0 }

// locateRange returns the index range [lo, hi) of positions within the
// closed interval [start, end]. Positions must be sorted ascending.
func locateRange(pos []int, start, end int) (lo, hi int) {
	lo = sort.SearchInts(pos, start)
	hi = sort.SearchInts(pos, end+1)
	return lo, hi
}

// calledSites counts sites with at least one called biallelic genotype.
func calledSites(m *calc.Matrix) int {
	n := 0
	for _, row := range m.CountAlleles(2) {
		if row[0]+row[1] > 0 {
			n++
		}
	}
	return n
}

// sharedSites counts sites called in both populations.
func sharedSites(m1, m2 *calc.Matrix) int {
	ac1 := m1.CountAlleles(2)
	ac2 := m2.CountAlleles(2)
	n := 0
	for i := range ac1 {
		if ac1[i][0]+ac1[i][1] > 0 && ac2[i][0]+ac2[i][1] > 0 {
			n++
		}
	}
	return n
}

// filterVariable returns the subset of sites that are variable and
// biallelic: both the reference and the first alternate allele observed, and
// no allele index above 1.
func filterVariable(gt *calc.Matrix, pos []int) (*calc.Matrix, []int) {
	width := gt.MaxAllele() + 1
	if width < 2 {
		width = 2
	}
	ac := gt.CountAlleles(width)
	fm := &calc.Matrix{Ploidy: gt.Ploidy}
	var fpos []int
	for i, row := range ac {
		beyond := 0
		for al, c := range row {
			if al > 1 {
				beyond += c
			}
		}
		if row[0] == 0 || row[1] == 0 || beyond > 0 {
			continue
		}
		fm.Calls = append(fm.Calls, gt.Calls[i])
		fpos = append(fpos, pos[i])
	}
	if len(fm.Calls) == 0 {
		return nil, nil
	}
	return fm, fpos
}
