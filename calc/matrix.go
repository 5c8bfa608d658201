// Package calc implements the pixy statistics engine: nucleotide diversity
// within populations (pi), divergence between populations (dxy), and
// differentiation (fst) under the Weir-Cockerham (1984) and Hudson (1992)
// estimators. All functions operate on genotype matrices that have already
// been filtered to biallelic SNPs and invariant sites.
package calc

// Missing is the sentinel for an uncalled allele.
const Missing int8 = -1

// Matrix holds genotype calls for a set of sites. Calls is sites x
// (samples*ploidy); each entry is an allele index or Missing.
type Matrix struct {
	Ploidy int
	Calls  [][]int8
}

// NewMatrix returns a zeroed matrix with the given dimensions.
func NewMatrix(nSites, nSamples, ploidy int) *Matrix {
	calls := make([][]int8, nSites)
	for i := range calls {
		calls[i] = make([]int8, nSamples*ploidy)
	}
	return &Matrix{Ploidy: ploidy, Calls: calls}
}

// NSites returns the number of sites (rows).
func (m *Matrix) NSites() int { return len(m.Calls) }

// NSamples returns the number of samples (individuals).
func (m *Matrix) NSamples() int {
	if len(m.Calls) == 0 {
		return 0
	}
	return len(m.Calls[0]) / m.Ploidy
}

// NHaps returns the number of haploid samples (samples * ploidy).
func (m *Matrix) NHaps() int { return m.NSamples() * m.Ploidy }

// Rows returns a view of the row range [i, j). The underlying calls are
// shared with the receiver.
func (m *Matrix) Rows(i, j int) *Matrix {
	return &Matrix{Ploidy: m.Ploidy, Calls: m.Calls[i:j]}
}

// Take returns a new matrix restricted to the given sample indices.
func (m *Matrix) Take(samples []int) *Matrix {
	t := &Matrix{Ploidy: m.Ploidy, Calls: make([][]int8, len(m.Calls))}
	for i, row := range m.Calls {
		sub := make([]int8, 0, len(samples)*m.Ploidy)
		for _, s := range samples {
			sub = append(sub, row[s*m.Ploidy:(s+1)*m.Ploidy]...)
		}
		t.Calls[i] = sub
	}
	return t
}

// Sample returns the calls of one individual at one site.
func (m *Matrix) Sample(site, sample int) []int8 {
	return m.Calls[site][sample*m.Ploidy : (sample+1)*m.Ploidy]
}

// MaxAllele returns the highest allele index observed anywhere in the
// matrix, or -1 if every call is missing.
func (m *Matrix) MaxAllele() int {
	max := -1
	for _, row := range m.Calls {
		for _, c := range row {
			if int(c) > max {
				max = int(c)
			}
		}
	}
	return max
}

// CountAlleles tabulates per-site allele counts over all samples. Rows have
// the given width (alleles at or beyond width are ignored; callers size the
// width from MaxAllele). Counts at a site sum to the number of non-missing
// haploid calls there.
func (m *Matrix) CountAlleles(width int) [][]int {
	if width < 1 {
		width = 1
	}
	ac := make([][]int, len(m.Calls))
	for i, row := range m.Calls {
		counts := make([]int, width)
		for _, c := range row {
			if c >= 0 && int(c) < width {
				counts[int(c)]++
			}
		}
		ac[i] = counts
	}
	return ac
}

// CountAllelesSubpop is CountAlleles restricted to the given sample indices.
func (m *Matrix) CountAllelesSubpop(samples []int, width int) [][]int {
	if width < 1 {
		width = 1
	}
	ac := make([][]int, len(m.Calls))
	for i := range m.Calls {
		counts := make([]int, width)
		for _, s := range samples {
			for _, c := range m.Sample(i, s) {
				if c >= 0 && int(c) < width {
					counts[int(c)]++
				}
			}
		}
		ac[i] = counts
	}
	return ac
}
