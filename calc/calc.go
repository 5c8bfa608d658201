package calc

import (
	"fmt"
	"math"
	"strconv"
)

// Supported fst estimators.
const (
	WC     = "wc"
	Hudson = "hudson"
)

// Ratio is a statistic value that is undefined (NA) when its denominator
// sums to zero. The NA state is explicit so that no NaN or Inf ever reaches
// formatted output.
type Ratio struct {
	Val float64
	NA  bool
}

func (r Ratio) String() string {
	if r.NA {
		return "NA"
	}
	return strconv.FormatFloat(r.Val, 'g', -1, 64)
}

// ratioOf divides num by den, returning NA when den is not positive or the
// division is not finite.
func ratioOf(num, den float64) Ratio {
	if !(den > 0) {
		return Ratio{NA: true}
	}
	v := num / den
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Ratio{NA: true}
	}
	return Ratio{Val: v}
}

func comb2(n int) int { return n * (n - 1) / 2 }

// PiResult is the outcome of a pi computation over one window.
type PiResult struct {
	AvgPi        Ratio
	TotalDiffs   int
	TotalComps   int
	TotalMissing int
}

// DxyResult is the outcome of a dxy computation over one window.
type DxyResult struct {
	AvgDxy       Ratio
	TotalDiffs   int
	TotalComps   int
	TotalMissing int
}

// FstResult is the common 5-field shape shared by both fst estimators. For
// WC84, A/B/C are the summed variance components; for Hudson, A is the
// summed numerator, B the summed denominator and C a constant 0 so the
// downstream row format is estimator-agnostic.
type FstResult struct {
	Fst    Ratio
	A      float64
	B      float64
	C      float64
	NSites int
}

// CountDiffCompMissing counts, for one site's allele-count row, the number
// of pairwise differences, the number of comparisons actually made, and the
// number of comparisons lost to missing data. nHaps is the number of haploid
// samples in the population.
func CountDiffCompMissing(row []int, nHaps int) (diffs, comps, missing int) {
	nGts := 0
	for _, c := range row {
		nGts += c
	}
	possible := comb2(nHaps)
	if nGts == 0 {
		return 0, 0, possible
	}

	// The allelism of the site is taken to be the highest allele index with
	// a nonzero count, plus one. Alleles beyond it never contribute.
	allelism := 0
	for i, c := range row {
		if c > 0 {
			allelism = i + 1
		}
	}

	comps = comb2(nGts)
	missing = possible - comps

	// The number of differences is the sum of all pairwise cross-products
	// of the observed allele counts.
	for i := 0; i < allelism-1; i++ {
		for j := i + 1; j < allelism; j++ {
			diffs += row[i] * row[j]
		}
	}
	return diffs, comps, missing
}

// Pi computes average nucleotide diversity over all sites of a single
// population's genotype matrix.
func Pi(m *Matrix) PiResult {
	ac := m.CountAlleles(m.MaxAllele() + 1)
	nHaps := m.NHaps()

	var res PiResult
	for _, row := range ac {
		d, c, mi := CountDiffCompMissing(row, nHaps)
		res.TotalDiffs += d
		res.TotalComps += c
		res.TotalMissing += mi
	}
	res.AvgPi = ratioOf(float64(res.TotalDiffs), float64(res.TotalComps))
	return res
}

// Dxy computes average nucleotide divergence between two populations whose
// matrices cover the same sites in the same order.
func Dxy(pop1, pop2 *Matrix) (DxyResult, error) {
	if pop1.NSites() != pop2.NSites() {
		return DxyResult{}, fmt.Errorf("calc: input genotype matrices must have the same number of sites (%d != %d)",
			pop1.NSites(), pop2.NSites())
	}
	nSites := pop1.NSites()

	// Allelism is shared across sites: the highest allele index observed in
	// either population, plus one.
	allelism := pop1.MaxAllele()
	if a := pop2.MaxAllele(); a > allelism {
		allelism = a
	}
	allelism++
	if allelism < 1 {
		allelism = 1
	}
	ac1 := pop1.CountAlleles(allelism)
	ac2 := pop2.CountAlleles(allelism)

	var res DxyResult
	for s := 0; s < nSites; s++ {
		n1, n2 := 0, 0
		for i := 0; i < allelism; i++ {
			n1 += ac1[s][i]
			n2 += ac2[s][i]
			for j := 0; j < allelism; j++ {
				if i != j {
					res.TotalDiffs += ac1[s][i] * ac2[s][j]
				}
			}
		}
		res.TotalComps += n1 * n2
	}
	totalPossible := pop1.NHaps() * pop2.NHaps() * nSites
	res.TotalMissing = totalPossible - res.TotalComps
	res.AvgDxy = ratioOf(float64(res.TotalDiffs), float64(res.TotalComps))
	return res, nil
}

// Fst computes fst over all sites of a variant-only genotype matrix for the
// given subpopulation sample-index groups. Per-site component arrays are
// summed ignoring non-finite entries; the final ratio is recomputed from the
// sums so results from adjacent windows can later be aggregated by adding
// components.
func Fst(m *Matrix, subpops [][]int, fstType string) (FstResult, error) {
	res := FstResult{NSites: m.NSites()}
	switch fstType {
	case WC:
		if m.Ploidy != 2 {
			return res, fmt.Errorf("calc: Weir-Cockerham fst requires diploid data (ploidy %d)", m.Ploidy)
		}
		a, b, c := WeirCockerhamFst(m, subpops)
		res.A = nanSumMat(a)
		res.B = nanSumMat(b)
		res.C = nanSumMat(c)
		if den := res.A + res.B + res.C; den > 0 {
			res.Fst = Ratio{Val: res.A / den}
		} else {
			res.Fst = Ratio{NA: true}
		}
	case Hudson:
		width := m.MaxAllele() + 1
		ac1 := m.CountAllelesSubpop(subpops[0], width)
		ac2 := m.CountAllelesSubpop(subpops[1], width)
		num, den := HudsonFst(ac1, ac2)
		res.A = nanSum(num)
		res.B = nanSum(den)
		res.C = 0
		res.Fst = ratioOf(res.A, res.B)
	default:
		return res, fmt.Errorf("calc: fst type must be either %q or %q", WC, Hudson)
	}
	return res, nil
}

// FstPerSite computes one fst value per site of a variant-only genotype
// matrix. Sites with no valid comparisons yield NaN; callers translate those
// to the NA sentinel before output.
func FstPerSite(m *Matrix, subpops [][]int, fstType string) ([]float64, error) {
	switch fstType {
	case WC:
		if m.Ploidy != 2 {
			return nil, fmt.Errorf("calc: Weir-Cockerham fst requires diploid data (ploidy %d)", m.Ploidy)
		}
		a, b, c := WeirCockerhamFst(m, subpops)
		fst := make([]float64, m.NSites())
		for s := range fst {
			var aSum, bSum, cSum float64
			for i := range a[s] {
				aSum += a[s][i]
				bSum += b[s][i]
				cSum += c[s][i]
			}
			fst[s] = aSum / (aSum + bSum + cSum)
		}
		return fst, nil
	case Hudson:
		width := m.MaxAllele() + 1
		ac1 := m.CountAllelesSubpop(subpops[0], width)
		ac2 := m.CountAllelesSubpop(subpops[1], width)
		num, den := HudsonFst(ac1, ac2)
		fst := make([]float64, len(num))
		for s := range fst {
			fst[s] = num[s] / den[s]
		}
		return fst, nil
	}
	return nil, fmt.Errorf("calc: fst type must be either %q or %q", WC, Hudson)
}

func nanSum(vs []float64) float64 {
	var sum float64
	for _, v := range vs {
		if !math.IsNaN(v) {
			sum += v
		}
	}
	return sum
}

func nanSumMat(m [][]float64) float64 {
	var sum float64
	for _, row := range m {
		sum += nanSum(row)
	}
	return sum
}
