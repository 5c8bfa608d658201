package calc

import "math"

// meanPairwiseDifference returns, per site, the mean number of pairwise
// differences between haplotypes within one population, or NaN when the
// site has no pairs.
func meanPairwiseDifference(ac [][]int) []float64 {
	mpd := make([]float64, len(ac))
	for s, row := range ac {
		an := 0
		same := 0
		for _, c := range row {
			an += c
			same += c * (c - 1) / 2
		}
		pairs := an * (an - 1) / 2
		if pairs > 0 {
			mpd[s] = float64(pairs-same) / float64(pairs)
		} else {
			mpd[s] = math.NaN()
		}
	}
	return mpd
}

// meanPairwiseDifferenceBetween returns, per site, the mean number of
// pairwise differences between haplotypes drawn from each of two
// populations, or NaN when there are no cross-population pairs.
func meanPairwiseDifferenceBetween(ac1, ac2 [][]int) []float64 {
	mpd := make([]float64, len(ac1))
	for s := range ac1 {
		an1, an2, same := 0, 0, 0
		for i := range ac1[s] {
			an1 += ac1[s][i]
			an2 += ac2[s][i]
			same += ac1[s][i] * ac2[s][i]
		}
		pairs := an1 * an2
		if pairs > 0 {
			mpd[s] = float64(pairs-same) / float64(pairs)
		} else {
			mpd[s] = math.NaN()
		}
	}
	return mpd
}

// HudsonFst computes the per-site numerator and denominator of the Hudson
// (1992) fst estimator, as elaborated by Bhatia et al. (2013), from the two
// populations' allele-count tables: the denominator is the divergence
// between the populations and the numerator is that divergence minus the
// average diversity within each population.
func HudsonFst(ac1, ac2 [][]int) (num, den []float64) {
	within1 := meanPairwiseDifference(ac1)
	within2 := meanPairwiseDifference(ac2)
	between := meanPairwiseDifferenceBetween(ac1, ac2)

	num = make([]float64, len(between))
	den = make([]float64, len(between))
	for s := range between {
		within := (within1[s] + within2[s]) / 2
		num[s] = between[s] - within
		den[s] = between[s]
	}
	return num, den
}
