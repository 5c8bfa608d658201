package calc

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// WeirCockerhamFst computes the Weir & Cockerham (1984) variance components
// for each site and allele: a (between populations), b (between individuals
// within populations) and c (between gametes within individuals). Entries
// are NaN where a component is undefined (for example when a subpopulation
// has no called individuals at a site); callers sum with nan-aware sums.
func WeirCockerhamFst(m *Matrix, subpops [][]int) (a, b, c [][]float64) {
	nSites := m.NSites()
	nAlleles := m.MaxAllele() + 1
	if nAlleles < 1 {
		nAlleles = 1
	}
	r := float64(len(subpops))

	a = make([][]float64, nSites)
	b = make([][]float64, nSites)
	c = make([][]float64, nSites)

	n := make([]float64, len(subpops))
	p := make([]float64, len(subpops))
	h := make([]float64, len(subpops))

	for s := 0; s < nSites; s++ {
		// sample size per subpopulation: individuals with no missing calls
		for i, pop := range subpops {
			n[i] = 0
			for _, smp := range pop {
				called := true
				for _, g := range m.Sample(s, smp) {
					if g < 0 {
						called = false
						break
					}
				}
				if called {
					n[i]++
				}
			}
		}

		nTotal := floats.Sum(n)
		nBar := stat.Mean(n, nil)
		nC := (nTotal - floats.Dot(n, n)/nTotal) / (r - 1)

		as := make([]float64, nAlleles)
		bs := make([]float64, nAlleles)
		cs := make([]float64, nAlleles)

		for al := 0; al < nAlleles; al++ {
			for i, pop := range subpops {
				// allele frequency within the subpopulation
				count := 0.0
				het := 0.0
				for _, smp := range pop {
					gs := m.Sample(s, smp)
					nAl := 0
					missing := false
					for _, g := range gs {
						if g < 0 {
							missing = true
						}
						if int(g) == al {
							nAl++
						}
					}
					count += float64(nAl)
					// heterozygote carrying this allele
					if !missing && nAl > 0 && nAl < len(gs) {
						hom := true
						for _, g := range gs[1:] {
							if g != gs[0] {
								hom = false
								break
							}
						}
						if !hom {
							het++
						}
					}
				}
				p[i] = count / (n[i] * float64(m.Ploidy))
				h[i] = het / n[i]
			}

			pBar := 0.0
			hBar := 0.0
			for i := range subpops {
				pBar += n[i] * p[i]
				hBar += n[i] * h[i]
			}
			pBar /= nBar * r
			hBar /= nBar * r

			s2 := 0.0
			for i := range subpops {
				d := p[i] - pBar
				s2 += n[i] * d * d
			}
			s2 /= nBar * (r - 1)

			as[al] = (nBar / nC) *
				(s2 - (1/(nBar-1))*(pBar*(1-pBar)-((r-1)/r)*s2-hBar/4))
			bs[al] = (nBar / (nBar - 1)) *
				(pBar*(1-pBar) - ((r-1)/r)*s2 - ((2*nBar-1)/(4*nBar))*hBar)
			cs[al] = hBar / 2
		}
		a[s], b[s], c[s] = as, bs, cs
	}
	return a, b, c
}
