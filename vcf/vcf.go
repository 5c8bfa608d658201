// Package vcf reads genotype matrices from bgzip-compressed, tabix-indexed
// VCF files. Region reads retain only biallelic SNPs and invariant sites and
// mark calls with a read depth below 1 as missing, so downstream statistics
// see pre-filtered data.
package vcf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/biogo/hts/bgzf"
	"github.com/biogo/hts/tabix"

	"github.com/fulcrumgenomics/pixy/calc"
)

// maxTabixPos is the largest coordinate addressable by a classic .tbi index.
const maxTabixPos = 1<<29 - 1

// Reader provides indexed region access to a single VCF.
type Reader struct {
	path    string
	idx     *tabix.Index
	Samples []string
}

// Open opens a bgzipped VCF and its .tbi index and parses the header sample
// list.
func Open(path string) (*Reader, error) {
	ifh, err := os.Open(path + ".tbi")
	if err != nil {
		return nil, fmt.Errorf("vcf: the VCF is not indexed with tabix: %w", err)
	}
	defer ifh.Close()
	bz, err := bgzf.NewReader(ifh, 1)
	if err != nil {
		return nil, fmt.Errorf("vcf: reading tabix index: %w", err)
	}
	defer bz.Close()
	idx, err := tabix.ReadFrom(bz)
	if err != nil {
		return nil, fmt.Errorf("vcf: reading tabix index: %w", err)
	}

	r := &Reader{path: path, idx: idx}
	if r.Samples, err = readSamples(path); err != nil {
		return nil, err
	}
	return r, nil
}

// Chroms returns the chromosome names present in the index, in index order.
func (r *Reader) Chroms() []string { return r.idx.Names() }

func readSamples(path string) ([]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	bz, err := bgzf.NewReader(fh, 1)
	if err != nil {
		return nil, fmt.Errorf("vcf: the VCF is not compressed with bgzip: %w", err)
	}
	defer bz.Close()

	rdr := bufio.NewReader(bz)
	for {
		line, err := rdr.ReadString('\n')
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(line, "#CHROM") {
			toks := strings.Split(strings.TrimSuffix(line, "\n"), "\t")
			if len(toks) < 10 {
				return nil, fmt.Errorf("vcf: header line has no samples")
			}
			return toks[9:], nil
		}
		if !strings.HasPrefix(line, "#") {
			return nil, fmt.Errorf("vcf: missing #CHROM header line")
		}
	}
	return nil, fmt.Errorf("vcf: missing #CHROM header line")
}

// ReadRegion reads genotypes for chrom:[start,end] (1-based, inclusive) and
// returns the filtered genotype matrix with its aligned positions. Both are
// nil when the region holds no retained sites. When targetSites is non-nil,
// sites not listed there are masked to missing.
func (r *Reader) ReadRegion(chrom string, start, end int, targetSites []int) (*calc.Matrix, []int, error) {
	chunks, err := r.idx.Chunks(chrom, start-1, end)
	if err != nil || len(chunks) == 0 {
		// an unindexed or uncovered region is an empty chunk, not an error
		return nil, nil, nil
	}

	fh, err := os.Open(r.path)
	if err != nil {
		return nil, nil, err
	}
	defer fh.Close()
	bz, err := bgzf.NewReader(fh, 1)
	if err != nil {
		return nil, nil, err
	}
	defer bz.Close()
	if err := bz.Seek(chunks[0].Begin); err != nil {
		return nil, nil, err
	}

	m := &Matrixed{nSamples: len(r.Samples)}
	rdr := bufio.NewReader(bz)
	for {
		line, err := rdr.ReadString('\n')
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		rc, pos, done, perr := m.parseRecord(line, chrom, start, end)
		if perr != nil {
			return nil, nil, perr
		}
		if done {
			break
		}
		if rc != nil {
			m.calls = append(m.calls, rc)
			m.pos = append(m.pos, pos)
		}
	}

	gt := m.genotypes()
	if gt == nil {
		return nil, nil, nil
	}
	if targetSites != nil {
		MaskNonTargetSites(gt, m.pos, targetSites)
	}
	return gt, m.pos, nil
}

// ChromExtent returns the first and last record positions for a chromosome.
// Only the first and final index chunks are read.
func (r *Reader) ChromExtent(chrom string) (first, last int, err error) {
	chunks, err := r.idx.Chunks(chrom, 0, maxTabixPos)
	if err != nil || len(chunks) == 0 {
		return 0, 0, fmt.Errorf("vcf: no records indexed for chromosome %s", chrom)
	}

	fh, err := os.Open(r.path)
	if err != nil {
		return 0, 0, err
	}
	defer fh.Close()
	bz, err := bgzf.NewReader(fh, 1)
	if err != nil {
		return 0, 0, err
	}
	defer bz.Close()

	scan := func(chunk int, stopAtFirst bool) (int, error) {
		if err := bz.Seek(chunks[chunk].Begin); err != nil {
			return 0, err
		}
		rdr := bufio.NewReader(bz)
		found := 0
		for {
			line, err := rdr.ReadString('\n')
			if err == io.EOF {
				break
			}
			if err != nil {
				return 0, err
			}
			c, pos, ok := chromPos(line)
			if !ok || c != chrom {
				if found > 0 {
					break
				}
				continue
			}
			found = pos
			if stopAtFirst {
				break
			}
		}
		return found, nil
	}

	if first, err = scan(0, true); err != nil {
		return 0, 0, err
	}
	if last, err = scan(len(chunks)-1, false); err != nil {
		return 0, 0, err
	}
	if first == 0 || last == 0 {
		return 0, 0, fmt.Errorf("vcf: no records found for chromosome %s", chrom)
	}
	return first, last, nil
}

// MaskNonTargetSites replaces the calls of every site whose position is not
// in targets with missing data, in place.
func MaskNonTargetSites(m *calc.Matrix, pos []int, targets []int) {
	want := make(map[int]bool, len(targets))
	for _, t := range targets {
		want[t] = true
	}
	for i, p := range pos {
		if want[p] {
			continue
		}
		for j := range m.Calls[i] {
			m.Calls[i][j] = calc.Missing
		}
	}
}

// Matrixed accumulates parsed records for one region read.
type Matrixed struct {
	nSamples int
	ploidy   int
	calls    [][]int8
	pos      []int
}

// genotypes materializes the accumulated records as a matrix. Placeholder
// rows from records seen before the ploidy was known are expanded to
// all-missing calls; a region with no informative genotype at all is decoded
// as diploid.
func (m *Matrixed) genotypes() *calc.Matrix {
	if len(m.calls) == 0 {
		return nil
	}
	if m.ploidy == 0 {
		m.ploidy = 2
	}
	for i, row := range m.calls {
		if len(row) == 0 {
			row = make([]int8, m.nSamples*m.ploidy)
			for j := range row {
				row[j] = calc.Missing
			}
			m.calls[i] = row
		}
	}
	return &calc.Matrix{Ploidy: m.ploidy, Calls: m.calls}
}

// chromPos extracts the CHROM and POS fields of a record line.
func chromPos(line string) (string, int, bool) {
	if len(line) == 0 || line[0] == '#' {
		return "", 0, false
	}
	ci := strings.IndexByte(line, '\t')
	if ci < 0 {
		return "", 0, false
	}
	rest := line[ci+1:]
	pi := strings.IndexByte(rest, '\t')
	if pi < 0 {
		return "", 0, false
	}
	pos, err := strconv.Atoi(rest[:pi])
	if err != nil {
		return "", 0, false
	}
	return line[:ci], pos, true
}

// parseRecord decodes one VCF line. It returns a non-nil call row only for
// records inside the requested region that are biallelic SNPs or invariant
// sites; done reports that the read is past the region.
func (m *Matrixed) parseRecord(line, chrom string, start, end int) (row []int8, pos int, done bool, err error) {
	c, pos, ok := chromPos(line)
	if !ok {
		return nil, 0, false, nil
	}
	if c != chrom {
		// past the target chromosome once records for it have been seen
		return nil, 0, len(m.pos) > 0, nil
	}
	if pos < start {
		return nil, 0, false, nil
	}
	if pos > end {
		return nil, 0, true, nil
	}

	toks := strings.Split(strings.TrimSuffix(line, "\n"), "\t")
	if len(toks) < 9+m.nSamples {
		return nil, 0, false, fmt.Errorf("vcf: record at %s:%d has %d fields, want %d", chrom, pos, len(toks), 9+m.nSamples)
	}
	ref, alt, format := toks[3], toks[4], toks[8]
	if !keepSite(ref, alt) {
		return nil, 0, false, nil
	}

	gtIdx, dpIdx := -1, -1
	for i, key := range strings.Split(format, ":") {
		switch key {
		case "GT":
			gtIdx = i
		case "DP":
			dpIdx = i
		}
	}
	if gtIdx < 0 {
		return nil, 0, false, fmt.Errorf("vcf: record at %s:%d has no GT field", chrom, pos)
	}

	samples := toks[9 : 9+m.nSamples]
	if m.ploidy == 0 {
		// the bare missing form "." carries no ploidy information, so infer
		// from the highest-ploidy informative genotype in the record
		for _, s := range samples {
			if gt := fieldAt(s, gtIdx); gt != "" && gt != "." {
				if p := gtPloidy(gt); p > m.ploidy {
					m.ploidy = p
				}
			}
		}
		if m.ploidy == 0 {
			// every genotype is "."; record an all-missing placeholder and
			// decide the ploidy from a later record
			return []int8{}, pos, false, nil
		}
	}

	row = make([]int8, 0, m.nSamples*m.ploidy)
	for _, s := range samples {
		calls := parseGT(fieldAt(s, gtIdx), m.ploidy)
		// depth below 1 (or missing depth) is treated as an uncalled sample
		if dpIdx >= 0 && !depthOK(fieldAt(s, dpIdx)) {
			for i := range calls {
				calls[i] = calc.Missing
			}
		}
		row = append(row, calls...)
	}
	return row, pos, false, nil
}

// keepSite reports whether a record is a biallelic SNP or an invariant site.
func keepSite(ref, alt string) bool {
	if alt == "." || alt == "" {
		return true
	}
	if len(ref) != 1 {
		return false
	}
	alts := strings.Split(alt, ",")
	if len(alts) != 1 {
		return false
	}
	return len(alts[0]) == 1 && strings.ContainsAny(alts[0], "ACGTacgt")
}

// fieldAt returns the i'th colon-separated field of a sample column, or ""
// when trailing fields were dropped.
func fieldAt(sample string, i int) string {
	for ; i > 0; i-- {
		j := strings.IndexByte(sample, ':')
		if j < 0 {
			return ""
		}
		sample = sample[j+1:]
	}
	if j := strings.IndexByte(sample, ':'); j >= 0 {
		sample = sample[:j]
	}
	return sample
}

func gtPloidy(gt string) int {
	return strings.Count(gt, "/") + strings.Count(gt, "|") + 1
}

// parseGT decodes a genotype call like 0/1, 0|1 or ./. into allele indexes,
// padding to the matrix ploidy with missing calls.
func parseGT(gt string, ploidy int) []int8 {
	calls := make([]int8, ploidy)
	for i := range calls {
		calls[i] = calc.Missing
	}
	if gt == "" {
		return calls
	}
	alleles := strings.FieldsFunc(gt, func(r rune) bool { return r == '/' || r == '|' })
	for i, a := range alleles {
		if i >= ploidy {
			break
		}
		if a == "." {
			continue
		}
		if v, err := strconv.Atoi(a); err == nil {
			calls[i] = int8(v)
		}
	}
	return calls
}

func depthOK(dp string) bool {
	if dp == "" || dp == "." {
		return false
	}
	v, err := strconv.Atoi(dp)
	return err == nil && v >= 1
}
