package stats

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/brentp/xopen"
)

// readTempRows parses the raw temp file written by the chunk workers back
// into rows, grouped by statistic kind.
func readTempRows(path string) (map[string][]Row, error) {
	rdr, err := xopen.Ropen(path)
	if err != nil {
		return nil, err
	}
	defer rdr.Close()

	byStat := make(map[string][]Row)
	for {
		line, err := rdr.ReadString('\n')
		if err == io.EOF && line == "" {
			break
		}
		if err != nil && err != io.EOF {
			return nil, err
		}
		if strings.TrimSpace(line) != "" {
			r, perr := parseRow(line)
			if perr != nil {
				return nil, perr
			}
			byStat[r.Stat] = append(byStat[r.Stat], r)
		}
		if err == io.EOF {
			break
		}
	}
	return byStat, nil
}

// writeOutputs turns the temp rows into the final per-statistic files.
// Chromosomes whose rows were computed at subwindow granularity are re-bin
// aggregated first. Rows are written sorted by chromosome (input order),
// population(s), then window start, restoring the position order that
// multi-core arrival order does not guarantee.
func writeOutputs(tempPath, prefix string, requested []string, fstType string, windowSize int, aggregateByChrom map[string]bool, chromOrder []string) error {
	byStat, err := readTempRows(tempPath)
	if err != nil {
		return err
	}

	chromRank := make(map[string]int, len(chromOrder))
	for i, c := range chromOrder {
		chromRank[c] = i
	}

	for _, stat := range requested {
		rows := byStat[stat]

		// per-site fst rows are already final; everything else re-bins when
		// the chunking granularity was finer than the requested window
		if windowSize > 1 {
			var out []Row
			byChrom := make(map[string][]Row)
			for _, r := range rows {
				byChrom[r.Chrom] = append(byChrom[r.Chrom], r)
			}
			for chrom, cr := range byChrom {
				if aggregateByChrom[chrom] {
					out = append(out, aggregateRows(cr, windowSize, fstType)...)
				} else {
					out = append(out, cr...)
				}
			}
			rows = out
		}

		sort.Slice(rows, func(i, j int) bool {
			a, b := rows[i], rows[j]
			if a.Chrom != b.Chrom {
				return chromRank[a.Chrom] < chromRank[b.Chrom]
			}
			if a.Pop1 != b.Pop1 {
				return a.Pop1 < b.Pop1
			}
			if a.Pop2 != b.Pop2 {
				return a.Pop2 < b.Pop2
			}
			return a.Start < b.Start
		})

		if err := writeStatFile(prefix, stat, fstType, rows); err != nil {
			return err
		}
	}
	return nil
}

func writeStatFile(prefix, stat, fstType string, rows []Row) error {
	w, err := xopen.Wopen(fmt.Sprintf("%s_%s.txt", prefix, stat))
	if err != nil {
		return err
	}
	defer w.Close()

	switch stat {
	case "pi":
		_, err = w.WriteString("pop\tchromosome\twindow_pos_1\twindow_pos_2\tavg_pi\tno_sites\tcount_diffs\tcount_comparisons\tcount_missing\n")
	case "dxy":
		_, err = w.WriteString("pop1\tpop2\tchromosome\twindow_pos_1\twindow_pos_2\tavg_dxy\tno_sites\tcount_diffs\tcount_comparisons\tcount_missing\n")
	case "fst":
		_, err = w.WriteString("pop1\tpop2\tchromosome\twindow_pos_1\twindow_pos_2\tavg_" + fstType + "_fst\tno_snps\n")
	}
	if err != nil {
		return err
	}

	for _, r := range rows {
		var cols []string
		switch stat {
		case "pi":
			cols = []string{r.Pop1, r.Chrom, strconv.Itoa(r.Start), strconv.Itoa(r.End),
				r.Value.String(), strconv.Itoa(r.NSites), r.C1.String(), r.C2.String(), r.C3.String()}
		case "dxy":
			cols = []string{r.Pop1, r.Pop2, r.Chrom, strconv.Itoa(r.Start), strconv.Itoa(r.End),
				r.Value.String(), strconv.Itoa(r.NSites), r.C1.String(), r.C2.String(), r.C3.String()}
		case "fst":
			cols = []string{r.Pop1, r.Pop2, r.Chrom, strconv.Itoa(r.Start), strconv.Itoa(r.End),
				r.Value.String(), strconv.Itoa(r.NSites)}
		}
		if _, err := w.WriteString(strings.Join(cols, "\t") + "\n"); err != nil {
			return err
		}
	}
	w.Flush()
	return nil
}
