package stats

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/brentp/xopen"

	"github.com/fulcrumgenomics/pixy/windows"
)

// readPopulations parses the tab-separated sample<TAB>population file and
// maps each population to the VCF sample indices belonging to it.
// Population names are returned in order of first appearance.
func readPopulations(path string, samples []string) ([]string, map[string][]int, error) {
	sampleIdx := make(map[string]int, len(samples))
	for i, s := range samples {
		sampleIdx[s] = i
	}

	rdr, err := xopen.Ropen(path)
	if err != nil {
		return nil, nil, err
	}
	defer rdr.Close()

	var popNames []string
	popIndices := make(map[string][]int)
	for {
		line, err := rdr.ReadString('\n')
		if err == io.EOF && line == "" {
			break
		}
		if err != nil && err != io.EOF {
			return nil, nil, err
		}
		line = strings.TrimSuffix(line, "\n")
		if line == "" {
			continue
		}
		toks := strings.Split(line, "\t")
		if len(toks) < 2 || toks[0] == "" || toks[1] == "" {
			return nil, nil, fmt.Errorf("stats: populations file row is missing data: %q", line)
		}
		id, pop := toks[0], toks[1]
		idx, ok := sampleIdx[id]
		if !ok {
			return nil, nil, fmt.Errorf("stats: sample %s is listed in the populations file but not in the VCF", id)
		}
		if _, seen := popIndices[pop]; !seen {
			popNames = append(popNames, pop)
		}
		popIndices[pop] = append(popIndices[pop], idx)
		if err == io.EOF {
			break
		}
	}
	if len(popNames) == 0 {
		return nil, nil, fmt.Errorf("stats: populations file %s contains no samples", path)
	}
	return popNames, popIndices, nil
}

// bedRegion is one window from a user-provided BED file of reporting
// intervals (columns chrom, start, end; coordinates used as given).
type bedRegion struct {
	chrom  string
	window windows.Window
}

func readBed(path string) ([]bedRegion, error) {
	rdr, err := xopen.Ropen(path)
	if err != nil {
		return nil, err
	}
	defer rdr.Close()

	var regions []bedRegion
	for {
		line, err := rdr.ReadString('\n')
		if err == io.EOF && line == "" {
			break
		}
		if err != nil && err != io.EOF {
			return nil, err
		}
		l := strings.TrimSpace(line)
		if l != "" {
			toks := strings.Split(l, "\t")
			if len(toks) < 3 {
				return nil, fmt.Errorf("stats: BED row needs three fields (chrom, pos1, pos2): %q", l)
			}
			start, serr := strconv.Atoi(toks[1])
			end, eerr := strconv.Atoi(toks[2])
			if serr != nil || eerr != nil {
				return nil, fmt.Errorf("stats: malformed BED row: %q", l)
			}
			regions = append(regions, bedRegion{chrom: toks[0], window: windows.Window{Start: start, End: end}})
		}
		if err == io.EOF {
			break
		}
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("stats: BED file %s contains no intervals", path)
	}
	return regions, nil
}

// readSites parses the tab-separated chrom<TAB>pos target-site file into
// per-chromosome sorted position lists.
func readSites(path string) (map[string][]int, error) {
	rdr, err := xopen.Ropen(path)
	if err != nil {
		return nil, err
	}
	defer rdr.Close()

	sites := make(map[string][]int)
	for {
		line, err := rdr.ReadString('\n')
		if err == io.EOF && line == "" {
			break
		}
		if err != nil && err != io.EOF {
			return nil, err
		}
		l := strings.TrimSpace(line)
		if l != "" {
			toks := strings.Split(l, "\t")
			if len(toks) < 2 {
				return nil, fmt.Errorf("stats: sites row needs two fields (chrom, pos): %q", l)
			}
			pos, perr := strconv.Atoi(toks[1])
			if perr != nil {
				return nil, fmt.Errorf("stats: malformed sites row: %q", l)
			}
			sites[toks[0]] = append(sites[toks[0]], pos)
		}
		if err == io.EOF {
			break
		}
	}
	for _, pos := range sites {
		sort.Ints(pos)
	}
	return sites, nil
}
