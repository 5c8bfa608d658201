// Package stats implements the pixy stats command: windowed pi, dxy and fst
// over a tabix-indexed VCF. Chromosomes are cut into reporting windows,
// windows are grouped into I/O chunks read once each, and per-chunk result
// blocks are merged, optionally re-binned, and written per statistic.
package stats

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	arg "github.com/alexflint/go-arg"
	"github.com/brentp/xopen"
	"github.com/fatih/color"

	"github.com/fulcrumgenomics/pixy/calc"
	"github.com/fulcrumgenomics/pixy/vcf"
	"github.com/fulcrumgenomics/pixy/windows"
)

type cliargs struct {
	Vcf           string   `arg:"required,help:path to the bgzipped and tabix-indexed VCF (with invariant sites)"`
	Stats         []string `arg:"required,help:statistics to compute; any of pi dxy fst"`
	Populations   string   `arg:"required,help:tab-separated file of sample and population name"`
	WindowSize    int      `arg:"--window_size,help:window size in base pairs over which to calculate stats"`
	ChunkSize     int      `arg:"--chunk_size,help:approximate single-read chunk size in base pairs"`
	Chromosomes   string   `arg:"help:comma-separated chromosomes to process; or all"`
	IntervalStart int      `arg:"--interval_start,help:1-based start of the interval (single chromosome only)"`
	IntervalEnd   int      `arg:"--interval_end,help:1-based end of the interval (single chromosome only)"`
	BedFile       string   `arg:"--bed_file,help:optional BED file of reporting windows (replaces --window_size)"`
	SitesFile     string   `arg:"--sites_file,help:optional file of chrom/pos target sites"`
	FstType       string   `arg:"--fst_type,help:fst estimator: wc or hudson"`
	NCores        int      `arg:"--n_cores,help:number of chunks to process concurrently"`
	Fai           string   `arg:"--fai,help:optional fasta index supplying chromosome lengths"`
	OutputFolder  string   `arg:"--output_folder,help:folder for output files"`
	OutputPrefix  string   `arg:"--output_prefix,help:prefix for output file names"`
}

func pcheck(e error) {
	if e != nil {
		log.Fatal(e)
	}
}

func fatalf(format string, args ...interface{}) {
	c := color.New(color.BgRed).Add(color.Bold)
	fmt.Fprintf(os.Stderr, "%s\n", c.SprintFunc()(fmt.Sprintf("[pixy] ERROR: "+format, args...)))
	os.Exit(1)
}

// Main is called from the pixy dispatcher.
func Main() {
	args := cliargs{
		ChunkSize:    100000,
		Chromosomes:  "all",
		FstType:      calc.WC,
		NCores:       1,
		OutputPrefix: "pixy",
	}
	p := arg.MustParse(&args)
	validate(p, &args)
	run(args)
}

func validate(p *arg.Parser, args *cliargs) {
	for _, s := range args.Stats {
		if s != "pi" && s != "dxy" && s != "fst" {
			p.Fail("--stats must be drawn from pi, dxy, fst")
		}
	}
	if args.FstType != calc.WC && args.FstType != calc.Hudson {
		p.Fail("--fst_type must be one of wc, hudson")
	}
	if args.BedFile != "" {
		if args.WindowSize != 0 || args.IntervalStart != 0 || args.IntervalEnd != 0 {
			fatalf("--interval_start, --interval_end, and --window_size are not valid when a BED file of windows is provided")
		}
	} else {
		if args.WindowSize <= 0 {
			fatalf("In the absence of a BED file, a --window_size must be specified")
		}
		if (args.IntervalStart != 0) != (args.IntervalEnd != 0) {
			fatalf("When specifying an interval, both --interval_start and --interval_end are required")
		}
	}
	if args.ChunkSize <= 0 {
		fatalf("--chunk_size must be a positive number of base pairs")
	}
	if args.NCores > runtime.NumCPU() {
		log.Printf("[pixy] WARNING: %d cores requested but only %d are available. Using %d.",
			args.NCores, runtime.NumCPU(), runtime.NumCPU())
		args.NCores = runtime.NumCPU()
	}
	if args.NCores < 1 {
		args.NCores = 1
	}
}

func run(args cliargs) {
	log.SetFlags(0)
	log.Printf("[pixy] Validating VCF and input parameters...")

	rdr, err := vcf.Open(args.Vcf)
	if err != nil {
		fatalf("%v", err)
	}

	popNames, popIndices, err := readPopulations(args.Populations, rdr.Samples)
	if err != nil {
		fatalf("%v", err)
	}
	doPi, doDxy, doFst := requested(args.Stats)
	if len(popNames) < 2 && (doDxy || doFst) {
		fatalf("calculation of fst and/or dxy requires at least two populations")
	}

	var bed []bedRegion
	if args.BedFile != "" {
		bed, err = readBed(args.BedFile)
		if err != nil {
			fatalf("%v", err)
		}
	}
	var sites map[string][]int
	if args.SitesFile != "" {
		if sites, err = readSites(args.SitesFile); err != nil {
			fatalf("%v", err)
		}
	}

	chromList := chromosomes(args, rdr, bed)
	if len(chromList) == 0 {
		fatalf("none of the requested chromosomes occur in the VCF")
	}
	if (args.IntervalStart != 0 || args.IntervalEnd != 0) && len(chromList) > 1 {
		fatalf("--interval_start and --interval_end are not valid when calculating over multiple chromosomes")
	}

	faiLen := map[string]int{}
	if args.Fai != "" {
		if faiLen, err = readFaiLengths(args.Fai); err != nil {
			fatalf("%v", err)
		}
	}

	outputFolder := args.OutputFolder
	if outputFolder == "" {
		outputFolder = "."
	}
	pcheck(os.MkdirAll(outputFolder, 0755))
	prefix := filepath.Join(outputFolder, args.OutputPrefix)

	tmp, err := os.CreateTemp(outputFolder, "pixy_tmpfile_*.tmp")
	pcheck(err)
	tempPath := tmp.Name()
	pcheck(tmp.Close())
	defer os.Remove(tempPath)

	d := &driver{
		rdr:        rdr,
		popNames:   popNames,
		popIndices: popIndices,
		doPi:       doPi,
		doDxy:      doDxy,
		doFst:      doFst,
		fstType:    args.FstType,
		windowSize: args.WindowSize,
	}

	aggregateByChrom := make(map[string]bool, len(chromList))
	var tasks []chunkTask
	for _, chrom := range chromList {
		wins, aggregate := chromWindows(args, rdr, bed, faiLen, chrom)
		if len(wins) == 0 {
			log.Printf("[pixy] WARNING: no windows for chromosome %s, skipping", chrom)
			continue
		}
		aggregateByChrom[chrom] = aggregate

		chunks := windows.Group(wins, args.ChunkSize)
		for _, c := range chunks {
			tasks = append(tasks, chunkTask{
				chrom:     chrom,
				chunk:     c,
				sites:     sitesForChunk(sites, chrom, c.Index, args.ChunkSize),
				aggregate: aggregate,
			})
		}
		log.Printf("[pixy] chromosome %s: %d windows in %d chunks", chrom, len(wins), len(chunks))
	}

	tw, err := xopen.Wopen(tempPath)
	pcheck(err)
	runChunks(d, tasks, args.NCores, tw)
	tw.Flush()
	pcheck(tw.Close())

	pcheck(writeOutputs(tempPath, prefix, statsOrder(doPi, doDxy, doFst), args.FstType,
		args.WindowSize, aggregateByChrom, chromList))

	log.Printf("[pixy] All done. Results written with prefix %s", prefix)
}

func requested(stats []string) (pi, dxy, fst bool) {
	for _, s := range stats {
		switch s {
		case "pi":
			pi = true
		case "dxy":
			dxy = true
		case "fst":
			fst = true
		}
	}
	return pi, dxy, fst
}

func statsOrder(pi, dxy, fst bool) []string {
	var out []string
	if pi {
		out = append(out, "pi")
	}
	if dxy {
		out = append(out, "dxy")
	}
	if fst {
		out = append(out, "fst")
	}
	return out
}

// chromosomes returns the chromosomes to process: the index's list filtered
// by --chromosomes, or the BED file's chromosomes, in index order.
func chromosomes(args cliargs, rdr *vcf.Reader, bed []bedRegion) []string {
	inVcf := rdr.Chroms()

	want := map[string]bool{}
	if bed != nil {
		for _, b := range bed {
			want[b.chrom] = true
		}
	} else if args.Chromosomes != "all" {
		for _, c := range strings.Split(args.Chromosomes, ",") {
			want[c] = true
		}
		for c := range want {
			found := false
			for _, v := range inVcf {
				if v == c {
					found = true
					break
				}
			}
			if !found {
				fatalf("chromosome %s was specified but does not occur in the VCF", c)
			}
		}
	} else {
		return inVcf
	}

	var out []string
	for _, c := range inVcf {
		if want[c] {
			out = append(out, c)
		}
	}
	return out
}

// chromWindows builds the reporting-window list for one chromosome and
// reports whether its rows will need re-bin aggregation (windows wider than
// the chunk size are split into chunk-sized subwindows first).
func chromWindows(args cliargs, rdr *vcf.Reader, bed []bedRegion, faiLen map[string]int, chrom string) ([]windows.Window, bool) {
	if bed != nil {
		var wins []windows.Window
		for _, b := range bed {
			if b.chrom == chrom {
				wins = append(wins, b.window)
			}
		}
		return wins, false
	}

	start, end := args.IntervalStart, args.IntervalEnd
	if start == 0 {
		start = 1
	}
	if end == 0 {
		if l, ok := faiLen[chrom]; ok {
			end = l
		} else {
			_, last, err := rdr.ChromExtent(chrom)
			if err != nil {
				return nil, false
			}
			end = last
		}
	}
	if end-start <= args.WindowSize {
		log.Printf("[pixy] WARNING: the interval %d-%d is smaller than the window size (%d). A single window will be returned.",
			start, end, args.WindowSize)
	}

	wins := windows.Build(start, end, args.WindowSize)
	if args.WindowSize <= args.ChunkSize {
		return wins, false
	}
	var subs []windows.Window
	for _, w := range wins {
		subs = append(subs, windows.Subwindows(w, args.ChunkSize)...)
	}
	return subs, true
}

// sitesForChunk returns the target sites falling in one chunk. With no sites
// file it returns nil (no masking); with a sites file it always returns a
// non-nil slice, so a chunk with no listed site still masks every position.
func sitesForChunk(sites map[string][]int, chrom string, chunkIdx, chunkSize int) []int {
	if sites == nil {
		return nil
	}
	chunkSites := []int{}
	for i, idx := range windows.AssignSitesToChunks(sites[chrom], chunkSize) {
		if idx == chunkIdx {
			chunkSites = append(chunkSites, sites[chrom][i])
		}
	}
	return chunkSites
}

// readFaiLengths parses chromosome lengths from a fasta .fai file.
func readFaiLengths(path string) (map[string]int, error) {
	rdr, err := xopen.Ropen(path)
	if err != nil {
		return nil, err
	}
	defer rdr.Close()

	lengths := make(map[string]int)
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
				return nil, fmt.Errorf("stats: malformed fai row: %q", l)
			}
			n, aerr := strconv.Atoi(toks[1])
			if aerr != nil {
				return nil, fmt.Errorf("stats: malformed fai row: %q", l)
			}
			lengths[toks[0]] = n
		}
		if err == io.EOF {
			break
		}
	}
	return lengths, nil
}
