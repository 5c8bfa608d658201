package stats

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteOutputs(t *testing.T) {
	dir := t.TempDir()
	rows := []Row{
		// arrival order scrambled on purpose
		{Stat: "pi", Pop1: "A", Pop2: NA, Chrom: "2", Start: 1, End: 100,
			Value: floatField(0.25), NSites: 4, C1: intField(3), C2: intField(12), C3: intField(0)},
		{Stat: "pi", Pop1: "A", Pop2: NA, Chrom: "1", Start: 101, End: 200,
			Value: naField(), NSites: 0, C1: naField(), C2: naField(), C3: naField()},
		{Stat: "pi", Pop1: "A", Pop2: NA, Chrom: "1", Start: 1, End: 100,
			Value: floatField(0.5), NSites: 2, C1: intField(3), C2: intField(6), C3: intField(0)},
		{Stat: "fst", Pop1: "A", Pop2: "B", Chrom: "1", Start: 1, End: 100,
			Value: floatField(1), NSites: 1, C1: naField(), C2: naField(), C3: naField()},
	}
	tempPath := filepath.Join(dir, "tmp.txt")
	var sb strings.Builder
	for _, r := range rows {
		sb.WriteString(r.String() + "\n")
	}
	if err := os.WriteFile(tempPath, []byte(sb.String()), 0644); err != nil {
		t.Fatal(err)
	}

	prefix := filepath.Join(dir, "pixy")
	err := writeOutputs(tempPath, prefix, []string{"pi", "fst"}, "wc", 100,
		map[string]bool{"1": false, "2": false}, []string{"1", "2"})
	if err != nil {
		t.Fatal(err)
	}

	pi, err := os.ReadFile(prefix + "_pi.txt")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(pi)), "\n")
	if lines[0] != "pop\tchromosome\twindow_pos_1\twindow_pos_2\tavg_pi\tno_sites\tcount_diffs\tcount_comparisons\tcount_missing" {
		t.Errorf("pi header: got %q", lines[0])
	}
	if len(lines) != 4 {
		t.Fatalf("pi rows: got %d lines, want 4", len(lines))
	}
	// chromosome input order, then start; NA rows stay in the grid
	if !strings.HasPrefix(lines[1], "A\t1\t1\t100\t0.5") {
		t.Errorf("first pi row: got %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "A\t1\t101\t200\tNA\t0\tNA\tNA\tNA") {
		t.Errorf("second pi row: got %q", lines[2])
	}
	if !strings.HasPrefix(lines[3], "A\t2\t1\t100\t0.25") {
		t.Errorf("third pi row: got %q", lines[3])
	}

	fst, err := os.ReadFile(prefix + "_fst.txt")
	if err != nil {
		t.Fatal(err)
	}
	lines = strings.Split(strings.TrimSpace(string(fst)), "\n")
	if lines[0] != "pop1\tpop2\tchromosome\twindow_pos_1\twindow_pos_2\tavg_wc_fst\tno_snps" {
		t.Errorf("fst header: got %q", lines[0])
	}
	if lines[1] != "A\tB\t1\t1\t100\t1\t1" {
		t.Errorf("fst row: got %q", lines[1])
	}
}

func TestWriteOutputsAggregates(t *testing.T) {
	dir := t.TempDir()
	rows := []Row{
		{Stat: "pi", Pop1: "A", Pop2: NA, Chrom: "1", Start: 1, End: 100,
			Value: floatField(0.5), NSites: 1, C1: intField(3), C2: intField(6), C3: intField(0)},
		{Stat: "pi", Pop1: "A", Pop2: NA, Chrom: "1", Start: 101, End: 200,
			Value: floatField(0.5), NSites: 1, C1: intField(1), C2: intField(6), C3: intField(0)},
	}
	tempPath := filepath.Join(dir, "tmp.txt")
	var sb strings.Builder
	for _, r := range rows {
		sb.WriteString(r.String() + "\n")
	}
	if err := os.WriteFile(tempPath, []byte(sb.String()), 0644); err != nil {
		t.Fatal(err)
	}

	prefix := filepath.Join(dir, "pixy")
	err := writeOutputs(tempPath, prefix, []string{"pi"}, "wc", 200,
		map[string]bool{"1": true}, []string{"1"})
	if err != nil {
		t.Fatal(err)
	}

	pi, err := os.ReadFile(prefix + "_pi.txt")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(pi)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected one aggregated row, got %d lines", len(lines))
	}
	want := "A\t1\t1\t200\t" + floatField(4.0/12.0).String() + "\t2\t4\t12\t0"
	if lines[1] != want {
		t.Errorf("aggregated row: got %q, want %q", lines[1], want)
	}
}
