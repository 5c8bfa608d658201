package stats

import (
	"sync"

	"github.com/brentp/xopen"
)

// emitSink receives one chunk's output block as a unit. The direct
// implementation appends to the destination immediately (single-core mode,
// preserves genomic order); the queued implementation hands blocks to a
// consumer goroutine (multi-core mode, arrival order).
type emitSink interface {
	emit(block []Row) error
}

type directSink struct {
	w *xopen.Writer
}

func (s directSink) emit(block []Row) error {
	for _, r := range block {
		if _, err := s.w.WriteString(r.String() + "\n"); err != nil {
			return err
		}
	}
	return nil
}

type queueSink struct {
	ch chan<- []Row
}

func (s queueSink) emit(block []Row) error {
	s.ch <- block
	return nil
}

// runChunks processes every chunk task and appends each chunk's block to the
// temp writer. With more than one core, a fixed-size worker pool feeds a
// single consumer through a result channel; any worker failure is fatal to
// the run.
func runChunks(d *driver, tasks []chunkTask, nCores int, tmp *xopen.Writer) {
	if nCores <= 1 {
		sink := directSink{w: tmp}
		for _, t := range tasks {
			block, err := d.computeChunk(t)
			pcheck(err)
			pcheck(sink.emit(block))
		}
		return
	}

	jobs := make(chan chunkTask)
	results := make(chan []Row, nCores)
	sink := queueSink{ch: results}

	var wg sync.WaitGroup
	for i := 0; i < nCores; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				block, err := d.computeChunk(t)
				pcheck(err)
				pcheck(sink.emit(block))
			}
		}()
	}
	go func() {
		for _, t := range tasks {
			jobs <- t
		}
		close(jobs)
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	out := directSink{w: tmp}
	for block := range results {
		pcheck(out.emit(block))
	}
}
