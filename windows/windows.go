// Package windows partitions genomic regions into reporting windows and
// groups windows into I/O chunks so that a whole chromosome can be processed
// with one region read per chunk.
package windows

import "fmt"

// Window is a closed interval [Start, End] on a single chromosome.
type Window struct {
	Start int
	End   int
}

// Build returns consecutive non-overlapping windows of the given size
// covering [start, end] in ascending order. The final window is truncated so
// that it ends exactly at end.
func Build(start, end, size int) []Window {
	var ws []Window
	for p := start; p <= end; p += size {
		w := Window{Start: p, End: p + size - 1}
		if w.End > end {
			w.End = end
		}
		ws = append(ws, w)
	}
	return ws
}

// Subwindows splits a window into contiguous pieces of the given width. The
// final piece is truncated or extended so its end equals the original
// window's end; concatenating the pieces reproduces the window with no gap
// and no overlap.
func Subwindows(w Window, size int) []Window {
	subs := []Window{{Start: w.Start, End: w.Start + size - 1}}
	for p := w.Start + size; p < w.End; p += size {
		subs = append(subs, Window{Start: p, End: p + size - 1})
	}
	subs[len(subs)-1].End = w.End
	return subs
}

// AssignToChunk returns the chunk index a window is read from. A window
// whose start and end fall in different chunks is forced entirely into the
// lower chunk so it is read in exactly one I/O operation.
func AssignToChunk(w Window, size int) int {
	c1 := w.Start / size
	c2 := w.End / size
	if c2 != c1 {
		c2 = c1
	}
	return c2
}

// AssignSitesToChunks returns the chunk index for each site. The divisor is
// size+1 so the last site of one chunk and the first site of the next never
// share an index.
func AssignSitesToChunks(sites []int, size int) []int {
	idx := make([]int, len(sites))
	for i, s := range sites {
		idx[i] = s / (size + 1)
	}
	return idx
}

// Chunk is a chromosome sub-range holding the windows assigned to it. Its
// span covers every assigned window, extended when a window straddles the
// nominal chunk boundary.
type Chunk struct {
	Index   int
	Start   int
	End     int
	Windows []Window
}

func (c Chunk) String() string {
	return fmt.Sprintf("%d\t%d\t%d\t%d windows", c.Index, c.Start, c.End, len(c.Windows))
}

// Group assigns each window to exactly one chunk and returns the chunks in
// ascending order. Windows must already be in ascending order.
func Group(ws []Window, size int) []Chunk {
	var chunks []Chunk
	for _, w := range ws {
		idx := AssignToChunk(w, size)
		if n := len(chunks); n > 0 && chunks[n-1].Index == idx {
			c := &chunks[n-1]
			c.Windows = append(c.Windows, w)
			if w.Start < c.Start {
				c.Start = w.Start
			}
			if w.End > c.End {
				c.End = w.End
			}
			continue
		}
		chunks = append(chunks, Chunk{Index: idx, Start: w.Start, End: w.End, Windows: []Window{w}})
	}
	return chunks
}
