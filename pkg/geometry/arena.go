package geometry

import (
	"github.com/df07/go-spectral-pathtracer/pkg/core"
)

// arenaChunkSize is the size of each scratch chunk. Larger requests get a
// dedicated chunk.
const arenaChunkSize = 4096

// arena is a chunked bump allocator for hit blobs. It is reset, not freed,
// between traversals, so steady-state tracing allocates nothing.
type arena struct {
	chunks [][]byte
	chunk  int // Index of the chunk being filled
	offset int // Next free byte in that chunk
	used   int // Bytes handed out since the last reset
	limit  int // Maximum bytes per traversal, 0 for unlimited
}

// arenaMark records an allocation position for rollback
type arenaMark struct {
	chunk, offset, used int
}

// alloc returns a zeroed slice of n bytes valid until the next reset
func (a *arena) alloc(n int) ([]byte, error) {
	if a.limit > 0 && a.used+n > a.limit {
		return nil, core.NewError(core.StatusAllocationFailure, "arena.alloc", "scratch budget exhausted")
	}

	for {
		if a.chunk >= len(a.chunks) {
			a.chunks = append(a.chunks, make([]byte, max(arenaChunkSize, n)))
		}
		buf := a.chunks[a.chunk]
		if a.offset+n <= len(buf) {
			out := buf[a.offset : a.offset+n : a.offset+n]
			clear(out)
			a.offset += n
			a.used += n
			return out, nil
		}
		// Oversized request on a fresh chunk: swap in a large enough one
		if a.offset == 0 {
			a.chunks[a.chunk] = make([]byte, n)
			continue
		}
		a.chunk++
		a.offset = 0
	}
}

func (a *arena) mark() arenaMark {
	return arenaMark{chunk: a.chunk, offset: a.offset, used: a.used}
}

func (a *arena) rollback(m arenaMark) {
	a.chunk, a.offset, a.used = m.chunk, m.offset, m.used
}

// reset makes all chunks available again without freeing them
func (a *arena) reset() {
	a.chunk, a.offset, a.used = 0, 0, 0
}
