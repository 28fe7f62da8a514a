// Package parallel provides parallel execution helpers.
package parallel

import (
	"runtime"
	"sync"
)

// NumWorkers returns the default number of workers for parallel operations.
func NumWorkers() int {
	return runtime.GOMAXPROCS(0)
}

// ParallelForChunked executes fn for chunks of indices.
// fn receives (chunkStart, chunkEnd) for each chunk. Chunk boundaries depend
// only on start, end and chunkSize, never on the number of workers n.
func ParallelForChunked(start, end, chunkSize, n int, fn func(chunkStart, chunkEnd int)) {
	if chunkSize <= 0 {
		chunkSize = end - start
	}
	if n <= 1 {
		for s := start; s < end; s += chunkSize {
			e := s + chunkSize
			if e > end {
				e = end
			}
			fn(s, e)
		}
		return
	}

	var wg sync.WaitGroup
	chunks := make(chan [2]int, n)

	// Start workers
	for w := 0; w < n; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range chunks {
				fn(chunk[0], chunk[1])
			}
		}()
	}

	// Send chunks
	for s := start; s < end; s += chunkSize {
		e := s + chunkSize
		if e > end {
			e = end
		}
		chunks <- [2]int{s, e}
	}
	close(chunks)

	wg.Wait()
}
