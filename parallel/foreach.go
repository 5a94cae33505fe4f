// Package parallel contains the bounded fan-out helpers used by backends and learning rules.
package parallel

import "sync"

// ForEach executes body for every i in [0, length) using at most limit goroutines.
func ForEach(length, limit int, body func(i int)) {
	if length <= 0 {
		return
	}
	if limit <= 0 {
		limit = 1
	}
	if limit == 1 || length == 1 {
		for i := 0; i < length; i++ {
			body(i)
		}
		return
	}

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	wg.Add(length)

	for i := 0; i < length; i++ {
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			body(i)
		}(i)
	}

	wg.Wait()
}

// Chunks splits [0, length) into at most parts contiguous ranges and runs
// body on each range concurrently. Ranges differ in size by at most one.
func Chunks(length, parts int, body func(lo, hi int)) {
	if length <= 0 {
		return
	}
	if parts <= 0 {
		parts = 1
	}
	if parts > length {
		parts = length
	}
	ForEach(parts, parts, func(p int) {
		lo, hi := Bounds(length, parts, p)
		body(lo, hi)
	})
}

// Bounds returns the p-th of parts contiguous ranges covering [0, length).
func Bounds(length, parts, p int) (lo, hi int) {
	size := length / parts
	extra := length % parts
	lo = p*size + min(p, extra)
	hi = lo + size
	if p < extra {
		hi++
	}
	return lo, hi
}
