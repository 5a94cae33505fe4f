package parallel

import "sync/atomic"
import "testing"

func TestForEachVisitsAll(t *testing.T) {
	var seen [100]int32
	ForEach(len(seen), 7, func(i int) {
		atomic.AddInt32(&seen[i], 1)
	})
	for i, v := range seen {
		if v != 1 {
			t.Errorf("index %d visited %d times", i, v)
		}
	}
}

func TestForEachZeroLimit(t *testing.T) {
	var n int32
	ForEach(5, 0, func(int) { atomic.AddInt32(&n, 1) })
	if n != 5 {
		t.Errorf("expected 5 iterations, got %d", n)
	}
}

func TestChunksCover(t *testing.T) {
	for _, tc := range []struct{ length, parts int }{
		{10, 3}, {3, 10}, {1, 1}, {17, 4}, {64, 8},
	} {
		var covered = make([]int32, tc.length)
		Chunks(tc.length, tc.parts, func(lo, hi int) {
			for i := lo; i < hi; i++ {
				atomic.AddInt32(&covered[i], 1)
			}
		})
		for i, v := range covered {
			if v != 1 {
				t.Errorf("length=%d parts=%d: index %d covered %d times", tc.length, tc.parts, i, v)
			}
		}
	}
}

func TestBounds(t *testing.T) {
	lo, hi := Bounds(10, 3, 0)
	if lo != 0 || hi != 4 {
		t.Errorf("bounds 0: got [%d,%d)", lo, hi)
	}
	lo, hi = Bounds(10, 3, 2)
	if lo != 7 || hi != 10 {
		t.Errorf("bounds 2: got [%d,%d)", lo, hi)
	}
}
