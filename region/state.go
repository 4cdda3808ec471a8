// Package region owns the per-region snapshot and hit-offset bookkeeping
// that a scan pass updates: region.State is the unit of work a Scanner
// hands off to be filtered, independently of any other tracked region.
package region

import (
	"encoding/binary"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/crashlab/memscan/filter"
)

// State is the scanner's bookkeeping for one memory region: the last
// observed byte snapshot, and the set of byte offsets within it that have
// satisfied every filter applied so far this session.
//
// Snapshot == nil means either no pass has completed for this region yet,
// or a pass left the hit set empty and the snapshot was released.
// Hits == nil means "universe" (not yet constrained by any filter);
// Hits != nil but len(Hits) == 0 means "constrained to nothing." These are
// deliberately distinct states — collapsing them breaks the monotonic
// refinement invariant a caller relies on between scans.
type State struct {
	Snapshot []byte
	Hits     []uint64
}

// sizeOf returns the byte width of T, one of the ten primitive numeric
// kinds filter.Numeric admits.
func sizeOf[T filter.Numeric]() int {
	var zero T
	switch any(zero).(type) {
	case uint8, int8:
		return 1
	case uint16, int16:
		return 2
	case uint32, int32, float32:
		return 4
	case uint64, int64, float64:
		return 8
	default:
		panic(fmt.Sprintf("region: unsupported numeric type %T", zero))
	}
}

// readAt reinterprets the bytes at b[offset:] as a T using an unaligned,
// host-native-endian decode — no assumption is made about the alignment
// of offset within b.
func readAt[T filter.Numeric](b []byte, offset uint64) T {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return any(b[offset]).(T)
	case int8:
		return any(int8(b[offset])).(T)
	case uint16:
		return any(binary.NativeEndian.Uint16(b[offset:])).(T)
	case int16:
		return any(int16(binary.NativeEndian.Uint16(b[offset:]))).(T)
	case uint32:
		return any(binary.NativeEndian.Uint32(b[offset:])).(T)
	case int32:
		return any(int32(binary.NativeEndian.Uint32(b[offset:]))).(T)
	case uint64:
		return any(binary.NativeEndian.Uint64(b[offset:])).(T)
	case int64:
		return any(int64(binary.NativeEndian.Uint64(b[offset:]))).(T)
	case float32:
		return any(math.Float32frombits(binary.NativeEndian.Uint32(b[offset:]))).(T)
	case float64:
		return any(math.Float64frombits(binary.NativeEndian.Uint64(b[offset:]))).(T)
	default:
		panic(fmt.Sprintf("region: unsupported numeric type %T", zero))
	}
}

// parallelSelect evaluates keep over [0,n) across all available cores and
// returns the indices for which it reported true, in ascending order.
//
// Offsets within a region are independent byte positions, so this is the
// data-parallel map/filter the scan engine runs region updates through;
// there is no concurrency between regions (each is a single sequential
// read), only within one.
func parallelSelect(n int, keep func(i int) bool) []int {
	if n <= 0 {
		return nil
	}
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}
	chunk := (n + workers - 1) / workers
	chunks := make([][]int, workers)

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		start := w * chunk
		end := start + chunk
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		g.Go(func() error {
			local := make([]int, 0, end-start)
			for i := start; i < end; i++ {
				if keep(i) {
					local = append(local, i)
				}
			}
			chunks[w] = local
			return nil
		})
	}
	_ = g.Wait() // keep functions never return an error

	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	out := make([]int, 0, total)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// Update advances s to reflect newBytes under filter f, implementing the
// per-region update contract: first passes seed either hits (value-only
// filters) or just a baseline snapshot (diff filters); subsequent passes
// refine the existing hit set or, if still in the universe, establish it
// from scratch against the prior snapshot.
func Update[T filter.Numeric](s *State, newBytes []byte, f filter.Filter[T]) {
	w := sizeOf[T]()

	switch {
	case s.Snapshot == nil:
		if f.ValueOnly() {
			n := len(newBytes) - w + 1
			idx := parallelSelect(n, func(i int) bool {
				v := readAt[T](newBytes, uint64(i))
				return filter.Matches(f, v, v)
			})
			s.Hits = toOffsets(idx)
		} else {
			s.Hits = nil
		}

	case s.Hits == nil:
		limit := len(newBytes)
		if len(s.Snapshot) < limit {
			limit = len(s.Snapshot)
		}
		n := limit - w + 1
		idx := parallelSelect(n, func(i int) bool {
			o := uint64(i)
			return filter.Matches(f, readAt[T](newBytes, o), readAt[T](s.Snapshot, o))
		})
		s.Hits = toOffsets(idx)

	default:
		limit := len(newBytes)
		if len(s.Snapshot) < limit {
			limit = len(s.Snapshot)
		}
		hits := s.Hits
		idx := parallelSelect(len(hits), func(i int) bool {
			o := hits[i]
			if int(o)+w > limit {
				return false
			}
			return filter.Matches(f, readAt[T](newBytes, o), readAt[T](s.Snapshot, o))
		})
		kept := make([]uint64, len(idx))
		for i, j := range idx {
			kept[i] = hits[j]
		}
		s.Hits = kept
	}

	if s.Hits == nil || len(s.Hits) > 0 {
		s.Snapshot = newBytes
	} else {
		s.Snapshot = nil
	}
}

func toOffsets(idx []int) []uint64 {
	out := make([]uint64, len(idx))
	for i, v := range idx {
		out[i] = uint64(v)
	}
	return out
}

// Result is one materialized hit: the absolute byte offset within the
// region (not yet added to the region's base address) and the decoded
// value at that offset in the current snapshot.
type Result[T filter.Numeric] struct {
	Offset uint64
	Value  T
}

// Results decodes every hit offset in s against its snapshot, skipping any
// offset that would read past the end of the snapshot (can only happen if
// s was mutated between an Update call of one width and a Results call
// requesting another).
func Results[T filter.Numeric](s *State) []Result[T] {
	if len(s.Hits) == 0 || s.Snapshot == nil {
		return nil
	}
	w := sizeOf[T]()
	out := make([]Result[T], 0, len(s.Hits))
	for _, o := range s.Hits {
		if int(o)+w > len(s.Snapshot) {
			continue
		}
		out = append(out, Result[T]{Offset: o, Value: readAt[T](s.Snapshot, o)})
	}
	return out
}

// Count returns the number of hits in s, or -1 if s has never been
// narrowed by a completed pass (Hits still nil, whether or not a baseline
// snapshot has been recorded).
func (s *State) Count() int {
	if s.Hits == nil {
		return -1
	}
	return len(s.Hits)
}
