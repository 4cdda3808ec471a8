// Package scanner implements the scan session state machine: it owns one
// Target and the per-region state built up across successive scan passes,
// narrowing a set of candidate addresses as filters are applied.
package scanner

import (
	"fmt"

	"github.com/crashlab/memscan/filter"
	"github.com/crashlab/memscan/internal/log"
	"github.com/crashlab/memscan/region"
	"github.com/crashlab/memscan/target"
	"github.com/crashlab/memscan/width"
)

// Scanner is one scan session against a Target: first scan seeds the
// region map from whatever the filter can determine on a blank baseline,
// and every scan after that refines the existing hit sets.
type Scanner struct {
	target      target.Target
	regions     map[target.Region]*region.State
	isNewScan   bool
	activeWidth width.Width
	widthSet    bool
}

// New creates a Scanner bound to t. The Scanner owns t for its lifetime;
// callers should not read from t directly while a Scanner is using it.
func New(t target.Target) *Scanner {
	return &Scanner{
		target:    t,
		regions:   make(map[target.Region]*region.State),
		isNewScan: true,
	}
}

// NewScan discards all region state and marks the next Scan call as the
// session's first pass. It does not touch the underlying Target.
func (s *Scanner) NewScan() {
	s.regions = make(map[target.Region]*region.State)
	s.isNewScan = true
}

// Scan re-enumerates the target's writable regions and runs one filter
// pass over them, narrowing (or, on the first pass, establishing) the hit
// set of every tracked region.
//
// Changing the active width mid-session is treated as an implicit
// NewScan: a hit set built against one width's byte layout has no valid
// interpretation under another.
func (s *Scanner) Scan(f filter.Typed) error {
	if s.widthSet && f.Width != s.activeWidth && len(s.regions) > 0 {
		s.NewScan()
	}
	s.activeWidth = f.Width
	s.widthSet = true

	regions, err := s.target.EnumerateWritableRegions()
	if err != nil {
		return fmt.Errorf("scanner: enumerate writable regions: %w", err)
	}

	v := &dispatcher{s: s, regions: regions}
	f.Dispatch(v)
	s.isNewScan = false
	return v.err
}

// Count returns the total number of hits across all tracked regions, or
// false if the session is still in the pristine first-scan universe (no
// pass has yet constrained any region's hit set).
func (s *Scanner) Count() (int, bool) {
	if s.isNewScan {
		return 0, false
	}
	total := 0
	any := false
	for _, st := range s.regions {
		if st.Hits != nil {
			any = true
			total += len(st.Hits)
		}
	}
	if !any {
		return 0, false
	}
	return total, true
}

// runPass implements the core per-width scan algorithm shared by every
// monomorphic filter path: new scans read every enumerated region fresh;
// refinements re-read only regions already tracked with a non-empty hit
// set, and silently drop regions that disappeared since the last pass.
func runPass[T filter.Numeric](s *Scanner, regions []target.Region, f filter.Filter[T]) error {
	seen := make(map[target.Region]bool, len(regions))
	for _, r := range regions {
		seen[r] = true
	}

	if s.isNewScan {
		for _, r := range regions {
			bytes, err := s.target.ReadBytes(r.Base, r.Size)
			if err != nil {
				log.Warnw("scan: skipping unreadable region on first pass", "err", &target.ReadError{Region: r, Err: err})
				continue
			}
			st := &region.State{}
			region.Update(st, bytes, f)
			s.regions[r] = st
		}
	} else {
		for _, r := range regions {
			st, tracked := s.regions[r]
			if !tracked {
				// New regions found mid-session are ignored to preserve
				// filter monotonicity; only NewScan picks up fresh regions.
				continue
			}
			if st.Hits != nil && len(st.Hits) == 0 {
				// Monotonic: once empty, always empty. No read needed.
				continue
			}
			bytes, err := s.target.ReadBytes(r.Base, r.Size)
			if err != nil {
				log.Warnw("scan: keeping prior state for unreadable region", "err", &target.ReadError{Region: r, Err: err})
				continue
			}
			region.Update(st, bytes, f)
		}
	}

	for r := range s.regions {
		if !seen[r] {
			delete(s.regions, r)
		}
	}
	return nil
}

// dispatcher implements filter.Visitor, routing a Typed filter to the one
// runPass[T] instantiation matching its width.
type dispatcher struct {
	s       *Scanner
	regions []target.Region
	err     error
}

func (d *dispatcher) VisitU8(f filter.Filter[uint8])    { d.err = runPass(d.s, d.regions, f) }
func (d *dispatcher) VisitU16(f filter.Filter[uint16])  { d.err = runPass(d.s, d.regions, f) }
func (d *dispatcher) VisitU32(f filter.Filter[uint32])  { d.err = runPass(d.s, d.regions, f) }
func (d *dispatcher) VisitU64(f filter.Filter[uint64])  { d.err = runPass(d.s, d.regions, f) }
func (d *dispatcher) VisitI8(f filter.Filter[int8])     { d.err = runPass(d.s, d.regions, f) }
func (d *dispatcher) VisitI16(f filter.Filter[int16])   { d.err = runPass(d.s, d.regions, f) }
func (d *dispatcher) VisitI32(f filter.Filter[int32])   { d.err = runPass(d.s, d.regions, f) }
func (d *dispatcher) VisitI64(f filter.Filter[int64])   { d.err = runPass(d.s, d.regions, f) }
func (d *dispatcher) VisitF32(f filter.Filter[float32]) { d.err = runPass(d.s, d.regions, f) }
func (d *dispatcher) VisitF64(f filter.Filter[float64]) { d.err = runPass(d.s, d.regions, f) }

// Result is one materialized hit, with its absolute address in the
// target's address space.
type Result[T filter.Numeric] struct {
	Addr  uint64
	Value T
}

// Results returns every current hit, region-major and offset-ascending
// within a region; the order regions are visited in is unspecified.
func Results[T filter.Numeric](s *Scanner) []Result[T] {
	var out []Result[T]
	for r, st := range s.regions {
		for _, rr := range region.Results[T](st) {
			out = append(out, Result[T]{Addr: r.Base + rr.Offset, Value: rr.Value})
		}
	}
	return out
}

// FirstResults returns up to the first n results.
func FirstResults[T filter.Numeric](s *Scanner, n int) []Result[T] {
	all := Results[T](s)
	if n > len(all) {
		n = len(all)
	}
	if n < 0 {
		n = 0
	}
	return all[:n]
}

// NthResult returns the nth result (0-indexed), or false if out of range.
//
// This rebuilds the full result set on every call, a poor choice if
// called repeatedly for increasing n — prefer RangeResults for sequential
// access.
func NthResult[T filter.Numeric](s *Scanner, n int) (Result[T], bool) {
	all := Results[T](s)
	if n < 0 || n >= len(all) {
		return Result[T]{}, false
	}
	return all[n], true
}

// RangeResults returns results[lo:hi] inclusive of both ends, clamped to
// the available range.
func RangeResults[T filter.Numeric](s *Scanner, lo, hi int) []Result[T] {
	all := Results[T](s)
	if lo < 0 {
		lo = 0
	}
	if hi >= len(all) {
		hi = len(all) - 1
	}
	if lo > hi || lo >= len(all) {
		return nil
	}
	return all[lo : hi+1]
}
