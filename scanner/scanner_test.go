package scanner

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crashlab/memscan/filter"
	"github.com/crashlab/memscan/target"
	"github.com/crashlab/memscan/width"
)

func u32bytes(vals ...uint32) []byte {
	b := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.NativeEndian.PutUint32(b[i*4:], v)
	}
	return b
}

func exactI32(v int32) filter.Typed {
	typed, err := filter.NewExact(width.I32, int32(v))
	if err != nil {
		panic(err)
	}
	return typed
}

func TestFirstScanNarrowsToExactMatches(t *testing.T) {
	ft := target.NewFake()
	ft.AddRegion(0x1000, u32bytes(100, 42, 7, 42))

	s := New(ft)
	require.NoError(t, s.Scan(exactI32(42)))

	count, ok := s.Count()
	require.True(t, ok)
	assert.Equal(t, 2, count)
}

func TestSuccessiveScanRefinesFurther(t *testing.T) {
	ft := target.NewFake()
	ft.AddRegion(0x1000, u32bytes(100, 42, 7, 42))

	s := New(ft)
	require.NoError(t, s.Scan(exactI32(42)))

	ft.Mutate(0x1000, 4, u32bytes(99))
	require.NoError(t, s.Scan(exactI32(42)))

	count, ok := s.Count()
	require.True(t, ok)
	assert.Equal(t, 1, count)
}

func TestNewScanDiscardsPriorState(t *testing.T) {
	ft := target.NewFake()
	ft.AddRegion(0x1000, u32bytes(100, 42, 7, 42))

	s := New(ft)
	require.NoError(t, s.Scan(exactI32(42)))
	s.NewScan()

	_, ok := s.Count()
	assert.False(t, ok, "a fresh NewScan has no completed pass yet")
}

func TestWidthChangeImplicitlyResetsSession(t *testing.T) {
	ft := target.NewFake()
	ft.AddRegion(0x1000, u32bytes(100, 42, 7, 42))

	s := New(ft)
	require.NoError(t, s.Scan(exactI32(42)))

	f8, err := filter.NewExact(width.U8, uint8(100))
	require.NoError(t, err)
	require.NoError(t, s.Scan(f8))

	count, ok := s.Count()
	require.True(t, ok)
	assert.Equal(t, 1, count, "first byte 0x64 equals 100 under u8 reinterpretation")
}

func TestUnreadableRegionOnFirstPassIsSkipped(t *testing.T) {
	ft := target.NewFake()
	ft.AddRegion(0x1000, u32bytes(42))
	ft.AddRegion(0x2000, u32bytes(42))
	ft.FailNextRead(0x2000)

	s := New(ft)
	require.NoError(t, s.Scan(exactI32(42)))

	results := Results[int32](s)
	require.Len(t, results, 1)
	assert.Equal(t, uint64(0x1000), results[0].Addr)
}

func TestUnreadableRegionOnRefinementKeepsPriorState(t *testing.T) {
	ft := target.NewFake()
	ft.AddRegion(0x1000, u32bytes(42))

	s := New(ft)
	require.NoError(t, s.Scan(exactI32(42)))

	ft.FailNextRead(0x1000)
	require.NoError(t, s.Scan(exactI32(42)))

	count, ok := s.Count()
	require.True(t, ok)
	assert.Equal(t, 1, count, "a failed read leaves the region's prior hit set untouched")
}

// shrinkingTarget wraps a Fake but drops its second region from
// enumeration after the first call, simulating a mapping that was
// unmapped between scan passes.
type shrinkingTarget struct {
	*target.Fake
	calls int
}

func (s *shrinkingTarget) EnumerateWritableRegions() ([]target.Region, error) {
	s.calls++
	regions, err := s.Fake.EnumerateWritableRegions()
	if err != nil || s.calls == 1 {
		return regions, err
	}
	return regions[:1], nil
}

func TestDisappearedRegionIsDropped(t *testing.T) {
	ft := target.NewFake()
	ft.AddRegion(0x1000, u32bytes(42))
	ft.AddRegion(0x2000, u32bytes(42))
	wrapped := &shrinkingTarget{Fake: ft}

	s := New(wrapped)
	require.NoError(t, s.Scan(exactI32(42)))
	count, _ := s.Count()
	assert.Equal(t, 2, count)

	require.NoError(t, s.Scan(exactI32(42)))
	count, _ = s.Count()
	assert.Equal(t, 1, count, "a region missing from re-enumeration is dropped, not just skipped")
}

func TestResultsCarryAbsoluteAddress(t *testing.T) {
	ft := target.NewFake()
	ft.AddRegion(0x4000, u32bytes(1, 42))

	s := New(ft)
	require.NoError(t, s.Scan(exactI32(42)))

	results := Results[int32](s)
	require.Len(t, results, 1)
	assert.Equal(t, uint64(0x4004), results[0].Addr)
	assert.Equal(t, int32(42), results[0].Value)
}

func TestFirstResultsClampsToAvailable(t *testing.T) {
	ft := target.NewFake()
	ft.AddRegion(0x1000, u32bytes(42, 42, 42))

	s := New(ft)
	require.NoError(t, s.Scan(exactI32(42)))

	assert.Len(t, FirstResults[int32](s, 100), 3)
	assert.Len(t, FirstResults[int32](s, 2), 2)
	assert.Len(t, FirstResults[int32](s, 0), 0)
}

func TestNthAndRangeResults(t *testing.T) {
	ft := target.NewFake()
	ft.AddRegion(0x1000, u32bytes(42, 42, 42))

	s := New(ft)
	require.NoError(t, s.Scan(exactI32(42)))

	_, ok := NthResult[int32](s, 99)
	assert.False(t, ok)

	got := RangeResults[int32](s, 0, 1)
	assert.Len(t, got, 2)
}
