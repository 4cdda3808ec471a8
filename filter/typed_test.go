package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crashlab/memscan/width"
)

type recordingVisitor struct {
	calls []string
}

func (r *recordingVisitor) VisitU8(Filter[uint8])     { r.calls = append(r.calls, "u8") }
func (r *recordingVisitor) VisitU16(Filter[uint16])   { r.calls = append(r.calls, "u16") }
func (r *recordingVisitor) VisitU32(Filter[uint32])   { r.calls = append(r.calls, "u32") }
func (r *recordingVisitor) VisitU64(Filter[uint64])   { r.calls = append(r.calls, "u64") }
func (r *recordingVisitor) VisitI8(Filter[int8])      { r.calls = append(r.calls, "i8") }
func (r *recordingVisitor) VisitI16(Filter[int16])    { r.calls = append(r.calls, "i16") }
func (r *recordingVisitor) VisitI32(Filter[int32])    { r.calls = append(r.calls, "i32") }
func (r *recordingVisitor) VisitI64(Filter[int64])    { r.calls = append(r.calls, "i64") }
func (r *recordingVisitor) VisitF32(Filter[float32])  { r.calls = append(r.calls, "f32") }
func (r *recordingVisitor) VisitF64(Filter[float64])  { r.calls = append(r.calls, "f64") }

func TestDispatchCallsExactlyOneMethod(t *testing.T) {
	typed, err := NewExact(width.I32, int32(7))
	require.NoError(t, err)

	v := &recordingVisitor{}
	typed.Dispatch(v)
	assert.Equal(t, []string{"i32"}, v.calls)
}

func TestNewExactWrongWidth(t *testing.T) {
	_, err := NewExact(width.Width(99), int32(7))
	assert.Error(t, err)
}

func TestNewApproximate(t *testing.T) {
	typed, err := NewApproximate(width.F64, float64(1.5), float64(0.1))
	require.NoError(t, err)

	v := &recordingVisitor{}
	typed.Dispatch(v)
	assert.Equal(t, []string{"f64"}, v.calls)
}

func TestNewBounded(t *testing.T) {
	typed, err := NewBounded(width.U16, IncreasedBy, uint16(3))
	require.NoError(t, err)

	v := &recordingVisitor{}
	typed.Dispatch(v)
	assert.Equal(t, []string{"u16"}, v.calls)
}

func TestNewUnary(t *testing.T) {
	typed, err := NewUnary(width.F32, Changed)
	require.NoError(t, err)

	v := &recordingVisitor{}
	typed.Dispatch(v)
	assert.Equal(t, []string{"f32"}, v.calls)
}
