package filter

import (
	"errors"

	"github.com/crashlab/memscan/width"
)

var errUnknownWidth = errors.New("filter: unknown width")

// Typed carries a Filter[T] for exactly one of the ten supported widths,
// tagged by Width so a caller holding an opaque user value (parsed from a
// string, say) can route it to the one monomorphic filter path that
// matches. This is the boundary between "dynamic width chosen at runtime"
// and "concrete numeric type used in the hot loop" — the byte
// reinterpretation inside region.Update is never done on an erased type.
type Typed struct {
	Width width.Width

	u8  Filter[uint8]
	u16 Filter[uint16]
	u32 Filter[uint32]
	u64 Filter[uint64]
	i8  Filter[int8]
	i16 Filter[int16]
	i32 Filter[int32]
	i64 Filter[int64]
	f32 Filter[float32]
	f64 Filter[float64]
}

func OfU8(f Filter[uint8]) Typed    { return Typed{Width: width.U8, u8: f} }
func OfU16(f Filter[uint16]) Typed  { return Typed{Width: width.U16, u16: f} }
func OfU32(f Filter[uint32]) Typed  { return Typed{Width: width.U32, u32: f} }
func OfU64(f Filter[uint64]) Typed  { return Typed{Width: width.U64, u64: f} }
func OfI8(f Filter[int8]) Typed     { return Typed{Width: width.I8, i8: f} }
func OfI16(f Filter[int16]) Typed   { return Typed{Width: width.I16, i16: f} }
func OfI32(f Filter[int32]) Typed   { return Typed{Width: width.I32, i32: f} }
func OfI64(f Filter[int64]) Typed   { return Typed{Width: width.I64, i64: f} }
func OfF32(f Filter[float32]) Typed { return Typed{Width: width.F32, f32: f} }
func OfF64(f Filter[float64]) Typed { return Typed{Width: width.F64, f64: f} }

// Visitor receives exactly one call, to the method matching the Typed's
// Width, when passed to Typed.Dispatch.
type Visitor interface {
	VisitU8(Filter[uint8])
	VisitU16(Filter[uint16])
	VisitU32(Filter[uint32])
	VisitU64(Filter[uint64])
	VisitI8(Filter[int8])
	VisitI16(Filter[int16])
	VisitI32(Filter[int32])
	VisitI64(Filter[int64])
	VisitF32(Filter[float32])
	VisitF64(Filter[float64])
}

// Dispatch routes t to the one Visitor method matching t.Width.
func (t Typed) Dispatch(v Visitor) {
	switch t.Width {
	case width.U8:
		v.VisitU8(t.u8)
	case width.U16:
		v.VisitU16(t.u16)
	case width.U32:
		v.VisitU32(t.u32)
	case width.U64:
		v.VisitU64(t.u64)
	case width.I8:
		v.VisitI8(t.i8)
	case width.I16:
		v.VisitI16(t.i16)
	case width.I32:
		v.VisitI32(t.i32)
	case width.I64:
		v.VisitI64(t.i64)
	case width.F32:
		v.VisitF32(t.f32)
	case width.F64:
		v.VisitF64(t.f64)
	}
}

// NewExact builds a Typed Exact(value) filter from an already-width-typed
// value (see width.ParseValue).
func NewExact(w width.Width, value any) (Typed, error) {
	switch w {
	case width.U8:
		return OfU8(Filter[uint8]{Kind: Exact, V: value.(uint8)}), nil
	case width.U16:
		return OfU16(Filter[uint16]{Kind: Exact, V: value.(uint16)}), nil
	case width.U32:
		return OfU32(Filter[uint32]{Kind: Exact, V: value.(uint32)}), nil
	case width.U64:
		return OfU64(Filter[uint64]{Kind: Exact, V: value.(uint64)}), nil
	case width.I8:
		return OfI8(Filter[int8]{Kind: Exact, V: value.(int8)}), nil
	case width.I16:
		return OfI16(Filter[int16]{Kind: Exact, V: value.(int16)}), nil
	case width.I32:
		return OfI32(Filter[int32]{Kind: Exact, V: value.(int32)}), nil
	case width.I64:
		return OfI64(Filter[int64]{Kind: Exact, V: value.(int64)}), nil
	case width.F32:
		return OfF32(Filter[float32]{Kind: Exact, V: value.(float32)}), nil
	case width.F64:
		return OfF64(Filter[float64]{Kind: Exact, V: value.(float64)}), nil
	default:
		return Typed{}, errUnknownWidth
	}
}

// NewApproximate builds a Typed Approximate(value, eps) filter.
func NewApproximate(w width.Width, value, eps any) (Typed, error) {
	switch w {
	case width.U8:
		return OfU8(Filter[uint8]{Kind: Approximate, V: value.(uint8), Eps: eps.(uint8)}), nil
	case width.U16:
		return OfU16(Filter[uint16]{Kind: Approximate, V: value.(uint16), Eps: eps.(uint16)}), nil
	case width.U32:
		return OfU32(Filter[uint32]{Kind: Approximate, V: value.(uint32), Eps: eps.(uint32)}), nil
	case width.U64:
		return OfU64(Filter[uint64]{Kind: Approximate, V: value.(uint64), Eps: eps.(uint64)}), nil
	case width.I8:
		return OfI8(Filter[int8]{Kind: Approximate, V: value.(int8), Eps: eps.(int8)}), nil
	case width.I16:
		return OfI16(Filter[int16]{Kind: Approximate, V: value.(int16), Eps: eps.(int16)}), nil
	case width.I32:
		return OfI32(Filter[int32]{Kind: Approximate, V: value.(int32), Eps: eps.(int32)}), nil
	case width.I64:
		return OfI64(Filter[int64]{Kind: Approximate, V: value.(int64), Eps: eps.(int64)}), nil
	case width.F32:
		return OfF32(Filter[float32]{Kind: Approximate, V: value.(float32), Eps: eps.(float32)}), nil
	case width.F64:
		return OfF64(Filter[float64]{Kind: Approximate, V: value.(float64), Eps: eps.(float64)}), nil
	default:
		return Typed{}, errUnknownWidth
	}
}

// NewBounded builds a Typed filter for one of the delta-taking kinds
// (IncreasedBy, DecreasedBy, IncreasedByAtLeast, IncreasedByAtMost,
// DecreasedByAtLeast, DecreasedByAtMost, ChangedByAtLeast, ChangedByAtMost).
func NewBounded(w width.Width, kind Kind, delta any) (Typed, error) {
	switch w {
	case width.U8:
		return OfU8(Filter[uint8]{Kind: kind, D: delta.(uint8)}), nil
	case width.U16:
		return OfU16(Filter[uint16]{Kind: kind, D: delta.(uint16)}), nil
	case width.U32:
		return OfU32(Filter[uint32]{Kind: kind, D: delta.(uint32)}), nil
	case width.U64:
		return OfU64(Filter[uint64]{Kind: kind, D: delta.(uint64)}), nil
	case width.I8:
		return OfI8(Filter[int8]{Kind: kind, D: delta.(int8)}), nil
	case width.I16:
		return OfI16(Filter[int16]{Kind: kind, D: delta.(int16)}), nil
	case width.I32:
		return OfI32(Filter[int32]{Kind: kind, D: delta.(int32)}), nil
	case width.I64:
		return OfI64(Filter[int64]{Kind: kind, D: delta.(int64)}), nil
	case width.F32:
		return OfF32(Filter[float32]{Kind: kind, D: delta.(float32)}), nil
	case width.F64:
		return OfF64(Filter[float64]{Kind: kind, D: delta.(float64)}), nil
	default:
		return Typed{}, errUnknownWidth
	}
}

// NewUnary builds a Typed filter for one of the width-independent kinds
// that takes no value (Unknown, Increased, Decreased, Changed, Unchanged).
func NewUnary(w width.Width, kind Kind) (Typed, error) {
	switch w {
	case width.U8:
		return OfU8(Filter[uint8]{Kind: kind}), nil
	case width.U16:
		return OfU16(Filter[uint16]{Kind: kind}), nil
	case width.U32:
		return OfU32(Filter[uint32]{Kind: kind}), nil
	case width.U64:
		return OfU64(Filter[uint64]{Kind: kind}), nil
	case width.I8:
		return OfI8(Filter[int8]{Kind: kind}), nil
	case width.I16:
		return OfI16(Filter[int16]{Kind: kind}), nil
	case width.I32:
		return OfI32(Filter[int32]{Kind: kind}), nil
	case width.I64:
		return OfI64(Filter[int64]{Kind: kind}), nil
	case width.F32:
		return OfF32(Filter[float32]{Kind: kind}), nil
	case width.F64:
		return OfF64(Filter[float64]{Kind: kind}), nil
	default:
		return Typed{}, errUnknownWidth
	}
}
