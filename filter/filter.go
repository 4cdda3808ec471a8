// Package filter implements the typed predicate algebra a scan pass
// evaluates against a (new, old) value pair for one primitive numeric type.
package filter

import (
	"golang.org/x/exp/constraints"
)

// Numeric is the set of primitive types a Filter can operate over: the
// four unsigned and four signed integer widths, plus the two float widths.
type Numeric interface {
	constraints.Integer | constraints.Float
}

// Kind tags which predicate a Filter applies.
type Kind int

const (
	Exact Kind = iota
	Approximate
	Increased
	Decreased
	IncreasedBy
	DecreasedBy
	IncreasedByAtLeast
	IncreasedByAtMost
	DecreasedByAtLeast
	DecreasedByAtMost
	Changed
	Unchanged
	ChangedByAtLeast
	ChangedByAtMost
	Unknown
)

// Filter is a single scan-pass predicate over values of type T.
//
// Exact and Approximate use V (and, for Approximate, Eps) and ignore the
// previous value. The ByAtLeast/ByAtMost/By variants use D as the bound or
// exact delta. Increased, Decreased, Changed, Unchanged, and Unknown use
// neither field.
//
// UnchangedByAtLeast and UnchangedByAtMost are deliberately not
// represented here: both would be semantically identical to
// ChangedByAtMost, not a distinct meaning. Callers wanting "didn't change
// by more than a tolerance" should use ChangedByAtMost directly.
type Filter[T Numeric] struct {
	Kind Kind
	V    T
	Eps  T
	D    T
}

// ValueOnly reports whether f only ever examines the new value, meaning it
// can be evaluated on a first scan pass with no prior snapshot.
func (f Filter[T]) ValueOnly() bool {
	switch f.Kind {
	case Exact, Approximate, Unknown:
		return true
	default:
		return false
	}
}

func absDiff[T Numeric](a, b T) T {
	if a > b {
		return a - b
	}
	return b - a
}

// Matches evaluates f against newVal (the current value) and oldVal (the
// previous snapshot's value; ignored by value-only filters).
//
// Floats follow IEEE-754 ordering: any ordered or == comparison involving
// a NaN is false, so NaN never satisfies Increased/Decreased/*By*/Unchanged
// predicates, and Exact(NaN) never matches since NaN != NaN under Go's
// float equality. Changed, which uses !=, does match when either side is
// NaN.
func Matches[T Numeric](f Filter[T], newVal, oldVal T) bool {
	switch f.Kind {
	case Exact:
		return newVal == f.V
	case Approximate:
		return absDiff(newVal, f.V) <= f.Eps
	case Increased:
		return newVal > oldVal
	case Decreased:
		return newVal < oldVal
	case IncreasedBy:
		return newVal == oldVal+f.D
	case DecreasedBy:
		return newVal == oldVal-f.D
	case IncreasedByAtLeast:
		return newVal >= oldVal && newVal-oldVal >= f.D
	case IncreasedByAtMost:
		return newVal >= oldVal && newVal-oldVal <= f.D
	case DecreasedByAtLeast:
		return newVal <= oldVal && oldVal-newVal >= f.D
	case DecreasedByAtMost:
		return newVal <= oldVal && oldVal-newVal <= f.D
	case Changed:
		return newVal != oldVal
	case Unchanged:
		return newVal == oldVal
	case ChangedByAtLeast:
		return absDiff(newVal, oldVal) >= f.D
	case ChangedByAtMost:
		return absDiff(newVal, oldVal) <= f.D
	case Unknown:
		return true
	default:
		return false
	}
}
