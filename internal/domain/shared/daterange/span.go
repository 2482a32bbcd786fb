package daterange

import "time"

// Span is a half-open [Lower, Upper) frame where a zero bound means unbounded.
type Span struct {
	Lower time.Time
	Upper time.Time
}

// NewSpan truncates bounds to days and rejects empty bounded spans.
func NewSpan(lower, upper time.Time) (Span, error) {
	s := Span{Lower: Truncate(lower), Upper: Truncate(upper)}
	if s.LowerBounded() && s.UpperBounded() && !s.Upper.After(s.Lower) {
		return Span{}, ErrInvalidRange
	}
	return s, nil
}

// FromInclusive converts closed [lower, upper] bounds into a half-open span.
func FromInclusive(lower, upper time.Time) (Span, error) {
	if !upper.IsZero() {
		upper = Truncate(upper).AddDate(0, 0, 1)
	}
	return NewSpan(lower, upper)
}

// SpanOf lifts a bounded range.
func SpanOf(dr DateRange) Span {
	return Span{Lower: dr.CheckIn, Upper: dr.CheckOut}
}

func (s Span) LowerBounded() bool { return !s.Lower.IsZero() }
func (s Span) UpperBounded() bool { return !s.Upper.IsZero() }

// Bounded reports whether both ends are set.
func (s Span) Bounded() bool { return s.LowerBounded() && s.UpperBounded() }

// Range returns the bounded range view; ok is false for open spans.
func (s Span) Range() (DateRange, bool) {
	if !s.Bounded() {
		return DateRange{}, false
	}
	return DateRange{CheckIn: s.Lower, CheckOut: s.Upper}, true
}

func (s Span) ContainsDate(t time.Time) bool {
	t = Truncate(t)
	if s.LowerBounded() && t.Before(s.Lower) {
		return false
	}
	if s.UpperBounded() && !t.Before(s.Upper) {
		return false
	}
	return true
}

func (s Span) Overlaps(dr DateRange) bool {
	return s.OverlapsSpan(SpanOf(dr))
}

func (s Span) OverlapsSpan(other Span) bool {
	return lowerBeforeUpper(s.Lower, other.Upper) && lowerBeforeUpper(other.Lower, s.Upper)
}

// ContainsSpan reports whether other lies entirely inside s.
func (s Span) ContainsSpan(other Span) bool {
	if s.LowerBounded() {
		if !other.LowerBounded() || other.Lower.Before(s.Lower) {
			return false
		}
	}
	if s.UpperBounded() {
		if !other.UpperBounded() || other.Upper.After(s.Upper) {
			return false
		}
	}
	return true
}

// Clip intersects the span with a bounded range.
func (s Span) Clip(dr DateRange) (DateRange, bool) {
	if !s.Overlaps(dr) {
		return DateRange{}, false
	}
	out := dr
	if s.LowerBounded() && s.Lower.After(out.CheckIn) {
		out.CheckIn = s.Lower
	}
	if s.UpperBounded() && s.Upper.Before(out.CheckOut) {
		out.CheckOut = s.Upper
	}
	return out, true
}

// LowerBefore orders spans by lower bound with unbounded lowers first.
func (s Span) LowerBefore(other Span) bool {
	if !s.LowerBounded() {
		return other.LowerBounded()
	}
	if !other.LowerBounded() {
		return false
	}
	return s.Lower.Before(other.Lower)
}

func (s Span) String() string {
	lower, upper := "-inf", "+inf"
	if s.LowerBounded() {
		lower = Format(s.Lower)
	}
	if s.UpperBounded() {
		upper = Format(s.Upper)
	}
	return "[" + lower + ", " + upper + ")"
}

func lowerBeforeUpper(lower, upper time.Time) bool {
	if lower.IsZero() || upper.IsZero() {
		return true
	}
	return lower.Before(upper)
}
