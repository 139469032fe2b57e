// Package interval provides half-open time interval math and candidate
// slot generation used by the availability engine.
package interval

import (
	"iter"
	"time"
)

// Span is a half-open interval [Start, End).
type Span struct {
	Start time.Time
	End   time.Time
}

// FromDuration builds a span starting at start and lasting d.
func FromDuration(start time.Time, d time.Duration) Span {
	return Span{Start: start, End: start.Add(d)}
}

// Duration returns End - Start.
func (s Span) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// IsValid reports whether the span has positive length.
func (s Span) IsValid() bool {
	return s.End.After(s.Start)
}

// Overlaps reports whether two half-open intervals share at least one
// instant. Adjacent spans (s.End == o.Start) do not overlap.
func (s Span) Overlaps(o Span) bool {
	return s.Start.Before(o.End) && o.Start.Before(s.End)
}

// Contains reports whether o lies entirely within s.
func (s Span) Contains(o Span) bool {
	return !o.Start.Before(s.Start) && !o.End.After(s.End)
}

// Candidates yields candidate slots of the given length inside window,
// stepping by step between slot starts. Slots that would extend past the
// window end are not produced. The sequence is finite and can be ranged
// over more than once.
func Candidates(window Span, length, step time.Duration) iter.Seq[Span] {
	return func(yield func(Span) bool) {
		if length <= 0 || step <= 0 || !window.IsValid() {
			return
		}
		for start := window.Start; !start.Add(length).After(window.End); start = start.Add(step) {
			if !yield(Span{Start: start, End: start.Add(length)}) {
				return
			}
		}
	}
}
