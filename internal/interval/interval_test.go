package interval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return ts
}

func span(t *testing.T, start, end string) Span {
	t.Helper()
	return Span{Start: mustTime(t, start), End: mustTime(t, end)}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Span
		want bool
	}{
		{
			name: "identical",
			a:    span(t, "2026-09-01T10:00:00Z", "2026-09-01T10:30:00Z"),
			b:    span(t, "2026-09-01T10:00:00Z", "2026-09-01T10:30:00Z"),
			want: true,
		},
		{
			name: "partial overlap",
			a:    span(t, "2026-09-01T10:00:00Z", "2026-09-01T10:30:00Z"),
			b:    span(t, "2026-09-01T10:15:00Z", "2026-09-01T10:45:00Z"),
			want: true,
		},
		{
			name: "contained",
			a:    span(t, "2026-09-01T10:00:00Z", "2026-09-01T11:00:00Z"),
			b:    span(t, "2026-09-01T10:15:00Z", "2026-09-01T10:30:00Z"),
			want: true,
		},
		{
			name: "adjacent is not overlap",
			a:    span(t, "2026-09-01T10:00:00Z", "2026-09-01T10:30:00Z"),
			b:    span(t, "2026-09-01T10:30:00Z", "2026-09-01T11:00:00Z"),
			want: false,
		},
		{
			name: "one minute past adjacency is overlap",
			a:    span(t, "2026-09-01T10:00:00Z", "2026-09-01T10:31:00Z"),
			b:    span(t, "2026-09-01T10:30:00Z", "2026-09-01T11:00:00Z"),
			want: true,
		},
		{
			name: "disjoint",
			a:    span(t, "2026-09-01T08:00:00Z", "2026-09-01T09:00:00Z"),
			b:    span(t, "2026-09-01T10:00:00Z", "2026-09-01T11:00:00Z"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			// Overlap is symmetric.
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}
}

func TestCandidates(t *testing.T) {
	window := span(t, "2026-09-01T09:00:00Z", "2026-09-01T12:00:00Z")

	var got []Span
	for s := range Candidates(window, 30*time.Minute, 30*time.Minute) {
		got = append(got, s)
	}

	require.Len(t, got, 6)
	assert.Equal(t, mustTime(t, "2026-09-01T09:00:00Z"), got[0].Start)
	assert.Equal(t, mustTime(t, "2026-09-01T11:30:00Z"), got[5].Start)
	assert.Equal(t, mustTime(t, "2026-09-01T12:00:00Z"), got[5].End)
}

func TestCandidatesDoNotCrossWindowEnd(t *testing.T) {
	window := span(t, "2026-09-01T09:00:00Z", "2026-09-01T10:00:00Z")

	var got []Span
	for s := range Candidates(window, 45*time.Minute, 30*time.Minute) {
		got = append(got, s)
	}

	// 09:00-09:45 fits; 09:30-10:15 would cross the window end.
	require.Len(t, got, 1)
	assert.Equal(t, mustTime(t, "2026-09-01T09:00:00Z"), got[0].Start)
}

func TestCandidatesRestartable(t *testing.T) {
	window := span(t, "2026-09-01T09:00:00Z", "2026-09-01T11:00:00Z")
	seq := Candidates(window, 30*time.Minute, 30*time.Minute)

	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}

	assert.Equal(t, 4, count())
	assert.Equal(t, 4, count())
}

func TestCandidatesEmptyOnBadInput(t *testing.T) {
	window := span(t, "2026-09-01T09:00:00Z", "2026-09-01T10:00:00Z")

	for range Candidates(window, 0, 30*time.Minute) {
		t.Fatal("zero length must yield nothing")
	}
	for range Candidates(Span{Start: window.End, End: window.Start}, 30*time.Minute, 30*time.Minute) {
		t.Fatal("inverted window must yield nothing")
	}
}
