package timeframe

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayquote/internal/domain/shared/daterange"
)

var epoch = daterange.Date(2024, time.January, 1)

func day(n int) time.Time { return epoch.AddDate(0, 0, n) }

func frame(id string, lower, upper int, payload string) Frame[string] {
	return Frame[string]{ID: id, PropertyID: "p1", Span: daterange.Span{Lower: day(lower), Upper: day(upper)}, Payload: payload}
}

func idSeq() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}
}

func spans(frames []Frame[string]) map[string]string {
	out := map[string]string{}
	for _, f := range frames {
		out[f.ID] = f.Span.String() + "=" + f.Payload
	}
	return out
}

func TestPlanDeletesContainedFrames(t *testing.T) {
	existing := []Frame[string]{frame("a", 2, 4, "a"), frame("b", 5, 7, "b")}
	changes := Plan(existing, frame("n", 1, 8, "n"), idSeq(), epoch)

	assert.ElementsMatch(t, []string{"a", "b"}, changes.Deleted)
	assert.Empty(t, changes.Updated)
	require.Len(t, changes.Inserted, 1)
	assert.Equal(t, "n", changes.Inserted[0].ID)
}

func TestPlanSplitsEnclosingFrame(t *testing.T) {
	existing := []Frame[string]{frame("p", 0, 10, "old")}
	after := ApplyTo(existing, Plan(existing, frame("n", 3, 5, "new"), idSeq(), epoch))

	assert.Equal(t, map[string]string{
		"p":     "[2024-01-01, 2024-01-04)=old",
		"n":     "[2024-01-04, 2024-01-06)=new",
		"gen-1": "[2024-01-06, 2024-01-11)=old",
	}, spans(after))
}

func TestPlanShrinksNeighbours(t *testing.T) {
	tests := []struct {
		name     string
		existing []Frame[string]
		insert   Frame[string]
		want     map[string]string
	}{
		{
			name:     "preceding frame shrinks",
			existing: []Frame[string]{frame("p", 0, 5, "old")},
			insert:   frame("n", 3, 8, "new"),
			want: map[string]string{
				"p": "[2024-01-01, 2024-01-04)=old",
				"n": "[2024-01-04, 2024-01-09)=new",
			},
		},
		{
			name:     "succeeding frame shrinks",
			existing: []Frame[string]{frame("s", 5, 10, "old")},
			insert:   frame("n", 3, 8, "new"),
			want: map[string]string{
				"s": "[2024-01-09, 2024-01-11)=old",
				"n": "[2024-01-04, 2024-01-09)=new",
			},
		},
		{
			name:     "same lower keeps the tail",
			existing: []Frame[string]{frame("p", 3, 10, "old")},
			insert:   frame("n", 3, 6, "new"),
			want: map[string]string{
				"p": "[2024-01-07, 2024-01-11)=old",
				"n": "[2024-01-04, 2024-01-07)=new",
			},
		},
		{
			name:     "same upper is deleted when contained",
			existing: []Frame[string]{frame("s", 4, 6, "old")},
			insert:   frame("n", 3, 6, "new"),
			want: map[string]string{
				"n": "[2024-01-04, 2024-01-07)=new",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			after := ApplyTo(tt.existing, Plan(tt.existing, tt.insert, idSeq(), epoch))
			assert.Equal(t, tt.want, spans(after))
		})
	}
}

func TestPlanOpenFrameReplacesDefaults(t *testing.T) {
	existing := []Frame[string]{
		{ID: "d", Span: daterange.Span{}, Payload: "old default"},
		frame("b", 0, 5, "bounded"),
	}
	changes := Plan(existing, Frame[string]{ID: "n", Payload: "new default"}, idSeq(), epoch)

	assert.Equal(t, []string{"d"}, changes.Deleted)
	after := ApplyTo(existing, changes)
	assert.Len(t, after, 2)
}

func TestPlanBoundedIgnoresDefaults(t *testing.T) {
	existing := []Frame[string]{{ID: "d", Payload: "default"}}
	changes := Plan(existing, frame("n", 0, 3, "new"), idSeq(), epoch)
	assert.Empty(t, changes.Deleted)
	assert.Empty(t, changes.Updated)
}

func TestPlanHalfOpenFrames(t *testing.T) {
	global := Frame[string]{ID: "global", Payload: "global"}
	tests := []struct {
		name     string
		existing []Frame[string]
		insert   Frame[string]
		want     map[string]string
	}{
		{
			name:     "open upper keeps the default and swallows later frames",
			existing: []Frame[string]{global, frame("spring", 10, 20, "spring"), frame("summer", 40, 50, "summer")},
			insert:   Frame[string]{ID: "n", Span: daterange.Span{Lower: day(30)}, Payload: "from30"},
			want: map[string]string{
				"global": "[-inf, +inf)=global",
				"spring": "[2024-01-11, 2024-01-21)=spring",
				"n":      "[2024-01-31, +inf)=from30",
			},
		},
		{
			name:     "open upper shrinks a straddling frame",
			existing: []Frame[string]{frame("p", 20, 40, "old")},
			insert:   Frame[string]{ID: "n", Span: daterange.Span{Lower: day(30)}, Payload: "new"},
			want: map[string]string{
				"p": "[2024-01-21, 2024-01-31)=old",
				"n": "[2024-01-31, +inf)=new",
			},
		},
		{
			name:     "open lower shrinks a straddling frame",
			existing: []Frame[string]{frame("s", 20, 40, "old"), frame("early", 0, 5, "early")},
			insert:   Frame[string]{ID: "n", Span: daterange.Span{Upper: day(30)}, Payload: "new"},
			want: map[string]string{
				"s": "[2024-01-31, 2024-02-10)=old",
				"n": "[-inf, 2024-01-31)=new",
			},
		},
		{
			name:     "bounded insert splits an open upper frame",
			existing: []Frame[string]{{ID: "p", Span: daterange.Span{Lower: day(10)}, Payload: "old"}},
			insert:   frame("n", 20, 25, "new"),
			want: map[string]string{
				"p":     "[2024-01-11, 2024-01-21)=old",
				"n":     "[2024-01-21, 2024-01-26)=new",
				"gen-1": "[2024-01-26, +inf)=old",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			after := ApplyTo(tt.existing, Plan(tt.existing, tt.insert, idSeq(), epoch))
			assert.Equal(t, tt.want, spans(after))
			for d := -30; d < 90; d++ {
				was := covered(tt.existing, day(d)) || tt.insert.Span.ContainsDate(day(d))
				assert.Equal(t, was, covered(after, day(d)), "coverage of day %d", d)
			}
		})
	}
}

func covered(frames []Frame[string], d time.Time) bool {
	for _, f := range frames {
		if f.Span.ContainsDate(d) {
			return true
		}
	}
	return false
}

// Random inserts keep bounded frames disjoint and every covered day keeps its
// latest payload.
func TestPlanKeepsFramesDisjoint(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	newID := idSeq()
	var frames []Frame[string]
	coverage := map[int]string{}

	for i := 0; i < 300; i++ {
		lower := rng.Intn(60)
		upper := lower + 1 + rng.Intn(15)
		payload := fmt.Sprintf("v%d", i)
		frames = ApplyTo(frames, Plan(frames, frame("", lower, upper, payload), newID, epoch))
		for d := lower; d < upper; d++ {
			coverage[d] = payload
		}

		for a := 0; a < len(frames); a++ {
			for b := a + 1; b < len(frames); b++ {
				require.False(t, frames[a].Span.OverlapsSpan(frames[b].Span),
					"frames %s and %s overlap after insert %d", frames[a].Span, frames[b].Span, i)
			}
		}
		got := map[int]string{}
		for _, f := range frames {
			for _, d := range mustRange(t, f).Days() {
				got[daterange.DaysBetween(epoch, d)] = f.Payload
			}
		}
		require.Equal(t, coverage, got, "coverage mismatch after insert %d", i)
	}
}

func mustRange(t *testing.T, f Frame[string]) daterange.DateRange {
	dr, ok := f.Span.Range()
	require.True(t, ok)
	return dr
}

func TestResolvePrefersRecentBoundedFrame(t *testing.T) {
	frames := []Frame[string]{
		{ID: "default", Payload: "default"},
		frame("early", 0, 10, "early"),
		frame("late", 5, 20, "late"),
	}

	got, ok := Resolve(frames, daterange.Must(day(3), day(8)))
	require.True(t, ok)
	assert.Equal(t, "late", got.Payload)

	got, ok = Resolve(frames, daterange.Must(day(30), day(31)))
	require.True(t, ok)
	assert.Equal(t, "default", got.Payload)

	_, ok = Resolve(frames[1:], daterange.Must(day(30), day(31)))
	assert.False(t, ok)
}

func TestResolveAt(t *testing.T) {
	frames := []Frame[string]{
		{ID: "open-lower", Span: daterange.Span{Upper: day(50)}, Payload: "open"},
		frame("mid", 10, 12, "mid"),
	}

	got, ok := ResolveAt(frames, day(11))
	require.True(t, ok)
	assert.Equal(t, "mid", got.Payload)

	got, ok = ResolveAt(frames, day(12))
	require.True(t, ok)
	assert.Equal(t, "open", got.Payload)

	_, ok = ResolveAt(frames, day(50))
	assert.False(t, ok)
}

func TestOverlappingOrdersByLowerDesc(t *testing.T) {
	frames := []Frame[string]{
		frame("a", 0, 5, "a"),
		{ID: "open", Payload: "open"},
		frame("c", 8, 9, "c"),
		frame("b", 4, 9, "b"),
	}
	got := Overlapping(frames, daterange.Must(day(0), day(10)))
	ids := make([]string, 0, len(got))
	for _, f := range got {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"c", "b", "a", "open"}, ids)
}
