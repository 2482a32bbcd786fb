package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTruncatesAndValidates(t *testing.T) {
	dr, err := New(time.Date(2018, 2, 19, 15, 30, 0, 0, time.UTC), time.Date(2018, 3, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, Date(2018, 2, 19), dr.CheckIn)
	assert.Equal(t, 10, dr.Nights())

	_, err = New(Date(2018, 3, 1), Date(2018, 3, 1))
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = New(Date(2018, 3, 2), Date(2018, 3, 1))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2018-02-19")
	require.NoError(t, err)
	assert.Equal(t, Date(2018, 2, 19), d)

	d, err = ParseDate("2018-02-19T23:10:00Z")
	require.NoError(t, err)
	assert.Equal(t, Date(2018, 2, 19), d)

	_, err = ParseDate("19/02/2018")
	assert.ErrorIs(t, err, ErrInvalidDateFormat)
	_, err = ParseDate("")
	assert.ErrorIs(t, err, ErrInvalidDateFormat)
}

func TestWeekdayMondayFirst(t *testing.T) {
	assert.Equal(t, 0, Weekday(Date(2018, 2, 19)))
	assert.Equal(t, 1, Weekday(Date(2018, 2, 20)))
	assert.Equal(t, 6, Weekday(Date(2018, 2, 25)))
}

func TestIntersectAndDays(t *testing.T) {
	a := Must(Date(2018, 2, 9), Date(2018, 2, 19))
	b := Must(Date(2018, 2, 5), Date(2018, 2, 15))
	got, ok := a.Intersect(b)
	require.True(t, ok)
	assert.Equal(t, Must(Date(2018, 2, 9), Date(2018, 2, 15)), got)
	assert.Len(t, got.Days(), 6)

	_, ok = a.Intersect(Must(Date(2018, 2, 19), Date(2018, 2, 20)))
	assert.False(t, ok)
}

func TestCoalesce(t *testing.T) {
	days := []time.Time{
		Date(2018, 2, 12), Date(2018, 2, 9), Date(2018, 2, 10), Date(2018, 2, 11),
		Date(2018, 2, 14), Date(2018, 2, 10),
	}
	got := Coalesce(days)
	assert.Equal(t, []DateRange{
		Must(Date(2018, 2, 9), Date(2018, 2, 13)),
		Must(Date(2018, 2, 14), Date(2018, 2, 15)),
	}, got)
	assert.Nil(t, Coalesce(nil))
}

func TestMergeAllPreservesUnion(t *testing.T) {
	in := []DateRange{
		Must(Date(2018, 3, 10), Date(2018, 3, 12)),
		Must(Date(2018, 3, 1), Date(2018, 3, 5)),
		Must(Date(2018, 3, 4), Date(2018, 3, 8)),
		Must(Date(2018, 3, 8), Date(2018, 3, 9)),
	}
	out := MergeAll(in)
	assert.Equal(t, []DateRange{
		Must(Date(2018, 3, 1), Date(2018, 3, 9)),
		Must(Date(2018, 3, 10), Date(2018, 3, 12)),
	}, out)
	assert.LessOrEqual(t, len(out), len(in))

	covered := func(rs []DateRange) map[time.Time]bool {
		set := map[time.Time]bool{}
		for _, r := range rs {
			for _, d := range r.Days() {
				set[d] = true
			}
		}
		return set
	}
	assert.Equal(t, covered(in), covered(out))
}

func TestSpanBounds(t *testing.T) {
	open := Span{}
	assert.True(t, open.ContainsDate(Date(1999, 1, 1)))
	assert.False(t, open.Bounded())

	s, err := FromInclusive(Date(2018, 2, 9), Date(2018, 2, 18))
	require.NoError(t, err)
	assert.Equal(t, Date(2018, 2, 19), s.Upper)
	assert.True(t, s.ContainsDate(Date(2018, 2, 18)))
	assert.False(t, s.ContainsDate(Date(2018, 2, 19)))

	leftOpen := Span{Upper: Date(2018, 2, 10)}
	assert.True(t, leftOpen.Overlaps(Must(Date(2018, 2, 1), Date(2018, 2, 3))))
	assert.False(t, leftOpen.Overlaps(Must(Date(2018, 2, 10), Date(2018, 2, 12))))

	clipped, ok := leftOpen.Clip(Must(Date(2018, 2, 8), Date(2018, 2, 12)))
	require.True(t, ok)
	assert.Equal(t, Must(Date(2018, 2, 8), Date(2018, 2, 10)), clipped)

	assert.True(t, open.ContainsSpan(s))
	assert.False(t, s.ContainsSpan(open))
	assert.True(t, leftOpen.LowerBefore(s))

	_, err = NewSpan(Date(2018, 2, 10), Date(2018, 2, 10))
	assert.ErrorIs(t, err, ErrInvalidRange)
}
