package availability

import (
	"context"
	"errors"
	"sort"
	"time"

	"stayquote/internal/domain/property"
	"stayquote/internal/domain/shared/daterange"
	"stayquote/internal/domain/timeframe"
)

var (
	ErrBlockingNotFound = errors.New("availability: blocking not found")
	ErrInvalidWeekday   = errors.New("availability: weekday must be between 0 (Monday) and 6 (Sunday)")
	ErrInvalidStay      = errors.New("availability: min stay exceeds max stay")
)

// TurnDays lists permitted arrival weekdays, 0=Monday..6=Sunday.
type TurnDays struct {
	Weekdays []int
}

func NewTurnDays(weekdays ...int) (TurnDays, error) {
	seen := map[int]bool{}
	out := make([]int, 0, len(weekdays))
	for _, wd := range weekdays {
		if wd < 0 || wd > 6 {
			return TurnDays{}, ErrInvalidWeekday
		}
		if !seen[wd] {
			seen[wd] = true
			out = append(out, wd)
		}
	}
	sort.Ints(out)
	return TurnDays{Weekdays: out}, nil
}

func (t TurnDays) Allows(day time.Time) bool {
	wd := daterange.Weekday(day)
	for _, allowed := range t.Weekdays {
		if allowed == wd {
			return true
		}
	}
	return false
}

// StayRule is the availability override for nights inside its frame.
type StayRule struct {
	MinStay       int
	MaxStay       int
	AdvanceNotice int
	Preparation   int
}

func (r StayRule) Validate() error {
	if r.MinStay < 0 || r.MaxStay < 0 || r.AdvanceNotice < 0 || r.Preparation < 0 {
		return property.ErrNegativeValue
	}
	if r.MaxStay > 0 && r.MinStay > r.MaxStay {
		return ErrInvalidStay
	}
	return nil
}

// Permits reports whether a stay of nights satisfies the rule.
func (r StayRule) Permits(nights int) bool {
	if nights < r.MinStay {
		return false
	}
	return r.MaxStay <= 0 || nights <= r.MaxStay
}

// DefaultStayRule derives the fallback rule from property settings.
func DefaultStayRule(settings property.AvailabilitySettings) StayRule {
	return StayRule{
		MinStay:       settings.MinStay,
		MaxStay:       settings.MaxStay,
		AdvanceNotice: settings.AdvanceNotice,
		Preparation:   settings.Preparation,
	}
}

type TurnDayStore = timeframe.Store[TurnDays]
type StayRuleStore = timeframe.Store[StayRule]

// Blocking is an operator-declared unavailable period. Either end may be open.
type Blocking struct {
	ID          string
	PropertyID  property.ID
	Span        daterange.Span
	Note        string
	DateUpdated time.Time
}

type BlockingRepository interface {
	Overlapping(ctx context.Context, propertyID property.ID, dr daterange.DateRange) ([]Blocking, error)
	ListByProperty(ctx context.Context, propertyID property.ID) ([]Blocking, error)
	Add(ctx context.Context, b Blocking) error
	Remove(ctx context.Context, propertyID property.ID, id string) error
}
