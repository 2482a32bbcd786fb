package dto

import (
	"stayquote/internal/domain/calendar"
	"stayquote/internal/domain/shared/daterange"
)

type CalendarDay struct {
	Date           string  `json:"date"`
	Price          *string `json:"price"`
	PriceFormatted *string `json:"priceFormatted"`
	MinNights      *int    `json:"minNights"`
	Available      bool    `json:"available"`
}

type Calendar struct {
	Count    int           `json:"count"`
	Currency string        `json:"currency"`
	Calendar []CalendarDay `json:"calendar"`
}

func MapCalendar(p calendar.Projection) Calendar {
	out := Calendar{Count: p.Count, Currency: p.Currency, Calendar: make([]CalendarDay, 0, len(p.Days))}
	for _, d := range p.Days {
		day := CalendarDay{Date: daterange.Format(d.Date), MinNights: d.MinNights, Available: d.Available}
		if d.Price != nil {
			plain, formatted := d.Price.String(), d.Price.Format()
			day.Price = &plain
			day.PriceFormatted = &formatted
		}
		out.Calendar = append(out.Calendar, day)
	}
	return out
}
