package modal

import (
	"time"

	"github.com/goodsign/monday"

	"assocal/internal/model"
)

// Formatter renders event dates and times in a fixed locale.
type Formatter struct {
	Location   *time.Location
	Locale     monday.Locale
	DateLayout string
	TimeLayout string
	Arrow      string
	AllDayText string
}

// DefaultFormatter is the French-Canadian formatter ("1 mai 2024", "10:00").
func DefaultFormatter(loc *time.Location) Formatter {
	if loc == nil {
		loc = time.Local
	}
	return Formatter{
		Location:   loc,
		Locale:     monday.LocaleFrCA,
		DateLayout: "2 January 2006",
		TimeLayout: "15:04",
		Arrow:      " → ",
		AllDayText: "Toute la journée",
	}
}

// Date formats the calendar date of t, or "" when t is nil.
func (f Formatter) Date(t *time.Time) string {
	if t == nil {
		return ""
	}
	return monday.Format(t.In(f.loc()), f.DateLayout, f.Locale)
}

// Time formats the time of day of t, or "" when t is nil.
func (f Formatter) Time(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.In(f.loc()).Format(f.TimeLayout)
}

// DateRow is the start date, or "start → end" when the end falls on another
// calendar day.
func (f Formatter) DateRow(ev model.Event) string {
	if ev.Start == nil {
		return ""
	}
	if ev.End != nil && !f.sameDay(*ev.Start, *ev.End) {
		return f.Date(ev.Start) + f.Arrow + f.Date(ev.End)
	}
	return f.Date(ev.Start)
}

// TimeRow is the all-day text for all-day events, otherwise the start time
// followed by the end time when one exists and differs from the start.
func (f Formatter) TimeRow(ev model.Event) string {
	if ev.Start == nil {
		return ""
	}
	if ev.AllDay {
		return f.AllDayText
	}
	if ev.End == nil || ev.End.Equal(*ev.Start) {
		return f.Time(ev.Start)
	}
	return f.Time(ev.Start) + f.Arrow + f.Time(ev.End)
}

// DateTime is the single-line form used by the combined layout.
func (f Formatter) DateTime(ev model.Event) string {
	if ev.Start == nil {
		return ""
	}
	if ev.AllDay {
		return f.DateRow(ev)
	}

	start := f.Date(ev.Start) + ", " + f.Time(ev.Start)
	switch {
	case ev.End == nil:
		return start
	case f.sameDay(*ev.Start, *ev.End):
		if ev.End.Equal(*ev.Start) {
			return start
		}
		return start + f.Arrow + f.Time(ev.End)
	default:
		return start + f.Arrow + f.Date(ev.End) + ", " + f.Time(ev.End)
	}
}

func (f Formatter) sameDay(a, b time.Time) bool {
	a, b = a.In(f.loc()), b.In(f.loc())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (f Formatter) loc() *time.Location {
	if f.Location == nil {
		return time.Local
	}
	return f.Location
}
