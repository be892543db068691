package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "assocal/internal/log"
)

const defaultMaxOccurrencesPerEvent = 1000

// ExpandConfig bounds recurrence expansion.
type ExpandConfig struct {
	// RangeStart / RangeEnd is the inclusive window recurring events are
	// expanded in. Non-recurring events are kept regardless of the window.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps a single RRULE. Zero selects the default.
	MaxOccurrencesPerEvent int
}

// Occurrence is one concrete instance of a parsed event.
type Occurrence struct {
	Event ParsedEvent
	Start time.Time
	End   time.Time // zero when the event has no end
}

// ExpandResult wraps the expanded occurrences and the UIDs that hit the cap.
type ExpandResult struct {
	Occurrences     []Occurrence
	TruncatedEvents []string
}

// ExpandOccurrences turns parsed events into occurrences, applying RRULE,
// EXDATE and RECURRENCE-ID overrides. Output order follows input order;
// instances of one recurring event are chronological.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	overridesByUID := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride && ev.UID != "" {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
		}
	}

	for _, ev := range events {
		if ev.IsOverride && ev.UID != "" {
			// Emitted through the base event it replaces.
			continue
		}
		if ev.RawRRule == "" {
			result.Occurrences = append(result.Occurrences, Occurrence{Event: ev, Start: ev.Start, End: ev.End})
			continue
		}

		occ, hitCap := expandRecurring(ev, overridesByUID[ev.UID], cfg)
		result.Occurrences = append(result.Occurrences, occ...)
		if hitCap {
			result.TruncatedEvents = append(result.TruncatedEvents, ev.UID)
			appLog.Error("expand: truncated occurrences due to cap",
				errors.New("max occurrences reached"),
				"uid", ev.UID,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
	}

	return result, nil
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		// Keep the first instance rather than dropping the event.
		return []Occurrence{{Event: ev, Start: ev.Start, End: ev.End}}, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	loc := ev.Start.Location()
	times := set.Between(cfg.RangeStart.In(loc), cfg.RangeEnd.In(loc), true)

	hitCap := false
	if len(times) > cfg.MaxOccurrencesPerEvent {
		times = times[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	var dur time.Duration
	if !ev.End.IsZero() {
		dur = ev.End.Sub(ev.Start)
	}

	out := make([]Occurrence, 0, len(times))
	for _, start := range times {
		occ := Occurrence{Event: ev, Start: start}
		if !ev.End.IsZero() {
			occ.End = start.Add(dur)
		}
		if o, ok := findOverride(overrides, start); ok {
			occ = Occurrence{Event: o, Start: o.Start, End: o.End}
		}
		out = append(out, occ)
	}
	return out, hitCap
}

// findOverride returns the override whose RECURRENCE-ID equals start.
func findOverride(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}
