package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Event is a single calendar entry as loaded from events.json.
// It is read-only once the colour fields have been filled at load time.
type Event struct {
	// ID is opaque and not required to be unique.
	ID    string
	Title string

	// Start is required in the source data. End is optional; nil means
	// the end is unknown.
	Start  *time.Time
	End    *time.Time
	AllDay bool

	URL string

	// Association groups events for colouring and filtering.
	Association string

	Location         string
	Description      string
	Image            string
	RegistrationLink string

	// Derived from Association by the colour resolver, never read from source.
	BackgroundColor string
	BorderColor     string
}

// ColorMapping maps an association name to a colour string (hex or rgb()).
type ColorMapping map[string]string

// ErrMissingAssociation is returned when a source record has no association.
var ErrMissingAssociation = errors.New("event has no association")

// ErrMissingStart is returned when a source record has no start timestamp.
var ErrMissingStart = errors.New("event has no start")

// EventRecord is the JSON shape of one events.json entry, as produced by the
// ICS converter and consumed by the calendar engine.
type EventRecord struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Start         string        `json:"start"`
	End           string        `json:"end,omitempty"`
	AllDay        bool          `json:"allDay"`
	URL           string        `json:"url,omitempty"`
	Association   string        `json:"association,omitempty"`
	ExtendedProps ExtendedProps `json:"extendedProps"`
}

// ExtendedProps carries the non-engine fields of an event record.
type ExtendedProps struct {
	Association      string `json:"association"`
	Description      string `json:"description,omitempty"`
	Location         string `json:"location,omitempty"`
	Image            string `json:"image,omitempty"`
	RegistrationLink string `json:"registrationLink,omitempty"`
}

// DecodeEvents parses an events.json payload. Zone-less timestamps are
// interpreted in loc (time.Local when nil).
func DecodeEvents(data []byte, loc *time.Location) ([]Event, error) {
	var records []EventRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}

	events := make([]Event, 0, len(records))
	for i, rec := range records {
		ev, err := rec.Event(loc)
		if err != nil {
			return nil, fmt.Errorf("decode events: record %d (id=%q): %w", i, rec.ID, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// DecodeColors parses an assoc-colors.json payload.
func DecodeColors(data []byte) (ColorMapping, error) {
	var m ColorMapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode colors: %w", err)
	}
	if m == nil {
		m = ColorMapping{}
	}
	return m, nil
}

// Event converts a wire record into an Event.
func (r EventRecord) Event(loc *time.Location) (Event, error) {
	assoc := strings.TrimSpace(r.ExtendedProps.Association)
	if assoc == "" {
		assoc = strings.TrimSpace(r.Association)
	}
	if assoc == "" {
		return Event{}, ErrMissingAssociation
	}
	if strings.TrimSpace(r.Start) == "" {
		return Event{}, ErrMissingStart
	}

	start, dateOnly, err := ParseTimestamp(r.Start, loc)
	if err != nil {
		return Event{}, fmt.Errorf("start: %w", err)
	}

	ev := Event{
		ID:               r.ID,
		Title:            r.Title,
		Start:            &start,
		AllDay:           r.AllDay || dateOnly,
		URL:              r.URL,
		Association:      assoc,
		Location:         r.ExtendedProps.Location,
		Description:      r.ExtendedProps.Description,
		Image:            r.ExtendedProps.Image,
		RegistrationLink: r.ExtendedProps.RegistrationLink,
	}

	if strings.TrimSpace(r.End) != "" {
		end, _, err := ParseTimestamp(r.End, loc)
		if err != nil {
			return Event{}, fmt.Errorf("end: %w", err)
		}
		ev.End = &end
	}

	return ev, nil
}

// Record converts an Event back into its wire shape.
func (e Event) Record() EventRecord {
	rec := EventRecord{
		ID:     e.ID,
		Title:  e.Title,
		AllDay: e.AllDay,
		URL:    e.URL,
		ExtendedProps: ExtendedProps{
			Association:      e.Association,
			Description:      e.Description,
			Location:         e.Location,
			Image:            e.Image,
			RegistrationLink: e.RegistrationLink,
		},
	}
	if e.Start != nil {
		rec.Start = FormatTimestamp(*e.Start, e.AllDay)
	}
	if e.End != nil {
		rec.End = FormatTimestamp(*e.End, e.AllDay)
	}
	return rec
}

const (
	layoutDate          = "2006-01-02"
	layoutLocalMinute   = "2006-01-02T15:04"
	layoutLocalSecond   = "2006-01-02T15:04:05"
	layoutLocalFraction = "2006-01-02T15:04:05.999999999"
)

// ParseTimestamp accepts RFC 3339, zone-less local date-times and plain dates.
// dateOnly reports whether the value carried no time of day.
func ParseTimestamp(v string, loc *time.Location) (t time.Time, dateOnly bool, err error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false, errors.New("empty timestamp")
	}
	if loc == nil {
		loc = time.Local
	}

	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, false, nil
	}
	for _, layout := range []string{layoutLocalSecond, layoutLocalMinute, layoutLocalFraction} {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, false, nil
		}
	}
	if t, err := time.ParseInLocation(layoutDate, v, loc); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("unsupported timestamp %q", v)
}

// FormatTimestamp renders t the way events.json stores it: a plain date for
// all-day values, RFC 3339 otherwise.
func FormatTimestamp(t time.Time, allDay bool) string {
	if allDay {
		return t.Format(layoutDate)
	}
	return t.Format(time.RFC3339)
}
