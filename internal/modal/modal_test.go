package modal

import (
	"strings"
	"testing"
	"time"

	"assocal/internal/model"
)

type recorder struct {
	shown  []Content
	hidden int
}

func (r *recorder) Show(c Content) { r.shown = append(r.shown, c) }
func (r *recorder) Hide()          { r.hidden++ }

var montreal = time.FixedZone("EDT", -4*3600)

func ts(y int, mo time.Month, d, h, mi int) *time.Time {
	t := time.Date(y, mo, d, h, mi, 0, 0, montreal)
	return &t
}

func TestFormatterRows(t *testing.T) {
	f := DefaultFormatter(montreal)

	tests := []struct {
		name     string
		ev       model.Event
		date     string
		time     string
		dateTime string
	}{
		{
			name:     "timed without end",
			ev:       model.Event{Start: ts(2024, 5, 1, 10, 0)},
			date:     "1 mai 2024",
			time:     "10:00",
			dateTime: "1 mai 2024, 10:00",
		},
		{
			name:     "timed same day",
			ev:       model.Event{Start: ts(2024, 5, 1, 10, 0), End: ts(2024, 5, 1, 12, 30)},
			date:     "1 mai 2024",
			time:     "10:00 → 12:30",
			dateTime: "1 mai 2024, 10:00 → 12:30",
		},
		{
			name:     "timed end equals start",
			ev:       model.Event{Start: ts(2024, 5, 1, 10, 0), End: ts(2024, 5, 1, 10, 0)},
			date:     "1 mai 2024",
			time:     "10:00",
			dateTime: "1 mai 2024, 10:00",
		},
		{
			name:     "timed across days",
			ev:       model.Event{Start: ts(2024, 5, 1, 22, 0), End: ts(2024, 5, 2, 1, 0)},
			date:     "1 mai 2024 → 2 mai 2024",
			time:     "22:00 → 01:00",
			dateTime: "1 mai 2024, 22:00 → 2 mai 2024, 01:00",
		},
		{
			name:     "all day single",
			ev:       model.Event{Start: ts(2024, 8, 15, 0, 0), AllDay: true},
			date:     "15 août 2024",
			time:     "Toute la journée",
			dateTime: "15 août 2024",
		},
		{
			name:     "all day range",
			ev:       model.Event{Start: ts(2024, 5, 10, 0, 0), End: ts(2024, 5, 12, 0, 0), AllDay: true},
			date:     "10 mai 2024 → 12 mai 2024",
			time:     "Toute la journée",
			dateTime: "10 mai 2024 → 12 mai 2024",
		},
		{
			name: "nil start",
			ev:   model.Event{AllDay: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.DateRow(tt.ev); got != tt.date {
				t.Errorf("DateRow = %q, want %q", got, tt.date)
			}
			if got := f.TimeRow(tt.ev); got != tt.time {
				t.Errorf("TimeRow = %q, want %q", got, tt.time)
			}
			if got := f.DateTime(tt.ev); got != tt.dateTime {
				t.Errorf("DateTime = %q, want %q", got, tt.dateTime)
			}
		})
	}
}

func TestFormatterUsesDisplayZone(t *testing.T) {
	f := DefaultFormatter(montreal)
	utc := time.Date(2024, 5, 2, 2, 0, 0, 0, time.UTC)
	if got := f.Date(&utc); got != "1 mai 2024" {
		t.Errorf("Date = %q, want the display-zone date", got)
	}
	if got := f.Time(&utc); got != "22:00" {
		t.Errorf("Time = %q, want 22:00", got)
	}
	if f.Date(nil) != "" || f.Time(nil) != "" {
		t.Error("nil timestamps must format as empty strings")
	}
}

func TestOpenPopulatesEverything(t *testing.T) {
	r := &recorder{}
	m := New(DefaultOptions(), DefaultFormatter(montreal), r)

	ev := model.Event{
		Title:            "Atelier",
		Start:            ts(2024, 5, 1, 10, 0),
		Association:      "Club A",
		Location:         "Salle 2",
		Description:      "Venez nombreux",
		Image:            "/images/a.jpg",
		URL:              "https://example.org/e",
		RegistrationLink: "https://example.org/register",
		BackgroundColor:  "#ff0000",
	}
	m.Open(ev)

	if !m.IsOpen() {
		t.Fatal("modal should be open")
	}
	st := m.State()
	if !st.ListeningEscape || !st.BodyMarked {
		t.Errorf("open state incomplete: %+v", st)
	}
	c := st.Content
	if c.Title != "Atelier" || c.Location != "Salle 2" || c.Description != "Venez nombreux" {
		t.Errorf("unexpected content: %+v", c)
	}
	if !c.ShowImage || c.Image != "/images/a.jpg" {
		t.Errorf("image not shown: %+v", c)
	}
	if !c.ShowLink || c.Link != "https://example.org/register" {
		t.Errorf("registration link should win over url: %+v", c)
	}
	if c.Background != "" || c.Header != "" {
		t.Errorf("unthemed variant should not set colours: %+v", c)
	}
	if len(r.shown) != 1 || r.shown[0] != c {
		t.Errorf("renderer did not receive the populated content: %+v", r.shown)
	}
}

func TestOpenMissingOptionalFields(t *testing.T) {
	m := New(DefaultOptions(), DefaultFormatter(montreal), nil)
	m.Open(model.Event{Title: "Sans détails", Association: "B"})

	c := m.State().Content
	if c.Location != EmptyLocation || c.Description != "" {
		t.Errorf("placeholders wrong: %+v", c)
	}
	if c.ShowImage || c.ShowLink {
		t.Errorf("image/link should be hidden: %+v", c)
	}
	if c.Date != "" || c.Time != "" || c.DateTime != "" {
		t.Errorf("nil start should give empty date/time: %+v", c)
	}
	if !m.IsOpen() {
		t.Error("modal should still open")
	}
}

func TestOpenFallsBackToURL(t *testing.T) {
	m := New(DefaultOptions(), DefaultFormatter(montreal), nil)
	m.Open(model.Event{Title: "x", Start: ts(2024, 5, 1, 10, 0), URL: "https://example.org/e"})
	if c := m.State().Content; !c.ShowLink || c.Link != "https://example.org/e" {
		t.Errorf("url fallback missing: %+v", c)
	}
}

func TestThemedColors(t *testing.T) {
	opts := DefaultOptions()
	opts.Themed = true
	opts.LightenPercent = 50
	opts.HeaderPercent = -50
	m := New(opts, DefaultFormatter(montreal), nil)

	m.Open(model.Event{Title: "x", BackgroundColor: "#808080"})
	c := m.State().Content
	if c.Background != "#c0c0c0" || c.Header != "#404040" {
		t.Errorf("themed colours = %q / %q", c.Background, c.Header)
	}

	m.Open(model.Event{Title: "y", BackgroundColor: "not a colour"})
	c = m.State().Content
	if !strings.HasPrefix(c.Background, "#") || !strings.HasPrefix(c.Header, "#") {
		t.Errorf("invalid base colour should fall back: %+v", c)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	r := &recorder{}
	m := New(DefaultOptions(), DefaultFormatter(montreal), r)

	m.Open(model.Event{Title: "x", Start: ts(2024, 5, 1, 10, 0)})
	m.Close()

	st := m.State()
	if st.Open || st.ListeningEscape || st.BodyMarked {
		t.Fatalf("close left state behind: %+v", st)
	}
	if r.hidden != 1 {
		t.Fatalf("Hide called %d times, want 1", r.hidden)
	}

	m.Close()
	if r.hidden != 1 {
		t.Errorf("second Close should be a no-op, Hide called %d times", r.hidden)
	}
	if m.State() != st {
		t.Errorf("second Close changed state")
	}
}

func TestEscapeKey(t *testing.T) {
	m := New(DefaultOptions(), DefaultFormatter(montreal), nil)

	if m.HandleKey(KeyEscape) {
		t.Error("Escape consumed while closed")
	}

	m.Open(model.Event{Title: "x"})
	if m.HandleKey("Enter") || !m.IsOpen() {
		t.Error("non-Escape key closed the modal")
	}
	if !m.HandleKey(KeyEscape) || m.IsOpen() {
		t.Error("Escape did not close the modal")
	}
	if m.HandleKey(KeyEscape) {
		t.Error("listener should be removed after close")
	}
}

func TestRestoreAlwaysCloses(t *testing.T) {
	m := New(DefaultOptions(), DefaultFormatter(montreal), nil)
	m.Restore()
	if m.IsOpen() {
		t.Error("restore on fresh modal opened it")
	}

	m.Open(model.Event{Title: "x"})
	m.Restore()
	if m.IsOpen() || m.State().ListeningEscape {
		t.Error("restore did not close the modal")
	}
}
