// Package modal holds the detail overlay state for one page session.
//
// The overlay is closed on every fresh load and on page restore. Open fills
// every field of the Content before marking the overlay visible and handing
// it to the Renderer.
package modal

import (
	"assocal/internal/color"
	"assocal/internal/model"
)

// EmptyLocation is shown when an event has no location.
const EmptyLocation = "—"

// KeyEscape is the key name that closes the overlay.
const KeyEscape = "Escape"

// Renderer maps modal transitions to the page. Show must reset the content
// scroll position to the top.
type Renderer interface {
	Show(c Content)
	Hide()
}

// ElementIDs names the page regions the renderer fills.
type ElementIDs struct {
	Modal       string `json:"modal" yaml:"modal"`
	Backdrop    string `json:"backdrop" yaml:"backdrop"`
	Content     string `json:"content" yaml:"content"`
	Title       string `json:"title" yaml:"title"`
	Date        string `json:"date" yaml:"date"`
	Time        string `json:"time" yaml:"time"`
	Location    string `json:"location" yaml:"location"`
	Description string `json:"description" yaml:"description"`
	Image       string `json:"image" yaml:"image"`
	Link        string `json:"link" yaml:"link"`
}

// DefaultElementIDs matches the stock page markup.
func DefaultElementIDs() ElementIDs {
	return ElementIDs{
		Modal:       "detailModal",
		Backdrop:    "detailBackdrop",
		Content:     "detailContent",
		Title:       "modalTitle",
		Date:        "modalDate",
		Time:        "modalTime",
		Location:    "modalLocation",
		Description: "modalDesc",
		Image:       "modalImage",
		Link:        "modalLink",
	}
}

// Options selects a page variant's modal features.
type Options struct {
	// Themed tints the modal from the association colour.
	Themed bool `yaml:"themed"`
	// SplitDateTime shows date and time on separate rows instead of one line.
	SplitDateTime bool `yaml:"split_date_time"`
	// LightenPercent and HeaderPercent are the Adjust offsets for the
	// background and header tones.
	LightenPercent float64    `yaml:"lighten_percent"`
	HeaderPercent  float64    `yaml:"header_percent"`
	IDs            ElementIDs `yaml:"element_ids"`
}

// DefaultOptions is the desktop variant.
func DefaultOptions() Options {
	return Options{
		Themed:         false,
		SplitDateTime:  true,
		LightenPercent: 80,
		HeaderPercent:  -20,
		IDs:            DefaultElementIDs(),
	}
}

// Content is everything the overlay displays for one event.
type Content struct {
	Title       string `json:"title"`
	Association string `json:"association"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	DateTime    string `json:"date_time"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
	ShowImage   bool   `json:"show_image"`
	Link        string `json:"link,omitempty"`
	ShowLink    bool   `json:"show_link"`
	Background  string `json:"background,omitempty"`
	Header      string `json:"header,omitempty"`
}

// State is the render snapshot of the overlay.
type State struct {
	Open            bool    `json:"open"`
	ListeningEscape bool    `json:"listening_escape"`
	BodyMarked      bool    `json:"body_marked"`
	Content         Content `json:"content"`
}

// Modal is the detail overlay. It is not safe for concurrent use; callers
// serialize access per page session.
type Modal struct {
	opts     Options
	format   Formatter
	renderer Renderer
	fallback string

	open      bool
	listening bool
	marked    bool
	content   Content
}

// New returns a closed modal. r may be nil.
func New(opts Options, f Formatter, r Renderer) *Modal {
	return &Modal{
		opts:     opts,
		format:   f,
		renderer: r,
		fallback: color.DefaultFallback,
	}
}

// Open populates the overlay from ev and shows it. Opening while already
// open replaces the content.
func (m *Modal) Open(ev model.Event) {
	m.content = m.build(ev)

	m.open = true
	m.marked = true
	m.listening = true
	if m.renderer != nil {
		m.renderer.Show(m.content)
	}
}

// Close hides the overlay and stops listening for Escape. Closing a closed
// overlay does nothing.
func (m *Modal) Close() {
	if !m.open && !m.listening && !m.marked {
		return
	}
	m.open = false
	m.marked = false
	m.listening = false
	if m.renderer != nil {
		m.renderer.Hide()
	}
}

// HandleKey closes the overlay on Escape while it is listening and reports
// whether the key was consumed.
func (m *Modal) HandleKey(key string) bool {
	if !m.listening || key != KeyEscape {
		return false
	}
	m.Close()
	return true
}

// Restore forces the closed state after the page is shown again from
// history.
func (m *Modal) Restore() {
	m.Close()
}

// IsOpen reports whether the overlay is visible.
func (m *Modal) IsOpen() bool { return m.open }

// State returns a snapshot for rendering.
func (m *Modal) State() State {
	return State{
		Open:            m.open,
		ListeningEscape: m.listening,
		BodyMarked:      m.marked,
		Content:         m.content,
	}
}

// Options returns the variant options.
func (m *Modal) Options() Options { return m.opts }

func (m *Modal) build(ev model.Event) Content {
	c := Content{
		Title:       ev.Title,
		Association: ev.Association,
		Date:        m.format.DateRow(ev),
		Time:        m.format.TimeRow(ev),
		DateTime:    m.format.DateTime(ev),
		Location:    ev.Location,
		Description: ev.Description,
	}
	if c.Location == "" {
		c.Location = EmptyLocation
	}

	if ev.Image != "" {
		c.Image = ev.Image
		c.ShowImage = true
	}

	link := ev.RegistrationLink
	if link == "" {
		link = ev.URL
	}
	if link != "" {
		c.Link = link
		c.ShowLink = true
	}

	if m.opts.Themed {
		c.Background, c.Header = m.theme(ev.BackgroundColor)
	}
	return c
}

// theme derives the background and header tones. An unparsable base colour
// falls back to the default association colour.
func (m *Modal) theme(base string) (string, string) {
	bg, err := color.Adjust(base, m.opts.LightenPercent)
	if err != nil {
		base = m.fallback
		bg, _ = color.Adjust(base, m.opts.LightenPercent)
	}
	header, err := color.Adjust(base, m.opts.HeaderPercent)
	if err != nil {
		header = base
	}
	return bg, header
}
