package calview

import (
	"time"

	"assocal/internal/model"
	"assocal/internal/store"
)

// Criteria is the window the engine is about to display. A zero Start or
// End leaves that side unbounded.
type Criteria struct {
	Start time.Time
	End   time.Time
}

// EventSource is the synchronous data-source capability.
type EventSource interface {
	ProvideEvents(c Criteria) []model.Event
}

// AsyncEventSource is the completion-callback flavour of EventSource.
type AsyncEventSource interface {
	ProvideEventsAsync(c Criteria, onReady func([]model.Event))
}

// Engine is the external calendar renderer driven by the view.
type Engine interface {
	// Configure is called once, before the first render.
	Configure(cfg EngineConfig) error
	// RefetchEvents makes the engine query the data source again and redraw.
	RefetchEvents()
}

// Selection reports which associations are visible.
type Selection interface {
	IsSelected(association string) bool
}

// Opener receives clicked events.
type Opener interface {
	Open(ev model.Event)
}

// View feeds the engine from the store, filtered by the current selection.
type View struct {
	store  *store.Store
	sel    Selection
	engine Engine
	opener Opener
}

// New configures engine with cfg and returns the view.
func New(s *store.Store, sel Selection, engine Engine, opener Opener, cfg EngineConfig) (*View, error) {
	v := &View{store: s, sel: sel, engine: engine, opener: opener}
	if engine != nil {
		if err := engine.Configure(cfg); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Query returns the matching events with their store index.
// Selection is read at call time.
func (v *View) Query(c Criteria) []store.Indexed {
	return v.store.Filter(func(ev model.Event) bool {
		return v.sel.IsSelected(ev.Association) && c.overlaps(ev)
	})
}

// ProvideEvents implements EventSource.
func (v *View) ProvideEvents(c Criteria) []model.Event {
	matched := v.Query(c)
	out := make([]model.Event, 0, len(matched))
	for _, m := range matched {
		out = append(out, m.Event)
	}
	return out
}

// ProvideEventsAsync implements AsyncEventSource. onReady runs before the
// call returns.
func (v *View) ProvideEventsAsync(c Criteria, onReady func([]model.Event)) {
	if onReady == nil {
		return
	}
	onReady(v.ProvideEvents(c))
}

// Refresh asks the engine to re-query and redraw.
func (v *View) Refresh() {
	if v.engine != nil {
		v.engine.RefetchEvents()
	}
}

// OnEventClick forwards the clicked event to the opener.
func (v *View) OnEventClick(ev model.Event) {
	if v.opener != nil {
		v.opener.Open(ev)
	}
}

// overlaps reports whether ev intersects the criteria window. Events
// without a start only match an unbounded window.
func (c Criteria) overlaps(ev model.Event) bool {
	if c.Start.IsZero() && c.End.IsZero() {
		return true
	}
	if ev.Start == nil {
		return false
	}
	start := *ev.Start
	end := start
	if ev.End != nil && ev.End.After(start) {
		end = *ev.End
	}
	if !c.End.IsZero() && !start.Before(c.End) {
		return false
	}
	if !c.Start.IsZero() {
		if end.Equal(start) {
			return !start.Before(c.Start)
		}
		return end.After(c.Start)
	}
	return true
}
