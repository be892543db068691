package store

import (
	"assocal/internal/model"
)

// Resolver is the colour lookup used to annotate events at load time.
type Resolver interface {
	Resolve(association string) string
}

// Store holds the loaded, colour-annotated events for one page session.
// It is never mutated after New returns.
type Store struct {
	events       []model.Event
	associations []string
}

// New copies events, fills BackgroundColor/BorderColor from r and records
// the distinct associations in order of first appearance.
func New(events []model.Event, r Resolver) *Store {
	s := &Store{
		events: make([]model.Event, len(events)),
	}

	seen := make(map[string]struct{})
	for i, ev := range events {
		c := r.Resolve(ev.Association)
		ev.BackgroundColor = c
		ev.BorderColor = c
		s.events[i] = ev

		if _, ok := seen[ev.Association]; !ok {
			seen[ev.Association] = struct{}{}
			s.associations = append(s.associations, ev.Association)
		}
	}

	return s
}

// Len returns the number of loaded events.
func (s *Store) Len() int {
	return len(s.events)
}

// All returns a copy of every event in source order.
func (s *Store) All() []model.Event {
	out := make([]model.Event, len(s.events))
	copy(out, s.events)
	return out
}

// At returns the event at index i in source order.
func (s *Store) At(i int) (model.Event, bool) {
	if i < 0 || i >= len(s.events) {
		return model.Event{}, false
	}
	return s.events[i], true
}

// Associations returns the distinct associations, first appearance first.
func (s *Store) Associations() []string {
	out := make([]string, len(s.associations))
	copy(out, s.associations)
	return out
}

// Filter returns the events, with their source index, for which keep
// reports true. Source order is preserved.
func (s *Store) Filter(keep func(model.Event) bool) []Indexed {
	out := make([]Indexed, 0, len(s.events))
	for i, ev := range s.events {
		if keep(ev) {
			out = append(out, Indexed{Index: i, Event: ev})
		}
	}
	return out
}

// Indexed pairs an event with its position in the store, which the rendering
// adapter uses as the click handle since event ids may repeat.
type Indexed struct {
	Index int
	Event model.Event
}
