// Package widget wires the loaded data, the filter panel, the calendar view
// and the detail modal for one page session.
package widget

import (
	"context"
	"errors"
	"fmt"

	"assocal/internal/calview"
	"assocal/internal/color"
	"assocal/internal/filter"
	"assocal/internal/loader"
	"assocal/internal/modal"
	"assocal/internal/store"
)

// ErrEventIndex is returned by Click for an index outside the store.
var ErrEventIndex = errors.New("no event at index")

// Options configures a page session.
type Options struct {
	FallbackColor string
	Engine        calview.EngineConfig
	Modal         modal.Options
	Formatter     modal.Formatter
}

// Widget owns every piece of page state. Methods must not be called
// concurrently; the rendering adapter serializes them.
type Widget struct {
	resolver *color.Resolver
	store    *store.Store
	panel    *filter.Panel
	view     *calview.View
	modal    *modal.Modal
}

// Load runs the loading sequence against src and builds the panel and
// view. On failure nothing is built and the error is returned as is.
// The modal starts closed.
func Load(ctx context.Context, src loader.Source, engine calview.Engine, r modal.Renderer, opts Options) (*Widget, error) {
	m := modal.New(opts.Modal, opts.Formatter, r)
	m.Close()

	res, err := loader.Load(ctx, src)
	if err != nil {
		return nil, err
	}

	w := &Widget{
		resolver: color.NewResolver(res.Colors, opts.FallbackColor),
		modal:    m,
	}
	w.store = store.New(res.Events, w.resolver)
	w.panel = filter.New(w.store.Associations(), w.resolver.Resolve, nil)

	w.view, err = calview.New(w.store, w.panel, engine, m, opts.Engine)
	if err != nil {
		return nil, fmt.Errorf("widget: configure engine: %w", err)
	}
	w.panel.OnChange(w.view.Refresh)

	return w, nil
}

// Filters returns the filter controls.
func (w *Widget) Filters() []filter.Toggle {
	return w.panel.Toggles()
}

// Selected returns the current selection.
func (w *Widget) Selected() map[string]struct{} {
	return w.panel.Selected()
}

// Toggle flips one filter; the view refreshes through the panel hook.
func (w *Widget) Toggle(association string) (bool, error) {
	return w.panel.Toggle(association)
}

// SetFilter forces one filter's state.
func (w *Widget) SetFilter(association string, selected bool) error {
	return w.panel.Set(association, selected)
}

// Events is the data source the engine calls.
func (w *Widget) Events(c calview.Criteria) []store.Indexed {
	return w.view.Query(c)
}

// View exposes the data source capabilities.
func (w *Widget) View() *calview.View {
	return w.view
}

// Click opens the modal for the event at the given store index.
func (w *Widget) Click(index int) (modal.State, error) {
	ev, ok := w.store.At(index)
	if !ok {
		return w.modal.State(), fmt.Errorf("%w: %d", ErrEventIndex, index)
	}
	w.view.OnEventClick(ev)
	return w.modal.State(), nil
}

// Close closes the modal (close button or backdrop click).
func (w *Widget) Close() modal.State {
	w.modal.Close()
	return w.modal.State()
}

// Key forwards a key press to the modal.
func (w *Widget) Key(key string) modal.State {
	w.modal.HandleKey(key)
	return w.modal.State()
}

// Restore is called when the page is shown again from history.
func (w *Widget) Restore() modal.State {
	w.modal.Restore()
	return w.modal.State()
}

// Modal returns the current modal snapshot.
func (w *Widget) Modal() modal.State {
	return w.modal.State()
}

// Resolve returns the display colour of an association.
func (w *Widget) Resolve(association string) string {
	return w.resolver.Resolve(association)
}

// Len returns the number of loaded events.
func (w *Widget) Len() int {
	return w.store.Len()
}
