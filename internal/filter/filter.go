package filter

import (
	"errors"
	"fmt"
)

// ErrUnknownAssociation is returned when a toggle is requested for an
// association that has no control.
var ErrUnknownAssociation = errors.New("unknown association")

// Toggle is the render snapshot of one filter control.
type Toggle struct {
	Association string `json:"association"`
	Color       string `json:"color"`
	Selected    bool   `json:"selected"`
}

// Panel holds one toggle per distinct association. All toggles start
// selected. Selection only changes through Toggle or Set.
type Panel struct {
	order    []string
	colors   map[string]string
	selected map[string]bool
	onChange func()
}

// New builds the panel. Duplicate names are ignored; order is first
// appearance. resolve tints each control; onChange runs after every
// selection change and may be nil.
func New(associations []string, resolve func(string) string, onChange func()) *Panel {
	p := &Panel{
		colors:   make(map[string]string, len(associations)),
		selected: make(map[string]bool, len(associations)),
		onChange: onChange,
	}
	for _, a := range associations {
		if _, dup := p.selected[a]; dup {
			continue
		}
		p.order = append(p.order, a)
		p.selected[a] = true
		if resolve != nil {
			p.colors[a] = resolve(a)
		}
	}
	return p
}

// OnChange replaces the change hook.
func (p *Panel) OnChange(fn func()) {
	p.onChange = fn
}

// Toggle flips the association's state, fires the change hook and returns
// the new state.
func (p *Panel) Toggle(association string) (bool, error) {
	cur, ok := p.selected[association]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownAssociation, association)
	}
	p.selected[association] = !cur
	p.changed()
	return !cur, nil
}

// Set forces a state. The change hook fires only when the state differs.
func (p *Panel) Set(association string, selected bool) error {
	cur, ok := p.selected[association]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAssociation, association)
	}
	if cur == selected {
		return nil
	}
	p.selected[association] = selected
	p.changed()
	return nil
}

func (p *Panel) changed() {
	if p.onChange != nil {
		p.onChange()
	}
}

// IsSelected reports the current state; unknown names are never selected.
func (p *Panel) IsSelected(association string) bool {
	return p.selected[association]
}

// Selected returns a fresh set of the currently selected associations.
func (p *Panel) Selected() map[string]struct{} {
	out := make(map[string]struct{}, len(p.selected))
	for a, on := range p.selected {
		if on {
			out[a] = struct{}{}
		}
	}
	return out
}

// Toggles returns a snapshot of every control in panel order.
func (p *Panel) Toggles() []Toggle {
	out := make([]Toggle, 0, len(p.order))
	for _, a := range p.order {
		out = append(out, Toggle{
			Association: a,
			Color:       p.colors[a],
			Selected:    p.selected[a],
		})
	}
	return out
}
