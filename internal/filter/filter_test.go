package filter

import (
	"errors"
	"reflect"
	"testing"
)

func set(names ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}

func TestNewOneTogglePerAssociation(t *testing.T) {
	p := New([]string{"A", "B", "A", "C"}, func(a string) string { return "#" + a }, nil)

	toggles := p.Toggles()
	if len(toggles) != 3 {
		t.Fatalf("expected 3 toggles, got %d: %+v", len(toggles), toggles)
	}
	names := map[string]bool{}
	for _, tg := range toggles {
		if names[tg.Association] {
			t.Errorf("duplicate toggle %q", tg.Association)
		}
		names[tg.Association] = true
		if !tg.Selected {
			t.Errorf("toggle %q should start selected", tg.Association)
		}
		if tg.Color != "#"+tg.Association {
			t.Errorf("toggle %q color = %q", tg.Association, tg.Color)
		}
	}
	if !reflect.DeepEqual(p.Selected(), set("A", "B", "C")) {
		t.Errorf("initial selection = %v", p.Selected())
	}
}

func TestToggleRemovesAndRestores(t *testing.T) {
	calls := 0
	p := New([]string{"A", "B", "C"}, nil, func() { calls++ })

	on, err := p.Toggle("B")
	if err != nil || on {
		t.Fatalf("Toggle(B) = %v, %v", on, err)
	}
	if !reflect.DeepEqual(p.Selected(), set("A", "C")) {
		t.Errorf("after first toggle: %v", p.Selected())
	}

	on, err = p.Toggle("B")
	if err != nil || !on {
		t.Fatalf("Toggle(B) again = %v, %v", on, err)
	}
	if !reflect.DeepEqual(p.Selected(), set("A", "B", "C")) {
		t.Errorf("after second toggle: %v", p.Selected())
	}

	if calls != 2 {
		t.Errorf("onChange called %d times, want 2", calls)
	}
}

func TestToggleUnknown(t *testing.T) {
	calls := 0
	p := New([]string{"A"}, nil, func() { calls++ })

	if _, err := p.Toggle("Z"); !errors.Is(err, ErrUnknownAssociation) {
		t.Errorf("err = %v, want ErrUnknownAssociation", err)
	}
	if err := p.Set("Z", false); !errors.Is(err, ErrUnknownAssociation) {
		t.Errorf("Set err = %v, want ErrUnknownAssociation", err)
	}
	if calls != 0 {
		t.Errorf("onChange fired for unknown association")
	}
}

func TestSetOnlyFiresOnChange(t *testing.T) {
	calls := 0
	p := New([]string{"A"}, nil, nil)
	p.OnChange(func() { calls++ })

	_ = p.Set("A", true)
	if calls != 0 {
		t.Errorf("no-op Set fired onChange")
	}
	_ = p.Set("A", false)
	if calls != 1 || p.IsSelected("A") {
		t.Errorf("Set(false): calls=%d selected=%v", calls, p.IsSelected("A"))
	}
}

func TestSelectedIsACopy(t *testing.T) {
	p := New([]string{"A", "B"}, nil, nil)
	s := p.Selected()
	delete(s, "A")
	if !p.IsSelected("A") {
		t.Error("mutating Selected() result changed panel state")
	}
}
