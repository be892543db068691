package calview

import (
	"errors"
	"testing"
	"time"

	"assocal/internal/color"
	"assocal/internal/filter"
	"assocal/internal/model"
	"assocal/internal/store"
)

type fakeEngine struct {
	configured []EngineConfig
	refetches  int
	err        error
}

func (f *fakeEngine) Configure(cfg EngineConfig) error {
	f.configured = append(f.configured, cfg)
	return f.err
}

func (f *fakeEngine) RefetchEvents() { f.refetches++ }

type fakeOpener struct{ opened []model.Event }

func (f *fakeOpener) Open(ev model.Event) { f.opened = append(f.opened, ev) }

func at(day, hour int) *time.Time {
	t := time.Date(2024, 5, day, hour, 0, 0, 0, time.UTC)
	return &t
}

func newStore() *store.Store {
	return store.New([]model.Event{
		{Title: "a1", Start: at(1, 10), Association: "A"},
		{Title: "b1", Start: at(2, 10), End: at(2, 12), Association: "B"},
		{Title: "a2", Start: at(3, 10), Association: "A"},
		{Title: "c1", Start: at(10, 0), End: at(12, 0), AllDay: true, Association: "C"},
	}, color.NewResolver(nil, ""))
}

func TestProvideEventsExactForEverySubset(t *testing.T) {
	s := newStore()
	assocs := s.Associations()
	p := filter.New(assocs, nil, nil)
	v, err := New(s, p, nil, nil, DefaultEngineConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for mask := 0; mask < 1<<len(assocs); mask++ {
		for i, a := range assocs {
			if err := p.Set(a, mask&(1<<i) != 0); err != nil {
				t.Fatalf("Set: %v", err)
			}
		}

		got := v.ProvideEvents(Criteria{})
		want := 0
		for _, ev := range s.All() {
			if p.IsSelected(ev.Association) {
				want++
			}
		}
		if len(got) != want {
			t.Errorf("mask %b: got %d events, want %d", mask, len(got), want)
		}
		for _, ev := range got {
			if !p.IsSelected(ev.Association) {
				t.Errorf("mask %b: unselected event %q returned", mask, ev.Title)
			}
		}
	}
}

func TestProvideEventsAsyncMatchesSync(t *testing.T) {
	s := newStore()
	p := filter.New(s.Associations(), nil, nil)
	_, _ = p.Toggle("A")
	v, _ := New(s, p, nil, nil, DefaultEngineConfig())

	var got []model.Event
	v.ProvideEventsAsync(Criteria{}, func(evs []model.Event) { got = evs })

	want := v.ProvideEvents(Criteria{})
	if len(got) != len(want) || len(got) != 2 {
		t.Fatalf("async returned %d events, sync %d", len(got), len(want))
	}
	for i := range got {
		if got[i].Title != want[i].Title {
			t.Errorf("event %d: %q vs %q", i, got[i].Title, want[i].Title)
		}
	}

	v.ProvideEventsAsync(Criteria{}, nil)
}

func TestCriteriaWindow(t *testing.T) {
	s := newStore()
	v, _ := New(s, filter.New(s.Associations(), nil, nil), nil, nil, DefaultEngineConfig())

	tests := []struct {
		name string
		c    Criteria
		want []string
	}{
		{"unbounded", Criteria{}, []string{"a1", "b1", "a2", "c1"}},
		{"first days", Criteria{Start: *at(1, 0), End: *at(3, 0)}, []string{"a1", "b1"}},
		{"overlap multi-day", Criteria{Start: *at(11, 0), End: *at(20, 0)}, []string{"c1"}},
		{"end exclusive", Criteria{Start: *at(2, 0), End: *at(3, 10)}, []string{"b1"}},
		{"open start", Criteria{End: *at(2, 0)}, []string{"a1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Query(tt.c)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d events, want %v", len(got), tt.want)
			}
			for i, m := range got {
				if m.Event.Title != tt.want[i] {
					t.Errorf("event %d = %q, want %q", i, m.Event.Title, tt.want[i])
				}
			}
		})
	}
}

func TestRefreshAndClick(t *testing.T) {
	s := newStore()
	eng := &fakeEngine{}
	op := &fakeOpener{}
	p := filter.New(s.Associations(), nil, nil)
	v, err := New(s, p, eng, op, DefaultEngineConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.OnChange(v.Refresh)

	if len(eng.configured) != 1 || eng.configured[0].Locale != "fr" {
		t.Fatalf("engine not configured: %+v", eng.configured)
	}

	_, _ = p.Toggle("B")
	if eng.refetches != 1 {
		t.Errorf("refetches = %d, want 1", eng.refetches)
	}

	ev, _ := s.At(0)
	v.OnEventClick(ev)
	if len(op.opened) != 1 || op.opened[0].Title != "a1" {
		t.Errorf("opener received %+v", op.opened)
	}
}

func TestConfigureError(t *testing.T) {
	s := newStore()
	boom := errors.New("boom")
	if _, err := New(s, filter.New(nil, nil, nil), &fakeEngine{err: boom}, nil, DefaultEngineConfig()); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestCompactEngineConfig(t *testing.T) {
	cfg := CompactEngineConfig()
	if cfg.InitialView != "listMonth" || cfg.Locale != "fr" || cfg.ButtonText["today"] == "" {
		t.Errorf("unexpected compact config: %+v", cfg)
	}
}
