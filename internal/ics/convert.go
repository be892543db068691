package ics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"assocal/internal/config"
	appLog "assocal/internal/log"
	"assocal/internal/model"
)

// Converter turns ICS feeds into the events.json / assoc-colors.json pair
// the widget loads.
type Converter struct {
	Fetcher   *Fetcher
	Sources   []Source
	Images    ImagePicker
	PublicDir string
	// Colors is written to assoc-colors.json when non-empty.
	Colors   map[string]string
	Location *time.Location
	// Backfill / Horizon bound recurrence expansion around Now.
	Backfill time.Duration
	Horizon  time.Duration
	Now      func() time.Time
}

// Stats summarizes one conversion run.
type Stats struct {
	Sources int
	Failed  int
	Events  int
}

// Run fetches, parses and expands every source and rewrites events.json.
// Sources that fail are skipped and reported; when every source fails the
// previous events.json is left in place.
func (c *Converter) Run(ctx context.Context) (Stats, error) {
	stats := Stats{Sources: len(c.Sources)}
	if len(c.Sources) == 0 {
		return stats, errors.New("convert: no ICS sources configured")
	}

	results, fetchErrs := c.Fetcher.FetchAll(ctx, c.Sources)
	stats.Failed = len(fetchErrs)
	if len(results) == 0 {
		return stats, fmt.Errorf("convert: every source failed: %w", errors.Join(fetchErrs...))
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	t := now()
	cfg := ExpandConfig{
		RangeStart: t.Add(-c.Backfill),
		RangeEnd:   t.Add(c.Horizon),
	}

	var records []model.EventRecord
	var parseErrs []error
	for _, res := range results {
		parsed, err := ParseICS(res.Source, res.Body)
		if err != nil {
			appLog.Error("ics source skipped", err,
				"association", res.Source.Association,
				"url", redactURL(res.Source.URL),
				"from_cache", res.FromCache,
			)
			parseErrs = append(parseErrs, err)
			stats.Failed++
			continue
		}
		expanded, err := ExpandOccurrences(parsed, cfg)
		if err != nil {
			return stats, fmt.Errorf("convert: %w", err)
		}
		for _, occ := range expanded.Occurrences {
			records = append(records, c.record(occ, len(records)+1))
		}
	}
	stats.Events = len(records)
	if stats.Failed >= stats.Sources {
		return stats, fmt.Errorf("convert: every source failed: %w", errors.Join(append(fetchErrs, parseErrs...)...))
	}

	if err := c.write(records); err != nil {
		return stats, err
	}

	appLog.Info("ics conversion completed",
		"sources", stats.Sources,
		"failed", stats.Failed,
		"events", stats.Events,
	)
	return stats, nil
}

func (c *Converter) record(occ Occurrence, id int) model.EventRecord {
	ev := occ.Event
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}

	rec := model.EventRecord{
		ID:     strconv.Itoa(id),
		Title:  strings.TrimSpace(ev.Summary),
		AllDay: ev.AllDay,
		ExtendedProps: model.ExtendedProps{
			Association:      ev.Source.Association,
			Description:      ev.Description,
			Location:         ev.Location,
			Image:            c.Images.Pick(ev.Source.Association, ev.Categories),
			RegistrationLink: ev.URL,
		},
	}

	rec.Start = stamp(occ.Start, ev.AllDay, loc)
	if !occ.End.IsZero() {
		rec.End = stamp(inclusiveEnd(occ, ev.AllDay), ev.AllDay, loc)
	}
	return rec
}

// inclusiveEnd turns the exclusive DTEND of an all-day occurrence into its
// last day, so events.json carries the date people read on the poster.
func inclusiveEnd(occ Occurrence, allDay bool) time.Time {
	if !allDay {
		return occ.End
	}
	last := occ.End.AddDate(0, 0, -1)
	if last.Before(occ.Start) {
		return occ.End
	}
	return last
}

// stamp keeps the calendar date of all-day values as written in the feed
// and renders timed values in the display zone.
func stamp(t time.Time, allDay bool, loc *time.Location) string {
	if allDay {
		return model.FormatTimestamp(t, true)
	}
	return model.FormatTimestamp(t.In(loc), false)
}

func (c *Converter) write(records []model.EventRecord) error {
	if records == nil {
		records = []model.EventRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("convert: marshal events: %w", err)
	}
	if err := config.WriteFileAtomic(filepath.Join(c.PublicDir, "events.json"), data, 0o644); err != nil {
		return fmt.Errorf("convert: write events: %w", err)
	}

	if len(c.Colors) == 0 {
		return nil
	}
	data, err = json.MarshalIndent(c.Colors, "", "  ")
	if err != nil {
		return fmt.Errorf("convert: marshal colors: %w", err)
	}
	if err := config.WriteFileAtomic(filepath.Join(c.PublicDir, "assoc-colors.json"), data, 0o644); err != nil {
		return fmt.Errorf("convert: write colors: %w", err)
	}
	return nil
}
