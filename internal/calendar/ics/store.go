// Package ics keeps calendars as iCalendar files, one file per calendar.
package ics

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/syllabus-tracker/internal/calendar"
	"github.com/joseph-ayodele/syllabus-tracker/internal/repository"
)

const productID = "-//Sylly//Syllabus Tracker//EN"

var reUnsafe = regexp.MustCompile(`[^A-Za-z0-9_\-]+`)

// Store writes events into <dir>/<calendar>.ics. The default calendar is
// the name saved in settings, else the fallback name.
type Store struct {
	dir      string
	fallback string
	settings repository.SettingsRepository
	now      func() time.Time
	logger   *slog.Logger

	mu sync.Mutex
}

func New(dir, fallback string, settings repository.SettingsRepository, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, fallback: fallback, settings: settings, now: time.Now, logger: logger}
}

func (s *Store) DefaultCalendar(ctx context.Context) (string, error) {
	if s.settings != nil {
		v, ok, err := s.settings.Get(ctx, repository.SettingCalendarName)
		if err != nil {
			return "", err
		}
		if ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), nil
		}
	}
	if strings.TrimSpace(s.fallback) == "" {
		return "", calendar.ErrNoDefaultCalendar
	}
	return strings.TrimSpace(s.fallback), nil
}

// Path is the file backing calendarID.
func (s *Store) Path(calendarID string) string {
	name := strings.Trim(reUnsafe.ReplaceAllString(calendarID, "_"), "_")
	if name == "" {
		name = "calendar"
	}
	return filepath.Join(s.dir, name+".ics")
}

func (s *Store) SaveEvent(ctx context.Context, calendarID string, ev calendar.Event) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(calendarID)
	cal, err := s.load(path, calendarID)
	if err != nil {
		return "", err
	}

	uid := uuid.NewString() + "@sylly"
	e := cal.AddEvent(uid)
	e.SetDtStampTime(s.now().UTC())
	e.SetSummary(ev.Title)
	if ev.Notes != "" {
		e.SetDescription(ev.Notes)
	}
	if ev.AllDay {
		e.SetAllDayStartAt(ev.Start)
		// DTEND of an all-day event is exclusive
		e.SetAllDayEndAt(ev.End.AddDate(0, 0, 1))
	} else {
		e.SetStartAt(ev.Start)
		e.SetEndAt(ev.End)
	}
	if ev.Alarm != 0 {
		a := e.AddAlarm()
		a.SetAction(ical.ActionDisplay)
		a.SetTrigger(trigger(ev.Alarm))
		a.SetProperty(ical.ComponentPropertyDescription, ev.Title)
	}

	if err := s.write(path, cal); err != nil {
		return "", err
	}
	s.logger.Debug("calendar.ics.saved", "calendar", calendarID, "uid", uid, "path", path)
	return uid, nil
}

// StoredEvent is a summary of one event read back from a calendar file.
type StoredEvent struct {
	UID     string
	Summary string
	Start   string
	End     string
	Trigger string
}

// Events lists the events of calendarID in file order.
func (s *Store) Events(calendarID string) ([]StoredEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.Path(calendarID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cal, err := ical.ParseCalendar(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.Name(), err)
	}

	var out []StoredEvent
	for _, e := range cal.Events() {
		se := StoredEvent{
			UID:     e.Id(),
			Summary: prop(e.GetProperty(ical.ComponentPropertySummary)),
			Start:   prop(e.GetProperty(ical.ComponentPropertyDtStart)),
			End:     prop(e.GetProperty(ical.ComponentPropertyDtEnd)),
		}
		if as := e.Alarms(); len(as) > 0 {
			se.Trigger = prop(as[0].GetProperty(ical.ComponentPropertyTrigger))
		}
		out = append(out, se)
	}
	return out, nil
}

func (s *Store) load(path, name string) (*ical.Calendar, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		cal := ical.NewCalendar()
		cal.SetMethod(ical.MethodPublish)
		cal.SetProductId(productID)
		cal.SetXWRCalName(name)
		return cal, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cal, err := ical.ParseCalendar(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cal, nil
}

// write replaces the file atomically.
func (s *Store) write(path string, cal *ical.Calendar) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".cal-*.ics")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(cal.Serialize()); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func prop(p *ical.IANAProperty) string {
	if p == nil {
		return ""
	}
	return p.Value
}

// trigger renders a relative alarm offset as an iCalendar duration.
func trigger(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign, d = "-", -d
	}
	if d%time.Hour == 0 {
		return fmt.Sprintf("%sPT%dH", sign, int(d/time.Hour))
	}
	return fmt.Sprintf("%sPT%dM", sign, int(d/time.Minute))
}
