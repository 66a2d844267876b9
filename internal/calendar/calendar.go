package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/syllabus-tracker/constants"
	"github.com/joseph-ayodele/syllabus-tracker/internal/common"
	"github.com/joseph-ayodele/syllabus-tracker/internal/entity"
	"github.com/joseph-ayodele/syllabus-tracker/internal/repository"
)

const maxCalendarName = 100

// ReminderOffset is when the alarm fires relative to an event's start.
const ReminderOffset = -24 * time.Hour

var (
	ErrAccessDenied      = errors.New("calendar access denied: change access in settings")
	ErrNoDefaultCalendar = errors.New("no default calendar")
)

// Event is one calendar entry to be written. All-day events use Start and
// End at midnight of the same day.
type Event struct {
	Title  string
	Notes  string
	Start  time.Time
	End    time.Time
	AllDay bool
	Alarm  time.Duration
}

// Store is the calendar the events are written to.
type Store interface {
	// DefaultCalendar names the calendar new events go to, or returns
	// ErrNoDefaultCalendar.
	DefaultCalendar(ctx context.Context) (string, error)
	// SaveEvent writes ev and returns its identifier.
	SaveEvent(ctx context.Context, calendarID string, ev Event) (string, error)
}

// Prompter asks the user for calendar access once.
type Prompter interface {
	Consent(ctx context.Context) (bool, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context) (bool, error)

func (f PrompterFunc) Consent(ctx context.Context) (bool, error) { return f(ctx) }

// Recorder stores the event identifier on an exported assignment.
// repository.CourseRepository satisfies it.
type Recorder interface {
	SetCalendarEventID(ctx context.Context, assignmentID uuid.UUID, eventID string) error
}

// ExportResult counts assignments now present in the calendar, including
// ones exported earlier, and lists the titles that could not be written.
type ExportResult struct {
	SuccessCount int      `json:"success_count"`
	Written      int      `json:"written"`
	FailedTitles []string `json:"failed_titles"`
}

type Service struct {
	store    Store
	settings repository.SettingsRepository
	prompter Prompter
	loc      *time.Location
	logger   *slog.Logger
}

func NewService(store Store, settings repository.SettingsRepository, prompter Prompter, loc *time.Location, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, settings: settings, prompter: prompter, loc: loc, logger: logger}
}

// Status returns the persisted authorization state.
func (s *Service) Status(ctx context.Context) (constants.CalendarAuthStatus, error) {
	v, ok, err := s.settings.Get(ctx, repository.SettingCalendarAuth)
	if err != nil {
		return "", err
	}
	if !ok || v == "" {
		return constants.CalendarNotDetermined, nil
	}
	return constants.CalendarAuthStatus(v), nil
}

// AccessRecorder persists the authorization state decided by a prompt.
// *Service records straight to settings; the pipeline records on its loop.
type AccessRecorder interface {
	RecordAccess(ctx context.Context, st constants.CalendarAuthStatus) error
}

// RequestAccess prompts only while the state is undetermined. A denied or
// restricted state is final here; it can only be changed in settings.
// The decision is persisted through rec, or directly when rec is nil.
func (s *Service) RequestAccess(ctx context.Context, rec AccessRecorder) (bool, error) {
	st, err := s.Status(ctx)
	if err != nil {
		return false, err
	}
	switch st {
	case constants.CalendarFullAccess, constants.CalendarWriteOnly:
		return true, nil
	case constants.CalendarDenied, constants.CalendarRestricted:
		s.logger.Info("calendar.access.denied", "status", st)
		return false, common.NewCalendarPermissionError(string(st), ErrAccessDenied)
	}

	if s.prompter == nil {
		return false, common.NewCalendarPermissionError("no way to ask for consent", ErrAccessDenied)
	}
	granted, err := s.prompter.Consent(ctx)
	if err != nil {
		return false, common.NewCalendarPermissionError("consent prompt failed", err)
	}
	st = constants.CalendarDenied
	if granted {
		st = constants.CalendarFullAccess
	}
	if rec == nil {
		rec = s
	}
	if err := rec.RecordAccess(ctx, st); err != nil {
		return false, err
	}
	s.logger.Info("calendar.access.decided", "status", st)
	if !granted {
		return false, common.NewCalendarPermissionError(string(st), ErrAccessDenied)
	}
	return true, nil
}

// RecordAccess stores st as the authorization state.
func (s *Service) RecordAccess(ctx context.Context, st constants.CalendarAuthStatus) error {
	return s.settings.Set(ctx, repository.SettingCalendarAuth, string(st))
}

// Revoke resets the authorization state so the next request prompts again.
func (s *Service) Revoke(ctx context.Context) error {
	if err := s.settings.Delete(ctx, repository.SettingCalendarAuth); err != nil {
		return err
	}
	s.logger.Info("calendar.access.reset")
	return nil
}

// Settings is what the settings screen shows for the calendar.
type Settings struct {
	Status   constants.CalendarAuthStatus `json:"status"`
	Calendar string                       `json:"calendar"` // empty when there is no default calendar
}

func (s *Service) Settings(ctx context.Context) (Settings, error) {
	st, err := s.Status(ctx)
	if err != nil {
		return Settings{}, err
	}
	name, err := s.store.DefaultCalendar(ctx)
	if err != nil && !errors.Is(err, ErrNoDefaultCalendar) {
		return Settings{}, err
	}
	return Settings{Status: st, Calendar: name}, nil
}

// UseCalendar selects the calendar future exports write to. An empty name
// drops the selection so the configured default applies again.
func (s *Service) UseCalendar(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return s.settings.Delete(ctx, repository.SettingCalendarName)
	}
	if err := common.NewValidator().Field("name", name, common.MaxLength(maxCalendarName)).Error(); err != nil {
		return err
	}
	if err := s.settings.Set(ctx, repository.SettingCalendarName, name); err != nil {
		return err
	}
	s.logger.Info("calendar.selected", "calendar", name)
	return nil
}

// Export writes one all-day event per assignment of course. Assignments
// already carrying an event id are counted without being written again.
// A failing item never stops the others.
func (s *Service) Export(ctx context.Context, course *entity.Course, rec Recorder) (ExportResult, error) {
	res := ExportResult{FailedTitles: []string{}}
	st, err := s.Status(ctx)
	if err != nil {
		return res, err
	}
	if !st.Granted() {
		return res, common.NewCalendarPermissionError(string(st), ErrAccessDenied)
	}

	calID, err := s.store.DefaultCalendar(ctx)
	if err != nil {
		s.logger.Warn("calendar.export.no_calendar", "course", course.Name, "error", err)
		for _, a := range course.Assignments {
			res.FailedTitles = append(res.FailedTitles, a.Title)
		}
		return res, nil
	}

	for _, a := range course.Assignments {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if a.Exported() {
			res.SuccessCount++
			continue
		}
		id, err := s.store.SaveEvent(ctx, calID, s.eventFor(course, a))
		if err != nil {
			s.logger.Warn("calendar.export.item_failed", "title", a.Title,
				"error", common.NewCalendarWriteError(a.Title, err))
			res.FailedTitles = append(res.FailedTitles, a.Title)
			continue
		}
		if rec != nil {
			if err := rec.SetCalendarEventID(ctx, a.ID, id); err != nil {
				s.logger.Warn("calendar.export.record_failed", "title", a.Title, "event_id", id,
					"error", common.NewCalendarWriteError(a.Title, err))
				res.FailedTitles = append(res.FailedTitles, a.Title)
				continue
			}
		}
		a.CalendarEventID = &id
		res.SuccessCount++
		res.Written++
	}

	s.logger.Info("calendar.export.ok",
		"course", course.Name,
		"calendar", calID,
		"success", res.SuccessCount,
		"written", res.Written,
		"failed", len(res.FailedTitles),
	)
	return res, nil
}

func (s *Service) eventFor(c *entity.Course, a *entity.Assignment) Event {
	due := a.DueDate.In(s.loc)
	day := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, s.loc)
	return Event{
		Title:  fmt.Sprintf("%s (%s)", a.Title, c.Name),
		Notes:  constants.CalendarEventNotes,
		Start:  day,
		End:    day,
		AllDay: true,
		Alarm:  ReminderOffset,
	}
}
