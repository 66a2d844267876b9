package courses

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/syllabus-tracker/constants"
	"github.com/joseph-ayodele/syllabus-tracker/internal/common"
	"github.com/joseph-ayodele/syllabus-tracker/internal/entity"
	"github.com/joseph-ayodele/syllabus-tracker/internal/repository"
)

// Catalog handles saved course business logic.
type Catalog struct {
	repo   repository.CourseRepository
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

func NewCatalog(repo repository.CourseRepository, loc *time.Location, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Catalog{repo: repo, loc: loc, now: time.Now, logger: logger}
}

// CourseSummary is what a course card shows.
type CourseSummary struct {
	Course   *entity.Course     `json:"course"`
	Next     *entity.Assignment `json:"next,omitempty"`
	DueText  string             `json:"due_text,omitempty"`
	Urgency  Urgency            `json:"urgency,omitempty"`
	Progress Progress           `json:"progress"`
}

func (s *Catalog) ListCourses(ctx context.Context) ([]*entity.Course, error) {
	cs, err := s.repo.ListCourses(ctx)
	if err != nil {
		s.logger.Error("failed to list courses", "error", err)
		return nil, err
	}
	s.logger.Debug("courses listed", "count", len(cs))
	return cs, nil
}

// Summaries lists every course with its next assignment and due label.
func (s *Catalog) Summaries(ctx context.Context) ([]CourseSummary, error) {
	cs, err := s.ListCourses(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]CourseSummary, 0, len(cs))
	for _, c := range cs {
		sum := CourseSummary{Course: c, Progress: ProgressOf(c)}
		if next := NextAssignment(c, now, s.loc); next != nil {
			sum.Next = next
			sum.DueText = DueText(next.DueDate, now, s.loc)
			sum.Urgency = UrgencyOf(next.DueDate, now, s.loc)
		}
		out = append(out, sum)
	}
	return out, nil
}

func (s *Catalog) GetCourse(ctx context.Context, courseID string) (*entity.Course, error) {
	id, err := parseID("course_id", courseID)
	if err != nil {
		return nil, err
	}
	c, err := s.repo.GetCourse(ctx, id)
	if err != nil {
		s.logger.Error("failed to get course", "course_id", id, "error", err)
		return nil, err
	}
	return c, nil
}

func (s *Catalog) DeleteCourse(ctx context.Context, courseID string) error {
	id, err := parseID("course_id", courseID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteCourse(ctx, id); err != nil {
		s.logger.Error("failed to delete course", "course_id", id, "error", err)
		return err
	}
	s.logger.Info("course deleted", "course_id", id)
	return nil
}

// DeleteAll removes every course and assignment.
func (s *Catalog) DeleteAll(ctx context.Context) error {
	if err := s.repo.DeleteAll(ctx); err != nil {
		s.logger.Error("failed to delete all data", "error", err)
		return err
	}
	s.logger.Warn("all course data deleted")
	return nil
}

// AssignmentInput is the add/edit form for a saved assignment.
type AssignmentInput struct {
	Title  *string
	Date   *string // YYYY-MM-DD
	Hour   *int
	Minute *int
	Type   *string
}

func (in AssignmentInput) validate(requireAll bool) error {
	v := common.NewValidator()
	if requireAll || in.Title != nil {
		v.Field("title", in.Title, common.Required, common.MaxLength(200))
	}
	if requireAll {
		v.Field("date", in.Date, common.Required)
	}
	v.Field("date", in.Date, common.ISODate).
		Field("hour", in.Hour, common.Range(0, 23)).
		Field("minute", in.Minute, common.Range(0, 59))
	if in.Type != nil {
		if _, ok := constants.Canonicalize(*in.Type); !ok {
			v.Field("type", *in.Type, common.OneOf(constants.AssignmentTypes()...))
		}
	}
	return v.Error()
}

// AddAssignment appends an assignment to a saved course.
func (s *Catalog) AddAssignment(ctx context.Context, courseID string, in AssignmentInput) (*entity.Assignment, error) {
	id, err := parseID("course_id", courseID)
	if err != nil {
		return nil, err
	}
	if err := in.validate(true); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetCourse(ctx, id); err != nil {
		return nil, err
	}
	due, err := DueDate(*in.Date, deref(in.Hour), deref(in.Minute), s.loc)
	if err != nil {
		return nil, common.NewDateConversionError(*in.Title, err)
	}
	t := constants.Homework
	if in.Type != nil {
		t, _ = constants.Canonicalize(*in.Type)
	}
	a := &entity.Assignment{CourseID: id, Title: strings.TrimSpace(*in.Title), DueDate: due, Type: t}
	if err := s.repo.AddAssignment(ctx, a); err != nil {
		s.logger.Error("failed to add assignment", "course_id", id, "error", err)
		return nil, err
	}
	s.logger.Info("assignment added", "course_id", id, "assignment_id", a.ID)
	return a, nil
}

// EditAssignment changes the fields that are set. The time of day is kept
// when only the date changes, and vice versa.
func (s *Catalog) EditAssignment(ctx context.Context, assignmentID string, in AssignmentInput) (*entity.Assignment, error) {
	id, err := parseID("assignment_id", assignmentID)
	if err != nil {
		return nil, err
	}
	if err := in.validate(false); err != nil {
		return nil, err
	}
	a, err := s.repo.GetAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		a.Title = strings.TrimSpace(*in.Title)
	}
	if in.Type != nil {
		a.Type, _ = constants.Canonicalize(*in.Type)
	}
	if in.Date != nil || in.Hour != nil || in.Minute != nil {
		cur := a.DueDate.In(s.loc)
		date, hour, minute := cur.Format(constants.DateLayout), cur.Hour(), cur.Minute()
		if in.Date != nil {
			date = *in.Date
		}
		if in.Hour != nil {
			hour = *in.Hour
		}
		if in.Minute != nil {
			minute = *in.Minute
		}
		due, err := DueDate(date, hour, minute, s.loc)
		if err != nil {
			return nil, common.NewDateConversionError(a.Title, err)
		}
		a.DueDate = due
	}
	if err := s.repo.UpdateAssignment(ctx, a); err != nil {
		s.logger.Error("failed to update assignment", "assignment_id", id, "error", err)
		return nil, err
	}
	return a, nil
}

func (s *Catalog) SetCompleted(ctx context.Context, assignmentID string, completed bool) error {
	id, err := parseID("assignment_id", assignmentID)
	if err != nil {
		return err
	}
	if err := s.repo.SetCompleted(ctx, id, completed); err != nil {
		s.logger.Error("failed to set completion", "assignment_id", id, "error", err)
		return err
	}
	return nil
}

func (s *Catalog) DeleteAssignment(ctx context.Context, assignmentID string) error {
	id, err := parseID("assignment_id", assignmentID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteAssignment(ctx, id); err != nil {
		s.logger.Error("failed to delete assignment", "assignment_id", id, "error", err)
		return err
	}
	return nil
}

// DueItem is one row of the schedule view.
type DueItem struct {
	Assignment *entity.Assignment `json:"assignment"`
	CourseName string             `json:"course_name"`
	CourseCode string             `json:"course_code"`
	Color      string             `json:"color"`
}

// DueOn lists assignments due on day (in the catalog's location), by time.
func (s *Catalog) DueOn(ctx context.Context, day time.Time) ([]DueItem, error) {
	from := startOfDay(day, s.loc)
	to := from.AddDate(0, 0, 1)
	as, err := s.repo.ListDueBetween(ctx, from, to)
	if err != nil {
		s.logger.Error("failed to list due assignments", "day", from.Format(constants.DateLayout), "error", err)
		return nil, err
	}
	if len(as) == 0 {
		return []DueItem{}, nil
	}
	cs, err := s.repo.ListCourses(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*entity.Course, len(cs))
	for _, c := range cs {
		byID[c.ID] = c
	}
	out := make([]DueItem, 0, len(as))
	for _, a := range as {
		it := DueItem{Assignment: a}
		if c, ok := byID[a.CourseID]; ok {
			it.CourseName, it.CourseCode, it.Color = c.Name, c.Code, c.Color
		}
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Assignment.DueDate.Before(out[j].Assignment.DueDate) })
	return out, nil
}

func parseID(field, raw string) (uuid.UUID, error) {
	if err := common.NewValidator().Field(field, strings.TrimSpace(raw), common.Required, common.UUID).Error(); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	return uuid.MustParse(strings.TrimSpace(raw)), nil
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
