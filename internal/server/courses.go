package server

import (
	"context"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/syllabus-tracker/constants"
	"github.com/joseph-ayodele/syllabus-tracker/internal/common"
	"github.com/joseph-ayodele/syllabus-tracker/internal/courses"
	"github.com/joseph-ayodele/syllabus-tracker/internal/entity"
)

// ListCourses lists every saved course as a card: next assignment, due
// text, urgency and progress.
func (s *SyllabusService) ListCourses(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	sums, err := s.catalog.Summaries(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	out := list(sums, func(sum courses.CourseSummary) any {
		m := map[string]any{
			"course":    encodeCourse(sum.Course, s.loc),
			"completed": sum.Progress.Completed,
			"total":     sum.Progress.Total,
		}
		if sum.Next != nil {
			m["next"] = encodeAssignment(sum.Next, s.loc)
			m["due_text"] = sum.DueText
			m["urgency"] = string(sum.Urgency)
		}
		return m
	})
	return respond(map[string]any{"courses": out})
}

// GetCourse returns a course with its assignments split into upcoming and
// completed, each sorted by due date.
func (s *SyllabusService) GetCourse(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	c, err := s.catalog.GetCourse(ctx, fieldsOf(in).str("course_id"))
	if err != nil {
		return nil, toStatus(err)
	}
	upcoming, completed := courses.Split(c.Assignments)
	p := courses.ProgressOf(c)
	enc := func(a *entity.Assignment) any { return encodeAssignment(a, s.loc) }
	return respond(map[string]any{
		"course":    encodeCourse(c, s.loc),
		"upcoming":  list(upcoming, enc),
		"completed": list(completed, enc),
		"progress":  map[string]any{"completed": p.Completed, "total": p.Total},
	})
}

func assignmentInput(req request) (courses.AssignmentInput, error) {
	var (
		in  courses.AssignmentInput
		err error
	)
	if in.Title, err = req.optStr("title"); err != nil {
		return in, err
	}
	if in.Date, err = req.optStr("date"); err != nil {
		return in, err
	}
	if in.Hour, err = req.optInt("hour"); err != nil {
		return in, err
	}
	if in.Minute, err = req.optInt("minute"); err != nil {
		return in, err
	}
	if in.Type, err = req.optStr("type"); err != nil {
		return in, err
	}
	return in, nil
}

func (s *SyllabusService) AddAssignment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := fieldsOf(in)
	form, err := assignmentInput(req)
	if err != nil {
		return nil, err
	}
	a, err := s.catalog.AddAssignment(ctx, req.str("course_id"), form)
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(map[string]any{"assignment": encodeAssignment(a, s.loc)})
}

func (s *SyllabusService) EditAssignment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := fieldsOf(in)
	form, err := assignmentInput(req)
	if err != nil {
		return nil, err
	}
	a, err := s.catalog.EditAssignment(ctx, req.str("assignment_id"), form)
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(map[string]any{"assignment": encodeAssignment(a, s.loc)})
}

func (s *SyllabusService) SetAssignmentCompleted(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := fieldsOf(in)
	if err := s.catalog.SetCompleted(ctx, req.str("assignment_id"), req.boolean("completed")); err != nil {
		return nil, toStatus(err)
	}
	return respond(map[string]any{"ok": true})
}

func (s *SyllabusService) DeleteAssignment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.catalog.DeleteAssignment(ctx, fieldsOf(in).str("assignment_id")); err != nil {
		return nil, toStatus(err)
	}
	return respond(map[string]any{"ok": true})
}

// DeleteCourse removes one course, or every course with {all: true}.
func (s *SyllabusService) DeleteCourse(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := fieldsOf(in)
	var err error
	if req.boolean("all") {
		err = s.catalog.DeleteAll(ctx)
	} else {
		err = s.catalog.DeleteCourse(ctx, req.str("course_id"))
	}
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(map[string]any{"ok": true})
}

// DueOn lists what is due on {date: YYYY-MM-DD}, today when omitted.
func (s *SyllabusService) DueOn(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	day := time.Now().In(s.loc)
	if raw := fieldsOf(in).str("date"); raw != "" {
		d, err := time.ParseInLocation(constants.DateLayout, raw, s.loc)
		if err != nil {
			return nil, common.InvalidArgumentErrorf("date must be YYYY-MM-DD")
		}
		day = d
	}
	items, err := s.catalog.DueOn(ctx, day)
	if err != nil {
		return nil, toStatus(err)
	}
	out := list(items, func(it courses.DueItem) any {
		return map[string]any{
			"assignment":  encodeAssignment(it.Assignment, s.loc),
			"course_name": it.CourseName,
			"course_code": it.CourseCode,
			"color":       it.Color,
		}
	})
	return respond(map[string]any{"date": day.Format(constants.DateLayout), "items": out})
}
