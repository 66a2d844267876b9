package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/syllabus-tracker/constants"
	"github.com/joseph-ayodele/syllabus-tracker/internal/common"
	"github.com/joseph-ayodele/syllabus-tracker/internal/entity"
)

var (
	courseColumns     = []string{"id", "name", "code", "icon", "color", "created_at"}
	assignmentColumns = []string{"id", "course_id", "title", "due_date", "type", "is_completed", "calendar_event_id"}
)

type CourseRepository interface {
	// CreateWithAssignments inserts the course and all of its assignments in
	// one transaction. Nothing is written if any insert fails.
	CreateWithAssignments(ctx context.Context, c *entity.Course) error
	ListCourses(ctx context.Context) ([]*entity.Course, error)
	GetCourse(ctx context.Context, id uuid.UUID) (*entity.Course, error)
	DeleteCourse(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context) error

	AddAssignment(ctx context.Context, a *entity.Assignment) error
	GetAssignment(ctx context.Context, id uuid.UUID) (*entity.Assignment, error)
	UpdateAssignment(ctx context.Context, a *entity.Assignment) error
	SetCompleted(ctx context.Context, id uuid.UUID, completed bool) error
	SetCalendarEventID(ctx context.Context, id uuid.UUID, eventID string) error
	DeleteAssignment(ctx context.Context, id uuid.UUID) error
	ListDueBetween(ctx context.Context, from, to time.Time) ([]*entity.Assignment, error)
}

type courseRepository struct {
	client *Client
	logger *slog.Logger
}

func NewCourseRepository(client *Client, logger *slog.Logger) CourseRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &courseRepository{
		client: client,
		logger: logger,
	}
}

func (r *courseRepository) CreateWithAssignments(ctx context.Context, c *entity.Course) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if err := validate(coursesTable, map[string]string{"name": c.Name}); err != nil {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	for _, a := range c.Assignments {
		if err := validate(assignmentsTable, map[string]string{"title": a.Title, "type": string(a.Type)}); err != nil {
			return fmt.Errorf("%w: %v", common.ErrValidation, err)
		}
	}

	tx, err := r.client.Driver.Tx(ctx)
	if err != nil {
		r.logger.Error("failed to begin transaction", "error", err)
		return err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Error("failed to rollback course insert", "course_id", c.ID, "error", rbErr)
			}
		}
	}()

	q, args := r.client.builder().Insert(coursesTable).
		Columns(courseColumns...).
		Values(c.ID, c.Name, c.Code, c.Icon, c.Color, c.CreatedAt.UTC()).
		Query()
	if err = tx.Exec(ctx, q, args, nil); err != nil {
		r.logger.Error("failed to insert course", "course_id", c.ID, "error", err)
		return err
	}

	for _, a := range c.Assignments {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		a.CourseID = c.ID
		if err = r.insertAssignment(ctx, tx, a); err != nil {
			r.logger.Error("failed to insert assignment", "course_id", c.ID, "title", a.Title, "error", err)
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		r.logger.Error("failed to commit course insert", "course_id", c.ID, "error", err)
		return err
	}
	r.logger.Info("course created", "course_id", c.ID, "assignments", len(c.Assignments))
	return nil
}

func (r *courseRepository) insertAssignment(ctx context.Context, ex dialect.ExecQuerier, a *entity.Assignment) error {
	q, args := r.client.builder().Insert(assignmentsTable).
		Columns(assignmentColumns...).
		Values(a.ID, a.CourseID, a.Title, a.DueDate.UTC(), string(a.Type), a.IsCompleted, nullString(a.CalendarEventID)).
		Query()
	return ex.Exec(ctx, q, args, nil)
}

func (r *courseRepository) ListCourses(ctx context.Context) ([]*entity.Course, error) {
	q, args := r.client.builder().Select(courseColumns...).
		From(entsql.Table(coursesTable)).
		OrderBy(entsql.Desc("created_at")).
		Query()
	courses, err := r.queryCourses(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to list courses", "error", err)
		return nil, err
	}
	if len(courses) == 0 {
		return courses, nil
	}

	ids := make([]any, len(courses))
	byID := make(map[uuid.UUID]*entity.Course, len(courses))
	for i, c := range courses {
		ids[i] = c.ID
		byID[c.ID] = c
	}
	q, args = r.client.builder().Select(assignmentColumns...).
		From(entsql.Table(assignmentsTable)).
		Where(entsql.In("course_id", ids...)).
		OrderBy("due_date", "title").
		Query()
	assignments, err := r.queryAssignments(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to list assignments", "error", err)
		return nil, err
	}
	for _, a := range assignments {
		if c, ok := byID[a.CourseID]; ok {
			c.Assignments = append(c.Assignments, a)
		}
	}
	return courses, nil
}

func (r *courseRepository) GetCourse(ctx context.Context, id uuid.UUID) (*entity.Course, error) {
	q, args := r.client.builder().Select(courseColumns...).
		From(entsql.Table(coursesTable)).
		Where(entsql.EQ("id", id)).
		Query()
	courses, err := r.queryCourses(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to get course", "course_id", id, "error", err)
		return nil, err
	}
	if len(courses) == 0 {
		return nil, fmt.Errorf("course %s: %w", id, common.ErrNotFound)
	}
	c := courses[0]

	q, args = r.client.builder().Select(assignmentColumns...).
		From(entsql.Table(assignmentsTable)).
		Where(entsql.EQ("course_id", id)).
		OrderBy("due_date", "title").
		Query()
	c.Assignments, err = r.queryAssignments(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to list course assignments", "course_id", id, "error", err)
		return nil, err
	}
	return c, nil
}

func (r *courseRepository) DeleteCourse(ctx context.Context, id uuid.UUID) error {
	q, args := r.client.builder().Delete(coursesTable).Where(entsql.EQ("id", id)).Query()
	if err := r.execOne(ctx, q, args); err != nil {
		r.logger.Error("failed to delete course", "course_id", id, "error", err)
		return err
	}
	r.logger.Info("course deleted", "course_id", id)
	return nil
}

func (r *courseRepository) DeleteAll(ctx context.Context) error {
	for _, table := range []string{assignmentsTable, coursesTable} {
		q, args := r.client.builder().Delete(table).Query()
		if err := r.client.Driver.Exec(ctx, q, args, nil); err != nil {
			r.logger.Error("failed to clear table", "table", table, "error", err)
			return err
		}
	}
	r.logger.Info("all courses deleted")
	return nil
}

func (r *courseRepository) AddAssignment(ctx context.Context, a *entity.Assignment) error {
	if err := validate(assignmentsTable, map[string]string{"title": a.Title, "type": string(a.Type)}); err != nil {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if err := r.insertAssignment(ctx, r.client.Driver, a); err != nil {
		r.logger.Error("failed to add assignment", "course_id", a.CourseID, "error", err)
		return err
	}
	return nil
}

func (r *courseRepository) GetAssignment(ctx context.Context, id uuid.UUID) (*entity.Assignment, error) {
	q, args := r.client.builder().Select(assignmentColumns...).
		From(entsql.Table(assignmentsTable)).
		Where(entsql.EQ("id", id)).
		Query()
	as, err := r.queryAssignments(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to get assignment", "assignment_id", id, "error", err)
		return nil, err
	}
	if len(as) == 0 {
		return nil, fmt.Errorf("assignment %s: %w", id, common.ErrNotFound)
	}
	return as[0], nil
}

func (r *courseRepository) UpdateAssignment(ctx context.Context, a *entity.Assignment) error {
	if err := validate(assignmentsTable, map[string]string{"title": a.Title, "type": string(a.Type)}); err != nil {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	q, args := r.client.builder().Update(assignmentsTable).
		Set("title", a.Title).
		Set("due_date", a.DueDate.UTC()).
		Set("type", string(a.Type)).
		Set("is_completed", a.IsCompleted).
		Where(entsql.EQ("id", a.ID)).
		Query()
	if err := r.execOne(ctx, q, args); err != nil {
		r.logger.Error("failed to update assignment", "assignment_id", a.ID, "error", err)
		return err
	}
	return nil
}

func (r *courseRepository) SetCompleted(ctx context.Context, id uuid.UUID, completed bool) error {
	q, args := r.client.builder().Update(assignmentsTable).
		Set("is_completed", completed).
		Where(entsql.EQ("id", id)).
		Query()
	if err := r.execOne(ctx, q, args); err != nil {
		r.logger.Error("failed to set completion", "assignment_id", id, "error", err)
		return err
	}
	return nil
}

func (r *courseRepository) SetCalendarEventID(ctx context.Context, id uuid.UUID, eventID string) error {
	q, args := r.client.builder().Update(assignmentsTable).
		Set("calendar_event_id", eventID).
		Where(entsql.EQ("id", id)).
		Query()
	if err := r.execOne(ctx, q, args); err != nil {
		r.logger.Error("failed to store calendar event id", "assignment_id", id, "error", err)
		return err
	}
	return nil
}

func (r *courseRepository) DeleteAssignment(ctx context.Context, id uuid.UUID) error {
	q, args := r.client.builder().Delete(assignmentsTable).Where(entsql.EQ("id", id)).Query()
	if err := r.execOne(ctx, q, args); err != nil {
		r.logger.Error("failed to delete assignment", "assignment_id", id, "error", err)
		return err
	}
	return nil
}

// ListDueBetween returns assignments due in [from, to), ordered by due date.
func (r *courseRepository) ListDueBetween(ctx context.Context, from, to time.Time) ([]*entity.Assignment, error) {
	q, args := r.client.builder().Select(assignmentColumns...).
		From(entsql.Table(assignmentsTable)).
		Where(entsql.And(
			entsql.GTE("due_date", from.UTC()),
			entsql.LT("due_date", to.UTC()),
		)).
		OrderBy("due_date", "title").
		Query()
	as, err := r.queryAssignments(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to list due assignments", "from", from, "to", to, "error", err)
		return nil, err
	}
	return as, nil
}

// execOne runs a write that must touch exactly one row.
func (r *courseRepository) execOne(ctx context.Context, q string, args []any) error {
	var res sql.Result
	if err := r.client.Driver.Exec(ctx, q, args, &res); err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *courseRepository) queryCourses(ctx context.Context, q string, args []any) ([]*entity.Course, error) {
	rows := &entsql.Rows{}
	if err := r.client.Driver.Query(ctx, q, args, rows); err != nil {
		return nil, err
	}
	defer func(rows *entsql.Rows) {
		if err := rows.Close(); err != nil {
			r.logger.Warn("failed to close rows", "error", err)
		}
	}(rows)

	var out []*entity.Course
	for rows.Next() {
		c := &entity.Course{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.Icon, &c.Color, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *courseRepository) queryAssignments(ctx context.Context, q string, args []any) ([]*entity.Assignment, error) {
	rows := &entsql.Rows{}
	if err := r.client.Driver.Query(ctx, q, args, rows); err != nil {
		return nil, err
	}
	defer func(rows *entsql.Rows) {
		if err := rows.Close(); err != nil {
			r.logger.Warn("failed to close rows", "error", err)
		}
	}(rows)

	var out []*entity.Assignment
	for rows.Next() {
		var (
			a       entity.Assignment
			typ     string
			eventID sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.CourseID, &a.Title, &a.DueDate, &typ, &a.IsCompleted, &eventID); err != nil {
			return nil, err
		}
		a.Type = constants.AssignmentType(typ)
		if eventID.Valid {
			id := eventID.String
			a.CalendarEventID = &id
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}
