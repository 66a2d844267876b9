package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/syllabus-tracker/constants"
	"github.com/joseph-ayodele/syllabus-tracker/internal/common"
	"github.com/joseph-ayodele/syllabus-tracker/internal/entity"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	c, err := Open(ctx, Config{DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { Close(c, nil) })
	require.NoError(t, Migrate(ctx, c, nil))
	return c
}

func sampleCourse() *entity.Course {
	due := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	return &entity.Course{
		Name:  "Intro to AI",
		Code:  "CS 188",
		Icon:  constants.DefaultCourseIcon,
		Color: constants.DefaultCourseColor,
		Assignments: []*entity.Assignment{
			{Title: "Midterm", DueDate: due, Type: constants.Exam},
			{Title: "Problem Set 1", DueDate: due.AddDate(0, 0, -7), Type: constants.Homework},
		},
	}
}

func TestTables_DerivedFromSchema(t *testing.T) {
	require.Len(t, Tables, 3)
	assert.Equal(t, coursesTable, Tables[0].Name)
	assert.Equal(t, assignmentsTable, Tables[1].Name)
	assert.Equal(t, settingsTable, Tables[2].Name)

	a := Tables[1]
	require.Len(t, a.ForeignKeys, 1)
	fk := a.ForeignKeys[0]
	assert.Equal(t, coursesTable, fk.RefTable.Name)
	assert.Equal(t, "course_id", fk.Columns[0].Name)
	assert.EqualValues(t, "CASCADE", fk.OnDelete)
	assert.Len(t, a.Indexes, 2)

	ev := column(a, "calendar_event_id")
	require.NotNil(t, ev)
	assert.True(t, ev.Nullable)
}

func TestValidate_UsesSchemaValidators(t *testing.T) {
	assert.NoError(t, validate(assignmentsTable, map[string]string{"title": "Quiz 1", "type": "quiz"}))
	assert.Error(t, validate(assignmentsTable, map[string]string{"title": "", "type": "quiz"}))
	assert.Error(t, validate(assignmentsTable, map[string]string{"title": "Quiz 1", "type": "lecture"}))
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file:sylly.db?_pragma=foreign_keys(1)", sqliteDSN("sylly.db"))
	assert.Equal(t, "file:x?mode=memory&_pragma=foreign_keys(1)", sqliteDSN("file:x?mode=memory"))
	assert.Equal(t, "file:a.db?_pragma=foreign_keys(1)", sqliteDSN("file:a.db?_pragma=foreign_keys(1)"))
}

func TestCourseRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewCourseRepository(newTestClient(t), nil)

	c := sampleCourse()
	require.NoError(t, repo.CreateWithAssignments(ctx, c))
	require.NotEqual(t, uuid.Nil, c.ID)

	got, err := repo.GetCourse(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Intro to AI", got.Name)
	assert.Equal(t, "CS 188", got.Code)
	require.Len(t, got.Assignments, 2)
	// ordered by due date
	assert.Equal(t, "Problem Set 1", got.Assignments[0].Title)
	assert.Equal(t, constants.Exam, got.Assignments[1].Type)
	assert.True(t, got.Assignments[1].DueDate.Equal(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)))
	assert.Nil(t, got.Assignments[0].CalendarEventID)
	assert.False(t, got.Assignments[0].IsCompleted)
}

func TestCourseRepository_CreateRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	repo := NewCourseRepository(newTestClient(t), nil)

	c := sampleCourse()
	dup := uuid.New()
	c.Assignments[0].ID = dup
	c.Assignments[1].ID = dup

	require.Error(t, repo.CreateWithAssignments(ctx, c))

	_, err := repo.GetCourse(ctx, c.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	all, err := repo.ListCourses(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCourseRepository_RejectsInvalidType(t *testing.T) {
	ctx := context.Background()
	repo := NewCourseRepository(newTestClient(t), nil)

	c := sampleCourse()
	c.Assignments[0].Type = "lecture"
	err := repo.CreateWithAssignments(ctx, c)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestCourseRepository_DeleteCourseCascades(t *testing.T) {
	ctx := context.Background()
	repo := NewCourseRepository(newTestClient(t), nil)

	c := sampleCourse()
	require.NoError(t, repo.CreateWithAssignments(ctx, c))
	aid := c.Assignments[0].ID

	require.NoError(t, repo.DeleteCourse(ctx, c.ID))

	_, err := repo.GetAssignment(ctx, aid)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteCourse(ctx, c.ID), common.ErrNotFound)
}

func TestCourseRepository_AssignmentUpdates(t *testing.T) {
	ctx := context.Background()
	repo := NewCourseRepository(newTestClient(t), nil)

	c := sampleCourse()
	require.NoError(t, repo.CreateWithAssignments(ctx, c))
	a := c.Assignments[0]

	require.NoError(t, repo.SetCompleted(ctx, a.ID, true))
	require.NoError(t, repo.SetCalendarEventID(ctx, a.ID, "evt-1"))

	got, err := repo.GetAssignment(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)
	require.NotNil(t, got.CalendarEventID)
	assert.Equal(t, "evt-1", *got.CalendarEventID)
	assert.True(t, got.Exported())

	got.Title = "Midterm Exam"
	got.Type = constants.Quiz
	require.NoError(t, repo.UpdateAssignment(ctx, got))
	got, err = repo.GetAssignment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Midterm Exam", got.Title)
	assert.Equal(t, constants.Quiz, got.Type)

	extra := &entity.Assignment{CourseID: c.ID, Title: "Final Project", DueDate: a.DueDate.AddDate(0, 1, 0), Type: constants.Project}
	require.NoError(t, repo.AddAssignment(ctx, extra))
	course, err := repo.GetCourse(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, course.Assignments, 3)

	require.NoError(t, repo.DeleteAssignment(ctx, extra.ID))
	assert.ErrorIs(t, repo.DeleteAssignment(ctx, extra.ID), common.ErrNotFound)
	assert.ErrorIs(t, repo.SetCompleted(ctx, uuid.New(), true), common.ErrNotFound)
}

func TestCourseRepository_ListDueBetweenAndDeleteAll(t *testing.T) {
	ctx := context.Background()
	repo := NewCourseRepository(newTestClient(t), nil)

	c := sampleCourse()
	require.NoError(t, repo.CreateWithAssignments(ctx, c))

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	due, err := repo.ListDueBetween(ctx, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "Midterm", due[0].Title)

	require.NoError(t, repo.DeleteAll(ctx))
	all, err := repo.ListCourses(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSettingsRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSettingsRepository(newTestClient(t), nil)

	_, ok, err := repo.Get(ctx, SettingCalendarName)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Set(ctx, SettingCalendarName, "School"))
	require.NoError(t, repo.Set(ctx, SettingCalendarName, "Classes"))
	v, ok, err := repo.Get(ctx, SettingCalendarName)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Classes", v)

	require.NoError(t, repo.Delete(ctx, SettingCalendarName))
	_, ok, err = repo.Get(ctx, SettingCalendarName)
	require.NoError(t, err)
	assert.False(t, ok)
}
