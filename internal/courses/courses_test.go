package courses

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/syllabus-tracker/constants"
	"github.com/joseph-ayodele/syllabus-tracker/internal/common"
	"github.com/joseph-ayodele/syllabus-tracker/internal/entity"
	"github.com/joseph-ayodele/syllabus-tracker/internal/llm"
	"github.com/joseph-ayodele/syllabus-tracker/internal/repository"
	"github.com/joseph-ayodele/syllabus-tracker/internal/staging"
)

func newRepo(t *testing.T) repository.CourseRepository {
	t.Helper()
	ctx := context.Background()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	c, err := repository.Open(ctx, repository.Config{DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { repository.Close(c, nil) })
	require.NoError(t, repository.Migrate(ctx, c, nil))
	return repository.NewCourseRepository(c, nil)
}

func reviewed(as ...llm.ParsedAssignment) staging.Staging {
	return staging.New(llm.ParsedSyllabus{CourseName: "Intro to AI", CourseCode: "CAP 4630", Assignments: as})
}

var now = time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)

// 3 parsed, one deselected: 2 saved.
func TestCommit_SavesSelectedRows(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	g := NewGateway(repo, time.UTC, nil)

	s := reviewed(
		llm.ParsedAssignment{Title: "Midterm", Date: "2026-02-12", Type: "exam"},
		llm.ParsedAssignment{Title: "PS 3", Date: "2026-02-18", Type: "homework"},
		llm.ParsedAssignment{Title: "Final Project", Date: "2026-03-15", Type: "project"},
	)
	s, err := s.Apply(staging.Toggle{ID: s.Items[1].ID}, now)
	require.NoError(t, err)

	res, err := g.Commit(ctx, s.Course, s.Selected())
	require.NoError(t, err)
	assert.Equal(t, Success, res.Outcome)
	assert.Equal(t, 2, res.SavedCount)
	assert.Empty(t, res.FailedTitles)

	got, err := repo.GetCourse(ctx, res.Course.ID)
	require.NoError(t, err)
	require.Len(t, got.Assignments, 2)
	assert.Equal(t, "Midterm", got.Assignments[0].Title)
	assert.Equal(t, constants.Project, got.Assignments[1].Type)
	assert.Equal(t, constants.DefaultCourseIcon, got.Icon)
}

func TestCommit_PartialFailure(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	g := NewGateway(repo, time.UTC, nil)

	s := reviewed(
		llm.ParsedAssignment{Title: "Midterm", Date: "2026-02-12", Type: "exam"},
		llm.ParsedAssignment{Title: "Lab Report", Date: "TBD", Type: "homework"},
	)
	res, err := g.Commit(ctx, s.Course, s.Selected())
	require.NoError(t, err)
	assert.Equal(t, PartialFailure, res.Outcome)
	assert.Equal(t, 1, res.SavedCount)
	assert.Equal(t, []string{"Lab Report"}, res.FailedTitles)

	got, err := repo.GetCourse(ctx, res.Course.ID)
	require.NoError(t, err)
	assert.Len(t, got.Assignments, 1)
}

func TestCommit_TotalFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	g := NewGateway(repo, time.UTC, nil)

	s := reviewed(
		llm.ParsedAssignment{Title: "Essay", Date: "TBD"},
		llm.ParsedAssignment{Title: "Quiz", Date: "2026-13-45"},
	)
	res, err := g.Commit(ctx, s.Course, s.Selected())
	require.NoError(t, err)
	assert.Equal(t, TotalFailure, res.Outcome)
	assert.Zero(t, res.SavedCount)
	assert.Nil(t, res.Course)
	assert.Equal(t, []string{"Essay", "Quiz"}, res.FailedTitles)

	all, err := repo.ListCourses(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCommit_NothingSelected(t *testing.T) {
	g := NewGateway(newRepo(t), time.UTC, nil)
	_, err := g.Commit(context.Background(), staging.CourseInfo{Name: "X"}, nil)
	assert.ErrorIs(t, err, ErrNothingSelected)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

type failingRepo struct {
	repository.CourseRepository
}

func (failingRepo) CreateWithAssignments(context.Context, *entity.Course) error {
	return errors.New("disk full")
}

func TestCommit_StorageFailureIsPersistenceError(t *testing.T) {
	g := NewGateway(failingRepo{}, time.UTC, nil)
	s := reviewed(llm.ParsedAssignment{Title: "Midterm", Date: "2026-02-12", Type: "exam"})
	_, err := g.Commit(context.Background(), s.Course, s.Selected())
	require.Error(t, err)
	assert.True(t, common.HasCode(err, common.CodePersistence))
}

func TestCommit_DateRoundTrip(t *testing.T) {
	ctx := context.Background()
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	cases := []struct {
		name         string
		date         string
		hour, minute int
		loc          *time.Location
	}{
		{"fixed zone late", "2026-02-12", 23, 59, time.FixedZone("EST", -5*3600)},
		{"leap day", "2028-02-29", 9, 0, time.UTC},
		{"year end", "2026-12-31", 23, 59, newYork},
		{"new year", "2027-01-01", 0, 0, newYork},
		{"spring forward", "2026-03-08", 0, 0, newYork},
		{"spring forward evening", "2026-03-08", 23, 59, newYork},
		{"fall back", "2026-11-01", 1, 30, newYork},
		{"east of utc", "2026-06-30", 0, 0, time.FixedZone("AEST", 10*3600)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newRepo(t)
			g := NewGateway(repo, tc.loc, nil)

			s := reviewed(llm.ParsedAssignment{Title: "Midterm", Date: tc.date, Type: "exam"})
			s, err := s.Apply(staging.EditItem{ID: s.Items[0].ID, Hour: intp(tc.hour), Minute: intp(tc.minute)}, now)
			require.NoError(t, err)
			res, err := g.Commit(ctx, s.Course, s.Selected())
			require.NoError(t, err)
			require.Equal(t, Success, res.Outcome)

			got, err := repo.GetCourse(ctx, res.Course.ID)
			require.NoError(t, err)
			due := got.Assignments[0].DueDate.In(tc.loc)
			assert.Equal(t, tc.date, due.Format(constants.DateLayout))
			assert.Equal(t, tc.hour, due.Hour())
			assert.Equal(t, tc.minute, due.Minute())
		})
	}

	t.Run("impossible date", func(t *testing.T) {
		repo := newRepo(t)
		g := NewGateway(repo, time.UTC, nil)
		s := reviewed(llm.ParsedAssignment{Title: "Midterm", Date: "2026-02-30", Type: "exam"})
		res, err := g.Commit(ctx, s.Course, s.Selected())
		require.NoError(t, err)
		assert.Equal(t, TotalFailure, res.Outcome)
		assert.Equal(t, []string{"Midterm"}, res.FailedTitles)
		assert.Zero(t, res.SavedCount)
	})
}

func intp(i int) *int       { return &i }
func strp(s string) *string { return &s }

func TestDueDate(t *testing.T) {
	d, err := DueDate("2026-03-01", 14, 30, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC), d)

	_, err = DueDate("March 1", 0, 0, time.UTC)
	assert.Error(t, err)
	_, err = DueDate("2026-03-01", 25, 0, time.UTC)
	assert.Error(t, err)
}

func TestDueTextAndUrgency(t *testing.T) {
	today := time.Date(2026, 2, 11, 17, 0, 0, 0, time.UTC)
	cases := []struct {
		days    int
		text    string
		urgency Urgency
	}{
		{0, "Due today", Urgent},
		{1, "in 1 day", Urgent},
		{2, "in 2 days", Urgent},
		{3, "in 3 days", Warning},
		{6, "in 6 days", Warning},
		{7, "in 1 week", Warning},
		{8, "in 1 week", Neutral},
		{13, "in 1 week", Neutral},
		{14, "in 2 weeks", Neutral},
		{104, "in 14 weeks", Neutral},
		{105, "May 27", Neutral},
		{-3, "Feb 8", Urgent},
	}
	for _, c := range cases {
		// midnight due dates must not lose a day to the time of day
		due := time.Date(2026, 2, 11+c.days, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, c.text, DueText(due, today, time.UTC), "days=%d", c.days)
		assert.Equal(t, c.urgency, UrgencyOf(due, today, time.UTC), "days=%d", c.days)
	}
}

func TestNextAssignmentSplitAndProgress(t *testing.T) {
	today := time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)
	c := &entity.Course{Assignments: []*entity.Assignment{
		{Title: "past", DueDate: today.AddDate(0, 0, -1)},
		{Title: "later", DueDate: today.AddDate(0, 0, 5)},
		{Title: "done", DueDate: today.AddDate(0, 0, 1), IsCompleted: true},
		{Title: "this morning", DueDate: time.Date(2026, 2, 11, 8, 0, 0, 0, time.UTC)},
	}}
	next := NextAssignment(c, today, time.UTC)
	require.NotNil(t, next)
	assert.Equal(t, "this morning", next.Title)

	up, done := Split(c.Assignments)
	require.Len(t, up, 3)
	assert.Equal(t, "past", up[0].Title)
	require.Len(t, done, 1)
	assert.Equal(t, Progress{Completed: 1, Total: 4}, ProgressOf(c))

	assert.Nil(t, NextAssignment(&entity.Course{}, today, time.UTC))
}

func TestCatalog(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	g := NewGateway(repo, time.UTC, nil)
	cat := NewCatalog(repo, time.UTC, nil)
	cat.now = func() time.Time { return time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC) }

	s := reviewed(
		llm.ParsedAssignment{Title: "Midterm", Date: "2026-02-12", Type: "exam"},
		llm.ParsedAssignment{Title: "Quiz 1", Date: "2026-02-10", Type: "quiz"},
	)
	res, err := g.Commit(ctx, s.Course, s.Selected())
	require.NoError(t, err)
	cid := res.Course.ID.String()

	sums, err := cat.Summaries(ctx)
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, "Quiz 1", sums[0].Next.Title)
	assert.Equal(t, "Due today", sums[0].DueText)
	assert.Equal(t, Urgent, sums[0].Urgency)

	a, err := cat.AddAssignment(ctx, cid, AssignmentInput{Title: strp("Essay"), Date: strp("2026-02-10"), Hour: intp(17)})
	require.NoError(t, err)
	assert.Equal(t, constants.Homework, a.Type)

	_, err = cat.AddAssignment(ctx, cid, AssignmentInput{Title: strp(" "), Date: strp("2026-02-10")})
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = cat.AddAssignment(ctx, uuid.NewString(), AssignmentInput{Title: strp("x"), Date: strp("2026-02-10")})
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = cat.GetCourse(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	edited, err := cat.EditAssignment(ctx, a.ID.String(), AssignmentInput{Date: strp("2026-02-11"), Type: strp("Project")})
	require.NoError(t, err)
	assert.Equal(t, 17, edited.DueDate.Hour())
	assert.Equal(t, 11, edited.DueDate.Day())
	assert.Equal(t, constants.Project, edited.Type)

	due, err := cat.DueOn(ctx, time.Date(2026, 2, 10, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "Quiz 1", due[0].Assignment.Title)
	assert.Equal(t, "CAP 4630", due[0].CourseCode)

	require.NoError(t, cat.SetCompleted(ctx, due[0].Assignment.ID.String(), true))
	sums, err = cat.Summaries(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Essay", sums[0].Next.Title)
	assert.Equal(t, "in 1 day", sums[0].DueText)

	require.NoError(t, cat.DeleteAssignment(ctx, a.ID.String()))
	assert.ErrorIs(t, cat.DeleteAssignment(ctx, a.ID.String()), common.ErrNotFound)

	require.NoError(t, cat.DeleteCourse(ctx, cid))
	cs, err := cat.ListCourses(ctx)
	require.NoError(t, err)
	assert.Empty(t, cs)

	empty, err := cat.DueOn(ctx, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, empty)
	require.NoError(t, cat.DeleteAll(ctx))
}
