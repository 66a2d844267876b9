package export

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/syllabus-tracker/constants"
	"github.com/joseph-ayodele/syllabus-tracker/internal/entity"
	"github.com/joseph-ayodele/syllabus-tracker/internal/repository"
)

func seed(t *testing.T) (repository.CourseRepository, *entity.Course) {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{DSN: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { repository.Close(db, nil) })
	require.NoError(t, repository.Migrate(ctx, db, nil))
	repo := repository.NewCourseRepository(db, nil)

	evt := "evt-1"
	ai := &entity.Course{Name: "Intro to AI", Code: "CAP 4630", Icon: constants.DefaultCourseIcon, Color: constants.DefaultCourseColor,
		Assignments: []*entity.Assignment{
			{Title: "Final Project", DueDate: time.Date(2026, 3, 15, 23, 59, 0, 0, time.UTC), Type: constants.Project},
			{Title: "Midterm", DueDate: time.Date(2026, 2, 12, 9, 30, 0, 0, time.UTC), Type: constants.Exam, IsCompleted: true, CalendarEventID: &evt},
		}}
	bio := &entity.Course{Name: "Biology", Code: "BSC 2010", Icon: constants.DefaultCourseIcon, Color: constants.DefaultCourseColor,
		Assignments: []*entity.Assignment{
			{Title: "Lab 1", DueDate: time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC), Type: constants.Homework},
		}}
	require.NoError(t, repo.CreateWithAssignments(ctx, ai))
	require.NoError(t, repo.CreateWithAssignments(ctx, bio))
	return repo, ai
}

func readRows(t *testing.T, b []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func TestExportScheduleXLSX_AllCourses(t *testing.T) {
	repo, _ := seed(t)
	svc := NewService(repo, time.UTC, nil)

	b, err := svc.ExportScheduleXLSX(context.Background(), nil, nil, nil)
	require.NoError(t, err)
	rows := readRows(t, b)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Due Date", "Time", "Course", "Code", "Assignment", "Type", "Status", "In Calendar"}, rows[0])
	assert.Equal(t, []string{"2026-02-12", "09:30", "Intro to AI", "CAP 4630", "Midterm", "Exam", "Done", "Yes"}, rows[1])
	assert.Equal(t, "Lab 1", rows[2][4])
	assert.Equal(t, "HW", rows[2][5])
	assert.Equal(t, "Final Project", rows[3][4])
}

func TestExportScheduleXLSX_CourseAndWindow(t *testing.T) {
	repo, ai := seed(t)
	svc := NewService(repo, time.UTC, nil)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	b, err := svc.ExportScheduleXLSX(context.Background(), &ai.ID, &from, nil)
	require.NoError(t, err)
	rows := readRows(t, b)
	require.Len(t, rows, 2)
	assert.Equal(t, "Final Project", rows[1][4])

	to := time.Date(2026, 2, 12, 0, 0, 0, 0, time.UTC)
	b, err = svc.ExportScheduleXLSX(context.Background(), nil, nil, &to)
	require.NoError(t, err)
	assert.Len(t, readRows(t, b), 2)

	missing := uuid.New()
	_, err = svc.ExportScheduleXLSX(context.Background(), &missing, nil, nil)
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
}
