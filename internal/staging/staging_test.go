package staging

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/syllabus-tracker/constants"
	"github.com/joseph-ayodele/syllabus-tracker/internal/common"
	"github.com/joseph-ayodele/syllabus-tracker/internal/llm"
)

var now = time.Date(2026, 2, 2, 10, 30, 0, 0, time.UTC)

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

func parsed() llm.ParsedSyllabus {
	return llm.ParsedSyllabus{
		CourseName: "Intro to AI",
		CourseCode: "CAP 4630",
		Assignments: []llm.ParsedAssignment{
			{Title: "Midterm Exam", Date: "2026-02-12", Type: "exam"},
			{Title: "Problem Set 3", Date: "2026-02-18", Type: "homework"},
			{Title: "Final Project", Date: "2026-03-15", Type: "project"},
		},
	}
}

func TestNew_AllSelectedInOrder(t *testing.T) {
	s := New(parsed())
	require.Len(t, s.Items, 3)
	assert.Equal(t, 3, s.SelectedCount())
	assert.Equal(t, "Midterm Exam", s.Items[0].Title)
	assert.Equal(t, constants.Exam, s.Items[0].Type)
	assert.Equal(t, "Exam", s.Items[0].TypeLabel())
	assert.Equal(t, "a1", s.Items[0].ID)
	assert.Equal(t, "a3", s.Items[2].ID)
	assert.Equal(t, constants.DefaultCourseIcon, s.Course.Icon)
	assert.Equal(t, constants.DefaultCourseColor, s.Course.Color)
	assert.False(t, s.IsEmpty())
}

func TestNew_EmptySyllabusIsValid(t *testing.T) {
	s := New(llm.ParsedSyllabus{})
	assert.True(t, s.IsEmpty())
	assert.Zero(t, s.SelectedCount())
	assert.Equal(t, constants.DefaultCourseName, s.Course.Name)
	assert.Equal(t, constants.MissingCourseCode, s.Course.Code)

	s, err := s.Apply(Add{Title: "Essay"}, now)
	require.NoError(t, err)
	assert.Equal(t, 1, s.SelectedCount())
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	before := New(parsed())
	after, err := before.Apply(Toggle{ID: "a2"}, now)
	require.NoError(t, err)
	assert.True(t, before.Items[1].Selected)
	assert.False(t, after.Items[1].Selected)
	assert.Equal(t, 2, after.SelectedCount())
}

func TestToggleAndDelete(t *testing.T) {
	s := New(parsed())
	s, err := s.Apply(Toggle{ID: "a1"}, now)
	require.NoError(t, err)
	s, err = s.Apply(Toggle{ID: "a1"}, now)
	require.NoError(t, err)
	assert.True(t, s.Items[0].Selected)

	// parsed rows are only deselected
	s, err = s.Apply(Delete{ID: "a1"}, now)
	require.NoError(t, err)
	require.Len(t, s.Items, 3)
	assert.False(t, s.Items[0].Selected)

	// manual rows are removed
	s, err = s.Apply(Add{Title: "Quiz 4", Date: "2026-04-01", Type: "Quiz"}, now)
	require.NoError(t, err)
	require.Len(t, s.Items, 4)
	id := s.Items[3].ID
	s, err = s.Apply(Delete{ID: id}, now)
	require.NoError(t, err)
	assert.Len(t, s.Items, 3)

	_, err = s.Apply(Toggle{ID: "nope"}, now)
	assert.ErrorIs(t, err, ErrUnknownItem)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestAdd_Defaults(t *testing.T) {
	s := New(parsed())
	s, err := s.Apply(Add{Title: "  Reading response  "}, now)
	require.NoError(t, err)
	it := s.Items[len(s.Items)-1]
	assert.Equal(t, "Reading response", it.Title)
	assert.Equal(t, "2026-02-02", it.Date)
	assert.Equal(t, constants.Homework, it.Type)
	assert.True(t, it.Selected)
	assert.True(t, it.Manual)
	assert.Equal(t, "a4", it.ID)

	_, err = s.Apply(Add{Title: "   "}, now)
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = s.Apply(Add{Title: "x", Date: "02/10/2026"}, now)
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = s.Apply(Add{Title: "x", Type: "lecture"}, now)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestEditItem(t *testing.T) {
	s := New(parsed())
	s, err := s.Apply(EditItem{ID: "a2", Title: strp("Problem Set 3 (revised)"), Date: strp("2026-02-20"), Hour: intp(23), Minute: intp(59), Type: strp("HW")}, now)
	require.NoError(t, err)
	it, ok := s.Item("a2")
	require.True(t, ok)
	assert.Equal(t, "Problem Set 3 (revised)", it.Title)
	assert.Equal(t, "2026-02-20", it.Date)
	assert.Equal(t, 23, it.Hour)
	assert.Equal(t, 59, it.Minute)
	assert.Equal(t, constants.Homework, it.Type)

	// unset fields are left alone
	s, err = s.Apply(EditItem{ID: "a2", Type: strp("project")}, now)
	require.NoError(t, err)
	it, _ = s.Item("a2")
	assert.Equal(t, "2026-02-20", it.Date)
	assert.Equal(t, constants.Project, it.Type)

	_, err = s.Apply(EditItem{ID: "a2", Hour: intp(24)}, now)
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = s.Apply(EditItem{ID: "a2", Title: strp("")}, now)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestEditCourse(t *testing.T) {
	s := New(parsed())
	s, err := s.Apply(EditCourse{Name: strp("Artificial Intelligence"), Code: strp(""), Color: strp("Teal")}, now)
	require.NoError(t, err)
	assert.Equal(t, "Artificial Intelligence", s.Course.Name)
	assert.Equal(t, constants.MissingCourseCode, s.Course.Code)
	assert.Equal(t, "Teal", s.Course.Color)
	assert.Equal(t, constants.DefaultCourseIcon, s.Course.Icon)

	_, err = s.Apply(EditCourse{Name: strp(" ")}, now)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestSelectedAndJSON(t *testing.T) {
	s := New(parsed())
	s, err := s.Apply(Toggle{ID: "a1"}, now)
	require.NoError(t, err)
	sel := s.Selected()
	require.Len(t, sel, 2)
	assert.Equal(t, "a2", sel[0].ID)

	b, err := json.Marshal(s)
	require.NoError(t, err)
	var back Staging
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, s, back)
}

func TestApply_NilCommand(t *testing.T) {
	_, err := New(parsed()).Apply(nil, now)
	assert.ErrorIs(t, err, ErrUnknownCommand)
}
