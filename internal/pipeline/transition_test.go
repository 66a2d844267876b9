package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/syllabus-tracker/internal/capture"
	"github.com/joseph-ayodele/syllabus-tracker/internal/common"
	"github.com/joseph-ayodele/syllabus-tracker/internal/courses"
	"github.com/joseph-ayodele/syllabus-tracker/internal/entity"
	"github.com/joseph-ayodele/syllabus-tracker/internal/llm"
	"github.com/joseph-ayodele/syllabus-tracker/internal/staging"
)

var pages = capture.FromPaths([]string{"p1.jpg", "p2.jpg"})

func syllabus() llm.ParsedSyllabus {
	return llm.ParsedSyllabus{
		CourseName: "Intro to AI",
		CourseCode: "CAP 4630",
		Assignments: []llm.ParsedAssignment{
			{Title: "Midterm", Date: "2026-02-12", Type: "exam"},
			{Title: "PS 3", Date: "2026-02-18", Type: "homework"},
			{Title: "Final Project", Date: "2026-03-15", Type: "project"},
		},
	}
}

func step(t *testing.T, s State, ev Event) State {
	t.Helper()
	next, err := Transition(s, ev)
	require.NoError(t, err)
	return next
}

func TestTransition_HappyPath(t *testing.T) {
	s := step(t, Home{}, StartScan{})
	assert.Equal(t, StageScanning, s.Stage())

	s = step(t, s, ConfirmPages{Pages: pages})
	ld := s.(Loading)
	assert.Len(t, ld.Pages, 2)
	assert.Equal(t, 1, ld.Attempt)
	assert.True(t, ld.InFlight())

	s = step(t, s, PagesProcessed{Syllabus: syllabus()})
	rv := s.(Reviewing)
	assert.Equal(t, 3, rv.Staging.SelectedCount())

	s = step(t, s, Edit{Command: staging.Toggle{ID: rv.Staging.Items[1].ID}})
	assert.Equal(t, 2, s.(Reviewing).Staging.SelectedCount())

	c := &entity.Course{Name: "Intro to AI"}
	s = step(t, s, Committed{Result: courses.CommitResult{Outcome: courses.Success, Course: c, SavedCount: 2}})
	sc := s.(Success)
	assert.Equal(t, 2, sc.Count)
	assert.Same(t, c, sc.Course)

	s = step(t, s, Dismiss{})
	assert.Equal(t, StageHome, s.Stage())
}

func TestTransition_EmptyPagesRejected(t *testing.T) {
	s, err := Transition(Scanning{}, ConfirmPages{})
	assert.ErrorIs(t, err, capture.ErrNoPages)
	assert.Equal(t, Scanning{}, s)
}

func TestTransition_FailureAndRetryKeepPages(t *testing.T) {
	s := step(t, Scanning{}, ConfirmPages{Pages: pages})
	apiErr := common.NewParsingError("rejected", &common.APIError{Status: 500, Message: "overloaded"})

	s = step(t, s, ProcessingFailed{Err: apiErr})
	ld := s.(Loading)
	assert.ErrorIs(t, ld.Err, apiErr)
	assert.Equal(t, pages, ld.Pages)
	assert.False(t, ld.InFlight())

	// a result cannot land on a failed attempt
	_, err := Transition(s, PagesProcessed{Syllabus: syllabus()})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	s = step(t, s, Retry{})
	ld = s.(Loading)
	assert.NoError(t, ld.Err)
	assert.Equal(t, 2, ld.Attempt)
	assert.Equal(t, pages, ld.Pages)

	_, err = Transition(s, Retry{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransition_EmptySyllabusIsReviewing(t *testing.T) {
	s := step(t, Loading{Pages: pages, Attempt: 1}, PagesProcessed{Syllabus: llm.ParsedSyllabus{Assignments: []llm.ParsedAssignment{}}})
	rv := s.(Reviewing)
	assert.True(t, rv.Empty())
	assert.NoError(t, rv.Err)
}

func TestTransition_TotalFailureStaysInReview(t *testing.T) {
	rv := step(t, Loading{Pages: pages, Attempt: 1}, PagesProcessed{Syllabus: syllabus()}).(Reviewing)

	s := step(t, rv, Committed{Result: courses.CommitResult{Outcome: courses.TotalFailure, FailedTitles: []string{"a", "b", "c"}}})
	got := s.(Reviewing)
	require.NotNil(t, got.Report)
	assert.Equal(t, courses.TotalFailure, got.Report.Outcome)
	assert.ErrorIs(t, got.Err, ErrNothingSaved)
	assert.True(t, common.HasCode(got.Err, common.CodeDateConversion))
	assert.Equal(t, 3, got.Staging.SelectedCount())

	// next edit clears the report
	s = step(t, got, Edit{Command: staging.Toggle{ID: "a1"}})
	assert.Nil(t, s.(Reviewing).Report)
	assert.NoError(t, s.(Reviewing).Err)
}

func TestTransition_CommitFailedKeepsStaging(t *testing.T) {
	rv := step(t, Loading{Pages: pages, Attempt: 1}, PagesProcessed{Syllabus: syllabus()}).(Reviewing)
	boom := common.NewPersistenceError("save course", errors.New("disk full"))

	s := step(t, rv, CommitFailed{Err: boom})
	got := s.(Reviewing)
	assert.ErrorIs(t, got.Err, boom)
	assert.Equal(t, rv.Staging, got.Staging)
}

func TestTransition_EditErrorLeavesState(t *testing.T) {
	rv := step(t, Loading{Pages: pages, Attempt: 1}, PagesProcessed{Syllabus: syllabus()}).(Reviewing)
	s, err := Transition(rv, Edit{Command: staging.Toggle{ID: "nope"}})
	assert.ErrorIs(t, err, staging.ErrUnknownItem)
	assert.Equal(t, rv, s)

	s = step(t, rv, Edit{Command: staging.Add{Title: "Essay"}, Now: time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)})
	assert.Len(t, s.(Reviewing).Staging.Items, 4)
}

func TestTransition_CancelFromAnywhere(t *testing.T) {
	for _, s := range []State{
		Home{},
		Scanning{},
		Loading{Pages: pages, Attempt: 1},
		Reviewing{Staging: staging.New(syllabus())},
		Success{Count: 1},
	} {
		next := step(t, s, Cancel{})
		assert.Equal(t, StageHome, next.Stage(), "from %s", s.Stage())
	}
}

func TestTransition_Rejected(t *testing.T) {
	cases := []struct {
		s  State
		ev Event
	}{
		{Home{}, ConfirmPages{Pages: pages}},
		{Scanning{}, StartScan{}},
		{Loading{Pages: pages, Attempt: 1}, StartScan{}},
		{Reviewing{}, StartScan{}},
		{Success{}, StartScan{}},
		{Home{}, Dismiss{}},
		{Reviewing{}, Dismiss{}},
		{Loading{Pages: pages, Attempt: 1}, Edit{Command: staging.Toggle{ID: "a1"}}},
		{Home{}, Committed{}},
		{Reviewing{}, Exported{}},
	}
	for _, c := range cases {
		next, err := Transition(c.s, c.ev)
		assert.ErrorIs(t, err, ErrInvalidTransition, "%s in %s", c.ev.Name(), c.s.Stage())
		assert.Equal(t, c.s, next)
	}
}

func TestStageIs(t *testing.T) {
	pred := StageIs(StageReviewing, StageSuccess)
	assert.True(t, pred(Success{}))
	assert.False(t, pred(Home{}))
}
