package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/syllabus-tracker/constants"
	"github.com/joseph-ayodele/syllabus-tracker/internal/async"
	"github.com/joseph-ayodele/syllabus-tracker/internal/calendar"
	"github.com/joseph-ayodele/syllabus-tracker/internal/capture"
	"github.com/joseph-ayodele/syllabus-tracker/internal/common"
	"github.com/joseph-ayodele/syllabus-tracker/internal/courses"
	"github.com/joseph-ayodele/syllabus-tracker/internal/entity"
	"github.com/joseph-ayodele/syllabus-tracker/internal/llm"
	"github.com/joseph-ayodele/syllabus-tracker/internal/ocr"
	"github.com/joseph-ayodele/syllabus-tracker/internal/repository"
	"github.com/joseph-ayodele/syllabus-tracker/internal/staging"
)

type extractFunc func(ctx context.Context, pages []capture.RawPage) (ocr.Result, error)

func (f extractFunc) ExtractPages(ctx context.Context, pages []capture.RawPage) (ocr.Result, error) {
	return f(ctx, pages)
}

type parseFunc func(ctx context.Context, text string) (llm.ParsedSyllabus, error)

func (f parseFunc) ParseSyllabus(ctx context.Context, text string) (llm.ParsedSyllabus, error) {
	return f(ctx, text)
}

func joinPages(_ context.Context, pages []capture.RawPage) (ocr.Result, error) {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = "text of " + p.Path
	}
	return ocr.Result{Text: strings.Join(parts, "\n\n")}, nil
}

type fakeExporter struct {
	mu       sync.Mutex
	written  int
	consent  func(ctx context.Context) bool // nil grants without asking
	recorded []constants.CalendarAuthStatus
	calendar string
	revoked  int
}

func (f *fakeExporter) RequestAccess(ctx context.Context, rec calendar.AccessRecorder) (bool, error) {
	if f.consent == nil {
		return true, nil
	}
	st := constants.CalendarDenied
	if f.consent(ctx) {
		st = constants.CalendarFullAccess
	}
	if err := rec.RecordAccess(ctx, st); err != nil {
		return false, err
	}
	return st.Granted(), nil
}

func (f *fakeExporter) RecordAccess(_ context.Context, st constants.CalendarAuthStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, st)
	return nil
}

func (f *fakeExporter) Settings(context.Context) (calendar.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := constants.CalendarNotDetermined
	if n := len(f.recorded); n > 0 {
		st = f.recorded[n-1]
	}
	return calendar.Settings{Status: st, Calendar: f.calendar}, nil
}

func (f *fakeExporter) UseCalendar(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calendar = name
	return nil
}

func (f *fakeExporter) Revoke(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked++
	f.recorded = nil
	return nil
}

func (f *fakeExporter) Export(ctx context.Context, c *entity.Course, rec calendar.Recorder) (calendar.ExportResult, error) {
	res := calendar.ExportResult{FailedTitles: []string{}}
	for _, a := range c.Assignments {
		if a.Exported() {
			res.SuccessCount++
			continue
		}
		f.mu.Lock()
		f.written++
		id := fmt.Sprintf("evt-%d", f.written)
		f.mu.Unlock()
		if err := rec.SetCalendarEventID(ctx, a.ID, id); err != nil {
			res.FailedTitles = append(res.FailedTitles, a.Title)
			continue
		}
		a.CalendarEventID = &id
		res.SuccessCount++
		res.Written++
	}
	return res, nil
}

type harness struct {
	c     *Coordinator
	repo  repository.CourseRepository
	loop  *async.Loop
	calls atomic.Int32
	cal   *fakeExporter
}

func newHarness(t *testing.T, x TextExtractor, p llm.Parser, commit Committer) *harness {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{DSN: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())}, nil)
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(ctx, db, nil))
	repo := repository.NewCourseRepository(db, nil)
	if commit == nil {
		commit = courses.NewGateway(repo, time.UTC, nil)
	}

	h := &harness{repo: repo, loop: async.NewLoop(nil), cal: &fakeExporter{}}
	counted := parseFunc(func(ctx context.Context, text string) (llm.ParsedSyllabus, error) {
		h.calls.Add(1)
		return p.ParseSyllabus(ctx, text)
	})
	now := func() time.Time { return time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC) }
	h.c = NewCoordinator(h.loop, NewProcessor(nil, x, counted), commit, h.cal, repo, Config{RunTimeout: 5 * time.Second, Now: now}, nil)
	t.Cleanup(func() {
		h.c.Close(context.Background())
		h.loop.Shutdown(context.Background())
		repository.Close(db, nil)
	})
	return h
}

func await(t *testing.T, c *Coordinator, pred func(State) bool) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	s, err := c.Await(ctx, pred)
	require.NoError(t, err, "last state %s", s.Stage())
	return s
}

func fixed(syl llm.ParsedSyllabus) llm.Parser {
	return parseFunc(func(context.Context, string) (llm.ParsedSyllabus, error) { return syl, nil })
}

func TestCoordinator_ScanReviewSaveExport(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, extractFunc(joinPages), fixed(syllabus()), nil)
	c := h.c

	require.NoError(t, c.StartScan(ctx))
	require.NoError(t, c.SubmitPages(ctx, pages))
	rv := await(t, c, StageIs(StageReviewing)).(Reviewing)
	assert.Equal(t, 3, rv.Staging.SelectedCount())

	require.NoError(t, c.Edit(ctx, staging.Toggle{ID: rv.Staging.Items[1].ID}))
	res, err := c.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, courses.Success, res.Outcome)
	assert.Equal(t, 2, res.SavedCount)

	sc := c.Snapshot().(Success)
	assert.Equal(t, 2, sc.Count)
	saved, err := h.repo.GetCourse(ctx, sc.Course.ID)
	require.NoError(t, err)
	assert.Len(t, saved.Assignments, 2)

	granted, err := c.RequestCalendarAccess(ctx)
	require.NoError(t, err)
	assert.True(t, granted)

	exp, err := c.ExportCalendar(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, exp.Written)
	sc = c.Snapshot().(Success)
	require.NotNil(t, sc.Export)
	assert.True(t, sc.Course.Assignments[0].Exported())

	// second export writes nothing
	exp, err = c.ExportCalendar(ctx)
	require.NoError(t, err)
	assert.Zero(t, exp.Written)
	assert.Equal(t, 2, exp.SuccessCount)

	saved, err = h.repo.GetCourse(ctx, sc.Course.ID)
	require.NoError(t, err)
	for _, a := range saved.Assignments {
		assert.True(t, a.Exported())
	}

	require.NoError(t, c.Dismiss(ctx))
	assert.Equal(t, StageHome, c.Snapshot().Stage())
}

func TestCoordinator_ConsentDoesNotHoldLoop(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, extractFunc(joinPages), fixed(syllabus()), nil)
	c := h.c

	asked := make(chan struct{})
	answer := make(chan bool)
	h.cal.consent = func(ctx context.Context) bool {
		close(asked)
		select {
		case ok := <-answer:
			return ok
		case <-ctx.Done():
			return false
		}
	}

	type reply struct {
		granted bool
		err     error
	}
	done := make(chan reply, 1)
	go func() {
		g, err := c.RequestCalendarAccess(ctx)
		done <- reply{g, err}
	}()
	<-asked

	// the loop keeps serving while the user decides
	short, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, c.StartScan(short))
	require.NoError(t, c.Cancel(short))
	assert.Equal(t, StageHome, c.Snapshot().Stage())

	answer <- true
	r := <-done
	require.NoError(t, r.err)
	assert.True(t, r.granted)
	assert.Equal(t, []constants.CalendarAuthStatus{constants.CalendarFullAccess}, h.cal.recorded)
}

func TestCoordinator_CalendarSettings(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, extractFunc(joinPages), fixed(syllabus()), nil)
	c := h.c
	h.cal.consent = func(context.Context) bool { return false }

	granted, err := c.RequestCalendarAccess(ctx)
	require.NoError(t, err)
	assert.False(t, granted)

	require.NoError(t, c.UseCalendar(ctx, "Fall Term"))
	st, err := c.CalendarSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, calendar.Settings{Status: constants.CalendarDenied, Calendar: "Fall Term"}, st)

	require.NoError(t, c.ResetCalendarAccess(ctx))
	st, err = c.CalendarSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, constants.CalendarNotDetermined, st.Status)
	assert.Equal(t, 1, h.cal.revoked)
}

func TestCoordinator_ParseFailureThenRetry(t *testing.T) {
	ctx := context.Background()
	var n atomic.Int32
	p := parseFunc(func(context.Context, string) (llm.ParsedSyllabus, error) {
		if n.Add(1) == 1 {
			return llm.ParsedSyllabus{}, common.NewParsingError("parsing service rejected the request", &common.APIError{Status: 500, Message: "overloaded"})
		}
		return syllabus(), nil
	})
	h := newHarness(t, extractFunc(joinPages), p, nil)
	c := h.c

	require.NoError(t, c.StartScan(ctx))
	require.NoError(t, c.SubmitPages(ctx, pages))
	ld := await(t, c, func(s State) bool {
		l, ok := s.(Loading)
		return ok && !l.InFlight()
	}).(Loading)

	var apiErr *common.APIError
	require.ErrorAs(t, ld.Err, &apiErr)
	assert.Equal(t, "overloaded", apiErr.Message)
	assert.Equal(t, pages, ld.Pages)

	require.NoError(t, c.Retry(ctx))
	rv := await(t, c, StageIs(StageReviewing)).(Reviewing)
	assert.Len(t, rv.Staging.Items, 3)
}

func TestCoordinator_SameInputSameItems(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, extractFunc(joinPages), fixed(syllabus()), nil)
	c := h.c

	var counts []int
	for i := 0; i < 3; i++ {
		require.NoError(t, c.StartScan(ctx))
		require.NoError(t, c.SubmitPages(ctx, pages))
		rv := await(t, c, StageIs(StageReviewing)).(Reviewing)
		counts = append(counts, len(rv.Staging.Items))
		require.NoError(t, c.Cancel(ctx))
	}
	assert.Equal(t, []int{3, 3, 3}, counts)
}

func TestCoordinator_OneScanInFlight(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	x := extractFunc(func(ctx context.Context, pages []capture.RawPage) (ocr.Result, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return ocr.Result{}, ctx.Err()
		}
		return joinPages(ctx, pages)
	})
	h := newHarness(t, x, fixed(syllabus()), nil)
	c := h.c
	defer close(release)

	require.NoError(t, c.StartScan(ctx))
	require.NoError(t, c.SubmitPages(ctx, pages))
	assert.ErrorIs(t, c.StartScan(ctx), ErrInvalidTransition)
	assert.ErrorIs(t, c.SubmitPages(ctx, pages), ErrInvalidTransition)
	assert.ErrorIs(t, c.Retry(ctx), ErrInvalidTransition)
	assert.Equal(t, StageLoading, c.Snapshot().Stage())
}

func TestCoordinator_CancelAbandonsInFlight(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{}, 1)
	abandoned := make(chan error, 1)
	x := extractFunc(func(ctx context.Context, pages []capture.RawPage) (ocr.Result, error) {
		started <- struct{}{}
		<-ctx.Done()
		abandoned <- ctx.Err()
		return ocr.Result{}, ctx.Err()
	})
	h := newHarness(t, x, fixed(syllabus()), nil)
	c := h.c

	require.NoError(t, c.StartScan(ctx))
	require.NoError(t, c.SubmitPages(ctx, pages))
	<-started
	require.NoError(t, c.Cancel(ctx))
	assert.Equal(t, StageHome, c.Snapshot().Stage())

	select {
	case err := <-abandoned:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("extraction was not cancelled")
	}

	// the late failure must not move Home
	assert.Never(t, func() bool { return c.Snapshot().Stage() != StageHome }, 100*time.Millisecond, 10*time.Millisecond)
	assert.Zero(t, h.calls.Load())

	all, err := h.repo.ListCourses(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCoordinator_StaleResultDropped(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	var n atomic.Int32
	p := parseFunc(func(context.Context, string) (llm.ParsedSyllabus, error) {
		if n.Add(1) == 1 {
			// ignores cancellation, like a response already on the wire
			<-release
			return llm.ParsedSyllabus{CourseName: "Old", Assignments: []llm.ParsedAssignment{}}, nil
		}
		return syllabus(), nil
	})
	h := newHarness(t, extractFunc(joinPages), p, nil)
	c := h.c

	require.NoError(t, c.StartScan(ctx))
	require.NoError(t, c.SubmitPages(ctx, pages))
	require.Eventually(t, func() bool { return n.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Cancel(ctx))

	require.NoError(t, c.StartScan(ctx))
	require.NoError(t, c.SubmitPages(ctx, pages))
	rv := await(t, c, StageIs(StageReviewing)).(Reviewing)
	assert.Equal(t, "Intro to AI", rv.Syllabus.CourseName)

	close(release)
	assert.Never(t, func() bool {
		s, ok := c.Snapshot().(Reviewing)
		return !ok || s.Syllabus.CourseName != "Intro to AI"
	}, 150*time.Millisecond, 10*time.Millisecond)
}

func TestCoordinator_EmptySyllabusAndNothingSelected(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, extractFunc(joinPages), fixed(llm.ParsedSyllabus{CourseName: "Art", Assignments: []llm.ParsedAssignment{}}), nil)
	c := h.c

	require.NoError(t, c.StartScan(ctx))
	require.NoError(t, c.SubmitPages(ctx, pages))
	rv := await(t, c, StageIs(StageReviewing)).(Reviewing)
	assert.True(t, rv.Empty())

	_, err := c.Save(ctx)
	assert.ErrorIs(t, err, courses.ErrNothingSelected)
	assert.Equal(t, StageReviewing, c.Snapshot().Stage())

	all, err := h.repo.ListCourses(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, c.Edit(ctx, staging.Add{Title: "Portfolio", Date: "2026-04-01"}))
	res, err := c.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SavedCount)
	assert.Equal(t, StageSuccess, c.Snapshot().Stage())
}

func TestCoordinator_TotalFailureNoGhostCourse(t *testing.T) {
	ctx := context.Background()
	syl := llm.ParsedSyllabus{CourseName: "Bio", Assignments: []llm.ParsedAssignment{{Title: "Lab", Date: "TBD"}}}
	h := newHarness(t, extractFunc(joinPages), fixed(syl), nil)
	c := h.c

	require.NoError(t, c.StartScan(ctx))
	require.NoError(t, c.SubmitPages(ctx, pages))
	await(t, c, StageIs(StageReviewing))

	res, err := c.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, courses.TotalFailure, res.Outcome)

	rv := c.Snapshot().(Reviewing)
	require.NotNil(t, rv.Report)
	assert.Equal(t, []string{"Lab"}, rv.Report.FailedTitles)

	all, err := h.repo.ListCourses(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

type flakyCommitter struct {
	next  Committer
	fails int
}

func (f *flakyCommitter) Commit(ctx context.Context, info staging.CourseInfo, items []staging.Item) (courses.CommitResult, error) {
	if f.fails > 0 {
		f.fails--
		return courses.CommitResult{}, common.NewPersistenceError("save course", errors.New("database is locked"))
	}
	return f.next.Commit(ctx, info, items)
}

func TestCoordinator_CommitFailureCanBeRetried(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyCommitter{fails: 1}
	h := newHarness(t, extractFunc(joinPages), fixed(syllabus()), flaky)
	flaky.next = courses.NewGateway(h.repo, time.UTC, nil)
	c := h.c

	require.NoError(t, c.StartScan(ctx))
	require.NoError(t, c.SubmitPages(ctx, pages))
	await(t, c, StageIs(StageReviewing))

	_, err := c.Save(ctx)
	assert.True(t, common.HasCode(err, common.CodePersistence))
	rv := c.Snapshot().(Reviewing)
	assert.Error(t, rv.Err)
	assert.Equal(t, 3, rv.Staging.SelectedCount())

	res, err := c.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.SavedCount)
}

func TestCoordinator_Preconditions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, extractFunc(joinPages), fixed(syllabus()), nil)
	c := h.c

	_, err := c.Save(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = c.ExportCalendar(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, c.Dismiss(ctx), ErrInvalidTransition)

	require.NoError(t, c.StartScan(ctx))
	assert.ErrorIs(t, c.SubmitPages(ctx, nil), capture.ErrNoPages)
	assert.Equal(t, StageScanning, c.Snapshot().Stage())
}

func TestCoordinator_AwaitHonoursContext(t *testing.T) {
	h := newHarness(t, extractFunc(joinPages), fixed(syllabus()), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	s, err := h.c.Await(ctx, StageIs(StageSuccess))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StageHome, s.Stage())
}
