package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/syllabus-tracker/constants"
	"github.com/joseph-ayodele/syllabus-tracker/internal/async"
	"github.com/joseph-ayodele/syllabus-tracker/internal/calendar"
	"github.com/joseph-ayodele/syllabus-tracker/internal/capture"
	"github.com/joseph-ayodele/syllabus-tracker/internal/common"
	"github.com/joseph-ayodele/syllabus-tracker/internal/courses"
	"github.com/joseph-ayodele/syllabus-tracker/internal/entity"
	"github.com/joseph-ayodele/syllabus-tracker/internal/staging"
)

// Committer persists the reviewed rows.
type Committer interface {
	Commit(ctx context.Context, info staging.CourseInfo, items []staging.Item) (courses.CommitResult, error)
}

// CalendarExporter mirrors a saved course into the calendar and holds
// the calendar settings.
type CalendarExporter interface {
	RequestAccess(ctx context.Context, rec calendar.AccessRecorder) (bool, error)
	RecordAccess(ctx context.Context, st constants.CalendarAuthStatus) error
	Export(ctx context.Context, course *entity.Course, rec calendar.Recorder) (calendar.ExportResult, error)
	Settings(ctx context.Context) (calendar.Settings, error)
	UseCalendar(ctx context.Context, name string) error
	Revoke(ctx context.Context) error
}

type Config struct {
	// RunTimeout bounds one extract and parse attempt.
	RunTimeout time.Duration
	Now        func() time.Time
}

// Coordinator owns the pipeline state. Every state change and every write
// to the store runs on the loop; extraction and parsing run in the
// background and hand their result back tagged with the session they
// belong to.
type Coordinator struct {
	loop     async.Executor
	proc     *Processor
	commit   Committer
	cal      CalendarExporter
	recorder calendar.Recorder
	cfg      Config
	logger   *slog.Logger

	// owned by the loop
	state  State
	gen    uint64
	cancel context.CancelFunc

	mu      sync.Mutex
	snap    State
	changed chan struct{}
}

func NewCoordinator(loop async.Executor, proc *Processor, commit Committer, cal CalendarExporter, recorder calendar.Recorder, cfg Config, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 3 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Coordinator{
		loop:     loop,
		proc:     proc,
		commit:   commit,
		cal:      cal,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger,
		state:    Home{},
		snap:     Home{},
		changed:  make(chan struct{}),
	}
}

// Snapshot returns the current state.
func (c *Coordinator) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Session is the current session generation.
func (c *Coordinator) Session() uint64 {
	var g uint64
	_ = c.loop.Do(context.Background(), func(context.Context) error { g = c.gen; return nil })
	return g
}

// Await blocks until pred holds for the current state or ctx ends.
func (c *Coordinator) Await(ctx context.Context, pred func(State) bool) (State, error) {
	for {
		c.mu.Lock()
		s, ch := c.snap, c.changed
		c.mu.Unlock()
		if pred(s) {
			return s, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return s, ctx.Err()
		}
	}
}

func (c *Coordinator) StartScan(ctx context.Context) error {
	return c.loop.Do(ctx, func(context.Context) error {
		return c.apply(StartScan{})
	})
}

// SubmitPages confirms the page set and starts processing it.
func (c *Coordinator) SubmitPages(ctx context.Context, pages []capture.RawPage) error {
	return c.loop.Do(ctx, func(context.Context) error {
		if err := c.apply(ConfirmPages{Pages: pages}); err != nil {
			return err
		}
		c.launch()
		return nil
	})
}

// Retry processes the same pages again after a failure.
func (c *Coordinator) Retry(ctx context.Context) error {
	return c.loop.Do(ctx, func(context.Context) error {
		if err := c.apply(Retry{}); err != nil {
			return err
		}
		c.launch()
		return nil
	})
}

// Cancel returns to Home from anywhere. Work in flight is abandoned and
// its result ignored.
func (c *Coordinator) Cancel(ctx context.Context) error {
	return c.loop.Do(ctx, func(context.Context) error {
		c.endSession()
		return c.apply(Cancel{})
	})
}

func (c *Coordinator) Dismiss(ctx context.Context) error {
	return c.loop.Do(ctx, func(context.Context) error {
		return c.apply(Dismiss{})
	})
}

// Edit applies a staging command while reviewing.
func (c *Coordinator) Edit(ctx context.Context, cmd staging.Command) error {
	return c.loop.Do(ctx, func(context.Context) error {
		return c.apply(Edit{Command: cmd, Now: c.cfg.Now()})
	})
}

// Save commits the selected rows. It fails with courses.ErrNothingSelected
// without touching the store when no row is selected.
func (c *Coordinator) Save(ctx context.Context) (courses.CommitResult, error) {
	var res courses.CommitResult
	err := c.loop.Do(ctx, func(tctx context.Context) error {
		rv, ok := c.state.(Reviewing)
		if !ok {
			return fmt.Errorf("%w: save in %s", ErrInvalidTransition, c.state.Stage())
		}
		if rv.Staging.SelectedCount() == 0 {
			return courses.ErrNothingSelected
		}
		r, err := c.commit.Commit(tctx, rv.Staging.Course, rv.Staging.Selected())
		if err != nil {
			_ = c.apply(CommitFailed{Err: err})
			return err
		}
		res = r
		return c.apply(Committed{Result: r})
	})
	return res, err
}

// RequestCalendarAccess asks for calendar access, prompting at most once.
// The prompt runs on the caller's goroutine so a waiting user never holds
// up the loop; only the decision is written on the loop.
func (c *Coordinator) RequestCalendarAccess(ctx context.Context) (bool, error) {
	return c.cal.RequestAccess(ctx, loopRecorder{c})
}

// CalendarSettings reports the authorization state and selected calendar.
func (c *Coordinator) CalendarSettings(ctx context.Context) (calendar.Settings, error) {
	return c.cal.Settings(ctx)
}

// UseCalendar selects the calendar exports write to; "" restores the default.
func (c *Coordinator) UseCalendar(ctx context.Context, name string) error {
	return c.loop.Do(ctx, func(tctx context.Context) error {
		return c.cal.UseCalendar(tctx, name)
	})
}

// ResetCalendarAccess forgets the stored decision so the next request
// prompts again.
func (c *Coordinator) ResetCalendarAccess(ctx context.Context) error {
	return c.loop.Do(ctx, func(tctx context.Context) error {
		return c.cal.Revoke(tctx)
	})
}

// ExportCalendar mirrors the saved course into the calendar. Events are
// written from the caller's goroutine; each event id is stored on the loop.
func (c *Coordinator) ExportCalendar(ctx context.Context) (calendar.ExportResult, error) {
	var (
		course *entity.Course
		gen    uint64
	)
	err := c.loop.Do(ctx, func(context.Context) error {
		st, ok := c.state.(Success)
		if !ok || st.Course == nil {
			return fmt.Errorf("%w: export in %s", ErrInvalidTransition, c.state.Stage())
		}
		course, gen = cloneCourse(st.Course), c.gen
		return nil
	})
	if err != nil {
		return calendar.ExportResult{}, err
	}

	res, err := c.cal.Export(ctx, course, loopRecorder{c})
	if err != nil {
		return res, err
	}
	_ = c.loop.Do(ctx, func(context.Context) error {
		if gen != c.gen {
			return nil
		}
		if err := c.apply(Exported{Result: res, Course: course}); err != nil && !errors.Is(err, ErrInvalidTransition) {
			return err
		}
		return nil
	})
	return res, nil
}

// Close abandons the running session, if any.
func (c *Coordinator) Close(ctx context.Context) {
	_ = c.loop.Do(ctx, func(context.Context) error {
		c.endSession()
		return nil
	})
}

// apply runs on the loop.
func (c *Coordinator) apply(ev Event) error {
	prev := c.state
	next, err := Transition(prev, ev)
	if err != nil {
		c.logger.Warn("pipeline.transition.rejected", "session", c.gen, "state", prev.Stage(), "event", ev.Name(), "error", err)
		return err
	}
	c.state = next
	c.logger.Info("pipeline.transition", "session", c.gen, "from", prev.Stage(), "event", ev.Name(), "to", next.Stage())

	c.mu.Lock()
	c.snap = next
	close(c.changed)
	c.changed = make(chan struct{})
	c.mu.Unlock()
	return nil
}

// launch starts a new session for the pages in the Loading state.
func (c *Coordinator) launch() {
	ld, ok := c.state.(Loading)
	if !ok {
		return
	}
	c.endSession()
	c.gen++
	gen := c.gen

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RunTimeout)
	ctx = common.WithSession(ctx, gen)
	ctx = common.WithRequestID(ctx, uuid.NewString())
	c.cancel = cancel

	pages := ld.Pages
	c.logger.Info("pipeline.session.start", "session", gen, "pages", len(pages), "attempt", ld.Attempt)
	go func() {
		defer cancel()
		syl, warnings, err := c.proc.Process(ctx, pages)
		var ev Event = PagesProcessed{Syllabus: syl, Warnings: warnings}
		if err != nil {
			ev = ProcessingFailed{Err: err}
		}
		perr := c.loop.Post(context.Background(), func(context.Context) {
			if gen != c.gen {
				c.logger.Info("pipeline.session.stale", "session", gen, "current", c.gen, "event", ev.Name())
				return
			}
			c.cancel = nil
			_ = c.apply(ev)
		})
		if perr != nil {
			c.logger.Warn("pipeline.session.dropped", "session", gen, "error", perr)
		}
	}()
}

// endSession cancels the running session and invalidates its result.
func (c *Coordinator) endSession() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
		c.gen++
	}
}

type loopRecorder struct{ c *Coordinator }

func (r loopRecorder) SetCalendarEventID(ctx context.Context, id uuid.UUID, eventID string) error {
	if r.c.recorder == nil {
		return nil
	}
	return r.c.loop.Do(ctx, func(tctx context.Context) error {
		return r.c.recorder.SetCalendarEventID(tctx, id, eventID)
	})
}

func (r loopRecorder) RecordAccess(ctx context.Context, st constants.CalendarAuthStatus) error {
	return r.c.loop.Do(ctx, func(tctx context.Context) error {
		return r.c.cal.RecordAccess(tctx, st)
	})
}

func cloneCourse(c *entity.Course) *entity.Course {
	cp := *c
	cp.Assignments = make([]*entity.Assignment, len(c.Assignments))
	for i, a := range c.Assignments {
		ac := *a
		if a.CalendarEventID != nil {
			id := *a.CalendarEventID
			ac.CalendarEventID = &id
		}
		cp.Assignments[i] = &ac
	}
	return &cp
}
