package pipeline

import (
	"errors"
	"fmt"

	"github.com/joseph-ayodele/syllabus-tracker/internal/capture"
	"github.com/joseph-ayodele/syllabus-tracker/internal/common"
	"github.com/joseph-ayodele/syllabus-tracker/internal/courses"
	"github.com/joseph-ayodele/syllabus-tracker/internal/staging"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrNothingSaved marks a commit where no assignment could be converted.
	ErrNothingSaved = errors.New("no assignment could be saved")
)

// Transition computes the next state. It has no side effects; on error the
// returned state is the input state.
func Transition(s State, ev Event) (State, error) {
	if s == nil {
		s = Home{}
	}
	if _, ok := ev.(Cancel); ok {
		return Home{}, nil
	}

	switch st := s.(type) {
	case Home:
		if _, ok := ev.(StartScan); ok {
			return Scanning{}, nil
		}

	case Scanning:
		if e, ok := ev.(ConfirmPages); ok {
			if len(e.Pages) == 0 {
				return s, capture.ErrNoPages
			}
			pages := append([]capture.RawPage(nil), e.Pages...)
			return Loading{Pages: pages, Attempt: 1}, nil
		}

	case Loading:
		switch e := ev.(type) {
		case PagesProcessed:
			if !st.InFlight() {
				break
			}
			return Reviewing{
				Syllabus: e.Syllabus,
				Staging:  staging.New(e.Syllabus),
				Warnings: e.Warnings,
			}, nil
		case ProcessingFailed:
			if !st.InFlight() {
				break
			}
			err := e.Err
			if err == nil {
				err = errors.New("processing failed")
			}
			return Loading{Pages: st.Pages, Attempt: st.Attempt, Err: err}, nil
		case Retry:
			if st.InFlight() {
				break
			}
			return Loading{Pages: st.Pages, Attempt: st.Attempt + 1}, nil
		}

	case Reviewing:
		switch e := ev.(type) {
		case Edit:
			next, err := st.Staging.Apply(e.Command, e.Now)
			if err != nil {
				return s, err
			}
			return Reviewing{Syllabus: st.Syllabus, Staging: next, Warnings: st.Warnings}, nil
		case Committed:
			r := e.Result
			if r.Outcome == courses.TotalFailure || r.SavedCount < 1 {
				st.Report = &r
				st.Err = common.NewDateConversionError(fmt.Sprintf("%d assignment(s) failed", len(r.FailedTitles)), ErrNothingSaved)
				return st, nil
			}
			return Success{Count: r.SavedCount, Course: r.Course, Skipped: r.FailedTitles}, nil
		case CommitFailed:
			st.Report = nil
			st.Err = e.Err
			return st, nil
		}

	case Success:
		switch e := ev.(type) {
		case Dismiss:
			return Home{}, nil
		case Exported:
			res := e.Result
			st.Export = &res
			if e.Course != nil {
				st.Course = e.Course
			}
			return st, nil
		}
	}

	return s, fmt.Errorf("%w: %s in %s", ErrInvalidTransition, ev.Name(), s.Stage())
}
