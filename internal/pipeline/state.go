package pipeline

import (
	"github.com/joseph-ayodele/syllabus-tracker/internal/calendar"
	"github.com/joseph-ayodele/syllabus-tracker/internal/capture"
	"github.com/joseph-ayodele/syllabus-tracker/internal/courses"
	"github.com/joseph-ayodele/syllabus-tracker/internal/entity"
	"github.com/joseph-ayodele/syllabus-tracker/internal/llm"
	"github.com/joseph-ayodele/syllabus-tracker/internal/staging"
)

type Stage string

const (
	StageHome      Stage = "home"
	StageScanning  Stage = "scanning"
	StageLoading   Stage = "loading"
	StageReviewing Stage = "reviewing"
	StageSuccess   Stage = "success"
)

// State is one of Home, Scanning, Loading, Reviewing or Success. Each
// carries only what its stage needs.
type State interface {
	Stage() Stage
	isState()
}

type Home struct{}

// Scanning waits for the user to confirm a page set.
type Scanning struct{}

// Loading has a page set in flight. Err is set when the last attempt
// failed; the same pages are kept for a retry.
type Loading struct {
	Pages   []capture.RawPage
	Attempt int
	Err     error
}

// Reviewing holds the editable staging built from the parsed syllabus.
// Report is the last commit result when it saved nothing; Err is the last
// commit error. Both are cleared by the next edit.
type Reviewing struct {
	Syllabus llm.ParsedSyllabus
	Staging  staging.Staging
	Warnings []string
	Report   *courses.CommitResult
	Err      error
}

// Success reports a saved course. Skipped lists titles whose dates could
// not be converted.
type Success struct {
	Count   int
	Course  *entity.Course
	Skipped []string
	Export  *calendar.ExportResult
}

func (Home) Stage() Stage      { return StageHome }
func (Scanning) Stage() Stage  { return StageScanning }
func (Loading) Stage() Stage   { return StageLoading }
func (Reviewing) Stage() Stage { return StageReviewing }
func (Success) Stage() Stage   { return StageSuccess }

func (Home) isState()      {}
func (Scanning) isState()  {}
func (Loading) isState()   {}
func (Reviewing) isState() {}
func (Success) isState()   {}

// InFlight reports whether extraction and parsing are running.
func (s Loading) InFlight() bool { return s.Err == nil }

// Empty reports a syllabus that yielded no assignments. It is not an error.
func (s Reviewing) Empty() bool { return s.Staging.IsEmpty() }

// StageIs is an Await predicate.
func StageIs(stages ...Stage) func(State) bool {
	return func(s State) bool {
		for _, st := range stages {
			if s.Stage() == st {
				return true
			}
		}
		return false
	}
}
