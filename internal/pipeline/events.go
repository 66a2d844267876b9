package pipeline

import (
	"time"

	"github.com/joseph-ayodele/syllabus-tracker/internal/calendar"
	"github.com/joseph-ayodele/syllabus-tracker/internal/capture"
	"github.com/joseph-ayodele/syllabus-tracker/internal/courses"
	"github.com/joseph-ayodele/syllabus-tracker/internal/entity"
	"github.com/joseph-ayodele/syllabus-tracker/internal/llm"
	"github.com/joseph-ayodele/syllabus-tracker/internal/staging"
)

// Event is a user action or an async completion fed to Transition.
type Event interface {
	Name() string
	isEvent()
}

type StartScan struct{}

type ConfirmPages struct {
	Pages []capture.RawPage
}

type PagesProcessed struct {
	Syllabus llm.ParsedSyllabus
	Warnings []string
}

type ProcessingFailed struct {
	Err error
}

type Retry struct{}

// Edit applies a staging command. Now dates manually added rows.
type Edit struct {
	Command staging.Command
	Now     time.Time
}

type Committed struct {
	Result courses.CommitResult
}

type CommitFailed struct {
	Err error
}

// Exported records a calendar export on the saved course.
type Exported struct {
	Result calendar.ExportResult
	Course *entity.Course
}

type Cancel struct{}

type Dismiss struct{}

func (StartScan) Name() string        { return "start_scan" }
func (ConfirmPages) Name() string     { return "confirm_pages" }
func (PagesProcessed) Name() string   { return "pages_processed" }
func (ProcessingFailed) Name() string { return "processing_failed" }
func (Retry) Name() string            { return "retry" }
func (Edit) Name() string             { return "edit" }
func (Committed) Name() string        { return "committed" }
func (CommitFailed) Name() string     { return "commit_failed" }
func (Exported) Name() string         { return "exported" }
func (Cancel) Name() string           { return "cancel" }
func (Dismiss) Name() string          { return "dismiss" }

func (StartScan) isEvent()        {}
func (ConfirmPages) isEvent()     {}
func (PagesProcessed) isEvent()   {}
func (ProcessingFailed) isEvent() {}
func (Retry) isEvent()            {}
func (Edit) isEvent()             {}
func (Committed) isEvent()        {}
func (CommitFailed) isEvent()     {}
func (Exported) isEvent()         {}
func (Cancel) isEvent()           {}
func (Dismiss) isEvent()          {}
