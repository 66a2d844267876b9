package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/syllabus-tracker/internal/calendar"
	"github.com/joseph-ayodele/syllabus-tracker/internal/capture"
	"github.com/joseph-ayodele/syllabus-tracker/internal/common"
	"github.com/joseph-ayodele/syllabus-tracker/internal/courses"
	"github.com/joseph-ayodele/syllabus-tracker/internal/pipeline"
	"github.com/joseph-ayodele/syllabus-tracker/internal/staging"
)

// Pipeline is the coordinator surface the API drives.
type Pipeline interface {
	Snapshot() pipeline.State
	Await(ctx context.Context, pred func(pipeline.State) bool) (pipeline.State, error)
	StartScan(ctx context.Context) error
	SubmitPages(ctx context.Context, pages []capture.RawPage) error
	Retry(ctx context.Context) error
	Cancel(ctx context.Context) error
	Dismiss(ctx context.Context) error
	Edit(ctx context.Context, cmd staging.Command) error
	Save(ctx context.Context) (courses.CommitResult, error)
	RequestCalendarAccess(ctx context.Context) (bool, error)
	ExportCalendar(ctx context.Context) (calendar.ExportResult, error)
	CalendarSettings(ctx context.Context) (calendar.Settings, error)
	UseCalendar(ctx context.Context, name string) error
	ResetCalendarAccess(ctx context.Context) error
}

type PageLoader interface {
	Load(ctx context.Context, paths []string) ([]capture.RawPage, error)
}

type ScheduleExporter interface {
	ExportScheduleXLSX(ctx context.Context, courseID *uuid.UUID, from, to *time.Time) ([]byte, error)
}

// SyllabusService implements sylly.v1.SyllabusService on top of the
// pipeline coordinator and the course catalog.
type SyllabusService struct {
	pipe    Pipeline
	loader  PageLoader
	catalog *courses.Catalog
	export  ScheduleExporter
	loc     *time.Location
	logger  *slog.Logger
}

var _ SyllabusServiceServer = (*SyllabusService)(nil)

func NewSyllabusService(pipe Pipeline, loader PageLoader, catalog *courses.Catalog, export ScheduleExporter, loc *time.Location, logger *slog.Logger) *SyllabusService {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &SyllabusService{pipe: pipe, loader: loader, catalog: catalog, export: export, loc: loc, logger: logger}
}

// toStatus maps domain errors onto gRPC codes.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pipeline.ErrInvalidTransition):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, capture.ErrNoPages):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}
	return common.ToStatus(err)
}
