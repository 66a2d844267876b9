// Package courses persists reviewed syllabi and serves the saved catalog.
package courses

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/syllabus-tracker/constants"
	"github.com/joseph-ayodele/syllabus-tracker/internal/common"
	"github.com/joseph-ayodele/syllabus-tracker/internal/entity"
	"github.com/joseph-ayodele/syllabus-tracker/internal/repository"
	"github.com/joseph-ayodele/syllabus-tracker/internal/staging"
)

// ErrNothingSelected rejects a commit with no rows.
var ErrNothingSelected = fmt.Errorf("%w: no assignments selected", common.ErrInvalidInput)

type Outcome string

const (
	Success        Outcome = "SUCCESS"
	PartialFailure Outcome = "PARTIAL_FAILURE"
	TotalFailure   Outcome = "TOTAL_FAILURE"
)

// CommitResult reports what a commit saved. Course is nil on TotalFailure.
type CommitResult struct {
	Outcome      Outcome        `json:"outcome"`
	Course       *entity.Course `json:"course,omitempty"`
	SavedCount   int            `json:"saved_count"`
	FailedTitles []string       `json:"failed_titles,omitempty"`
}

// Gateway turns a reviewed staging set into a stored course.
type Gateway struct {
	repo   repository.CourseRepository
	loc    *time.Location
	logger *slog.Logger
}

func NewGateway(repo repository.CourseRepository, loc *time.Location, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Gateway{repo: repo, loc: loc, logger: logger}
}

// Commit converts each item's date and time into a due date and stores the
// course with every converted assignment in one transaction. Items whose
// date cannot be converted are reported by title and skipped. When none
// convert, nothing is written and the outcome is TotalFailure.
func (g *Gateway) Commit(ctx context.Context, info staging.CourseInfo, items []staging.Item) (CommitResult, error) {
	if len(items) == 0 {
		return CommitResult{}, ErrNothingSelected
	}

	course := &entity.Course{
		Name:  strings.TrimSpace(info.Name),
		Code:  strings.TrimSpace(info.Code),
		Icon:  info.Icon,
		Color: info.Color,
	}
	if course.Name == "" {
		course.Name = constants.DefaultCourseName
	}
	if course.Code == "" {
		course.Code = constants.MissingCourseCode
	}
	if course.Icon == "" {
		course.Icon = constants.DefaultCourseIcon
	}
	if course.Color == "" {
		course.Color = constants.DefaultCourseColor
	}

	var failed []string
	for _, it := range items {
		due, err := DueDate(it.Date, it.Hour, it.Minute, g.loc)
		if err != nil {
			derr := common.NewDateConversionError(it.Title, err)
			g.logger.Warn("courses.commit.date_conversion_failed", "title", it.Title, "date", it.Date, "error", derr)
			failed = append(failed, it.Title)
			continue
		}
		t := it.Type
		if !t.Valid() {
			t = constants.Homework
		}
		course.Assignments = append(course.Assignments, &entity.Assignment{
			Title:   it.Title,
			DueDate: due,
			Type:    t,
		})
	}

	if len(course.Assignments) == 0 {
		g.logger.Warn("courses.commit.total_failure", "course", course.Name, "failed", len(failed))
		return CommitResult{Outcome: TotalFailure, FailedTitles: failed}, nil
	}

	if err := g.repo.CreateWithAssignments(ctx, course); err != nil {
		g.logger.Error("courses.commit.persist_failed", "course", course.Name, "error", err)
		return CommitResult{}, common.NewPersistenceError("save course", err)
	}

	res := CommitResult{Outcome: Success, Course: course, SavedCount: len(course.Assignments), FailedTitles: failed}
	if len(failed) > 0 {
		res.Outcome = PartialFailure
	}
	g.logger.Info("courses.commit.ok",
		"course_id", course.ID,
		"course", course.Name,
		"outcome", res.Outcome,
		"saved", res.SavedCount,
		"failed", len(failed),
	)
	return res, nil
}

// DueDate combines a YYYY-MM-DD date with a time of day in loc.
func DueDate(date string, hour, minute int, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("time %02d:%02d out of range", hour, minute)
	}
	d, err := time.ParseInLocation(constants.DateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, loc), nil
}
