package export

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/syllabus-tracker/constants"
	"github.com/joseph-ayodele/syllabus-tracker/internal/entity"
	"github.com/joseph-ayodele/syllabus-tracker/internal/repository"
)

const sheet = "Assignments"

// Service produces XLSX schedules from saved courses.
type Service struct {
	courses repository.CourseRepository
	loc     *time.Location
	logger  *slog.Logger
}

func NewService(repo repository.CourseRepository, loc *time.Location, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{courses: repo, loc: loc, logger: logger}
}

// ExportScheduleXLSX returns an XLSX workbook (as bytes) listing assignments
// by due date. A nil courseID exports every course.
// If only from is provided -> from..end (inclusive).
// If only to is provided   -> beginning..to (inclusive).
func (s *Service) ExportScheduleXLSX(ctx context.Context, courseID *uuid.UUID, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	var cs []*entity.Course
	if courseID != nil {
		c, err := s.courses.GetCourse(ctx, *courseID)
		if err != nil {
			return nil, fmt.Errorf("query course: %w", err)
		}
		cs = []*entity.Course{c}
	} else {
		all, err := s.courses.ListCourses(ctx)
		if err != nil {
			return nil, fmt.Errorf("query courses: %w", err)
		}
		cs = all
	}

	type row struct {
		c *entity.Course
		a *entity.Assignment
	}
	var rows []row
	for _, c := range cs {
		for _, a := range c.Assignments {
			if s.inWindow(a.DueDate, from, to) {
				rows = append(rows, row{c, a})
			}
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].a.DueDate.Before(rows[j].a.DueDate) })

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("export.xlsx.close_error", "error", err)
		}
	}()
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	_ = f.DeleteSheet("Sheet1")

	headers := []string{"Due Date", "Time", "Course", "Code", "Assignment", "Type", "Status", "In Calendar"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(sheet, "A1", "H1", style)
	}

	for i, r := range rows {
		n := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, n)
			_ = f.SetCellValue(sheet, cell, v)
		}
		due := r.a.DueDate.In(s.loc)
		status := "Open"
		if r.a.IsCompleted {
			status = "Done"
		}
		inCal := "No"
		if r.a.Exported() {
			inCal = "Yes"
		}
		write(1, due.Format(constants.DateLayout))
		write(2, due.Format("15:04"))
		write(3, truncate(r.c.Name, 80))
		write(4, r.c.Code)
		write(5, truncate(r.a.Title, 140))
		write(6, r.a.Type.Display())
		write(7, status)
		write(8, inCal)
	}

	_ = f.SetColWidth(sheet, "A", "A", 12) // date
	_ = f.SetColWidth(sheet, "B", "B", 8)  // time
	_ = f.SetColWidth(sheet, "C", "C", 28) // course
	_ = f.SetColWidth(sheet, "D", "D", 12) // code
	_ = f.SetColWidth(sheet, "E", "E", 48) // title
	_ = f.SetColWidth(sheet, "F", "H", 12)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"courses", len(cs),
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// inWindow compares calendar days in the service location.
func (s *Service) inWindow(due time.Time, from, to *time.Time) bool {
	day := dateOnly(due.In(s.loc))
	if from != nil && day.Before(dateOnly(from.In(s.loc))) {
		return false
	}
	if to != nil && day.After(dateOnly(to.In(s.loc))) {
		return false
	}
	return true
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
