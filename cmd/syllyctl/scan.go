package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/syllabus-tracker/internal/async"
	"github.com/joseph-ayodele/syllabus-tracker/internal/calendar"
	"github.com/joseph-ayodele/syllabus-tracker/internal/calendar/ics"
	"github.com/joseph-ayodele/syllabus-tracker/internal/capture"
	"github.com/joseph-ayodele/syllabus-tracker/internal/courses"
	"github.com/joseph-ayodele/syllabus-tracker/internal/pipeline"
	repo "github.com/joseph-ayodele/syllabus-tracker/internal/repository"
	svc "github.com/joseph-ayodele/syllabus-tracker/internal/server"
	"github.com/joseph-ayodele/syllabus-tracker/internal/staging"
)

var (
	scanDryRun   bool
	scanCalendar bool
	scanSkip     []string
)

// scanCmd runs one syllabus through the whole pipeline, accepting every
// parsed row except the ones named with --skip.
var scanCmd = &cobra.Command{
	Use:   "scan <page> [page...]",
	Short: "Scan, parse and save a syllabus, optionally exporting it to the calendar",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanDryRun, "dry-run", false, "stop after review and print the staged rows")
	scanCmd.Flags().BoolVar(&scanCalendar, "calendar", false, "export the saved assignments to the calendar (grants access)")
	scanCmd.Flags().StringSliceVar(&scanSkip, "skip", nil, "titles to deselect before saving")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	parser, err := newParser()
	if err != nil {
		return err
	}
	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer svc.CloseDB(db, logger)

	loc := cfg.Location()
	courseRepo := repo.NewCourseRepository(db, logger)
	settingsRepo := repo.NewSettingsRepository(db, logger)
	consent := calendar.PrompterFunc(func(context.Context) (bool, error) { return scanCalendar, nil })
	calendarService := calendar.NewService(
		ics.New(cfg.Calendar.Dir, cfg.Calendar.Name, settingsRepo, logger),
		settingsRepo, consent, loc, logger)

	loop := async.NewLoop(logger)
	defer loop.Shutdown(context.Background())
	c := pipeline.NewCoordinator(loop,
		pipeline.NewProcessor(logger, newPageExtractor(), parser),
		courses.NewGateway(courseRepo, loc, logger),
		calendarService, courseRepo,
		pipeline.Config{RunTimeout: cfg.Pipeline.RunTimeout}, logger)
	defer c.Close(context.Background())

	pages, err := capture.NewLoader(logger, capture.WithWorkers(cfg.OCR.LoadWorkers)).Load(ctx, args)
	if err != nil {
		return err
	}
	if err := c.StartScan(ctx); err != nil {
		return err
	}
	if err := c.SubmitPages(ctx, pages); err != nil {
		return err
	}
	st, err := c.Await(ctx, func(s pipeline.State) bool {
		ld, ok := s.(pipeline.Loading)
		return !ok || !ld.InFlight()
	})
	if err != nil {
		return err
	}
	if ld, ok := st.(pipeline.Loading); ok {
		return fmt.Errorf("processing failed after %d attempt(s): %w", ld.Attempt, ld.Err)
	}
	rv := st.(pipeline.Reviewing)
	if rv.Empty() {
		return printJSON(cmd, map[string]any{"course": rv.Staging.Course, "items": rv.Staging.Items, "warnings": rv.Warnings})
	}

	skip := make(map[string]bool, len(scanSkip))
	for _, t := range scanSkip {
		skip[t] = true
	}
	for _, it := range rv.Staging.Items {
		if skip[it.Title] {
			if err := c.Edit(ctx, staging.Toggle{ID: it.ID}); err != nil {
				return err
			}
		}
	}
	if scanDryRun {
		rv = c.Snapshot().(pipeline.Reviewing)
		return printJSON(cmd, map[string]any{"course": rv.Staging.Course, "items": rv.Staging.Items, "warnings": rv.Warnings})
	}

	res, err := c.Save(ctx)
	if err != nil {
		return err
	}
	out := map[string]any{"commit": res}
	if sc, ok := c.Snapshot().(pipeline.Success); ok && scanCalendar {
		if _, err := c.RequestCalendarAccess(ctx); err != nil {
			return err
		}
		exp, err := c.ExportCalendar(ctx)
		if err != nil {
			return err
		}
		out["calendar"] = exp
		out["course_id"] = sc.Course.ID
	} else if rv, ok := c.Snapshot().(pipeline.Reviewing); ok && rv.Err != nil {
		out["error"] = rv.Err.Error()
	}
	return printJSON(cmd, out)
}
