package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/syllabus-tracker/constants"
	"github.com/joseph-ayodele/syllabus-tracker/internal/export"
	repo "github.com/joseph-ayodele/syllabus-tracker/internal/repository"
	svc "github.com/joseph-ayodele/syllabus-tracker/internal/server"
)

var (
	exportOut    string
	exportCourse string
	exportFrom   string
	exportTo     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the assignment schedule to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		loc := cfg.Location()

		var courseID *uuid.UUID
		if exportCourse != "" {
			id, err := uuid.Parse(exportCourse)
			if err != nil {
				return fmt.Errorf("--course must be a UUID: %w", err)
			}
			courseID = &id
		}
		parse := func(flag, v string) (*time.Time, error) {
			if v == "" {
				return nil, nil
			}
			t, err := time.ParseInLocation(constants.DateLayout, v, loc)
			if err != nil {
				return nil, fmt.Errorf("--%s must be YYYY-MM-DD: %w", flag, err)
			}
			return &t, nil
		}
		from, err := parse("from", exportFrom)
		if err != nil {
			return err
		}
		to, err := parse("to", exportTo)
		if err != nil {
			return err
		}

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer svc.CloseDB(db, logger)

		xlsx, err := export.NewService(repo.NewCourseRepository(db, logger), loc, logger).ExportScheduleXLSX(ctx, courseID, from, to)
		if err != nil {
			return err
		}
		if err := os.WriteFile(exportOut, xlsx, 0o644); err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{"path": exportOut, "bytes": len(xlsx)})
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "schedule.xlsx", "output file")
	exportCmd.Flags().StringVar(&exportCourse, "course", "", "limit to one course id")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "first due date (YYYY-MM-DD, inclusive)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "last due date (YYYY-MM-DD, inclusive)")
	rootCmd.AddCommand(exportCmd)
}
