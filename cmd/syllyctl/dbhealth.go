package main

import (
	"time"

	"github.com/spf13/cobra"

	repo "github.com/joseph-ayodele/syllabus-tracker/internal/repository"
	svc "github.com/joseph-ayodele/syllabus-tracker/internal/server"
)

var dbhealthCmd = &cobra.Command{
	Use:   "dbhealth",
	Short: "Ping the database and count saved courses",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer svc.CloseDB(db, logger)

		if err := svc.PingDB(ctx, db, logger, time.Second); err != nil {
			return err
		}
		cs, err := repo.NewCourseRepository(db, logger).ListCourses(ctx)
		if err != nil {
			return err
		}
		assignments := 0
		for _, c := range cs {
			assignments += len(c.Assignments)
		}
		return printJSON(cmd, map[string]any{"status": "OK", "courses": len(cs), "assignments": assignments})
	},
}

func init() {
	rootCmd.AddCommand(dbhealthCmd)
}
