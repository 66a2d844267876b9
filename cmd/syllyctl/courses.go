package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/syllabus-tracker/constants"
	"github.com/joseph-ayodele/syllabus-tracker/internal/courses"
	repo "github.com/joseph-ayodele/syllabus-tracker/internal/repository"
	svc "github.com/joseph-ayodele/syllabus-tracker/internal/server"
)

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List and manage saved courses",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(cmd, func(cat *courses.Catalog) error {
			sums, err := cat.Summaries(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, sums)
		})
	},
}

var courseShowCmd = &cobra.Command{
	Use:   "show <course-id>",
	Short: "Show a course with upcoming and completed assignments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(cmd, func(cat *courses.Catalog) error {
			c, err := cat.GetCourse(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			upcoming, completed := courses.Split(c.Assignments)
			progress := courses.ProgressOf(c)
			c.Assignments = nil
			return printJSON(cmd, map[string]any{
				"course":    c,
				"upcoming":  upcoming,
				"completed": completed,
				"progress":  progress,
			})
		})
	},
}

var deleteAll bool

var courseDeleteCmd = &cobra.Command{
	Use:   "delete [course-id]",
	Short: "Delete a course and its assignments (or every course with --all)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(cmd, func(cat *courses.Catalog) error {
			if deleteAll {
				return cat.DeleteAll(cmd.Context())
			}
			if len(args) == 0 {
				return fmt.Errorf("course id required (or --all)")
			}
			return cat.DeleteCourse(cmd.Context(), args[0])
		})
	},
}

var completeUndo bool

var courseCompleteCmd = &cobra.Command{
	Use:   "complete <assignment-id>",
	Short: "Mark an assignment completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(cmd, func(cat *courses.Catalog) error {
			return cat.SetCompleted(cmd.Context(), args[0], !completeUndo)
		})
	},
}

var dueDate string

var courseDueCmd = &cobra.Command{
	Use:   "due",
	Short: "List assignments due on a day",
	RunE: func(cmd *cobra.Command, args []string) error {
		loc := cfg.Location()
		day := time.Now().In(loc)
		if dueDate != "" {
			d, err := time.ParseInLocation(constants.DateLayout, dueDate, loc)
			if err != nil {
				return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
			}
			day = d
		}
		return withCatalog(cmd, func(cat *courses.Catalog) error {
			items, err := cat.DueOn(cmd.Context(), day)
			if err != nil {
				return err
			}
			return printJSON(cmd, items)
		})
	},
}

func init() {
	courseDeleteCmd.Flags().BoolVar(&deleteAll, "all", false, "delete every course")
	courseCompleteCmd.Flags().BoolVar(&completeUndo, "undo", false, "mark as not completed")
	courseDueCmd.Flags().StringVar(&dueDate, "date", "", "day to list (YYYY-MM-DD, default today)")
	coursesCmd.AddCommand(courseShowCmd, courseDeleteCmd, courseCompleteCmd, courseDueCmd)
	rootCmd.AddCommand(coursesCmd)
}

func withCatalog(cmd *cobra.Command, fn func(*courses.Catalog) error) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	cmd.SetContext(ctx)

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer svc.CloseDB(db, logger)
	return fn(courses.NewCatalog(repo.NewCourseRepository(db, logger), cfg.Location(), logger))
}
