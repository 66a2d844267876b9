package main

import (
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/syllabus-tracker/internal/calendar"
	"github.com/joseph-ayodele/syllabus-tracker/internal/calendar/ics"
	repo "github.com/joseph-ayodele/syllabus-tracker/internal/repository"
	svc "github.com/joseph-ayodele/syllabus-tracker/internal/server"
)

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Show calendar access and the calendar exports write to",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCalendar(cmd, func(cal *calendar.Service) error {
			return printCalendarSettings(cmd, cal)
		})
	},
}

var calendarUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: `Export into the named calendar ("" restores CALENDAR_NAME)`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCalendar(cmd, func(cal *calendar.Service) error {
			if err := cal.UseCalendar(cmd.Context(), args[0]); err != nil {
				return err
			}
			return printCalendarSettings(cmd, cal)
		})
	},
}

var calendarResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the stored access decision so the next export asks again",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCalendar(cmd, func(cal *calendar.Service) error {
			if err := cal.Revoke(cmd.Context()); err != nil {
				return err
			}
			return printCalendarSettings(cmd, cal)
		})
	},
}

func init() {
	calendarCmd.AddCommand(calendarUseCmd, calendarResetCmd)
	rootCmd.AddCommand(calendarCmd)
}

func printCalendarSettings(cmd *cobra.Command, cal *calendar.Service) error {
	st, err := cal.Settings(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd, st)
}

func withCalendar(cmd *cobra.Command, fn func(*calendar.Service) error) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	cmd.SetContext(ctx)

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer svc.CloseDB(db, logger)

	settings := repo.NewSettingsRepository(db, logger)
	store := ics.New(cfg.Calendar.Dir, cfg.Calendar.Name, settings, logger)
	return fn(calendar.NewService(store, settings, nil, cfg.Location(), logger))
}
