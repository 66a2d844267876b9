package courses

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/joseph-ayodele/syllabus-tracker/internal/entity"
)

type Urgency string

const (
	Urgent  Urgency = "urgent"
	Warning Urgency = "warning"
	Neutral Urgency = "neutral"
)

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DaysUntil counts calendar days from now to due in loc; negative when past.
func DaysUntil(due, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	a, b := startOfDay(now, loc), startOfDay(due, loc)
	// midnights differ by 23 or 25 hours across DST changes
	return int(math.Round(b.Sub(a).Hours() / 24))
}

// NextAssignment is the earliest incomplete assignment due today or later.
func NextAssignment(c *entity.Course, now time.Time, loc *time.Location) *entity.Assignment {
	if loc == nil {
		loc = time.Local
	}
	today := startOfDay(now, loc)
	var next *entity.Assignment
	for _, a := range c.Assignments {
		if a.IsCompleted || startOfDay(a.DueDate, loc).Before(today) {
			continue
		}
		if next == nil || a.DueDate.Before(next.DueDate) {
			next = a
		}
	}
	return next
}

// DueText is the short relative due label shown on course cards.
func DueText(due, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	days := DaysUntil(due, now, loc)
	switch {
	case days == 0:
		return "Due today"
	case days == 1:
		return "in 1 day"
	case days > 1 && days < 7:
		return fmt.Sprintf("in %d days", days)
	case days >= 7 && days < 14:
		return "in 1 week"
	case days >= 14 && days < 105:
		return fmt.Sprintf("in %d weeks", days/7)
	}
	return due.In(loc).Format("Jan 2")
}

func UrgencyOf(due, now time.Time, loc *time.Location) Urgency {
	days := DaysUntil(due, now, loc)
	switch {
	case days <= 2:
		return Urgent
	case days <= 7:
		return Warning
	}
	return Neutral
}

// Split partitions assignments into upcoming and completed, both by due date.
func Split(as []*entity.Assignment) (upcoming, completed []*entity.Assignment) {
	for _, a := range as {
		if a.IsCompleted {
			completed = append(completed, a)
		} else {
			upcoming = append(upcoming, a)
		}
	}
	byDue := func(s []*entity.Assignment) {
		sort.SliceStable(s, func(i, j int) bool { return s[i].DueDate.Before(s[j].DueDate) })
	}
	byDue(upcoming)
	byDue(completed)
	return upcoming, completed
}

// Progress is completed/total for a course.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

func ProgressOf(c *entity.Course) Progress {
	p := Progress{Total: len(c.Assignments)}
	for _, a := range c.Assignments {
		if a.IsCompleted {
			p.Completed++
		}
	}
	return p
}
