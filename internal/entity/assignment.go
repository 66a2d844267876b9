package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/syllabus-tracker/constants"
)

// Assignment is a dated item owned by exactly one Course.
type Assignment struct {
	ID              uuid.UUID                `json:"id"`
	CourseID        uuid.UUID                `json:"course_id"`
	Title           string                   `json:"title"`
	DueDate         time.Time                `json:"due_date"`
	Type            constants.AssignmentType `json:"type"`
	IsCompleted     bool                     `json:"is_completed"`
	CalendarEventID *string                  `json:"calendar_event_id,omitempty"`
}

// Exported reports whether the assignment already has a calendar event.
func (a *Assignment) Exported() bool {
	return a.CalendarEventID != nil && *a.CalendarEventID != ""
}
