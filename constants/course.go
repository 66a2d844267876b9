package constants

// Course defaults applied when a syllabus is saved.
const (
	DefaultCourseIcon   = "book.closed.fill"
	DefaultCourseColor  = "BrandPrimary"
	DefaultCourseName   = "Untitled Course"
	MissingCourseCode   = "N/A"
	DefaultCalendarName = "School"

	// CalendarEventNotes tags events written by the app.
	CalendarEventNotes = "Added by Sylly"
)

// DateLayout is the wire format for assignment dates.
const DateLayout = "2006-01-02"
