package constants

// CalendarAuthStatus is the persisted calendar authorization state.
type CalendarAuthStatus string

// Stable values (store these exact strings in DB).
const (
	CalendarNotDetermined CalendarAuthStatus = "NOT_DETERMINED"
	CalendarFullAccess    CalendarAuthStatus = "FULL_ACCESS"
	CalendarWriteOnly     CalendarAuthStatus = "WRITE_ONLY"
	CalendarDenied        CalendarAuthStatus = "DENIED"
	CalendarRestricted    CalendarAuthStatus = "RESTRICTED"
)

// Granted reports whether events may be written.
func (s CalendarAuthStatus) Granted() bool {
	return s == CalendarFullAccess || s == CalendarWriteOnly
}
