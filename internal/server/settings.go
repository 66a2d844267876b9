package server

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"
)

func (s *SyllabusService) calendarSettings(ctx context.Context) (*structpb.Struct, error) {
	st, err := s.pipe.CalendarSettings(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(map[string]any{"calendar": map[string]any{
		"status":  string(st.Status),
		"granted": st.Status.Granted(),
		"name":    st.Calendar,
	}})
}

// GetCalendarSettings returns {calendar: {status, granted, name}}.
func (s *SyllabusService) GetCalendarSettings(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return s.calendarSettings(ctx)
}

// SetCalendarName selects the calendar exports write to. An empty or
// missing name restores the configured default.
func (s *SyllabusService) SetCalendarName(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.pipe.UseCalendar(ctx, fieldsOf(in).str("name")); err != nil {
		return nil, toStatus(err)
	}
	return s.calendarSettings(ctx)
}

// ResetCalendarAccess forgets a stored grant or denial; the next
// RequestCalendarAccess asks again.
func (s *SyllabusService) ResetCalendarAccess(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if err := s.pipe.ResetCalendarAccess(ctx); err != nil {
		return nil, toStatus(err)
	}
	s.logger.Info("server.calendar.reset")
	return s.calendarSettings(ctx)
}
