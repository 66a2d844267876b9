package server

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/syllabus-tracker/constants"
	"github.com/joseph-ayodele/syllabus-tracker/internal/common"
)

// ExportXLSX returns the schedule workbook base64-encoded under "xlsx".
// course_id limits it to one course; from_date and to_date (YYYY-MM-DD)
// bound it inclusively. Only from_date means from..today.
func (s *SyllabusService) ExportXLSX(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := fieldsOf(in)

	var courseID *uuid.UUID
	if raw := req.str("course_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, common.InvalidArgumentErrorf("course_id must be a UUID")
		}
		courseID = &id
	}

	var fromPtr, toPtr *time.Time
	if fd := req.str("from_date"); fd != "" {
		t, err := time.ParseInLocation(constants.DateLayout, fd, s.loc)
		if err != nil {
			return nil, common.InvalidArgumentErrorf("from_date must be YYYY-MM-DD")
		}
		fromPtr = &t
	}
	if td := req.str("to_date"); td != "" {
		t, err := time.ParseInLocation(constants.DateLayout, td, s.loc)
		if err != nil {
			return nil, common.InvalidArgumentErrorf("to_date must be YYYY-MM-DD")
		}
		toPtr = &t
	}
	if fromPtr != nil && toPtr == nil {
		today := time.Now().In(s.loc)
		to := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, s.loc)
		toPtr = &to
	}
	if fromPtr != nil && toPtr != nil && toPtr.Before(*fromPtr) {
		return nil, common.InvalidArgumentErrorf("to_date must not be before from_date")
	}

	xlsx, err := s.export.ExportScheduleXLSX(ctx, courseID, fromPtr, toPtr)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "course_id", req.str("course_id"), "error", err)
		return nil, toStatus(err)
	}
	return respond(map[string]any{
		"xlsx":  base64.StdEncoding.EncodeToString(xlsx),
		"bytes": len(xlsx),
	})
}
