package server

import (
	"math"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/syllabus-tracker/constants"
	"github.com/joseph-ayodele/syllabus-tracker/internal/calendar"
	"github.com/joseph-ayodele/syllabus-tracker/internal/common"
	"github.com/joseph-ayodele/syllabus-tracker/internal/courses"
	"github.com/joseph-ayodele/syllabus-tracker/internal/entity"
	"github.com/joseph-ayodele/syllabus-tracker/internal/pipeline"
	"github.com/joseph-ayodele/syllabus-tracker/internal/staging"
)

// request reads typed fields out of a Struct message.
type request struct {
	fields map[string]*structpb.Value
}

func fieldsOf(in *structpb.Struct) request {
	return request{fields: in.GetFields()}
}

func (r request) has(key string) bool {
	v, ok := r.fields[key]
	if !ok || v == nil {
		return false
	}
	_, null := v.GetKind().(*structpb.Value_NullValue)
	return !null
}

func (r request) str(key string) string {
	return strings.TrimSpace(r.fields[key].GetStringValue())
}

func (r request) optStr(key string) (*string, error) {
	if !r.has(key) {
		return nil, nil
	}
	if _, ok := r.fields[key].GetKind().(*structpb.Value_StringValue); !ok {
		return nil, common.InvalidArgumentErrorf("%s must be a string", key)
	}
	s := r.fields[key].GetStringValue()
	return &s, nil
}

func (r request) optInt(key string) (*int, error) {
	if !r.has(key) {
		return nil, nil
	}
	nv, ok := r.fields[key].GetKind().(*structpb.Value_NumberValue)
	if !ok || nv.NumberValue != math.Trunc(nv.NumberValue) {
		return nil, common.InvalidArgumentErrorf("%s must be an integer", key)
	}
	n := int(nv.NumberValue)
	return &n, nil
}

func (r request) boolean(key string) bool {
	return r.fields[key].GetBoolValue()
}

func (r request) strs(key string) []string {
	var out []string
	for _, v := range r.fields[key].GetListValue().GetValues() {
		if s := strings.TrimSpace(v.GetStringValue()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func respond(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func list[T any](xs []T, enc func(T) any) []any {
	out := make([]any, 0, len(xs))
	for _, x := range xs {
		out = append(out, enc(x))
	}
	return out
}

func strList(xs []string) []any {
	return list(xs, func(s string) any { return s })
}

func errText(err error) any {
	if err == nil {
		return nil
	}
	return err.Error()
}

func encodeState(s pipeline.State, loc *time.Location) map[string]any {
	m := map[string]any{"stage": string(s.Stage())}
	switch st := s.(type) {
	case pipeline.Loading:
		m["attempt"] = st.Attempt
		m["pages"] = len(st.Pages)
		m["in_flight"] = st.InFlight()
		m["error"] = errText(st.Err)
	case pipeline.Reviewing:
		m["course"] = encodeCourseInfo(st.Staging.Course)
		m["items"] = list(st.Staging.Items, encodeItem)
		m["selected_count"] = st.Staging.SelectedCount()
		m["empty"] = st.Empty()
		m["warnings"] = strList(st.Warnings)
		if st.Report != nil {
			m["report"] = encodeCommit(*st.Report)
		}
		m["error"] = errText(st.Err)
	case pipeline.Success:
		m["count"] = st.Count
		m["skipped"] = strList(st.Skipped)
		if st.Course != nil {
			m["course"] = encodeCourse(st.Course, loc)
		}
		if st.Export != nil {
			m["export"] = encodeExport(*st.Export)
		}
	}
	return m
}

func encodeCourseInfo(c staging.CourseInfo) map[string]any {
	return map[string]any{"name": c.Name, "code": c.Code, "icon": c.Icon, "color": c.Color}
}

func encodeItem(it staging.Item) any {
	return map[string]any{
		"id":       it.ID,
		"title":    it.Title,
		"date":     it.Date,
		"hour":     it.Hour,
		"minute":   it.Minute,
		"type":     it.TypeLabel(),
		"selected": it.Selected,
		"manual":   it.Manual,
	}
}

func encodeCommit(r courses.CommitResult) map[string]any {
	m := map[string]any{
		"outcome":       string(r.Outcome),
		"saved_count":   r.SavedCount,
		"failed_titles": strList(r.FailedTitles),
	}
	if r.Course != nil {
		m["course_id"] = r.Course.ID.String()
	}
	return m
}

func encodeExport(r calendar.ExportResult) map[string]any {
	return map[string]any{
		"success_count": r.SuccessCount,
		"written":       r.Written,
		"failed_titles": strList(r.FailedTitles),
	}
}

func encodeCourse(c *entity.Course, loc *time.Location) map[string]any {
	return map[string]any{
		"id":          c.ID.String(),
		"name":        c.Name,
		"code":        c.Code,
		"icon":        c.Icon,
		"color":       c.Color,
		"created_at":  c.CreatedAt.UTC().Format(time.RFC3339),
		"assignments": list(c.Assignments, func(a *entity.Assignment) any { return encodeAssignment(a, loc) }),
	}
}

func encodeAssignment(a *entity.Assignment, loc *time.Location) map[string]any {
	due := a.DueDate.In(loc)
	m := map[string]any{
		"id":           a.ID.String(),
		"course_id":    a.CourseID.String(),
		"title":        a.Title,
		"due_date":     due.Format(time.RFC3339),
		"date":         due.Format(constants.DateLayout),
		"type":         a.Type.Display(),
		"is_completed": a.IsCompleted,
	}
	if a.Exported() {
		m["calendar_event_id"] = *a.CalendarEventID
	}
	return m
}
