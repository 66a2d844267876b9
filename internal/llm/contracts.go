package llm

import "context"

// ParsedAssignment is one dated item as returned by the model.
type ParsedAssignment struct {
	Title string `json:"title"`
	Date  string `json:"date"` // YYYY-MM-DD
	Type  string `json:"type"` // exam | quiz | homework | project
}

// ParsedSyllabus is the normalized shape we want from the LLM.
type ParsedSyllabus struct {
	CourseName  string             `json:"course_name"`
	CourseCode  string             `json:"course_code"`
	Assignments []ParsedAssignment `json:"assignments"`
}

// Parser is the interface our pipeline depends on.
type Parser interface {
	ParseSyllabus(ctx context.Context, text string) (ParsedSyllabus, error)
}
