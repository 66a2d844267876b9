package constants

import (
	"strings"
)

// AssignmentType is the stored form of an assignment's kind.
type AssignmentType string

// Stable values (store these exact strings in DB).
const (
	Exam     AssignmentType = "exam"
	Quiz     AssignmentType = "quiz"
	Homework AssignmentType = "homework"
	Project  AssignmentType = "project"
)

var allAssignmentTypes = []AssignmentType{
	Exam,
	Quiz,
	Homework,
	Project,
}

var displayNames = map[AssignmentType]string{
	Exam:     "Exam",
	Quiz:     "Quiz",
	Homework: "HW",
	Project:  "Project",
}

// AssignmentTypes returns the stored values in display order.
func AssignmentTypes() []string {
	result := make([]string, len(allAssignmentTypes))
	for i, t := range allAssignmentTypes {
		result[i] = string(t)
	}
	return result
}

// Display returns the short label shown on review rows and course cards.
func (t AssignmentType) Display() string {
	if d, ok := displayNames[t]; ok {
		return d
	}
	return displayNames[Homework]
}

func (t AssignmentType) Valid() bool {
	_, ok := displayNames[t]
	return ok
}

// Canonicalize maps a stored value, display label or common synonym to an
// AssignmentType. Unknown input falls back to Homework with ok=false.
func Canonicalize(input string) (AssignmentType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return Homework, false
	}

	synonyms := map[string]AssignmentType{
		"hw":           Homework,
		"assignment":   Homework,
		"problem set":  Homework,
		"pset":         Homework,
		"lab":          Homework,
		"midterm":      Exam,
		"final":        Exam,
		"final exam":   Exam,
		"test":         Exam,
		"paper":        Project,
		"essay":        Project,
		"presentation": Project,
	}
	if t, ok := synonyms[normalized]; ok {
		return t, true
	}

	for _, t := range allAssignmentTypes {
		if normalized == string(t) {
			return t, true
		}
	}
	return Homework, false
}
