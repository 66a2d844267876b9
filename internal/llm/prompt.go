package llm

import (
	"fmt"
	"strings"
	"time"
)

// SystemPrompt is the fixed instruction payload sent with every parse request.
const SystemPrompt = `You are a helpful assistant that extracts assignment information from college syllabi.

Your job is to:
1. Find the course name and course code
2. Find ALL assignments, exams, quizzes, and projects with their due dates
3. Return the data as JSON

Rules:
- Only include items that have a specific date
- For assignment type, use one of: exam, quiz, homework, project
- Format dates as YYYY-MM-DD
- If you can't find a course code, use "N/A"

Return ONLY valid JSON in this exact format, no other text:
{
  "course_name": "string",
  "course_code": "string",
  "assignments": [
    {
      "title": "string",
      "date": "YYYY-MM-DD",
      "type": "exam|quiz|homework|project"
    }
  ]
}`

// BuildUserPrompt pins every date to the year of now. Scanned syllabi are
// assumed to belong to the current term, so printed years are ignored.
func BuildUserPrompt(text string, now time.Time) string {
	year := now.Year()
	var b strings.Builder
	fmt.Fprintf(&b, "Today's date is %s. Please extract the course information and assignments from this syllabus.\n\n", now.Format("2006-01-02"))
	b.WriteString(`IMPORTANT: Ignore any years mentioned in the syllabus text (like "Fall 2023" or "Spring 2024").` + "\n")
	fmt.Fprintf(&b, "Assume ALL dates are for year %d, since users scan current syllabi for their active courses.\n\n", year)
	b.WriteString("Syllabus text:\n")
	b.WriteString(strings.TrimSpace(text))
	return b.String()
}
