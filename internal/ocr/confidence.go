package ocr

import (
	"regexp"
	"strings"
)

var (
	reMonthDay = regexp.MustCompile(`\b(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+\d{1,2}\b`)
	reNumDate  = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}([/-]\d{2,4})?\b`)
	reKeywords = regexp.MustCompile(`\b(exam|midterm|final|quiz|homework|hw|assignment|project|due|syllabus|week)\b`)
)

func hasDatePattern(s string) bool { return reMonthDay.MatchString(s) || reNumDate.MatchString(s) }
func hasKeywords(s string) bool    { return reKeywords.MatchString(s) }

// naive heuristic confidence based on decoded text characteristics
func heuristicConfidence(txt string) float32 {
	txtL := strings.ToLower(txt)
	score := float32(0.2) // base
	if hasDatePattern(txtL) {
		score += 0.3
	}
	if hasKeywords(txtL) {
		score += 0.3
	}
	if len(txt) > 200 {
		score += 0.2
	} // enough content
	if score > 1.0 {
		score = 1.0
	}
	return score
}
