// Package staging holds the reviewed, not yet saved projection of a parsed
// syllabus. A Staging is a value: commands return a new one and never
// mutate their input, so the pipeline can keep the last good copy.
package staging

import (
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/syllabus-tracker/constants"
	"github.com/joseph-ayodele/syllabus-tracker/internal/llm"
)

// Item is one reviewable assignment row.
type Item struct {
	ID       string                   `json:"id"`
	Title    string                   `json:"title"`
	Date     string                   `json:"date"` // YYYY-MM-DD as parsed; may be unparseable
	Hour     int                      `json:"hour"`
	Minute   int                      `json:"minute"`
	Type     constants.AssignmentType `json:"type"`
	Selected bool                     `json:"selected"`
	Manual   bool                     `json:"manual"`
}

// TypeLabel is the display form of the item's type.
func (it Item) TypeLabel() string { return it.Type.Display() }

// CourseInfo is the course header edited during review.
type CourseInfo struct {
	Name  string `json:"name"`
	Code  string `json:"code"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

type Staging struct {
	Course CourseInfo `json:"course"`
	Items  []Item     `json:"items"`
	// Seq is the last issued item number; IDs stay unique for the session.
	Seq int `json:"seq"`
}

// New stages every parsed assignment, in order, selected.
func New(s llm.ParsedSyllabus) Staging {
	st := Staging{
		Course: CourseInfo{
			Name:  strings.TrimSpace(s.CourseName),
			Code:  strings.TrimSpace(s.CourseCode),
			Icon:  constants.DefaultCourseIcon,
			Color: constants.DefaultCourseColor,
		},
		Items: make([]Item, 0, len(s.Assignments)),
	}
	if st.Course.Name == "" {
		st.Course.Name = constants.DefaultCourseName
	}
	if st.Course.Code == "" {
		st.Course.Code = constants.MissingCourseCode
	}
	for _, a := range s.Assignments {
		t, _ := constants.Canonicalize(a.Type)
		st.Items = append(st.Items, Item{
			ID:       st.nextID(),
			Title:    strings.TrimSpace(a.Title),
			Date:     strings.TrimSpace(a.Date),
			Type:     t,
			Selected: true,
		})
	}
	return st
}

func (s *Staging) nextID() string {
	s.Seq++
	return fmt.Sprintf("a%d", s.Seq)
}

// clone copies the item slice so the receiver stays untouched.
func (s Staging) clone() Staging {
	out := s
	out.Items = make([]Item, len(s.Items))
	copy(out.Items, s.Items)
	return out
}

func (s Staging) indexOf(id string) int {
	for i := range s.Items {
		if s.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// Apply runs cmd against a copy of s. now supplies the default date for
// manual rows.
func (s Staging) Apply(cmd Command, now time.Time) (Staging, error) {
	if cmd == nil {
		return s, fmt.Errorf("%w: nil command", ErrUnknownCommand)
	}
	return cmd.apply(s.clone(), now)
}

func (s Staging) SelectedCount() int {
	n := 0
	for _, it := range s.Items {
		if it.Selected {
			n++
		}
	}
	return n
}

// Selected returns the selected rows in display order.
func (s Staging) Selected() []Item {
	out := make([]Item, 0, len(s.Items))
	for _, it := range s.Items {
		if it.Selected {
			out = append(out, it)
		}
	}
	return out
}

// IsEmpty reports a review with no rows at all, the "no dated items" state.
func (s Staging) IsEmpty() bool { return len(s.Items) == 0 }

func (s Staging) Item(id string) (Item, bool) {
	if i := s.indexOf(id); i >= 0 {
		return s.Items[i], true
	}
	return Item{}, false
}
