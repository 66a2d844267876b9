package staging

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/syllabus-tracker/constants"
	"github.com/joseph-ayodele/syllabus-tracker/internal/common"
)

var (
	ErrUnknownItem    = fmt.Errorf("%w: unknown staging item", common.ErrNotFound)
	ErrUnknownCommand = errors.New("unknown staging command")
)

const maxTitleLen = 200

// Command is one edit to a Staging.
type Command interface {
	apply(s Staging, now time.Time) (Staging, error)
}

// Toggle flips selection of one row.
type Toggle struct {
	ID string
}

func (c Toggle) apply(s Staging, _ time.Time) (Staging, error) {
	i := s.indexOf(c.ID)
	if i < 0 {
		return s, ErrUnknownItem
	}
	s.Items[i].Selected = !s.Items[i].Selected
	return s, nil
}

// EditItem changes the fields that are set.
type EditItem struct {
	ID     string
	Title  *string
	Date   *string
	Hour   *int
	Minute *int
	Type   *string
}

func (c EditItem) apply(s Staging, _ time.Time) (Staging, error) {
	i := s.indexOf(c.ID)
	if i < 0 {
		return s, ErrUnknownItem
	}
	v := common.NewValidator()
	if c.Title != nil {
		v.Field("title", c.Title, common.Required, common.MaxLength(maxTitleLen))
	}
	v.Field("date", c.Date, common.ISODate).
		Field("hour", c.Hour, common.Range(0, 23)).
		Field("minute", c.Minute, common.Range(0, 59))
	t, err := parseType(c.Type)
	if err != nil {
		return s, err
	}
	if err := v.Error(); err != nil {
		return s, err
	}

	it := &s.Items[i]
	if c.Title != nil {
		it.Title = strings.TrimSpace(*c.Title)
	}
	if c.Date != nil {
		it.Date = strings.TrimSpace(*c.Date)
	}
	if c.Hour != nil {
		it.Hour = *c.Hour
	}
	if c.Minute != nil {
		it.Minute = *c.Minute
	}
	if c.Type != nil {
		it.Type = t
	}
	return s, nil
}

// Delete deselects a parsed row and removes a manual one.
type Delete struct {
	ID string
}

func (c Delete) apply(s Staging, _ time.Time) (Staging, error) {
	i := s.indexOf(c.ID)
	if i < 0 {
		return s, ErrUnknownItem
	}
	if s.Items[i].Manual {
		s.Items = append(s.Items[:i], s.Items[i+1:]...)
		return s, nil
	}
	s.Items[i].Selected = false
	return s, nil
}

// Add appends a manual row. Empty Date means today, empty Type means homework.
type Add struct {
	Title  string
	Date   string
	Hour   int
	Minute int
	Type   string
}

func (c Add) apply(s Staging, now time.Time) (Staging, error) {
	v := common.NewValidator().
		Field("title", c.Title, common.Required, common.MaxLength(maxTitleLen)).
		Field("hour", c.Hour, common.Range(0, 23)).
		Field("minute", c.Minute, common.Range(0, 59))
	if c.Date != "" {
		v.Field("date", c.Date, common.ISODate)
	}
	if err := v.Error(); err != nil {
		return s, err
	}
	t := constants.Homework
	if strings.TrimSpace(c.Type) != "" {
		var err error
		if t, err = parseType(&c.Type); err != nil {
			return s, err
		}
	}
	date := strings.TrimSpace(c.Date)
	if date == "" {
		date = now.Format(constants.DateLayout)
	}
	s.Items = append(s.Items, Item{
		ID:       s.nextID(),
		Title:    strings.TrimSpace(c.Title),
		Date:     date,
		Hour:     c.Hour,
		Minute:   c.Minute,
		Type:     t,
		Selected: true,
		Manual:   true,
	})
	return s, nil
}

// EditCourse changes the course header fields that are set.
type EditCourse struct {
	Name  *string
	Code  *string
	Icon  *string
	Color *string
}

func (c EditCourse) apply(s Staging, _ time.Time) (Staging, error) {
	v := common.NewValidator()
	if c.Name != nil {
		v.Field("name", c.Name, common.Required, common.MaxLength(maxTitleLen))
	}
	v.Field("code", c.Code, common.MaxLength(50))
	if err := v.Error(); err != nil {
		return s, err
	}
	if c.Name != nil {
		s.Course.Name = strings.TrimSpace(*c.Name)
	}
	if c.Code != nil {
		s.Course.Code = strings.TrimSpace(*c.Code)
		if s.Course.Code == "" {
			s.Course.Code = constants.MissingCourseCode
		}
	}
	if c.Icon != nil && strings.TrimSpace(*c.Icon) != "" {
		s.Course.Icon = strings.TrimSpace(*c.Icon)
	}
	if c.Color != nil && strings.TrimSpace(*c.Color) != "" {
		s.Course.Color = strings.TrimSpace(*c.Color)
	}
	return s, nil
}

// parseType accepts storage values, display labels and common synonyms.
func parseType(in *string) (constants.AssignmentType, error) {
	if in == nil {
		return "", nil
	}
	t, ok := constants.Canonicalize(*in)
	if !ok {
		return "", fmt.Errorf("%w: type %q must be one of %s", common.ErrValidation, *in,
			strings.Join(constants.AssignmentTypes(), ", "))
	}
	return t, nil
}
