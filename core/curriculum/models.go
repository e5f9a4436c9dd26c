package curriculum

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/pondok/core"
)

// Category of a subject. CategoryAll is only used as a filter.
type Category int

const (
	CategoryAll       Category = 0
	CategoryTheory    Category = 1
	CategoryPractical Category = 2
)

var ErrInvalidCategory = errors.New("category must be 1 (theory), 2 (practical) or all")

// ParseCategory accepts "", "all", "1", "theory", "2" and "practical".
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(core.CleanString(s)) {
	case "", "0", "all":
		return CategoryAll, nil
	case "1", "theory":
		return CategoryTheory, nil
	case "2", "practical":
		return CategoryPractical, nil
	}
	return 0, ErrInvalidCategory
}

func (c Category) String() string {
	switch c {
	case CategoryTheory:
		return "theory"
	case CategoryPractical:
		return "practical"
	case CategoryAll:
		return "all"
	}
	return strconv.Itoa(int(c))
}

// Matches reports whether a subject of category other passes the filter c.
func (c Category) Matches(other Category) bool {
	return c == CategoryAll || c == other
}

type Subject struct {
	ID         int      `json:"id" db:"id"`
	Name       string   `json:"name" db:"name"`
	TotalMarks float64  `json:"total_marks" db:"total_marks"`
	Category   Category `json:"category" db:"category"`
}

// Offering is a subject as taught at a level during a semester. Marks are recorded against offerings.
type Offering struct {
	ID        int     `json:"id" db:"id"`
	SubjectID int     `json:"subject_id" db:"subject_id"`
	LevelID   int     `json:"level_id" db:"level_id"`
	Semester  int     `json:"semester" db:"semester"`
	Subject   Subject `json:"subject" db:"subject"`
}

type NewSubject struct {
	Name       string   `json:"name" validate:"required,max=100"`
	TotalMarks float64  `json:"total_marks" validate:"gt=0,lte=1000"`
	Category   Category `json:"category" validate:"oneof=1 2"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}

type OfferingFilter struct {
	LevelID  int `query:"level_id"`
	Semester int `query:"semester"`
}
