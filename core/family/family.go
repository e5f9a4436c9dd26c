// Package family records the parents and guardian of students.
package family

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/student"
)

var (
	ErrNotFound       = errors.New("parent not found")
	ErrInvalidKind    = errors.New("kind must be father, mother or guardian")
	errNoRelationship = errors.New("only a guardian has a relationship")
)

type Kind string

const (
	Father   Kind = "father"
	Mother   Kind = "mother"
	Guardian Kind = "guardian"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(core.CleanString(s, true /* lower */)); k {
	case Father, Mother, Guardian:
		return k, nil
	}
	return "", ErrInvalidKind
}

var nowFunc = func() time.Time { return time.Now().UTC() }

// Parent is the father, the mother or the guardian of a student. A student has at most one of each.
type Parent struct {
	ID           string       `json:"id" db:"id"`
	StudentID    string       `json:"student_id" db:"student_id"`
	Kind         Kind         `json:"kind" db:"kind"`
	FirstName    string       `json:"first_name" db:"first_name"`
	LastName     string       `json:"last_name" db:"last_name"`
	DateOfBirth  null.Time    `json:"date_of_birth" db:"date_of_birth"`
	AddressID    null.String  `json:"address_id" db:"address_id"`
	Occupation   string       `json:"occupation" db:"occupation"`
	Workplace    string       `json:"workplace" db:"workplace"`
	Income       null.Float64 `json:"income" db:"income"`
	Phone        string       `json:"phone" db:"phone"`
	Relationship null.String  `json:"relationship" db:"relationship"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

type SaveParent struct {
	FirstName    string   `json:"first_name" validate:"required,max=100"`
	LastName     string   `json:"last_name" validate:"required,max=100"`
	DateOfBirth  string   `json:"date_of_birth" validate:"omitempty,datetime=02/01/2006"`
	AddressID    string   `json:"address_id" validate:"omitempty,uuid"`
	Occupation   string   `json:"occupation" validate:"max=100"`
	Workplace    string   `json:"workplace" validate:"max=255"`
	Income       *float64 `json:"income" validate:"omitempty,gte=0"`
	Phone        string   `json:"phone" validate:"max=20"`
	Relationship string   `json:"relationship" validate:"omitempty,oneof=father mother other"`
}

func (sp *SaveParent) Validate(validate *validator.Validate) error {
	sp.FirstName = core.CleanString(sp.FirstName)
	sp.LastName = core.CleanString(sp.LastName)
	sp.DateOfBirth = core.CleanString(sp.DateOfBirth)
	sp.AddressID = core.CleanString(sp.AddressID)
	sp.Occupation = core.CleanString(sp.Occupation)
	sp.Workplace = core.CleanString(sp.Workplace)
	sp.Phone = core.CleanDigits(sp.Phone)
	sp.Relationship = core.CleanString(sp.Relationship, true /* lower */)
	return validate.Struct(sp)
}

// Family gathers the parents of a student, missing ones are nil.
type Family struct {
	Father   *Parent `json:"father"`
	Mother   *Parent `json:"mother"`
	Guardian *Parent `json:"guardian"`
}

type (
	Repository interface {
		// SaveParent creates or replaces the parent of the same student and kind.
		SaveParent(ctx context.Context, p Parent) (Parent, error)
		ListParents(ctx context.Context, studentID string) ([]Parent, error)
	}

	Students interface {
		Get(ctx context.Context, id string) (student.Student, error)
	}

	Service struct {
		repo     Repository
		students Students
	}
)

func NewService(repo Repository, students Students) *Service {
	return &Service{repo: repo, students: students}
}

func (svc *Service) Save(ctx context.Context, studentID string, kind Kind, sp SaveParent) (Parent, error) {
	if _, err := svc.students.Get(ctx, studentID); err != nil {
		return Parent{}, err
	}
	if sp.Relationship != "" && kind != Guardian {
		return Parent{}, core.NewFieldError("relationship", errNoRelationship)
	}

	p := Parent{
		ID:           uuid.New().String(),
		StudentID:    studentID,
		Kind:         kind,
		FirstName:    sp.FirstName,
		LastName:     sp.LastName,
		AddressID:    null.NewString(sp.AddressID, sp.AddressID != ""),
		Occupation:   sp.Occupation,
		Workplace:    sp.Workplace,
		Income:       null.Float64FromPtr(sp.Income),
		Phone:        sp.Phone,
		Relationship: null.NewString(sp.Relationship, sp.Relationship != ""),
		UpdatedAt:    nowFunc(),
	}
	if dob := core.ParseDate(sp.DateOfBirth); !dob.IsZero() {
		p.DateOfBirth = null.TimeFrom(dob)
	}
	return svc.repo.SaveParent(ctx, p)
}

func (svc *Service) Parents(ctx context.Context, studentID string) (Family, error) {
	ps, err := svc.repo.ListParents(ctx, studentID)
	if err != nil {
		return Family{}, err
	}
	var f Family
	for i := range ps {
		p := ps[i]
		switch p.Kind {
		case Father:
			f.Father = &p
		case Mother:
			f.Mother = &p
		case Guardian:
			f.Guardian = &p
		}
	}
	return f, nil
}
