// Package school manages schools, levels and the enrolment of students.
package school

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/semester"
)

var (
	ErrNotFound          = errors.New("school not found")
	ErrLevelNotFound     = errors.New("level not found")
	ErrEnrolmentNotFound = errors.New("student is not enrolled")
)

const (
	DefaultEducationDistrict = "80"
	LevelCount               = 8
)

var nowFunc = func() time.Time { return time.Now().UTC() }

type School struct {
	ID                int    `json:"id" db:"id"`
	Name              string `json:"name" db:"name"`
	NameEN            string `json:"name_en" db:"name_en"`
	EducationDistrict string `json:"education_district" db:"education_district"`
}

type Level struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Enrolment is where a student currently studies.
type Enrolment struct {
	StudentID  string    `json:"student_id" db:"student_id"`
	SchoolID   int       `json:"school_id" db:"school_id"`
	LevelID    int       `json:"level_id" db:"level_id"`
	SemesterID int       `json:"semester_id" db:"semester_id"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

type NewSchool struct {
	Name              string `json:"name" validate:"required,max=255"`
	NameEN            string `json:"name_en" validate:"max=255"`
	EducationDistrict string `json:"education_district" validate:"omitempty,examunit"`
}

func (ns *NewSchool) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.NameEN = core.CleanString(ns.NameEN)
	ns.EducationDistrict = core.CleanString(ns.EducationDistrict)
	return validate.Struct(ns)
}

// LevelName is the name of the n-th seeded level.
func LevelName(n int) string { return fmt.Sprintf("Level %d", n) }

type (
	Repository interface {
		ListSchools(ctx context.Context) ([]School, error)
		GetSchool(ctx context.Context, id int) (School, error)
		GetSchoolByName(ctx context.Context, name string) (School, error)
		CreateSchool(ctx context.Context, sch School) (School, error)

		ListLevels(ctx context.Context) ([]Level, error)
		GetLevel(ctx context.Context, id int) (Level, error)
		GetLevelByName(ctx context.Context, name string) (Level, error)
		CreateLevel(ctx context.Context, lvl Level) (Level, error)

		GetEnrolment(ctx context.Context, studentID string) (Enrolment, error)
		// SaveEnrolment creates or replaces the enrolment of the student.
		SaveEnrolment(ctx context.Context, enr Enrolment) (Enrolment, error)
		// ListEnrolments returns the enrolments at a school and level, zero values are not filtered on.
		ListEnrolments(ctx context.Context, schoolID, levelID int) ([]Enrolment, error)
		semester.EnrolmentUpdater
	}

	// SemesterSource provides the current semester, creating it if needed.
	SemesterSource interface {
		Ensure(ctx context.Context) (semester.Semester, error)
	}

	Service struct {
		repo      Repository
		semesters SemesterSource
	}
)

func NewService(repo Repository, semesters SemesterSource) *Service {
	return &Service{repo: repo, semesters: semesters}
}

func (svc *Service) Schools(ctx context.Context) ([]School, error) {
	return svc.repo.ListSchools(ctx)
}

func (svc *Service) School(ctx context.Context, id int) (School, error) {
	return svc.repo.GetSchool(ctx, id)
}

// GetOrCreate returns the school named ns.Name, creating it if it does not exist.
func (svc *Service) GetOrCreate(ctx context.Context, ns NewSchool) (School, bool, error) {
	sch, err := svc.repo.GetSchoolByName(ctx, ns.Name)
	if err == nil {
		return sch, false, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return School{}, false, err
	}

	if ns.EducationDistrict == "" {
		ns.EducationDistrict = DefaultEducationDistrict
	}
	sch, err = svc.repo.CreateSchool(ctx, School{Name: ns.Name, NameEN: ns.NameEN, EducationDistrict: ns.EducationDistrict})
	if err != nil {
		return School{}, false, err
	}
	return sch, true, nil
}

func (svc *Service) Levels(ctx context.Context) ([]Level, error) {
	return svc.repo.ListLevels(ctx)
}

func (svc *Service) Level(ctx context.Context, id int) (Level, error) {
	return svc.repo.GetLevel(ctx, id)
}

// SeedLevels creates "Level 1" to "Level 8" and returns the IDs of all of them.
func (svc *Service) SeedLevels(ctx context.Context) ([]int, error) {
	ids := make([]int, 0, LevelCount)
	for n := 1; n <= LevelCount; n++ {
		lvl, err := svc.repo.GetLevelByName(ctx, LevelName(n))
		if errors.Cause(err) == ErrLevelNotFound {
			lvl, err = svc.repo.CreateLevel(ctx, Level{Name: LevelName(n)})
		}
		if err != nil {
			return nil, errors.Wrapf(err, "seeding level %d", n)
		}
		ids = append(ids, lvl.ID)
	}
	return ids, nil
}

func (svc *Service) Enrolment(ctx context.Context, studentID string) (Enrolment, error) {
	return svc.repo.GetEnrolment(ctx, studentID)
}

func (svc *Service) Enrolments(ctx context.Context, schoolID, levelID int) ([]Enrolment, error) {
	return svc.repo.ListEnrolments(ctx, schoolID, levelID)
}

// Enroll places the student at a school and level for the current semester.
func (svc *Service) Enroll(ctx context.Context, studentID string, schoolID, levelID int) (Enrolment, error) {
	if _, err := svc.repo.GetSchool(ctx, schoolID); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Enrolment{}, core.NewFieldError("school_id", err)
		}
		return Enrolment{}, err
	}
	if _, err := svc.repo.GetLevel(ctx, levelID); err != nil {
		if errors.Cause(err) == ErrLevelNotFound {
			return Enrolment{}, core.NewFieldError("level_id", err)
		}
		return Enrolment{}, err
	}

	sem, err := svc.semesters.Ensure(ctx)
	if err != nil {
		return Enrolment{}, errors.Wrap(err, "getting current semester")
	}
	return svc.repo.SaveEnrolment(ctx, Enrolment{
		StudentID:  studentID,
		SchoolID:   schoolID,
		LevelID:    levelID,
		SemesterID: sem.ID,
		UpdatedAt:  nowFunc(),
	})
}

// Placement is an enrolment with the names of its school and level.
type Placement struct {
	Enrolment
	SchoolName string `json:"school_name"`
	LevelName  string `json:"level_name"`
}

func (svc *Service) Placement(ctx context.Context, studentID string) (Placement, error) {
	enr, err := svc.repo.GetEnrolment(ctx, studentID)
	if err != nil {
		return Placement{}, err
	}
	p := Placement{Enrolment: enr}
	if sch, err := svc.repo.GetSchool(ctx, enr.SchoolID); err == nil {
		p.SchoolName = sch.Name
	} else if errors.Cause(err) != ErrNotFound {
		return Placement{}, err
	}
	if lvl, err := svc.repo.GetLevel(ctx, enr.LevelID); err == nil {
		p.LevelName = lvl.Name
	} else if errors.Cause(err) != ErrLevelNotFound {
		return Placement{}, err
	}
	return p, nil
}
