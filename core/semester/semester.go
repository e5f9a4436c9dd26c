// Package semester manages the single, school-wide current semester.
package semester

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/pondok/core"
)

var ErrNotConfigured = errors.New("the current semester is not configured")

var nowFunc = func() time.Time { return time.Now().UTC() }

// Semester is the current semester setting. Version is bumped on every update.
type Semester struct {
	ID        int       `json:"id" db:"id"`
	Semester  int       `json:"semester" db:"semester"`
	Year      int       `json:"year" db:"year"`
	Version   int       `json:"version" db:"version"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Term is a semester of an academic year.
type Term struct {
	Semester int `json:"semester" validate:"required,oneof=1 2"`
	Year     int `json:"year" validate:"required,gte=1900,lte=3000"`
}

func (t Term) Validate(validate *validator.Validate) error { return validate.Struct(t) }

func (s Semester) Term() Term { return Term{Semester: s.Semester, Year: s.Year} }

// UpdateResult tells what an Update changed.
type UpdateResult struct {
	Semester    Semester `json:"semester"`
	PurgedMarks int      `json:"purged_marks"`
	Enrolments  int      `json:"enrolments"`
}

type (
	Repository interface {
		// Get returns ErrNotConfigured when no semester exists yet.
		Get(ctx context.Context) (Semester, error)
		// Create fails with core.ErrSingleton when a semester already exists.
		Create(ctx context.Context, sem Semester) (Semester, error)
		Update(ctx context.Context, sem Semester) (Semester, error)
	}

	// MarkPurger discards the marks recorded during a term.
	MarkPurger interface {
		PurgeMarks(ctx context.Context, semester, year int) (int, error)
	}

	// EnrolmentUpdater points every enrolment at the given semester.
	EnrolmentUpdater interface {
		ApplySemester(ctx context.Context, semesterID int) (int, error)
	}

	Service struct {
		repo       Repository
		tx         core.Transactor
		marks      MarkPurger
		enrolments EnrolmentUpdater
	}
)

func NewService(repo Repository, tx core.Transactor, marks MarkPurger, enrolments EnrolmentUpdater) *Service {
	return &Service{repo: repo, tx: tx, marks: marks, enrolments: enrolments}
}

func (svc *Service) Get(ctx context.Context) (Semester, error) {
	return svc.repo.Get(ctx)
}

// Init creates the current semester. There can only be one.
func (svc *Service) Init(ctx context.Context, t Term) (Semester, error) {
	return svc.repo.Create(ctx, Semester{Semester: t.Semester, Year: t.Year, Version: 1, UpdatedAt: nowFunc()})
}

// Ensure returns the current semester, creating the first semester of the current year when there is none.
func (svc *Service) Ensure(ctx context.Context) (Semester, error) {
	sem, err := svc.repo.Get(ctx)
	if errors.Cause(err) != ErrNotConfigured {
		return sem, err
	}
	sem, err = svc.Init(ctx, Term{Semester: 1, Year: nowFunc().Year()})
	if errors.Cause(err) == core.ErrSingleton {
		return svc.repo.Get(ctx) // created concurrently
	}
	return sem, err
}

// Update changes the current semester.
// When the term changes, the marks of the previous term are purged, and every enrolment is moved
// to the new semester, all in one transaction.
func (svc *Service) Update(ctx context.Context, t Term) (UpdateResult, error) {
	var res UpdateResult
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		prev, err := svc.repo.Get(ctx)
		if errors.Cause(err) == ErrNotConfigured {
			sem, err := svc.Init(ctx, t)
			if err != nil {
				return errors.Wrap(err, "creating semester")
			}
			res.Semester = sem
			res.Enrolments, err = svc.enrolments.ApplySemester(ctx, sem.ID)
			return errors.Wrap(err, "applying semester to enrolments")
		}
		if err != nil {
			return errors.Wrap(err, "getting semester")
		}

		sem := prev
		sem.Semester = t.Semester
		sem.Year = t.Year
		sem.Version++
		sem.UpdatedAt = nowFunc()
		if res.Semester, err = svc.repo.Update(ctx, sem); err != nil {
			return errors.Wrap(err, "updating semester")
		}

		if prev.Term() != t {
			if res.PurgedMarks, err = svc.marks.PurgeMarks(ctx, prev.Semester, prev.Year); err != nil {
				return errors.Wrap(err, "purging marks")
			}
		}

		res.Enrolments, err = svc.enrolments.ApplySemester(ctx, res.Semester.ID)
		return errors.Wrap(err, "applying semester to enrolments")
	})
	if err != nil {
		return UpdateResult{}, err
	}
	return res, nil
}
