package curriculum

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/trezcool/pondok/core"
)

var (
	ErrSubjectNotFound  = errors.New("subject not found")
	ErrSubjectExists    = errors.New("a subject with this name already exists")
	ErrOfferingNotFound = errors.New("subject offering not found")
)

// Semesters every level is taught in.
var Semesters = []int{1, 2}

// DefaultSubjects are created by Seed.
var DefaultSubjects = []NewSubject{
	{Name: "อัลกะบาอิร", TotalMarks: 100, Category: CategoryTheory},
	{Name: "ตัจญ์วีด", TotalMarks: 100, Category: CategoryTheory},
	{Name: "ตะเซาวุฟ", TotalMarks: 100, Category: CategoryTheory},
	{Name: "ศาสนประวัติ", TotalMarks: 100, Category: CategoryTheory},
	{Name: "อัล - หะดิษ", TotalMarks: 100, Category: CategoryTheory},
	{Name: "อัลกรุอาน", TotalMarks: 100, Category: CategoryTheory},
	{Name: "ฟิกห์", TotalMarks: 100, Category: CategoryTheory},
	{Name: "เตาฮีด", TotalMarks: 100, Category: CategoryTheory},
}

type (
	Repository interface {
		// ListSubjects returns the subjects of category ordered by name.
		ListSubjects(ctx context.Context, category Category) ([]Subject, error)
		GetSubject(ctx context.Context, id int) (Subject, error)
		GetSubjectByName(ctx context.Context, name string) (Subject, error)
		// CreateSubject fails with ErrSubjectExists on duplicate names.
		CreateSubject(ctx context.Context, sub Subject) (Subject, error)
		// GetOffering returns the offering with its Subject.
		GetOffering(ctx context.Context, id int) (Offering, error)
		// ListOfferings returns the offerings of a level and semester with their Subject, ordered by subject name.
		// Zero values are not filtered on.
		ListOfferings(ctx context.Context, filter OfferingFilter) ([]Offering, error)
		// CreateOffering returns the existing offering if there is one for the same subject, level and semester.
		CreateOffering(ctx context.Context, off Offering) (Offering, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Subjects(ctx context.Context, category Category) ([]Subject, error) {
	return svc.repo.ListSubjects(ctx, category)
}

func (svc *Service) Subject(ctx context.Context, id int) (Subject, error) {
	return svc.repo.GetSubject(ctx, id)
}

func (svc *Service) SubjectByName(ctx context.Context, name string) (Subject, error) {
	return svc.repo.GetSubjectByName(ctx, core.CleanString(name))
}

func (svc *Service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	sub, err := svc.repo.CreateSubject(ctx, Subject{
		Name:       ns.Name,
		TotalMarks: math.Round(ns.TotalMarks*100) / 100,
		Category:   ns.Category,
	})
	if errors.Cause(err) == ErrSubjectExists {
		return Subject{}, core.NewFieldError("name", ErrSubjectExists)
	}
	return sub, err
}

// SubjectsByName indexes every known subject by name.
func (svc *Service) SubjectsByName(ctx context.Context) (map[string]Subject, error) {
	subs, err := svc.repo.ListSubjects(ctx, CategoryAll)
	if err != nil {
		return nil, errors.Wrap(err, "listing subjects")
	}
	lookup := make(map[string]Subject, len(subs))
	for _, s := range subs {
		lookup[s.Name] = s
	}
	return lookup, nil
}

func (svc *Service) Offering(ctx context.Context, id int) (Offering, error) {
	return svc.repo.GetOffering(ctx, id)
}

func (svc *Service) Offerings(ctx context.Context, filter OfferingFilter) ([]Offering, error) {
	return svc.repo.ListOfferings(ctx, filter)
}

// CreateOffering offers a subject at a level during a semester. Existing offerings are returned as is.
func (svc *Service) CreateOffering(ctx context.Context, subjectID, levelID, semester int) (Offering, error) {
	if _, err := svc.repo.GetSubject(ctx, subjectID); err != nil {
		return Offering{}, err
	}
	return svc.repo.CreateOffering(ctx, Offering{SubjectID: subjectID, LevelID: levelID, Semester: semester})
}

// Seed creates the default subjects and offers every subject at every level, in both semesters.
func (svc *Service) Seed(ctx context.Context, levelIDs []int) error {
	for _, ns := range DefaultSubjects {
		_, err := svc.repo.CreateSubject(ctx, Subject{Name: ns.Name, TotalMarks: ns.TotalMarks, Category: ns.Category})
		if err != nil && errors.Cause(err) != ErrSubjectExists {
			return errors.Wrapf(err, "creating subject %s", ns.Name)
		}
	}

	subs, err := svc.repo.ListSubjects(ctx, CategoryAll)
	if err != nil {
		return errors.Wrap(err, "listing subjects")
	}
	for _, sub := range subs {
		for _, lvl := range levelIDs {
			for _, sem := range Semesters {
				if _, err := svc.repo.CreateOffering(ctx, Offering{SubjectID: sub.ID, LevelID: lvl, Semester: sem}); err != nil {
					return errors.Wrap(err, "creating offering")
				}
			}
		}
	}
	return nil
}
