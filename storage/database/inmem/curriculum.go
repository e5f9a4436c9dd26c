package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/pondok/core/curriculum"
)

type curriculumRepository struct {
	db *DB
}

var _ curriculum.Repository = (*curriculumRepository)(nil) // interface compliance check

func NewCurriculumRepository(db *DB) *curriculumRepository {
	return &curriculumRepository{db: db}
}

func (repo *curriculumRepository) ListSubjects(ctx context.Context, category curriculum.Category) ([]curriculum.Subject, error) {
	defer repo.db.rlock(ctx)()
	subs := make([]curriculum.Subject, 0, len(repo.db.t.subjects))
	for _, s := range repo.db.t.subjects {
		if category.Matches(s.Category) {
			subs = append(subs, s)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].Name < subs[j].Name })
	return subs, nil
}

func (repo *curriculumRepository) GetSubject(ctx context.Context, id int) (curriculum.Subject, error) {
	defer repo.db.rlock(ctx)()
	if s, ok := repo.db.t.subjects[id]; ok {
		return s, nil
	}
	return curriculum.Subject{}, curriculum.ErrSubjectNotFound
}

func (repo *curriculumRepository) GetSubjectByName(ctx context.Context, name string) (curriculum.Subject, error) {
	defer repo.db.rlock(ctx)()
	for _, s := range repo.db.t.subjects {
		if s.Name == name {
			return s, nil
		}
	}
	return curriculum.Subject{}, curriculum.ErrSubjectNotFound
}

func (repo *curriculumRepository) CreateSubject(ctx context.Context, sub curriculum.Subject) (curriculum.Subject, error) {
	defer repo.db.lock(ctx)()
	for _, s := range repo.db.t.subjects {
		if s.Name == sub.Name {
			return curriculum.Subject{}, curriculum.ErrSubjectExists
		}
	}
	sub.ID = repo.db.t.nextPK()
	repo.db.t.subjects[sub.ID] = sub
	return sub, nil
}

// withSubject is called with the lock held.
func (repo *curriculumRepository) withSubject(off curriculum.Offering) curriculum.Offering {
	off.Subject = repo.db.t.subjects[off.SubjectID]
	return off
}

func (repo *curriculumRepository) GetOffering(ctx context.Context, id int) (curriculum.Offering, error) {
	defer repo.db.rlock(ctx)()
	if off, ok := repo.db.t.offerings[id]; ok {
		return repo.withSubject(off), nil
	}
	return curriculum.Offering{}, curriculum.ErrOfferingNotFound
}

func (repo *curriculumRepository) ListOfferings(ctx context.Context, f curriculum.OfferingFilter) ([]curriculum.Offering, error) {
	defer repo.db.rlock(ctx)()
	offs := make([]curriculum.Offering, 0)
	for _, off := range repo.db.t.offerings {
		if (f.LevelID == 0 || off.LevelID == f.LevelID) && (f.Semester == 0 || off.Semester == f.Semester) {
			offs = append(offs, repo.withSubject(off))
		}
	}
	sort.Slice(offs, func(i, j int) bool {
		if offs[i].Subject.Name != offs[j].Subject.Name {
			return offs[i].Subject.Name < offs[j].Subject.Name
		}
		return offs[i].ID < offs[j].ID
	})
	return offs, nil
}

func (repo *curriculumRepository) CreateOffering(ctx context.Context, off curriculum.Offering) (curriculum.Offering, error) {
	defer repo.db.lock(ctx)()
	if _, ok := repo.db.t.subjects[off.SubjectID]; !ok {
		return curriculum.Offering{}, curriculum.ErrSubjectNotFound
	}
	for _, o := range repo.db.t.offerings {
		if o.SubjectID == off.SubjectID && o.LevelID == off.LevelID && o.Semester == off.Semester {
			return repo.withSubject(o), nil
		}
	}
	off.ID = repo.db.t.nextPK()
	off.Subject = curriculum.Subject{}
	repo.db.t.offerings[off.ID] = off
	return repo.withSubject(off), nil
}
