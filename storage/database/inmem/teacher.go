package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/pondok/core/ident"
	"github.com/trezcool/pondok/core/teacher"
)

type teacherRepository struct {
	db *DB
}

var _ teacher.Repository = (*teacherRepository)(nil) // interface compliance check

func NewTeacherRepository(db *DB) *teacherRepository {
	return &teacherRepository{db: db}
}

func (repo *teacherRepository) MaxSequence(ctx context.Context, prefix string) (int, error) {
	defer repo.db.rlock(ctx)()
	last := 0
	for id := range repo.db.t.teachers {
		if seq, ok := ident.Sequence(prefix, id); ok && seq > last {
			last = seq
		}
	}
	return last, nil
}

func (repo *teacherRepository) nationalIDTaken(t teacher.Teacher) bool {
	if !t.NationalID.Valid {
		return false
	}
	for _, other := range repo.db.t.teachers {
		if other.ID != t.ID && other.NationalID.Valid && other.NationalID.String == t.NationalID.String {
			return true
		}
	}
	return false
}

func (repo *teacherRepository) CreateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	defer repo.db.lock(ctx)()
	if _, ok := repo.db.t.teachers[t.ID]; ok {
		return teacher.Teacher{}, ident.ErrConflict
	}
	if repo.nationalIDTaken(t) {
		return teacher.Teacher{}, teacher.ErrNationalIDExists
	}
	repo.db.t.teachers[t.ID] = t
	return t, nil
}

func (repo *teacherRepository) GetTeacher(ctx context.Context, id string) (teacher.Teacher, error) {
	defer repo.db.rlock(ctx)()
	if t, ok := repo.db.t.teachers[id]; ok {
		return t, nil
	}
	return teacher.Teacher{}, teacher.ErrNotFound
}

func (repo *teacherRepository) QueryTeachers(ctx context.Context, f teacher.QueryFilter) ([]teacher.Teacher, error) {
	defer repo.db.rlock(ctx)()
	teachers := make([]teacher.Teacher, 0, len(repo.db.t.teachers))
	for _, t := range repo.db.t.teachers {
		if f.Search != "" && !containsFold(t.FirstName, f.Search) && !containsFold(t.LastName, f.Search) {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		teachers = append(teachers, t)
	}
	sort.Slice(teachers, func(i, j int) bool { return teachers[i].ID < teachers[j].ID })
	return teachers, nil
}

func (repo *teacherRepository) UpdateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	defer repo.db.lock(ctx)()
	if _, ok := repo.db.t.teachers[t.ID]; !ok {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	if repo.nationalIDTaken(t) {
		return teacher.Teacher{}, teacher.ErrNationalIDExists
	}
	repo.db.t.teachers[t.ID] = t
	return t, nil
}
