package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/school"
	"github.com/trezcool/pondok/core/semester"
)

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) ListSchools(ctx context.Context) ([]school.School, error) {
	defer repo.db.rlock(ctx)()
	schools := make([]school.School, 0, len(repo.db.t.schools))
	for _, s := range repo.db.t.schools {
		schools = append(schools, s)
	}
	sort.Slice(schools, func(i, j int) bool { return schools[i].Name < schools[j].Name })
	return schools, nil
}

func (repo *schoolRepository) GetSchool(ctx context.Context, id int) (school.School, error) {
	defer repo.db.rlock(ctx)()
	if s, ok := repo.db.t.schools[id]; ok {
		return s, nil
	}
	return school.School{}, school.ErrNotFound
}

func (repo *schoolRepository) GetSchoolByName(ctx context.Context, name string) (school.School, error) {
	defer repo.db.rlock(ctx)()
	for _, s := range repo.db.t.schools {
		if s.Name == name {
			return s, nil
		}
	}
	return school.School{}, school.ErrNotFound
}

func (repo *schoolRepository) CreateSchool(ctx context.Context, s school.School) (school.School, error) {
	defer repo.db.lock(ctx)()
	for _, other := range repo.db.t.schools {
		if other.Name == s.Name {
			return other, nil
		}
	}
	s.ID = repo.db.t.nextPK()
	repo.db.t.schools[s.ID] = s
	return s, nil
}

func (repo *schoolRepository) ListLevels(ctx context.Context) ([]school.Level, error) {
	defer repo.db.rlock(ctx)()
	levels := make([]school.Level, 0, len(repo.db.t.levels))
	for _, l := range repo.db.t.levels {
		levels = append(levels, l)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].ID < levels[j].ID })
	return levels, nil
}

func (repo *schoolRepository) GetLevel(ctx context.Context, id int) (school.Level, error) {
	defer repo.db.rlock(ctx)()
	if l, ok := repo.db.t.levels[id]; ok {
		return l, nil
	}
	return school.Level{}, school.ErrLevelNotFound
}

func (repo *schoolRepository) GetLevelByName(ctx context.Context, name string) (school.Level, error) {
	defer repo.db.rlock(ctx)()
	for _, l := range repo.db.t.levels {
		if l.Name == name {
			return l, nil
		}
	}
	return school.Level{}, school.ErrLevelNotFound
}

func (repo *schoolRepository) CreateLevel(ctx context.Context, l school.Level) (school.Level, error) {
	defer repo.db.lock(ctx)()
	l.ID = repo.db.t.nextPK()
	repo.db.t.levels[l.ID] = l
	return l, nil
}

func (repo *schoolRepository) GetEnrolment(ctx context.Context, studentID string) (school.Enrolment, error) {
	defer repo.db.rlock(ctx)()
	if e, ok := repo.db.t.enrolments[studentID]; ok {
		return e, nil
	}
	return school.Enrolment{}, school.ErrEnrolmentNotFound
}

func (repo *schoolRepository) SaveEnrolment(ctx context.Context, e school.Enrolment) (school.Enrolment, error) {
	defer repo.db.lock(ctx)()
	repo.db.t.enrolments[e.StudentID] = e
	return e, nil
}

func (repo *schoolRepository) ListEnrolments(ctx context.Context, schoolID, levelID int) ([]school.Enrolment, error) {
	defer repo.db.rlock(ctx)()
	var out []school.Enrolment
	for _, e := range repo.db.t.enrolments {
		if (schoolID == 0 || e.SchoolID == schoolID) && (levelID == 0 || e.LevelID == levelID) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

func (repo *schoolRepository) ApplySemester(ctx context.Context, semesterID int) (int, error) {
	defer repo.db.lock(ctx)()
	for id, e := range repo.db.t.enrolments {
		e.SemesterID = semesterID
		repo.db.t.enrolments[id] = e
	}
	return len(repo.db.t.enrolments), nil
}

type semesterRepository struct {
	db *DB
}

var _ semester.Repository = (*semesterRepository)(nil) // interface compliance check

func NewSemesterRepository(db *DB) *semesterRepository {
	return &semesterRepository{db: db}
}

func (repo *semesterRepository) Get(ctx context.Context) (semester.Semester, error) {
	defer repo.db.rlock(ctx)()
	if repo.db.t.semester == nil {
		return semester.Semester{}, semester.ErrNotConfigured
	}
	return *repo.db.t.semester, nil
}

func (repo *semesterRepository) Create(ctx context.Context, sem semester.Semester) (semester.Semester, error) {
	defer repo.db.lock(ctx)()
	if repo.db.t.semester != nil {
		return semester.Semester{}, core.ErrSingleton
	}
	sem.ID = repo.db.t.nextPK()
	repo.db.t.semester = &sem
	return sem, nil
}

func (repo *semesterRepository) Update(ctx context.Context, sem semester.Semester) (semester.Semester, error) {
	defer repo.db.lock(ctx)()
	if repo.db.t.semester == nil || repo.db.t.semester.ID != sem.ID {
		return semester.Semester{}, semester.ErrNotConfigured
	}
	repo.db.t.semester = &sem
	return sem, nil
}
