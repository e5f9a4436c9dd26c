package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/ident"
	"github.com/trezcool/pondok/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) MaxSequence(ctx context.Context, prefix string) (int, error) {
	defer repo.db.rlock(ctx)()
	last := 0
	for id := range repo.db.t.students {
		if seq, ok := ident.Sequence(prefix, id); ok && seq > last {
			last = seq
		}
	}
	return last, nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	defer repo.db.lock(ctx)()
	if _, ok := repo.db.t.students[s.ID]; ok {
		return student.Student{}, ident.ErrConflict
	}
	for _, other := range repo.db.t.students {
		if other.NationalID == s.NationalID {
			return student.Student{}, student.ErrNationalIDExists
		}
	}
	repo.db.t.students[s.ID] = s
	return s, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, id string) (student.Student, error) {
	defer repo.db.rlock(ctx)()
	if s, ok := repo.db.t.students[id]; ok {
		return s, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) GetStudentByNationalID(ctx context.Context, nationalID string) (student.Student, error) {
	defer repo.db.rlock(ctx)()
	for _, s := range repo.db.t.students {
		if s.NationalID == nationalID {
			return s, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	defer repo.db.lock(ctx)()
	if _, ok := repo.db.t.students[s.ID]; !ok {
		return student.Student{}, student.ErrNotFound
	}
	for _, other := range repo.db.t.students {
		if other.ID != s.ID && other.NationalID == s.NationalID {
			return student.Student{}, student.ErrNationalIDExists
		}
	}
	repo.db.t.students[s.ID] = s
	return s, nil
}

func (repo *studentRepository) SetDeleteStatus(ctx context.Context, id string, status student.DeleteStatus, at time.Time) error {
	defer repo.db.lock(ctx)()
	s, ok := repo.db.t.students[id]
	if !ok {
		return student.ErrNotFound
	}
	s.DeleteStatus = status
	s.UpdatedAt = at
	repo.db.t.students[id] = s
	return nil
}

func (repo *studentRepository) filter(f student.QueryFilter) []student.Student {
	t := repo.db.t
	var out []student.Student
	for _, s := range t.students {
		if s.IsDeleted() {
			continue
		}
		if f.Search != "" && !containsFold(s.FirstName, f.Search) && !containsFold(s.LastName, f.Search) {
			continue
		}
		if f.Gender != "" && s.Gender != f.Gender {
			continue
		}
		if f.SpecialStatus != "" && s.SpecialStatus != f.SpecialStatus {
			continue
		}
		if f.StudyStatus != "" && s.StudyStatus != f.StudyStatus {
			continue
		}
		if f.SchoolID != 0 || f.LevelID != 0 || f.AcademicYear != 0 {
			enr, ok := t.enrolments[s.ID]
			if !ok {
				continue
			}
			if (f.SchoolID != 0 && enr.SchoolID != f.SchoolID) || (f.LevelID != 0 && enr.LevelID != f.LevelID) {
				continue
			}
			if f.AcademicYear != 0 && (t.semester == nil || t.semester.ID != enr.SemesterID || t.semester.Year != f.AcademicYear) {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

func less(a, b student.Student, ords []core.DBOrdering) bool {
	for _, ord := range ords {
		var x, y string
		switch ord.Field {
		case "first_name":
			x, y = a.FirstName, b.FirstName
		case "last_name":
			x, y = a.LastName, b.LastName
		case "created_at":
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt) == ord.Ascending
			}
			continue
		default:
			x, y = a.ID, b.ID
		}
		if x != y {
			return (x < y) == ord.Ascending
		}
	}
	return a.ID < b.ID
}

func (repo *studentRepository) QueryStudents(ctx context.Context, f student.QueryFilter, page core.Page) ([]student.Student, int, error) {
	defer repo.db.rlock(ctx)()
	students := repo.filter(f)
	sort.Slice(students, func(i, j int) bool { return less(students[i], students[j], f.Ordering) })

	start, end := page.Bounds(len(students))
	return students[start:end], len(students), nil
}

func (repo *studentRepository) Stats(ctx context.Context, f student.QueryFilter) (student.Stats, error) {
	defer repo.db.rlock(ctx)()
	st := student.Stats{BySpecialStatus: make(map[student.SpecialStatus]int)}
	for _, s := range repo.filter(f) {
		st.Count(s)
	}
	return st, nil
}
