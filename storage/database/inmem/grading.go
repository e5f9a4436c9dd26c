package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/pondok/core/curriculum"
	"github.com/trezcool/pondok/core/grading"
	"github.com/trezcool/pondok/core/semester"
)

type markRepository struct {
	db *DB
}

var (
	_ grading.MarkRepository = (*markRepository)(nil) // interface compliance check
	_ semester.MarkPurger    = (*markRepository)(nil)
)

func NewMarkRepository(db *DB) *markRepository {
	return &markRepository{db: db}
}

func (repo *markRepository) GetMark(ctx context.Context, studentID string, offeringID, academicYear int) (grading.Mark, error) {
	defer repo.db.rlock(ctx)()
	if m, ok := repo.db.t.marks[markKey{studentID, offeringID, academicYear}]; ok {
		return m, nil
	}
	return grading.Mark{}, grading.ErrNotGraded
}

func (repo *markRepository) UpsertMark(ctx context.Context, m grading.Mark) (grading.Mark, error) {
	defer repo.db.lock(ctx)()
	key := markKey{m.StudentID, m.OfferingID, m.AcademicYear}
	if prev, ok := repo.db.t.marks[key]; ok {
		m.ID = prev.ID
	}
	repo.db.t.marks[key] = m
	return m, nil
}

func (repo *markRepository) ListMarks(ctx context.Context, f grading.MarkFilter) ([]grading.Mark, error) {
	defer repo.db.rlock(ctx)()
	students := make(map[string]bool, len(f.StudentIDs))
	for _, id := range f.StudentIDs {
		students[id] = true
	}

	var marks []grading.Mark
	for _, m := range repo.db.t.marks {
		if len(students) > 0 && !students[m.StudentID] {
			continue
		}
		if (f.AcademicYear != 0 && m.AcademicYear != f.AcademicYear) || (f.Semester != 0 && m.Semester != f.Semester) {
			continue
		}
		if !f.Category.Matches(m.Category) {
			continue
		}
		marks = append(marks, m)
	}
	sort.Slice(marks, func(i, j int) bool {
		if marks[i].StudentID != marks[j].StudentID {
			return marks[i].StudentID < marks[j].StudentID
		}
		return marks[i].OfferingID < marks[j].OfferingID
	})
	return marks, nil
}

func (repo *markRepository) PurgeMarks(ctx context.Context, sem, academicYear int) (int, error) {
	defer repo.db.lock(ctx)()
	n := 0
	for k, m := range repo.db.t.marks {
		if m.Semester == sem && m.AcademicYear == academicYear {
			delete(repo.db.t.marks, k)
			n++
		}
	}
	return n, nil
}

type historyRepository struct {
	db *DB
}

var _ grading.HistoryRepository = (*historyRepository)(nil) // interface compliance check

func NewHistoryRepository(db *DB) *historyRepository {
	return &historyRepository{db: db}
}

func (repo *historyRepository) UpsertHistory(ctx context.Context, h grading.History) (grading.History, error) {
	defer repo.db.lock(ctx)()
	key := historyKey{h.StudentID, h.AcademicYear, h.Category}
	if prev, ok := repo.db.t.history[key]; ok {
		h.ID = prev.ID
	}
	repo.db.t.history[key] = copyHistory(h)
	return h, nil
}

func (repo *historyRepository) FindHistory(ctx context.Context, studentID string, academicYear int, category curriculum.Category) (grading.History, error) {
	defer repo.db.rlock(ctx)()
	if h, ok := repo.db.t.history[historyKey{studentID, academicYear, category}]; ok {
		return copyHistory(h), nil
	}
	return grading.History{}, grading.ErrHistoryNotFound
}

func (repo *historyRepository) ListDistinctYears(ctx context.Context, studentID string) ([]int, error) {
	defer repo.db.rlock(ctx)()
	seen := make(map[int]bool)
	years := make([]int, 0)
	for k := range repo.db.t.history {
		if (studentID == "" || k.studentID == studentID) && !seen[k.academicYear] {
			seen[k.academicYear] = true
			years = append(years, k.academicYear)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}

func (repo *historyRepository) QueryHistory(ctx context.Context, f grading.HistoryFilter) ([]grading.History, error) {
	defer repo.db.rlock(ctx)()
	var hs []grading.History
	for _, h := range repo.db.t.history {
		if (f.StudentID != "" && h.StudentID != f.StudentID) ||
			(f.SchoolName != "" && h.SchoolName != f.SchoolName) ||
			(f.LevelName != "" && h.LevelName != f.LevelName) ||
			(f.AcademicYear != 0 && h.AcademicYear != f.AcademicYear) ||
			(f.Category != curriculum.CategoryAll && h.Category != f.Category) {
			continue
		}
		hs = append(hs, copyHistory(h))
	}
	sort.Slice(hs, func(i, j int) bool {
		a, b := hs[i], hs[j]
		switch {
		case a.SchoolName != b.SchoolName:
			return a.SchoolName < b.SchoolName
		case a.LevelName != b.LevelName:
			return a.LevelName < b.LevelName
		case a.StudentName != b.StudentName:
			return a.StudentName < b.StudentName
		case a.StudentID != b.StudentID:
			return a.StudentID < b.StudentID
		case a.AcademicYear != b.AcademicYear:
			return a.AcademicYear > b.AcademicYear
		}
		return a.Category < b.Category
	})
	return hs, nil
}
