package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

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
	schools := make([]school.School, 0)
	err := repo.db.selectAll(ctx, &schools, `SELECT id, name, name_en, education_district FROM schools ORDER BY name`)
	return schools, errors.Wrap(err, "selecting schools")
}

func (repo *schoolRepository) GetSchool(ctx context.Context, id int) (school.School, error) {
	var s school.School
	err := repo.db.get(ctx, &s, `SELECT id, name, name_en, education_district FROM schools WHERE id = $1`, id)
	return s, notFound(err, school.ErrNotFound)
}

func (repo *schoolRepository) GetSchoolByName(ctx context.Context, name string) (school.School, error) {
	var s school.School
	err := repo.db.get(ctx, &s, `SELECT id, name, name_en, education_district FROM schools WHERE name = $1`, name)
	return s, notFound(err, school.ErrNotFound)
}

// CreateSchool returns the existing school when the name is taken.
func (repo *schoolRepository) CreateSchool(ctx context.Context, s school.School) (school.School, error) {
	q := `INSERT INTO schools (name, name_en, education_district) VALUES (:name, :name_en, :education_district)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, name_en, education_district`
	var created school.School
	err := repo.db.namedGet(ctx, &created, q, s)
	return created, errors.Wrap(err, "inserting school")
}

func (repo *schoolRepository) ListLevels(ctx context.Context) ([]school.Level, error) {
	levels := make([]school.Level, 0)
	err := repo.db.selectAll(ctx, &levels, `SELECT id, name FROM levels ORDER BY id`)
	return levels, errors.Wrap(err, "selecting levels")
}

func (repo *schoolRepository) GetLevel(ctx context.Context, id int) (school.Level, error) {
	var l school.Level
	err := repo.db.get(ctx, &l, `SELECT id, name FROM levels WHERE id = $1`, id)
	return l, notFound(err, school.ErrLevelNotFound)
}

func (repo *schoolRepository) GetLevelByName(ctx context.Context, name string) (school.Level, error) {
	var l school.Level
	err := repo.db.get(ctx, &l, `SELECT id, name FROM levels WHERE name = $1`, name)
	return l, notFound(err, school.ErrLevelNotFound)
}

func (repo *schoolRepository) CreateLevel(ctx context.Context, l school.Level) (school.Level, error) {
	err := repo.db.get(ctx, &l.ID, `INSERT INTO levels (name) VALUES ($1) RETURNING id`, l.Name)
	return l, errors.Wrap(err, "inserting level")
}

const enrolmentColumns = `student_id, school_id, level_id, semester_id, updated_at`

func (repo *schoolRepository) GetEnrolment(ctx context.Context, studentID string) (school.Enrolment, error) {
	var e school.Enrolment
	err := repo.db.get(ctx, &e, `SELECT `+enrolmentColumns+` FROM enrolments WHERE student_id = $1`, studentID)
	return e, notFound(err, school.ErrEnrolmentNotFound)
}

func (repo *schoolRepository) SaveEnrolment(ctx context.Context, e school.Enrolment) (school.Enrolment, error) {
	q := `INSERT INTO enrolments (` + enrolmentColumns + `)
		VALUES (:student_id, :school_id, :level_id, :semester_id, :updated_at)
		ON CONFLICT (student_id) DO UPDATE SET
			school_id = EXCLUDED.school_id, level_id = EXCLUDED.level_id,
			semester_id = EXCLUDED.semester_id, updated_at = EXCLUDED.updated_at`
	_, err := repo.db.namedExec(ctx, q, e)
	return e, errors.Wrap(err, "saving enrolment")
}

func (repo *schoolRepository) ListEnrolments(ctx context.Context, schoolID, levelID int) ([]school.Enrolment, error) {
	q := `SELECT ` + enrolmentColumns + ` FROM enrolments
		WHERE ($1 = 0 OR school_id = $1) AND ($2 = 0 OR level_id = $2)
		ORDER BY student_id`
	enrolments := make([]school.Enrolment, 0)
	err := repo.db.selectAll(ctx, &enrolments, q, schoolID, levelID)
	return enrolments, errors.Wrap(err, "selecting enrolments")
}

func (repo *schoolRepository) ApplySemester(ctx context.Context, semesterID int) (int, error) {
	n, err := affected(repo.db.exec(ctx, `UPDATE enrolments SET semester_id = $1, updated_at = now()`, semesterID))
	return n, errors.Wrap(err, "updating enrolments")
}

type semesterRepository struct {
	db *DB
}

var _ semester.Repository = (*semesterRepository)(nil) // interface compliance check

func NewSemesterRepository(db *DB) *semesterRepository {
	return &semesterRepository{db: db}
}

const semesterColumns = `id, semester, year, version, updated_at`

func (repo *semesterRepository) Get(ctx context.Context) (semester.Semester, error) {
	var sem semester.Semester
	err := repo.db.get(ctx, &sem, `SELECT `+semesterColumns+` FROM current_semester LIMIT 1`)
	return sem, notFound(err, semester.ErrNotConfigured)
}

func (repo *semesterRepository) Create(ctx context.Context, sem semester.Semester) (semester.Semester, error) {
	q := `INSERT INTO current_semester (semester, year, version, updated_at)
		VALUES (:semester, :year, :version, :updated_at)
		RETURNING ` + semesterColumns
	var created semester.Semester
	if err := repo.db.namedGet(ctx, &created, q, sem); err != nil {
		if uniqueViolated(err, "current_semester_singleton_key") {
			return semester.Semester{}, core.ErrSingleton
		}
		return semester.Semester{}, errors.Wrap(err, "inserting semester")
	}
	return created, nil
}

func (repo *semesterRepository) Update(ctx context.Context, sem semester.Semester) (semester.Semester, error) {
	q := `UPDATE current_semester SET semester = :semester, year = :year, version = :version, updated_at = :updated_at
		WHERE id = :id`
	n, err := affected(repo.db.namedExec(ctx, q, sem))
	if err != nil {
		return semester.Semester{}, errors.Wrap(err, "updating semester")
	}
	if n == 0 {
		return semester.Semester{}, semester.ErrNotConfigured
	}
	return sem, nil
}
