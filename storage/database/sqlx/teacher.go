package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/pondok/core/ident"
	"github.com/trezcool/pondok/core/teacher"
)

const teacherColumns = `id, first_name, last_name, date_of_birth, national_id, gender, subject_name, status,
	password_hash, created_at, updated_at`

type teacherRepository struct {
	db *DB
}

var _ teacher.Repository = (*teacherRepository)(nil) // interface compliance check

func NewTeacherRepository(db *DB) *teacherRepository {
	return &teacherRepository{db: db}
}

func (repo *teacherRepository) MaxSequence(ctx context.Context, prefix string) (int, error) {
	return maxSequence(ctx, repo.db, "teachers", prefix)
}

func (repo *teacherRepository) CreateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	q := `INSERT INTO teachers (` + teacherColumns + `) VALUES (
		:id, :first_name, :last_name, :date_of_birth, :national_id, :gender, :subject_name, :status,
		:password_hash, :created_at, :updated_at)`
	err := repo.db.savepoint(ctx, func() error {
		_, err := repo.db.namedExec(ctx, q, t)
		return err
	})
	if err != nil {
		switch {
		case uniqueViolated(err, "teachers_pkey"):
			return teacher.Teacher{}, ident.ErrConflict
		case uniqueViolated(err, "teachers_national_id_key"):
			return teacher.Teacher{}, teacher.ErrNationalIDExists
		}
		return teacher.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	return t, nil
}

func (repo *teacherRepository) GetTeacher(ctx context.Context, id string) (teacher.Teacher, error) {
	var t teacher.Teacher
	err := repo.db.get(ctx, &t, `SELECT `+teacherColumns+` FROM teachers WHERE id = $1`, id)
	return t, notFound(err, teacher.ErrNotFound)
}

func (repo *teacherRepository) QueryTeachers(ctx context.Context, f teacher.QueryFilter) ([]teacher.Teacher, error) {
	q := `SELECT ` + teacherColumns + ` FROM teachers
		WHERE ($1 = '' OR first_name ILIKE '%' || $1 || '%' OR last_name ILIKE '%' || $1 || '%')
		AND ($2 = '' OR status = $2)
		ORDER BY id`
	teachers := make([]teacher.Teacher, 0)
	if err := repo.db.selectAll(ctx, &teachers, q, f.Search, string(f.Status)); err != nil {
		return nil, errors.Wrap(err, "selecting teachers")
	}
	return teachers, nil
}

func (repo *teacherRepository) UpdateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	q := `UPDATE teachers SET
		first_name = :first_name, last_name = :last_name, date_of_birth = :date_of_birth,
		national_id = :national_id, subject_name = :subject_name, status = :status,
		password_hash = :password_hash, updated_at = :updated_at
		WHERE id = :id`
	n, err := affected(repo.db.namedExec(ctx, q, t))
	if err != nil {
		if uniqueViolated(err, "teachers_national_id_key") {
			return teacher.Teacher{}, teacher.ErrNationalIDExists
		}
		return teacher.Teacher{}, errors.Wrap(err, "updating teacher")
	}
	if n == 0 {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	return t, nil
}
