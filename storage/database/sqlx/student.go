package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/ident"
	"github.com/trezcool/pondok/core/student"
)

const studentColumns = `id, first_name, last_name, first_name_en, last_name_en, first_name_ar, last_name_ar,
	date_of_birth, national_id, gender, special_status, study_status, exam_unit, delete_status,
	profile_image, address_id, created_at, updated_at`

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) MaxSequence(ctx context.Context, prefix string) (int, error) {
	return maxSequence(ctx, repo.db, "students", prefix)
}

// maxSequence reads the highest sequence of the IDs of table starting with prefix.
func maxSequence(ctx context.Context, db *DB, table, prefix string) (int, error) {
	var ids []string
	q := fmt.Sprintf(`SELECT id FROM %s WHERE id LIKE $1 || '%%' AND length(id) = $2`, table)
	if err := db.selectAll(ctx, &ids, q, prefix, len(prefix)+ident.SequenceLen); err != nil {
		return 0, errors.Wrap(err, "selecting IDs")
	}
	last := 0
	for _, id := range ids {
		if seq, ok := ident.Sequence(prefix, id); ok && seq > last {
			last = seq
		}
	}
	return last, nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	q := `INSERT INTO students (` + studentColumns + `) VALUES (
		:id, :first_name, :last_name, :first_name_en, :last_name_en, :first_name_ar, :last_name_ar,
		:date_of_birth, :national_id, :gender, :special_status, :study_status, :exam_unit, :delete_status,
		:profile_image, :address_id, :created_at, :updated_at)`
	err := repo.db.savepoint(ctx, func() error {
		_, err := repo.db.namedExec(ctx, q, s)
		return err
	})
	if err != nil {
		switch {
		case uniqueViolated(err, "students_pkey"):
			return student.Student{}, ident.ErrConflict
		case uniqueViolated(err, "students_national_id_key"):
			return student.Student{}, student.ErrNationalIDExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return s, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, id string) (student.Student, error) {
	var s student.Student
	err := repo.db.get(ctx, &s, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	return s, notFound(err, student.ErrNotFound)
}

func (repo *studentRepository) GetStudentByNationalID(ctx context.Context, nationalID string) (student.Student, error) {
	var s student.Student
	err := repo.db.get(ctx, &s, `SELECT `+studentColumns+` FROM students WHERE national_id = $1`, nationalID)
	return s, notFound(err, student.ErrNotFound)
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	q := `UPDATE students SET
		first_name = :first_name, last_name = :last_name,
		first_name_en = :first_name_en, last_name_en = :last_name_en,
		first_name_ar = :first_name_ar, last_name_ar = :last_name_ar,
		date_of_birth = :date_of_birth, national_id = :national_id, gender = :gender,
		special_status = :special_status, study_status = :study_status, exam_unit = :exam_unit,
		profile_image = :profile_image, address_id = :address_id, updated_at = :updated_at
		WHERE id = :id`
	n, err := affected(repo.db.namedExec(ctx, q, s))
	if err != nil {
		if uniqueViolated(err, "students_national_id_key") {
			return student.Student{}, student.ErrNationalIDExists
		}
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return s, nil
}

func (repo *studentRepository) SetDeleteStatus(ctx context.Context, id string, status student.DeleteStatus, at time.Time) error {
	n, err := affected(repo.db.exec(ctx, `UPDATE students SET delete_status = $1, updated_at = $2 WHERE id = $3`, status, at, id))
	if err != nil {
		return errors.Wrap(err, "updating delete status")
	}
	if n == 0 {
		return student.ErrNotFound
	}
	return nil
}

// studentWhere builds the conditions of a QueryFilter over students s, joined to enrolments e and current_semester cs.
func studentWhere(f student.QueryFilter) (string, []interface{}) {
	conds := []string{"s.delete_status = 'not_deleted'"}
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		conds = append(conds, fmt.Sprintf("(s.first_name ILIKE %s OR s.last_name ILIKE %s)", p, p))
	}
	if f.Gender != "" {
		conds = append(conds, "s.gender = "+arg(f.Gender))
	}
	if f.SpecialStatus != "" {
		conds = append(conds, "s.special_status = "+arg(f.SpecialStatus))
	}
	if f.StudyStatus != "" {
		conds = append(conds, "s.study_status = "+arg(f.StudyStatus))
	}
	if f.SchoolID != 0 {
		conds = append(conds, "e.school_id = "+arg(f.SchoolID))
	}
	if f.LevelID != 0 {
		conds = append(conds, "e.level_id = "+arg(f.LevelID))
	}
	if f.AcademicYear != 0 {
		conds = append(conds, "cs.year = "+arg(f.AcademicYear))
	}
	return strings.Join(conds, " AND "), args
}

const studentFrom = `FROM students s
	LEFT JOIN enrolments e ON e.student_id = s.id
	LEFT JOIN current_semester cs ON cs.id = e.semester_id`

func studentOrderBy(ords []core.DBOrdering) string {
	parts := make([]string, 0, len(ords)+1)
	for _, ord := range ords {
		parts = append(parts, "s."+ord.String())
	}
	return " ORDER BY " + strings.Join(append(parts, "s.id ASC"), ", ")
}

func (repo *studentRepository) QueryStudents(ctx context.Context, f student.QueryFilter, page core.Page) ([]student.Student, int, error) {
	where, args := studentWhere(f)

	var total int
	if err := repo.db.get(ctx, &total, `SELECT count(*) `+studentFrom+` WHERE `+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting students")
	}

	q := fmt.Sprintf(`SELECT %s %s WHERE %s%s LIMIT %d OFFSET %d`,
		prefixed("s", studentColumns), studentFrom, where, studentOrderBy(f.Ordering), page.Limit(), page.Offset())
	students := make([]student.Student, 0)
	if err := repo.db.selectAll(ctx, &students, q, args...); err != nil {
		return nil, 0, errors.Wrap(err, "selecting students")
	}
	return students, total, nil
}

func (repo *studentRepository) Stats(ctx context.Context, f student.QueryFilter) (student.Stats, error) {
	where, args := studentWhere(f)
	var rows []struct {
		Gender        string `db:"gender"`
		SpecialStatus string `db:"special_status"`
		Count         int    `db:"count"`
	}
	q := `SELECT s.gender, s.special_status, count(*) AS count ` + studentFrom + ` WHERE ` + where +
		` GROUP BY s.gender, s.special_status`
	if err := repo.db.selectAll(ctx, &rows, q, args...); err != nil {
		return student.Stats{}, errors.Wrap(err, "counting students")
	}

	st := student.Stats{BySpecialStatus: make(map[student.SpecialStatus]int)}
	for _, r := range rows {
		st.Total += r.Count
		switch core.Gender(r.Gender) {
		case core.GenderMale:
			st.Male += r.Count
		case core.GenderFemale:
			st.Female += r.Count
		}
		if ss := student.SpecialStatus(r.SpecialStatus); ss != student.SpecialNone {
			st.BySpecialStatus[ss] += r.Count
		}
	}
	return st, nil
}
