package sqlxrepos

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"

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

const markColumns = `id, student_id, offering_id, academic_year, semester, category, obtained, updated_at`

func (repo *markRepository) GetMark(ctx context.Context, studentID string, offeringID, academicYear int) (grading.Mark, error) {
	var m grading.Mark
	q := `SELECT ` + markColumns + ` FROM marks WHERE student_id = $1 AND offering_id = $2 AND academic_year = $3`
	err := repo.db.get(ctx, &m, q, studentID, offeringID, academicYear)
	return m, notFound(err, grading.ErrNotGraded)
}

func (repo *markRepository) UpsertMark(ctx context.Context, m grading.Mark) (grading.Mark, error) {
	q := `INSERT INTO marks (` + markColumns + `)
		VALUES (:id, :student_id, :offering_id, :academic_year, :semester, :category, :obtained, :updated_at)
		ON CONFLICT (student_id, offering_id, academic_year) DO UPDATE SET
			semester = EXCLUDED.semester, category = EXCLUDED.category,
			obtained = EXCLUDED.obtained, updated_at = EXCLUDED.updated_at
		RETURNING ` + markColumns
	var saved grading.Mark
	err := repo.db.namedGet(ctx, &saved, q, m)
	return saved, errors.Wrap(err, "upserting mark")
}

func (repo *markRepository) ListMarks(ctx context.Context, f grading.MarkFilter) ([]grading.Mark, error) {
	q := `SELECT ` + markColumns + ` FROM marks
		WHERE (cardinality($1::text[]) = 0 OR student_id = ANY($1))
		AND ($2 = 0 OR academic_year = $2)
		AND ($3 = 0 OR semester = $3)
		AND ($4 = 0 OR category = $4)
		ORDER BY student_id, offering_id`
	marks := make([]grading.Mark, 0)
	ids := f.StudentIDs
	if ids == nil {
		ids = []string{}
	}
	err := repo.db.selectAll(ctx, &marks, q, pq.Array(ids), f.AcademicYear, f.Semester, int(f.Category))
	return marks, errors.Wrap(err, "selecting marks")
}

func (repo *markRepository) PurgeMarks(ctx context.Context, sem, academicYear int) (int, error) {
	n, err := affected(repo.db.exec(ctx, `DELETE FROM marks WHERE semester = $1 AND academic_year = $2`, sem, academicYear))
	return n, errors.Wrap(err, "purging marks")
}

type historyRepository struct {
	db *DB
}

var _ grading.HistoryRepository = (*historyRepository)(nil) // interface compliance check

func NewHistoryRepository(db *DB) *historyRepository {
	return &historyRepository{db: db}
}

const historyColumns = `id, student_id, student_name, school_name, level_name, academic_year, category,
	total_marks, obtained_marks, grade_percentage, subject_marks, verdict, updated_at`

// historyRow stores the subject marks as a JSON object.
type historyRow struct {
	grading.History
	SubjectMarksJSON types.JSONText `db:"subject_marks"`
}

func toHistoryRow(h grading.History) (historyRow, error) {
	marks := h.SubjectMarks
	if marks == nil {
		marks = map[string]int{}
	}
	b, err := json.Marshal(marks)
	return historyRow{History: h, SubjectMarksJSON: b}, err
}

func (r historyRow) history() (grading.History, error) {
	h := r.History
	h.SubjectMarks = make(map[string]int)
	if err := r.SubjectMarksJSON.Unmarshal(&h.SubjectMarks); err != nil {
		return grading.History{}, errors.Wrap(err, "decoding subject marks")
	}
	return h, nil
}

func (repo *historyRepository) UpsertHistory(ctx context.Context, h grading.History) (grading.History, error) {
	row, err := toHistoryRow(h)
	if err != nil {
		return grading.History{}, errors.Wrap(err, "encoding subject marks")
	}
	q := `INSERT INTO grade_history (` + historyColumns + `) VALUES (
			:id, :student_id, :student_name, :school_name, :level_name, :academic_year, :category,
			:total_marks, :obtained_marks, :grade_percentage, :subject_marks, :verdict, :updated_at)
		ON CONFLICT (student_id, academic_year, category) DO UPDATE SET
			student_name = EXCLUDED.student_name, school_name = EXCLUDED.school_name,
			level_name = EXCLUDED.level_name, total_marks = EXCLUDED.total_marks,
			obtained_marks = EXCLUDED.obtained_marks, grade_percentage = EXCLUDED.grade_percentage,
			subject_marks = EXCLUDED.subject_marks, verdict = EXCLUDED.verdict, updated_at = EXCLUDED.updated_at
		RETURNING ` + historyColumns
	var saved historyRow
	if err := repo.db.namedGet(ctx, &saved, q, row); err != nil {
		return grading.History{}, errors.Wrap(err, "upserting history")
	}
	return saved.history()
}

func (repo *historyRepository) FindHistory(ctx context.Context, studentID string, academicYear int, category curriculum.Category) (grading.History, error) {
	var row historyRow
	q := `SELECT ` + historyColumns + ` FROM grade_history WHERE student_id = $1 AND academic_year = $2 AND category = $3`
	if err := repo.db.get(ctx, &row, q, studentID, academicYear, int(category)); err != nil {
		return grading.History{}, notFound(err, grading.ErrHistoryNotFound)
	}
	return row.history()
}

func (repo *historyRepository) ListDistinctYears(ctx context.Context, studentID string) ([]int, error) {
	years := make([]int, 0)
	q := `SELECT DISTINCT academic_year FROM grade_history WHERE ($1 = '' OR student_id = $1) ORDER BY academic_year DESC`
	err := repo.db.selectAll(ctx, &years, q, studentID)
	return years, errors.Wrap(err, "selecting years")
}

func (repo *historyRepository) QueryHistory(ctx context.Context, f grading.HistoryFilter) ([]grading.History, error) {
	q := `SELECT ` + historyColumns + ` FROM grade_history
		WHERE ($1 = '' OR student_id = $1)
		AND ($2 = '' OR school_name = $2)
		AND ($3 = '' OR level_name = $3)
		AND ($4 = 0 OR academic_year = $4)
		AND ($5 = 0 OR category = $5)
		ORDER BY school_name, level_name, student_name, student_id, academic_year DESC, category`
	var rows []historyRow
	if err := repo.db.selectAll(ctx, &rows, q, f.StudentID, f.SchoolName, f.LevelName, f.AcademicYear, int(f.Category)); err != nil {
		return nil, errors.Wrap(err, "selecting history")
	}
	hs := make([]grading.History, 0, len(rows))
	for _, r := range rows {
		h, err := r.history()
		if err != nil {
			return nil, err
		}
		hs = append(hs, h)
	}
	return hs, nil
}
