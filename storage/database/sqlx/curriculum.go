package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/pondok/core/curriculum"
)

type curriculumRepository struct {
	db *DB
}

var _ curriculum.Repository = (*curriculumRepository)(nil) // interface compliance check

func NewCurriculumRepository(db *DB) *curriculumRepository {
	return &curriculumRepository{db: db}
}

const subjectColumns = `id, name, total_marks, category`

func (repo *curriculumRepository) ListSubjects(ctx context.Context, category curriculum.Category) ([]curriculum.Subject, error) {
	subs := make([]curriculum.Subject, 0)
	q := `SELECT ` + subjectColumns + ` FROM subjects WHERE ($1 = 0 OR category = $1) ORDER BY name`
	err := repo.db.selectAll(ctx, &subs, q, int(category))
	return subs, errors.Wrap(err, "selecting subjects")
}

func (repo *curriculumRepository) GetSubject(ctx context.Context, id int) (curriculum.Subject, error) {
	var s curriculum.Subject
	err := repo.db.get(ctx, &s, `SELECT `+subjectColumns+` FROM subjects WHERE id = $1`, id)
	return s, notFound(err, curriculum.ErrSubjectNotFound)
}

func (repo *curriculumRepository) GetSubjectByName(ctx context.Context, name string) (curriculum.Subject, error) {
	var s curriculum.Subject
	err := repo.db.get(ctx, &s, `SELECT `+subjectColumns+` FROM subjects WHERE name = $1`, name)
	return s, notFound(err, curriculum.ErrSubjectNotFound)
}

func (repo *curriculumRepository) CreateSubject(ctx context.Context, sub curriculum.Subject) (curriculum.Subject, error) {
	q := `INSERT INTO subjects (name, total_marks, category) VALUES ($1, $2, $3) RETURNING id`
	if err := repo.db.get(ctx, &sub.ID, q, sub.Name, sub.TotalMarks, int(sub.Category)); err != nil {
		if uniqueViolated(err, "subjects_name_key") {
			return curriculum.Subject{}, curriculum.ErrSubjectExists
		}
		return curriculum.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return sub, nil
}

const offeringSelect = `SELECT o.id, o.subject_id, o.level_id, o.semester,
		s.id AS "subject.id", s.name AS "subject.name",
		s.total_marks AS "subject.total_marks", s.category AS "subject.category"
	FROM offerings o JOIN subjects s ON s.id = o.subject_id`

func (repo *curriculumRepository) GetOffering(ctx context.Context, id int) (curriculum.Offering, error) {
	var off curriculum.Offering
	err := repo.db.get(ctx, &off, offeringSelect+` WHERE o.id = $1`, id)
	return off, notFound(err, curriculum.ErrOfferingNotFound)
}

func (repo *curriculumRepository) ListOfferings(ctx context.Context, f curriculum.OfferingFilter) ([]curriculum.Offering, error) {
	offs := make([]curriculum.Offering, 0)
	q := offeringSelect + ` WHERE ($1 = 0 OR o.level_id = $1) AND ($2 = 0 OR o.semester = $2) ORDER BY s.name, o.id`
	err := repo.db.selectAll(ctx, &offs, q, f.LevelID, f.Semester)
	return offs, errors.Wrap(err, "selecting offerings")
}

func (repo *curriculumRepository) CreateOffering(ctx context.Context, off curriculum.Offering) (curriculum.Offering, error) {
	q := `INSERT INTO offerings (subject_id, level_id, semester) VALUES ($1, $2, $3)
		ON CONFLICT (subject_id, level_id, semester) DO UPDATE SET semester = EXCLUDED.semester
		RETURNING id`
	var id int
	if err := repo.db.get(ctx, &id, q, off.SubjectID, off.LevelID, off.Semester); err != nil {
		if violated(err, foreignKeyViolation) {
			return curriculum.Offering{}, curriculum.ErrSubjectNotFound
		}
		return curriculum.Offering{}, errors.Wrap(err, "inserting offering")
	}
	return repo.GetOffering(ctx, id)
}
