package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/pondok/core/family"
)

type familyRepository struct {
	db *DB
}

var _ family.Repository = (*familyRepository)(nil) // interface compliance check

func NewFamilyRepository(db *DB) *familyRepository {
	return &familyRepository{db: db}
}

const parentColumns = `id, student_id, kind, first_name, last_name, date_of_birth, address_id, occupation, workplace,
	income, phone, relationship, updated_at`

func (repo *familyRepository) SaveParent(ctx context.Context, p family.Parent) (family.Parent, error) {
	q := `INSERT INTO parents (` + parentColumns + `) VALUES (
			:id, :student_id, :kind, :first_name, :last_name, :date_of_birth, :address_id, :occupation, :workplace,
			:income, :phone, :relationship, :updated_at)
		ON CONFLICT (student_id, kind) DO UPDATE SET
			first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
			date_of_birth = EXCLUDED.date_of_birth, address_id = EXCLUDED.address_id,
			occupation = EXCLUDED.occupation, workplace = EXCLUDED.workplace, income = EXCLUDED.income,
			phone = EXCLUDED.phone, relationship = EXCLUDED.relationship, updated_at = EXCLUDED.updated_at
		RETURNING ` + parentColumns
	var saved family.Parent
	err := repo.db.namedGet(ctx, &saved, q, p)
	return saved, errors.Wrap(err, "saving parent")
}

func (repo *familyRepository) ListParents(ctx context.Context, studentID string) ([]family.Parent, error) {
	ps := make([]family.Parent, 0)
	err := repo.db.selectAll(ctx, &ps, `SELECT `+parentColumns+` FROM parents WHERE student_id = $1 ORDER BY kind`, studentID)
	return ps, errors.Wrap(err, "selecting parents")
}
