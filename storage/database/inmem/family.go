package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/pondok/core/family"
)

type familyRepository struct {
	db *DB
}

var _ family.Repository = (*familyRepository)(nil) // interface compliance check

func NewFamilyRepository(db *DB) *familyRepository {
	return &familyRepository{db: db}
}

func (repo *familyRepository) SaveParent(ctx context.Context, p family.Parent) (family.Parent, error) {
	defer repo.db.lock(ctx)()
	key := parentKey{p.StudentID, p.Kind}
	if prev, ok := repo.db.t.parents[key]; ok {
		p.ID = prev.ID
	}
	repo.db.t.parents[key] = p
	return p, nil
}

func (repo *familyRepository) ListParents(ctx context.Context, studentID string) ([]family.Parent, error) {
	defer repo.db.rlock(ctx)()
	var ps []family.Parent
	for k, p := range repo.db.t.parents {
		if k.studentID == studentID {
			ps = append(ps, p)
		}
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].Kind < ps[j].Kind })
	return ps, nil
}
