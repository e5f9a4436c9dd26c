// Package inmemdb keeps every repository in memory. Used by tests and local runs without PostgreSQL.
package inmemdb

import (
	"context"
	"strings"
	"sync"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/address"
	"github.com/trezcool/pondok/core/curriculum"
	"github.com/trezcool/pondok/core/family"
	"github.com/trezcool/pondok/core/grading"
	"github.com/trezcool/pondok/core/school"
	"github.com/trezcool/pondok/core/semester"
	"github.com/trezcool/pondok/core/student"
	"github.com/trezcool/pondok/core/teacher"
)

type tables struct {
	pkCount int

	students   map[string]student.Student
	teachers   map[string]teacher.Teacher
	schools    map[int]school.School
	levels     map[int]school.Level
	enrolments map[string]school.Enrolment
	semester   *semester.Semester

	subjects  map[int]curriculum.Subject
	offerings map[int]curriculum.Offering
	marks     map[markKey]grading.Mark
	history   map[historyKey]grading.History

	parents      map[parentKey]family.Parent
	provinces    map[int]address.Province
	districts    map[int]address.District
	subdistricts map[int]address.Subdistrict
	addresses    map[string]address.Address
}

type (
	markKey struct {
		studentID    string
		offeringID   int
		academicYear int
	}
	historyKey struct {
		studentID    string
		academicYear int
		category     curriculum.Category
	}
	parentKey struct {
		studentID string
		kind      family.Kind
	}
)

func newTables() *tables {
	return &tables{
		students:     make(map[string]student.Student),
		teachers:     make(map[string]teacher.Teacher),
		schools:      make(map[int]school.School),
		levels:       make(map[int]school.Level),
		enrolments:   make(map[string]school.Enrolment),
		subjects:     make(map[int]curriculum.Subject),
		offerings:    make(map[int]curriculum.Offering),
		marks:        make(map[markKey]grading.Mark),
		history:      make(map[historyKey]grading.History),
		parents:      make(map[parentKey]family.Parent),
		provinces:    make(map[int]address.Province),
		districts:    make(map[int]address.District),
		subdistricts: make(map[int]address.Subdistrict),
		addresses:    make(map[string]address.Address),
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (t *tables) clone() *tables {
	c := &tables{
		pkCount:      t.pkCount,
		students:     copyMap(t.students),
		teachers:     copyMap(t.teachers),
		schools:      copyMap(t.schools),
		levels:       copyMap(t.levels),
		enrolments:   copyMap(t.enrolments),
		subjects:     copyMap(t.subjects),
		offerings:    copyMap(t.offerings),
		marks:        copyMap(t.marks),
		history:      make(map[historyKey]grading.History, len(t.history)),
		parents:      copyMap(t.parents),
		provinces:    copyMap(t.provinces),
		districts:    copyMap(t.districts),
		subdistricts: copyMap(t.subdistricts),
		addresses:    copyMap(t.addresses),
	}
	for k, h := range t.history {
		c.history[k] = copyHistory(h)
	}
	if t.semester != nil {
		sem := *t.semester
		c.semester = &sem
	}
	return c
}

func (t *tables) nextPK() int {
	t.pkCount++
	return t.pkCount
}

// DB is the in-memory database. Repositories sharing a DB see each other's writes.
type DB struct {
	mu sync.RWMutex
	t  *tables
}

func NewDB() *DB {
	return &DB{t: newTables()}
}

type txKey struct{}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(bool)
	return ok
}

// lock write-locks the DB, unless ctx belongs to a transaction which already holds the lock.
func (db *DB) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	db.mu.Lock()
	return db.mu.Unlock
}

func (db *DB) rlock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	db.mu.RLock()
	return db.mu.RUnlock
}

var _ core.Transactor = (*DB)(nil)

// InTx runs fn holding the DB lock. The tables are restored if fn fails.
// Nested calls join the outer transaction.
func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	snapshot := db.t.clone()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		db.t = snapshot
		return err
	}
	return nil
}

// Reset drops all data.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.t = newTables()
}

func copyHistory(h grading.History) grading.History {
	if h.SubjectMarks != nil {
		h.SubjectMarks = copyMap(h.SubjectMarks)
	}
	return h
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
