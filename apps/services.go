// Package apps holds what the executables share: storage and service wiring.
package apps

import (
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/address"
	"github.com/trezcool/pondok/core/auth"
	"github.com/trezcool/pondok/core/curriculum"
	"github.com/trezcool/pondok/core/family"
	"github.com/trezcool/pondok/core/grading"
	"github.com/trezcool/pondok/core/profile"
	"github.com/trezcool/pondok/core/school"
	"github.com/trezcool/pondok/core/semester"
	"github.com/trezcool/pondok/core/student"
	"github.com/trezcool/pondok/core/teacher"
	"github.com/trezcool/pondok/storage/database/inmem"
	"github.com/trezcool/pondok/storage/database/sqlx"
)

// Storage is one set of repositories sharing a database.
type Storage struct {
	Tx         core.Transactor
	Semesters  semester.Repository
	Schools    school.Repository
	Curriculum curriculum.Repository
	Students   student.Repository
	Teachers   teacher.Repository
	Marks      grading.MarkRepository
	History    grading.HistoryRepository
	Families   family.Repository
	Addresses  address.Repository
}

func InMemStorage(db *inmemdb.DB) Storage {
	return Storage{
		Tx:         db,
		Semesters:  inmemdb.NewSemesterRepository(db),
		Schools:    inmemdb.NewSchoolRepository(db),
		Curriculum: inmemdb.NewCurriculumRepository(db),
		Students:   inmemdb.NewStudentRepository(db),
		Teachers:   inmemdb.NewTeacherRepository(db),
		Marks:      inmemdb.NewMarkRepository(db),
		History:    inmemdb.NewHistoryRepository(db),
		Families:   inmemdb.NewFamilyRepository(db),
		Addresses:  inmemdb.NewAddressRepository(db),
	}
}

func SQLStorage(conn *sqlx.DB) Storage {
	db := sqlxrepos.NewDB(conn)
	return Storage{
		Tx:         db,
		Semesters:  sqlxrepos.NewSemesterRepository(db),
		Schools:    sqlxrepos.NewSchoolRepository(db),
		Curriculum: sqlxrepos.NewCurriculumRepository(db),
		Students:   sqlxrepos.NewStudentRepository(db),
		Teachers:   sqlxrepos.NewTeacherRepository(db),
		Marks:      sqlxrepos.NewMarkRepository(db),
		History:    sqlxrepos.NewHistoryRepository(db),
		Families:   sqlxrepos.NewFamilyRepository(db),
		Addresses:  sqlxrepos.NewAddressRepository(db),
	}
}

// Services are the core services over one Storage.
type Services struct {
	Semesters  *semester.Service
	Schools    *school.Service
	Curriculum *curriculum.Service
	Students   *student.Service
	Teachers   *teacher.Service
	Grading    *grading.Service
	Families   *family.Service
	Addresses  *address.Service
	Profiles   *profile.Service
	Auth       *auth.Service
}

func NewServices(conf *core.Config, st Storage) *Services {
	svc := new(Services)
	svc.Semesters = semester.NewService(st.Semesters, st.Tx, st.Marks, st.Schools)
	svc.Schools = school.NewService(st.Schools, svc.Semesters)
	svc.Curriculum = curriculum.NewService(st.Curriculum)
	svc.Students = student.NewService(st.Students, conf)
	svc.Teachers = teacher.NewService(st.Teachers)
	svc.Grading = grading.NewService(st.Marks, st.History, st.Tx, svc.Curriculum, svc.Students, svc.Schools, svc.Semesters)
	svc.Families = family.NewService(st.Families, svc.Students)
	svc.Addresses = address.NewService(st.Addresses)
	svc.Profiles = profile.NewService(st.Tx, svc.Students, svc.Schools, svc.Families, svc.Addresses)
	svc.Auth = auth.NewService(svc.Students, svc.Teachers)
	return svc
}
