// Package testutil wires the services over the in-memory store and builds fixtures.
package testutil

import (
	"context"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/pondok/apps"
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
)

// Env holds every service, sharing one in-memory DB.
type Env struct {
	Conf       *core.Config
	DB         *inmemdb.DB
	Validate   *validator.Validate
	Translator ut.Translator

	Marks   grading.MarkRepository
	History grading.HistoryRepository

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

// Config returns the configuration used in tests.
func Config() *core.Config {
	conf := &core.Config{Env: "TEST", TestMode: true, AppName: "Pondok", SecretKey: "test-secret"}
	conf.Server.JWTExpirationDelta = core.DefaultJWTExpirationDelta
	conf.Server.JWTRefreshExpirationDelta = core.DefaultJWTRefreshExpirationDelta
	conf.School.Name = "Test School"
	conf.School.DefaultExamUnit = "80"
	return conf
}

// Validator returns a validator with the custom tags and English messages.
func Validator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	core.InitValidators(validate, translator)
	return validate, translator
}

func NewEnv() *Env {
	db := inmemdb.NewDB()
	env := &Env{Conf: Config(), DB: db}
	env.Validate, env.Translator = Validator()

	st := apps.InMemStorage(db)
	env.Marks = st.Marks
	env.History = st.History

	svc := apps.NewServices(env.Conf, st)
	env.Semesters = svc.Semesters
	env.Schools = svc.Schools
	env.Curriculum = svc.Curriculum
	env.Students = svc.Students
	env.Teachers = svc.Teachers
	env.Grading = svc.Grading
	env.Families = svc.Families
	env.Addresses = svc.Addresses
	env.Profiles = svc.Profiles
	env.Auth = svc.Auth
	return env
}

// Seeded is what Seed creates.
type Seeded struct {
	Semester semester.Semester
	School   school.School
	Levels   []int
	Subjects map[string]curriculum.Subject
}

// Seed creates semester 1 of year, a school, the levels and the default curriculum.
func Seed(t *testing.T, env *Env, year int) Seeded {
	t.Helper()
	ctx := context.Background()

	sem, err := env.Semesters.Init(ctx, semester.Term{Semester: 1, Year: year})
	if err != nil {
		t.Fatalf("Seed() semester failed: %v", err)
	}
	sch, _, err := env.Schools.GetOrCreate(ctx, school.NewSchool{Name: "Pondok Al-Falah"})
	if err != nil {
		t.Fatalf("Seed() school failed: %v", err)
	}
	levels, err := env.Schools.SeedLevels(ctx)
	if err != nil {
		t.Fatalf("Seed() levels failed: %v", err)
	}
	if err := env.Curriculum.Seed(ctx, levels); err != nil {
		t.Fatalf("Seed() curriculum failed: %v", err)
	}
	subjects, err := env.Curriculum.SubjectsByName(ctx)
	if err != nil {
		t.Fatalf("Seed() subjects failed: %v", err)
	}
	return Seeded{Semester: sem, School: sch, Levels: levels, Subjects: subjects}
}

// CreateSubject adds a subject offered at level during semester 1.
func CreateSubject(t *testing.T, env *Env, name string, total float64, cat curriculum.Category, levelID int) curriculum.Offering {
	t.Helper()
	ctx := context.Background()
	sub, err := env.Curriculum.CreateSubject(ctx, curriculum.NewSubject{Name: name, TotalMarks: total, Category: cat})
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	off, err := env.Curriculum.CreateOffering(ctx, sub.ID, levelID, 1)
	if err != nil {
		t.Fatalf("CreateSubject() offering failed: %v", err)
	}
	return off
}

// CreateStudent creates a student, enrolled at schoolID and levelID when both are set.
func CreateStudent(t *testing.T, env *Env, first, last, nationalID string, g core.Gender, schoolID, levelID int) student.Student {
	t.Helper()
	s, err := env.Students.Create(context.Background(), student.NewStudent{
		FirstName:  first,
		LastName:   last,
		NationalID: nationalID,
		Gender:     g,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	if schoolID != 0 && levelID != 0 {
		if _, err := env.Schools.Enroll(context.Background(), s.ID, schoolID, levelID); err != nil {
			t.Fatalf("CreateStudent() enrolment failed: %v", err)
		}
	}
	return s
}

// CreateTeacher creates a teacher and returns its password.
func CreateTeacher(t *testing.T, env *Env, first, last, pwd string, g core.Gender) (teacher.Teacher, string) {
	t.Helper()
	tch, plain, err := env.Teachers.Create(context.Background(), teacher.NewTeacher{
		FirstName: first,
		LastName:  last,
		Gender:    g,
		Password:  pwd,
	})
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	return tch, plain
}

// ErrorField returns the first field of a *core.ValidationError, "" for other errors.
func ErrorField(err error) string {
	var verr *core.ValidationError
	if !errors.As(err, &verr) || len(verr.Fields) == 0 {
		return ""
	}
	return verr.Fields[0].Field
}
