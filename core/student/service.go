package student

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/ident"
)

var (
	ErrNotFound           = errors.New("student not found")
	ErrNationalIDExists   = errors.New("a student with this national ID already exists")
	errNationalIDRequired = errors.New("national ID is required")
)

var nowFunc = func() time.Time { return time.Now().UTC() }

type (
	Repository interface {
		ident.SequenceSource
		// CreateStudent fails with ident.ErrConflict when the ID is taken
		// and with ErrNationalIDExists when the national ID is.
		CreateStudent(ctx context.Context, s Student) (Student, error)
		// GetStudent returns deleted students too.
		GetStudent(ctx context.Context, id string) (Student, error)
		GetStudentByNationalID(ctx context.Context, nationalID string) (Student, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		SetDeleteStatus(ctx context.Context, id string, status DeleteStatus, at time.Time) error
		// QueryStudents applies AND operation on the QueryFilter fields and excludes deleted students.
		// QueryFilter.Search does a case-insensitive match on the first or last name.
		// It returns the page and the count of all matching students.
		QueryStudents(ctx context.Context, filter QueryFilter, page core.Page) ([]Student, int, error)
		Stats(ctx context.Context, filter QueryFilter) (Stats, error)
	}

	Service struct {
		repo            Repository
		assigner        *ident.Assigner
		defaultExamUnit string
	}
)

func NewService(repo Repository, conf *core.Config) *Service {
	unit := conf.School.DefaultExamUnit
	if unit == "" {
		unit = "80"
	}
	return &Service{repo: repo, assigner: ident.NewAssigner(repo), defaultExamUnit: unit}
}

func (svc *Service) checkNationalID(ctx context.Context, nationalID, exclID string) error {
	if nationalID == "" {
		return core.NewFieldError("national_id", errNationalIDRequired)
	}
	s, err := svc.repo.GetStudentByNationalID(ctx, nationalID)
	switch {
	case errors.Cause(err) == ErrNotFound:
		return nil
	case err != nil:
		return errors.Wrap(err, "checking national ID")
	case s.ID != exclID:
		return core.NewFieldError("national_id", ErrNationalIDExists)
	}
	return nil
}

func fill(s *Student, data NewStudent) {
	s.FirstName = data.FirstName
	s.LastName = data.LastName
	s.FirstNameEN = data.FirstNameEN
	s.LastNameEN = data.LastNameEN
	s.FirstNameAR = data.FirstNameAR
	s.LastNameAR = data.LastNameAR
	s.NationalID = data.NationalID
	s.Gender = data.Gender
	s.SpecialStatus = data.SpecialStatus
	if s.SpecialStatus == "" {
		s.SpecialStatus = SpecialNone
	}
	s.StudyStatus = data.StudyStatus
	if s.StudyStatus == "" {
		s.StudyStatus = Studying
	}
	s.ProfileImage = null.NewString(data.ProfileImage, data.ProfileImage != "")
	s.AddressID = null.NewString(data.AddressID, data.AddressID != "")
	s.DateOfBirth = null.Time{}
	if dob := core.ParseDate(data.DateOfBirth); !dob.IsZero() {
		s.DateOfBirth = null.TimeFrom(dob)
	}
	if data.ExamUnit != "" {
		s.ExamUnit = data.ExamUnit
	}
}

// Create saves a new student under a freshly assigned ID.
func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	if err := svc.checkNationalID(ctx, ns.NationalID, ""); err != nil {
		return Student{}, err
	}

	now := nowFunc()
	s := Student{ExamUnit: svc.defaultExamUnit, DeleteStatus: NotDeleted, CreatedAt: now, UpdatedAt: now}
	fill(&s, ns)

	prefix, err := ident.StudentPrefix(now, s.ExamUnit, s.Gender)
	if err != nil {
		switch err {
		case ident.ErrUnknownGender:
			return Student{}, core.NewFieldError("gender", err)
		case ident.ErrInvalidUnit:
			return Student{}, core.NewFieldError("exam_unit", err)
		}
		return Student{}, err
	}

	var created Student
	_, err = svc.assigner.Assign(ctx, prefix, func(id string) (err error) {
		s.ID = id
		created, err = svc.repo.CreateStudent(ctx, s)
		return err
	})
	if err != nil {
		if errors.Cause(err) == ErrNationalIDExists {
			return Student{}, core.NewFieldError("national_id", ErrNationalIDExists)
		}
		return Student{}, errors.Wrap(err, "assigning student ID")
	}
	return created, nil
}

// Get returns the student, deleted or not.
func (svc *Service) Get(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, core.CleanString(id))
}

// GetActive returns ErrNotFound for deleted students.
func (svc *Service) GetActive(ctx context.Context, id string) (Student, error) {
	s, err := svc.repo.GetStudent(ctx, core.CleanString(id))
	if err != nil {
		return Student{}, err
	}
	if s.IsDeleted() {
		return Student{}, ErrNotFound
	}
	return s, nil
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	s, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if err := svc.checkNationalID(ctx, us.NationalID, s.ID); err != nil {
		return Student{}, err
	}

	fill(&s, NewStudent(us))
	s.UpdatedAt = nowFunc()
	s, err = svc.repo.UpdateStudent(ctx, s)
	if errors.Cause(err) == ErrNationalIDExists {
		return Student{}, core.NewFieldError("national_id", ErrNationalIDExists)
	}
	return s, err
}

// SoftDelete flags the student as deleted. Deleted students are hidden from listings and cannot log in.
func (svc *Service) SoftDelete(ctx context.Context, id string) error {
	return svc.repo.SetDeleteStatus(ctx, id, Deleted, nowFunc())
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, page core.Page) ([]Student, int, error) {
	filter.Clean()
	page.Clean()
	return svc.repo.QueryStudents(ctx, filter, page)
}

// All returns every active student matching filter.
func (svc *Service) All(ctx context.Context, filter QueryFilter) ([]Student, error) {
	filter.Clean()
	var all []Student
	page := core.Page{Number: 1, PerPage: core.MaxPerPage}
	for {
		students, total, err := svc.repo.QueryStudents(ctx, filter, page)
		if err != nil {
			return nil, err
		}
		all = append(all, students...)
		if len(students) == 0 || len(all) >= total {
			return all, nil
		}
		page.Number++
	}
}

func (svc *Service) Stats(ctx context.Context, filter QueryFilter) (Stats, error) {
	filter.Clean()
	st, err := svc.repo.Stats(ctx, filter)
	if err != nil {
		return Stats{}, err
	}
	if st.BySpecialStatus == nil {
		st.BySpecialStatus = make(map[SpecialStatus]int)
	}
	for _, ss := range SpecialStatuses {
		if _, ok := st.BySpecialStatus[ss]; !ok {
			st.BySpecialStatus[ss] = 0
		}
	}
	return st, nil
}

// Authenticate matches a student ID with its national ID. Deleted students are not found.
func (svc *Service) Authenticate(ctx context.Context, id, nationalID string) (Student, error) {
	s, err := svc.GetActive(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if nationalID == "" || s.NationalID != core.CleanDigits(nationalID) {
		return Student{}, ErrNotFound
	}
	return s, nil
}
