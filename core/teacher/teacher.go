package teacher

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/ident"
)

var (
	ErrNotFound         = errors.New("teacher not found")
	ErrNationalIDExists = errors.New("a teacher with this national ID already exists")
)

type Status string

const (
	Teaching Status = "teaching"
	Retired  Status = "retired"
)

var nowFunc = func() time.Time { return time.Now().UTC() }

type Teacher struct {
	ID           string      `json:"id" db:"id"`
	FirstName    string      `json:"first_name" db:"first_name"`
	LastName     string      `json:"last_name" db:"last_name"`
	DateOfBirth  null.Time   `json:"date_of_birth" db:"date_of_birth"`
	NationalID   null.String `json:"national_id" db:"national_id"`
	Gender       core.Gender `json:"gender" db:"gender"`
	SubjectName  string      `json:"subject_name" db:"subject_name"`
	Status       Status      `json:"status" db:"status"`
	PasswordHash []byte      `json:"-" db:"password_hash"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

func (t Teacher) FullName() string { return t.FirstName + " " + t.LastName }

func (t *Teacher) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	t.PasswordHash = hash
	return nil
}

func (t *Teacher) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(t.PasswordHash, []byte(pwd))
}

// NewTeacher contains information needed to create a new Teacher.
// A numeric password is generated when Password is empty.
type NewTeacher struct {
	FirstName   string      `json:"first_name" validate:"required,max=100"`
	LastName    string      `json:"last_name" validate:"required,max=100"`
	DateOfBirth string      `json:"date_of_birth" validate:"omitempty,datetime=02/01/2006"`
	NationalID  string      `json:"national_id" validate:"omitempty,nationalid"`
	Gender      core.Gender `json:"gender" validate:"required,oneof=male female"`
	SubjectName string      `json:"subject_name" validate:"max=100"`
	Status      Status      `json:"status" validate:"omitempty,oneof=teaching retired"`
	Password    string      `json:"password" validate:"omitempty,min=6"`
}

func (nt *NewTeacher) Validate(validate *validator.Validate) error {
	nt.FirstName = core.CleanString(nt.FirstName)
	nt.LastName = core.CleanString(nt.LastName)
	nt.DateOfBirth = core.CleanString(nt.DateOfBirth)
	nt.NationalID = core.CleanDigits(nt.NationalID)
	nt.Gender = core.Gender(core.CleanString(string(nt.Gender), true /* lower */))
	nt.SubjectName = core.CleanString(nt.SubjectName)
	return validate.Struct(nt)
}

// UpdateTeacher defines what may be changed on a Teacher. Empty fields are left untouched.
type UpdateTeacher struct {
	FirstName   string `json:"first_name" validate:"max=100"`
	LastName    string `json:"last_name" validate:"max=100"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=02/01/2006"`
	NationalID  string `json:"national_id" validate:"omitempty,nationalid"`
	SubjectName string `json:"subject_name" validate:"max=100"`
	Status      Status `json:"status" validate:"omitempty,oneof=teaching retired"`
}

func (ut *UpdateTeacher) Validate(validate *validator.Validate) error {
	ut.FirstName = core.CleanString(ut.FirstName)
	ut.LastName = core.CleanString(ut.LastName)
	ut.DateOfBirth = core.CleanString(ut.DateOfBirth)
	ut.NationalID = core.CleanDigits(ut.NationalID)
	ut.SubjectName = core.CleanString(ut.SubjectName)
	return validate.Struct(ut)
}

type QueryFilter struct {
	Search string `query:"search"`
	Status Status `query:"status"`
}

type (
	Repository interface {
		ident.SequenceSource
		// CreateTeacher fails with ident.ErrConflict when the ID is taken
		// and with ErrNationalIDExists when the national ID is.
		CreateTeacher(ctx context.Context, t Teacher) (Teacher, error)
		GetTeacher(ctx context.Context, id string) (Teacher, error)
		// QueryTeachers orders by ID. Search matches the first or last name, case-insensitive.
		QueryTeachers(ctx context.Context, filter QueryFilter) ([]Teacher, error)
		UpdateTeacher(ctx context.Context, t Teacher) (Teacher, error)
	}

	Service struct {
		repo     Repository
		assigner *ident.Assigner
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo, assigner: ident.NewAssigner(repo)}
}

// Create saves a new teacher and returns the plain password, to be shown once.
func (svc *Service) Create(ctx context.Context, nt NewTeacher) (Teacher, string, error) {
	now := nowFunc()
	t := Teacher{
		FirstName:   nt.FirstName,
		LastName:    nt.LastName,
		NationalID:  null.NewString(nt.NationalID, nt.NationalID != ""),
		Gender:      nt.Gender,
		SubjectName: nt.SubjectName,
		Status:      nt.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Status == "" {
		t.Status = Teaching
	}
	if dob := core.ParseDate(nt.DateOfBirth); !dob.IsZero() {
		t.DateOfBirth = null.TimeFrom(dob)
	}

	pwd := nt.Password
	if pwd == "" {
		var err error
		if pwd, err = ident.RandomDigits(ident.PasswordLen); err != nil {
			return Teacher{}, "", err
		}
	}
	if err := t.SetPassword(pwd); err != nil {
		return Teacher{}, "", errors.Wrap(err, "hashing password")
	}

	prefix, err := ident.TeacherPrefix(now, t.Gender)
	if err != nil {
		return Teacher{}, "", core.NewFieldError("gender", err)
	}

	var created Teacher
	_, err = svc.assigner.Assign(ctx, prefix, func(id string) (err error) {
		t.ID = id
		created, err = svc.repo.CreateTeacher(ctx, t)
		return err
	})
	if err != nil {
		if errors.Cause(err) == ErrNationalIDExists {
			return Teacher{}, "", core.NewFieldError("national_id", ErrNationalIDExists)
		}
		return Teacher{}, "", errors.Wrap(err, "assigning teacher ID")
	}
	return created, pwd, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Teacher, error) {
	return svc.repo.GetTeacher(ctx, core.CleanString(id))
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Teacher, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QueryTeachers(ctx, filter)
}

func (svc *Service) Update(ctx context.Context, id string, ut UpdateTeacher) (Teacher, error) {
	t, err := svc.repo.GetTeacher(ctx, id)
	if err != nil {
		return Teacher{}, err
	}
	if ut.FirstName != "" {
		t.FirstName = ut.FirstName
	}
	if ut.LastName != "" {
		t.LastName = ut.LastName
	}
	if dob := core.ParseDate(ut.DateOfBirth); !dob.IsZero() {
		t.DateOfBirth = null.TimeFrom(dob)
	}
	if ut.NationalID != "" {
		t.NationalID = null.StringFrom(ut.NationalID)
	}
	if ut.SubjectName != "" {
		t.SubjectName = ut.SubjectName
	}
	if ut.Status != "" {
		t.Status = ut.Status
	}
	t.UpdatedAt = nowFunc()

	t, err = svc.repo.UpdateTeacher(ctx, t)
	if errors.Cause(err) == ErrNationalIDExists {
		return Teacher{}, core.NewFieldError("national_id", ErrNationalIDExists)
	}
	return t, err
}

// ResetPassword sets pwd as the new password, or a random numeric one when empty, and returns it.
func (svc *Service) ResetPassword(ctx context.Context, id, pwd string) (string, error) {
	t, err := svc.repo.GetTeacher(ctx, id)
	if err != nil {
		return "", err
	}
	if pwd == "" {
		if pwd, err = ident.RandomDigits(ident.PasswordLen); err != nil {
			return "", err
		}
	}
	if err := t.SetPassword(pwd); err != nil {
		return "", errors.Wrap(err, "hashing password")
	}
	t.UpdatedAt = nowFunc()
	if _, err := svc.repo.UpdateTeacher(ctx, t); err != nil {
		return "", err
	}
	return pwd, nil
}

// Authenticate matches a teacher ID with its password.
func (svc *Service) Authenticate(ctx context.Context, id, pwd string) (Teacher, error) {
	t, err := svc.Get(ctx, id)
	if err != nil {
		return Teacher{}, err
	}
	if err := t.CheckPassword(pwd); err != nil {
		return Teacher{}, ErrNotFound
	}
	return t, nil
}
