package student

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/pondok/core"
)

type SpecialStatus string

const (
	SpecialNone            SpecialStatus = "none"
	SpecialOrphan          SpecialStatus = "orphan"
	SpecialUnderprivileged SpecialStatus = "underprivileged"
	SpecialDisabled        SpecialStatus = "disabled"
	SpecialNewConvert      SpecialStatus = "new_convert"
)

// SpecialStatuses lists the statuses counted by Stats, SpecialNone excluded.
var SpecialStatuses = []SpecialStatus{SpecialOrphan, SpecialUnderprivileged, SpecialDisabled, SpecialNewConvert}

type StudyStatus string

const (
	Studying  StudyStatus = "studying"
	Graduated StudyStatus = "graduated"
)

type DeleteStatus string

const (
	NotDeleted DeleteStatus = "not_deleted"
	Deleted    DeleteStatus = "deleted"
)

type Student struct {
	ID            string        `json:"id" db:"id"`
	FirstName     string        `json:"first_name" db:"first_name"`
	LastName      string        `json:"last_name" db:"last_name"`
	FirstNameEN   string        `json:"first_name_en" db:"first_name_en"`
	LastNameEN    string        `json:"last_name_en" db:"last_name_en"`
	FirstNameAR   string        `json:"first_name_ar" db:"first_name_ar"`
	LastNameAR    string        `json:"last_name_ar" db:"last_name_ar"`
	DateOfBirth   null.Time     `json:"date_of_birth" db:"date_of_birth"`
	NationalID    string        `json:"national_id" db:"national_id"`
	Gender        core.Gender   `json:"gender" db:"gender"`
	SpecialStatus SpecialStatus `json:"special_status" db:"special_status"`
	StudyStatus   StudyStatus   `json:"study_status" db:"study_status"`
	ExamUnit      string        `json:"exam_unit" db:"exam_unit"`
	DeleteStatus  DeleteStatus  `json:"delete_status" db:"delete_status"`
	ProfileImage  null.String   `json:"profile_image" db:"profile_image"`
	AddressID     null.String   `json:"address_id" db:"address_id"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"` // UTC
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"` // UTC
}

func (s Student) FullName() string { return s.FirstName + " " + s.LastName }
func (s Student) IsDeleted() bool  { return s.DeleteStatus == Deleted }

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	FirstName     string        `json:"first_name" validate:"required,max=100"`
	LastName      string        `json:"last_name" validate:"required,max=100"`
	FirstNameEN   string        `json:"first_name_en" validate:"max=100"`
	LastNameEN    string        `json:"last_name_en" validate:"max=100"`
	FirstNameAR   string        `json:"first_name_ar" validate:"max=100"`
	LastNameAR    string        `json:"last_name_ar" validate:"max=100"`
	DateOfBirth   string        `json:"date_of_birth" validate:"omitempty,datetime=02/01/2006"`
	NationalID    string        `json:"national_id" validate:"required,nationalid"`
	Gender        core.Gender   `json:"gender" validate:"required,oneof=male female"`
	SpecialStatus SpecialStatus `json:"special_status" validate:"omitempty,oneof=none orphan underprivileged disabled new_convert"`
	StudyStatus   StudyStatus   `json:"study_status" validate:"omitempty,oneof=studying graduated"`
	ExamUnit      string        `json:"exam_unit" validate:"omitempty,examunit"`
	ProfileImage  string        `json:"profile_image" validate:"max=255"`
	AddressID     string        `json:"address_id" validate:"omitempty,uuid"`

	// optional enrolment
	SchoolID int `json:"school_id" validate:"required_with=LevelID"`
	LevelID  int `json:"level_id" validate:"required_with=SchoolID"`
}

func (ns *NewStudent) clean() {
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.FirstNameEN = core.CleanString(ns.FirstNameEN)
	ns.LastNameEN = core.CleanString(ns.LastNameEN)
	ns.FirstNameAR = core.CleanString(ns.FirstNameAR)
	ns.LastNameAR = core.CleanString(ns.LastNameAR)
	ns.DateOfBirth = core.CleanString(ns.DateOfBirth)
	ns.NationalID = core.CleanDigits(ns.NationalID)
	ns.Gender = core.Gender(core.CleanString(string(ns.Gender), true /* lower */))
	ns.ExamUnit = core.CleanString(ns.ExamUnit)
	ns.ProfileImage = core.CleanString(ns.ProfileImage)
	ns.AddressID = core.CleanString(ns.AddressID)
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.clean()
	return validate.Struct(ns)
}

func (ns NewStudent) HasEnrolment() bool { return ns.SchoolID != 0 && ns.LevelID != 0 }

// UpdateStudent replaces every editable field of a Student. The ID is never changed.
type UpdateStudent NewStudent

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	ns := (*NewStudent)(us)
	ns.clean()
	return validate.Struct(ns)
}

type QueryFilter struct {
	Search        string        `query:"search"`
	SchoolID      int           `query:"school_id"`
	LevelID       int           `query:"level_id"`
	AcademicYear  int           `query:"academic_year"`
	Gender        core.Gender   `query:"gender"`
	SpecialStatus SpecialStatus `query:"special_status"`
	StudyStatus   StudyStatus   `query:"study_status"`
	// Ordering fields are column names, see OrderingFields.
	Ordering []core.DBOrdering `query:"-"`
}

// OrderingFields maps the accepted "ordering" parameters to columns.
var OrderingFields = map[string]string{
	"id":         "id",
	"first_name": "first_name",
	"last_name":  "last_name",
	"created_at": "created_at",
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Gender = core.Gender(core.CleanString(string(qf.Gender), true /* lower */))
}

func (qf QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.SchoolID == 0 && qf.LevelID == 0 && qf.AcademicYear == 0 &&
		qf.Gender == "" && qf.SpecialStatus == "" && qf.StudyStatus == ""
}

// Stats counts the active students matching a filter.
type Stats struct {
	Total           int                   `json:"total"`
	Male            int                   `json:"male"`
	Female          int                   `json:"female"`
	BySpecialStatus map[SpecialStatus]int `json:"by_special_status"`
}

// Count adds s to the stats.
func (st *Stats) Count(s Student) {
	if st.BySpecialStatus == nil {
		st.BySpecialStatus = make(map[SpecialStatus]int)
	}
	st.Total++
	switch s.Gender {
	case core.GenderMale:
		st.Male++
	case core.GenderFemale:
		st.Female++
	}
	if s.SpecialStatus != "" && s.SpecialStatus != SpecialNone {
		st.BySpecialStatus[s.SpecialStatus]++
	}
}
