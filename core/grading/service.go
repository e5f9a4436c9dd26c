// Package grading records marks and turns them into grade histories.
package grading

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/curriculum"
	"github.com/trezcool/pondok/core/school"
	"github.com/trezcool/pondok/core/semester"
	"github.com/trezcool/pondok/core/student"
)

var nowFunc = func() time.Time { return time.Now().UTC() }

type (
	Curriculum interface {
		SubjectsByName(ctx context.Context) (map[string]curriculum.Subject, error)
		Offering(ctx context.Context, id int) (curriculum.Offering, error)
		Offerings(ctx context.Context, filter curriculum.OfferingFilter) ([]curriculum.Offering, error)
	}

	Students interface {
		Get(ctx context.Context, id string) (student.Student, error)
	}

	Schools interface {
		Placement(ctx context.Context, studentID string) (school.Placement, error)
		Enrolments(ctx context.Context, schoolID, levelID int) ([]school.Enrolment, error)
	}

	Semesters interface {
		Get(ctx context.Context) (semester.Semester, error)
	}

	Service struct {
		marks      MarkRepository
		history    HistoryRepository
		tx         core.Transactor
		curriculum Curriculum
		students   Students
		schools    Schools
		semesters  Semesters
	}
)

func NewService(
	marks MarkRepository,
	history HistoryRepository,
	tx core.Transactor,
	curr Curriculum,
	students Students,
	schools Schools,
	semesters Semesters,
) *Service {
	return &Service{
		marks:      marks,
		history:    history,
		tx:         tx,
		curriculum: curr,
		students:   students,
		schools:    schools,
		semesters:  semesters,
	}
}

// SetMark validates and saves one mark. Blank values are ignored, saved is false then.
// Invalid values give an *EntryError.
func (svc *Service) SetMark(ctx context.Context, studentID string, offeringID, academicYear int, raw string) (saved bool, err error) {
	off, err := svc.curriculum.Offering(ctx, offeringID)
	if err != nil {
		if errors.Cause(err) == curriculum.ErrOfferingNotFound {
			return false, &EntryError{StudentID: studentID, Value: raw, Err: err}
		}
		return false, errors.Wrap(err, "getting offering")
	}
	value, ok, err := ParseMark(raw, off.Subject.TotalMarks)
	if err != nil {
		return false, &EntryError{StudentID: studentID, Subject: off.Subject.Name, Value: raw, Err: err}
	}
	if !ok {
		return false, nil
	}
	if _, err := svc.marks.UpsertMark(ctx, svc.newMark(studentID, off, academicYear, value)); err != nil {
		return false, errors.Wrap(err, "saving mark")
	}
	return true, nil
}

func (svc *Service) newMark(studentID string, off curriculum.Offering, academicYear, value int) Mark {
	return Mark{
		ID:           uuid.New().String(),
		StudentID:    studentID,
		OfferingID:   off.ID,
		AcademicYear: academicYear,
		Semester:     off.Semester,
		Category:     off.Subject.Category,
		Obtained:     null.IntFrom(value),
		UpdatedAt:    nowFunc(),
	}
}

// GetMark returns ErrNotGraded when the student has no mark for the offering that year.
func (svc *Service) GetMark(ctx context.Context, studentID string, offeringID, academicYear int) (Mark, error) {
	m, err := svc.marks.GetMark(ctx, studentID, offeringID, academicYear)
	if err != nil {
		return Mark{}, err
	}
	if !m.Graded() {
		return Mark{}, ErrNotGraded
	}
	return m, nil
}

type (
	BatchEntry struct {
		StudentID  string `json:"student_id"`
		OfferingID int    `json:"offering_id"`
		Value      string `json:"value"`
	}

	// BatchInput are the marks typed for a school and level.
	// AcademicYear defaults to the year of the current semester.
	BatchInput struct {
		SchoolID     int          `json:"school_id" validate:"required"`
		LevelID      int          `json:"level_id" validate:"required"`
		AcademicYear int          `json:"academic_year" validate:"omitempty,gte=1900,lte=3000"`
		Entries      []BatchEntry `json:"entries" validate:"required,min=1"`
	}

	BatchResult struct {
		Saved    int          `json:"saved"`
		Students []string     `json:"students"`
		Errors   []EntryError `json:"errors"`
	}
)

type pendingMark struct {
	idx   int
	entry BatchEntry
	off   curriculum.Offering
	value int
}

// SubmitBatch saves every valid entry and refreshes the histories of the students concerned.
// The entries of each student are saved in their own transaction, with the history.
// Rejected entries are reported in input order and never prevent the others from being saved.
func (svc *Service) SubmitBatch(ctx context.Context, in BatchInput) (BatchResult, error) {
	res := BatchResult{Students: []string{}, Errors: []EntryError{}}

	// the current semester is only optional when the year is given, offerings are then not checked against it
	year, term := in.AcademicYear, 0
	sem, err := svc.semesters.Get(ctx)
	switch {
	case err == nil:
		term = sem.Semester
		if year == 0 {
			year = sem.Year
		}
	case errors.Cause(err) != semester.ErrNotConfigured || year == 0:
		return res, errors.Wrap(err, "getting current semester")
	}

	enrolled, err := svc.schools.Enrolments(ctx, in.SchoolID, in.LevelID)
	if err != nil {
		return res, errors.Wrap(err, "listing enrolments")
	}
	isEnrolled := make(map[string]bool, len(enrolled))
	for _, e := range enrolled {
		isEnrolled[e.StudentID] = true
	}

	// group per student, in order of appearance
	var order []string
	groups := make(map[string][]int)
	for i, e := range in.Entries {
		e.StudentID = core.CleanString(e.StudentID)
		in.Entries[i] = e
		if _, ok := groups[e.StudentID]; !ok {
			order = append(order, e.StudentID)
		}
		groups[e.StudentID] = append(groups[e.StudentID], i)
	}

	offerings := make(map[int]curriculum.Offering)
	reject := func(idx int, name, subject string, err error) {
		e := in.Entries[idx]
		res.Errors = append(res.Errors, EntryError{
			Index: idx, StudentID: e.StudentID, StudentName: name, Subject: subject, Value: e.Value, Err: err,
		})
	}

	for _, sid := range order {
		idxs := groups[sid]

		st, err := svc.students.Get(ctx, sid)
		if err != nil && errors.Cause(err) != student.ErrNotFound {
			return res, errors.Wrap(err, "getting student")
		}
		if err != nil || st.IsDeleted() {
			for _, idx := range idxs {
				reject(idx, "", "", student.ErrNotFound)
			}
			continue
		}
		if !isEnrolled[sid] {
			for _, idx := range idxs {
				reject(idx, st.FullName(), "", ErrNotEnrolled)
			}
			continue
		}

		var pending []pendingMark
		for _, idx := range idxs {
			e := in.Entries[idx]
			off, ok := offerings[e.OfferingID]
			if !ok {
				off, err = svc.curriculum.Offering(ctx, e.OfferingID)
				if errors.Cause(err) == curriculum.ErrOfferingNotFound {
					reject(idx, st.FullName(), "", err)
					continue
				}
				if err != nil {
					return res, errors.Wrap(err, "getting offering")
				}
				offerings[e.OfferingID] = off
			}
			if off.LevelID != in.LevelID {
				reject(idx, st.FullName(), off.Subject.Name, ErrOfferingNotInLevel)
				continue
			}
			if term != 0 && off.Semester != term {
				reject(idx, st.FullName(), off.Subject.Name, ErrOfferingNotInSemester)
				continue
			}
			value, ok, err := ParseMark(e.Value, off.Subject.TotalMarks)
			if err != nil {
				reject(idx, st.FullName(), off.Subject.Name, err)
				continue
			}
			if ok {
				pending = append(pending, pendingMark{idx: idx, entry: e, off: off, value: value})
			}
		}
		if len(pending) == 0 {
			continue
		}

		err = svc.tx.InTx(ctx, func(ctx context.Context) error {
			for _, p := range pending {
				if _, err := svc.marks.UpsertMark(ctx, svc.newMark(sid, p.off, year, p.value)); err != nil {
					return errors.Wrap(err, "saving mark")
				}
			}
			return svc.refreshHistory(ctx, st, year)
		})
		if err != nil {
			return res, errors.Wrapf(err, "saving marks of %s", sid)
		}
		res.Saved += len(pending)
		res.Students = append(res.Students, sid)
	}

	sort.SliceStable(res.Errors, func(i, j int) bool { return res.Errors[i].Index < res.Errors[j].Index })
	return res, nil
}

// refreshHistory folds the stored marks of the student for the year into its histories, one per category.
// Subjects without marks this term keep their previous value.
func (svc *Service) refreshHistory(ctx context.Context, st student.Student, year int) error {
	subjects, err := svc.curriculum.SubjectsByName(ctx)
	if err != nil {
		return err
	}
	perCategory, err := svc.storedMarks(ctx, st.ID, year)
	if err != nil {
		return err
	}

	placement, err := svc.schools.Placement(ctx, st.ID)
	if err != nil && errors.Cause(err) != school.ErrEnrolmentNotFound {
		return errors.Wrap(err, "getting placement")
	}

	for cat, marks := range perCategory {
		h, err := svc.history.FindHistory(ctx, st.ID, year, cat)
		switch {
		case errors.Cause(err) == ErrHistoryNotFound:
			h = History{ID: uuid.New().String(), StudentID: st.ID, AcademicYear: year, Category: cat}
		case err != nil:
			return errors.Wrap(err, "finding history")
		}
		if h.SubjectMarks == nil {
			h.SubjectMarks = make(map[string]int)
		}
		for name, m := range marks {
			h.SubjectMarks[name] = m
		}
		h.StudentName = st.FullName()
		h.SchoolName = placement.SchoolName
		h.LevelName = placement.LevelName
		h.UpdatedAt = nowFunc()
		h.Recompute(subjects)

		if _, err := svc.history.UpsertHistory(ctx, h); err != nil {
			return errors.Wrap(err, "saving history")
		}
	}
	return nil
}

// storedMarks returns the graded marks of a student for a year, by category then subject name.
func (svc *Service) storedMarks(ctx context.Context, studentID string, year int) (map[curriculum.Category]map[string]int, error) {
	marks, err := svc.marks.ListMarks(ctx, MarkFilter{StudentIDs: []string{studentID}, AcademicYear: year})
	if err != nil {
		return nil, errors.Wrap(err, "listing marks")
	}

	out := make(map[curriculum.Category]map[string]int)
	for _, m := range marks {
		if !m.Graded() {
			continue
		}
		off, err := svc.curriculum.Offering(ctx, m.OfferingID)
		if errors.Cause(err) == curriculum.ErrOfferingNotFound {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "getting offering")
		}
		cat := off.Subject.Category
		if out[cat] == nil {
			out[cat] = make(map[string]int)
		}
		out[cat][off.Subject.Name] = m.Obtained.Int
	}
	return out, nil
}

// AggregateStudent aggregates the stored marks of a student for a year and category.
func (svc *Service) AggregateStudent(ctx context.Context, studentID string, year int, category curriculum.Category) (Summary, map[string]int, error) {
	subjects, err := svc.curriculum.SubjectsByName(ctx)
	if err != nil {
		return Summary{}, nil, err
	}
	perCategory, err := svc.storedMarks(ctx, studentID, year)
	if err != nil {
		return Summary{}, nil, err
	}

	marks := make(map[string]int)
	for cat, ms := range perCategory {
		if !category.Matches(cat) {
			continue
		}
		for name, m := range ms {
			marks[name] = m
		}
	}
	return AggregateSubjects(marks, subjects, category), marks, nil
}

// Result is the grade result of a student for a year.
type Result struct {
	History  History      `json:"history"`
	Subjects []SubjectRow `json:"subjects"`
	Summary  Summary      `json:"summary"`
}

// Result returns the stored history of a student with the detail per subject.
// With curriculum.CategoryAll, the histories of every category are merged.
func (svc *Service) Result(ctx context.Context, studentID string, year int, category curriculum.Category) (Result, error) {
	subjects, err := svc.curriculum.SubjectsByName(ctx)
	if err != nil {
		return Result{}, err
	}

	var h History
	if category == curriculum.CategoryAll {
		hs, err := svc.history.QueryHistory(ctx, HistoryFilter{StudentID: studentID, AcademicYear: year})
		if err != nil {
			return Result{}, errors.Wrap(err, "querying history")
		}
		if len(hs) == 0 {
			return Result{}, ErrHistoryNotFound
		}
		h = Merge(hs, subjects)
	} else {
		if h, err = svc.history.FindHistory(ctx, studentID, year, category); err != nil {
			return Result{}, err
		}
	}

	return Result{
		History:  h,
		Subjects: SubjectDetails(h.SubjectMarks, subjects, category),
		Summary:  h.Summary(),
	}, nil
}

// Years lists the academic years having history, most recent first.
func (svc *Service) Years(ctx context.Context, studentID string) ([]int, error) {
	years, err := svc.history.ListDistinctYears(ctx, core.CleanString(studentID))
	if years == nil && err == nil {
		years = []int{}
	}
	return years, err
}

// Listing is a page of grade histories with the subjects found in them.
type Listing struct {
	Histories []History          `json:"histories"`
	Subjects  []string           `json:"subjects"`
	Totals    map[string]float64 `json:"totals"`
}

func (svc *Service) Query(ctx context.Context, filter HistoryFilter) (Listing, error) {
	hs, err := svc.history.QueryHistory(ctx, filter)
	if err != nil {
		return Listing{}, errors.Wrap(err, "querying history")
	}
	subjects, err := svc.curriculum.SubjectsByName(ctx)
	if err != nil {
		return Listing{}, err
	}

	l := Listing{Histories: hs, Subjects: []string{}, Totals: make(map[string]float64)}
	if l.Histories == nil {
		l.Histories = []History{}
	}
	seen := make(map[string]bool)
	for _, h := range hs {
		for name := range h.SubjectMarks {
			if seen[name] {
				continue
			}
			seen[name] = true
			l.Subjects = append(l.Subjects, name)
			if sub, ok := subjects[name]; ok {
				l.Totals[name] = sub.TotalMarks
			}
		}
	}
	sort.Strings(l.Subjects)
	return l, nil
}

type (
	SheetRow struct {
		Student student.Student `json:"student"`
		// Marks by offering ID, ungraded offerings are missing.
		Marks map[int]Mark `json:"marks"`
	}

	// Sheet is the mark entry grid of a school and level for the current semester.
	Sheet struct {
		Semester  semester.Semester     `json:"semester"`
		Offerings []curriculum.Offering `json:"offerings"`
		Rows      []SheetRow            `json:"rows"`
	}
)

// Cell renders the mark of the row for an offering.
func (r SheetRow) Cell(offeringID int) string {
	return r.Marks[offeringID].Display()
}

func (svc *Service) Sheet(ctx context.Context, schoolID, levelID int) (Sheet, error) {
	sem, err := svc.semesters.Get(ctx)
	if err != nil {
		return Sheet{}, err
	}
	offs, err := svc.curriculum.Offerings(ctx, curriculum.OfferingFilter{LevelID: levelID, Semester: sem.Semester})
	if err != nil {
		return Sheet{}, errors.Wrap(err, "listing offerings")
	}
	enrolments, err := svc.schools.Enrolments(ctx, schoolID, levelID)
	if err != nil {
		return Sheet{}, errors.Wrap(err, "listing enrolments")
	}

	sheet := Sheet{Semester: sem, Offerings: offs, Rows: []SheetRow{}}
	if sheet.Offerings == nil {
		sheet.Offerings = []curriculum.Offering{}
	}
	ids := make([]string, 0, len(enrolments))
	rows := make(map[string]int)
	for _, e := range enrolments {
		st, err := svc.students.Get(ctx, e.StudentID)
		if errors.Cause(err) == student.ErrNotFound || st.IsDeleted() {
			continue
		}
		if err != nil {
			return Sheet{}, errors.Wrap(err, "getting student")
		}
		rows[st.ID] = len(sheet.Rows)
		ids = append(ids, st.ID)
		sheet.Rows = append(sheet.Rows, SheetRow{Student: st, Marks: make(map[int]Mark)})
	}
	if len(ids) == 0 {
		return sheet, nil
	}

	marks, err := svc.marks.ListMarks(ctx, MarkFilter{StudentIDs: ids, AcademicYear: sem.Year, Semester: sem.Semester})
	if err != nil {
		return Sheet{}, errors.Wrap(err, "listing marks")
	}
	for _, m := range marks {
		if i, ok := rows[m.StudentID]; ok {
			sheet.Rows[i].Marks[m.OfferingID] = m
		}
	}
	sort.Slice(sheet.Rows, func(i, j int) bool { return sheet.Rows[i].Student.ID < sheet.Rows[j].Student.ID })
	return sheet, nil
}
