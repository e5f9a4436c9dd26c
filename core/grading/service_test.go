package grading_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/curriculum"
	"github.com/trezcool/pondok/core/grading"
	"github.com/trezcool/pondok/core/semester"
	"github.com/trezcool/pondok/core/student"
	"github.com/trezcool/pondok/tests"
)

type fixture struct {
	env      *testutil.Env
	seeded   testutil.Seeded
	level    int
	math     curriculum.Offering
	science  curriculum.Offering
	prayer   curriculum.Offering
	ali      student.Student
	aminah   student.Student
	outsider student.Student
}

func setup(t *testing.T) fixture {
	env := testutil.NewEnv()
	seeded := testutil.Seed(t, env, 2024)
	level := seeded.Levels[0]
	f := fixture{
		env:     env,
		seeded:  seeded,
		level:   level,
		math:    testutil.CreateSubject(t, env, "Math", 100, curriculum.CategoryTheory, level),
		science: testutil.CreateSubject(t, env, "Science", 50, curriculum.CategoryTheory, level),
		prayer:  testutil.CreateSubject(t, env, "Prayer", 20, curriculum.CategoryPractical, level),
	}
	f.ali = testutil.CreateStudent(t, env, "Ali", "Hasan", "1101700203451", core.GenderMale, seeded.School.ID, level)
	f.aminah = testutil.CreateStudent(t, env, "Aminah", "Yusof", "1101700203452", core.GenderFemale, seeded.School.ID, level)
	f.outsider = testutil.CreateStudent(t, env, "Omar", "Salleh", "1101700203453", core.GenderMale, 0, 0)
	return f
}

func (f fixture) submit(t *testing.T, entries ...grading.BatchEntry) grading.BatchResult {
	res, err := f.env.Grading.SubmitBatch(context.Background(), grading.BatchInput{
		SchoolID: f.seeded.School.ID,
		LevelID:  f.level,
		Entries:  entries,
	})
	require.NoError(t, err)
	return res
}

func TestService_SetMark_GetMark(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.env.Grading.GetMark(ctx, f.ali.ID, f.math.ID, 2024)
	assert.Equal(t, grading.ErrNotGraded, errors.Cause(err), "missing marks are not zero")

	saved, err := f.env.Grading.SetMark(ctx, f.ali.ID, f.math.ID, 2024, " 45 ")
	require.NoError(t, err)
	assert.True(t, saved)

	m, err := f.env.Grading.GetMark(ctx, f.ali.ID, f.math.ID, 2024)
	require.NoError(t, err)
	assert.Equal(t, "45", m.Display())
	assert.Equal(t, curriculum.CategoryTheory, m.Category)
	assert.Equal(t, 1, m.Semester)

	// overwrite
	_, err = f.env.Grading.SetMark(ctx, f.ali.ID, f.math.ID, 2024, "50")
	require.NoError(t, err)
	marks, err := f.env.Marks.ListMarks(ctx, grading.MarkFilter{StudentIDs: []string{f.ali.ID}})
	require.NoError(t, err)
	if assert.Len(t, marks, 1) {
		assert.Equal(t, 50, marks[0].Obtained.Int)
	}

	// blank is a no-op
	saved, err = f.env.Grading.SetMark(ctx, f.ali.ID, f.math.ID, 2024, "")
	require.NoError(t, err)
	assert.False(t, saved)

	_, err = f.env.Grading.SetMark(ctx, f.ali.ID, f.science.ID, 2024, "x")
	var entryErr *grading.EntryError
	if assert.True(t, errors.As(err, &entryErr)) {
		assert.Equal(t, "Science", entryErr.Subject)
		assert.Equal(t, f.ali.ID, entryErr.StudentID)
		assert.Equal(t, grading.ErrNotInteger, entryErr.Err)
	}
}

func TestService_SubmitBatch(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res := f.submit(t,
		grading.BatchEntry{StudentID: f.ali.ID, OfferingID: f.math.ID, Value: "45"},
		grading.BatchEntry{StudentID: f.ali.ID, OfferingID: f.science.ID, Value: "abc"},
		grading.BatchEntry{StudentID: f.aminah.ID, OfferingID: f.math.ID, Value: "101"},
		grading.BatchEntry{StudentID: f.aminah.ID, OfferingID: f.science.ID, Value: "40"},
		grading.BatchEntry{StudentID: f.outsider.ID, OfferingID: f.math.ID, Value: "10"},
		grading.BatchEntry{StudentID: "nobody", OfferingID: f.math.ID, Value: "10"},
		grading.BatchEntry{StudentID: f.aminah.ID, OfferingID: f.prayer.ID, Value: ""},
		grading.BatchEntry{StudentID: f.ali.ID, OfferingID: 999999, Value: "10"},
	)

	assert.Equal(t, 2, res.Saved, "bad entries do not discard good ones")
	assert.Equal(t, []string{f.ali.ID, f.aminah.ID}, res.Students)

	var idxs []int
	for _, e := range res.Errors {
		idxs = append(idxs, e.Index)
	}
	assert.Equal(t, []int{1, 2, 4, 5, 7}, idxs, "errors are reported in input order")
	assert.Equal(t, grading.ErrNotInteger, res.Errors[0].Err)
	assert.Equal(t, "Science", res.Errors[0].Subject)
	assert.Equal(t, f.ali.FullName(), res.Errors[0].StudentName)
	assert.Equal(t, grading.ErrOutOfRange, res.Errors[1].Err)
	assert.Equal(t, grading.ErrNotEnrolled, res.Errors[2].Err)
	assert.Equal(t, student.ErrNotFound, res.Errors[3].Err)
	assert.Equal(t, curriculum.ErrOfferingNotFound, errors.Cause(res.Errors[4].Err))

	h, err := f.env.History.FindHistory(ctx, f.ali.ID, 2024, curriculum.CategoryTheory)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Math": 45}, h.SubjectMarks)
	assert.Equal(t, f.seeded.School.Name, h.SchoolName)
	assert.Equal(t, "Level 1", h.LevelName)
	assert.Equal(t, f.ali.FullName(), h.StudentName)
	assert.Equal(t, 45.0, h.GradePercentage)
	assert.Equal(t, grading.Fail, h.Verdict)

	_, err = f.env.History.FindHistory(ctx, f.ali.ID, 2024, curriculum.CategoryPractical)
	assert.Equal(t, grading.ErrHistoryNotFound, errors.Cause(err))
}

func TestService_SubmitBatch_OfferingOutsideTheSheet(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	otherLevel := testutil.CreateSubject(t, f.env, "Arabic", 100, curriculum.CategoryTheory, f.seeded.Levels[5])
	otherSemester, err := f.env.Curriculum.CreateOffering(ctx, f.math.SubjectID, f.level, 2)
	require.NoError(t, err)

	res := f.submit(t,
		grading.BatchEntry{StudentID: f.ali.ID, OfferingID: otherLevel.ID, Value: "80"},
		grading.BatchEntry{StudentID: f.ali.ID, OfferingID: otherSemester.ID, Value: "70"},
		grading.BatchEntry{StudentID: f.ali.ID, OfferingID: f.science.ID, Value: "40"},
	)
	assert.Equal(t, 1, res.Saved)
	if assert.Len(t, res.Errors, 2) {
		assert.Equal(t, grading.ErrOfferingNotInLevel, res.Errors[0].Err)
		assert.Equal(t, "Arabic", res.Errors[0].Subject)
		assert.Equal(t, grading.ErrOfferingNotInSemester, res.Errors[1].Err)
	}

	_, err = f.env.Grading.GetMark(ctx, f.ali.ID, otherLevel.ID, 2024)
	assert.Equal(t, grading.ErrNotGraded, errors.Cause(err))
	h, err := f.env.History.FindHistory(ctx, f.ali.ID, 2024, curriculum.CategoryTheory)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Science": 40}, h.SubjectMarks)
}

func TestService_SubmitBatch_HistoryIsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	entries := []grading.BatchEntry{
		{StudentID: f.ali.ID, OfferingID: f.math.ID, Value: "45"},
		{StudentID: f.ali.ID, OfferingID: f.science.ID, Value: "30"},
	}

	f.submit(t, entries...)
	first, err := f.env.History.FindHistory(ctx, f.ali.ID, 2024, curriculum.CategoryTheory)
	require.NoError(t, err)

	f.submit(t, entries...)
	second, err := f.env.History.FindHistory(ctx, f.ali.ID, 2024, curriculum.CategoryTheory)
	require.NoError(t, err)

	hs, err := f.env.History.QueryHistory(ctx, grading.HistoryFilter{StudentID: f.ali.ID})
	require.NoError(t, err)
	assert.Len(t, hs, 1, "no duplicate rows")

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.SubjectMarks, second.SubjectMarks)
	assert.Equal(t, first.Summary(), second.Summary())
	assert.Equal(t, grading.Summary{Total: 150, Obtained: 75, Percentage: 50, Verdict: grading.Pass}, second.Summary())
}

func TestService_Result(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.env.Grading.Result(ctx, f.ali.ID, 2024, curriculum.CategoryAll)
	assert.Equal(t, grading.ErrHistoryNotFound, errors.Cause(err))

	f.submit(t,
		grading.BatchEntry{StudentID: f.ali.ID, OfferingID: f.math.ID, Value: "45"},
		grading.BatchEntry{StudentID: f.ali.ID, OfferingID: f.science.ID, Value: "30"},
		grading.BatchEntry{StudentID: f.ali.ID, OfferingID: f.prayer.ID, Value: "18"},
	)

	t.Run("one category", func(t *testing.T) {
		res, err := f.env.Grading.Result(ctx, f.ali.ID, 2024, curriculum.CategoryTheory)
		require.NoError(t, err)
		assert.Equal(t, grading.Summary{Total: 150, Obtained: 75, Percentage: 50, Verdict: grading.Pass}, res.Summary)
		if assert.Len(t, res.Subjects, 2) {
			assert.Equal(t, "Math", res.Subjects[0].Name)
			assert.Equal(t, "F", res.Subjects[0].Grade)
			assert.Equal(t, "Science", res.Subjects[1].Name)
			assert.Equal(t, "C", res.Subjects[1].Grade)
		}
	})

	t.Run("all categories are merged", func(t *testing.T) {
		res, err := f.env.Grading.Result(ctx, f.ali.ID, 2024, curriculum.CategoryAll)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"Math": 45, "Science": 30, "Prayer": 18}, res.History.SubjectMarks)
		assert.Equal(t, grading.Summary{Total: 170, Obtained: 93, Percentage: 54.71, Verdict: grading.Pass}, res.Summary)
		assert.Len(t, res.Subjects, 3)
	})

	t.Run("aggregating stored marks matches the history", func(t *testing.T) {
		sum, marks, err := f.env.Grading.AggregateStudent(ctx, f.ali.ID, 2024, curriculum.CategoryPractical)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"Prayer": 18}, marks)
		assert.Equal(t, grading.Summary{Total: 20, Obtained: 18, Percentage: 90, Verdict: grading.Pass}, sum)
	})

	t.Run("renamed subjects are not applicable", func(t *testing.T) {
		h, err := f.env.History.FindHistory(ctx, f.ali.ID, 2024, curriculum.CategoryTheory)
		require.NoError(t, err)
		h.SubjectMarks["Old Logic"] = 12
		_, err = f.env.History.UpsertHistory(ctx, h)
		require.NoError(t, err)

		res, err := f.env.Grading.Result(ctx, f.ali.ID, 2024, curriculum.CategoryTheory)
		require.NoError(t, err)
		require.Len(t, res.Subjects, 3)
		assert.Equal(t, "Old Logic", res.Subjects[1].Name)
		assert.True(t, res.Subjects[1].NotApplicable)
		assert.Equal(t, 12, res.Subjects[1].Marks)
	})

	years, err := f.env.Grading.Years(ctx, f.ali.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{2024}, years)

	years, err = f.env.Grading.Years(ctx, f.aminah.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{}, years)
}

func TestService_Sheet(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.submit(t, grading.BatchEntry{StudentID: f.aminah.ID, OfferingID: f.science.ID, Value: "40"})

	sheet, err := f.env.Grading.Sheet(ctx, f.seeded.School.ID, f.level)
	require.NoError(t, err)
	assert.Equal(t, 2024, sheet.Semester.Year)
	require.Len(t, sheet.Rows, 2)

	var offeringIDs []int
	for _, off := range sheet.Offerings {
		offeringIDs = append(offeringIDs, off.ID)
	}
	assert.Contains(t, offeringIDs, f.math.ID)
	assert.Contains(t, offeringIDs, f.science.ID)

	for _, row := range sheet.Rows {
		switch row.Student.ID {
		case f.aminah.ID:
			assert.Equal(t, "40", row.Cell(f.science.ID))
			assert.Equal(t, grading.Ungraded, row.Cell(f.math.ID))
		case f.ali.ID:
			assert.Equal(t, grading.Ungraded, row.Cell(f.science.ID))
		default:
			t.Errorf("unexpected student %s on the sheet", row.Student.ID)
		}
	}
}

func TestSemesterChangePurgesMarks(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.submit(t,
		grading.BatchEntry{StudentID: f.ali.ID, OfferingID: f.math.ID, Value: "45"},
		grading.BatchEntry{StudentID: f.aminah.ID, OfferingID: f.math.ID, Value: "60"},
	)

	res, err := f.env.Semesters.Update(ctx, semester.Term{Semester: 1, Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, 2, res.PurgedMarks)
	assert.Equal(t, 2, res.Semester.Version)

	_, err = f.env.Grading.GetMark(ctx, f.ali.ID, f.math.ID, 2024)
	assert.Equal(t, grading.ErrNotGraded, errors.Cause(err), "purged marks are not found")

	// the history outlives the purge
	_, err = f.env.Grading.Result(ctx, f.ali.ID, 2024, curriculum.CategoryTheory)
	assert.NoError(t, err)
}

type failingHistory struct {
	grading.HistoryRepository
	studentID string
}

func (h failingHistory) UpsertHistory(ctx context.Context, hist grading.History) (grading.History, error) {
	if hist.StudentID == h.studentID {
		return grading.History{}, errors.New("disk full")
	}
	return h.HistoryRepository.UpsertHistory(ctx, hist)
}

func TestService_SubmitBatch_MarksAndHistoryCommitTogether(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	svc := grading.NewService(f.env.Marks, failingHistory{HistoryRepository: f.env.History, studentID: f.ali.ID},
		f.env.DB, f.env.Curriculum, f.env.Students, f.env.Schools, f.env.Semesters)

	_, err := svc.SubmitBatch(ctx, grading.BatchInput{
		SchoolID: f.seeded.School.ID,
		LevelID:  f.level,
		Entries: []grading.BatchEntry{
			{StudentID: f.aminah.ID, OfferingID: f.math.ID, Value: "60"},
			{StudentID: f.ali.ID, OfferingID: f.math.ID, Value: "45"},
			{StudentID: f.ali.ID, OfferingID: f.science.ID, Value: "30"},
		},
	})
	assert.Error(t, err)

	// ali's marks went away with his history
	for _, off := range []curriculum.Offering{f.math, f.science} {
		_, err = f.env.Grading.GetMark(ctx, f.ali.ID, off.ID, 2024)
		assert.Equal(t, grading.ErrNotGraded, errors.Cause(err), off.Subject.Name)
	}
	_, err = f.env.History.FindHistory(ctx, f.ali.ID, 2024, curriculum.CategoryTheory)
	assert.Equal(t, grading.ErrHistoryNotFound, errors.Cause(err))

	// aminah was committed on her own
	m, err := f.env.Grading.GetMark(ctx, f.aminah.ID, f.math.ID, 2024)
	require.NoError(t, err)
	assert.Equal(t, 60, m.Obtained.Int)
	h, err := f.env.History.FindHistory(ctx, f.aminah.ID, 2024, curriculum.CategoryTheory)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Math": 60}, h.SubjectMarks)
}
