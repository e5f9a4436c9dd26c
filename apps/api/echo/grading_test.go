package echoapi_test

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/curriculum"
	"github.com/trezcool/pondok/core/grading"
	"github.com/trezcool/pondok/core/student"
	"github.com/trezcool/pondok/tests"
)

type gradingFixture struct {
	testServer
	token  string
	level  int
	math   curriculum.Offering
	prayer curriculum.Offering
	ali    student.Student
	aminah student.Student
}

func setupGrading(t *testing.T) gradingFixture {
	s := setup(t)
	siti, _ := testutil.CreateTeacher(t, s.env, "Siti", "Aishah", "secret1", core.GenderFemale)
	level := s.seeded.Levels[0]
	return gradingFixture{
		testServer: s,
		token:      getToken(t, s.env.Conf, teacherPrincipal(siti.ID)),
		level:      level,
		math:       testutil.CreateSubject(t, s.env, "Math", 100, curriculum.CategoryTheory, level),
		prayer:     testutil.CreateSubject(t, s.env, "Prayer", 20, curriculum.CategoryPractical, level),
		ali:        testutil.CreateStudent(t, s.env, "Ali", "Hasan", "1101700203451", core.GenderMale, s.seeded.School.ID, level),
		aminah:     testutil.CreateStudent(t, s.env, "Aminah", "Yusof", "1101700203452", core.GenderFemale, s.seeded.School.ID, level),
	}
}

func (f gradingFixture) batch(t *testing.T, entries ...grading.BatchEntry) []byte {
	return marchallObj(t, grading.BatchInput{SchoolID: f.seeded.School.ID, LevelID: f.level, Entries: entries})
}

func Test_gradingAPI_submit(t *testing.T) {
	f := setupGrading(t)
	outsider := testutil.CreateStudent(t, f.env, "Omar", "Salleh", "1101700203453", core.GenderMale, 0, 0)

	tests := []struct {
		name      string
		body      []byte
		wantCode  int
		wantSaved int
		wantErrs  []int
	}{
		{
			name:     "empty batch",
			body:     f.batch(t),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "partly saved",
			body: f.batch(t,
				grading.BatchEntry{StudentID: f.ali.ID, OfferingID: f.math.ID, Value: "80"},
				grading.BatchEntry{StudentID: f.aminah.ID, OfferingID: f.math.ID, Value: "abc"},
				grading.BatchEntry{StudentID: outsider.ID, OfferingID: f.math.ID, Value: "50"},
			),
			wantCode: http.StatusMultiStatus, wantSaved: 1, wantErrs: []int{1, 2},
		},
		{
			name: "nothing saved",
			body: f.batch(t,
				grading.BatchEntry{StudentID: f.aminah.ID, OfferingID: f.math.ID, Value: "101"},
				grading.BatchEntry{StudentID: "000000000", OfferingID: f.math.ID, Value: "10"},
			),
			wantCode: http.StatusUnprocessableEntity, wantErrs: []int{0, 1},
		},
		{
			name: "all saved",
			body: f.batch(t,
				grading.BatchEntry{StudentID: f.ali.ID, OfferingID: f.prayer.ID, Value: "15"},
				grading.BatchEntry{StudentID: f.aminah.ID, OfferingID: f.math.ID, Value: "40"},
			),
			wantCode: http.StatusOK, wantSaved: 2, wantErrs: []int{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/v1/marks", f.token, tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode == http.StatusBadRequest {
				return
			}

			var res struct {
				Saved  int `json:"saved"`
				Errors []struct {
					Index int    `json:"index"`
					Error string `json:"error"`
				} `json:"errors"`
			}
			decode(t, rec, &res)
			assert.Equal(t, tt.wantSaved, res.Saved)
			idxs := []int{}
			for _, e := range res.Errors {
				idxs = append(idxs, e.Index)
				assert.NotEmpty(t, e.Error)
			}
			assert.Equal(t, tt.wantErrs, idxs)
		})
	}

	// students cannot enter marks
	rec := f.do(http.MethodPost, "/v1/marks", getToken(t, f.env.Conf, studentPrincipal(f.ali.ID)), f.batch(t))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func Test_gradingAPI_results(t *testing.T) {
	f := setupGrading(t)
	rec := f.do(http.MethodPost, "/v1/marks", f.token, f.batch(t,
		grading.BatchEntry{StudentID: f.ali.ID, OfferingID: f.math.ID, Value: "80"},
		grading.BatchEntry{StudentID: f.ali.ID, OfferingID: f.prayer.ID, Value: "15"},
		grading.BatchEntry{StudentID: f.aminah.ID, OfferingID: f.math.ID, Value: "30"},
	))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	aliToken := getToken(t, f.env.Conf, studentPrincipal(f.ali.ID))

	type result struct {
		History grading.History `json:"history"`
		Summary grading.Summary `json:"summary"`
	}
	var res result
	decode(t, f.do(http.MethodGet, "/v1/students/"+f.ali.ID+"/results", aliToken), &res)
	assert.Equal(t, 2024, res.History.AcademicYear)
	assert.Equal(t, 95, res.Summary.Obtained)
	assert.Equal(t, float64(120), res.Summary.Total)

	res = result{}
	decode(t, f.do(http.MethodGet, "/v1/students/"+f.ali.ID+"/results?academic_year=2024&category=theory", aliToken), &res)
	assert.Equal(t, 80, res.Summary.Obtained)
	assert.Equal(t, curriculum.CategoryTheory, res.History.Category)

	tests := []httpTest{
		{
			name: "no history that year", path: "/v1/students/" + f.ali.ID + "/results?academic_year=2023", token: aliToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: grading.ErrHistoryNotFound.Error()}),
		},
		{
			name: "bad category", path: "/v1/students/" + f.ali.ID + "/results?category=music", token: aliToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: curriculum.ErrInvalidCategory.Error()}),
		},
		{
			name: "other student", path: "/v1/students/" + f.aminah.ID + "/results", token: aliToken,
			wantCode: http.StatusForbidden,
		},
		{name: "years", path: "/v1/history/years", token: aliToken, wantData: []byte(`[2024]`)},
		{name: "years of nobody", path: "/v1/history/years?student_id=000000000", token: f.token, wantData: []byte(`[]`)},
	}
	f.run(t, tests)

	// students only list their own history
	var listing grading.Listing
	decode(t, f.do(http.MethodGet, "/v1/history?student_id="+f.aminah.ID, aliToken), &listing)
	require.NotEmpty(t, listing.Histories)
	for _, h := range listing.Histories {
		assert.Equal(t, f.ali.ID, h.StudentID)
	}

	listing = grading.Listing{}
	path := "/v1/history?academic_year=2024&category=theory&school_id=" + strconv.Itoa(f.seeded.School.ID) + "&level_id=" + strconv.Itoa(f.level)
	decode(t, f.do(http.MethodGet, path, f.token), &listing)
	assert.Len(t, listing.Histories, 2)
	assert.Equal(t, []string{"Math"}, listing.Subjects)
}

func Test_gradingAPI_sheetAndSemester(t *testing.T) {
	f := setupGrading(t)
	rec := f.do(http.MethodPost, "/v1/marks", f.token, f.batch(t,
		grading.BatchEntry{StudentID: f.ali.ID, OfferingID: f.math.ID, Value: "80"},
	))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(http.MethodGet, "/v1/marks?school_id=1", f.token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var sheet struct {
		Rows []struct {
			Student struct {
				ID string `json:"id"`
			} `json:"student"`
			Marks map[string]struct {
				Obtained *int `json:"obtained"`
			} `json:"marks"`
		} `json:"rows"`
	}
	path := "/v1/marks?school_id=" + strconv.Itoa(f.seeded.School.ID) + "&level_id=" + strconv.Itoa(f.level)
	decode(t, f.do(http.MethodGet, path, f.token), &sheet)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, f.ali.ID, sheet.Rows[0].Student.ID)
	mark := sheet.Rows[0].Marks[strconv.Itoa(f.math.ID)]
	require.NotNil(t, mark.Obtained)
	assert.Equal(t, 80, *mark.Obtained)
	assert.Empty(t, sheet.Rows[1].Marks)

	tests := []httpTest{
		{
			name: "students cannot change the semester", method: http.MethodPut, path: "/v1/semester",
			token: getToken(t, f.env.Conf, studentPrincipal(f.ali.ID)), body: []byte(`{"semester": 2, "year": 2024}`),
			wantCode: http.StatusForbidden,
		},
		{
			name: "invalid term", method: http.MethodPut, path: "/v1/semester", token: f.token,
			body: []byte(`{"semester": 3, "year": 2024}`), wantCode: http.StatusBadRequest,
		},
	}
	f.run(t, tests)

	var res struct {
		Semester struct {
			Semester int `json:"semester"`
			Year     int `json:"year"`
		} `json:"semester"`
		PurgedMarks int `json:"purged_marks"`
	}
	rec = f.do(http.MethodPut, "/v1/semester", f.token, []byte(`{"semester": 2, "year": 2024}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &res)
	assert.Equal(t, 2, res.Semester.Semester)
	assert.Equal(t, 1, res.PurgedMarks)

	rec = f.do(http.MethodGet, "/v1/semester", f.token)
	assert.Equal(t, http.StatusOK, rec.Code)
}
