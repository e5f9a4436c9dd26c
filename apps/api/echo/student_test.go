package echoapi_test

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/student"
	"github.com/trezcool/pondok/tests"
)

func Test_studentAPI_permissions(t *testing.T) {
	s := setup(t)
	ali := testutil.CreateStudent(t, s.env, "Ali", "Hasan", "1101700203451", core.GenderMale, 0, 0)
	aminah := testutil.CreateStudent(t, s.env, "Aminah", "Yusof", "1101700203452", core.GenderFemale, 0, 0)
	aliToken := getToken(t, s.env.Conf, studentPrincipal(ali.ID))
	denied := marchallObj(t, httpErr{Error: "permission denied"})

	tests := []httpTest{
		{name: "auth required", path: "/v1/students", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "list is for teachers", path: "/v1/students", token: aliToken, wantCode: http.StatusForbidden, wantData: denied},
		{
			name: "create is for teachers", method: http.MethodPost, path: "/v1/students", token: aliToken, body: []byte(`{}`),
			wantCode: http.StatusForbidden, wantData: denied,
		},
		{name: "own profile", path: "/v1/students/" + ali.ID, token: aliToken},
		{name: "other profile", path: "/v1/students/" + aminah.ID, token: aliToken, wantCode: http.StatusForbidden, wantData: denied},
		{
			name: "delete is for teachers", method: http.MethodDelete, path: "/v1/students/" + ali.ID, token: aliToken,
			wantCode: http.StatusForbidden, wantData: denied,
		},
	}
	s.run(t, tests)
}

func Test_studentAPI_create(t *testing.T) {
	s := setup(t)
	siti, _ := testutil.CreateTeacher(t, s.env, "Siti", "Aishah", "secret1", core.GenderFemale)
	token := getToken(t, s.env.Conf, teacherPrincipal(siti.ID))
	level := s.seeded.Levels[0]

	body := []byte(`{
		"first_name": " Ali ", "last_name": "Hasan", "national_id": "1-1017-00203-45-1", "gender": "Male",
		"school_id": ` + strconv.Itoa(s.seeded.School.ID) + `, "level_id": ` + strconv.Itoa(level) + `
	}`)
	rec := s.do(http.MethodPost, "/v1/students", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Student   student.Student `json:"student"`
		Placement struct {
			SchoolName string `json:"school_name"`
			LevelID    int    `json:"level_id"`
		} `json:"placement"`
	}
	decode(t, rec, &created)
	assert.Equal(t, "Ali", created.Student.FirstName)
	assert.Equal(t, "1101700203451", created.Student.NationalID)
	assert.Equal(t, core.GenderMale, created.Student.Gender)
	assert.Equal(t, "Pondok Al-Falah", created.Placement.SchoolName)
	assert.Equal(t, level, created.Placement.LevelID)

	tests := []httpTest{
		{
			name: "duplicate national ID", method: http.MethodPost, path: "/v1/students", token: token, body: body,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"national_id": student.ErrNationalIDExists.Error()}),
		},
		{
			name: "invalid", method: http.MethodPost, path: "/v1/students", token: token,
			body:     []byte(`{"first_name": "Omar", "last_name": "Salleh", "national_id": "123", "gender": "male"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown school", method: http.MethodPost, path: "/v1/students", token: token,
			body:     []byte(`{"first_name": "Omar", "last_name": "Salleh", "national_id": "1101700203453", "gender": "male", "school_id": 999, "level_id": 1}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"school_id": "school not found"}),
		},
	}
	s.run(t, tests)

	// nothing is saved when the enrolment is rejected
	_, total, err := s.env.Students.Query(context.Background(), student.QueryFilter{}, core.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func Test_studentAPI_query(t *testing.T) {
	s := setup(t)
	siti, _ := testutil.CreateTeacher(t, s.env, "Siti", "Aishah", "secret1", core.GenderFemale)
	token := getToken(t, s.env.Conf, teacherPrincipal(siti.ID))
	level := s.seeded.Levels[0]
	ali := testutil.CreateStudent(t, s.env, "Ali", "Hasan", "1101700203451", core.GenderMale, s.seeded.School.ID, level)
	aminah := testutil.CreateStudent(t, s.env, "Aminah", "Yusof", "1101700203452", core.GenderFemale, s.seeded.School.ID, level)
	testutil.CreateStudent(t, s.env, "Omar", "Salleh", "1101700203453", core.GenderMale, 0, 0)

	type page struct {
		Meta    core.PageMeta     `json:"meta"`
		Results []student.Student `json:"results"`
	}
	ids := func(p page) []string {
		var res []string
		for _, st := range p.Results {
			res = append(res, st.ID)
		}
		return res
	}

	var p page
	decode(t, s.do(http.MethodGet, "/v1/students?per_page=2&ordering=first_name", token), &p)
	assert.Equal(t, core.PageMeta{Page: 1, PerPage: 2, Total: 3, TotalPages: 2}, p.Meta)
	assert.Equal(t, []string{ali.ID, aminah.ID}, ids(p))

	p = page{}
	decode(t, s.do(http.MethodGet, "/v1/students?gender=female", token), &p)
	assert.Equal(t, []string{aminah.ID}, ids(p))

	p = page{}
	decode(t, s.do(http.MethodGet, "/v1/students?search=unknown", token), &p)
	assert.Empty(t, p.Results)
	assert.Equal(t, 0, p.Meta.Total)

	var stats student.Stats
	decode(t, s.do(http.MethodGet, "/v1/home?school_id="+strconv.Itoa(s.seeded.School.ID), token), &stats)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Male)
	assert.Equal(t, 1, stats.Female)
}

func Test_studentAPI_updateAndDelete(t *testing.T) {
	s := setup(t)
	siti, _ := testutil.CreateTeacher(t, s.env, "Siti", "Aishah", "secret1", core.GenderFemale)
	token := getToken(t, s.env.Conf, teacherPrincipal(siti.ID))
	ali := testutil.CreateStudent(t, s.env, "Ali", "Hasan", "1101700203451", core.GenderMale, 0, 0)
	path := "/v1/students/" + ali.ID

	rec := s.do(http.MethodPut, path, token, []byte(`{"first_name": "Aly", "last_name": "Hasan", "national_id": "1101700203451", "gender": "male"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got, err := s.env.Students.Get(context.Background(), ali.ID)
	require.NoError(t, err)
	assert.Equal(t, "Aly", got.FirstName)
	assert.Equal(t, ali.ID, got.ID)

	rec = s.do(http.MethodPut, path+"/parents/father", token, []byte(`{"first_name": "Hasan", "last_name": "Ismail", "income": 12000}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPut, path+"/parents/uncle", token, []byte(`{"first_name": "Hasan", "last_name": "Ismail"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var prof struct {
		Father *struct {
			FirstName string `json:"first_name"`
		} `json:"father"`
		Mother *struct{} `json:"mother"`
	}
	decode(t, s.do(http.MethodGet, path, token), &prof)
	require.NotNil(t, prof.Father)
	assert.Equal(t, "Hasan", prof.Father.FirstName)
	assert.Nil(t, prof.Mother)

	rec = s.do(http.MethodDelete, path, token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	got, err = s.env.Students.Get(context.Background(), ali.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted())

	rec = s.do(http.MethodDelete, "/v1/students/000000000", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
