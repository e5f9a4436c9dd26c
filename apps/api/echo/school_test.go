package echoapi_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/address"
	"github.com/trezcool/pondok/core/teacher"
	"github.com/trezcool/pondok/tests"
)

func Test_teacherAPI(t *testing.T) {
	s := setup(t)
	siti, _ := testutil.CreateTeacher(t, s.env, "Siti", "Aishah", "secret1", core.GenderFemale)
	token := getToken(t, s.env.Conf, teacherPrincipal(siti.ID))

	var created struct {
		Teacher  teacher.Teacher `json:"teacher"`
		Password string          `json:"password"`
	}
	rec := s.do(http.MethodPost, "/v1/teachers", token, []byte(`{"first_name": "Yusuf", "last_name": "Rahman", "gender": "male"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decode(t, rec, &created)
	assert.NotEmpty(t, created.Teacher.ID)
	assert.NotEmpty(t, created.Password)
	assert.NotContains(t, rec.Body.String(), "password_hash")

	// the generated password logs in
	rec = s.do(http.MethodPost, "/v1/auth/token", "", []byte(`{"username":"`+created.Teacher.ID+`","password":"`+created.Password+`"}`))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPut, "/v1/teachers/"+created.Teacher.ID, token, []byte(`{"status": "retired"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var teachers []teacher.Teacher
	decode(t, s.do(http.MethodGet, "/v1/teachers?status=retired", token), &teachers)
	require.Len(t, teachers, 1)
	assert.Equal(t, created.Teacher.ID, teachers[0].ID)

	rec = s.do(http.MethodPost, "/v1/teachers/"+created.Teacher.ID+"/password-reset", token, []byte(`{"password": "newpass1"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, "/v1/auth/token", "", []byte(`{"username":"`+created.Teacher.ID+`","password":"newpass1"}`))
	assert.Equal(t, http.StatusOK, rec.Code)

	tests := []httpTest{
		{name: "unknown teacher", path: "/v1/teachers/000000000", token: token, wantCode: http.StatusNotFound, wantData: []byte(`{"error":"teacher not found"}`)},
		{
			name: "short password", method: http.MethodPost, path: "/v1/teachers/" + siti.ID + "/password-reset", token: token,
			body: []byte(`{"password": "123"}`), wantCode: http.StatusBadRequest,
		},
	}
	s.run(t, tests)
}

func Test_schoolAPI(t *testing.T) {
	s := setup(t)
	siti, _ := testutil.CreateTeacher(t, s.env, "Siti", "Aishah", "secret1", core.GenderFemale)
	token := getToken(t, s.env.Conf, teacherPrincipal(siti.ID))
	ali := testutil.CreateStudent(t, s.env, "Ali", "Hasan", "1101700203451", core.GenderMale, 0, 0)
	aliToken := getToken(t, s.env.Conf, studentPrincipal(ali.ID))

	tests := []httpTest{
		{
			name: "existing school", method: http.MethodPost, path: "/v1/schools", token: token,
			body: []byte(`{"name": " Pondok Al-Falah "}`), wantData: marchallObj(t, s.seeded.School),
		},
		{name: "new school", method: http.MethodPost, path: "/v1/schools", token: token, body: []byte(`{"name": "Pondok Darul Ulum"}`), wantCode: http.StatusCreated},
		{name: "students cannot create schools", method: http.MethodPost, path: "/v1/schools", token: aliToken, body: []byte(`{"name": "X"}`), wantCode: http.StatusForbidden},
		{name: "subject without total", method: http.MethodPost, path: "/v1/subjects", token: token, body: []byte(`{"name": "Tajwid", "category": 1}`), wantCode: http.StatusBadRequest},
		{name: "subject", method: http.MethodPost, path: "/v1/subjects", token: token, body: []byte(`{"name": "Tajwid", "total_marks": 50, "category": 2}`), wantCode: http.StatusCreated},
		{name: "bad category", path: "/v1/subjects?category=art", token: aliToken, wantCode: http.StatusBadRequest},
	}
	s.run(t, tests)

	var schools []struct {
		Name string `json:"name"`
	}
	decode(t, s.do(http.MethodGet, "/v1/schools", aliToken), &schools)
	assert.Len(t, schools, 2)

	var levels []struct {
		ID int `json:"id"`
	}
	decode(t, s.do(http.MethodGet, "/v1/levels", aliToken), &levels)
	assert.Len(t, levels, len(s.seeded.Levels))

	var subjects []struct {
		Name     string `json:"name"`
		Category int    `json:"category"`
	}
	decode(t, s.do(http.MethodGet, "/v1/subjects?category=practical", aliToken), &subjects)
	require.NotEmpty(t, subjects)
	for _, sub := range subjects {
		assert.Equal(t, 2, sub.Category)
	}

	var offerings []struct {
		LevelID int `json:"level_id"`
	}
	decode(t, s.do(http.MethodGet, "/v1/offerings?semester=1&level_id="+strconv.Itoa(s.seeded.Levels[0]), aliToken), &offerings)
	require.NotEmpty(t, offerings)
	for _, off := range offerings {
		assert.Equal(t, s.seeded.Levels[0], off.LevelID)
	}
}

func divisionsWorkbook(t *testing.T) []byte {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"province", "amphoe", "district", "zipcode"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Pattani", "Mueang Pattani", "Sabarang", "94000"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"Pattani", "Mueang Pattani", "Anoru", "94000"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func Test_addressAPI(t *testing.T) {
	s := setup(t)
	siti, _ := testutil.CreateTeacher(t, s.env, "Siti", "Aishah", "secret1", core.GenderFemale)
	token := getToken(t, s.env.Conf, teacherPrincipal(siti.ID))

	// import
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "divisions.xlsx")
	require.NoError(t, err)
	_, err = fw.Write(divisionsWorkbook(t))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/addresses/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res address.ImportResult
	decode(t, rec, &res)
	assert.Equal(t, address.ImportResult{Rows: 2, Provinces: 1, Districts: 1, Subdistricts: 2}, res)

	// cascade
	var provinces []address.Province
	decode(t, s.do(http.MethodGet, "/v1/provinces", token), &provinces)
	require.Len(t, provinces, 1)
	var districts []address.District
	decode(t, s.do(http.MethodGet, "/v1/districts?province_id="+strconv.Itoa(provinces[0].ID), token), &districts)
	require.Len(t, districts, 1)
	var subdistricts []address.Subdistrict
	decode(t, s.do(http.MethodGet, "/v1/subdistricts?district_id="+strconv.Itoa(districts[0].ID), token), &subdistricts)
	require.Len(t, subdistricts, 2)
	assert.Equal(t, "Anoru", subdistricts[0].Name)

	sd := strconv.Itoa(subdistricts[0].ID)
	tests := []httpTest{
		{name: "zipcode", path: "/v1/zipcode?subdistrict_id=" + sd, token: token, wantData: []byte(`{"zipcode":"94000"}`)},
		{name: "unknown subdistrict", path: "/v1/zipcode?subdistrict_id=999", token: token, wantCode: http.StatusNotFound},
		{name: "bad id", path: "/v1/zipcode?subdistrict_id=abc", token: token, wantCode: http.StatusBadRequest},
		{name: "missing file", method: http.MethodPost, path: "/v1/addresses/import", token: token, wantCode: http.StatusBadRequest},
	}
	s.run(t, tests)

	// save fills the zipcode and upserts on house number, street and moo
	payload := []byte(`{"house_number": "12/3", "moo": "4", "subdistrict_id": ` + sd + `}`)
	var first, second address.Address
	decode(t, s.do(http.MethodPost, "/v1/addresses", token, payload), &first)
	assert.Equal(t, "94000", first.Zipcode)
	decode(t, s.do(http.MethodPost, "/v1/addresses", token, payload), &second)
	assert.Equal(t, first.ID, second.ID)

	rec = s.do(http.MethodGet, "/v1/addresses/"+first.ID, token)
	assert.Equal(t, http.StatusOK, rec.Code)
}
