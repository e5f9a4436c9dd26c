package teacher_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/ident"
	"github.com/trezcool/pondok/core/teacher"
	"github.com/trezcool/pondok/tests"
)

func TestService_Create(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()

	prefix, err := ident.TeacherPrefix(time.Now().UTC(), core.GenderFemale)
	require.NoError(t, err)

	t.Run("given password", func(t *testing.T) {
		tch, pwd := testutil.CreateTeacher(t, env, "Siti", "Aishah", "secret1", core.GenderFemale)
		assert.Equal(t, prefix+"0001", tch.ID)
		assert.Equal(t, "secret1", pwd)
		assert.Equal(t, teacher.Teaching, tch.Status)
		assert.NotEqual(t, []byte("secret1"), tch.PasswordHash)
		assert.NoError(t, tch.CheckPassword("secret1"))
	})

	t.Run("generated password", func(t *testing.T) {
		tch, pwd := testutil.CreateTeacher(t, env, "Nur", "Huda", "", core.GenderFemale)
		assert.Equal(t, prefix+"0002", tch.ID)
		assert.Len(t, pwd, ident.PasswordLen)
		assert.NoError(t, tch.CheckPassword(pwd))
	})

	t.Run("unknown gender", func(t *testing.T) {
		_, _, err := env.Teachers.Create(ctx, teacher.NewTeacher{FirstName: "X", LastName: "Y"})
		assert.Equal(t, "gender", testutil.ErrorField(err))
	})
}

func TestNewTeacher_Validate(t *testing.T) {
	validate, _ := testutil.Validator()

	nt := teacher.NewTeacher{FirstName: " Siti ", LastName: "Aishah", Gender: "Female", Password: "12345"}
	assert.Error(t, nt.Validate(validate), "password too short")

	nt.Password = "123456"
	require.NoError(t, nt.Validate(validate))
	assert.Equal(t, "Siti", nt.FirstName)
	assert.Equal(t, core.GenderFemale, nt.Gender)
}

func TestService_UpdateAndPassword(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	tch, _ := testutil.CreateTeacher(t, env, "Siti", "Aishah", "secret1", core.GenderFemale)

	updated, err := env.Teachers.Update(ctx, tch.ID, teacher.UpdateTeacher{SubjectName: "Fiqh", Status: teacher.Retired})
	require.NoError(t, err)
	assert.Equal(t, "Siti", updated.FirstName, "blank fields are kept")
	assert.Equal(t, "Fiqh", updated.SubjectName)
	assert.Equal(t, teacher.Retired, updated.Status)

	_, err = env.Teachers.Update(ctx, "T000000", teacher.UpdateTeacher{})
	assert.Equal(t, teacher.ErrNotFound, errors.Cause(err))

	pwd, err := env.Teachers.ResetPassword(ctx, tch.ID, "")
	require.NoError(t, err)
	assert.Len(t, pwd, ident.PasswordLen)

	_, err = env.Teachers.Authenticate(ctx, tch.ID, "secret1")
	assert.Equal(t, teacher.ErrNotFound, errors.Cause(err), "old password no longer works")

	got, err := env.Teachers.Authenticate(ctx, tch.ID, pwd)
	require.NoError(t, err)
	assert.Equal(t, tch.ID, got.ID)

	teachers, err := env.Teachers.Query(ctx, teacher.QueryFilter{Search: "aish"})
	require.NoError(t, err)
	assert.Len(t, teachers, 1)

	teachers, err = env.Teachers.Query(ctx, teacher.QueryFilter{Status: teacher.Teaching})
	require.NoError(t, err)
	assert.Len(t, teachers, 0)
}
