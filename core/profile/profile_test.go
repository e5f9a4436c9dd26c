package profile_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/address"
	"github.com/trezcool/pondok/core/family"
	"github.com/trezcool/pondok/core/profile"
	"github.com/trezcool/pondok/core/school"
	"github.com/trezcool/pondok/core/student"
	"github.com/trezcool/pondok/tests"
)

func TestService_Get(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	seeded := testutil.Seed(t, env, 2024)

	_, err := env.Profiles.Get(ctx, "nobody")
	assert.Equal(t, student.ErrNotFound, errors.Cause(err))

	bare := testutil.CreateStudent(t, env, "Omar", "Salleh", "1101700203452", core.GenderMale, 0, 0)
	p, err := env.Profiles.Get(ctx, bare.ID)
	require.NoError(t, err)
	assert.Nil(t, p.Placement)
	assert.Nil(t, p.Address)
	assert.Nil(t, p.Father)

	addr, err := env.Addresses.Save(ctx, address.NewAddress{HouseNumber: "7", Zipcode: "94000"})
	require.NoError(t, err)
	ali, err := env.Students.Create(ctx, student.NewStudent{
		FirstName: "Ali", LastName: "Hasan", NationalID: "1101700203451", Gender: core.GenderMale, AddressID: addr.ID,
	})
	require.NoError(t, err)
	_, err = env.Schools.Enroll(ctx, ali.ID, seeded.School.ID, seeded.Levels[3])
	require.NoError(t, err)
	_, err = env.Families.Save(ctx, ali.ID, family.Mother, family.SaveParent{FirstName: "Khadijah", LastName: "Ahmad"})
	require.NoError(t, err)

	p, err = env.Profiles.Get(ctx, ali.ID)
	require.NoError(t, err)
	assert.Equal(t, ali.ID, p.Student.ID)
	if assert.NotNil(t, p.Placement) {
		assert.Equal(t, "Level 4", p.Placement.LevelName)
		assert.Equal(t, seeded.School.Name, p.Placement.SchoolName)
	}
	if assert.NotNil(t, p.Address) {
		assert.Equal(t, "94000", p.Address.Zipcode)
	}
	if assert.NotNil(t, p.Mother) {
		assert.Equal(t, "Khadijah", p.Mother.FirstName)
	}
}

type failingSchools struct {
	*school.Service
}

func (failingSchools) Enroll(context.Context, string, int, int) (school.Enrolment, error) {
	return school.Enrolment{}, errors.New("connection lost")
}

func TestService_Register(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	seeded := testutil.Seed(t, env, 2024)

	ns := student.NewStudent{
		FirstName: "Ali", LastName: "Hasan", NationalID: "1101700203451", Gender: core.GenderMale,
		SchoolID: seeded.School.ID, LevelID: seeded.Levels[1],
	}

	t.Run("enrolment failure saves nothing", func(t *testing.T) {
		svc := profile.NewService(env.DB, env.Students, failingSchools{env.Schools}, env.Families, env.Addresses)
		_, err := svc.Register(ctx, ns)
		assert.Error(t, err)

		all, err := env.Students.All(ctx, student.QueryFilter{})
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("unknown school", func(t *testing.T) {
		bad := ns
		bad.SchoolID = 999
		_, err := env.Profiles.Register(ctx, bad)
		assert.Equal(t, "school_id", testutil.ErrorField(err))

		all, err := env.Students.All(ctx, student.QueryFilter{})
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	p, err := env.Profiles.Register(ctx, ns)
	require.NoError(t, err)
	if assert.NotNil(t, p.Placement) {
		assert.Equal(t, "Level 2", p.Placement.LevelName)
	}

	t.Run("edit is atomic too", func(t *testing.T) {
		svc := profile.NewService(env.DB, env.Students, failingSchools{env.Schools}, env.Families, env.Addresses)
		us := student.UpdateStudent(ns)
		us.FirstName = "Umar"
		us.LevelID = seeded.Levels[2]
		_, err := svc.Edit(ctx, p.Student.ID, us)
		assert.Error(t, err)

		got, err := env.Profiles.Get(ctx, p.Student.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ali", got.Student.FirstName)
		assert.Equal(t, "Level 2", got.Placement.LevelName)

		got, err = env.Profiles.Edit(ctx, p.Student.ID, us)
		require.NoError(t, err)
		assert.Equal(t, "Umar", got.Student.FirstName)
		assert.Equal(t, "Level 3", got.Placement.LevelName)
	})
}
