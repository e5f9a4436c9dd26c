package school_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/school"
	"github.com/trezcool/pondok/core/semester"
	"github.com/trezcool/pondok/tests"
)

func TestService_GetOrCreate(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()

	sch, created, err := env.Schools.GetOrCreate(ctx, school.NewSchool{Name: "Pondok Al-Falah"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, school.DefaultEducationDistrict, sch.EducationDistrict)

	again, created, err := env.Schools.GetOrCreate(ctx, school.NewSchool{Name: "Pondok Al-Falah", EducationDistrict: "96"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, sch, again)

	schools, err := env.Schools.Schools(ctx)
	require.NoError(t, err)
	assert.Len(t, schools, 1)
}

func TestService_SeedLevels(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()

	ids, err := env.Schools.SeedLevels(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, school.LevelCount)

	again, err := env.Schools.SeedLevels(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids, again, "seeding twice creates nothing")

	lvl, err := env.Schools.Level(ctx, ids[2])
	require.NoError(t, err)
	assert.Equal(t, "Level 3", lvl.Name)
}

func TestService_Enroll(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	sch, _, err := env.Schools.GetOrCreate(ctx, school.NewSchool{Name: "Pondok Al-Falah"})
	require.NoError(t, err)
	levels, err := env.Schools.SeedLevels(ctx)
	require.NoError(t, err)
	ali := testutil.CreateStudent(t, env, "Ali", "Hasan", "1101700203451", core.GenderMale, 0, 0)

	_, err = env.Schools.Placement(ctx, ali.ID)
	assert.Equal(t, school.ErrEnrolmentNotFound, errors.Cause(err))

	_, err = env.Schools.Enroll(ctx, ali.ID, 999, levels[0])
	assert.Equal(t, "school_id", testutil.ErrorField(err))
	_, err = env.Schools.Enroll(ctx, ali.ID, sch.ID, 999)
	assert.Equal(t, "level_id", testutil.ErrorField(err))

	enr, err := env.Schools.Enroll(ctx, ali.ID, sch.ID, levels[0])
	require.NoError(t, err)

	sem, err := env.Semesters.Get(ctx)
	require.NoError(t, err, "enrolling creates the first semester")
	assert.Equal(t, sem.ID, enr.SemesterID)

	// moving up a level replaces the enrolment
	_, err = env.Schools.Enroll(ctx, ali.ID, sch.ID, levels[1])
	require.NoError(t, err)

	p, err := env.Schools.Placement(ctx, ali.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pondok Al-Falah", p.SchoolName)
	assert.Equal(t, "Level 2", p.LevelName)

	enrolments, err := env.Schools.Enrolments(ctx, sch.ID, levels[0])
	require.NoError(t, err)
	assert.Len(t, enrolments, 0)
	enrolments, err = env.Schools.Enrolments(ctx, sch.ID, levels[1])
	require.NoError(t, err)
	assert.Len(t, enrolments, 1)

	res, err := env.Semesters.Update(ctx, semester.Term{Semester: 2, Year: sem.Year})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Enrolments)
	assert.Equal(t, sem.ID, res.Semester.ID, "the semester is a singleton")
}
