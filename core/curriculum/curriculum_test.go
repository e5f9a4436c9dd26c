package curriculum_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pondok/core/curriculum"
	"github.com/trezcool/pondok/tests"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    curriculum.Category
		wantErr bool
	}{
		{in: "", want: curriculum.CategoryAll},
		{in: "all", want: curriculum.CategoryAll},
		{in: " 1 ", want: curriculum.CategoryTheory},
		{in: "Theory", want: curriculum.CategoryTheory},
		{in: "2", want: curriculum.CategoryPractical},
		{in: "practical", want: curriculum.CategoryPractical},
		{in: "3", wantErr: true},
	}
	for _, tc := range tests {
		got, err := curriculum.ParseCategory(tc.in)
		if tc.wantErr {
			assert.Equal(t, curriculum.ErrInvalidCategory, err, tc.in)
			continue
		}
		assert.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestNewSubject_Validate(t *testing.T) {
	validate, _ := testutil.Validator()

	assert.Error(t, (&curriculum.NewSubject{Name: "Math", TotalMarks: 0, Category: curriculum.CategoryTheory}).Validate(validate))
	assert.Error(t, (&curriculum.NewSubject{Name: "Math", TotalMarks: 100, Category: curriculum.CategoryAll}).Validate(validate))
	assert.NoError(t, (&curriculum.NewSubject{Name: " Math ", TotalMarks: 100, Category: curriculum.CategoryPractical}).Validate(validate))
}

func TestService(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	seeded := testutil.Seed(t, env, 2024)

	assert.Len(t, seeded.Subjects, len(curriculum.DefaultSubjects))
	require.NoError(t, env.Curriculum.Seed(ctx, seeded.Levels), "seeding twice is harmless")

	offs, err := env.Curriculum.Offerings(ctx, curriculum.OfferingFilter{LevelID: seeded.Levels[0], Semester: 2})
	require.NoError(t, err)
	assert.Len(t, offs, len(curriculum.DefaultSubjects))
	for _, off := range offs {
		assert.NotEmpty(t, off.Subject.Name, "offerings carry their subject")
	}

	sub, err := env.Curriculum.CreateSubject(ctx, curriculum.NewSubject{Name: "Prayer", TotalMarks: 20.125, Category: curriculum.CategoryPractical})
	require.NoError(t, err)
	assert.Equal(t, 20.13, sub.TotalMarks)

	_, err = env.Curriculum.CreateSubject(ctx, curriculum.NewSubject{Name: "Prayer", TotalMarks: 20, Category: curriculum.CategoryPractical})
	assert.Equal(t, "name", testutil.ErrorField(err))

	practical, err := env.Curriculum.Subjects(ctx, curriculum.CategoryPractical)
	require.NoError(t, err)
	assert.Len(t, practical, 1)

	off, err := env.Curriculum.CreateOffering(ctx, sub.ID, seeded.Levels[0], 1)
	require.NoError(t, err)
	again, err := env.Curriculum.CreateOffering(ctx, sub.ID, seeded.Levels[0], 1)
	require.NoError(t, err)
	assert.Equal(t, off.ID, again.ID)

	_, err = env.Curriculum.CreateOffering(ctx, 99999, seeded.Levels[0], 1)
	assert.Equal(t, curriculum.ErrSubjectNotFound, errors.Cause(err))

	_, err = env.Curriculum.Offering(ctx, 99999)
	assert.Equal(t, curriculum.ErrOfferingNotFound, errors.Cause(err))
}
