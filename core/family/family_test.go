package family_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/family"
	"github.com/trezcool/pondok/core/student"
	"github.com/trezcool/pondok/tests"
)

func TestParseKind(t *testing.T) {
	k, err := family.ParseKind(" Mother ")
	require.NoError(t, err)
	assert.Equal(t, family.Mother, k)

	_, err = family.ParseKind("uncle")
	assert.Equal(t, family.ErrInvalidKind, err)
}

func TestSaveParent_Validate(t *testing.T) {
	validate, _ := testutil.Validator()
	income := -1.0

	sp := family.SaveParent{FirstName: "Hasan", LastName: "Ahmad", Income: &income}
	assert.Error(t, sp.Validate(validate))

	income = 12000
	sp.Phone = "081-234 5678"
	require.NoError(t, sp.Validate(validate))
	assert.Equal(t, "0812345678", sp.Phone)

	sp.Relationship = "cousin"
	assert.Error(t, sp.Validate(validate))
}

func TestService(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	ali := testutil.CreateStudent(t, env, "Ali", "Hasan", "1101700203451", core.GenderMale, 0, 0)

	_, err := env.Families.Save(ctx, "nobody", family.Father, family.SaveParent{FirstName: "X", LastName: "Y"})
	assert.Equal(t, student.ErrNotFound, errors.Cause(err))

	_, err = env.Families.Save(ctx, ali.ID, family.Father, family.SaveParent{FirstName: "X", LastName: "Y", Relationship: "other"})
	assert.Equal(t, "relationship", testutil.ErrorField(err))

	income := 9000.0
	father, err := env.Families.Save(ctx, ali.ID, family.Father, family.SaveParent{
		FirstName: "Hasan", LastName: "Ahmad", DateOfBirth: "01/02/1980", Income: &income,
	})
	require.NoError(t, err)
	assert.Equal(t, 9000.0, father.Income.Float64)
	assert.Equal(t, 1980, father.DateOfBirth.Time.Year())

	_, err = env.Families.Save(ctx, ali.ID, family.Guardian, family.SaveParent{FirstName: "Yusof", LastName: "Ahmad", Relationship: "other"})
	require.NoError(t, err)

	// saving again replaces the father
	again, err := env.Families.Save(ctx, ali.ID, family.Father, family.SaveParent{FirstName: "Hasan", LastName: "bin Ahmad"})
	require.NoError(t, err)
	assert.Equal(t, father.ID, again.ID)
	assert.False(t, again.Income.Valid)

	f, err := env.Families.Parents(ctx, ali.ID)
	require.NoError(t, err)
	if assert.NotNil(t, f.Father) {
		assert.Equal(t, "bin Ahmad", f.Father.LastName)
	}
	assert.Nil(t, f.Mother)
	if assert.NotNil(t, f.Guardian) {
		assert.Equal(t, "other", f.Guardian.Relationship.String)
	}
}
