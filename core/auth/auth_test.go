package auth_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/auth"
	"github.com/trezcool/pondok/tests"
)

func TestService_Authenticate(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	ali := testutil.CreateStudent(t, env, "Ali", "Hasan", "1101700203451", core.GenderMale, 0, 0)
	siti, _ := testutil.CreateTeacher(t, env, "Siti", "Aishah", "secret1", core.GenderFemale)

	tests := []struct {
		name     string
		username string
		password string
		want     core.Principal
		wantErr  error
	}{
		{
			name:     "student",
			username: " " + ali.ID + " ",
			password: "1101700203451",
			want:     core.Principal{ID: ali.ID, Kind: core.PrincipalStudent, Name: "Ali Hasan"},
		},
		{
			name:     "teacher",
			username: siti.ID,
			password: "secret1",
			want:     core.Principal{ID: siti.ID, Kind: core.PrincipalTeacher, Name: "Siti Aishah"},
		},
		{name: "wrong student password", username: ali.ID, password: "1101700203452", wantErr: auth.ErrInvalidCredentials},
		{name: "wrong teacher password", username: siti.ID, password: "secret2", wantErr: auth.ErrInvalidCredentials},
		{name: "unknown user", username: "nobody", password: "x", wantErr: auth.ErrInvalidCredentials},
		{name: "blank", username: "", password: "", wantErr: auth.ErrInvalidCredentials},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := env.Auth.Authenticate(ctx, tc.username, tc.password)
			if tc.wantErr != nil {
				assert.Equal(t, tc.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, p)
		})
	}
}

func TestService_Refresh(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	ali := testutil.CreateStudent(t, env, "Ali", "Hasan", "1101700203451", core.GenderMale, 0, 0)

	p, err := env.Auth.Refresh(ctx, core.Principal{ID: ali.ID, Kind: core.PrincipalStudent})
	require.NoError(t, err)
	assert.Equal(t, "Ali Hasan", p.Name)

	require.NoError(t, env.Students.SoftDelete(ctx, ali.ID))
	_, err = env.Auth.Refresh(ctx, core.Principal{ID: ali.ID, Kind: core.PrincipalStudent})
	assert.Equal(t, auth.ErrInvalidCredentials, errors.Cause(err))

	_, err = env.Auth.Refresh(ctx, core.Principal{ID: "T670001", Kind: core.PrincipalTeacher})
	assert.Equal(t, auth.ErrInvalidCredentials, errors.Cause(err))
}
