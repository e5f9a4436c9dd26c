// Package auth authenticates students and teachers.
package auth

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/student"
	"github.com/trezcool/pondok/core/teacher"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type (
	Students interface {
		Authenticate(ctx context.Context, id, nationalID string) (student.Student, error)
		GetActive(ctx context.Context, id string) (student.Student, error)
	}

	Teachers interface {
		Authenticate(ctx context.Context, id, pwd string) (teacher.Teacher, error)
		Get(ctx context.Context, id string) (teacher.Teacher, error)
	}

	Service struct {
		students Students
		teachers Teachers
	}
)

func NewService(students Students, teachers Teachers) *Service {
	return &Service{students: students, teachers: teachers}
}

// Authenticate tries the username as a student ID with the national ID as password first,
// then as a teacher ID with the teacher password.
func (svc *Service) Authenticate(ctx context.Context, username, password string) (core.Principal, error) {
	username = core.CleanString(username)
	if username == "" || password == "" {
		return core.Principal{}, ErrInvalidCredentials
	}

	s, err := svc.students.Authenticate(ctx, username, password)
	if err == nil {
		return core.Principal{ID: s.ID, Kind: core.PrincipalStudent, Name: s.FullName()}, nil
	}
	if errors.Cause(err) != student.ErrNotFound {
		return core.Principal{}, errors.Wrap(err, "authenticating student")
	}

	t, err := svc.teachers.Authenticate(ctx, username, password)
	if err == nil {
		return core.Principal{ID: t.ID, Kind: core.PrincipalTeacher, Name: t.FullName()}, nil
	}
	if errors.Cause(err) != teacher.ErrNotFound {
		return core.Principal{}, errors.Wrap(err, "authenticating teacher")
	}
	return core.Principal{}, ErrInvalidCredentials
}

// Refresh reloads a principal, failing with ErrInvalidCredentials when it may no longer log in.
func (svc *Service) Refresh(ctx context.Context, p core.Principal) (core.Principal, error) {
	switch p.Kind {
	case core.PrincipalStudent:
		s, err := svc.students.GetActive(ctx, p.ID)
		if errors.Cause(err) == student.ErrNotFound {
			return core.Principal{}, ErrInvalidCredentials
		}
		if err != nil {
			return core.Principal{}, err
		}
		return core.Principal{ID: s.ID, Kind: p.Kind, Name: s.FullName()}, nil
	case core.PrincipalTeacher:
		t, err := svc.teachers.Get(ctx, p.ID)
		if errors.Cause(err) == teacher.ErrNotFound {
			return core.Principal{}, ErrInvalidCredentials
		}
		if err != nil {
			return core.Principal{}, err
		}
		return core.Principal{ID: t.ID, Kind: p.Kind, Name: t.FullName()}, nil
	}
	return core.Principal{}, ErrInvalidCredentials
}
