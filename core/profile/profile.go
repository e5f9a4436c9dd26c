// Package profile assembles everything known about a student.
package profile

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/address"
	"github.com/trezcool/pondok/core/family"
	"github.com/trezcool/pondok/core/school"
	"github.com/trezcool/pondok/core/student"
)

type Profile struct {
	Student   student.Student   `json:"student"`
	Placement *school.Placement `json:"placement"`
	Address   *address.Address  `json:"address"`
	family.Family
}

type (
	Students interface {
		Get(ctx context.Context, id string) (student.Student, error)
		Create(ctx context.Context, ns student.NewStudent) (student.Student, error)
		Update(ctx context.Context, id string, us student.UpdateStudent) (student.Student, error)
	}
	Schools interface {
		Placement(ctx context.Context, studentID string) (school.Placement, error)
		Enroll(ctx context.Context, studentID string, schoolID, levelID int) (school.Enrolment, error)
	}
	Families interface {
		Parents(ctx context.Context, studentID string) (family.Family, error)
	}
	Addresses interface {
		Get(ctx context.Context, id string) (address.Address, error)
	}

	Service struct {
		tx        core.Transactor
		students  Students
		schools   Schools
		families  Families
		addresses Addresses
	}
)

func NewService(tx core.Transactor, students Students, schools Schools, families Families, addresses Addresses) *Service {
	return &Service{tx: tx, students: students, schools: schools, families: families, addresses: addresses}
}

// Register creates a student and enrols them when a school and level are given.
// Nothing is saved if the enrolment fails.
func (svc *Service) Register(ctx context.Context, ns student.NewStudent) (Profile, error) {
	var id string
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		s, err := svc.students.Create(ctx, ns)
		if err != nil {
			return errors.Wrap(err, "creating student")
		}
		id = s.ID
		return svc.enroll(ctx, id, ns.SchoolID, ns.LevelID)
	})
	if err != nil {
		return Profile{}, err
	}
	return svc.Get(ctx, id)
}

// Edit updates a student and their enrolment in one transaction.
func (svc *Service) Edit(ctx context.Context, id string, us student.UpdateStudent) (Profile, error) {
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := svc.students.Update(ctx, id, us); err != nil {
			return errors.Wrap(err, "updating student")
		}
		return svc.enroll(ctx, id, us.SchoolID, us.LevelID)
	})
	if err != nil {
		return Profile{}, err
	}
	return svc.Get(ctx, id)
}

func (svc *Service) enroll(ctx context.Context, studentID string, schoolID, levelID int) error {
	if schoolID == 0 || levelID == 0 {
		return nil
	}
	_, err := svc.schools.Enroll(ctx, studentID, schoolID, levelID)
	return errors.Wrap(err, "enrolling student")
}

// Get returns the profile of a student. Missing enrolment, address or parents are left nil.
func (svc *Service) Get(ctx context.Context, studentID string) (Profile, error) {
	s, err := svc.students.Get(ctx, studentID)
	if err != nil {
		return Profile{}, err
	}
	p := Profile{Student: s}

	placement, err := svc.schools.Placement(ctx, s.ID)
	switch {
	case err == nil:
		p.Placement = &placement
	case errors.Cause(err) != school.ErrEnrolmentNotFound:
		return Profile{}, errors.Wrap(err, "getting placement")
	}

	if s.AddressID.Valid {
		addr, err := svc.addresses.Get(ctx, s.AddressID.String)
		switch {
		case err == nil:
			p.Address = &addr
		case errors.Cause(err) != address.ErrNotFound:
			return Profile{}, errors.Wrap(err, "getting address")
		}
	}

	if p.Family, err = svc.families.Parents(ctx, s.ID); err != nil {
		return Profile{}, errors.Wrap(err, "getting parents")
	}
	return p, nil
}
