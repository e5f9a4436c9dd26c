package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/pondok/core/school"
	"github.com/trezcool/pondok/core/semester"
	"github.com/trezcool/pondok/core/teacher"
)

func (cli *commandLine) seed(name string) error {
	ctx := context.Background()

	ns := school.NewSchool{Name: name}
	if err := ns.Validate(cli.validate); err != nil {
		return err
	}
	sch, created, err := cli.schools.GetOrCreate(ctx, ns)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(cli.out, "school %q created (id: %d)\n", sch.Name, sch.ID)
	}

	levelIDs, err := cli.schools.SeedLevels(ctx)
	if err != nil {
		return err
	}
	if err := cli.curriculum.Seed(ctx, levelIDs); err != nil {
		return errors.Wrap(err, "seeding curriculum")
	}
	if _, err := cli.semesters.Ensure(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d levels seeded\n", len(levelIDs))
	return nil
}

func (cli *commandLine) setSemester(t semester.Term) error {
	if err := t.Validate(cli.validate); err != nil {
		return err
	}
	res, err := cli.semesters.Update(context.Background(), t)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "semester %d/%d set: %d marks purged, %d enrolments moved\n",
		res.Semester.Semester, res.Semester.Year, res.PurgedMarks, res.Enrolments)
	return nil
}

func (cli *commandLine) addTeacher(nt teacher.NewTeacher) error {
	if err := nt.Validate(cli.validate); err != nil {
		return err
	}
	t, pwd, err := cli.teachers.Create(context.Background(), nt)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "teacher %s created (password: %s)\n", t.ID, pwd)
	return nil
}

func (cli *commandLine) resetPassword(id, pwd string) error {
	if pwd != "" && len(pwd) < 6 {
		return errors.New("password must be at least 6 characters long")
	}
	pwd, err := cli.teachers.ResetPassword(context.Background(), id, pwd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "password of %s reset (password: %s)\n", id, pwd)
	return nil
}

func (cli *commandLine) importAddresses(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := cli.addresses.Import(context.Background(), f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d rows read: %d provinces, %d districts, %d subdistricts created\n",
		res.Rows, res.Provinces, res.Districts, res.Subdistricts)
	return nil
}
