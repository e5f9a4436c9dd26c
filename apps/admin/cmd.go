package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/address"
	"github.com/trezcool/pondok/core/curriculum"
	"github.com/trezcool/pondok/core/school"
	"github.com/trezcool/pondok/core/semester"
	"github.com/trezcool/pondok/core/teacher"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sql.DB
	out        io.Writer
	validate   *validator.Validate
	semesters  *semester.Service
	schools    *school.Service
	curriculum *curriculum.Service
	teachers   *teacher.Service
	addresses  *address.Service
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                         - run a goose command (up, down, status, redo...)")
	fmt.Fprintln(cli.out, "  seed -school NAME                              - create the school, the levels and the default curriculum")
	fmt.Fprintln(cli.out, "  setsemester -semester 1|2 -year YEAR           - set the current semester")
	fmt.Fprintln(cli.out, "  addteacher -first NAME -last NAME -gender G    - create a teacher, the password will be prompted next")
	fmt.Fprintln(cli.out, "  resetpassword -id ID                           - reset a teacher's password, the password will be prompted next")
	fmt.Fprintln(cli.out, "  importaddress -file PATH                       - import provinces, districts and subdistricts from an Excel file")
}

// promptPassword reads a password without echo. An empty password is allowed.
func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password (leave empty to generate one):")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	seedCmd := flag.NewFlagSet("seed", flag.ContinueOnError)
	seedSchool := seedCmd.String("school", "", "The name of the school.")

	semesterCmd := flag.NewFlagSet("setsemester", flag.ContinueOnError)
	semesterNum := semesterCmd.Int("semester", 0, "The semester, 1 or 2.")
	semesterYear := semesterCmd.Int("year", 0, "The academic year (Gregorian).")

	addTeacherCmd := flag.NewFlagSet("addteacher", flag.ContinueOnError)
	addTeacherFirst := addTeacherCmd.String("first", "", "The teacher's first name.")
	addTeacherLast := addTeacherCmd.String("last", "", "The teacher's last name.")
	addTeacherGender := addTeacherCmd.String("gender", "", "male or female.")
	addTeacherSubject := addTeacherCmd.String("subject", "", "The subject taught.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordID := resetPasswordCmd.String("id", "", "The teacher's ID. The password will be prompted next.")

	importCmd := flag.NewFlagSet("importaddress", flag.ContinueOnError)
	importFile := importCmd.String("file", "", "The Excel file: province, amphoe, district and zipcode columns.")

	for _, fs := range []*flag.FlagSet{seedCmd, semesterCmd, addTeacherCmd, resetPasswordCmd, importCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "seed":
		if err := seedCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *seedSchool == "" {
			seedCmd.Usage()
			return errHelp
		}
		return cli.seed(*seedSchool)
	case "setsemester":
		if err := semesterCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *semesterNum == 0 || *semesterYear == 0 {
			semesterCmd.Usage()
			return errHelp
		}
		return cli.setSemester(semester.Term{Semester: *semesterNum, Year: *semesterYear})
	case "addteacher":
		if err := addTeacherCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addTeacherFirst == "" || *addTeacherLast == "" || *addTeacherGender == "" {
			addTeacherCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		return cli.addTeacher(teacher.NewTeacher{
			FirstName:   *addTeacherFirst,
			LastName:    *addTeacherLast,
			Gender:      core.Gender(*addTeacherGender),
			SubjectName: *addTeacherSubject,
			Password:    pwd,
		})
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordID == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordID, pwd)
	case "importaddress":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importAddresses(*importFile)
	default:
		cli.printUsage()
		return errHelp
	}
}
