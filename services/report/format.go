package reportsvc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/trezcool/pondok/core/grading"
	"github.com/trezcool/pondok/core/report"
)

func sectionTitle(sec report.GradeSection) string {
	c := sec.Category.String()
	return strings.ToUpper(c[:1]) + c[1:] + " subjects"
}

// summaryCells is the last row of a section table.
func summaryCells(s grading.Summary) []string {
	return []string{
		"Total",
		strconv.Itoa(s.Obtained),
		strconv.FormatFloat(s.Total, 'f', -1, 64),
		strconv.FormatFloat(s.Percentage, 'f', 2, 64),
		grading.LetterGrade(s.Percentage),
		string(s.Verdict),
	}
}

func overallText(s grading.Summary) string {
	return fmt.Sprintf("Overall: %d / %s (%.2f%%) - %s",
		s.Obtained, strconv.FormatFloat(s.Total, 'f', -1, 64), s.Percentage, s.Verdict)
}
