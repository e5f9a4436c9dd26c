package reportsvc

import (
	"io"
	"strconv"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/pondok/core/grading"
	"github.com/trezcool/pondok/core/report"
)

// XLSXRenderer writes the documents as Excel workbooks of one sheet.
type XLSXRenderer struct{}

var _ report.Renderer = (*XLSXRenderer)(nil)

func NewXLSXRenderer() *XLSXRenderer { return &XLSXRenderer{} }

func (*XLSXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (*XLSXRenderer) Extension() string { return "xlsx" }

// workbook writes rows one after another on its only sheet.
type workbook struct {
	f           *excelize.File
	sheet       string
	row         int
	titleStyle  int
	headerStyle int
	err         error
}

func newWorkbook(sheet string) (*workbook, error) {
	f := excelize.NewFile()
	wb := &workbook{f: f, sheet: sheet, row: 1}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, errors.Wrap(err, "naming sheet")
	}

	var err error
	if wb.titleStyle, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}}); err != nil {
		return nil, errors.Wrap(err, "creating title style")
	}
	wb.headerStyle, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"D3D3D3"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "808080", Style: 1},
			{Type: "top", Color: "808080", Style: 1},
			{Type: "right", Color: "808080", Style: 1},
			{Type: "bottom", Color: "808080", Style: 1},
		},
	})
	return wb, errors.Wrap(err, "creating header style")
}

// put writes values on the next row, with style when not 0.
func (wb *workbook) put(style int, values ...interface{}) {
	if wb.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, wb.row)
	if err == nil {
		err = wb.f.SetSheetRow(wb.sheet, cell, &values)
	}
	if err == nil && style != 0 && len(values) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(values), wb.row)
		err = wb.f.SetCellStyle(wb.sheet, cell, last, style)
	}
	wb.err = err
	wb.row++
}

func (wb *workbook) skip() { wb.row++ }

func (wb *workbook) header(h report.Header) {
	wb.put(wb.titleStyle, h.Title)
	wb.put(wb.titleStyle, h.School)
	for _, info := range h.Info {
		wb.put(0, info)
	}
	wb.skip()
}

func (wb *workbook) columns(cols []string) {
	values := make([]interface{}, len(cols))
	for i, c := range cols {
		values[i] = c
	}
	wb.put(wb.headerStyle, values...)
}

func (wb *workbook) write(w io.Writer) error {
	defer func() { _ = wb.f.Close() }()
	if wb.err != nil {
		return errors.Wrap(wb.err, "filling workbook")
	}
	if err := wb.f.SetColWidth(wb.sheet, "A", "B", 16); err != nil {
		return errors.Wrap(err, "sizing columns")
	}
	return errors.Wrap(wb.f.Write(w), "writing workbook")
}

// number keeps "N/A" and the like as text.
func number(s string) interface{} {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func (r *XLSXRenderer) StudentList(w io.Writer, l report.StudentList) error {
	wb, err := newWorkbook("Students")
	if err != nil {
		return err
	}
	wb.header(l.Header)
	wb.columns(l.Columns())
	if len(l.Rows) == 0 {
		wb.put(0, report.NoData)
	}
	for _, row := range l.Rows {
		wb.put(0, row.Index, row.ID, row.FirstName, row.LastName, row.Gender, row.School, row.SpecialStatus)
	}
	return wb.write(w)
}

func (r *XLSXRenderer) GradeSheet(w io.Writer, s report.GradeSheet) error {
	wb, err := newWorkbook("Grades")
	if err != nil {
		return err
	}
	wb.header(s.Header)
	wb.columns(s.Columns())
	if len(s.Rows) == 0 {
		wb.put(0, report.NoData)
	}
	for _, row := range s.Rows {
		values := []interface{}{row.StudentID, row.StudentName}
		for _, m := range row.Marks {
			values = append(values, number(m))
		}
		values = append(values, row.Summary.Total, row.Summary.Obtained, row.Summary.Percentage, string(row.Summary.Verdict))
		wb.put(0, values...)
	}
	return wb.write(w)
}

func (r *XLSXRenderer) GradeReport(w io.Writer, gr report.GradeReport) error {
	wb, err := newWorkbook("Report")
	if err != nil {
		return err
	}
	wb.header(gr.Header)
	for _, sec := range gr.Sections {
		wb.put(wb.titleStyle, sectionTitle(sec))
		wb.columns(sec.Columns())
		for _, row := range sec.Rows {
			cells := report.SubjectCells(row)
			wb.put(0, cells[0], row.Marks, number(cells[2]), number(cells[3]), cells[4], cells[5])
		}
		wb.put(wb.headerStyle, summaryRow(sec.Summary)...)
		wb.skip()
	}
	wb.put(wb.titleStyle, overallText(gr.Summary))
	return wb.write(w)
}

func summaryRow(s grading.Summary) []interface{} {
	return []interface{}{"Total", s.Obtained, s.Total, s.Percentage, grading.LetterGrade(s.Percentage), string(s.Verdict)}
}
