package reportsvc

import (
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/report"
)

const (
	pdfMargin     = 12.7 // half an inch
	pdfHeaderH    = 25.4
	pdfLineH      = 7.0
	pdfFallbackFF = "Helvetica"
)

// PDFRenderer prints A4 landscape documents.
// Without a configured font file, the core Helvetica font is used and text is limited to cp1252.
type PDFRenderer struct {
	fontFamily string
	fontPath   string
	logoPath   string
}

var _ report.Renderer = (*PDFRenderer)(nil)

func NewPDFRenderer(conf *core.Config) *PDFRenderer {
	r := &PDFRenderer{fontFamily: pdfFallbackFF, logoPath: conf.Report.LogoPath}
	if conf.Report.FontPath != "" {
		r.fontFamily = conf.Report.FontFamily
		r.fontPath = conf.Report.FontPath
	}
	return r
}

func (*PDFRenderer) ContentType() string { return "application/pdf" }
func (*PDFRenderer) Extension() string   { return "pdf" }

// document wraps a page set up with the font and the translation of text to it.
type document struct {
	*fpdf.Fpdf
	family string
	tr     func(string) string
	width  float64 // printable
}

func (r *PDFRenderer) newDocument(title string) *document {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle(title, true)

	doc := &document{Fpdf: pdf, family: r.fontFamily, tr: func(s string) string { return s }}
	if r.fontPath != "" {
		pdf.AddUTF8Font(r.fontFamily, "", r.fontPath)
		pdf.AddUTF8Font(r.fontFamily, "B", r.fontPath)
	} else {
		doc.tr = pdf.UnicodeTranslatorFromDescriptor("")
	}
	pdf.AddPage()
	w, _ := pdf.GetPageSize()
	doc.width = w - 2*pdfMargin
	return doc
}

// header prints the logo, the school and the info line side by side, under the title.
func (doc *document) header(h report.Header, logoPath string) {
	doc.SetFont(doc.family, "B", 16)
	doc.CellFormat(doc.width, pdfLineH+2, doc.tr(h.Title), "", 1, "C", false, 0, "")

	logoW, schoolW := doc.width*0.2, doc.width*0.5
	infoW := doc.width - logoW - schoolW
	x, y := doc.GetXY()
	doc.SetDrawColor(128, 128, 128)

	doc.CellFormat(logoW, pdfHeaderH, "", "1", 0, "", false, 0, "")
	if logoPath != "" {
		size := pdfHeaderH - 4
		doc.ImageOptions(logoPath, x+(logoW-size)/2, y+2, size, size, false, fpdf.ImageOptions{ReadDpi: true}, 0, "")
	}

	doc.SetFont(doc.family, "B", 20)
	doc.CellFormat(schoolW, pdfHeaderH, doc.tr(h.School), "1", 0, "CM", false, 0, "")

	doc.SetFont(doc.family, "", 11)
	infoX := x + logoW + schoolW
	doc.Rect(infoX, y, infoW, pdfHeaderH, "D")
	lineH := 5.0
	lines := h.Info
	top := y + (pdfHeaderH-float64(len(lines))*lineH)/2
	for i, l := range lines {
		doc.SetXY(infoX, top+float64(i)*lineH)
		doc.CellFormat(infoW, lineH, doc.tr(l), "", 0, "C", false, 0, "")
	}
	doc.SetXY(x, y+pdfHeaderH+pdfLineH)
}

// table prints a grid, widths are relative and stretched to the page.
// The column titles are printed again at the top of each new page.
func (doc *document) table(cols []string, widths []float64, rows [][]string) {
	var sum float64
	for _, w := range widths {
		sum += w
	}
	abs := make([]float64, len(widths))
	for i, w := range widths {
		abs[i] = w / sum * doc.width
	}

	titles := func() {
		doc.SetFont(doc.family, "B", 12)
		doc.SetFillColor(211, 211, 211)
		for i, c := range cols {
			doc.CellFormat(abs[i], pdfLineH+1, doc.tr(c), "1", 0, "CM", true, 0, "")
		}
		doc.Ln(-1)
		doc.SetFont(doc.family, "", 11)
	}

	_, pageH := doc.GetPageSize()
	titles()
	if len(rows) == 0 {
		doc.CellFormat(doc.width, pdfLineH, doc.tr(report.NoData), "1", 1, "C", false, 0, "")
		return
	}
	for _, row := range rows {
		if doc.GetY()+pdfLineH > pageH-pdfMargin {
			doc.AddPage()
			titles()
		}
		for i, cell := range row {
			doc.CellFormat(abs[i], pdfLineH, doc.tr(cell), "1", 0, "CM", false, 0, "")
		}
		doc.Ln(-1)
	}
}

func (doc *document) output(w io.Writer) error {
	if err := doc.Error(); err != nil {
		return errors.Wrap(err, "building pdf")
	}
	return errors.Wrap(doc.Output(w), "writing pdf")
}

func evenWidths(n int) []float64 {
	ws := make([]float64, n)
	for i := range ws {
		ws[i] = 1
	}
	return ws
}

func (r *PDFRenderer) StudentList(w io.Writer, l report.StudentList) error {
	doc := r.newDocument(l.Header.Title)
	doc.header(l.Header, r.logoPath)

	rows := make([][]string, 0, len(l.Rows))
	for _, row := range l.Rows {
		rows = append(rows, row.Cells())
	}
	doc.table(l.Columns(), []float64{40, 90, 150, 150, 80, 250, 100}, rows)
	return doc.output(w)
}

func (r *PDFRenderer) GradeSheet(w io.Writer, s report.GradeSheet) error {
	doc := r.newDocument(s.Header.Title)
	doc.header(s.Header, r.logoPath)

	cols := s.Columns()
	widths := evenWidths(len(cols))
	widths[1] = 3 // name
	rows := make([][]string, 0, len(s.Rows))
	for _, row := range s.Rows {
		rows = append(rows, row.Cells())
	}
	doc.table(cols, widths, rows)
	return doc.output(w)
}

func (r *PDFRenderer) GradeReport(w io.Writer, gr report.GradeReport) error {
	doc := r.newDocument(gr.Header.Title)
	doc.header(gr.Header, r.logoPath)

	for _, sec := range gr.Sections {
		doc.SetFont(doc.family, "B", 14)
		doc.CellFormat(doc.width, pdfLineH+2, doc.tr(sectionTitle(sec)), "", 1, "L", false, 0, "")

		rows := make([][]string, 0, len(sec.Rows)+1)
		for _, row := range sec.Rows {
			rows = append(rows, report.SubjectCells(row))
		}
		rows = append(rows, summaryCells(sec.Summary))
		doc.table(sec.Columns(), []float64{3, 1, 1, 1, 1, 1}, rows)
		doc.Ln(pdfLineH)
	}

	doc.SetFont(doc.family, "B", 14)
	doc.CellFormat(doc.width, pdfLineH+2, doc.tr(overallText(gr.Summary)), "", 1, "L", false, 0, "")
	return doc.output(w)
}
