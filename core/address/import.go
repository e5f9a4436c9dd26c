package address

import (
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/pondok/core"
)

// ImportResult counts what an Import created.
type ImportResult struct {
	Rows         int `json:"rows"`
	Provinces    int `json:"provinces"`
	Districts    int `json:"districts"`
	Subdistricts int `json:"subdistricts"`
}

// import columns, matched on the header row. Missing headers fall back to these positions.
var importColumns = []string{"province", "amphoe", "district", "zipcode"}

// Import reads the divisions from the first sheet of an Excel workbook.
// The first row is the header: province, amphoe, district (the tambon) and zipcode.
// Existing divisions are reused.
func (svc *Service) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	var res ImportResult

	f, err := excelize.OpenReader(r)
	if err != nil {
		return res, errors.Wrap(err, "opening workbook")
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return res, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return res, errors.Wrap(err, "reading rows")
	}
	if len(rows) == 0 {
		return res, nil
	}

	cols := columnIndexes(rows[0])
	cell := func(row []string, name string) string {
		i := cols[name]
		if i >= len(row) {
			return ""
		}
		return core.CleanString(row[i])
	}

	for _, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		pName, dName, sdName := cell(row, "province"), cell(row, "amphoe"), cell(row, "district")
		if pName == "" || dName == "" || sdName == "" {
			continue
		}
		zipcode := strings.TrimSuffix(cell(row, "zipcode"), ".0")

		p, created, err := svc.repo.GetOrCreateProvince(ctx, pName)
		if err != nil {
			return res, errors.Wrapf(err, "saving province %s", pName)
		}
		if created {
			res.Provinces++
		}
		d, created, err := svc.repo.GetOrCreateDistrict(ctx, dName, p.ID)
		if err != nil {
			return res, errors.Wrapf(err, "saving district %s", dName)
		}
		if created {
			res.Districts++
		}
		if _, created, err = svc.repo.GetOrCreateSubdistrict(ctx, sdName, d.ID, zipcode); err != nil {
			return res, errors.Wrapf(err, "saving subdistrict %s", sdName)
		}
		if created {
			res.Subdistricts++
		}
		res.Rows++
	}
	return res, nil
}

func columnIndexes(header []string) map[string]int {
	cols := make(map[string]int, len(importColumns))
	for i, name := range importColumns {
		cols[name] = i
	}
	for i, h := range header {
		h = core.CleanString(h, true /* lower */)
		for _, name := range importColumns {
			if h == name {
				cols[name] = i
			}
		}
	}
	return cols
}
