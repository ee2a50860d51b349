package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/intel-engine/internal/model"
)

// csvColumns is the fixed column set spec.md §6 names for CSV export:
// company name, success, processing time, description, industry, founded
// year, employee count, primary email/phone/address, counts of social and
// personnel, three score fields, joined error and warning strings.
var csvColumns = []string{
	"Company Name",
	"Success",
	"Processing Time (s)",
	"Description",
	"Industry",
	"Founded Year",
	"Employee Count",
	"Primary Email",
	"Primary Phone",
	"Primary Address",
	"Social Count",
	"Personnel Count",
	"Confidence",
	"Data Quality",
	"Completeness",
	"Errors",
	"Warnings",
}

// CSVWriter writes the fixed-column CSV export spec.md §6 names.
type CSVWriter struct{}

func (CSVWriter) Write(doc Document, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "csv export: create file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(csvColumns); err != nil {
		return eris.Wrap(err, "csv export: write header")
	}
	for _, c := range doc.Companies {
		if err := w.Write(buildCSVRow(c)); err != nil {
			return eris.Wrap(err, "csv export: write row")
		}
	}
	return nil
}

func buildCSVRow(c CompanyResult) []string {
	row := []string{
		c.CompanyName,
		strconv.FormatBool(c.Success),
		strconv.FormatFloat(c.ProcessingTimeS, 'f', 3, 64),
	}

	rec := c.Record
	if rec == nil {
		rec = &model.CompanyRecord{}
	}
	row = append(row,
		rec.Basic.Description,
		rec.Basic.Industry,
		foundedYearStr(rec.Basic.FoundedYear),
		rec.Financials.EmployeeCount,
		firstOrEmpty(rec.Contact.Emails),
		firstOrEmpty(rec.Contact.Phones),
		rec.Contact.Headquarters,
		strconv.Itoa(len(rec.Social)),
		strconv.Itoa(len(rec.Personnel)),
		strconv.FormatFloat(rec.Scores.Confidence, 'f', 2, 64),
		strconv.FormatFloat(rec.Scores.DataQuality, 'f', 2, 64),
		strconv.FormatFloat(rec.Scores.Completeness, 'f', 2, 64),
		strings.Join(c.Errors, "; "),
		strings.Join(c.Warnings, "; "),
	)
	return row
}

func foundedYearStr(year int) string {
	if year == 0 {
		return ""
	}
	return fmt.Sprintf("%d", year)
}

func firstOrEmpty(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}
