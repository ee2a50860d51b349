package export

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/intel-engine/internal/model"
)

// tableRow is the typed superset of a CSV row spec.md §6 names: every
// cell keeps its native Go type instead of being stringified, and the
// row carries the full record alongside the CSV's summary columns.
type tableRow struct {
	CompanyName     string               `json:"company_name"`
	Success         bool                 `json:"success"`
	ProcessingTimeS float64              `json:"processing_time_s"`
	Description     string               `json:"description"`
	Industry        string               `json:"industry"`
	Sector          string               `json:"sector"`
	FoundedYear     int                  `json:"founded_year"`
	EmployeeCount   string               `json:"employee_count"`
	CompanySize     string               `json:"company_size"`
	PrimaryEmail    string               `json:"primary_email"`
	PrimaryPhone    string               `json:"primary_phone"`
	PrimaryAddress  string               `json:"primary_address"`
	SocialCount     int                  `json:"social_count"`
	PersonnelCount  int                  `json:"personnel_count"`
	Confidence      float64              `json:"confidence"`
	DataQuality     float64              `json:"data_quality"`
	Completeness    float64              `json:"completeness"`
	Errors          []string             `json:"errors"`
	Warnings        []string             `json:"warnings"`
	Record          *model.CompanyRecord `json:"record,omitempty"`
}

// TableWriter writes the typed tabular superset of CSVWriter's output.
type TableWriter struct{}

func (TableWriter) Write(doc Document, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "table export: create file")
	}
	defer f.Close()

	rows := make([]tableRow, 0, len(doc.Companies))
	for _, c := range doc.Companies {
		rows = append(rows, buildTableRow(c))
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(struct {
		BatchInfo BatchInfo    `json:"batch_info"`
		Summary   SummaryStats `json:"summary_stats"`
		Rows      []tableRow   `json:"rows"`
	}{doc.BatchInfo, doc.Summary, rows}); err != nil {
		return eris.Wrap(err, "table export: encode")
	}
	return nil
}

func buildTableRow(c CompanyResult) tableRow {
	rec := c.Record
	row := tableRow{
		CompanyName:     c.CompanyName,
		Success:         c.Success,
		ProcessingTimeS: c.ProcessingTimeS,
		Errors:          c.Errors,
		Warnings:        c.Warnings,
		Record:          rec,
	}
	if rec == nil {
		return row
	}
	row.Description = rec.Basic.Description
	row.Industry = rec.Basic.Industry
	row.Sector = string(rec.Basic.Sector)
	row.FoundedYear = rec.Basic.FoundedYear
	row.EmployeeCount = rec.Financials.EmployeeCount
	row.CompanySize = string(rec.Financials.CompanySize)
	row.PrimaryEmail = firstOrEmpty(rec.Contact.Emails)
	row.PrimaryPhone = firstOrEmpty(rec.Contact.Phones)
	row.PrimaryAddress = rec.Contact.Headquarters
	row.SocialCount = len(rec.Social)
	row.PersonnelCount = len(rec.Personnel)
	row.Confidence = rec.Scores.Confidence
	row.DataQuality = rec.Scores.DataQuality
	row.Completeness = rec.Scores.Completeness
	return row
}
