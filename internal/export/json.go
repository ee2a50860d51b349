package export

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
)

// JSONWriter writes the Document verbatim as the
// {batch_info, summary_stats, companies} object spec.md §6 names.
type JSONWriter struct{}

func (JSONWriter) Write(doc Document, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "json export: create file")
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jsonDocument{
		BatchInfo: doc.BatchInfo,
		Summary:   doc.Summary,
		Companies: doc.Companies,
	}); err != nil {
		return eris.Wrap(err, "json export: encode")
	}
	return nil
}

// jsonDocument renames Document's fields to the snake_case wire shape
// spec.md §6 specifies without exposing json tags on the core Document
// type (export is the only caller that needs a wire format).
type jsonDocument struct {
	BatchInfo BatchInfo       `json:"batch_info"`
	Summary   SummaryStats    `json:"summary_stats"`
	Companies []CompanyResult `json:"companies"`
}
