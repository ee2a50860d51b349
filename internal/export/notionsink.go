package export

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/sells-group/intel-engine/pkg/notion"
)

// NotionSink mirrors a batch export onto pages in a caller-configured
// Notion database (spec.md §6: "pkg/notion page sink (optional)").
// Unlike the filesystem Writers, it is not dispatched through
// model.ExportFormat — callers opt in explicitly alongside a primary
// Writer.
type NotionSink struct {
	Client Client
	DBID   string
}

// Client narrows pkg/notion.Client to the one call the sink needs.
type Client interface {
	CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
}

var _ Client = notion.Client(nil)

// Write creates one page per company result. It stops at the first
// failure; partial writes already sent to Notion are not rolled back,
// matching the teacher's fire-and-log treatment of Notion side effects.
func (s NotionSink) Write(ctx context.Context, doc Document) error {
	for _, c := range doc.Companies {
		req := &notionapi.PageCreateRequest{
			Parent: notionapi.Parent{
				Type:       notionapi.ParentTypeDatabaseID,
				DatabaseID: notionapi.DatabaseID(s.DBID),
			},
			Properties: notionapi.Properties{
				"Name": notionapi.TitleProperty{
					Type:  notionapi.PropertyTypeTitle,
					Title: []notionapi.RichText{{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: c.CompanyName}}},
				},
				"Status": notionapi.StatusProperty{
					Type:   notionapi.PropertyTypeStatus,
					Status: notionapi.Status{Name: statusName(c)},
				},
			},
		}
		if rec := c.Record; rec != nil {
			req.Properties["Industry"] = notionapi.RichTextProperty{
				Type:     notionapi.PropertyTypeRichText,
				RichText: []notionapi.RichText{{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: rec.Basic.Industry}}},
			}
			req.Properties["Domain"] = notionapi.URLProperty{
				Type: notionapi.PropertyTypeURL,
				URL:  rec.Basic.Domain,
			}
			if rec.Financials.CompanySize != "" {
				req.Properties["Size"] = notionapi.SelectProperty{
					Type:   notionapi.PropertyTypeSelect,
					Select: notionapi.Option{Name: string(rec.Financials.CompanySize)},
				}
			}
		}

		if _, err := s.Client.CreatePage(ctx, req); err != nil {
			return eris.Wrap(err, fmt.Sprintf("notion sink: create page for %s", c.CompanyName))
		}
	}
	return nil
}

func statusName(c CompanyResult) string {
	if c.Success {
		return "Enriched"
	}
	return "Failed"
}
