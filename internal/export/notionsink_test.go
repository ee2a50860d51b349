package export

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotionClient struct {
	created []*notionapi.PageCreateRequest
	failAt  int
}

func (f *fakeNotionClient) CreatePage(_ context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	if f.failAt > 0 && len(f.created) == f.failAt-1 {
		return nil, assert.AnError
	}
	f.created = append(f.created, req)
	return &notionapi.Page{}, nil
}

func TestNotionSink_CreatesOnePagePerCompany(t *testing.T) {
	client := &fakeNotionClient{}
	sink := NotionSink{Client: client, DBID: "db123"}

	doc := sampleDocument()
	require.NoError(t, sink.Write(context.Background(), doc))
	require.Len(t, client.created, 2)

	title := client.created[0].Properties["Name"].(notionapi.TitleProperty).Title
	require.Len(t, title, 1)
	assert.Equal(t, "Acme", title[0].Text.Content)

	status := client.created[1].Properties["Status"].(notionapi.StatusProperty).Status
	assert.Equal(t, "Failed", status.Name)
}

func TestNotionSink_SetsSizePropertyWhenKnown(t *testing.T) {
	client := &fakeNotionClient{}
	sink := NotionSink{Client: client, DBID: "db123"}

	doc := sampleDocument()
	doc.Companies[0].Record.Financials.CompanySize = "enterprise"
	require.NoError(t, sink.Write(context.Background(), doc))

	size := client.created[0].Properties["Size"].(notionapi.SelectProperty).Select
	assert.Equal(t, "enterprise", size.Name)

	_, hasSize := client.created[1].Properties["Size"]
	assert.False(t, hasSize)
}

func TestNotionSink_StopsOnFirstFailure(t *testing.T) {
	client := &fakeNotionClient{failAt: 2}
	sink := NotionSink{Client: client, DBID: "db123"}

	err := sink.Write(context.Background(), sampleDocument())
	assert.Error(t, err)
	assert.Len(t, client.created, 1)
}
