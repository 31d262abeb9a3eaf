package notify

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/contractlink/contract-hub/internal/model"
	"github.com/contractlink/contract-hub/pkg/notion"
)

// NotionSink mirrors notifications into a Notion database, one page per
// notification. Deployments that track outreach in Notion wire it alongside
// the store sink.
type NotionSink struct {
	client     notion.Client
	databaseID string
}

// NewNotionSink creates a Sink that writes pages into the given database.
func NewNotionSink(client notion.Client, databaseID string) *NotionSink {
	return &NotionSink{client: client, databaseID: databaseID}
}

func (s *NotionSink) Notify(ctx context.Context, n model.Notification) error {
	if n.UserID == "" {
		return eris.New("notify: notification without user id")
	}

	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(s.databaseID),
		},
		Properties: notionapi.Properties{
			"Name": notionapi.TitleProperty{
				Type: notionapi.PropertyTypeTitle,
				Title: []notionapi.RichText{
					{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: n.Title}},
				},
			},
			"User": notionapi.RichTextProperty{
				Type: notionapi.PropertyTypeRichText,
				RichText: []notionapi.RichText{
					{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: n.UserID}},
				},
			},
			"Body": notionapi.RichTextProperty{
				Type: notionapi.PropertyTypeRichText,
				RichText: []notionapi.RichText{
					{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: n.Body}},
				},
			},
			"Link": notionapi.URLProperty{
				Type: notionapi.PropertyTypeURL,
				URL:  n.Link,
			},
		},
	}

	if _, err := s.client.CreatePage(ctx, req); err != nil {
		return eris.Wrap(err, "notify: create notion page")
	}
	return nil
}

// MultiSink fans a notification out to every sink. All sinks are attempted;
// the first error is returned after the fan-out completes.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a Sink delivering to all of the given sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Notify(ctx context.Context, n model.Notification) error {
	var first error
	for _, s := range m.sinks {
		if err := s.Notify(ctx, n); err != nil && first == nil {
			first = err
		}
	}
	return first
}
