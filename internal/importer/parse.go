package importer

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/contractlink/contract-hub/internal/model"
)

// feedRow is the shape of one record in a JSON feed.
type feedRow struct {
	ExternalID   string `json:"external_id"`
	Title        string `json:"title"`
	Agency       string `json:"agency"`
	Location     string `json:"location"`
	Description  string `json:"description"`
	ContactEmail string `json:"contact_email"`
	SourceURL    string `json:"source_url"`
	PostedAt     string `json:"posted_at"`
}

func (r feedRow) toLead(category model.Category) model.Lead {
	lead := model.Lead{
		ExternalID:  strings.TrimSpace(r.ExternalID),
		Category:    category,
		Title:       strings.TrimSpace(r.Title),
		Agency:      strings.TrimSpace(r.Agency),
		Location:    strings.TrimSpace(r.Location),
		Description: strings.TrimSpace(r.Description),
		DataSource:  model.DataSourceAPI,
	}
	if v := strings.TrimSpace(r.ContactEmail); v != "" {
		lead.ContactEmail = &v
	}
	if v := strings.TrimSpace(r.SourceURL); v != "" {
		lead.SourceURL = &v
	}
	if t, ok := parseFeedTime(r.PostedAt); ok {
		lead.PostedAt = &t
	}
	return lead
}

func parseFeedTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "01/02/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseJSON reads a JSON array of feed rows.
func parseJSON(r io.Reader, category model.Category) ([]model.Lead, error) {
	var rows []feedRow
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, eris.Wrap(err, "importer: decode json feed")
	}

	leads := make([]model.Lead, 0, len(rows))
	for _, row := range rows {
		leads = append(leads, row.toLead(category))
	}
	return leads, nil
}

// headerIndex maps column names to positions. Tabular feeds must carry
// external_id and title columns; column order is free and unknown columns
// are ignored.
func headerIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	if _, ok := idx["external_id"]; !ok {
		return nil, eris.New("importer: feed missing external_id column")
	}
	if _, ok := idx["title"]; !ok {
		return nil, eris.New("importer: feed missing title column")
	}
	return idx, nil
}

func recordRow(idx map[string]int, record []string) feedRow {
	field := func(name string) string {
		i, ok := idx[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}
	return feedRow{
		ExternalID:   field("external_id"),
		Title:        field("title"),
		Agency:       field("agency"),
		Location:     field("location"),
		Description:  field("description"),
		ContactEmail: field("contact_email"),
		SourceURL:    field("source_url"),
		PostedAt:     field("posted_at"),
	}
}

// parseCSV reads a header-first CSV feed.
func parseCSV(r io.Reader, category model.Category) ([]model.Lead, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "importer: read csv header")
	}
	idx, err := headerIndex(header)
	if err != nil {
		return nil, err
	}

	var leads []model.Lead
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "importer: read csv record")
		}
		leads = append(leads, recordRow(idx, record).toLead(category))
	}
	return leads, nil
}

// parseXLSX reads the first sheet of a workbook feed, header row first.
func parseXLSX(r io.Reader, category model.Category) ([]model.Lead, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "importer: read xlsx feed")
	}
	f, err := xlsx.OpenBinary(raw)
	if err != nil {
		return nil, eris.Wrap(err, "importer: open xlsx feed")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("importer: xlsx feed has no sheets")
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.New("importer: xlsx feed has no header row")
	}
	idx, err := headerIndex(rowStrings(sheet.Rows[0]))
	if err != nil {
		return nil, err
	}

	var leads []model.Lead
	for _, row := range sheet.Rows[1:] {
		leads = append(leads, recordRow(idx, rowStrings(row)).toLead(category))
	}
	return leads, nil
}

func rowStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
