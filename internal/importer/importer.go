// Package importer lands lead feeds (CSV, JSON, or XLSX over http, ftp, or
// local files) into storage and kicks off post-import enrichment.
package importer

import (
	"context"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/contractlink/contract-hub/internal/model"
)

// LeadStore is the persistence slice the importer needs.
type LeadStore interface {
	UpsertLeads(ctx context.Context, leads []model.Lead) (int64, error)
}

// Report summarizes one import.
type Report struct {
	Source   string `json:"source"`
	Parsed   int    `json:"parsed"`
	Dropped  int    `json:"dropped"`
	Deduped  int    `json:"deduped"`
	Upserted int64  `json:"upserted"`
}

// Importer fetches, parses, dedups, and upserts lead feeds.
type Importer struct {
	store LeadStore

	// AfterImport, when set, runs after a successful upsert. The serve
	// path uses it to trigger an enrichment batch for the new rows.
	AfterImport func(ctx context.Context)
}

// New creates an Importer.
func New(store LeadStore) *Importer {
	return &Importer{store: store}
}

// Import loads the feed at src into the given category. The format is
// inferred from the source name unless format is "csv", "json", or "xlsx".
func (im *Importer) Import(ctx context.Context, src string, category model.Category, format string) (*Report, error) {
	if !category.Valid() {
		return nil, eris.Errorf("importer: invalid category %q", category)
	}

	body, err := fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	if format == "" {
		format = inferFormat(src)
	}

	var leads []model.Lead
	switch format {
	case "json":
		leads, err = parseJSON(body, category)
	case "csv":
		leads, err = parseCSV(body, category)
	case "xlsx":
		leads, err = parseXLSX(body, category)
	default:
		return nil, eris.Errorf("importer: unknown feed format %q", format)
	}
	if err != nil {
		return nil, err
	}

	report := &Report{Source: src, Parsed: len(leads)}

	valid := leads[:0]
	for _, l := range leads {
		if l.ExternalID == "" || l.Title == "" {
			report.Dropped++
			continue
		}
		valid = append(valid, l)
	}

	deduped := dedupe(valid)
	report.Deduped = len(valid) - len(deduped)

	n, err := im.store.UpsertLeads(ctx, deduped)
	if err != nil {
		return nil, eris.Wrap(err, "importer: upsert leads")
	}
	report.Upserted = n

	zap.L().Info("importer: feed landed",
		zap.String("source", src),
		zap.String("category", string(category)),
		zap.Int("parsed", report.Parsed),
		zap.Int("dropped", report.Dropped),
		zap.Int("deduped", report.Deduped),
		zap.Int64("upserted", report.Upserted),
	)

	if im.AfterImport != nil {
		im.AfterImport(ctx)
	}
	return report, nil
}

func inferFormat(src string) string {
	s := strings.ToLower(src)
	switch {
	case strings.HasSuffix(s, ".json"):
		return "json"
	case strings.HasSuffix(s, ".csv"):
		return "csv"
	case strings.HasSuffix(s, ".xlsx"):
		return "xlsx"
	default:
		return ""
	}
}

// foldTransformer strips diacritics so "Municipalité" and "Municipalite"
// fold to the same key.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldKey normalizes a title for duplicate detection.
func foldKey(title string) string {
	folded, _, err := transform.String(foldTransformer, title)
	if err != nil {
		folded = title
	}
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}

// dedupe drops feed rows repeating an earlier row's external id or folded
// title within the batch. First occurrence wins.
func dedupe(leads []model.Lead) []model.Lead {
	seenID := make(map[string]bool, len(leads))
	seenTitle := make(map[string]bool, len(leads))

	out := make([]model.Lead, 0, len(leads))
	for _, l := range leads {
		if seenID[l.ExternalID] {
			continue
		}
		key := foldKey(l.Title)
		if seenTitle[key] {
			continue
		}
		seenID[l.ExternalID] = true
		seenTitle[key] = true
		out = append(out, l)
	}
	return out
}
