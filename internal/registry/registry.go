// Package registry holds the category catalog used to shape search queries
// and enrichment prompts per lead category.
package registry

import (
	_ "embed"
	"strings"
	"text/template"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/contractlink/contract-hub/internal/model"
)

//go:embed categories.yaml
var categoriesYAML []byte

// CategoryInfo describes one lead category.
type CategoryInfo struct {
	Name         string `yaml:"name"`
	DisplayName  string `yaml:"display_name"`
	SearchDomain string `yaml:"search_domain"`
	SearchHint   string `yaml:"search_hint"`
}

// Registry indexes category metadata by name.
type Registry struct {
	categories map[model.Category]CategoryInfo
	ordered    []CategoryInfo
}

type catalogFile struct {
	Categories []CategoryInfo `yaml:"categories"`
}

// Load parses the embedded category catalog.
func Load() (*Registry, error) {
	var file catalogFile
	if err := yaml.Unmarshal(categoriesYAML, &file); err != nil {
		return nil, eris.Wrap(err, "registry: unmarshal categories")
	}
	if len(file.Categories) == 0 {
		return nil, eris.New("registry: empty category catalog")
	}

	r := &Registry{
		categories: make(map[model.Category]CategoryInfo, len(file.Categories)),
		ordered:    file.Categories,
	}
	for _, c := range file.Categories {
		cat := model.Category(c.Name)
		if !cat.Valid() {
			return nil, eris.Errorf("registry: unknown category %q in catalog", c.Name)
		}
		r.categories[cat] = c
	}
	return r, nil
}

// Get returns metadata for the category, with ok=false for unknown ones.
func (r *Registry) Get(cat model.Category) (CategoryInfo, bool) {
	info, ok := r.categories[cat]
	return info, ok
}

// All returns categories in catalog order.
func (r *Registry) All() []CategoryInfo {
	return r.ordered
}

// SearchQuery builds the web search query for a lead from its title,
// agency, and category hint.
func (r *Registry) SearchQuery(lead model.Lead) string {
	parts := []string{lead.Title}
	if lead.Agency != "" {
		parts = append(parts, lead.Agency)
	}
	if lead.Location != "" {
		parts = append(parts, lead.Location)
	}
	if info, ok := r.categories[lead.Category]; ok && info.SearchHint != "" {
		parts = append(parts, info.SearchHint)
	}
	return strings.Join(parts, " ")
}

var promptTemplate = template.Must(template.New("enrich").Parse(
	`Find the official posting page for this {{.CategoryDisplay}} opportunity.

Title: {{.Title}}
Agency: {{.Agency}}
{{- if .Location}}
Location: {{.Location}}
{{- end}}
{{- if .Description}}
Description: {{.Description}}
{{- end}}

Reply with only the canonical http or https URL of the official posting.
If you cannot identify the posting with confidence, reply with exactly: UNAVAILABLE`))

type promptData struct {
	CategoryDisplay string
	Title           string
	Agency          string
	Location        string
	Description     string
}

// EnrichmentPrompt renders the model prompt asking for the lead's official
// posting URL.
func (r *Registry) EnrichmentPrompt(lead model.Lead) (string, error) {
	display := string(lead.Category)
	if info, ok := r.categories[lead.Category]; ok {
		display = info.DisplayName
	}

	desc := lead.Description
	if len(desc) > 500 {
		desc = desc[:500]
	}

	var sb strings.Builder
	err := promptTemplate.Execute(&sb, promptData{
		CategoryDisplay: display,
		Title:           lead.Title,
		Agency:          lead.Agency,
		Location:        lead.Location,
		Description:     desc,
	})
	if err != nil {
		return "", eris.Wrap(err, "registry: render enrichment prompt")
	}
	return sb.String(), nil
}
