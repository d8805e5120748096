package crudgrid

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed registry.yaml
var defaultRegistry []byte

//go:embed registry.schema.json
var registrySchema []byte

// DropdownColumn projects one column of a referenced table into a dropdown option.
type DropdownColumn struct {
	Alias  string `yaml:"alias" json:"alias"`
	Column string `yaml:"column" json:"column"`
}

// Expr renders the projection in the "column as 'alias'" form accepted by ValidateField.
func (d DropdownColumn) Expr() string {
	return fmt.Sprintf("%s as '%s'", d.Column, d.Alias)
}

// Page is a console page showing one table, optionally with a child subgrid.
type Page struct {
	Name      string `yaml:"name" json:"name"`
	Title     string `yaml:"title" json:"title"`
	Table     string `yaml:"table" json:"table"`
	Subgrid   string `yaml:"subgrid,omitempty" json:"subgrid,omitempty"`
	ParentKey string `yaml:"parentKey,omitempty" json:"parentKey,omitempty"`
	ReadOnly  bool   `yaml:"readOnly,omitempty" json:"readOnly,omitempty"`
}

// RegistryConfig is the static configuration the Registry is built from.
type RegistryConfig struct {
	Tables       []string                    `yaml:"tables" json:"tables"`
	PluralExempt []string                    `yaml:"pluralExempt" json:"pluralExempt"`
	Dropdowns    map[string][]DropdownColumn `yaml:"dropdowns" json:"dropdowns"`
	Pages        []Page                      `yaml:"pages" json:"pages"`
}

// Registry holds the table whitelist and the dropdown mapping. It is built
// once at startup and never mutated afterwards.
type Registry struct {
	cfg    RegistryConfig
	tables map[string]struct{}
	exempt map[string]struct{}
}

// DefaultRegistry returns the registry embedded in the binary.
func DefaultRegistry() *Registry {
	r, err := LoadRegistry(defaultRegistry)
	if err != nil {
		panic(fmt.Sprintf("embedded registry: %v", err))
	}
	return r
}

// LoadRegistryFile reads a registry from a YAML file.
func LoadRegistryFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadRegistry(data)
}

// LoadRegistry parses YAML registry data. Environment variables are expanded
// first, then the document is checked against the registry schema.
func LoadRegistry(data []byte) (*Registry, error) {
	expanded := []byte(os.ExpandEnv(string(data)))

	problems, err := ValidateRegistry(expanded)
	if err != nil {
		return nil, err
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid registry: %s", strings.Join(problems, "; "))
	}

	var cfg RegistryConfig
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, errors.Wrap(err, "decode registry")
	}
	return NewRegistry(cfg)
}

// ValidateRegistry checks YAML registry data against the registry schema and
// returns one message per violation.
func ValidateRegistry(data []byte) ([]string, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "decode registry")
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(registrySchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return nil, errors.Wrap(err, "validate registry")
	}

	var problems []string
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return problems, nil
}

// NewRegistry builds a Registry from an already decoded configuration.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	cfg.Pages = append([]Page(nil), cfg.Pages...)
	r := &Registry{
		cfg:    cfg,
		tables: make(map[string]struct{}, len(cfg.Tables)),
		exempt: make(map[string]struct{}, len(cfg.PluralExempt)),
	}
	for _, t := range cfg.Tables {
		if !identPattern.MatchString(t) {
			return nil, invalidFormat("registry table %q", t)
		}
		r.tables[t] = struct{}{}
	}
	for _, t := range cfg.PluralExempt {
		r.exempt[t] = struct{}{}
	}

	for prefix, cols := range cfg.Dropdowns {
		var hasValue, hasText bool
		for _, c := range cols {
			if _, err := ValidateField(c.Expr()); err != nil {
				return nil, errors.Wrapf(err, "dropdown %s", prefix)
			}
			hasValue = hasValue || c.Alias == "value"
			hasText = hasText || c.Alias == "text"
		}
		if !hasValue || !hasText {
			return nil, fmt.Errorf("dropdown %s: value and text columns are required", prefix)
		}
	}

	for i, p := range cfg.Pages {
		if _, err := r.ValidateTable(p.Table); err != nil {
			return nil, errors.Wrapf(err, "page %s", p.Name)
		}
		if p.Subgrid == "" {
			continue
		}
		if _, err := r.ValidateTable(p.Subgrid); err != nil {
			return nil, errors.Wrapf(err, "page %s subgrid", p.Name)
		}
		if p.ParentKey == "" {
			r.cfg.Pages[i].ParentKey = inflection.Singular(p.Table) + foreignKeySuffix
		}
	}
	return r, nil
}

// Tables returns the whitelisted table names in sorted order.
func (r *Registry) Tables() []string {
	out := make([]string, 0, len(r.tables))
	for t := range r.tables {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Dropdown returns the option projection for a foreign key prefix.
func (r *Registry) Dropdown(prefix string) ([]DropdownColumn, bool) {
	cols, ok := r.cfg.Dropdowns[prefix]
	return cols, ok
}

// DropdownTable returns the table a foreign key prefix refers to: the plural
// of the prefix unless the prefix is listed as exempt.
func (r *Registry) DropdownTable(prefix string) string {
	if _, ok := r.exempt[prefix]; ok {
		return prefix
	}
	return inflection.Plural(prefix)
}

// Pages returns the configured console pages.
func (r *Registry) Pages() []Page {
	return r.cfg.Pages
}

// Page looks a console page up by name.
func (r *Registry) Page(name string) (Page, bool) {
	for _, p := range r.cfg.Pages {
		if p.Name == name {
			return p, true
		}
	}
	return Page{}, false
}
