// Package legacy maps legacy status spellings onto canonical enumerations.
//
// The table lives in mappings.yaml, is embedded at build time and carries a
// version number so normalization runs are reproducible.
package legacy

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Field names used as lookup namespaces.
const (
	FieldCandidateStatus     = "candidate_status"
	FieldStageStatus         = "stage_status"
	FieldVisaStageStatus     = "visa_stage_status"
	FieldVisaOverallStatus   = "visa_overall_status"
	FieldDepartureItemStatus = "departure_item_status"
	FieldDepartureStatus     = "departure_status"
	FieldComplaintStatus     = "complaint_status"
	FieldComplaintPriority   = "complaint_priority"
)

//go:embed mappings.yaml
var rawMappings []byte

// Table is a parsed mapping table.
type Table struct {
	Version int                          `yaml:"version"`
	Fields  map[string]map[string]string `yaml:"fields"`
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
	defaultErr   error
)

// Parse decodes a mapping table. Keys and values are lower-cased and trimmed.
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse legacy mappings: %w", err)
	}
	if t.Version < 1 {
		return nil, fmt.Errorf("legacy mappings: version must be >= 1")
	}
	normalized := make(map[string]map[string]string, len(t.Fields))
	for field, entries := range t.Fields {
		m := make(map[string]string, len(entries))
		for from, to := range entries {
			from = normalize(from)
			to = normalize(to)
			if from == "" || to == "" {
				return nil, fmt.Errorf("legacy mappings: empty entry in %s", field)
			}
			if from == to {
				return nil, fmt.Errorf("legacy mappings: %s maps %q onto itself", field, from)
			}
			m[from] = to
		}
		normalized[field] = m
	}
	t.Fields = normalized
	return &t, nil
}

// Default returns the embedded table, parsed once.
func Default() (*Table, error) {
	defaultOnce.Do(func() {
		defaultTable, defaultErr = Parse(rawMappings)
	})
	return defaultTable, defaultErr
}

// Lookup resolves raw against the embedded table.
func Lookup(field, raw string) (string, bool) {
	t, err := Default()
	if err != nil {
		return "", false
	}
	return t.Lookup(field, raw)
}

// Version returns the embedded table version, or 0 when it failed to parse.
func Version() int {
	t, err := Default()
	if err != nil {
		return 0
	}
	return t.Version
}

// Lookup returns the canonical value for raw in field.
func (t *Table) Lookup(field, raw string) (string, bool) {
	entries, ok := t.Fields[field]
	if !ok {
		return "", false
	}
	v, ok := entries[normalize(raw)]
	return v, ok
}

// Keys returns the legacy spellings known for field, sorted.
func (t *Table) Keys(field string) []string {
	entries := t.Fields[field]
	out := make([]string, 0, len(entries))
	for k := range entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, " ", "_")
}
