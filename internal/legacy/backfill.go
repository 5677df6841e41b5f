package legacy

import (
	"fmt"
	"sort"
)

// Column is a persisted status column governed by one mapping field.
type Column struct {
	Table string
	Name  string
	Field string
}

// Columns lists every status column the backfill rewrites.
var Columns = []Column{
	{"candidates", "status", FieldCandidateStatus},
	{"trainings", "technical_training_status", FieldStageStatus},
	{"trainings", "soft_skills_status", FieldStageStatus},
	{"visa_processes", "interview_status", FieldVisaStageStatus},
	{"visa_processes", "trade_test_status", FieldVisaStageStatus},
	{"visa_processes", "medical_status", FieldVisaStageStatus},
	{"visa_processes", "biometric_status", FieldVisaStageStatus},
	{"visa_processes", "visa_issuance_status", FieldVisaStageStatus},
	{"visa_processes", "overall_status", FieldVisaOverallStatus},
	{"departures", "ptn_status", FieldDepartureItemStatus},
	{"departures", "protector_status", FieldDepartureItemStatus},
	{"departures", "final_departure_status", FieldDepartureStatus},
	{"complaints", "status", FieldComplaintStatus},
	{"complaints", "priority", FieldComplaintPriority},
}

// Rewrite is one UPDATE of the backfill: rows of Column whose normalized
// value equals From become To.
type Rewrite struct {
	Column
	From string
	To   string
}

// SQL returns the parameterized statement and its arguments. The
// normalization mirrors the in-process lookup.
func (r Rewrite) SQL() (string, []any) {
	query := fmt.Sprintf(
		`UPDATE %s SET %s = $1 WHERE replace(lower(trim(%s)), ' ', '_') = $2`,
		r.Table, r.Name, r.Name,
	)
	return query, []any{r.To, r.From}
}

// Plan expands the table into the ordered rewrites for columns.
func (t *Table) Plan(columns []Column) []Rewrite {
	var out []Rewrite
	for _, c := range columns {
		entries := t.Fields[c.Field]
		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, from := range keys {
			out = append(out, Rewrite{Column: c, From: from, To: entries[from]})
		}
	}
	return out
}
