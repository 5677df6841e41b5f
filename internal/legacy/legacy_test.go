package legacy

import "testing"

func TestEmbeddedTableParses(t *testing.T) {
	table, err := Default()
	if err != nil {
		t.Fatalf("embedded table: %v", err)
	}
	if table.Version < 1 {
		t.Fatalf("expected a positive version, got %d", table.Version)
	}
}

func TestLookupKnownSpellings(t *testing.T) {
	tests := []struct {
		field string
		raw   string
		want  string
	}{
		{FieldCandidateStatus, "visa", "visa_process"},
		{FieldCandidateStatus, " Ready To Depart ", "ready"},
		{FieldComplaintPriority, "MEDIUM", "normal"},
		{FieldVisaStageStatus, "passed", "completed"},
		{FieldDepartureItemStatus, "completed", "done"},
	}
	for _, tc := range tests {
		got, ok := Lookup(tc.field, tc.raw)
		if !ok || got != tc.want {
			t.Errorf("Lookup(%s, %q) = %q, %v; want %q", tc.field, tc.raw, got, ok, tc.want)
		}
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, ok := Lookup(FieldCandidateStatus, "teleported"); ok {
		t.Fatal("expected unknown spelling to miss")
	}
	if _, ok := Lookup("no_such_field", "visa"); ok {
		t.Fatal("expected unknown field to miss")
	}
}

func TestParseRejectsSelfMapping(t *testing.T) {
	_, err := Parse([]byte("version: 1\nfields:\n  stage_status:\n    completed: completed\n"))
	if err == nil {
		t.Fatal("expected self-mapping to be rejected")
	}
}

func TestParseRequiresVersion(t *testing.T) {
	if _, err := Parse([]byte("fields: {}\n")); err == nil {
		t.Fatal("expected missing version to be rejected")
	}
}

func TestPlanCoversEveryColumnDeterministically(t *testing.T) {
	table, err := Parse([]byte(`
version: 1
fields:
  candidate_status:
    visa: visa_process
    deployed: departed
  complaint_priority:
    critical: urgent
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	plan := table.Plan([]Column{
		{"candidates", "status", FieldCandidateStatus},
		{"complaints", "priority", FieldComplaintPriority},
		{"departures", "ptn_status", FieldDepartureItemStatus},
	})
	if len(plan) != 3 {
		t.Fatalf("expected 3 rewrites, got %d", len(plan))
	}
	if plan[0].From != "deployed" || plan[1].From != "visa" || plan[2].Table != "complaints" {
		t.Fatalf("unexpected plan order %+v", plan)
	}

	query, args := plan[1].SQL()
	if query != `UPDATE candidates SET status = $1 WHERE replace(lower(trim(status)), ' ', '_') = $2` {
		t.Fatalf("unexpected query %q", query)
	}
	if args[0] != "visa_process" || args[1] != "visa" {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestDefaultPlanTargetsKnownFields(t *testing.T) {
	table, err := Default()
	if err != nil {
		t.Fatalf("default table: %v", err)
	}
	for _, c := range Columns {
		if _, ok := table.Fields[c.Field]; !ok {
			t.Errorf("column %s.%s uses unmapped field %s", c.Table, c.Name, c.Field)
		}
	}
}

func TestRewriteSQLNamesColumn(t *testing.T) {
	for _, c := range Columns {
		query, _ := Rewrite{Column: c, From: "old", To: "new"}.SQL()
		want := "UPDATE " + c.Table + " SET " + c.Name + " = $1 WHERE replace(lower(trim(" + c.Name + ")), ' ', '_') = $2"
		if query != want {
			t.Fatalf("column %s.%s: got %q, want %q", c.Table, c.Name, query, want)
		}
	}
}
