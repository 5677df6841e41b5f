package stagegate

import "testing"

type stage string

var testPipeline = New[stage]("a", "b", "c", "d")

func doneSet(stages ...stage) func(stage) bool {
	set := make(map[stage]bool, len(stages))
	for _, s := range stages {
		set[s] = true
	}
	return func(s stage) bool { return set[s] }
}

func TestFirstIncompleteIgnoresRecordingOrder(t *testing.T) {
	got, ok := testPipeline.FirstIncomplete(doneSet("a", "c"))
	if !ok || got != "b" {
		t.Fatalf("FirstIncomplete = %q, %v; want b", got, ok)
	}
	if _, ok := testPipeline.FirstIncomplete(doneSet("a", "b", "c", "d")); ok {
		t.Fatal("expected all stages complete")
	}
	if !testPipeline.AllComplete(doneSet("d", "c", "b", "a")) {
		t.Fatal("expected AllComplete")
	}
}

func TestNextAndImmediateNext(t *testing.T) {
	if next, ok := testPipeline.Next("b"); !ok || next != "c" {
		t.Fatalf("Next(b) = %q, %v", next, ok)
	}
	if _, ok := testPipeline.Next("d"); ok {
		t.Fatal("expected no successor for last stage")
	}
	if testPipeline.IsImmediateNext("a", "c") {
		t.Fatal("a -> c skips a stage")
	}
	if !testPipeline.IsImmediateNext("c", "d") {
		t.Fatal("c -> d is immediate")
	}
	if testPipeline.IsImmediateNext("x", "a") {
		t.Fatal("unknown stage has no successor")
	}
}

func TestBetween(t *testing.T) {
	got := testPipeline.Between("a", "c")
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatalf("Between(a, c) = %v", got)
	}
	if testPipeline.Between("c", "a") != nil {
		t.Fatal("Between backwards must be nil")
	}
}

func TestContiguousPrefix(t *testing.T) {
	if _, ok := testPipeline.ContiguousPrefix(doneSet("b")); ok {
		t.Fatal("first stage not done; no prefix")
	}
	got, ok := testPipeline.ContiguousPrefix(doneSet("a", "b", "d"))
	if !ok || got != "b" {
		t.Fatalf("ContiguousPrefix = %q, %v; want b", got, ok)
	}
}

func TestNewPanicsOnDuplicate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate stage")
		}
	}()
	New[stage]("a", "a")
}

func TestStageStatusAdvanceNeverRegresses(t *testing.T) {
	if NotStarted.Advance() != InProgress {
		t.Fatal("not_started should advance to in_progress")
	}
	if Completed.Advance() != Completed {
		t.Fatal("completed must not regress")
	}
	if InProgress.Advance() != InProgress {
		t.Fatal("in_progress stays in_progress")
	}
}

func TestParseStageStatusLegacy(t *testing.T) {
	got, err := ParseStageStatus("Done")
	if err != nil || got != Completed {
		t.Fatalf("ParseStageStatus(Done) = %q, %v", got, err)
	}
	if _, err := ParseStageStatus("halfway"); err == nil {
		t.Fatal("expected unknown status error")
	}
}

func TestLevelIsMonotonic(t *testing.T) {
	l := LevelOf(-3)
	if l.Int() != 0 {
		t.Fatalf("negative level should clamp to 0, got %d", l.Int())
	}
	l = l.Raise().Raise()
	if l.Int() != 2 {
		t.Fatalf("expected 2, got %d", l.Int())
	}
	if l.Merge(LevelOf(1)).Int() != 2 {
		t.Fatal("merge must keep the higher level")
	}
	if l.Merge(LevelOf(5)).Int() != 5 {
		t.Fatal("merge must adopt the higher level")
	}
}
