package services

import "testing"

func TestMergePrereqNamesGeneratedWins(t *testing.T) {
	got := MergePrereqNames([]string{"Algebra", "Set Theory"}, []string{"trigonometry"})
	if len(got) != 2 {
		t.Fatalf("two generated names suffice, prior ignored: got %v", got)
	}
}

func TestMergePrereqNamesPriorFillsThinAnswers(t *testing.T) {
	got := MergePrereqNames([]string{"Algebra"}, []string{"algebra", "trigonometry"})
	if len(got) != 2 {
		t.Fatalf("merged: want=2 got=%d (%v)", len(got), got)
	}
	if got[0] != "Algebra" || got[1] != "trigonometry" {
		t.Fatalf("generated first, case-insensitive dedupe: got %v", got)
	}
}

func TestMergePrereqNamesCaps(t *testing.T) {
	got := MergePrereqNames([]string{"a"}, []string{"b", "c", "d", "e", "f"})
	if len(got) != maxPrereqsPerConcept {
		t.Fatalf("cap: want=%d got=%d", maxPrereqsPerConcept, len(got))
	}
}

func TestPriorPrereqsExactAndSubstring(t *testing.T) {
	if got := PriorPrereqs("Calculus"); len(got) == 0 || got[0] != "algebra" {
		t.Fatalf("exact match: got %v", got)
	}
	if got := PriorPrereqs("Advanced Calculus II"); len(got) == 0 {
		t.Fatalf("substring match should hit the calculus entry")
	}
	if got := PriorPrereqs("Quantum Chromodynamics"); got != nil {
		t.Fatalf("unknown topic: want nil, got %v", got)
	}
}
