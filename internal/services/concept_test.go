package services

import (
	"testing"

	"github.com/revisify/backend/internal/ai"
)

func TestCanonicalizeConceptsMergesContainedNames(t *testing.T) {
	drafts := []ai.ConceptDraft{
		{Name: "Binary Search Trees", Description: "Ordered trees."},
		{Name: "binary  search trees", Description: "Duplicate with odd spacing."},
		{Name: "Hash Tables", Description: "Key-value structures."},
	}

	got := CanonicalizeConcepts(drafts)
	if len(got) != 2 {
		t.Fatalf("canonical concepts: want=2 got=%d (%+v)", len(got), got)
	}
	if got[0].Name != "Binary Search Trees" {
		t.Fatalf("merge keeps the first name: got %q", got[0].Name)
	}
	if got[0].Description != "Ordered trees. Duplicate with odd spacing." {
		t.Fatalf("descriptions concatenate on merge: got %q", got[0].Description)
	}
	if got[0].CanonicalName != "Binary Search Trees" {
		t.Fatalf("canonical name: got %q", got[0].CanonicalName)
	}
}

func TestCanonicalizeConceptsSubstringContainment(t *testing.T) {
	drafts := []ai.ConceptDraft{
		{Name: "Recursion"},
		{Name: "recursion basics"},
	}
	got := CanonicalizeConcepts(drafts)
	if len(got) != 1 {
		t.Fatalf("containment should merge: got %d concepts", len(got))
	}
}

func TestCanonicalizeConceptsDropsBlankNames(t *testing.T) {
	drafts := []ai.ConceptDraft{
		{Name: "   "},
		{Name: "Graphs"},
	}
	got := CanonicalizeConcepts(drafts)
	if len(got) != 1 || got[0].Name != "Graphs" {
		t.Fatalf("blank names must be dropped: got %+v", got)
	}
}

func TestCanonicalizeConceptsTitleCasesCanonical(t *testing.T) {
	got := CanonicalizeConcepts([]ai.ConceptDraft{{Name: "dynamic programming"}})
	if len(got) != 1 {
		t.Fatalf("want one concept, got %d", len(got))
	}
	if got[0].CanonicalName != "Dynamic Programming" {
		t.Fatalf("canonical name: want=%q got=%q", "Dynamic Programming", got[0].CanonicalName)
	}
	if got[0].Name != "dynamic programming" {
		t.Fatalf("original name preserved: got %q", got[0].Name)
	}
}
