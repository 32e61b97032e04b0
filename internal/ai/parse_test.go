package ai

import "testing"

func TestExtractJSONFenced(t *testing.T) {
	raw := "Here you go:\n```json\n{\"name\": \"Recursion\"}\n```\nLet me know if you need more."
	got, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	want := `{"name": "Recursion"}`
	if got != want {
		t.Fatalf("ExtractJSON: want=%q got=%q", want, got)
	}
}

func TestExtractJSONArrayWithProse(t *testing.T) {
	raw := `Sure! The concepts are: [{"name": "Stacks", "description": "LIFO structure"}] hope that helps`
	got, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	want := `[{"name": "Stacks", "description": "LIFO structure"}]`
	if got != want {
		t.Fatalf("ExtractJSON: want=%q got=%q", want, got)
	}
}

func TestExtractJSONBracesInsideStrings(t *testing.T) {
	raw := `{"question": "What does {x: 1} mean?", "answer": "a map"}`
	got, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if got != raw {
		t.Fatalf("ExtractJSON: want=%q got=%q", raw, got)
	}
}

func TestExtractJSONNoPayload(t *testing.T) {
	if _, err := ExtractJSON("no structured content here"); err == nil {
		t.Fatalf("ExtractJSON: expected error for prose-only response")
	}
}

func TestDecodeJSON(t *testing.T) {
	raw := "```\n[{\"name\": \"Queues\", \"description\": \"FIFO structure\"}]\n```"
	var drafts []ConceptDraft
	if err := DecodeJSON(raw, &drafts); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if len(drafts) != 1 || drafts[0].Name != "Queues" || drafts[0].Description != "FIFO structure" {
		t.Fatalf("DecodeJSON: unexpected drafts %+v", drafts)
	}
}
