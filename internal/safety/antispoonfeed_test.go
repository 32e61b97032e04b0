package safety

import (
	"strings"
	"testing"
)

func testPolicy() PolicyConfig {
	return PolicyConfig{
		HintLimit:          3,
		MaxHintChars:       900,
		AllowCodeInHints:   true,
		MaxCodeChars:       350,
		BlockFinalAnswers:  true,
		BlockStepByStep:    true,
		ReplaceOnViolation: true,
	}
}

func TestEnforceHintAppendsMicroQuestion(t *testing.T) {
	res := EnforceHint("Think about what happens at the base case.", testPolicy(), 1, "Recursion")
	if res.Violation {
		t.Fatalf("benign hint flagged as violation: %+v", res)
	}
	if !strings.HasSuffix(strings.TrimSpace(res.Text), "?") {
		t.Fatalf("hint does not end with a question: %q", res.Text)
	}
	if !strings.Contains(res.Text, "Micro-question") {
		t.Fatalf("missing micro-question suffix: %q", res.Text)
	}
}

func TestEnforceHintKeepsTrailingQuestion(t *testing.T) {
	res := EnforceHint("What would happen if the input were empty?", testPolicy(), 1, "")
	if strings.Contains(res.Text, "Micro-question") {
		t.Fatalf("micro-question appended to a hint that already asks one: %q", res.Text)
	}
}

func TestEnforceHintTruncatesLongOutput(t *testing.T) {
	// Long but under the leakage length threshold, with no solution language.
	body := strings.Repeat("Consider the shape of the data. ", 40)
	if len(body) <= 900 || len(body) > 2000 {
		t.Fatalf("test input sized wrong: %d", len(body))
	}
	res := EnforceHint(body, testPolicy(), 1, "")
	if !res.Truncated {
		t.Fatalf("expected truncation for %d chars", len(body))
	}
	if res.Violation {
		t.Fatalf("length-only trim should not be a violation: %+v", res)
	}
	if len([]rune(res.Text)) > 900 {
		t.Fatalf("hint not capped: %d chars", len([]rune(res.Text)))
	}
	if !strings.HasSuffix(strings.TrimSpace(res.Text), "?") {
		t.Fatalf("truncated hint does not end with a question: %q", res.Text)
	}
}

func TestEnforceHintCapCoversMicroQuestion(t *testing.T) {
	// Benign output well over the cap but under the leakage length
	// threshold; the appended micro-question must fit inside the cap.
	body := strings.Repeat("Consider the shape of the data. ", 51)
	if n := len([]rune(body)); n <= 900 || n > 2000 {
		t.Fatalf("test input sized wrong: %d", n)
	}
	res := EnforceHint(body, testPolicy(), 1, "")
	if res.Violation {
		t.Fatalf("benign long hint flagged as violation: %+v", res)
	}
	if got := len([]rune(res.Text)); got > 900 {
		t.Fatalf("hint exceeds cap after micro-question: %d chars", got)
	}
	if !strings.Contains(res.Text, "Micro-question") {
		t.Fatalf("missing micro-question suffix: %q", res.Text)
	}
	if !strings.HasSuffix(strings.TrimSpace(res.Text), "?") {
		t.Fatalf("hint does not end with a question: %q", res.Text)
	}
}

func TestBuildFallbackHintEndsWithQuestion(t *testing.T) {
	for _, hintNo := range []int{1, 3} {
		got := BuildFallbackHint(hintNo, 3, "calculus")
		if !strings.HasSuffix(strings.TrimSpace(got), "?") {
			t.Fatalf("fallback for hint %d does not end with a question: %q", hintNo, got)
		}
	}
}

func TestEnforceHintReplacesFinalAnswer(t *testing.T) {
	res := EnforceHint("The final answer is B because the derivative is 2x.", testPolicy(), 2, "Derivatives")
	if !res.Violation {
		t.Fatalf("final answer language not flagged: %+v", res)
	}
	want := BuildFallbackHint(2, 3, "Derivatives")
	if res.Text != want {
		t.Fatalf("fallback not used: want=%q got=%q", want, res.Text)
	}
	found := false
	for _, r := range res.Reasons {
		if r == "replaced_due_to_violation" {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing replacement reason: %v", res.Reasons)
	}
}

func TestEnforceHintShrinksCodeBlocks(t *testing.T) {
	cfg := testPolicy()
	cfg.MaxCodeChars = 40
	code := "```python\n" + strings.Repeat("x = x + 1\n", 20) + "```"
	res := EnforceHint("Try this shape:\n"+code, cfg, 1, "")
	if !res.CodeRemoved {
		t.Fatalf("oversized code block not shrunk: %+v", res)
	}
	if !strings.Contains(res.Text, "snippet truncated") {
		t.Fatalf("shrunk block missing truncation marker: %q", res.Text)
	}
}

func TestEnforceHintStripsCodeWhenDisallowed(t *testing.T) {
	cfg := testPolicy()
	cfg.AllowCodeInHints = false
	res := EnforceHint("Look at this:\n```go\nfmt.Println(42)\n```\nSee the pattern.", cfg, 1, "")
	if strings.Contains(res.Text, "```") {
		t.Fatalf("code block survived: %q", res.Text)
	}
	if !res.CodeRemoved {
		t.Fatalf("CodeRemoved not set: %+v", res)
	}
}

func TestEnforceHintExamMode(t *testing.T) {
	cfg := testPolicy()
	cfg.ExamMode = true
	res := EnforceHint("Recursion means a function calls itself. The answer is B.", cfg, 1, "Recursion")
	if strings.Contains(res.Text, "answer") {
		t.Fatalf("answer language survived exam mode: %q", res.Text)
	}
	if len(res.Reasons) != 1 || res.Reasons[0] != "exam_mode_sanitized" {
		t.Fatalf("unexpected reasons: %v", res.Reasons)
	}
}

func TestDetectLeakage(t *testing.T) {
	cases := []struct {
		text   string
		want   bool
		reason string
	}{
		{"Think about the base case first.", false, ""},
		{"Step 1: differentiate both sides.", true, "step_by_step_solution"},
		{"Here's the solution to the whole problem.", true, "final_answer_language"},
		{"```\nprint(42)\n```", true, "code_block_present"},
	}
	for _, c := range cases {
		got, reasons := DetectLeakage(c.text)
		if got != c.want {
			t.Fatalf("DetectLeakage(%q): want=%v got=%v", c.text, c.want, got)
		}
		if c.reason != "" {
			found := false
			for _, r := range reasons {
				if r == c.reason {
					found = true
				}
			}
			if !found {
				t.Fatalf("DetectLeakage(%q): missing reason %q in %v", c.text, c.reason, reasons)
			}
		}
	}
}

func TestCanIssue(t *testing.T) {
	cfg := testPolicy()
	cases := []struct {
		hintNo int
		want   bool
	}{
		{0, false},
		{1, true},
		{3, true},
		{4, false},
	}
	for _, c := range cases {
		if got := CanIssue(c.hintNo, cfg); got != c.want {
			t.Fatalf("CanIssue(%d): want=%v got=%v", c.hintNo, c.want, got)
		}
	}
}

func TestEnforceExplanationKeepsDetail(t *testing.T) {
	text := "## Recursion\n\nA function that calls itself.\n\n```python\ndef f(n):\n    return 1 if n == 0 else n * f(n - 1)\n```"
	res := EnforceExplanation(text, testPolicy())
	if res.Truncated {
		t.Fatalf("short explanation truncated: %+v", res)
	}
	if !strings.Contains(res.Text, "```") {
		t.Fatalf("explanation code block removed: %q", res.Text)
	}
}
