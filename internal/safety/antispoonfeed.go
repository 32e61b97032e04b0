package safety

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/revisify/backend/internal/config"
)

// PolicyConfig tunes the anti-spoonfeeding filter. The detection is
// heuristic, pattern based rather than model based, which keeps the gate
// fast and deterministic.
type PolicyConfig struct {
	HintLimit    int
	MaxHintChars int

	AllowCodeInHints bool
	MaxCodeChars     int

	BlockFinalAnswers bool
	BlockStepByStep   bool

	// ExamMode restricts hints to definitions and short conceptual notes.
	ExamMode bool

	// ReplaceOnViolation swaps in a canned fallback when sanitization could
	// not scrub the leakage.
	ReplaceOnViolation bool
}

// PolicyFromConfig derives the hint policy from engine configuration.
func PolicyFromConfig(cfg *config.Config) PolicyConfig {
	return PolicyConfig{
		HintLimit:          cfg.MaxHintsPerStep,
		MaxHintChars:       cfg.MaxHintChars,
		AllowCodeInHints:   cfg.AllowCodeInHints,
		MaxCodeChars:       cfg.MaxCodeChars,
		BlockFinalAnswers:  true,
		BlockStepByStep:    true,
		ExamMode:           cfg.ExamMode,
		ReplaceOnViolation: true,
	}
}

// PolicyResult reports what the filter did to a piece of model output.
type PolicyResult struct {
	OK          bool
	Text        string
	Reasons     []string
	Truncated   bool
	CodeRemoved bool
	Violation   bool
}

var (
	finalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bfinal answer\b`),
		regexp.MustCompile(`(?i)\bthe answer is\b`),
		regexp.MustCompile(`(?i)\bhere['’]?s the solution\b`),
		regexp.MustCompile(`(?i)\bcomplete solution\b`),
		regexp.MustCompile(`(?i)\bfull solution\b`),
		regexp.MustCompile(`(?i)\bhere is the full\b`),
		regexp.MustCompile(`(?i)\bfull code\b`),
		regexp.MustCompile(`(?i)\bcomplete code\b`),
		regexp.MustCompile(`(?i)\bentire code\b`),
		regexp.MustCompile(`(?i)\bhere['’]?s the code\b`),
		regexp.MustCompile(`(?i)\bthis will solve\b`),
	}

	stepPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)^\s*step\s*\d+\s*[.:)\-]`),
		regexp.MustCompile(`(?im)^\s*\d+\s*[.)\-]\s+`),
		regexp.MustCompile(`(?i)\bfirst,.*\bsecond,.*\bthird,`),
		regexp.MustCompile(`(?i)\btherefore\b.*\bthus\b`),
		regexp.MustCompile(`(?i)\bproof\b.*\bq\.?e\.?d\.?\b`),
	}

	codeBlockRe    = regexp.MustCompile("```[\\s\\S]*?```")
	longInlineRe   = regexp.MustCompile("`[^`]{20,}`")
	answerTailRe   = regexp.MustCompile(`(?i)\b(final answer|the answer is|solution)\b.*`)
	paragraphRe    = regexp.MustCompile(`\n\s*\n`)
	endsQuestion   = regexp.MustCompile(`\?\s*$`)
	directAnswerRe = regexp.MustCompile(`(?i)\b([A-D])\s+is\s+(correct|right|the answer)\b`)
)

const microQuestion = "\n\nMicro-question: What do you think is the next step?"

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// DetectLeakage flags model output that reads like a full solution: final
// answer language, step-by-step derivations, code dumps, or sheer length.
func DetectLeakage(text string) (bool, []string) {
	var reasons []string
	if matchesAny(text, finalPatterns) {
		reasons = append(reasons, "final_answer_language")
	}
	if matchesAny(text, stepPatterns) {
		reasons = append(reasons, "step_by_step_solution")
	}
	if codeBlockRe.MatchString(text) {
		reasons = append(reasons, "code_block_present")
	}
	if len([]rune(text)) > 2000 {
		reasons = append(reasons, "too_long")
	}
	return len(reasons) > 0, reasons
}

// CanIssue reports whether the learner may receive hint number hintNo.
func CanIssue(hintNo int, cfg PolicyConfig) bool {
	return hintNo >= 1 && hintNo <= cfg.HintLimit
}

// BuildFallbackHint is the canned replacement used when model output cannot
// be sanitized into a safe hint.
func BuildFallbackHint(hintNo, hintLimit int, topic string) string {
	t := ""
	if topic != "" {
		t = fmt.Sprintf(" about %s", topic)
	}
	if hintNo >= hintLimit {
		return fmt.Sprintf(
			"You've used all %d hints%s. Try attempting the questions again. Which option confused you?",
			hintLimit, t)
	}
	return fmt.Sprintf(
		"I can't give a full solution%s, but I can guide you.\n\n"+
			"Here's a hint: identify the key idea and apply it to a small example.\n"+
			"Micro-question: What is the first step you would take, and why?", t)
}

// EnforceHint applies the anti-spoonfeeding policy to model output destined
// for a hint. It always returns usable text, falling back to a canned hint
// when the output is too revealing to repair.
func EnforceHint(modelText string, cfg PolicyConfig, hintNo int, topic string) PolicyResult {
	violation, reasons := DetectLeakage(modelText)

	text := modelText
	truncated := false
	codeRemoved := false

	if cfg.ExamMode {
		text, codeRemoved = stripCodeBlocks(text)
		limit := cfg.MaxHintChars
		if limit > 500 {
			limit = 500
		}
		var wasTrunc bool
		text, wasTrunc = truncateText(text, limit)
		truncated = truncated || wasTrunc
		text = strings.TrimSpace(answerTailRe.ReplaceAllString(text, ""))
		if text == "" {
			return PolicyResult{
				OK:        true,
				Text:      BuildFallbackHint(hintNo, cfg.HintLimit, topic),
				Reasons:   []string{"exam_mode_sanitized"},
				Truncated: true,
			}
		}
		if !endsQuestion.MatchString(text) {
			var again bool
			text, again = truncateText(text, limit-len([]rune(microQuestion)))
			truncated = truncated || again
			text = strings.TrimRight(text, " \t\n") + microQuestion
		}
		return PolicyResult{
			OK:          true,
			Text:        text,
			Reasons:     []string{"exam_mode_sanitized"},
			Truncated:   truncated,
			CodeRemoved: codeRemoved,
		}
	}

	if cfg.BlockFinalAnswers && matchesAny(text, finalPatterns) {
		violation = true
	}

	if codeBlockRe.MatchString(text) {
		var changed bool
		if !cfg.AllowCodeInHints {
			text, changed = stripCodeBlocks(text)
		} else {
			text, changed = shrinkCodeBlocks(text, cfg.MaxCodeChars)
		}
		codeRemoved = codeRemoved || changed
	}

	if cfg.BlockStepByStep && matchesAny(text, stepPatterns) {
		parts := paragraphRe.Split(text, -1)
		if len(parts) > 2 {
			parts = parts[:2]
		}
		text = strings.TrimSpace(strings.Join(parts, "\n\n"))
		violation = true
		reasons = append(reasons, "step_by_step_trimmed")
	}

	var wasTrunc bool
	text, wasTrunc = truncateText(strings.TrimSpace(text), cfg.MaxHintChars)
	truncated = truncated || wasTrunc

	// The appended micro-question counts against the hint cap too, so make
	// room for it before appending.
	if !endsQuestion.MatchString(text) {
		var again bool
		text, again = truncateText(text, cfg.MaxHintChars-len([]rune(microQuestion)))
		truncated = truncated || again
		text = strings.TrimRight(text, " \t\n") + microQuestion
	}

	if violation && cfg.ReplaceOnViolation {
		if matchesAny(text, finalPatterns) || directAnswerRe.MatchString(text) || len([]rune(text)) > cfg.MaxHintChars {
			return PolicyResult{
				OK:          true,
				Text:        BuildFallbackHint(hintNo, cfg.HintLimit, topic),
				Reasons:     append(reasons, "replaced_due_to_violation"),
				Truncated:   true,
				CodeRemoved: codeRemoved,
				Violation:   true,
			}
		}
	}

	return PolicyResult{
		OK:          true,
		Text:        text,
		Reasons:     reasons,
		Truncated:   truncated,
		CodeRemoved: codeRemoved,
		Violation:   violation,
	}
}

// EnforceExplanation applies the relaxed policy for notes and explanations.
// Full detail is the point there, so only absurd dumps are trimmed.
func EnforceExplanation(modelText string, cfg PolicyConfig) PolicyResult {
	var reasons []string
	text := strings.TrimSpace(modelText)

	limit := cfg.MaxHintChars * 3
	if limit < 3000 {
		limit = 3000
	}
	text, truncated := truncateText(text, limit)

	if codeBlockRe.MatchString(text) {
		codeLimit := cfg.MaxCodeChars * 3
		if codeLimit < 1200 {
			codeLimit = 1200
		}
		var shrunk bool
		text, shrunk = shrinkCodeBlocks(text, codeLimit)
		if shrunk {
			reasons = append(reasons, "code_blocks_truncated")
		}
	}

	return PolicyResult{OK: true, Text: text, Reasons: reasons, Truncated: truncated}
}

func stripCodeBlocks(text string) (string, bool) {
	out := codeBlockRe.ReplaceAllString(text, "")
	out = longInlineRe.ReplaceAllString(out, "`[code omitted]`")
	return out, out != text
}

func shrinkCodeBlocks(text string, maxCodeChars int) (string, bool) {
	changed := false
	out := codeBlockRe.ReplaceAllStringFunc(text, func(block string) string {
		lines := strings.Split(block, "\n")
		if len(lines) <= 2 {
			return block
		}
		header := lines[0]
		footer := lines[len(lines)-1]
		body := strings.Join(lines[1:len(lines)-1], "\n")
		if len([]rune(body)) > maxCodeChars {
			changed = true
			body = strings.TrimRight(string([]rune(body)[:maxCodeChars]), " \t") + "\n# ...snippet truncated..."
		}
		return strings.Join([]string{header, body, footer}, "\n")
	})
	return out, changed
}

// truncateText caps text at maxChars runes; the ellipsis marker counts
// against the cap.
func truncateText(text string, maxChars int) (string, bool) {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text, false
	}
	if maxChars < 1 {
		return "", true
	}
	return strings.TrimRight(string(runes[:maxChars-1]), " \t\n") + "…", true
}
