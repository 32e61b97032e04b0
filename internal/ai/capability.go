package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/revisify/backend/internal/logger"
)

// ConceptDraft is one concept proposed by the model from document text.
type ConceptDraft struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// QuestionDraft is one multiple-choice question proposed by the model.
type QuestionDraft struct {
	Prompt        string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// CardDraft is one flashcard proposed by the model.
type CardDraft struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// HintPrompt carries everything the hint generator needs about the step the
// learner is stuck on.
type HintPrompt struct {
	Concept     string
	Question    string
	UserMessage string
	PriorHints  []string
	HintNumber  int
}

// Capabilities wraps a TextClient with the engine's prompt surface. Every
// method issues one completion and decodes the JSON the prompt demands.
type Capabilities struct {
	text         TextClient
	log          *logger.Logger
	contextChars int
}

func NewCapabilities(text TextClient, contextChars int, log *logger.Logger) *Capabilities {
	return &Capabilities{
		text:         text,
		log:          log.With("component", "ai_capabilities"),
		contextChars: contextChars,
	}
}

func (c *Capabilities) truncate(s string) string {
	if c.contextChars > 0 && len(s) > c.contextChars {
		return s[:c.contextChars]
	}
	return s
}

func (c *Capabilities) ExtractConcepts(ctx context.Context, text string) ([]ConceptDraft, error) {
	system := "You analyze study material and identify the distinct concepts it teaches. " +
		"Respond with a JSON array of objects, each with \"name\" and \"description\" fields. " +
		"Names are short noun phrases; descriptions are one or two sentences."
	user := fmt.Sprintf("Identify the concepts taught by this material:\n\n%s", c.truncate(text))

	raw, err := c.text.Complete(ctx, CompletionRequest{System: system, User: user, MaxTokens: 2048})
	if err != nil {
		return nil, err
	}
	var drafts []ConceptDraft
	if err := DecodeJSON(raw, &drafts); err != nil {
		return nil, fmt.Errorf("extract concepts: %w", err)
	}
	out := drafts[:0]
	for _, d := range drafts {
		if strings.TrimSpace(d.Name) == "" {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (c *Capabilities) InferPrerequisites(ctx context.Context, name, description string, candidates []string) ([]string, error) {
	if len(candidates) < 2 {
		return []string{}, nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Concept: %s\nDescription: %s\n\nCandidate prerequisites:\n", name, description)
	for _, candidate := range candidates {
		fmt.Fprintf(&sb, "- %s\n", candidate)
	}
	sb.WriteString("\nWhich candidates must be understood before this concept?")
	system := "You determine which concepts must be understood before another. " +
		"Respond with a JSON array of strings drawn only from the candidate list. " +
		"Only include genuine dependencies; an empty array is a valid answer."

	raw, err := c.text.Complete(ctx, CompletionRequest{System: system, User: sb.String(), MaxTokens: 512})
	if err != nil {
		return nil, err
	}
	var names []string
	if err := DecodeJSON(raw, &names); err != nil {
		return nil, fmt.Errorf("infer prerequisites: %w", err)
	}
	return names, nil
}

func (c *Capabilities) GenerateQuestions(ctx context.Context, concept, description, contextText string, count int) ([]QuestionDraft, error) {
	system := fmt.Sprintf("You write multiple-choice quiz questions that test understanding, not recall of phrasing. "+
		"Respond with a JSON array of exactly %d objects, each with \"question\", "+
		"\"options\" (exactly 4 strings), \"correct_answer\" (one of \"A\",\"B\",\"C\",\"D\") and "+
		"\"explanation\" (one sentence on why the answer is correct).", count)
	user := fmt.Sprintf("Concept: %s\nDescription: %s\n\nSource material:\n%s\n\nWrite %d questions on this concept.",
		concept, description, c.truncate(contextText), count)

	raw, err := c.text.Complete(ctx, CompletionRequest{System: system, User: user, MaxTokens: 3072})
	if err != nil {
		return nil, err
	}
	var drafts []QuestionDraft
	if err := DecodeJSON(raw, &drafts); err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}
	return drafts, nil
}

func (c *Capabilities) GenerateHint(ctx context.Context, p HintPrompt) (string, error) {
	system := "You are a tutor who guides without revealing answers. Give one short hint that " +
		"nudges the learner toward the idea they are missing. Never state the answer, never " +
		"identify a correct option, never hand over a complete solution. End with a question " +
		"that makes the learner think. Respond with plain text."
	var sb strings.Builder
	fmt.Fprintf(&sb, "Concept: %s\n", p.Concept)
	if p.Question != "" {
		fmt.Fprintf(&sb, "Question the learner is working on:\n%s\n", p.Question)
	}
	if p.UserMessage != "" {
		fmt.Fprintf(&sb, "Learner said: %s\n", p.UserMessage)
	}
	if len(p.PriorHints) > 0 {
		sb.WriteString("Hints already given:\n")
		for i, h := range p.PriorHints {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, h)
		}
	}
	fmt.Fprintf(&sb, "Give hint number %d. Go slightly further than the previous hints without giving the answer away.", p.HintNumber)

	raw, err := c.text.Complete(ctx, CompletionRequest{System: system, User: sb.String(), MaxTokens: 512, Temperature: 0.4})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

func (c *Capabilities) GenerateNotes(ctx context.Context, concept, description, contextText string) (string, error) {
	system := "You write concise study notes in markdown. Cover the key ideas, definitions and " +
		"a worked example where one fits. Respond with the markdown only."
	user := fmt.Sprintf("Concept: %s\nDescription: %s\n\nSource material:\n%s",
		concept, description, c.truncate(contextText))

	raw, err := c.text.Complete(ctx, CompletionRequest{System: system, User: user, MaxTokens: 2048})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

func (c *Capabilities) GenerateFlashcards(ctx context.Context, concept, contextText string, count int) ([]CardDraft, error) {
	system := fmt.Sprintf("You write flashcards for spaced repetition. Respond with a JSON array of "+
		"exactly %d objects with \"front\" and \"back\" fields. Fronts are questions or terms; "+
		"backs are short answers.", count)
	user := fmt.Sprintf("Concept: %s\n\nSource material:\n%s", concept, c.truncate(contextText))

	raw, err := c.text.Complete(ctx, CompletionRequest{System: system, User: user, MaxTokens: 2048})
	if err != nil {
		return nil, err
	}
	var drafts []CardDraft
	if err := DecodeJSON(raw, &drafts); err != nil {
		return nil, fmt.Errorf("generate flashcards: %w", err)
	}
	return drafts, nil
}

func (c *Capabilities) AnswerWithContext(ctx context.Context, question string, passages []string) (string, error) {
	system := "You answer questions using only the provided passages. When the passages do not " +
		"contain the answer, say so instead of guessing. Respond with plain text."
	var sb strings.Builder
	sb.WriteString("Passages:\n")
	for i, p := range passages {
		fmt.Fprintf(&sb, "[%d] %s\n\n", i+1, p)
	}
	fmt.Fprintf(&sb, "Question: %s", question)

	raw, err := c.text.Complete(ctx, CompletionRequest{System: system, User: c.truncate(sb.String()), MaxTokens: 1024})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}
