// Package ai is the legal assistant: prompt construction around an LLM,
// optional anonymization of what leaves the building, and batch analysis.
package ai

import (
	"context"
	"fmt"
	"strings"

	"lawdesk/internal/apperr"
	"lawdesk/internal/privacy"
)

// maxDocumentChars bounds how much of a document goes into one prompt.
const maxDocumentChars = 24000

const basePrompt = "You are a careful legal assistant working inside a law firm. " +
	"Be precise, cite the relevant clause or rule when you can, flag uncertainty, " +
	"and never present your answer as a substitute for an attorney's judgment."

type Reply struct {
	Content    string         `json:"content"`
	Anonymized bool           `json:"anonymized"`
	Redactions map[string]int `json:"redactions,omitempty"`
}

type Assistant struct {
	gen         TextGenerator
	privacyMode bool
}

// NewAssistant returns an assistant; a nil generator yields a disabled one.
func NewAssistant(gen TextGenerator, privacyMode bool) *Assistant {
	return &Assistant{gen: gen, privacyMode: privacyMode}
}

func (a *Assistant) Enabled() bool { return a != nil && a.gen != nil }

// Generator exposes the underlying generator for helpers such as the translator.
func (a *Assistant) Generator() TextGenerator {
	if a == nil {
		return nil
	}
	return a.gen
}

func (a *Assistant) Chat(ctx context.Context, history []Message, message string) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, fmt.Errorf("message is required: %w", apperr.ErrInvalid)
	}
	msgs := make([]Message, 0, len(history)+1)
	for _, m := range history {
		if m.Role != "user" && m.Role != "assistant" {
			continue
		}
		msgs = append(msgs, m)
	}
	msgs = append(msgs, Message{Role: "user", Content: message})
	return a.run(ctx, basePrompt, msgs)
}

func (a *Assistant) AnalyzeContract(ctx context.Context, text string) (Reply, error) {
	text, err := requireText(text, "contract text")
	if err != nil {
		return Reply{}, err
	}
	system := basePrompt + " Analyze the contract below. Structure the answer as: " +
		"1) parties and purpose, 2) key obligations, 3) payment terms, 4) termination, " +
		"5) risky or unusual clauses, 6) missing protections, 7) recommendations."
	return a.run(ctx, system, []Message{{Role: "user", Content: text}})
}

func (a *Assistant) Research(ctx context.Context, question, jurisdiction string) (Reply, error) {
	question, err := requireText(question, "question")
	if err != nil {
		return Reply{}, err
	}
	jurisdiction = strings.TrimSpace(jurisdiction)
	if jurisdiction == "" {
		jurisdiction = "United States (federal)"
	}
	system := basePrompt + fmt.Sprintf(" Answer the research question for the jurisdiction %s. "+
		"Give the governing rule, leading authorities, open issues and practical next steps.", jurisdiction)
	return a.run(ctx, system, []Message{{Role: "user", Content: question}})
}

func (a *Assistant) CompareDocuments(ctx context.Context, first, second string) (Reply, error) {
	first, err := requireText(first, "first document")
	if err != nil {
		return Reply{}, err
	}
	second, err = requireText(second, "second document")
	if err != nil {
		return Reply{}, err
	}
	system := basePrompt + " Compare the two documents. List added, removed and changed provisions, " +
		"and explain which changes matter legally."
	prompt := "DOCUMENT A:\n" + first + "\n\nDOCUMENT B:\n" + second
	return a.run(ctx, system, []Message{{Role: "user", Content: prompt}})
}

func (a *Assistant) Summarize(ctx context.Context, text string, maxWords int) (Reply, error) {
	text, err := requireText(text, "text")
	if err != nil {
		return Reply{}, err
	}
	if maxWords <= 0 || maxWords > 2000 {
		maxWords = 250
	}
	system := basePrompt + fmt.Sprintf(" Summarize the document in at most %d words, "+
		"keeping dates, amounts, parties and deadlines.", maxWords)
	return a.run(ctx, system, []Message{{Role: "user", Content: text}})
}

func requireText(text, what string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%s is required: %w", what, apperr.ErrInvalid)
	}
	if len(text) > maxDocumentChars {
		text = text[:maxDocumentChars]
	}
	return text, nil
}

// run anonymizes the conversation when privacy mode is on, calls the
// generator and restores the placeholders in the answer.
func (a *Assistant) run(ctx context.Context, system string, msgs []Message) (Reply, error) {
	if !a.Enabled() {
		return Reply{}, fmt.Errorf("ai assistant: %w", apperr.ErrDisabled)
	}

	var session *privacy.Session
	if a.privacyMode {
		session = privacy.NewSession()
		for i := range msgs {
			msgs[i].Content = session.Anonymize(msgs[i].Content).Text
		}
	}

	var (
		out string
		err error
	)
	if chat, ok := a.gen.(ChatGenerator); ok {
		out, err = chat.GenerateChat(ctx, system, msgs)
	} else {
		out, err = a.gen.GenerateText(ctx, system, flatten(msgs))
	}
	if err != nil {
		return Reply{}, fmt.Errorf("ai request: %w", err)
	}

	reply := Reply{Content: out}
	if session != nil {
		reply.Content = session.Restore(out)
		reply.Anonymized = true
		reply.Redactions = session.Counts()
	}
	return reply, nil
}

func flatten(msgs []Message) string {
	if len(msgs) == 1 {
		return msgs[0].Content
	}
	var b strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&b, "%s: %s\n\n", strings.ToUpper(m.Role), m.Content)
	}
	return strings.TrimSpace(b.String())
}
