package mock

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

const fallback = "The answer is not available in the context"

var stopWords = map[string]bool{
	"what": true, "which": true, "where": true, "when": true, "does": true,
	"that": true, "this": true, "with": true, "from": true, "have": true,
	"there": true, "their": true, "about": true, "tell": true,
}

// LLM is a test double for llms.Model.
//
// By default it reads the rendered prompt, picks the first context sentence
// containing every keyword of the question and answers with it, or with the
// fallback sentence when no sentence qualifies.
type LLM struct {
	// GenerateFunc is called with the rendered prompt if set.
	GenerateFunc func(ctx context.Context, prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
	options []llms.CallOptions
}

func NewLLM() *LLM {
	return &LLM{}
}

func (m *LLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}

	var b strings.Builder
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				b.WriteString(text.Text)
			}
		}
	}
	prompt := b.String()

	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.options = append(m.options, opts)
	m.mu.Unlock()

	var (
		answer string
		err    error
	)
	if m.GenerateFunc != nil {
		answer, err = m.GenerateFunc(ctx, prompt)
	} else {
		answer, err = extract(prompt)
	}
	if err != nil {
		return nil, err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: answer}},
	}, nil
}

func (m *LLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// Prompts returns every prompt received so far.
func (m *LLM) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// LastOptions returns the call options of the most recent generation.
func (m *LLM) LastOptions() llms.CallOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.options) == 0 {
		return llms.CallOptions{}
	}
	return m.options[len(m.options)-1]
}

func extract(prompt string) (string, error) {
	_, rest, ok := strings.Cut(prompt, "Context:")
	if !ok {
		return "", errors.New("prompt has no context section")
	}
	section, rest, ok := strings.Cut(rest, "Question:")
	if !ok {
		return "", errors.New("prompt has no question section")
	}
	question, _, _ := strings.Cut(rest, "Answer:")

	var keywords []string
	for _, w := range Words(question) {
		if len(w) >= 4 && !stopWords[w] {
			keywords = append(keywords, w)
		}
	}
	if len(keywords) == 0 {
		return fallback, nil
	}

	for _, sentence := range strings.FieldsFunc(section, func(r rune) bool { return r == '.' || r == '\n' }) {
		have := map[string]bool{}
		for _, w := range Words(sentence) {
			have[w] = true
		}
		all := true
		for _, k := range keywords {
			if !have[k] {
				all = false
				break
			}
		}
		if all {
			return strings.TrimSpace(sentence) + ".", nil
		}
	}
	return fallback, nil
}
