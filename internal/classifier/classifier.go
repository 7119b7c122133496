// Package classifier is the opaque boundary around AI-based window-title
// classification. The engine side only sees a binary verdict; the model
// behavior itself is not specified here.
package classifier

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Verdict is a binary label for one day of window titles. Detail carries
// the classifier's justification for a dirty day.
type Verdict struct {
	Clean  bool
	Detail string
}

// Classifier labels a day's window titles.
type Classifier interface {
	Classify(ctx context.Context, titles []string) (Verdict, error)
}

// RenderPrompt substitutes the titles into a prompt template. The template
// marks the insertion point with {{titles}}.
func RenderPrompt(template string, titles []string) string {
	return strings.ReplaceAll(template, "{{titles}}", strings.Join(titles, "\n"))
}

// OpenAI classifies via a chat-completion model. The model answers "no"
// when nothing objectionable is found; any other answer is treated as a
// dirty verdict with the answer's second line as detail.
type OpenAI struct {
	client   *openai.Client
	model    string
	template string
}

// NewOpenAI creates a classifier using the given API key, model name, and
// prompt template.
func NewOpenAI(apiKey, model, template string) *OpenAI {
	return &OpenAI{
		client:   openai.NewClient(apiKey),
		model:    model,
		template: template,
	}
}

// NewOpenAIWithConfig creates a classifier from a custom client
// configuration, used by tests to point at a stub server.
func NewOpenAIWithConfig(config openai.ClientConfig, model, template string) *OpenAI {
	return &OpenAI{
		client:   openai.NewClientWithConfig(config),
		model:    model,
		template: template,
	}
}

func (o *OpenAI) Classify(ctx context.Context, titles []string) (Verdict, error) {
	prompt := RenderPrompt(o.template, titles)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Verdict{}, fmt.Errorf("chat completion returned no choices")
	}

	answer := resp.Choices[0].Message.Content
	if strings.TrimSpace(answer) == "no" {
		return Verdict{Clean: true}, nil
	}

	lines := strings.Split(answer, "\n")
	detail := ""
	if len(lines) > 1 {
		detail = strings.TrimSpace(lines[1])
	}
	return Verdict{Clean: false, Detail: detail}, nil
}
