package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"sidekick/internal/chaterr"
	"sidekick/internal/transcript"
)

// Gemini is the production Agent, streaming responses from the Gemini API.
// It also serves as the code-block Regenerator and the completion backend
// of the title summarizer.
type Gemini struct {
	client *genai.Client
	logger *zap.Logger
}

// NewGemini creates the Gemini-backed agent.
func NewGemini(ctx context.Context, apiKey string, logger *zap.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Gemini{client: client, logger: logger}, nil
}

// Handle streams one assistant response, replaying each accumulated chunk
// through cb.PostPartialMessage.
func (g *Gemini) Handle(ctx context.Context, req Request, cb Callbacks) error {
	contents := historyContents(req)

	var (
		text  strings.Builder
		usage transcript.TokenUsage
	)
	for resp, err := range g.client.Models.GenerateContentStream(ctx, req.Model, contents, nil) {
		if err != nil {
			return classify(err)
		}
		if chunk := resp.Text(); chunk != "" {
			text.WriteString(chunk)
			cb.PostPartialMessage(transcript.Message{
				Speaker: transcript.SpeakerAssistant,
				Text:    text.String(),
				Intent:  req.Intent,
			})
		}
		if resp.UsageMetadata != nil {
			usage = transcript.TokenUsage{
				PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
				CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
				TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
			}
		}
	}
	if usage != (transcript.TokenUsage{}) {
		cb.PostUsage(usage)
	}
	g.logger.Debug("gemini turn complete",
		zap.String("request", req.RequestID),
		zap.Int("chars", text.Len()))
	return nil
}

// RegenerateCodeBlock asks the model for a fresh version of one code
// block and returns the bare code.
func (g *Gemini) RegenerateCodeBlock(ctx context.Context, model, code, language string) (string, error) {
	prompt := fmt.Sprintf(
		"Regenerate the following %s code block. Reply with only the code, no fences, no prose:\n\n%s",
		orElse(language, "code"), code)
	out, err := g.Complete(ctx, model, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(stripFences(out)), nil
}

// Complete issues a single non-chat completion, accumulating the stream.
func (g *Gemini) Complete(ctx context.Context, model, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	var text strings.Builder
	for resp, err := range g.client.Models.GenerateContentStream(ctx, model, contents, nil) {
		if err != nil {
			return "", classify(err)
		}
		text.WriteString(resp.Text())
	}
	return text.String(), nil
}

// historyContents converts the transcript snapshot to API contents. User
// attached context items ride along as a preamble on the final message.
func historyContents(req Request) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, m := range req.History {
		if m.Text == "" {
			continue
		}
		role := genai.RoleUser
		if m.Speaker == transcript.SpeakerAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Text, genai.Role(role)))
	}

	final := req.Text
	if len(req.ContextItems) > 0 {
		var b strings.Builder
		b.WriteString("Context:\n")
		for _, item := range req.ContextItems {
			fmt.Fprintf(&b, "- %s %s\n", item.Type, item.URI)
		}
		b.WriteString("\n")
		b.WriteString(final)
		final = b.String()
	}
	// History already ends with the submitted human message; replace it
	// with the context-enriched form.
	if n := len(contents); n > 0 && len(req.History) > 0 &&
		req.History[len(req.History)-1].Speaker == transcript.SpeakerHuman {
		contents[n-1] = genai.NewContentFromText(final, genai.RoleUser)
	} else {
		contents = append(contents, genai.NewContentFromText(final, genai.RoleUser))
	}
	return contents
}

// classify maps provider failures onto the chat error taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "429"):
		return chaterr.Wrap(err, chaterr.KindRateLimit, "model rate limited")
	case strings.Contains(msg, "token count") || strings.Contains(msg, "context window") ||
		strings.Contains(msg, "exceeds the maximum"):
		return chaterr.Wrap(err, chaterr.KindContextWindow, "context window exceeded")
	default:
		return chaterr.Wrap(err, chaterr.KindAgent, "model request failed")
	}
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return s
	}
	lines = lines[1:]
	if strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

func orElse(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
