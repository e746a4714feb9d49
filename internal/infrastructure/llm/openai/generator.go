package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/querylab/docquery/internal/core/domain"
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Generator produces structured answers over a chat-completions API.
type Generator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewGenerator(cfg Config) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Generator{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

func (g *Generator) GenerateAnswer(ctx context.Context, query string, result *domain.QueryResult, webContext string) (*domain.Answer, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(result.Domain)},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(query, result, webContext)},
		},
		Temperature: 0.1,
		MaxTokens:   2000,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	answer := parseAnswer(resp.Choices[0].Message.Content)
	answer.Model = g.model
	return answer, nil
}

// parseAnswer reads the model's JSON response, tolerating markdown
// fences. Unparseable responses degrade to a plain-text answer so the
// caller never loses the model output.
func parseAnswer(raw string) *domain.Answer {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "{") {
		var parsed struct {
			Answer      string   `json:"answer"`
			Reasoning   string   `json:"reasoning"`
			Evidence    []string `json:"evidence"`
			Limitations []string `json:"limitations"`
			FollowUp    []string `json:"follow_up"`
		}
		if err := json.Unmarshal([]byte(text), &parsed); err == nil && parsed.Answer != "" {
			return &domain.Answer{
				Text:              parsed.Answer,
				Reasoning:         parsed.Reasoning,
				Evidence:          parsed.Evidence,
				Limitations:       parsed.Limitations,
				FollowUpQuestions: parsed.FollowUp,
			}
		}
	}

	// Fallback: scan for labeled sections.
	answer := &domain.Answer{}
	section := ""
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "answer:"):
			section = "answer"
			answer.Text = strings.TrimSpace(line[len("answer:"):])
		case strings.HasPrefix(lower, "reasoning:"):
			section = "reasoning"
			answer.Reasoning = strings.TrimSpace(line[len("reasoning:"):])
		case line == "":
			section = ""
		default:
			switch section {
			case "answer":
				answer.Text += " " + line
			case "reasoning":
				answer.Reasoning += " " + line
			}
		}
	}
	if answer.Text == "" {
		answer.Text = text
		answer.Limitations = []string{"Response parsing failed"}
	}
	return answer
}
