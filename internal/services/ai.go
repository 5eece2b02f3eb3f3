package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

const mentorPreamble = "You are a concise, friendly coding mentor. " +
	"Focus on practical, actionable guidance for web development. " +
	"Prefer HTML, and CSS examples unless a language is specified. " +
	"Include short runnable snippets and explain why they work. " +
	"Avoid overly long digressions; be direct and clear."

// ErrAINotConfigured is returned when no API key was provided.
var ErrAINotConfigured = errors.New("missing GOOGLE_API_KEY environment variable")

// AIService forwards prompts to Gemini with a fixed mentor preamble.
type AIService struct {
	apiKey string
	model  string

	once      sync.Once
	client    *genai.Client
	clientErr error
}

func NewAIService(apiKey, model string) *AIService {
	return &AIService{apiKey: apiKey, model: model}
}

func (s *AIService) Configured() bool {
	return s.apiKey != ""
}

// Generate returns the model's text answer for prompt.
func (s *AIService) Generate(ctx context.Context, prompt string) (string, error) {
	if !s.Configured() {
		return "", ErrAINotConfigured
	}

	client, err := s.genaiClient(ctx)
	if err != nil {
		return "", err
	}

	resp, err := client.Models.GenerateContent(ctx, s.model, genai.Text(buildPrompt(prompt)), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}

// genaiClient builds the client on first use and reuses it afterwards.
func (s *AIService) genaiClient(ctx context.Context) (*genai.Client, error) {
	s.once.Do(func() {
		s.client, s.clientErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  s.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if s.clientErr != nil {
			s.clientErr = fmt.Errorf("create genai client: %w", s.clientErr)
		}
	})
	return s.client, s.clientErr
}

func buildPrompt(prompt string) string {
	return mentorPreamble + "\n\nUser request:\n" + strings.TrimSpace(prompt)
}
