package generator

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModel - модель Gemini по умолчанию
const DefaultModel = "gemini-2.0-flash-lite"

// GeminiProvider отправляет промпты в Gemini API
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider создает клиента Gemini. Без API ключа провайдер не создается.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is not configured")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiProvider{client: client, model: model}, nil
}

// GenerateText возвращает сырой текст ответа модели
func (p *GeminiProvider) GenerateText(ctx context.Context, system, user string) (string, error) {
	result, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(user), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	if result == nil {
		return "", errEmptyResponse
	}
	return result.Text(), nil
}
