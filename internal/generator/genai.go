package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GenAIModel calls Gemini through google.golang.org/genai.
type GenAIModel struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	config  *genai.GenerateContentConfig
}

type GenAIOpts struct {
	APIKey  string
	Model   string        // default gemini-flash-latest
	Timeout time.Duration // per call, default 20s
}

func NewGenAIModel(ctx context.Context, opts GenAIOpts) (*GenAIModel, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if opts.Model == "" {
		opts.Model = "gemini-flash-latest"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GenAIModel{
		client:  client,
		model:   opts.Model,
		timeout: opts.Timeout,
		config: &genai.GenerateContentConfig{
			// salon marketing copy trips the harassment filter on vocatives
			SafetySettings: []*genai.SafetySetting{
				{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
			},
		},
	}, nil
}

func (m *GenAIModel) Name() string { return "genai:" + m.model }

func (m *GenAIModel) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	resp, err := m.client.Models.GenerateContent(ctx, m.model, genai.Text(prompt), m.config)
	if err != nil {
		return "", fmt.Errorf("genai %s: %w", m.model, err)
	}
	if resp == nil {
		return "", ErrEmptyResponse
	}

	return resp.Text(), nil
}
