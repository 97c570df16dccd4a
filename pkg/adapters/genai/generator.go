// Package genai implements flows.Generator on Google's Gemini API.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"google.golang.org/genai"

	"github.com/aretw0/studywise/pkg/flows"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-2.5-flash"

// ErrNoAPIKey is returned when neither the config nor the environment carries a key.
var ErrNoAPIKey = errors.New("no Gemini API key: set GEMINI_API_KEY or ai.api_key")

// Config configures the Gemini client.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	// BaseURL overrides the API endpoint (tests, proxies).
	BaseURL string
	Logger  *slog.Logger
}

// Generator calls Gemini with a JSON response schema.
type Generator struct {
	client *genai.Client
	model  string
	temp   float32
	logger *slog.Logger
}

// APIKeyFromEnv returns GEMINI_API_KEY, falling back to GOOGLE_API_KEY.
func APIKeyFromEnv() string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	return os.Getenv("GOOGLE_API_KEY")
}

// NewGenerator creates a Gemini-backed generator.
func NewGenerator(ctx context.Context, cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = APIKeyFromEnv()
	}
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.2
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Generator{client: client, model: cfg.Model, temp: cfg.Temperature, logger: cfg.Logger}, nil
}

// Generate implements flows.Generator.
func (g *Generator) Generate(ctx context.Context, req flows.Request) ([]byte, error) {
	temp := g.temp
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   toSchema(req.Schema),
		Temperature:      &temp,
	}

	g.logger.Debug("calling model", "flow", req.Flow, "model", g.model, "prompt_bytes", len(req.Prompt))
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), config)
	if err != nil {
		return nil, fmt.Errorf("gemini %s: %w", g.model, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, errors.New("gemini returned an empty response")
	}
	return []byte(text), nil
}

// Name identifies the backing model.
func (g *Generator) Name() string {
	return "genai:" + g.model
}

var _ flows.Generator = (*Generator)(nil)

func toSchema(s *flows.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        schemaType(s.Type),
		Description: s.Description,
		Required:    s.Required,
		Items:       toSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = toSchema(p)
		}
	}
	return out
}

func schemaType(t string) genai.Type {
	switch t {
	case flows.TypeObject:
		return genai.TypeObject
	case flows.TypeArray:
		return genai.TypeArray
	case flows.TypeString:
		return genai.TypeString
	default:
		return genai.TypeUnspecified
	}
}
