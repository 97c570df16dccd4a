// Package flows defines the AI study flows (summaries, practice questions,
// flashcards) independently of any model provider.
package flows

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

// Schema describes the JSON a flow expects back. It is a provider-neutral
// subset of OpenAPI; adapters translate it to their own schema type.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
}

// Schema types.
const (
	TypeObject = "object"
	TypeArray  = "array"
	TypeString = "string"
)

// Request is one structured generation call.
type Request struct {
	Flow   string
	Prompt string
	Schema *Schema
}

// Generator produces JSON for a prompt, constrained by the request schema.
type Generator interface {
	Generate(ctx context.Context, req Request) ([]byte, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) ([]byte, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}

// Flow binds a prompt template and an output schema to typed input and output.
type Flow[In, Out any] struct {
	Name   string
	Schema *Schema
	prompt *template.Template
}

// NewFlow parses the prompt template. It panics on a malformed template, so
// flows are declared as package variables.
func NewFlow[In, Out any](name, prompt string, schema *Schema) *Flow[In, Out] {
	return &Flow[In, Out]{
		Name:   name,
		Schema: schema,
		prompt: template.Must(template.New(name).Parse(prompt)),
	}
}

// Render executes the prompt template for in.
func (f *Flow[In, Out]) Render(in In) (string, error) {
	var sb strings.Builder
	if err := f.prompt.Execute(&sb, in); err != nil {
		return "", fmt.Errorf("%s: render prompt: %w", f.Name, err)
	}
	return sb.String(), nil
}

// Run renders the prompt, calls gen exactly once and decodes the reply.
func (f *Flow[In, Out]) Run(ctx context.Context, gen Generator, in In) (Out, error) {
	var out Out
	prompt, err := f.Render(in)
	if err != nil {
		return out, err
	}

	raw, err := gen.Generate(ctx, Request{Flow: f.Name, Prompt: prompt, Schema: f.Schema})
	if err != nil {
		return out, fmt.Errorf("%s: %w", f.Name, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%s: %w: %v", f.Name, ErrMalformedOutput, err)
	}
	return out, nil
}
