package genai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/aretw0/studywise/pkg/flows"
)

func TestNewGenerator_RequiresKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	_, err := NewGenerator(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "google")
	assert.Equal(t, "google", APIKeyFromEnv())

	t.Setenv("GEMINI_API_KEY", "gemini")
	assert.Equal(t, "gemini", APIKeyFromEnv())
}

func TestGenerate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.Contains(r.URL.Path, "gemini-test:generateContent"), r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"processedContent\":\"# Summary\"}"}]}}]}`)
	}))
	defer srv.Close()

	gen, err := NewGenerator(context.Background(), Config{APIKey: "test", Model: "gemini-test", BaseURL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "genai:gemini-test", gen.Name())

	svc := flows.New(gen)
	out, err := svc.ProcessNote(context.Background(), flows.ProcessNoteInput{NoteContent: "cells", Action: flows.ActionSummarize})
	require.NoError(t, err)
	assert.Equal(t, "# Summary", out.ProcessedContent)

	cfg, ok := body["generationConfig"].(map[string]any)
	require.True(t, ok, "request carries a generation config")
	assert.Equal(t, "application/json", cfg["responseMimeType"])
	assert.NotNil(t, cfg["responseSchema"])
}

func TestGenerate_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`)
	}))
	defer srv.Close()

	gen, err := NewGenerator(context.Background(), Config{APIKey: "test", Model: "gemini-test", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = gen.Generate(context.Background(), flows.Request{Flow: "x", Prompt: "p"})
	assert.Error(t, err)
}

func TestToSchema(t *testing.T) {
	s := toSchema(&flows.Schema{
		Type: flows.TypeObject,
		Properties: map[string]*flows.Schema{
			"cards": {Type: flows.TypeArray, Items: &flows.Schema{Type: flows.TypeString}},
		},
		Required: []string{"cards"},
	})
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, genai.TypeArray, s.Properties["cards"].Type)
	assert.Equal(t, genai.TypeString, s.Properties["cards"].Items.Type)
	assert.Equal(t, []string{"cards"}, s.Required)
	assert.Nil(t, toSchema(nil))
}
