package fs

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/studywise/pkg/core"
)

func TestSerializers_RoundTrip(t *testing.T) {
	doc := core.Document{
		Content: "# Photosynthesis\n\nLight ==reactions== first.\n",
		Metadata: core.Metadata{
			"title":    "Photosynthesis",
			"courseId": "c1",
			"tagIds":   []any{"t1", "t2"},
		},
	}

	for ext, s := range DefaultSerializers(false) {
		t.Run(ext, func(t *testing.T) {
			data, err := s.Serialize(doc)
			require.NoError(t, err)

			parsed, err := s.Parse(bytes.NewReader(data))
			require.NoError(t, err)

			assert.Equal(t, doc.Content, parsed.Content)
			assert.Equal(t, "Photosynthesis", parsed.Metadata["title"])
			assert.Equal(t, []any{"t1", "t2"}, parsed.Metadata["tagIds"])
			assert.NotContains(t, parsed.Metadata, "content")
		})
	}
}

func TestMarkdownSerializer_NoFrontmatter(t *testing.T) {
	s := &MarkdownSerializer{}
	doc, err := s.Parse(strings.NewReader("just a body"))
	require.NoError(t, err)
	assert.Equal(t, "just a body", doc.Content)
	assert.Empty(t, doc.Metadata)
}

func TestMarkdownSerializer_RuleInBody(t *testing.T) {
	s := &MarkdownSerializer{}
	original := core.Document{Content: "---\nnot frontmatter"}

	data, err := s.Serialize(original)
	require.NoError(t, err)

	doc, err := s.Parse(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, original.Content, doc.Content)
}

func TestMarkdownSerializer_DashesInsideBody(t *testing.T) {
	s := &MarkdownSerializer{}
	input := "---\ntitle: x\n---\nabove\n---\nbelow"
	doc, err := s.Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "x", doc.Metadata["title"])
	assert.Equal(t, "above\n---\nbelow", doc.Content)
}

func TestMarkdownSerializer_Unclosed(t *testing.T) {
	s := &MarkdownSerializer{}
	_, err := s.Parse(strings.NewReader("---\ntitle: x\nno end"))
	assert.ErrorIs(t, err, ErrUnclosedFrontmatter)
}

func TestMarkdownSerializer_TimestampsStayStrings(t *testing.T) {
	s := &MarkdownSerializer{}
	data, err := s.Serialize(core.Document{Metadata: core.Metadata{"createdAt": "2024-03-01T10:00:00Z"}})
	require.NoError(t, err)

	doc, err := s.Parse(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T10:00:00Z", doc.Metadata["createdAt"])
}

func TestSerializers_Strict(t *testing.T) {
	big := "---\nviews: 9007199254740993\n---\n"
	doc, err := (&MarkdownSerializer{Strict: true}).Parse(strings.NewReader(big))
	require.NoError(t, err)
	assert.Equal(t, json.Number("9007199254740993"), doc.Metadata["views"])

	doc, err = (&JSONSerializer{Strict: true}).Parse(strings.NewReader(`{"views": 9007199254740993}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("9007199254740993"), doc.Metadata["views"])
}
