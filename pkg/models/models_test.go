package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumValidity(t *testing.T) {
	t.Parallel()

	for _, s := range WorkflowStatuses {
		assert.True(t, s.IsValid(), s)
	}

	assert.False(t, WorkflowStatus("deleted").IsValid())
	assert.False(t, WorkflowStatus("").IsValid())

	assert.True(t, DifficultyAdvanced.IsValid())
	assert.False(t, Difficulty("expert").IsValid())

	assert.True(t, ContentTypeFiche.IsValid())
	assert.False(t, ContentType("video").IsValid())
}

func TestCatalogEntry_HasTag(t *testing.T) {
	t.Parallel()

	entry := &CatalogEntry{Tags: []string{"fractions", "cycle3"}}

	assert.True(t, entry.HasTag("cycle3"))
	assert.False(t, entry.HasTag("Cycle3"))
	assert.False(t, (&CatalogEntry{}).HasTag("fractions"))
}

func TestContentDocument_ToMap(t *testing.T) {
	t.Parallel()

	doc := ContentDocument{
		Title:       "Fractions",
		Description: "Comparer et additionner des fractions simples",
		Difficulty:  DifficultyBeginner,
		ContentType: ContentTypeComplete,
		Questions: []Question{{
			ID:            "q1",
			Text:          "Combien font 1/2 + 1/4 ?",
			Choices:       []string{"3/4", "2/6"},
			CorrectAnswer: 0,
		}},
		Flashcards: []Flashcard{{ID: "f1", Front: "1/2", Back: "Une moitie"}},
		Fiche: &Fiche{Sections: []FicheSection{{
			Title:     "Definition",
			Content:   "Une fraction represente une partie d'un tout.",
			KeyPoints: []string{"numerateur", "denominateur"},
		}}},
	}

	m := doc.ToMap()

	assert.Equal(t, "complete", m["content_type"])
	assert.Equal(t, "beginner", m["difficulty"])

	questions, ok := m["questions"].([]any)
	require.True(t, ok)
	require.Len(t, questions, 1)

	question := questions[0].(map[string]any)
	assert.Equal(t, []any{"3/4", "2/6"}, question["choices"])
	assert.NotContains(t, question, "explanation")

	fiche := m["fiche"].(map[string]any)
	sections := fiche["sections"].([]any)
	assert.Equal(t, []any{"numerateur", "denominateur"}, sections[0].(map[string]any)["keyPoints"])

	// The map form must agree with the JSON encoding of the typed document.
	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, decoded["title"], m["title"])
	assert.Len(t, decoded["flashcards"], 1)
}

func TestContentDocument_ToMapOmitsAbsentBlocks(t *testing.T) {
	t.Parallel()

	m := ContentDocument{Title: "T", Description: "D", Difficulty: DifficultyIntermediate}.ToMap()

	assert.NotContains(t, m, "content_type")
	assert.NotContains(t, m, "questions")
	assert.NotContains(t, m, "flashcards")
	assert.NotContains(t, m, "fiche")
}
