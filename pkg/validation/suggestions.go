package validation

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxKeywords         = 3
	minKeywordLength    = 4
	sectionExcerptRunes = 200
)

var stopWords = map[string]struct{}{
	"le": {}, "la": {}, "les": {}, "un": {}, "une": {}, "des": {}, "de": {}, "du": {},
	"et": {}, "ou": {}, "est": {}, "sont": {}, "a": {}, "à": {}, "en": {}, "dans": {},
	"sur": {}, "pour": {}, "par": {}, "avec": {}, "ce": {}, "qui": {}, "que": {},
	"quoi": {}, "comment": {}, "pourquoi": {},
}

// ImageSources holds ready-to-open image search links.
type ImageSources struct {
	Unsplash string `json:"unsplash"`
	Pexels   string `json:"pexels"`
}

// ImageSuggestion is the keyword set derived from one question or section.
type ImageSuggestion struct {
	Keywords         []string     `json:"keywords"`
	SearchQuery      string       `json:"search_query"`
	SuggestedSources ImageSources `json:"suggested_sources"`
}

// ImageSuggestions groups suggestions by question id and fiche section index.
type ImageSuggestions struct {
	Questions     map[string]ImageSuggestion `json:"questions,omitempty"`
	FicheSections map[int]ImageSuggestion    `json:"fiche_sections,omitempty"`
}

// SuggestImages derives image search suggestions from a content document. It is
// best-effort: malformed parts of the document are skipped.
func SuggestImages(doc map[string]any) ImageSuggestions {
	suggestions := ImageSuggestions{}

	if questions, ok := doc["questions"].([]any); ok {
		for _, item := range questions {
			q, ok := item.(map[string]any)
			if !ok {
				continue
			}

			id, _ := q["id"].(string)
			text, _ := q["text"].(string)

			if id == "" {
				continue
			}

			keywords := ExtractKeywords(text)
			if len(keywords) == 0 {
				continue
			}

			if suggestions.Questions == nil {
				suggestions.Questions = make(map[string]ImageSuggestion)
			}

			suggestions.Questions[id] = newSuggestion(keywords, "800x600")
		}
	}

	fiche, _ := doc["fiche"].(map[string]any)
	sections, _ := fiche["sections"].([]any)

	for i, item := range sections {
		section, ok := item.(map[string]any)
		if !ok {
			continue
		}

		title, _ := section["title"].(string)
		content, _ := section["content"].(string)

		keywords := ExtractKeywords(title + " " + truncateRunes(content, sectionExcerptRunes))
		if len(keywords) == 0 {
			continue
		}

		if suggestions.FicheSections == nil {
			suggestions.FicheSections = make(map[int]ImageSuggestion)
		}

		suggestions.FicheSections[i] = newSuggestion(keywords, "1200x800")
	}

	return suggestions
}

// ExtractKeywords lowercases text, drops everything that is not a letter, and returns the
// first three words longer than three characters that are not stop words.
func ExtractKeywords(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return unicode.ToLower(r)
		}

		return ' '
	}, text)

	keywords := make([]string, 0, maxKeywords)

	for _, word := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(word) < minKeywordLength {
			continue
		}

		if _, stop := stopWords[word]; stop {
			continue
		}

		keywords = append(keywords, word)
		if len(keywords) == maxKeywords {
			break
		}
	}

	return keywords
}

func newSuggestion(keywords []string, size string) ImageSuggestion {
	query := strings.Join(keywords, " ")

	return ImageSuggestion{
		Keywords:    keywords,
		SearchQuery: query,
		SuggestedSources: ImageSources{
			Unsplash: "https://source.unsplash.com/" + size + "/?" + url.QueryEscape(strings.Join(keywords, ",")),
			Pexels:   "https://www.pexels.com/search/" + url.QueryEscape(query),
		},
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	return string([]rune(s)[:n])
}
