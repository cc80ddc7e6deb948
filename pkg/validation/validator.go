// Package validation checks theme content documents against the structural rules of the
// catalog and the stricter compliance profile required by the Ergo-Mate partner.
package validation

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/edulab/orchestrator/pkg/models"
)

const (
	titleMin, titleMax                   = 3, 255
	descriptionMin, descriptionMax       = 10, 2000
	questionTextMin, questionTextMax     = 5, 1000
	choicesMin, choicesMax               = 2, 6
	frontMin, frontMax                   = 3, 500
	backMin, backMax                     = 3, 2000
	sectionsMax                          = 20
	sectionTitleMin, sectionTitleMax     = 3, 255
	sectionContentMin, sectionContentMax = 10, 5000
	keyPointsMax                         = 10
)

var (
	questionIDPattern  = regexp.MustCompile(`^q[0-9]+$`)
	flashcardIDPattern = regexp.MustCompile(`^f[0-9]+$`)
)

// Result is the outcome of a validation pass. Errors is never nil.
type Result struct {
	Valid     bool     `json:"valid"`
	Errors    []string `json:"errors"`
	Compliant bool     `json:"ergomate_compliant"`
}

// Validate checks a decoded content document. Every rule runs; errors accumulate in rule
// order. Strict mode adds the partner compliance rules, and Compliant is only true when a
// strict pass found no error.
func Validate(doc map[string]any, strict bool) Result {
	r := &report{errors: []string{}}

	r.boundedString(doc, "title", "Title", titleMin, titleMax)
	r.boundedString(doc, "description", "Description", descriptionMin, descriptionMax)
	r.difficulty(doc)

	if strict {
		r.contentType(doc)

		if isEmpty(doc["questions"]) && isEmpty(doc["flashcards"]) && isEmpty(doc["fiche"]) {
			r.add("Theme must have at least questions, flashcards, or fiche")
		}
	}

	if raw, ok := present(doc, "questions"); ok {
		r.questions(raw)
	}

	if raw, ok := present(doc, "flashcards"); ok {
		r.flashcards(raw)
	}

	if raw, ok := present(doc, "fiche"); ok {
		r.fiche(raw)
	}

	valid := len(r.errors) == 0

	return Result{
		Valid:     valid,
		Errors:    r.errors,
		Compliant: valid && strict,
	}
}

// ValidateDocument validates a typed document.
func ValidateDocument(doc models.ContentDocument, strict bool) Result {
	return Validate(doc.ToMap(), strict)
}

type report struct {
	errors []string
}

func (r *report) add(msg string) {
	r.errors = append(r.errors, msg)
}

func (r *report) addf(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func (r *report) boundedString(doc map[string]any, field, label string, minLen, maxLen int) {
	value, ok := nonEmptyString(doc[field])
	if !ok {
		r.add("Missing required field: " + field)

		return
	}

	if !lengthBetween(value, minLen, maxLen) {
		r.addf("%s must be between %d and %d characters", label, minLen, maxLen)
	}
}

func (r *report) difficulty(doc map[string]any) {
	value, ok := nonEmptyString(doc["difficulty"])
	if !ok {
		r.add("Missing required field: difficulty")

		return
	}

	if !models.Difficulty(value).IsValid() {
		r.add("Invalid difficulty value")
	}
}

func (r *report) contentType(doc map[string]any) {
	value, ok := nonEmptyString(doc["content_type"])
	if !ok {
		r.add("Missing required field: content_type")

		return
	}

	if !models.ContentType(value).IsValid() {
		r.add("Invalid content_type value")
	}
}

func (r *report) questions(raw any) {
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		r.add("Questions must be a non-empty array")

		return
	}

	for i, item := range items {
		q, ok := item.(map[string]any)
		if !ok {
			r.addf("Question %d: must be an object", i)

			continue
		}

		if id, ok := nonEmptyString(q["id"]); !ok {
			r.addf("Question %d: missing id", i)
		} else if !questionIDPattern.MatchString(id) {
			r.addf("Question %d: id must match pattern 'q[0-9]+'", i)
		}

		if text, ok := nonEmptyString(q["text"]); !ok {
			r.addf("Question %d: missing text", i)
		} else if !lengthBetween(text, questionTextMin, questionTextMax) {
			r.addf("Question %d: text must be between %d and %d characters", i, questionTextMin, questionTextMax)
		}

		choices, choicesOK := q["choices"].([]any)
		if !choicesOK {
			r.addf("Question %d: missing choices array", i)
		} else if len(choices) < choicesMin || len(choices) > choicesMax {
			r.addf("Question %d: must have between %d and %d choices", i, choicesMin, choicesMax)
		}

		answer, answerOK := asInt(q["correctAnswer"])
		if !answerOK {
			r.addf("Question %d: missing or invalid correctAnswer (must be integer)", i)
		} else if choicesOK && (answer < 0 || answer >= len(choices)) {
			r.addf("Question %d: correctAnswer out of range", i)
		}
	}
}

func (r *report) flashcards(raw any) {
	items, ok := raw.([]any)
	if !ok {
		r.add("Flashcards must be an array")

		return
	}

	for i, item := range items {
		f, ok := item.(map[string]any)
		if !ok {
			r.addf("Flashcard %d: must be an object", i)

			continue
		}

		if id, ok := nonEmptyString(f["id"]); !ok {
			r.addf("Flashcard %d: missing id", i)
		} else if !flashcardIDPattern.MatchString(id) {
			r.addf("Flashcard %d: id must match pattern 'f[0-9]+'", i)
		}

		if front, ok := nonEmptyString(f["front"]); !ok {
			r.addf("Flashcard %d: missing front", i)
		} else if !lengthBetween(front, frontMin, frontMax) {
			r.addf("Flashcard %d: front must be between %d and %d characters", i, frontMin, frontMax)
		}

		if back, ok := nonEmptyString(f["back"]); !ok {
			r.addf("Flashcard %d: missing back", i)
		} else if !lengthBetween(back, backMin, backMax) {
			r.addf("Flashcard %d: back must be between %d and %d characters", i, backMin, backMax)
		}
	}
}

func (r *report) fiche(raw any) {
	fiche, ok := raw.(map[string]any)
	if !ok {
		r.add("Fiche must be an object")

		return
	}

	rawSections, ok := present(fiche, "sections")
	if !ok {
		r.add("Fiche: missing sections")

		return
	}

	sections, ok := rawSections.([]any)

	switch {
	case !ok:
		r.add("Fiche: sections must be an array")

		return
	case len(sections) == 0:
		r.add("Fiche: sections must have at least one section")

		return
	case len(sections) > sectionsMax:
		r.addf("Fiche: sections must have at most %d sections", sectionsMax)

		return
	}

	for i, item := range sections {
		section, ok := item.(map[string]any)
		if !ok {
			r.addf("Fiche section %d: must be an object", i)

			continue
		}

		if title, ok := nonEmptyString(section["title"]); !ok {
			r.addf("Fiche section %d: missing title", i)
		} else if !lengthBetween(title, sectionTitleMin, sectionTitleMax) {
			r.addf("Fiche section %d: title must be between %d and %d characters", i, sectionTitleMin, sectionTitleMax)
		}

		if content, ok := nonEmptyString(section["content"]); !ok {
			r.addf("Fiche section %d: missing content", i)
		} else if !lengthBetween(content, sectionContentMin, sectionContentMax) {
			r.addf("Fiche section %d: content must be between %d and %d characters", i, sectionContentMin, sectionContentMax)
		}

		if rawKeyPoints, ok := present(section, "keyPoints"); ok {
			keyPoints, ok := rawKeyPoints.([]any)
			if !ok {
				r.addf("Fiche section %d: keyPoints must be an array", i)
			} else if len(keyPoints) > keyPointsMax {
				r.addf("Fiche section %d: keyPoints must have at most %d items", i, keyPointsMax)
			}
		}
	}
}

// present reports whether key exists with a non-null value.
func present(doc map[string]any, key string) (any, bool) {
	value, ok := doc[key]
	if !ok || value == nil {
		return nil, false
	}

	return value, true
}

func nonEmptyString(value any) (string, bool) {
	s, ok := value.(string)
	if !ok || s == "" {
		return "", false
	}

	return s, true
}

func lengthBetween(s string, minLen, maxLen int) bool {
	n := utf8.RuneCountInString(s)

	return n >= minLen && n <= maxLen
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	case string:
		return v == ""
	default:
		return false
	}
}

// asInt accepts the integer representations produced by encoding/json and by Go callers.
func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}

		return int(v), true
	case interface{ Int64() (int64, error) }:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}

		return int(n), true
	default:
		return 0, false
	}
}
