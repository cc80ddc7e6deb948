package validation

import "github.com/edulab/orchestrator/pkg/models"

// InferContentType guesses the partner content type from the parts a document carries.
func InferContentType(doc map[string]any) models.ContentType {
	hasQuestions := !isEmpty(doc["questions"])
	hasFlashcards := !isEmpty(doc["flashcards"])
	hasFiche := !isEmpty(doc["fiche"])

	switch {
	case hasQuestions && hasFlashcards && hasFiche:
		return models.ContentTypeComplete
	case hasQuestions:
		return models.ContentTypeQuiz
	case hasFlashcards:
		return models.ContentTypeFlashcards
	case hasFiche:
		return models.ContentTypeFiche
	default:
		return models.ContentTypeComplete
	}
}

// WithContentType returns a shallow copy of doc with content_type set when it is missing or
// empty. A present value of another type is kept so validation can report it.
func WithContentType(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}

	switch ct := out["content_type"].(type) {
	case nil:
		out["content_type"] = string(InferContentType(doc))
	case string:
		if ct == "" {
			out["content_type"] = string(InferContentType(doc))
		}
	}

	return out
}
