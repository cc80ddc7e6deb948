package models

// ContentType is the shape of a theme as understood by the partner system.
type ContentType string

const (
	ContentTypeComplete   ContentType = "complete"
	ContentTypeQuiz       ContentType = "quiz"
	ContentTypeFlashcards ContentType = "flashcards"
	ContentTypeFiche      ContentType = "fiche"
)

// IsValid reports whether c is a known content type.
func (c ContentType) IsValid() bool {
	switch c {
	case ContentTypeComplete, ContentTypeQuiz, ContentTypeFlashcards, ContentTypeFiche:
		return true
	default:
		return false
	}
}

// Question is a multiple-choice question of a theme.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Choices       []string `json:"choices"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Flashcard is a two-sided memorisation card.
type Flashcard struct {
	ID    string `json:"id"`
	Front string `json:"front"`
	Back  string `json:"back"`
}

// FicheSection is one section of a revision sheet.
type FicheSection struct {
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	KeyPoints []string `json:"keyPoints,omitempty"`
}

// Fiche is a structured revision sheet.
type Fiche struct {
	Sections []FicheSection `json:"sections"`
}

// ContentDocument is the typed form of a theme's content. Validation operates on the
// decoded JSON form (map[string]any) so that ill-typed fields can be reported; use
// ToMap to obtain it from a typed document.
type ContentDocument struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Difficulty  Difficulty  `json:"difficulty"`
	ContentType ContentType `json:"content_type,omitempty"`
	Questions   []Question  `json:"questions,omitempty"`
	Flashcards  []Flashcard `json:"flashcards,omitempty"`
	Fiche       *Fiche      `json:"fiche,omitempty"`
}

// ToMap converts the typed document to its decoded JSON form.
func (d ContentDocument) ToMap() map[string]any {
	doc := map[string]any{
		"title":       d.Title,
		"description": d.Description,
		"difficulty":  string(d.Difficulty),
	}

	if d.ContentType != "" {
		doc["content_type"] = string(d.ContentType)
	}

	if d.Questions != nil {
		questions := make([]any, 0, len(d.Questions))

		for _, q := range d.Questions {
			choices := make([]any, 0, len(q.Choices))
			for _, c := range q.Choices {
				choices = append(choices, c)
			}

			question := map[string]any{
				"id":            q.ID,
				"text":          q.Text,
				"choices":       choices,
				"correctAnswer": q.CorrectAnswer,
			}
			if q.Explanation != "" {
				question["explanation"] = q.Explanation
			}

			questions = append(questions, question)
		}

		doc["questions"] = questions
	}

	if d.Flashcards != nil {
		flashcards := make([]any, 0, len(d.Flashcards))
		for _, f := range d.Flashcards {
			flashcards = append(flashcards, map[string]any{
				"id":    f.ID,
				"front": f.Front,
				"back":  f.Back,
			})
		}

		doc["flashcards"] = flashcards
	}

	if d.Fiche != nil {
		sections := make([]any, 0, len(d.Fiche.Sections))

		for _, s := range d.Fiche.Sections {
			section := map[string]any{
				"title":   s.Title,
				"content": s.Content,
			}

			if s.KeyPoints != nil {
				keyPoints := make([]any, 0, len(s.KeyPoints))
				for _, k := range s.KeyPoints {
					keyPoints = append(keyPoints, k)
				}

				section["keyPoints"] = keyPoints
			}

			sections = append(sections, section)
		}

		doc["fiche"] = map[string]any{"sections": sections}
	}

	return doc
}
