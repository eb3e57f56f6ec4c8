package pipeline

import (
	"strings"

	"patent-backend/internal/scoring"
)

// Request is the caller-supplied input to one pipeline run.
type Request struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	TechnicalField   string `json:"technical_field"`
	TechnicalContent string `json:"technical_content"`
	UserID           string `json:"user_id"`
}

// Normalize trims surrounding whitespace from every field.
func (r Request) Normalize() Request {
	return Request{
		Title:            strings.TrimSpace(r.Title),
		Description:      strings.TrimSpace(r.Description),
		TechnicalField:   strings.TrimSpace(r.TechnicalField),
		TechnicalContent: strings.TrimSpace(r.TechnicalContent),
		UserID:           strings.TrimSpace(r.UserID),
	}
}

// Validate returns a *ValidationError naming every missing field.
func (r Request) Validate() error {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"title", r.Title},
		{"description", r.Description},
		{"technical_field", r.TechnicalField},
		{"technical_content", r.TechnicalContent},
		{"user_id", r.UserID},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

func (r Request) invention() scoring.Invention {
	return scoring.Invention{
		Title:            r.Title,
		Description:      r.Description,
		TechnicalField:   r.TechnicalField,
		TechnicalContent: r.TechnicalContent,
	}
}

// Scores holds the three stage scores on the 0-100 scale.
type Scores struct {
	Novelty       float64 `json:"novelty"`
	Inventiveness float64 `json:"inventiveness"`
	Utility       float64 `json:"utility"`
}

// Result is the outcome of a completed run.
type Result struct {
	AnalysisID     string `json:"analysis_id"`
	Status         string `json:"status"`
	OverallScore   int    `json:"overall_score"`
	Recommendation string `json:"recommendation"`
	Scores         Scores `json:"scores"`
	TokensUsed     int    `json:"tokens_used"`
	PriorArtCount  int    `json:"prior_art_count"`
}
