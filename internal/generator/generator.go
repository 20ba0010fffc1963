// Package generator produces multiple-choice questions with Gemini.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/stemsi/exam-portal/internal/model"
)

var (
	// ErrGenerationFailed is the single user-facing failure of a generation run.
	ErrGenerationFailed = errors.New("Failed to generate exam questions. Please try again.")
	// ErrNotConfigured means no API key was provided.
	ErrNotConfigured = errors.New("question generation is not configured")
)

// ContentGenerator is the subset of the genai Models service used here.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Generator struct {
	models ContentGenerator
	model  string
	now    func() time.Time
	log    zerolog.Logger
}

// New connects to the Gemini API.
func New(ctx context.Context, apiKey, modelName string, log zerolog.Logger) (*Generator, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return NewWithModels(client.Models, modelName, log), nil
}

// NewWithModels wraps an existing content generator.
func NewWithModels(models ContentGenerator, modelName string, log zerolog.Logger) *Generator {
	return &Generator{
		models: models,
		model:  modelName,
		now:    time.Now,
		log:    log.With().Str("component", "question_generator").Logger(),
	}
}

// questionSchema constrains the model output to an array of questions.
var questionSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"question": {
				Type:        genai.TypeString,
				Description: "The text of the question.",
			},
			"options": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "An array of 4 possible answers.",
			},
			"correctAnswerIndex": {
				Type:        genai.TypeInteger,
				Description: "The 0-based index of the correct answer in the options array.",
			},
		},
		Required: []string{"question", "options", "correctAnswerIndex"},
	},
}

func prompt(className string, count int) string {
	return fmt.Sprintf("Generate %d multiple-choice questions for a Class %s student. "+
		"The questions should cover a mix of general subjects like Science, Mathematics, and English Grammar. "+
		"Each question must have %d options and a correct answer index.", count, className, model.OptionsPerQuestion)
}

type generated struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
}

// Generate asks the model for count questions for className. Malformed items
// are dropped; an empty result is an error. Returned questions carry
// placeholder ids.
func (g *Generator) Generate(ctx context.Context, className string, count int) ([]model.Question, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: count must be positive", ErrGenerationFailed)
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt(className, count)), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   questionSchema,
	})
	if err != nil {
		g.log.Error().Err(err).Str("class", className).Msg("Gemini request failed")
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	text := ""
	if resp != nil {
		text = strings.TrimSpace(resp.Text())
	}
	questions, dropped, err := g.parse(text)
	if err != nil {
		g.log.Error().Err(err).Str("class", className).Msg("Unusable Gemini output")
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if dropped > 0 {
		g.log.Warn().Int("dropped", dropped).Str("class", className).Msg("Dropped malformed generated questions")
	}
	if len(questions) > count {
		questions = questions[:count]
	}
	return questions, nil
}

func (g *Generator) parse(text string) ([]model.Question, int, error) {
	if text == "" {
		return nil, 0, errors.New("empty response")
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var items []generated
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &items); err != nil {
		return nil, 0, fmt.Errorf("decode: %w", err)
	}

	now := g.now()
	out := make([]model.Question, 0, len(items))
	dropped := 0
	for _, it := range items {
		draft := model.QuestionDraft{
			Question:           strings.TrimSpace(it.Question),
			Options:            trimAll(it.Options),
			CorrectAnswerIndex: it.CorrectAnswerIndex,
		}
		if draft.Validate() != nil {
			dropped++
			continue
		}
		out = append(out, model.Question{
			ID:                 model.NewPlaceholderID(now, len(out)),
			Question:           draft.Question,
			Options:            draft.Options,
			CorrectAnswerIndex: draft.CorrectAnswerIndex,
		})
	}
	if len(out) == 0 {
		return nil, dropped, errors.New("no valid questions in response")
	}
	return out, dropped, nil
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}
