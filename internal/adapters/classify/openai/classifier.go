// Package openai implements the external classifier over the OpenAI
// Responses API with a strict JSON schema. Failures here are always
// recovered upstream; the lexical result is the fallback
package openai

import (
	"context"
	"encoding/json"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	perr "sondeo/internal/platform/errors"
	"sondeo/internal/services/batch/domain"
)

const instructions = `Classify the emotional tone of one Spanish customer feedback comment.
Score each emotion from 0 to 1 by how strongly it is present. Scores do not
need to sum to 1. Use neutral for comments with no clear emotion.`

// Config for the classifier
type Config struct {
	APIKey          string
	Model           string
	MaxOutputTokens int64
}

// Classifier implements domain.ClassifierPort
type Classifier struct {
	client *openai.Client
	cfg    Config
}

// emotionScores is the strict response shape
type emotionScores struct {
	Alegria  float64 `json:"alegria" jsonschema:"minimum=0,maximum=1"`
	Enojo    float64 `json:"enojo" jsonschema:"minimum=0,maximum=1"`
	Tristeza float64 `json:"tristeza" jsonschema:"minimum=0,maximum=1"`
	Miedo    float64 `json:"miedo" jsonschema:"minimum=0,maximum=1"`
	Sorpresa float64 `json:"sorpresa" jsonschema:"minimum=0,maximum=1"`
	Neutral  float64 `json:"neutral" jsonschema:"minimum=0,maximum=1"`
}

// New builds a classifier. A missing model falls back to gpt-4o-mini
func New(cfg Config) *Classifier {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = 256
	}
	client := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Classifier{client: &client, cfg: cfg}
}

// Classify scores one text. The bounded retry lives in call; after
// exhaustion the error carries the classifier code so callers can treat it
// as recovered
func (c *Classifier) Classify(ctx context.Context, text string) (map[string]float64, error) {
	if text == "" {
		return nil, nil
	}

	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        "emotion_scores",
			Schema:      GenerateSchema[emotionScores](),
			Strict:      openai.Bool(true),
			Description: openai.String("Per-emotion strength scores"),
			Type:        "json_schema",
		},
	}
	params := responses.ResponseNewParams{
		Model:           c.cfg.Model,
		MaxOutputTokens: openai.Int(c.cfg.MaxOutputTokens),
		Instructions:    openai.String(instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(text, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{Format: format},
	}

	resp, err := c.call(ctx, params)
	if err != nil {
		return nil, err
	}

	var scores emotionScores
	if err := json.Unmarshal([]byte(resp.OutputText()), &scores); err != nil {
		return nil, perr.Classifierf("decode response: %v", err)
	}
	return vectorOf(scores), nil
}

func vectorOf(s emotionScores) map[string]float64 {
	out := make(map[string]float64, 6)
	put := func(name string, v float64) {
		if v > 0 {
			out[name] = v
		}
	}
	put("alegria", s.Alegria)
	put("enojo", s.Enojo)
	put("tristeza", s.Tristeza)
	put("miedo", s.Miedo)
	put("sorpresa", s.Sorpresa)
	put("neutral", s.Neutral)
	return out
}

var _ domain.ClassifierPort = (*Classifier)(nil)
