package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"carimport-backend/internal/domain"

	"github.com/rs/zerolog/log"
)

const (
	openAIChatURL  = "https://api.openai.com/v1/chat/completions"
	modelBulk      = "gpt-4o-mini"
	modelDeep      = "gpt-4o"
	aiTemperature  = 0.2
	aiMaxTokens    = 800
	defaultTimeout = 60 * time.Second
)

var errEmptyCompletion = errors.New("empty AI response")

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// aiVerdict is the JSON object the model is asked to return.
type aiVerdict struct {
	Score                 float64          `json:"score"`
	SpecScore             float64          `json:"specScore"`
	VariantClassification string           `json:"variantClassification"`
	Explanation           string           `json:"explanation"`
	KeySpecs              []domain.KeySpec `json:"keySpecs"`
	MissingSpecs          []string         `json:"missingSpecs"`
	Highlights            []string         `json:"highlights"`
	RedFlags              []string         `json:"redFlags"`
}

// OpenAIClassifier asks the chat completions API for a JSON verdict.
type OpenAIClassifier struct {
	APIKey   string
	Endpoint string
	Timeout  time.Duration
	Client   *http.Client
}

// NewClassifier picks the OpenAI classifier when a key is configured.
func NewClassifier(apiKey string) Classifier {
	if apiKey == "" {
		return DisabledClassifier{}
	}
	return &OpenAIClassifier{APIKey: apiKey}
}

func (c *OpenAIClassifier) Analyze(ctx context.Context, l *domain.Listing, b *domain.MarketBenchmark, deep bool) Analysis {
	is911 := IsPorsche911(l.Title)
	variant := ""
	if is911 {
		variant = DetectVariant(l.Title)
	}
	model := modelBulk
	if deep {
		model = modelDeep
	}

	content, err := c.complete(ctx, model, buildPrompt(l, b, is911, variant))
	if err != nil {
		log.Warn().Str("external_id", l.ExternalID).Str("model", model).Err(err).Msg("AI analysis failed")
		return UnavailableAnalysis(variant)
	}
	var v aiVerdict
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		log.Warn().Str("external_id", l.ExternalID).Err(err).Msg("AI response is not valid JSON")
		return UnavailableAnalysis(variant)
	}

	a := Analysis{
		Score:                 clampScore(v.Score),
		SpecScore:             clampScore(v.SpecScore),
		Explanation:           orDefault(v.Explanation, "No analysis available"),
		RedFlags:              nonNil(v.RedFlags),
		Highlights:            nonNil(v.Highlights),
		KeySpecs:              v.KeySpecs,
		MissingSpecs:          nonNil(v.MissingSpecs),
		VariantClassification: orDefault(v.VariantClassification, variant),
	}
	if a.KeySpecs == nil {
		a.KeySpecs = []domain.KeySpec{}
	}
	return a
}

func (c *OpenAIClassifier) complete(ctx context.Context, model, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:          model,
		Messages:       []chatMessage{{Role: "user", Content: prompt}},
		ResponseFormat: map[string]string{"type": "json_object"},
		Temperature:    aiTemperature,
		MaxTokens:      aiMaxTokens,
	})
	if err != nil {
		return "", err
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = openAIChatURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(raw) > 300 {
			raw = raw[:300]
		}
		return "", fmt.Errorf("openai API %d: %s", resp.StatusCode, string(raw))
	}
	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return "", errEmptyCompletion
	}
	return cr.Choices[0].Message.Content, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
