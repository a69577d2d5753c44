package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"csatguardian/config"
	"csatguardian/logger"
)

const classifierPrompt = `You are a customer-support sentiment classifier.
Classify the sentiment of the following customer communication.

Return ONLY a JSON object with keys:
label (one of positive, neutral, negative, frustrated_escalated),
score (number between -1.0 and 1.0, where -1.0 is maximally negative).

Communication:
"""%s"""`

// OpenAIClassifier classifies text via the OpenAI chat completions API.
// Transient failures are retried with exponential backoff bounded by the
// caller's context deadline.
type OpenAIClassifier struct {
	client *openai.Client
	model  string
	log    *logrus.Entry
}

// NewOpenAIClassifier creates a classifier from config
func NewOpenAIClassifier(cfg config.ClassifierConfig, log *logger.Logger) *OpenAIClassifier {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIClassifier{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		log:    log.WithComponent("classifier"),
	}
}

// ModelVersion identifies the classifying model for persisted results
func (c *OpenAIClassifier) ModelVersion() string {
	return "openai/" + c.model
}

type classifierResponse struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classify maps one text entry to a (label, score) pair
func (c *OpenAIClassifier) Classify(ctx context.Context, text string) (Result, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(classifierPrompt, text),
			},
		},
		MaxTokens:   60,
		Temperature: 0,
	}

	var parsed classifierResponse
	operation := func() error {
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			c.log.WithError(err).Warn("classification attempt failed")
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty completion response")
		}
		content := extractJSON(resp.Choices[0].Message.Content)
		if err := json.Unmarshal([]byte(content), &parsed); err != nil {
			return fmt.Errorf("malformed classifier response: %w", err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = 0 // bounded by ctx, not wall clock

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return Result{}, &ClassificationError{Err: err}
	}

	return Result{
		Label: NormalizeLabel(parsed.Label),
		Score: ClampScore(parsed.Score),
	}, nil
}

// extractJSON trims markdown fences some models wrap around JSON output
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if start := strings.Index(s, "{"); start >= 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			return s[start : end+1]
		}
	}
	return s
}
