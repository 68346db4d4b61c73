package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"planbot/app/config"
	"planbot/app/util/fault"
	"planbot/app/util/ratelimit"
	"planbot/app/util/retry"

	_ "embed"

	"github.com/samber/do"
	"github.com/sashabaranov/go-openai"
)

//go:embed classify_prompt_template.txt
var classifyPromptTemplate string

const (
	ProviderKey = "openai"

	maxClassifyDuration = 30 * time.Second
	promptTokenOverhead = 300
)

type providerClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

type providerLabel struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Classifier maps raw message text to one intent from the closed set. The
// provider path asks the AI model with a constrained prompt; whenever that
// path is unavailable the rule-based fallback answers instead, so Classify
// itself never fails.
type Classifier struct {
	cfg     *config.Config
	client  providerClient
	limiter *ratelimit.Limiter
	retrier retry.Policy
	loc     *time.Location

	now func() time.Time
}

func New(di *do.Injector) (*Classifier, error) {
	cfg := do.MustInvoke[*config.Config](di)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	clientConfig := openai.DefaultConfig(cfg.OpenAI.Token)
	clientConfig.BaseURL = cfg.OpenAI.BaseURL
	clientConfig.HTTPClient = &http.Client{
		Timeout: 30 * time.Second,
	}

	return &Classifier{
		cfg:     cfg,
		client:  openai.NewClientWithConfig(clientConfig),
		limiter: do.MustInvoke[*ratelimit.Limiter](di),
		retrier: retry.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    cfg.Retry.MaxDelay,
			Retryable:   fault.Transient,
		},
		loc: loc,
		now: time.Now,
	}, nil
}

// Classify returns an intent for text. It is pure given identical inputs
// and identical provider responses; the only side effect is the outbound
// provider call.
func (c *Classifier) Classify(ctx context.Context, text string) Classification {
	if err := c.limiter.TryAcquire(ProviderKey, estimateTokens(text)); err != nil {
		slog.Warn("AI provider rate limited, using rule fallback", "error", err)
		return c.fallback(text)
	}

	label, err := retry.DoValue(ctx, c.retrier, func(ctx context.Context) (providerLabel, error) {
		return c.callProvider(ctx, text)
	})
	if err != nil {
		slog.Warn("AI classification failed, using rule fallback", "error", err)
		return c.fallback(text)
	}

	parsed, ok := Parse(strings.ToLower(strings.TrimSpace(label.Intent)))
	if !ok {
		slog.Warn("Provider returned label outside the intent set",
			"label", label.Intent)
		return Classification{Intent: GeneralChat, Confidence: 0}
	}

	confidence := label.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	// A weak provider verdict is no better than a keyword match, so the
	// rule path answers instead of acting on it.
	if confidence < c.cfg.App.ConfidenceThreshold {
		slog.Info("Provider confidence below threshold, using rule fallback",
			"intent", parsed,
			"confidence", confidence)
		return c.fallback(text)
	}

	return Classification{Intent: parsed, Confidence: confidence}
}

func (c *Classifier) callProvider(ctx context.Context, text string) (providerLabel, error) {
	intentList := make([]string, 0, len(All))
	for _, it := range All {
		intentList = append(intentList, string(it))
	}

	templateValues := map[string]any{
		"intents":  strings.Join(intentList, ", "),
		"timezone": c.cfg.App.Timezone,
		"now":      c.now().In(c.loc).Format(time.RFC3339),
		"message":  text,
	}

	prompt := classifyPromptTemplate
	for key, value := range templateValues {
		prompt = strings.ReplaceAll(prompt, "{"+key+"}", fmt.Sprint(value))
	}

	ctx, cancel := context.WithTimeout(ctx, maxClassifyDuration)
	defer cancel()

	aiResponse, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.cfg.OpenAI.Model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxCompletionTokens: 200,
			Temperature:         0,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		return providerLabel{}, fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(aiResponse.Choices) == 0 {
		return providerLabel{}, fmt.Errorf("no chat completion found")
	}

	result := aiResponse.Choices[0].Message.Content
	result = strings.Trim(result, "`")
	result = strings.TrimSpace(result)
	result = strings.TrimPrefix(result, "json")
	result = strings.TrimSpace(result)

	var label providerLabel
	if err = json.Unmarshal([]byte(result), &label); err != nil {
		return providerLabel{}, fmt.Errorf("failed to unmarshal label: %w", err)
	}

	return label, nil
}

// fallback caps confidence below the provider acceptance threshold so the
// caller can tell degraded answers apart from confident ones.
func (c *Classifier) fallback(text string) Classification {
	result := classifyByRules(text)

	ceiling := c.cfg.App.ConfidenceThreshold - 0.05
	if ceiling < 0 {
		ceiling = 0
	}
	if result.Confidence > ceiling {
		result.Confidence = ceiling
	}

	return result
}

// Answer produces a free-form chat reply for general_chat messages.
func (c *Classifier) Answer(ctx context.Context, text string) (string, error) {
	if err := c.limiter.TryAcquire(ProviderKey, estimateTokens(text)); err != nil {
		return "", err
	}

	return retry.DoValue(ctx, c.retrier, func(ctx context.Context) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, maxClassifyDuration)
		defer cancel()

		aiResponse, err := c.client.CreateChatCompletion(
			ctx,
			openai.ChatCompletionRequest{
				Model: c.cfg.OpenAI.Model,
				Messages: []openai.ChatCompletionMessage{
					{
						Role: openai.ChatMessageRoleSystem,
						Content: "You are a helpful WhatsApp assistant. " +
							"Answer concisely, under 300 characters when possible.",
					},
					{
						Role:    openai.ChatMessageRoleUser,
						Content: text,
					},
				},
				MaxCompletionTokens: 500,
				Temperature:         0.7,
			},
		)
		if err != nil {
			return "", fmt.Errorf("failed to create chat completion: %w", err)
		}

		if len(aiResponse.Choices) == 0 {
			return "", fmt.Errorf("no chat completion found")
		}

		return strings.TrimSpace(aiResponse.Choices[0].Message.Content), nil
	})
}

// Ping checks AI provider reachability for the health surface. The model
// listing endpoint is free, so it does not count against the budget.
func (c *Classifier) Ping(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	return nil
}

func estimateTokens(text string) int {
	return promptTokenOverhead + len(text)/4
}
