package openai

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cinematch/internal/domain"
	"github.com/kailas-cloud/cinematch/internal/domain/sentiment"
)

// DefaultBatchSize is the number of reviews sent in one chat completion.
const DefaultBatchSize = 32

const classifierPrompt = `You are a movie review sentiment classifier.
For each numbered review, answer with exactly one word: Positive, Neutral or Negative.
Reply with one line per review, in the same order, formatted as "<number>. <label>".
Do not add any other text.`

// Classifier labels review sentiment through an OpenAI-compatible chat model.
type Classifier struct {
	client    *openai.Client
	model     string
	batchSize int
	user      string
	provider  string
	logger    *zap.Logger
}

// NewClassifier creates a chat-completion sentiment classifier.
func NewClassifier(cfg *Config) *Classifier {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	return &Classifier{
		client:    newClient(cfg),
		model:     cfg.Model,
		batchSize: batch,
		user:      cfg.User,
		provider:  cfg.Provider,
		logger:    cfg.Logger,
	}
}

// Classify returns one label per text, in input order. Texts are sent in
// batches of at most batchSize.
func (c *Classifier) Classify(ctx context.Context, texts []string) ([]sentiment.Label, error) {
	labels := make([]sentiment.Label, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		batch, err := c.classifyBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch [%d:%d]: %w", start, end, err)
		}
		labels = append(labels, batch...)
	}
	return labels, nil
}

func (c *Classifier) classifyBatch(ctx context.Context, texts []string) ([]sentiment.Label, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifierPrompt},
			{Role: openai.ChatMessageRoleUser, Content: numbered(texts)},
		},
		Temperature: 0,
		User:        c.user,
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		recordFailure(c.provider, c.model, "api_error")
		return nil, parseAPIError(err, "classifier", domain.ErrClassifierProviderError)
	}
	if len(resp.Choices) == 0 {
		recordFailure(c.provider, c.model, "empty_response")
		return nil, fmt.Errorf("empty classifier response: %w", domain.ErrClassifierProviderError)
	}

	labels, err := parseLabels(resp.Choices[0].Message.Content, len(texts))
	if err != nil {
		recordFailure(c.provider, c.model, "bad_response")
		return nil, fmt.Errorf("%w: %w", err, domain.ErrClassifierProviderError)
	}

	recordSuccess(c.provider, c.model, duration, resp.Usage.PromptTokens, resp.Usage.TotalTokens)
	c.logger.Debug("Reviews classified",
		zap.String("model", c.model),
		zap.Int("reviews", len(texts)),
		zap.Duration("duration", duration),
	)
	return labels, nil
}

// numbered renders texts as "1. text" lines. Newlines inside a review are
// flattened so every review stays on its own line.
func numbered(texts []string) string {
	var b strings.Builder
	for i, t := range texts {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(strings.Join(strings.Fields(t), " "))
		b.WriteByte('\n')
	}
	return b.String()
}

// parseLabels reads one label per non-empty line, tolerating "1." / "1)" /
// "-" prefixes, and requires exactly want labels.
func parseLabels(content string, want int) ([]sentiment.Label, error) {
	labels := make([]sentiment.Label, 0, want)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimLeft(line, "0123456789")
		line = strings.TrimLeft(line, ".)-: ")
		line = strings.TrimRight(line, ".")
		l, err := sentiment.ParseLabel(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", len(labels)+1, err)
		}
		labels = append(labels, l)
	}
	if len(labels) != want {
		return nil, fmt.Errorf("got %d labels for %d reviews", len(labels), want)
	}
	return labels, nil
}
