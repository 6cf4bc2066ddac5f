// Package extraction wraps the language-model call that maps transcript text
// to the fixed load request field set.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"

	"github.com/desokroshan/truckflow-ai/config"
	"github.com/desokroshan/truckflow-ai/internal/models"
)

// Extractor converts free transcript text into the fixed load field set and
// produces owner-facing summaries.
type Extractor interface {
	ExtractLoad(ctx context.Context, transcript string) (*models.ExtractedLoad, error)
	SummarizeLoad(ctx context.Context, load *models.ExtractedLoad) (string, error)
}

// OpenAIExtractor implements Extractor against the chat completions API
type OpenAIExtractor struct {
	client  *openai.Client
	model   string
	enabled bool
}

// NewOpenAIExtractor creates an extractor from OpenAI configuration. A
// missing API key yields a disabled extractor.
func NewOpenAIExtractor(cfg config.OpenAIConfig) *OpenAIExtractor {
	if cfg.APIKey == "" {
		return &OpenAIExtractor{enabled: false}
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIExtractor{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.ChatModel,
		enabled: true,
	}
}

// ExtractLoad asks the model for the structured field set and validates that
// every required field came back non-empty. Field content is not validated;
// downstream consumers treat the values as opaque text.
func (e *OpenAIExtractor) ExtractLoad(ctx context.Context, transcript string) (*models.ExtractedLoad, error) {
	if !e.enabled {
		return nil, errors.New("extraction is not configured")
	}
	if strings.TrimSpace(transcript) == "" {
		return nil, errors.New("failed to extract load information: empty transcript")
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: extractionSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Extract load information from this call transcription: %q", transcript),
			},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to extract load information")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("failed to extract load information: empty response")
	}

	var load models.ExtractedLoad
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &load); err != nil {
		return nil, errors.Wrap(err, "failed to parse extraction response")
	}

	if err := validateRequiredFields(&load); err != nil {
		return nil, err
	}

	return &load, nil
}

// SummarizeLoad produces the prose summary included in the owner email
func (e *OpenAIExtractor) SummarizeLoad(ctx context.Context, load *models.ExtractedLoad) (string, error) {
	if !e.enabled {
		return "", errors.New("extraction is not configured")
	}

	payload, err := json.Marshal(load)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal load for summary")
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: summarySystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Create a summary for this load request: %s", payload),
			},
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to generate load summary")
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("failed to generate load summary: empty response")
	}

	return resp.Choices[0].Message.Content, nil
}

// validateRequiredFields rejects responses with any missing required field
// instead of returning a partially populated record
func validateRequiredFields(load *models.ExtractedLoad) error {
	required := []struct {
		name  string
		value string
	}{
		{"customerName", load.CustomerName},
		{"pickupLocation", load.PickupLocation},
		{"deliveryLocation", load.DeliveryLocation},
		{"cargoType", load.CargoType},
		{"weight", load.Weight},
		{"truckType", load.TruckType},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return errors.Errorf("missing required field: %s", field.name)
		}
	}
	return nil
}
