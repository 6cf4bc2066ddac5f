package transcription

import (
	"context"
	"io"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"

	"github.com/desokroshan/truckflow-ai/config"
)

// WhisperTranscriber implements Transcriber using OpenAI Whisper
type WhisperTranscriber struct {
	client  *openai.Client
	model   string
	enabled bool
}

// NewWhisperTranscriber creates a transcriber from OpenAI configuration. A
// missing API key yields a disabled transcriber so the rest of the service
// keeps running.
func NewWhisperTranscriber(cfg config.OpenAIConfig) *WhisperTranscriber {
	if cfg.APIKey == "" {
		return &WhisperTranscriber{enabled: false}
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &WhisperTranscriber{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.TranscribeModel,
		enabled: true,
	}
}

// Transcribe sends the audio stream to the transcription service and returns
// the transcript text with the reported duration
func (t *WhisperTranscriber) Transcribe(ctx context.Context, audio io.Reader, filename string) (*Result, error) {
	if !t.enabled {
		return nil, errors.New("transcription is not configured")
	}

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		Reader:   audio,
		FilePath: filename,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to transcribe audio")
	}

	return &Result{
		Text:     resp.Text,
		Duration: resp.Duration,
	}, nil
}
