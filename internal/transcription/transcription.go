// Package transcription wraps the speech-to-text service call.
package transcription

import (
	"context"
	"io"
)

// Result is one transcription outcome. Duration is reported by the service
// and may be zero.
type Result struct {
	Text     string
	Duration float64
}

// Transcriber converts an audio byte stream to text. A single request, no
// retries, no partial results.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (*Result, error)
}
