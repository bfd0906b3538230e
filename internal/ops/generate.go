package ops

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hpungsan/timeless/internal/errors"
	"github.com/hpungsan/timeless/internal/gateway"
)

// GenerateMessageInput contains parameters for the GenerateMessage operation.
type GenerateMessageInput struct {
	Prompt string
}

// GenerateMessageOutput contains a drafted capsule message.
type GenerateMessageOutput struct {
	Text string `json:"text"`

	// Fallback is true when generation failed and Text is the fallback notice
	Fallback bool `json:"fallback"`
}

// GenerateMessage drafts a capsule message from a short prompt.
// Generation failures yield the fallback notice, never an error.
func GenerateMessage(ctx context.Context, gen gateway.Generator, logger *slog.Logger, input GenerateMessageInput) (*GenerateMessageOutput, error) {
	prompt := strings.TrimSpace(input.Prompt)
	if prompt == "" {
		return nil, errors.NewInvalidRequest("prompt is required")
	}
	if gen == nil {
		gen = gateway.Unavailable{}
	}

	text := gateway.MessageOrFallback(ctx, gen, prompt, logger)
	return &GenerateMessageOutput{
		Text:     text,
		Fallback: text == gateway.MessageFallback,
	}, nil
}

// WelcomeSongOutput carries the intro audio, if any.
type WelcomeSongOutput struct {
	Base64Audio string `json:"base64Audio,omitempty"`
	Available   bool   `json:"available"`

	// SampleRate describes the raw 16-bit mono PCM in Base64Audio
	SampleRate int `json:"sampleRate,omitempty"`
}

// WelcomeSampleRate is the sample rate of generated welcome audio.
const WelcomeSampleRate = 24000

// WelcomeSong fetches the intro song. The intro works without it.
func WelcomeSong(ctx context.Context, gen gateway.Generator, logger *slog.Logger) *WelcomeSongOutput {
	if gen == nil {
		return &WelcomeSongOutput{}
	}
	audio := gateway.SongOrNone(ctx, gen, logger)
	if audio == "" {
		return &WelcomeSongOutput{}
	}
	return &WelcomeSongOutput{Base64Audio: audio, Available: true, SampleRate: WelcomeSampleRate}
}
