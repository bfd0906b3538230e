// Package gateway produces AI-generated capsule content: message drafts,
// cover images, and the welcome song. Callers go through a Generator and
// fall back to safe defaults when generation fails.
package gateway

import (
	"context"
	stderrors "errors"
	"log/slog"
)

// Generator produces AI content.
type Generator interface {
	GenerateMessage(ctx context.Context, prompt string) (string, error)
	GenerateCoverImage(ctx context.Context, message string) (string, error)
	GenerateWelcomeSong(ctx context.Context) (string, error)
}

// Wire actions.
const (
	ActionGenerateMessage = "generateMessage"
	ActionGenerateImage   = "generateImage"
	ActionGenerateSong    = "generateSong"
)

// Request is the body POSTed to the gateway.
type Request struct {
	Action  string         `json:"action"`
	Payload map[string]any `json:"payload"`
}

// Response is the gateway reply. Exactly one field is set.
type Response struct {
	Text        string `json:"text,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Base64Audio string `json:"base64Audio,omitempty"`
	Error       string `json:"error,omitempty"`
}

// MessageFallback replaces a message draft that could not be generated.
const MessageFallback = "There was an error generating the message. This may be due to a missing API key in the deployment configuration. Please try again."

// ErrUnavailable is returned by Unavailable.
var ErrUnavailable = stderrors.New("AI gateway is not configured")

// Unavailable is the Generator used when no gateway is configured.
// Every call fails, so callers take their fallback path.
type Unavailable struct{}

func (Unavailable) GenerateMessage(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

func (Unavailable) GenerateCoverImage(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

func (Unavailable) GenerateWelcomeSong(context.Context) (string, error) {
	return "", ErrUnavailable
}

// MessageOrFallback returns a generated message, or MessageFallback.
func MessageOrFallback(ctx context.Context, g Generator, prompt string, logger *slog.Logger) string {
	text, err := g.GenerateMessage(ctx, prompt)
	if err != nil || text == "" {
		loggerOrDefault(logger).Warn("message generation failed; using fallback", "error", err)
		return MessageFallback
	}
	return text
}

// CoverOrPlaceholder returns a generated cover URL, or placeholder.
func CoverOrPlaceholder(ctx context.Context, g Generator, message, placeholder string, logger *slog.Logger) string {
	url, err := g.GenerateCoverImage(ctx, message)
	if err != nil || url == "" {
		loggerOrDefault(logger).Warn("cover generation failed; using placeholder", "error", err)
		return placeholder
	}
	return url
}

// SongOrNone returns base64 audio, or "" when generation fails.
func SongOrNone(ctx context.Context, g Generator, logger *slog.Logger) string {
	audio, err := g.GenerateWelcomeSong(ctx)
	if err != nil {
		loggerOrDefault(logger).Debug("welcome song unavailable", "error", err)
		return ""
	}
	return audio
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
