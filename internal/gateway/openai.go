package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hpungsan/timeless/internal/capsule"
)

const (
	messageSystemPrompt = "You write heartfelt, personal messages for time capsules that will be opened in the future. " +
		"Write in the first person, warmly and sincerely, in at most three short paragraphs. Reply with the message only."

	coverPromptPrefix = "A beautiful, artistic, evocative cover illustration for a time capsule letter. " +
		"No text or lettering. The letter's theme: "

	welcomeLyrics = "Welcome to Timeless. Seal your words today, and let them find their way, " +
		"to a future you, on a brighter day."

	// coverThemeChars bounds how much of the message is sent as image theme.
	coverThemeChars = 600
)

// OpenAIOptions configures an OpenAIBackend.
type OpenAIOptions struct {
	APIKey      string
	BaseURL     string
	TextModel   string
	ImageModel  string
	SpeechModel string
	Voice       string
	Timeout     time.Duration

	// HTTPClient overrides the transport; tests point it at a fake server.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// OpenAIBackend generates content with the OpenAI API.
type OpenAIBackend struct {
	client openai.Client
	opts   OpenAIOptions
	logger *slog.Logger
}

// NewOpenAIBackend creates a backend. An API key is required.
func NewOpenAIBackend(opts OpenAIOptions) (*OpenAIBackend, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (set [openai] api_key or OPENAI_API_KEY)")
	}
	if opts.TextModel == "" {
		opts.TextModel = "gpt-4o-mini"
	}
	if opts.ImageModel == "" {
		opts.ImageModel = "dall-e-3"
	}
	if opts.SpeechModel == "" {
		opts.SpeechModel = "tts-1"
	}
	if opts.Voice == "" {
		opts.Voice = "alloy"
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	if opts.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.Timeout))
	}

	return &OpenAIBackend{
		client: openai.NewClient(reqOpts...),
		opts:   opts,
		logger: loggerOrDefault(opts.Logger),
	}, nil
}

// GenerateMessage implements Generator.
func (b *OpenAIBackend) GenerateMessage(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("prompt is empty")
	}

	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(b.opts.TextModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(messageSystemPrompt),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("chat completion returned empty content")
	}
	return text, nil
}

// GenerateCoverImage implements Generator. The image is returned inline
// as a data: URL so it survives the provider's URL expiry.
func (b *OpenAIBackend) GenerateCoverImage(ctx context.Context, message string) (string, error) {
	theme := capsule.Excerpt(strings.TrimSpace(message), coverThemeChars)
	if theme == "" {
		return "", fmt.Errorf("message is empty")
	}

	resp, err := b.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         coverPromptPrefix + theme,
		Model:          openai.ImageModel(b.opts.ImageModel),
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize1024x1024,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
	})
	if err != nil {
		return "", fmt.Errorf("image generation: %w", err)
	}
	if len(resp.Data) == 0 {
		return "", fmt.Errorf("image generation returned no images")
	}

	img := resp.Data[0]
	switch {
	case img.B64JSON != "":
		return "data:image/png;base64," + img.B64JSON, nil
	case img.URL != "":
		return img.URL, nil
	}
	return "", fmt.Errorf("image generation returned an empty image")
}

// GenerateWelcomeSong implements Generator. The audio is 24kHz 16-bit
// mono PCM, base64 encoded.
func (b *OpenAIBackend) GenerateWelcomeSong(ctx context.Context) (string, error) {
	resp, err := b.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(b.opts.SpeechModel),
		Input:          welcomeLyrics,
		Voice:          openai.AudioSpeechNewParamsVoice(b.opts.Voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatPCM,
	})
	if err != nil {
		return "", fmt.Errorf("speech: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("speech: read audio: %w", err)
	}
	b.logger.Debug("welcome song generated", "bytes", len(audio))
	return base64.StdEncoding.EncodeToString(audio), nil
}
