package service

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"avatarbot/backend/internal/models"
	apperrors "avatarbot/backend/pkg/errors"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// SpeechCreator is the slice of the OpenAI client the speech service needs
type SpeechCreator interface {
	CreateSpeech(ctx context.Context, request openai.CreateSpeechRequest) (openai.RawResponse, error)
}

// SpeechConfig defines configuration for the speech service
type SpeechConfig struct {
	Model        string
	Voice        string // used when a caller passes no voice
	Instructions string
	OutputPath   string // every synthesis overwrites this file
}

// DefaultSpeechConfig returns default configuration
func DefaultSpeechConfig() SpeechConfig {
	return SpeechConfig{
		Model:      "gpt-4o-mini-tts",
		Voice:      "coral",
		OutputPath: filepath.Join("output", "speech.mp3"),
	}
}

// SpeechService turns reply text into an MP3 on disk
type SpeechService struct {
	backend SpeechBackend
	config  SpeechConfig
}

// NewSpeechService creates a speech service backed by the OpenAI audio API
func NewSpeechService(client SpeechCreator, config SpeechConfig) *SpeechService {
	return NewSpeechServiceWithBackend(NewOpenAISpeech(client), config)
}

// NewSpeechServiceWithBackend creates a speech service on any TTS backend
func NewSpeechServiceWithBackend(backend SpeechBackend, config SpeechConfig) *SpeechService {
	return &SpeechService{
		backend: backend,
		config:  config,
	}
}

// OutputPath returns the file each synthesis writes to
func (s *SpeechService) OutputPath() string {
	return s.config.OutputPath
}

// Synthesize speaks text with voice and returns the written file's path
func (s *SpeechService) Synthesize(ctx context.Context, text, voice string) (string, error) {
	result, err := s.SynthesizeWithInstructions(ctx, text, voice, s.config.Instructions)
	if err != nil {
		return "", err
	}
	return result.FilePath, nil
}

// SynthesizeWithInstructions is Synthesize with explicit speaking-style
// instructions. The file is only replaced once the full audio body has been read.
func (s *SpeechService) SynthesizeWithInstructions(ctx context.Context, text, voice, instructions string) (*models.SynthesisResult, error) {
	if text == "" {
		return nil, apperrors.NewInvalidInputError("text to synthesize must not be empty")
	}
	if voice == "" {
		voice = s.config.Voice
	}

	ctx, span := tracer.Start(ctx, s.backend.Name()+".speech")
	defer span.End()
	span.SetAttributes(
		attribute.String("tts.model", s.config.Model),
		attribute.String("tts.voice", voice),
		attribute.Int("avatarbot.text_len", len(text)),
	)

	body, err := s.backend.Speak(ctx, SpeechRequest{
		Model:        s.config.Model,
		Text:         text,
		Voice:        voice,
		Instructions: instructions,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "speech request failed")
		return nil, upstreamError(err, "speech synthesis failed")
	}
	defer body.Close()

	audio, err := io.ReadAll(body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "speech stream interrupted")
		return nil, apperrors.NewExternalServiceError(err, "speech stream interrupted")
	}
	span.SetAttributes(attribute.Int("avatarbot.audio_bytes", len(audio)))

	if err := s.write(audio); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "audio write failed")
		return nil, err
	}

	return &models.SynthesisResult{
		SourceText: text,
		Voice:      voice,
		FilePath:   s.config.OutputPath,
	}, nil
}

func (s *SpeechService) write(audio []byte) error {
	if dir := filepath.Dir(s.config.OutputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperrors.NewIOError(err, "failed to create output directory")
		}
	}
	// Last writer wins when connections synthesize concurrently
	if err := os.WriteFile(s.config.OutputPath, audio, 0o644); err != nil {
		return apperrors.NewIOError(err, "failed to write audio file")
	}
	return nil
}
