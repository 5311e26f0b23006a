package service

import (
	"context"
	"errors"
	"io"

	apperrors "avatarbot/backend/pkg/errors"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/grpc/status"
)

// SpeechRequest is what every TTS backend receives
type SpeechRequest struct {
	Model        string
	Text         string
	Voice        string
	Instructions string
}

// SpeechBackend produces MP3 audio for text. The caller closes the reader.
type SpeechBackend interface {
	Name() string
	Speak(ctx context.Context, req SpeechRequest) (io.ReadCloser, error)
}

// OpenAISpeech sends speech requests to the OpenAI audio API
type OpenAISpeech struct {
	client SpeechCreator
}

// NewOpenAISpeech wraps an OpenAI speech client
func NewOpenAISpeech(client SpeechCreator) *OpenAISpeech {
	return &OpenAISpeech{client: client}
}

// Name implements SpeechBackend
func (b *OpenAISpeech) Name() string { return "openai" }

// Speak implements SpeechBackend
func (b *OpenAISpeech) Speak(ctx context.Context, req SpeechRequest) (io.ReadCloser, error) {
	resp, err := b.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(req.Model),
		Input:          req.Text,
		Voice:          openai.SpeechVoice(req.Voice),
		Instructions:   req.Instructions,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, err
	}
	return resp.ReadCloser, nil
}

// upstreamError converts a chat or speech client error into
// EXTERNAL_SERVICE_ERROR, keeping whatever status the upstream reported
func upstreamError(err error, message string) *apperrors.AppError {
	appErr := apperrors.NewExternalServiceError(err, message)

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return appErr.WithDetails(map[string]any{
			"status": apiErr.HTTPStatusCode,
			"type":   apiErr.Type,
		})
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return appErr.WithDetails(map[string]any{
			"status": reqErr.HTTPStatusCode,
		})
	}

	if st, ok := status.FromError(err); ok {
		return appErr.WithDetails(map[string]any{
			"grpc_code": st.Code().String(),
		})
	}
	return appErr
}
