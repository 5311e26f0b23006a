package service

import (
	"context"

	"avatarbot/backend/internal/models"
	apperrors "avatarbot/backend/pkg/errors"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("avatarbot/internal/service")

// ChatCompleter is the slice of the OpenAI client the reply service needs
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ReplyConfig controls the chat completion request
type ReplyConfig struct {
	Model        string
	Temperature  float32
	MaxTokens    int
	SystemPrompt string
}

// DefaultReplyConfig returns the settings the avatar ships with
func DefaultReplyConfig() ReplyConfig {
	return ReplyConfig{
		Model:        openai.GPT4oMini,
		Temperature:  0.7,
		MaxTokens:    500,
		SystemPrompt: "You are a friendly AI avatar.",
	}
}

// ReplyService generates the avatar's text answer
type ReplyService struct {
	client ChatCompleter
	config ReplyConfig
}

// NewReplyService creates a reply service on top of a chat client
func NewReplyService(client ChatCompleter, config ReplyConfig) *ReplyService {
	return &ReplyService{
		client: client,
		config: config,
	}
}

// GenerateReply answers userMessage using the configured system prompt
func (s *ReplyService) GenerateReply(ctx context.Context, userMessage string) (string, error) {
	turn, err := s.GenerateReplyWithPrompt(ctx, userMessage, s.config.SystemPrompt)
	if err != nil {
		return "", err
	}
	return turn.ReplyText, nil
}

// GenerateReplyWithPrompt sends a system + user exchange and returns the
// first choice's content unmodified
func (s *ReplyService) GenerateReplyWithPrompt(ctx context.Context, userMessage, systemPrompt string) (*models.ChatTurn, error) {
	if userMessage == "" {
		return nil, apperrors.NewInvalidInputError("message must not be empty")
	}

	ctx, span := tracer.Start(ctx, "openai.chat_completion")
	defer span.End()
	span.SetAttributes(
		attribute.String("openai.model", s.config.Model),
		attribute.Int("avatarbot.user_message_len", len(userMessage)),
	)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
		Temperature: s.config.Temperature,
		MaxTokens:   s.config.MaxTokens,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat completion failed")
		return nil, upstreamError(err, "chat completion failed")
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		span.SetStatus(codes.Error, "empty completion")
		return nil, apperrors.NewExternalServiceError(nil, "chat completion returned no content")
	}

	return &models.ChatTurn{
		UserText:     userMessage,
		SystemPrompt: systemPrompt,
		ReplyText:    resp.Choices[0].Message.Content,
	}, nil
}
