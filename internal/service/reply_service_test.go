package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	apperrors "avatarbot/backend/pkg/errors"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	resp     openai.ChatCompletionResponse
	err      error
	requests []openai.ChatCompletionRequest
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.requests = append(f.requests, req)
	return f.resp, f.err
}

func completion(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
	}
}

func TestGenerateReplyReturnsFirstChoiceVerbatim(t *testing.T) {
	chat := &fakeChat{resp: completion("  Hi there!\n")}
	svc := NewReplyService(chat, DefaultReplyConfig())

	reply, err := svc.GenerateReply(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, "  Hi there!\n", reply)

	require.Len(t, chat.requests, 1)
	req := chat.requests[0]
	assert.Equal(t, openai.GPT4oMini, req.Model)
	assert.Equal(t, float32(0.7), req.Temperature)
	assert.Equal(t, 500, req.MaxTokens)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, "You are a friendly AI avatar.", req.Messages[0].Content)
	assert.Equal(t, openai.ChatMessageRoleUser, req.Messages[1].Role)
	assert.Equal(t, "Hello", req.Messages[1].Content)
}

func TestGenerateReplyWithPrompt(t *testing.T) {
	chat := &fakeChat{resp: completion("Arr")}
	svc := NewReplyService(chat, DefaultReplyConfig())

	turn, err := svc.GenerateReplyWithPrompt(context.Background(), "Hello", "Talk like a pirate.")
	require.NoError(t, err)
	assert.Equal(t, "Hello", turn.UserText)
	assert.Equal(t, "Talk like a pirate.", turn.SystemPrompt)
	assert.Equal(t, "Arr", turn.ReplyText)
	assert.Equal(t, "Talk like a pirate.", chat.requests[0].Messages[0].Content)
}

func TestGenerateReplyRejectsEmptyInput(t *testing.T) {
	chat := &fakeChat{resp: completion("unused")}
	svc := NewReplyService(chat, DefaultReplyConfig())

	_, err := svc.GenerateReply(context.Background(), "")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidInput))
	assert.Empty(t, chat.requests)
}

func TestGenerateReplyForwardsWhitespaceVerbatim(t *testing.T) {
	for _, msg := range []string{"   ", "\n", " Hello \t"} {
		chat := &fakeChat{resp: completion("Hmm?")}
		svc := NewReplyService(chat, DefaultReplyConfig())

		reply, err := svc.GenerateReply(context.Background(), msg)
		require.NoError(t, err, "message %q", msg)
		assert.Equal(t, "Hmm?", reply)
		require.Len(t, chat.requests, 1)
		assert.Equal(t, msg, chat.requests[0].Messages[1].Content)
	}
}

func TestGenerateReplyUpstreamFailures(t *testing.T) {
	tests := []struct {
		name string
		chat *fakeChat
	}{
		{"api error", &fakeChat{err: &openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "bad key"}}},
		{"transport error", &fakeChat{err: errors.New("connection refused")}},
		{"no choices", &fakeChat{resp: openai.ChatCompletionResponse{}}},
		{"empty content", &fakeChat{resp: completion("")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewReplyService(tt.chat, DefaultReplyConfig())

			_, err := svc.GenerateReply(context.Background(), "Hello")
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.CodeExternalService))
			assert.Equal(t, http.StatusBadGateway, apperrors.GetStatusCode(err))
		})
	}
}

func TestUpstreamErrorKeepsAPIStatus(t *testing.T) {
	cause := &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Type: "rate_limit_exceeded", Message: "slow down"}

	appErr := upstreamError(cause, "chat completion failed")
	assert.ErrorIs(t, appErr, cause)
	assert.Equal(t, map[string]any{"status": http.StatusTooManyRequests, "type": "rate_limit_exceeded"}, appErr.Details)
}
