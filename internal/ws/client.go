package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"avatarbot/backend/internal/models"
	apperrors "avatarbot/backend/pkg/errors"
	"avatarbot/backend/pkg/logger"
	"avatarbot/backend/pkg/observability"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// State is the lifecycle position of one connection
type State int

const (
	StateOpen State = iota
	StateProcessing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateProcessing:
		return "processing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Client is one websocket connection. Its turns run strictly one after
// another on the goroutine that called run.
type Client struct {
	ID      string
	Conn    *websocket.Conn
	handler *Handler
	log     *logger.Logger

	stateMu sync.Mutex
	state   State
}

// State returns the connection's current state
func (c *Client) State() State {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
}

func (c *Client) run(ctx context.Context) {
	done := make(chan struct{})
	defer func() {
		close(done)
		c.setState(StateClosed)
		c.handler.hub.unregister(c)
		c.handler.metrics.ConnectionClosed(ctx)
		c.Conn.Close()
		c.log.Info("WebSocket connection closed")
	}()
	defer func() {
		if r := recover(); r != nil {
			c.fail(ctx, apperrors.FromPanic(r))
		}
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go c.keepAlive(done)

	for {
		messageType, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				c.log.Warn("WebSocket read failed", "error", err.Error())
			}
			return
		}

		if messageType != websocket.TextMessage {
			c.fail(ctx, apperrors.NewProtocolError("only text frames are accepted"))
			return
		}

		if err := c.turn(ctx, string(data)); err != nil {
			c.fail(ctx, err)
			return
		}

		// Pongs were not read while the turn ran
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

// turn answers one question: chat reply, then speech, then the response frame
func (c *Client) turn(ctx context.Context, question string) (err error) {
	c.setState(StateProcessing)
	start := time.Now()

	if timeout := c.handler.config.TurnTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ctx, span := tracer.Start(ctx, "avatarbot.turn")
	span.SetAttributes(attribute.String("avatarbot.conn_id", c.ID))
	defer func() {
		outcome := observability.OutcomeSuccess
		if err != nil {
			outcome = observability.OutcomeError
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		c.handler.metrics.RecordTurn(ctx, outcome, time.Since(start))
		span.End()
	}()

	c.log.Debug("Turn started", "question_len", len(question))

	reply, err := c.handler.replies.GenerateReply(ctx, question)
	if err != nil {
		c.countUpstream(ctx, err, observability.StageChat)
		return err
	}

	path, err := c.handler.speech.Synthesize(ctx, reply, c.handler.config.Voice)
	if err != nil {
		c.countUpstream(ctx, err, observability.StageSpeech)
		return err
	}

	cues := c.handler.lipsync.ExtractCues(ctx, path)
	payload := models.NewResponsePayload(reply, c.handler.audioURL(path), cues)
	if err := c.writeJSON(payload); err != nil {
		return apperrors.NewIOError(err, "failed to send response")
	}

	c.setState(StateOpen)
	c.log.Info("Turn completed",
		"audio_url", payload.AudioURL,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// fail reports err to the peer best-effort and closes the connection normally
func (c *Client) fail(ctx context.Context, err error) {
	appErr := apperrors.FromError(err)
	c.log.LogError(err, "Turn failed", "code", appErr.Code, "state", c.State().String())

	if werr := c.writeJSON(models.ErrorPayload{Error: appErr.Error()}); werr != nil {
		c.log.Debug("Could not deliver error payload", "error", werr.Error())
	}
	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.Conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait))
	c.setState(StateClosed)
}

func (c *Client) countUpstream(ctx context.Context, err error, stage string) {
	if apperrors.Is(err, apperrors.CodeExternalService) || errors.Is(err, context.DeadlineExceeded) {
		c.handler.metrics.UpstreamError(ctx, stage)
	}
}

func (c *Client) writeJSON(v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) keepAlive(done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
