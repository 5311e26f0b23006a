package ws

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"avatarbot/backend/pkg/lipsync"
	"avatarbot/backend/pkg/logger"
	"avatarbot/backend/pkg/observability"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512 * 1024 // 512KB
)

var tracer = otel.Tracer("avatarbot/internal/ws")

// ReplyGenerator produces the avatar's text answer to a question
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, userMessage string) (string, error)
}

// SpeechSynthesizer writes spoken audio for text and returns the file path
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (string, error)
}

// Config controls how turns are run and how audio is addressed
type Config struct {
	Voice          string
	FilesPrefix    string
	TurnTimeout    time.Duration // zero disables the per-turn deadline
	AllowedOrigins []string
}

// Handler upgrades HTTP requests and runs the question/answer loop
type Handler struct {
	replies  ReplyGenerator
	speech   SpeechSynthesizer
	lipsync  lipsync.Extractor
	config   Config
	hub      *Hub
	metrics  *observability.Metrics
	log      *logger.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a websocket handler
func NewHandler(
	replies ReplyGenerator,
	speech SpeechSynthesizer,
	extractor lipsync.Extractor,
	config Config,
	metrics *observability.Metrics,
	log *logger.Logger,
) *Handler {
	if extractor == nil {
		extractor = lipsync.Unavailable{}
	}
	if metrics == nil {
		metrics = observability.NoopMetrics()
	}
	h := &Handler{
		replies: replies,
		speech:  speech,
		lipsync: extractor,
		config:  config,
		hub:     NewHub(),
		metrics: metrics,
		log:     log,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin:      h.checkOrigin,
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}
	return h
}

// Hub exposes the set of open connections
func (h *Handler) Hub() *Hub {
	return h.hub
}

// ServeWs upgrades the request and serves the connection until it closes
func (h *Handler) ServeWs(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response
		h.log.Warn("Error upgrading connection", "error", err.Error(), "remote_addr", c.ClientIP())
		return
	}

	client := &Client{
		ID:      uuid.New().String(),
		Conn:    conn,
		handler: h,
		state:   StateOpen,
	}
	client.log = h.log.WithConnectionID(client.ID)

	h.hub.register(client)
	h.metrics.ConnectionOpened(c.Request.Context())
	client.log.Info("WebSocket connection established", "remote_addr", c.ClientIP())

	// The request context is cancelled once the handler returns, so the
	// connection gets its own for the lifetime of the loop.
	client.run(context.WithoutCancel(c.Request.Context()))
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.config.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	h.log.Warn("Rejected websocket origin", "origin", origin)
	return false
}

// audioURL maps a written file onto the static files mount
func (h *Handler) audioURL(path string) string {
	return strings.TrimRight(h.config.FilesPrefix, "/") + "/" + filepath.Base(path)
}
