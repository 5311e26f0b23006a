package di

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"avatarbot/backend/internal/service"
	"avatarbot/backend/internal/ws"
	"avatarbot/backend/pkg/config"
	"avatarbot/backend/pkg/health"
	"avatarbot/backend/pkg/lipsync"
	"avatarbot/backend/pkg/logger"
	"avatarbot/backend/pkg/observability"
	"avatarbot/backend/pkg/secrets"

	"github.com/sashabaranov/go-openai"
)

// ServiceName identifies the process in traces and metrics
const ServiceName = "avatarbot"

const healthCheckPeriod = 30 * time.Second

// Container holds all the dependencies for the application
type Container struct {
	Config        *config.Config
	Logger        *logger.Logger
	Secrets       secrets.Manager
	ReplyService  *service.ReplyService
	SpeechService *service.SpeechService
	LipSync       lipsync.Extractor
	Observability *observability.Provider
	Health        *health.Checker
	WSHandler     *ws.Handler

	closer io.Closer
}

// Options replaces parts of the dependency graph, mostly for tests.
// Nil fields get the real implementation.
type Options struct {
	ChatClient    service.ChatCompleter
	SpeechClient  service.SpeechCreator
	SpeechBackend service.SpeechBackend // overrides TTS provider selection
	TraceWriter   io.Writer
}

// New creates a new dependency injection container
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts Options) (*Container, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logger.GetGlobal()
	}

	secretManager, err := secrets.NewManager(cfg.Vault, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager: %w", err)
	}

	apiKey := resolveAPIKey(ctx, cfg, secretManager, log)
	if apiKey == "" {
		log.Warn("OPENAI_API_KEY is not set, every chat and speech request will fail")
	}

	if opts.ChatClient == nil || opts.SpeechClient == nil {
		clientConfig := openai.DefaultConfig(apiKey)
		if cfg.OpenAI.BaseURL != "" {
			clientConfig.BaseURL = cfg.OpenAI.BaseURL
		}
		client := openai.NewClientWithConfig(clientConfig)
		if opts.ChatClient == nil {
			opts.ChatClient = client
		}
		if opts.SpeechClient == nil {
			opts.SpeechClient = client
		}
	}

	obs, err := observability.Setup(cfg.Observability, ServiceName, observability.Options{TraceWriter: opts.TraceWriter})
	if err != nil {
		return nil, fmt.Errorf("failed to set up observability: %w", err)
	}

	replyService := service.NewReplyService(opts.ChatClient, service.ReplyConfig{
		Model:        cfg.OpenAI.ChatModel,
		Temperature:  cfg.OpenAI.Temperature,
		MaxTokens:    cfg.OpenAI.MaxTokens,
		SystemPrompt: cfg.OpenAI.SystemPrompt,
	})

	backend, voice, closer, err := speechBackend(ctx, cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s speech backend: %w", cfg.TTS.Provider, err)
	}
	log.Info("Speech backend ready", "provider", backend.Name(), "voice", voice)

	speechService := service.NewSpeechServiceWithBackend(backend, service.SpeechConfig{
		Model:        cfg.OpenAI.TTSModel,
		Voice:        voice,
		Instructions: cfg.OpenAI.Instructions,
		OutputPath:   cfg.OutputPath(),
	})
	extractor := lipsync.Unavailable{}

	checker := health.NewChecker(log, healthCheckPeriod)
	checker.RegisterOutputDirCheck(cfg.Output.Dir)
	checker.RegisterCredentialCheck(apiKey != "")

	handler := ws.NewHandler(replyService, speechService, extractor, ws.Config{
		Voice:          voice,
		FilesPrefix:    cfg.Output.URLPrefix,
		TurnTimeout:    cfg.Server.TurnTimeout,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, obs.Metrics, log)

	return &Container{
		Config:        cfg,
		Logger:        log,
		Secrets:       secretManager,
		ReplyService:  replyService,
		SpeechService: speechService,
		LipSync:       extractor,
		Observability: obs,
		Health:        checker,
		WSHandler:     handler,
		closer:        closer,
	}, nil
}

// Shutdown closes open websocket connections and flushes telemetry
func (c *Container) Shutdown(ctx context.Context) error {
	c.WSHandler.Hub().CloseAll("server shutting down")

	var errs []error
	if c.closer != nil {
		errs = append(errs, c.closer.Close())
	}
	errs = append(errs, c.Observability.Shutdown(ctx))
	return errors.Join(errs...)
}

// speechBackend picks the TTS backend and the voice turns are spoken with
func speechBackend(ctx context.Context, cfg *config.Config, opts Options) (service.SpeechBackend, string, io.Closer, error) {
	if opts.SpeechBackend != nil {
		return opts.SpeechBackend, cfg.OpenAI.Voice, nil, nil
	}

	if cfg.TTS.Provider == config.TTSProviderGoogle {
		google, err := service.NewGoogleSpeech(ctx, service.GoogleSpeechConfig{
			LanguageCode:    cfg.TTS.GoogleLanguage,
			CredentialsFile: cfg.TTS.GoogleCredsFile,
		})
		if err != nil {
			return nil, "", nil, err
		}
		return google, cfg.TTS.GoogleVoice, google, nil
	}

	return service.NewOpenAISpeech(opts.SpeechClient), cfg.OpenAI.Voice, nil, nil
}

// resolveAPIKey prefers the secret manager and falls back to the loaded config
func resolveAPIKey(ctx context.Context, cfg *config.Config, m secrets.Manager, log *logger.Logger) string {
	key, err := m.GetSecret(ctx, secrets.OpenAIAPIKey)
	switch {
	case err == nil:
		return key
	case errors.Is(err, secrets.ErrSecretNotFound):
		return cfg.OpenAI.APIKey
	default:
		log.LogError(err, "Failed to resolve OpenAI API key, using configured value")
		return cfg.OpenAI.APIKey
	}
}
