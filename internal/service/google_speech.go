package service

import (
	"bytes"
	"context"
	"io"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"
)

// GoogleSpeechConfig selects the Cloud Text-to-Speech voice
type GoogleSpeechConfig struct {
	LanguageCode    string
	CredentialsFile string // empty uses application default credentials
}

type synthesizeFunc func(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error)

// GoogleSpeech sends speech requests to Google Cloud Text-to-Speech.
// Speaking-style instructions are not supported and are dropped.
type GoogleSpeech struct {
	client     *texttospeech.Client
	synthesize synthesizeFunc
	config     GoogleSpeechConfig
}

// NewGoogleSpeech dials Cloud Text-to-Speech
func NewGoogleSpeech(ctx context.Context, config GoogleSpeechConfig) (*GoogleSpeech, error) {
	var opts []option.ClientOption
	if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}

	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &GoogleSpeech{
		client: client,
		synthesize: func(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error) {
			return client.SynthesizeSpeech(ctx, req)
		},
		config: config,
	}, nil
}

// Name implements SpeechBackend
func (g *GoogleSpeech) Name() string { return "google" }

// Speak implements SpeechBackend. The whole clip arrives in one response.
func (g *GoogleSpeech) Speak(ctx context.Context, req SpeechRequest) (io.ReadCloser, error) {
	resp, err := g.synthesize(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: req.Text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: g.config.LanguageCode,
			Name:         req.Voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	})
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(resp.GetAudioContent())), nil
}

// Close releases the underlying gRPC connection
func (g *GoogleSpeech) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
