package models

import "avatarbot/backend/pkg/lipsync"

// ResponsePayload is the frame sent back for every successful turn
type ResponsePayload struct {
	Text     string        `json:"text"`
	AudioURL string        `json:"audioUrl"`
	Visemes  []lipsync.Cue `json:"visemes"`
}

// NewResponsePayload builds a payload whose viseme list always encodes as an array
func NewResponsePayload(text, audioURL string, visemes []lipsync.Cue) ResponsePayload {
	if visemes == nil {
		visemes = []lipsync.Cue{}
	}
	return ResponsePayload{Text: text, AudioURL: audioURL, Visemes: visemes}
}

// ErrorPayload replaces ResponsePayload when a turn fails. The server closes
// the connection right after sending it.
type ErrorPayload struct {
	Error string `json:"error"`
}
