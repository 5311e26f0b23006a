package models

// ChatTurn is one question/answer exchange with the chat model
type ChatTurn struct {
	UserText     string
	SystemPrompt string
	ReplyText    string
}

// SynthesisResult points at the audio file written for a reply
type SynthesisResult struct {
	SourceText string
	Voice      string
	FilePath   string
}
