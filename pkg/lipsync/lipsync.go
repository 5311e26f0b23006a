// Package lipsync models mouth-shape cue extraction for avatar animation.
//
// Callers always receive a cue slice (possibly empty) and never have to
// branch on an error: an extractor that cannot do the work returns nothing.
package lipsync

import "context"

// Cue is one timestamped mouth shape. Times are seconds from the start of the audio.
type Cue struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Value string  `json:"value"`
}

// Extractor derives cues from a synthesized audio file
type Extractor interface {
	ExtractCues(ctx context.Context, audioPath string) []Cue
}

// Unavailable is the extractor used when no lip-sync backend is installed
type Unavailable struct{}

// ExtractCues always returns an empty, non-nil slice
func (Unavailable) ExtractCues(context.Context, string) []Cue {
	return []Cue{}
}
