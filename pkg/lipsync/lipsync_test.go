package lipsync

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnavailableReturnsEmptyArray(t *testing.T) {
	var e Extractor = Unavailable{}

	cues := e.ExtractCues(context.Background(), "output/speech.mp3")
	require.NotNil(t, cues)
	assert.Empty(t, cues)

	raw, err := json.Marshal(cues)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}
