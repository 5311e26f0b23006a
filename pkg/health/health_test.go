package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"avatarbot/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type healthResponse struct {
	Status     string                `json:"status"`
	Components map[string]*Component `json:"components"`
}

func serve(t *testing.T, c *Checker) (int, healthResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	c.HTTPHandler()(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp healthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestCheckerHealthy(t *testing.T) {
	c := NewChecker(logger.Discard(), time.Minute)
	c.RegisterOutputDirCheck(t.TempDir())
	c.RegisterCredentialCheck(true)
	c.RunChecks()

	code, resp := serve(t, c)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Components, 3)
	for name, comp := range resp.Components {
		assert.Equal(t, StatusUp, comp.Status, name)
	}
}

func TestMissingCredentialsOnlyDegrades(t *testing.T) {
	c := NewChecker(logger.Discard(), time.Minute)
	c.RegisterOutputDirCheck(t.TempDir())
	c.RegisterCredentialCheck(false)
	c.RunChecks()

	code, resp := serve(t, c)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusDegraded, resp.Components[ComponentCredentials].Status)
}

func TestMissingOutputDirIsCritical(t *testing.T) {
	c := NewChecker(logger.Discard(), time.Minute)
	c.RegisterOutputDirCheck(filepath.Join(t.TempDir(), "missing"))
	c.RegisterCredentialCheck(true)
	c.RunChecks()

	assert.False(t, c.IsSystemHealthy())
	code, resp := serve(t, c)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unavailable", resp.Status)
	assert.NotEmpty(t, resp.Components[ComponentOutputDir].Error)
}

func TestOutputDirCheckRejectsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "speech.mp3")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	c := NewChecker(logger.Discard(), time.Minute)
	c.RegisterOutputDirCheck(file)
	c.RunChecks()

	assert.Equal(t, StatusDown, c.GetStatus()[ComponentOutputDir].Status)
}

func TestOutputDirCheckLeavesDirectoryUntouched(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "speech.mp3"), []byte("mp3"), 0o644))

	c := NewChecker(logger.Discard(), time.Minute)
	c.RegisterOutputDirCheck(dir)
	for range 3 {
		c.RunChecks()
	}

	assert.Equal(t, StatusUp, c.GetStatus()[ComponentOutputDir].Status)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "speech.mp3", entries[0].Name())
}

func TestGetStatusReturnsCopies(t *testing.T) {
	c := NewChecker(logger.Discard(), time.Minute)
	c.RunChecks()

	status := c.GetStatus()
	status[ComponentSelf].Status = StatusDown
	assert.Equal(t, StatusUp, c.GetStatus()[ComponentSelf].Status)
}
