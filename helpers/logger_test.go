package helpers

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "notes", "error.log")

	logger := NewLogger(tmpFile)

	logger.LogError("coupon #3", errors.New("reveal panel never opened"))
	logger.LogError("coupon #5", errors.New("card text empty"))

	data, err := os.ReadFile(tmpFile)
	assert.NoError(t, err)
	assert.Contains(t, string(data), "[coupon #3] reveal panel never opened")
	assert.Contains(t, string(data), "[coupon #5] card text empty")

	// Info messages go to the structured log, not the file
	logger.LogInfo("Test info message: %s", "hello")
	data, err = os.ReadFile(tmpFile)
	assert.NoError(t, err)
	assert.NotContains(t, string(data), "hello")
}
