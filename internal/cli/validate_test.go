package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValid(t *testing.T) {
	cfg := writeFile(t, t.TempDir(), "unistore.cue", `
log: level: "warn"
engine: max_steps: 50
shell: panels: todos: true
`)

	out, _, err := execute(t, "validate", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")

	resp, err := executeJSON(t, "validate", cfg)
	require.NoError(t, err)
	var result ValidationResult
	decodeData(t, resp, &result)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidateInvalid(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"negative steps", "engine: max_steps: -1\n", "engine.max_steps"},
		{"bad view", "shell: center_view: \"calendar\"\n", "shell"},
		{"duplicate expanded", "shell: expanded: [\"a\", \"a\"]\n", "shell"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := writeFile(t, t.TempDir(), "bad.cue", tt.src)

			resp, err := executeJSON(t, "validate", cfg)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			require.NotNil(t, resp.Error)
			assert.Equal(t, ErrCodeConfig, resp.Error.Code)

			var result ValidationResult
			decodeData(t, resp, &result)
			assert.False(t, result.Valid)
			require.Len(t, result.Errors, 1)
			assert.Contains(t, result.Errors[0].Field, tt.field)
		})
	}
}

func TestValidateInvalidText(t *testing.T) {
	cfg := writeFile(t, t.TempDir(), "bad.cue", "engine: max_steps: 0\n")

	out, _, err := execute(t, "validate", cfg)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ "+cfg)
	assert.Contains(t, out, "engine.max_steps")
}

func TestValidateMissingFile(t *testing.T) {
	_, _, err := execute(t, "validate", filepath.Join(t.TempDir(), "absent.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
