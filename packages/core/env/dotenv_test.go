package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnv(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected map[string]string
	}{
		{
			name:     "simple key-value",
			content:  "BASE_URL=http://localhost:3000",
			expected: map[string]string{"BASE_URL": "http://localhost:3000"},
		},
		{
			name:     "multiple keys",
			content:  "KEY1=value1\nKEY2=value2",
			expected: map[string]string{"KEY1": "value1", "KEY2": "value2"},
		},
		{
			name:     "quoted values",
			content:  "A=\"with spaces\"\nB='single'",
			expected: map[string]string{"A": "with spaces", "B": "single"},
		},
		{
			name:     "export prefix",
			content:  "export TOKEN=abc",
			expected: map[string]string{"TOKEN": "abc"},
		},
		{
			name:     "comments and blank lines",
			content:  "# comment\n\nUSER=admin\n",
			expected: map[string]string{"USER": "admin"},
		},
		{
			name:     "value with equals sign",
			content:  "DSN=sqlite://runs.db?cache=shared",
			expected: map[string]string{"DSN": "sqlite://runs.db?cache=shared"},
		},
		{
			name:     "line without equals is ignored",
			content:  "garbage\nOK=1",
			expected: map[string]string{"OK": "1"},
		},
		{
			name:     "inline comment after unquoted value",
			content:  "PORT=8080 # local only",
			expected: map[string]string{"PORT": "8080"},
		},
		{
			name:     "hash inside quotes is kept",
			content:  "PASS=\"a # b\"",
			expected: map[string]string{"PASS": "a # b"},
		},
		{
			name:     "escapes in double quotes",
			content:  `MSG="line1\nline2 \"q\""`,
			expected: map[string]string{"MSG": "line1\nline2 \"q\""},
		},
		{
			name:     "single quotes are literal",
			content:  `RAW='a\nb ${HOST}'`,
			expected: map[string]string{"RAW": `a\nb ${HOST}`},
		},
		{
			name:     "expands earlier keys",
			content:  "HOST=example.com\nURL=\"https://${HOST}/${suiteVar}\"",
			expected: map[string]string{"HOST": "example.com", "URL": "https://example.com/${suiteVar}"},
		},
		{
			name:     "empty file",
			content:  "",
			expected: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envFile := filepath.Join(t.TempDir(), ".env")
			require.NoError(t, os.WriteFile(envFile, []byte(tt.content), 0644))

			result, err := LoadDotEnv(envFile)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestLoadDotEnvFileNotFound(t *testing.T) {
	_, err := LoadDotEnv("/nonexistent/path/.env")
	assert.Error(t, err)
}
