package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocess(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		envVars  map[string]string
		expected string
		wantErr  string
	}{
		{
			name:     "simple substitution",
			input:    "date: {{ .ENV.SESSION_DATE }}",
			envVars:  map[string]string{"SESSION_DATE": "2024-01-01"},
			expected: "date: 2024-01-01",
		},
		{
			name:     "multiple variables",
			input:    "start_time: {{ .ENV.START }}\nend_time: {{ .ENV.END }}",
			envVars:  map[string]string{"START": "09:00", "END": "10:00"},
			expected: "start_time: 09:00\nend_time: 10:00",
		},
		{
			name:     "value containing equals sign",
			input:    "location: {{ .ENV.ROOM }}",
			envVars:  map[string]string{"ROOM": "hall=B"},
			expected: "location: hall=B",
		},
		{
			name:     "empty value",
			input:    "location: {{ .ENV.EMPTY_ROOM }}",
			envVars:  map[string]string{"EMPTY_ROOM": ""},
			expected: "location: ",
		},
		{
			name:     "no placeholders",
			input:    "id: 1\ndate: 2024-01-01",
			expected: "id: 1\ndate: 2024-01-01",
		},
		{
			name:    "missing variable",
			input:   "date: {{ .ENV.PRESENT_TEST_UNSET }}",
			wantErr: "missing environment variable: PRESENT_TEST_UNSET",
		},
		{
			name:    "invalid template",
			input:   "date: {{ .ENV.SESSION_DATE }",
			wantErr: "unexpected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			got, err := Preprocess([]byte(tt.input), t.TempDir())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestPreprocessWithEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("PRESENT_TEST_ROOM=LT1\nPRESENT_TEST_CODE=csc101\n"), 0600))
	t.Setenv("PRESENT_TEST_CODE", "MTH201")
	t.Cleanup(func() { os.Unsetenv("PRESENT_TEST_ROOM") })

	got, err := Preprocess([]byte("location: {{ .ENV.PRESENT_TEST_ROOM }}\ncourse_code: {{ .ENV.PRESENT_TEST_CODE }}"), dir)
	require.NoError(t, err)
	// the shell environment wins over .env
	assert.Equal(t, "location: LT1\ncourse_code: MTH201", string(got))
}
