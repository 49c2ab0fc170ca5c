package lint

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tt "github.com/gnolang/misra/internal/types"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, dir string, c Config)
		wantErr error
	}{
		{
			name: "full",
			content: `name: project
std: c90
maxPasses: 5
fixConfig: fix.json
rules:
  "16.4":
    severity: warning
  "2.7":
    severity: off
`,
			check: func(t *testing.T, dir string, c Config) {
				assert.Equal(t, "project", c.Name)
				assert.Equal(t, "c90", c.Std)
				assert.Equal(t, 5, c.MaxPasses)
				assert.Equal(t, filepath.Join(dir, "fix.json"), c.FixConfig)
				assert.Equal(t, tt.SeverityWarning, c.Rules["16.4"].Severity)
				assert.Equal(t, tt.SeverityOff, c.Rules["2.7"].Severity)
			},
		},
		{
			name:    "empty file keeps defaults",
			content: "",
			check: func(t *testing.T, _ string, c Config) {
				assert.Equal(t, DefaultConfig(), c)
			},
		},
		{
			name:    "partial file",
			content: "std: c11\n",
			check: func(t *testing.T, _ string, c Config) {
				assert.Equal(t, "c11", c.Std)
				assert.Equal(t, DefaultMaxPasses, c.MaxPasses)
				assert.NotNil(t, c.Rules)
			},
		},
		{
			name:    "unknown standard",
			content: "std: c17\n",
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "negative pass limit",
			content: "maxPasses: -1\n",
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "unknown severity",
			content: "rules:\n  \"16.4\":\n    severity: loud\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			path := filepath.Join(dir, DefaultConfigPath)
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o644))

			c, err := LoadConfig(path)
			switch {
			case tc.wantErr != nil:
				assert.ErrorIs(t, err, tc.wantErr)
			case tc.check == nil:
				assert.Error(t, err)
			default:
				require.NoError(t, err)
				tc.check(t, dir, c)
			}
		})
	}
}

func TestLoadConfigMissing(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig(filepath.Join(t.TempDir(), DefaultConfigPath))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestWriteConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultConfigPath)
	cfg := DefaultConfig()
	cfg.Rules["17.7"] = tt.ConfigRule{Severity: tt.SeverityWarning}
	require.NoError(t, WriteConfig(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "severity: warning")

	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
