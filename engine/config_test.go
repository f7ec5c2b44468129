package engine

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufo-org/ufo-r-operators/errors"
)

func TestConfig_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   Config
		want Config
	}{
		{
			name: "ordered",
			in:   Config{WritebackPath: "/wb", LowWatermark: 1, HighWatermark: 2},
			want: Config{WritebackPath: "/wb", LowWatermark: 1, HighWatermark: 2, DefaultLoadBytes: DefaultLoadBytes},
		},
		{
			name: "reversed watermarks are swapped",
			in:   Config{WritebackPath: "/wb", LowWatermark: 20, HighWatermark: 10},
			want: Config{WritebackPath: "/wb", LowWatermark: 10, HighWatermark: 20, DefaultLoadBytes: DefaultLoadBytes},
		},
		{
			name: "empty path uses temp dir",
			in:   Config{LowWatermark: 1, HighWatermark: 2, DefaultLoadBytes: 4096},
			want: Config{WritebackPath: os.TempDir(), LowWatermark: 1, HighWatermark: 2, DefaultLoadBytes: 4096},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.in.Normalize())
		})
	}
}

func TestConfig_ValidateEqualWatermarks(t *testing.T) {
	err := Config{LowWatermark: 5, HighWatermark: 5}.Normalize().Validate()
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrInvalidConfig))
	assert.Equal(t, errors.KindInvalidConfig, errors.KindOf(err))
}

func TestParseConfig_JSONC(t *testing.T) {
	data := []byte(`{
		// where writeback files go
		"writeback_path": "/var/tmp/ufo",
		"low_watermark": 300,
		"high_watermark": 100, /* reversed on purpose */
	}`)

	cfg, err := ParseConfig(data)
	require.NoError(t, err)
	assert.Equal(t, Config{
		WritebackPath:    "/var/tmp/ufo",
		LowWatermark:     100,
		HighWatermark:    300,
		DefaultLoadBytes: DefaultLoadBytes,
	}, cfg)
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"low_watermark": `},
		{"wrong type", `{"low_watermark": "lots"}`},
		{"equal watermarks", `{"low_watermark": 7, "high_watermark": 7}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tc.data))
			require.Error(t, err)
			assert.Equal(t, errors.KindInvalidConfig, errors.KindOf(err))
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ufo.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"low_watermark": 1, "high_watermark": 2, "default_load_bytes": 8192}`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(8192), cfg.DefaultLoadBytes)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.jsonc"))
	require.Error(t, err)
	assert.Equal(t, errors.KindResource, errors.KindOf(err))
}
