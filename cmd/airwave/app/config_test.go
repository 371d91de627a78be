package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := LoadConfig([]string{"airwave"}, "/root")
	require.NoError(t, err)
	wanted := DefaultConfig
	wanted.CacheDir = "/root/cache"
	wanted.ChannelList = "/root/channels.json"
	assert.Equal(t, &wanted, cfg)
}

func TestConfigFile(t *testing.T) {
	args := []string{"airwave", "--config", "./testdata/configs/testvalues.json"}
	cfg, err := LoadConfig(args, "/root")
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/srv/airwave/cache", cfg.CacheDir)
	assert.Equal(t, "/root/channels.json", cfg.ChannelList)
	assert.Equal(t, 4, cfg.SegmentLengthS)
	assert.Equal(t, "libx265", cfg.VideoCodec)
	assert.Equal(t, DefaultConfig.VideoPreset, cfg.VideoPreset)
}

func TestCommandLine(t *testing.T) {
	args := []string{"airwave", "--loglevel", "debug", "--port", "9000",
		"--timezone", "UTC", "--cachedir", "/var/airwave"}
	cfg, err := LoadConfig(args, "/root")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, "/var/airwave", cfg.CacheDir)
	assert.Equal(t, "/root/channels.json", cfg.ChannelList)
}

func TestCommandLineOverridesFile(t *testing.T) {
	args := []string{"airwave", "--config", "./testdata/configs/testvalues.json",
		"--port", "7777"}
	cfg, err := LoadConfig(args, "/root")
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestEnv(t *testing.T) {
	t.Setenv("VIDEO_CODEC", "libx265")
	t.Setenv("HLS_SEGMENT_LENGTH_SECONDS", "4")
	t.Setenv("CACHE_DIR", "/var/cache/airwave")
	t.Setenv("PORT", "1234") // not an enumerated variable
	cfg, err := LoadConfig([]string{"airwave"}, "/root")
	require.NoError(t, err)
	assert.Equal(t, "libx265", cfg.VideoCodec)
	assert.Equal(t, 4, cfg.SegmentLengthS)
	assert.Equal(t, "/var/cache/airwave", cfg.CacheDir)
	assert.Equal(t, DefaultConfig.Port, cfg.Port)
}

func TestBadSegmentLength(t *testing.T) {
	t.Setenv("HLS_SEGMENT_LENGTH_SECONDS", "0")
	_, err := LoadConfig([]string{"airwave"}, "/root")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "segment length")
}

func TestBadFlag(t *testing.T) {
	_, err := LoadConfig([]string{"airwave", "--nosuchflag"}, "/root")
	require.Error(t, err)
}
