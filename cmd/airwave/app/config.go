package app

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/providers/structs"

	"github.com/airwave-tv/airwave/pkg/logging"
	"github.com/spf13/pflag"
)

type ServerConfig struct {
	LogFormat string `json:"logformat"`
	LogLevel  string `json:"loglevel"`
	Port      int    `json:"port"`
	TimeoutS  int    `json:"timeoutS"`
	// CacheDir is the root of the on-disk layout (channel bundles live
	// under <cachedir>/channels/).
	CacheDir string `json:"cachedir"`
	// ChannelList is the path to the channel-definitions JSON file.
	ChannelList string `json:"channellist"`
	FFmpeg      string `json:"ffmpeg"`
	FFprobe     string `json:"ffprobe"`
	// Timezone sets the guide's programming-day boundary location.
	// Empty means server-local time.
	Timezone string `json:"timezone"`
	CertPath string `json:"certpath"`
	KeyPath  string `json:"keypath"`
	Domains  string `json:"domains"`

	// Transcode parameters. Settable via config file or the enumerated
	// environment variables, not flags.
	SegmentLengthS int    `json:"segmentlengthS"`
	Dimensions     string `json:"dimensions"`
	VideoCodec     string `json:"videocodec"`
	VideoPreset    string `json:"videopreset"`
	VideoQuality   int    `json:"videoquality"`
	VideoFilter    string `json:"videofilter"`
	AudioCodec     string `json:"audiocodec"`
	AudioBitrate   string `json:"audiobitrate"`
}

var DefaultConfig = ServerConfig{
	LogFormat:      logging.LogPretty,
	LogLevel:       "info",
	Port:           8660,
	TimeoutS:       60,
	CacheDir:       "./cache",
	ChannelList:    "./channels.json",
	FFmpeg:         "ffmpeg",
	FFprobe:        "ffprobe",
	SegmentLengthS: 6,
	Dimensions:     "1280x720",
	VideoCodec:     "libx264",
	VideoPreset:    "veryfast",
	VideoQuality:   23,
	AudioCodec:     "aac",
	AudioBitrate:   "128k",
}

// envKey maps the enumerated environment variables to config keys.
// Every other variable is ignored.
func envKey(s string) string {
	switch s {
	case "CACHE_DIR":
		return "cachedir"
	case "CHANNEL_LIST":
		return "channellist"
	case "HLS_SEGMENT_LENGTH_SECONDS":
		return "segmentlengthS"
	case "DIMENSIONS":
		return "dimensions"
	case "VIDEO_CODEC":
		return "videocodec"
	case "VIDEO_PRESET":
		return "videopreset"
	case "VIDEO_QUALITY":
		return "videoquality"
	case "VIDEO_FILTER":
		return "videofilter"
	case "AUDIO_CODEC":
		return "audiocodec"
	case "AUDIO_BITRATE":
		return "audiobitrate"
	}
	return ""
}

// LoadConfig loads defaults, config file, command line, and finally applies environment variables.
//
// CacheDir and ChannelList are made absolute relative to cwd.
func LoadConfig(args []string, cwd string) (*ServerConfig, error) {
	// First set default values
	k := koanf.New(".")
	defaults := DefaultConfig
	k.Load(structs.Provider(defaults, "json"), nil)

	f := pflag.NewFlagSet("airwave", pflag.ContinueOnError)
	f.Usage = func() {
		parts := strings.Split(args[0], "/")
		name := parts[len(parts)-1]
		fmt.Fprintf(os.Stderr, "Run as %s [options]:\n", name)
		f.PrintDefaults()
	}
	cfgFile := f.String("config", "", "path to a JSON config file")
	f.Int("port", k.Int("port"), "HTTP port")
	lf := strings.Join(logging.LogFormats, ", ")
	f.String("logformat", k.String("logformat"), fmt.Sprintf("log format [%s]", lf))
	ll := strings.Join(logging.LogLevels, ", ")
	f.String("loglevel", k.String("loglevel"), fmt.Sprintf("log level [%s]", ll))
	f.Int("timeoutS", k.Int("timeoutS"), "timeout for all requests (seconds)")
	f.String("cachedir", k.String("cachedir"), "root directory for generated segment bundles")
	f.String("channellist", k.String("channellist"), "channel definitions file (JSON)")
	f.String("ffmpeg", k.String("ffmpeg"), "ffmpeg binary")
	f.String("ffprobe", k.String("ffprobe"), "ffprobe binary")
	f.String("timezone", k.String("timezone"), "IANA timezone for the guide day boundary (default local)")
	f.String("certpath", k.String("certpath"), "path to TLS certificate file")
	f.String("keypath", k.String("keypath"), "path to TLS private key file")
	f.String("domains", k.String("domains"), "comma-separated domains to serve with automatic TLS certificates")
	if err := f.Parse(args[1:]); err != nil {
		return nil, fmt.Errorf("command line parse: %w", err)
	}

	// Load the config file provided on the command line.
	if *cfgFile != "" {
		cf := file.Provider(*cfgFile)
		if err := k.Load(cf, json.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	// Possibly override config file with commandline parameters
	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return nil, fmt.Errorf("parsing cli: %v", err)
	}

	// Overload with the enumerated environment variables
	k.Load(env.Provider("", ".", envKey), nil)

	// Make paths absolute in case they are not already
	abs := map[string]any{}
	for _, key := range []string{"cachedir", "channellist"} {
		v := k.String(key)
		if v != "" && !path.IsAbs(v) {
			abs[key] = path.Join(cwd, v)
		}
	}
	if len(abs) > 0 {
		k.Load(confmap.Provider(abs, "."), nil)
	}

	// Unmarshal into cfg
	var cfg ServerConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if cfg.SegmentLengthS <= 0 {
		return nil, fmt.Errorf("segment length must be positive, got %d", cfg.SegmentLengthS)
	}

	return &cfg, nil
}
