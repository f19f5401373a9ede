package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadEnvFile exports the variables of an env file into the process
// environment without overriding variables that are already set.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	filePath := os.Getenv(envKey + "_FILE")
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	os.Setenv(envKey, strings.TrimSpace(string(data)))
}

type Config struct {
	Server    ServerConfig
	Merge     MergeConfig
	Media     MediaConfig
	Jobs      JobsConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	PublicURL string
}

type MergeConfig struct {
	OutputDir     string
	FFmpegPath    string
	FFprobePath   string
	AudioCodec    string
	CleanupDelay  time.Duration
	MaxConcurrent int // 0 = unbounded
}

type MediaConfig struct {
	YtDlpPath       string
	Timeout         time.Duration
	MaxVideoOptions int
	MaxAudioOptions int
	MaxMuxedOptions int
}

type JobsConfig struct {
	TTL           time.Duration // 0 disables the reaper
	SweepInterval time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	MergePerHour int
	InfoPerMin   int
}

// Load reads configuration from defaults, an optional YAML file and the
// environment. configFile may be empty, in which case config.yaml is looked
// up in . and ./config.
func Load(configFile string) (*Config, error) {
	readSecret("REDIS_PASSWORD")

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.AutomaticEnv()

	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("server.env", "APP_ENV")
	_ = v.BindEnv("server.log_level", "LOG_LEVEL")
	_ = v.BindEnv("server.public_url", "PUBLIC_URL")
	_ = v.BindEnv("merge.output_dir", "OUTPUT_DIR")
	_ = v.BindEnv("merge.ffmpeg_path", "FFMPEG_PATH")
	_ = v.BindEnv("merge.ffprobe_path", "FFPROBE_PATH")
	_ = v.BindEnv("merge.audio_codec", "AUDIO_CODEC")
	_ = v.BindEnv("merge.cleanup_delay_ms", "CLEANUP_DELAY_MS")
	_ = v.BindEnv("merge.max_concurrent", "MAX_CONCURRENT_MERGES")
	_ = v.BindEnv("media.ytdlp_path", "YTDLP_PATH")
	_ = v.BindEnv("media.timeout", "YTDLP_TIMEOUT")
	_ = v.BindEnv("jobs.ttl_minutes", "JOB_TTL_MINUTES")
	_ = v.BindEnv("jobs.sweep_interval_seconds", "JOB_SWEEP_INTERVAL_SECONDS")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("ratelimit.merge_per_hour", "RATELIMIT_MERGE_PER_HOUR")
	_ = v.BindEnv("ratelimit.info_per_min", "RATELIMIT_INFO_PER_MIN")

	// Defaults
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.public_url", "")

	v.SetDefault("merge.output_dir", "./downloads")
	v.SetDefault("merge.ffmpeg_path", "ffmpeg")
	v.SetDefault("merge.ffprobe_path", "ffprobe")
	v.SetDefault("merge.audio_codec", "aac")
	v.SetDefault("merge.cleanup_delay_ms", 1000)
	v.SetDefault("merge.max_concurrent", 0)

	v.SetDefault("media.ytdlp_path", "yt-dlp")
	v.SetDefault("media.timeout", 60)
	v.SetDefault("media.max_video_options", 5)
	v.SetDefault("media.max_audio_options", 3)
	v.SetDefault("media.max_muxed_options", 3)

	v.SetDefault("jobs.ttl_minutes", 0)
	v.SetDefault("jobs.sweep_interval_seconds", 60)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("ratelimit.merge_per_hour", 0)
	v.SetDefault("ratelimit.info_per_min", 0)

	if err := v.ReadInConfig(); err != nil {
		// An explicitly requested file must exist; the default lookup is optional.
		if configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:      v.GetString("server.port"),
			Env:       v.GetString("server.env"),
			LogLevel:  v.GetString("server.log_level"),
			PublicURL: strings.TrimRight(v.GetString("server.public_url"), "/"),
		},
		Merge: MergeConfig{
			OutputDir:     v.GetString("merge.output_dir"),
			FFmpegPath:    v.GetString("merge.ffmpeg_path"),
			FFprobePath:   v.GetString("merge.ffprobe_path"),
			AudioCodec:    v.GetString("merge.audio_codec"),
			CleanupDelay:  time.Duration(v.GetInt("merge.cleanup_delay_ms")) * time.Millisecond,
			MaxConcurrent: v.GetInt("merge.max_concurrent"),
		},
		Media: MediaConfig{
			YtDlpPath:       v.GetString("media.ytdlp_path"),
			Timeout:         time.Duration(v.GetInt("media.timeout")) * time.Second,
			MaxVideoOptions: v.GetInt("media.max_video_options"),
			MaxAudioOptions: v.GetInt("media.max_audio_options"),
			MaxMuxedOptions: v.GetInt("media.max_muxed_options"),
		},
		Jobs: JobsConfig{
			TTL:           time.Duration(v.GetInt("jobs.ttl_minutes")) * time.Minute,
			SweepInterval: time.Duration(v.GetInt("jobs.sweep_interval_seconds")) * time.Second,
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			MergePerHour: v.GetInt("ratelimit.merge_per_hour"),
			InfoPerMin:   v.GetInt("ratelimit.info_per_min"),
		},
	}

	if cfg.Merge.OutputDir == "" {
		return nil, fmt.Errorf("merge.output_dir must not be empty")
	}
	if err := os.MkdirAll(cfg.Merge.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	return cfg, nil
}
