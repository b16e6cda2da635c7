package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	S3       S3Config       `mapstructure:"s3"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Editor   EditorConfig   `mapstructure:"editor"`
	Backend  BackendConfig  `mapstructure:"backend"`
	AI       AIConfig       `mapstructure:"ai"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
	// WSOrigins are extra origins allowed to open websocket streams, e.g. "localhost:3000".
	WSOrigins []string `mapstructure:"ws_origins"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"` // duration string in config.yaml, e.g. "60m"
}

// EditorConfig tunes the mesocycle editor sessions.
type EditorConfig struct {
	CommitTimeout    time.Duration `mapstructure:"commit_timeout"`
	StrictInvariants bool          `mapstructure:"strict_invariants"` // panic instead of heal; for development
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`      // sessions unused this long are closed
	DragDistance     float64       `mapstructure:"drag_distance"`
	TouchDelay       time.Duration `mapstructure:"touch_delay"`
	TouchTolerance   float64       `mapstructure:"touch_tolerance"`
}

// BackendConfig points editor commits at a remote program backend instead of the local database.
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"` // empty: commit to MongoDB directly
	Timeout time.Duration `mapstructure:"timeout"`
}

// AIConfig configures the program generation service.
type AIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"` // requests per second
	Burst     int           `mapstructure:"burst"`
}

// SnapshotConfig locates the questionnaire snapshot database.
type SnapshotConfig struct {
	Path string `mapstructure:"path"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// --- Environment Variable Handling ---
	v.AutomaticEnv()
	// Use replacer for nested keys e.g., server.address -> SERVER_ADDRESS
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	// --- Set default values ---
	v.SetDefault("server.address", ":8080")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "coach_app")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiration", "1h")
	v.SetDefault("editor.commit_timeout", "15s")
	v.SetDefault("editor.strict_invariants", false)
	v.SetDefault("editor.idle_timeout", "30m")
	v.SetDefault("editor.drag_distance", 8)
	v.SetDefault("editor.touch_delay", "200ms")
	v.SetDefault("editor.touch_tolerance", 5)
	v.SetDefault("backend.base_url", "")
	v.SetDefault("backend.timeout", "15s")
	v.SetDefault("ai.base_url", "http://localhost:8000/api/v1/ai")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.timeout", "120s")
	v.SetDefault("ai.rate_limit", 0.5)
	v.SetDefault("ai.burst", 2)
	v.SetDefault("snapshot.path", "data/questionnaire.db")

	// --- Read Config File ---
	err = v.ReadInConfig()
	// A missing file is fine: defaults and env vars still apply.
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	// Duration strings ("60m", "1h") decode straight into time.Duration fields.
	err = v.Unmarshal(&config)
	if err != nil {
		return
	}

	return config, nil
}
