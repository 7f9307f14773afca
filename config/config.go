package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr      string
	DatabaseURL   string
	DBPath        string
	LogFile       string
	LogLevel      string
	ReportCron    string
	MediaDir      string
	SecureCookies bool
	S3            S3Config
	Tuning        Tuning
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional: for DO Spaces, R2, MinIO, etc.
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string // Optional: CDN host in front of the bucket
}

// Tuning holds the knobs read from the optional YAML file
type Tuning struct {
	Pricing   PricingConfig   `yaml:"pricing"`
	Wizard    WizardConfig    `yaml:"wizard"`
	Upload    UploadConfig    `yaml:"upload"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Views     ViewsConfig     `yaml:"views"`
}

type PricingConfig struct {
	Band         float64 `yaml:"band"`
	Step         int64   `yaml:"step"`
	DefaultPrice float64 `yaml:"default_price"`
}

type WizardConfig struct {
	Timelines []string `yaml:"timelines"`
}

type UploadConfig struct {
	MaxFiles     int    `yaml:"max_files"`
	MaxFileBytes int64  `yaml:"max_file_bytes"`
	KeyPrefix    string `yaml:"key_prefix"`
}

type RateLimitConfig struct {
	OpinionSavesPerSecond float64 `yaml:"opinion_saves_per_second"`
	Burst                 int     `yaml:"burst"`
}

type ViewsConfig struct {
	BufferSize int `yaml:"buffer_size"`
}

// DefaultTuning is used for any value the YAML file leaves out
func DefaultTuning() Tuning {
	return Tuning{
		Pricing: PricingConfig{
			Band:         0.25,
			Step:         1000,
			DefaultPrice: 1_000_000,
		},
		Wizard: WizardConfig{
			Timelines: []string{"asap", "3_months", "6_months", "exploring"},
		},
		Upload: UploadConfig{
			MaxFiles:     30,
			MaxFileBytes: 25 * 1024 * 1024,
			KeyPrefix:    "listings",
		},
		RateLimit: RateLimitConfig{
			OpinionSavesPerSecond: 2,
			Burst:                 5,
		},
		Views: ViewsConfig{
			BufferSize: 256,
		},
	}
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		DBPath:        getEnv("DB_PATH", "propsignal.db"),
		LogFile:       getEnv("LOG_FILE", "propsignal.log"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		ReportCron:    getEnv("REPORT_CRON", "*/15 * * * *"),
		MediaDir:      getEnv("MEDIA_DIR", "media"),
		SecureCookies: getEnv("SECURE_COOKIES", "false") == "true",
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			PublicBaseURL:   os.Getenv("S3_PUBLIC_BASE_URL"),
		},
	}

	tuning, err := LoadTuning(getEnv("APP_CONFIG", "config/app.yaml"))
	if err != nil {
		return nil, err
	}
	cfg.Tuning = tuning

	if v := getEnvFloat("OPINION_SAVES_PER_SECOND", 0); v > 0 {
		cfg.Tuning.RateLimit.OpinionSavesPerSecond = v
	}
	if v := getEnvInt("VIEW_BUFFER_SIZE", 0); v > 0 {
		cfg.Tuning.Views.BufferSize = v
	}

	return cfg, nil
}

// LoadTuning reads the YAML tuning file on top of DefaultTuning.
// A missing file is not an error.
func LoadTuning(path string) (Tuning, error) {
	tuning := DefaultTuning()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return tuning, nil
		}
		return tuning, err
	}

	if err := yaml.Unmarshal(data, &tuning); err != nil {
		return tuning, fmt.Errorf("parse %s: %w", path, err)
	}

	if tuning.Pricing.Band <= 0 || tuning.Pricing.Band >= 1 {
		return tuning, fmt.Errorf("pricing.band must be between 0 and 1, got %v", tuning.Pricing.Band)
	}
	if tuning.Pricing.Step <= 0 {
		return tuning, fmt.Errorf("pricing.step must be positive, got %d", tuning.Pricing.Step)
	}
	return tuning, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
