package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Store      StoreConfig      `yaml:"store"`
	Database   DatabaseConfig   `yaml:"database"`
	NATS       NATSConfig       `yaml:"nats"`
	MinIO      MinIOConfig      `yaml:"minio"`
	Redis      RedisConfig      `yaml:"redis"`
	Seal       SealConfig       `yaml:"seal"`
	Vision     VisionConfig     `yaml:"vision"`
	Matching   MatchingConfig   `yaml:"matching"`
	Attendance AttendanceConfig `yaml:"attendance"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type StoreConfig struct {
	// Driver is "postgres" or "memory".
	Driver string `yaml:"driver"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// NATSConfig enables the live check-in stream when URL is set.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// MinIOConfig enables enrollment photo storage when Endpoint is set.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// RedisConfig switches check-in locking from in-process to Redis when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
	LockWait time.Duration `yaml:"lock_wait"`
}

type SealConfig struct {
	// Key is a base64 master key; it takes precedence over KeyFile.
	Key     string `yaml:"key"`
	KeyFile string `yaml:"key_file"`
}

type VisionConfig struct {
	ModelsDir          string  `yaml:"models_dir"`
	DetectorModel      string  `yaml:"detector_model"`
	EmbedderModel      string  `yaml:"embedder_model"`
	DetectionThreshold float64 `yaml:"detection_threshold"`
	EmbedderInput      int     `yaml:"embedder_input"`
}

type MatchingConfig struct {
	Tolerance float64 `yaml:"tolerance"`
	Strategy  string  `yaml:"strategy"`
}

type AttendanceConfig struct {
	Timezone        string `yaml:"timezone"`
	OnTimeStart     string `yaml:"on_time_start"`
	OnTimeEnd       string `yaml:"on_time_end"`
	DefaultVenue    string `yaml:"default_venue"`
	DefaultEvent    string `yaml:"default_event"`
	DigitalIDPrefix string `yaml:"digital_id_prefix"`
	LatestLogs      int    `yaml:"latest_logs"`

	location *time.Location
	onTime   [2]time.Duration
}

// Location returns the timezone resolved by Validate.
func (a AttendanceConfig) Location() *time.Location {
	if a.location == nil {
		return time.UTC
	}
	return a.location
}

// OnTimeWindow returns the inclusive on-time range as offsets from local midnight.
func (a AttendanceConfig) OnTimeWindow() (start, end time.Duration) {
	return a.onTime[0], a.onTime[1]
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads an optional .env file, then the YAML config at path, then
// applies environment overrides and defaults. A missing config file is not an
// error: defaults and environment fill everything in.
func Load(path string) (*Config, error) {
	// .env is optional, as in local development
	_ = godotenv.Load()

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints and resolves derived values.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("store.driver must be postgres or memory, got %q", c.Store.Driver)
	}

	if c.Matching.Tolerance <= 0 {
		return fmt.Errorf("matching.tolerance must be positive, got %v", c.Matching.Tolerance)
	}
	switch c.Matching.Strategy {
	case "first", "best":
	default:
		return fmt.Errorf("matching.strategy must be first or best, got %q", c.Matching.Strategy)
	}

	loc, err := time.LoadLocation(c.Attendance.Timezone)
	if err != nil {
		return fmt.Errorf("attendance.timezone: %w", err)
	}
	c.Attendance.location = loc

	start, err := ParseClock(c.Attendance.OnTimeStart)
	if err != nil {
		return fmt.Errorf("attendance.on_time_start: %w", err)
	}
	end, err := ParseClock(c.Attendance.OnTimeEnd)
	if err != nil {
		return fmt.Errorf("attendance.on_time_end: %w", err)
	}
	if end < start {
		return fmt.Errorf("attendance on-time window ends (%s) before it starts (%s)",
			c.Attendance.OnTimeEnd, c.Attendance.OnTimeStart)
	}
	c.Attendance.onTime = [2]time.Duration{start, end}

	return nil
}

// ParseClock parses "HH:MM" or "HH:MM:SS" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}

	limits := []int{23, 59, 59}
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("invalid clock time %q", s)
		}
		d += time.Duration(n) * units[i]
	}
	return d, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "postgres"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = "attendance"
	}
	if cfg.Redis.LockTTL == 0 {
		cfg.Redis.LockTTL = 10 * time.Second
	}
	if cfg.Redis.LockWait == 0 {
		cfg.Redis.LockWait = 5 * time.Second
	}
	if cfg.Seal.KeyFile == "" {
		cfg.Seal.KeyFile = "secret.key"
	}
	if cfg.Vision.ModelsDir == "" {
		cfg.Vision.ModelsDir = "models"
	}
	if cfg.Vision.DetectorModel == "" {
		cfg.Vision.DetectorModel = "det_10g.onnx"
	}
	if cfg.Vision.EmbedderModel == "" {
		cfg.Vision.EmbedderModel = "face_embed_128.onnx"
	}
	if cfg.Vision.DetectionThreshold == 0 {
		cfg.Vision.DetectionThreshold = 0.5
	}
	if cfg.Vision.EmbedderInput == 0 {
		cfg.Vision.EmbedderInput = 150
	}
	if cfg.Matching.Tolerance == 0 {
		cfg.Matching.Tolerance = 0.45
	}
	if cfg.Matching.Strategy == "" {
		cfg.Matching.Strategy = "first"
	}
	if cfg.Attendance.Timezone == "" {
		cfg.Attendance.Timezone = "Asia/Jakarta"
	}
	if cfg.Attendance.OnTimeStart == "" {
		cfg.Attendance.OnTimeStart = "07:45"
	}
	if cfg.Attendance.OnTimeEnd == "" {
		cfg.Attendance.OnTimeEnd = "08:15"
	}
	if cfg.Attendance.DefaultVenue == "" {
		cfg.Attendance.DefaultVenue = "Unknown Venue"
	}
	if cfg.Attendance.DefaultEvent == "" {
		cfg.Attendance.DefaultEvent = "General"
	}
	if cfg.Attendance.DigitalIDPrefix == "" {
		cfg.Attendance.DigitalIDPrefix = "BIL"
	}
	if cfg.Attendance.LatestLogs == 0 {
		cfg.Attendance.LatestLogs = 10
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ATT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ATT_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("ATT_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("ATT_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("ATT_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("ATT_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("ATT_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("ATT_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("ATT_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("ATT_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("ATT_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("ATT_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("ATT_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("ATT_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("ATT_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("ATT_SEAL_KEY"); v != "" {
		cfg.Seal.Key = v
	}
	if v := os.Getenv("ATT_SEAL_KEY_FILE"); v != "" {
		cfg.Seal.KeyFile = v
	}
	if v := os.Getenv("ATT_MODELS_DIR"); v != "" {
		cfg.Vision.ModelsDir = v
	}
	if v := os.Getenv("ATT_MATCH_TOLERANCE"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Matching.Tolerance = t
		}
	}
	if v := os.Getenv("ATT_MATCH_STRATEGY"); v != "" {
		cfg.Matching.Strategy = v
	}
	if v := os.Getenv("ATT_TIMEZONE"); v != "" {
		cfg.Attendance.Timezone = v
	}
	if v := os.Getenv("ATT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
