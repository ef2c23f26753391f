// Package config loads the configuration of the tagfind command and server.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Driver names.
const (
	DriverMemory   = "memory"
	DriverBadger   = "badger"
	DriverS3       = "s3"
	DriverMinIO    = "minio"
	DriverDynamoDB = "dynamodb"
	DriverNeo4j    = "neo4j"
)

// Empty tag policies.
const (
	EmptyTagsReject   = "reject"
	EmptyTagsMatchAll = "match_all"
)

// Config holds all configuration.
type Config struct {
	Log LogConfig `mapstructure:"log"`

	Server ServerConfig `mapstructure:"server"`

	Backend BackendConfig `mapstructure:"backend"`

	Engine EngineConfig `mapstructure:"engine"`

	Limit LimitConfig `mapstructure:"limit"`

	Breaker BreakerConfig `mapstructure:"breaker"`

	Metrics MetricsConfig `mapstructure:"metrics"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text, json
}

// SlogLevel parses Level.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}
	return level, nil
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // gin mode: debug, release, test
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type BackendConfig struct {
	Driver   string         `mapstructure:"driver"`
	Badger   BadgerConfig   `mapstructure:"badger"`
	S3       S3Config       `mapstructure:"s3"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	DynamoDB DynamoDBConfig `mapstructure:"dynamodb"`
	Neo4j    Neo4jConfig    `mapstructure:"neo4j"`
}

type BadgerConfig struct {
	Dir      string `mapstructure:"dir"`
	InMemory bool   `mapstructure:"in_memory"`
	Prefix   string `mapstructure:"prefix"`
}

type S3Config struct {
	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
}

type DynamoDBConfig struct {
	Table    string `mapstructure:"table"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Label    string `mapstructure:"label"`
}

type EngineConfig struct {
	EmptyTags   string        `mapstructure:"empty_tags"` // reject, match_all
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"` // per request, 0 disables
}

type LimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	MaxInFlight       int64   `mapstructure:"max_in_flight"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type BreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MinRequests  uint32        `mapstructure:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// Load decodes v into a Config. Defaults are applied first, then the
// TAGFIND_* environment (log.level is TAGFIND_LOG_LEVEL), then the
// conventional NEO4J_* and AWS_REGION variables. A nil v uses a fresh
// viper instance.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v)

	v.SetEnvPrefix("tagfind")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFile reads path (any format viper understands) and calls Load.
// An empty path skips reading.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("unable to read config %s: %w", path, err)
		}
	}
	return Load(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("backend.driver", DriverMemory)
	v.SetDefault("backend.badger.dir", "")
	v.SetDefault("backend.badger.in_memory", false)
	v.SetDefault("backend.badger.prefix", "tagfind")
	v.SetDefault("backend.s3.bucket", "")
	v.SetDefault("backend.s3.prefix", "tagfind")
	v.SetDefault("backend.s3.region", "")
	v.SetDefault("backend.s3.endpoint", "")
	v.SetDefault("backend.s3.use_path_style", false)
	v.SetDefault("backend.minio.endpoint", "localhost:9000")
	v.SetDefault("backend.minio.access_key", "")
	v.SetDefault("backend.minio.secret_key", "")
	v.SetDefault("backend.minio.use_ssl", false)
	v.SetDefault("backend.minio.bucket", "")
	v.SetDefault("backend.minio.prefix", "tagfind")
	v.SetDefault("backend.dynamodb.table", "")
	v.SetDefault("backend.dynamodb.region", "")
	v.SetDefault("backend.dynamodb.endpoint", "")
	v.SetDefault("backend.neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("backend.neo4j.username", "neo4j")
	v.SetDefault("backend.neo4j.password", "")
	v.SetDefault("backend.neo4j.database", "")
	v.SetDefault("backend.neo4j.label", "Vertex")

	v.SetDefault("engine.empty_tags", EmptyTagsReject)
	v.SetDefault("engine.concurrency", 4)
	v.SetDefault("engine.timeout", 30*time.Second)

	v.SetDefault("limit.enabled", false)
	v.SetDefault("limit.max_in_flight", 16)
	v.SetDefault("limit.requests_per_second", 0)
	v.SetDefault("limit.burst", 0)

	v.SetDefault("breaker.enabled", false)
	v.SetDefault("breaker.max_requests", 1)
	v.SetDefault("breaker.interval", 0)
	v.SetDefault("breaker.timeout", 30*time.Second)
	v.SetDefault("breaker.min_requests", 5)
	v.SetDefault("breaker.failure_ratio", 0.5)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "tagfind")
}

func overrideWithEnv(config *Config) {
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Backend.Neo4j.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Backend.Neo4j.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Backend.Neo4j.Password = pass
	}

	if region := os.Getenv("AWS_REGION"); region != "" {
		if config.Backend.S3.Region == "" {
			config.Backend.S3.Region = region
		}
		if config.Backend.DynamoDB.Region == "" {
			config.Backend.DynamoDB.Region = region
		}
	}
}

// Validate checks the configuration for values the command cannot start
// with.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q", c.Log.Format))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port %d", c.Server.Port))
	}

	b := c.Backend
	switch b.Driver {
	case DriverMemory:
	case DriverBadger:
		if b.Badger.Dir == "" && !b.Badger.InMemory {
			errs = append(errs, errors.New("backend.badger.dir is required unless in_memory is set"))
		}
	case DriverS3:
		if b.S3.Bucket == "" {
			errs = append(errs, errors.New("backend.s3.bucket is required"))
		}
	case DriverMinIO:
		if b.MinIO.Endpoint == "" || b.MinIO.Bucket == "" {
			errs = append(errs, errors.New("backend.minio.endpoint and backend.minio.bucket are required"))
		}
	case DriverDynamoDB:
		if b.DynamoDB.Table == "" {
			errs = append(errs, errors.New("backend.dynamodb.table is required"))
		}
	case DriverNeo4j:
		if b.Neo4j.URI == "" {
			errs = append(errs, errors.New("backend.neo4j.uri is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend driver %q", b.Driver))
	}

	switch c.Engine.EmptyTags {
	case EmptyTagsReject, EmptyTagsMatchAll:
	default:
		errs = append(errs, fmt.Errorf("invalid engine.empty_tags %q", c.Engine.EmptyTags))
	}
	if c.Engine.Timeout < 0 {
		errs = append(errs, errors.New("engine.timeout must not be negative"))
	}

	if c.Limit.Enabled && c.Limit.MaxInFlight <= 0 && c.Limit.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("limit is enabled but neither max_in_flight nor requests_per_second is set"))
	}

	if c.Breaker.Enabled && (c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1) {
		errs = append(errs, fmt.Errorf("breaker.failure_ratio must be in (0, 1], got %v", c.Breaker.FailureRatio))
	}

	return errors.Join(errs...)
}
