package config

import (
	"errors"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	CacheDriverMemory = "memory"
	CacheDriverRedis  = "redis"

	HostResolverFormula = "formula"
	HostResolverDNS     = "dns"
)

type Config struct {
	Env  string `validate:"oneof=development production"`
	Port int    `validate:"min=1,max=65535"`

	Intra    IntraConfig
	ExamMode ExamModeConfig
	Hostname HostnameConfig
	Cache    CacheConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig

	MessagesFile    string
	RefreshInterval time.Duration
	Warmup          bool
}

// IntraConfig points the service at the campus data source.
type IntraConfig struct {
	APIURL       string `validate:"required,url"`
	ClientID     string
	ClientSecret string
	CampusID     int `validate:"min=0"`
	RateLimit    float64
	Timeout      time.Duration
}

// Configured reports whether enough credentials exist to talk to the data source.
func (c IntraConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.CampusID > 0
}

// ExamModeConfig toggles exam admission for every workstation.
type ExamModeConfig struct {
	Enabled bool
}

// HostnameConfig holds the tokens of the workstation naming scheme.
type HostnameConfig struct {
	Resolver string `validate:"oneof=formula dns"`
	Cluster  string `validate:"required"`
	Row      string `validate:"required"`
	Seat     string `validate:"required"`
	Suffix   string
}

// CacheConfig tunes the schedule cache.
type CacheConfig struct {
	Driver           string        `validate:"oneof=memory redis"`
	TTL              time.Duration `validate:"gt=0"`
	ExamModeHostsTTL time.Duration `validate:"gt=0"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isNotExist(err) {
			return nil, err
		}
	}

	cfg := fromViper(v)
	if err := validator.New().Struct(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")

	cfg.Intra = IntraConfig{
		APIURL:       strings.TrimRight(v.GetString("INTRA_API_URL"), "/"),
		ClientID:     v.GetString("INTRA_CLIENT_ID"),
		ClientSecret: v.GetString("INTRA_CLIENT_SECRET"),
		CampusID:     v.GetInt("INTRA_CAMPUS_ID"),
		RateLimit:    v.GetFloat64("INTRA_RATE_LIMIT"),
		Timeout:      parseDuration(v.GetString("INTRA_TIMEOUT"), 30*time.Second),
	}

	cfg.ExamMode = ExamModeConfig{Enabled: v.GetBool("EXAM_MODE_ENABLED")}

	cfg.Hostname = HostnameConfig{
		Resolver: strings.ToLower(v.GetString("HOST_RESOLVER")),
		Cluster:  v.GetString("HOSTNAME_CLUSTER"),
		Row:      v.GetString("HOSTNAME_ROW"),
		Seat:     v.GetString("HOSTNAME_SEAT"),
		Suffix:   v.GetString("HOSTNAME_SUFFIX"),
	}

	cfg.Cache = CacheConfig{
		Driver:           strings.ToLower(v.GetString("CACHE_DRIVER")),
		TTL:              parseSeconds(v.GetString("CACHE_TTL"), 900*time.Second),
		ExamModeHostsTTL: parseSeconds(v.GetString("EXAM_MODE_HOSTS_TTL"), 10*time.Second),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.MessagesFile = v.GetString("MESSAGES_FILE")
	cfg.RefreshInterval = parseDuration(v.GetString("REFRESH_INTERVAL"), 0)
	cfg.Warmup = v.GetBool("WARMUP")

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 3000)

	v.SetDefault("INTRA_API_URL", "https://api.intra.42.fr")
	v.SetDefault("INTRA_CLIENT_ID", "")
	v.SetDefault("INTRA_CLIENT_SECRET", "")
	v.SetDefault("INTRA_CAMPUS_ID", 0)
	v.SetDefault("INTRA_RATE_LIMIT", 2)
	v.SetDefault("INTRA_TIMEOUT", "30s")

	v.SetDefault("EXAM_MODE_ENABLED", true)

	v.SetDefault("HOST_RESOLVER", HostResolverFormula)
	v.SetDefault("HOSTNAME_CLUSTER", "f")
	v.SetDefault("HOSTNAME_ROW", "r")
	v.SetDefault("HOSTNAME_SEAT", "s")
	v.SetDefault("HOSTNAME_SUFFIX", ".codam.nl")

	v.SetDefault("CACHE_DRIVER", CacheDriverMemory)
	v.SetDefault("CACHE_TTL", "900")
	v.SetDefault("EXAM_MODE_HOSTS_TTL", "10")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("MESSAGES_FILE", "messages.json")
	v.SetDefault("REFRESH_INTERVAL", "")
	v.SetDefault("WARMUP", true)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

// parseSeconds accepts either a bare number of seconds or a Go duration string.
func parseSeconds(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs <= 0 {
			return fallback
		}
		return time.Duration(secs) * time.Second
	}
	return parseDuration(raw, fallback)
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
