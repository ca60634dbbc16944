package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ClientConfig holds the greeter-side settings. Keys mirror settings.json.
type ClientConfig struct {
	Env      string
	Hostname string `validate:"required"`
	DataURL  string `validate:"required,url"`

	DataFetchInterval          time.Duration `validate:"gt=0"`
	ExamUsername               string        `validate:"required"`
	ExamPassword               string        `validate:"required"`
	ExamModeDisabled           bool
	ExamModeCheckInterval      time.Duration `validate:"gt=0"`
	ExamModeMinutesBeforeBegin int           `validate:"min=0"`

	// LockedUser starts the client on the lock screen for that user when set.
	LockedUser  string
	LockedSince time.Time

	Log LogConfig
}

// LoadClient parses flags and merges them with settings.json and GREETER_* environment variables.
func LoadClient(args []string) (*ClientConfig, error) {
	fs := pflag.NewFlagSet("greeter-client", pflag.ContinueOnError)
	settings := fs.String("settings", "settings.json", "path to settings.json")
	fs.String("data-url", "", "URL of the greeter config endpoint or data.json")
	fs.String("hostname", "", "hostname reported to the backend")
	fs.String("locked-user", "", "start on the lock screen for this user")
	fs.Duration("locked-since", 0, "how long ago the session was locked")
	fs.String("log-level", "", "log level")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("GREETER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	setClientDefaults(v)

	v.SetConfigFile(*settings)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isNotExist(err) {
			return nil, err
		}
	}

	for flagName, key := range map[string]string{
		"data-url":    "data_url",
		"hostname":    "hostname",
		"locked-user": "locked_user",
		"log-level":   "log_level",
	} {
		if f := fs.Lookup(flagName); f != nil && f.Changed {
			v.Set(key, f.Value.String())
		}
	}

	cfg := &ClientConfig{
		Env:                        v.GetString("env"),
		Hostname:                   v.GetString("hostname"),
		DataURL:                    v.GetString("data_url"),
		DataFetchInterval:          parseSeconds(v.GetString("data_fetch_interval"), time.Minute),
		ExamUsername:               v.GetString("exam_username"),
		ExamPassword:               v.GetString("exam_password"),
		ExamModeDisabled:           v.GetBool("exam_mode_disabled"),
		ExamModeCheckInterval:      parseSeconds(v.GetString("exam_mode_check_interval"), 5*time.Second),
		ExamModeMinutesBeforeBegin: v.GetInt("exam_mode_minutes_before_begin"),
		LockedUser:                 v.GetString("locked_user"),
		Log: LogConfig{
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
		},
	}
	if cfg.Hostname == "" {
		if h, err := os.Hostname(); err == nil {
			cfg.Hostname = h
		}
	}
	if d, err := fs.GetDuration("locked-since"); err == nil && d > 0 {
		cfg.LockedSince = time.Now().Add(-d)
	} else if cfg.LockedUser != "" {
		cfg.LockedSince = time.Now()
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setClientDefaults(v *viper.Viper) {
	v.SetDefault("env", EnvDevelopment)
	v.SetDefault("data_url", "http://localhost:3000/api/config")
	v.SetDefault("data_fetch_interval", "60")
	v.SetDefault("exam_username", "exam")
	v.SetDefault("exam_password", "exam")
	v.SetDefault("exam_mode_disabled", false)
	v.SetDefault("exam_mode_check_interval", "5")
	v.SetDefault("exam_mode_minutes_before_begin", 20)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
}
