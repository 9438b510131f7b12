package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Service struct {
	URL    string `yaml:"url" mapstructure:"url"`
	APIKey string `yaml:"api_key,omitempty" mapstructure:"api_key"`
}

type Transcript struct {
	Service      `yaml:",inline" mapstructure:",squash"`
	PageSize     int  `yaml:"page_size" mapstructure:"page_size"`
	MatchPatient bool `yaml:"match_patient" mapstructure:"match_patient"`
}

type Oracle struct {
	Service        `yaml:",inline" mapstructure:",squash"`
	Model          string `yaml:"model" mapstructure:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

type Notify struct {
	Service `yaml:",inline" mapstructure:",squash"`
	From    string `yaml:"from" mapstructure:"from"`
}

type Services struct {
	Transcript Transcript `yaml:"transcript" mapstructure:"transcript"`
	Emotion    Service    `yaml:"emotion" mapstructure:"emotion"`
	Oracle     Oracle     `yaml:"oracle" mapstructure:"oracle"`
	Notify     Notify     `yaml:"notify" mapstructure:"notify"`
}

type Database struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // postgres | sqlite
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

type Lock struct {
	Backend    string `yaml:"backend" mapstructure:"backend"` // local | redis
	RedisAddr  string `yaml:"redis_addr" mapstructure:"redis_addr"`
	TTLSeconds int    `yaml:"ttl_seconds" mapstructure:"ttl_seconds"`
}

type Root struct {
	Pipeline struct {
		Name      string `yaml:"name" mapstructure:"name"`
		Version   string `yaml:"version" mapstructure:"version"`
		LogLvl    string `yaml:"log_level" mapstructure:"log_level"`
		LogFormat string `yaml:"log_format" mapstructure:"log_format"`
	} `yaml:"pipeline" mapstructure:"pipeline"`
	Services Services `yaml:"services" mapstructure:"services"`
	Database Database `yaml:"database" mapstructure:"database"`
	Lock     Lock     `yaml:"lock" mapstructure:"lock"`
	Server   struct {
		Addr string `yaml:"addr" mapstructure:"addr"`
	} `yaml:"server" mapstructure:"server"`
	Paths struct {
		Records string `yaml:"records" mapstructure:"records"`
		Reports string `yaml:"reports" mapstructure:"reports"`
	} `yaml:"paths" mapstructure:"paths"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.name", "nursecheck-triage")
	v.SetDefault("pipeline.version", "0.1.0")
	v.SetDefault("pipeline.log_level", "info")
	v.SetDefault("pipeline.log_format", "text")
	v.SetDefault("services.transcript.url", "https://api.hume.ai")
	v.SetDefault("services.transcript.api_key", "")
	v.SetDefault("services.transcript.page_size", 45)
	v.SetDefault("services.transcript.match_patient", false)
	v.SetDefault("services.emotion.url", "")
	v.SetDefault("services.oracle.url", "https://api.01.ai/v1")
	v.SetDefault("services.oracle.api_key", "")
	v.SetDefault("services.oracle.model", "yi-large")
	v.SetDefault("services.oracle.timeout_seconds", 30)
	v.SetDefault("services.notify.url", "https://api.resend.com")
	v.SetDefault("services.notify.api_key", "")
	v.SetDefault("services.notify.from", "onboarding@resend.dev")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "nursecheck.db")
	v.SetDefault("lock.backend", "local")
	v.SetDefault("lock.redis_addr", "localhost:6379")
	v.SetDefault("lock.ttl_seconds", 60)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("paths.records", "records")
	v.SetDefault("paths.reports", "outputs")
}

// Load reads the config file at path, or when path is empty the first of
// config/<CONFIG_ENV>/config.yaml and config.yaml that exists. With no file
// found the defaults apply. TRIAGE_* environment variables override file values.
func Load(path string) (*Root, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("TRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		for _, p := range []string{
			filepath.Join("config", env, "config.yaml"),
			"config.yaml",
		} {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Root
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// YAML renders the effective configuration with secrets masked.
func (r *Root) YAML() ([]byte, error) {
	masked := *r
	masked.Services.Transcript.APIKey = mask(masked.Services.Transcript.APIKey)
	masked.Services.Oracle.APIKey = mask(masked.Services.Oracle.APIKey)
	masked.Services.Notify.APIKey = mask(masked.Services.Notify.APIKey)
	return yaml.Marshal(&masked)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}

func DurSeconds(n int) time.Duration { return time.Duration(n) * time.Second }
