package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const envPrefix = "TASKFLOW_"

// Config captures the runtime configuration of the taskflow service.
type Config struct {
	HTTPPort             int
	SQLiteDSN            string
	SessionTTL           time.Duration
	SessionPurgeSchedule string
	MetricsEnabled       bool
	LogLevel             string
	LogFormat            string
	TimeZone             string
	Location             *time.Location
	CookieSecure         bool
}

// LoadOptions controls where configuration values are read from.
type LoadOptions struct {
	// ConfigFile is an optional YAML file. Overridden by TASKFLOW_CONFIG or --config.
	ConfigFile string
	// EnvFile is an optional dotenv file. Missing files are ignored.
	EnvFile string
	// Flags holds flags registered with RegisterFlags; only changed flags apply.
	Flags *pflag.FlagSet
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

type setting struct {
	key   string
	flag  string
	usage string
}

var settings = []setting{
	{key: "http_port", flag: "http-port", usage: "HTTP listen port"},
	{key: "sqlite_dsn", flag: "sqlite-dsn", usage: "SQLite database path or DSN"},
	{key: "session_ttl", flag: "session-ttl", usage: "session lifetime, e.g. 24h"},
	{key: "session_purge_schedule", flag: "session-purge-schedule", usage: "cron spec for expired session cleanup"},
	{key: "metrics_enabled", flag: "metrics-enabled", usage: "expose prometheus metrics on /metrics"},
	{key: "log_level", flag: "log-level", usage: "debug, info, warn or error"},
	{key: "log_format", flag: "log-format", usage: "json or text"},
	{key: "time_zone", flag: "time-zone", usage: "IANA zone used for day boundaries"},
	{key: "cookie_secure", flag: "cookie-secure", usage: "mark session cookies Secure"},
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML configuration file")
	fs.String("env-file", ".env", "path to a dotenv file")
	for _, s := range settings {
		fs.String(s.flag, "", s.usage)
	}
}

// EnvName returns the environment variable that carries key.
func EnvName(key string) string {
	return envPrefix + strings.ToUpper(key)
}

// Load resolves configuration from defaults, the YAML file, the dotenv file,
// the process environment and flags, in increasing precedence.
func Load(opts LoadOptions) (Config, error) {
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	configFile := opts.ConfigFile
	envFile := opts.EnvFile
	if v, ok := lookup(EnvName("config")); ok && strings.TrimSpace(v) != "" {
		configFile = v
	}
	if opts.Flags != nil {
		if f := opts.Flags.Lookup("config"); f != nil && f.Changed {
			configFile = f.Value.String()
		}
		if f := opts.Flags.Lookup("env-file"); f != nil && f.Changed {
			envFile = f.Value.String()
		}
	}

	raw := make(map[string]string, len(settings))

	if configFile != "" {
		values, err := readYAML(configFile)
		if err != nil {
			return Config{}, err
		}
		for k, v := range values {
			raw[k] = v
		}
	}

	var dotenv map[string]string
	if envFile != "" {
		values, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			dotenv = values
		case os.IsNotExist(err):
		default:
			return Config{}, fmt.Errorf("read env file %s: %w", envFile, err)
		}
	}

	for _, s := range settings {
		name := EnvName(s.key)
		if v, ok := dotenv[name]; ok {
			raw[s.key] = v
		}
		if v, ok := lookup(name); ok {
			raw[s.key] = v
		}
		if opts.Flags != nil {
			if f := opts.Flags.Lookup(s.flag); f != nil && f.Changed {
				raw[s.key] = f.Value.String()
			}
		}
	}

	return parse(raw)
}

func readYAML(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	values := make(map[string]string, len(doc))
	for k, v := range doc {
		if v == nil {
			continue
		}
		values[strings.ToLower(k)] = fmt.Sprint(v)
	}
	return values, nil
}

func parse(raw map[string]string) (Config, error) {
	cfg := Config{
		HTTPPort:             8080,
		SessionTTL:           24 * time.Hour,
		SessionPurgeSchedule: "@every 1h",
		MetricsEnabled:       true,
		LogLevel:             "info",
		LogFormat:            "json",
		TimeZone:             "UTC",
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	get := func(key string) string { return strings.TrimSpace(raw[key]) }

	if v := get("http_port"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, EnvName("http_port"))
		} else {
			cfg.HTTPPort = port
		}
	}

	if v := get("sqlite_dsn"); v == "" {
		missing = append(missing, EnvName("sqlite_dsn"))
	} else {
		cfg.SQLiteDSN = v
	}

	if v := get("session_ttl"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, EnvName("session_ttl"))
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if v := get("session_purge_schedule"); v != "" {
		if _, err := cron.ParseStandard(v); err != nil {
			invalid = append(invalid, EnvName("session_purge_schedule"))
		} else {
			cfg.SessionPurgeSchedule = v
		}
	}

	if v := get("metrics_enabled"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			invalid = append(invalid, EnvName("metrics_enabled"))
		} else {
			cfg.MetricsEnabled = enabled
		}
	}

	if v := get("log_level"); v != "" {
		switch strings.ToLower(v) {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = strings.ToLower(v)
		default:
			invalid = append(invalid, EnvName("log_level"))
		}
	}

	if v := get("log_format"); v != "" {
		switch strings.ToLower(v) {
		case "json", "text":
			cfg.LogFormat = strings.ToLower(v)
		default:
			invalid = append(invalid, EnvName("log_format"))
		}
	}

	if v := get("time_zone"); v != "" {
		cfg.TimeZone = v
	}
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		invalid = append(invalid, EnvName("time_zone"))
	} else {
		cfg.Location = loc
	}

	if v := get("cookie_secure"); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			invalid = append(invalid, EnvName("cookie_secure"))
		} else {
			cfg.CookieSecure = secure
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid configuration values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
