// Package config holds the application configuration and loads it from the environment.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultListenAddr   = ":8000"
	defaultRegistryPath = "manifest.yaml"

	defaultCallTimeout     = 10 * time.Second
	defaultDispatchWorkers = 4
	defaultDispatchQueue   = 64
	defaultDispatchRetries = 3
	defaultDispatchBackoff = 500 * time.Millisecond
	defaultJobTimeout      = time.Minute
)

// HTTPConfig holds the HTTP server settings.
type HTTPConfig struct {
	ListenAddr   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// GitHubConfig holds credentials and automation switches for GitHub.
type GitHubConfig struct {
	Token                string
	User                 string
	WebhookSecret        string
	PushDisabled         bool
	FilterContributors   bool
	ProtectDefaultBranch bool
	ProtectedBranches    []string
	CallTimeout          time.Duration
}

// SlackConfig holds Slack credentials. AppToken enables Socket Mode.
type SlackConfig struct {
	BotToken      string
	AppToken      string
	SigningSecret string
}

// RegistryConfig locates the registry file.
type RegistryConfig struct {
	Path string
}

// DispatchConfig bounds background response delivery.
type DispatchConfig struct {
	Workers   int
	QueueSize int
	Retries   int
	Backoff   time.Duration
	Timeout   time.Duration
}

// Config aggregates the configuration of every subsystem.
type Config struct {
	HTTP     HTTPConfig
	GitHub   GitHubConfig
	Slack    SlackConfig
	Registry RegistryConfig
	Dispatch DispatchConfig
}

// Load reads the configuration from environment variables.
func Load() Config {
	return Config{
		HTTP: HTTPConfig{
			ListenAddr:   getEnv("CTRL_LISTEN_ADDR", defaultListenAddr),
			ReadTimeout:  getDurationEnv("CTRL_HTTP_READ_TIMEOUT", 5*time.Second),
			WriteTimeout: getDurationEnv("CTRL_HTTP_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDurationEnv("CTRL_HTTP_IDLE_TIMEOUT", 60*time.Second),
		},
		GitHub: GitHubConfig{
			Token:                os.Getenv("GITHUB_TOKEN"),
			User:                 os.Getenv("GITHUB_USER"),
			WebhookSecret:        os.Getenv("GITHUB_WEBHOOK_SECRET"),
			PushDisabled:         os.Getenv("GITHUB_PUSH_DISABLE") == "1",
			FilterContributors:   getBoolEnv("CTRL_FILTER_CONTRIBUTORS", false),
			ProtectDefaultBranch: getBoolEnv("CTRL_PROTECT_DEFAULT_BRANCH", false),
			ProtectedBranches:    getListEnv("CTRL_PROTECTED_BRANCHES", []string{"master", "main"}),
			CallTimeout:          getDurationEnv("CTRL_CALL_TIMEOUT", defaultCallTimeout),
		},
		Slack: SlackConfig{
			BotToken:      os.Getenv("SLACK_BOT_TOKEN"),
			AppToken:      os.Getenv("SLACK_APP_TOKEN"),
			SigningSecret: os.Getenv("SLACK_SIGNING_SECRET"),
		},
		Registry: RegistryConfig{
			Path: getEnv("CTRL_REGISTRY_PATH", defaultRegistryPath),
		},
		Dispatch: DispatchConfig{
			Workers:   getIntEnv("CTRL_DISPATCH_WORKERS", defaultDispatchWorkers),
			QueueSize: getIntEnv("CTRL_DISPATCH_QUEUE", defaultDispatchQueue),
			Retries:   getIntEnv("CTRL_DISPATCH_RETRIES", defaultDispatchRetries),
			Backoff:   getDurationEnv("CTRL_DISPATCH_BACKOFF", defaultDispatchBackoff),
			Timeout:   getDurationEnv("CTRL_JOB_TIMEOUT", defaultJobTimeout),
		},
	}
}

// ValidateServe checks the settings required to run the server.
func (c Config) ValidateServe() error {
	var errs []error
	if c.GitHub.Token == "" {
		errs = append(errs, errors.New("GITHUB_TOKEN environment variable is not set"))
	}
	if c.Slack.AppToken != "" && c.Slack.BotToken == "" {
		errs = append(errs, errors.New("SLACK_APP_TOKEN requires SLACK_BOT_TOKEN"))
	}
	if !c.GitHub.PushDisabled && c.GitHub.User == "" {
		errs = append(errs, errors.New("GITHUB_USER is required unless GITHUB_PUSH_DISABLE=1"))
	}
	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getListEnv(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
