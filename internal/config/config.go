package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"
)

// Transport names for LOTWATCH_EVENTS_TRANSPORT.
const (
	TransportWebSocket = "websocket"
	TransportNDJSON    = "ndjson"
	TransportNATS      = "nats"
)

type Config struct {
	APIURL          string        // LOTWATCH_API_URL (default "http://localhost:8000")
	EventsURL       string        // LOTWATCH_EVENTS_URL (default derived from APIURL: ws://<host>/ws/events)
	EventsTransport string        // LOTWATCH_EVENTS_TRANSPORT (websocket|ndjson|nats, default websocket)
	NATSURL         string        // LOTWATCH_NATS_URL (required for the nats transport and --relay-nats)
	PollInterval    time.Duration // LOTWATCH_POLL_INTERVAL (default 30s; 0 = disabled)
	ReconnectDelay  time.Duration // LOTWATCH_RECONNECT_DELAY (default 3s)
	TokenTTL        time.Duration // LOTWATCH_TOKEN_TTL (default 90s)
	TokenMargin     time.Duration // LOTWATCH_TOKEN_MARGIN (default 10s)
	HTTPTimeout     time.Duration // LOTWATCH_HTTP_TIMEOUT (default 10s)
	MetricsAddr     string        // LOTWATCH_METRICS_ADDR (optional, empty = no metrics server)
	LogLevel        slog.Level    // LOTWATCH_LOG_LEVEL (debug|info|warn|error, default info)

	// Archive settings
	ArchiveInterval   time.Duration // LOTWATCH_ARCHIVE_INTERVAL (default 0 = disabled)
	ArchiveS3Bucket   string        // LOTWATCH_ARCHIVE_S3_BUCKET (enables S3 when set)
	ArchiveS3Endpoint string        // LOTWATCH_ARCHIVE_S3_ENDPOINT (custom endpoint for MinIO)
	ArchiveS3Region   string        // LOTWATCH_ARCHIVE_S3_REGION (default "us-east-1")
	ArchiveS3Key      string        // LOTWATCH_ARCHIVE_S3_KEY (default "lotwatch/"; trailing slash = one object per hour)
	ArchiveGitRepo    string        // LOTWATCH_ARCHIVE_GIT_REPO (enables git when set; path to clone)
	ArchiveGitFile    string        // LOTWATCH_ARCHIVE_GIT_FILE (default "lotwatch-activity.jsonl")
	ArchiveGitBranch  string        // LOTWATCH_ARCHIVE_GIT_BRANCH (default "main")
}

func Load() (*Config, error) {
	c := &Config{
		APIURL:            strings.TrimRight(envOrDefault("LOTWATCH_API_URL", "http://localhost:8000"), "/"),
		EventsURL:         os.Getenv("LOTWATCH_EVENTS_URL"),
		EventsTransport:   strings.ToLower(envOrDefault("LOTWATCH_EVENTS_TRANSPORT", TransportWebSocket)),
		NATSURL:           os.Getenv("LOTWATCH_NATS_URL"),
		MetricsAddr:       os.Getenv("LOTWATCH_METRICS_ADDR"),
		ArchiveS3Bucket:   os.Getenv("LOTWATCH_ARCHIVE_S3_BUCKET"),
		ArchiveS3Endpoint: os.Getenv("LOTWATCH_ARCHIVE_S3_ENDPOINT"),
		ArchiveS3Region:   envOrDefault("LOTWATCH_ARCHIVE_S3_REGION", "us-east-1"),
		ArchiveS3Key:      envOrDefault("LOTWATCH_ARCHIVE_S3_KEY", "lotwatch/"),
		ArchiveGitRepo:    os.Getenv("LOTWATCH_ARCHIVE_GIT_REPO"),
		ArchiveGitFile:    envOrDefault("LOTWATCH_ARCHIVE_GIT_FILE", "lotwatch-activity.jsonl"),
		ArchiveGitBranch:  envOrDefault("LOTWATCH_ARCHIVE_GIT_BRANCH", "main"),
	}

	durations := []struct {
		key      string
		fallback string
		dst      *time.Duration
	}{
		{"LOTWATCH_POLL_INTERVAL", "30s", &c.PollInterval},
		{"LOTWATCH_RECONNECT_DELAY", "3s", &c.ReconnectDelay},
		{"LOTWATCH_TOKEN_TTL", "90s", &c.TokenTTL},
		{"LOTWATCH_TOKEN_MARGIN", "10s", &c.TokenMargin},
		{"LOTWATCH_HTTP_TIMEOUT", "10s", &c.HTTPTimeout},
		{"LOTWATCH_ARCHIVE_INTERVAL", "0", &c.ArchiveInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(envOrDefault(d.key, d.fallback))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.key, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("%s: must not be negative", d.key)
		}
		*d.dst = v
	}
	if c.ReconnectDelay == 0 {
		return nil, fmt.Errorf("LOTWATCH_RECONNECT_DELAY: must be positive")
	}
	if c.TokenMargin >= c.TokenTTL {
		return nil, fmt.Errorf("LOTWATCH_TOKEN_MARGIN (%s) must be shorter than LOTWATCH_TOKEN_TTL (%s)", c.TokenMargin, c.TokenTTL)
	}

	if err := c.LogLevel.UnmarshalText([]byte(envOrDefault("LOTWATCH_LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOTWATCH_LOG_LEVEL: %w", err)
	}

	switch c.EventsTransport {
	case TransportWebSocket, TransportNDJSON:
	case TransportNATS:
		if c.NATSURL == "" {
			return nil, fmt.Errorf("LOTWATCH_NATS_URL is required for the nats transport")
		}
	default:
		return nil, fmt.Errorf("LOTWATCH_EVENTS_TRANSPORT: unknown transport %q", c.EventsTransport)
	}

	if c.EventsURL == "" {
		u, err := EventsURLFor(c.APIURL, c.EventsTransport)
		if err != nil {
			return nil, err
		}
		c.EventsURL = u
	}

	return c, nil
}

// EventsURLFor derives the push channel URL from the backend API URL: the
// websocket transport uses ws(s)://<host>/ws/events and the ndjson
// transport http(s)://<host>/api/events.
func EventsURLFor(apiURL, transport string) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("LOTWATCH_API_URL: invalid URL %q", apiURL)
	}
	switch transport {
	case TransportNDJSON:
		u.Path = strings.TrimRight(u.Path, "/") + "/api/events"
	default:
		if u.Scheme == "https" {
			u.Scheme = "wss"
		} else {
			u.Scheme = "ws"
		}
		u.Path = strings.TrimRight(u.Path, "/") + "/ws/events"
	}
	return u.String(), nil
}

// ArchiveEnabled reports whether any archive destination is configured.
func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveInterval > 0 && (c.ArchiveS3Bucket != "" || c.ArchiveGitRepo != "")
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
