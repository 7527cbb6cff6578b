package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rwrpulse/rwrpulse/internal/platform/logging"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv             string
	ServiceName        string
	ServiceVersion     string
	HTTPAddr           string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	CORSAllowedOrigins []string
	AdminToken         string
	LogLevel           logging.Level

	ListBaseURL               string
	ListTimeout               time.Duration
	ListAggregationTimeout    time.Duration
	ListCircuitEnabled        bool
	ListCircuitFailureCount   int
	ListCircuitOpenTimeout    time.Duration
	ListCircuitHalfOpenMaxReq int

	CachePath         string
	SnapshotMaxAge    time.Duration
	PlayerCacheMaxAge time.Duration
	MapCacheMaxAge    time.Duration

	RefreshEnabled      bool
	RefreshCronSpec     string
	RefreshJobTimeout   time.Duration
	RefreshMaxWorkers   int
	PlayerDatabases     []string
	PlayerRefreshWindow int

	UptraceEnabled     bool
	UptraceDSN         string
	UptraceLogsEnabled bool

	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	listTimeout, err := time.ParseDuration(getEnv("RWRLIST_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse RWRLIST_TIMEOUT: %w", err)
	}
	if listTimeout <= 0 {
		return Config{}, fmt.Errorf("RWRLIST_TIMEOUT must be > 0")
	}
	listAggregationTimeout, err := time.ParseDuration(getEnv("RWRLIST_AGGREGATION_TIMEOUT", "20s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse RWRLIST_AGGREGATION_TIMEOUT: %w", err)
	}
	if listAggregationTimeout <= 0 {
		return Config{}, fmt.Errorf("RWRLIST_AGGREGATION_TIMEOUT must be > 0")
	}

	listCircuitEnabled, err := strconv.ParseBool(getEnv("RWRLIST_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse RWRLIST_CIRCUIT_ENABLED: %w", err)
	}
	listCircuitFailureCount, err := getEnvAsInt("RWRLIST_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse RWRLIST_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if listCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("RWRLIST_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	listCircuitOpenTimeout, err := time.ParseDuration(getEnv("RWRLIST_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse RWRLIST_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if listCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("RWRLIST_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	listCircuitHalfOpenMaxReq, err := getEnvAsInt("RWRLIST_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse RWRLIST_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if listCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("RWRLIST_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	snapshotMaxAge, err := time.ParseDuration(getEnv("CACHE_SNAPSHOT_MAX_AGE", "24h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_SNAPSHOT_MAX_AGE: %w", err)
	}
	if snapshotMaxAge <= 0 {
		return Config{}, fmt.Errorf("CACHE_SNAPSHOT_MAX_AGE must be > 0")
	}
	playerCacheMaxAge, err := time.ParseDuration(getEnv("CACHE_PLAYER_MAX_AGE", "24h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_PLAYER_MAX_AGE: %w", err)
	}
	if playerCacheMaxAge <= 0 {
		return Config{}, fmt.Errorf("CACHE_PLAYER_MAX_AGE must be > 0")
	}
	mapCacheMaxAge, err := time.ParseDuration(getEnv("CACHE_MAP_MAX_AGE", "6h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_MAP_MAX_AGE: %w", err)
	}
	if mapCacheMaxAge <= 0 {
		return Config{}, fmt.Errorf("CACHE_MAP_MAX_AGE must be > 0")
	}

	refreshEnabled, err := strconv.ParseBool(getEnv("REFRESH_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse REFRESH_ENABLED: %w", err)
	}
	refreshJobTimeout, err := time.ParseDuration(getEnv("REFRESH_JOB_TIMEOUT", "2m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse REFRESH_JOB_TIMEOUT: %w", err)
	}
	if refreshJobTimeout <= 0 {
		return Config{}, fmt.Errorf("REFRESH_JOB_TIMEOUT must be > 0")
	}
	refreshMaxWorkers, err := getEnvAsInt("REFRESH_MAX_WORKERS", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse REFRESH_MAX_WORKERS: %w", err)
	}
	if refreshMaxWorkers < 1 {
		return Config{}, fmt.Errorf("REFRESH_MAX_WORKERS must be >= 1")
	}
	playerRefreshWindow, err := getEnvAsInt("PLAYER_REFRESH_WINDOW", 100)
	if err != nil {
		return Config{}, fmt.Errorf("parse PLAYER_REFRESH_WINDOW: %w", err)
	}
	if playerRefreshWindow < 1 {
		return Config{}, fmt.Errorf("PLAYER_REFRESH_WINDOW must be >= 1")
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	uptraceLogsEnabled, err := strconv.ParseBool(getEnv("UPTRACE_LOGS_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_LOGS_ENABLED: %w", err)
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	cfg := Config{
		AppEnv:             appEnv,
		ServiceName:        getEnv("APP_SERVICE_NAME", "rwrpulse-api"),
		ServiceVersion:     getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:           getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:        readTimeout,
		WriteTimeout:       writeTimeout,
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		AdminToken:         strings.TrimSpace(getEnv("ADMIN_TOKEN", "")),
		LogLevel:           parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),

		ListBaseURL:               strings.TrimSpace(getEnv("RWRLIST_BASE_URL", "https://master.rwrpulse.net")),
		ListTimeout:               listTimeout,
		ListAggregationTimeout:    listAggregationTimeout,
		ListCircuitEnabled:        listCircuitEnabled,
		ListCircuitFailureCount:   listCircuitFailureCount,
		ListCircuitOpenTimeout:    listCircuitOpenTimeout,
		ListCircuitHalfOpenMaxReq: listCircuitHalfOpenMaxReq,

		CachePath:         strings.TrimSpace(getEnv("CACHE_PATH", "data/rwrpulse.db")),
		SnapshotMaxAge:    snapshotMaxAge,
		PlayerCacheMaxAge: playerCacheMaxAge,
		MapCacheMaxAge:    mapCacheMaxAge,

		RefreshEnabled:      refreshEnabled,
		RefreshCronSpec:     strings.TrimSpace(getEnv("REFRESH_CRON_SPEC", "*/5 * * * *")),
		RefreshJobTimeout:   refreshJobTimeout,
		RefreshMaxWorkers:   refreshMaxWorkers,
		PlayerDatabases:     splitCSV(getEnv("PLAYER_DATABASES", "invasion,pacific")),
		PlayerRefreshWindow: playerRefreshWindow,

		UptraceEnabled:     uptraceEnabled,
		UptraceDSN:         uptraceDSN,
		UptraceLogsEnabled: uptraceLogsEnabled,

		PyroscopeEnabled:           pyroscopeEnabled,
		PyroscopeServerAddress:     pyroscopeServerAddress,
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:        pyroscopeUploadRate,
	}

	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if cfg.ListBaseURL == "" {
		return Config{}, fmt.Errorf("RWRLIST_BASE_URL cannot be empty")
	}
	if cfg.CachePath == "" {
		return Config{}, fmt.Errorf("CACHE_PATH cannot be empty")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	return cfg, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
