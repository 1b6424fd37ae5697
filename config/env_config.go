package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type EnvConfig struct {
	Postgres struct {
		HOST     string
		Database string
		Username string
		Password string
		Port     string
	}
	JWT struct {
		SecretKey string
		Algorithm string
		Expire    int
	}
	CORS struct {
		AllowDomains string
		GlobalDomain string
	}
	Redis struct {
		Password  string
		Database  int
		RedisHost string
		RedisPort string
	}
	RabbitMQ struct {
		Host     string
		Port     string
		Username string
		Password string
	}
	EdgeStorage struct {
		Enabled              bool
		AccessKey            string
		StorageZone          string // bare zone name, sanitized on load
		Region               string // advisory: picks the regional storage host
		CustomHostname       string
		APIBase              string // override for self-hosted/staging storage endpoints
		OffloadAfterUpload   bool
		MaxConcurrentUploads int
		ThrottleTTL          time.Duration
	}
	Grafana struct {
		OTLPEndpoint string
		ServiceName  string
	}
	Environment struct {
		Mode  string
		Group string
	}
	DomainName string
}

func LoadEnvConfig() *EnvConfig {
	var config EnvConfig

	// Postgres
	config.Postgres.HOST = os.Getenv("PGPOOL_HOST")
	config.Postgres.Database = os.Getenv("PGPOOL_DB")
	config.Postgres.Username = os.Getenv("PGPOOL_USER")
	config.Postgres.Password = os.Getenv("PGPOOL_PASSWORD")
	config.Postgres.Port = os.Getenv("PGPOOL_PORT")

	// JWT
	config.JWT.SecretKey = os.Getenv("JWT_SECRET_KEY")
	config.JWT.Algorithm = os.Getenv("JWT_ALGORITHM")

	if val := os.Getenv("JWT_EXPIRE"); val != "" {
		config.JWT.Expire, _ = strconv.Atoi(val)
	} else {
		config.JWT.Expire = 3600 * 24 * 7
	}

	config.CORS.AllowDomains = os.Getenv("ALLOWED_DOMAINS")
	config.CORS.GlobalDomain = os.Getenv("GLOBAL_DOMAIN")

	config.Redis.Password = os.Getenv("REDIS_PASSWORD")
	config.Redis.Database, _ = strconv.Atoi(os.Getenv("REDIS_DB"))
	config.Redis.RedisHost = os.Getenv("REDIS_HOST")
	config.Redis.RedisPort = os.Getenv("REDIS_PORT")

	// RabbitMQ
	config.RabbitMQ.Host = os.Getenv("RABBITMQ_HOST")
	if config.RabbitMQ.Host == "" {
		config.RabbitMQ.Host = "localhost"
	}
	config.RabbitMQ.Port = os.Getenv("RABBITMQ_PORT")
	if config.RabbitMQ.Port == "" {
		config.RabbitMQ.Port = "5672"
	}
	config.RabbitMQ.Username = os.Getenv("RABBITMQ_USER")
	if config.RabbitMQ.Username == "" {
		config.RabbitMQ.Username = "guest"
	}
	config.RabbitMQ.Password = os.Getenv("RABBITMQ_PASSWORD")
	if config.RabbitMQ.Password == "" {
		config.RabbitMQ.Password = "guest"
	}

	// Edge storage (Bunny)
	config.EdgeStorage.AccessKey = os.Getenv("EDGE_STORAGE_ACCESS_KEY")
	config.EdgeStorage.StorageZone = SanitizeStorageZone(os.Getenv("EDGE_STORAGE_ZONE"))
	config.EdgeStorage.Region = os.Getenv("EDGE_STORAGE_REGION")
	config.EdgeStorage.CustomHostname = os.Getenv("EDGE_STORAGE_CUSTOM_HOSTNAME")
	config.EdgeStorage.APIBase = strings.TrimSuffix(os.Getenv("EDGE_STORAGE_API_BASE"), "/")
	config.EdgeStorage.Enabled = config.EdgeStorage.AccessKey != "" && config.EdgeStorage.StorageZone != ""
	if val := os.Getenv("EDGE_STORAGE_ENABLED"); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err == nil && !enabled {
			config.EdgeStorage.Enabled = false
		}
	}
	config.EdgeStorage.OffloadAfterUpload, _ = strconv.ParseBool(os.Getenv("OFFLOAD_AFTER_UPLOAD"))
	if val := os.Getenv("MAX_CONCURRENT_UPLOADS"); val != "" {
		config.EdgeStorage.MaxConcurrentUploads, _ = strconv.Atoi(val)
	}
	if config.EdgeStorage.MaxConcurrentUploads <= 0 {
		config.EdgeStorage.MaxConcurrentUploads = 3
	}
	if val := os.Getenv("THROTTLE_TTL_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil && seconds > 0 {
			config.EdgeStorage.ThrottleTTL = time.Duration(seconds) * time.Second
		}
	}
	if config.EdgeStorage.ThrottleTTL == 0 {
		config.EdgeStorage.ThrottleTTL = 5 * time.Minute
	}

	// Grafana/OpenTelemetry
	grafanaEndpoint := os.Getenv("GRAFANA_OTLP_ENDPOINT")
	if grafanaEndpoint == "" {
		grafanaEndpoint = "https://grafana.gauas.online"
	}
	// Remove protocol for OpenTelemetry client to avoid duplicate protocols
	if strings.HasPrefix(grafanaEndpoint, "https://") {
		config.Grafana.OTLPEndpoint = strings.TrimPrefix(grafanaEndpoint, "https://")
	} else if strings.HasPrefix(grafanaEndpoint, "http://") {
		config.Grafana.OTLPEndpoint = strings.TrimPrefix(grafanaEndpoint, "http://")
	} else {
		config.Grafana.OTLPEndpoint = grafanaEndpoint
	}
	config.Grafana.ServiceName = os.Getenv("SERVICE_NAME")
	if config.Grafana.ServiceName == "" {
		config.Grafana.ServiceName = "gau-media-offload"
	}

	config.Environment.Mode = os.Getenv("DEPLOY_ENV")
	if config.Environment.Mode == "" {
		config.Environment.Mode = "development"
	}

	config.Environment.Group = os.Getenv("GROUP_NAME")
	if config.Environment.Group == "" {
		config.Environment.Group = "local"
	}

	config.DomainName = os.Getenv("DOMAIN_NAME")
	if config.DomainName == "" {
		config.DomainName = "localhost:8080"
	}

	return &config
}

// SanitizeStorageZone reduces a storage zone value to the bare zone name.
// Operators paste full storage URLs here often enough that known URL
// fragments (scheme, storage host, slashes) are stripped instead of rejected.
func SanitizeStorageZone(zone string) string {
	zone = strings.TrimSpace(zone)
	zone = strings.TrimPrefix(zone, "https://")
	zone = strings.TrimPrefix(zone, "http://")
	if idx := strings.Index(zone, "storage.bunnycdn.com"); idx >= 0 {
		zone = zone[idx+len("storage.bunnycdn.com"):]
	}
	zone = strings.Trim(zone, "/")
	// A zone is a single path segment; keep only the first one.
	if idx := strings.Index(zone, "/"); idx >= 0 {
		zone = zone[:idx]
	}
	zone = strings.ReplaceAll(zone, ".", "")
	return zone
}
