package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// envFile is loaded before reading the environment. Variables already set in
// the process environment win over the file.
var envFile = ".env"

// parseEnv overlays GODEX_* environment variables. Durations accept Go
// duration syntax ("15m"); malformed values are ignored.
func parseEnv(config *Config) {
	_ = godotenv.Load(envFile)

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	str("GODEX_HTTP_ADDR", &config.EndpointAddrHTTP)
	str("GODEX_DATABASE_DSN", &config.DatabaseDSN)
	str("GODEX_SECRET_KEY", &config.SecretKey)
	dur("GODEX_ACCESS_TOKEN_TTL", &config.AccessTokenValidityDuration)
	dur("GODEX_REFRESH_TOKEN_TTL", &config.RefreshTokenValidityDuration)
	str("GODEX_S3_ROOT_USER", &config.S3RootUser)
	str("GODEX_S3_ROOT_PASSWORD", &config.S3RootPassword)
	str("GODEX_S3_BUCKET", &config.S3Bucket)
	str("GODEX_S3_REGION", &config.S3Region)
	str("GODEX_S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	str("GODEX_NATS_URL", &config.NATSURL)
	str("GODEX_LOG_LEVEL", &config.LogLevel)
	str("GODEX_LOG_FORMAT", &config.LogFormat)
	dur("GODEX_REQUEST_TIMEOUT", &config.RequestTimeout)

	if v := os.Getenv("GODEX_CORS_ORIGINS"); v != "" {
		config.CORSOrigins = splitList(v)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
