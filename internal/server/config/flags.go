package config

import (
	"flag"
	"io"
	"os"

	"github.com/dmitrijs2005/godex/internal/flagx"
)

// serverFlags lists every short flag the server owns. Anything else on the
// command line (test runner flags, -c) is filtered out before parsing.
var serverFlags = []string{"-a", "-d", "-s", "-t", "-r", "-u", "-p", "-b", "-g", "-e", "-n", "-l", "-f", "-o", "-w"}

// parseFlags overlays command-line flags onto config. Durations use Go
// syntax ("15m", "168h"), the same as the environment and config file.
//
//	-a  HTTP bind address          -d  PostgreSQL DSN
//	-s  JWT HMAC secret            -t  access token TTL
//	-r  refresh token TTL          -w  per-request timeout
//	-u  S3 root user               -p  S3 root password
//	-b  S3 export bucket           -g  S3 region
//	-e  S3 base endpoint           -n  NATS URL, empty disables events
//	-l  log level                  -f  log format, json or text
//	-o  comma-separated CORS origins
func parseFlags(config *Config) {
	fs := flag.NewFlagSet("godex-server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP bind address")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "PostgreSQL DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "JWT secret")
	fs.DurationVar(&config.AccessTokenValidityDuration, "t", config.AccessTokenValidityDuration, "access token TTL")
	fs.DurationVar(&config.RefreshTokenValidityDuration, "r", config.RefreshTokenValidityDuration, "refresh token TTL")
	fs.DurationVar(&config.RequestTimeout, "w", config.RequestTimeout, "request timeout")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket for exports")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.NATSURL, "n", config.NATSURL, "NATS URL")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "f", config.LogFormat, "log format")
	fs.Func("o", "CORS origins", func(v string) error {
		config.CORSOrigins = splitList(v)
		return nil
	})

	if err := fs.Parse(flagx.FilterArgs(os.Args[1:], serverFlags)); err != nil {
		panic(err)
	}
}
