// Package config handles configuration for the admitd server,
// including defaults, JSON overlay, and command-line flags.
package config

import (
	"fmt"
	"time"

	"github.com/lavelar/admitd/internal/common"
)

// Config holds runtime settings for the admitd server.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the public HTTP endpoint.
//   - SecretKey: HMAC secret shared with the identity provider for verifying
//     bearer tokens (HS256). Do not use test defaults in prod.
//   - MaxUploadBytes: request body cap for the upload endpoint.
//   - BlobRegion / BlobHost / BlobZone: object-storage endpoint parts; uploads
//     land at https://{region}.{host}/{zone}/{prefix}/{key}.
//   - BlobAccessKey: secret sent as the AccessKey header on blob calls.
//   - BlobPathPrefix: fixed logical folder all answer files live under.
//   - RPCEndpoint / RPCAPIKey: named-procedure endpoint of the relational
//     backend and its api key.
//   - HashTTL: lifetime of the short-lived signed-URL access credential.
//   - SweepEnabled / SweepSchedule / SweepMinAge: orphan-blob reconciliation
//     sweep (off by default; min age protects in-flight uploads).
type Config struct {
	EndpointAddrHTTP string
	SecretKey        string
	MaxUploadBytes   int64

	BlobRegion     string
	BlobHost       string
	BlobZone       string
	BlobAccessKey  string
	BlobPathPrefix string

	RPCEndpoint string
	RPCAPIKey   string

	HashTTL time.Duration

	SweepEnabled  bool
	SweepSchedule string
	SweepMinAge   time.Duration
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.SecretKey = "secretKey"
	c.MaxUploadBytes = 6 << 20
	c.BlobRegion = "br"
	c.BlobHost = "storage.bunnycdn.com"
	c.BlobZone = "admitd-dev"
	c.BlobAccessKey = "dev-access-key"
	c.BlobPathPrefix = "usr"
	c.RPCEndpoint = "http://127.0.0.1:54321/rest/v1"
	c.RPCAPIKey = "dev-api-key"
	c.HashTTL = 5 * time.Minute
	c.SweepEnabled = false
	c.SweepSchedule = "10 3 * * *"
	c.SweepMinAge = 24 * time.Hour
}

// Validate reports missing settings the server cannot start without.
// A missing storage or RPC secret must fail at startup rather than on the
// first request.
func (c *Config) Validate() error {
	if c.BlobZone == "" || c.BlobAccessKey == "" {
		return fmt.Errorf("%w: storage zone/access key missing", common.ErrConfiguration)
	}
	if c.RPCEndpoint == "" || c.RPCAPIKey == "" {
		return fmt.Errorf("%w: rpc endpoint/api key missing", common.ErrConfiguration)
	}
	if c.SecretKey == "" {
		return fmt.Errorf("%w: token secret missing", common.ErrConfiguration)
	}
	return nil
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
