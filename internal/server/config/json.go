package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/lavelar/admitd/internal/flagx"
	"github.com/lavelar/admitd/internal/timex"
)

// JsonConfig is the intermediate DTO for reading a JSON configuration file.
// Interval fields use timex.Duration, which accepts both string values such
// as "5m" and integer nanoseconds. After unmarshalling, values are copied
// into the runtime Config.
type JsonConfig struct {
	EndpointAddrHTTP string         `json:"endpoint_addr_http"`
	SecretKey        string         `json:"secret_key"`
	MaxUploadBytes   int64          `json:"max_upload_bytes"`
	BlobRegion       string         `json:"blob_region"`
	BlobHost         string         `json:"blob_host"`
	BlobZone         string         `json:"blob_zone"`
	BlobAccessKey    string         `json:"blob_access_key"`
	BlobPathPrefix   string         `json:"blob_path_prefix"`
	RPCEndpoint      string         `json:"rpc_endpoint"`
	RPCAPIKey        string         `json:"rpc_api_key"`
	HashTTL          timex.Duration `json:"hash_ttl"`
	SweepEnabled     bool           `json:"sweep_enabled"`
	SweepSchedule    string         `json:"sweep_schedule"`
	SweepMinAge      timex.Duration `json:"sweep_min_age"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags into the provided Config. When no file is given, nothing
// is loaded. An unreadable or invalid file panics: a half-applied config is
// worse than a refusal to start.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.SecretKey = c.SecretKey
	config.MaxUploadBytes = c.MaxUploadBytes
	config.BlobRegion = c.BlobRegion
	config.BlobHost = c.BlobHost
	config.BlobZone = c.BlobZone
	config.BlobAccessKey = c.BlobAccessKey
	config.BlobPathPrefix = c.BlobPathPrefix
	config.RPCEndpoint = c.RPCEndpoint
	config.RPCAPIKey = c.RPCAPIKey
	config.HashTTL = time.Duration(c.HashTTL.Duration)
	config.SweepEnabled = c.SweepEnabled
	config.SweepSchedule = c.SweepSchedule
	config.SweepMinAge = time.Duration(c.SweepMinAge.Duration)
}
