package config

import (
	"flag"
	"os"
	"time"

	"github.com/lavelar/admitd/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-s string   token HMAC secret key
//	-g string   blob storage region (e.g., "br")
//	-n string   blob storage host
//	-z string   blob storage zone name
//	-k string   blob storage access key
//	-x string   blob path prefix
//	-e string   RPC endpoint base URL
//	-y string   RPC api key
//	-t int      access credential TTL, minutes
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. The TTL flag
// is accepted as an integer in minutes and converted to a time.Duration.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-s", "-g", "-n", "-z", "-k", "-x", "-e", "-y", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.BlobRegion, "g", config.BlobRegion, "blob storage region")
	fs.StringVar(&config.BlobHost, "n", config.BlobHost, "blob storage host")
	fs.StringVar(&config.BlobZone, "z", config.BlobZone, "blob storage zone")
	fs.StringVar(&config.BlobAccessKey, "k", config.BlobAccessKey, "blob storage access key")
	fs.StringVar(&config.BlobPathPrefix, "x", config.BlobPathPrefix, "blob path prefix")
	fs.StringVar(&config.RPCEndpoint, "e", config.RPCEndpoint, "RPC endpoint base URL")
	fs.StringVar(&config.RPCAPIKey, "y", config.RPCAPIKey, "RPC api key")

	hashTTL := fs.Int("t", int(config.HashTTL.Minutes()), "access credential TTL (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.HashTTL = time.Duration(*hashTTL) * time.Minute
}
