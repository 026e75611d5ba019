// Package blobstore is a thin HTTP client for the object-storage endpoint
// holding answer files. Objects are addressed as
//
//	https://{region}.{host}/{zone}/{prefix}/{percent-encoded key}
//
// and every call authenticates with the AccessKey header. The client keeps
// no local state and never retries: a failed call returns immediately and
// retry policy stays with the caller.
package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lavelar/admitd/internal/common"
	"github.com/lavelar/admitd/internal/logging"
	sc "github.com/lavelar/admitd/internal/server/config"
)

const requestTimeout = 30 * time.Second

// Client performs authenticated PUT/DELETE/LIST calls against the blob
// endpoint configured at construction.
type Client struct {
	httpClient *http.Client
	// base is the scheme+authority part, e.g. "https://br.storage.bunnycdn.com".
	base      string
	zone      string
	accessKey string
	prefix    string
	logger    logging.Logger
}

func NewClient(cfg *sc.Config, l logging.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		base:       fmt.Sprintf("https://%s.%s", cfg.BlobRegion, cfg.BlobHost),
		zone:       cfg.BlobZone,
		accessKey:  cfg.BlobAccessKey,
		prefix:     cfg.BlobPathPrefix,
		logger:     l.With("module", "blobstore"),
	}
}

// checkConfigured guards every call: with storage credentials missing, each
// request must fail immediately without a network attempt.
func (c *Client) checkConfigured() error {
	if c.zone == "" || c.accessKey == "" {
		return fmt.Errorf("%w: storage zone/access key missing", common.ErrConfiguration)
	}
	return nil
}

func (c *Client) objectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s/%s", c.base, c.zone, c.prefix, url.PathEscape(key))
}

// Put writes data under the fixed prefix plus key.
func (c *Client) Put(ctx context.Context, key string, data []byte) error {
	if err := c.checkConfigured(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.objectURL(key), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrTransport, err)
	}
	req.Header.Set("AccessKey", c.accessKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: blob put status %d: %s", common.ErrRemote, resp.StatusCode, readErrorBody(resp.Body))
	}

	c.logger.Debug(ctx, "blob written", "key", key, "size", len(data))
	return nil
}

// Delete removes the object stored under key. A remote "not found" is still
// reported as an error here; tolerating it is the coordinator's call, not
// the client's.
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.checkConfigured(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.objectURL(key), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrTransport, err)
	}
	req.Header.Set("AccessKey", c.accessKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: blob delete status %d: %s", common.ErrRemote, resp.StatusCode, readErrorBody(resp.Body))
	}

	c.logger.Debug(ctx, "blob deleted", "key", key)
	return nil
}

// ObjectInfo describes one stored object as reported by the listing API.
type ObjectInfo struct {
	Key         string    `json:"ObjectName"`
	LastChanged Timestamp `json:"LastChanged"`
	IsDirectory bool      `json:"IsDirectory"`
}

// Timestamp parses the endpoint's unzoned timestamps, with or without a
// fractional second.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.Parse("2006-01-02T15:04:05.999999999", s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// List returns the objects currently stored under the fixed prefix.
// Directory entries are skipped. Used by the reconciliation sweep only.
func (c *Client) List(ctx context.Context) ([]ObjectInfo, error) {
	if err := c.checkConfigured(); err != nil {
		return nil, err
	}

	listURL := fmt.Sprintf("%s/%s/%s/", c.base, c.zone, c.prefix)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrTransport, err)
	}
	req.Header.Set("AccessKey", c.accessKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: blob list status %d: %s", common.ErrRemote, resp.StatusCode, readErrorBody(resp.Body))
	}

	var objects []ObjectInfo
	if err := json.NewDecoder(resp.Body).Decode(&objects); err != nil {
		return nil, fmt.Errorf("%w: decoding blob listing: %v", common.ErrRemote, err)
	}

	result := make([]ObjectInfo, 0, len(objects))
	for _, o := range objects {
		if o.IsDirectory {
			continue
		}
		result = append(result, o)
	}
	return result, nil
}

func readErrorBody(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
