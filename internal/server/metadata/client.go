// Package metadata is the typed RPC client for the relational backend.
// All access goes through named remote procedures invoked as
//
//	POST {endpoint}/rpc/{procedure}
//
// with a JSON parameter object. Responses use a {data, error} envelope and a
// non-null error means failure regardless of the HTTP status. The client
// keeps no local cache.
package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lavelar/admitd/internal/common"
	"github.com/lavelar/admitd/internal/logging"
	sc "github.com/lavelar/admitd/internal/server/config"
	"github.com/lavelar/admitd/internal/server/models"
)

// Remote procedure names. The backend treats these as its public surface;
// parameters and results are versioned with the procedures themselves.
const (
	procSaveFileAnswer   = "save_file_answer"
	procDeleteFileAnswer = "delete_file_answer"
	procGetOwnerProfile  = "get_owner_profile"
	procListFileAnswers  = "list_file_answers"
	procIssueAccessHash  = "issue_access_hash"
)

const requestTimeout = 30 * time.Second

type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	logger     logging.Logger
}

func NewClient(cfg *sc.Config, l logging.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		endpoint:   strings.TrimRight(cfg.RPCEndpoint, "/"),
		apiKey:     cfg.RPCAPIKey,
		logger:     l.With("module", "metadata"),
	}
}

type rpcError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type rpcEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *rpcError       `json:"error"`
}

// call invokes one named procedure and returns the raw data payload.
func (c *Client) call(ctx context.Context, procedure string, params any) (json.RawMessage, error) {
	if c.endpoint == "" || c.apiKey == "" {
		return nil, fmt.Errorf("%w: rpc endpoint/api key missing", common.ErrConfiguration)
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding %s params: %v", common.ErrValidation, procedure, err)
	}

	url := fmt.Sprintf("%s/rpc/%s", c.endpoint, procedure)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrTransport, procedure, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s response: %v", common.ErrTransport, procedure, err)
	}

	var envelope rpcEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %s status %d: undecodable response", common.ErrRemote, procedure, resp.StatusCode)
	}

	// The envelope error wins over the HTTP status: a 200 with a non-null
	// error is a failure, and a 4xx/5xx with a null error still fails.
	if envelope.Error != nil {
		return nil, fmt.Errorf("%w: %s: %s (%s)", common.ErrRemote, procedure, envelope.Error.Message, envelope.Error.Code)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s status %d", common.ErrRemote, procedure, resp.StatusCode)
	}

	return envelope.Data, nil
}

// RecordAnswer invokes the "save file answer" procedure. The procedure
// upserts per (owner, question), so repeating the call replaces rather than
// duplicates the row; the client only passes success or failure through.
func (c *Client) RecordAnswer(ctx context.Context, ref models.AssetReference) error {
	params := map[string]any{
		"p_owner_id":      ref.OwnerID,
		"p_question_id":   ref.QuestionID,
		"p_storage_key":   ref.StorageKey,
		"p_original_name": ref.OriginalName,
	}
	if ref.ClassID != "" {
		params["p_class_id"] = ref.ClassID
	} else {
		params["p_class_id"] = nil
	}

	_, err := c.call(ctx, procSaveFileAnswer, params)
	return err
}

// EraseAnswer invokes the "delete file answer" procedure. Erasing a row that
// does not exist is a success on the remote side (no-op).
func (c *Client) EraseAnswer(ctx context.Context, ownerID, questionID string) error {
	_, err := c.call(ctx, procDeleteFileAnswer, map[string]any{
		"p_owner_id":    ownerID,
		"p_question_id": questionID,
	})
	return err
}

// OwnerProfile is the expanded profile row behind an authenticated identity.
type OwnerProfile struct {
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
}

// ResolveOwner maps an authenticated identity to the owner profile used by
// every other operation. A missing profile row, a null payload or an empty
// owner id all surface as ErrNotFound: an incomplete profile must reach the
// caller as such, never as a silently empty owner id.
func (c *Client) ResolveOwner(ctx context.Context, authID string) (*OwnerProfile, error) {
	data, err := c.call(ctx, procGetOwnerProfile, map[string]any{"p_auth_id": authID})
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || string(data) == "null" {
		return nil, fmt.Errorf("%w: no profile for identity", common.ErrNotFound)
	}

	var profile OwnerProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("%w: decoding profile: %v", common.ErrRemote, err)
	}
	if profile.OwnerID == "" {
		return nil, fmt.Errorf("%w: profile incomplete", common.ErrNotFound)
	}
	return &profile, nil
}

// ResolveOwnerID is ResolveOwner reduced to the identifier.
func (c *Client) ResolveOwnerID(ctx context.Context, authID string) (string, error) {
	profile, err := c.ResolveOwner(ctx, authID)
	if err != nil {
		return "", err
	}
	return profile.OwnerID, nil
}

// ListAnswerKeys returns every storage key currently referenced by a file
// answer row. Consumed by the reconciliation sweep.
func (c *Client) ListAnswerKeys(ctx context.Context) ([]string, error) {
	data, err := c.call(ctx, procListFileAnswers, map[string]any{})
	if err != nil {
		return nil, err
	}

	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("%w: decoding answer keys: %v", common.ErrRemote, err)
	}
	return keys, nil
}

// IssueAccessHash invokes the credential-issuing procedure scoped to the
// given path prefix and returns the signed-URL value.
func (c *Client) IssueAccessHash(ctx context.Context, ownerID, path string) (string, error) {
	data, err := c.call(ctx, procIssueAccessHash, map[string]any{
		"p_owner_id": ownerID,
		"p_path":     path,
	})
	if err != nil {
		return "", err
	}

	var result struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("%w: decoding access hash: %v", common.ErrRemote, err)
	}
	if result.URL == "" {
		return "", fmt.Errorf("%w: empty access hash", common.ErrRemote)
	}
	return result.URL, nil
}
