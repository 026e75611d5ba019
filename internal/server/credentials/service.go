// Package credentials manages the short-lived signed-URL access credential
// ("hash") handed to read paths. Issuing a credential is much cheaper than a
// full profile fetch, so refresh is exposed on its own: a session whose hash
// expired can extend viewing access without re-running profile resolution.
package credentials

import (
	"context"
	"sync"
	"time"

	"github.com/lavelar/admitd/internal/logging"
	sc "github.com/lavelar/admitd/internal/server/config"
	"github.com/lavelar/admitd/internal/server/models"
)

// Issuer obtains a fresh credential value for an owner, scoped to a path
// prefix. Implemented by the metadata RPC client.
type Issuer interface {
	IssueAccessHash(ctx context.Context, ownerID, path string) (string, error)
}

// Service holds one credential per owner. Expiry is checked lazily at read
// time; there is no background eviction. Refreshes overwrite the entry
// atomically with respect to subsequent reads.
type Service struct {
	issuer Issuer
	path   string
	ttl    time.Duration
	logger logging.Logger

	// now is replaceable in tests.
	now func() time.Time

	mu    sync.Mutex
	cache map[string]models.AccessCredential
}

func NewService(issuer Issuer, cfg *sc.Config, l logging.Logger) *Service {
	return &Service{
		issuer: issuer,
		path:   "/" + cfg.BlobPathPrefix + "/",
		ttl:    cfg.HashTTL,
		logger: l.With("module", "credentials"),
		now:    time.Now,
		cache:  make(map[string]models.AccessCredential),
	}
}

// Get returns the cached credential for the owner, but only while it is
// unexpired. Past expiry the entry is treated as absent and dropped, forcing
// the caller to refresh. Never blocks on a remote call.
func (s *Service) Get(ownerID string) (models.AccessCredential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.cache[ownerID]
	if !ok {
		return models.AccessCredential{}, false
	}
	if cred.Expired(s.now()) {
		delete(s.cache, ownerID)
		return models.AccessCredential{}, false
	}
	return cred, true
}

// Refresh issues a new credential and replaces the cached entry. On failure
// it returns a zero credential with the error attached; a missing credential
// degrades the viewing experience but must not take down the read path.
func (s *Service) Refresh(ctx context.Context, ownerID string) (models.AccessCredential, error) {
	value, err := s.issuer.IssueAccessHash(ctx, ownerID, s.path)
	if err != nil {
		s.logger.Warn(ctx, "credential refresh failed", "owner_id", ownerID, "error", err)
		return models.AccessCredential{}, err
	}

	cred := models.AccessCredential{
		Value:    value,
		OwnerID:  ownerID,
		IssuedAt: s.now(),
		TTL:      s.ttl,
	}

	s.mu.Lock()
	s.cache[ownerID] = cred
	s.mu.Unlock()

	return cred, nil
}

// GetOrRefresh returns the cached credential when still valid, refreshing
// otherwise.
func (s *Service) GetOrRefresh(ctx context.Context, ownerID string) (models.AccessCredential, error) {
	if cred, ok := s.Get(ownerID); ok {
		return cred, nil
	}
	return s.Refresh(ctx, ownerID)
}

// Drop discards the owner's entry on logout or session teardown.
func (s *Service) Drop(ownerID string) {
	s.mu.Lock()
	delete(s.cache, ownerID)
	s.mu.Unlock()
}
