// Package web is the HTTP layer consumed by the portal frontend. It binds
// and validates request bodies, rejects unauthenticated calls, and maps the
// coordinator's aggregated results onto HTTP statuses. All domain decisions
// live below it.
package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lavelar/admitd/internal/logging"
	"github.com/lavelar/admitd/internal/server/assets"
	sc "github.com/lavelar/admitd/internal/server/config"
	"github.com/lavelar/admitd/internal/server/metadata"
	"github.com/lavelar/admitd/internal/server/models"
)

// Coordinator is the asset surface exposed upward by the assets package.
type Coordinator interface {
	UploadAsset(ctx context.Context, req assets.UploadRequest) (models.AssetReference, models.AggregatedResult, error)
	DeleteAsset(ctx context.Context, ownerID, questionID, storageKey string) (models.AggregatedResult, error)
}

// ProfileResolver maps an authenticated identity to the owner profile.
type ProfileResolver interface {
	ResolveOwner(ctx context.Context, authID string) (*metadata.OwnerProfile, error)
}

// CredentialProvider serves and refreshes the signed-URL access credential.
type CredentialProvider interface {
	GetOrRefresh(ctx context.Context, ownerID string) (models.AccessCredential, error)
	Refresh(ctx context.Context, ownerID string) (models.AccessCredential, error)
}

type Server struct {
	address     string
	engine      *gin.Engine
	coordinator Coordinator
	profiles    ProfileResolver
	credentials CredentialProvider
	jwtSecret   []byte
	maxBody     int64
	logger      logging.Logger
}

func NewServer(cfg *sc.Config, l logging.Logger, coordinator Coordinator, profiles ProfileResolver, credentials CredentialProvider) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		address:     cfg.EndpointAddrHTTP,
		coordinator: coordinator,
		profiles:    profiles,
		credentials: credentials,
		jwtSecret:   []byte(cfg.SecretKey),
		maxBody:     cfg.MaxUploadBytes,
		logger:      l.With("module", "web"),
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())

	engine.GET("/healthz", s.handleHealth)

	api := engine.Group("/api", s.requireAuth())
	api.POST("/answers/upload", s.limitBody(), s.handleUpload)
	api.POST("/answers/delete", s.handleDelete)
	api.POST("/refresh-hash", s.handleRefreshHash)
	api.GET("/me", s.handleMe)

	s.engine = engine
	return s
}

// Handler exposes the routing tree; used by tests and by Run.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.engine,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		_ = srv.Shutdown(context.Background())
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
