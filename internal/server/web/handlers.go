package web

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lavelar/admitd/internal/common"
	"github.com/lavelar/admitd/internal/server/assets"
	"github.com/lavelar/admitd/internal/server/metadata"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// resolveOwner maps the request's identity to its owner profile, writing the
// error response itself when that fails. A missing or incomplete profile is
// the caller's problem (403), anything else is a bad gateway.
func (s *Server) resolveOwner(c *gin.Context) (*metadata.OwnerProfile, bool) {
	profile, err := s.profiles.ResolveOwner(c.Request.Context(), identity(c).Subject)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			c.JSON(http.StatusForbidden, gin.H{"error": "profile incomplete"})
		} else {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return nil, false
	}
	return profile, true
}

type uploadRequest struct {
	FileBase64   string `json:"file_base64" binding:"required"`
	OriginalName string `json:"original_name"`
	QuestionID   string `json:"question_id" binding:"required"`
	ClassID      string `json:"class_id" binding:"required"`
}

func (s *Server) handleUpload(c *gin.Context) {
	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.FileBase64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file encoding"})
		return
	}

	profile, ok := s.resolveOwner(c)
	if !ok {
		return
	}

	ref, result, err := s.coordinator.UploadAsset(c.Request.Context(), assets.UploadRequest{
		OwnerID:      profile.OwnerID,
		QuestionID:   req.QuestionID,
		ClassID:      req.ClassID,
		OriginalName: req.OriginalName,
		Data:         data,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !result.OverallSucceeded {
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "result": result})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "storage_key": ref.StorageKey, "result": result})
}

type deleteRequest struct {
	StorageKey string `json:"storage_key" binding:"required"`
	QuestionID string `json:"question_id" binding:"required"`
}

func (s *Server) handleDelete(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
		return
	}

	profile, ok := s.resolveOwner(c)
	if !ok {
		return
	}

	result, err := s.coordinator.DeleteAsset(c.Request.Context(), profile.OwnerID, req.QuestionID, req.StorageKey)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Either side confirming removal is good enough; only a double failure
	// asks the caller to retry.
	if !result.OverallSucceeded {
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "result": result})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// handleRefreshHash renews only the access credential. It skips profile
// resolution, and a failed refresh returns an absent hash, not an HTTP error.
func (s *Server) handleRefreshHash(c *gin.Context) {
	cred, err := s.credentials.Refresh(c.Request.Context(), identity(c).Subject)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"hash_base": nil, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"hash_base":    cred.Value,
		"refreshed_at": cred.IssuedAt.Format(time.RFC3339),
	})
}

// handleMe hydrates the session: the owner profile plus a valid access
// credential. A credential failure degrades the response; it never blocks
// the profile data.
func (s *Server) handleMe(c *gin.Context) {
	profile, ok := s.resolveOwner(c)
	if !ok {
		return
	}

	resp := gin.H{
		"owner_id":  profile.OwnerID,
		"name":      profile.Name,
		"email":     profile.Email,
		"hash_base": nil,
	}

	cred, err := s.credentials.GetOrRefresh(c.Request.Context(), identity(c).Subject)
	if err != nil {
		resp["hash_error"] = err.Error()
	} else {
		resp["hash_base"] = cred.Value
	}

	c.JSON(http.StatusOK, resp)
}
