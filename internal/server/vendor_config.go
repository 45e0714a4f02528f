package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	snapshotdomain "github.com/AssetWorks-R-D/ai-spend-dashboard/internal/snapshot/domain"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/tenant"
)

// ListVendorConfigs returns vendor configs without credential material.
func (s *Server) ListVendorConfigs(c *gin.Context) {
	ctx := c.Request.Context()
	ten, err := tenant.Default(ctx, s.db)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	configs, err := s.vendorConfigs.List(ctx, ten.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vendors": configs})
}

type putCredentialsRequest struct {
	Credentials map[string]string `json:"credentials"`
}

// PutVendorCredentials seals and stores credentials for a vendor. The
// plaintext never leaves this handler.
func (s *Server) PutVendorCredentials(c *gin.Context) {
	vendor, ok := snapshotdomain.ParseVendor(c.Param("vendor"))
	if !ok {
		AbortWithError(c, newValidationError("vendor", "unknown_vendor", "unknown vendor: "+c.Param("vendor")))
		return
	}

	var req putCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if len(req.Credentials) == 0 {
		AbortWithError(c, newValidationError("credentials", "required", "credentials are required"))
		return
	}

	ctx := c.Request.Context()
	ten, err := tenant.Default(ctx, s.db)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.vendorConfigs.StoreCredentials(ctx, s.node, ten.ID, vendor, req.Credentials, s.clock.Now()); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
