package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go-hedgevault/internal/capability"
	"go-hedgevault/internal/repository"
	"go-hedgevault/internal/services"
	"go-hedgevault/internal/utils"
)

// AdminHandler exposes the operator controls: pausing, policy updates and
// capability grants. All routes sit behind the admin JWT middleware; the
// handler holds the process capability tokens minted at startup.
type AdminHandler struct {
	vaultService *services.VaultService
	hedgeService *services.HedgeService

	authority     *capability.Authority
	adminToken    *capability.Token
	guardianToken *capability.Token

	notificationRepo repository.NotificationRepository
	logger           *logrus.Logger
}

// NewAdminHandler creates a new AdminHandler instance.
func NewAdminHandler(vaultService *services.VaultService, hedgeService *services.HedgeService, authority *capability.Authority, adminToken, guardianToken *capability.Token, notificationRepo repository.NotificationRepository, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		vaultService:     vaultService,
		hedgeService:     hedgeService,
		authority:        authority,
		adminToken:       adminToken,
		guardianToken:    guardianToken,
		notificationRepo: notificationRepo,
		logger:           logger,
	}
}

// TimeLockPolicyRequest time-lock policy update body. Zero-valued fields
// are left unchanged.
type TimeLockPolicyRequest struct {
	Threshold  uint64 `json:"threshold"`
	DurationMs uint64 `json:"duration_ms"`
}

// SetTVLRequest hedge TVL update body.
type SetTVLRequest struct {
	TotalValueLocked uint64 `json:"total_value_locked"`
}

// GrantCapabilityRequest capability grant body.
type GrantCapabilityRequest struct {
	Role   string `json:"role" binding:"required"`
	Holder string `json:"holder" binding:"required"`
}

// PauseVault handles POST /api/admin/vault/pause.
func (h *AdminHandler) PauseVault(c *gin.Context) {
	if err := h.vaultService.Pause(h.guardianToken); err != nil {
		respondError(c, err)
		return
	}
	h.logger.WithField("by", c.GetString("admin_username")).Warn("Vault paused")
	c.JSON(http.StatusOK, gin.H{"success": true, "paused": true})
}

// UnpauseVault handles POST /api/admin/vault/unpause.
func (h *AdminHandler) UnpauseVault(c *gin.Context) {
	if err := h.vaultService.Unpause(h.adminToken); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "paused": false})
}

// PauseHedge handles POST /api/admin/hedge/pause.
func (h *AdminHandler) PauseHedge(c *gin.Context) {
	if err := h.hedgeService.Pause(h.guardianToken); err != nil {
		respondError(c, err)
		return
	}
	h.logger.WithField("by", c.GetString("admin_username")).Warn("Hedge registry paused")
	c.JSON(http.StatusOK, gin.H{"success": true, "paused": true})
}

// UnpauseHedge handles POST /api/admin/hedge/unpause.
func (h *AdminHandler) UnpauseHedge(c *gin.Context) {
	if err := h.hedgeService.Unpause(h.adminToken); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "paused": false})
}

// SetTimeLockPolicy handles PUT /api/admin/vault/timelock.
func (h *AdminHandler) SetTimeLockPolicy(c *gin.Context) {
	var req TimeLockPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	if req.Threshold == 0 && req.DurationMs == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "threshold or duration_ms required"})
		return
	}

	if req.Threshold > 0 {
		if err := h.vaultService.SetTimeLockThreshold(h.adminToken, req.Threshold); err != nil {
			respondError(c, err)
			return
		}
	}
	if req.DurationMs > 0 {
		if err := h.vaultService.SetTimeLockDuration(h.adminToken, req.DurationMs); err != nil {
			respondError(c, err)
			return
		}
	}

	h.logger.WithFields(logrus.Fields{
		"threshold":   req.Threshold,
		"duration_ms": req.DurationMs,
		"by":          c.GetString("admin_username"),
	}).Info("Time-lock policy updated")
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": h.vaultService.Stats()})
}

// SetHedgeTVL handles PUT /api/admin/hedge/tvl.
func (h *AdminHandler) SetHedgeTVL(c *gin.Context) {
	var req SetTVLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	if err := h.hedgeService.SetTotalValueLocked(h.adminToken, req.TotalValueLocked); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": h.hedgeService.Stats()})
}

// GrantCapability handles POST /api/admin/capabilities. The minted token
// lives in this process; the response carries its identity for audit.
func (h *AdminHandler) GrantCapability(c *gin.Context) {
	var req GrantCapabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	holder, err := utils.ParseAddress(req.Holder)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.authority.Grant(h.adminToken, capability.Role(req.Role), holder)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"token_id": token.ID(),
		"role":     string(token.Role()),
		"holder":   token.Holder().Hex(),
		"by":       c.GetString("admin_username"),
	}).Info("✅ Capability granted")
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"token": gin.H{
			"id":     token.ID(),
			"role":   string(token.Role()),
			"holder": token.Holder().Hex(),
		},
	})
}

// ListNotifications handles GET /api/admin/notifications from the log table.
func (h *AdminHandler) ListNotifications(c *gin.Context) {
	if h.notificationRepo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Index database not available"})
		return
	}

	if kind := c.Query("kind"); kind != "" {
		records, err := h.notificationRepo.FindByKind(c.Request.Context(), kind, 100)
		if err != nil {
			h.logger.WithError(err).Error("Failed to list notifications by kind")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "notifications": records, "total": len(records)})
		return
	}

	page, pageSize := parsePagination(c)
	records, total, err := h.notificationRepo.List(c.Request.Context(), page, pageSize)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list notifications")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"notifications": records,
		"total":         total,
		"page":          page,
		"page_size":     pageSize,
	})
}

// Stats handles GET /api/admin/stats with both machine snapshots.
func (h *AdminHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"vault":   h.vaultService.Stats(),
		"hedge":   h.hedgeService.Stats(),
	})
}
