package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go-hedgevault/internal/models"
	"go-hedgevault/internal/repository"
	"go-hedgevault/internal/services"
	"go-hedgevault/internal/utils"
	"go-hedgevault/internal/vault"
)

// VaultHandler exposes the proxy vault operations. Live reads come from the
// in-memory state; historical listings come from the index tables.
type VaultHandler struct {
	vaultService   *services.VaultService
	withdrawalRepo repository.WithdrawalRepository
	logger         *logrus.Logger
}

// NewVaultHandler creates a new VaultHandler instance.
func NewVaultHandler(vaultService *services.VaultService, withdrawalRepo repository.WithdrawalRepository, logger *logrus.Logger) *VaultHandler {
	return &VaultHandler{
		vaultService:   vaultService,
		withdrawalRepo: withdrawalRepo,
		logger:         logger,
	}
}

// CreateProxyRequest create proxy request body.
type CreateProxyRequest struct {
	Owner       string `json:"owner" binding:"required"`
	BindingHash string `json:"binding_hash" binding:"required"`
}

// DepositRequest deposit request body.
type DepositRequest struct {
	Amount uint64 `json:"amount" binding:"required"`
}

// WithdrawRequest withdrawal request body.
type WithdrawRequest struct {
	Caller       string   `json:"caller" binding:"required"`
	Amount       uint64   `json:"amount" binding:"required"`
	Proof        string   `json:"proof" binding:"required"`
	PublicInputs []string `json:"public_inputs"`
}

// WithdrawalActionRequest execute/cancel request body.
type WithdrawalActionRequest struct {
	Caller string `json:"caller" binding:"required"`
}

func proxyJSON(p *vault.ProxyBinding) gin.H {
	return gin.H{
		"id":               p.ID,
		"proxy_address":    p.ProxyAddress.Hex(),
		"owner":            p.Owner.Hex(),
		"binding_hash":     p.BindingHash.Hex(),
		"nonce":            p.Nonce,
		"deposited_amount": p.DepositedAmount,
		"balance":          p.Balance,
		"is_active":        p.IsActive,
		"created_at_ms":    p.CreatedAt,
	}
}

func pendingJSON(w *vault.PendingWithdrawal) gin.H {
	return gin.H{
		"id":            w.ID,
		"withdrawal_id": w.WithdrawalID.Hex(),
		"proxy_id":      w.ProxyID,
		"owner":         w.Owner.Hex(),
		"amount":        w.Amount,
		"unlock_time":   w.UnlockTime,
		"executed":      w.Executed,
		"cancelled":     w.Cancelled,
	}
}

// CreateProxy handles POST /api/vault/proxies.
func (h *VaultHandler) CreateProxy(c *gin.Context) {
	var req CreateProxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	owner, err := utils.ParseAddress(req.Owner)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bindingHash, err := utils.ParseHash(req.BindingHash)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	proxy, err := h.vaultService.CreateProxy(c.Request.Context(), owner, bindingHash)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "proxy": proxyJSON(proxy)})
}

// GetProxy handles GET /api/vault/proxies/:address.
func (h *VaultHandler) GetProxy(c *gin.Context) {
	addr, err := utils.ParseAddress(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	proxy, err := h.vaultService.ProxyByAddress(addr)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "proxy": proxyJSON(proxy)})
}

// ListProxiesByOwner handles GET /api/vault/proxies?owner=0x...
func (h *VaultHandler) ListProxiesByOwner(c *gin.Context) {
	owner, err := utils.ParseAddress(c.Query("owner"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "owner query parameter required", "details": err.Error()})
		return
	}

	proxies := h.vaultService.ProxiesByOwner(owner)
	out := make([]gin.H, 0, len(proxies))
	for _, p := range proxies {
		out = append(out, proxyJSON(p))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "proxies": out, "total": len(out)})
}

// Deposit handles POST /api/vault/proxies/:address/deposit.
func (h *VaultHandler) Deposit(c *gin.Context) {
	addr, err := utils.ParseAddress(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	proxy, err := h.vaultService.Deposit(c.Request.Context(), addr, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "proxy": proxyJSON(proxy)})
}

// Withdraw handles POST /api/vault/proxies/:address/withdraw.
func (h *VaultHandler) Withdraw(c *gin.Context) {
	addr, err := utils.ParseAddress(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	caller, err := utils.ParseAddress(req.Caller)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	proof, err := utils.ParseProof(req.Proof)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	publicInputs, err := utils.ParsePublicInputs(req.PublicInputs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.vaultService.Withdraw(c.Request.Context(), addr, caller, req.Amount, proof, publicInputs)
	if err != nil {
		respondError(c, err)
		return
	}

	if result.Payout != nil {
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"time_locked": false,
			"payout": gin.H{
				"recipient": result.Payout.Recipient.Hex(),
				"amount":    result.Payout.Amount,
			},
		})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"success":     true,
		"time_locked": true,
		"withdrawal":  pendingJSON(result.Pending),
	})
}

// ExecuteWithdrawal handles POST /api/vault/withdrawals/:id/execute.
func (h *VaultHandler) ExecuteWithdrawal(c *gin.Context) {
	withdrawalID, err := utils.ParseHash(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req WithdrawalActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	caller, err := utils.ParseAddress(req.Caller)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payout, err := h.vaultService.ExecuteWithdrawal(c.Request.Context(), withdrawalID, caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"payout": gin.H{
			"recipient": payout.Recipient.Hex(),
			"amount":    payout.Amount,
		},
	})
}

// CancelWithdrawal handles POST /api/vault/withdrawals/:id/cancel.
func (h *VaultHandler) CancelWithdrawal(c *gin.Context) {
	withdrawalID, err := utils.ParseHash(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req WithdrawalActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	caller, err := utils.ParseAddress(req.Caller)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.vaultService.CancelWithdrawal(c.Request.Context(), withdrawalID, caller); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetWithdrawal handles GET /api/vault/withdrawals/:id.
func (h *VaultHandler) GetWithdrawal(c *gin.Context) {
	withdrawalID, err := utils.ParseHash(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pending, err := h.vaultService.WithdrawalByDerivedID(withdrawalID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "withdrawal": pendingJSON(pending)})
}

// ListWithdrawals handles GET /api/vault/withdrawals?owner=&status= from
// the index tables.
func (h *VaultHandler) ListWithdrawals(c *gin.Context) {
	if h.withdrawalRepo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Index database not available"})
		return
	}

	ctx := c.Request.Context()
	var (
		records []*models.WithdrawalRecord
		err     error
	)
	switch {
	case c.Query("owner") != "":
		owner, parseErr := utils.ParseAddress(c.Query("owner"))
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": parseErr.Error()})
			return
		}
		records, err = h.withdrawalRepo.FindByOwner(ctx, owner.Hex())
	case c.Query("status") != "":
		records, err = h.withdrawalRepo.FindByStatus(ctx, models.WithdrawalStatus(c.Query("status")))
	default:
		records, err = h.withdrawalRepo.FindByStatus(ctx, models.WithdrawalStatusPending)
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to list withdrawals")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch withdrawals"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "withdrawals": records, "total": len(records)})
}

// Stats handles GET /api/vault/stats.
func (h *VaultHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": h.vaultService.Stats()})
}

// parsePagination reads ?page= and ?page_size= with sane bounds.
func parsePagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
