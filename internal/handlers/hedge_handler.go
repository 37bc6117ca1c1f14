package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go-hedgevault/internal/capability"
	"go-hedgevault/internal/hedge"
	"go-hedgevault/internal/repository"
	"go-hedgevault/internal/services"
	"go-hedgevault/internal/utils"
)

// HedgeHandler exposes the hedge commitment registry operations. Settlement
// and aggregation run under the relayer capability held by the process;
// those routes sit behind the admin auth middleware.
type HedgeHandler struct {
	hedgeService   *services.HedgeService
	relayerToken   *capability.Token
	commitmentRepo repository.CommitmentRepository
	batchRepo      repository.BatchRepository
	logger         *logrus.Logger
}

// NewHedgeHandler creates a new HedgeHandler instance.
func NewHedgeHandler(hedgeService *services.HedgeService, relayerToken *capability.Token, commitmentRepo repository.CommitmentRepository, batchRepo repository.BatchRepository, logger *logrus.Logger) *HedgeHandler {
	return &HedgeHandler{
		hedgeService:   hedgeService,
		relayerToken:   relayerToken,
		commitmentRepo: commitmentRepo,
		batchRepo:      batchRepo,
		logger:         logger,
	}
}

// StoreCommitmentRequest store commitment request body.
type StoreCommitmentRequest struct {
	StealthAddress string `json:"stealth_address" binding:"required"`
	CommitmentHash string `json:"commitment_hash" binding:"required"`
	Nullifier      string `json:"nullifier" binding:"required"`
	MerkleRoot     string `json:"merkle_root" binding:"required"`
}

// SettleCommitmentRequest settle request body.
type SettleCommitmentRequest struct {
	Proof string `json:"proof" binding:"required"`
}

func commitmentJSON(c *hedge.HedgeCommitment) gin.H {
	return gin.H{
		"id":              c.ID,
		"commitment_hash": c.CommitmentHash.Hex(),
		"nullifier":       c.Nullifier.Hex(),
		"stealth_address": c.StealthAddress.Hex(),
		"merkle_root":     c.MerkleRoot.Hex(),
		"timestamp_ms":    c.Timestamp,
		"settled":         c.Settled,
		"batch_id":        c.BatchID,
	}
}

func batchJSON(b *hedge.BatchCommitment) gin.H {
	return gin.H{
		"id":             b.ID,
		"batch_number":   b.BatchID,
		"batch_root":     b.BatchRoot.Hex(),
		"commitment_ids": b.CommitmentIDs,
		"size":           len(b.CommitmentIDs),
		"timestamp_ms":   b.Timestamp,
		"aggregated":     b.Aggregated,
	}
}

// StoreCommitment handles POST /api/hedge/commitments.
func (h *HedgeHandler) StoreCommitment(c *gin.Context) {
	var req StoreCommitmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	stealth, err := utils.ParseAddress(req.StealthAddress)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	commitmentHash, err := utils.ParseHash(req.CommitmentHash)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	nullifier, err := utils.ParseHash(req.Nullifier)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	merkleRoot, err := utils.ParseHash(req.MerkleRoot)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	commitment, err := h.hedgeService.StoreCommitment(c.Request.Context(), stealth, commitmentHash, nullifier, merkleRoot)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "commitment": commitmentJSON(commitment)})
}

// GetCommitment handles GET /api/hedge/commitments/:hash.
func (h *HedgeHandler) GetCommitment(c *gin.Context) {
	hash, err := utils.ParseHash(c.Param("hash"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	commitment, err := h.hedgeService.CommitmentByHash(hash)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "commitment": commitmentJSON(commitment)})
}

// ListCommitments handles GET /api/hedge/commitments from the index tables.
func (h *HedgeHandler) ListCommitments(c *gin.Context) {
	if h.commitmentRepo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Index database not available"})
		return
	}

	if stealth := c.Query("stealth_address"); stealth != "" {
		addr, err := utils.ParseAddress(stealth)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		records, err := h.commitmentRepo.FindByStealthAddress(c.Request.Context(), addr.Hex())
		if err != nil {
			h.logger.WithError(err).Error("Failed to list commitments by stealth address")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch commitments"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "commitments": records, "total": len(records)})
		return
	}

	page, pageSize := parsePagination(c)
	records, total, err := h.commitmentRepo.List(c.Request.Context(), page, pageSize)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list commitments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch commitments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"commitments": records,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
	})
}

// GetNullifier handles GET /api/hedge/nullifiers/:hash.
func (h *HedgeHandler) GetNullifier(c *gin.Context) {
	nullifier, err := utils.ParseHash(c.Param("hash"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"nullifier": nullifier.Hex(),
		"used":      h.hedgeService.NullifierUsed(nullifier),
	})
}

// SettleCommitment handles POST /api/hedge/commitments/:hash/settle.
func (h *HedgeHandler) SettleCommitment(c *gin.Context) {
	hash, err := utils.ParseHash(c.Param("hash"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req SettleCommitmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	proof, err := utils.ParseProof(req.Proof)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	commitment, err := h.hedgeService.SettleCommitment(c.Request.Context(), hash, h.relayerToken, proof)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "commitment": commitmentJSON(commitment)})
}

// CreateBatch handles POST /api/hedge/batches. Batch formation is open to
// anyone; the interval gate inside the state machine does the throttling.
func (h *HedgeHandler) CreateBatch(c *gin.Context) {
	batch, err := h.hedgeService.CreateBatch(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if batch == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "batch": nil, "message": "No pending commitments"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "batch": batchJSON(batch)})
}

// GetBatch handles GET /api/hedge/batches/:number.
func (h *HedgeHandler) GetBatch(c *gin.Context) {
	number, err := strconv.ParseUint(c.Param("number"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid batch number"})
		return
	}

	batch, err := h.hedgeService.BatchByNumber(number)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "batch": batchJSON(batch)})
}

// ListBatches handles GET /api/hedge/batches from the index tables.
func (h *HedgeHandler) ListBatches(c *gin.Context) {
	if h.batchRepo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Index database not available"})
		return
	}

	page, pageSize := parsePagination(c)
	records, total, err := h.batchRepo.List(c.Request.Context(), page, pageSize)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list batches")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch batches"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"batches":   records,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// AggregateBatch handles POST /api/hedge/batches/:number/aggregate.
func (h *HedgeHandler) AggregateBatch(c *gin.Context) {
	number, err := strconv.ParseUint(c.Param("number"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid batch number"})
		return
	}

	batch, err := h.hedgeService.AggregateBatch(c.Request.Context(), number, h.relayerToken)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "batch": batchJSON(batch)})
}

// Stats handles GET /api/hedge/stats.
func (h *HedgeHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": h.hedgeService.Stats()})
}
