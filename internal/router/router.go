package router

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"go-hedgevault/internal/handlers"
	"go-hedgevault/internal/middleware"
	"go-hedgevault/internal/services"
)

// corsMiddleware applies the CORS policy. CORS_ALLOWED_ORIGINS is a
// comma-separated whitelist; unset means allow all.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowedOrigins := []string{"*"}
		if env := os.Getenv("CORS_ALLOWED_ORIGINS"); env != "" {
			allowedOrigins = allowedOrigins[:0]
			for _, o := range strings.Split(env, ",") {
				if trimmed := strings.TrimSpace(o); trimmed != "" {
					allowedOrigins = append(allowedOrigins, trimmed)
				}
			}
		}

		if len(allowedOrigins) == 1 && allowedOrigins[0] == "*" {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			for _, allowed := range allowedOrigins {
				if allowed == origin {
					c.Header("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, Cache-Control, Accept")
			c.Header("Access-Control-Max-Age", "3600")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Handlers bundles everything the router mounts.
type Handlers struct {
	Vault     *handlers.VaultHandler
	Hedge     *handlers.HedgeHandler
	Admin     *handlers.AdminHandler
	AdminAuth *handlers.AdminAuthHandler
	Push      *services.WebSocketPushService
}

// SetupRouter builds the gin engine and mounts all routes.
func SetupRouter(h Handlers, allowedAdminIPs []string, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	localhostOnly := middleware.NewLocalhostOnly(logger, allowedAdminIPs)
	adminAuth := middleware.NewAdminAuthMiddleware(logger)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/health", handlers.HealthCheckHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Realtime notification stream.
	r.GET("/ws", func(c *gin.Context) {
		h.Push.HandleWebSocket(c.Writer, c.Request)
	})

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheckHandler)
		api.GET("/health/db", handlers.DatabaseHealthCheckHandler)

		vault := api.Group("/vault")
		{
			vault.POST("/proxies", h.Vault.CreateProxy)
			vault.GET("/proxies", h.Vault.ListProxiesByOwner)
			vault.GET("/proxies/:address", h.Vault.GetProxy)
			vault.POST("/proxies/:address/deposit", h.Vault.Deposit)
			vault.POST("/proxies/:address/withdraw", h.Vault.Withdraw)
			vault.GET("/withdrawals", h.Vault.ListWithdrawals)
			vault.GET("/withdrawals/:id", h.Vault.GetWithdrawal)
			vault.POST("/withdrawals/:id/execute", h.Vault.ExecuteWithdrawal)
			vault.POST("/withdrawals/:id/cancel", h.Vault.CancelWithdrawal)
			vault.GET("/stats", h.Vault.Stats)
		}

		hedge := api.Group("/hedge")
		{
			hedge.POST("/commitments", h.Hedge.StoreCommitment)
			hedge.GET("/commitments", h.Hedge.ListCommitments)
			hedge.GET("/commitments/:hash", h.Hedge.GetCommitment)
			hedge.GET("/nullifiers/:hash", h.Hedge.GetNullifier)
			hedge.POST("/batches", h.Hedge.CreateBatch)
			hedge.GET("/batches", h.Hedge.ListBatches)
			hedge.GET("/batches/:number", h.Hedge.GetBatch)
			hedge.GET("/stats", h.Hedge.Stats)

			// Relayer operations run under the process relayer capability.
			hedge.POST("/commitments/:hash/settle", adminAuth.RequireAdminAuth(), h.Hedge.SettleCommitment)
			hedge.POST("/batches/:number/aggregate", adminAuth.RequireAdminAuth(), h.Hedge.AggregateBatch)
		}

		// Admin login is IP-restricted; the rest of the admin surface also
		// requires the JWT the login issues.
		auth := api.Group("/admin/auth", localhostOnly.Restrict())
		{
			auth.POST("/login", h.AdminAuth.AdminLoginHandler)
			auth.POST("/totp/generate", h.AdminAuth.GenerateTOTPSecretHandler)
		}

		admin := api.Group("/admin", localhostOnly.Restrict(), adminAuth.RequireAdminAuth())
		{
			admin.POST("/vault/pause", h.Admin.PauseVault)
			admin.POST("/vault/unpause", h.Admin.UnpauseVault)
			admin.PUT("/vault/timelock", h.Admin.SetTimeLockPolicy)
			admin.POST("/hedge/pause", h.Admin.PauseHedge)
			admin.POST("/hedge/unpause", h.Admin.UnpauseHedge)
			admin.PUT("/hedge/tvl", h.Admin.SetHedgeTVL)
			admin.POST("/capabilities", h.Admin.GrantCapability)
			admin.GET("/notifications", h.Admin.ListNotifications)
			admin.GET("/stats", h.Admin.Stats)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"message":    "Endpoint not found",
			"path":       c.Request.URL.Path,
			"suggestion": "Check /api endpoints for available APIs",
		})
	})

	return r
}
