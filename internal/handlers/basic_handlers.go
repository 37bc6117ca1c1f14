package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-hedgevault/internal/db"
)

// HealthCheckHandler handles GET /api/health.
func HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "hedgevault",
		"api":     "healthy",
	})
}

// DatabaseHealthCheckHandler handles GET /api/health/db.
func DatabaseHealthCheckHandler(c *gin.Context) {
	if db.DB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "error": "database not initialized"})
		return
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "error": err.Error()})
		return
	}
	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
