package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// SetupPublicRoutes - health, метрики и раздача локально загруженных файлов.
// staticDir пустой, если файлы хранятся в S3/R2.
func SetupPublicRoutes(r *gin.Engine, db *gorm.DB, staticURL, staticDir string) {
	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if staticDir != "" && staticURL != "" {
		r.Static(staticURL, staticDir)
	}
}
