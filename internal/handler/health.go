package handler

import (
	"context"
	"net/http"
	"time"

	"pvflow/internal/infra"
	"pvflow/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health reports DB and Redis connectivity plus the mail pipeline state.
// Only the first two decide the status code; a broken SMTP relay degrades
// alerts, not the API.
func Health(db *gorm.DB, rdb *redis.Client, mailCB *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		if infra.PingDatabase(ctx, db) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		if rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		body := gin.H{
			"ok":    status == http.StatusOK,
			"db":    dbStatus,
			"redis": redisStatus,
		}
		if mailCB != nil {
			body["smtp_breaker"] = mailCB.State().String()
		}
		if n, err := worker.DLQLength(ctx, rdb, worker.QueueEmail); err == nil {
			body["email_dlq"] = n
		}
		c.JSON(status, body)
	}
}
