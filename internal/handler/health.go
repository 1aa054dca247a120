package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// Pinger is satisfied by a closure over *sql.DB or *redis.Client.
type Pinger func(ctx context.Context) error

// Health returns a JSON health check response. Postgres and Redis are pinged
// concurrently; credentials and driver errors are never exposed.
func Health(db, rdb Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus, redisStatus := "connected", "connected"
		var g errgroup.Group
		g.Go(func() error {
			if db == nil || db(ctx) != nil {
				dbStatus = "error"
			}
			return nil
		})
		g.Go(func() error {
			if rdb == nil || rdb(ctx) != nil {
				redisStatus = "error"
			}
			return nil
		})
		_ = g.Wait()

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ok":    status == http.StatusOK,
			"db":    dbStatus,
			"redis": redisStatus,
		})
	}
}
